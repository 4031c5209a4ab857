package mcp

import (
	"context"

	"github.com/opencefadb/opencefadb-cli/internal/core/domain"
	"github.com/opencefadb/opencefadb-cli/internal/core/ports/driving"
)

// mockResolutionService is a mock implementation of driving.ResolutionService.
type mockResolutionService struct {
	refs     []domain.DataFileReference
	files    []domain.LocalDataFile
	err      error
	fetchErr error
	intents  []domain.Intent
	params   []domain.FanParameter
	fans     []string
}

func (m *mockResolutionService) Resolve(_ context.Context, intent domain.Intent) ([]domain.DataFileReference, error) {
	m.intents = append(m.intents, intent)
	return m.refs, m.err
}

func (m *mockResolutionService) Materialize(_ context.Context, _ []domain.DataFileReference) ([]domain.LocalDataFile, error) {
	return m.files, m.fetchErr
}

func (m *mockResolutionService) FanProperties(_ context.Context, fan string) ([]domain.FanParameter, error) {
	m.fans = append(m.fans, fan)
	return m.params, m.err
}

func (m *mockResolutionService) CADFiles(_ context.Context, fan string) ([]domain.DataFileReference, error) {
	m.fans = append(m.fans, fan)
	return m.refs, m.err
}

// mockMetadataService is a mock implementation of driving.MetadataService.
type mockMetadataService struct {
	rows   []domain.Row
	status *driving.MetadataStatus
	err    error
	text   string
}

func (m *mockMetadataService) Load(_ context.Context, _ []domain.Document) (int, error) {
	return 0, m.err
}

func (m *mockMetadataService) LoadDirectory(_ context.Context, _ string, _ []string) (int, error) {
	return 0, m.err
}

func (m *mockMetadataService) Clear(_ context.Context) error {
	return m.err
}

func (m *mockMetadataService) Query(_ context.Context, text string, _ domain.QueryLanguage) ([]domain.Row, error) {
	m.text = text
	return m.rows, m.err
}

func (m *mockMetadataService) Language() domain.QueryLanguage {
	return domain.LanguageSPARQL
}

func (m *mockMetadataService) Status(_ context.Context) (*driving.MetadataStatus, error) {
	return m.status, m.err
}

// mockProfileService is a mock implementation of driving.ProfileService.
type mockProfileService struct {
	active *domain.SessionProfile
	err    error
}

func (m *mockProfileService) State() (domain.ProfileState, error) { return domain.StateActive, m.err }

func (m *mockProfileService) Configure(_ domain.SessionProfile) error { return m.err }

func (m *mockProfileService) Select(_ string) error { return m.err }

func (m *mockProfileService) Active() (*domain.SessionProfile, error) { return m.active, m.err }

func (m *mockProfileService) Get(_ string) (*domain.SessionProfile, error) { return m.active, m.err }

func (m *mockProfileService) List() ([]domain.SessionProfile, error) { return nil, m.err }

func (m *mockProfileService) Remove(_ string) error { return m.err }

func (m *mockProfileService) RemoveAll() error { return m.err }
