package metadata

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencefadb/opencefadb-cli/internal/core/domain"
	"github.com/opencefadb/opencefadb-cli/internal/core/ports/driven"
)

func TestFactory_SupportedBackends(t *testing.T) {
	f := NewFactory()
	assert.Equal(t, []domain.BackendKind{domain.BackendGraphDB, domain.BackendSPARQL, domain.BackendSQLite}, f.SupportedBackends())
}

func TestFactory_CreateSQLite(t *testing.T) {
	f := NewFactory()
	store, err := f.Create(context.Background(), domain.SessionProfile{
		Name:             "local",
		Backend:          domain.BackendSQLite,
		WorkingDirectory: t.TempDir(),
	})
	require.NoError(t, err)
	defer store.Close()
	assert.Equal(t, domain.BackendSQLite, store.Backend())
	assert.Equal(t, domain.LanguageSQL, store.Language())
}

func TestFactory_CreateSPARQLDoesNotConnect(t *testing.T) {
	store, err := NewFactory().Create(context.Background(), domain.SessionProfile{
		Name:     "remote",
		Backend:  domain.BackendSPARQL,
		Endpoint: "http://127.0.0.1:1/query",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.LanguageSPARQL, store.Language())
}

func TestFactory_Errors(t *testing.T) {
	f := NewFactory()

	_, err := f.Create(context.Background(), domain.SessionProfile{Backend: "oxigraph"})
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)

	_, err = f.Create(context.Background(), domain.SessionProfile{Backend: domain.BackendGraphDB})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	boom := errors.New("boom")
	f.Register(domain.BackendSQLite, func(context.Context, domain.SessionProfile) (driven.MetadataStore, error) {
		return nil, boom
	})
	_, err = f.Create(context.Background(), domain.SessionProfile{Backend: domain.BackendSQLite})
	assert.ErrorIs(t, err, boom)
}
