package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencefadb/opencefadb-cli/internal/adapters/driven/metadata"
	"github.com/opencefadb/opencefadb-cli/internal/adapters/driven/storage/memory"
	"github.com/opencefadb/opencefadb-cli/internal/core/domain"
	"github.com/opencefadb/opencefadb-cli/internal/core/ports/driven"
	"github.com/opencefadb/opencefadb-cli/internal/core/ports/driving"
	"github.com/opencefadb/opencefadb-cli/internal/query"
	"github.com/opencefadb/opencefadb-cli/internal/rdfio"
)

func newSessionFactory(t *testing.T) (*SessionFactory, *ProfileService) {
	t.Helper()
	profiles := NewProfileService(memory.NewConfigStore())
	return &SessionFactory{
		Profiles: profiles,
		Stores:   metadata.NewFactory(),
		Archives: releaseArchives(),
	}, profiles
}

func TestSessionFactory_NoProfile(t *testing.T) {
	factory, _ := newSessionFactory(t)

	_, err := factory.Open(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrNoActiveProfile)

	_, err = factory.Open(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSession_InitResolveReset(t *testing.T) {
	factory, profiles := newSessionFactory(t)
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "ws")
	require.NoError(t, profiles.Configure(domain.SessionProfile{
		Name:             "local",
		Backend:          domain.BackendSQLite,
		WorkingDirectory: dir,
	}))

	session, err := factory.Open(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "local", session.Profile.Name)
	assert.Equal(t, domain.LanguageSQL, session.Metadata.Language())

	_, err = session.Release.Init(ctx, driving.InitOptions{})
	require.Error(t, err, "the latest release carries broken documents")

	refs, err := session.Resolution.Resolve(ctx, domain.Intent{Fan: "Unit-42"})
	require.NoError(t, err)
	assert.NotEmpty(t, refs)

	require.NoError(t, session.Reset(ctx, ResetOptions{}))
	assert.NoDirExists(t, dir)
	// Profiles survive a plain reset.
	state, err := profiles.State()
	require.NoError(t, err)
	assert.Equal(t, domain.StateActive, state)

	// Closing again is harmless.
	assert.NoError(t, session.Close())
}

func TestSession_ResetForgetsProfiles(t *testing.T) {
	factory, profiles := newSessionFactory(t)
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "ws")
	require.NoError(t, profiles.Configure(domain.SessionProfile{Name: "a", Backend: domain.BackendSQLite, WorkingDirectory: dir}))
	require.NoError(t, profiles.Configure(domain.SessionProfile{Name: "b", Backend: domain.BackendSQLite, WorkingDirectory: dir + "-b"}))

	session, err := factory.Open(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, "b", session.Profile.Name)

	_, err = session.Metadata.Load(ctx, []domain.Document{{
		Path:   writeFile(t, t.TempDir(), "fan.ttl", fanMetadata),
		Format: domain.FormatTurtle,
	}})
	require.NoError(t, err)
	text, err := query.Compile(query.Pattern{
		Select: []string{"id"},
		Where:  []query.Triple{query.T(query.V("ds"), query.IRI(rdfio.DCTIdentifier), query.V("id"))},
	}, session.Metadata.Language())
	require.NoError(t, err)
	rows, err := session.Metadata.Query(ctx, text, session.Metadata.Language())
	require.NoError(t, err)
	assert.NotEmpty(t, rows)

	require.NoError(t, session.Reset(ctx, ResetOptions{ClearBackend: true, ForgetProfiles: true}))
	assert.NoDirExists(t, dir+"-b")

	state, err := profiles.State()
	require.NoError(t, err)
	assert.Equal(t, domain.StateUninitialized, state)
}

// countingStores records store creation and never succeeds.
type countingStores struct {
	driven.MetadataStoreFactory
	created int
}

func (c *countingStores) Create(context.Context, domain.SessionProfile) (driven.MetadataStore, error) {
	c.created++
	return nil, &domain.NetworkError{Locator: "http://graphdb.invalid", Temporary: true, Err: errors.New("connection refused")}
}

func TestSessionFactory_ResetWithoutBackend(t *testing.T) {
	stores := &countingStores{MetadataStoreFactory: metadata.NewFactory()}
	profiles := NewProfileService(memory.NewConfigStore())
	factory := &SessionFactory{Profiles: profiles, Stores: stores, Archives: releaseArchives()}
	ctx := context.Background()

	dir := filepath.Join(t.TempDir(), "ws")
	require.NoError(t, profiles.Configure(domain.SessionProfile{
		Name:             "remote",
		Backend:          domain.BackendGraphDB,
		Endpoint:         "http://graphdb.invalid:7200",
		Repository:       "opencefadb",
		WorkingDirectory: dir,
	}))
	profile, err := factory.Profile("")
	require.NoError(t, err)

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "cache"), 0o755))
	require.NoError(t, factory.Reset(ctx, *profile, ResetOptions{}))
	assert.NoDirExists(t, dir)
	assert.Zero(t, stores.created)

	require.NoError(t, os.MkdirAll(dir, 0o755))
	err = factory.Reset(ctx, *profile, ResetOptions{ClearBackend: true})
	assert.True(t, domain.IsTransient(err))
	assert.Equal(t, 1, stores.created)
	assert.DirExists(t, dir, "nothing is removed when the backend cannot be cleared")

	require.NoError(t, factory.Reset(ctx, *profile, ResetOptions{ForgetProfiles: true}))
	state, err := profiles.State()
	require.NoError(t, err)
	assert.Equal(t, domain.StateUninitialized, state)
}

func TestRemoveWorkspace_Refuses(t *testing.T) {
	err := removeWorkspace(domain.NewWorkspace(string(filepath.Separator)))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	if home, err := os.UserHomeDir(); err == nil {
		err := removeWorkspace(domain.NewWorkspace(home))
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
		assert.DirExists(t, home)
	}

	// A missing workspace is not an error.
	assert.NoError(t, removeWorkspace(domain.NewWorkspace(filepath.Join(t.TempDir(), "gone"))))
}
