package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/opencefadb/opencefadb-cli/internal/core/domain"
	"github.com/opencefadb/opencefadb-cli/internal/core/ports/driven"
	"github.com/opencefadb/opencefadb-cli/internal/logger"
)

// SessionFactory opens sessions for the active (or a named) profile.
type SessionFactory struct {
	Profiles *ProfileService
	Stores   driven.MetadataStoreFactory
	Archives driven.ArchiveFactory

	// Metrics may be nil.
	Metrics driven.MetricsRecorder
}

// Session bundles the services bound to one profile for the lifetime of
// a command.
type Session struct {
	Profile    domain.SessionProfile
	Workspace  domain.Workspace
	Metadata   *MetadataService
	Resolution *ResolutionService
	Release    *ReleaseService

	profiles *ProfileService
	closed   bool
}

// Profile returns the validated profile a session would be bound to.
// An empty name selects the active profile.
func (f *SessionFactory) Profile(name string) (*domain.SessionProfile, error) {
	var (
		profile *domain.SessionProfile
		err     error
	)
	if name != "" {
		profile, err = f.Profiles.Get(name)
	} else {
		profile, err = f.Profiles.Active()
	}
	if err != nil {
		return nil, err
	}
	if err := profile.Validate(); err != nil {
		return nil, fmt.Errorf("profile %q: %w", profile.Name, err)
	}
	return profile, nil
}

// ConfigGenerator returns a generator reading archive records with the
// credentials of the named profile. Without a profile, and with no active
// one, records are read anonymously. apiURL overrides the Zenodo endpoint.
func (f *SessionFactory) ConfigGenerator(name, apiURL string) (*ConfigGenerator, error) {
	profile, err := f.Profile(name)
	switch {
	case name == "" && errors.Is(err, domain.ErrNoActiveProfile):
		profile = &domain.SessionProfile{}
	case err != nil:
		return nil, err
	}
	return NewConfigGenerator(f.Archives.Records(*profile, apiURL)), nil
}

// Open builds a session. An empty name selects the active profile.
func (f *SessionFactory) Open(ctx context.Context, name string) (*Session, error) {
	profile, err := f.Profile(name)
	if err != nil {
		return nil, err
	}

	ws := domain.NewWorkspace(profile.WorkingDirectory)
	store, err := f.Stores.Create(ctx, *profile)
	if err != nil {
		return nil, err
	}
	logger.Debug("session %q: %s backend, workspace %s", profile.Name, profile.Backend, ws.Root)

	metadata := NewMetadataService(store, f.Metrics)
	return &Session{
		Profile:    *profile,
		Workspace:  ws,
		Metadata:   metadata,
		Resolution: NewResolutionService(metadata, f.Archives.Fetcher(*profile), ws, f.Metrics),
		Release:    NewReleaseService(*profile, ws, metadata, f.Archives),
		profiles:   f.Profiles,
	}, nil
}

// Close releases the backend.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.Metadata.Close()
}

// ResetOptions select what a reset removes besides the workspace.
type ResetOptions struct {
	// ClearBackend also empties the metadata store. Remote stores are
	// shared, so this is off by default.
	ClearBackend bool

	// ForgetProfiles removes every profile.
	ForgetProfiles bool
}

// Reset removes the workspace and closes the session.
func (s *Session) Reset(ctx context.Context, opts ResetOptions) error {
	if opts.ClearBackend {
		if err := s.Metadata.Clear(ctx); err != nil {
			return err
		}
		logger.Info("Cleared %s backend", s.Profile.Backend)
	}
	if err := s.Close(); err != nil {
		return err
	}
	return resetLocal(s.Workspace, s.profiles, opts.ForgetProfiles)
}

// Reset removes a profile's workspace without opening a session. The
// backend is only contacted when opts.ClearBackend is set.
func (f *SessionFactory) Reset(ctx context.Context, profile domain.SessionProfile, opts ResetOptions) error {
	if opts.ClearBackend {
		store, err := f.Stores.Create(ctx, profile)
		if err != nil {
			return err
		}
		metadata := NewMetadataService(store, f.Metrics)
		err = metadata.Clear(ctx)
		if cerr := metadata.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return err
		}
		logger.Info("Cleared %s backend", profile.Backend)
	}
	return resetLocal(domain.NewWorkspace(profile.WorkingDirectory), f.Profiles, opts.ForgetProfiles)
}

func resetLocal(ws domain.Workspace, profiles *ProfileService, forget bool) error {
	if err := removeWorkspace(ws); err != nil {
		return err
	}
	logger.Info("Removed workspace %s", ws.Root)

	if forget {
		if err := profiles.RemoveAll(); err != nil {
			return err
		}
		logger.Info("Removed all profiles")
	}
	return nil
}

// removeWorkspace deletes the workspace directory, refusing the
// filesystem root and the home directory.
func removeWorkspace(ws domain.Workspace) error {
	root, err := filepath.Abs(ws.Root)
	if err != nil {
		return err
	}
	if root == filepath.Dir(root) {
		return fmt.Errorf("%w: refusing to remove %s", domain.ErrInvalidInput, root)
	}
	if home, err := os.UserHomeDir(); err == nil && filepath.Clean(home) == root {
		return fmt.Errorf("%w: refusing to remove home directory %s", domain.ErrInvalidInput, root)
	}
	if err := os.RemoveAll(root); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove workspace: %w", err)
	}
	return nil
}
