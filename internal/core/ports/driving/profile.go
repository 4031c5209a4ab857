package driving

import "github.com/opencefadb/opencefadb-cli/internal/core/domain"

// ProfileService manages persisted session profiles.
// Every read reloads persistent state so external edits take effect.
type ProfileService interface {
	// State returns the lifecycle state of the profile store.
	State() (domain.ProfileState, error)

	// Configure creates or replaces a profile. The first profile
	// configured becomes active.
	Configure(profile domain.SessionProfile) error

	// Select makes the named profile active.
	// Returns ErrNotFound if no such profile exists.
	Select(name string) error

	// Active returns the selected profile.
	// Returns a StateError wrapping ErrNoActiveProfile when none is selected.
	Active() (*domain.SessionProfile, error)

	// Get returns a profile by name.
	Get(name string) (*domain.SessionProfile, error)

	// List returns all profiles sorted by name.
	List() ([]domain.SessionProfile, error)

	// Remove deletes a profile. Removing the active profile deselects it.
	Remove(name string) error

	// RemoveAll deletes every profile, returning to uninitialized.
	RemoveAll() error
}
