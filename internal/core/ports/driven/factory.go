package driven

import (
	"context"

	"github.com/opencefadb/opencefadb-cli/internal/core/domain"
)

// MetadataStoreBuilder opens a store for a profile.
type MetadataStoreBuilder func(ctx context.Context, profile domain.SessionProfile) (MetadataStore, error)

// MetadataStoreFactory creates metadata stores from profile configuration.
// It maintains a registry of backend kinds and their builders.
type MetadataStoreFactory interface {
	// Create returns a MetadataStore for the profile's backend.
	// Returns ErrUnsupportedType if the backend is unknown.
	Create(ctx context.Context, profile domain.SessionProfile) (MetadataStore, error)

	// Register adds a builder for the given backend.
	Register(kind domain.BackendKind, builder MetadataStoreBuilder)

	// SupportedBackends returns all registered backends.
	SupportedBackends() []domain.BackendKind
}
