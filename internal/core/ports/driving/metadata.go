package driving

import (
	"context"

	"github.com/opencefadb/opencefadb-cli/internal/core/domain"
)

// MetadataService guards the active metadata store with a phase barrier:
// mutations (Load, Clear) never overlap with queries.
type MetadataService interface {
	// Load inserts documents and returns the number of triples loaded.
	Load(ctx context.Context, docs []domain.Document) (int, error)

	// LoadDirectory loads every document below dir matching one of the
	// glob patterns (all RDF suffixes when empty).
	LoadDirectory(ctx context.Context, dir string, patterns []string) (int, error)

	// Clear empties the store.
	Clear(ctx context.Context) error

	// Query runs a read query.
	// Returns a StateError wrapping ErrNothingLoaded on an empty graph.
	Query(ctx context.Context, text string, lang domain.QueryLanguage) ([]domain.Row, error)

	// Language returns the query language of the active backend.
	Language() domain.QueryLanguage

	// Status reports what the store holds.
	Status(ctx context.Context) (*MetadataStatus, error)
}

// MetadataStatus describes the content of the active store.
type MetadataStatus struct {
	// Backend is the active backend kind.
	Backend domain.BackendKind

	// Triples is the number of statements held.
	Triples int

	// Documents lists loaded documents when the backend tracks them.
	Documents []domain.LoadedDocument
}
