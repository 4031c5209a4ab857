package driven

import (
	"context"

	"github.com/opencefadb/opencefadb-cli/internal/core/domain"
)

// MetadataStore holds the metadata graph of one session.
// Implementations: embedded sqlite, GraphDB repository, SPARQL endpoint.
type MetadataStore interface {
	// Backend returns the backend kind.
	Backend() domain.BackendKind

	// Language returns the query language Query accepts.
	Language() domain.QueryLanguage

	// Clear removes all loaded content.
	Clear(ctx context.Context) error

	// Load parses and inserts documents independently of each other.
	// Returns the number of triples inserted from the documents that loaded
	// and a *domain.BatchError of *domain.ParseError for the ones that failed.
	Load(ctx context.Context, docs []domain.Document) (int, error)

	// Query runs text and returns the solutions. A lang other than
	// Language() is rejected as a syntax error.
	// Failures are *domain.QueryError.
	Query(ctx context.Context, text string, lang domain.QueryLanguage) ([]domain.Row, error)

	// Count returns the number of statements held.
	Count(ctx context.Context) (int, error)

	// Close releases the store.
	Close() error
}

// DocumentLister is implemented by stores that track loaded documents.
type DocumentLister interface {
	// Documents returns the loaded documents in load order.
	Documents(ctx context.Context) ([]domain.LoadedDocument, error)
}

// DirectoryLoader is implemented by stores with a bulk directory import.
type DirectoryLoader interface {
	// LoadDirectory loads every document below dir matching one of the
	// doublestar patterns, with Load semantics.
	LoadDirectory(ctx context.Context, dir string, patterns []string) (int, error)
}
