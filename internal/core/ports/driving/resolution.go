package driving

import (
	"context"

	"github.com/opencefadb/opencefadb-cli/internal/core/domain"
)

// ResolutionService maps semantic intents to data files.
type ResolutionService interface {
	// Resolve returns the data file references matching intent, ordered by
	// ascending identifier. Zero matches is an empty slice, not an error.
	Resolve(ctx context.Context, intent domain.Intent) ([]domain.DataFileReference, error)

	// Materialize fetches references into the workspace cache. Individual
	// failures are collected into a *domain.BatchError returned alongside
	// the files that succeeded.
	Materialize(ctx context.Context, refs []domain.DataFileReference) ([]domain.LocalDataFile, error)

	// FanProperties returns the parameters attached to a fan, given by
	// identifier or IRI.
	FanProperties(ctx context.Context, fan string) ([]domain.FanParameter, error)

	// CADFiles returns the geometry files published as parts of a fan.
	CADFiles(ctx context.Context, fan string) ([]domain.DataFileReference, error)
}
