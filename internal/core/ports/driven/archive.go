package driven

import (
	"context"

	"github.com/opencefadb/opencefadb-cli/internal/core/domain"
)

// ArtifactFetcher retrieves immutable remote blobs into the workspace.
type ArtifactFetcher interface {
	// Fetch downloads locator to dest and returns dest.
	// If dest already holds content matching expected, nothing is transferred.
	// A digest mismatch returns *domain.IntegrityError and leaves no file at dest.
	// Cancellation leaves no partial file behind.
	Fetch(ctx context.Context, locator string, expected domain.Checksum, dest string) (string, error)
}

// VersionCatalog lists the published releases of a catalog.
type VersionCatalog interface {
	// Kind returns the catalog protocol.
	Kind() domain.CatalogKind

	// ListVersions returns releases in descending recency.
	ListVersions(ctx context.Context, catalogID string) ([]domain.ReleaseVersion, error)
}

// RecordSource reads the file listing of an archive record.
type RecordSource interface {
	// Record returns the record's files. An unknown record is a
	// *domain.NotFoundError.
	Record(ctx context.Context, recordID string) (*domain.PublishedDataset, error)
}

// ArchiveFactory builds archive clients configured for a profile
// (access token, timeout, catalog endpoint).
type ArchiveFactory interface {
	// Fetcher returns a fetcher for the profile.
	Fetcher(profile domain.SessionProfile) ArtifactFetcher

	// Catalog returns the version catalog named by the profile.
	// Returns ErrUnsupportedType for an unknown catalog kind.
	Catalog(profile domain.SessionProfile) (VersionCatalog, error)

	// Records returns a Zenodo record reader. apiURL overrides the
	// endpoint; empty means the profile's Zenodo catalog URL or the
	// public API.
	Records(profile domain.SessionProfile, apiURL string) RecordSource
}
