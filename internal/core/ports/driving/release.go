package driving

import (
	"context"

	"github.com/opencefadb/opencefadb-cli/internal/core/domain"
)

// ReleaseService acquires release configurations and populates the
// metadata graph from them.
type ReleaseService interface {
	// Versions lists releases of the profile's catalog, newest first.
	Versions(ctx context.Context) ([]domain.ReleaseVersion, error)

	// Init downloads the configuration and its metadata documents and
	// loads them. Per-document failures are reported as *domain.BatchError
	// alongside a non-nil result.
	Init(ctx context.Context, opts InitOptions) (*InitResult, error)
}

// InitOptions select which release configuration to initialise from.
type InitOptions struct {
	// Version pins a release; empty selects the latest.
	Version string

	// ConfigPath uses a local configuration file instead of the catalog.
	ConfigPath string

	// Format of ConfigPath when its suffix is not conclusive.
	Format string

	// Force refetches documents already present in the workspace.
	Force bool

	// Clear empties the backend before loading.
	Clear bool
}

// InitResult summarises an initialisation.
type InitResult struct {
	// Version is the release that was initialised.
	Version string

	// ConfigPath is where the configuration was stored.
	ConfigPath string

	// Documents is the number of descriptors in the configuration.
	Documents int

	// Fetched is the number of documents available locally after download.
	Fetched int

	// Triples is the number of statements loaded.
	Triples int
}
