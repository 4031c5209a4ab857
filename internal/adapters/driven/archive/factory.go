package archive

import (
	"fmt"
	"net/http"

	"github.com/opencefadb/opencefadb-cli/internal/core/domain"
	"github.com/opencefadb/opencefadb-cli/internal/core/ports/driven"
	"github.com/opencefadb/opencefadb-cli/internal/metrics"
)

// Factory builds fetchers and catalogs from session profiles.
type Factory struct {
	// Client overrides the HTTP client (tests).
	Client *http.Client

	// Force makes fetchers ignore up-to-date destinations.
	Force bool

	// Metrics is passed to every fetcher. May be nil.
	Metrics *metrics.Metrics
}

// Verify interface compliance.
var _ driven.ArchiveFactory = (*Factory)(nil)

// NewFactory creates an archive factory.
func NewFactory(m *metrics.Metrics) *Factory {
	return &Factory{Metrics: m}
}

// Fetcher implements driven.ArchiveFactory.
func (f *Factory) Fetcher(profile domain.SessionProfile) driven.ArtifactFetcher {
	return NewFetcher(Options{
		Client:      f.Client,
		AccessToken: profile.AccessToken,
		Timeout:     profile.Timeout,
		Force:       f.Force,
		Metrics:     f.Metrics,
	})
}

// Catalog implements driven.ArchiveFactory.
func (f *Factory) Catalog(profile domain.SessionProfile) (driven.VersionCatalog, error) {
	timeout := profile.Timeout
	if timeout <= 0 {
		timeout = CatalogTimeout
	}
	client := newHTTPClient(f.Client, profile.AccessToken, timeout)

	switch profile.Catalog.Kind {
	case domain.CatalogZenodo:
		return NewZenodoCatalog(profile.Catalog.BaseURL, client), nil
	case domain.CatalogGitHub:
		return NewGitHubCatalog(client, profile.Catalog.BaseURL)
	case domain.CatalogHTTP:
		if profile.Catalog.BaseURL == "" {
			return nil, fmt.Errorf("%w: http catalog needs a base url", domain.ErrInvalidInput)
		}
		return NewHTTPCatalog(profile.Catalog.BaseURL, client), nil
	case "":
		return nil, fmt.Errorf("%w: profile %q has no release catalog configured", domain.ErrInvalidInput, profile.Name)
	default:
		return nil, fmt.Errorf("%w: catalog %q", domain.ErrUnsupportedType, profile.Catalog.Kind)
	}
}

// Records implements driven.ArchiveFactory.
func (f *Factory) Records(profile domain.SessionProfile, apiURL string) driven.RecordSource {
	timeout := profile.Timeout
	if timeout <= 0 {
		timeout = CatalogTimeout
	}
	if apiURL == "" && profile.Catalog.Kind == domain.CatalogZenodo {
		apiURL = profile.Catalog.BaseURL
	}
	return NewZenodoCatalog(apiURL, newHTTPClient(f.Client, profile.AccessToken, timeout))
}
