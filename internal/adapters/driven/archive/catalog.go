package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/mod/semver"

	"github.com/opencefadb/opencefadb-cli/internal/core/domain"
	"github.com/opencefadb/opencefadb-cli/internal/core/ports/driven"
	"github.com/opencefadb/opencefadb-cli/internal/logger"
)

// CatalogTimeout bounds catalog API calls.
const CatalogTimeout = 30 * time.Second

// SortVersions orders releases newest first. Semantic versions ("2.0",
// "v1.3.1") compare by precedence and sort before anything else; the rest
// fall back to publication time, then to the version string.
func SortVersions(versions []domain.ReleaseVersion) {
	sort.SliceStable(versions, func(i, j int) bool {
		a, b := versions[i], versions[j]
		sa, sb := canonical(a.Version), canonical(b.Version)
		switch {
		case sa != "" && sb != "":
			if c := semver.Compare(sa, sb); c != 0 {
				return c > 0
			}
		case sa != "":
			return true
		case sb != "":
			return false
		}
		if !a.Published.Equal(b.Published) {
			return a.Published.After(b.Published)
		}
		return a.Version > b.Version
	})
}

// canonical returns the semver form of a release tag or "".
func canonical(v string) string {
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return ""
	}
	return v
}

// HTTPCatalog reads a JSON version index:
//
//	GET {base}/catalogs/{id}/versions
//	{"versions": [{"version": "1.3", "locator": "...", "checksum": "md5:...", "published": "2024-05-01T00:00:00Z"}]}
type HTTPCatalog struct {
	baseURL string
	client  *http.Client
	limiter *RateLimiter
}

// Verify interface compliance.
var _ driven.VersionCatalog = (*HTTPCatalog)(nil)

// NewHTTPCatalog creates a catalog client for baseURL.
func NewHTTPCatalog(baseURL string, client *http.Client) *HTTPCatalog {
	if client == nil {
		client = &http.Client{Timeout: CatalogTimeout}
	}
	return &HTTPCatalog{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		limiter: NewRateLimiter(DefaultRate, DefaultBurst),
	}
}

// Kind implements driven.VersionCatalog.
func (c *HTTPCatalog) Kind() domain.CatalogKind {
	return domain.CatalogHTTP
}

type versionIndex struct {
	Versions []struct {
		Version   string    `json:"version"`
		Locator   string    `json:"locator"`
		Checksum  string    `json:"checksum"`
		Published time.Time `json:"published"`
	} `json:"versions"`
}

// ListVersions implements driven.VersionCatalog.
func (c *HTTPCatalog) ListVersions(ctx context.Context, catalogID string) ([]domain.ReleaseVersion, error) {
	if catalogID == "" {
		return nil, fmt.Errorf("%w: catalog id is required", domain.ErrInvalidInput)
	}
	endpoint := c.baseURL + "/catalogs/" + url.PathEscape(catalogID) + "/versions"

	var index versionIndex
	if err := getJSON(ctx, c.client, c.limiter, endpoint, &index); err != nil {
		return nil, err
	}

	versions := make([]domain.ReleaseVersion, 0, len(index.Versions))
	for _, v := range index.Versions {
		if v.Version == "" || v.Locator == "" {
			continue
		}
		checksum, err := domain.ParseChecksum(v.Checksum)
		if err != nil {
			return nil, decodeError(endpoint, err)
		}
		versions = append(versions, domain.ReleaseVersion{
			Version:   v.Version,
			Locator:   resolveReference(endpoint, v.Locator),
			Checksum:  checksum,
			Published: v.Published,
		})
	}
	SortVersions(versions)
	return versions, nil
}

// Retry settings of catalog requests.
var (
	catalogRetries    = DefaultMaxRetries
	catalogRetryDelay = RetryDelay
)

// getJSON performs a throttled GET and decodes the JSON body into out.
// Transient failures are retried like downloads.
func getJSON(ctx context.Context, client *http.Client, limiter *RateLimiter, endpoint string, out any) error {
	attempt := 0
	op := func() error {
		attempt++
		err := getJSONOnce(ctx, client, limiter, endpoint, out)
		if err == nil {
			return nil
		}
		if ctx.Err() == nil && domain.IsTransient(err) {
			logger.Debug("catalog %s: attempt %d failed: %v", endpoint, attempt, err)
			return err
		}
		return backoff.Permanent(err)
	}
	return backoff.Retry(op, retryPolicy(ctx, catalogRetries, catalogRetryDelay))
}

func getJSONOnce(ctx context.Context, client *http.Client, limiter *RateLimiter, endpoint string, out any) error {
	if err := limiter.Wait(ctx); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return &domain.NetworkError{Locator: endpoint, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", UserAgent)

	resp, err := client.Do(req)
	if err != nil {
		return transportError(ctx, endpoint, err)
	}
	defer resp.Body.Close()
	limiter.UpdateFromResponse(resp)

	if resp.StatusCode != http.StatusOK {
		return statusError(endpoint, resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return decodeError(endpoint, err)
	}
	return nil
}

// resolveReference makes relative locators absolute against the index URL.
func resolveReference(base, ref string) string {
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return b.ResolveReference(r).String()
}
