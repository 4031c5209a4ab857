package archive

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	gh "github.com/google/go-github/v80/github"

	"github.com/opencefadb/opencefadb-cli/internal/core/domain"
	"github.com/opencefadb/opencefadb-cli/internal/core/ports/driven"
	"github.com/opencefadb/opencefadb-cli/internal/releaseconfig"
)

// GitHubCatalog lists the releases of a GitHub repository whose assets
// carry the release configuration. catalogID is "owner/repo".
type GitHubCatalog struct {
	gh      *gh.Client
	pattern string
	limiter *RateLimiter
}

// Verify interface compliance.
var _ driven.VersionCatalog = (*GitHubCatalog)(nil)

// NewGitHubCatalog creates a GitHub catalog. client should already carry
// authentication; baseURL overrides the public API (GitHub Enterprise or
// tests).
func NewGitHubCatalog(client *http.Client, baseURL string) (*GitHubCatalog, error) {
	c := gh.NewClient(client)
	if baseURL != "" {
		u, err := url.Parse(strings.TrimRight(baseURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("%w: github base url: %v", domain.ErrInvalidInput, err)
		}
		c.BaseURL = u
	}
	return &GitHubCatalog{
		gh:      c,
		pattern: DefaultConfigPattern,
		// Unauthenticated GitHub clients get 60 requests per hour.
		limiter: NewRateLimiter(1, 1),
	}, nil
}

// Kind implements driven.VersionCatalog.
func (c *GitHubCatalog) Kind() domain.CatalogKind {
	return domain.CatalogGitHub
}

// ListVersions implements driven.VersionCatalog.
func (c *GitHubCatalog) ListVersions(ctx context.Context, catalogID string) ([]domain.ReleaseVersion, error) {
	owner, repo, ok := strings.Cut(catalogID, "/")
	if !ok || owner == "" || repo == "" {
		return nil, fmt.Errorf("%w: github catalog id must be owner/repo, got %q", domain.ErrInvalidInput, catalogID)
	}

	var versions []domain.ReleaseVersion
	opts := &gh.ListOptions{PerPage: 100}
	for {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		releases, resp, err := c.gh.Repositories.ListReleases(ctx, owner, repo, opts)
		if resp != nil {
			c.limiter.UpdateFromResponse(resp.Response)
		}
		if err != nil {
			return nil, githubError(ctx, catalogID, err)
		}

		for _, rel := range releases {
			if rel.GetDraft() {
				continue
			}
			if v, ok := c.releaseOf(rel); ok {
				versions = append(versions, v)
			}
		}

		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	SortVersions(versions)
	return versions, nil
}

func (c *GitHubCatalog) releaseOf(rel *gh.RepositoryRelease) (domain.ReleaseVersion, bool) {
	var chosen *gh.ReleaseAsset
	for _, a := range rel.Assets {
		if ok, _ := doublestar.Match(c.pattern, strings.ToLower(a.GetName())); ok {
			chosen = a
			break
		}
	}
	if chosen == nil {
		for _, a := range rel.Assets {
			if _, err := releaseconfig.DetectFormat(a.GetName()); err == nil {
				chosen = a
				break
			}
		}
	}
	if chosen == nil {
		return domain.ReleaseVersion{}, false
	}
	return domain.ReleaseVersion{
		Version:   rel.GetTagName(),
		Locator:   chosen.GetBrowserDownloadURL(),
		Published: rel.GetPublishedAt().Time,
	}, true
}

func githubError(ctx context.Context, catalogID string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	var rateErr *gh.RateLimitError
	if errors.As(err, &rateErr) {
		return &domain.NetworkError{Locator: catalogID, StatusCode: http.StatusForbidden, Temporary: true, Err: err}
	}
	var respErr *gh.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil {
		code := respErr.Response.StatusCode
		if code == http.StatusNotFound {
			return &domain.NotFoundError{Locator: "github.com/" + catalogID, StatusCode: code}
		}
		return &domain.NetworkError{Locator: catalogID, StatusCode: code, Temporary: code >= 500, Err: err}
	}
	return &domain.NetworkError{Locator: catalogID, Temporary: true, Err: err}
}
