package archive

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/opencefadb/opencefadb-cli/internal/core/domain"
	"github.com/opencefadb/opencefadb-cli/internal/core/ports/driven"
	"github.com/opencefadb/opencefadb-cli/internal/logger"
	"github.com/opencefadb/opencefadb-cli/internal/releaseconfig"
)

const (
	// ZenodoAPI is the public Zenodo REST API.
	ZenodoAPI = "https://zenodo.org/api"

	// DefaultConfigPattern selects the release configuration among the
	// files of a record.
	DefaultConfigPattern = "*{config,catalog,release}*.{ttl,jsonld,yaml,yml}"
)

// ZenodoCatalog lists the versions of a Zenodo record. Each version is a
// record holding the release configuration as one of its files.
type ZenodoCatalog struct {
	apiURL  string
	pattern string
	client  *http.Client
	limiter *RateLimiter
}

// Verify interface compliance.
var (
	_ driven.VersionCatalog = (*ZenodoCatalog)(nil)
	_ driven.RecordSource   = (*ZenodoCatalog)(nil)
)

// NewZenodoCatalog creates a Zenodo catalog. An empty apiURL uses ZenodoAPI.
func NewZenodoCatalog(apiURL string, client *http.Client) *ZenodoCatalog {
	if apiURL == "" {
		apiURL = ZenodoAPI
	}
	if client == nil {
		client = &http.Client{Timeout: CatalogTimeout}
	}
	return &ZenodoCatalog{
		apiURL:  strings.TrimRight(apiURL, "/"),
		pattern: DefaultConfigPattern,
		client:  client,
		// Zenodo allows 60 requests per minute for guests.
		limiter: NewRateLimiter(1, DefaultBurst),
	}
}

// Kind implements driven.VersionCatalog.
func (c *ZenodoCatalog) Kind() domain.CatalogKind {
	return domain.CatalogZenodo
}

type zenodoVersions struct {
	Hits struct {
		Hits []zenodoRecord `json:"hits"`
	} `json:"hits"`
}

type zenodoRecord struct {
	ID       int    `json:"id"`
	Created  string `json:"created"`
	Metadata struct {
		Title           string `json:"title"`
		Version         string `json:"version"`
		PublicationDate string `json:"publication_date"`
	} `json:"metadata"`
	Links struct {
		HTML string `json:"html"`
	} `json:"links"`
	Files []struct {
		Key      string `json:"key"`
		Checksum string `json:"checksum"`
		Links    struct {
			Self string `json:"self"`
		} `json:"links"`
	} `json:"files"`
}

// ListVersions implements driven.VersionCatalog. catalogID is the record
// (or concept record) id.
func (c *ZenodoCatalog) ListVersions(ctx context.Context, catalogID string) ([]domain.ReleaseVersion, error) {
	if catalogID == "" {
		return nil, fmt.Errorf("%w: zenodo record id is required", domain.ErrInvalidInput)
	}
	endpoint := fmt.Sprintf("%s/records/%s/versions?size=100&sort=version", c.apiURL, url.PathEscape(catalogID))

	var page zenodoVersions
	if err := getJSON(ctx, c.client, c.limiter, endpoint, &page); err != nil {
		return nil, err
	}

	versions := make([]domain.ReleaseVersion, 0, len(page.Hits.Hits))
	for _, rec := range page.Hits.Hits {
		v, ok, err := c.releaseOf(rec)
		if err != nil {
			return nil, decodeError(endpoint, err)
		}
		if ok {
			versions = append(versions, v)
		}
	}
	SortVersions(versions)
	return versions, nil
}

// releaseOf picks the configuration file of a record version.
func (c *ZenodoCatalog) releaseOf(rec zenodoRecord) (domain.ReleaseVersion, bool, error) {
	index := -1
	for i, f := range rec.Files {
		if ok, _ := doublestar.Match(c.pattern, strings.ToLower(f.Key)); ok {
			index = i
			break
		}
	}
	if index < 0 {
		for i, f := range rec.Files {
			if _, err := releaseconfig.DetectFormat(f.Key); err == nil {
				index = i
				break
			}
		}
	}
	if index < 0 {
		logger.Debug("zenodo record %d has no release configuration file", rec.ID)
		return domain.ReleaseVersion{}, false, nil
	}
	file := rec.Files[index]

	checksum, err := domain.ParseChecksum(file.Checksum)
	if err != nil {
		return domain.ReleaseVersion{}, false, err
	}
	version := rec.Metadata.Version
	if version == "" {
		version = fmt.Sprintf("%d", rec.ID)
	}
	published, _ := time.Parse("2006-01-02", rec.Metadata.PublicationDate)
	if published.IsZero() {
		published, _ = time.Parse(time.RFC3339, rec.Created)
	}

	return domain.ReleaseVersion{
		Version:   version,
		Locator:   c.fileLocator(rec, index),
		Checksum:  checksum,
		Published: published,
	}, true, nil
}

func (c *ZenodoCatalog) fileLocator(rec zenodoRecord, i int) string {
	if self := rec.Files[i].Links.Self; self != "" {
		return self
	}
	return fmt.Sprintf("%s/records/%d/files/%s/content", c.apiURL, rec.ID, url.PathEscape(rec.Files[i].Key))
}

// Record implements driven.RecordSource. Every file of the record becomes
// one published file; media types are inferred from the file names.
func (c *ZenodoCatalog) Record(ctx context.Context, recordID string) (*domain.PublishedDataset, error) {
	if recordID == "" {
		return nil, fmt.Errorf("%w: zenodo record id is required", domain.ErrInvalidInput)
	}
	endpoint := fmt.Sprintf("%s/records/%s", c.apiURL, url.PathEscape(recordID))

	var rec zenodoRecord
	if err := getJSON(ctx, c.client, c.limiter, endpoint, &rec); err != nil {
		return nil, err
	}
	if len(rec.Files) == 0 {
		return nil, fmt.Errorf("%w: zenodo record %s has no files", domain.ErrNotFound, recordID)
	}

	ds := &domain.PublishedDataset{
		ID:    fmt.Sprintf("zenodo-%d", rec.ID),
		IRI:   rec.Links.HTML,
		Title: rec.Metadata.Title,
		Files: make([]domain.PublishedFile, len(rec.Files)),
	}
	if rec.ID == 0 {
		ds.ID = "zenodo-" + recordID
	}
	for i, f := range rec.Files {
		checksum, err := domain.ParseChecksum(f.Checksum)
		if err != nil {
			return nil, decodeError(endpoint, err)
		}
		ds.Files[i] = domain.PublishedFile{
			Name:      f.Key,
			Locator:   c.fileLocator(rec, i),
			MediaType: domain.MediaTypeFromLocator(f.Key),
			Checksum:  checksum,
		}
	}
	logger.Debug("zenodo record %s lists %d files", recordID, len(ds.Files))
	return ds, nil
}
