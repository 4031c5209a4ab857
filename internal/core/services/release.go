package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/opencefadb/opencefadb-cli/internal/core/domain"
	"github.com/opencefadb/opencefadb-cli/internal/core/ports/driven"
	"github.com/opencefadb/opencefadb-cli/internal/core/ports/driving"
	"github.com/opencefadb/opencefadb-cli/internal/logger"
	"github.com/opencefadb/opencefadb-cli/internal/rdfio"
	"github.com/opencefadb/opencefadb-cli/internal/releaseconfig"
)

// Ensure ReleaseService implements the interface.
var _ driving.ReleaseService = (*ReleaseService)(nil)

// ReleaseService initialises a workspace from a release configuration.
type ReleaseService struct {
	profile     domain.SessionProfile
	workspace   domain.Workspace
	metadata    *MetadataService
	archives    driven.ArchiveFactory
	concurrency int
}

// NewReleaseService creates a release service for a session.
func NewReleaseService(
	profile domain.SessionProfile,
	workspace domain.Workspace,
	metadata *MetadataService,
	archives driven.ArchiveFactory,
) *ReleaseService {
	return &ReleaseService{
		profile:     profile,
		workspace:   workspace,
		metadata:    metadata,
		archives:    archives,
		concurrency: DefaultConcurrency,
	}
}

func (s *ReleaseService) catalogID() string {
	if s.profile.Catalog.ID != "" {
		return s.profile.Catalog.ID
	}
	return domain.DefaultCatalogID
}

// Versions lists the releases of the profile's catalog, newest first.
func (s *ReleaseService) Versions(ctx context.Context) ([]domain.ReleaseVersion, error) {
	catalog, err := s.archives.Catalog(s.profile)
	if err != nil {
		return nil, err
	}
	return catalog.ListVersions(ctx, s.catalogID())
}

// StoredConfigurations returns the RDF release configurations kept in the
// workspace. Init loads them into the graph along with the documents.
func (s *ReleaseService) StoredConfigurations() ([]domain.Document, error) {
	docs, err := rdfio.Discover(s.workspace.ConfigDir(), nil)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	return docs, err
}

// Init acquires a configuration, downloads its documents and loads them.
func (s *ReleaseService) Init(ctx context.Context, opts driving.InitOptions) (*driving.InitResult, error) {
	fetcher := s.archives.Fetcher(s.profile)

	logger.Section("Configuration")
	cfg, cfgPath, cfgFormat, err := s.acquire(ctx, fetcher, opts)
	if err != nil {
		return nil, err
	}
	logger.Info("Release %s: %d metadata documents", cfg.Version, cfg.Len())

	result := &driving.InitResult{
		Version:    cfg.Version,
		ConfigPath: cfgPath,
		Documents:  cfg.Len(),
	}

	if opts.Clear {
		if err := s.metadata.Clear(ctx); err != nil {
			return nil, err
		}
	}

	logger.Section("Download")
	docs, failures, err := s.download(ctx, fetcher, cfg, opts.Force)
	if err != nil {
		return nil, err
	}
	result.Fetched = len(docs)

	// The configuration is part of the graph when it is itself RDF.
	if f, err := domain.ParseFormat(cfgFormat); err == nil {
		docs = append([]domain.Document{{Path: cfgPath, Format: f}}, docs...)
	}

	logger.Section("Load")
	n, err := s.metadata.Load(ctx, docs)
	result.Triples = n
	var batch *domain.BatchError
	switch {
	case errors.As(err, &batch):
		failures = append(failures, batch.Failures...)
	case err != nil:
		return result, err
	}
	logger.Info("Loaded %d statements from %d documents", n, len(docs)-countFailures(batch))

	return result, domain.NewBatchError("init", cfg.Len(), failures)
}

func countFailures(b *domain.BatchError) int {
	if b == nil {
		return 0
	}
	return len(b.Failures)
}

// acquire returns the parsed configuration, where it is stored in the
// workspace, and its syntax.
func (s *ReleaseService) acquire(
	ctx context.Context,
	fetcher driven.ArtifactFetcher,
	opts driving.InitOptions,
) (*domain.ReleaseConfiguration, string, string, error) {
	if opts.ConfigPath != "" {
		return s.acquireLocal(opts)
	}

	versions, err := s.Versions(ctx)
	if err != nil {
		return nil, "", "", err
	}
	var release domain.ReleaseVersion
	if opts.Version != "" {
		release, err = domain.FindVersion(versions, opts.Version)
	} else {
		release, err = domain.Latest(versions)
	}
	if err != nil {
		return nil, "", "", err
	}

	format := opts.Format
	if format == "" {
		if format, err = releaseconfig.DetectFormat(release.Locator); err != nil {
			format = domain.FormatTurtle.String()
			logger.Debug("configuration %s has no known suffix, assuming %s", release.Locator, format)
		}
	}

	dest := s.workspace.ConfigPath(release.Version, releaseconfig.Suffix(format))
	if opts.Force {
		_ = os.Remove(dest)
	}
	logger.Info("Fetching release %s configuration", release.Version)
	if _, err := fetcher.Fetch(ctx, release.Locator, release.Checksum, dest); err != nil {
		return nil, "", "", fmt.Errorf("fetch release %s configuration: %w", release.Version, err)
	}

	cfg, err := releaseconfig.ParseFile(dest, format)
	if err != nil {
		return nil, "", "", err
	}
	if cfg.Version == "" {
		cfg.Version = release.Version
	} else if cfg.Version != release.Version {
		logger.Warn("Release %s declares version %s", release.Version, cfg.Version)
	}
	return cfg, dest, format, nil
}

func (s *ReleaseService) acquireLocal(opts driving.InitOptions) (*domain.ReleaseConfiguration, string, string, error) {
	format := opts.Format
	if format == "" {
		var err error
		if format, err = releaseconfig.DetectFormat(opts.ConfigPath); err != nil {
			return nil, "", "", err
		}
	}
	data, err := os.ReadFile(opts.ConfigPath)
	if err != nil {
		return nil, "", "", fmt.Errorf("read configuration: %w", err)
	}
	cfg, err := releaseconfig.Parse(data, format)
	if err != nil {
		return nil, "", "", err
	}

	dest := s.workspace.ConfigPath(cfg.Version, releaseconfig.Suffix(format))
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return nil, "", "", err
	}
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return nil, "", "", fmt.Errorf("store configuration: %w", err)
	}
	return cfg, dest, format, nil
}

// download fetches every descriptor in parallel. Fetch failures are
// collected per descriptor; only cancellation aborts.
func (s *ReleaseService) download(
	ctx context.Context,
	fetcher driven.ArtifactFetcher,
	cfg *domain.ReleaseConfiguration,
	force bool,
) ([]domain.Document, []domain.ItemError, error) {
	descriptors := cfg.Descriptors()
	paths := releaseconfig.ResolvePaths(cfg, s.workspace.Root)

	var mu sync.Mutex
	var failures []domain.ItemError
	fetched := make([]bool, len(descriptors))

	g := new(errgroup.Group)
	g.SetLimit(s.concurrency)
	for i, d := range descriptors {
		g.Go(func() error {
			dest := paths[d.ID]
			if force {
				_ = os.Remove(dest)
			}
			if _, err := fetcher.Fetch(ctx, d.Locator, d.Checksum, dest); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				logger.Warn("Could not fetch %s: %v", d.ID, err)
				mu.Lock()
				failures = append(failures, domain.ItemError{ID: d.ID, Err: err})
				mu.Unlock()
				return nil
			}
			logger.Debug("fetched %s", d.ID)
			fetched[i] = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	docs := make([]domain.Document, 0, len(descriptors))
	for i, d := range descriptors {
		if fetched[i] {
			docs = append(docs, domain.Document{Path: paths[d.ID], Format: d.Format})
		}
	}
	// Stable report order regardless of completion order.
	index := make(map[string]int, len(descriptors))
	for i, d := range descriptors {
		index[d.ID] = i
	}
	sort.Slice(failures, func(a, b int) bool {
		return index[failures[a].ID] < index[failures[b].ID]
	})
	return docs, failures, nil
}
