package services

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/opencefadb/opencefadb-cli/internal/core/domain"
	"github.com/opencefadb/opencefadb-cli/internal/core/ports/driven"
	"github.com/opencefadb/opencefadb-cli/internal/logger"
	"github.com/opencefadb/opencefadb-cli/internal/rdfio"
	"github.com/opencefadb/opencefadb-cli/internal/releaseconfig"
)

// DefaultLocalDataset identifies the dataset that lists local files.
const DefaultLocalDataset = "local"

// GenerateRequest describes a release configuration to assemble.
type GenerateRequest struct {
	// Version is recorded on the catalog. Optional.
	Version string

	// Base is an RDF document whose triples are kept, typically a
	// catalog with its title and publisher. Optional.
	Base string

	// Records are archive record identifiers; each becomes one dataset.
	Records []string

	// Files are local paths listed as one dataset with file:// locators.
	Files []string

	// LocalID identifies the local dataset. Empty uses DefaultLocalDataset.
	LocalID string
}

// ConfigGenerator assembles DCAT release configurations from archive
// records and local files.
type ConfigGenerator struct {
	records driven.RecordSource
}

// NewConfigGenerator creates a generator. records may be nil when only
// local files are listed.
func NewConfigGenerator(records driven.RecordSource) *ConfigGenerator {
	return &ConfigGenerator{records: records}
}

// Generate writes the configuration as Turtle to w and returns it parsed.
// Nothing is written when any input fails.
func (g *ConfigGenerator) Generate(ctx context.Context, req GenerateRequest, w io.Writer) (*domain.ReleaseConfiguration, error) {
	if len(req.Records) == 0 && len(req.Files) == 0 {
		return nil, fmt.Errorf("%w: give at least one record or file", domain.ErrInvalidInput)
	}

	var base []domain.Triple
	if req.Base != "" {
		format, err := domain.FormatFromPath(req.Base)
		if err != nil {
			return nil, err
		}
		base, err = rdfio.DecodeFile(ctx, domain.Document{Path: req.Base, Format: format})
		if err != nil {
			return nil, err
		}
	}

	var datasets []domain.PublishedDataset
	for _, id := range req.Records {
		if g.records == nil {
			return nil, fmt.Errorf("%w: no record source configured", domain.ErrInvalidInput)
		}
		ds, err := g.records.Record(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("reading record %s: %w", id, err)
		}
		logger.Info("Record %s: %d files", id, len(ds.Files))
		datasets = append(datasets, *ds)
	}

	if len(req.Files) > 0 {
		local, err := localDataset(ctx, req.LocalID, req.Files)
		if err != nil {
			return nil, err
		}
		datasets = append(datasets, local)
	}

	return releaseconfig.WriteDCAT(w, base, req.Version, datasets)
}

// localDataset lists files with file:// locators and sha256 checksums.
func localDataset(ctx context.Context, id string, paths []string) (domain.PublishedDataset, error) {
	if id == "" {
		id = DefaultLocalDataset
	}
	ds := domain.PublishedDataset{ID: id, Files: make([]domain.PublishedFile, 0, len(paths))}
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return domain.PublishedDataset{}, err
		}
		abs, err := filepath.Abs(p)
		if err != nil {
			return domain.PublishedDataset{}, fmt.Errorf("resolving %s: %w", p, err)
		}
		sum, err := fileChecksum(abs)
		if err != nil {
			return domain.PublishedDataset{}, err
		}
		slash := filepath.ToSlash(abs)
		if !strings.HasPrefix(slash, "/") {
			slash = "/" + slash
		}
		ds.Files = append(ds.Files, domain.PublishedFile{
			Name:      filepath.Base(abs),
			Locator:   (&url.URL{Scheme: "file", Path: slash}).String(),
			MediaType: domain.MediaTypeFromLocator(abs),
			Checksum:  sum,
		})
	}
	return ds, nil
}

func fileChecksum(p string) (domain.Checksum, error) {
	f, err := os.Open(p)
	if err != nil {
		return domain.Checksum{}, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	defer f.Close()

	h, _ := domain.NewHash(domain.AlgorithmSHA256)
	if _, err := io.Copy(h, f); err != nil {
		return domain.Checksum{}, fmt.Errorf("reading %s: %w", p, err)
	}
	return domain.Checksum{Algorithm: domain.AlgorithmSHA256, Value: hex.EncodeToString(h.Sum(nil))}, nil
}
