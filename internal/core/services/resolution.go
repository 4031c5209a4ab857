package services

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/opencefadb/opencefadb-cli/internal/core/domain"
	"github.com/opencefadb/opencefadb-cli/internal/core/ports/driven"
	"github.com/opencefadb/opencefadb-cli/internal/core/ports/driving"
	"github.com/opencefadb/opencefadb-cli/internal/logger"
	"github.com/opencefadb/opencefadb-cli/internal/query"
	"github.com/opencefadb/opencefadb-cli/internal/rdfio"
)

// Ensure ResolutionService implements the interface.
var _ driving.ResolutionService = (*ResolutionService)(nil)

// DefaultConcurrency bounds parallel downloads.
const DefaultConcurrency = 4

// Result variables of the resolution pattern.
const (
	varDist      = "dist"
	varURL       = "url"
	varDataset   = "ds"
	varDatasetID = "dsid"
	varMedia     = "mt"
	varFormat    = "fmt"
	varSumValue  = "csv"
	varSumAlg    = "csa"
	varTitle     = "title"
	varDistID    = "distid"
)

// ResolutionService maps intents to data file references and fetches them.
type ResolutionService struct {
	metadata    *MetadataService
	fetcher     driven.ArtifactFetcher
	workspace   domain.Workspace
	metrics     driven.MetricsRecorder
	concurrency int
}

// NewResolutionService creates a resolution service. metrics may be nil.
func NewResolutionService(
	metadata *MetadataService,
	fetcher driven.ArtifactFetcher,
	workspace domain.Workspace,
	metrics driven.MetricsRecorder,
) *ResolutionService {
	return &ResolutionService{
		metadata:    metadata,
		fetcher:     fetcher,
		workspace:   workspace,
		metrics:     metrics,
		concurrency: DefaultConcurrency,
	}
}

// SetConcurrency changes the download parallelism. Values below 1 are
// ignored.
func (s *ResolutionService) SetConcurrency(n int) {
	if n > 0 {
		s.concurrency = n
	}
}

// distributionPattern matches the downloadable distributions of ds with
// their optional media type, format, checksum, title and identifier.
func distributionPattern(ds query.Node) query.Pattern {
	dist := query.V(varDist)
	return query.Pattern{
		Select: []string{varDist, varURL, varDataset, varMedia, varFormat, varSumValue, varSumAlg, varTitle, varDistID},
		Where: []query.Triple{
			query.T(ds, query.IRI(rdfio.DCATDistribution), dist),
			query.T(dist, query.IRI(rdfio.DCATDownloadURL), query.V(varURL)),
		},
		Optional: [][]query.Triple{
			{query.T(dist, query.IRI(rdfio.DCATMediaType), query.V(varMedia))},
			{query.T(dist, query.IRI(rdfio.DCTFormat), query.V(varFormat))},
			{
				query.T(dist, query.IRI(rdfio.SPDXChecksum), query.V("cs")),
				query.T(query.V("cs"), query.IRI(rdfio.SPDXChecksumValue), query.V(varSumValue)),
				query.T(query.V("cs"), query.IRI(rdfio.SPDXAlgorithm), query.V(varSumAlg)),
			},
			{query.T(dist, query.IRI(rdfio.DCTTitle), query.V(varTitle))},
			{query.T(dist, query.IRI(rdfio.DCTIdentifier), query.V(varDistID))},
		},
		OrderBy: []string{varURL, varDist},
	}
}

// IntentPattern compiles an intent into the triple pattern run against
// the metadata graph. The media type is not part of the pattern; it is
// matched after normalisation.
func IntentPattern(intent domain.Intent) query.Pattern {
	ds := query.V(varDataset)
	p := distributionPattern(ds)

	if intent.Dataset != "" {
		p.Where = append(p.Where, query.T(ds, query.IRI(rdfio.DCTIdentifier), query.Lit(intent.Dataset)))
	} else {
		p.Select = append(p.Select, varDatasetID)
		p.Optional = append(p.Optional, []query.Triple{query.T(ds, query.IRI(rdfio.DCTIdentifier), query.V(varDatasetID))})
	}
	if intent.Fan != "" {
		p.Where = append(p.Where,
			query.T(ds, query.IRI(rdfio.SOSAHasFeatureOfInterest), query.V("fan")),
			query.T(query.V("fan"), query.IRI(rdfio.DCTIdentifier), query.Lit(intent.Fan)))
	}
	if intent.Quantity != "" {
		p.Where = append(p.Where,
			query.T(ds, query.IRI(rdfio.SOSAObservedProperty), query.V("prop")),
			query.T(query.V("prop"), query.IRI(rdfio.SSNOStandardName), query.Lit(intent.Quantity)))
	}
	keys := make([]string, 0, len(intent.Conditions))
	for k := range intent.Conditions {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for i, k := range keys {
		param := query.V(fmt.Sprintf("param%d", i))
		p.Where = append(p.Where,
			query.T(ds, query.IRI(rdfio.M4IHasParameter), param),
			query.T(param, query.IRI(rdfio.SSNOStandardName), query.Lit(k)),
			query.T(param, query.IRI(rdfio.M4IHasNumericalValue), query.Lit(intent.Conditions[k])))
	}
	if intent.Creator != "" {
		p.Where = append(p.Where,
			query.T(ds, query.IRI(rdfio.DCTCreator), query.V("creator")),
			query.T(query.V("creator"), query.IRI(rdfio.FOAFName), query.Lit(intent.Creator)))
	}
	return p
}

// Resolve returns the data file references matching intent.
func (s *ResolutionService) Resolve(ctx context.Context, intent domain.Intent) ([]domain.DataFileReference, error) {
	text, err := query.Compile(IntentPattern(intent), s.metadata.Language())
	if err != nil {
		return nil, fmt.Errorf("compile intent %q: %w", intent, err)
	}
	logger.Debug("resolving %q with:\n%s", intent, text)

	rows, err := s.metadata.Query(ctx, text, s.metadata.Language())
	if err != nil {
		return nil, err
	}

	refs := mergeRows(rows, intent)
	if s.metrics != nil {
		s.metrics.ObserveResolve(len(refs))
	}
	logger.Debug("intent %q matched %d of %d rows", intent, len(refs), len(rows))
	return refs, nil
}

// mergeRows folds solutions into one reference per distribution. Where a
// distribution has several values for a field the smallest is kept, so
// the result does not depend on row order.
func mergeRows(rows []domain.Row, intent domain.Intent) []domain.DataFileReference {
	type acc struct {
		key    string
		fields map[string]string
	}
	byDist := make(map[string]*acc)
	var order []*acc

	for _, row := range rows {
		key := row[varDist].String()
		a, ok := byDist[key]
		if !ok {
			a = &acc{key: key, fields: make(map[string]string)}
			byDist[key] = a
			order = append(order, a)
		}
		for name, term := range row {
			if term.IsZero() || term.Value == "" {
				continue
			}
			if cur, ok := a.fields[name]; !ok || term.Value < cur {
				a.fields[name] = term.Value
			}
		}
		// Distribution node kind decides whether it can serve as identifier.
		if row[varDist].Kind == domain.TermIRI {
			a.fields["dist_iri"] = row[varDist].Value
		}
	}

	refs := make([]domain.DataFileReference, 0, len(order))
	for _, a := range order {
		f := a.fields
		ref := domain.DataFileReference{
			Dataset: f[varDatasetID],
			Locator: f[varURL],
			Title:   f[varTitle],
		}
		if intent.Dataset != "" {
			ref.Dataset = intent.Dataset
		}

		ref.ID = f[varDistID]
		if ref.ID == "" {
			ref.ID = f["dist_iri"]
		}
		if ref.ID == "" {
			ref.ID = ref.Locator
		}

		ref.MediaType = domain.ParseMediaType(f[varMedia])
		if ref.MediaType == "" {
			ref.MediaType = domain.ParseMediaType(f[varFormat])
		}
		if ref.MediaType == "" {
			ref.MediaType = domain.MediaTypeFromLocator(ref.Locator)
		}
		if intent.MediaType != "" && ref.MediaType != intent.MediaType {
			continue
		}

		if f[varSumValue] != "" {
			sum, err := domain.NewChecksum(f[varSumAlg], f[varSumValue])
			if err != nil {
				logger.Warn("Ignoring checksum of %s: %v", ref.Locator, err)
			} else {
				ref.Checksum = sum
			}
		}
		refs = append(refs, ref)
	}

	sort.SliceStable(refs, func(i, j int) bool {
		if refs[i].ID != refs[j].ID {
			return refs[i].ID < refs[j].ID
		}
		return refs[i].Locator < refs[j].Locator
	})
	return refs
}

// Materialize fetches references into the workspace cache. References
// that share a cache path are downloaded once.
func (s *ResolutionService) Materialize(ctx context.Context, refs []domain.DataFileReference) ([]domain.LocalDataFile, error) {
	paths := make([]string, len(refs))
	errs := make([]error, len(refs))
	dests := make([]string, len(refs))
	first := make(map[string]int)

	g := new(errgroup.Group)
	g.SetLimit(s.concurrency)

	for i, ref := range refs {
		if ref.Locator == "" {
			errs[i] = fmt.Errorf("%w: reference %q has no locator", domain.ErrInvalidInput, ref.ID)
			continue
		}
		dest, err := s.workspace.CachePath(ref)
		if err != nil {
			errs[i] = err
			continue
		}
		dests[i] = dest
		if _, dup := first[dest]; dup {
			continue
		}
		first[dest] = i

		g.Go(func() error {
			if ctx.Err() != nil {
				errs[i] = ctx.Err()
				return nil
			}
			logger.Debug("fetching %s -> %s", ref.Locator, dest)
			paths[i], errs[i] = s.fetcher.Fetch(ctx, ref.Locator, ref.Checksum, dest)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var files []domain.LocalDataFile
	var failures []domain.ItemError
	for i, ref := range refs {
		p, err := paths[i], errs[i]
		if dests[i] != "" {
			j := first[dests[i]]
			p, err = paths[j], errs[j]
		}
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			id := ref.Locator
			if id == "" {
				id = ref.ID
			}
			failures = append(failures, domain.ItemError{ID: id, Err: err})
			continue
		}
		files = append(files, domain.LocalDataFile{Reference: ref, Path: p})
	}

	if len(failures) > 0 {
		logger.Warn("%d of %d files could not be fetched", len(failures), len(refs))
	}
	return files, domain.NewBatchError("materialize", len(refs), failures)
}
