package releaseconfig

import (
	"sort"

	"github.com/opencefadb/opencefadb-cli/internal/core/domain"
	"github.com/opencefadb/opencefadb-cli/internal/logger"
	"github.com/opencefadb/opencefadb-cli/internal/rdfio"
)

// graph indexes triples by subject and predicate.
type graph map[domain.Term]map[string][]domain.Term

func newGraph(triples []domain.Triple) graph {
	g := make(graph)
	for _, t := range triples {
		props, ok := g[t.Subject]
		if !ok {
			props = make(map[string][]domain.Term)
			g[t.Subject] = props
		}
		props[t.Predicate.Value] = append(props[t.Predicate.Value], t.Object)
	}
	return g
}

func (g graph) objects(s domain.Term, p string) []domain.Term {
	return g[s][p]
}

func (g graph) first(s domain.Term, p string) (domain.Term, bool) {
	objs := g[s][p]
	if len(objs) == 0 {
		return domain.Term{}, false
	}
	return objs[0], true
}

func (g graph) firstValue(s domain.Term, ps ...string) string {
	for _, p := range ps {
		if o, ok := g.first(s, p); ok {
			return o.Value
		}
	}
	return ""
}

// subjectsOfType returns subjects typed class, sorted for determinism.
func (g graph) subjectsOfType(class string) []domain.Term {
	var out []domain.Term
	for s, props := range g {
		for _, o := range props[rdfio.RDFType] {
			if o.Kind == domain.TermIRI && o.Value == class {
				out = append(out, s)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// distribution is one metadata distribution of a dataset.
type distribution struct {
	locator   string
	mediaType string
	format    domain.Format
	checksum  domain.Checksum
}

// parseDCAT extracts descriptors from a DCAT catalog graph.
func parseDCAT(triples []domain.Triple) (*domain.ReleaseConfiguration, error) {
	g := newGraph(triples)

	version := ""
	for _, c := range g.subjectsOfType(rdfio.DCATCatalog) {
		if version = g.firstValue(c, rdfio.OWLVersionInfo, rdfio.DCATVersion); version != "" {
			break
		}
	}

	datasets := g.subjectsOfType(rdfio.DCATDataset)
	if len(datasets) == 0 {
		return nil, &domain.MalformedConfigError{Reason: "no dcat:Dataset found"}
	}

	var descriptors []domain.MetadataDocumentDescriptor
	for _, ds := range datasets {
		id := g.firstValue(ds, rdfio.DCTIdentifier)
		if id == "" && ds.Kind == domain.TermIRI {
			id = ds.Value
		}
		if id == "" {
			return nil, &domain.MalformedConfigError{Reason: "dataset " + ds.String() + " has no dct:identifier"}
		}

		var dists []distribution
		for _, distNode := range g.objects(ds, rdfio.DCATDistribution) {
			d, ok, err := parseDistribution(g, id, distNode)
			if err != nil {
				return nil, err
			}
			if ok {
				dists = append(dists, d)
			}
		}
		if len(dists) == 0 {
			logger.Debug("dataset %s has no metadata distribution", id)
			continue
		}
		sort.Slice(dists, func(i, j int) bool { return dists[i].locator < dists[j].locator })

		for _, d := range dists {
			desc := domain.MetadataDocumentDescriptor{
				ID:        id,
				Locator:   d.locator,
				Checksum:  d.checksum,
				Format:    d.format,
				MediaType: d.mediaType,
			}
			if len(dists) > 1 {
				desc.ID = id + "/" + fileName(desc)
			}
			desc.Path = defaultPath(desc)
			descriptors = append(descriptors, desc)
		}
	}

	return validate(version, descriptors)
}

// parseDistribution returns ok=false for distributions that are not
// metadata documents (CAD models, HDF5 files).
func parseDistribution(g graph, datasetID string, node domain.Term) (distribution, bool, error) {
	locator := g.firstValue(node, rdfio.DCATDownloadURL, rdfio.DCATAccessURL)
	if locator == "" {
		return distribution{}, false, &domain.MalformedConfigError{
			Descriptor: datasetID,
			Reason:     "distribution " + node.String() + " has no dcat:downloadURL",
		}
	}

	mediaType := domain.ParseMediaType(g.firstValue(node, rdfio.DCATMediaType, rdfio.DCTFormat))
	format, ok := domain.FormatFromMediaType(mediaType)
	if !ok && mediaType == "" {
		f, err := domain.FormatFromPath(locator)
		format, ok = f, err == nil
	}
	if !ok {
		logger.Debug("skipping distribution %s with media type %q", locator, mediaType)
		return distribution{}, false, nil
	}
	if mediaType == "" {
		mediaType = format.MediaType()
	}

	d := distribution{locator: locator, mediaType: mediaType, format: format}
	if cs, ok := g.first(node, rdfio.SPDXChecksum); ok {
		value := g.firstValue(cs, rdfio.SPDXChecksumValue)
		alg := g.firstValue(cs, rdfio.SPDXAlgorithm)
		if value != "" && alg != "" {
			checksum, err := domain.NewChecksum(alg, value)
			if err != nil {
				return distribution{}, false, &domain.MalformedConfigError{Descriptor: datasetID, Reason: err.Error()}
			}
			d.checksum = checksum
		}
	}
	return d, true, nil
}
