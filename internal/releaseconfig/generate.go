package releaseconfig

import (
	"fmt"
	"io"

	"github.com/opencefadb/opencefadb-cli/internal/core/domain"
	"github.com/opencefadb/opencefadb-cli/internal/rdfio"
)

// IANAMediaTypes is the namespace media types are published under.
const IANAMediaTypes = "https://www.iana.org/assignments/media-types/"

// Generated blank node labels carry this prefix so they do not clash with
// labels of a base graph.
const blankPrefix = "ocfdb"

// BuildDCAT adds datasets to base and returns the graph of a DCAT release
// configuration. The datasets hang off the first catalog of base, or off a
// new catalog when base has none. version is recorded when the catalog
// has no version yet; a conflicting version is an error.
func BuildDCAT(base []domain.Triple, version string, datasets []domain.PublishedDataset) ([]domain.Triple, error) {
	g := newGraph(base)
	out := append([]domain.Triple(nil), base...)
	add := func(s domain.Term, p string, o domain.Term) {
		out = append(out, domain.Triple{Subject: s, Predicate: domain.IRI(p), Object: o})
	}

	var catalog domain.Term
	if catalogs := g.subjectsOfType(rdfio.DCATCatalog); len(catalogs) > 0 {
		catalog = catalogs[0]
	} else {
		catalog = domain.Blank(blankPrefix + "catalog")
		add(catalog, rdfio.RDFType, domain.IRI(rdfio.DCATCatalog))
	}
	existing := g.firstValue(catalog, rdfio.OWLVersionInfo, rdfio.DCATVersion)
	switch {
	case version == "" || version == existing:
	case existing == "":
		add(catalog, rdfio.OWLVersionInfo, domain.Literal(version))
	default:
		return nil, fmt.Errorf("%w: base catalog has version %q, not %q", domain.ErrInvalidInput, existing, version)
	}

	ids := make(map[string]bool)
	for _, s := range g.subjectsOfType(rdfio.DCATDataset) {
		ids[g.firstValue(s, rdfio.DCTIdentifier)] = true
	}

	for i, ds := range datasets {
		if ds.ID == "" {
			return nil, fmt.Errorf("%w: dataset %d has no identifier", domain.ErrInvalidInput, i)
		}
		if ids[ds.ID] {
			return nil, &domain.MalformedConfigError{Descriptor: ds.ID, Reason: "duplicate identifier"}
		}
		ids[ds.ID] = true

		node := domain.Blank(fmt.Sprintf("%sds%d", blankPrefix, i))
		if ds.IRI != "" {
			node = domain.IRI(ds.IRI)
		}
		add(catalog, rdfio.DCATHasDataset, node)
		add(node, rdfio.RDFType, domain.IRI(rdfio.DCATDataset))
		add(node, rdfio.DCTIdentifier, domain.Literal(ds.ID))
		if ds.Title != "" {
			add(node, rdfio.DCTTitle, domain.Literal(ds.Title))
		}

		for j, f := range ds.Files {
			if f.Locator == "" {
				return nil, fmt.Errorf("%w: file %q of dataset %s has no locator", domain.ErrInvalidInput, f.Name, ds.ID)
			}
			dist := domain.Blank(fmt.Sprintf("%sds%dd%d", blankPrefix, i, j))
			add(node, rdfio.DCATDistribution, dist)
			add(dist, rdfio.DCATDownloadURL, domain.IRI(f.Locator))
			if f.Name != "" {
				add(dist, rdfio.DCTTitle, domain.Literal(f.Name))
			}
			if f.MediaType != "" {
				add(dist, rdfio.DCATMediaType, domain.IRI(IANAMediaTypes+f.MediaType))
			}
			if !f.Checksum.IsZero() {
				cs := domain.Blank(fmt.Sprintf("%sds%dd%dcs", blankPrefix, i, j))
				add(dist, rdfio.SPDXChecksum, cs)
				add(cs, rdfio.SPDXAlgorithm, domain.IRI(rdfio.SPDXAlgorithmIRI+f.Checksum.Algorithm))
				add(cs, rdfio.SPDXChecksumValue, domain.Literal(f.Checksum.Value))
			}
		}
	}
	return out, nil
}

// WriteDCAT builds the configuration graph and writes it as Turtle. The
// result is checked to parse as a release configuration before writing.
func WriteDCAT(w io.Writer, base []domain.Triple, version string, datasets []domain.PublishedDataset) (*domain.ReleaseConfiguration, error) {
	triples, err := BuildDCAT(base, version, datasets)
	if err != nil {
		return nil, err
	}
	cfg, err := parseDCAT(triples)
	if err != nil {
		return nil, err
	}
	if err := rdfio.EncodeTurtle(w, triples); err != nil {
		return nil, err
	}
	return cfg, nil
}
