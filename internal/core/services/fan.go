package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/opencefadb/opencefadb-cli/internal/core/domain"
	"github.com/opencefadb/opencefadb-cli/internal/logger"
	"github.com/opencefadb/opencefadb-cli/internal/query"
	"github.com/opencefadb/opencefadb-cli/internal/rdfio"
)

const (
	varParam    = "param"
	varProperty = "property"
	varValue    = "value"
)

// standardNamesPath separates a standard name from its table IRI.
const standardNamesPath = "/standard_names/"

// fanNode returns the node that stands for fan in a pattern together with
// the triples that bind it. A fan given as an IRI is used directly; any
// other value is matched against dct:identifier.
func fanNode(fan string) (query.Node, []query.Triple) {
	if strings.Contains(fan, "://") {
		return query.IRI(fan), nil
	}
	n := query.V("fan")
	return n, []query.Triple{query.T(n, query.IRI(rdfio.DCTIdentifier), query.Lit(fan))}
}

// FanPropertiesPattern selects every property of every parameter attached
// to fan.
func FanPropertiesPattern(fan string) query.Pattern {
	node, where := fanNode(fan)
	param := query.V(varParam)
	return query.Pattern{
		Select: []string{varParam, varProperty, varValue},
		Where: append(where,
			query.T(node, query.IRI(rdfio.M4IHasParameter), param),
			query.T(param, query.V(varProperty), query.V(varValue))),
		OrderBy: []string{varParam, varProperty, varValue},
	}
}

// CADPattern selects the distributions of the parts of fan, which is
// where the geometry files are published.
func CADPattern(fan string) query.Pattern {
	node, where := fanNode(fan)
	ds := query.V(varDataset)
	p := distributionPattern(ds)
	p.Where = append(append(where, query.T(node, query.IRI(rdfio.DCTHasPart), ds)), p.Where...)
	p.Select = append(p.Select, varDatasetID)
	p.Optional = append(p.Optional, []query.Triple{query.T(ds, query.IRI(rdfio.DCTIdentifier), query.V(varDatasetID))})
	return p
}

// FanProperties returns the parameters describing fan, ordered by
// standard name and then IRI.
func (s *ResolutionService) FanProperties(ctx context.Context, fan string) ([]domain.FanParameter, error) {
	if fan == "" {
		return nil, fmt.Errorf("%w: fan is required", domain.ErrInvalidInput)
	}
	text, err := query.Compile(FanPropertiesPattern(fan), s.metadata.Language())
	if err != nil {
		return nil, fmt.Errorf("compile fan properties: %w", err)
	}
	rows, err := s.metadata.Query(ctx, text, s.metadata.Language())
	if err != nil {
		return nil, err
	}
	params := groupParameters(rows)
	logger.Debug("fan %s has %d parameters", fan, len(params))
	return params, nil
}

// groupParameters folds (parameter, property, value) rows into one entry
// per parameter. Type statements are dropped.
func groupParameters(rows []domain.Row) []domain.FanParameter {
	byIRI := make(map[string]*domain.FanParameter)
	for _, row := range rows {
		key := row[varParam].Value
		p, ok := byIRI[key]
		if !ok {
			p = &domain.FanParameter{IRI: key, Extra: make(map[string]string)}
			byIRI[key] = p
		}
		value := row[varValue].Value
		switch row[varProperty].Value {
		case rdfio.RDFType:
		case rdfio.M4IHasNumericalValue, rdfio.M4IHasStringValue:
			p.Value = value
		case rdfio.SSNOStandardName, rdfio.SSNOHasStandardName:
			if i := strings.LastIndex(value, standardNamesPath); i >= 0 {
				value = value[i+len(standardNamesPath):]
			}
			p.Name = value
		case rdfio.M4IHasUnit:
			p.Unit = value
		default:
			// Keep the first value in row order, which is sorted.
			if _, seen := p.Extra[row[varProperty].Value]; !seen {
				p.Extra[row[varProperty].Value] = value
			}
		}
	}

	params := make([]domain.FanParameter, 0, len(byIRI))
	for _, p := range byIRI {
		params = append(params, *p)
	}
	sort.Slice(params, func(i, j int) bool {
		if params[i].Name != params[j].Name {
			return params[i].Name < params[j].Name
		}
		return params[i].IRI < params[j].IRI
	})
	return params
}

// CADFiles returns the references of the geometry files published as
// parts of fan.
func (s *ResolutionService) CADFiles(ctx context.Context, fan string) ([]domain.DataFileReference, error) {
	if fan == "" {
		return nil, fmt.Errorf("%w: fan is required", domain.ErrInvalidInput)
	}
	text, err := query.Compile(CADPattern(fan), s.metadata.Language())
	if err != nil {
		return nil, fmt.Errorf("compile CAD query: %w", err)
	}
	rows, err := s.metadata.Query(ctx, text, s.metadata.Language())
	if err != nil {
		return nil, err
	}
	return mergeRows(rows, domain.Intent{}), nil
}
