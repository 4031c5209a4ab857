package query

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/opencefadb/opencefadb-cli/internal/core/domain"
)

// sparqlResults is the application/sparql-results+json document.
type sparqlResults struct {
	Head struct {
		Vars []string `json:"vars"`
	} `json:"head"`
	Results struct {
		Bindings []map[string]sparqlBinding `json:"bindings"`
	} `json:"results"`
}

type sparqlBinding struct {
	Type     string `json:"type"`
	Value    string `json:"value"`
	Lang     string `json:"xml:lang"`
	Datatype string `json:"datatype"`
}

func (b sparqlBinding) term() (domain.Term, error) {
	switch b.Type {
	case "uri":
		return domain.IRI(b.Value), nil
	case "bnode":
		return domain.Blank(b.Value), nil
	case "literal", "typed-literal":
		t := domain.Term{Kind: domain.TermLiteral, Value: b.Value, Lang: b.Lang}
		if b.Lang == "" && b.Datatype != domain.XSDString {
			t.Datatype = b.Datatype
		}
		return t, nil
	default:
		return domain.Term{}, fmt.Errorf("unknown binding type %q", b.Type)
	}
}

// ParseSPARQLJSON decodes an application/sparql-results+json document.
// Unbound variables are absent from their row.
func ParseSPARQLJSON(r io.Reader) ([]domain.Row, error) {
	var res sparqlResults
	if err := json.NewDecoder(r).Decode(&res); err != nil {
		return nil, fmt.Errorf("decode sparql results: %w", err)
	}
	rows := make([]domain.Row, 0, len(res.Results.Bindings))
	for _, binding := range res.Results.Bindings {
		row := make(domain.Row, len(binding))
		for name, b := range binding {
			term, err := b.term()
			if err != nil {
				return nil, fmt.Errorf("decode sparql results: variable %s: %w", name, err)
			}
			row[name] = term
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// FoldColumns turns one SQL result row into a solution. Columns carrying
// the kind, datatype and language suffixes are folded into the term of
// their variable. NULL values leave the variable unbound. Columns without
// a kind column are returned as plain literals.
func FoldColumns(names []string, values []*string) domain.Row {
	index := make(map[string]int, len(names))
	for i, n := range names {
		index[n] = i
	}
	get := func(name string) string {
		if i, ok := index[name]; ok && values[i] != nil {
			return *values[i]
		}
		return ""
	}

	row := make(domain.Row)
	for i, name := range names {
		if strings.Contains(name, "__") || values[i] == nil {
			continue
		}
		term := domain.Term{Kind: domain.TermLiteral, Value: *values[i]}
		if kind := get(name + SuffixKind); kind != "" {
			term.Kind = domain.TermKind(kind)
		}
		if term.Kind == domain.TermLiteral {
			term.Datatype = get(name + SuffixDatatype)
			term.Lang = get(name + SuffixLang)
		}
		row[name] = term
	}
	return row
}
