package rdfio

import (
	"bytes"
	"fmt"
	"io"

	"github.com/knakk/rdf"

	"github.com/opencefadb/opencefadb-cli/internal/core/domain"
)

// EncodeNTriples serialises triples as an N-Triples document for upload to
// a remote store. Repeated statements are written once; the second return
// value is the number of distinct statements written.
func EncodeNTriples(triples []domain.Triple) ([]byte, int) {
	var buf bytes.Buffer
	seen := make(map[string]struct{}, len(triples))
	for _, t := range triples {
		line := t.Subject.String() + " " + t.Predicate.String() + " " + t.Object.String() + " .\n"
		if _, dup := seen[line]; dup {
			continue
		}
		seen[line] = struct{}{}
		buf.WriteString(line)
	}
	return buf.Bytes(), len(seen)
}

// EncodeTurtle writes triples as a Turtle document. Vocabulary IRIs are
// abbreviated with the conventional prefixes; other IRIs are written in
// full.
func EncodeTurtle(w io.Writer, triples []domain.Triple) error {
	ts := make([]rdf.Triple, 0, len(triples))
	for _, t := range triples {
		kt, err := knakkTriple(t)
		if err != nil {
			return err
		}
		ts = append(ts, kt)
	}

	enc := rdf.NewTripleEncoder(w, rdf.Turtle)
	enc.GenerateNamespaces = false
	for prefix, ns := range Prefixes {
		enc.Namespaces[ns] = prefix
	}
	if err := enc.EncodeAll(ts); err != nil {
		return fmt.Errorf("encoding turtle: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("encoding turtle: %w", err)
	}
	if len(ts) > 0 {
		// Close terminates the last statement without a newline.
		_, err := io.WriteString(w, "\n")
		return err
	}
	return nil
}

func knakkTriple(t domain.Triple) (rdf.Triple, error) {
	s, err := knakkTerm(t.Subject)
	if err != nil {
		return rdf.Triple{}, err
	}
	p, err := knakkTerm(t.Predicate)
	if err != nil {
		return rdf.Triple{}, err
	}
	o, err := knakkTerm(t.Object)
	if err != nil {
		return rdf.Triple{}, err
	}
	subj, ok := s.(rdf.Subject)
	if !ok {
		return rdf.Triple{}, fmt.Errorf("%w: %s cannot be a subject", domain.ErrInvalidInput, t.Subject)
	}
	pred, ok := p.(rdf.Predicate)
	if !ok {
		return rdf.Triple{}, fmt.Errorf("%w: %s cannot be a predicate", domain.ErrInvalidInput, t.Predicate)
	}
	return rdf.Triple{Subj: subj, Pred: pred, Obj: o.(rdf.Object)}, nil
}

// knakkTerm maps a domain term to a knakk/rdf term.
func knakkTerm(t domain.Term) (rdf.Term, error) {
	switch t.Kind {
	case domain.TermIRI:
		iri, err := rdf.NewIRI(t.Value)
		if err != nil {
			return nil, fmt.Errorf("%w: IRI %q: %v", domain.ErrInvalidInput, t.Value, err)
		}
		return iri, nil
	case domain.TermBlank:
		b, err := rdf.NewBlank(t.Value)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
		}
		return b, nil
	case domain.TermLiteral:
		switch {
		case t.Lang != "":
			l, err := rdf.NewLangLiteral(t.Value, t.Lang)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
			}
			return l, nil
		case t.Datatype != "" && t.Datatype != domain.XSDString:
			dt, err := rdf.NewIRI(t.Datatype)
			if err != nil {
				return nil, fmt.Errorf("%w: datatype %q: %v", domain.ErrInvalidInput, t.Datatype, err)
			}
			return rdf.NewTypedLiteral(t.Value, dt), nil
		default:
			l, _ := rdf.NewLiteral(t.Value)
			return l, nil
		}
	default:
		return nil, fmt.Errorf("%w: unbound term", domain.ErrInvalidInput)
	}
}
