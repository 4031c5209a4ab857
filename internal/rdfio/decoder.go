package rdfio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/knakk/rdf"
	"github.com/piprate/json-gold/ld"

	"github.com/opencefadb/opencefadb-cli/internal/core/domain"
)

// lineColumn matches the "line:col: message" prefix of knakk/rdf errors.
var lineColumn = regexp.MustCompile(`^(\d+):(\d+)`)

// Decode streams the triples of an RDF document to fn. The document name is
// used in error messages only. Decoding stops at the first syntax error,
// which is returned as *domain.ParseError; triples already passed to fn are
// not retracted, so callers wanting atomicity must buffer.
func Decode(ctx context.Context, r io.Reader, format domain.Format, name string, fn func(domain.Triple) error) (int, error) {
	if format == domain.FormatJSONLD {
		nquads, err := expandJSONLD(r)
		if err != nil {
			return 0, &domain.ParseError{Document: name, Err: err}
		}
		r = strings.NewReader(nquads)
		format = domain.FormatNQuads
	}

	cr := &countingReader{r: r}
	next, err := newDecoder(cr, format)
	if err != nil {
		return 0, &domain.ParseError{Document: name, Err: err}
	}

	n := 0
	for {
		if n%512 == 0 {
			if err := ctx.Err(); err != nil {
				return n, err
			}
		}
		t, err := next()
		if errors.Is(err, io.EOF) {
			return n, nil
		}
		if err != nil {
			return n, newParseError(name, cr.n, err)
		}
		if err := fn(t); err != nil {
			return n, err
		}
		n++
	}
}

// DecodeFile reads a whole document from disk. A missing or unreadable
// file is reported as *domain.ParseError like a syntax error.
func DecodeFile(ctx context.Context, doc domain.Document) ([]domain.Triple, error) {
	f, err := os.Open(doc.Path)
	if err != nil {
		return nil, &domain.ParseError{Document: doc.Path, Err: err}
	}
	defer f.Close()

	var triples []domain.Triple
	_, err = Decode(ctx, f, doc.Format, doc.Path, func(t domain.Triple) error {
		triples = append(triples, t)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return triples, nil
}

// DecodeBytes decodes an in-memory document.
func DecodeBytes(data []byte, format domain.Format, name string) ([]domain.Triple, error) {
	var triples []domain.Triple
	_, err := Decode(context.Background(), bytes.NewReader(data), format, name, func(t domain.Triple) error {
		triples = append(triples, t)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return triples, nil
}

func newDecoder(r io.Reader, format domain.Format) (func() (domain.Triple, error), error) {
	switch format {
	case domain.FormatNQuads:
		dec := rdf.NewQuadDecoder(r, rdf.NQuads)
		return func() (domain.Triple, error) {
			q, err := dec.Decode()
			if err != nil {
				return domain.Triple{}, err
			}
			return convertTriple(q.Triple), nil
		}, nil
	case domain.FormatTurtle, domain.FormatNTriples, domain.FormatRDFXML:
		dec := rdf.NewTripleDecoder(r, knakkFormat(format))
		return func() (domain.Triple, error) {
			t, err := dec.Decode()
			if err != nil {
				return domain.Triple{}, err
			}
			return convertTriple(t), nil
		}, nil
	default:
		return nil, fmt.Errorf("%w: format %q", domain.ErrUnsupportedType, format)
	}
}

func knakkFormat(f domain.Format) rdf.Format {
	switch f {
	case domain.FormatNTriples:
		return rdf.NTriples
	case domain.FormatRDFXML:
		return rdf.RDFXML
	default:
		return rdf.Turtle
	}
}

// expandJSONLD converts a JSON-LD document to N-Quads text.
func expandJSONLD(r io.Reader) (string, error) {
	doc, err := ld.DocumentFromReader(r)
	if err != nil {
		return "", fmt.Errorf("read json-ld: %w", err)
	}
	opts := ld.NewJsonLdOptions("")
	opts.Format = "application/n-quads"
	out, err := ld.NewJsonLdProcessor().ToRDF(doc, opts)
	if err != nil {
		return "", fmt.Errorf("expand json-ld: %w", err)
	}
	s, ok := out.(string)
	if !ok {
		return "", fmt.Errorf("expand json-ld: unexpected result %T", out)
	}
	return s, nil
}

func newParseError(name string, offset int64, err error) *domain.ParseError {
	pe := &domain.ParseError{Document: name, Offset: offset, Err: err}
	if m := lineColumn.FindStringSubmatch(err.Error()); m != nil {
		pe.Line, _ = strconv.Atoi(m[1])
	}
	return pe
}

// ConvertTerm maps a knakk/rdf term to a domain term.
func ConvertTerm(t rdf.Term) domain.Term {
	switch v := t.(type) {
	case rdf.IRI:
		return domain.IRI(v.String())
	case rdf.Blank:
		return domain.Blank(strings.TrimPrefix(v.String(), "_:"))
	case rdf.Literal:
		term := domain.Term{Kind: domain.TermLiteral, Value: v.String(), Lang: v.Lang()}
		if dt := v.DataType.String(); dt != "" && dt != domain.XSDString && v.Lang() == "" {
			term.Datatype = dt
		}
		return term
	default:
		return domain.Term{}
	}
}

func convertTriple(t rdf.Triple) domain.Triple {
	return domain.Triple{
		Subject:   ConvertTerm(t.Subj),
		Predicate: ConvertTerm(t.Pred),
		Object:    ConvertTerm(t.Obj),
	}
}

// countingReader tracks how many bytes the decoder consumed.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
