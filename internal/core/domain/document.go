package domain

import "strings"

// TermKind distinguishes the node types of the metadata graph.
type TermKind string

// Term kinds.
const (
	TermIRI     TermKind = "iri"
	TermBlank   TermKind = "blank"
	TermLiteral TermKind = "literal"
)

// XSDString is the default literal datatype.
const XSDString = "http://www.w3.org/2001/XMLSchema#string"

// Term is a typed node value: an IRI, a blank node or a literal with
// datatype and optional language tag.
type Term struct {
	Kind     TermKind
	Value    string
	Datatype string
	Lang     string
}

// IRI returns an IRI term.
func IRI(v string) Term {
	return Term{Kind: TermIRI, Value: v}
}

// Literal returns a plain string literal term.
func Literal(v string) Term {
	return Term{Kind: TermLiteral, Value: v}
}

// TypedLiteral returns a literal with an explicit datatype.
func TypedLiteral(v, datatype string) Term {
	return Term{Kind: TermLiteral, Value: v, Datatype: datatype}
}

// Blank returns a blank node term.
func Blank(id string) Term {
	return Term{Kind: TermBlank, Value: id}
}

// IsZero returns true for an unbound term.
func (t Term) IsZero() bool {
	return t.Kind == "" && t.Value == ""
}

// String renders the term in N-Triples-like notation.
func (t Term) String() string {
	switch t.Kind {
	case TermIRI:
		return "<" + t.Value + ">"
	case TermBlank:
		return "_:" + t.Value
	case TermLiteral:
		var b strings.Builder
		b.WriteByte('"')
		b.WriteString(strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\r", `\r`).Replace(t.Value))
		b.WriteByte('"')
		if t.Lang != "" {
			b.WriteString("@" + t.Lang)
		} else if t.Datatype != "" && t.Datatype != XSDString {
			b.WriteString("^^<" + t.Datatype + ">")
		}
		return b.String()
	default:
		return t.Value
	}
}

// Triple is a subject–predicate–object statement.
type Triple struct {
	Subject   Term
	Predicate Term
	Object    Term
}

// Row is one query solution: variable name to bound term. Unbound
// variables are absent.
type Row map[string]Term

// Value returns the lexical value bound to a variable, or "".
func (r Row) Value(name string) string {
	return r[name].Value
}

// QueryLanguage names the query dialect a backend accepts.
type QueryLanguage string

// Query languages.
const (
	LanguageSPARQL QueryLanguage = "sparql"
	LanguageSQL    QueryLanguage = "sql"
)

// String returns the string representation.
func (l QueryLanguage) String() string {
	return string(l)
}

// Document is a local metadata document ready to be loaded.
type Document struct {
	// Path is the local file path.
	Path string

	// Format is given explicitly, never sniffed from content.
	Format Format
}

// LoadedDocument records a document held by a backend.
type LoadedDocument struct {
	// ID is the backend-assigned identifier.
	ID string

	// Path is the local path the document was loaded from.
	Path string

	// Format of the document.
	Format Format

	// Triples is the number of statements inserted.
	Triples int
}
