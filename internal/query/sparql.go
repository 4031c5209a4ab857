package query

import (
	"fmt"
	"strings"

	"github.com/opencefadb/opencefadb-cli/internal/core/domain"
)

// CompileSPARQL renders a SELECT DISTINCT query. Literal constants are
// bound to a fresh variable and compared with STR() so that typed and
// untyped literals of the same lexical form match alike.
func CompileSPARQL(p Pattern) (string, error) {
	if err := p.Validate(); err != nil {
		return "", err
	}

	c := &sparqlCompiler{}
	var b strings.Builder
	b.WriteString("SELECT DISTINCT")
	for _, v := range p.Select {
		b.WriteString(" ?" + v)
	}
	b.WriteString("\nWHERE {\n")
	c.group(&b, p.Where, "  ")
	for _, g := range p.Optional {
		b.WriteString("  OPTIONAL {\n")
		c.group(&b, g, "    ")
		b.WriteString("  }\n")
	}
	b.WriteString("}")
	if len(p.OrderBy) > 0 {
		b.WriteString("\nORDER BY")
		for _, v := range p.OrderBy {
			b.WriteString(" ?" + v)
		}
	}
	return b.String(), nil
}

type sparqlCompiler struct {
	fresh int
}

func (c *sparqlCompiler) group(b *strings.Builder, triples []Triple, indent string) {
	var filters []string
	for _, t := range triples {
		o := c.node(t.O)
		if !t.O.IsVar() && t.O.Term.Kind == domain.TermLiteral {
			v := fmt.Sprintf("?_lit%d", c.fresh)
			c.fresh++
			filters = append(filters, fmt.Sprintf("FILTER(STR(%s) = %s)", v, quoteSPARQL(t.O.Term.Value)))
			o = v
		}
		fmt.Fprintf(b, "%s%s %s %s .\n", indent, c.node(t.S), c.node(t.P), o)
	}
	for _, f := range filters {
		b.WriteString(indent + f + "\n")
	}
}

func (c *sparqlCompiler) node(n Node) string {
	if n.IsVar() {
		return "?" + n.Var
	}
	switch n.Term.Kind {
	case domain.TermIRI:
		return "<" + escapeIRI(n.Term.Value) + ">"
	default:
		return quoteSPARQL(n.Term.Value)
	}
}

var sparqlEscaper = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	"\n", `\n`,
	"\r", `\r`,
	"\t", `\t`,
)

func quoteSPARQL(s string) string {
	return `"` + sparqlEscaper.Replace(s) + `"`
}

// escapeIRI percent-encodes characters that may not appear inside <...>.
func escapeIRI(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r <= 0x20, strings.ContainsRune(`<>"{}|^`+"`\\", r):
			fmt.Fprintf(&b, "%%%02X", r)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
