package query

import (
	"fmt"
	"strings"

	"github.com/opencefadb/opencefadb-cli/internal/core/domain"
)

// Column suffixes of a projected variable. A variable v is returned as the
// columns v, v__kind, v__dt and v__lang.
const (
	SuffixKind     = "__kind"
	SuffixDatatype = "__dt"
	SuffixLang     = "__lang"
)

// TriplesTable is the statement table of the embedded store.
const TriplesTable = "triples"

// sqlBinding holds the SQL expressions a variable is bound to.
type sqlBinding struct {
	value, kind, dt, lang string
}

type sqlScope struct {
	prefix   string
	aliases  []string
	conds    []string
	bindings map[string]sqlBinding
	order    []string
}

func newSQLScope(prefix string) *sqlScope {
	return &sqlScope{prefix: prefix, bindings: make(map[string]sqlBinding)}
}

func (s *sqlScope) add(t Triple) {
	alias := fmt.Sprintf("%s%d", s.prefix, len(s.aliases))
	s.aliases = append(s.aliases, alias)

	s.position(t.S, sqlBinding{alias + ".s", alias + ".s_kind", "NULL", "NULL"}, alias+".s_kind")
	s.position(t.P, sqlBinding{alias + ".p", "'iri'", "NULL", "NULL"}, "")
	s.position(t.O, sqlBinding{alias + ".o", alias + ".o_kind", alias + ".o_datatype", alias + ".o_lang"}, alias+".o_kind")
}

// position binds or constrains one triple position. kindCol is empty for
// the predicate, which is always an IRI.
func (s *sqlScope) position(n Node, b sqlBinding, kindCol string) {
	if n.IsVar() {
		if prev, ok := s.bindings[n.Var]; ok {
			s.conds = append(s.conds, b.value+" = "+prev.value, b.kind+" = "+prev.kind)
			return
		}
		s.bindings[n.Var] = b
		s.order = append(s.order, n.Var)
		return
	}
	s.conds = append(s.conds, b.value+" = "+quoteSQL(n.Term.Value))
	if kindCol != "" {
		s.conds = append(s.conds, kindCol+" = "+quoteSQL(string(n.Term.Kind)))
	} else if n.Term.Kind != domain.TermIRI {
		s.conds = append(s.conds, "1 = 0")
	}
}

func (s *sqlScope) from() string {
	parts := make([]string, len(s.aliases))
	for i, a := range s.aliases {
		parts[i] = TriplesTable + " " + a
	}
	return strings.Join(parts, ", ")
}

func (s *sqlScope) where() string {
	if len(s.conds) == 0 {
		return "1 = 1"
	}
	return strings.Join(s.conds, "\n  AND ")
}

// CompileSQL renders the pattern as a single SELECT DISTINCT over the
// triples table of the embedded store. Each triple pattern becomes a self
// join; each optional group becomes a LEFT JOIN on a subquery, joined on
// the variables it shares with the required part.
func CompileSQL(p Pattern) (string, error) {
	if err := p.Validate(); err != nil {
		return "", err
	}

	req := newSQLScope("t")
	for _, t := range p.Where {
		req.add(t)
	}

	bindings := make(map[string]sqlBinding, len(req.bindings))
	for v, b := range req.bindings {
		bindings[v] = b
	}

	var joins []string
	for i, g := range p.Optional {
		opt := newSQLScope(fmt.Sprintf("o%d_", i))
		for _, t := range g {
			opt.add(t)
		}
		alias := fmt.Sprintf("opt%d", i)

		cols := make([]string, 0, len(opt.order))
		for _, v := range opt.order {
			cols = append(cols, projection(opt.bindings[v], v))
		}

		var on []string
		for _, v := range opt.order {
			if rb, shared := req.bindings[v]; shared {
				on = append(on,
					fmt.Sprintf("%s.%s = %s", alias, quoteIdent(v), rb.value),
					fmt.Sprintf("%s.%s = %s", alias, quoteIdent(v+SuffixKind), rb.kind))
				continue
			}
			if _, seen := bindings[v]; !seen {
				bindings[v] = sqlBinding{
					value: alias + "." + quoteIdent(v),
					kind:  alias + "." + quoteIdent(v+SuffixKind),
					dt:    alias + "." + quoteIdent(v+SuffixDatatype),
					lang:  alias + "." + quoteIdent(v+SuffixLang),
				}
			}
		}
		if len(on) == 0 {
			on = []string{"1 = 1"}
		}

		joins = append(joins, fmt.Sprintf("LEFT JOIN (\n  SELECT DISTINCT %s\n  FROM %s\n  WHERE %s\n) AS %s ON %s",
			strings.Join(cols, ", "), opt.from(), opt.where(), alias, strings.Join(on, " AND ")))
	}

	var b strings.Builder
	b.WriteString("SELECT DISTINCT ")
	cols := make([]string, len(p.Select))
	for i, v := range p.Select {
		cols[i] = projection(bindings[v], v)
	}
	b.WriteString(strings.Join(cols, ",\n  "))
	b.WriteString("\nFROM " + req.from())
	for _, j := range joins {
		b.WriteString("\n" + j)
	}
	b.WriteString("\nWHERE " + req.where())
	if len(p.OrderBy) > 0 {
		order := make([]string, len(p.OrderBy))
		for i, v := range p.OrderBy {
			order[i] = quoteIdent(v)
		}
		b.WriteString("\nORDER BY " + strings.Join(order, ", "))
	}
	return b.String(), nil
}

func projection(b sqlBinding, v string) string {
	return fmt.Sprintf("%s AS %s, %s AS %s, %s AS %s, %s AS %s",
		b.value, quoteIdent(v),
		b.kind, quoteIdent(v+SuffixKind),
		b.dt, quoteIdent(v+SuffixDatatype),
		b.lang, quoteIdent(v+SuffixLang))
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func quoteSQL(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
