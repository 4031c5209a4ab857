package query

import (
	"fmt"
	"regexp"

	"github.com/opencefadb/opencefadb-cli/internal/core/domain"
)

var varName = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// Node is a triple pattern position: a variable or a constant term.
type Node struct {
	Var  string
	Term domain.Term
}

// V returns a variable node.
func V(name string) Node {
	return Node{Var: name}
}

// IRI returns a constant IRI node.
func IRI(v string) Node {
	return Node{Term: domain.IRI(v)}
}

// Lit returns a constant literal node. Literals match by lexical value,
// whatever their datatype or language.
func Lit(v string) Node {
	return Node{Term: domain.Literal(v)}
}

// IsVar returns true for variable nodes.
func (n Node) IsVar() bool {
	return n.Var != ""
}

// Triple is one triple pattern.
type Triple struct {
	S, P, O Node
}

// T builds a triple pattern.
func T(s, p, o Node) Triple {
	return Triple{S: s, P: p, O: o}
}

// Pattern is a conjunctive query with optional groups. It compiles to
// SPARQL for remote backends and to SQL for the embedded store. Results
// are always distinct.
type Pattern struct {
	// Select lists the projected variables in output order.
	Select []string

	// Where must all match.
	Where []Triple

	// Optional groups extend a solution when they match and leave their
	// variables unbound otherwise.
	Optional [][]Triple

	// OrderBy lists variables to sort by, ascending.
	OrderBy []string
}

// Validate checks variable names and that every projected variable is
// bound somewhere.
func (p Pattern) Validate() error {
	if len(p.Where) == 0 {
		return fmt.Errorf("%w: pattern has no required triples", domain.ErrInvalidInput)
	}
	bound := make(map[string]bool)
	check := func(triples []Triple) error {
		for _, t := range triples {
			for _, n := range []Node{t.S, t.P, t.O} {
				if n.IsVar() {
					if !varName.MatchString(n.Var) {
						return fmt.Errorf("%w: variable name %q", domain.ErrInvalidInput, n.Var)
					}
					bound[n.Var] = true
					continue
				}
				if n.Term.Kind == domain.TermBlank {
					return fmt.Errorf("%w: blank node constants cannot be matched", domain.ErrInvalidInput)
				}
				if n.Term.IsZero() {
					return fmt.Errorf("%w: empty pattern node", domain.ErrInvalidInput)
				}
			}
		}
		return nil
	}
	if err := check(p.Where); err != nil {
		return err
	}
	for _, g := range p.Optional {
		if err := check(g); err != nil {
			return err
		}
	}
	for _, v := range append(append([]string{}, p.Select...), p.OrderBy...) {
		if !bound[v] {
			return fmt.Errorf("%w: variable %q is not bound by the pattern", domain.ErrInvalidInput, v)
		}
	}
	return nil
}

// Compile renders the pattern in the given language.
func Compile(p Pattern, lang domain.QueryLanguage) (string, error) {
	switch lang {
	case domain.LanguageSPARQL:
		return CompileSPARQL(p)
	case domain.LanguageSQL:
		return CompileSQL(p)
	default:
		return "", fmt.Errorf("%w: query language %q", domain.ErrUnsupportedType, lang)
	}
}

// requiredVars returns the variables bound by the required part.
func requiredVars(triples []Triple) map[string]bool {
	vars := make(map[string]bool)
	for _, t := range triples {
		for _, n := range []Node{t.S, t.P, t.O} {
			if n.IsVar() {
				vars[n.Var] = true
			}
		}
	}
	return vars
}
