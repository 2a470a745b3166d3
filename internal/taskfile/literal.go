package taskfile

import (
	"fmt"
	"strings"

	"github.com/gitrdm/goplanner/pkg/formalism"
)

// rawLiteral is a literal split into words, before symbols are resolved.
type rawLiteral struct {
	text      string
	negated   bool
	predicate string
	args      []string
}

func parseLiteral(text string) (rawLiteral, error) {
	lit := rawLiteral{text: text}
	s := strings.TrimSpace(text)
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	fields := strings.Fields(s)
	if len(fields) > 0 && fields[0] == "not" {
		lit.negated = true
		fields = fields[1:]
		// "not (p ?x)"
		if len(fields) > 0 {
			inner := strings.Join(fields, " ")
			if strings.HasPrefix(inner, "(") && strings.HasSuffix(inner, ")") {
				fields = strings.Fields(inner[1 : len(inner)-1])
			}
		}
	}
	if len(fields) == 0 {
		return lit, fmt.Errorf("%w: empty literal %q", ErrInvalidTask, text)
	}
	for _, f := range fields {
		if strings.ContainsAny(f, "()") {
			return lit, fmt.Errorf("%w: malformed literal %q", ErrInvalidTask, text)
		}
	}
	lit.predicate = fields[0]
	lit.args = fields[1:]
	return lit, nil
}

func parseLiterals(texts []string) ([]rawLiteral, error) {
	lits := make([]rawLiteral, 0, len(texts))
	for _, text := range texts {
		lit, err := parseLiteral(text)
		if err != nil {
			return nil, err
		}
		lits = append(lits, lit)
	}
	return lits, nil
}

// scope resolves the arguments of schema literals: ?name is a parameter,
// anything else a domain constant.
type scope struct {
	domain *formalism.Domain
	params map[string]int
	owner  string
}

func newScope(domain *formalism.Domain, owner string, params []ParamDecl) (*scope, []formalism.Parameter, error) {
	sc := &scope{domain: domain, params: make(map[string]int, len(params)), owner: owner}
	out := make([]formalism.Parameter, len(params))
	for i, p := range params {
		name := strings.TrimPrefix(p.Name, "?")
		if _, dup := sc.params[name]; dup {
			return nil, nil, fmt.Errorf("%w: %s declares parameter ?%s twice", ErrInvalidTask, owner, name)
		}
		typ, err := resolveType(domain, p.Type)
		if err != nil {
			return nil, nil, fmt.Errorf("%s parameter ?%s: %w", owner, name, err)
		}
		sc.params[name] = i
		out[i] = formalism.Parameter{Name: name, Type: typ}
	}
	return sc, out, nil
}

func (sc *scope) literal(raw rawLiteral) (formalism.Literal, error) {
	pred, ok := sc.domain.Predicate(raw.predicate)
	if !ok {
		return formalism.Literal{}, fmt.Errorf("%w: %s: predicate %q in %q",
			formalism.ErrUnknownSymbol, sc.owner, raw.predicate, raw.text)
	}
	terms := make([]formalism.Term, len(raw.args))
	for i, arg := range raw.args {
		if name, isParam := strings.CutPrefix(arg, "?"); isParam {
			index, ok := sc.params[name]
			if !ok {
				return formalism.Literal{}, fmt.Errorf("%w: %s: parameter %q in %q",
					formalism.ErrUnknownSymbol, sc.owner, arg, raw.text)
			}
			terms[i] = formalism.Param(index)
			continue
		}
		constant, ok := sc.domain.Constant(arg)
		if !ok {
			return formalism.Literal{}, fmt.Errorf("%w: %s: constant %q in %q",
				formalism.ErrUnknownSymbol, sc.owner, arg, raw.text)
		}
		terms[i] = formalism.Const(constant)
	}
	return formalism.Literal{Predicate: pred, Terms: terms, Negated: raw.negated}, nil
}

func (sc *scope) literals(texts []string) ([]formalism.Literal, error) {
	raws, err := parseLiterals(texts)
	if err != nil {
		return nil, err
	}
	lits := make([]formalism.Literal, len(raws))
	for i, raw := range raws {
		if lits[i], err = sc.literal(raw); err != nil {
			return nil, err
		}
	}
	return lits, nil
}

func resolveType(domain *formalism.Domain, name string) (*formalism.Type, error) {
	if name == "" || name == "object" {
		return nil, nil
	}
	typ, ok := domain.Type(name)
	if !ok {
		return nil, fmt.Errorf("%w: type %q", formalism.ErrUnknownSymbol, name)
	}
	return typ, nil
}
