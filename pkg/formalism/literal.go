package formalism

import (
	"sort"
	"strconv"
	"strings"
)

// TermKind distinguishes schema parameters from constants.
type TermKind uint8

const (
	// TermParameter refers to a schema parameter by position.
	TermParameter TermKind = iota
	// TermConstant refers to an object by id.
	TermConstant
)

// Term is an argument of a lifted literal.
type Term struct {
	Kind  TermKind
	Value int
}

// Param returns a term referring to the schema parameter at position index.
func Param(index int) Term {
	return Term{Kind: TermParameter, Value: index}
}

// Const returns a term referring to a fixed object.
func Const(object *Object) Term {
	return Term{Kind: TermConstant, Value: object.ID}
}

// IsParameter reports whether the term is a parameter reference.
func (t Term) IsParameter() bool {
	return t.Kind == TermParameter
}

// Resolve returns the object id the term denotes under binding, where
// binding[i] is the object bound to parameter i.
func (t Term) Resolve(binding []int) int {
	if t.Kind == TermConstant {
		return t.Value
	}
	return binding[t.Value]
}

// Literal is a possibly negated predicate applied to terms.
type Literal struct {
	Predicate *Predicate
	Terms     []Term
	Negated   bool
}

// Pos builds a positive literal.
func Pos(pred *Predicate, terms ...Term) Literal {
	return Literal{Predicate: pred, Terms: terms}
}

// Neg builds a negative literal.
func Neg(pred *Predicate, terms ...Term) Literal {
	return Literal{Predicate: pred, Terms: terms, Negated: true}
}

// Tag returns the tag of the literal's predicate.
func (l Literal) Tag() Tag {
	return l.Predicate.Tag
}

// Parameters returns the distinct parameter positions used by the literal in
// ascending order.
func (l Literal) Parameters() []int {
	var params []int
	seen := make(map[int]bool, len(l.Terms))
	for _, term := range l.Terms {
		if term.IsParameter() && !seen[term.Value] {
			seen[term.Value] = true
			params = append(params, term.Value)
		}
	}
	sort.Ints(params)
	return params
}

// Mentions reports whether the literal uses parameter index.
func (l Literal) Mentions(index int) bool {
	for _, term := range l.Terms {
		if term.IsParameter() && term.Value == index {
			return true
		}
	}
	return false
}

// Ground substitutes binding into the literal's terms and writes the object
// ids into dst, which is returned resliced.
func (l Literal) Ground(binding []int, dst []int) []int {
	dst = dst[:0]
	for _, term := range l.Terms {
		dst = append(dst, term.Resolve(binding))
	}
	return dst
}

func (l Literal) String() string {
	var builder strings.Builder
	if l.Negated {
		builder.WriteString("(not ")
	}
	builder.WriteString("(")
	builder.WriteString(l.Predicate.Name)
	for _, term := range l.Terms {
		builder.WriteString(" ")
		if term.IsParameter() {
			builder.WriteString("?")
			builder.WriteString(strconv.Itoa(term.Value))
		} else {
			builder.WriteString("#")
			builder.WriteString(strconv.Itoa(term.Value))
		}
	}
	builder.WriteString(")")
	if l.Negated {
		builder.WriteString(")")
	}
	return builder.String()
}

// GroundLiteral is a possibly negated ground atom, used for goals.
type GroundLiteral struct {
	Atom    *Atom
	Negated bool
}
