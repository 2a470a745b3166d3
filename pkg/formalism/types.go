// Package formalism provides the read-only view of planning domains and
// problems that the search core works on.
//
// Everything the core compares is identified by a dense integer id handed out
// by an interning table: types, objects, predicates (per tag), atoms (per
// tag), ground actions and ground axioms. Equality and hashing operate on
// these ids, never on pointers, so two atoms with equal predicate and object
// tuple always resolve to the same id.
//
// # Tags
//
// Predicates and atoms carry one of three tags:
//
//	Static   never changes during search; checked once against the problem
//	Fluent   changed by action effects; stored per state
//	Derived  computed from other atoms by axioms; stored per state
//
// Lifted structure (schemas, literals with parameter terms) is immutable after
// it has been added to a Domain. Problems are built once and then shared
// read-only by the generators and the state store.
package formalism

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupported is returned for constructs the planner cannot handle,
	// such as effects on static predicates or non-stratifiable axioms.
	ErrUnsupported = errors.New("formalism: unsupported construct")

	// ErrUnknownSymbol is returned when a name does not resolve.
	ErrUnknownSymbol = errors.New("formalism: unknown symbol")

	// ErrDuplicateSymbol is returned when a name is declared twice.
	ErrDuplicateSymbol = errors.New("formalism: duplicate symbol")

	// ErrInvalidDefinition is returned for arity or parameter mismatches.
	ErrInvalidDefinition = errors.New("formalism: invalid definition")
)

// Tag partitions predicates and atoms by how they evolve during search.
type Tag uint8

const (
	// Static atoms are fixed for the whole problem.
	Static Tag = iota
	// Fluent atoms are changed by action effects.
	Fluent
	// Derived atoms are computed by axioms.
	Derived

	// NumTags is the number of tags; useful for per-tag arrays.
	NumTags = 3
)

// Tags lists all tags in canonical order.
var Tags = [NumTags]Tag{Static, Fluent, Derived}

// String returns the lowercase tag name.
func (t Tag) String() string {
	switch t {
	case Static:
		return "static"
	case Fluent:
		return "fluent"
	case Derived:
		return "derived"
	default:
		return fmt.Sprintf("tag(%d)", uint8(t))
	}
}

// ParseTag converts a tag name back to a Tag.
func ParseTag(name string) (Tag, error) {
	switch name {
	case "static":
		return Static, nil
	case "fluent":
		return Fluent, nil
	case "derived":
		return Derived, nil
	default:
		return 0, fmt.Errorf("%w: tag %q", ErrUnknownSymbol, name)
	}
}

// Type is a named object type with an optional parent type.
type Type struct {
	ID     int
	Name   string
	Parent *Type
}

// IsSubtypeOf reports whether t equals other or descends from it.
// Every type is a subtype of the nil (root "object") type.
func (t *Type) IsSubtypeOf(other *Type) bool {
	if other == nil {
		return true
	}
	for current := t; current != nil; current = current.Parent {
		if current.ID == other.ID {
			return true
		}
	}
	return false
}

func (t *Type) String() string {
	if t == nil {
		return "object"
	}
	return t.Name
}

// Object is an interned domain constant or problem object.
type Object struct {
	ID   int
	Name string
	Type *Type
}

func (o *Object) String() string {
	return o.Name
}

// Predicate is a named relation with a fixed arity. Predicate ids are dense
// within their tag.
type Predicate struct {
	ID    int
	Tag   Tag
	Name  string
	Arity int

	// ParamTypes optionally restricts each argument position. A nil entry
	// (or a nil slice) means any object.
	ParamTypes []*Type
}

func (p *Predicate) String() string {
	return p.Name
}
