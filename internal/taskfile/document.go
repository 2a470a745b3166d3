// Package taskfile loads planning domains and problems from YAML documents.
//
// A domain document declares types, constants, predicates, actions and
// axioms; a problem document declares objects, the initial state, the goal
// and the values of numeric functions used by action costs. Literals are
// written as strings:
//
//	at ?b ?r          positive literal with parameters ?b and ?r
//	not free left     negative literal with the constant left
//	(carry ?b ?g)     surrounding parentheses are optional
//
// Predicate tags are inferred unless given explicitly: a predicate derived
// by an axiom is derived, one changed by an action effect is fluent and any
// other is static.
package taskfile

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ErrInvalidTask is returned for malformed or inconsistent task documents.
var ErrInvalidTask = errors.New("taskfile: invalid task")

var validate = validator.New()

// DomainDocument is the YAML form of a domain.
type DomainDocument struct {
	Name       string          `yaml:"domain" validate:"required"`
	Types      []TypeDecl      `yaml:"types" validate:"dive"`
	Constants  []ObjectDecl    `yaml:"constants" validate:"dive"`
	Predicates []PredicateDecl `yaml:"predicates" validate:"dive"`
	Functions  []FunctionDecl  `yaml:"functions" validate:"dive"`
	Actions    []ActionDecl    `yaml:"actions" validate:"dive"`
	Axioms     []AxiomDecl     `yaml:"axioms" validate:"dive"`
}

// TypeDecl declares a type; Parent must be declared earlier.
type TypeDecl struct {
	Name   string `yaml:"name" validate:"required,ne=object"`
	Parent string `yaml:"parent"`
}

// ObjectDecl declares a constant or object.
type ObjectDecl struct {
	Name string `yaml:"name" validate:"required"`
	Type string `yaml:"type"`
}

// PredicateDecl declares a predicate. Params lists argument types ("" or
// "object" for untyped); Arity is only needed when Params is empty.
type PredicateDecl struct {
	Name   string   `yaml:"name" validate:"required"`
	Params []string `yaml:"params"`
	Arity  int      `yaml:"arity" validate:"gte=0"`
	Tag    string   `yaml:"tag" validate:"omitempty,oneof=static fluent derived"`
}

// FunctionDecl declares a numeric function usable in cost expressions.
type FunctionDecl struct {
	Name  string `yaml:"name" validate:"required"`
	Arity int    `yaml:"arity" validate:"gte=0"`
}

// ParamDecl is a typed schema parameter; the name may carry a leading '?'.
type ParamDecl struct {
	Name string `yaml:"name" validate:"required"`
	Type string `yaml:"type"`
}

// WhenDecl is a conditional effect.
type WhenDecl struct {
	If   []string `yaml:"if" validate:"required,min=1"`
	Then []string `yaml:"then" validate:"required,min=1"`
}

// ActionDecl declares an action schema. Cost is an expression over the
// parameter names and declared functions; empty means unit cost.
type ActionDecl struct {
	Name         string      `yaml:"name" validate:"required"`
	Parameters   []ParamDecl `yaml:"parameters" validate:"dive"`
	Precondition []string    `yaml:"precondition"`
	Effect       []string    `yaml:"effect"`
	When         []WhenDecl  `yaml:"when" validate:"dive"`
	Cost         string      `yaml:"cost"`
}

// AxiomDecl declares an axiom schema: Head holds whenever Body holds.
type AxiomDecl struct {
	Name       string      `yaml:"name"`
	Parameters []ParamDecl `yaml:"parameters" validate:"dive"`
	Head       string      `yaml:"head" validate:"required"`
	Body       []string    `yaml:"body"`
}

// ProblemDocument is the YAML form of a problem.
type ProblemDocument struct {
	Name      string                     `yaml:"problem" validate:"required"`
	Domain    string                     `yaml:"domain"`
	Objects   []ObjectDecl               `yaml:"objects" validate:"dive"`
	Init      []string                   `yaml:"init"`
	Goal      []string                   `yaml:"goal"`
	Functions map[string][]FunctionValue `yaml:"functions" validate:"dive,dive"`
}

// FunctionValue assigns Value to a function applied to Args.
type FunctionValue struct {
	Args  []string `yaml:"args"`
	Value int      `yaml:"value"`
}

// DecodeDomain parses and validates a domain document.
func DecodeDomain(data []byte) (*DomainDocument, error) {
	var doc DomainDocument
	if err := decodeStrict(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: domain: %v", ErrInvalidTask, err)
	}
	if err := validate.Struct(&doc); err != nil {
		return nil, fmt.Errorf("%w: domain: %v", ErrInvalidTask, err)
	}
	return &doc, nil
}

// DecodeProblem parses and validates a problem document.
func DecodeProblem(data []byte) (*ProblemDocument, error) {
	var doc ProblemDocument
	if err := decodeStrict(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: problem: %v", ErrInvalidTask, err)
	}
	if err := validate.Struct(&doc); err != nil {
		return nil, fmt.Errorf("%w: problem: %v", ErrInvalidTask, err)
	}
	return &doc, nil
}

func decodeStrict(data []byte, out any) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	return dec.Decode(out)
}
