package formalism

import (
	"fmt"
	"strings"
)

// Parameter is a typed schema parameter. A nil Type accepts any object.
type Parameter struct {
	Name string
	Type *Type
}

// CostFunction computes the cost of a ground action from its objects.
// ok is false when the cost is undefined for the binding, in which case the
// binding is treated as inapplicable.
type CostFunction interface {
	Cost(objects []*Object) (cost int, ok bool)
}

// ConstantCost is a CostFunction returning the same cost for every binding.
type ConstantCost int

// Cost implements CostFunction.
func (c ConstantCost) Cost([]*Object) (int, bool) {
	return int(c), true
}

// ConditionalEffect applies Effect only when Condition holds in the state the
// action is applied to.
type ConditionalEffect struct {
	Condition []Literal
	Effect    []Literal
}

// ActionSchema is a parameterised action.
//
// Effects may only touch fluent predicates. A nil Cost means unit cost.
type ActionSchema struct {
	ID                 int
	Name               string
	Parameters         []Parameter
	Precondition       []Literal
	Effect             []Literal
	ConditionalEffects []ConditionalEffect
	Cost               CostFunction
}

// Arity returns the number of parameters.
func (a *ActionSchema) Arity() int {
	return len(a.Parameters)
}

// CostOf evaluates the schema's cost for the given objects.
func (a *ActionSchema) CostOf(objects []*Object) (int, bool) {
	if a.Cost == nil {
		return 1, true
	}
	return a.Cost.Cost(objects)
}

func (a *ActionSchema) String() string {
	names := make([]string, len(a.Parameters))
	for i, param := range a.Parameters {
		names[i] = "?" + param.Name
	}
	return fmt.Sprintf("%s(%s)", a.Name, strings.Join(names, ", "))
}

// AxiomSchema derives Head whenever Body holds. Head must be a positive
// literal over a derived predicate.
type AxiomSchema struct {
	ID         int
	Name       string
	Parameters []Parameter
	Body       []Literal
	Head       Literal
}

// Arity returns the number of parameters.
func (a *AxiomSchema) Arity() int {
	return len(a.Parameters)
}

func (a *AxiomSchema) String() string {
	if a.Name != "" {
		return a.Name
	}
	return a.Head.Predicate.Name
}

func validateLiteral(lit Literal, arity int, what string) error {
	if lit.Predicate == nil {
		return fmt.Errorf("%w: %s has a literal without predicate", ErrInvalidDefinition, what)
	}
	if len(lit.Terms) != lit.Predicate.Arity {
		return fmt.Errorf("%w: %s uses %q with %d terms, arity is %d",
			ErrInvalidDefinition, what, lit.Predicate.Name, len(lit.Terms), lit.Predicate.Arity)
	}
	for _, term := range lit.Terms {
		if term.IsParameter() && (term.Value < 0 || term.Value >= arity) {
			return fmt.Errorf("%w: %s references parameter %d of %d",
				ErrInvalidDefinition, what, term.Value, arity)
		}
	}
	return nil
}

func validateEffect(lit Literal, arity int, what string) error {
	if err := validateLiteral(lit, arity, what); err != nil {
		return err
	}
	if lit.Predicate.Tag != Fluent {
		return fmt.Errorf("%w: %s has an effect on %s predicate %q",
			ErrUnsupported, what, lit.Predicate.Tag, lit.Predicate.Name)
	}
	return nil
}

func (a *ActionSchema) validate() error {
	what := "action " + a.Name
	for _, lit := range a.Precondition {
		if err := validateLiteral(lit, a.Arity(), what); err != nil {
			return err
		}
	}
	for _, lit := range a.Effect {
		if err := validateEffect(lit, a.Arity(), what); err != nil {
			return err
		}
	}
	for _, cond := range a.ConditionalEffects {
		for _, lit := range cond.Condition {
			if err := validateLiteral(lit, a.Arity(), what); err != nil {
				return err
			}
		}
		for _, lit := range cond.Effect {
			if err := validateEffect(lit, a.Arity(), what); err != nil {
				return err
			}
		}
	}
	return nil
}

func (a *AxiomSchema) validate() error {
	what := "axiom " + a.String()
	for _, lit := range a.Body {
		if err := validateLiteral(lit, a.Arity(), what); err != nil {
			return err
		}
	}
	if err := validateLiteral(a.Head, a.Arity(), what); err != nil {
		return err
	}
	if a.Head.Negated {
		return fmt.Errorf("%w: %s has a negated head", ErrUnsupported, what)
	}
	if a.Head.Predicate.Tag != Derived {
		return fmt.Errorf("%w: %s derives %s predicate %q",
			ErrUnsupported, what, a.Head.Predicate.Tag, a.Head.Predicate.Name)
	}
	return nil
}
