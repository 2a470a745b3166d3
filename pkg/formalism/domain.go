package formalism

import (
	"fmt"
)

// Domain holds the lifted part of a planning task: types, constants,
// predicates by tag, action schemas and axiom schemas.
//
// Domains are built sequentially and are read-only afterwards.
type Domain struct {
	Name string

	types      []*Type
	typeByName map[string]*Type

	constants      []*Object
	constantByName map[string]*Object

	predicates      [NumTags][]*Predicate
	predicateByName map[string]*Predicate

	actions []*ActionSchema
	axioms  []*AxiomSchema
}

// NewDomain creates an empty domain.
func NewDomain(name string) *Domain {
	return &Domain{
		Name:            name,
		typeByName:      make(map[string]*Type),
		constantByName:  make(map[string]*Object),
		predicateByName: make(map[string]*Predicate),
	}
}

// AddType declares a type. parent may be nil.
func (d *Domain) AddType(name string, parent *Type) (*Type, error) {
	if _, ok := d.typeByName[name]; ok {
		return nil, fmt.Errorf("%w: type %q", ErrDuplicateSymbol, name)
	}
	t := &Type{ID: len(d.types), Name: name, Parent: parent}
	d.types = append(d.types, t)
	d.typeByName[name] = t
	return t, nil
}

// Type resolves a type by name.
func (d *Domain) Type(name string) (*Type, bool) {
	t, ok := d.typeByName[name]
	return t, ok
}

// Types returns all declared types in declaration order.
func (d *Domain) Types() []*Type {
	return d.types
}

// AddConstant declares a domain constant. Constants receive the lowest object
// ids of every problem built on the domain.
func (d *Domain) AddConstant(name string, typ *Type) (*Object, error) {
	if _, ok := d.constantByName[name]; ok {
		return nil, fmt.Errorf("%w: constant %q", ErrDuplicateSymbol, name)
	}
	obj := &Object{ID: len(d.constants), Name: name, Type: typ}
	d.constants = append(d.constants, obj)
	d.constantByName[name] = obj
	return obj, nil
}

// Constant resolves a constant by name.
func (d *Domain) Constant(name string) (*Object, bool) {
	obj, ok := d.constantByName[name]
	return obj, ok
}

// Constants returns the domain constants in id order.
func (d *Domain) Constants() []*Object {
	return d.constants
}

// AddPredicate declares a predicate with the given tag. paramTypes may be
// omitted; otherwise it must have one entry per argument.
func (d *Domain) AddPredicate(name string, tag Tag, arity int, paramTypes ...*Type) (*Predicate, error) {
	if _, ok := d.predicateByName[name]; ok {
		return nil, fmt.Errorf("%w: predicate %q", ErrDuplicateSymbol, name)
	}
	if arity < 0 {
		return nil, fmt.Errorf("%w: predicate %q has negative arity", ErrInvalidDefinition, name)
	}
	if len(paramTypes) != 0 && len(paramTypes) != arity {
		return nil, fmt.Errorf("%w: predicate %q has arity %d but %d parameter types",
			ErrInvalidDefinition, name, arity, len(paramTypes))
	}
	pred := &Predicate{
		ID:         len(d.predicates[tag]),
		Tag:        tag,
		Name:       name,
		Arity:      arity,
		ParamTypes: paramTypes,
	}
	d.predicates[tag] = append(d.predicates[tag], pred)
	d.predicateByName[name] = pred
	return pred, nil
}

// Predicate resolves a predicate by name.
func (d *Domain) Predicate(name string) (*Predicate, bool) {
	pred, ok := d.predicateByName[name]
	return pred, ok
}

// Predicates returns the predicates of one tag in id order.
func (d *Domain) Predicates(tag Tag) []*Predicate {
	return d.predicates[tag]
}

// AddAction validates and registers an action schema, assigning its id.
func (d *Domain) AddAction(schema *ActionSchema) error {
	if err := schema.validate(); err != nil {
		return err
	}
	for _, existing := range d.actions {
		if existing.Name == schema.Name {
			return fmt.Errorf("%w: action %q", ErrDuplicateSymbol, schema.Name)
		}
	}
	schema.ID = len(d.actions)
	d.actions = append(d.actions, schema)
	return nil
}

// Actions returns the action schemas in id order.
func (d *Domain) Actions() []*ActionSchema {
	return d.actions
}

// AddAxiom validates and registers an axiom schema, assigning its id.
func (d *Domain) AddAxiom(schema *AxiomSchema) error {
	if err := schema.validate(); err != nil {
		return err
	}
	schema.ID = len(d.axioms)
	d.axioms = append(d.axioms, schema)
	return nil
}

// Axioms returns the axiom schemas in id order.
func (d *Domain) Axioms() []*AxiomSchema {
	return d.axioms
}

// AxiomStrata partitions the axioms into strata so that a derived predicate
// used negatively in a body is fully computed in an earlier stratum.
// Axioms within a stratum keep their id order.
//
// Returns ErrUnsupported when the axioms are not stratifiable.
func (d *Domain) AxiomStrata() ([][]*AxiomSchema, error) {
	derived := d.predicates[Derived]
	level := make([]int, len(derived))
	limit := len(derived)

	for changed := true; changed; {
		changed = false
		for _, axiom := range d.axioms {
			head := axiom.Head.Predicate.ID
			for _, lit := range axiom.Body {
				if lit.Predicate.Tag != Derived {
					continue
				}
				required := level[lit.Predicate.ID]
				if lit.Negated {
					required++
				}
				if required > level[head] {
					level[head] = required
					changed = true
					if level[head] > limit {
						return nil, fmt.Errorf("%w: axioms for %q are not stratifiable",
							ErrUnsupported, axiom.Head.Predicate.Name)
					}
				}
			}
		}
	}

	maxLevel := -1
	for _, axiom := range d.axioms {
		if l := level[axiom.Head.Predicate.ID]; l > maxLevel {
			maxLevel = l
		}
	}
	strata := make([][]*AxiomSchema, 0, maxLevel+1)
	for l := 0; l <= maxLevel; l++ {
		var stratum []*AxiomSchema
		for _, axiom := range d.axioms {
			if level[axiom.Head.Predicate.ID] == l {
				stratum = append(stratum, axiom)
			}
		}
		if len(stratum) > 0 {
			strata = append(strata, stratum)
		}
	}
	return strata, nil
}
