package formalism

import (
	"fmt"

	"github.com/gitrdm/goplanner/pkg/bitset"
)

// Problem is a planning problem over a Domain: objects, initial atoms and the
// goal. It owns one AtomTable per tag, which the generators extend while
// grounding.
type Problem struct {
	Name   string
	Domain *Domain

	objects      []*Object
	objectByName map[string]*Object
	typeCache    map[int][]int

	atoms [NumTags]*AtomTable

	initialStatic bitset.Set
	initialFluent bitset.Set

	goal          []GroundLiteral
	goalCondition GroundCondition
}

// NewProblem creates a problem whose first objects are the domain constants.
func NewProblem(name string, domain *Domain) *Problem {
	p := &Problem{
		Name:         name,
		Domain:       domain,
		objectByName: make(map[string]*Object),
		typeCache:    make(map[int][]int),
	}
	for _, tag := range Tags {
		p.atoms[tag] = NewAtomTable(tag)
	}
	for _, constant := range domain.Constants() {
		p.objects = append(p.objects, constant)
		p.objectByName[constant.Name] = constant
	}
	return p
}

// AddObject declares a problem object.
func (p *Problem) AddObject(name string, typ *Type) (*Object, error) {
	if _, ok := p.objectByName[name]; ok {
		return nil, fmt.Errorf("%w: object %q", ErrDuplicateSymbol, name)
	}
	obj := &Object{ID: len(p.objects), Name: name, Type: typ}
	p.objects = append(p.objects, obj)
	p.objectByName[name] = obj
	clear(p.typeCache)
	return obj, nil
}

// Object resolves an object or constant by name.
func (p *Problem) Object(name string) (*Object, bool) {
	obj, ok := p.objectByName[name]
	return obj, ok
}

// ObjectByID returns the object with the given id. Panics on unknown ids.
func (p *Problem) ObjectByID(id int) *Object {
	if id < 0 || id >= len(p.objects) {
		panic(fmt.Sprintf("formalism: object id %d out of range (have %d)", id, len(p.objects)))
	}
	return p.objects[id]
}

// Objects returns all objects in id order.
func (p *Problem) Objects() []*Object {
	return p.objects
}

// ObjectsOfType returns the ids of objects whose type is typ or a subtype of
// it, in ascending order. A nil typ returns every object.
func (p *Problem) ObjectsOfType(typ *Type) []int {
	key := -1
	if typ != nil {
		key = typ.ID
	}
	if ids, ok := p.typeCache[key]; ok {
		return ids
	}
	ids := make([]int, 0, len(p.objects))
	for _, obj := range p.objects {
		if typ == nil || (obj.Type != nil && obj.Type.IsSubtypeOf(typ)) {
			ids = append(ids, obj.ID)
		}
	}
	p.typeCache[key] = ids
	return ids
}

// Atoms returns the atom table for tag.
func (p *Problem) Atoms(tag Tag) *AtomTable {
	return p.atoms[tag]
}

func (p *Problem) objectIDs(pred *Predicate, objects []*Object) ([]int, error) {
	if len(objects) != pred.Arity {
		return nil, fmt.Errorf("%w: %q expects %d objects, got %d",
			ErrInvalidDefinition, pred.Name, pred.Arity, len(objects))
	}
	ids := make([]int, len(objects))
	for i, obj := range objects {
		if obj == nil || obj.ID >= len(p.objects) || p.objects[obj.ID] != obj {
			return nil, fmt.Errorf("%w: object at position %d of %q", ErrUnknownSymbol, i, pred.Name)
		}
		ids[i] = obj.ID
	}
	return ids, nil
}

// AddInitial adds a static or fluent atom to the initial state. Derived atoms
// cannot be asserted initially; they are computed by axioms.
func (p *Problem) AddInitial(pred *Predicate, objects ...*Object) error {
	if pred.Tag == Derived {
		return fmt.Errorf("%w: derived predicate %q in initial state", ErrUnsupported, pred.Name)
	}
	ids, err := p.objectIDs(pred, objects)
	if err != nil {
		return err
	}
	atom := p.atoms[pred.Tag].Intern(pred, ids)
	if pred.Tag == Static {
		p.initialStatic.Set(atom.ID)
	} else {
		p.initialFluent.Set(atom.ID)
	}
	return nil
}

// AddGoal adds a ground goal literal.
func (p *Problem) AddGoal(pred *Predicate, negated bool, objects ...*Object) error {
	ids, err := p.objectIDs(pred, objects)
	if err != nil {
		return err
	}
	atom := p.atoms[pred.Tag].Intern(pred, ids)
	p.goal = append(p.goal, GroundLiteral{Atom: atom, Negated: negated})
	p.goalCondition.Add(pred.Tag, atom.ID, negated)
	return nil
}

// InitialStatic returns the static atoms holding in every state.
func (p *Problem) InitialStatic() bitset.Set {
	return p.initialStatic
}

// InitialFluent returns the fluent atoms of the initial state.
func (p *Problem) InitialFluent() bitset.Set {
	return p.initialFluent
}

// Goal returns the goal literals in declaration order.
func (p *Problem) Goal() []GroundLiteral {
	return p.goal
}

// GoalCondition returns the goal as a ground condition.
func (p *Problem) GoalCondition() GroundCondition {
	return p.goalCondition
}

// StaticGoalHolds reports whether the static part of the goal is satisfied by
// the initial static atoms. If it is not, no state can ever satisfy the goal.
func (p *Problem) StaticGoalHolds() bool {
	return p.goalCondition.StaticHolds(p.initialStatic)
}

// GroundAtom substitutes binding into lit and interns the resulting atom.
// scratch is reused for the object tuple and may be nil.
func (p *Problem) GroundAtom(lit Literal, binding []int, scratch []int) *Atom {
	objects := lit.Ground(binding, scratch)
	return p.atoms[lit.Predicate.Tag].Intern(lit.Predicate, objects)
}

// GroundLiterals grounds every literal of lits under binding into cond.
func (p *Problem) GroundLiterals(lits []Literal, binding []int, cond *GroundCondition) {
	scratch := make([]int, 0, 4)
	for _, lit := range lits {
		atom := p.GroundAtom(lit, binding, scratch)
		cond.Add(lit.Predicate.Tag, atom.ID, lit.Negated)
	}
}

// LiteralHolds reports whether lit under binding holds in the given atom
// sets, without interning new atoms.
func (p *Problem) LiteralHolds(lit Literal, binding []int, scratch []int, sets *[NumTags]bitset.Set) bool {
	objects := lit.Ground(binding, scratch)
	atom, ok := p.atoms[lit.Predicate.Tag].Lookup(lit.Predicate, objects)
	present := ok && sets[lit.Predicate.Tag].Get(atom.ID)
	return present != lit.Negated
}

// FormatAtom renders the atom of the given tag and id with object names.
func (p *Problem) FormatAtom(tag Tag, id int) string {
	return p.atoms[tag].Get(id).Format(p.objects)
}
