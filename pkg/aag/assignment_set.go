package aag

import (
	"github.com/gitrdm/goplanner/pkg/bitset"
	"github.com/gitrdm/goplanner/pkg/formalism"
)

// AssignmentSet answers "is there a true atom of predicate p with object o at
// position i" (and the same for two positions at once) in constant time.
//
// It is built from the atoms of one tag that hold in a state. The tables are
// a projection of the atom set, so a positive answer only means some atom
// agrees with the queried positions, not that a particular atom is true.
type AssignmentSet struct {
	numObjects int
	tables     []predicateTable
}

type predicateTable struct {
	arity  int
	unary  bitset.Set // pos*n + obj
	binary bitset.Set // (pos1*arity+pos2)*n*n + obj1*n + obj2, pos1 < pos2
}

// NewAssignmentSet allocates tables for predicates over numObjects objects.
func NewAssignmentSet(numObjects int, predicates []*formalism.Predicate) *AssignmentSet {
	as := &AssignmentSet{
		numObjects: numObjects,
		tables:     make([]predicateTable, len(predicates)),
	}
	for _, pred := range predicates {
		as.tables[pred.ID].arity = pred.Arity
	}
	return as
}

// Reset clears the set and inserts every atom whose id is in atoms.
func (as *AssignmentSet) Reset(table *formalism.AtomTable, atoms bitset.Set) {
	for i := range as.tables {
		as.tables[i].unary.Clear()
		as.tables[i].binary.Clear()
	}
	atoms.Iterate(func(id int) {
		as.Insert(table.Get(id))
	})
}

// Insert adds one atom to the tables.
func (as *AssignmentSet) Insert(atom *formalism.Atom) {
	n := as.numObjects
	pt := &as.tables[atom.Predicate.ID]
	for i, oi := range atom.Objects {
		pt.unary.Set(i*n + oi)
		for j := i + 1; j < len(atom.Objects); j++ {
			oj := atom.Objects[j]
			pt.binary.Set((i*pt.arity+j)*n*n + oi*n + oj)
		}
	}
}

// Holds reports whether some atom of pred has obj at position pos.
func (as *AssignmentSet) Holds(pred *formalism.Predicate, pos, obj int) bool {
	return as.tables[pred.ID].unary.Get(pos*as.numObjects + obj)
}

// HoldsPair reports whether some atom of pred has obj1 at pos1 and obj2 at
// pos2. The positions must differ.
func (as *AssignmentSet) HoldsPair(pred *formalism.Predicate, pos1, obj1, pos2, obj2 int) bool {
	if pos1 > pos2 {
		pos1, obj1, pos2, obj2 = pos2, obj2, pos1, obj1
	}
	pt := &as.tables[pred.ID]
	n := as.numObjects
	return pt.binary.Get((pos1*pt.arity+pos2)*n*n + obj1*n + obj2)
}

// atomView is the atom content a consistency graph is evaluated against:
// the true atoms per tag plus their assignment sets.
type atomView struct {
	problem     *formalism.Problem
	sets        [formalism.NumTags]bitset.Set
	assignments [formalism.NumTags]*AssignmentSet
}

func newAtomView(problem *formalism.Problem) *atomView {
	n := len(problem.Objects())
	v := &atomView{problem: problem}
	for _, tag := range formalism.Tags {
		v.assignments[tag] = NewAssignmentSet(n, problem.Domain.Predicates(tag))
	}
	return v
}

// load replaces the content of one tag.
func (v *atomView) load(tag formalism.Tag, atoms bitset.Set) {
	v.sets[tag] = atoms
	v.assignments[tag].Reset(v.problem.Atoms(tag), atoms)
}

// literalHolds checks a literal whose terms are all resolved by binding.
// The view is read-only here, so graphs on different goroutines may share it
// as long as each passes its own scratch.
func (v *atomView) literalHolds(lit formalism.Literal, binding, scratch []int) bool {
	return v.problem.LiteralHolds(lit, binding, scratch, &v.sets)
}
