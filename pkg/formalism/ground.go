package formalism

import (
	"fmt"
	"strings"

	"github.com/gitrdm/goplanner/pkg/bitset"
)

// GroundCondition is a conjunction of ground literals split by tag and
// polarity, so the static part can be checked once and the dynamic part with
// two bitset tests per tag.
type GroundCondition struct {
	Positive [NumTags]bitset.Set
	Negative [NumTags]bitset.Set
}

// Add adds the literal (tag, atomID, negated) to the condition.
func (c *GroundCondition) Add(tag Tag, atomID int, negated bool) {
	if negated {
		c.Negative[tag].Set(atomID)
	} else {
		c.Positive[tag].Set(atomID)
	}
}

// StaticHolds reports whether the static literals hold given the static atoms.
func (c GroundCondition) StaticHolds(static bitset.Set) bool {
	return c.Positive[Static].IsSubsetOf(static) && c.Negative[Static].IsDisjoint(static)
}

// DynamicHolds reports whether the fluent and derived literals hold.
func (c GroundCondition) DynamicHolds(fluent, derived bitset.Set) bool {
	return c.Positive[Fluent].IsSubsetOf(fluent) &&
		c.Negative[Fluent].IsDisjoint(fluent) &&
		c.Positive[Derived].IsSubsetOf(derived) &&
		c.Negative[Derived].IsDisjoint(derived)
}

// Holds reports whether the whole condition holds.
func (c GroundCondition) Holds(static, fluent, derived bitset.Set) bool {
	return c.StaticHolds(static) && c.DynamicHolds(fluent, derived)
}

// IsContradictory reports whether some atom is required both true and false.
func (c GroundCondition) IsContradictory() bool {
	for _, tag := range Tags {
		if !c.Positive[tag].IsDisjoint(c.Negative[tag]) {
			return true
		}
	}
	return false
}

// Len returns the number of literals in the condition.
func (c GroundCondition) Len() int {
	n := 0
	for _, tag := range Tags {
		n += c.Positive[tag].Count() + c.Negative[tag].Count()
	}
	return n
}

// GroundEffect lists the fluent atoms an effect adds and deletes.
type GroundEffect struct {
	Add    bitset.Set
	Delete bitset.Set
}

// GroundConditionalEffect is an effect guarded by a condition evaluated in
// the state the action is applied to.
type GroundConditionalEffect struct {
	Condition GroundCondition
	Effect    GroundEffect
}

// GroundAction is an action schema instantiated with objects. Immutable after
// construction.
type GroundAction struct {
	ID                 int
	Schema             *ActionSchema
	Objects            []*Object
	Precondition       GroundCondition
	Effect             GroundEffect
	ConditionalEffects []GroundConditionalEffect
	Cost               int
}

// ObjectIDs returns the ids of the action's objects.
func (a *GroundAction) ObjectIDs() []int {
	return objectIDs(a.Objects)
}

func (a *GroundAction) String() string {
	return formatGround(a.Schema.Name, a.Objects)
}

// GroundAxiom is an axiom schema instantiated with objects.
type GroundAxiom struct {
	ID      int
	Schema  *AxiomSchema
	Objects []*Object
	Body    GroundCondition
	Head    *Atom
}

// ObjectIDs returns the ids of the axiom's objects.
func (a *GroundAxiom) ObjectIDs() []int {
	return objectIDs(a.Objects)
}

func (a *GroundAxiom) String() string {
	return formatGround(a.Schema.String(), a.Objects)
}

func objectIDs(objects []*Object) []int {
	ids := make([]int, len(objects))
	for i, obj := range objects {
		ids[i] = obj.ID
	}
	return ids
}

func formatGround(name string, objects []*Object) string {
	var builder strings.Builder
	builder.WriteString("(")
	builder.WriteString(name)
	for _, obj := range objects {
		builder.WriteString(" ")
		builder.WriteString(obj.Name)
	}
	builder.WriteString(")")
	return builder.String()
}

// GroundActionTable interns ground actions by (schema id, object tuple) and
// assigns dense ids in insertion order.
type GroundActionTable struct {
	actions []*GroundAction
	index   map[string]int
}

// NewGroundActionTable creates an empty table.
func NewGroundActionTable() *GroundActionTable {
	return &GroundActionTable{index: make(map[string]int)}
}

// Lookup finds the action for schema and object ids.
func (t *GroundActionTable) Lookup(schema *ActionSchema, objects []int) (*GroundAction, bool) {
	id, ok := t.index[tupleKey(schema.ID, objects)]
	if !ok {
		return nil, false
	}
	return t.actions[id], true
}

// Add assigns the next id to action and stores it. Adding an action whose
// (schema, objects) pair is already present is an invariant violation.
func (t *GroundActionTable) Add(action *GroundAction) *GroundAction {
	key := tupleKey(action.Schema.ID, action.ObjectIDs())
	if _, ok := t.index[key]; ok {
		panic(fmt.Sprintf("formalism: ground action %s added twice", action))
	}
	action.ID = len(t.actions)
	t.actions = append(t.actions, action)
	t.index[key] = action.ID
	return action
}

// Get returns the action with the given id. Panics on unknown ids.
func (t *GroundActionTable) Get(id int) *GroundAction {
	if id < 0 || id >= len(t.actions) {
		panic(fmt.Sprintf("formalism: ground action id %d out of range (have %d)", id, len(t.actions)))
	}
	return t.actions[id]
}

// Len returns the number of actions.
func (t *GroundActionTable) Len() int {
	return len(t.actions)
}

// All returns the actions in id order.
func (t *GroundActionTable) All() []*GroundAction {
	return t.actions
}

// GroundAxiomTable interns ground axioms by (schema id, object tuple).
type GroundAxiomTable struct {
	axioms []*GroundAxiom
	index  map[string]int
}

// NewGroundAxiomTable creates an empty table.
func NewGroundAxiomTable() *GroundAxiomTable {
	return &GroundAxiomTable{index: make(map[string]int)}
}

// Lookup finds the axiom for schema and object ids.
func (t *GroundAxiomTable) Lookup(schema *AxiomSchema, objects []int) (*GroundAxiom, bool) {
	id, ok := t.index[tupleKey(schema.ID, objects)]
	if !ok {
		return nil, false
	}
	return t.axioms[id], true
}

// Add assigns the next id to axiom and stores it.
func (t *GroundAxiomTable) Add(axiom *GroundAxiom) *GroundAxiom {
	key := tupleKey(axiom.Schema.ID, axiom.ObjectIDs())
	if _, ok := t.index[key]; ok {
		panic(fmt.Sprintf("formalism: ground axiom %s added twice", axiom))
	}
	axiom.ID = len(t.axioms)
	t.axioms = append(t.axioms, axiom)
	t.index[key] = axiom.ID
	return axiom
}

// Get returns the axiom with the given id. Panics on unknown ids.
func (t *GroundAxiomTable) Get(id int) *GroundAxiom {
	if id < 0 || id >= len(t.axioms) {
		panic(fmt.Sprintf("formalism: ground axiom id %d out of range (have %d)", id, len(t.axioms)))
	}
	return t.axioms[id]
}

// Len returns the number of axioms.
func (t *GroundAxiomTable) Len() int {
	return len(t.axioms)
}

// All returns the axioms in id order.
func (t *GroundAxiomTable) All() []*GroundAxiom {
	return t.axioms
}
