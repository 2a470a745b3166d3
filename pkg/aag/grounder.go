package aag

import (
	"github.com/gitrdm/goplanner/pkg/formalism"
)

// Grounder instantiates schemas under bindings and interns the results, so a
// (schema, objects) pair is built at most once per problem.
type Grounder struct {
	problem *formalism.Problem
	actions *formalism.GroundActionTable
	axioms  *formalism.GroundAxiomTable

	// bindings whose cost function was undefined
	rejected map[string]struct{}
}

// NewGrounder creates a grounder with empty tables.
func NewGrounder(problem *formalism.Problem) *Grounder {
	return &Grounder{
		problem:  problem,
		actions:  formalism.NewGroundActionTable(),
		axioms:   formalism.NewGroundAxiomTable(),
		rejected: make(map[string]struct{}),
	}
}

// Actions returns the table of ground actions built so far.
func (g *Grounder) Actions() *formalism.GroundActionTable {
	return g.actions
}

// Axioms returns the table of ground axioms built so far.
func (g *Grounder) Axioms() *formalism.GroundAxiomTable {
	return g.axioms
}

func (g *Grounder) resolve(binding []int) []*formalism.Object {
	objects := make([]*formalism.Object, len(binding))
	for i, id := range binding {
		objects[i] = g.problem.ObjectByID(id)
	}
	return objects
}

// Action returns the ground action for schema under binding. ok is false when
// the schema's cost function is undefined for the binding; such bindings are
// not applicable.
func (g *Grounder) Action(schema *formalism.ActionSchema, binding []int) (*formalism.GroundAction, bool) {
	if action, ok := g.actions.Lookup(schema, binding); ok {
		return action, true
	}
	key := bindingKey(schema.ID, binding)
	if _, ok := g.rejected[key]; ok {
		return nil, false
	}

	objects := g.resolve(binding)
	cost, ok := schema.CostOf(objects)
	if !ok {
		g.rejected[key] = struct{}{}
		return nil, false
	}

	action := &formalism.GroundAction{
		Schema:  schema,
		Objects: objects,
		Cost:    cost,
	}
	g.problem.GroundLiterals(schema.Precondition, binding, &action.Precondition)
	g.groundEffect(schema.Effect, binding, &action.Effect)
	for _, cond := range schema.ConditionalEffects {
		var ground formalism.GroundConditionalEffect
		g.problem.GroundLiterals(cond.Condition, binding, &ground.Condition)
		g.groundEffect(cond.Effect, binding, &ground.Effect)
		action.ConditionalEffects = append(action.ConditionalEffects, ground)
	}
	return g.actions.Add(action), true
}

func (g *Grounder) groundEffect(lits []formalism.Literal, binding []int, effect *formalism.GroundEffect) {
	for _, lit := range lits {
		atom := g.problem.GroundAtom(lit, binding, nil)
		if lit.Negated {
			effect.Delete.Set(atom.ID)
		} else {
			effect.Add.Set(atom.ID)
		}
	}
}

// Axiom returns the ground axiom for schema under binding.
func (g *Grounder) Axiom(schema *formalism.AxiomSchema, binding []int) *formalism.GroundAxiom {
	if axiom, ok := g.axioms.Lookup(schema, binding); ok {
		return axiom
	}
	axiom := &formalism.GroundAxiom{
		Schema:  schema,
		Objects: g.resolve(binding),
		Head:    g.problem.GroundAtom(schema.Head, binding, nil),
	}
	g.problem.GroundLiterals(schema.Body, binding, &axiom.Body)
	return g.axioms.Add(axiom)
}

func bindingKey(schemaID int, binding []int) string {
	buf := make([]byte, 0, 4*(len(binding)+1))
	buf = appendInt(buf, schemaID)
	for _, id := range binding {
		buf = appendInt(buf, id)
	}
	return string(buf)
}

func appendInt(buf []byte, v int) []byte {
	return append(buf, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}
