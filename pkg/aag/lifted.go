package aag

import (
	"github.com/gitrdm/goplanner/pkg/formalism"
	"github.com/gitrdm/goplanner/pkg/statestore"
)

// LiftedGenerator finds applicable actions by building a consistency graph
// per action schema for every queried state.
//
// Actions are returned grouped by schema in domain order and, within a
// schema, in lexicographic order of their object ids.
type LiftedGenerator struct {
	problem   *formalism.Problem
	grounder  *Grounder
	view      *atomView
	schemas   []*formalism.ActionSchema
	graphs    []*ConsistencyGraph
	evaluator *LiftedAxiomEvaluator
	stats     Statistics
}

var _ Generator = (*LiftedGenerator)(nil)

// NewLiftedGenerator prepares the static part of every consistency graph.
// It returns formalism.ErrUnsupported when the axioms are not stratifiable.
func NewLiftedGenerator(problem *formalism.Problem) (*LiftedGenerator, error) {
	evaluator, err := NewLiftedAxiomEvaluator(problem)
	if err != nil {
		return nil, err
	}

	view := newAtomView(problem)
	view.load(formalism.Static, problem.InitialStatic())

	g := &LiftedGenerator{
		problem:   problem,
		grounder:  NewGrounder(problem),
		view:      view,
		schemas:   problem.Domain.Actions(),
		evaluator: evaluator,
		stats:     Statistics{Mode: ModeLifted},
	}
	for _, schema := range g.schemas {
		g.graphs = append(g.graphs, newConsistencyGraph(problem, schema.Parameters, schema.Precondition, view))
	}
	return g, nil
}

// ApplicableActions implements Generator.
func (g *LiftedGenerator) ApplicableActions(state *statestore.State) []*formalism.GroundAction {
	g.stats.Calls++
	g.view.load(formalism.Fluent, state.Fluent)
	g.view.load(formalism.Derived, state.Derived)

	var actions []*formalism.GroundAction
	for i, schema := range g.schemas {
		g.graphs[i].Bindings(g.view, false, func(binding []int) bool {
			g.stats.Candidates++
			if action, ok := g.grounder.Action(schema, binding); ok {
				actions = append(actions, action)
			}
			return true
		})
	}
	g.stats.Applicable += len(actions)
	return actions
}

// AxiomEvaluator implements Generator.
func (g *LiftedGenerator) AxiomEvaluator() statestore.AxiomEvaluator {
	return g.evaluator
}

// Grounder exposes the table of actions grounded so far.
func (g *LiftedGenerator) Grounder() *Grounder {
	return g.grounder
}

// Statistics implements Generator.
func (g *LiftedGenerator) Statistics() Statistics {
	stats := g.stats
	stats.GroundActions = g.grounder.Actions().Len()
	return stats
}
