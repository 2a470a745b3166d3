package aag

import (
	"context"
	"fmt"

	"github.com/gitrdm/goplanner/pkg/bitset"
	"github.com/gitrdm/goplanner/pkg/formalism"
	"github.com/gitrdm/goplanner/pkg/statestore"
)

// GroundedGenerator grounds every action and axiom reachable in the delete
// relaxation of the problem before search, then answers queries with a match
// tree followed by a full precondition check.
//
// The universe is computed from the problem's initial state. Searching from
// a start state outside the relaxed-reachable region may miss actions; use
// the lifted generator for such queries.
type GroundedGenerator struct {
	problem   *formalism.Problem
	grounder  *Grounder
	static    bitset.Set
	actions   []*formalism.GroundAction
	tree      *MatchTree
	evaluator *GroundedAxiomEvaluator
	scratch   []int
	stats     Statistics
}

var _ Generator = (*GroundedGenerator)(nil)

// NewGroundedGenerator runs the offline phase. ctx cancels the relaxed
// exploration. It returns formalism.ErrUnsupported when the axioms are not
// stratifiable.
func NewGroundedGenerator(ctx context.Context, problem *formalism.Problem, opts Options) (*GroundedGenerator, error) {
	strata, err := problem.Domain.AxiomStrata()
	if err != nil {
		return nil, err
	}

	grounder := NewGrounder(problem)
	relaxed := newRelaxation(problem, grounder, opts.Workers)
	if err := relaxed.run(ctx); err != nil {
		return nil, err
	}

	actions := grounder.Actions().All()
	conditions := make([]formalism.GroundCondition, len(actions))
	for i, action := range actions {
		conditions[i] = action.Precondition
	}

	g := &GroundedGenerator{
		problem:   problem,
		grounder:  grounder,
		static:    problem.InitialStatic(),
		actions:   actions,
		tree:      NewMatchTree(conditions, opts.leafThreshold()),
		evaluator: newGroundedAxiomEvaluator(problem, strata, grounder.Axioms().All(), opts.leafThreshold()),
		stats: Statistics{
			Mode:                 ModeGrounded,
			GroundActions:        len(actions),
			GroundAxioms:         grounder.Axioms().Len(),
			ReachableAtoms:       relaxed.reached[formalism.Fluent].Count() + relaxed.reached[formalism.Derived].Count(),
			RelaxationIterations: relaxed.iterations,
		},
	}
	return g, nil
}

// ApplicableActions implements Generator. Actions are returned in ascending
// id order.
func (g *GroundedGenerator) ApplicableActions(state *statestore.State) []*formalism.GroundAction {
	g.stats.Calls++
	g.scratch = g.tree.Lookup(state.Fluent, state.Derived, g.scratch[:0])
	g.stats.Candidates += len(g.scratch)

	var actions []*formalism.GroundAction
	for _, id := range g.scratch {
		action := g.actions[id]
		if action.Precondition.Holds(g.static, state.Fluent, state.Derived) {
			actions = append(actions, action)
		}
	}
	g.stats.Applicable += len(actions)
	return actions
}

// AxiomEvaluator implements Generator.
func (g *GroundedGenerator) AxiomEvaluator() statestore.AxiomEvaluator {
	return g.evaluator
}

// Actions returns every grounded action in id order.
func (g *GroundedGenerator) Actions() []*formalism.GroundAction {
	return g.actions
}

// Axioms returns every grounded axiom in id order.
func (g *GroundedGenerator) Axioms() []*formalism.GroundAxiom {
	return g.grounder.Axioms().All()
}

// TreeStats returns the shape of the action match tree.
func (g *GroundedGenerator) TreeStats() MatchTreeStats {
	return g.tree.Stats()
}

// Statistics implements Generator.
func (g *GroundedGenerator) Statistics() Statistics {
	return g.stats
}

// New builds the generator for mode.
func New(ctx context.Context, mode Mode, problem *formalism.Problem, opts Options) (Generator, error) {
	switch mode {
	case ModeGrounded:
		g, err := NewGroundedGenerator(ctx, problem, opts)
		if err != nil {
			return nil, err
		}
		return g, nil
	case ModeLifted, "":
		g, err := NewLiftedGenerator(problem)
		if err != nil {
			return nil, err
		}
		return g, nil
	default:
		return nil, fmt.Errorf("%w: generator mode %q", formalism.ErrUnsupported, mode)
	}
}
