package search

import (
	"math"

	"github.com/gitrdm/goplanner/pkg/bitset"
	"github.com/gitrdm/goplanner/pkg/formalism"
	"github.com/gitrdm/goplanner/pkg/statestore"
)

// DeadEnd is returned by a Heuristic for states from which the goal is
// known to be unreachable.
const DeadEnd = math.MaxInt

// Heuristic estimates the cost from a state to the goal.
type Heuristic interface {
	Estimate(state *statestore.State) int
}

// HeuristicFunc adapts a function to Heuristic.
type HeuristicFunc func(state *statestore.State) int

// Estimate implements Heuristic.
func (f HeuristicFunc) Estimate(state *statestore.State) int {
	return f(state)
}

// Blind returns 0 everywhere; A* with Blind is uniform-cost search.
type Blind struct{}

// Estimate implements Heuristic.
func (Blind) Estimate(*statestore.State) int {
	return 0
}

// GoalCount counts the goal literals that do not hold. It is admissible for
// unit-cost problems whose actions achieve at most one goal atom each.
type GoalCount struct {
	goal formalism.GroundCondition
}

// NewGoalCount builds the heuristic for problem.
func NewGoalCount(problem *formalism.Problem) *GoalCount {
	return &GoalCount{goal: problem.GoalCondition()}
}

// Estimate implements Heuristic.
func (h *GoalCount) Estimate(state *statestore.State) int {
	return missing(h.goal.Positive[formalism.Fluent], state.Fluent, false) +
		missing(h.goal.Negative[formalism.Fluent], state.Fluent, true) +
		missing(h.goal.Positive[formalism.Derived], state.Derived, false) +
		missing(h.goal.Negative[formalism.Derived], state.Derived, true)
}

func missing(goal, atoms bitset.Set, negated bool) int {
	n := 0
	goal.Iterate(func(id int) {
		if atoms.Get(id) == !negated {
			return
		}
		n++
	})
	return n
}
