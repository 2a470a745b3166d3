package search

import (
	"errors"
	"fmt"

	"github.com/gitrdm/goplanner/pkg/statestore"
)

// ErrInvalidPlan is returned by VerifyPlan when a plan does not solve the
// problem.
var ErrInvalidPlan = errors.New("search: invalid plan")

// VerifyPlan replays plan from start (the initial state when nil) and checks
// that every action is applicable, the final state satisfies the goal and
// the reported cost equals the sum of action costs. It returns the final
// state.
func VerifyPlan(store *statestore.Store, start *statestore.State, plan Plan) (*statestore.State, error) {
	if start == nil {
		start = store.InitialState()
	}
	problem := store.Problem()
	static := store.Static()

	state := start
	cost := 0
	for i, action := range plan.Actions {
		if !state.Holds(action.Precondition, static) {
			return state, fmt.Errorf("%w: step %d %s is not applicable", ErrInvalidPlan, i+1, action)
		}
		state = store.SuccessorState(state, action)
		cost += action.Cost
	}

	if !state.Holds(problem.GoalCondition(), static) {
		return state, fmt.Errorf("%w: final state %s does not satisfy the goal", ErrInvalidPlan, store.FormatState(state))
	}
	if cost != plan.Cost {
		return state, fmt.Errorf("%w: reported cost %d, actions sum to %d", ErrInvalidPlan, plan.Cost, cost)
	}
	return state, nil
}
