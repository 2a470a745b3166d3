package search

import (
	"context"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/gitrdm/goplanner/pkg/aag"
	"github.com/gitrdm/goplanner/pkg/bitset"
	"github.com/gitrdm/goplanner/pkg/formalism"
	"github.com/gitrdm/goplanner/pkg/statestore"
)

// strategy customises the shared expansion loop.
type strategy interface {
	// seed is called once per run with the start state.
	seed(start *statestore.State)

	// admit decides what happens to a successor reached with cost g from
	// parent. It returns false to prune the successor.
	admit(node *SearchNode, successor *statestore.State, g int) bool

	// key returns the open-list key of a node; -1 marks a dead end.
	key(node *SearchNode, state *statestore.State) int
}

// engine runs the expansion loop shared by every algorithm.
type engine struct {
	name    string
	store   *statestore.Store
	gen     aag.Generator
	problem *formalism.Problem
	static  bitset.Set
	goal    formalism.GroundCondition
	events  EventHandler
	budget  Budget

	nodes NodeTable
	stats Statistics
}

func newEngine(name string, store *statestore.Store, gen aag.Generator, o options) *engine {
	problem := store.Problem()
	return &engine{
		name:    name,
		store:   store,
		gen:     gen,
		problem: problem,
		static:  store.Static(),
		goal:    problem.GoalCondition(),
		events:  o.events,
		budget:  o.budget,
	}
}

// session is one FindSolution call. The budget and the start/end events
// span the whole session, even when it runs several iterations.
type session struct {
	result Result
	start  *statestore.State
	began  time.Time
}

// begin resets the statistics and fires OnStartSearch.
func (e *engine) begin(start *statestore.State) *session {
	if start == nil {
		start = e.store.InitialState()
	}
	s := &session{
		result: Result{RunID: uuid.NewString()},
		start:  start,
		began:  time.Now(),
	}
	e.stats = Statistics{}
	e.events.OnStartSearch(SearchInfo{
		RunID:     s.result.RunID,
		Algorithm: e.name,
		Problem:   e.problem.Name,
		Start:     start,
	})
	return s
}

// finish fires the outcome event and OnEndSearch.
func (e *engine) finish(s *session, status Status) Result {
	switch status {
	case Solved:
		e.events.OnSolved(s.result.Plan)
	case Unsolvable:
		e.events.OnUnsolvable()
	case Exhausted:
		e.events.OnExhausted()
	}
	e.stats.States = e.store.Len()
	e.stats.SearchTime = time.Since(s.began)
	s.result.Status = status
	s.result.Statistics = e.stats
	e.events.OnEndSearch(status, e.stats)
	return s.result
}

// run performs a single-iteration session.
func (e *engine) run(ctx context.Context, start *statestore.State, open openList, strat strategy) Result {
	s := e.begin(start)
	return e.finish(s, e.search(ctx, s, open, strat))
}

// search runs one iteration from the session's start state with fresh node
// and open tables. Statistics accumulate across iterations.
func (e *engine) search(ctx context.Context, s *session, open openList, strat strategy) Status {
	if !e.problem.StaticGoalHolds() {
		return Unsolvable
	}
	e.nodes.Reset()
	open.clear()

	start := s.start
	strat.seed(start)
	root := e.nodes.Get(start.ID)
	root.G = 0
	root.Parent = -1
	root.Action = nil
	rootKey := strat.key(root, start)
	if rootKey < 0 {
		root.Status = StatusDeadEnd
		e.stats.DeadEnds++
		e.events.OnPruneState(start)
		return Exhausted
	}
	root.Status = StatusOpen
	open.push(start.ID, rootKey)

	layer := rootKey
	interval := e.budget.interval()
	for {
		id, key, ok := open.pop()
		if !ok {
			break
		}
		node := e.nodes.Get(id)
		if node.Status != StatusOpen {
			continue
		}

		if key > layer {
			e.stats.Layers++
			e.events.OnFinishFLayer(layer, e.stats)
			layer = key
		}

		node.Status = StatusClosed
		state := e.store.Get(id)
		if e.goal.DynamicHolds(state.Fluent, state.Derived) {
			s.result.Plan = e.reconstruct(id)
			return Solved
		}

		if e.budget.MaxExpansions > 0 && e.stats.Expanded >= e.budget.MaxExpansions {
			return Timeout
		}
		if e.stats.Expanded%interval == 0 && e.interrupted(ctx, s.began) {
			return Timeout
		}

		e.stats.Expanded++
		e.events.OnExpandState(state)
		for _, action := range e.gen.ApplicableActions(state) {
			successor := e.store.SuccessorState(state, action)
			e.stats.Generated++
			e.events.OnGenerateState(state, action, successor)

			// node may have moved if the table grew
			parent := e.nodes.Get(id)
			child := e.nodes.Get(successor.ID)
			g := parent.G + action.Cost
			if !strat.admit(child, successor, g) {
				e.stats.Pruned++
				e.events.OnPruneState(successor)
				continue
			}

			child.G = g
			child.Parent = id
			child.Action = action
			childKey := strat.key(child, successor)
			if childKey < 0 {
				child.Status = StatusDeadEnd
				e.stats.DeadEnds++
				e.events.OnPruneState(successor)
				continue
			}
			child.Status = StatusOpen
			open.push(successor.ID, childKey)
		}
	}
	return Exhausted
}

// interrupted reports whether ctx is done or the time limit has passed.
func (e *engine) interrupted(ctx context.Context, began time.Time) bool {
	if ctx.Err() != nil {
		return true
	}
	return e.budget.TimeLimit > 0 && time.Since(began) >= e.budget.TimeLimit
}

// reconstruct follows parent pointers from the goal node to the root.
func (e *engine) reconstruct(goalID int) Plan {
	var plan Plan
	for id := goalID; ; {
		node := e.nodes.Get(id)
		if node.Parent < 0 {
			break
		}
		plan.Actions = append(plan.Actions, node.Action)
		plan.Cost += node.Action.Cost
		id = node.Parent
	}
	slices.Reverse(plan.Actions)
	return plan
}

// duplicatePruning admits only successors seen for the first time.
type duplicatePruning struct{}

func (duplicatePruning) seed(*statestore.State) {}

func (duplicatePruning) admit(node *SearchNode, _ *statestore.State, _ int) bool {
	return node.Status == StatusNew
}

func (duplicatePruning) key(node *SearchNode, _ *statestore.State) int {
	return node.G
}
