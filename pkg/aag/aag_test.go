package aag

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitrdm/goplanner/internal/fixtures"
	"github.com/gitrdm/goplanner/pkg/bitset"
	"github.com/gitrdm/goplanner/pkg/formalism"
	"github.com/gitrdm/goplanner/pkg/statestore"
)

func actionNames(actions []*formalism.GroundAction) []string {
	names := make([]string, len(actions))
	for i, action := range actions {
		names[i] = action.String()
	}
	return names
}

func sortedNames(actions []*formalism.GroundAction) []string {
	names := actionNames(actions)
	sort.Strings(names)
	return names
}

// reachable explores every state reachable from the initial state with gen
// and returns them in breadth-first order.
func reachable(t *testing.T, store *statestore.Store, gen Generator, limit int) []*statestore.State {
	t.Helper()
	initial := store.InitialState()
	seen := map[int]bool{initial.ID: true}
	queue := []*statestore.State{initial}
	for i := 0; i < len(queue); i++ {
		for _, action := range gen.ApplicableActions(queue[i]) {
			next := store.SuccessorState(queue[i], action)
			if !seen[next.ID] {
				seen[next.ID] = true
				queue = append(queue, next)
			}
		}
		require.LessOrEqual(t, len(queue), limit, "state space larger than expected")
	}
	return queue
}

type fixtureCase struct {
	name    string
	problem func() *formalism.Problem
}

var fixtureCases = []fixtureCase{
	{"scenario-a", fixtures.ScenarioA},
	{"gripper-2", func() *formalism.Problem { return fixtures.Gripper(2) }},
	{"blocksworld", fixtures.Blocksworld},
	{"switches-3", func() *formalism.Problem { return fixtures.Switches(3) }},
}

func TestLiftedAndGroundedAgree(t *testing.T) {
	for _, tc := range fixtureCases {
		t.Run(tc.name, func(t *testing.T) {
			problem := tc.problem()
			lifted, err := NewLiftedGenerator(problem)
			require.NoError(t, err)
			grounded, err := NewGroundedGenerator(context.Background(), problem, Options{Workers: 2})
			require.NoError(t, err)

			store := statestore.NewStore(problem, lifted.AxiomEvaluator())
			states := reachable(t, store, lifted, 10000)
			require.NotEmpty(t, states)

			for _, state := range states {
				want := sortedNames(lifted.ApplicableActions(state))
				got := sortedNames(grounded.ApplicableActions(state))
				assert.Equal(t, want, got, "state %s", store.FormatState(state))
			}
		})
	}
}

func TestGroundedFilteredOutputIsExact(t *testing.T) {
	for _, tc := range fixtureCases {
		t.Run(tc.name, func(t *testing.T) {
			problem := tc.problem()
			grounded, err := NewGroundedGenerator(context.Background(), problem, Options{LeafThreshold: 1})
			require.NoError(t, err)

			store := statestore.NewStore(problem, grounded.AxiomEvaluator())
			static := problem.InitialStatic()
			for _, state := range reachable(t, store, grounded, 10000) {
				applicable := make(map[int]bool)
				for _, action := range grounded.ApplicableActions(state) {
					applicable[action.ID] = true
				}
				for _, action := range grounded.Actions() {
					holds := action.Precondition.Holds(static, state.Fluent, state.Derived)
					assert.Equal(t, holds, applicable[action.ID], "%s in %s", action, store.FormatState(state))
				}
			}
		})
	}
}

func TestAxiomEvaluatorsAgreeAndAreIdempotent(t *testing.T) {
	problem := fixtures.Blocksworld()
	lifted, err := NewLiftedGenerator(problem)
	require.NoError(t, err)
	grounded, err := NewGroundedGenerator(context.Background(), problem, Options{})
	require.NoError(t, err)

	store := statestore.NewStore(problem, lifted.AxiomEvaluator())
	states := reachable(t, store, lifted, 1000)

	for _, state := range states {
		var fromGrounded bitset.Set
		grounded.AxiomEvaluator().Evaluate(state.Fluent, &fromGrounded)
		assert.True(t, state.Derived.Equal(fromGrounded), "grounded evaluator differs in %s", store.FormatState(state))

		again := state.Derived.Clone()
		lifted.AxiomEvaluator().Evaluate(state.Fluent, &again)
		assert.True(t, state.Derived.Equal(again), "lifted evaluator not idempotent in %s", store.FormatState(state))

		grounded.AxiomEvaluator().Evaluate(state.Fluent, &fromGrounded)
		assert.True(t, state.Derived.Equal(fromGrounded), "grounded evaluator not idempotent")
	}
}

func TestBlocksworldInitialState(t *testing.T) {
	problem := fixtures.Blocksworld()
	lifted, err := NewLiftedGenerator(problem)
	require.NoError(t, err)
	store := statestore.NewStore(problem, lifted.AxiomEvaluator())

	initial := store.InitialState()
	var derived []string
	initial.Derived.Iterate(func(id int) {
		derived = append(derived, problem.FormatAtom(formalism.Derived, id))
	})
	sort.Strings(derived)
	assert.Equal(t, []string{"(above c a)", "(clear b)", "(clear c)", "(covered a)"}, derived)

	assert.Equal(t, []string{"(pickup b)", "(unstack c a)"}, actionNames(lifted.ApplicableActions(initial)))
}

func TestLiftedOrderIsSchemaThenObjects(t *testing.T) {
	problem := fixtures.Gripper(2)
	lifted, err := NewLiftedGenerator(problem)
	require.NoError(t, err)
	store := statestore.NewStore(problem, lifted.AxiomEvaluator())

	got := actionNames(lifted.ApplicableActions(store.InitialState()))
	assert.Equal(t, []string{
		"(move rooma roomb)",
		"(pick ball1 rooma left)",
		"(pick ball1 rooma right)",
		"(pick ball2 rooma left)",
		"(pick ball2 rooma right)",
	}, got)

	stats := lifted.Statistics()
	assert.Equal(t, ModeLifted, stats.Mode)
	assert.Equal(t, 1, stats.Calls)
	assert.Equal(t, 5, stats.Applicable)
	assert.Equal(t, 5, stats.GroundActions)
}

func TestGroundedStatistics(t *testing.T) {
	problem := fixtures.Gripper(1)
	grounded, err := NewGroundedGenerator(context.Background(), problem, Options{})
	require.NoError(t, err)

	stats := grounded.Statistics()
	assert.Equal(t, ModeGrounded, stats.Mode)
	// move x2, pick x4, drop x4
	assert.Equal(t, 10, stats.GroundActions)
	assert.Positive(t, stats.RelaxationIterations)
	assert.Positive(t, grounded.TreeStats().Nodes)
}

type oddCost struct{}

// Cost is undefined for the second room, so moves into it are inapplicable.
func (oddCost) Cost(objects []*formalism.Object) (int, bool) {
	if objects[1].Name == "roomb" {
		return 0, false
	}
	return 3, true
}

func TestUndefinedCostMakesBindingInapplicable(t *testing.T) {
	problem := fixtures.Gripper(1)
	for _, schema := range problem.Domain.Actions() {
		if schema.Name == "move" {
			schema.Cost = oddCost{}
		}
	}

	lifted, err := NewLiftedGenerator(problem)
	require.NoError(t, err)
	store := statestore.NewStore(problem, nil)
	for _, action := range lifted.ApplicableActions(store.InitialState()) {
		assert.NotEqual(t, "move", action.Schema.Name)
	}

	grounded, err := NewGroundedGenerator(context.Background(), problem, Options{})
	require.NoError(t, err)
	for _, action := range grounded.Actions() {
		assert.NotEqual(t, "(move rooma roomb)", action.String())
	}
}

func TestNonStratifiableAxiomsAreRejected(t *testing.T) {
	domain := formalism.NewDomain("cycle")
	f, _ := domain.AddPredicate("f", formalism.Fluent, 0)
	a, _ := domain.AddPredicate("a", formalism.Derived, 0)
	require.NoError(t, domain.AddAxiom(&formalism.AxiomSchema{
		Body: []formalism.Literal{formalism.Pos(f), formalism.Neg(a)},
		Head: formalism.Pos(a),
	}))
	problem := formalism.NewProblem("cycle", domain)

	for _, mode := range []Mode{ModeLifted, ModeGrounded} {
		_, err := New(context.Background(), mode, problem, Options{})
		assert.ErrorIs(t, err, formalism.ErrUnsupported, string(mode))
	}
	_, err := New(context.Background(), Mode("magic"), problem, Options{})
	assert.ErrorIs(t, err, formalism.ErrUnsupported)
}

func TestGroundedHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewGroundedGenerator(ctx, fixtures.Gripper(2), Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAssignmentSet(t *testing.T) {
	domain := formalism.NewDomain("d")
	on, _ := domain.AddPredicate("on", formalism.Fluent, 3)
	table := formalism.NewAtomTable(formalism.Fluent)
	atom := table.Intern(on, []int{2, 0, 1})

	as := NewAssignmentSet(3, domain.Predicates(formalism.Fluent))
	as.Reset(table, bitset.FromIDs(atom.ID))

	assert.True(t, as.Holds(on, 0, 2))
	assert.False(t, as.Holds(on, 0, 1))
	assert.True(t, as.HoldsPair(on, 0, 2, 2, 1))
	assert.True(t, as.HoldsPair(on, 2, 1, 0, 2), "argument order does not matter")
	assert.False(t, as.HoldsPair(on, 0, 2, 1, 1))

	as.Reset(table, bitset.Set{})
	assert.False(t, as.Holds(on, 0, 2))
}

func TestMatchTreeNeverMissesSatisfiedConditions(t *testing.T) {
	// Conditions over four fluent atoms with mixed polarity.
	literals := [][2][]int{
		{{0}, nil},
		{{0, 1}, nil},
		{{1}, {0}},
		{nil, {2}},
		{{3}, {1, 2}},
		{nil, nil},
		{{0, 3}, {2}},
		{{2}, nil},
	}
	conditions := make([]formalism.GroundCondition, len(literals))
	for i, lits := range literals {
		for _, id := range lits[0] {
			conditions[i].Add(formalism.Fluent, id, false)
		}
		for _, id := range lits[1] {
			conditions[i].Add(formalism.Fluent, id, true)
		}
	}

	for _, threshold := range []int{1, 2, 8} {
		tree := NewMatchTree(conditions, threshold)
		for mask := 0; mask < 16; mask++ {
			var fluent bitset.Set
			for id := 0; id < 4; id++ {
				if mask&(1<<id) != 0 {
					fluent.Set(id)
				}
			}
			found := make(map[int]bool)
			for _, e := range tree.Lookup(fluent, bitset.Set{}, nil) {
				found[e] = true
			}
			for i, cond := range conditions {
				if cond.DynamicHolds(fluent, bitset.Set{}) {
					assert.True(t, found[i], "threshold %d mask %04b misses %d", threshold, mask, i)
				}
			}
		}
	}
}
