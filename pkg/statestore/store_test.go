package statestore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitrdm/goplanner/pkg/bitset"
	"github.com/gitrdm/goplanner/pkg/formalism"
)

func TestArenaAllocateAndUndo(t *testing.T) {
	arena := NewArena(4)

	a := arena.Allocate(3)
	require.Len(t, a, 3)
	assert.Equal(t, 3, cap(a))
	a[0] = 7

	b := arena.Allocate(2)
	assert.Equal(t, 2, arena.Chunks(), "second block does not fit the first chunk")
	b[1] = 9
	arena.Undo()
	assert.Equal(t, 1, arena.Chunks())
	assert.Equal(t, 3, arena.Words())

	c := arena.Allocate(1)
	assert.Equal(t, 1, arena.Chunks(), "undo restored the fill level of the first chunk")
	assert.Equal(t, uint64(0), c[0])
	assert.Equal(t, uint64(7), a[0], "earlier blocks are untouched")

	arena.Undo()
	assert.Panics(t, arena.Undo, "only the last allocation can be undone")
}

func TestArenaOversizedBlock(t *testing.T) {
	arena := NewArena(2)
	block := arena.Allocate(5)
	assert.Len(t, block, 5)
	assert.Equal(t, 5, arena.Capacity())

	arena.Undo()
	assert.Equal(t, 0, arena.Capacity())
	assert.Equal(t, 0, arena.Words())
}

func TestArenaUndoClearsReusedWords(t *testing.T) {
	arena := NewArena(8)
	block := arena.Allocate(2)
	block[0], block[1] = 1, 2
	arena.Undo()

	again := arena.Allocate(2)
	assert.Equal(t, []uint64{0, 0}, again)
}

// toggleDomain has fluents on(x) and one action per object that adds it.
type toggleDomain struct {
	problem *formalism.Problem
	on      *formalism.Predicate
	lit     *formalism.Predicate
	objects []*formalism.Object
}

func newToggleDomain(t *testing.T, n int) *toggleDomain {
	t.Helper()
	domain := formalism.NewDomain("toggle")
	on, err := domain.AddPredicate("on", formalism.Fluent, 1)
	require.NoError(t, err)
	lit, err := domain.AddPredicate("lit", formalism.Derived, 1)
	require.NoError(t, err)

	problem := formalism.NewProblem("toggle", domain)
	td := &toggleDomain{problem: problem, on: on, lit: lit}
	for i := 0; i < n; i++ {
		obj, err := problem.AddObject(string(rune('a'+i)), nil)
		require.NoError(t, err)
		td.objects = append(td.objects, obj)
	}
	return td
}

func (td *toggleDomain) atom(i int) int {
	return td.problem.Atoms(formalism.Fluent).Intern(td.on, []int{td.objects[i].ID}).ID
}

func (td *toggleDomain) action(add, del []int) *formalism.GroundAction {
	action := &formalism.GroundAction{Cost: 1}
	for _, i := range add {
		action.Effect.Add.Set(td.atom(i))
	}
	for _, i := range del {
		action.Effect.Delete.Set(td.atom(i))
	}
	return action
}

// litEvaluator derives lit(x) for every on(x).
type litEvaluator struct {
	td    *toggleDomain
	calls int
}

func (e *litEvaluator) Evaluate(fluent bitset.Set, derived *bitset.Set) {
	e.calls++
	derived.Clear()
	fluent.Iterate(func(id int) {
		atom := e.td.problem.Atoms(formalism.Fluent).Get(id)
		derivedAtom := e.td.problem.Atoms(formalism.Derived).Intern(e.td.lit, atom.Objects)
		derived.Set(derivedAtom.ID)
	})
}

func TestStoreDeduplicatesEqualContent(t *testing.T) {
	td := newToggleDomain(t, 3)
	store := NewStore(td.problem, nil, WithChunkWords(16))

	initial := store.InitialState()
	assert.Equal(t, 0, initial.ID)
	assert.True(t, initial.Fluent.IsEmpty())

	addA := td.action([]int{0}, nil)
	addB := td.action([]int{1}, nil)

	sA := store.SuccessorState(initial, addA)
	sAB := store.SuccessorState(sA, addB)
	sB := store.SuccessorState(initial, addB)
	sBA := store.SuccessorState(sB, addA)

	assert.Equal(t, 1, sA.ID)
	assert.Equal(t, 2, sAB.ID)
	assert.Equal(t, 3, sB.ID)
	assert.Equal(t, []int{td.atom(1)}, sB.Fluent.IDs(), "successor of the empty state carries only its additions")
	assert.Same(t, sAB, sBA, "equal content must map to the same state")
	assert.Equal(t, 4, store.Len())

	again := store.SuccessorState(sA, addA)
	assert.Same(t, sA, again)

	stats := store.Stats()
	assert.Equal(t, 2, stats.Duplicates)
	assert.Equal(t, 4, stats.States)
	assert.Equal(t, 3, stats.ArenaWords, "three non-empty single-word states; duplicates rolled back")
}

func TestStoreDeleteBeforeAdd(t *testing.T) {
	td := newToggleDomain(t, 2)
	store := NewStore(td.problem, nil)

	initial := store.StateFromFluents(bitset.FromIDs(td.atom(0)))
	both := td.action([]int{0, 1}, []int{0})
	next := store.SuccessorState(initial, both)

	assert.True(t, next.Fluent.Get(td.atom(0)), "add wins over delete")
	assert.True(t, next.Fluent.Get(td.atom(1)))

	drop := td.action(nil, []int{0, 1})
	empty := store.SuccessorState(next, drop)
	assert.True(t, empty.Fluent.IsEmpty())
	assert.Equal(t, store.InitialState().ID, empty.ID, "empty content equals the initial state")
}

func TestStoreConditionalEffectsUsePreState(t *testing.T) {
	td := newToggleDomain(t, 1)
	store := NewStore(td.problem, nil)
	on := td.atom(0)

	flip := &formalism.GroundAction{Cost: 1}
	var whenOn, whenOff formalism.GroundConditionalEffect
	whenOn.Condition.Add(formalism.Fluent, on, false)
	whenOn.Effect.Delete.Set(on)
	whenOff.Condition.Add(formalism.Fluent, on, true)
	whenOff.Effect.Add.Set(on)
	flip.ConditionalEffects = []formalism.GroundConditionalEffect{whenOn, whenOff}

	off := store.InitialState()
	lit := store.SuccessorState(off, flip)
	assert.True(t, lit.Fluent.Get(on))

	back := store.SuccessorState(lit, flip)
	assert.Same(t, off, back)
	assert.Equal(t, 2, store.Len())
}

func TestStoreClosesDerivedAtoms(t *testing.T) {
	td := newToggleDomain(t, 2)
	evaluator := &litEvaluator{td: td}
	store := NewStore(td.problem, evaluator)

	initial := store.InitialState()
	assert.True(t, initial.Derived.IsEmpty())

	next := store.SuccessorState(initial, td.action([]int{1}, nil))
	require.Equal(t, 1, next.Derived.Count())
	derivedAtom := td.problem.Atoms(formalism.Derived).Get(next.Derived.IDs()[0])
	assert.Equal(t, []int{td.objects[1].ID}, derivedAtom.Objects)
	assert.Equal(t, 2, evaluator.calls)
	assert.Equal(t, "{(on b) (lit b)}", store.FormatState(next))
}

func TestStoreStatesStayImmutable(t *testing.T) {
	td := newToggleDomain(t, 70)
	store := NewStore(td.problem, nil, WithChunkWords(2))

	state := store.InitialState()
	seen := []*State{state}
	for i := 0; i < 70; i++ {
		state = store.SuccessorState(state, td.action([]int{i}, nil))
		seen = append(seen, state)
	}
	for i, s := range seen {
		assert.Equal(t, i, s.Fluent.Count(), "state %d", i)
		assert.Same(t, s, store.Get(s.ID))
	}
	assert.Panics(t, func() { store.Get(len(seen)) })
}
