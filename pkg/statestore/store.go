// Package statestore implements the content-addressed table of immutable
// search states.
//
// A state is the pair (fluent atoms, derived atoms). Static atoms are global
// to the problem and are not stored per state. The store guarantees that two
// computations producing bitwise-equal content get the same state id, which
// is what makes duplicate detection in the search a simple id comparison.
//
// State words live in a segmented Arena. Successor computation writes the new
// content into the arena first, then looks the content up; a duplicate rolls
// the write back with Arena.Undo.
package statestore

import (
	"fmt"

	"github.com/gitrdm/goplanner/pkg/bitset"
	"github.com/gitrdm/goplanner/pkg/formalism"
)

// AxiomEvaluator closes the derived atoms of a state.
//
// Evaluate clears derived and fills it with every derived atom entailed by
// the fluent atoms and the problem's static atoms. Running it on a closed
// set must be a no-op.
type AxiomEvaluator interface {
	Evaluate(fluent bitset.Set, derived *bitset.Set)
}

// State is an immutable search state. The bitsets alias arena memory and
// must not be modified; Clone them first.
type State struct {
	ID      int
	Fluent  bitset.Set
	Derived bitset.Set
	hash    uint64
}

// Hash returns the content hash of the state.
func (s *State) Hash() uint64 {
	return s.hash
}

// Holds reports whether cond holds in the state given the static atoms.
func (s *State) Holds(cond formalism.GroundCondition, static bitset.Set) bool {
	return cond.Holds(static, s.Fluent, s.Derived)
}

// Option configures a Store.
type Option func(*Store)

// WithChunkWords sets the arena chunk size in words.
func WithChunkWords(words int) Option {
	return func(s *Store) {
		s.arena = NewArena(words)
	}
}

// Store owns the states of one problem.
//
// Thread safety: a Store is not safe for concurrent use. It may be reused by
// sequential search calls on the same problem.
type Store struct {
	problem   *formalism.Problem
	evaluator AxiomEvaluator
	static    bitset.Set

	arena  *Arena
	states []*State
	index  map[uint64][]int

	fluent    bitset.Set
	derived   bitset.Set
	additions bitset.Set
	deletions bitset.Set

	duplicates int
}

// NewStore creates a store for problem. evaluator may be nil when the domain
// has no axioms.
func NewStore(problem *formalism.Problem, evaluator AxiomEvaluator, opts ...Option) *Store {
	s := &Store{
		problem:   problem,
		evaluator: evaluator,
		static:    problem.InitialStatic(),
		index:     make(map[uint64][]int),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.arena == nil {
		s.arena = NewArena(DefaultChunkWords)
	}
	return s
}

// Problem returns the problem the store was built for.
func (s *Store) Problem() *formalism.Problem {
	return s.problem
}

// Static returns the static atoms of the problem.
func (s *Store) Static() bitset.Set {
	return s.static
}

// InitialState returns the state for the problem's initial fluent atoms.
func (s *Store) InitialState() *State {
	return s.StateFromFluents(s.problem.InitialFluent())
}

// StateFromFluents returns the state whose fluent atoms are exactly fluent,
// with derived atoms closed by the evaluator.
func (s *Store) StateFromFluents(fluent bitset.Set) *State {
	s.fluent.CopyFrom(fluent)
	s.closeDerived()
	return s.intern()
}

// SuccessorState applies action to state and returns the resulting state.
//
// Conditional effects fire when their condition holds in state (the
// pre-state). All deletions are applied before all additions, so an atom both
// added and deleted ends up true. The caller is responsible for checking the
// action's precondition.
func (s *Store) SuccessorState(state *State, action *formalism.GroundAction) *State {
	s.additions.CopyFrom(action.Effect.Add)
	s.deletions.CopyFrom(action.Effect.Delete)
	for i := range action.ConditionalEffects {
		cond := &action.ConditionalEffects[i]
		if cond.Condition.Holds(s.static, state.Fluent, state.Derived) {
			s.additions.UnionWith(cond.Effect.Add)
			s.deletions.UnionWith(cond.Effect.Delete)
		}
	}

	s.fluent.CopyFrom(state.Fluent)
	s.fluent.DifferenceWith(s.deletions)
	s.fluent.UnionWith(s.additions)
	s.closeDerived()
	return s.intern()
}

func (s *Store) closeDerived() {
	s.derived.Clear()
	if s.evaluator != nil {
		s.evaluator.Evaluate(s.fluent, &s.derived)
	}
}

// intern stores the content of the scratch sets, returning the existing
// state when the content is already known.
func (s *Store) intern() *State {
	fluentWords := s.fluent.Words()
	derivedWords := s.derived.Words()
	nf := len(fluentWords)

	block := s.arena.Allocate(nf + len(derivedWords))
	copy(block, fluentWords)
	copy(block[nf:], derivedWords)

	fluent := bitset.FromWords(block[:nf:nf])
	derived := bitset.FromWords(block[nf:])
	hash := contentHash(fluent, derived)

	for _, id := range s.index[hash] {
		existing := s.states[id]
		if existing.Fluent.Equal(fluent) && existing.Derived.Equal(derived) {
			s.arena.Undo()
			s.duplicates++
			return existing
		}
	}

	state := &State{
		ID:      len(s.states),
		Fluent:  fluent,
		Derived: derived,
		hash:    hash,
	}
	s.states = append(s.states, state)
	s.index[hash] = append(s.index[hash], state.ID)
	return state
}

func contentHash(fluent, derived bitset.Set) uint64 {
	const mix = 0x9e3779b97f4a7c15
	return fluent.Hash()*mix ^ derived.Hash()
}

// Get returns the state with the given id. Panics on unknown ids.
func (s *Store) Get(id int) *State {
	if id < 0 || id >= len(s.states) {
		panic(fmt.Sprintf("statestore: state id %d out of range (have %d)", id, len(s.states)))
	}
	return s.states[id]
}

// Len returns the number of distinct states.
func (s *Store) Len() int {
	return len(s.states)
}

// Stats summarises store usage.
type Stats struct {
	States        int
	Duplicates    int
	ArenaWords    int
	ArenaCapacity int
	ArenaChunks   int
}

// Stats returns the current usage counters.
func (s *Store) Stats() Stats {
	return Stats{
		States:        len(s.states),
		Duplicates:    s.duplicates,
		ArenaWords:    s.arena.Words(),
		ArenaCapacity: s.arena.Capacity(),
		ArenaChunks:   s.arena.Chunks(),
	}
}

// FormatState renders the true fluent and derived atoms of state.
func (s *Store) FormatState(state *State) string {
	var out []byte
	out = append(out, '{')
	first := true
	emit := func(tag formalism.Tag) func(int) {
		return func(id int) {
			if !first {
				out = append(out, ' ')
			}
			first = false
			out = append(out, s.problem.FormatAtom(tag, id)...)
		}
	}
	state.Fluent.Iterate(emit(formalism.Fluent))
	state.Derived.Iterate(emit(formalism.Derived))
	out = append(out, '}')
	return string(out)
}
