package search

import (
	"encoding/binary"
	"sort"

	"github.com/gitrdm/goplanner/pkg/bitset"
	"github.com/gitrdm/goplanner/pkg/statestore"
)

// NoveltyTable records which atom tuples of size at most Width have been
// true in some state seen so far. A state is novel when it makes at least
// one unseen tuple true. The empty tuple counts, so the first state is
// always novel.
//
// Fluent atom i and derived atom i are numbered 2i and 2i+1.
type NoveltyTable struct {
	width     int
	emptySeen bool
	singles   bitset.Set
	tuples    map[string]struct{}

	atoms []int
	combo []int
	key   []byte
}

// NewNoveltyTable creates a table for tuples up to width atoms.
func NewNoveltyTable(width int) *NoveltyTable {
	return &NoveltyTable{
		width:  width,
		tuples: make(map[string]struct{}),
	}
}

// Width returns the maximum tuple size.
func (t *NoveltyTable) Width() int {
	return t.width
}

// Reset forgets every recorded tuple.
func (t *NoveltyTable) Reset() {
	t.emptySeen = false
	t.singles.Clear()
	clear(t.tuples)
}

// IsNovel records the tuples of state and reports whether any was new.
func (t *NoveltyTable) IsNovel(state *statestore.State) bool {
	novel := !t.emptySeen
	t.emptySeen = true
	if t.width == 0 {
		return novel
	}

	t.atoms = t.atoms[:0]
	state.Fluent.Iterate(func(id int) { t.atoms = append(t.atoms, 2*id) })
	state.Derived.Iterate(func(id int) { t.atoms = append(t.atoms, 2*id+1) })
	sort.Ints(t.atoms)

	for _, a := range t.atoms {
		if !t.singles.Get(a) {
			t.singles.Set(a)
			novel = true
		}
	}
	for size := 2; size <= t.width && size <= len(t.atoms); size++ {
		if t.recordTuples(size) {
			novel = true
		}
	}
	return novel
}

// recordTuples inserts every size-element combination of t.atoms.
func (t *NoveltyTable) recordTuples(size int) bool {
	novel := false
	t.combo = t.combo[:0]
	var walk func(start int)
	walk = func(start int) {
		if len(t.combo) == size {
			t.key = t.key[:0]
			for _, a := range t.combo {
				t.key = binary.AppendUvarint(t.key, uint64(a))
			}
			if _, ok := t.tuples[string(t.key)]; !ok {
				t.tuples[string(t.key)] = struct{}{}
				novel = true
			}
			return
		}
		for i := start; i <= len(t.atoms)-(size-len(t.combo)); i++ {
			t.combo = append(t.combo, t.atoms[i])
			walk(i + 1)
			t.combo = t.combo[:len(t.combo)-1]
		}
	}
	walk(0)
	return novel
}
