package statestore

import "fmt"

// DefaultChunkWords is the default arena chunk size in 64-bit words (512 KiB).
const DefaultChunkWords = 1 << 16

// Arena is a segmented bump allocator for state words.
//
// Memory is handed out from fixed-size chunks; when the current chunk cannot
// fit a request a new chunk is started. Blocks larger than a chunk get a
// dedicated chunk of their own. Nothing is ever freed individually: only the
// most recent allocation can be rolled back with Undo, which is how the store
// discards a tentative write that turned out to duplicate an existing state.
type Arena struct {
	chunkWords int
	chunks     [][]uint64
	used       int // words used in the last chunk

	last     allocation
	hasLast  bool
	words    int
	capacity int
}

type allocation struct {
	size     int
	newChunk bool
	prevUsed int
}

// NewArena creates an arena whose chunks hold chunkWords words. A
// non-positive chunkWords selects DefaultChunkWords.
func NewArena(chunkWords int) *Arena {
	if chunkWords <= 0 {
		chunkWords = DefaultChunkWords
	}
	return &Arena{chunkWords: chunkWords}
}

// Allocate returns a zeroed block of n words. The returned slice has its
// capacity clipped to n so appends never spill into neighbouring blocks.
func (a *Arena) Allocate(n int) []uint64 {
	if n < 0 {
		panic(fmt.Sprintf("statestore: negative arena allocation %d", n))
	}
	newChunk := false
	prevUsed := a.used
	if len(a.chunks) == 0 || a.used+n > len(a.chunks[len(a.chunks)-1]) {
		size := a.chunkWords
		if n > size {
			size = n
		}
		a.chunks = append(a.chunks, make([]uint64, size))
		a.used = 0
		a.capacity += size
		newChunk = true
	}
	chunk := a.chunks[len(a.chunks)-1]
	block := chunk[a.used : a.used+n : a.used+n]
	a.used += n
	a.words += n
	a.last = allocation{size: n, newChunk: newChunk, prevUsed: prevUsed}
	a.hasLast = true
	return block
}

// Undo rolls back the most recent allocation. It may be called at most once
// per Allocate; a second call panics.
func (a *Arena) Undo() {
	if !a.hasLast {
		panic("statestore: arena undo without a preceding allocation")
	}
	a.hasLast = false
	a.words -= a.last.size

	if a.last.newChunk {
		dropped := a.chunks[len(a.chunks)-1]
		a.capacity -= len(dropped)
		a.chunks = a.chunks[:len(a.chunks)-1]
		a.used = a.last.prevUsed
		return
	}

	chunk := a.chunks[len(a.chunks)-1]
	clear(chunk[a.used-a.last.size : a.used])
	a.used -= a.last.size
}

// Words returns the number of words currently allocated.
func (a *Arena) Words() int {
	return a.words
}

// Chunks returns the number of chunks.
func (a *Arena) Chunks() int {
	return len(a.chunks)
}

// Capacity returns the number of words reserved across all chunks.
func (a *Arena) Capacity() int {
	return a.capacity
}
