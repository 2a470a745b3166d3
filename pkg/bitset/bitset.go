// Package bitset provides the dense bitset used for atom sets, states and
// ground action conditions throughout the planner.
//
// A Set is a growable array of uint64 words where bit i represents the
// element with id i. Ids are 0-based and dense, which matches the id spaces
// handed out by the formalism interning tables.
//
// Two sets are equal when they contain the same ids, regardless of how many
// trailing zero words either one carries. Hash respects the same rule, so a
// Set can be used as content key for hash-consing tables.
package bitset

import (
	"encoding/binary"
	"fmt"
	"math/bits"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Set is a dense bitset over non-negative integer ids.
//
// The zero value is an empty set ready for use. Mutating methods take a
// pointer receiver and grow the word slice on demand; read-only methods take
// a value receiver and treat missing words as zero.
type Set struct {
	words []uint64
}

// New creates an empty set with room for ids in [0, capacity) without
// reallocation.
func New(capacity int) Set {
	if capacity <= 0 {
		return Set{}
	}
	return Set{words: make([]uint64, (capacity+63)/64)}
}

// FromIDs creates a set containing exactly the given ids.
func FromIDs(ids ...int) Set {
	var s Set
	for _, id := range ids {
		s.Set(id)
	}
	return s
}

// FromWords wraps an existing word slice without copying.
// The caller must not mutate words afterwards if the set is shared.
func FromWords(words []uint64) Set {
	return Set{words: words}
}

func checkID(id int) {
	if id < 0 {
		panic(fmt.Sprintf("bitset: negative id %d", id))
	}
}

func (s *Set) grow(wordIdx int) {
	if wordIdx < len(s.words) {
		return
	}
	if wordIdx < cap(s.words) {
		// words past len may hold bits from before a shrinking CopyFrom
		n := len(s.words)
		s.words = s.words[:wordIdx+1]
		clear(s.words[n:])
		return
	}
	newWords := make([]uint64, wordIdx+1, 2*(wordIdx+1))
	copy(newWords, s.words)
	s.words = newWords
}

// Set adds id to the set.
func (s *Set) Set(id int) {
	checkID(id)
	wordIdx := id / 64
	s.grow(wordIdx)
	s.words[wordIdx] |= 1 << uint(id%64)
}

// Unset removes id from the set. Removing an absent id is a no-op.
func (s *Set) Unset(id int) {
	checkID(id)
	wordIdx := id / 64
	if wordIdx >= len(s.words) {
		return
	}
	s.words[wordIdx] &^= 1 << uint(id%64)
}

// Get reports whether id is in the set. O(1).
func (s Set) Get(id int) bool {
	checkID(id)
	wordIdx := id / 64
	if wordIdx >= len(s.words) {
		return false
	}
	return (s.words[wordIdx]>>uint(id%64))&1 == 1
}

// Count returns the number of ids in the set using hardware popcount.
func (s Set) Count() int {
	count := 0
	for _, word := range s.words {
		count += bits.OnesCount64(word)
	}
	return count
}

// IsEmpty reports whether the set has no ids.
func (s Set) IsEmpty() bool {
	for _, word := range s.words {
		if word != 0 {
			return false
		}
	}
	return true
}

// IsSubsetOf reports whether every id of s is also in other.
func (s Set) IsSubsetOf(other Set) bool {
	for i, word := range s.words {
		if word == 0 {
			continue
		}
		if i >= len(other.words) || word&^other.words[i] != 0 {
			return false
		}
	}
	return true
}

// IsSupersetOf reports whether every id of other is also in s.
func (s Set) IsSupersetOf(other Set) bool {
	return other.IsSubsetOf(s)
}

// IsDisjoint reports whether s and other share no id.
func (s Set) IsDisjoint(other Set) bool {
	n := min(len(s.words), len(other.words))
	for i := 0; i < n; i++ {
		if s.words[i]&other.words[i] != 0 {
			return false
		}
	}
	return true
}

// UnionWith adds every id of other to s.
func (s *Set) UnionWith(other Set) {
	if len(other.words) == 0 {
		return
	}
	s.grow(len(other.words) - 1)
	for i, word := range other.words {
		s.words[i] |= word
	}
}

// DifferenceWith removes every id of other from s.
func (s *Set) DifferenceWith(other Set) {
	n := min(len(s.words), len(other.words))
	for i := 0; i < n; i++ {
		s.words[i] &^= other.words[i]
	}
}

// Clear removes all ids while keeping the allocated capacity.
func (s *Set) Clear() {
	for i := range s.words {
		s.words[i] = 0
	}
}

// CopyFrom makes s equal to other, reusing the storage of s where possible.
func (s *Set) CopyFrom(other Set) {
	if cap(s.words) < len(other.words) {
		s.words = make([]uint64, len(other.words))
	} else {
		s.words = s.words[:len(other.words)]
	}
	copy(s.words, other.words)
}

// Clone returns an independent copy of s.
func (s Set) Clone() Set {
	words := make([]uint64, len(s.words))
	copy(words, s.words)
	return Set{words: words}
}

// Equal reports whether s and other contain the same ids.
func (s Set) Equal(other Set) bool {
	a, b := s.Words(), other.Words()
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Words returns the backing words with trailing zero words trimmed.
// The returned slice aliases the set's storage.
func (s Set) Words() []uint64 {
	n := len(s.words)
	for n > 0 && s.words[n-1] == 0 {
		n--
	}
	return s.words[:n]
}

// Iterate calls f for each id in ascending order.
func (s Set) Iterate(f func(id int)) {
	for wordIdx, word := range s.words {
		for word != 0 {
			offset := bits.TrailingZeros64(word)
			f(wordIdx*64 + offset)
			word &= word - 1
		}
	}
}

// IDs returns the ids of the set in ascending order.
func (s Set) IDs() []int {
	ids := make([]int, 0, s.Count())
	s.Iterate(func(id int) {
		ids = append(ids, id)
	})
	return ids
}

// Hash returns a content hash that is equal for equal sets.
func (s Set) Hash() uint64 {
	return HashWords(s.Words())
}

// HashWords hashes a word slice with xxhash. Callers that want set semantics
// must trim trailing zero words first (see Set.Words).
func HashWords(words []uint64) uint64 {
	var buf [8]byte
	digest := xxhash.New()
	for _, word := range words {
		binary.LittleEndian.PutUint64(buf[:], word)
		_, _ = digest.Write(buf[:])
	}
	return digest.Sum64()
}

// String returns a human-readable representation such as "{0,3,17}".
func (s Set) String() string {
	var builder strings.Builder
	builder.WriteString("{")
	first := true
	s.Iterate(func(id int) {
		if !first {
			builder.WriteString(",")
		}
		first = false
		fmt.Fprintf(&builder, "%d", id)
	})
	builder.WriteString("}")
	return builder.String()
}
