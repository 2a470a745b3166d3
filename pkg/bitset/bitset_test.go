package bitset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSet_SetGetUnset(t *testing.T) {
	var s Set
	assert.True(t, s.IsEmpty())

	s.Set(0)
	s.Set(63)
	s.Set(64)
	s.Set(200)

	assert.True(t, s.Get(0))
	assert.True(t, s.Get(63))
	assert.True(t, s.Get(64))
	assert.True(t, s.Get(200))
	assert.False(t, s.Get(1))
	assert.False(t, s.Get(10_000), "ids beyond the backing words are absent")
	assert.Equal(t, 4, s.Count())

	s.Unset(63)
	s.Unset(5000)
	assert.False(t, s.Get(63))
	assert.Equal(t, []int{0, 64, 200}, s.IDs())
}

func TestSet_NegativeIDPanics(t *testing.T) {
	var s Set
	assert.Panics(t, func() { s.Set(-1) })
	assert.Panics(t, func() { _ = s.Get(-3) })
}

func TestSet_SubsetAndDisjoint(t *testing.T) {
	small := FromIDs(1, 70)
	large := FromIDs(1, 2, 70, 130)
	other := FromIDs(3, 131)

	tests := []struct {
		name string
		got  bool
		want bool
	}{
		{"small subset of large", small.IsSubsetOf(large), true},
		{"large not subset of small", large.IsSubsetOf(small), false},
		{"large superset of small", large.IsSupersetOf(small), true},
		{"empty subset of anything", Set{}.IsSubsetOf(small), true},
		{"small disjoint from other", small.IsDisjoint(other), true},
		{"large not disjoint from small", large.IsDisjoint(small), false},
		{"empty disjoint from anything", Set{}.IsDisjoint(large), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}
}

func TestSet_EqualityIgnoresTrailingZeroWords(t *testing.T) {
	a := FromIDs(5)
	b := New(1024)
	b.Set(5)
	b.Set(900)
	b.Unset(900)

	require.True(t, a.Equal(b))
	assert.Equal(t, a.Hash(), b.Hash())
	assert.Len(t, b.Words(), 1)

	c := FromIDs(6)
	assert.False(t, a.Equal(c))
}

func TestSet_UnionDifferenceCopy(t *testing.T) {
	s := FromIDs(1, 2)
	s.UnionWith(FromIDs(2, 100))
	assert.Equal(t, []int{1, 2, 100}, s.IDs())

	s.DifferenceWith(FromIDs(1, 100, 500))
	assert.Equal(t, []int{2}, s.IDs())

	var d Set
	d.CopyFrom(FromIDs(7, 8))
	clone := d.Clone()
	d.Set(9)
	assert.Equal(t, []int{7, 8}, clone.IDs(), "clone must not share storage")

	d.Clear()
	assert.True(t, d.IsEmpty())
}

func TestSet_GrowAfterShrinkingCopy(t *testing.T) {
	var s Set
	s.Set(0)
	s.Set(70)
	s.CopyFrom(Set{})
	s.Set(1)
	assert.Equal(t, []int{1}, s.IDs())

	s.Set(130)
	s.CopyFrom(FromIDs(3))
	s.UnionWith(FromIDs(129))
	assert.Equal(t, []int{3, 129}, s.IDs())
}

func TestSet_String(t *testing.T) {
	assert.Equal(t, "{}", Set{}.String())
	assert.Equal(t, "{0,3,17}", FromIDs(17, 3, 0).String())
}
