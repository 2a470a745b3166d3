package aag

import (
	"sort"

	"github.com/gitrdm/goplanner/pkg/bitset"
	"github.com/gitrdm/goplanner/pkg/formalism"
)

// MatchTree indexes a fixed list of ground conditions by the fluent and
// derived atoms they test.
//
// Each internal node tests one atom and has three children: elements that
// need the atom true, elements that need it false, and elements that do not
// mention it. Lookup follows the branch matching the state plus the
// don't-care branch at every node, so the result is a superset of the
// elements whose dynamic condition holds. Callers must re-check the full
// condition of every returned element.
type MatchTree struct {
	root      *matchNode
	threshold int
	nodes     int
	leaves    int
	depth     int
}

type matchNode struct {
	tag       formalism.Tag
	atom      int
	whenTrue  *matchNode
	whenFalse *matchNode
	dontCare  *matchNode
	elements  []int
}

func (n *matchNode) isLeaf() bool {
	return n.whenTrue == nil && n.whenFalse == nil && n.dontCare == nil
}

type atomKey struct {
	tag formalism.Tag
	id  int
}

func (a atomKey) less(b atomKey) bool {
	if a.tag != b.tag {
		return a.tag < b.tag
	}
	return a.id < b.id
}

// NewMatchTree builds a tree over conditions; element i of the tree is
// conditions[i]. Splitting stops once a node holds at most threshold
// elements or no untested atom remains.
func NewMatchTree(conditions []formalism.GroundCondition, threshold int) *MatchTree {
	if threshold <= 0 {
		threshold = DefaultLeafThreshold
	}
	t := &MatchTree{threshold: threshold}
	elements := make([]int, len(conditions))
	for i := range elements {
		elements[i] = i
	}
	tested := make(map[atomKey]bool)
	t.root = t.build(conditions, elements, tested, 1)
	return t
}

func (t *MatchTree) build(conditions []formalism.GroundCondition, elements []int, tested map[atomKey]bool, depth int) *matchNode {
	if len(elements) == 0 {
		return nil
	}
	t.nodes++
	if depth > t.depth {
		t.depth = depth
	}

	if len(elements) <= t.threshold {
		t.leaves++
		return &matchNode{elements: elements}
	}
	split, ok := t.chooseSplit(conditions, elements, tested)
	if !ok {
		t.leaves++
		return &matchNode{elements: elements}
	}

	var whenTrue, whenFalse, dontCare []int
	for _, e := range elements {
		cond := &conditions[e]
		switch {
		case cond.Positive[split.tag].Get(split.id):
			whenTrue = append(whenTrue, e)
		case cond.Negative[split.tag].Get(split.id):
			whenFalse = append(whenFalse, e)
		default:
			dontCare = append(dontCare, e)
		}
	}

	tested[split] = true
	node := &matchNode{
		tag:       split.tag,
		atom:      split.id,
		whenTrue:  t.build(conditions, whenTrue, tested, depth+1),
		whenFalse: t.build(conditions, whenFalse, tested, depth+1),
		dontCare:  t.build(conditions, dontCare, tested, depth+1),
	}
	delete(tested, split)
	return node
}

// chooseSplit returns the untested dynamic atom mentioned by most elements.
// Ties go to the lowest tag, then the lowest atom id.
func (t *MatchTree) chooseSplit(conditions []formalism.GroundCondition, elements []int, tested map[atomKey]bool) (atomKey, bool) {
	counts := make(map[atomKey]int)
	for _, e := range elements {
		cond := &conditions[e]
		for _, tag := range [2]formalism.Tag{formalism.Fluent, formalism.Derived} {
			count := func(id int) {
				key := atomKey{tag: tag, id: id}
				if !tested[key] {
					counts[key]++
				}
			}
			cond.Positive[tag].Iterate(count)
			cond.Negative[tag].Iterate(count)
		}
	}

	var best atomKey
	bestCount := 0
	for key, count := range counts {
		if count > bestCount || (count == bestCount && key.less(best)) {
			best, bestCount = key, count
		}
	}
	return best, bestCount > 0
}

// Lookup appends to dst the elements whose tested atoms are consistent with
// fluent and derived, in ascending order.
func (t *MatchTree) Lookup(fluent, derived bitset.Set, dst []int) []int {
	start := len(dst)
	dst = t.collect(t.root, fluent, derived, dst)
	sort.Ints(dst[start:])
	return dst
}

func (t *MatchTree) collect(node *matchNode, fluent, derived bitset.Set, dst []int) []int {
	for node != nil {
		if node.isLeaf() {
			return append(dst, node.elements...)
		}
		dst = t.collect(node.dontCare, fluent, derived, dst)
		set := fluent
		if node.tag == formalism.Derived {
			set = derived
		}
		if set.Get(node.atom) {
			node = node.whenTrue
		} else {
			node = node.whenFalse
		}
	}
	return dst
}

// MatchTreeStats describes the shape of a tree.
type MatchTreeStats struct {
	Nodes  int
	Leaves int
	Depth  int
}

// Stats returns the shape of the tree.
func (t *MatchTree) Stats() MatchTreeStats {
	return MatchTreeStats{Nodes: t.nodes, Leaves: t.leaves, Depth: t.depth}
}
