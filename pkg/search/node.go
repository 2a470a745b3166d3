package search

import (
	"container/heap"
	"fmt"

	"github.com/gitrdm/goplanner/pkg/formalism"
)

// NodeStatus is the lifecycle of a state within one search call:
// NEW -> OPEN -> CLOSED, or NEW/OPEN -> DEAD_END.
type NodeStatus uint8

const (
	StatusNew NodeStatus = iota
	StatusOpen
	StatusClosed
	StatusDeadEnd
)

func (s NodeStatus) String() string {
	switch s {
	case StatusNew:
		return "NEW"
	case StatusOpen:
		return "OPEN"
	case StatusClosed:
		return "CLOSED"
	case StatusDeadEnd:
		return "DEAD_END"
	default:
		return fmt.Sprintf("NodeStatus(%d)", uint8(s))
	}
}

// SearchNode is the per-state search bookkeeping.
type SearchNode struct {
	Status NodeStatus
	G      int
	H      int
	Parent int // state id, -1 for the root
	Action *formalism.GroundAction
}

// NodeTable maps state ids to search nodes. It grows as states are
// discovered; unseen ids read as NEW nodes.
type NodeTable struct {
	nodes []SearchNode
}

// Get returns the node for a state id, growing the table as needed.
func (t *NodeTable) Get(stateID int) *SearchNode {
	if stateID < 0 {
		panic(fmt.Sprintf("search: negative state id %d", stateID))
	}
	for len(t.nodes) <= stateID {
		t.nodes = append(t.nodes, SearchNode{Parent: -1})
	}
	return &t.nodes[stateID]
}

// Reset forgets every node while keeping the allocation.
func (t *NodeTable) Reset() {
	t.nodes = t.nodes[:0]
}

// Len returns the number of nodes allocated so far.
func (t *NodeTable) Len() int {
	return len(t.nodes)
}

// openList is the frontier discipline of a search.
type openList interface {
	push(stateID, key int)
	pop() (stateID, key int, ok bool)
	len() int
	clear()
}

// fifoOpenList pops in insertion order.
type fifoOpenList struct {
	ids  []int
	keys []int
	head int
}

func (l *fifoOpenList) push(stateID, key int) {
	l.ids = append(l.ids, stateID)
	l.keys = append(l.keys, key)
}

func (l *fifoOpenList) pop() (int, int, bool) {
	if l.head == len(l.ids) {
		return 0, 0, false
	}
	id, key := l.ids[l.head], l.keys[l.head]
	l.head++
	if l.head == len(l.ids) {
		l.clear()
	}
	return id, key, true
}

func (l *fifoOpenList) len() int {
	return len(l.ids) - l.head
}

func (l *fifoOpenList) clear() {
	l.ids = l.ids[:0]
	l.keys = l.keys[:0]
	l.head = 0
}

// priorityOpenList pops the smallest key first; equal keys pop in insertion
// order.
type priorityOpenList struct {
	entries priorityEntries
	seq     int
}

type priorityEntry struct {
	key     int
	seq     int
	stateID int
}

type priorityEntries []priorityEntry

func (p priorityEntries) Len() int { return len(p) }
func (p priorityEntries) Less(i, j int) bool {
	if p[i].key != p[j].key {
		return p[i].key < p[j].key
	}
	return p[i].seq < p[j].seq
}
func (p priorityEntries) Swap(i, j int) { p[i], p[j] = p[j], p[i] }
func (p *priorityEntries) Push(x any)   { *p = append(*p, x.(priorityEntry)) }
func (p *priorityEntries) Pop() any {
	old := *p
	n := len(old)
	entry := old[n-1]
	*p = old[:n-1]
	return entry
}

func (l *priorityOpenList) push(stateID, key int) {
	heap.Push(&l.entries, priorityEntry{key: key, seq: l.seq, stateID: stateID})
	l.seq++
}

func (l *priorityOpenList) pop() (int, int, bool) {
	if len(l.entries) == 0 {
		return 0, 0, false
	}
	entry := heap.Pop(&l.entries).(priorityEntry)
	return entry.stateID, entry.key, true
}

func (l *priorityOpenList) len() int {
	return len(l.entries)
}

func (l *priorityOpenList) clear() {
	l.entries = l.entries[:0]
	l.seq = 0
}
