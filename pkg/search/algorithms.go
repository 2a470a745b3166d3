package search

import (
	"context"

	"github.com/gitrdm/goplanner/pkg/aag"
	"github.com/gitrdm/goplanner/pkg/statestore"
)

// BrFS is breadth-first search with duplicate pruning. With unit costs the
// first plan found is optimal.
type BrFS struct {
	engine *engine
	open   fifoOpenList
}

var _ Algorithm = (*BrFS)(nil)

// NewBrFS creates a breadth-first search over store using gen.
func NewBrFS(store *statestore.Store, gen aag.Generator, opts ...Option) *BrFS {
	return &BrFS{engine: newEngine("brfs", store, gen, buildOptions(opts))}
}

// Name implements Algorithm.
func (s *BrFS) Name() string { return "brfs" }

// FindSolution implements Algorithm.
func (s *BrFS) FindSolution(ctx context.Context, start *statestore.State) Result {
	return s.engine.run(ctx, start, &s.open, duplicatePruning{})
}

// AStar orders the frontier by f = g + h and breaks ties in insertion
// order. A better path to an OPEN state re-queues it; CLOSED states are not
// reopened, so optimality requires a consistent heuristic.
type AStar struct {
	engine    *engine
	heuristic Heuristic
	open      priorityOpenList
}

var _ Algorithm = (*AStar)(nil)

// NewAStar creates an A* search. A nil heuristic means Blind.
func NewAStar(store *statestore.Store, gen aag.Generator, heuristic Heuristic, opts ...Option) *AStar {
	if heuristic == nil {
		heuristic = Blind{}
	}
	return &AStar{
		engine:    newEngine("astar", store, gen, buildOptions(opts)),
		heuristic: heuristic,
	}
}

// Name implements Algorithm.
func (s *AStar) Name() string { return "astar" }

// FindSolution implements Algorithm.
func (s *AStar) FindSolution(ctx context.Context, start *statestore.State) Result {
	return s.engine.run(ctx, start, &s.open, astarStrategy{heuristic: s.heuristic})
}

type astarStrategy struct {
	heuristic Heuristic
}

func (astarStrategy) seed(*statestore.State) {}

func (astarStrategy) admit(node *SearchNode, _ *statestore.State, g int) bool {
	switch node.Status {
	case StatusNew:
		return true
	case StatusOpen:
		return g < node.G
	default:
		return false
	}
}

func (a astarStrategy) key(node *SearchNode, state *statestore.State) int {
	if node.Status == StatusNew {
		node.H = a.heuristic.Estimate(state)
	}
	if node.H == DeadEnd {
		return -1
	}
	return node.G + node.H
}

// DefaultMaxWidth is the largest width IW tries when none is configured.
const DefaultMaxWidth = 2

// IW runs breadth-first searches that prune every successor not making a
// new atom tuple of size at most w true, for w = 0, 1, ... MaxWidth. Node
// and novelty tables are reset between widths; the budget is not.
type IW struct {
	engine   *engine
	maxWidth int
	open     fifoOpenList
}

var _ Algorithm = (*IW)(nil)

// NewIW creates an iterated-width search. A negative maxWidth selects
// DefaultMaxWidth.
func NewIW(store *statestore.Store, gen aag.Generator, maxWidth int, opts ...Option) *IW {
	if maxWidth < 0 {
		maxWidth = DefaultMaxWidth
	}
	return &IW{
		engine:   newEngine("iw", store, gen, buildOptions(opts)),
		maxWidth: maxWidth,
	}
}

// Name implements Algorithm.
func (s *IW) Name() string { return "iw" }

// FindSolution implements Algorithm. The widths share one budget, one run
// id and one pair of start/end events; Statistics are summed over widths and
// Statistics.Width is the last width tried.
func (s *IW) FindSolution(ctx context.Context, start *statestore.State) Result {
	e := s.engine
	sess := e.begin(start)
	status := Exhausted
	for w := 0; w <= s.maxWidth; w++ {
		e.stats.Width = w
		status = e.search(ctx, sess, &s.open, &noveltyPruning{table: NewNoveltyTable(w)})
		if status != Exhausted {
			break
		}
	}
	return e.finish(sess, status)
}

type noveltyPruning struct {
	table *NoveltyTable
}

func (p *noveltyPruning) seed(start *statestore.State) {
	p.table.Reset()
	p.table.IsNovel(start)
}

func (p *noveltyPruning) admit(node *SearchNode, successor *statestore.State, _ int) bool {
	if node.Status != StatusNew {
		return false
	}
	return p.table.IsNovel(successor)
}

func (p *noveltyPruning) key(node *SearchNode, _ *statestore.State) int {
	return node.G
}
