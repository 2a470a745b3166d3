package aag

import (
	"github.com/gitrdm/goplanner/pkg/bitset"
	"github.com/gitrdm/goplanner/pkg/formalism"
)

// ConsistencyGraph prunes the bindings of one schema (action precondition or
// axiom body) before any ground action is built.
//
// A vertex is a (parameter, object) pair that no literal over that parameter
// alone rules out. An edge joins two vertices of different parameters that no
// literal over exactly those two parameters rules out. Literals over three or
// more parameters contribute their positive projections to both checks.
// Every clique with one vertex per parameter is a candidate binding; the
// candidates are then checked against the full condition.
//
// Static literals are evaluated once when the graph is built. Fluent and
// derived literals are evaluated per call to Bindings.
//
// Thread safety: a graph holds per-call scratch state and must not be used
// from two goroutines at once. Distinct graphs may run in parallel over the
// same atom view.
type ConsistencyGraph struct {
	problem    *formalism.Problem
	numObjects int
	arity      int
	condition  []formalism.Literal

	ground []formalism.Literal   // no parameters
	unary  [][]formalism.Literal // by parameter; exactly that parameter
	binary [][]formalism.Literal // by pair index; exactly those two parameters
	wide   []formalism.Literal   // positive literals over three or more parameters

	staticOK       bool
	staticVertices [][]int
	staticEdges    []bitset.Set
	hasStaticEdges []bool
	constrained    []bool

	vertices [][]int
	edges    []bitset.Set
	binding  []int
	scratch  []int
}

func newConsistencyGraph(problem *formalism.Problem, params []formalism.Parameter, condition []formalism.Literal, static *atomView) *ConsistencyGraph {
	k := len(params)
	g := &ConsistencyGraph{
		problem:        problem,
		numObjects:     len(problem.Objects()),
		arity:          k,
		condition:      condition,
		unary:          make([][]formalism.Literal, k),
		binary:         make([][]formalism.Literal, k*k),
		staticVertices: make([][]int, k),
		staticEdges:    make([]bitset.Set, k*k),
		hasStaticEdges: make([]bool, k*k),
		constrained:    make([]bool, k*k),
		vertices:       make([][]int, k),
		edges:          make([]bitset.Set, k*k),
		binding:        make([]int, k),
		scratch:        make([]int, 0, 8),
	}

	for _, lit := range condition {
		params := lit.Parameters()
		switch len(params) {
		case 0:
			g.ground = append(g.ground, lit)
		case 1:
			g.unary[params[0]] = append(g.unary[params[0]], lit)
		case 2:
			idx := g.pair(params[0], params[1])
			g.binary[idx] = append(g.binary[idx], lit)
			g.constrained[idx] = true
		default:
			if lit.Negated {
				continue
			}
			g.wide = append(g.wide, lit)
			for a := 0; a < len(params); a++ {
				for b := a + 1; b < len(params); b++ {
					g.constrained[g.pair(params[a], params[b])] = true
				}
			}
		}
	}

	g.staticOK = true
	for _, lit := range g.ground {
		if lit.Tag() == formalism.Static && !static.literalHolds(lit, g.binding, g.scratch) {
			g.staticOK = false
		}
	}

	for i, param := range params {
		for _, obj := range problem.ObjectsOfType(param.Type) {
			if g.vertexHolds(static, i, obj, formalism.Static, false) {
				g.staticVertices[i] = append(g.staticVertices[i], obj)
			}
		}
	}

	for i := 0; i < k; i++ {
		for j := i + 1; j < k; j++ {
			idx := g.pair(i, j)
			if !g.hasLiteralOfTag(idx, i, j, formalism.Static) {
				continue
			}
			g.hasStaticEdges[idx] = true
			for _, oi := range g.staticVertices[i] {
				for _, oj := range g.staticVertices[j] {
					if g.edgeHolds(static, i, oi, j, oj, formalism.Static, false) {
						g.staticEdges[idx].Set(oi*g.numObjects + oj)
					}
				}
			}
		}
	}
	return g
}

func (g *ConsistencyGraph) pair(i, j int) int {
	if i > j {
		i, j = j, i
	}
	return i*g.arity + j
}

// skip reports whether a literal is ignored for the given pass. Static
// passes look only at static literals and dynamic passes only at fluent and
// derived ones. Relaxed passes drop negative dynamic literals.
func skip(lit formalism.Literal, static, relaxed bool) bool {
	isStatic := lit.Tag() == formalism.Static
	if isStatic != static {
		return true
	}
	return relaxed && !isStatic && lit.Negated
}

func (g *ConsistencyGraph) hasLiteralOfTag(idx, i, j int, tag formalism.Tag) bool {
	for _, lit := range g.binary[idx] {
		if lit.Tag() == tag {
			return true
		}
	}
	for _, lit := range g.wide {
		if lit.Tag() == tag && lit.Mentions(i) && lit.Mentions(j) {
			return true
		}
	}
	return false
}

func (g *ConsistencyGraph) vertexHolds(view *atomView, i, obj int, tag formalism.Tag, relaxed bool) bool {
	static := tag == formalism.Static
	g.binding[i] = obj
	for _, lit := range g.unary[i] {
		if skip(lit, static, relaxed) {
			continue
		}
		if !view.literalHolds(lit, g.binding, g.scratch) {
			return false
		}
	}
	for _, lit := range g.wide {
		if skip(lit, static, relaxed) || !lit.Mentions(i) {
			continue
		}
		as := view.assignments[lit.Tag()]
		for pos, term := range lit.Terms {
			if term.IsParameter() && term.Value != i {
				continue
			}
			value := term.Value
			if term.IsParameter() {
				value = obj
			}
			if !as.Holds(lit.Predicate, pos, value) {
				return false
			}
		}
	}
	return true
}

func (g *ConsistencyGraph) edgeHolds(view *atomView, i, oi, j, oj int, tag formalism.Tag, relaxed bool) bool {
	static := tag == formalism.Static
	g.binding[i] = oi
	g.binding[j] = oj
	for _, lit := range g.binary[g.pair(i, j)] {
		if skip(lit, static, relaxed) {
			continue
		}
		if !view.literalHolds(lit, g.binding, g.scratch) {
			return false
		}
	}
	for _, lit := range g.wide {
		if skip(lit, static, relaxed) || !lit.Mentions(i) || !lit.Mentions(j) {
			continue
		}
		as := view.assignments[lit.Tag()]
		for p, tp := range lit.Terms {
			if !tp.IsParameter() || tp.Value != i {
				continue
			}
			for q, tq := range lit.Terms {
				if !tq.IsParameter() || tq.Value != j {
					continue
				}
				if !as.HoldsPair(lit.Predicate, p, oi, q, oj) {
					return false
				}
			}
		}
	}
	return true
}

// refresh rebuilds the per-state vertices and edges. It returns false when
// no binding can exist.
func (g *ConsistencyGraph) refresh(view *atomView, relaxed bool) bool {
	if !g.staticOK {
		return false
	}
	for _, lit := range g.ground {
		if skip(lit, false, relaxed) {
			continue
		}
		if !view.literalHolds(lit, g.binding, g.scratch) {
			return false
		}
	}

	for i := 0; i < g.arity; i++ {
		g.vertices[i] = g.vertices[i][:0]
		for _, obj := range g.staticVertices[i] {
			if g.vertexHolds(view, i, obj, formalism.Fluent, relaxed) {
				g.vertices[i] = append(g.vertices[i], obj)
			}
		}
		if len(g.vertices[i]) == 0 {
			return false
		}
	}

	for i := 0; i < g.arity; i++ {
		for j := i + 1; j < g.arity; j++ {
			idx := g.pair(i, j)
			if !g.constrained[idx] {
				continue
			}
			g.edges[idx].Clear()
			for _, oi := range g.vertices[i] {
				for _, oj := range g.vertices[j] {
					key := oi*g.numObjects + oj
					if g.hasStaticEdges[idx] && !g.staticEdges[idx].Get(key) {
						continue
					}
					if g.edgeHolds(view, i, oi, j, oj, formalism.Fluent, relaxed) {
						g.edges[idx].Set(key)
					}
				}
			}
		}
	}
	return true
}

// Bindings calls yield for every binding that satisfies the full condition
// in view, in lexicographic order of object ids by parameter position. In
// relaxed mode negative fluent and derived literals are ignored. The binding
// slice is reused between calls. Returning false from yield stops the
// enumeration.
func (g *ConsistencyGraph) Bindings(view *atomView, relaxed bool, yield func(binding []int) bool) {
	if !g.refresh(view, relaxed) {
		return
	}
	g.enumerate(view, 0, relaxed, yield)
}

func (g *ConsistencyGraph) enumerate(view *atomView, i int, relaxed bool, yield func([]int) bool) bool {
	if i == g.arity {
		if !g.conditionHolds(view, relaxed) {
			return true
		}
		return yield(g.binding)
	}
	for _, obj := range g.vertices[i] {
		if !g.adjacent(i, obj) {
			continue
		}
		g.binding[i] = obj
		if !g.enumerate(view, i+1, relaxed, yield) {
			return false
		}
	}
	return true
}

// adjacent checks the edges between parameter i bound to obj and every
// parameter already bound.
func (g *ConsistencyGraph) adjacent(i, obj int) bool {
	for j := 0; j < i; j++ {
		idx := g.pair(j, i)
		if !g.constrained[idx] {
			continue
		}
		if !g.edges[idx].Get(g.binding[j]*g.numObjects + obj) {
			return false
		}
	}
	return true
}

func (g *ConsistencyGraph) conditionHolds(view *atomView, relaxed bool) bool {
	for _, lit := range g.condition {
		if relaxed && lit.Negated && lit.Tag() != formalism.Static {
			continue
		}
		if !view.literalHolds(lit, g.binding, g.scratch) {
			return false
		}
	}
	return true
}

// VertexCount returns the number of vertices after the last refresh.
func (g *ConsistencyGraph) VertexCount() int {
	n := 0
	for _, vs := range g.vertices {
		n += len(vs)
	}
	return n
}
