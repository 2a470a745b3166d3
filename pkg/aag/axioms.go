package aag

import (
	"github.com/gitrdm/goplanner/pkg/bitset"
	"github.com/gitrdm/goplanner/pkg/formalism"
	"github.com/gitrdm/goplanner/pkg/statestore"
)

// LiftedAxiomEvaluator computes derived atoms stratum by stratum, finding the
// satisfied axiom bindings with consistency graphs.
type LiftedAxiomEvaluator struct {
	problem *formalism.Problem
	view    *atomView
	strata  [][]liftedAxiom
	scratch []int
}

type liftedAxiom struct {
	schema *formalism.AxiomSchema
	graph  *ConsistencyGraph
}

var _ statestore.AxiomEvaluator = (*LiftedAxiomEvaluator)(nil)

// NewLiftedAxiomEvaluator stratifies the domain's axioms and prepares their
// graphs.
func NewLiftedAxiomEvaluator(problem *formalism.Problem) (*LiftedAxiomEvaluator, error) {
	strata, err := problem.Domain.AxiomStrata()
	if err != nil {
		return nil, err
	}
	view := newAtomView(problem)
	view.load(formalism.Static, problem.InitialStatic())

	e := &LiftedAxiomEvaluator{
		problem: problem,
		view:    view,
		scratch: make([]int, 0, 8),
	}
	for _, stratum := range strata {
		axioms := make([]liftedAxiom, len(stratum))
		for i, schema := range stratum {
			axioms[i] = liftedAxiom{
				schema: schema,
				graph:  newConsistencyGraph(problem, schema.Parameters, schema.Body, view),
			}
		}
		e.strata = append(e.strata, axioms)
	}
	return e, nil
}

// Evaluate implements statestore.AxiomEvaluator.
func (e *LiftedAxiomEvaluator) Evaluate(fluent bitset.Set, derived *bitset.Set) {
	derived.Clear()
	if len(e.strata) == 0 {
		return
	}
	e.view.load(formalism.Fluent, fluent)
	for _, stratum := range e.strata {
		for changed := true; changed; {
			changed = false
			e.view.load(formalism.Derived, *derived)
			for _, axiom := range stratum {
				axiom.graph.Bindings(e.view, false, func(binding []int) bool {
					head := e.problem.GroundAtom(axiom.schema.Head, binding, e.scratch)
					if !derived.Get(head.ID) {
						derived.Set(head.ID)
						changed = true
					}
					return true
				})
			}
		}
	}
}

// GroundedAxiomEvaluator computes derived atoms from the precomputed ground
// axioms. Each stratum has its own match tree, so a pass only looks at axioms
// whose tested atoms hold.
type GroundedAxiomEvaluator struct {
	static  bitset.Set
	strata  []groundedStratum
	scratch []int
}

type groundedStratum struct {
	axioms []*formalism.GroundAxiom
	tree   *MatchTree
}

var _ statestore.AxiomEvaluator = (*GroundedAxiomEvaluator)(nil)

func newGroundedAxiomEvaluator(problem *formalism.Problem, strata [][]*formalism.AxiomSchema, axioms []*formalism.GroundAxiom, threshold int) *GroundedAxiomEvaluator {
	level := make(map[*formalism.AxiomSchema]int)
	for l, stratum := range strata {
		for _, schema := range stratum {
			level[schema] = l
		}
	}

	e := &GroundedAxiomEvaluator{
		static: problem.InitialStatic(),
		strata: make([]groundedStratum, len(strata)),
	}
	for _, axiom := range axioms {
		l := level[axiom.Schema]
		e.strata[l].axioms = append(e.strata[l].axioms, axiom)
	}
	for l := range e.strata {
		conditions := make([]formalism.GroundCondition, len(e.strata[l].axioms))
		for i, axiom := range e.strata[l].axioms {
			conditions[i] = axiom.Body
		}
		e.strata[l].tree = NewMatchTree(conditions, threshold)
	}
	return e
}

// Evaluate implements statestore.AxiomEvaluator.
func (e *GroundedAxiomEvaluator) Evaluate(fluent bitset.Set, derived *bitset.Set) {
	derived.Clear()
	for _, stratum := range e.strata {
		for changed := true; changed; {
			changed = false
			e.scratch = stratum.tree.Lookup(fluent, *derived, e.scratch[:0])
			for _, idx := range e.scratch {
				axiom := stratum.axioms[idx]
				if derived.Get(axiom.Head.ID) {
					continue
				}
				if axiom.Body.Holds(e.static, fluent, *derived) {
					derived.Set(axiom.Head.ID)
					changed = true
				}
			}
		}
	}
}
