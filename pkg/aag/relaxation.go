package aag

import (
	"context"
	"slices"

	"github.com/gitrdm/goplanner/internal/parallel"
	"github.com/gitrdm/goplanner/pkg/bitset"
	"github.com/gitrdm/goplanner/pkg/formalism"
)

// relaxation explores the delete relaxation of a problem: actions and axioms
// are applied ignoring negative fluent and derived literals until no new atom
// becomes reachable. Every binding found along the way is grounded.
type relaxation struct {
	problem  *formalism.Problem
	grounder *Grounder
	view     *atomView

	actions     []*formalism.ActionSchema
	axioms      []*formalism.AxiomSchema
	graphs      []*ConsistencyGraph
	reached     [formalism.NumTags]bitset.Set
	iterations  int
	workerCount int
}

func newRelaxation(problem *formalism.Problem, grounder *Grounder, workers int) *relaxation {
	view := newAtomView(problem)
	view.load(formalism.Static, problem.InitialStatic())

	r := &relaxation{
		problem:     problem,
		grounder:    grounder,
		view:        view,
		actions:     problem.Domain.Actions(),
		axioms:      problem.Domain.Axioms(),
		workerCount: workers,
	}
	for _, schema := range r.actions {
		r.graphs = append(r.graphs, newConsistencyGraph(problem, schema.Parameters, schema.Precondition, view))
	}
	for _, schema := range r.axioms {
		r.graphs = append(r.graphs, newConsistencyGraph(problem, schema.Parameters, schema.Body, view))
	}
	r.reached[formalism.Static] = problem.InitialStatic()
	r.reached[formalism.Fluent] = problem.InitialFluent().Clone()
	return r
}

// run iterates to the fixpoint. Each iteration enumerates every schema in
// parallel against a frozen view, then grounds the results sequentially in
// schema order so ids are assigned deterministically.
func (r *relaxation) run(ctx context.Context) error {
	pool := parallel.NewWorkerPool(r.workerCount)
	defer pool.Shutdown()

	jobs := make([]int, len(r.graphs))
	for i := range jobs {
		jobs[i] = i
	}

	for {
		r.iterations++
		r.view.load(formalism.Fluent, r.reached[formalism.Fluent].Clone())
		r.view.load(formalism.Derived, r.reached[formalism.Derived].Clone())

		results, err := parallel.Map(ctx, pool, jobs, func(ctx context.Context, _ int, job int) ([][]int, error) {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			var bindings [][]int
			r.graphs[job].Bindings(r.view, true, func(binding []int) bool {
				bindings = append(bindings, slices.Clone(binding))
				return true
			})
			return bindings, nil
		})
		if err != nil {
			return err
		}

		if !r.merge(results) {
			return nil
		}
	}
}

// merge grounds the bindings of one iteration and reports whether anything
// new was reached.
func (r *relaxation) merge(results [][][]int) bool {
	fluentBefore := r.reached[formalism.Fluent].Count()
	derivedBefore := r.reached[formalism.Derived].Count()
	actionsBefore := r.grounder.Actions().Len()
	axiomsBefore := r.grounder.Axioms().Len()

	for job, bindings := range results {
		if job < len(r.actions) {
			schema := r.actions[job]
			for _, binding := range bindings {
				action, ok := r.grounder.Action(schema, binding)
				if !ok {
					continue
				}
				r.reached[formalism.Fluent].UnionWith(action.Effect.Add)
				for _, cond := range action.ConditionalEffects {
					if r.relaxedHolds(cond.Condition) {
						r.reached[formalism.Fluent].UnionWith(cond.Effect.Add)
					}
				}
			}
			continue
		}
		schema := r.axioms[job-len(r.actions)]
		for _, binding := range bindings {
			axiom := r.grounder.Axiom(schema, binding)
			r.reached[formalism.Derived].Set(axiom.Head.ID)
		}
	}

	return r.reached[formalism.Fluent].Count() != fluentBefore ||
		r.reached[formalism.Derived].Count() != derivedBefore ||
		r.grounder.Actions().Len() != actionsBefore ||
		r.grounder.Axioms().Len() != axiomsBefore
}

// relaxedHolds checks the positive dynamic and all static literals of cond
// against the reached atoms.
func (r *relaxation) relaxedHolds(cond formalism.GroundCondition) bool {
	return cond.StaticHolds(r.reached[formalism.Static]) &&
		cond.Positive[formalism.Fluent].IsSubsetOf(r.reached[formalism.Fluent]) &&
		cond.Positive[formalism.Derived].IsSubsetOf(r.reached[formalism.Derived])
}
