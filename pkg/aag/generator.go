// Package aag provides the applicable action generators and the axiom
// evaluators.
//
// Two strategies implement Generator:
//
//	Lifted    builds a consistency graph per action schema and state and
//	          grounds only the bindings that survive it
//	Grounded  grounds every relaxed-reachable action once up front and
//	          indexes them in a match tree
//
// Both return exactly the actions whose full precondition holds in the
// queried state. Each strategy has a matching statestore.AxiomEvaluator for
// derived predicates.
package aag

import (
	"github.com/gitrdm/goplanner/pkg/formalism"
	"github.com/gitrdm/goplanner/pkg/statestore"
)

// Mode selects a generator strategy.
type Mode string

const (
	// ModeLifted selects the consistency graph generator.
	ModeLifted Mode = "lifted"
	// ModeGrounded selects the match tree generator.
	ModeGrounded Mode = "grounded"
)

// Generator enumerates the actions applicable in a state.
type Generator interface {
	// ApplicableActions returns the applicable actions in a deterministic
	// order. The returned slice is owned by the caller.
	ApplicableActions(state *statestore.State) []*formalism.GroundAction

	// AxiomEvaluator returns the evaluator matching this strategy.
	AxiomEvaluator() statestore.AxiomEvaluator

	// Statistics returns counters collected so far.
	Statistics() Statistics
}

// Statistics describes the work done by a generator.
type Statistics struct {
	Mode                 Mode
	GroundActions        int
	GroundAxioms         int
	ReachableAtoms       int
	RelaxationIterations int
	Calls                int
	Candidates           int
	Applicable           int
}

// DefaultLeafThreshold is the match tree leaf size used when Options leaves
// it unset.
const DefaultLeafThreshold = 4

// Options tunes generator construction.
type Options struct {
	// LeafThreshold stops match tree splitting once a node holds at most
	// this many elements.
	LeafThreshold int

	// Workers bounds the offline grounding fan-out. Zero means one per CPU.
	Workers int
}

func (o Options) leafThreshold() int {
	if o.LeafThreshold <= 0 {
		return DefaultLeafThreshold
	}
	return o.LeafThreshold
}
