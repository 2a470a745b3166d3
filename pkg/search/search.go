// Package search implements state-space search over a statestore.Store using
// an aag.Generator for successor generation.
//
// Three algorithms share one expansion loop:
//
//	BrFS  breadth-first, FIFO open list, duplicates pruned
//	A*    open list ordered by f = g + h, FIFO among equal f
//	IW    breadth-first with novelty pruning, run for widths 0..MaxWidth
//
// Search outcomes are reported as a Status in the Result, never as errors.
// A search call owns its node table and open list; a Store and Generator may
// be reused by later calls on the same problem but not shared between
// concurrent calls.
package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gitrdm/goplanner/pkg/formalism"
	"github.com/gitrdm/goplanner/pkg/statestore"
)

// Status is the outcome of a search.
type Status int

const (
	// Solved means a plan was found.
	Solved Status = iota
	// Unsolvable means the goal can be ruled out without search.
	Unsolvable
	// Exhausted means every reachable state was examined without reaching
	// the goal.
	Exhausted
	// Timeout means the search budget ran out or the context was cancelled.
	Timeout
)

func (s Status) String() string {
	switch s {
	case Solved:
		return "SOLVED"
	case Unsolvable:
		return "UNSOLVABLE"
	case Exhausted:
		return "EXHAUSTED"
	case Timeout:
		return "TIMEOUT"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Plan is an ordered list of ground actions with its total cost.
type Plan struct {
	Actions []*formalism.GroundAction
	Cost    int
}

// Len returns the number of actions.
func (p Plan) Len() int {
	return len(p.Actions)
}

// String renders one action per line followed by a cost comment.
func (p Plan) String() string {
	var builder strings.Builder
	for _, action := range p.Actions {
		builder.WriteString(action.String())
		builder.WriteByte('\n')
	}
	fmt.Fprintf(&builder, "; cost = %d\n", p.Cost)
	return builder.String()
}

// Statistics holds counters about one search call.
type Statistics struct {
	Expanded   int           // states whose successors were generated
	Generated  int           // successor states produced, duplicates included
	Pruned     int           // successors rejected as duplicates or not novel
	DeadEnds   int           // states marked DEAD_END by the heuristic
	Layers     int           // f-layers (g-layers for BrFS) completed
	States     int           // distinct states in the store after the search
	Width      int           // IW only: width of the last iteration
	SearchTime time.Duration // wall time of the search call
}

// Result is returned by FindSolution.
type Result struct {
	RunID      string
	Status     Status
	Plan       Plan
	Statistics Statistics
}

// Algorithm is a configured search strategy.
type Algorithm interface {
	// Name identifies the algorithm in logs and metrics.
	Name() string

	// FindSolution searches from start, or from the initial state when
	// start is nil.
	FindSolution(ctx context.Context, start *statestore.State) Result
}

// Budget bounds one FindSolution call, across every IW width. Zero fields
// mean unlimited. MaxExpansions is exact; the clock and context cancellation
// are polled every CheckInterval expansions. Exceeding a limit ends the
// search with Timeout, but a goal already popped is still reported Solved.
type Budget struct {
	MaxExpansions int
	TimeLimit     time.Duration
	CheckInterval int
}

// DefaultCheckInterval is used when Budget.CheckInterval is not positive.
const DefaultCheckInterval = 256

func (b Budget) interval() int {
	if b.CheckInterval <= 0 {
		return DefaultCheckInterval
	}
	return b.CheckInterval
}

// Option configures an algorithm.
type Option func(*options)

type options struct {
	events EventHandler
	budget Budget
}

// WithEventHandler installs an observer. Use MultiEventHandler for several.
func WithEventHandler(handler EventHandler) Option {
	return func(o *options) {
		o.events = handler
	}
}

// WithBudget bounds the search.
func WithBudget(budget Budget) Option {
	return func(o *options) {
		o.budget = budget
	}
}

func buildOptions(opts []Option) options {
	o := options{events: NopEventHandler{}}
	for _, opt := range opts {
		opt(&o)
	}
	if o.events == nil {
		o.events = NopEventHandler{}
	}
	return o
}
