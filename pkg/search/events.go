package search

import (
	"context"
	"log/slog"

	"github.com/gitrdm/goplanner/pkg/formalism"
	"github.com/gitrdm/goplanner/pkg/statestore"
)

// SearchInfo describes a search call to event handlers.
type SearchInfo struct {
	RunID     string
	Algorithm string
	Problem   string
	Start     *statestore.State
}

// EventHandler observes a search. Handlers must not influence control flow
// and are called synchronously from the search goroutine. OnStartSearch and
// OnEndSearch bracket one FindSolution call, including every IW width.
type EventHandler interface {
	OnStartSearch(info SearchInfo)
	OnExpandState(state *statestore.State)
	OnGenerateState(state *statestore.State, action *formalism.GroundAction, successor *statestore.State)
	OnPruneState(state *statestore.State)
	OnFinishFLayer(f int, stats Statistics)
	OnEndSearch(status Status, stats Statistics)
	OnSolved(plan Plan)
	OnUnsolvable()
	OnExhausted()
}

// NopEventHandler ignores every event. Embed it to implement only some
// hooks.
type NopEventHandler struct{}

var _ EventHandler = NopEventHandler{}

func (NopEventHandler) OnStartSearch(SearchInfo)        {}
func (NopEventHandler) OnExpandState(*statestore.State) {}
func (NopEventHandler) OnGenerateState(*statestore.State, *formalism.GroundAction, *statestore.State) {
}
func (NopEventHandler) OnPruneState(*statestore.State) {}
func (NopEventHandler) OnFinishFLayer(int, Statistics) {}
func (NopEventHandler) OnEndSearch(Status, Statistics) {}
func (NopEventHandler) OnSolved(Plan)                  {}
func (NopEventHandler) OnUnsolvable()                  {}
func (NopEventHandler) OnExhausted()                   {}

// LoggingEventHandler writes search events to a slog.Logger. Per-state
// events go to Debug, the rest to Info.
type LoggingEventHandler struct {
	logger *slog.Logger
	store  *statestore.Store
	runID  string
}

var _ EventHandler = (*LoggingEventHandler)(nil)

// NewLoggingEventHandler creates a handler. logger may be nil to use
// slog.Default(). store is used to render states at Debug level and may be
// nil.
func NewLoggingEventHandler(logger *slog.Logger, store *statestore.Store) *LoggingEventHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingEventHandler{logger: logger, store: store}
}

func (h *LoggingEventHandler) debugEnabled() bool {
	return h.logger.Enabled(context.Background(), slog.LevelDebug)
}

func (h *LoggingEventHandler) describe(state *statestore.State) string {
	if h.store == nil {
		return ""
	}
	return h.store.FormatState(state)
}

func (h *LoggingEventHandler) OnStartSearch(info SearchInfo) {
	h.runID = info.RunID
	h.logger.Info("search started",
		"run_id", info.RunID,
		"algorithm", info.Algorithm,
		"problem", info.Problem,
		"start_state", info.Start.ID,
	)
}

func (h *LoggingEventHandler) OnExpandState(state *statestore.State) {
	if !h.debugEnabled() {
		return
	}
	h.logger.Debug("expand", "run_id", h.runID, "state", state.ID, "atoms", h.describe(state))
}

func (h *LoggingEventHandler) OnGenerateState(state *statestore.State, action *formalism.GroundAction, successor *statestore.State) {
	if !h.debugEnabled() {
		return
	}
	h.logger.Debug("generate",
		"run_id", h.runID,
		"state", state.ID,
		"action", action.String(),
		"successor", successor.ID,
	)
}

func (h *LoggingEventHandler) OnPruneState(state *statestore.State) {
	if !h.debugEnabled() {
		return
	}
	h.logger.Debug("prune", "run_id", h.runID, "state", state.ID)
}

func (h *LoggingEventHandler) OnFinishFLayer(f int, stats Statistics) {
	h.logger.Info("f-layer finished",
		"run_id", h.runID,
		"f", f,
		"expanded", stats.Expanded,
		"generated", stats.Generated,
	)
}

func (h *LoggingEventHandler) OnEndSearch(status Status, stats Statistics) {
	h.logger.Info("search finished",
		"run_id", h.runID,
		"status", status.String(),
		"expanded", stats.Expanded,
		"generated", stats.Generated,
		"pruned", stats.Pruned,
		"dead_ends", stats.DeadEnds,
		"states", stats.States,
		"duration", stats.SearchTime,
	)
}

func (h *LoggingEventHandler) OnSolved(plan Plan) {
	h.logger.Info("plan found", "run_id", h.runID, "length", plan.Len(), "cost", plan.Cost)
}

func (h *LoggingEventHandler) OnUnsolvable() {
	h.logger.Info("static goal unsatisfiable", "run_id", h.runID)
}

func (h *LoggingEventHandler) OnExhausted() {
	h.logger.Info("search space exhausted", "run_id", h.runID)
}

// MultiEventHandler forwards every event to each handler in order.
type MultiEventHandler []EventHandler

var _ EventHandler = MultiEventHandler(nil)

func (m MultiEventHandler) OnStartSearch(info SearchInfo) {
	for _, h := range m {
		h.OnStartSearch(info)
	}
}

func (m MultiEventHandler) OnExpandState(state *statestore.State) {
	for _, h := range m {
		h.OnExpandState(state)
	}
}

func (m MultiEventHandler) OnGenerateState(state *statestore.State, action *formalism.GroundAction, successor *statestore.State) {
	for _, h := range m {
		h.OnGenerateState(state, action, successor)
	}
}

func (m MultiEventHandler) OnPruneState(state *statestore.State) {
	for _, h := range m {
		h.OnPruneState(state)
	}
}

func (m MultiEventHandler) OnFinishFLayer(f int, stats Statistics) {
	for _, h := range m {
		h.OnFinishFLayer(f, stats)
	}
}

func (m MultiEventHandler) OnEndSearch(status Status, stats Statistics) {
	for _, h := range m {
		h.OnEndSearch(status, stats)
	}
}

func (m MultiEventHandler) OnSolved(plan Plan) {
	for _, h := range m {
		h.OnSolved(plan)
	}
}

func (m MultiEventHandler) OnUnsolvable() {
	for _, h := range m {
		h.OnUnsolvable()
	}
}

func (m MultiEventHandler) OnExhausted() {
	for _, h := range m {
		h.OnExhausted()
	}
}
