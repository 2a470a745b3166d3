package telemetry

import (
	"context"
	"fmt"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/gitrdm/goplanner/pkg/search"
)

const tracerName = "github.com/gitrdm/goplanner/search"

// TracingEventHandler opens one span per search run. Layer boundaries and
// the outcome are recorded as span events; final statistics as attributes.
type TracingEventHandler struct {
	search.NopEventHandler

	parent context.Context
	tracer trace.Tracer
	span   trace.Span
}

var _ search.EventHandler = (*TracingEventHandler)(nil)

// NewTracingEventHandler creates a handler whose spans are children of the
// span in ctx. A nil provider means the global one.
func NewTracingEventHandler(ctx context.Context, provider trace.TracerProvider) *TracingEventHandler {
	if provider == nil {
		provider = otel.GetTracerProvider()
	}
	return &TracingEventHandler{
		parent: ctx,
		tracer: provider.Tracer(tracerName),
	}
}

func (h *TracingEventHandler) OnStartSearch(info search.SearchInfo) {
	_, h.span = h.tracer.Start(h.parent, "search."+info.Algorithm,
		trace.WithAttributes(
			attribute.String("planner.run_id", info.RunID),
			attribute.String("planner.algorithm", info.Algorithm),
			attribute.String("planner.problem", info.Problem),
			attribute.Int("planner.start_state", info.Start.ID),
		),
	)
}

func (h *TracingEventHandler) OnFinishFLayer(f int, stats search.Statistics) {
	if h.span == nil {
		return
	}
	h.span.AddEvent("f-layer", trace.WithAttributes(
		attribute.Int("planner.f", f),
		attribute.Int("planner.expanded", stats.Expanded),
		attribute.Int("planner.generated", stats.Generated),
	))
}

func (h *TracingEventHandler) OnSolved(plan search.Plan) {
	if h.span == nil {
		return
	}
	h.span.AddEvent("solved", trace.WithAttributes(
		attribute.Int("planner.plan_length", plan.Len()),
		attribute.Int("planner.plan_cost", plan.Cost),
	))
}

func (h *TracingEventHandler) OnUnsolvable() {
	if h.span != nil {
		h.span.AddEvent("unsolvable")
	}
}

func (h *TracingEventHandler) OnExhausted() {
	if h.span != nil {
		h.span.AddEvent("exhausted")
	}
}

func (h *TracingEventHandler) OnEndSearch(status search.Status, stats search.Statistics) {
	if h.span == nil {
		return
	}
	h.span.SetAttributes(
		attribute.String("planner.status", status.String()),
		attribute.Int("planner.expanded", stats.Expanded),
		attribute.Int("planner.generated", stats.Generated),
		attribute.Int("planner.pruned", stats.Pruned),
		attribute.Int("planner.dead_ends", stats.DeadEnds),
		attribute.Int("planner.states", stats.States),
	)
	if status == search.Timeout {
		h.span.SetStatus(codes.Error, "search budget exhausted")
	} else {
		h.span.SetStatus(codes.Ok, "")
	}
	h.span.End()
	h.span = nil
}

// NewStdoutTracerProvider returns a tracer provider exporting spans as JSON
// to w. Call Shutdown to flush.
func NewStdoutTracerProvider(w io.Writer) (*sdktrace.TracerProvider, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("create trace exporter: %w", err)
	}
	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	), nil
}
