// Package telemetry adapts search events to Prometheus metrics and
// OpenTelemetry traces.
package telemetry

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/gitrdm/goplanner/pkg/search"
)

const namespace = "planner"

// MetricsEventHandler records search runs as Prometheus metrics. Counters
// are updated once per run from the final statistics, so per-state events
// cost nothing.
//
// Labels:
//   - algorithm: the search algorithm name
//   - status: SOLVED, UNSOLVABLE, EXHAUSTED or TIMEOUT
type MetricsEventHandler struct {
	search.NopEventHandler

	runs      *prometheus.CounterVec
	expanded  *prometheus.CounterVec
	generated *prometheus.CounterVec
	pruned    *prometheus.CounterVec
	deadEnds  *prometheus.CounterVec
	layers    *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	planCost  *prometheus.GaugeVec
	planLen   *prometheus.GaugeVec
	states    prometheus.Gauge

	algorithm string
}

var _ search.EventHandler = (*MetricsEventHandler)(nil)

// NewMetricsEventHandler registers the planner metrics on reg. A nil reg
// means prometheus.DefaultRegisterer.
func NewMetricsEventHandler(reg prometheus.Registerer) *MetricsEventHandler {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	counter := func(name, help string, labels ...string) *prometheus.CounterVec {
		return factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      name,
			Help:      help,
		}, labels)
	}

	return &MetricsEventHandler{
		runs:      counter("runs_total", "Search runs by algorithm and final status.", "algorithm", "status"),
		expanded:  counter("states_expanded_total", "States expanded.", "algorithm"),
		generated: counter("states_generated_total", "Successor states generated.", "algorithm"),
		pruned:    counter("states_pruned_total", "Successor states pruned.", "algorithm"),
		deadEnds:  counter("dead_ends_total", "States recognised as dead ends.", "algorithm"),
		layers:    counter("f_layers_total", "Completed f-layers.", "algorithm"),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "duration_seconds",
			Help:      "Wall time of search runs.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"algorithm", "status"}),
		planCost: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "plan",
			Name:      "cost",
			Help:      "Cost of the last plan found.",
		}, []string{"algorithm"}),
		planLen: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "plan",
			Name:      "length",
			Help:      "Number of actions in the last plan found.",
		}, []string{"algorithm"}),
		states: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "states",
			Help:      "States interned in the state store.",
		}),
	}
}

func (m *MetricsEventHandler) OnStartSearch(info search.SearchInfo) {
	m.algorithm = info.Algorithm
}

func (m *MetricsEventHandler) OnFinishFLayer(int, search.Statistics) {
	m.layers.WithLabelValues(m.algorithm).Inc()
}

func (m *MetricsEventHandler) OnSolved(plan search.Plan) {
	m.planCost.WithLabelValues(m.algorithm).Set(float64(plan.Cost))
	m.planLen.WithLabelValues(m.algorithm).Set(float64(plan.Len()))
}

func (m *MetricsEventHandler) OnEndSearch(status search.Status, stats search.Statistics) {
	alg := m.algorithm
	m.runs.WithLabelValues(alg, status.String()).Inc()
	m.expanded.WithLabelValues(alg).Add(float64(stats.Expanded))
	m.generated.WithLabelValues(alg).Add(float64(stats.Generated))
	m.pruned.WithLabelValues(alg).Add(float64(stats.Pruned))
	m.deadEnds.WithLabelValues(alg).Add(float64(stats.DeadEnds))
	m.duration.WithLabelValues(alg, status.String()).Observe(stats.SearchTime.Seconds())
	m.states.Set(float64(stats.States))
}

// WriteTextfile writes every metric gathered from g to path in the text
// exposition format, for node_exporter's textfile collector.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}
