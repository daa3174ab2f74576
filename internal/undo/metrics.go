package undo

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	metricsNamespace = "rewind"
	historySubsystem = "history"
)

// Metrics counts history activity. A nil *Metrics records nothing.
type Metrics struct {
	RecordsTotal   *prometheus.CounterVec
	StepsTotal     *prometheus.CounterVec
	FailuresTotal  *prometheus.CounterVec
	EvictionsTotal prometheus.Counter
	RewritesTotal  prometheus.Counter
	Depth          *prometheus.GaugeVec
}

// NewMetrics creates the history metrics and registers them with reg.
// Panics on duplicate registration.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RecordsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: historySubsystem,
				Name:      "records_total",
				Help:      "Primitive change records committed to history, by record type",
			},
			[]string{"type"},
		),
		StepsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: historySubsystem,
				Name:      "steps_total",
				Help:      "Undo and redo steps taken",
			},
			[]string{"op"},
		),
		FailuresTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: historySubsystem,
				Name:      "failures_total",
				Help:      "Undo and redo steps that reported an error, by error code",
			},
			[]string{"op", "code"},
		),
		EvictionsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: historySubsystem,
				Name:      "evictions_total",
				Help:      "Records dropped to respect the history capacity",
			},
		),
		RewritesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: historySubsystem,
				Name:      "rewrites_total",
				Help:      "Live values whose identity references were rewritten",
			},
		),
		Depth: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: historySubsystem,
				Name:      "depth",
				Help:      "Current depth of the undo and redo stacks",
			},
			[]string{"stack"},
		),
	}
}

func (m *Metrics) recorded(ch Change) {
	if m == nil {
		return
	}
	for _, prim := range Flatten(ch) {
		m.RecordsTotal.WithLabelValues(recordType(prim)).Inc()
	}
}

func (m *Metrics) stepped(op EventType, err error) {
	if m == nil {
		return
	}
	m.StepsTotal.WithLabelValues(op.String()).Inc()
	if err != nil {
		m.FailuresTotal.WithLabelValues(op.String(), errorCode(err)).Inc()
	}
}

func (m *Metrics) evicted(n int) {
	if m == nil || n == 0 {
		return
	}
	m.EvictionsTotal.Add(float64(n))
}

func (m *Metrics) rewrote(n int) {
	if m == nil || n == 0 {
		return
	}
	m.RewritesTotal.Add(float64(n))
}

func (m *Metrics) depth(c *Chain) {
	if m == nil {
		return
	}
	m.Depth.WithLabelValues("undo").Set(float64(c.Len()))
	m.Depth.WithLabelValues("redo").Set(float64(c.RedoLen()))
}

func recordType(ch Change) string {
	switch ch.(type) {
	case EntityCreated:
		return "entity_created"
	case EntityDestroyed:
		return "entity_destroyed"
	case ValueChanged:
		return "value_changed"
	case ValueAdded:
		return "value_added"
	case ValueRemoved:
		return "value_removed"
	case Composite:
		return "composite"
	default:
		return "custom"
	}
}

func errorCode(err error) string {
	switch {
	case IsUnresolvable(err):
		return string(ErrCodeUnresolvableIdentity)
	case IsUnreconstructible(err):
		return string(ErrCodeUnreconstructibleValue)
	case hasCode(err, ErrCodeWriteFailed):
		return string(ErrCodeWriteFailed)
	default:
		return "UNKNOWN"
	}
}
