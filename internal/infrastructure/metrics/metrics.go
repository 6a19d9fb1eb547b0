package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/usecase"
)

// Metrics holds the ledger's Prometheus metrics and implements usecase.Recorder.
type Metrics struct {
	// Ledger metrics
	MovementsCreated   *prometheus.CounterVec
	MovementsDeleted   prometheus.Counter
	OperationsRejected *prometheus.CounterVec
	Reconciliations    *prometheus.CounterVec

	// Persistence metrics
	UpstreamCalls    *prometheus.CounterVec
	UpstreamDuration *prometheus.HistogramVec

	// Event metrics
	EventsDropped prometheus.Counter
}

// New creates the metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		MovementsCreated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bankledger_movements_created_total",
				Help: "Total number of movements created by kind",
			},
			[]string{"kind"},
		),
		MovementsDeleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "bankledger_movements_deleted_total",
			Help: "Total number of movements deleted",
		}),
		OperationsRejected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bankledger_operations_rejected_total",
				Help: "Ledger operations rejected before persistence, by outcome",
			},
			[]string{"outcome"},
		),
		Reconciliations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bankledger_reconciliations_total",
				Help: "Balance reconciliations by result",
			},
			[]string{"result"},
		),

		UpstreamCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bankledger_upstream_calls_total",
				Help: "Calls to the persistence backend by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
		UpstreamDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bankledger_upstream_call_duration_seconds",
				Help:    "Duration of calls to the persistence backend",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),

		EventsDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "bankledger_events_dropped_total",
			Help: "Ledger events that could not be queued for publication",
		}),
	}
}

// MovementCreated counts a created movement.
func (m *Metrics) MovementCreated(kind domain.MovementKind) {
	m.MovementsCreated.WithLabelValues(kind.String()).Inc()
}

// MovementDeleted counts a deleted movement.
func (m *Metrics) MovementDeleted() {
	m.MovementsDeleted.Inc()
}

// OperationRejected counts a rejected operation.
func (m *Metrics) OperationRejected(outcome usecase.Outcome) {
	m.OperationsRejected.WithLabelValues(string(outcome)).Inc()
}

// Reconciliation counts a reconciliation result.
func (m *Metrics) Reconciliation(result string) {
	m.Reconciliations.WithLabelValues(result).Inc()
}

// UpstreamCall records one persistence call.
func (m *Metrics) UpstreamCall(operation string, duration time.Duration, err error) {
	m.UpstreamCalls.WithLabelValues(operation, string(usecase.Classify(err))).Inc()
	m.UpstreamDuration.WithLabelValues(operation).Observe(duration.Seconds())
}
