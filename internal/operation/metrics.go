package operation

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jbweber/hyperkit/internal/errdefs"
	"github.com/jbweber/hyperkit/internal/restapi"
)

// Await outcomes.
const (
	OutcomeSuccess   = "success"
	OutcomeFailure   = "failure"
	OutcomeCancelled = "cancelled"
	OutcomeTimeout   = "timeout"
	OutcomeError     = "error"
)

// Metrics holds the Prometheus collectors for submitted and awaited
// operations.
type Metrics struct {
	Submitted     *prometheus.CounterVec
	Completed     *prometheus.CounterVec
	AwaitDuration *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Submitted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hyperkit_operations_submitted_total",
				Help: "Total number of operation submissions by HTTP method and result",
			},
			[]string{"method", "result"},
		),
		Completed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hyperkit_operations_completed_total",
				Help: "Total number of awaited operations by outcome",
			},
			[]string{"outcome"},
		),
		AwaitDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "hyperkit_operation_await_duration_seconds",
				Help:    "Time spent waiting for operations to finish",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
			},
			[]string{"outcome"},
		),
	}

	if reg != nil {
		for _, c := range []prometheus.Collector{m.Submitted, m.Completed, m.AwaitDuration} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

func (m *Metrics) submitted(method string, ok bool) {
	if m == nil {
		return
	}
	result := "accepted"
	if !ok {
		result = "rejected"
	}
	m.Submitted.WithLabelValues(method, result).Inc()
}

func (m *Metrics) awaited(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.Completed.WithLabelValues(outcome).Inc()
	m.AwaitDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

func outcomeOf(op *restapi.Operation, err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, errdefs.ErrTimeout):
		return OutcomeTimeout
	case op != nil && op.Status == restapi.OperationFailure:
		return OutcomeFailure
	case op != nil && op.Status == restapi.OperationCancelled:
		return OutcomeCancelled
	default:
		return OutcomeError
	}
}
