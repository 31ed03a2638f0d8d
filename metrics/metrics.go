package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// ExceptionCounterName is the metric name of the failure counter.
	ExceptionCounterName = "exception_counter"

	// ExceptionTypeLabel is the label carrying the failure kind.
	ExceptionTypeLabel = "exception_type"
)

// ExceptionCounter counts failures by kind.
type ExceptionCounter struct {
	vec *prometheus.CounterVec
}

// NewExceptionCounter creates the counter and registers it with reg.
// A nil reg registers with prometheus.DefaultRegisterer. If an identical
// collector is already registered, the existing one is reused.
func NewExceptionCounter(reg prometheus.Registerer) (*ExceptionCounter, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	vec := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: ExceptionCounterName,
			Help: "Total number of failures by exception type",
		},
		[]string{ExceptionTypeLabel},
	)

	if err := reg.Register(vec); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			return nil, err
		}
		existing, ok := are.ExistingCollector.(*prometheus.CounterVec)
		if !ok {
			return nil, err
		}
		vec = existing
	}

	return &ExceptionCounter{vec: vec}, nil
}

// Increment adds one to the counter for kind.
func (c *ExceptionCounter) Increment(kind string) {
	c.vec.WithLabelValues(kind).Inc()
}

// Collector returns the underlying counter vector.
func (c *ExceptionCounter) Collector() prometheus.Collector {
	return c.vec
}
