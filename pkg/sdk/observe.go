package facetd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// sdkMetrics holds prometheus metrics registered for the SDK.
type sdkMetrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	missing    *prometheus.CounterVec
}

func newSDKMetrics(reg prometheus.Registerer) (*sdkMetrics, error) {
	m := &sdkMetrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "facetd",
			Subsystem: "sdk",
			Name:      "operations_total",
			Help:      "Total SDK operations by type and status.",
		}, []string{"operation", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "facetd",
			Subsystem: "sdk",
			Name:      "operation_duration_seconds",
			Help:      "SDK operation duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		missing: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "facetd",
			Subsystem: "sdk",
			Name:      "possible_missing_total",
			Help:      "Facets returned with a possibly missing higher-ranked label.",
		}, []string{"kind"}),
	}
	if err := registerOrReuse(reg, &m.operations); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.duration); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.missing); err != nil {
		return nil, err
	}
	return m, nil
}

// registerOrReuse registers a collector or reuses an existing one.
func registerOrReuse[T prometheus.Collector](reg prometheus.Registerer, c *T) error {
	if err := reg.Register(*c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			existing, ok := are.ExistingCollector.(T)
			if !ok {
				return fmt.Errorf("facetd: metric already registered with incompatible type: %T", are.ExistingCollector)
			}
			*c = existing
			return nil
		}
		return fmt.Errorf("facetd: register metric: %w", err)
	}
	return nil
}

// observer provides logging and metrics for SDK operations.
type observer struct {
	logger  *slog.Logger
	metrics *sdkMetrics
}

func newObserver(logger *slog.Logger, reg prometheus.Registerer) (*observer, error) {
	var m *sdkMetrics
	if reg != nil {
		var err error
		m, err = newSDKMetrics(reg)
		if err != nil {
			return nil, err
		}
	}
	return &observer{logger: logger, metrics: m}, nil
}

func (o *observer) observe(op string, start time.Time, err error) {
	if o == nil {
		return
	}
	dur := time.Since(start)

	if o.metrics != nil {
		o.metrics.operations.WithLabelValues(op, statusOf(err)).Inc()
		o.metrics.duration.WithLabelValues(op).Observe(dur.Seconds())
	}

	if o.logger != nil {
		switch {
		case err == nil:
			o.logger.Debug("operation completed", "op", op, "duration", dur)
		case isCanceled(err):
			o.logger.Debug("operation canceled", "op", op, "duration", dur, "error", err)
		default:
			o.logger.Warn("operation failed", "op", op, "duration", dur, "error", err)
		}
	}
}

func isCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func statusOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case isCanceled(err):
		return "canceled"
	default:
		return "error"
	}
}

// observeResult records facets flagged as possibly missing a label.
func (o *observer) observeResult(r Result) {
	if o == nil {
		return
	}
	for _, c := range r.Counts {
		if c.PossibleMissing {
			o.missed("count", c.Dim)
		}
	}
	for _, s := range r.Stats {
		if s.PossibleMissing {
			o.missed("stat", s.Field)
		}
	}
}

func (o *observer) missed(kind, name string) {
	if o.metrics != nil {
		o.metrics.missing.WithLabelValues(kind).Inc()
	}
	if o.logger != nil {
		o.logger.Debug("facet may miss a label", "kind", kind, "name", name)
	}
}
