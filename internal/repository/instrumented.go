package repository

import (
	"context"
	"time"

	"github.com/jwalitptl/health-enrollment/pkg/metrics"
)

type instrumented struct {
	Store
	metrics *metrics.Metrics
}

// Instrument records count, outcome and duration of every transaction run
// through the returned store.
func Instrument(store Store, m *metrics.Metrics) Store {
	if m == nil {
		return store
	}
	return &instrumented{Store: store, metrics: m}
}

func (s *instrumented) WithTx(ctx context.Context, fn func(Store) error) error {
	start := time.Now()
	err := s.Store.WithTx(ctx, fn)

	status := "commit"
	if err != nil {
		status = "rollback"
	}
	s.metrics.DatabaseOperations.WithLabelValues("tx", status).Inc()
	s.metrics.DatabaseLatency.WithLabelValues("tx").Observe(time.Since(start).Seconds())
	return err
}
