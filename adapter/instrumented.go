package adapter

import (
	"context"

	"github.com/maxmartens/k2-creek/metrics"
)

// Instrumented wraps an Adapter and records publish_success or
// publish_failure for every Publish call.
type Instrumented struct {
	inner     Adapter
	collector *metrics.Collector
}

// NewInstrumented wraps inner with metrics instrumentation.
func NewInstrumented(inner Adapter, collector *metrics.Collector) *Instrumented {
	return &Instrumented{inner: inner, collector: collector}
}

// Publish delegates to the inner adapter and records the outcome.
func (a *Instrumented) Publish(ctx context.Context, event *CardReadEvent) error {
	err := a.inner.Publish(ctx, event)
	if err != nil {
		a.collector.IncPublishFailure()
	} else {
		a.collector.IncPublishSuccess()
	}
	return err
}

// Close delegates to the inner adapter.
func (a *Instrumented) Close() error {
	return a.inner.Close()
}

// Verify Instrumented implements Adapter.
var _ Adapter = (*Instrumented)(nil)
