package lode

import (
	"context"

	"github.com/maxmartens/k2-creek/artifact"
	"github.com/maxmartens/k2-creek/metrics"
	"github.com/maxmartens/k2-creek/types"
)

// InstrumentedSink wraps an ArtifactSink and records mirror metrics.
// Each WriteArtifacts/WriteRun call increments mirror_success or
// mirror_failure on the metrics collector.
type InstrumentedSink struct {
	inner     ArtifactSink
	collector *metrics.Collector
}

// NewInstrumentedSink wraps a sink with metrics instrumentation.
func NewInstrumentedSink(inner ArtifactSink, collector *metrics.Collector) *InstrumentedSink {
	return &InstrumentedSink{inner: inner, collector: collector}
}

// WriteArtifacts delegates to the inner sink and records success or failure.
func (s *InstrumentedSink) WriteArtifacts(ctx context.Context, reg *artifact.Registry, kinds []types.ArtifactKind) error {
	return s.record(s.inner.WriteArtifacts(ctx, reg, kinds))
}

// WriteRun delegates to the inner sink and records success or failure.
func (s *InstrumentedSink) WriteRun(ctx context.Context, record *RunRecord) error {
	return s.record(s.inner.WriteRun(ctx, record))
}

func (s *InstrumentedSink) record(err error) error {
	if err != nil {
		s.collector.IncMirrorFailure()
	} else {
		s.collector.IncMirrorSuccess()
	}
	return err
}

// Close delegates to the inner sink.
func (s *InstrumentedSink) Close() error {
	return s.inner.Close()
}

// Verify InstrumentedSink implements ArtifactSink.
var _ ArtifactSink = (*InstrumentedSink)(nil)
