package lode

import (
	"context"
	"fmt"

	"github.com/maxmartens/k2-creek/artifact"
	"github.com/maxmartens/k2-creek/types"
)

// Content types attached to mirrored artifacts.
const (
	ContentTypeXML    = "application/xml"
	ContentTypeBinary = "application/octet-stream"
	ContentTypeText   = "text/plain"
)

// Client abstracts the Lode storage client.
// Real implementations connect to Lode; stubs are used for testing.
type Client interface {
	FileWriter
	// WriteRun stores the summary record of a run.
	WriteRun(ctx context.Context, record *RunRecord) error
	// Close releases resources.
	Close() error
}

// ArtifactSink receives the outcome of a run.
type ArtifactSink interface {
	// WriteArtifacts copies the listed artifacts out of reg.
	WriteArtifacts(ctx context.Context, reg *artifact.Registry, kinds []types.ArtifactKind) error
	// WriteRun stores the run summary.
	WriteRun(ctx context.Context, record *RunRecord) error
	// Close releases resources.
	Close() error
}

// Sink is the Lode-backed ArtifactSink.
type Sink struct {
	client Client
}

// NewSink creates a sink writing through client.
func NewSink(client Client) *Sink {
	return &Sink{client: client}
}

// WriteArtifacts implements ArtifactSink.
func (s *Sink) WriteArtifacts(ctx context.Context, reg *artifact.Registry, kinds []types.ArtifactKind) error {
	return Mirror(ctx, s.client, reg, kinds)
}

// WriteRun implements ArtifactSink.
func (s *Sink) WriteRun(ctx context.Context, record *RunRecord) error {
	return s.client.WriteRun(ctx, record)
}

// Close implements ArtifactSink.
func (s *Sink) Close() error {
	return s.client.Close()
}

// Verify Sink implements ArtifactSink.
var _ ArtifactSink = (*Sink)(nil)

// Mirror reads each listed artifact from reg and writes it to w under its
// canonical filename. It stops at the first failure.
func Mirror(ctx context.Context, w FileWriter, reg *artifact.Registry, kinds []types.ArtifactKind) error {
	for _, kind := range kinds {
		if err := ctx.Err(); err != nil {
			return err
		}
		name, err := reg.Filename(kind)
		if err != nil {
			return err
		}
		data, err := reg.Read(kind)
		if err != nil {
			return err
		}
		if err := w.PutFile(ctx, name, ContentType(kind), data); err != nil {
			return fmt.Errorf("mirror %s: %w", name, err)
		}
	}
	return nil
}

// ContentType returns the media type of an artifact kind.
func ContentType(kind types.ArtifactKind) string {
	switch kind {
	case types.ArtifactLegacyCardBinary:
		return ContentTypeBinary
	case types.ArtifactLegacyCardData:
		return ContentTypeText
	default:
		return ContentTypeXML
	}
}
