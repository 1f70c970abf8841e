// Package materialize turns a K2 envelope into the output artifacts.
//
// Classify decides which artifacts an envelope yields and NewPlan encodes
// them together with Result.xml, without touching the filesystem.
// Materializer then deletes every stale artifact and writes the planned
// ones, finishing with Result.xml, which exists after every successful run.
package materialize

import (
	"fmt"

	"github.com/maxmartens/k2-creek/artifact"
	"github.com/maxmartens/k2-creek/charset"
	"github.com/maxmartens/k2-creek/log"
	"github.com/maxmartens/k2-creek/metrics"
	"github.com/maxmartens/k2-creek/types"
)

// Artifact is an encoded payload ready to be written.
type Artifact struct {
	Kind types.ArtifactKind
	Data []byte
}

// Classify returns the data artifacts env yields, in table order.
// Without card data the result is empty.
func Classify(env *types.Envelope) ([]Artifact, error) {
	if !env.HasCardData() {
		return nil, nil
	}

	var out []Artifact
	egk := env.EGKData

	texts := []struct {
		kind  types.ArtifactKind
		value *string
		xml   bool
	}{
		{types.ArtifactGeneralInsuranceData, egk.VD, false},
		{types.ArtifactProtectedInsuranceData, egk.GVD, false},
		{types.ArtifactPersonalInsuranceData, egk.PD, false},
		{types.ArtifactStatusVD, egk.StatusVD, true},
		{types.ArtifactExaminationProof, proofXML(egk.PN), true},
	}
	for _, f := range texts {
		if f.value == nil {
			continue
		}
		encode := charset.Encode
		if f.xml {
			encode = charset.EncodeXML
		}
		data, err := encode(*f.value)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", f.kind, err)
		}
		out = append(out, Artifact{Kind: f.kind, Data: data})
	}

	if env.MFEFGDO != nil {
		out = append(out, Artifact{Kind: types.ArtifactMFEFGDO, Data: []byte(*env.MFEFGDO)})
	}

	// Legacy blobs are never written empty: consumers treat a zero-byte
	// file like a missing one.
	if len(env.KVKBinData) > 0 {
		out = append(out, Artifact{Kind: types.ArtifactLegacyCardBinary, Data: env.KVKBinData})
	}
	if env.KVKData != nil && *env.KVKData != "" {
		out = append(out, Artifact{Kind: types.ArtifactLegacyCardData, Data: []byte(*env.KVKData)})
	}

	return out, nil
}

func proofXML(pn *types.ExaminationProof) *string {
	if pn == nil {
		return nil
	}
	return pn.XML
}

// Report describes what one Materialize call changed on disk.
type Report struct {
	CardData     bool                 `json:"card_data"`
	Written      []types.ArtifactKind `json:"-"`
	Deleted      []types.ArtifactKind `json:"-"`
	BytesWritten int64                `json:"bytes_written"`
	Result       *ResultDocument      `json:"result"`
}

// WrittenFiles returns the filenames of the written artifacts.
func (r *Report) WrittenFiles() []string {
	return filenames(r.Written)
}

// DeletedFiles returns the filenames of the removed stale artifacts.
func (r *Report) DeletedFiles() []string {
	return filenames(r.Deleted)
}

func filenames(kinds []types.ArtifactKind) []string {
	names := make([]string, 0, len(kinds))
	for _, k := range kinds {
		names = append(names, types.MustFilename(k))
	}
	return names
}

// Option configures a Materializer.
type Option func(*Materializer)

// WithLogger sets the logger. Defaults to log.Nop().
func WithLogger(l *log.Logger) Option {
	return func(m *Materializer) { m.logger = l }
}

// WithMetrics sets the metrics collector.
func WithMetrics(c *metrics.Collector) Option {
	return func(m *Materializer) { m.metrics = c }
}

// Materializer writes envelopes to an artifact registry.
type Materializer struct {
	registry *artifact.Registry
	logger   *log.Logger
	metrics  *metrics.Collector
}

// New creates a Materializer writing through registry.
func New(registry *artifact.Registry, opts ...Option) *Materializer {
	m := &Materializer{registry: registry, logger: log.Nop()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Plan is the encoded output of one envelope, ready to be applied.
type Plan struct {
	CardData  bool
	Artifacts []Artifact
	Result    []byte
	Document  *ResultDocument
}

// NewPlan classifies env and encodes every payload, including Result.xml.
// It does not touch the filesystem.
func NewPlan(env *types.Envelope) (*Plan, error) {
	artifacts, err := Classify(env)
	if err != nil {
		return nil, err
	}
	result, err := BuildResult(env)
	if err != nil {
		return nil, err
	}
	return &Plan{
		CardData:  env.HasCardData(),
		Artifacts: artifacts,
		Result:    result,
		Document:  NewResultDocument(env),
	}, nil
}

// Materialize regenerates the whole artifact set for env.
func (m *Materializer) Materialize(env *types.Envelope) (*Report, error) {
	plan, err := NewPlan(env)
	if err != nil {
		return nil, err
	}
	return m.Apply(plan)
}

// Apply deletes every stale data artifact, writes the planned ones, and
// deletes and rewrites Result.xml last. The first filesystem failure
// aborts; artifacts flushed before it stay on disk.
func (m *Materializer) Apply(plan *Plan) (*Report, error) {
	report := &Report{
		CardData: plan.CardData,
		Result:   plan.Document,
	}

	if !report.CardData {
		m.logger.Info("no card data in response", map[string]any{
			"error_text": report.Result.ErrorText,
		})
	}

	for _, kind := range types.DataArtifactKinds() {
		if err := m.remove(kind, report); err != nil {
			return report, err
		}
	}
	for _, a := range plan.Artifacts {
		if err := m.write(a.Kind, a.Data, report); err != nil {
			return report, err
		}
	}

	if err := m.remove(types.ArtifactResultSummary, report); err != nil {
		return report, err
	}
	if err := m.write(types.ArtifactResultSummary, plan.Result, report); err != nil {
		return report, err
	}

	return report, nil
}

func (m *Materializer) remove(kind types.ArtifactKind, report *Report) error {
	removed, err := m.registry.Delete(kind)
	if err != nil {
		m.metrics.IncArtifactFailure()
		return err
	}
	if removed {
		m.metrics.IncArtifactDeleted()
		report.Deleted = append(report.Deleted, kind)
		m.logger.Info("deleted stale artifact", map[string]any{
			"file": types.MustFilename(kind),
		})
	}
	return nil
}

func (m *Materializer) write(kind types.ArtifactKind, data []byte, report *Report) error {
	if err := m.registry.Write(kind, data); err != nil {
		m.metrics.IncArtifactFailure()
		return err
	}
	m.metrics.RecordArtifactWritten(len(data))
	report.Written = append(report.Written, kind)
	report.BytesWritten += int64(len(data))
	m.logger.Info("artifact written", map[string]any{
		"file":  types.MustFilename(kind),
		"bytes": len(data),
	})
	return nil
}
