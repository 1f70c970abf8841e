package lode

import "time"

// RecordKindRun is the record_kind discriminator of run summaries.
const RecordKindRun = "run"

// EventTypeCardRead is the event_type partition of run summaries.
const EventTypeCardRead = "card_read"

// RunRecord is the storage format of one run summary.
type RunRecord struct {
	ContractVersion string
	RunID           string
	Outcome         string
	CardType        string
	ICCSN           string
	ErrorCode       string
	ErrorText       string
	Artifacts       []string
	BytesWritten    int64
	DurationMs      int64
	Ts              time.Time
}

// toRunRecordMap converts a RunRecord to a map for Lode storage.
// Lode HiveLayout requires records as map[string]any.
func toRunRecordMap(r *RunRecord, cfg Config) map[string]any {
	artifacts := make([]any, 0, len(r.Artifacts))
	for _, a := range r.Artifacts {
		artifacts = append(artifacts, a)
	}
	runID := r.RunID
	if runID == "" {
		runID = cfg.RunID
	}
	return map[string]any{
		"record_kind":      RecordKindRun,
		"contract_version": r.ContractVersion,
		"run_id":           runID,
		"outcome":          r.Outcome,
		"card_type":        r.CardType,
		"iccsn":            r.ICCSN,
		"error_code":       r.ErrorCode,
		"error_text":       r.ErrorText,
		"artifacts":        artifacts,
		"bytes_written":    r.BytesWritten,
		"duration_ms":      r.DurationMs,
		"ts":               r.Ts.UTC().Format(time.RFC3339Nano),
		"event_type":       EventTypeCardRead, // partition key
		"source":           cfg.Source,
		"day":              cfg.Day,
	}
}

// toString converts a value to string, returning empty string for nil/non-string.
func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
