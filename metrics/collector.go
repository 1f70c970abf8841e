// Package metrics provides per-run counters.
//
// The Collector accumulates counters during a single run. It is a leaf
// package with no internal dependencies so that every stage can record
// into it without import cycles.
package metrics

import "sync"

// Snapshot is an immutable point-in-time view of all counters.
type Snapshot struct {
	// Transport
	FetchSuccess     int64 `json:"fetch_success" yaml:"fetch_success"`
	FetchFailure     int64 `json:"fetch_failure" yaml:"fetch_failure"`
	JSONResponses    int64 `json:"json_responses" yaml:"json_responses"`
	NonJSONResponses int64 `json:"non_json_responses" yaml:"non_json_responses"`
	ParseFailures    int64 `json:"parse_failures" yaml:"parse_failures"`

	// Artifacts
	ArtifactsWritten int64 `json:"artifacts_written" yaml:"artifacts_written"`
	ArtifactsDeleted int64 `json:"artifacts_deleted" yaml:"artifacts_deleted"`
	ArtifactFailures int64 `json:"artifact_failures" yaml:"artifact_failures"`
	BytesWritten     int64 `json:"bytes_written" yaml:"bytes_written"`

	// Mirror / notification
	MirrorSuccess  int64 `json:"mirror_success" yaml:"mirror_success"`
	MirrorFailure  int64 `json:"mirror_failure" yaml:"mirror_failure"`
	PublishSuccess int64 `json:"publish_success" yaml:"publish_success"`
	PublishFailure int64 `json:"publish_failure" yaml:"publish_failure"`

	// Dimensions (informational, set at construction)
	RunID         string `json:"run_id" yaml:"run_id"`
	MirrorBackend string `json:"mirror_backend,omitempty" yaml:"mirror_backend,omitempty"`
	AdapterType   string `json:"adapter_type,omitempty" yaml:"adapter_type,omitempty"`
}

// Collector accumulates metrics during a single run.
// Thread-safe via sync.Mutex. All increment methods are nil-receiver safe.
type Collector struct {
	mu sync.Mutex

	fetchSuccess     int64
	fetchFailure     int64
	jsonResponses    int64
	nonJSONResponses int64
	parseFailures    int64

	artifactsWritten int64
	artifactsDeleted int64
	artifactFailures int64
	bytesWritten     int64

	mirrorSuccess  int64
	mirrorFailure  int64
	publishSuccess int64
	publishFailure int64

	runID         string
	mirrorBackend string
	adapterType   string
}

// NewCollector creates a Collector with dimension labels.
// mirrorBackend and adapterType are empty when the feature is disabled.
func NewCollector(runID, mirrorBackend, adapterType string) *Collector {
	return &Collector{
		runID:         runID,
		mirrorBackend: mirrorBackend,
		adapterType:   adapterType,
	}
}

func (c *Collector) add(field *int64, n int64) {
	c.mu.Lock()
	*field += n
	c.mu.Unlock()
}

// --- Transport ---

// IncFetchSuccess records a request that produced a reply.
func (c *Collector) IncFetchSuccess() {
	if c == nil {
		return
	}
	c.add(&c.fetchSuccess, 1)
}

// IncFetchFailure records a request that produced no reply.
func (c *Collector) IncFetchFailure() {
	if c == nil {
		return
	}
	c.add(&c.fetchFailure, 1)
}

// IncJSONResponse records a reply labelled application/json.
func (c *Collector) IncJSONResponse() {
	if c == nil {
		return
	}
	c.add(&c.jsonResponses, 1)
}

// IncNonJSONResponse records a reply handed to the failure handler.
func (c *Collector) IncNonJSONResponse() {
	if c == nil {
		return
	}
	c.add(&c.nonJSONResponses, 1)
}

// IncParseFailure records a JSON reply that could not be decoded.
func (c *Collector) IncParseFailure() {
	if c == nil {
		return
	}
	c.add(&c.parseFailures, 1)
}

// --- Artifacts ---

// RecordArtifactWritten records one artifact write of n bytes.
func (c *Collector) RecordArtifactWritten(n int) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.artifactsWritten++
	c.bytesWritten += int64(n)
	c.mu.Unlock()
}

// IncArtifactDeleted records removal of a stale artifact.
func (c *Collector) IncArtifactDeleted() {
	if c == nil {
		return
	}
	c.add(&c.artifactsDeleted, 1)
}

// IncArtifactFailure records a failed delete or write.
func (c *Collector) IncArtifactFailure() {
	if c == nil {
		return
	}
	c.add(&c.artifactFailures, 1)
}

// --- Mirror / notification ---

// IncMirrorSuccess records one artifact copied to the mirror.
func (c *Collector) IncMirrorSuccess() {
	if c == nil {
		return
	}
	c.add(&c.mirrorSuccess, 1)
}

// IncMirrorFailure records one artifact the mirror rejected.
func (c *Collector) IncMirrorFailure() {
	if c == nil {
		return
	}
	c.add(&c.mirrorFailure, 1)
}

// IncPublishSuccess records a delivered notification.
func (c *Collector) IncPublishSuccess() {
	if c == nil {
		return
	}
	c.add(&c.publishSuccess, 1)
}

// IncPublishFailure records a notification that could not be delivered.
func (c *Collector) IncPublishFailure() {
	if c == nil {
		return
	}
	c.add(&c.publishFailure, 1)
}

// --- Snapshot ---

// Snapshot returns an immutable point-in-time view of all metrics.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	return Snapshot{
		FetchSuccess:     c.fetchSuccess,
		FetchFailure:     c.fetchFailure,
		JSONResponses:    c.jsonResponses,
		NonJSONResponses: c.nonJSONResponses,
		ParseFailures:    c.parseFailures,

		ArtifactsWritten: c.artifactsWritten,
		ArtifactsDeleted: c.artifactsDeleted,
		ArtifactFailures: c.artifactFailures,
		BytesWritten:     c.bytesWritten,

		MirrorSuccess:  c.mirrorSuccess,
		MirrorFailure:  c.mirrorFailure,
		PublishSuccess: c.publishSuccess,
		PublishFailure: c.publishFailure,

		RunID:         c.runID,
		MirrorBackend: c.mirrorBackend,
		AdapterType:   c.adapterType,
	}
}
