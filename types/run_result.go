// Package types defines core domain types for k2-creek.
//
//nolint:revive // types is a common Go package naming convention
package types

// RunMeta identifies a single fetch-and-materialize run.
type RunMeta struct {
	// RunID is a fresh UUID per process invocation.
	RunID string
	// OutputDir is the directory the artifacts are written to.
	OutputDir string
	// K2URL is the endpoint queried for card data.
	K2URL string
}

// OutcomeStatus is the status of a finished run.
type OutcomeStatus string

const (
	// OutcomeCardRead means card data was materialized.
	OutcomeCardRead OutcomeStatus = "card_read"
	// OutcomeNoCard means K2 answered without card data; only Result.xml exists.
	OutcomeNoCard OutcomeStatus = "no_card"
	// OutcomeTransportError means the K2 request failed.
	OutcomeTransportError OutcomeStatus = "transport_error"
	// OutcomeParseError means K2 claimed JSON but sent something else.
	OutcomeParseError OutcomeStatus = "parse_error"
	// OutcomeNonJSONResponse means K2 sent a failure body that is not JSON.
	OutcomeNonJSONResponse OutcomeStatus = "non_json_response"
	// OutcomeIOError means an artifact could not be deleted or written.
	OutcomeIOError OutcomeStatus = "io_error"
)

// Failed reports whether the status aborts the run.
func (s OutcomeStatus) Failed() bool {
	return s != OutcomeCardRead && s != OutcomeNoCard
}

// RunOutcome is the outcome of a run.
type RunOutcome struct {
	Status  OutcomeStatus `json:"status"`
	Message string        `json:"message"`
}
