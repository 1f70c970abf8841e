// Package adapter defines the notification boundary of k2-creek.
//
// Adapters tell downstream systems, such as the practice management
// software, that a card read finished and which files it left behind.
// The runtime owns adapter lifecycle; users provide configuration only.
package adapter

import "context"

// EventTypeCardRead is the event type of every published event.
const EventTypeCardRead = "card_read"

// CardReadEvent is the payload published when a run finishes.
type CardReadEvent struct {
	ContractVersion string   `json:"contract_version" msgpack:"contract_version"`
	EventType       string   `json:"event_type" msgpack:"event_type"` // always "card_read"
	RunID           string   `json:"run_id" msgpack:"run_id"`
	Outcome         string   `json:"outcome" msgpack:"outcome"` // card_read, no_card, transport_error, etc.
	CardType        string   `json:"card_type,omitempty" msgpack:"card_type,omitempty"`
	ICCSN           string   `json:"iccsn,omitempty" msgpack:"iccsn,omitempty"`
	ErrorCode       string   `json:"error_code,omitempty" msgpack:"error_code,omitempty"`
	ErrorText       string   `json:"error_text,omitempty" msgpack:"error_text,omitempty"`
	Artifacts       []string `json:"artifacts" msgpack:"artifacts"`
	OutputDir       string   `json:"output_dir" msgpack:"output_dir"`
	Timestamp       string   `json:"timestamp" msgpack:"timestamp"` // RFC 3339
	DurationMs      int64    `json:"duration_ms" msgpack:"duration_ms"`
}

// Adapter publishes card read events to a downstream system.
type Adapter interface {
	// Publish sends the event downstream.
	// Must respect context cancellation and deadlines.
	Publish(ctx context.Context, event *CardReadEvent) error

	// Close releases adapter resources.
	Close() error
}
