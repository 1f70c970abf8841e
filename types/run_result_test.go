package types //nolint:revive // types is a valid package name

import "testing"

func TestOutcomeStatus_Failed(t *testing.T) {
	tests := []struct {
		status OutcomeStatus
		want   bool
	}{
		{OutcomeCardRead, false},
		{OutcomeNoCard, false},
		{OutcomeTransportError, true},
		{OutcomeParseError, true},
		{OutcomeNonJSONResponse, true},
		{OutcomeIOError, true},
	}
	for _, tt := range tests {
		if got := tt.status.Failed(); got != tt.want {
			t.Errorf("%s.Failed() = %v, want %v", tt.status, got, tt.want)
		}
	}
}
