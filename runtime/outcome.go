package runtime

import (
	"errors"

	"github.com/maxmartens/k2-creek/artifact"
	"github.com/maxmartens/k2-creek/k2"
	"github.com/maxmartens/k2-creek/types"
)

// Process exit codes.
const (
	ExitCodeSuccess   = 0 // card read or no card found
	ExitCodeConfig    = 1 // invalid configuration or arguments
	ExitCodeTransport = 2 // K2 unreachable
	ExitCodeParse     = 3 // K2 claimed JSON but the body did not parse
	ExitCodeNonJSON   = 4 // K2 sent a non-JSON failure reply
	ExitCodeIO        = 5 // an artifact could not be deleted or written
)

// DetermineOutcome classifies the result of a run. A nil err yields
// card_read or no_card depending on whether card data was present.
func DetermineOutcome(err error, cardData bool) *types.RunOutcome {
	if err == nil {
		if cardData {
			return &types.RunOutcome{Status: types.OutcomeCardRead, Message: "card data written"}
		}
		return &types.RunOutcome{Status: types.OutcomeNoCard, Message: "no card data in response"}
	}

	status := types.OutcomeIOError
	var stageErr *StageError
	switch {
	case errors.As(err, &stageErr) && stageErr.Stage == StageClassifying:
		// Payloads that cannot be encoded are bad input, like a parse failure.
		status = types.OutcomeParseError
	case errors.Is(err, k2.ErrTransport):
		status = types.OutcomeTransportError
	case errors.Is(err, k2.ErrParse):
		status = types.OutcomeParseError
	case errors.Is(err, k2.ErrNonJSON):
		status = types.OutcomeNonJSONResponse
	case errors.Is(err, artifact.ErrIO):
		status = types.OutcomeIOError
	}
	return &types.RunOutcome{Status: status, Message: err.Error()}
}

// ExitCode maps an outcome status to the process exit code.
func ExitCode(status types.OutcomeStatus) int {
	switch status {
	case types.OutcomeCardRead, types.OutcomeNoCard:
		return ExitCodeSuccess
	case types.OutcomeTransportError:
		return ExitCodeTransport
	case types.OutcomeParseError:
		return ExitCodeParse
	case types.OutcomeNonJSONResponse:
		return ExitCodeNonJSON
	default:
		return ExitCodeIO
	}
}
