package k2

import (
	"net/http"

	"github.com/maxmartens/k2-creek/types"
)

// FailureHandler turns a non-JSON reply into an envelope or an error.
type FailureHandler interface {
	HandleFailure(raw *RawResponse) (*types.Envelope, error)
}

// FailureHandlerFunc adapts a function to FailureHandler.
type FailureHandlerFunc func(raw *RawResponse) (*types.Envelope, error)

// HandleFailure calls f.
func (f FailureHandlerFunc) HandleFailure(raw *RawResponse) (*types.Envelope, error) {
	return f(raw)
}

// DefaultFailureHandler maps 404 to the "no card found" envelope and every
// other non-JSON reply to a *NonJSONResponseError.
type DefaultFailureHandler struct{}

// HandleFailure implements FailureHandler.
func (DefaultFailureHandler) HandleFailure(raw *RawResponse) (*types.Envelope, error) {
	if raw.StatusCode == http.StatusNotFound {
		return types.NotFoundEnvelope(types.NotFoundText), nil
	}
	return nil, &NonJSONResponseError{
		StatusCode:  raw.StatusCode,
		ContentType: raw.ContentType(),
		Body:        raw.Body,
	}
}

var _ FailureHandler = DefaultFailureHandler{}
