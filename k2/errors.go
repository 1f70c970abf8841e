package k2

import (
	"errors"
	"fmt"
)

// Sentinel errors for classifying a failed retrieval.
// Use errors.Is(err, ErrXxx) rather than matching messages.
var (
	// ErrTransport indicates the request to K2 did not produce a response.
	ErrTransport = errors.New("k2 request failed")

	// ErrRedirectLoop indicates K2 kept redirecting.
	ErrRedirectLoop = errors.New("redirect loop")

	// ErrParse indicates a body labelled JSON could not be decoded.
	ErrParse = errors.New("k2 payload is not valid JSON")

	// ErrNonJSON indicates K2 answered with a failure body that is not JSON.
	ErrNonJSON = errors.New("k2 response is not JSON")
)

// maxBodyInMessage bounds how much of a failure body ends up in an error.
const maxBodyInMessage = 512

// TransportError reports a connection, timeout or redirect failure.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	if errors.Is(e.Err, ErrRedirectLoop) {
		return fmt.Sprintf("redirect loop when attempting to get JSON from K2 at %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("request to %s failed: %v", e.URL, e.Err)
}

// Unwrap returns the underlying error.
func (e *TransportError) Unwrap() error { return e.Err }

// Is matches ErrTransport.
func (e *TransportError) Is(target error) bool { return target == ErrTransport }

// ParseError reports a JSON body that could not be decoded.
type ParseError struct {
	StatusCode int
	Err        error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("unable to deserialize payload to JSON. Status: %d - Error: %v", e.StatusCode, e.Err)
}

// Unwrap returns the decoder error.
func (e *ParseError) Unwrap() error { return e.Err }

// Is matches ErrParse.
func (e *ParseError) Is(target error) bool { return target == ErrParse }

// NonJSONResponseError reports a non-JSON reply the failure handler did not
// turn into an envelope.
type NonJSONResponseError struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

func (e *NonJSONResponseError) Error() string {
	body := e.Body
	suffix := ""
	if len(body) > maxBodyInMessage {
		body = body[:maxBodyInMessage]
		suffix = "..."
	}
	ct := e.ContentType
	if ct == "" {
		ct = "none"
	}
	return fmt.Sprintf("K2 answered with status %d and content type %s: %q%s", e.StatusCode, ct, body, suffix)
}

// Is matches ErrNonJSON.
func (e *NonJSONResponseError) Is(target error) bool { return target == ErrNonJSON }
