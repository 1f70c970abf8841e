// Package k2 fetches card data from the K2 card-reader middleware.
//
// One run issues exactly one GET. There is no retry: a failed request
// aborts the run and the caller may re-invoke the whole process.
package k2

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/maxmartens/k2-creek/iox"
	"github.com/maxmartens/k2-creek/types"
)

// ContentTypeJSON is the media type K2 uses for card data.
const ContentTypeJSON = "application/json"

// MaxRedirects is the number of redirects followed before giving up.
const MaxRedirects = 10

// MaxBodyBytes bounds the response body read from K2.
const MaxBodyBytes = 32 << 20

// Config locates the K2 card data endpoint.
type Config struct {
	Scheme string
	Host   string
	Port   int
	Path   string
	// Timeout bounds the whole request. Zero means no timeout.
	Timeout time.Duration
}

// URL concatenates scheme, host, port and path.
func (c Config) URL() string {
	return fmt.Sprintf("%s://%s:%d%s", c.Scheme, c.Host, c.Port, c.Path)
}

// Validate checks that the endpoint can be addressed.
func (c Config) Validate() error {
	switch c.Scheme {
	case "http", "https":
	default:
		return fmt.Errorf("k2 scheme must be http or https, got %q", c.Scheme)
	}
	if c.Host == "" {
		return errors.New("k2 host is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("k2 port out of range: %d", c.Port)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("k2 timeout must be >= 0, got %s", c.Timeout)
	}
	return nil
}

// RawResponse is an HTTP reply from K2 before classification.
type RawResponse struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// ContentType returns the Content-Type header value.
func (r *RawResponse) ContentType() string {
	return r.Header.Get("Content-Type")
}

// IsJSON reports whether the reply is labelled application/json.
// Media type parameters such as charset are ignored.
func (r *RawResponse) IsJSON() bool {
	ct := r.ContentType()
	if ct == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return false
	}
	return mediaType == ContentTypeJSON
}

// Response is a classified K2 reply.
type Response struct {
	StatusCode int
	// JSON is false when the envelope came from the failure handler.
	JSON     bool
	Envelope *types.Envelope
}

// Client issues card data requests against one K2 endpoint.
type Client struct {
	url    string
	client *http.Client
}

// New creates a client for the configured endpoint.
func New(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Client{
		url: cfg.URL(),
		client: &http.Client{
			Timeout:       cfg.Timeout,
			CheckRedirect: checkRedirect,
		},
	}, nil
}

// URL returns the endpoint queried by Fetch.
func (c *Client) URL() string {
	return c.url
}

// Fetch performs one blocking GET and returns the reply unclassified.
// Any failure to obtain a reply is a *TransportError.
func (c *Client) Fetch(ctx context.Context) (*RawResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, &TransportError{URL: c.url, Err: err}
	}
	req.Header.Set("Accept", ContentTypeJSON)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &TransportError{URL: c.url, Err: err}
	}
	defer iox.DiscardClose(resp.Body)

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodyBytes+1))
	if err != nil {
		return nil, &TransportError{URL: c.url, Err: fmt.Errorf("read body: %w", err)}
	}
	if len(body) > MaxBodyBytes {
		return nil, &TransportError{URL: c.url, Err: fmt.Errorf("body exceeds %d bytes", MaxBodyBytes)}
	}

	return &RawResponse{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, nil
}

// Retrieve fetches and classifies the reply. JSON bodies are decoded into
// an envelope; everything else goes to the failure handler.
func (c *Client) Retrieve(ctx context.Context, handler FailureHandler) (*Response, error) {
	raw, err := c.Fetch(ctx)
	if err != nil {
		return nil, err
	}

	if raw.IsJSON() {
		env, err := Decode(raw)
		if err != nil {
			return nil, err
		}
		return &Response{StatusCode: raw.StatusCode, JSON: true, Envelope: env}, nil
	}

	if handler == nil {
		handler = DefaultFailureHandler{}
	}
	env, err := handler.HandleFailure(raw)
	if err != nil {
		return nil, err
	}
	return &Response{StatusCode: raw.StatusCode, Envelope: env}, nil
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

// Decode parses a JSON reply into an envelope.
func Decode(raw *RawResponse) (*types.Envelope, error) {
	var env types.Envelope
	if err := json.Unmarshal(raw.Body, &env); err != nil {
		return nil, &ParseError{StatusCode: raw.StatusCode, Err: err}
	}
	return &env, nil
}

func checkRedirect(_ *http.Request, via []*http.Request) error {
	if len(via) >= MaxRedirects {
		return fmt.Errorf("%w: stopped after %d redirects", ErrRedirectLoop, len(via))
	}
	return nil
}
