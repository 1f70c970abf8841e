// Package k2test provides K2 test servers and recorded card responses.
package k2test

import (
	"embed"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path"
	"strconv"
	"testing"

	"github.com/maxmartens/k2-creek/k2"
)

// Recorded K2 responses.
const (
	// FullResponse carries every field, including examination proof and
	// legacy card data.
	FullResponse = "response.json"
	// ErrorCodeResponse carries card data together with errorCode "123".
	ErrorCodeResponse = "example_response_with_error_code.json"
	// ManyNullsResponse carries vd, gvd, pd, statusVd and MFEFGDO only.
	ManyNullsResponse = "example_response_with_many_nulls.json"
)

// CardDataPath is the path K2 serves card data on.
const CardDataPath = "/k2/public/api/1/carddata"

//go:embed fixtures/*.json
var fixtures embed.FS

// Fixture returns a recorded response body. It panics on an unknown name.
func Fixture(name string) []byte {
	data, err := fixtures.ReadFile(path.Join("fixtures", name))
	if err != nil {
		panic(err)
	}
	return data
}

// NewServer starts a K2 stand-in that answers every request with status,
// contentType and body. The server is closed on test cleanup.
func NewServer(t testing.TB, status int, contentType string, body []byte) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if contentType != "" {
			w.Header().Set("Content-Type", contentType)
		}
		w.WriteHeader(status)
		_, _ = w.Write(body)
	}))
	t.Cleanup(ts.Close)
	return ts
}

// NewFixtureServer serves the named fixture as application/json.
func NewFixtureServer(t testing.TB, name string) *httptest.Server {
	t.Helper()
	return NewServer(t, http.StatusOK, k2.ContentTypeJSON, Fixture(name))
}

// NewNotFoundServer answers like K2 when no card matches the filter.
func NewNotFoundServer(t testing.TB) *httptest.Server {
	t.Helper()
	return NewServer(t, http.StatusNotFound, "text/plain; charset=utf-8", []byte(" card with filter not found "))
}

// Config returns a k2.Config addressing ts on CardDataPath.
func Config(t testing.TB, ts *httptest.Server) k2.Config {
	t.Helper()
	u, err := url.Parse(ts.URL)
	if err != nil {
		t.Fatalf("parse server url: %v", err)
	}
	host, portStr, err := net.SplitHostPort(u.Host)
	if err != nil {
		t.Fatalf("split server host: %v", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatalf("server port: %v", err)
	}
	return k2.Config{Scheme: u.Scheme, Host: host, Port: port, Path: CardDataPath}
}
