package fixtures

import (
	"encoding/json"
	nethttp "net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

// Content type constants
const (
	ApplicationJSONContentType = "application/json"
	TextPlainContentType       = "text/plain"
)

// UpstreamFixtures provides pre-configured httptest servers for common
// outbound client scenarios. Every server is closed automatically when the
// test finishes.

// NewHealthyUpstream starts a server answering every request with 200 and
// the given JSON body.
func NewHealthyUpstream(t *testing.T, body string) *httptest.Server {
	t.Helper()
	return newUpstream(t, func(w nethttp.ResponseWriter, _ *nethttp.Request) {
		w.Header().Set("Content-Type", ApplicationJSONContentType)
		w.WriteHeader(nethttp.StatusOK)
		_, _ = w.Write([]byte(body))
	})
}

// NewStatusUpstream starts a server answering every request with the given
// status code and an empty body.
func NewStatusUpstream(t *testing.T, status int) *httptest.Server {
	t.Helper()
	return newUpstream(t, func(w nethttp.ResponseWriter, _ *nethttp.Request) {
		w.WriteHeader(status)
	})
}

// NewFlakyUpstream starts a server failing the first failures requests with
// failStatus and answering 200 afterwards. This is useful for testing retry
// stages.
func NewFlakyUpstream(t *testing.T, failures int, failStatus int) *httptest.Server {
	t.Helper()
	var served atomic.Int64
	return newUpstream(t, func(w nethttp.ResponseWriter, _ *nethttp.Request) {
		if served.Add(1) <= int64(failures) {
			w.WriteHeader(failStatus)
			return
		}
		w.WriteHeader(nethttp.StatusOK)
	})
}

// NewSlowUpstream starts a server delaying every response by delay before
// answering 200. This is useful for testing timeouts and throttles.
func NewSlowUpstream(t *testing.T, delay time.Duration) *httptest.Server {
	t.Helper()
	return newUpstream(t, func(w nethttp.ResponseWriter, r *nethttp.Request) {
		select {
		case <-time.After(delay):
			w.WriteHeader(nethttp.StatusOK)
		case <-r.Context().Done():
		}
	})
}

// EchoPayload is what NewEchoUpstream answers with.
type EchoPayload struct {
	Method  string              `json:"method"`
	Path    string              `json:"path"`
	Query   string              `json:"query"`
	Headers map[string][]string `json:"headers"`
}

// NewEchoUpstream starts a server echoing each request's method, path,
// query, and headers back as JSON. This is useful for asserting what a
// composed chain actually sent on the wire.
func NewEchoUpstream(t *testing.T) *httptest.Server {
	t.Helper()
	return newUpstream(t, func(w nethttp.ResponseWriter, r *nethttp.Request) {
		payload := EchoPayload{
			Method:  r.Method,
			Path:    r.URL.Path,
			Query:   r.URL.RawQuery,
			Headers: r.Header,
		}
		w.Header().Set("Content-Type", ApplicationJSONContentType)
		w.WriteHeader(nethttp.StatusOK)
		_ = json.NewEncoder(w).Encode(payload)
	})
}

// DecodeEcho reads an echo response body into an EchoPayload.
func DecodeEcho(t *testing.T, resp *nethttp.Response) EchoPayload {
	t.Helper()
	defer resp.Body.Close()
	var payload EchoPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("Failed to decode echo payload: %v", err)
	}
	return payload
}

func newUpstream(t *testing.T, handler nethttp.HandlerFunc) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}
