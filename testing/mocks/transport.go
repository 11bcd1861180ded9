package mocks

import (
	"fmt"
	"io"
	nethttp "net/http"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/stretchr/testify/mock"
)

// MockRoundTripper provides a testify-based mock implementation of the
// nethttp.RoundTripper interface.
//
// Example usage:
//
//	rt := &mocks.MockRoundTripper{}
//	rt.On("RoundTrip", mock.Anything).Return(mocks.Response(200, `{}`), nil)
type MockRoundTripper struct {
	mock.Mock
}

// RoundTrip implements nethttp.RoundTripper
func (m *MockRoundTripper) RoundTrip(req *nethttp.Request) (*nethttp.Response, error) {
	arguments := m.Called(req)
	resp, _ := arguments.Get(0).(*nethttp.Response)
	return resp, arguments.Error(1)
}

// ExpectRoundTrip sets up a round trip expectation for any request.
func (m *MockRoundTripper) ExpectRoundTrip(resp *nethttp.Response, err error) *mock.Call {
	return m.On("RoundTrip", mock.Anything).Return(resp, err)
}

// Response builds a minimal HTTP response for stubbing round trips.
func Response(status int, body string) *nethttp.Response {
	return &nethttp.Response{
		Status:     fmt.Sprintf("%d %s", status, nethttp.StatusText(status)),
		StatusCode: status,
		Proto:      "HTTP/1.1",
		ProtoMajor: 1,
		ProtoMinor: 1,
		Header:     make(nethttp.Header),
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

// StaticResponder is an nethttp.RoundTripper that answers every request with
// a fresh response of the configured status and body, and counts requests.
type StaticResponder struct {
	status   int
	body     string
	requests atomic.Int64
}

// NewStaticResponder creates a responder answering with the given status and
// body.
func NewStaticResponder(status int, body string) *StaticResponder {
	return &StaticResponder{status: status, body: body}
}

// RoundTrip implements nethttp.RoundTripper
func (s *StaticResponder) RoundTrip(req *nethttp.Request) (*nethttp.Response, error) {
	s.requests.Add(1)
	resp := Response(s.status, s.body)
	resp.Request = req
	return resp, nil
}

// Requests returns how many requests the responder has served.
func (s *StaticResponder) Requests() int64 {
	return s.requests.Load()
}

// FailingRoundTripper is an nethttp.RoundTripper that fails every request
// with the configured error.
type FailingRoundTripper struct {
	Err      error
	requests atomic.Int64
}

// RoundTrip implements nethttp.RoundTripper
func (f *FailingRoundTripper) RoundTrip(*nethttp.Request) (*nethttp.Response, error) {
	f.requests.Add(1)
	return nil, f.Err
}

// Requests returns how many requests the round tripper has failed.
func (f *FailingRoundTripper) Requests() int64 {
	return f.requests.Load()
}

// TrackingTransport wraps a delegate round tripper and records disposal so
// tests can assert when a pooled chain's inner transport is released.
type TrackingTransport struct {
	mu         sync.Mutex
	delegate   nethttp.RoundTripper
	closeErr   error
	closeCalls int
	requests   int
}

// NewTrackingTransport creates a tracking transport. A nil delegate serves
// 200 responses with an empty body.
func NewTrackingTransport(delegate nethttp.RoundTripper) *TrackingTransport {
	if delegate == nil {
		delegate = NewStaticResponder(nethttp.StatusOK, "")
	}
	return &TrackingTransport{delegate: delegate}
}

// SetCloseError makes subsequent Close calls return err.
func (t *TrackingTransport) SetCloseError(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closeErr = err
}

// RoundTrip implements nethttp.RoundTripper
func (t *TrackingTransport) RoundTrip(req *nethttp.Request) (*nethttp.Response, error) {
	t.mu.Lock()
	t.requests++
	delegate := t.delegate
	t.mu.Unlock()
	return delegate.RoundTrip(req)
}

// Close implements io.Closer
func (t *TrackingTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closeCalls++
	return t.closeErr
}

// Closed reports whether Close has been called at least once.
func (t *TrackingTransport) Closed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closeCalls > 0
}

// CloseCalls returns how many times Close has been called.
func (t *TrackingTransport) CloseCalls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closeCalls
}

// Requests returns how many requests the transport has served.
func (t *TrackingTransport) Requests() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.requests
}
