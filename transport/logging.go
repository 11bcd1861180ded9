package transport

import (
	"bytes"
	"io"
	nethttp "net/http"
	"time"

	"github.com/gaborage/go-conduit/logger"
)

// Log event field names shared by every outbound request observation.
const (
	fieldGroup           = "group"
	fieldCommand         = "command"
	fieldMethod          = "method"
	fieldPath            = "path"
	fieldHost            = "host"
	fieldStatus          = "status"
	fieldQuery           = "query"
	fieldElapsed         = "elapsed"
	fieldRequestHeaders  = "request_headers"
	fieldResponseHeaders = "response_headers"
	fieldRequestBody     = "request_body"
	fieldResponseBody    = "response_body"
)

// maxPayloadCaptureBytes caps how much of a body detailed tracing records.
const maxPayloadCaptureBytes = 2048

// headerAuthorization is never captured, in either direction, under any
// flag combination.
const headerAuthorization = "Authorization"

type loggingStage struct {
	log  logger.Logger
	opts Options
}

// newLoggingStage builds the stage that records begin/completion/failure
// events for every call it forwards. Callers must not insert it when
// logging is disabled; absence is what makes the disabled path free.
func newLoggingStage(log logger.Logger, opts Options) Stage {
	s := &loggingStage{log: log, opts: opts}
	return s.forward
}

func (s *loggingStage) forward(req *nethttp.Request, next nethttp.RoundTripper) (*nethttp.Response, error) {
	meta := s.requestMetadata(req)

	safely(func() {
		event := s.log.Trace()
		attachMetadata(event, meta)
		event.Msg("Outbound request begin")
	})

	start := time.Now()
	resp, err := next.RoundTrip(req)
	elapsed := time.Since(start)
	if err != nil {
		safely(func() {
			event := s.failureEvent()
			attachMetadata(event, meta)
			event.Dur(fieldElapsed, elapsed).Err(err).Msg("Outbound request failed")
		})
		return resp, err
	}

	safely(func() {
		s.logResponse(meta, resp, elapsed)
	})
	return resp, nil
}

func (s *loggingStage) logResponse(meta map[string]any, resp *nethttp.Response, elapsed time.Duration) {
	status := 0
	if resp != nil {
		status = resp.StatusCode
	}

	event, escalated := s.completionEvent(status)
	attachMetadata(event, meta)
	event.Int(fieldStatus, status)
	event.Dur(fieldElapsed, elapsed)

	if resp != nil && s.opts.EnableDetailedResponseTracing {
		event.Interface(fieldResponseHeaders, captureHeaders(resp.Header))
		if body, ok := captureResponseBody(resp); ok {
			event.Str(fieldResponseBody, body)
		}
	}

	if escalated {
		event.Msg("Outbound request returned error status")
		return
	}
	event.Msg("Outbound request completed")
}

// completionEvent picks the severity for a completed call: trace unless the
// status reaches the configured error floor, error (or warning) when it does.
func (s *loggingStage) completionEvent(status int) (logger.LogEvent, bool) {
	if !s.opts.TreatNonSuccessAsErrorsWhenLogging || status < s.errorFloor() {
		return s.log.Trace(), false
	}
	if s.opts.TreatErrorsAsWarningsWhenLogging {
		return s.log.Warn(), true
	}
	return s.log.Error(), true
}

func (s *loggingStage) failureEvent() logger.LogEvent {
	if s.opts.TreatErrorsAsWarningsWhenLogging {
		return s.log.Warn()
	}
	return s.log.Error()
}

func (s *loggingStage) errorFloor() int {
	if s.opts.Treat4xxAsErrorsWhenLogging {
		return nethttp.StatusBadRequest
	}
	return nethttp.StatusInternalServerError
}

// requestMetadata assembles the per-call metadata. Enrichment failures are
// recovered so a malformed request can never abort the call; whatever was
// collected up to the failure is logged instead. The named result is what
// makes the partial map survive the recovery.
func (s *loggingStage) requestMetadata(req *nethttp.Request) (meta map[string]any) {
	meta = make(map[string]any, 8)
	defer func() {
		if r := recover(); r != nil {
			s.log.Debug().Interface("cause", r).Msg("Request metadata enrichment failed")
		}
	}()

	meta[fieldGroup] = s.opts.CommandGroup
	meta[fieldCommand] = s.opts.CommandName

	if req == nil {
		return meta
	}
	meta[fieldMethod] = req.Method

	if req.URL != nil {
		meta[fieldPath] = sanitizedRequestURI(req.URL)
		host := req.URL.Host
		if host == "" {
			host = req.Host
		}
		meta[fieldHost] = host
		if s.opts.EnableDetailedRequestTracing && req.URL.RawQuery != "" {
			meta[fieldQuery] = req.URL.RawQuery
		}
	}

	if s.opts.EnableDetailedRequestTracing {
		meta[fieldRequestHeaders] = captureHeaders(req.Header)
		if body, ok := captureRequestBody(req); ok {
			meta[fieldRequestBody] = body
		}
	}

	return meta
}

func attachMetadata(event logger.LogEvent, meta map[string]any) {
	for key, value := range meta {
		switch v := value.(type) {
		case string:
			event.Str(key, v)
		default:
			event.Interface(key, v)
		}
	}
}

// captureHeaders flattens headers for logging, joining repeated values.
// The Authorization header is excluded outright: its key never appears.
func captureHeaders(headers nethttp.Header) map[string]string {
	captured := make(map[string]string, len(headers))
	for name, values := range headers {
		if nethttp.CanonicalHeaderKey(name) == headerAuthorization {
			continue
		}
		captured[name] = joinHeaderValues(values)
	}
	return captured
}

func joinHeaderValues(values []string) string {
	switch len(values) {
	case 0:
		return ""
	case 1:
		return values[0]
	}
	joined := values[0]
	for _, v := range values[1:] {
		joined += ", " + v
	}
	return joined
}

// captureRequestBody snapshots the request body without consuming it.
// Requests built with GetBody are read non-destructively; otherwise the
// body is drained and restored. Returns false when nothing could be read.
func captureRequestBody(req *nethttp.Request) (string, bool) {
	if req.Body == nil || req.Body == nethttp.NoBody {
		return "", false
	}

	if req.GetBody != nil {
		rc, err := req.GetBody()
		if err != nil {
			return "", false
		}
		defer rc.Close()
		data, err := io.ReadAll(io.LimitReader(rc, maxPayloadCaptureBytes+1))
		if err != nil {
			return "", false
		}
		return truncatePayload(data), true
	}

	data, err := io.ReadAll(req.Body)
	req.Body.Close()
	req.Body = io.NopCloser(bytes.NewReader(data))
	if err != nil {
		return "", false
	}
	return truncatePayload(data), true
}

// captureResponseBody snapshots the response body and restores it for the
// caller. The full body is buffered so the caller reads exactly what the
// server sent.
func captureResponseBody(resp *nethttp.Response) (string, bool) {
	if resp.Body == nil || resp.Body == nethttp.NoBody {
		return "", false
	}

	data, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	resp.Body = io.NopCloser(bytes.NewReader(data))
	if err != nil {
		return "", false
	}
	return truncatePayload(data), true
}

func truncatePayload(data []byte) string {
	if len(data) > maxPayloadCaptureBytes {
		return string(data[:maxPayloadCaptureBytes]) + "...(truncated)"
	}
	return string(data)
}
