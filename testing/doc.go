// Package testing provides testing utilities for the go-conduit library.
//
// This package contains mocks and fixtures that enable developers to write
// effective unit and integration tests for applications built on go-conduit.
//
// # Mocks
//
// The mocks subpackage provides test doubles for the library's observability
// and transport seams:
//   - MetricsRecorder records every counter and timing with its tags
//   - LogRecorder captures structured log events for assertion
//   - MockRoundTripper is a testify-based http.RoundTripper mock
//   - Canned round trippers for static responses, failures, and disposal tracking
//
// # Fixtures
//
// The fixtures subpackage provides pre-configured httptest upstreams for
// common client scenarios: healthy, flaky, slow, and echoing servers.
//
// # Containers
//
// The containers subpackage starts a real HTTP echo server in Docker for
// integration tests (build tag "integration").
//
// # Usage
//
// Import the specific subpackages you need:
//
//	import (
//		"github.com/gaborage/go-conduit/testing/mocks"
//		"github.com/gaborage/go-conduit/testing/fixtures"
//	)
package testing
