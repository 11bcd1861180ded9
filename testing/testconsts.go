package testing

import "time"

// Logger levels shared by tests that construct real loggers.
const (
	// TestLoggerLevelDebug keeps full output for tests that inspect log lines
	TestLoggerLevelDebug = "debug"
	// TestLoggerLevelError quiets tests that only care about failures
	TestLoggerLevelError = "error"
	// TestLoggerLevelDisabled silences logging entirely
	TestLoggerLevelDisabled = "disabled"
)

// Pooled client names used across transport test configurations.
const (
	TestClientBilling   = "billing_api"
	TestClientInventory = "inventory_api"
	TestClientSearch    = "search_api"
)

// Group and command identifiers for stage metadata tests.
const (
	TestGroupPayments  = "payments"
	TestGroupCatalog   = "catalog"
	TestCommandCharge  = "charge"
	TestCommandLookup  = "lookup"
	TestCommandRefresh = "refresh"
)

// URLs, paths, and header values for outbound request tests.
const (
	TestBaseURL        = "https://api.example.com"
	TestPathOrders     = "/v1/orders"
	TestPathHealth     = "/health"
	TestHeaderAPIKey   = "X-Api-Key"
	TestAPIKeyValue    = "test-api-key"
	TestRequestBody    = `{"amount":100}`
	TestResponseBody   = `{"status":"ok"}`
	TestContentType    = "application/json"
	TestBearerToken    = "Bearer secret-token"
	TestServiceName    = "test-service"
	TestEnvironmentDev = "development"
)

// Durations for test synchronization and timeouts.
const (
	// TestShortLifetime rotates pooled chains quickly in expiry tests (40ms)
	TestShortLifetime = 40 * time.Millisecond
	// TestShortInterval drives frequent cleanup passes in disposal tests (25ms)
	TestShortInterval = 25 * time.Millisecond
	// TestShortDelay gives background goroutines time to run (100ms)
	TestShortDelay = 100 * time.Millisecond
	// TestEventuallyTimeout bounds require.Eventually assertions (2s)
	TestEventuallyTimeout = 2 * time.Second
	// TestEventuallyTick is the polling interval for require.Eventually (10ms)
	TestEventuallyTick = 10 * time.Millisecond
)
