package transport

import (
	"context"
	nethttp "net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaborage/go-conduit/config"
	"github.com/gaborage/go-conduit/logger"
	conduittesting "github.com/gaborage/go-conduit/testing"
	"github.com/gaborage/go-conduit/testing/mocks"
)

func newTestPool(t *testing.T, opts ...PoolOption) *Pool {
	t.Helper()
	base := []PoolOption{WithLogger(logger.New(conduittesting.TestLoggerLevelDisabled, false))}
	pool, err := New(append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = pool.Shutdown(context.Background())
	})
	return pool
}

func shortLivedOptions() Options {
	opts := DefaultOptions()
	opts.HandlerLifetime = conduittesting.TestShortLifetime
	return opts
}

func staticFactory(rt nethttp.RoundTripper) TransportFactory {
	return func(string) (nethttp.RoundTripper, error) {
		return rt, nil
	}
}

func eventually(t *testing.T, condition func() bool, msg string) {
	t.Helper()
	require.Eventually(t, condition, conduittesting.TestEventuallyTimeout, conduittesting.TestEventuallyTick, msg)
}

func TestPoolClientNameValidation(t *testing.T) {
	pool := newTestPool(t)

	for _, name := range []string{"", "   ", "\t"} {
		handle, err := pool.Client(name)
		require.Error(t, err)
		assert.Nil(t, handle)
		assert.True(t, IsErrorType(err, ValidationError))
	}

	// Nothing was built for rejected names.
	assert.Zero(t, pool.Stats().Builds)
}

func TestPoolSharesChainUntilRotation(t *testing.T) {
	tracking := mocks.NewTrackingTransport(nil)
	pool := newTestPool(t, WithInnerTransport(staticFactory(tracking)))

	first, err := pool.Client(conduittesting.TestClientBilling)
	require.NoError(t, err)
	defer first.Close()

	second, err := pool.Client(conduittesting.TestClientBilling)
	require.NoError(t, err)
	defer second.Close()

	for _, handle := range []*Client{first, second} {
		resp, doErr := handle.Get(context.Background(), "https://api.example.com/health")
		require.NoError(t, doErr)
		resp.Body.Close()
	}

	// Both handles drive the same pooled chain and inner transport.
	assert.Equal(t, 2, tracking.Requests())

	stats := pool.Stats()
	assert.Equal(t, int64(1), stats.Builds)
	assert.Equal(t, int64(2), stats.HandOuts)
	assert.Equal(t, 1, stats.ActiveEntries)
}

func TestPoolBuildsOnceUnderConcurrentFirstAccess(t *testing.T) {
	var factoryCalls atomic.Int64
	factory := func(string) (nethttp.RoundTripper, error) {
		factoryCalls.Add(1)
		time.Sleep(5 * time.Millisecond)
		return mocks.NewTrackingTransport(nil), nil
	}

	pool := newTestPool(t, WithInnerTransport(factory))

	const goroutines = 25
	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			handle, err := pool.Client(conduittesting.TestClientBilling)
			assert.NoError(t, err)
			if handle != nil {
				handle.Close()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), factoryCalls.Load())

	stats := pool.Stats()
	assert.Equal(t, int64(1), stats.Builds)
	assert.Equal(t, int64(goroutines), stats.HandOuts)
}

func TestPoolExpiryTimerStartsOnFirstHandOut(t *testing.T) {
	pool := newTestPool(t, WithClientOptions(conduittesting.TestClientBilling, shortLivedOptions()))

	built, err := pool.entry(conduittesting.TestClientBilling)
	require.NoError(t, err)

	// Built but never handed out: the lifetime clock has not started.
	time.Sleep(3 * conduittesting.TestShortLifetime)
	assert.Same(t, built, pool.activeEntry(conduittesting.TestClientBilling))

	handle, err := pool.Client(conduittesting.TestClientBilling)
	require.NoError(t, err)
	defer handle.Close()

	eventually(t, func() bool {
		return pool.activeEntry(conduittesting.TestClientBilling) == nil
	}, "chain should rotate once its first hand-out started the clock")
}

func TestPoolRotationBuildsFreshChain(t *testing.T) {
	var built []*mocks.TrackingTransport
	var mu sync.Mutex
	factory := func(string) (nethttp.RoundTripper, error) {
		tracking := mocks.NewTrackingTransport(nil)
		mu.Lock()
		built = append(built, tracking)
		mu.Unlock()
		return tracking, nil
	}

	pool := newTestPool(t,
		WithInnerTransport(factory),
		WithClientOptions(conduittesting.TestClientBilling, shortLivedOptions()),
		WithCleanupInterval(conduittesting.TestShortInterval),
	)

	first, err := pool.Client(conduittesting.TestClientBilling)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	eventually(t, func() bool {
		return pool.activeEntry(conduittesting.TestClientBilling) == nil
	}, "first chain should expire")

	second, err := pool.Client(conduittesting.TestClientBilling)
	require.NoError(t, err)
	defer second.Close()

	resp, err := second.Get(context.Background(), "https://api.example.com/health")
	require.NoError(t, err)
	resp.Body.Close()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, built, 2)
	assert.Equal(t, 0, built[0].Requests())
	assert.Equal(t, 1, built[1].Requests())
	assert.Equal(t, int64(2), pool.Stats().Builds)
}

func TestPoolDisposesOnlyAfterLastHandleCloses(t *testing.T) {
	tracking := mocks.NewTrackingTransport(nil)
	pool := newTestPool(t,
		WithInnerTransport(staticFactory(tracking)),
		WithClientOptions(conduittesting.TestClientBilling, shortLivedOptions()),
		WithCleanupInterval(conduittesting.TestShortInterval),
	)

	handle, err := pool.Client(conduittesting.TestClientBilling)
	require.NoError(t, err)

	eventually(t, func() bool {
		return pool.Stats().ActiveEntries == 0
	}, "chain should expire while the handle is still open")

	// Several cleanup passes must run without touching the referenced chain.
	cyclesBefore := pool.Stats().CleanupCycles
	eventually(t, func() bool {
		return pool.Stats().CleanupCycles >= cyclesBefore+2
	}, "cleanup passes should keep running while the entry is parked")

	assert.False(t, tracking.Closed())
	assert.Equal(t, 1, pool.Stats().ExpiredPending)

	require.NoError(t, handle.Close())

	eventually(t, func() bool {
		return tracking.Closed()
	}, "chain should be disposed once the last handle closed")

	stats := pool.Stats()
	assert.Equal(t, 0, stats.ExpiredPending)
	assert.Equal(t, int64(1), stats.Disposals)
	assert.Equal(t, 1, tracking.CloseCalls())
}

func TestPoolExpireAssertsEntryIdentity(t *testing.T) {
	pool := newTestPool(t)

	handle, err := pool.Client(conduittesting.TestClientBilling)
	require.NoError(t, err)
	defer handle.Close()

	stale := &poolEntry{name: conduittesting.TestClientBilling, tracker: newRefTracker()}
	assert.Panics(t, func() {
		pool.expire(stale)
	})
}

func TestPoolExpireAfterShutdownIsInert(t *testing.T) {
	pool := newTestPool(t)

	handle, err := pool.Client(conduittesting.TestClientBilling)
	require.NoError(t, err)
	handle.Close()

	require.NoError(t, pool.Shutdown(context.Background()))

	stale := &poolEntry{name: conduittesting.TestClientBilling, tracker: newRefTracker()}
	assert.NotPanics(t, func() {
		pool.expire(stale)
	})
}

func TestPoolShutdown(t *testing.T) {
	t.Run("disposes_active_chains_despite_live_handles", func(t *testing.T) {
		tracking := mocks.NewTrackingTransport(nil)
		pool := newTestPool(t, WithInnerTransport(staticFactory(tracking)))

		handle, err := pool.Client(conduittesting.TestClientBilling)
		require.NoError(t, err)
		defer handle.Close()

		require.NoError(t, pool.Shutdown(context.Background()))

		assert.True(t, tracking.Closed())
		assert.Equal(t, 0, pool.Stats().ActiveEntries)
	})

	t.Run("drains_parked_expired_chains", func(t *testing.T) {
		tracking := mocks.NewTrackingTransport(nil)
		pool := newTestPool(t,
			WithInnerTransport(staticFactory(tracking)),
			WithClientOptions(conduittesting.TestClientBilling, shortLivedOptions()),
		)

		handle, err := pool.Client(conduittesting.TestClientBilling)
		require.NoError(t, err)
		defer handle.Close()

		eventually(t, func() bool {
			return pool.Stats().ExpiredPending == 1
		}, "chain should be parked for cleanup")

		require.NoError(t, pool.Shutdown(context.Background()))
		assert.True(t, tracking.Closed())
		assert.Equal(t, 0, pool.Stats().ExpiredPending)
	})

	t.Run("terminal_and_idempotent", func(t *testing.T) {
		pool := newTestPool(t)
		require.NoError(t, pool.Shutdown(context.Background()))
		require.NoError(t, pool.Shutdown(context.Background()))

		handle, err := pool.Client(conduittesting.TestClientBilling)
		require.Error(t, err)
		assert.Nil(t, handle)
		assert.True(t, IsErrorType(err, DisposedError))
	})
}

func TestPoolResolveOptions(t *testing.T) {
	t.Run("defaults_apply_to_undeclared_names", func(t *testing.T) {
		pool := newTestPool(t)

		opts := pool.resolveOptions(conduittesting.TestClientBilling)
		assert.Equal(t, conduittesting.TestClientBilling, opts.CommandGroup)
		assert.Equal(t, conduittesting.TestClientBilling, opts.CommandName)
		assert.Equal(t, DefaultHandlerLifetime, opts.HandlerLifetime)
	})

	t.Run("config_block_overlays_defaults", func(t *testing.T) {
		pool := newTestPool(t, WithConfig(&config.TransportConfig{
			Clients: map[string]config.ClientConfig{
				conduittesting.TestClientBilling: {
					Group:    conduittesting.TestGroupPayments,
					Command:  conduittesting.TestCommandCharge,
					Lifetime: time.Minute,
				},
			},
		}))

		opts := pool.resolveOptions(conduittesting.TestClientBilling)
		assert.Equal(t, conduittesting.TestGroupPayments, opts.CommandGroup)
		assert.Equal(t, conduittesting.TestCommandCharge, opts.CommandName)
		assert.Equal(t, time.Minute, opts.HandlerLifetime)
		assert.True(t, opts.EnableLogging)
	})

	t.Run("registered_options_replace_config_wholesale", func(t *testing.T) {
		registered := DefaultOptions()
		registered.CommandGroup = conduittesting.TestGroupCatalog
		registered.EnableMetrics = false

		pool := newTestPool(t,
			WithConfig(&config.TransportConfig{
				Clients: map[string]config.ClientConfig{
					conduittesting.TestClientBilling: {
						Group:    conduittesting.TestGroupPayments,
						Lifetime: time.Minute,
					},
				},
			}),
			WithClientOptions(conduittesting.TestClientBilling, registered),
		)

		opts := pool.resolveOptions(conduittesting.TestClientBilling)
		assert.Equal(t, conduittesting.TestGroupCatalog, opts.CommandGroup)
		assert.False(t, opts.EnableMetrics)
		assert.Equal(t, DefaultHandlerLifetime, opts.HandlerLifetime)
	})

	t.Run("config_cleanup_interval_adopted", func(t *testing.T) {
		pool := newTestPool(t, WithConfig(&config.TransportConfig{
			Cleanup: config.CleanupConfig{Interval: 3 * time.Second},
		}))
		assert.Equal(t, 3*time.Second, pool.cleanupInterval)
	})
}

func TestPoolMutatorsRunOnEveryHandOut(t *testing.T) {
	var order []string
	var mu sync.Mutex
	record := func(label string) ClientMutator {
		return func(c *Client) {
			mu.Lock()
			order = append(order, label)
			mu.Unlock()
			c.SetDefaultHeader("X-Mutated-By", label)
		}
	}

	registered := DefaultOptions()
	registered.Mutators = []ClientMutator{record("options")}

	pool := newTestPool(t,
		WithClientOptions(conduittesting.TestClientBilling, registered),
		WithClientMutator(conduittesting.TestClientBilling, record("pool")),
	)

	first, err := pool.Client(conduittesting.TestClientBilling)
	require.NoError(t, err)
	defer first.Close()

	second, err := pool.Client(conduittesting.TestClientBilling)
	require.NoError(t, err)
	defer second.Close()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"options", "pool", "options", "pool"}, order)
}

func TestPoolConfigCanDisableStages(t *testing.T) {
	recorder := mocks.NewMetricsRecorder()
	logRecorder := mocks.NewLogRecorder()

	pool := newTestPool(t,
		WithLogger(logRecorder.Logger()),
		WithRecorder(recorder),
		WithConfig(&config.TransportConfig{
			Clients: map[string]config.ClientConfig{
				conduittesting.TestClientBilling: {
					Logging: config.ClientLoggingConfig{Enabled: config.BoolPtr(false)},
					Metrics: config.ClientMetricsConfig{Enabled: config.BoolPtr(false)},
				},
			},
		}),
		WithInnerTransport(staticFactory(mocks.NewStaticResponder(nethttp.StatusOK, ""))),
	)

	handle, err := pool.Client(conduittesting.TestClientBilling)
	require.NoError(t, err)
	defer handle.Close()

	resp, err := handle.Get(context.Background(), "https://api.example.com/health")
	require.NoError(t, err)
	resp.Body.Close()

	assert.Empty(t, recorder.Counters())
	assert.Empty(t, logRecorder.WithMessage(msgRequestBegin))
}

func TestPoolConstructionValidation(t *testing.T) {
	tests := []struct {
		name   string
		option PoolOption
	}{
		{name: "nil_logger", option: WithLogger(nil)},
		{name: "nil_recorder", option: WithRecorder(nil)},
		{name: "nil_transport_factory", option: WithInnerTransport(nil)},
		{name: "nil_config", option: WithConfig(nil)},
		{name: "zero_cleanup_interval", option: WithCleanupInterval(0)},
		{name: "blank_client_options_name", option: WithClientOptions("  ", DefaultOptions())},
		{name: "blank_mutator_name", option: WithClientMutator("", func(*Client) {})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pool, err := New(tt.option)
			require.Error(t, err)
			assert.Nil(t, pool)
		})
	}

	t.Run("invalid_registered_options", func(t *testing.T) {
		bad := DefaultOptions()
		bad.HandlerLifetime = -time.Second

		pool, err := New(WithClientOptions(conduittesting.TestClientBilling, bad))
		require.Error(t, err)
		assert.Nil(t, pool)
		assert.True(t, IsErrorType(err, ConfigurationError))
	})

	t.Run("invalid_defaults", func(t *testing.T) {
		bad := DefaultOptions()
		bad.HandlerLifetime = -time.Second

		pool, err := New(WithDefaults(bad))
		require.Error(t, err)
		assert.Nil(t, pool)
	})
}

func TestPoolFactoryFailureSurfacesAsConfigurationError(t *testing.T) {
	pool := newTestPool(t, WithInnerTransport(func(string) (nethttp.RoundTripper, error) {
		return nil, assert.AnError
	}))

	handle, err := pool.Client(conduittesting.TestClientBilling)
	require.Error(t, err)
	assert.Nil(t, handle)
	assert.True(t, IsErrorType(err, ConfigurationError))
	assert.ErrorIs(t, err, assert.AnError)

	// A failed build leaves no residue; the next attempt tries again.
	assert.Zero(t, pool.Stats().Builds)
}

func TestDefaultTransportFactory(t *testing.T) {
	first, err := defaultTransportFactory(conduittesting.TestClientBilling)
	require.NoError(t, err)
	second, err := defaultTransportFactory(conduittesting.TestClientInventory)
	require.NoError(t, err)

	firstTransport, ok := first.(*nethttp.Transport)
	require.True(t, ok)
	secondTransport, ok := second.(*nethttp.Transport)
	require.True(t, ok)
	assert.NotSame(t, firstTransport, secondTransport)
}
