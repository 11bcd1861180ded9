package transport

import (
	"context"
	"errors"
	"fmt"
	nethttp "net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/gaborage/go-conduit/config"
	"github.com/gaborage/go-conduit/logger"
	"github.com/gaborage/go-conduit/metrics"
)

// Pool owns one pooled stage chain per logical client name. Chains are
// built lazily, exactly once per name under concurrent first access,
// rotated HandlerLifetime after their first hand-out, and disposed once no
// handle references them. All registries (defaults, per-name options,
// filters, mutators) are fixed at construction.
type Pool struct {
	log      logger.Logger
	recorder metrics.Recorder
	factory  TransportFactory

	// Option resolution sources, immutable after New
	defaults      Options
	configClients map[string]config.ClientConfig
	registered    map[string]Options
	mutators      map[string][]ClientMutator

	// Collaborator slots and build filters, immutable after New
	retry   StageBuilder
	breaker StageBuilder
	filters []ConfigFilter

	// Active entry management
	mu      sync.RWMutex
	entries map[string]*poolEntry
	closed  bool

	// Expired entry collection
	cleaner         *cleaner
	cleanupInterval time.Duration

	// Singleflight for concurrent chain builds
	sfg singleflight.Group

	builds   atomic.Int64
	handOuts atomic.Int64
}

var _ Factory = (*Pool)(nil)

// poolEntry is one active chain with its rotation state.
type poolEntry struct {
	name    string
	chain   nethttp.RoundTripper
	inner   nethttp.RoundTripper
	opts    Options
	tracker *refTracker
	builtAt time.Time

	// expiryOnce arms the timer on the first hand-out, never at build time.
	expiryOnce sync.Once
	timerMu    sync.Mutex
	timer      *time.Timer
}

func (e *poolEntry) armExpiry(fire func()) {
	e.expiryOnce.Do(func() {
		e.timerMu.Lock()
		e.timer = time.AfterFunc(e.opts.HandlerLifetime, fire)
		e.timerMu.Unlock()
	})
}

func (e *poolEntry) stopExpiry() {
	e.timerMu.Lock()
	if e.timer != nil {
		e.timer.Stop()
	}
	e.timerMu.Unlock()
}

// PoolStats is a point-in-time snapshot of pool activity.
type PoolStats struct {
	ActiveEntries  int   `json:"active_entries"`
	ExpiredPending int   `json:"expired_pending"`
	Builds         int64 `json:"builds"`
	HandOuts       int64 `json:"hand_outs"`
	Disposals      int64 `json:"disposals"`
	CleanupCycles  int64 `json:"cleanup_cycles"`
}

// PoolOption configures a Pool at construction.
type PoolOption func(*Pool) error

// WithLogger sets the logger used by the pool and its logging stages.
func WithLogger(log logger.Logger) PoolOption {
	return func(p *Pool) error {
		if log == nil {
			return NewConfigurationError("logger must not be nil", nil)
		}
		p.log = log
		return nil
	}
}

// WithRecorder sets the metrics recorder used by the metrics stages.
func WithRecorder(recorder metrics.Recorder) PoolOption {
	return func(p *Pool) error {
		if recorder == nil {
			return NewConfigurationError("recorder must not be nil", nil)
		}
		p.recorder = recorder
		return nil
	}
}

// WithInnerTransport sets the factory producing each entry's inner,
// network-facing transport. The pool owns and disposes what it returns.
func WithInnerTransport(factory TransportFactory) PoolOption {
	return func(p *Pool) error {
		if factory == nil {
			return NewConfigurationError("transport factory must not be nil", nil)
		}
		p.factory = factory
		return nil
	}
}

// WithDefaults sets the pool-wide default options applied to names without
// their own configuration.
func WithDefaults(opts Options) PoolOption {
	return func(p *Pool) error {
		p.defaults = opts
		return nil
	}
}

// WithConfig registers every client declared under transport.clients and
// adopts the configured cleanup interval.
func WithConfig(cfg *config.TransportConfig) PoolOption {
	return func(p *Pool) error {
		if cfg == nil {
			return NewConfigurationError("transport config must not be nil", nil)
		}
		for name, cc := range cfg.Clients {
			p.configClients[name] = cc
		}
		if cfg.Cleanup.Interval > 0 {
			p.cleanupInterval = cfg.Cleanup.Interval
		}
		return nil
	}
}

// WithClientOptions registers a complete per-name configuration that
// replaces defaults and file configuration for that name.
func WithClientOptions(name string, opts Options) PoolOption {
	return func(p *Pool) error {
		if strings.TrimSpace(name) == "" {
			return NewValidationError("client name must not be empty", "name")
		}
		p.registered[name] = opts
		return nil
	}
}

// WithClientMutator appends hand-out mutators for the named client; they
// run after the mutators carried by the name's options.
func WithClientMutator(name string, mutators ...ClientMutator) PoolOption {
	return func(p *Pool) error {
		if strings.TrimSpace(name) == "" {
			return NewValidationError("client name must not be empty", "name")
		}
		p.mutators[name] = append(p.mutators[name], mutators...)
		return nil
	}
}

// WithRetryStage installs the opaque retry collaborator.
func WithRetryStage(builder StageBuilder) PoolOption {
	return func(p *Pool) error {
		p.retry = builder
		return nil
	}
}

// WithBreakerStage installs the opaque circuit-breaker collaborator.
func WithBreakerStage(builder StageBuilder) PoolOption {
	return func(p *Pool) error {
		p.breaker = builder
		return nil
	}
}

// WithConfigFilter appends a configuration filter applied to every build
// plan, in registration order.
func WithConfigFilter(filters ...ConfigFilter) PoolOption {
	return func(p *Pool) error {
		p.filters = append(p.filters, filters...)
		return nil
	}
}

// WithCleanupInterval overrides the cleanup pass interval (default 10s).
func WithCleanupInterval(interval time.Duration) PoolOption {
	return func(p *Pool) error {
		if interval <= 0 {
			return NewValidationError("cleanup interval must be positive", "interval")
		}
		p.cleanupInterval = interval
		return nil
	}
}

// New creates a pool. Without options it logs nowhere, records no metrics,
// and builds inner transports by cloning nethttp.DefaultTransport.
func New(opts ...PoolOption) (*Pool, error) {
	p := &Pool{
		log:             logger.New("disabled", false),
		recorder:        metrics.NoopRecorder{},
		factory:         defaultTransportFactory,
		defaults:        DefaultOptions(),
		configClients:   make(map[string]config.ClientConfig),
		registered:      make(map[string]Options),
		mutators:        make(map[string][]ClientMutator),
		entries:         make(map[string]*poolEntry),
		cleanupInterval: DefaultCleanupInterval,
	}

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(p); err != nil {
			return nil, err
		}
	}

	if err := p.defaults.Validate(); err != nil {
		return nil, NewConfigurationError("invalid default options", err)
	}
	for name := range p.registered {
		registered := p.registered[name]
		if err := registered.Validate(); err != nil {
			return nil, NewConfigurationError(fmt.Sprintf("invalid options for client %s", name), err)
		}
	}

	p.cleaner = newCleaner(p.log, p.cleanupInterval)
	return p, nil
}

// Client returns a handle for the named client, building the pooled chain
// on first use. The expiry timer starts on the first successful hand-out,
// never at build time, so a chain can never be rotated away before someone
// obtained it.
func (p *Pool) Client(name string) (*Client, error) {
	if strings.TrimSpace(name) == "" {
		return nil, NewValidationError("client name must not be empty", "name")
	}

	if p.isClosed() {
		return nil, NewDisposedError(name)
	}

	entry, err := p.entry(name)
	if err != nil {
		return nil, err
	}
	return p.handOut(entry), nil
}

// entry returns the active entry for name, building it at most once under
// concurrent first access.
func (p *Pool) entry(name string) (*poolEntry, error) {
	// Try to get the existing entry first (fast path)
	if entry := p.activeEntry(name); entry != nil {
		return entry, nil
	}

	// Use singleflight to prevent thundering herd on chain builds
	result, err, _ := p.sfg.Do(name, func() (any, error) {
		// Double-check after acquiring the flight
		if entry := p.activeEntry(name); entry != nil {
			return entry, nil
		}
		return p.buildEntry(name)
	})
	if err != nil {
		return nil, err
	}
	return result.(*poolEntry), nil
}

func (p *Pool) activeEntry(name string) *poolEntry {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.entries[name]
}

func (p *Pool) buildEntry(name string) (*poolEntry, error) {
	opts := p.resolveOptions(name)
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	inner, err := p.factory(name)
	if err != nil {
		return nil, NewConfigurationError(fmt.Sprintf("failed to build inner transport for client %s", name), err)
	}

	plan := &ChainPlan{
		Name:    name,
		Options: &opts,
		Inner:   inner,
		Retry:   p.retry,
		Breaker: p.breaker,
	}
	if opts.EnableLogging {
		plan.Logging = newLoggingStage(p.log, opts)
	}
	if opts.EnableMetrics {
		plan.Metrics = newMetricsStage(p.recorder, opts)
	}

	entry := &poolEntry{
		name:    name,
		chain:   compose(plan, p.filters),
		inner:   inner,
		opts:    opts,
		tracker: newRefTracker(),
		builtAt: time.Now(),
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		disposeQuietly(inner)
		return nil, NewDisposedError(name)
	}
	if existing := p.entries[name]; existing != nil {
		// Lost a build race; keep the stored entry and drop ours
		disposeQuietly(inner)
		return existing, nil
	}
	p.entries[name] = entry
	p.builds.Add(1)

	p.log.Info().
		Str("client", name).
		Dur("lifetime", opts.HandlerLifetime).
		Msg("Built pooled transport chain")

	return entry, nil
}

// handOut acquires a reference, arms the expiry timer on the first hand-out,
// and applies the current mutators for the name in order.
func (p *Pool) handOut(entry *poolEntry) *Client {
	entry.tracker.acquire()
	entry.armExpiry(func() { p.expire(entry) })

	handle := newClientHandle(entry.name, entry.chain, entry.tracker.release)
	for _, mutate := range p.currentMutators(entry.name) {
		if mutate != nil {
			mutate(handle)
		}
	}

	p.handOuts.Add(1)
	return handle
}

// resolveOptions layers the sources for a name: pool defaults, then the
// declared transport.clients block, then a programmatic registration, which
// replaces both wholesale.
func (p *Pool) resolveOptions(name string) Options {
	opts := p.defaults
	if cc, ok := p.configClients[name]; ok {
		opts = opts.ApplyClientConfig(cc)
	}
	if registered, ok := p.registered[name]; ok {
		opts = registered
	}
	return opts.normalized(name)
}

// currentMutators is read fresh on every hand-out: mutators configure the
// handle, not the chain, so they are not frozen at build time.
func (p *Pool) currentMutators(name string) []ClientMutator {
	opts := p.resolveOptions(name)
	if len(p.mutators[name]) == 0 {
		return opts.Mutators
	}
	combined := make([]ClientMutator, 0, len(opts.Mutators)+len(p.mutators[name]))
	combined = append(combined, opts.Mutators...)
	combined = append(combined, p.mutators[name]...)
	return combined
}

// expire moves an entry from the active map to the expired queue. The entry
// registered under the name must be this exact instance; anything else
// means the pool's bookkeeping is corrupted and is treated as fatal.
func (p *Pool) expire(entry *poolEntry) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	current, ok := p.entries[entry.name]
	if !ok || current != entry {
		p.mu.Unlock()
		panic(fmt.Sprintf("transport: expiring entry for client %q is not the active entry", entry.name))
	}
	delete(p.entries, entry.name)
	p.mu.Unlock()

	p.log.Debug().
		Str("client", entry.name).
		Dur("lifetime", entry.opts.HandlerLifetime).
		Msg("Pooled transport chain expired")

	p.cleaner.enqueue(&expiredEntry{
		name:      entry.name,
		tracker:   entry.tracker,
		inner:     entry.inner,
		expiredAt: time.Now(),
	})
}

func (p *Pool) isClosed() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.closed
}

// Shutdown stops all timers and disposes every chain, live handles
// included; it is terminal and idempotent. The context bounds how long
// disposal may keep running.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	entries := p.entries
	p.entries = make(map[string]*poolEntry)
	p.mu.Unlock()

	var errs []error
	for name, entry := range entries {
		entry.stopExpiry()
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := disposeTransport(entry.inner); err != nil {
			errs = append(errs, fmt.Errorf("dispose active %s: %w", name, err))
		}
	}

	errs = append(errs, p.cleaner.shutdown(ctx)...)

	if len(errs) > 0 {
		return fmt.Errorf("transport pool shutdown: %w", errors.Join(errs...))
	}

	p.log.Info().Msg("Transport pool shut down")
	return nil
}

// Stats returns a point-in-time snapshot of pool activity.
func (p *Pool) Stats() PoolStats {
	p.mu.RLock()
	active := len(p.entries)
	p.mu.RUnlock()

	return PoolStats{
		ActiveEntries:  active,
		ExpiredPending: p.cleaner.pending(),
		Builds:         p.builds.Load(),
		HandOuts:       p.handOuts.Load(),
		Disposals:      p.cleaner.disposals.Load(),
		CleanupCycles:  p.cleaner.cycles.Load(),
	}
}

// defaultTransportFactory clones the process-default transport so every
// entry owns a disposable instance.
func defaultTransportFactory(string) (nethttp.RoundTripper, error) {
	if t, ok := nethttp.DefaultTransport.(*nethttp.Transport); ok {
		return t.Clone(), nil
	}
	return nethttp.DefaultTransport, nil
}
