package transport

import (
	"container/list"
	"context"
	"fmt"
	"io"
	nethttp "net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gaborage/go-conduit/logger"
)

// DefaultCleanupInterval is how often expired chains are re-checked for
// disposal when no interval is configured.
const DefaultCleanupInterval = 10 * time.Second

// expiredEntry is a rotated-out chain waiting for its last handle to close.
type expiredEntry struct {
	name      string
	tracker   *refTracker
	inner     nethttp.RoundTripper
	expiredAt time.Time
}

// cleaner disposes expired chains once their reference trackers report no
// live handles. Entries still referenced at pass time stay queued for the
// next pass. The timer is armed only while the queue is non-empty, and at
// most one pass runs at a time.
type cleaner struct {
	log      logger.Logger
	interval time.Duration

	timerMu sync.Mutex
	timer   *time.Timer
	armed   bool

	// passMu serializes cleanup passes; contenders reschedule instead of
	// blocking.
	passMu sync.Mutex

	queueMu sync.Mutex
	queue   *list.List

	closed    atomic.Bool
	disposals atomic.Int64
	cycles    atomic.Int64
}

func newCleaner(log logger.Logger, interval time.Duration) *cleaner {
	if interval <= 0 {
		interval = DefaultCleanupInterval
	}
	return &cleaner{
		log:      log,
		interval: interval,
		queue:    list.New(),
	}
}

// enqueue adds an expired entry and makes sure a pass is scheduled. After
// shutdown the entry is disposed on the spot instead.
func (c *cleaner) enqueue(entry *expiredEntry) {
	c.queueMu.Lock()
	if c.closed.Load() {
		c.queueMu.Unlock()
		c.dispose(entry)
		return
	}
	c.queue.PushBack(entry)
	c.queueMu.Unlock()

	c.arm()
}

func (c *cleaner) arm() {
	c.timerMu.Lock()
	defer c.timerMu.Unlock()
	if c.closed.Load() || c.armed {
		return
	}
	if c.timer == nil {
		c.timer = time.AfterFunc(c.interval, c.tick)
	} else {
		c.timer.Reset(c.interval)
	}
	c.armed = true
}

func (c *cleaner) disarm() {
	c.timerMu.Lock()
	c.armed = false
	c.timerMu.Unlock()
}

// tick runs one cleanup pass. If another pass is already running the timer
// is rearmed and this invocation yields; the queue stays intact for the
// running pass or the rescheduled one.
func (c *cleaner) tick() {
	c.disarm()

	if !c.passMu.TryLock() {
		c.arm()
		return
	}
	defer c.passMu.Unlock()

	c.runPass()

	if c.pending() > 0 {
		c.arm()
	}
}

// runPass examines each entry queued at pass start exactly once. Entries
// enqueued while the pass runs wait for the next one.
func (c *cleaner) runPass() {
	c.cycles.Add(1)

	c.queueMu.Lock()
	n := c.queue.Len()
	c.queueMu.Unlock()

	for i := 0; i < n; i++ {
		entry := c.dequeue()
		if entry == nil {
			panic("transport: expired queue drained below its snapshot")
		}
		if !entry.tracker.collectible() {
			c.requeue(entry)
			continue
		}
		c.dispose(entry)
	}
}

func (c *cleaner) dequeue() *expiredEntry {
	c.queueMu.Lock()
	defer c.queueMu.Unlock()
	front := c.queue.Front()
	if front == nil {
		return nil
	}
	c.queue.Remove(front)
	return front.Value.(*expiredEntry)
}

func (c *cleaner) requeue(entry *expiredEntry) {
	c.queueMu.Lock()
	c.queue.PushBack(entry)
	c.queueMu.Unlock()

	c.log.Debug().
		Str("client", entry.name).
		Int64("refs", entry.tracker.count()).
		Msg("Expired transport still referenced")
}

func (c *cleaner) dispose(entry *expiredEntry) {
	c.disposals.Add(1)

	if err := disposeTransport(entry.inner); err != nil {
		c.log.Error().
			Err(err).
			Str("client", entry.name).
			Msg("Error disposing expired transport")
		return
	}

	c.log.Debug().
		Str("client", entry.name).
		Dur("waited", time.Since(entry.expiredAt)).
		Msg("Disposed expired transport")
}

func (c *cleaner) pending() int {
	c.queueMu.Lock()
	defer c.queueMu.Unlock()
	return c.queue.Len()
}

// shutdown stops the timer, waits out any in-flight pass, and disposes
// everything still queued regardless of live references.
func (c *cleaner) shutdown(ctx context.Context) []error {
	c.closed.Store(true)

	c.timerMu.Lock()
	if c.timer != nil {
		c.timer.Stop()
	}
	c.armed = false
	c.timerMu.Unlock()

	c.passMu.Lock()
	defer c.passMu.Unlock()

	c.queueMu.Lock()
	remaining := make([]*expiredEntry, 0, c.queue.Len())
	for front := c.queue.Front(); front != nil; front = front.Next() {
		remaining = append(remaining, front.Value.(*expiredEntry))
	}
	c.queue.Init()
	c.queueMu.Unlock()

	var errs []error
	for _, entry := range remaining {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		c.disposals.Add(1)
		if err := disposeTransport(entry.inner); err != nil {
			errs = append(errs, fmt.Errorf("dispose expired %s: %w", entry.name, err))
		}
	}
	return errs
}

// disposeTransport releases whatever resources an inner transport exposes:
// io.Closer wins, otherwise idle connections are closed. Transports with
// neither need no disposal.
func disposeTransport(rt nethttp.RoundTripper) error {
	if rt == nil {
		return nil
	}
	if closer, ok := rt.(io.Closer); ok {
		return closer.Close()
	}
	if idler, ok := rt.(interface{ CloseIdleConnections() }); ok {
		idler.CloseIdleConnections()
	}
	return nil
}

func disposeQuietly(rt nethttp.RoundTripper) {
	_ = disposeTransport(rt)
}
