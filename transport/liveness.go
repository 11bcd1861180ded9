package transport

import "sync/atomic"

// refTracker counts the handles still referencing a pooled chain. It is the
// only arbiter of when an expired chain's inner transport may be disposed:
// collectible must never report true while a live handle exists.
type refTracker struct {
	refs atomic.Int64
}

func newRefTracker() *refTracker {
	return &refTracker{}
}

// acquire records one more outstanding handle.
func (t *refTracker) acquire() {
	t.refs.Add(1)
}

// release records that a handle was closed. Releasing below zero indicates a
// double release and panics: the count would otherwise report collectible
// while handles remain.
func (t *refTracker) release() {
	if t.refs.Add(-1) < 0 {
		panic("transport: reference tracker released below zero")
	}
}

// collectible reports whether no outstanding handle references the chain.
func (t *refTracker) collectible() bool {
	return t.refs.Load() == 0
}

// count returns the current number of outstanding handles.
func (t *refTracker) count() int64 {
	return t.refs.Load()
}
