package hud

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ThrottledEmitter wraps a Store's EmitChange with a rate limit: high-
// frequency sources (slot heartbeats, account-lamport updates) call Emit
// on every event, but listeners only see at most one snapshot per
// interval. A trailing call is always scheduled so the last update is
// never silently dropped, mirroring the scheduler's debounce/queue
// contract but for chain-event sources rather than log-triggered
// refreshes.
type ThrottledEmitter struct {
	store   *Store
	limiter *rate.Limiter

	mu      sync.Mutex
	pending bool
	timer   *time.Timer
}

// NewThrottledEmitter limits EmitChange to at most one call per interval.
func NewThrottledEmitter(store *Store, interval time.Duration) *ThrottledEmitter {
	return &ThrottledEmitter{
		store:   store,
		limiter: rate.NewLimiter(rate.Every(interval), 1),
	}
}

// Emit either fires immediately (token available) or marks a trailing
// emit pending, flushed once the limiter's next token is available.
func (e *ThrottledEmitter) Emit() {
	if e.limiter.Allow() {
		e.store.EmitChange()
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.pending {
		return
	}
	e.pending = true
	delay := e.limiter.Reserve().Delay()
	e.timer = time.AfterFunc(delay, func() {
		e.mu.Lock()
		e.pending = false
		e.mu.Unlock()
		e.store.EmitChange()
	})
}

// Stop cancels any pending trailing emit.
func (e *ThrottledEmitter) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.timer != nil {
		e.timer.Stop()
	}
}
