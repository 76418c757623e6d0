package hud

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedulerCoalescesWithinWindow(t *testing.T) {
	var calls int32
	refreshTokens := func(ctx context.Context, alias string) error {
		atomic.AddInt32(&calls, 1)
		return nil
	}
	refreshPnl := func(ctx context.Context, alias string) error { return nil }
	s := NewScheduler([]string{"alpha"}, 5*time.Millisecond, refreshTokens, refreshPnl, func() {}, zerolog.Nop())

	s.Schedule("alpha", "l1")
	s.Schedule("alpha", "l2")
	s.Schedule("alpha", "l3")

	require.Eventually(t, func() bool { return atomic.LoadInt32(&calls) == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "coalesced calls must fire exactly once")
}

func TestSchedulerQueuesOneFollowupWhileInFlight(t *testing.T) {
	var calls int32
	release := make(chan struct{})
	var once sync.Once
	refreshTokens := func(ctx context.Context, alias string) error {
		n := atomic.AddInt32(&calls, 1)
		if n == 1 {
			<-release
		}
		return nil
	}
	refreshPnl := func(ctx context.Context, alias string) error { return nil }
	s := NewScheduler([]string{"alpha"}, time.Millisecond, refreshTokens, refreshPnl, func() {}, zerolog.Nop())

	s.Schedule("alpha", "l1")
	require.Eventually(t, func() bool { return atomic.LoadInt32(&calls) == 1 }, time.Second, time.Millisecond)

	// these should collapse into a single queued follow-up
	s.Schedule("alpha", "l2")
	s.Schedule("alpha", "l3")
	time.Sleep(10 * time.Millisecond)
	once.Do(func() { close(release) })

	require.Eventually(t, func() bool { return atomic.LoadInt32(&calls) == 2 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls), "only one follow-up refresh should run")
}

func TestSchedulerIgnoresUnknownAlias(t *testing.T) {
	var calls int32
	refreshTokens := func(ctx context.Context, alias string) error {
		atomic.AddInt32(&calls, 1)
		return nil
	}
	s := NewScheduler([]string{"alpha"}, time.Millisecond, refreshTokens, func(ctx context.Context, alias string) error { return nil }, func() {}, zerolog.Nop())
	s.Schedule("ghost", "l1")
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestSchedulerSkipsPnlOnTokenRefreshError(t *testing.T) {
	var tokenCalls, pnlCalls, emits int32
	refreshTokens := func(ctx context.Context, alias string) error {
		atomic.AddInt32(&tokenCalls, 1)
		return assertErr
	}
	refreshPnl := func(ctx context.Context, alias string) error {
		atomic.AddInt32(&pnlCalls, 1)
		return nil
	}
	s := NewScheduler([]string{"alpha"}, time.Millisecond, refreshTokens, refreshPnl, func() { atomic.AddInt32(&emits, 1) }, zerolog.Nop())
	s.Schedule("alpha", "l1")
	require.Eventually(t, func() bool { return atomic.LoadInt32(&emits) == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&tokenCalls))
	assert.Equal(t, int32(0), atomic.LoadInt32(&pnlCalls), "pnl must not run after token refresh failure")
}

func TestSchedulerConcurrentAliasesRunInParallel(t *testing.T) {
	start := make(chan struct{})
	var inAlpha, inBeta int32
	refreshTokens := func(ctx context.Context, alias string) error {
		if alias == "alpha" {
			atomic.StoreInt32(&inAlpha, 1)
		} else {
			atomic.StoreInt32(&inBeta, 1)
		}
		<-start
		return nil
	}
	s := NewScheduler([]string{"alpha", "beta"}, time.Millisecond, refreshTokens, func(ctx context.Context, alias string) error { return nil }, func() {}, zerolog.Nop())
	s.Schedule("alpha", "l1")
	s.Schedule("beta", "l1")
	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&inAlpha) == 1 && atomic.LoadInt32(&inBeta) == 1
	}, time.Second, time.Millisecond)
	close(start)
}

var assertErr = errSentinel("boom")

type errSentinel string

func (e errSentinel) Error() string { return string(e) }
