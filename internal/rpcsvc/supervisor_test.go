package rpcsvc

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSub struct{ unsubbed *bool }

func (f *fakeSub) Unsubscribe() { *f.unsubbed = true }

func TestSupervisorBackoffBounds(t *testing.T) {
	s := NewSupervisor("test", zerolog.Nop(), nil)
	for attempt := 1; attempt <= 10; attempt++ {
		d := s.backoff(attempt)
		assert.GreaterOrEqual(t, d, s.baseDelay)
		assert.LessOrEqual(t, d, s.maxDelay)
	}
}

func TestSupervisorReconnectsUntilSuccess(t *testing.T) {
	attempts := 0
	unsubbed := false
	connect := func(ctx context.Context) (Subscription, error) {
		attempts++
		if attempts < 3 {
			return nil, errors.New("dial refused")
		}
		return &fakeSub{unsubbed: &unsubbed}, nil
	}
	s := NewSupervisor("test", zerolog.Nop(), connect)
	s.baseDelay = time.Millisecond
	s.maxDelay = 5 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	s.Run(ctx)

	require.Eventually(t, func() bool {
		return s.State().State == "connected"
	}, time.Second, time.Millisecond)
	assert.Equal(t, 3, attempts)

	cancel()
	s.Close()
	require.Eventually(t, func() bool { return unsubbed }, time.Second, time.Millisecond)
}

func TestSupervisorInvokesOnConnectErrorPerFailedAttempt(t *testing.T) {
	var errCount int32
	connect := func(ctx context.Context) (Subscription, error) {
		return nil, errors.New("dial refused")
	}
	s := NewSupervisor("test", zerolog.Nop(), connect)
	s.baseDelay = time.Millisecond
	s.maxDelay = 2 * time.Millisecond
	s.SetOnConnectError(func(err error) { atomic.AddInt32(&errCount, 1) })

	ctx, cancel := context.WithCancel(context.Background())
	s.Run(ctx)

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&errCount) >= 3
	}, time.Second, time.Millisecond)

	cancel()
	s.Close()
}
