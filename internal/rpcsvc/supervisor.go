package rpcsvc

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"

	wtypes "github.com/scoundrel-labs/warchest/pkg/types"
)

// Supervisor owns the connect-retry policy for a single subscription (slot,
// account, or logs): failed connect attempts are retried with exponential
// backoff and full jitter, and progress is surfaced through
// wtypes.WsSupervisorState.
//
// State machine: Disconnected -> Reconnecting -> Connected. A failed
// connect attempt stays in Reconnecting until the next retry, and retries
// never give up. Once Connected, the supervisor holds the subscription
// until Close or context cancellation; a subscription that fails after it
// has connected is not detected or reconnected.
type Supervisor struct {
	name    string
	connect func(ctx context.Context) (Subscription, error)
	log     zerolog.Logger

	baseDelay time.Duration
	maxDelay  time.Duration

	mu           sync.Mutex
	state        wtypes.WsSupervisorState
	sub          Subscription
	cancel       context.CancelFunc
	closed       bool
	onConnectErr func(error)
}

// SetOnConnectError registers a callback invoked every time a connect
// attempt fails, before the retry delay. Used to feed subscription-error
// counts into the health monitor; nil by default.
func (s *Supervisor) SetOnConnectError(fn func(error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onConnectErr = fn
}

// NewSupervisor builds a supervisor for a connect function that establishes
// one subscription attempt (e.g. c.SubscribeSlot(handler)).
func NewSupervisor(name string, log zerolog.Logger, connect func(ctx context.Context) (Subscription, error)) *Supervisor {
	return &Supervisor{
		name:      name,
		connect:   connect,
		log:       log,
		baseDelay: 500 * time.Millisecond,
		maxDelay:  30 * time.Second,
		state:     wtypes.WsSupervisorState{State: "disconnected"},
	}
}

// Run starts the connect/retry loop in the background. It returns
// immediately; call Close to stop it.
func (s *Supervisor) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()
	go s.loop(ctx)
}

func (s *Supervisor) loop(ctx context.Context) {
	attempt := 0
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		s.setState("reconnecting", attempt, "", time.Time{})
		sub, err := s.connect(ctx)
		if err != nil {
			attempt++
			delay := s.backoff(attempt)
			next := time.Now().Add(delay)
			s.setState("reconnecting", attempt, err.Error(), next)
			s.log.Warn().Str("subscription", s.name).Err(err).Dur("retryIn", delay).Msg("rpcsvc: subscription connect failed")
			s.mu.Lock()
			onErr := s.onConnectErr
			s.mu.Unlock()
			if onErr != nil {
				onErr(err)
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
				continue
			}
		}

		attempt = 0
		s.mu.Lock()
		s.sub = sub
		s.mu.Unlock()
		s.setState("connected", 0, "", time.Time{})

		<-ctx.Done()
		sub.Unsubscribe()
		return
	}
}

// backoff computes base*2^(attempt-1) capped at maxDelay, with full jitter.
func (s *Supervisor) backoff(attempt int) time.Duration {
	d := s.baseDelay << uint(attempt-1)
	if d <= 0 || d > s.maxDelay {
		d = s.maxDelay
	}
	jittered := time.Duration(rand.Int63n(int64(d)))
	if jittered < s.baseDelay {
		jittered = s.baseDelay
	}
	return jittered
}

func (s *Supervisor) setState(state string, attempt int, lastErr string, nextRetry time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = wtypes.WsSupervisorState{
		State:       state,
		Attempt:     attempt,
		NextRetryAt: nextRetry,
		LastError:   lastErr,
	}
}

func (s *Supervisor) State() wtypes.WsSupervisorState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Close stops the supervisor's retry loop and unsubscribes if connected.
func (s *Supervisor) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}
