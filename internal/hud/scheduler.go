package hud

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultDebounce is the per-alias debounce window, overridable via
// WARCHEST_LOG_REFRESH_DEBOUNCE_MS.
const DefaultDebounce = 5 * time.Millisecond

// RefreshTokensFunc refreshes token balances for alias.
type RefreshTokensFunc func(ctx context.Context, alias string) error

// RefreshPnlFunc refreshes PnL rows for alias.
type RefreshPnlFunc func(ctx context.Context, alias string) error

// Scheduler is a per-wallet debounced, non-overlapping refresh
// pipeline. It guarantees at-most-one in-flight refresh per alias, bounded
// latency between a log event and a snapshot update, and a trailing
// refresh always runs after the last Schedule call.
type Scheduler struct {
	known         map[string]struct{}
	debounce      time.Duration
	refreshTokens RefreshTokensFunc
	refreshPnl    RefreshPnlFunc
	emitChange    func()
	log           zerolog.Logger

	mu       sync.Mutex
	timers   map[string]*time.Timer
	inFlight map[string]bool
	queued   map[string]bool
	closed   bool
	wg       sync.WaitGroup
}

func NewScheduler(aliases []string, debounce time.Duration, refreshTokens RefreshTokensFunc, refreshPnl RefreshPnlFunc, emitChange func(), log zerolog.Logger) *Scheduler {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	known := make(map[string]struct{}, len(aliases))
	for _, a := range aliases {
		known[a] = struct{}{}
	}
	return &Scheduler{
		known:         known,
		debounce:      debounce,
		refreshTokens: refreshTokens,
		refreshPnl:    refreshPnl,
		emitChange:    emitChange,
		log:           log,
		timers:        make(map[string]*time.Timer),
		inFlight:      make(map[string]bool),
		queued:        make(map[string]bool),
	}
}

// Schedule requests a refresh for alias. Unknown aliases are ignored
// silently.
func (s *Scheduler) Schedule(alias, reason string) {
	s.mu.Lock()
	if _, ok := s.known[alias]; !ok {
		s.mu.Unlock()
		return
	}
	if s.closed {
		s.mu.Unlock()
		return
	}
	if s.inFlight[alias] {
		s.queued[alias] = true
		s.mu.Unlock()
		return
	}
	if t, ok := s.timers[alias]; ok {
		t.Stop()
	}
	s.timers[alias] = time.AfterFunc(s.debounce, func() { s.fire(alias) })
	s.mu.Unlock()
}

func (s *Scheduler) fire(alias string) {
	s.mu.Lock()
	delete(s.timers, alias)
	if s.closed {
		s.mu.Unlock()
		return
	}
	if s.inFlight[alias] {
		s.queued[alias] = true
		s.mu.Unlock()
		return
	}
	s.inFlight[alias] = true
	s.wg.Add(1)
	s.mu.Unlock()
	go s.runRefresh(alias)
}

func (s *Scheduler) runRefresh(alias string) {
	defer s.wg.Done()
	ctx := context.Background()

	if err := s.refreshTokens(ctx, alias); err != nil {
		s.log.Error().Err(err).Str("alias", alias).Msg("hud: token refresh failed")
	} else if err := s.refreshPnl(ctx, alias); err != nil {
		s.log.Error().Err(err).Str("alias", alias).Msg("hud: pnl refresh failed")
	}
	if s.emitChange != nil {
		s.emitChange()
	}

	s.mu.Lock()
	s.inFlight[alias] = false
	runAgain := s.queued[alias] && !s.closed
	if runAgain {
		s.queued[alias] = false
		s.inFlight[alias] = true
		s.wg.Add(1)
	}
	s.mu.Unlock()

	if runAgain {
		s.runRefresh(alias)
	}
}

// Close cancels all pending debounce timers. No trailing refresh runs
// after Close; refreshes already in flight are
// allowed to finish.
func (s *Scheduler) Close() {
	s.mu.Lock()
	s.closed = true
	for _, t := range s.timers {
		t.Stop()
	}
	s.timers = make(map[string]*time.Timer)
	s.mu.Unlock()
	s.wg.Wait()
}
