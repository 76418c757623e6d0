// Package hud implements the HUD store, the refresh scheduler, and the
// apply/merge/normalization logic that turns raw updates into the
// canonical snapshot shape.
package hud

import (
	"sync"

	wtypes "github.com/scoundrel-labs/warchest/pkg/types"
)

// SnapshotProvider produces the current snapshot on demand; Store never
// owns wallet state itself, it only coordinates reads and change
// notification over whatever provider is wired in (normally a *Registry).
type SnapshotProvider func() wtypes.HudSnapshot

// Listener is invoked with a fresh snapshot on every EmitChange.
type Listener func(wtypes.HudSnapshot)

// Store pairs a SnapshotProvider with a change-emitter, with a
// subscribe/getSnapshot contract and copy-on-read semantics.
type Store struct {
	provider SnapshotProvider

	mu        sync.Mutex
	listeners map[int]Listener
	nextID    int
}

func NewStore(provider SnapshotProvider) *Store {
	return &Store{provider: provider, listeners: make(map[int]Listener)}
}

// GetSnapshot synchronously invokes the provider and returns a shallow
// copy of the outer object plus a shallow copy of its State and
// Transactions mappings — entries are not deep-cloned.
func (s *Store) GetSnapshot() wtypes.HudSnapshot {
	snap := s.provider()
	cp := snap
	cp.State = make(map[string]wtypes.WalletState, len(snap.State))
	for k, v := range snap.State {
		cp.State[k] = v
	}
	cp.Transactions = make(map[string][]wtypes.TransactionRow, len(snap.Transactions))
	for k, v := range snap.Transactions {
		cp.Transactions[k] = v
	}
	return cp
}

// Subscribe registers listener and returns an unsubscribe func.
func (s *Store) Subscribe(l Listener) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// EmitChange invokes every listener with a fresh snapshot. The store does
// not itself throttle — callers that need coalescing wrap this in a
// debounced emitter (see Scheduler / internal/hud/throttle.go).
func (s *Store) EmitChange() {
	s.mu.Lock()
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()
	snap := s.GetSnapshot()
	for _, l := range listeners {
		l(snap)
	}
}

// RemoveAllListeners drops every registered subscriber.
func (s *Store) RemoveAllListeners() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = make(map[int]Listener)
}
