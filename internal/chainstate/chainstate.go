// Package chainstate holds the process-wide singletons for chain state and
// live wallet state. Both are shared with workers that run without
// access to the HUD store, so they live in their own narrow-writer types
// rather than inside internal/hud.
package chainstate

import (
	"math"
	"sync"
	"time"
)

// SlotEvent is a (possibly partial) slot notification from the RPC layer.
type SlotEvent struct {
	Slot   *uint64
	Parent *uint64
	Root   *uint64
}

// ChainView is the read-only snapshot returned by Chain.Get.
type ChainView struct {
	Slot       uint64
	Parent     uint64
	Root       uint64
	LastSlotAt int64
}

// Chain is the process-wide latest-slot/root singleton.
type Chain struct {
	mu   sync.RWMutex
	view ChainView
}

func NewChain() *Chain {
	return &Chain{}
}

// UpdateFromSlotEvent coerces and applies only the fields present in ev.
func (c *Chain) UpdateFromSlotEvent(ev SlotEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ev.Slot != nil {
		c.view.Slot = *ev.Slot
	}
	if ev.Parent != nil {
		c.view.Parent = *ev.Parent
	}
	if ev.Root != nil {
		c.view.Root = *ev.Root
	}
	c.view.LastSlotAt = time.Now().UnixMilli()
}

func (c *Chain) Get() ChainView {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.view
}

// TokenUpdate carries only the fields that should overwrite an existing
// TokenEntry; nil/zero-value fields are left untouched.
type TokenUpdate struct {
	Amount   *float64
	Decimals *int32
	Symbol   *string
	PriceUsd *float64
}

// TokenEntry is the per-mint slice of live wallet state.
type TokenEntry struct {
	Amount   float64
	Decimals *int32
	Symbol   string
	PriceUsd float64
}

// WalletView is the read-only snapshot returned by Wallets.Get.
type WalletView struct {
	Pubkey        string
	SolLamports   uint64
	SolLastUpdated int64
	LastActivity  int64
	Tokens        map[string]TokenEntry
}

type walletRecord struct {
	solLamports    uint64
	solLastUpdated int64
	lastActivity   int64
	tokens         map[string]TokenEntry
}

// Wallets is the process-wide live-wallet-state singleton, keyed by pubkey.
type Wallets struct {
	mu  sync.RWMutex
	byPubkey map[string]*walletRecord
}

func NewWallets() *Wallets {
	return &Wallets{byPubkey: make(map[string]*walletRecord)}
}

func (w *Wallets) record(pubkey string) *walletRecord {
	r, ok := w.byPubkey[pubkey]
	if !ok {
		r = &walletRecord{tokens: make(map[string]TokenEntry)}
		w.byPubkey[pubkey] = r
	}
	return r
}

// UpdateSol stores lamports, bumping solLastUpdated and lastActivity.
// Non-finite values are silently ignored.
func (w *Wallets) UpdateSol(pubkey string, lamports uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	r := w.record(pubkey)
	now := time.Now().UnixMilli()
	r.solLamports = lamports
	r.solLastUpdated = now
	r.lastActivity = now
}

// UpdateToken creates the mint entry lazily; only provided fields overwrite.
func (w *Wallets) UpdateToken(pubkey, mint string, upd TokenUpdate) {
	w.mu.Lock()
	defer w.mu.Unlock()
	r := w.record(pubkey)
	entry := r.tokens[mint]
	if upd.Amount != nil && !math.IsNaN(*upd.Amount) && !math.IsInf(*upd.Amount, 0) {
		entry.Amount = *upd.Amount
	}
	if upd.Decimals != nil {
		entry.Decimals = upd.Decimals
	}
	if upd.Symbol != nil {
		entry.Symbol = *upd.Symbol
	}
	if upd.PriceUsd != nil && !math.IsNaN(*upd.PriceUsd) && !math.IsInf(*upd.PriceUsd, 0) {
		entry.PriceUsd = *upd.PriceUsd
	}
	r.tokens[mint] = entry
	r.lastActivity = time.Now().UnixMilli()
}

// Get returns a read-only view; absent pubkeys return the zero WalletView
// with a nil Tokens map.
func (w *Wallets) Get(pubkey string) WalletView {
	w.mu.RLock()
	defer w.mu.RUnlock()
	r, ok := w.byPubkey[pubkey]
	if !ok {
		return WalletView{Pubkey: pubkey}
	}
	tokens := make(map[string]TokenEntry, len(r.tokens))
	for k, v := range r.tokens {
		tokens[k] = v
	}
	return WalletView{
		Pubkey:         pubkey,
		SolLamports:    r.solLamports,
		SolLastUpdated: r.solLastUpdated,
		LastActivity:   r.lastActivity,
		Tokens:         tokens,
	}
}
