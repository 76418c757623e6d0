package hud

import (
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	wtypes "github.com/scoundrel-labs/warchest/pkg/types"
)

// DefaultStableMints is the fixed set of USD-pegged mints that sort before
// others in a wallet's token table (GLOSSARY: "stable mint"); NewRegistry
// adds any caller-configured extras to it.
var DefaultStableMints = []string{
	"EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", // USDC
	"Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB", // USDT
	"USD1ttGY1N17NEEHLmELoaybftRBUSErhqYiQzvEmuB",  // USD1
}

// Registry owns the HUD snapshot's writable state: it is the
// SnapshotProvider Store reads from, and the single place alias->state
// mutation happens. The three writers are the service
// loop, the wallet manager, and the hub coordinator — all call through
// Registry's methods rather than mutating state directly.
type Registry struct {
	mu           sync.Mutex
	wallets      map[string]*wtypes.WalletState // by alias
	transactions map[string][]wtypes.TransactionRow
	txCap        int
	service      wtypes.ServiceInfo
	stableMints  map[string]struct{}
}

// NewRegistry creates one wallet slot per spec. Aliases are fixed at
// construction time: no insertions after init.
func NewRegistry(specs []wtypes.WalletSpec, extraStableMints []string, txCap int) *Registry {
	if txCap <= 0 {
		txCap = wtypes.DefaultTransactionCap
	}
	stable := make(map[string]struct{}, len(DefaultStableMints)+len(extraStableMints))
	for _, m := range DefaultStableMints {
		stable[m] = struct{}{}
	}
	for _, m := range extraStableMints {
		stable[m] = struct{}{}
	}
	r := &Registry{
		wallets:      make(map[string]*wtypes.WalletState, len(specs)),
		transactions: make(map[string][]wtypes.TransactionRow, len(specs)),
		txCap:        txCap,
		stableMints:  stable,
		service:      wtypes.ServiceInfo{Alerts: []wtypes.Alert{}},
	}
	now := time.Now().UnixMilli()
	for _, spec := range specs {
		r.wallets[spec.Alias] = &wtypes.WalletState{
			Alias:              spec.Alias,
			Pubkey:             spec.Pubkey,
			Color:              spec.Color,
			WalletID:           spec.WalletID,
			OpenedAt:           now,
			LastActivityTs:     now,
			StartTokenBalances: make(map[string]decimal.Decimal),
			Tokens:             []wtypes.TokenRow{},
			RecentEvents:       []wtypes.RecentEvent{},
			PnlByMint:          make(map[string]wtypes.PnlRow),
		}
		r.transactions[spec.Alias] = []wtypes.TransactionRow{}
	}
	return r
}

// Snapshot implements SnapshotProvider.
func (r *Registry) Snapshot() wtypes.HudSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	state := make(map[string]wtypes.WalletState, len(r.wallets))
	for alias, w := range r.wallets {
		state[alias] = *w
	}
	tx := make(map[string][]wtypes.TransactionRow, len(r.transactions))
	for alias, rows := range r.transactions {
		tx[alias] = rows
	}
	return wtypes.HudSnapshot{State: state, Transactions: tx, Service: r.service}
}

func (r *Registry) wallet(alias string) (*wtypes.WalletState, bool) {
	w, ok := r.wallets[alias]
	return w, ok
}

// UpdateSolBalance sets solBalance/solSessionDelta and, on first call,
// captures startSolBalance. solSessionDelta is recomputed, never
// accumulated.
func (r *Registry) UpdateSolBalance(alias string, sol decimal.Decimal) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.wallet(alias)
	if !ok {
		return
	}
	if w.StartSolBalance == nil {
		baseline := sol
		w.StartSolBalance = &baseline
	}
	w.SolBalance = sol
	w.SolSessionDelta = sol.Sub(*w.StartSolBalance)
	w.LastActivityTs = time.Now().UnixMilli()
}

// SetTokens replaces the wallet's token table, sorting stable mints first,
// and seeds startTokenBalances the first time each mint is seen with a
// positive balance.
func (r *Registry) SetTokens(alias string, tokens []wtypes.TokenRow) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.wallet(alias)
	if !ok {
		return
	}
	for _, t := range tokens {
		if t.Balance.IsPositive() {
			if _, seen := w.StartTokenBalances[t.Mint]; !seen {
				w.StartTokenBalances[t.Mint] = t.Balance
			}
		}
	}
	sorted := make([]wtypes.TokenRow, len(tokens))
	copy(sorted, tokens)
	for i, t := range sorted {
		if baseline, ok := w.StartTokenBalances[t.Mint]; ok {
			sorted[i].SessionDelta = t.Balance.Sub(baseline)
		}
	}
	r.sortTokens(sorted)
	w.Tokens = sorted
	w.LastActivityTs = time.Now().UnixMilli()
}

func (r *Registry) sortTokens(tokens []wtypes.TokenRow) {
	sort.SliceStable(tokens, func(i, j int) bool {
		_, iStable := r.stableMints[tokens[i].Mint]
		_, jStable := r.stableMints[tokens[j].Mint]
		if iStable != jStable {
			return iStable
		}
		return false
	})
}

// SetHasToken22 marks that a Token-22 program account has been observed.
func (r *Registry) SetHasToken22(alias string, v bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if w, ok := r.wallet(alias); ok {
		w.HasToken22 = &v
	}
}

// SetPnl replaces the wallet's pnlByMint map wholesale (the caller —
// internal/registry's GetPnlRows, via NormalizePnlRow — has already
// filtered to positive-position, resolvable-mint rows).
func (r *Registry) SetPnl(alias string, pnl map[string]wtypes.PnlRow) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if w, ok := r.wallet(alias); ok {
		w.PnlByMint = pnl
	}
}

// PushRecentEvent prepends an entry, truncating from the tail at cap 5.
func (r *Registry) PushRecentEvent(alias, summary string, ts int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.wallet(alias)
	if !ok {
		return
	}
	entry := wtypes.RecentEvent{Ts: ts, Summary: summary}
	w.RecentEvents = append([]wtypes.RecentEvent{entry}, w.RecentEvents...)
	if len(w.RecentEvents) > wtypes.RecentEventCap {
		w.RecentEvents = w.RecentEvents[:wtypes.RecentEventCap]
	}
	w.LastActivityTs = ts
}

// UpsertTransaction inserts or merges-by-txid a TransactionRow into the
// wallet's bounded transaction list, re-sorting by blockTimeIso||observedAt
// descending and truncating at txCap.
func (r *Registry) UpsertTransaction(alias string, row wtypes.TransactionRow) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.wallet(alias); !ok {
		return
	}
	rows := r.transactions[alias]
	merged := false
	for i, existing := range rows {
		if existing.Txid == row.Txid {
			rows[i] = mergeTransactionRow(existing, row)
			merged = true
			break
		}
	}
	if !merged {
		rows = append(rows, row)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].SortKey() > rows[j].SortKey()
	})
	if len(rows) > r.txCap {
		rows = rows[:r.txCap]
	}
	r.transactions[alias] = rows
}

// AddAlert prepends an alert, capped at wtypes.AlertCap.
func (r *Registry) AddAlert(level, message string, ts int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.service.Alerts = append([]wtypes.Alert{{Ts: ts, Level: level, Message: message}}, r.service.Alerts...)
	if len(r.service.Alerts) > wtypes.AlertCap {
		r.service.Alerts = r.service.Alerts[:wtypes.AlertCap]
	}
}

// UpdateChain reflects the shared chain state registry's view into the
// HUD snapshot's service slice.
func (r *Registry) UpdateChain(slot, parent, root uint64, lastSlotAt int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.service.Slot = slot
	r.service.Parent = parent
	r.service.Root = root
	r.service.LastSlotAt = lastSlotAt
}

// SetWsSupervisor mirrors a subscription supervisor's current state.
func (r *Registry) SetWsSupervisor(st wtypes.WsSupervisorState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.service.WsSupervisor = st
}

// Aliases returns the fixed set of wallet aliases (invariant: never
// changes after construction).
func (r *Registry) Aliases() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.wallets))
	for a := range r.wallets {
		out = append(out, a)
	}
	return out
}
