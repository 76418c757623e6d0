// Package types holds the wire-level shapes shared across the warchest
// service: wallet specs, HUD snapshot rows, PnL rows, and hub events.
package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// WalletSpec is an operator-supplied wallet to track for the session.
type WalletSpec struct {
	Alias   string `json:"alias" yaml:"alias"`
	Pubkey  string `json:"pubkey" yaml:"pubkey"`
	Color   string `json:"color,omitempty" yaml:"color,omitempty"`
	WalletID int64 `json:"walletId" yaml:"-"`
}

// RecentEvent is a short, human-readable line pushed into a wallet's
// recentEvents ring.
type RecentEvent struct {
	Ts      int64  `json:"ts"`
	Summary string `json:"summary"`
}

// ChangePct holds percentage price change over a handful of fixed windows.
// Fields are nil when the window could not be computed.
type ChangePct struct {
	M1  *float64 `json:"1m,omitempty"`
	M5  *float64 `json:"5m,omitempty"`
	M15 *float64 `json:"15m,omitempty"`
	M30 *float64 `json:"30m,omitempty"`
}

// TokenRow is a single mint's position and market data inside a wallet.
type TokenRow struct {
	Symbol       string           `json:"symbol"`
	Mint         string           `json:"mint"`
	Balance      decimal.Decimal  `json:"balance"`
	SessionDelta decimal.Decimal  `json:"sessionDelta"`
	UsdEstimate  *decimal.Decimal `json:"usdEstimate"`
	Decimals     *int32           `json:"decimals"`
	PriceUsd     decimal.Decimal  `json:"priceUsd"`
	ChangePct    *ChangePct       `json:"changePct,omitempty"`
	LiquidityUsd *decimal.Decimal `json:"liquidityUsd"`
	MarketCapUsd *decimal.Decimal `json:"marketCapUsd"`
	Holders      *int64           `json:"holders"`
	RiskScore    *float64         `json:"riskScore"`
	Top10Pct     *float64         `json:"top10Pct"`
	SniperPct    *float64         `json:"sniperPct"`
	DevPct       *float64         `json:"devPct"`
	RiskTags     []string         `json:"riskTags,omitempty"`
}

// PnlRow is the canonical, normalized shape every operational-DB row shape
// is folded into (see the internal/hud NormalizePnlRow pass).
type PnlRow struct {
	Mint                string           `json:"mint"`
	CurrentTokenAmount   decimal.Decimal  `json:"current_token_amount"`
	AvgCostUsd           *decimal.Decimal `json:"avg_cost_usd"`
	CoinPriceUsd         *decimal.Decimal `json:"coin_price_usd"`
	EntryUsd             *decimal.Decimal `json:"entry_usd"`
	CurrentUsd           *decimal.Decimal `json:"current_usd"`
	UnrealizedPnlUsd     *decimal.Decimal `json:"unrealized_pnl_usd"`
	RealizedPnlUsd       *decimal.Decimal `json:"realized_pnl_usd"`
	RoiPct               *decimal.Decimal `json:"roi_pct"`
}

// StatusCategory is the coarse outcome bucket for a TransactionRow.
type StatusCategory string

const (
	StatusConfirmed StatusCategory = "confirmed"
	StatusFailed    StatusCategory = "failed"
	StatusProcessed StatusCategory = "processed"
)

// TradeSide classifies a transaction or log event.
type TradeSide string

const (
	SideBuy TradeSide = "buy"
	SideSell TradeSide = "sell"
	SideTx   TradeSide = "tx"
)

// CoinMetadataSnapshot is an opaque, small metadata snapshot embedded in a
// TransactionRow at observation time (symbol/name/decimals as last known).
type CoinMetadataSnapshot struct {
	Symbol   string `json:"symbol,omitempty"`
	Name     string `json:"name,omitempty"`
	Decimals *int32 `json:"decimals,omitempty"`
}

// TransactionRow is a bounded, newest-first entry in a wallet's transaction
// history, populated by the hub coordinator from HubEvents.
type TransactionRow struct {
	Txid           string                `json:"txid"`
	Side           TradeSide             `json:"side"`
	Mint           string                `json:"mint,omitempty"`
	Tokens         *decimal.Decimal      `json:"tokens,omitempty"`
	Sol            *decimal.Decimal      `json:"sol,omitempty"`
	StatusCategory StatusCategory        `json:"statusCategory"`
	StatusEmoji    string                `json:"statusEmoji,omitempty"`
	ErrMessage     string                `json:"errMessage,omitempty"`
	Coin           *CoinMetadataSnapshot `json:"coin,omitempty"`
	ObservedAt     int64                 `json:"observedAt"`
	BlockTimeIso   string                `json:"blockTimeIso,omitempty"`
	Slot           *uint64               `json:"slot,omitempty"`
	ExplorerUrl    string                `json:"explorerUrl,omitempty"`
}

// SortKey returns the value used to order TransactionRows:
// blockTimeIso if present, else observedAt converted to the same shape.
func (t TransactionRow) SortKey() string {
	if t.BlockTimeIso != "" {
		return t.BlockTimeIso
	}
	return time.UnixMilli(t.ObservedAt).UTC().Format(time.RFC3339Nano)
}

// WalletState is one wallet's slice of the HUD snapshot.
type WalletState struct {
	Alias              string                     `json:"alias"`
	Pubkey             string                     `json:"pubkey"`
	Color              string                     `json:"color,omitempty"`
	WalletID           int64                      `json:"walletId"`
	StartSolBalance    *decimal.Decimal           `json:"startSolBalance"`
	SolBalance         decimal.Decimal            `json:"solBalance"`
	SolSessionDelta    decimal.Decimal            `json:"solSessionDelta"`
	OpenedAt           int64                      `json:"openedAt"`
	LastActivityTs     int64                      `json:"lastActivityTs"`
	StartTokenBalances map[string]decimal.Decimal `json:"startTokenBalances"`
	Tokens             []TokenRow                 `json:"tokens"`
	HasToken22         *bool                      `json:"hasToken22"`
	RecentEvents       []RecentEvent              `json:"recentEvents"`
	PnlByMint          map[string]PnlRow          `json:"pnlByMint"`
}

// RecentEventCap and DefaultTransactionCap are the bounded-list caps
// applied to a wallet's recent-events and transactions lists (the
// transactions cap is a default that hud.NewRegistry's txCap overrides).
const (
	RecentEventCap       = 5
	DefaultTransactionCap = 10
)

// WsSupervisorState captures the subscription reconnection policy state
// (resolved with exponential backoff + jitter on reconnect).
type WsSupervisorState struct {
	State       string    `json:"state"`
	Attempt     int       `json:"attempt"`
	NextRetryAt time.Time `json:"nextRetryAt,omitempty"`
	LastError   string    `json:"lastError,omitempty"`
}

// Alert is a user-visible failure surfaced in the HUD.
type Alert struct {
	Ts      int64  `json:"ts"`
	Level   string `json:"level"` // info | warn | error
	Message string `json:"message"`
}

const AlertCap = 8

// ServiceInfo is the non-wallet slice of the HUD snapshot: chain state,
// alerts, and the subscription supervisor.
type ServiceInfo struct {
	Slot          uint64            `json:"slot"`
	Parent        uint64            `json:"parent,omitempty"`
	Root          uint64            `json:"root,omitempty"`
	LastSlotAt    int64             `json:"lastSlotAt,omitempty"`
	Alerts        []Alert           `json:"alerts"`
	WsSupervisor  WsSupervisorState `json:"wsSupervisor"`
}

// HudSnapshot is the top-level object returned by the HUD store.
type HudSnapshot struct {
	State        map[string]WalletState        `json:"state"`
	Transactions map[string][]TransactionRow   `json:"transactions"`
	Service      ServiceInfo                   `json:"service"`
}
