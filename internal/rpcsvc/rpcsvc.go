// Package rpcsvc implements the RPC capability set: a typed surface
// over a Solana-style JSON-RPC/WebSocket endpoint that the rest of the
// service consumes without caring about wire framing.
package rpcsvc

import (
	"context"

	"github.com/shopspring/decimal"
)

// TokenAccount is one SPL token account as reported by a paginated fetch.
type TokenAccount struct {
	Pubkey    string
	Mint      string
	Owner     string
	ProgramID string
	UiAmount  decimal.Decimal
	Decimals  int32
}

// TokenAccountsOpts mirrors getTokenAccountsByOwnerV2's paging args.
type TokenAccountsOpts struct {
	ProgramID     string
	Limit         int
	ExcludeZero   bool
	PaginationKey string
}

// TokenAccountsPage is one page of a cursor-paginated token-account listing.
type TokenAccountsPage struct {
	Accounts   []TokenAccount
	HasMore    bool
	NextCursor string
	TotalCount int
}

// SignatureStatus is the observable summary getSignatureStatus exposes.
type SignatureStatus struct {
	Signature          string
	Slot               uint64
	ConfirmationStatus string
	Err                string
}

// TransactionInfo is the observable summary getTransaction exposes.
type TransactionInfo struct {
	Signature    string
	Slot         uint64
	BlockTimeISO string
	Err          string
}

// SlotEvent mirrors chainstate.SlotEvent for the subscription callback.
type SlotEvent struct {
	Slot   uint64
	Parent uint64
	Root   uint64
}

// AccountUpdate is delivered by SubscribeAccount; Lamports is the only
// field the service reads.
type AccountUpdate struct {
	Lamports uint64
	Slot     uint64
}

// LogEvent is delivered by SubscribeLogs.
type LogEvent struct {
	Signature string
	Logs      []string
	Err       string
	Slot      uint64
}

// Subscription is returned by every subscribe primitive.
type Subscription interface {
	Unsubscribe()
}

// Capability is the typed RPC surface the rest of the service depends on.
// It is satisfied by *Client (real Solana RPC/WS) and by test fakes.
type Capability interface {
	GetSolBalance(ctx context.Context, pubkey string) (decimal.Decimal, error)
	GetTokenAccountsByOwnerV2(ctx context.Context, owner string, opts TokenAccountsOpts) (TokenAccountsPage, error)
	GetTransaction(ctx context.Context, signature string) (*TransactionInfo, error)
	GetSignatureStatus(ctx context.Context, signature string) (*SignatureStatus, error)

	SubscribeSlot(handler func(SlotEvent)) (Subscription, error)
	SubscribeAccount(pubkey string, handler func(AccountUpdate)) (Subscription, error)
	SubscribeLogs(mentions []string, handler func(LogEvent)) (Subscription, error)

	Close()
}
