package hud

import (
	"fmt"
	"regexp"
	"time"

	wtypes "github.com/scoundrel-labs/warchest/pkg/types"
)

// HubEvent is the normalized {event, ts, data} shape emitted by the hub
// coordinator's progress/summary stream.
type HubEvent struct {
	Event string
	Ts    int64
	Alias string
	Data  TxSummary
}

// TxSummary is the union of fields a terminal swap or tx-monitor event
// may carry.
type TxSummary struct {
	Kind           string
	Status         string // ok | failed | unknown | timeout
	Label          string
	Side           wtypes.TradeSide
	Mint           string
	Txid           string
	ExplorerUrl    string
	DurationMs     *int64
	Tokens         *float64
	Sol            *float64
	TotalFeesSol   *float64
	PriceImpactPct *float64
	Err            string
	ErrMessage     string
	ErrorSummary   string
	BlockTimeIso   string
	Slot           *uint64
}

var terminalEvents = map[string]bool{
	"swap:monitor:done":     true,
	"swap:monitor:detached": true,
}

// mergeTransactionRow does a shallow merge: the newer event's non-null
// fields win over the older row's.
func mergeTransactionRow(old, next wtypes.TransactionRow) wtypes.TransactionRow {
	out := old
	if next.Side != "" {
		out.Side = next.Side
	}
	if next.Mint != "" {
		out.Mint = next.Mint
	}
	if next.Tokens != nil {
		out.Tokens = next.Tokens
	}
	if next.Sol != nil {
		out.Sol = next.Sol
	}
	if next.StatusCategory != "" {
		out.StatusCategory = next.StatusCategory
	}
	if next.StatusEmoji != "" {
		out.StatusEmoji = next.StatusEmoji
	}
	if next.ErrMessage != "" {
		out.ErrMessage = next.ErrMessage
	}
	if next.Coin != nil {
		out.Coin = next.Coin
	}
	if next.ObservedAt != 0 {
		out.ObservedAt = next.ObservedAt
	}
	if next.BlockTimeIso != "" {
		out.BlockTimeIso = next.BlockTimeIso
	}
	if next.Slot != nil {
		out.Slot = next.Slot
	}
	if next.ExplorerUrl != "" {
		out.ExplorerUrl = next.ExplorerUrl
	}
	return out
}

var sigPrefix = regexp.MustCompile(`^(\w{4})`)

// ApplyHubEventToState prepends a recentEvents entry and, for terminal
// swap events, inserts or merges a TransactionRow by txid.
func (r *Registry) ApplyHubEventToState(ev HubEvent) {
	summary := summarizeHubEvent(ev)
	r.PushRecentEvent(ev.Alias, summary, ev.Ts)

	if !terminalEvents[ev.Event] && ev.Data.Status == "" {
		return
	}

	row := wtypes.TransactionRow{
		Txid:         ev.Data.Txid,
		Side:         ev.Data.Side,
		Mint:         ev.Data.Mint,
		StatusEmoji:  statusEmoji(ev.Data.Status),
		ErrMessage:   ev.Data.ErrMessage,
		ObservedAt:   ev.Ts,
		BlockTimeIso: ev.Data.BlockTimeIso,
		Slot:         ev.Data.Slot,
		ExplorerUrl:  ev.Data.ExplorerUrl,
	}
	if ev.Data.Tokens != nil {
		d := decimalFromFloat(*ev.Data.Tokens)
		row.Tokens = &d
	}
	if ev.Data.Sol != nil {
		d := decimalFromFloat(*ev.Data.Sol)
		row.Sol = &d
	}
	switch ev.Data.Status {
	case "ok":
		row.StatusCategory = wtypes.StatusConfirmed
	case "failed":
		row.StatusCategory = wtypes.StatusFailed
	case "timeout":
		row.StatusCategory = wtypes.StatusFailed
	default:
		row.StatusCategory = wtypes.StatusProcessed
	}
	if row.Txid == "" {
		return
	}
	r.UpsertTransaction(ev.Alias, row)
}

func summarizeHubEvent(ev HubEvent) string {
	ts := time.UnixMilli(ev.Ts).UTC().Format("15:04:05")
	switch {
	case ev.Data.Status == "ok":
		return fmt.Sprintf("%s %s confirmed %s", ts, ev.Data.Side, shortSig(ev.Data.Txid))
	case ev.Data.Status == "failed":
		return fmt.Sprintf("%s %s failed: %s", ts, ev.Data.Side, ev.Data.ErrMessage)
	case ev.Data.Status == "timeout":
		return fmt.Sprintf("%s %s timed out", ts, ev.Data.Side)
	default:
		return fmt.Sprintf("%s %s", ts, ev.Event)
	}
}

func shortSig(sig string) string {
	if len(sig) <= 8 {
		return sig
	}
	return sig[:8]
}

func statusEmoji(status string) string {
	switch status {
	case "ok":
		return "✅"
	case "failed", "timeout":
		return "❌"
	default:
		return "⏳"
	}
}
