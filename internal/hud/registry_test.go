package hud

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	wtypes "github.com/scoundrel-labs/warchest/pkg/types"
)

func newTestRegistry() *Registry {
	return NewRegistry([]wtypes.WalletSpec{
		{Alias: "alpha", Pubkey: "pk1"},
		{Alias: "beta", Pubkey: "pk2"},
	}, nil, 3)
}

func TestUpdateSolBalanceSetsBaselineOnce(t *testing.T) {
	r := newTestRegistry()
	r.UpdateSolBalance("alpha", decimal.NewFromFloat(5))
	r.UpdateSolBalance("alpha", decimal.NewFromFloat(7))
	snap := r.Snapshot()
	w := snap.State["alpha"]
	require.NotNil(t, w.StartSolBalance)
	assert.True(t, w.StartSolBalance.Equal(decimal.NewFromFloat(5)))
	assert.True(t, w.SolSessionDelta.Equal(decimal.NewFromFloat(2)), "delta must be recomputed, not accumulated")
}

func TestUpdateSolBalanceUnknownAliasNoop(t *testing.T) {
	r := newTestRegistry()
	r.UpdateSolBalance("ghost", decimal.NewFromFloat(5))
	snap := r.Snapshot()
	assert.NotContains(t, snap.State, "ghost")
}

func TestRecentEventsCapAndOrder(t *testing.T) {
	r := newTestRegistry()
	for i := int64(1); i <= 7; i++ {
		r.PushRecentEvent("alpha", "event", i)
	}
	snap := r.Snapshot()
	events := snap.State["alpha"].RecentEvents
	require.Len(t, events, wtypes.RecentEventCap)
	for i := 0; i < len(events)-1; i++ {
		assert.GreaterOrEqual(t, events[i].Ts, events[i+1].Ts, "must be newest-first")
	}
	assert.Equal(t, int64(7), events[0].Ts)
}

func TestTransactionsCapAndMergeByTxid(t *testing.T) {
	r := newTestRegistry()
	mkRow := func(txid, blockTime string) wtypes.TransactionRow {
		return wtypes.TransactionRow{Txid: txid, BlockTimeIso: blockTime, StatusCategory: wtypes.StatusProcessed}
	}
	r.UpsertTransaction("alpha", mkRow("tx1", "2026-01-01T00:00:00Z"))
	r.UpsertTransaction("alpha", mkRow("tx2", "2026-01-01T00:00:01Z"))
	r.UpsertTransaction("alpha", mkRow("tx3", "2026-01-01T00:00:02Z"))
	r.UpsertTransaction("alpha", mkRow("tx4", "2026-01-01T00:00:03Z"))

	snap := r.Snapshot()
	rows := snap.Transactions["alpha"]
	require.Len(t, rows, 3, "must be capped")
	assert.Equal(t, "tx4", rows[0].Txid, "newest first")

	errMsg := "tx4 failed"
	merged := mkRow("tx4", "")
	merged.StatusCategory = wtypes.StatusFailed
	merged.ErrMessage = errMsg
	r.UpsertTransaction("alpha", merged)

	snap = r.Snapshot()
	rows = snap.Transactions["alpha"]
	var found wtypes.TransactionRow
	for _, row := range rows {
		if row.Txid == "tx4" {
			found = row
		}
	}
	assert.Equal(t, wtypes.StatusFailed, found.StatusCategory, "newer non-null field wins")
	assert.Equal(t, "2026-01-01T00:00:03Z", found.BlockTimeIso, "older non-null field preserved when newer is empty")
}

func TestAlertsCap(t *testing.T) {
	r := newTestRegistry()
	for i := int64(0); i < 12; i++ {
		r.AddAlert("warn", "x", i)
	}
	snap := r.Snapshot()
	assert.Len(t, snap.Service.Alerts, wtypes.AlertCap)
}

func TestStableMintsSortFirst(t *testing.T) {
	r := newTestRegistry()
	usdc := DefaultStableMints[0]
	r.SetTokens("alpha", []wtypes.TokenRow{
		{Mint: "randomMint", Symbol: "RND", Balance: decimal.NewFromInt(1)},
		{Mint: usdc, Symbol: "USDC", Balance: decimal.NewFromInt(1)},
	})
	snap := r.Snapshot()
	tokens := snap.State["alpha"].Tokens
	require.Len(t, tokens, 2)
	assert.Equal(t, usdc, tokens[0].Mint, "stable mint must sort first")
}
