package walletmgr

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scoundrel-labs/warchest/internal/hud"
	"github.com/scoundrel-labs/warchest/internal/rpcsvc"
	wtypes "github.com/scoundrel-labs/warchest/pkg/types"
)

func TestHandleLogPushesRecentEventAndSchedules(t *testing.T) {
	reg := hud.NewRegistry([]wtypes.WalletSpec{{Alias: "alpha", Pubkey: "pk1"}}, nil, 10)
	scheduled := make(chan string, 1)
	scheduler := hud.NewScheduler([]string{"alpha"}, time.Millisecond,
		func(ctx context.Context, alias string) error { scheduled <- alias; return nil },
		func(ctx context.Context, alias string) error { return nil },
		func() {}, zerolog.Nop())

	m := New("alpha", reg, scheduler, nil, zerolog.Nop())
	m.HandleLog(rpcsvc.LogEvent{Signature: "sig1234567890", Logs: []string{"Program log: swap"}})

	snap := reg.Snapshot()
	require.Len(t, snap.State["alpha"].RecentEvents, 1)
	assert.Contains(t, snap.State["alpha"].RecentEvents[0].Summary, "sig12345")
	assert.Contains(t, snap.State["alpha"].RecentEvents[0].Summary, "Program log: swap")

	select {
	case alias := <-scheduled:
		assert.Equal(t, "alpha", alias)
	case <-time.After(time.Second):
		t.Fatal("expected scheduler to fire a refresh")
	}
}

func TestHandleLogNeverPanics(t *testing.T) {
	reg := hud.NewRegistry([]wtypes.WalletSpec{{Alias: "alpha", Pubkey: "pk1"}}, nil, 10)
	m := New("alpha", reg, nil, func(alias string, ev rpcsvc.LogEvent) { panic("boom") }, zerolog.Nop())
	assert.NotPanics(t, func() {
		m.HandleLog(rpcsvc.LogEvent{Signature: "sig1", Logs: []string{"x"}})
	})
}
