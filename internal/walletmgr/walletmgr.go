// Package walletmgr implements one consumer per wallet that turns raw
// log notifications into a recent-event push plus a scheduler refresh
// trigger, using a tolerant-extraction idiom (parse what
// you can from an opaque notification, never abort on partial data).
package walletmgr

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/scoundrel-labs/warchest/internal/hud"
	"github.com/scoundrel-labs/warchest/internal/rpcsvc"
)

// TradeDeriver is the opaque, per-wallet trade-derivation path: it may
// update positions from the log event. The manager calls it when set and
// then schedules a refresh with the signature as the reason whether or
// not a deriver is configured.
type TradeDeriver func(alias string, ev rpcsvc.LogEvent)

// Manager is one per wallet.
type Manager struct {
	alias    string
	reg      *hud.Registry
	scheduler *hud.Scheduler
	derive   TradeDeriver
	log      zerolog.Logger
}

func New(alias string, reg *hud.Registry, scheduler *hud.Scheduler, derive TradeDeriver, log zerolog.Logger) *Manager {
	return &Manager{alias: alias, reg: reg, scheduler: scheduler, derive: derive, log: log}
}

// HandleLog pushes a recent-event line for a log notification, hands it to
// the trade deriver, and schedules a refresh. It never panics or propagates an
// error that would tear down the logs subscription.
func (m *Manager) HandleLog(ev rpcsvc.LogEvent) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error().Interface("panic", r).Str("alias", m.alias).Msg("walletmgr: recovered from log handler panic")
		}
	}()

	sig := ev.Signature
	var logPrefix string
	if len(ev.Logs) > 0 {
		logPrefix = ev.Logs[0]
	}
	m.reg.PushRecentEvent(m.alias, formatRecentEvent(sig, logPrefix), time.Now().UnixMilli())

	if m.derive != nil {
		m.derive(m.alias, ev)
	}

	if m.scheduler != nil {
		m.scheduler.Schedule(m.alias, sig)
	}
}

func formatRecentEvent(sig, logPrefix string) string {
	ts := time.Now().Format("15:04:05")
	short := sig
	if len(short) > 8 {
		short = short[:8]
	}
	if len(logPrefix) > 60 {
		logPrefix = logPrefix[:60]
	}
	return ts + " " + short + " " + logPrefix
}
