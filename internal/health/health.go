// Package health reports process and host vitals: RSS, load average,
// event-loop-lag-style tick measurement, RPC latencies, and subscription
// staleness, and writes them to an atomic status file for out-of-process
// monitoring.
package health

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/process"
)

// ProcessHealth is the process.{...} sub-object of a health snapshot.
type ProcessHealth struct {
	UptimeSec     float64 `json:"uptimeSec"`
	RssBytes      uint64  `json:"rssBytes"`
	HeapUsedBytes uint64  `json:"heapUsedBytes"`
	LoadAvg1m     float64 `json:"loadAvg1m"`
	EventLoopLagMs float64 `json:"eventLoopLagMs"`
}

// RPCHealth is the rpc.{...} sub-object: last-observed latency per leg.
type RPCHealth struct {
	LastSolMs     float64 `json:"lastSolMs"`
	LastTokenMs   float64 `json:"lastTokenMs"`
	LastDataApiMs float64 `json:"lastDataApiMs"`
}

// WsHealth is the ws.{...} sub-object of a health snapshot.
type WsHealth struct {
	Slot          uint64 `json:"slot"`
	Root          uint64 `json:"root"`
	LastSlotAgeMs int64  `json:"lastSlotAgeMs"`
}

// WalletsHealth is the wallets.{...} sub-object of a health snapshot.
type WalletsHealth struct {
	Count      int `json:"count"`
	StaleCount int `json:"staleCount"`
}

// CountersHealth is the counters.{...} sub-object: cumulative totals also
// exported as Prometheus counters via Monitor's registerer.
type CountersHealth struct {
	RefreshesTotal          int64 `json:"refreshesTotal"`
	SubscriptionErrorsTotal int64 `json:"subscriptionErrorsTotal"`
}

// Snapshot is the full health object written into status.json.
type Snapshot struct {
	Process   ProcessHealth  `json:"process"`
	Rpc       RPCHealth      `json:"rpc"`
	Ws        WsHealth       `json:"ws"`
	Wallets   WalletsHealth  `json:"wallets"`
	Counters  CountersHealth `json:"counters"`
	UpdatedAt string         `json:"updatedAt"`
}

// StaleThreshold is the lastActivityTs age past which a wallet is
// considered stale.
const StaleThreshold = 60 * time.Second

// Latencies tracks the last-observed latency for each RPC leg with
// lock-free atomics, so Monitor can read them from a different goroutine
// without contending with the hot refresh path.
type Latencies struct {
	lastSolMs     atomic.Int64
	lastTokenMs   atomic.Int64
	lastDataApiMs atomic.Int64
}

func (l *Latencies) RecordSol(d time.Duration)     { l.lastSolMs.Store(d.Milliseconds()) }
func (l *Latencies) RecordToken(d time.Duration)   { l.lastTokenMs.Store(d.Milliseconds()) }
func (l *Latencies) RecordDataApi(d time.Duration) { l.lastDataApiMs.Store(d.Milliseconds()) }

// Monitor computes health snapshots and measures event-loop lag via a 1s
// tick.
type Monitor struct {
	startedAt time.Time
	pid       int32
	lat       *Latencies

	mu             sync.Mutex
	eventLoopLagMs float64

	refreshesTotal prometheus.Counter
	subErrorsTotal prometheus.Counter

	// Mirrored in plain atomics because prometheus.Counter exposes no cheap
	// read path; Compute needs the current values for the status-file
	// snapshot on every tick.
	refreshesCount atomic.Int64
	subErrorsCount atomic.Int64
}

func NewMonitor(lat *Latencies, reg prometheus.Registerer) *Monitor {
	m := &Monitor{
		startedAt: time.Now(),
		pid:       int32(os.Getpid()),
		lat:       lat,
		refreshesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "warchest_refreshes_total",
			Help: "Total number of per-wallet refresh runs.",
		}),
		subErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "warchest_subscription_errors_total",
			Help: "Total number of subscription errors observed.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.refreshesTotal, m.subErrorsTotal)
	}
	return m
}

func (m *Monitor) RecordRefresh() {
	m.refreshesTotal.Inc()
	m.refreshesCount.Add(1)
}

func (m *Monitor) RecordSubscriptionErr() {
	m.subErrorsTotal.Inc()
	m.subErrorsCount.Add(1)
}

// StartLagTicker runs a 1s tick that measures event-loop lag as the excess
// delay over the expected interval, clamped to >= 0.
func (m *Monitor) StartLagTicker(stop <-chan struct{}) {
	go func() {
		last := time.Now()
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case now := <-ticker.C:
				lag := now.Sub(last) - time.Second
				if lag < 0 {
					lag = 0
				}
				m.mu.Lock()
				m.eventLoopLagMs = float64(lag.Milliseconds())
				m.mu.Unlock()
				last = now
			}
		}
	}()
}

// Compute assembles a full health Snapshot.
func (m *Monitor) Compute(slot, root uint64, lastSlotAt int64, walletCount, staleCount int) Snapshot {
	var rss uint64
	if proc, err := process.NewProcess(m.pid); err == nil {
		if mi, err := proc.MemoryInfo(); err == nil && mi != nil {
			rss = mi.RSS
		}
	}
	var loadAvg1 float64
	if avg, err := load.Avg(); err == nil {
		loadAvg1 = avg.Load1
	}
	m.mu.Lock()
	lag := m.eventLoopLagMs
	m.mu.Unlock()

	var lastSlotAge int64
	if lastSlotAt > 0 {
		lastSlotAge = time.Now().UnixMilli() - lastSlotAt
	}

	return Snapshot{
		Process: ProcessHealth{
			UptimeSec:      time.Since(m.startedAt).Seconds(),
			RssBytes:       rss,
			LoadAvg1m:      loadAvg1,
			EventLoopLagMs: lag,
		},
		Rpc: RPCHealth{
			LastSolMs:     float64(m.lat.lastSolMs.Load()),
			LastTokenMs:   float64(m.lat.lastTokenMs.Load()),
			LastDataApiMs: float64(m.lat.lastDataApiMs.Load()),
		},
		Ws: WsHealth{Slot: slot, Root: root, LastSlotAgeMs: lastSlotAge},
		Wallets: WalletsHealth{
			Count:      walletCount,
			StaleCount: staleCount,
		},
		Counters: CountersHealth{
			RefreshesTotal:          m.refreshesCount.Load(),
			SubscriptionErrorsTotal: m.subErrorsCount.Load(),
		},
		UpdatedAt: time.Now().UTC().Format(time.RFC3339),
	}
}

// WriteStatusFile atomically writes {updatedAt, health} to path:
// write to a temp file in the same directory, then rename.
func WriteStatusFile(path string, snap Snapshot) error {
	doc := struct {
		UpdatedAt string   `json:"updatedAt"`
		Health    Snapshot `json:"health"`
	}{UpdatedAt: snap.UpdatedAt, Health: snap}

	b, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".status-*.json.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}
