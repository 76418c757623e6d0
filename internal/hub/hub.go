// Package hub implements the hub coordinator. It dispatches swap and
// tx-monitor work to workers with per-resource single-flight locking,
// per-dispatch timeouts, in-order progress forwarding, optional detached
// monitoring, and hub-event ingestion into the HUD snapshot.
package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/scoundrel-labs/warchest/internal/hud"
	"github.com/scoundrel-labs/warchest/internal/werr"
	wtypes "github.com/scoundrel-labs/warchest/pkg/types"
)

// SwapPayload is the opaque request handed to the (external) swap
// execution engine; this package does not interpret its contents.
type SwapPayload struct {
	Wallet string
	Mint   string
	Side   string
	Amount float64
	Extra  map[string]any
}

// ProgressEvent is one entry in a worker invocation's in-order progress
// stream.
type ProgressEvent struct {
	Event string
	Data  map[string]any
	Ts    int64
}

// SwapWorker performs one swap dispatch. It is the seam where the real
// (opaque, external) build/sign/submit/confirm engine is wired in; tests
// substitute a fake. onProgress must be called synchronously and in order.
type SwapWorker func(ctx context.Context, payload SwapPayload, onProgress func(ProgressEvent)) (hud.TxSummary, error)

// MonitorWorker performs one tx-monitor dispatch.
type MonitorWorker func(ctx context.Context, payload SwapPayload, onProgress func(ProgressEvent)) (hud.TxSummary, error)

// DispatchOpts mirrors runSwap/runTxMonitor's options.
type DispatchOpts struct {
	TimeoutMs     time.Duration
	CaptureOutput bool
	NoWait        bool // reject with Conflict/Busy instead of waiting on a held lock
	Detached      bool
	PayloadFileDir string
	OnProgress    func(ProgressEvent)
}

const defaultTimeout = 120 * time.Second

// Coordinator dispatches and tracks in-flight swap and tx-monitor workers.
type Coordinator struct {
	sf     singleflight.Group
	swap   SwapWorker
	mon    MonitorWorker
	reg    *hud.Registry
	log    zerolog.Logger

	mu         sync.Mutex
	activeKeys map[string]struct{}
}

func NewCoordinator(swap SwapWorker, mon MonitorWorker, reg *hud.Registry, log zerolog.Logger) *Coordinator {
	return &Coordinator{swap: swap, mon: mon, reg: reg, log: log, activeKeys: make(map[string]struct{})}
}

func lockKey(workerName, wallet, mint string) string {
	return fmt.Sprintf("%s:%s:%s", workerName, wallet, mint)
}

// DetachedResult is returned by RunTxMonitor when opts.Detached is true.
type DetachedResult struct {
	Detached    bool
	RequestFile string
}

// RunSwap dispatches a swap to the worker under the named lock
// (workerName="swap", wallet, mint). See Coordinator contract in
// this package's doc comment.
func (c *Coordinator) RunSwap(ctx context.Context, payload SwapPayload, opts DispatchOpts) (hud.TxSummary, error) {
	key := lockKey("swap", payload.Wallet, payload.Mint)
	if opts.NoWait {
		if !c.tryAcquire(key) {
			return hud.TxSummary{}, werr.Wrap(werr.ErrConflict, "hub: "+key+" busy")
		}
		defer c.release(key)
	}

	timeout := opts.TimeoutMs
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	dctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resCh := c.sf.DoChan(key, func() (interface{}, error) {
		return c.execSwap(dctx, payload, opts)
	})
	select {
	case res := <-resCh:
		if res.Err != nil {
			return hud.TxSummary{Kind: "swap", Status: "failed", ErrorSummary: res.Err.Error()}, res.Err
		}
		return res.Val.(hud.TxSummary), nil
	case <-dctx.Done():
		c.sf.Forget(key)
		summary := hud.TxSummary{Kind: "swap", Status: "timeout", Side: wtypes.TradeSide(payload.Side), Mint: payload.Mint}
		c.ingestTerminal(payload.Wallet, "swap:monitor:done", summary)
		return summary, werr.Wrap(werr.ErrTimeout, "hub: swap exceeded timeout for "+key)
	}
}

func (c *Coordinator) execSwap(ctx context.Context, payload SwapPayload, opts DispatchOpts) (hud.TxSummary, error) {
	onProgress := func(ev ProgressEvent) {
		if opts.OnProgress != nil {
			opts.OnProgress(ev)
		}
	}
	summary, err := c.swap(ctx, payload, onProgress)
	if err != nil {
		summary = hud.TxSummary{Kind: "swap", Status: "failed", Side: wtypes.TradeSide(payload.Side), Mint: payload.Mint,
			Label: fmt.Sprintf("%s swap crashed", payload.Side), ErrMessage: err.Error()}
	}
	c.ingestTerminal(payload.Wallet, "swap:monitor:done", summary)
	return summary, nil
}

// RunTxMonitor dispatches a tx-monitor request. When opts.Detached is
// true, the payload is written to disk and the coordinator returns
// immediately; further progress is observed through the hub-events log.
func (c *Coordinator) RunTxMonitor(ctx context.Context, payload SwapPayload, opts DispatchOpts) (any, error) {
	key := lockKey("tx-monitor", payload.Wallet, payload.Mint)
	if opts.NoWait && !c.tryAcquire(key) {
		return nil, werr.Wrap(werr.ErrConflict, "hub: "+key+" busy")
	}
	if opts.NoWait {
		defer c.release(key)
	}

	if opts.Detached {
		return c.writeDetachedRequest(payload, opts)
	}

	timeout := opts.TimeoutMs
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	dctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resCh := c.sf.DoChan(key, func() (interface{}, error) {
		onProgress := func(ev ProgressEvent) {
			if opts.OnProgress != nil {
				opts.OnProgress(ev)
			}
		}
		return c.mon(dctx, payload, onProgress)
	})
	select {
	case res := <-resCh:
		if res.Err != nil {
			return nil, res.Err
		}
		summary := res.Val.(hud.TxSummary)
		c.ingestTerminal(payload.Wallet, "swap:monitor:done", summary)
		return summary, nil
	case <-dctx.Done():
		c.sf.Forget(key)
		return nil, werr.Wrap(werr.ErrTimeout, "hub: monitor exceeded timeout for "+key)
	}
}

func (c *Coordinator) writeDetachedRequest(payload SwapPayload, opts DispatchOpts) (DetachedResult, error) {
	dir := opts.PayloadFileDir
	if dir == "" {
		dir = "data/warchest/tx-monitor-requests"
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return DetachedResult{}, fmt.Errorf("hub: mkdir payload dir: %w", err)
	}
	id := uuid.New().String()
	file := filepath.Join(dir, id+".json")
	b, err := json.Marshal(payload)
	if err != nil {
		return DetachedResult{}, fmt.Errorf("hub: marshal detached payload: %w", err)
	}
	if err := os.WriteFile(file, b, 0600); err != nil {
		return DetachedResult{}, fmt.Errorf("hub: write detached payload: %w", err)
	}
	c.ingestTerminal(payload.Wallet, "swap:monitor:detached", hud.TxSummary{
		Kind: "swap", Status: "unknown", Side: wtypes.TradeSide(payload.Side), Mint: payload.Mint,
	})
	return DetachedResult{Detached: true, RequestFile: file}, nil
}

func (c *Coordinator) tryAcquire(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, busy := c.activeKeys[key]; busy {
		return false
	}
	c.activeKeys[key] = struct{}{}
	return true
}

func (c *Coordinator) release(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.activeKeys, key)
}

func (c *Coordinator) ingestTerminal(alias, event string, summary hud.TxSummary) {
	if c.reg == nil || alias == "" {
		return
	}
	c.reg.ApplyHubEventToState(hud.HubEvent{Event: event, Ts: time.Now().UnixMilli(), Alias: alias, Data: summary})
}

