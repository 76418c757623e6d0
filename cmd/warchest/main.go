// Command warchest runs the per-operator HUD service: it resolves wallet
// specs against the operational database, subscribes to live Solana chain
// state, keeps the HUD snapshot current via the refresh scheduler, and
// tails the hub coordinator's event log for swap/tx-monitor outcomes. The
// wiring order follows secrets/env -> config -> client -> domain object ->
// run loop.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/scoundrel-labs/warchest/internal/chainstate"
	"github.com/scoundrel-labs/warchest/internal/config"
	"github.com/scoundrel-labs/warchest/internal/health"
	"github.com/scoundrel-labs/warchest/internal/hub"
	"github.com/scoundrel-labs/warchest/internal/hud"
	"github.com/scoundrel-labs/warchest/internal/pidfile"
	"github.com/scoundrel-labs/warchest/internal/pricing"
	"github.com/scoundrel-labs/warchest/internal/registry"
	"github.com/scoundrel-labs/warchest/internal/rpcsvc"
	"github.com/scoundrel-labs/warchest/internal/walletmgr"
	wtypes "github.com/scoundrel-labs/warchest/pkg/types"
)

const (
	defaultPidFile    = "data/warchest/warchest.pid"
	defaultStatusFile = "data/warchest/status.json"
)

type cliArgs struct {
	wallets    []wtypes.WalletSpec
	hudMode    bool
	configPath string
}

func parseArgs(argv []string) (cliArgs, error) {
	args := cliArgs{configPath: "configs/config.yml"}
	for i := 0; i < len(argv); i++ {
		switch argv[i] {
		case "--wallet":
			i++
			if i >= len(argv) {
				return args, fmt.Errorf("--wallet requires alias:pubkey:color")
			}
			parts := strings.SplitN(argv[i], ":", 3)
			if len(parts) < 2 {
				return args, fmt.Errorf("invalid --wallet spec %q, want alias:pubkey[:color]", argv[i])
			}
			spec := wtypes.WalletSpec{Alias: parts[0], Pubkey: parts[1], WalletID: int64(len(args.wallets) + 1)}
			if len(parts) == 3 {
				spec.Color = parts[2]
			}
			args.wallets = append(args.wallets, spec)
		case "--hud", "-hud":
			args.hudMode = true
		case "--config":
			i++
			if i >= len(argv) {
				return args, fmt.Errorf("--config requires a path")
			}
			args.configPath = argv[i]
		case "--help", "-h":
			printUsage()
			os.Exit(0)
		}
	}
	return args, nil
}

func printUsage() {
	fmt.Println("usage: warchest [--wallet alias:pubkey:color]... [--hud] [--config path]")
}

// opDBWriter verifies the operational database adapter exposes both
// trade-event writer methods before startup proceeds.
type opDBWriter interface {
	RecordScTradeEvent(ctx context.Context, rec registry.TradeEventRecord) error
	ApplyScTradeEventToPositions(ctx context.Context, walletID int64, mint, side string, tokens decimal.Decimal) error
}

func aliasesOf(specs []wtypes.WalletSpec) []string {
	out := make([]string, len(specs))
	for i, s := range specs {
		out[i] = s.Alias
	}
	return out
}

func main() {
	args, err := parseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	_ = config.LoadDotEnv(".env")
	rt := config.LoadRuntime()

	level, err := zerolog.ParseLevel(rt.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(level).With().Timestamp().Logger()

	cfg, cfgErr := config.LoadConfig(args.configPath)
	walletSpecs := args.wallets
	payloadDir := "data/warchest/tx-monitor-requests"
	dsn := ""
	var stableMints []string
	if cfgErr == nil {
		if len(walletSpecs) == 0 {
			walletSpecs = cfg.WalletSpecs()
		}
		if cfg.PayloadFileDir != "" {
			payloadDir = cfg.PayloadFileDir
		}
		dsn = cfg.DatabaseDSN
		stableMints = cfg.StableMints
	} else {
		log.Warn().Err(cfgErr).Msg("warchest: no static config loaded, relying on --wallet flags only")
	}
	if len(walletSpecs) == 0 {
		log.Error().Msg("warchest: no wallets configured")
		os.Exit(1)
	}

	// Operational DB adapter. Writer methods are checked structurally via
	// the opDBWriter interface.
	reg, err := registry.New(dsn, log)
	if err != nil {
		log.Error().Err(err).Msg("warchest: failed to initialize database adapter")
		os.Exit(1)
	}
	defer reg.Close()
	var _ opDBWriter = reg

	// Resolve wallet specs, skipping conflicts rather than mis-attributing
	// a pubkey to the wrong alias.
	resolved := make([]wtypes.WalletSpec, 0, len(walletSpecs))
	walletIDs := make(map[string]int64, len(walletSpecs))
	for _, w := range walletSpecs {
		id, err := reg.ResolveWallet(context.Background(), w)
		if err != nil {
			log.Error().Err(err).Str("alias", w.Alias).Msg("warchest: skipping wallet spec due to resolution conflict")
			continue
		}
		walletIDs[w.Alias] = id
		resolved = append(resolved, w)
	}
	if len(resolved) == 0 {
		log.Error().Msg("warchest: no wallet specs resolved, aborting")
		os.Exit(1)
	}

	// Build the initial snapshot / HUD registry + store.
	hudReg := hud.NewRegistry(resolved, stableMints, wtypes.DefaultTransactionCap)
	store := hud.NewStore(hudReg.Snapshot)

	// PID file.
	pidPath := defaultPidFile
	if cfg != nil && cfg.PidFilePath != "" {
		pidPath = cfg.PidFilePath
	}
	if err := pidfile.Write(pidPath); err != nil {
		log.Error().Err(err).Msg("warchest: failed to write pid file")
		os.Exit(1)
	}
	defer pidfile.Remove(pidPath)

	// Open the RPC client. A missing or unreachable WS endpoint is
	// non-fatal: the client continues HTTP-only (logging a failed dial) and
	// its Subscribe* calls return ErrUnavailable.
	var rpcClient rpcsvc.Capability
	if rt.RpcHttpUrl == "" {
		log.Warn().Msg("warchest: no RPC endpoint configured, subscriptions and refreshes disabled")
	} else {
		c, err := rpcsvc.New(context.Background(), rt.RpcHttpUrl, rt.RpcWsUrl, log)
		if err != nil {
			log.Error().Err(err).Msg("warchest: failed to open RPC client")
			os.Exit(1)
		}
		rpcClient = c
	}

	priceClient := pricing.New(reg, pricing.NewHTTPDataAPI(rt.DataApiEndpoint), log)

	// chain and wallets are the process-wide chain-state singletons: the
	// slot/account subscription handlers and the periodic refreshes all
	// write through them, and the health ticker below reads them back, so
	// any future worker that needs live chain state without the HUD store
	// has the same single source of truth.
	chain := chainstate.NewChain()
	wallets := chainstate.NewWallets()

	healthRegisterer := prometheus.NewRegistry()
	var lat health.Latencies
	monitor := health.NewMonitor(&lat, healthRegisterer)
	stopLagTicker := make(chan struct{})
	monitor.StartLagTicker(stopLagTicker)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	refreshTokens := func(ctx context.Context, alias string) error {
		var pubkey string
		for _, w := range resolved {
			if w.Alias == alias {
				pubkey = w.Pubkey
				break
			}
		}
		if pubkey == "" || rpcClient == nil {
			return nil
		}
		if err := refreshWalletTokens(ctx, hudReg, wallets, rpcClient, priceClient, alias, pubkey, &lat, log); err != nil {
			return err
		}
		monitor.RecordRefresh()
		return nil
	}
	refreshPnl := func(ctx context.Context, alias string) error {
		walletID, ok := walletIDs[alias]
		if !ok {
			return nil
		}
		rows, err := reg.GetPnlRows(ctx, walletID)
		if err != nil {
			return err
		}
		hudReg.SetPnl(alias, rows)
		return nil
	}

	scheduler := hud.NewScheduler(aliasesOf(resolved), rt.RefreshDebounce, refreshTokens, refreshPnl, store.EmitChange, log)
	defer scheduler.Close()

	// Slot and account-lamport updates can arrive many times a second;
	// coalesce them through a throttled emitter so subscribers see at most
	// one snapshot per 100ms instead of one per chain event.
	liveEmitter := hud.NewThrottledEmitter(store, 100*time.Millisecond)
	defer liveEmitter.Stop()

	var slotSup *rpcsvc.Supervisor
	if rpcClient != nil {
		// Subscriptions, each behind a reconnect supervisor.
		slotSup = rpcsvc.NewSupervisor("slot", log, func(ctx context.Context) (rpcsvc.Subscription, error) {
			return rpcClient.SubscribeSlot(func(ev rpcsvc.SlotEvent) {
				slot, parent, root := ev.Slot, ev.Parent, ev.Root
				chain.UpdateFromSlotEvent(chainstate.SlotEvent{Slot: &slot, Parent: &parent, Root: &root})
				cv := chain.Get()
				hudReg.UpdateChain(cv.Slot, cv.Parent, cv.Root, cv.LastSlotAt)
				liveEmitter.Emit()
			})
		})
		slotSup.SetOnConnectError(func(error) { monitor.RecordSubscriptionErr() })
		slotSup.Run(ctx)
		defer slotSup.Close()

		for _, w := range resolved {
			w := w
			mgr := walletmgr.New(w.Alias, hudReg, scheduler, nil, log)
			logsSup := rpcsvc.NewSupervisor("logs:"+w.Alias, log, func(ctx context.Context) (rpcsvc.Subscription, error) {
				return rpcClient.SubscribeLogs([]string{w.Pubkey}, mgr.HandleLog)
			})
			logsSup.SetOnConnectError(func(error) { monitor.RecordSubscriptionErr() })
			logsSup.Run(ctx)
			defer logsSup.Close()

			acctSup := rpcsvc.NewSupervisor("account:"+w.Alias, log, func(ctx context.Context) (rpcsvc.Subscription, error) {
				return rpcClient.SubscribeAccount(w.Pubkey, func(upd rpcsvc.AccountUpdate) {
					wallets.UpdateSol(w.Pubkey, upd.Lamports)
					view := wallets.Get(w.Pubkey)
					hudReg.UpdateSolBalance(w.Alias, lamportsToSol(view.SolLamports))
					liveEmitter.Emit()
				})
			})
			acctSup.SetOnConnectError(func(error) { monitor.RecordSubscriptionErr() })
			acctSup.Run(ctx)
			defer acctSup.Close()
		}

		// Initial refresh, fanned out across wallets in parallel — each
		// alias's tokens+pnl refresh is independent of every other's.
		group, gctx := errgroup.WithContext(ctx)
		for _, w := range resolved {
			alias := w.Alias
			group.Go(func() error {
				if err := refreshTokens(gctx, alias); err != nil {
					log.Warn().Err(err).Str("alias", alias).Msg("warchest: initial token refresh failed")
				}
				if err := refreshPnl(gctx, alias); err != nil {
					log.Warn().Err(err).Str("alias", alias).Msg("warchest: initial pnl refresh failed")
				}
				return nil
			})
		}
		_ = group.Wait()
		store.EmitChange()
	}

	// Periodic timers.
	solTicker := time.NewTicker(rt.SolRefreshInterval)
	tokensTicker := time.NewTicker(rt.TokensRefreshInterval)
	healthTicker := time.NewTicker(5 * time.Second)
	defer solTicker.Stop()
	defer tokensTicker.Stop()
	defer healthTicker.Stop()

	statusPath := defaultStatusFile
	if cfg != nil && cfg.StatusFilePath != "" {
		statusPath = cfg.StatusFilePath
	}
	if dir := filepath.Dir(statusPath); dir != "." {
		os.MkdirAll(dir, 0o755)
	}
	if payloadDir != "" {
		os.MkdirAll(payloadDir, 0o755)
	}

	// Swap/tx-monitor execution is dispatched by a separate operator-facing
	// entrypoint, not this service loop. This loop only consumes the
	// hub-events log that those runs append to, folding terminal swap
	// outcomes into the HUD snapshot.
	hubLogPath := "data/warchest/hub-events.log"
	if cfg != nil && cfg.HubEventLogPath != "" {
		hubLogPath = cfg.HubEventLogPath
	}
	go func() {
		if err := hub.TailHubEventsLog(ctx, hubLogPath, hudReg, log); err != nil {
			log.Warn().Err(err).Msg("warchest: hub events log tailing stopped")
		}
	}()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-solTicker.C:
				if rpcClient == nil {
					continue
				}
				for _, w := range resolved {
					if err := refreshSol(ctx, hudReg, wallets, rpcClient, w.Alias, w.Pubkey, &lat); err != nil {
						log.Warn().Err(err).Str("alias", w.Alias).Msg("warchest: periodic sol refresh failed")
						continue
					}
					monitor.RecordRefresh()
				}
				store.EmitChange()
			case <-tokensTicker.C:
				if rpcClient == nil {
					continue
				}
				for _, w := range resolved {
					scheduler.Schedule(w.Alias, "periodic-token-refresh")
				}
			case <-healthTicker.C:
				if slotSup != nil {
					hudReg.SetWsSupervisor(slotSup.State())
				}
				cv := chain.Get()
				stale := 0
				for _, w := range resolved {
					if wv := wallets.Get(w.Pubkey); time.Since(time.UnixMilli(wv.LastActivity)) > health.StaleThreshold {
						stale++
					}
				}
				snap := monitor.Compute(cv.Slot, cv.Root, cv.LastSlotAt, len(resolved), stale)
				if args.hudMode {
					continue
				}
				if err := health.WriteStatusFile(statusPath, snap); err != nil {
					log.Warn().Err(err).Msg("warchest: failed to write status file")
				}
			}
		}
	}()

	// HUD mode would mount the presentational tree against `store` here;
	// the terminal UI is a separate presentation-layer process.
	if args.hudMode {
		log.Info().Msg("warchest: hud mode enabled, store ready for presentation layer")
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info().Msg("warchest: shutting down")
	close(stopLagTicker)
	cancel()
	if rpcClient != nil {
		rpcClient.Close()
	}
}
