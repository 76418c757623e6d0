package main

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/scoundrel-labs/warchest/internal/chainstate"
	"github.com/scoundrel-labs/warchest/internal/health"
	"github.com/scoundrel-labs/warchest/internal/hud"
	"github.com/scoundrel-labs/warchest/internal/pricing"
	"github.com/scoundrel-labs/warchest/internal/rpcsvc"
	"github.com/scoundrel-labs/warchest/internal/tokenaccounts"
	wtypes "github.com/scoundrel-labs/warchest/pkg/types"
)

const lamportsPerSol = 1_000_000_000

func lamportsToSol(lamports uint64) decimal.Decimal {
	return decimal.NewFromInt(int64(lamports)).Div(decimal.NewFromInt(lamportsPerSol))
}

func solToLamports(sol decimal.Decimal) uint64 {
	lamports := sol.Mul(decimal.NewFromInt(lamportsPerSol)).IntPart()
	if lamports < 0 {
		return 0
	}
	return uint64(lamports)
}

// refreshSol fetches a wallet's SOL balance, records it into the chain-state
// singleton wallets shares with other workers, and mirrors it into the HUD
// registry, timing the RPC call for the health snapshot.
func refreshSol(ctx context.Context, reg *hud.Registry, wallets *chainstate.Wallets, rpc rpcsvc.Capability, alias, pubkey string, lat *health.Latencies) error {
	start := time.Now()
	sol, err := rpc.GetSolBalance(ctx, pubkey)
	lat.RecordSol(time.Since(start))
	if err != nil {
		return err
	}
	wallets.UpdateSol(pubkey, solToLamports(sol))
	reg.UpdateSolBalance(alias, sol)
	return nil
}

// refreshWalletTokens fetches a wallet's token account listing,
// batch-prices every mint, enriches with cached metadata, records the raw
// balances into the chain-state wallets singleton, and writes the
// resulting display-ready token table back into the HUD registry.
func refreshWalletTokens(ctx context.Context, reg *hud.Registry, wallets *chainstate.Wallets, rpc rpcsvc.Capability, pc *pricing.Client, alias, pubkey string, lat *health.Latencies, log zerolog.Logger) error {
	start := time.Now()
	res, err := tokenaccounts.Fetch(ctx, rpc, pubkey, tokenaccounts.Options{}, log)
	lat.RecordToken(time.Since(start))
	if err != nil {
		return err
	}

	mints := make([]string, 0, len(res.Accounts))
	for _, a := range res.Accounts {
		mints = append(mints, a.Mint)
	}
	priceStart := time.Now()
	prices := pc.GetMultipleTokenPrices(ctx, mints)
	lat.RecordDataApi(time.Since(priceStart))

	rows := make([]wtypes.TokenRow, 0, len(res.Accounts))
	for _, a := range res.Accounts {
		row := wtypes.TokenRow{
			Mint:     a.Mint,
			Balance:  a.UiAmount,
			Decimals: decimalsPtr(a.Decimals),
		}
		amount, _ := a.UiAmount.Float64()
		upd := chainstate.TokenUpdate{Amount: &amount, Decimals: decimalsPtr(a.Decimals)}
		if price, ok := prices[a.Mint]; ok {
			row.PriceUsd = price
			usd := a.UiAmount.Mul(price)
			row.UsdEstimate = &usd
			priceF, _ := price.Float64()
			upd.PriceUsd = &priceF
		}
		if info := pc.EnsureTokenInfo(ctx, a.Mint); info != nil {
			row.Symbol = info.Symbol
			row.LiquidityUsd = info.LiquidityUsd
			row.MarketCapUsd = info.MarketCapUsd
			row.Holders = info.Holders
			row.RiskScore = info.RiskScore
			row.Top10Pct = info.Top10Pct
			row.SniperPct = info.SniperPct
			row.DevPct = info.DevPct
			row.RiskTags = info.RiskTags
			if info.Symbol != "" {
				upd.Symbol = &info.Symbol
			}
		}
		wallets.UpdateToken(pubkey, a.Mint, upd)
		rows = append(rows, row)
	}
	reg.SetTokens(alias, rows)
	pc.ResetCache()
	return nil
}

func decimalsPtr(d int32) *int32 {
	return &d
}
