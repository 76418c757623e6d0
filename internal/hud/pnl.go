package hud

import (
	"github.com/shopspring/decimal"

	wtypes "github.com/scoundrel-labs/warchest/pkg/types"
)

func decimalFromFloat(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

// RawPnlRow is the operational DB's row shape before normalization: it
// tolerates the several candidate key spellings an upstream PnL provider
// (coin_mint/coinMint/mint, currentTokenAmount/current_token_amount).
type RawPnlRow struct {
	CoinMint           string
	CoinMintAlt        string
	Mint               string
	CurrentTokenAmount *decimal.Decimal
	AvgCostUsd         *decimal.Decimal
	CoinPriceUsd       *decimal.Decimal
	EntryUsd           *decimal.Decimal
	CurrentUsd         *decimal.Decimal
	UnrealizedPnlUsd   *decimal.Decimal
	RealizedPnlUsd     *decimal.Decimal
}

func (r RawPnlRow) resolveMint() string {
	switch {
	case r.CoinMint != "":
		return r.CoinMint
	case r.CoinMintAlt != "":
		return r.CoinMintAlt
	default:
		return r.Mint
	}
}

// NormalizePnlRow implements the PnlRow derivation rules and is the
// single normalization pass: any candidate key
// spelling in, only the canonical PnlRow shape out. It returns ok=false
// when no mint is resolvable or the position is non-positive
// invariant: pnlByMint only contains positive, resolvable-mint rows).
func NormalizePnlRow(raw RawPnlRow) (wtypes.PnlRow, bool) {
	mint := raw.resolveMint()
	if mint == "" || raw.CurrentTokenAmount == nil || !raw.CurrentTokenAmount.IsPositive() {
		return wtypes.PnlRow{}, false
	}

	out := wtypes.PnlRow{
		Mint:               mint,
		CurrentTokenAmount: *raw.CurrentTokenAmount,
		AvgCostUsd:         raw.AvgCostUsd,
		CoinPriceUsd:       raw.CoinPriceUsd,
		EntryUsd:           raw.EntryUsd,
		CurrentUsd:         raw.CurrentUsd,
		UnrealizedPnlUsd:   raw.UnrealizedPnlUsd,
		RealizedPnlUsd:     raw.RealizedPnlUsd,
	}

	if out.EntryUsd == nil && out.AvgCostUsd != nil {
		v := out.AvgCostUsd.Mul(out.CurrentTokenAmount)
		out.EntryUsd = &v
	}
	if out.CurrentUsd == nil && out.CoinPriceUsd != nil {
		v := out.CoinPriceUsd.Mul(out.CurrentTokenAmount)
		out.CurrentUsd = &v
	}
	if out.UnrealizedPnlUsd == nil && out.CurrentUsd != nil && out.EntryUsd != nil {
		v := out.CurrentUsd.Sub(*out.EntryUsd)
		out.UnrealizedPnlUsd = &v
	}
	if out.EntryUsd != nil && out.EntryUsd.IsPositive() && out.UnrealizedPnlUsd != nil {
		v := out.UnrealizedPnlUsd.Div(*out.EntryUsd).Mul(decimal.NewFromInt(100))
		out.RoiPct = &v
	}
	return out, true
}
