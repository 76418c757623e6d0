// Package registry is the operational database adapter: wallet alias/pubkey
// resolution with insert-on-absent, PnL row reads with dynamic-shape
// normalization, and trade-event recording, modeled on the
// internal/db/transaction_recorder.go (GORM open + AutoMigrate + typed
// record structs + TableName()).
package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/scoundrel-labs/warchest/internal/hud"
	"github.com/scoundrel-labs/warchest/internal/pricing"
	"github.com/scoundrel-labs/warchest/internal/werr"
	wtypes "github.com/scoundrel-labs/warchest/pkg/types"
)

// WalletRow is the funding-wallet table row this service reads/writes.
type WalletRow struct {
	ID                int64  `gorm:"primaryKey;column:id"`
	Alias             string `gorm:"column:alias;uniqueIndex"`
	Pubkey            string `gorm:"column:pubkey"`
	AutoAttachWarchest bool  `gorm:"column:auto_attach_warchest"`
}

func (WalletRow) TableName() string { return "funding_wallets" }

// PnlRowRecord is the raw DB shape for one PnL position. Candidate key
// spellings are resolved by hud.RawPnlRow/NormalizePnlRow, not here;
// this struct mirrors one canonical column set the DB actually returns.
type PnlRowRecord struct {
	ID                 int64            `gorm:"primaryKey;column:id"`
	WalletID           int64            `gorm:"column:wallet_id"`
	CoinMint           string           `gorm:"column:coin_mint"`
	CurrentTokenAmount decimal.Decimal  `gorm:"column:current_token_amount"`
	AvgCostUsd         *decimal.Decimal `gorm:"column:avg_cost_usd"`
	CoinPriceUsd       *decimal.Decimal `gorm:"column:coin_price_usd"`
	EntryUsd           *decimal.Decimal `gorm:"column:entry_usd"`
	CurrentUsd         *decimal.Decimal `gorm:"column:current_usd"`
	UnrealizedPnlUsd   *decimal.Decimal `gorm:"column:unrealized_pnl_usd"`
	RealizedPnlUsd     *decimal.Decimal `gorm:"column:realized_pnl_usd"`
}

func (PnlRowRecord) TableName() string { return "pnl_positions" }

// TradeEventRecord is a persisted sc_trade_event row.
type TradeEventRecord struct {
	ID       int64           `gorm:"primaryKey;column:id"`
	WalletID int64           `gorm:"column:wallet_id"`
	Mint     string          `gorm:"column:mint"`
	Side     string          `gorm:"column:side"`
	Txid     string          `gorm:"column:txid"`
	Tokens   decimal.Decimal `gorm:"column:tokens"`
	Sol      decimal.Decimal `gorm:"column:sol"`
	Ts       int64           `gorm:"column:ts"`
}

func (TradeEventRecord) TableName() string { return "sc_trade_events" }

// Registry wraps *gorm.DB and implements the two writer methods startup
// requires the DB adapter to expose (RecordScTradeEvent,
// ApplyScTradeEventToPositions), plus wallet resolution and PnL reads.
type Registry struct {
	db  *gorm.DB
	log zerolog.Logger
}

// New opens the MySQL connection and runs AutoMigrate, mirroring
// NewMySQLRecorder.
func New(dsn string, log zerolog.Logger) (*Registry, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	if err != nil {
		return nil, werr.Wrapf(werr.ErrFatal, "registry: open db", err)
	}
	if err := db.AutoMigrate(&WalletRow{}, &PnlRowRecord{}, &TradeEventRecord{}); err != nil {
		return nil, werr.Wrapf(werr.ErrFatal, "registry: automigrate", err)
	}
	return &Registry{db: db, log: log}, nil
}

// NewFromDB wraps an already-opened *gorm.DB, used by tests with sqlmock.
func NewFromDB(db *gorm.DB, log zerolog.Logger) *Registry {
	return &Registry{db: db, log: log}
}

// ResolveWallet looks up a wallet by alias. If a row
// exists with a conflicting pubkey, returns Conflict and the caller must
// skip the wallet. If absent, inserts a new row with autoAttachWarchest=true.
func (r *Registry) ResolveWallet(ctx context.Context, spec wtypes.WalletSpec) (int64, error) {
	var row WalletRow
	err := r.db.WithContext(ctx).Where("alias = ?", spec.Alias).First(&row).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		row = WalletRow{Alias: spec.Alias, Pubkey: spec.Pubkey, AutoAttachWarchest: true}
		if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
			return 0, fmt.Errorf("registry: insert wallet %s: %w", spec.Alias, err)
		}
		return row.ID, nil
	case err != nil:
		return 0, fmt.Errorf("registry: lookup wallet %s: %w", spec.Alias, err)
	case row.Pubkey != spec.Pubkey:
		return 0, werr.Wrap(werr.ErrConflict, fmt.Sprintf("registry: alias %s maps to a different pubkey", spec.Alias))
	default:
		return row.ID, nil
	}
}

// GetPnlRows reads and normalizes every PnL row for walletID into the
// canonical shape, dropping rows that fail normalization.
func (r *Registry) GetPnlRows(ctx context.Context, walletID int64) (map[string]wtypes.PnlRow, error) {
	var records []PnlRowRecord
	if err := r.db.WithContext(ctx).Where("wallet_id = ?", walletID).Find(&records).Error; err != nil {
		return nil, fmt.Errorf("registry: query pnl rows: %w", err)
	}
	out := make(map[string]wtypes.PnlRow, len(records))
	for _, rec := range records {
		amount := rec.CurrentTokenAmount
		normalized, ok := hud.NormalizePnlRow(hud.RawPnlRow{
			CoinMint:           rec.CoinMint,
			CurrentTokenAmount: &amount,
			AvgCostUsd:         rec.AvgCostUsd,
			CoinPriceUsd:       rec.CoinPriceUsd,
			EntryUsd:           rec.EntryUsd,
			CurrentUsd:         rec.CurrentUsd,
			UnrealizedPnlUsd:   rec.UnrealizedPnlUsd,
			RealizedPnlUsd:     rec.RealizedPnlUsd,
		})
		if !ok {
			continue
		}
		out[normalized.Mint] = normalized
	}
	return out, nil
}

// RecordScTradeEvent persists a single trade event row. One of the two DB
// writer methods required to be present at startup.
func (r *Registry) RecordScTradeEvent(ctx context.Context, rec TradeEventRecord) error {
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return fmt.Errorf("registry: record trade event: %w", err)
	}
	return nil
}

// ApplyScTradeEventToPositions folds a trade event into the wallet's PnL
// position row for the traded mint. Cost-basis and realized-PnL math live
// upstream; this performs the minimal current_token_amount bump a
// read-mostly HUD needs between full refreshes.
func (r *Registry) ApplyScTradeEventToPositions(ctx context.Context, walletID int64, mint string, side string, tokens decimal.Decimal) error {
	var row PnlRowRecord
	err := r.db.WithContext(ctx).Where("wallet_id = ? AND coin_mint = ?", walletID, mint).First(&row).Error
	delta := tokens
	if side == string(wtypes.SideSell) {
		delta = delta.Neg()
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		row = PnlRowRecord{WalletID: walletID, CoinMint: mint, CurrentTokenAmount: delta}
		return r.db.WithContext(ctx).Create(&row).Error
	}
	if err != nil {
		return fmt.Errorf("registry: load position for %d/%s: %w", walletID, mint, err)
	}
	row.CurrentTokenAmount = row.CurrentTokenAmount.Add(delta)
	return r.db.WithContext(ctx).Save(&row).Error
}

// GetTokenInfo satisfies pricing.MetadataStore; the registry does not yet
// carry a dedicated token-metadata table, so this is a deliberate no-op
// leg of the fallback chain (pricing falls through to pricing.httpDataAPI,
// itself a matching seam on the external data-API side).
func (r *Registry) GetTokenInfo(ctx context.Context, mint string) (*pricing.TokenInfo, error) {
	return nil, nil
}

func (r *Registry) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
