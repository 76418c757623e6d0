package registry

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	wtypes "github.com/scoundrel-labs/warchest/pkg/types"
)

func newMockRegistry(t *testing.T) (*Registry, sqlmock.Sqlmock) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	gdb, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{})
	require.NoError(t, err)

	return NewFromDB(gdb, zerolog.Nop()), mock
}

func TestResolveWalletInsertsOnAbsent(t *testing.T) {
	r, mock := newMockRegistry(t)
	mock.ExpectQuery("SELECT \\* FROM `funding_wallets`").
		WillReturnError(gorm.ErrRecordNotFound)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `funding_wallets`").
		WillReturnResult(sqlmock.NewResult(42, 1))
	mock.ExpectCommit()

	id, err := r.ResolveWallet(context.Background(), wtypes.WalletSpec{Alias: "alpha", Pubkey: "pk1"})
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveWalletConflictingPubkey(t *testing.T) {
	r, mock := newMockRegistry(t)
	rows := sqlmock.NewRows([]string{"id", "alias", "pubkey", "auto_attach_warchest"}).
		AddRow(1, "alpha", "pkOTHER", true)
	mock.ExpectQuery("SELECT \\* FROM `funding_wallets`").WillReturnRows(rows)

	_, err := r.ResolveWallet(context.Background(), wtypes.WalletSpec{Alias: "alpha", Pubkey: "pkNEW"})
	require.Error(t, err)
}

func TestResolveWalletExistingMatch(t *testing.T) {
	r, mock := newMockRegistry(t)
	rows := sqlmock.NewRows([]string{"id", "alias", "pubkey", "auto_attach_warchest"}).
		AddRow(7, "alpha", "pk1", true)
	mock.ExpectQuery("SELECT \\* FROM `funding_wallets`").WillReturnRows(rows)

	id, err := r.ResolveWallet(context.Background(), wtypes.WalletSpec{Alias: "alpha", Pubkey: "pk1"})
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)
}

func TestGetPnlRowsNormalizesAndDropsEmpty(t *testing.T) {
	r, mock := newMockRegistry(t)
	amt, _ := decimal.NewFromString("12.5")
	zero, _ := decimal.NewFromString("0")
	rows := sqlmock.NewRows([]string{"id", "wallet_id", "coin_mint", "current_token_amount"}).
		AddRow(1, 1, "mintA", amt).
		AddRow(2, 1, "mintB", zero)
	mock.ExpectQuery("SELECT \\* FROM `pnl_positions`").WillReturnRows(rows)

	out, err := r.GetPnlRows(context.Background(), 1)
	require.NoError(t, err)
	assert.Contains(t, out, "mintA")
	assert.NotContains(t, out, "mintB", "non-positive position must be dropped")
}
