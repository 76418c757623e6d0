package pricing

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	prices map[string]float64
	info   map[string]*TokenInfo
	err    error
}

func (f *fakeAPI) GetMultiplePrices(ctx context.Context, mints []string) (map[string]float64, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.prices, nil
}

func (f *fakeAPI) GetTokenInfo(ctx context.Context, mint string) (*TokenInfo, error) {
	return f.info[mint], nil
}

type fakeDB struct {
	info map[string]*TokenInfo
	err  error
}

func (f *fakeDB) GetTokenInfo(ctx context.Context, mint string) (*TokenInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.info[mint], nil
}

func TestGetMultipleTokenPricesDropsNonFinite(t *testing.T) {
	api := &fakeAPI{prices: map[string]float64{"mintA": 1.5, "mintB": math.NaN(), "mintC": math.Inf(1)}}
	c := New(nil, api, zerolog.Nop())
	out := c.GetMultipleTokenPrices(context.Background(), []string{"mintA", "mintB", "mintC"})
	require.Contains(t, out, "mintA")
	assert.NotContains(t, out, "mintB")
	assert.NotContains(t, out, "mintC")
}

func TestGetMultipleTokenPricesErrorCoercedToEmpty(t *testing.T) {
	api := &fakeAPI{err: errors.New("boom")}
	c := New(nil, api, zerolog.Nop())
	out := c.GetMultipleTokenPrices(context.Background(), []string{"mintA"})
	assert.Empty(t, out)
}

func TestEnsureTokenInfoCachePrecedesDB(t *testing.T) {
	db := &fakeDB{info: map[string]*TokenInfo{"mintA": {Mint: "mintA", Symbol: "FROMDB"}}}
	c := New(db, nil, zerolog.Nop())
	info := c.EnsureTokenInfo(context.Background(), "mintA")
	require.NotNil(t, info)
	assert.Equal(t, "FROMDB", info.Symbol)

	db.info["mintA"] = &TokenInfo{Mint: "mintA", Symbol: "CHANGED"}
	cached := c.EnsureTokenInfo(context.Background(), "mintA")
	assert.Equal(t, "FROMDB", cached.Symbol, "second call must hit cache, not DB")
}

func TestEnsureTokenInfoFallsBackToAPI(t *testing.T) {
	api := &fakeAPI{info: map[string]*TokenInfo{"mintA": {Mint: "mintA", Symbol: "FROMAPI"}}}
	c := New(&fakeDB{}, api, zerolog.Nop())
	info := c.EnsureTokenInfo(context.Background(), "mintA")
	require.NotNil(t, info)
	assert.Equal(t, "FROMAPI", info.Symbol)
}

func TestEnsureTokenInfoDBErrorFallsThroughToAPI(t *testing.T) {
	db := &fakeDB{err: errors.New("db down")}
	api := &fakeAPI{info: map[string]*TokenInfo{"mintA": {Mint: "mintA", Symbol: "FROMAPI"}}}
	c := New(db, api, zerolog.Nop())
	info := c.EnsureTokenInfo(context.Background(), "mintA")
	require.NotNil(t, info)
	assert.Equal(t, "FROMAPI", info.Symbol)
}

func TestResetCacheClearsEntries(t *testing.T) {
	db := &fakeDB{info: map[string]*TokenInfo{"mintA": {Mint: "mintA", Symbol: "V1"}}}
	c := New(db, nil, zerolog.Nop())
	c.EnsureTokenInfo(context.Background(), "mintA")
	c.ResetCache()
	db.info["mintA"] = &TokenInfo{Mint: "mintA", Symbol: "V2"}
	info := c.EnsureTokenInfo(context.Background(), "mintA")
	assert.Equal(t, "V2", info.Symbol)
}
