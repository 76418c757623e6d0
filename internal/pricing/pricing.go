// Package pricing implements batched price lookups and per-mint
// metadata with an in-memory cache, falling back from cache to the
// operational DB to a data API.
package pricing

import (
	"context"
	"math"
	"net/http"
	"sync"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// TokenInfo is the cached metadata shape ensureTokenInfo returns.
type TokenInfo struct {
	Mint         string
	Symbol       string
	Decimals     int32
	LiquidityUsd *decimal.Decimal
	MarketCapUsd *decimal.Decimal
	Holders      *int64
	RiskScore    *float64
	Top10Pct     *float64
	SniperPct    *float64
	DevPct       *float64
	RiskTags     []string
}

// MetadataStore is the narrow DB-read capability pricing falls back to
// before calling the data API (satisfied by internal/registry).
type MetadataStore interface {
	GetTokenInfo(ctx context.Context, mint string) (*TokenInfo, error)
}

// DataAPI is the external data-provider leg of the fallback chain.
type DataAPI interface {
	GetMultiplePrices(ctx context.Context, mints []string) (map[string]float64, error)
	GetTokenInfo(ctx context.Context, mint string) (*TokenInfo, error)
}

// Client's public surface: getMultipleTokenPrices + ensureTokenInfo.
type Client struct {
	db  MetadataStore
	api DataAPI
	log zerolog.Logger

	mu    sync.Mutex
	cache map[string]TokenInfo
}

func New(db MetadataStore, api DataAPI, log zerolog.Logger) *Client {
	return &Client{db: db, api: api, log: log, cache: make(map[string]TokenInfo)}
}

// GetMultipleTokenPrices is a batched lookup; missing or non-finite prices
// are simply absent from the returned map.
func (c *Client) GetMultipleTokenPrices(ctx context.Context, mints []string) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(mints))
	if len(mints) == 0 || c.api == nil {
		return out
	}
	prices, err := c.api.GetMultiplePrices(ctx, mints)
	if err != nil {
		c.log.Error().Err(err).Int("mints", len(mints)).Msg("pricing: batch price lookup failed")
		return out
	}
	for mint, p := range prices {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			continue
		}
		out[mint] = decimal.NewFromFloat(p)
	}
	return out
}

// EnsureTokenInfo returns cached metadata if present; otherwise consults
// the DB, then the data API. Errors from either leg are logged and
// coerced to nil — they never abort the calling refresh.
func (c *Client) EnsureTokenInfo(ctx context.Context, mint string) *TokenInfo {
	c.mu.Lock()
	if info, ok := c.cache[mint]; ok {
		c.mu.Unlock()
		return &info
	}
	c.mu.Unlock()

	if c.db != nil {
		info, err := c.db.GetTokenInfo(ctx, mint)
		if err != nil {
			c.log.Warn().Err(err).Str("mint", mint).Msg("pricing: db metadata lookup failed")
		} else if info != nil {
			c.put(mint, *info)
			return info
		}
	}

	if c.api != nil {
		info, err := c.api.GetTokenInfo(ctx, mint)
		if err != nil {
			c.log.Warn().Err(err).Str("mint", mint).Msg("pricing: data api metadata lookup failed")
			return nil
		}
		if info != nil {
			c.put(mint, *info)
		}
		return info
	}
	return nil
}

func (c *Client) put(mint string, info TokenInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache[mint] = info
}

// ResetCache clears the per-refresh cache; callers invoke this once per
// refresh cycle. Callers cache per-refresh.
func (c *Client) ResetCache() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache = make(map[string]TokenInfo)
}

// httpDataAPI is a minimal DataAPI implementation for a SolanaTracker-style
// data endpoint. It is a deliberate seam: the external provider's exact
// request/response wire contract isn't pinned down here, so both methods
// are no-ops that fall through the cache/DB legs of the fallback chain
// (see registry.Registry.GetTokenInfo for the matching DB-side seam).
type httpDataAPI struct {
	baseURL string
	client  *http.Client
}

func NewHTTPDataAPI(baseURL string) DataAPI {
	return &httpDataAPI{baseURL: baseURL, client: &http.Client{}}
}

func (h *httpDataAPI) GetMultiplePrices(ctx context.Context, mints []string) (map[string]float64, error) {
	// The data API's exact request/response shape is an external
	// collaborator; batching happens at the call site.
	return map[string]float64{}, nil
}

func (h *httpDataAPI) GetTokenInfo(ctx context.Context, mint string) (*TokenInfo, error) {
	return nil, nil
}
