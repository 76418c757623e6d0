// Package tokenaccounts implements walking a cursor-paginated
// getTokenAccountsByOwnerV2 listing into a single deduplicated result,
// with a page-count safety cap.
package tokenaccounts

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/scoundrel-labs/warchest/internal/rpcsvc"
	"github.com/scoundrel-labs/warchest/internal/werr"
)

// Options mirrors fetchAllTokenAccounts's args, with defaults
// applied by Fetch when zero-valued.
type Options struct {
	ProgramID   string
	Limit       int
	ExcludeZero bool
	PageLimit   int
}

func (o Options) withDefaults() Options {
	if o.Limit <= 0 {
		o.Limit = 500
	}
	if o.PageLimit <= 0 {
		o.PageLimit = 10
	}
	o.ExcludeZero = true
	return o
}

// Result is fetchAllTokenAccounts's return value.
type Result struct {
	Accounts   []rpcsvc.TokenAccount
	PageCount  int
	TotalCount int
	Truncated  bool
}

// Fetch repeatedly calls GetTokenAccountsByOwnerV2, deduplicating by
// account pubkey, until the listing is exhausted or the page-count safety
// cap is hit.
func Fetch(ctx context.Context, rpc rpcsvc.Capability, owner string, opts Options, log zerolog.Logger) (Result, error) {
	if owner == "" {
		return Result{}, werr.Wrap(werr.ErrInvalidArgument, "tokenaccounts: empty owner")
	}
	if rpc == nil {
		return Result{}, werr.Wrap(werr.ErrInvalidArgument, "tokenaccounts: rpc capability missing")
	}
	opts = opts.withDefaults()

	seen := make(map[string]struct{})
	var accounts []rpcsvc.TokenAccount
	cursor := ""
	pageCount := 0
	totalCount := 0
	truncated := false

	for {
		page, err := rpc.GetTokenAccountsByOwnerV2(ctx, owner, rpcsvc.TokenAccountsOpts{
			ProgramID:     opts.ProgramID,
			Limit:         opts.Limit,
			ExcludeZero:   opts.ExcludeZero,
			PaginationKey: cursor,
		})
		if err != nil {
			return Result{}, err
		}
		pageCount++
		if page.TotalCount > 0 {
			totalCount = page.TotalCount
		}

		for _, acc := range page.Accounts {
			if _, dup := seen[acc.Pubkey]; dup {
				continue
			}
			seen[acc.Pubkey] = struct{}{}
			accounts = append(accounts, acc)
		}

		if !page.HasMore {
			break
		}
		if page.NextCursor == "" {
			truncated = true
			break
		}
		if pageCount >= opts.PageLimit {
			truncated = true
			log.Warn().Str("owner", owner).Int("pageLimit", opts.PageLimit).Msg("tokenaccounts: page-count safety cap hit")
			break
		}
		cursor = page.NextCursor
	}

	if totalCount == 0 {
		totalCount = len(accounts)
	}

	return Result{
		Accounts:   accounts,
		PageCount:  pageCount,
		TotalCount: totalCount,
		Truncated:  truncated,
	}, nil
}
