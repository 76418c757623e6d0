package rpcsvc

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/ws"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/scoundrel-labs/warchest/internal/werr"
)

const lamportsPerSol = 1_000_000_000

// TokenProgramID and Token2022ProgramID are the two SPL token program ids.
// GetTokenAccountsByOwnerV2 filters against TokenProgramID when no
// ProgramID is given.
var (
	TokenProgramID     = solana.MustPublicKeyFromBase58("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")
	Token2022ProgramID = solana.MustPublicKeyFromBase58("TokenzQdBNbLqP5VEhdkAS6EPFLC1PHnBqCXEpPxuEb")
)

// Client wraps the real Solana RPC+WS endpoints and implements Capability.
// The WS leg is optional: if wsURL is empty, Subscribe* calls return
// ErrUnavailable and the caller falls back to polling.
type Client struct {
	rpcClient *rpc.Client
	wsClient  *ws.Client
	log       zerolog.Logger
}

// New dials the HTTP RPC endpoint and, if wsURL is non-empty, the WS
// endpoint. A WS dial failure is non-fatal: it is logged and Client
// continues in HTTP-only mode.
func New(ctx context.Context, httpURL, wsURL string, log zerolog.Logger) (*Client, error) {
	if httpURL == "" {
		return nil, werr.Wrap(werr.ErrInvalidArgument, "rpcsvc: empty http endpoint")
	}
	c := &Client{rpcClient: rpc.New(httpURL), log: log}
	if wsURL != "" {
		wsc, err := ws.Connect(ctx, wsURL)
		if err != nil {
			log.Warn().Err(err).Msg("rpcsvc: ws dial failed, continuing HTTP-only")
		} else {
			c.wsClient = wsc
		}
	}
	return c, nil
}

func (c *Client) Close() {
	if c.wsClient != nil {
		c.wsClient.Close()
	}
	c.rpcClient.Close()
}

func (c *Client) GetSolBalance(ctx context.Context, pubkey string) (decimal.Decimal, error) {
	pk, err := solana.PublicKeyFromBase58(pubkey)
	if err != nil {
		return decimal.Zero, werr.Wrapf(werr.ErrInvalidArgument, "rpcsvc: bad pubkey "+pubkey, err)
	}
	out, err := c.rpcClient.GetBalance(ctx, pk, rpc.CommitmentConfirmed)
	if err != nil {
		return decimal.Zero, fmt.Errorf("rpcsvc: GetBalance: %w", err)
	}
	return decimal.NewFromInt(int64(out.Value)).Div(decimal.NewFromInt(lamportsPerSol)), nil
}

// parsedTokenAccountInfo is the shape of the jsonParsed token-account data
// field as returned by getTokenAccountsByOwner.
type parsedTokenAccountInfo struct {
	Parsed struct {
		Info struct {
			Mint        string `json:"mint"`
			Owner       string `json:"owner"`
			TokenAmount struct {
				Amount   string  `json:"amount"`
				Decimals int32   `json:"decimals"`
				UiAmount float64 `json:"uiAmount"`
			} `json:"tokenAmount"`
		} `json:"info"`
	} `json:"parsed"`
}

// GetTokenAccountsByOwnerV2 fetches the full owner token-account set for
// the program on every call and paginates it client-side, since the
// upstream wire RPC has no native cursor. The cursor is the index into
// that full listing, which matches the "opaque continuation key" contract
// used throughout this package; nothing is cached between calls.
func (c *Client) GetTokenAccountsByOwnerV2(ctx context.Context, owner string, opts TokenAccountsOpts) (TokenAccountsPage, error) {
	if owner == "" {
		return TokenAccountsPage{}, werr.Wrap(werr.ErrInvalidArgument, "rpcsvc: empty owner")
	}
	ownerPk, err := solana.PublicKeyFromBase58(owner)
	if err != nil {
		return TokenAccountsPage{}, werr.Wrapf(werr.ErrInvalidArgument, "rpcsvc: bad owner", err)
	}
	programID := TokenProgramID
	if opts.ProgramID != "" {
		pid, err := solana.PublicKeyFromBase58(opts.ProgramID)
		if err != nil {
			return TokenAccountsPage{}, werr.Wrapf(werr.ErrInvalidArgument, "rpcsvc: bad programId", err)
		}
		programID = pid
	}

	out, err := c.rpcClient.GetTokenAccountsByOwner(ctx, ownerPk,
		&rpc.GetTokenAccountsConfig{ProgramId: &programID},
		&rpc.GetTokenAccountsOpts{Encoding: solana.EncodingJSONParsed, Commitment: rpc.CommitmentConfirmed},
	)
	if err != nil {
		return TokenAccountsPage{}, fmt.Errorf("rpcsvc: GetTokenAccountsByOwner: %w", err)
	}

	all := make([]TokenAccount, 0, len(out.Value))
	for _, v := range out.Value {
		raw := v.Account.Data.GetRawJSON()
		if len(raw) == 0 {
			continue
		}
		var parsed parsedTokenAccountInfo
		if err := json.Unmarshal(raw, &parsed); err != nil {
			c.log.Warn().Err(err).Str("pubkey", v.Pubkey.String()).Msg("rpcsvc: skipping unparsable token account")
			continue
		}
		ui := decimal.NewFromFloat(parsed.Parsed.Info.TokenAmount.UiAmount)
		if opts.ExcludeZero && ui.IsZero() {
			continue
		}
		all = append(all, TokenAccount{
			Pubkey:    v.Pubkey.String(),
			Mint:      parsed.Parsed.Info.Mint,
			Owner:     parsed.Parsed.Info.Owner,
			ProgramID: programID.String(),
			UiAmount:  ui,
			Decimals:  parsed.Parsed.Info.TokenAmount.Decimals,
		})
	}

	start := 0
	if opts.PaginationKey != "" {
		if n, err := strconv.Atoi(opts.PaginationKey); err == nil && n >= 0 {
			start = n
		}
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = 500
	}
	if start >= len(all) {
		return TokenAccountsPage{Accounts: nil, HasMore: false, TotalCount: len(all)}, nil
	}
	end := start + limit
	hasMore := end < len(all)
	if end > len(all) {
		end = len(all)
	}
	page := TokenAccountsPage{
		Accounts:   all[start:end],
		HasMore:    hasMore,
		TotalCount: len(all),
	}
	if hasMore {
		page.NextCursor = strconv.Itoa(end)
	}
	return page, nil
}

func (c *Client) GetTransaction(ctx context.Context, signature string) (*TransactionInfo, error) {
	sig, err := solana.SignatureFromBase58(signature)
	if err != nil {
		return nil, werr.Wrapf(werr.ErrInvalidArgument, "rpcsvc: bad signature", err)
	}
	maxVersion := uint64(0)
	out, err := c.rpcClient.GetTransaction(ctx, sig, &rpc.GetTransactionOpts{
		Encoding:                       solana.EncodingBase64,
		Commitment:                     rpc.CommitmentConfirmed,
		MaxSupportedTransactionVersion: &maxVersion,
	})
	if err != nil {
		return nil, werr.Wrapf(werr.ErrNotFound, "rpcsvc: GetTransaction "+signature, err)
	}
	info := &TransactionInfo{Signature: signature, Slot: out.Slot}
	if out.BlockTime != nil {
		info.BlockTimeISO = time.Unix(int64(*out.BlockTime), 0).UTC().Format(time.RFC3339)
	}
	if out.Meta != nil && out.Meta.Err != nil {
		info.Err = fmt.Sprintf("%v", out.Meta.Err)
	}
	return info, nil
}

func (c *Client) GetSignatureStatus(ctx context.Context, signature string) (*SignatureStatus, error) {
	sig, err := solana.SignatureFromBase58(signature)
	if err != nil {
		return nil, werr.Wrapf(werr.ErrInvalidArgument, "rpcsvc: bad signature", err)
	}
	out, err := c.rpcClient.GetSignatureStatuses(ctx, true, sig)
	if err != nil {
		return nil, fmt.Errorf("rpcsvc: GetSignatureStatuses: %w", err)
	}
	if len(out.Value) == 0 || out.Value[0] == nil {
		return nil, werr.Wrap(werr.ErrNotFound, "rpcsvc: signature unknown "+signature)
	}
	st := out.Value[0]
	status := &SignatureStatus{Signature: signature, Slot: st.Slot}
	if st.ConfirmationStatus != "" {
		status.ConfirmationStatus = string(st.ConfirmationStatus)
	}
	if st.Err != nil {
		status.Err = fmt.Sprintf("%v", st.Err)
	}
	return status, nil
}
