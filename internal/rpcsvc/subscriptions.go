package rpcsvc

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/scoundrel-labs/warchest/internal/werr"
)

// subHandle adapts a gagliardetto/solana-go/rpc/ws subscription (which
// exposes a blocking Recv) into the Subscription interface via a
// cancellable pump goroutine.
type subHandle struct {
	cancel context.CancelFunc
	unsub  func()
}

func (s *subHandle) Unsubscribe() {
	s.cancel()
	if s.unsub != nil {
		s.unsub()
	}
}

func (c *Client) SubscribeSlot(handler func(SlotEvent)) (Subscription, error) {
	if c.wsClient == nil {
		return nil, werr.Wrap(werr.ErrUnavailable, "rpcsvc: subscription endpoint absent")
	}
	sub, err := c.wsClient.SlotSubscribe()
	if err != nil {
		return nil, werr.Wrapf(werr.ErrUnavailable, "rpcsvc: SlotSubscribe", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		for {
			res, err := sub.Recv(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				c.log.Warn().Err(err).Msg("rpcsvc: slot subscription recv error")
				return
			}
			handler(SlotEvent{Slot: res.Slot, Parent: res.Parent, Root: res.Root})
		}
	}()
	return &subHandle{cancel: cancel, unsub: sub.Unsubscribe}, nil
}

func (c *Client) SubscribeAccount(pubkey string, handler func(AccountUpdate)) (Subscription, error) {
	if c.wsClient == nil {
		return nil, werr.Wrap(werr.ErrUnavailable, "rpcsvc: subscription endpoint absent")
	}
	pk, err := solana.PublicKeyFromBase58(pubkey)
	if err != nil {
		return nil, werr.Wrapf(werr.ErrInvalidArgument, "rpcsvc: bad pubkey", err)
	}
	sub, err := c.wsClient.AccountSubscribe(pk, rpc.CommitmentConfirmed)
	if err != nil {
		return nil, werr.Wrapf(werr.ErrUnavailable, "rpcsvc: AccountSubscribe", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		for {
			res, err := sub.Recv(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				c.log.Warn().Err(err).Str("pubkey", pubkey).Msg("rpcsvc: account subscription recv error")
				return
			}
			if res == nil || res.Value == nil {
				continue
			}
			handler(AccountUpdate{Lamports: res.Value.Lamports, Slot: res.Context.Slot})
		}
	}()
	return &subHandle{cancel: cancel, unsub: sub.Unsubscribe}, nil
}

func (c *Client) SubscribeLogs(mentions []string, handler func(LogEvent)) (Subscription, error) {
	if c.wsClient == nil {
		return nil, werr.Wrap(werr.ErrUnavailable, "rpcsvc: subscription endpoint absent")
	}
	if len(mentions) == 0 {
		return nil, werr.Wrap(werr.ErrInvalidArgument, "rpcsvc: SubscribeLogs requires mentions")
	}
	pks := make([]solana.PublicKey, 0, len(mentions))
	for _, m := range mentions {
		pk, err := solana.PublicKeyFromBase58(m)
		if err != nil {
			return nil, werr.Wrapf(werr.ErrInvalidArgument, "rpcsvc: bad mention pubkey "+m, err)
		}
		pks = append(pks, pk)
	}
	sub, err := c.wsClient.LogsSubscribeMentions(pks[0], rpc.CommitmentConfirmed)
	if err != nil {
		return nil, werr.Wrapf(werr.ErrUnavailable, "rpcsvc: LogsSubscribeMentions", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		for {
			res, err := sub.Recv(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				c.log.Warn().Err(err).Msg("rpcsvc: logs subscription recv error")
				return
			}
			if res == nil || res.Value == nil {
				continue
			}
			ev := LogEvent{Signature: res.Value.Signature.String(), Logs: res.Value.Logs, Slot: res.Context.Slot}
			if res.Value.Err != nil {
				ev.Err = fmt.Sprintf("%v", res.Value.Err)
			}
			handler(ev)
		}
	}()
	return &subHandle{cancel: cancel, unsub: sub.Unsubscribe}, nil
}
