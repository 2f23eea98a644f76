package board

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/event"

	"github.com/idilsaglam/flashtask/internal/contract"
	"github.com/idilsaglam/flashtask/internal/model"
	"github.com/idilsaglam/flashtask/internal/wallet"
)

type subscription struct {
	sub    event.Subscription
	cancel context.CancelFunc
	done   chan struct{}
}

// Subscribe reloads the list on every TaskCreated event and hands each
// successful reload to onChange. A previous subscription is released
// first, so repeated connects never stack handlers. onChange must not
// call Unsubscribe.
func (b *Controller) Subscribe(ctx context.Context, s *wallet.Session, onChange func([]model.Task)) error {
	if s == nil {
		return ErrNoSession
	}
	b.subMu.Lock()
	defer b.subMu.Unlock()
	b.unsubscribeLocked()

	ctx, cancel := context.WithCancel(ctx)
	sink := make(chan *contract.TaskCreated, 16)
	sub, err := b.contract.WatchTaskCreated(ctx, sink)
	if err != nil {
		cancel()
		b.log.Error("watch TaskCreated", "err", err)
		return fmt.Errorf("watch TaskCreated: %w", err)
	}
	h := &subscription{sub: sub, cancel: cancel, done: make(chan struct{})}
	b.sub = h
	go b.follow(ctx, s, h, sink, onChange)
	b.log.Debug("subscribed", "address", s.Address().Hex())
	return nil
}

func (b *Controller) follow(ctx context.Context, s *wallet.Session, h *subscription, sink <-chan *contract.TaskCreated, onChange func([]model.Task)) {
	defer close(h.done)
	for {
		select {
		case ev := <-sink:
			if ctx.Err() != nil {
				return
			}
			b.log.Info("TaskCreated", "id", ev.Id, "owner", ev.Owner.Hex())
			tasks, err := b.LoadTasks(ctx, s)
			if err != nil {
				continue
			}
			if onChange != nil {
				onChange(tasks)
			}
		case err := <-h.sub.Err():
			if err != nil {
				b.log.Warn("live updates stopped", "err", err)
			}
			return
		case <-ctx.Done():
			return
		}
	}
}

// Unsubscribe releases the live-update subscription. Safe to call when
// none is active.
func (b *Controller) Unsubscribe() {
	b.subMu.Lock()
	defer b.subMu.Unlock()
	b.unsubscribeLocked()
}

func (b *Controller) unsubscribeLocked() {
	h := b.sub
	if h == nil {
		return
	}
	b.sub = nil
	h.sub.Unsubscribe()
	h.cancel()
	<-h.done
	b.log.Debug("unsubscribed")
}

// Subscribed reports whether a live-update subscription is active. A
// subscription the node ended counts as inactive; the caller subscribes
// again to resume updates.
func (b *Controller) Subscribed() bool {
	b.subMu.Lock()
	defer b.subMu.Unlock()
	if b.sub == nil {
		return false
	}
	select {
	case <-b.sub.done:
		return false
	default:
		return true
	}
}
