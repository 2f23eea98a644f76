package contract

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"
)

const taskCreatedEvent = "TaskCreated"

// WatchTaskCreated delivers every TaskCreated event to sink until the
// returned subscription is released. Backends that cannot push logs
// (plain HTTP) are polled with eth_getLogs instead.
func (c *TaskContract) WatchTaskCreated(ctx context.Context, sink chan<- *TaskCreated) (event.Subscription, error) {
	logs, sub, err := c.bound.WatchLogs(&bind.WatchOpts{Context: ctx}, taskCreatedEvent)
	if err != nil {
		c.Logger.Info("log subscription unavailable, polling instead", "err", err, "interval", c.PollInterval)
		return c.pollTaskCreated(ctx, sink)
	}
	return event.NewSubscription(func(quit <-chan struct{}) error {
		defer sub.Unsubscribe()
		for {
			select {
			case log := <-logs:
				ev, err := c.ParseTaskCreated(log)
				if err != nil {
					return err
				}
				select {
				case sink <- ev:
				case err := <-sub.Err():
					return err
				case <-quit:
					return nil
				}
			case err := <-sub.Err():
				return err
			case <-quit:
				return nil
			}
		}
	}), nil
}

// ParseTaskCreated decodes a raw TaskCreated log.
func (c *TaskContract) ParseTaskCreated(log types.Log) (*TaskCreated, error) {
	ev := new(TaskCreated)
	if err := c.bound.UnpackLog(ev, taskCreatedEvent, log); err != nil {
		return nil, fmt.Errorf("unpack %s: %w", taskCreatedEvent, err)
	}
	ev.Raw = log
	return ev, nil
}

func (c *TaskContract) pollTaskCreated(ctx context.Context, sink chan<- *TaskCreated) (event.Subscription, error) {
	last, err := c.backend.BlockNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("block number: %w", err)
	}
	topic := c.abi.Events[taskCreatedEvent].ID

	return event.NewSubscription(func(quit <-chan struct{}) error {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()
		go func() {
			select {
			case <-quit:
				cancel()
			case <-ctx.Done():
			}
		}()

		ticker := time.NewTicker(c.PollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
			}

			head, err := c.backend.BlockNumber(ctx)
			if err != nil {
				c.Logger.Warn("poll block number", "err", err)
				continue
			}
			if head <= last {
				continue
			}
			found, err := c.backend.FilterLogs(ctx, ethereum.FilterQuery{
				FromBlock: new(big.Int).SetUint64(last + 1),
				ToBlock:   new(big.Int).SetUint64(head),
				Addresses: []common.Address{c.address},
				Topics:    [][]common.Hash{{topic}},
			})
			if err != nil {
				c.Logger.Warn("poll logs", "err", err, "from", last+1, "to", head)
				continue
			}
			for _, log := range found {
				ev, err := c.ParseTaskCreated(log)
				if err != nil {
					c.Logger.Warn("skip log", "err", err, "tx", log.TxHash.Hex())
					continue
				}
				select {
				case sink <- ev:
				case <-ctx.Done():
					return nil
				}
			}
			last = head
		}
	}), nil
}
