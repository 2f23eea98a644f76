// Package board keeps the task list in step with the contract: full
// reloads, task creation and the TaskCreated live-update subscription.
package board

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"

	"github.com/idilsaglam/flashtask/internal/chain"
	"github.com/idilsaglam/flashtask/internal/contract"
	"github.com/idilsaglam/flashtask/internal/model"
	"github.com/idilsaglam/flashtask/internal/wallet"
)

var (
	ErrNoSession = errors.New("no wallet connected")
	// ErrTransactionFailed wraps every createTask failure, including a
	// rejection in the wallet.
	ErrTransactionFailed = errors.New("could not add task")
	ErrInvalidDraft      = errors.New("invalid task")
)

// Contract is the subset of the task contract the board needs.
type Contract interface {
	TasksCount(ctx context.Context) (*big.Int, error)
	GetTask(ctx context.Context, index *big.Int) (contract.TaskRecord, error)
	CreateTask(ctx context.Context, from contract.Sender, title, description string, dueDate, stake *big.Int) (*types.Receipt, error)
	WatchTaskCreated(ctx context.Context, sink chan<- *contract.TaskCreated) (event.Subscription, error)
}

// Controller caches the last loaded task list.
type Controller struct {
	contract Contract
	decimals uint8
	log      *slog.Logger

	mu    sync.RWMutex
	tasks []model.Task

	subMu sync.Mutex
	sub   *subscription
}

func New(c Contract, network chain.Network, log *slog.Logger) *Controller {
	if log == nil {
		log = slog.Default()
	}
	return &Controller{
		contract: c,
		decimals: network.Decimals,
		log:      log.With("component", "board"),
	}
}

// Tasks returns a copy of the cached list.
func (b *Controller) Tasks() []model.Task {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]model.Task, len(b.tasks))
	copy(out, b.tasks)
	return out
}

// LoadTasks fetches every task and replaces the cached list. On failure the
// error is logged and the cached list is kept as it was.
func (b *Controller) LoadTasks(ctx context.Context, s *wallet.Session) ([]model.Task, error) {
	if s == nil {
		return nil, ErrNoSession
	}
	tasks, err := b.fetch(ctx)
	if err != nil {
		if ctx.Err() != nil {
			b.log.Debug("load tasks cancelled", "err", err)
		} else {
			b.log.Error("load tasks", "err", err)
		}
		return nil, err
	}

	b.mu.Lock()
	b.tasks = tasks
	b.mu.Unlock()

	out := make([]model.Task, len(tasks))
	copy(out, tasks)
	return out, nil
}

// fetch reads the count, then each task by index. Sequential; fine for
// the list sizes this contract holds.
func (b *Controller) fetch(ctx context.Context) ([]model.Task, error) {
	count, err := b.contract.TasksCount(ctx)
	if err != nil {
		return nil, err
	}
	if !count.IsInt64() {
		return nil, fmt.Errorf("task count out of range: %s", count)
	}
	n := count.Int64()

	tasks := make([]model.Task, 0, n)
	for i := int64(0); i < n; i++ {
		rec, err := b.contract.GetTask(ctx, big.NewInt(i))
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, b.toTask(rec))
	}
	return tasks, nil
}

func (b *Controller) toTask(r contract.TaskRecord) model.Task {
	return model.Task{
		ID:          uint64OrZero(r.Id),
		Title:       r.Title,
		Description: r.Description,
		CreatedAt:   int64OrZero(r.CreatedAt),
		CompletedAt: int64OrZero(r.CompletedAt),
		DueDate:     int64OrZero(r.DueDate),
		Stake:       chain.FormatAmount(r.Stake, b.decimals),
		IsCompleted: r.IsCompleted,
		Owner:       r.Owner.Hex(),
	}
}

// CreateTask submits draft and waits for it to be mined. On success the
// draft is reset and the list reloaded; on failure the draft is untouched.
func (b *Controller) CreateTask(ctx context.Context, s *wallet.Session, draft *model.Draft) error {
	if s == nil || !s.CanSign() {
		return ErrNoSession
	}
	if missing := draft.Missing(); len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidDraft, strings.Join(missing, ", "))
	}
	due, err := chain.DueTimestamp(draft.DueDate)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDraft, err)
	}
	stake, err := chain.ParseAmount(draft.Stake, b.decimals)
	if err != nil {
		return fmt.Errorf("%w: stake: %w", ErrInvalidDraft, err)
	}

	receipt, err := b.contract.CreateTask(ctx, s, strings.TrimSpace(draft.Title), strings.TrimSpace(draft.Description), due, stake)
	if err != nil {
		b.log.Error("create task", "err", err)
		return fmt.Errorf("%w: %w", ErrTransactionFailed, err)
	}
	b.log.Info("task created", "tx", receipt.TxHash.Hex(), "block", receipt.BlockNumber)

	draft.Reset()
	if _, err := b.LoadTasks(ctx, s); err != nil {
		// the write landed; a failed refresh is only logged
		b.log.Warn("refresh after create", "err", err)
	}
	return nil
}

func uint64OrZero(v *big.Int) uint64 {
	if v == nil || !v.IsUint64() {
		return 0
	}
	return v.Uint64()
}

func int64OrZero(v *big.Int) int64 {
	if v == nil || !v.IsInt64() {
		return 0
	}
	return v.Int64()
}
