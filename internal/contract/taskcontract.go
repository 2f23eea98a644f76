// Package contract binds the on-chain task contract: count and per-index
// reads, the payable createTask write and the TaskCreated event.
package contract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// DefaultAddress is the deployment on Polygon Amoy.
const DefaultAddress = "0x4C9580b002527f87649311cB183448ebF18a34d5"

const (
	defaultReceiptInterval = time.Second
	defaultPollInterval    = 4 * time.Second
)

// ErrReverted means the transaction was mined but failed.
var ErrReverted = errors.New("transaction reverted")

// Backend is the read side of a chain connection. *ethclient.Client
// satisfies it.
type Backend interface {
	bind.ContractCaller
	bind.ContractFilterer
	BlockNumber(ctx context.Context) (uint64, error)
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// Sender submits a transaction on behalf of an address. Signing happens on
// the other side.
type Sender interface {
	Address() common.Address
	SendTransaction(ctx context.Context, msg ethereum.CallMsg) (common.Hash, error)
}

// TaskRecord mirrors the contract's Task struct. Field names and order must
// match the ABI tuple components.
type TaskRecord struct {
	Id          *big.Int
	Title       string
	Description string
	CreatedAt   *big.Int
	CompletedAt *big.Int
	DueDate     *big.Int
	Stake       *big.Int
	IsCompleted bool
	Owner       common.Address
}

// TaskCreated is the decoded TaskCreated event.
type TaskCreated struct {
	Id      *big.Int
	Owner   common.Address
	Title   string
	DueDate *big.Int
	Stake   *big.Int
	Raw     types.Log
}

// TaskContract is a binding to one deployment.
type TaskContract struct {
	// ReceiptInterval is how often a pending transaction is polled.
	ReceiptInterval time.Duration
	// PollInterval drives event polling when the backend cannot push logs.
	PollInterval time.Duration
	Logger       *slog.Logger

	address common.Address
	abi     abi.ABI
	backend Backend
	bound   *bind.BoundContract
}

// New binds the contract at address.
func New(address common.Address, backend Backend) (*TaskContract, error) {
	parsed, err := abi.JSON(strings.NewReader(TaskContractABI))
	if err != nil {
		return nil, fmt.Errorf("parse abi: %w", err)
	}
	return &TaskContract{
		ReceiptInterval: defaultReceiptInterval,
		PollInterval:    defaultPollInterval,
		Logger:          slog.Default(),
		address:         address,
		abi:             parsed,
		backend:         backend,
		bound:           bind.NewBoundContract(address, parsed, backend, nil, backend),
	}, nil
}

// Address returns the bound deployment address.
func (c *TaskContract) Address() common.Address { return c.address }

// TasksCount calls tasksCount().
func (c *TaskContract) TasksCount(ctx context.Context) (*big.Int, error) {
	var out []interface{}
	if err := c.bound.Call(&bind.CallOpts{Context: ctx}, &out, "tasksCount"); err != nil {
		return nil, fmt.Errorf("tasksCount: %w", err)
	}
	if len(out) != 1 {
		return nil, fmt.Errorf("tasksCount: unexpected %d outputs", len(out))
	}
	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}

// GetTask calls getTask(index).
func (c *TaskContract) GetTask(ctx context.Context, index *big.Int) (TaskRecord, error) {
	var out []interface{}
	if err := c.bound.Call(&bind.CallOpts{Context: ctx}, &out, "getTask", index); err != nil {
		return TaskRecord{}, fmt.Errorf("getTask(%s): %w", index, err)
	}
	if len(out) != 1 {
		return TaskRecord{}, fmt.Errorf("getTask(%s): unexpected %d outputs", index, len(out))
	}
	return *abi.ConvertType(out[0], new(TaskRecord)).(*TaskRecord), nil
}

// CreateTask submits createTask(title, description, dueDate) carrying stake
// as value, then blocks until the transaction is mined.
func (c *TaskContract) CreateTask(ctx context.Context, from Sender, title, description string, dueDate, stake *big.Int) (*types.Receipt, error) {
	data, err := c.abi.Pack("createTask", title, description, dueDate)
	if err != nil {
		return nil, fmt.Errorf("pack createTask: %w", err)
	}
	to := c.address
	hash, err := from.SendTransaction(ctx, ethereum.CallMsg{
		From:  from.Address(),
		To:    &to,
		Value: stake,
		Data:  data,
	})
	if err != nil {
		return nil, fmt.Errorf("send createTask: %w", err)
	}
	c.Logger.Info("createTask sent", "tx", hash.Hex(), "from", from.Address().Hex())

	receipt, err := c.WaitMined(ctx, hash)
	if err != nil {
		return nil, err
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return receipt, fmt.Errorf("%w: %s", ErrReverted, hash.Hex())
	}
	return receipt, nil
}

// WaitMined polls for the receipt of hash until it exists or ctx ends.
func (c *TaskContract) WaitMined(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(c.ReceiptInterval)
	defer ticker.Stop()

	for {
		receipt, err := c.backend.TransactionReceipt(ctx, hash)
		switch {
		case err == nil && receipt != nil:
			return receipt, nil
		case err != nil && !errors.Is(err, ethereum.NotFound):
			return nil, fmt.Errorf("receipt %s: %w", hash.Hex(), err)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
