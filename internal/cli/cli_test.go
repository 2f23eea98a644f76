package cli

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idilsaglam/flashtask/internal/chain"
	"github.com/idilsaglam/flashtask/internal/contract"
	"github.com/idilsaglam/flashtask/internal/wallet"
)

var (
	alice = common.HexToAddress("0x1111111111111111111111111111111111111111")
	bob   = common.HexToAddress("0x2222222222222222222222222222222222222222")
)

// fakeChain is both the wallet and the read node.
type fakeChain struct {
	mu       sync.Mutex
	abi      abi.ABI
	accounts []common.Address
	chainID  int64
	addErr   error
	added    []chain.AddChainParams
	sendErr  error
	sent     []ethereum.CallMsg
	tasks    []contract.TaskRecord
	receipts map[common.Hash]*types.Receipt
	logSink  chan<- types.Log
}

func newFakeChain(t *testing.T) *fakeChain {
	t.Helper()
	parsed, err := abi.JSON(strings.NewReader(contract.TaskContractABI))
	require.NoError(t, err)
	return &fakeChain{
		abi:      parsed,
		accounts: []common.Address{alice},
		chainID:  80002,
		receipts: map[common.Hash]*types.Receipt{},
	}
}

func (f *fakeChain) RequestAccounts(context.Context) ([]common.Address, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.accounts, nil
}

func (f *fakeChain) Accounts(ctx context.Context) ([]common.Address, error) {
	return f.RequestAccounts(ctx)
}

func (f *fakeChain) ChainID(context.Context) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return big.NewInt(f.chainID), nil
}

func (f *fakeChain) AddChain(_ context.Context, p chain.AddChainParams) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.added = append(f.added, p)
	if f.addErr != nil {
		return f.addErr
	}
	f.chainID = int64(p.ChainID)
	return nil
}

func (f *fakeChain) SendTransaction(_ context.Context, msg ethereum.CallMsg) (common.Hash, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return common.Hash{}, f.sendErr
	}
	f.sent = append(f.sent, msg)
	args, err := f.abi.Methods["createTask"].Inputs.Unpack(msg.Data[4:])
	if err != nil {
		return common.Hash{}, err
	}
	f.tasks = append(f.tasks, contract.TaskRecord{
		Id:          big.NewInt(int64(len(f.tasks))),
		Title:       args[0].(string),
		Description: args[1].(string),
		CreatedAt:   big.NewInt(1700000000),
		CompletedAt: big.NewInt(0),
		DueDate:     args[2].(*big.Int),
		Stake:       msg.Value,
		Owner:       msg.From,
	})
	hash := common.BigToHash(big.NewInt(int64(len(f.sent))))
	f.receipts[hash] = &types.Receipt{Status: types.ReceiptStatusSuccessful, TxHash: hash, BlockNumber: big.NewInt(1)}
	return hash, nil
}

func (f *fakeChain) CodeAt(context.Context, common.Address, *big.Int) ([]byte, error) {
	return []byte{0x60}, nil
}

func (f *fakeChain) CallContract(_ context.Context, call ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch {
	case bytes.HasPrefix(call.Data, f.abi.Methods["tasksCount"].ID):
		return f.abi.Methods["tasksCount"].Outputs.Pack(big.NewInt(int64(len(f.tasks))))
	case bytes.HasPrefix(call.Data, f.abi.Methods["getTask"].ID):
		args, err := f.abi.Methods["getTask"].Inputs.Unpack(call.Data[4:])
		if err != nil {
			return nil, err
		}
		return f.abi.Methods["getTask"].Outputs.Pack(f.tasks[args[0].(*big.Int).Int64()])
	}
	return nil, errors.New("unknown selector")
}

func (f *fakeChain) FilterLogs(context.Context, ethereum.FilterQuery) ([]types.Log, error) {
	return nil, nil
}

func (f *fakeChain) SubscribeFilterLogs(_ context.Context, _ ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logSink = ch
	return event.NewSubscription(func(quit <-chan struct{}) error {
		<-quit
		return nil
	}), nil
}

func (f *fakeChain) BlockNumber(context.Context) (uint64, error) { return 1, nil }

func (f *fakeChain) TransactionReceipt(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.receipts[hash]; ok {
		return r, nil
	}
	return nil, ethereum.NotFound
}

func (f *fakeChain) record(title string, completed bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks = append(f.tasks, contract.TaskRecord{
		Id:          big.NewInt(int64(len(f.tasks))),
		Title:       title,
		Description: "about " + title,
		CreatedAt:   big.NewInt(1700000000),
		CompletedAt: big.NewInt(0),
		DueDate:     big.NewInt(1735689600),
		Stake:       big.NewInt(10_000_000_000_000_000),
		IsCompleted: completed,
		Owner:       alice,
	})
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type harness struct {
	chain    *fakeChain
	noWallet bool
	home     string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	return &harness{chain: newFakeChain(t), home: home}
}

func (h *harness) options(ctx context.Context, stdout, stderr *syncBuffer) Options {
	return Options{
		Context: ctx,
		Stdout:  stdout,
		Stderr:  stderr,
		DialWallet: func(context.Context, string) (wallet.Provider, func(), error) {
			if h.noWallet {
				return nil, nil, nil
			}
			return h.chain, nil, nil
		},
		DialChain: func(context.Context, string) (contract.Backend, func(), error) {
			return h.chain, nil, nil
		},
	}
}

func (h *harness) run(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr syncBuffer
	code := Run(append([]string{"--no-color"}, args...), h.options(context.Background(), &stdout, &stderr))
	return code, stdout.String(), stderr.String()
}

func TestUsageErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "unknown subcommand", args: []string{"frobnicate"}, want: "unknown subcommand: frobnicate"},
		{name: "unknown flag", args: []string{"ls", "--nope"}, want: "unknown flag: --nope"},
		{name: "stray argument", args: []string{"status", "extra"}, want: "takes no arguments"},
		{name: "unknown theme", args: []string{"--theme", "solarized", "network"}, want: "unknown theme"},
		{name: "add without fields", args: []string{"add"}, want: "missing title, description, due date"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			code, _, stderr := h.run(t, tt.args...)
			assert.Equal(t, 2, code)
			assert.Contains(t, stderr, tt.want)
		})
	}
}

func TestNetworkPrintsManualSetup(t *testing.T) {
	h := newHarness(t)

	code, stdout, _ := h.run(t, "network")

	require.Equal(t, 0, code)
	assert.Contains(t, stdout, "Add custom network Amoy in your wallet")
	assert.Contains(t, stdout, "ChainID: 80002")
	assert.Contains(t, stdout, "https://rpc-amoy.polygon.technology")
}

func TestConnectStatusDisconnect(t *testing.T) {
	h := newHarness(t)

	code, stdout, _ := h.run(t, "connect")
	require.Equal(t, 0, code)
	assert.Contains(t, stdout, "Connected "+alice.Hex())
	assert.Empty(t, h.chain.added)

	code, stdout, _ = h.run(t, "status")
	require.Equal(t, 0, code)
	assert.Contains(t, stdout, alice.Hex())
	assert.Contains(t, stdout, "Polygon Amoy (80002)")
	assert.Contains(t, stdout, filepath.Join(h.home, ".flashtask", "storage.json"))

	code, stdout, _ = h.run(t, "disconnect")
	require.Equal(t, 0, code)
	assert.Contains(t, stdout, "Wallet disconnected.")

	_, stdout, _ = h.run(t, "status")
	assert.Contains(t, stdout, "not connected")
}

func TestConnectAddsNetwork(t *testing.T) {
	h := newHarness(t)
	h.chain.chainID = 1

	code, _, _ := h.run(t, "connect")

	require.Equal(t, 0, code)
	require.Len(t, h.chain.added, 1)
	assert.Equal(t, uint64(80002), uint64(h.chain.added[0].ChainID))
}

func TestConnectSwitchRejected(t *testing.T) {
	h := newHarness(t)
	h.chain.chainID = 1
	h.chain.addErr = wallet.ErrUserRejected

	code, _, stderr := h.run(t, "connect")

	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "Could not switch to the Polygon Amoy network.")
	assert.Contains(t, stderr, "ChainID: 80002")

	_, stdout, _ := h.run(t, "status")
	assert.Contains(t, stdout, "not connected")
}

func TestConnectWithoutWallet(t *testing.T) {
	h := newHarness(t)
	h.noWallet = true

	code, _, stderr := h.run(t, "connect")

	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "No wallet provider found!")
}

func TestRestoreDropsRevokedAddress(t *testing.T) {
	h := newHarness(t)
	code, _, _ := h.run(t, "connect")
	require.Equal(t, 0, code)

	h.chain.accounts = []common.Address{bob}
	_, stdout, _ := h.run(t, "status")
	assert.Contains(t, stdout, "not connected")
}

func TestListRequiresSession(t *testing.T) {
	h := newHarness(t)

	code, _, stderr := h.run(t, "ls")

	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "No wallet connected.")
	assert.Contains(t, stderr, "flashtask connect")
}

func TestList(t *testing.T) {
	h := newHarness(t)
	h.chain.record("water plants", false)
	h.chain.record("file taxes", true)
	code, _, _ := h.run(t, "connect")
	require.Equal(t, 0, code)

	code, stdout, _ := h.run(t, "ls")
	require.Equal(t, 0, code)
	assert.Contains(t, stdout, "water plants")
	assert.Contains(t, stdout, "file taxes")
	assert.Contains(t, stdout, "due 01/01/2025 · stake 0.01 MATIC")
	assert.Contains(t, stdout, "50%")

	code, stdout, _ = h.run(t, "ls", "--group")
	require.Equal(t, 0, code)
	pending := strings.Index(stdout, "Pending")
	completed := strings.Index(stdout, "Completed")
	require.True(t, pending >= 0 && completed > pending)
	assert.Less(t, strings.Index(stdout, "water plants"), completed)
	assert.Greater(t, strings.Index(stdout, "file taxes"), completed)
}

func TestListEmpty(t *testing.T) {
	h := newHarness(t)
	code, _, _ := h.run(t, "connect")
	require.Equal(t, 0, code)

	_, stdout, _ := h.run(t, "ls")
	assert.Contains(t, stdout, "No tasks found.")
}

func TestAdd(t *testing.T) {
	h := newHarness(t)
	code, _, _ := h.run(t, "connect")
	require.Equal(t, 0, code)

	code, stdout, stderr := h.run(t, "add", "--title", "Ship v1", "--description", "tag it", "--due", "2025-01-01")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "Task added!")

	require.Len(t, h.chain.sent, 1)
	msg := h.chain.sent[0]
	assert.Equal(t, alice, msg.From)
	require.NotNil(t, msg.To)
	assert.Equal(t, common.HexToAddress(contract.DefaultAddress), *msg.To)
	assert.Equal(t, "10000000000000000", msg.Value.String())

	require.Len(t, h.chain.tasks, 1)
	assert.Equal(t, "Ship v1", h.chain.tasks[0].Title)
	assert.Equal(t, int64(1735689600), h.chain.tasks[0].DueDate.Int64())
}

func TestAddInvalidDate(t *testing.T) {
	h := newHarness(t)
	code, _, _ := h.run(t, "connect")
	require.Equal(t, 0, code)

	code, _, _ = h.run(t, "add", "--title", "t", "--description", "d", "--due", "31/01/2025")
	assert.Equal(t, 2, code)
	assert.Empty(t, h.chain.sent)
}

func TestAddRejected(t *testing.T) {
	h := newHarness(t)
	code, _, _ := h.run(t, "connect")
	require.Equal(t, 0, code)
	h.chain.sendErr = wallet.ErrUserRejected

	code, _, stderr := h.run(t, "add", "--title", "t", "--description", "d", "--due", "2025-01-01", "--stake", "1")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "Could not add task.")
	assert.Contains(t, stderr, "rejected in the wallet")
}

func TestAddWithoutSession(t *testing.T) {
	h := newHarness(t)

	code, _, stderr := h.run(t, "add", "--title", "t", "--description", "d", "--due", "2025-01-01")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "No wallet connected.")
}

func TestWatchReprintsOnNewTask(t *testing.T) {
	h := newHarness(t)
	h.chain.record("first", false)
	code, _, _ := h.run(t, "connect")
	require.Equal(t, 0, code)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var stdout, stderr syncBuffer
	done := make(chan int, 1)
	go func() { done <- Run([]string{"--no-color", "watch"}, h.options(ctx, &stdout, &stderr)) }()

	require.Eventually(t, func() bool {
		h.chain.mu.Lock()
		defer h.chain.mu.Unlock()
		return h.chain.logSink != nil
	}, 2*time.Second, 10*time.Millisecond)
	assert.Contains(t, stdout.String(), "first")

	h.chain.record("second", false)
	ev := h.chain.abi.Events["TaskCreated"]
	data, err := ev.Inputs.NonIndexed().Pack("second", big.NewInt(1735689600), big.NewInt(0))
	require.NoError(t, err)
	h.chain.mu.Lock()
	sink := h.chain.logSink
	h.chain.mu.Unlock()
	sink <- types.Log{
		Topics: []common.Hash{ev.ID, common.BigToHash(big.NewInt(1)), common.BytesToHash(alice.Bytes())},
		Data:   data,
	}

	require.Eventually(t, func() bool {
		return strings.Contains(stdout.String(), "second")
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case code := <-done:
		assert.Equal(t, 0, code, stderr.String())
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not stop on cancel")
	}
}

func TestConfigInit(t *testing.T) {
	h := newHarness(t)
	path := filepath.Join(h.home, "custom", "config.yaml")

	code, stdout, _ := h.run(t, "--config", path, "config", "init")
	require.Equal(t, 0, code)
	assert.Contains(t, stdout, "wrote "+path)
	_, err := os.Stat(path)
	require.NoError(t, err)

	code, _, stderr := h.run(t, "--config", path, "config", "init")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "already exists")

	code, _, _ = h.run(t, "--config", path, "config", "init", "--force")
	assert.Equal(t, 0, code)

	code, stdout, _ = h.run(t, "--config", path, "config", "show")
	require.Equal(t, 0, code)
	assert.Contains(t, stdout, "chain_id: 80002")
	assert.Contains(t, stdout, contract.DefaultAddress)
}
