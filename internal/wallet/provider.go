package wallet

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net"
	"strings"
	"syscall"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/idilsaglam/flashtask/internal/chain"
)

// userRejectedCode is the EIP-1193 "user rejected the request" code.
const userRejectedCode = 4001

// Provider is the wallet side: account access, network identification and
// switching, transaction signing. Every call may block on the user.
type Provider interface {
	RequestAccounts(ctx context.Context) ([]common.Address, error)
	Accounts(ctx context.Context) ([]common.Address, error)
	ChainID(ctx context.Context) (*big.Int, error)
	AddChain(ctx context.Context, params chain.AddChainParams) error
	SendTransaction(ctx context.Context, msg ethereum.CallMsg) (common.Hash, error)
}

// RPCProvider talks to a wallet exposing the EIP-1193 methods over
// JSON-RPC (HTTP, WebSocket or IPC).
type RPCProvider struct {
	c *rpc.Client
}

// DialProvider connects to endpoint. An empty endpoint is ErrProviderAbsent.
func DialProvider(ctx context.Context, endpoint string) (*RPCProvider, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, ErrProviderAbsent
	}
	c, err := rpc.DialContext(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderAbsent, err)
	}
	return NewRPCProvider(c), nil
}

func NewRPCProvider(c *rpc.Client) *RPCProvider { return &RPCProvider{c: c} }

func (p *RPCProvider) Close() { p.c.Close() }

func (p *RPCProvider) RequestAccounts(ctx context.Context) ([]common.Address, error) {
	var out []common.Address
	if err := p.c.CallContext(ctx, &out, "eth_requestAccounts"); err != nil {
		return nil, classify("eth_requestAccounts", err)
	}
	return out, nil
}

func (p *RPCProvider) Accounts(ctx context.Context) ([]common.Address, error) {
	var out []common.Address
	if err := p.c.CallContext(ctx, &out, "eth_accounts"); err != nil {
		return nil, classify("eth_accounts", err)
	}
	return out, nil
}

func (p *RPCProvider) ChainID(ctx context.Context) (*big.Int, error) {
	var out hexutil.Big
	if err := p.c.CallContext(ctx, &out, "eth_chainId"); err != nil {
		return nil, classify("eth_chainId", err)
	}
	return (*big.Int)(&out), nil
}

func (p *RPCProvider) AddChain(ctx context.Context, params chain.AddChainParams) error {
	if err := p.c.CallContext(ctx, nil, "wallet_addEthereumChain", params); err != nil {
		return classify("wallet_addEthereumChain", err)
	}
	return nil
}

// txArgs is the eth_sendTransaction parameter object.
type txArgs struct {
	From  common.Address  `json:"from"`
	To    *common.Address `json:"to,omitempty"`
	Value *hexutil.Big    `json:"value,omitempty"`
	Data  hexutil.Bytes   `json:"data,omitempty"`
	Gas   *hexutil.Uint64 `json:"gas,omitempty"`
}

func (p *RPCProvider) SendTransaction(ctx context.Context, msg ethereum.CallMsg) (common.Hash, error) {
	args := txArgs{From: msg.From, To: msg.To, Data: msg.Data}
	if msg.Value != nil {
		args.Value = (*hexutil.Big)(msg.Value)
	}
	if msg.Gas > 0 {
		gas := hexutil.Uint64(msg.Gas)
		args.Gas = &gas
	}
	var hash common.Hash
	if err := p.c.CallContext(ctx, &hash, "eth_sendTransaction", args); err != nil {
		return common.Hash{}, classify("eth_sendTransaction", err)
	}
	return hash, nil
}

// classify maps wallet answers onto the package errors. HTTP endpoints are
// only contacted on the first call, so a wallet that is not running shows
// up here as a transport failure rather than at dial time.
func classify(method string, err error) error {
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		if rpcErr.ErrorCode() == userRejectedCode {
			return fmt.Errorf("%s: %w: %s", method, ErrUserRejected, rpcErr.Error())
		}
		return fmt.Errorf("%s: %w", method, err)
	}
	if unreachable(err) {
		return fmt.Errorf("%s: %w: %v", method, ErrProviderAbsent, err)
	}
	return fmt.Errorf("%s: %w", method, err)
}

func unreachable(err error) bool {
	var opErr *net.OpError
	return errors.As(err, &opErr) || errors.Is(err, syscall.ECONNREFUSED)
}
