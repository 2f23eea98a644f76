// Package wallet owns the connected-wallet session: restoring it from the
// local store, the connect and network-switch handshake, and disconnect.
package wallet

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"github.com/idilsaglam/flashtask/internal/chain"
)

// StorageKey is the local store key holding the connected address.
const StorageKey = "wallet"

// Store is the persisted key/value state (see localstore.Store).
type Store interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Remove(key string) error
}

// Session is an authorized wallet address. It is passed explicitly to
// every operation that needs one.
type Session struct {
	address  common.Address
	provider Provider
}

func NewSession(address common.Address, provider Provider) *Session {
	return &Session{address: address, provider: provider}
}

func (s *Session) Address() common.Address { return s.address }

// Short renders the address as 0x1234...abcd.
func (s *Session) Short() string {
	h := s.address.Hex()
	return h[:6] + "..." + h[len(h)-4:]
}

// CanSign reports whether writes can go through this session.
func (s *Session) CanSign() bool { return s.provider != nil }

// SendTransaction has the wallet sign and broadcast msg from the session
// address.
func (s *Session) SendTransaction(ctx context.Context, msg ethereum.CallMsg) (common.Hash, error) {
	if s.provider == nil {
		return common.Hash{}, ErrProviderAbsent
	}
	msg.From = s.address
	return s.provider.SendTransaction(ctx, msg)
}

// Options tune a Manager.
type Options struct {
	// VerifyOnRestore drops a stored address the wallet no longer lists.
	VerifyOnRestore bool
	Logger          *slog.Logger
}

// Manager drives the session lifecycle. provider may be nil when no wallet
// is available; reads from a restored session still work then.
type Manager struct {
	provider Provider
	store    Store
	network  chain.Network
	verify   bool
	log      *slog.Logger
}

func NewManager(provider Provider, store Store, network chain.Network, opt Options) *Manager {
	log := opt.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		provider: provider,
		store:    store,
		network:  network,
		verify:   opt.VerifyOnRestore,
		log:      log.With("component", "wallet"),
	}
}

// Network is the required target network.
func (m *Manager) Network() chain.Network { return m.network }

// Restore returns the persisted session, or nil when there is none.
func (m *Manager) Restore(ctx context.Context) (*Session, error) {
	v, ok, err := m.store.Get(StorageKey)
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}
	if !ok || v == "" {
		return nil, nil
	}
	if !common.IsHexAddress(v) {
		m.log.Warn("discarding malformed stored address", "value", v)
		if err := m.store.Remove(StorageKey); err != nil {
			return nil, fmt.Errorf("clear session: %w", err)
		}
		return nil, nil
	}
	addr := common.HexToAddress(v)

	if m.verify && m.provider != nil {
		accounts, err := m.provider.Accounts(ctx)
		if err != nil {
			m.log.Warn("could not verify stored address, trusting it", "address", addr.Hex(), "err", err)
		} else if !containsAddress(accounts, addr) {
			m.log.Info("stored address no longer authorized by wallet", "address", addr.Hex())
			if err := m.store.Remove(StorageKey); err != nil {
				return nil, fmt.Errorf("clear session: %w", err)
			}
			return nil, nil
		}
	}
	return NewSession(addr, m.provider), nil
}

// Connect asks the wallet for an account, makes sure it is on the target
// network and persists the address. Nothing is persisted on failure.
func (m *Manager) Connect(ctx context.Context) (*Session, error) {
	if m.provider == nil {
		m.log.Error("connect: no wallet provider")
		return nil, ErrProviderAbsent
	}

	accounts, err := m.provider.RequestAccounts(ctx)
	if err != nil {
		m.log.Error("connect: request accounts", "err", err)
		return nil, err
	}
	if len(accounts) == 0 {
		return nil, ErrNoAccounts
	}
	addr := accounts[0]

	id, err := m.provider.ChainID(ctx)
	if err != nil {
		m.log.Error("connect: chain id", "err", err)
		return nil, err
	}
	if !m.network.Is(id) {
		m.log.Info("wallet on wrong network, requesting switch", "have", id, "want", m.network.ChainID)
		if err := m.provider.AddChain(ctx, m.network.AddChainParams()); err != nil {
			m.log.Error("connect: add network", "network", m.network.Name, "err", err)
			return nil, &NetworkSwitchError{Network: m.network, Err: err}
		}
	}

	if err := m.store.Set(StorageKey, addr.Hex()); err != nil {
		return nil, fmt.Errorf("persist session: %w", err)
	}
	m.log.Info("connected", "address", addr.Hex())
	return NewSession(addr, m.provider), nil
}

// Disconnect forgets the persisted address.
func (m *Manager) Disconnect() error {
	if err := m.store.Remove(StorageKey); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	m.log.Info("disconnected")
	return nil
}

func containsAddress(list []common.Address, a common.Address) bool {
	for _, x := range list {
		if x == a {
			return true
		}
	}
	return false
}
