package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/idilsaglam/flashtask/internal/board"
	"github.com/idilsaglam/flashtask/internal/config"
	"github.com/idilsaglam/flashtask/internal/contract"
	"github.com/idilsaglam/flashtask/internal/logging"
	"github.com/idilsaglam/flashtask/internal/store/localstore"
	"github.com/idilsaglam/flashtask/internal/ui"
	"github.com/idilsaglam/flashtask/internal/wallet"
)

// DialWalletFunc connects to the wallet at endpoint. A nil provider with a
// nil error means no wallet is available.
type DialWalletFunc func(ctx context.Context, endpoint string) (wallet.Provider, func(), error)

// DialChainFunc connects to the node used for contract reads.
type DialChainFunc func(ctx context.Context, url string) (contract.Backend, func(), error)

func dialWallet(ctx context.Context, endpoint string) (wallet.Provider, func(), error) {
	p, err := wallet.DialProvider(ctx, endpoint)
	if errors.Is(err, wallet.ErrProviderAbsent) {
		slog.Debug("no wallet provider", "endpoint", endpoint, "err", err)
		return nil, func() {}, nil
	}
	if err != nil {
		return nil, nil, err
	}
	return p, p.Close, nil
}

func dialChain(ctx context.Context, url string) (contract.Backend, func(), error) {
	c, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return c, c.Close, nil
}

// app holds the root flags and whatever a command has opened so far.
type app struct {
	opt Options

	configPath string
	theme      string
	noColor    bool
	verbose    bool

	cfg     *config.Config
	log     *slog.Logger
	closers []func()
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// setup loads the configuration, applies the theme and opens the log.
// mirror sends log records to stderr as well when --verbose is set; the
// interactive board never does since it owns the terminal.
func (a *app) setup(mirror bool) error {
	if a.cfg != nil {
		return nil
	}
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.theme != "" {
		cfg.UI.Theme = a.theme
	}
	if err := ui.SetTheme(cfg.UI.Theme); err != nil {
		return usageError{err}
	}
	ui.SetColorForcing(false, a.noColor)

	lo := logging.Options{File: cfg.Log.File, Level: cfg.Log.Level, Stderr: mirror && a.verbose}
	if a.verbose {
		lo.Level = "debug"
	}
	log, closer, err := logging.New(lo)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, func() { _ = closer.Close() })
	a.cfg, a.log = cfg, log
	return nil
}

// sessions opens the wallet and the session store.
func (a *app) sessions(ctx context.Context) (*wallet.Manager, error) {
	p, closeFn, err := a.opt.DialWallet(ctx, a.cfg.Wallet.Endpoint)
	if err != nil {
		return nil, err
	}
	if closeFn != nil {
		a.closers = append(a.closers, closeFn)
	}
	store := localstore.New(a.cfg.Session.Dir)
	return wallet.NewManager(p, store, a.cfg.Network, wallet.Options{
		VerifyOnRestore: a.cfg.Session.VerifyOnRestore,
		Logger:          a.log,
	}), nil
}

// board binds the task contract over the read node.
func (a *app) board(ctx context.Context) (*board.Controller, error) {
	url := a.cfg.ReadURL()
	backend, closeFn, err := a.opt.DialChain(ctx, url)
	if err != nil {
		return nil, err
	}
	if closeFn != nil {
		a.closers = append(a.closers, closeFn)
	}
	c, err := contract.New(common.HexToAddress(a.cfg.Contract.Address), backend)
	if err != nil {
		return nil, err
	}
	c.PollInterval = a.cfg.Contract.PollInterval
	c.Logger = a.log.With("component", "contract")
	a.log.Debug("contract bound", "address", c.Address().Hex(), "rpc", url)
	return board.New(c, a.cfg.Network, a.log), nil
}

// restore opens everything a board command needs and returns the stored
// session, which is nil when no wallet is connected.
func (a *app) restore(ctx context.Context) (*wallet.Manager, *board.Controller, *wallet.Session, error) {
	m, err := a.sessions(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	b, err := a.board(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	s, err := m.Restore(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	return m, b, s, nil
}
