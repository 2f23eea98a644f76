package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/idilsaglam/flashtask/internal/chain"
	"github.com/idilsaglam/flashtask/internal/store/localstore"
	"github.com/idilsaglam/flashtask/internal/tui"
	"github.com/idilsaglam/flashtask/internal/ui"
)

// runBoard opens the interactive board, resuming a stored session.
func (a *app) runBoard(cmd *cobra.Command, _ []string) error {
	if err := a.setup(false); err != nil {
		return err
	}
	ctx := cmd.Context()
	m, err := a.sessions(ctx)
	if err != nil {
		return err
	}
	b, err := a.board(ctx)
	if err != nil {
		return err
	}
	s, err := m.Restore(ctx)
	if err != nil {
		// start from the entry view rather than refuse to open
		a.log.Warn("restore session", "err", err)
		s = nil
	}
	return tui.Run(tui.Deps{
		Ctx:      ctx,
		Sessions: m,
		Board:    b,
		Session:  s,
		Logger:   a.log,
	})
}

func (a *app) connectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "connect",
		Short: "Connect the wallet and switch it to the task network",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.setup(true); err != nil {
				return err
			}
			m, err := a.sessions(cmd.Context())
			if err != nil {
				return err
			}
			s, err := m.Connect(cmd.Context())
			if err != nil {
				return err
			}
			ui.OK(cmd.OutOrStdout(), "Connected "+s.Address().Hex())
			return nil
		},
	}
}

func (a *app) disconnectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "disconnect",
		Short: "Forget the connected wallet",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.setup(true); err != nil {
				return err
			}
			m, err := a.sessions(cmd.Context())
			if err != nil {
				return err
			}
			if err := m.Disconnect(); err != nil {
				return err
			}
			ui.OK(cmd.OutOrStdout(), "Wallet disconnected.")
			return nil
		},
	}
}

func (a *app) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the session, network and contract in use",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.setup(true); err != nil {
				return err
			}
			m, err := a.sessions(cmd.Context())
			if err != nil {
				return err
			}
			s, err := m.Restore(cmd.Context())
			if err != nil {
				return err
			}

			t := ui.Current()
			addr := ui.C(t.Muted, "not connected")
			if s != nil {
				addr = ui.C(t.Accent, s.Address().Hex())
			}
			endpoint := a.cfg.Wallet.Endpoint
			if endpoint == "" {
				endpoint = ui.C(t.Muted, "none")
			}
			n := a.cfg.Network
			lines := []string{ui.C(t.Title, "flashtask")}
			lines = append(lines, ui.KeyValue([][2]string{
				{"Wallet", addr},
				{"Network", fmt.Sprintf("%s (%d)", n.Name, n.ChainID)},
				{"Contract", a.cfg.Contract.Address},
				{"Read RPC", a.cfg.ReadURL()},
				{"Wallet RPC", endpoint},
				{"Session", localstore.New(a.cfg.Session.Dir).Path},
			})...)
			ui.Panel(cmd.OutOrStdout(), lines)
			return nil
		},
	}
}

func (a *app) networkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "network",
		Short: "Print the settings to add the task network by hand",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.setup(true); err != nil {
				return err
			}
			networkPanel(cmd.OutOrStdout(), a.cfg.Network)
			return nil
		},
	}
}

func networkPanel(w io.Writer, n chain.Network) {
	t := ui.Current()
	lines := []string{ui.C(t.Title, "Add custom network "+n.ShortName+" in your wallet")}
	lines = append(lines, n.ManualSetup()...)
	ui.Panel(w, lines)
}
