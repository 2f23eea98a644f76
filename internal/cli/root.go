// Package cli is the flashtask command line: the interactive board by
// default, plus one-shot subcommands for scripting.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/idilsaglam/flashtask/internal/board"
	"github.com/idilsaglam/flashtask/internal/ui"
	"github.com/idilsaglam/flashtask/internal/wallet"
)

// Options tune where output goes and how the program reaches the outside
// world. Zero values select the real terminal and network.
type Options struct {
	Version string
	Stdout  io.Writer
	Stderr  io.Writer
	// Context is the parent of every command context. Run adds SIGINT and
	// SIGTERM cancellation on top.
	Context context.Context
	// DialWallet and DialChain replace the network dials.
	DialWallet DialWalletFunc
	DialChain  DialChainFunc
}

func (o Options) withDefaults() Options {
	if o.Version == "" {
		o.Version = "dev"
	}
	if o.Stdout == nil {
		o.Stdout = os.Stdout
	}
	if o.Stderr == nil {
		o.Stderr = os.Stderr
	}
	if o.Context == nil {
		o.Context = context.Background()
	}
	if o.DialWallet == nil {
		o.DialWallet = dialWallet
	}
	if o.DialChain == nil {
		o.DialChain = dialChain
	}
	return o
}

// usageError marks a bad invocation; Run maps it to exit code 2.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func usagef(format string, a ...any) error { return usageError{fmt.Errorf(format, a...)} }

// noArgs rejects positional arguments as a usage error.
func noArgs(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		if cmd.HasSubCommands() {
			return usagef("unknown subcommand: %s", args[0])
		}
		return usagef("%s takes no arguments, got %q", cmd.CommandPath(), args[0])
	}
	return nil
}

// Run executes the command line and returns an exit code (0 ok, 1 error,
// 2 usage).
func Run(args []string, opt Options) int {
	opt = opt.withDefaults()
	ctx, stop := signal.NotifyContext(opt.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{opt: opt}
	defer a.close()

	root := a.rootCmd()
	root.SetArgs(args)
	root.SetOut(opt.Stdout)
	root.SetErr(opt.Stderr)

	cmd, err := root.ExecuteContextC(ctx)
	if err == nil {
		return 0
	}
	a.report(err)

	var ue usageError
	if errors.As(err, &ue) || errors.Is(err, board.ErrInvalidDraft) {
		if cmd != nil {
			fmt.Fprintln(opt.Stderr)
			fmt.Fprint(opt.Stderr, cmd.UsageString())
		}
		return 2
	}
	return 1
}

// report prints err the way the board presents the same failures.
func (a *app) report(err error) {
	w := a.opt.Stderr
	var switchErr *wallet.NetworkSwitchError
	switch {
	case errors.As(err, &switchErr):
		ui.Fail(w, fmt.Sprintf("Could not switch to the %s network.", switchErr.Network.Name))
		networkPanel(w, switchErr.Network)
	case errors.Is(err, wallet.ErrProviderAbsent):
		ui.Fail(w, "No wallet provider found!")
		ui.Hint(w, "set wallet.endpoint in the config or FLASHTASK_WALLET_ENDPOINT")
	case errors.Is(err, board.ErrNoSession):
		ui.Fail(w, "No wallet connected.")
		ui.Hint(w, "run `flashtask connect` first")
	case errors.Is(err, board.ErrTransactionFailed):
		ui.Fail(w, "Could not add task.")
		if errors.Is(err, wallet.ErrUserRejected) {
			ui.Hint(w, "the transaction was rejected in the wallet")
		}
	default:
		ui.Fail(w, err.Error())
	}
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "flashtask",
		Short: "Staked task board on Polygon Amoy",
		Long: `flashtask connects a wallet and manages tasks stored in the task contract.

Run without a subcommand to open the interactive board.`,
		Args:          noArgs,
		RunE:          a.runBoard,
		Version:       a.opt.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err}
	})

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "config file (default ~/.flashtask/config.yaml and ./.flashtask/config.yaml)")
	pf.StringVar(&a.theme, "theme", "", "output theme: classic, neon or mono")
	pf.BoolVar(&a.noColor, "no-color", false, "disable colored output")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "debug logging, mirrored to stderr for one-shot commands")

	root.AddCommand(
		a.connectCmd(),
		a.disconnectCmd(),
		a.statusCmd(),
		a.networkCmd(),
		a.listCmd(),
		a.addCmd(),
		a.watchCmd(),
		a.configCmd(),
	)
	return root
}
