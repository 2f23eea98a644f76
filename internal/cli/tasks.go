package cli

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/idilsaglam/flashtask/internal/board"
	"github.com/idilsaglam/flashtask/internal/chain"
	"github.com/idilsaglam/flashtask/internal/model"
	"github.com/idilsaglam/flashtask/internal/ui"
	"github.com/idilsaglam/flashtask/internal/wallet"
)

func (a *app) listCmd() *cobra.Command {
	var group bool
	cmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List every task in the contract",
		Args:    noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.setup(true); err != nil {
				return err
			}
			_, b, s, err := a.restore(cmd.Context())
			if err != nil {
				return err
			}
			tasks, err := b.LoadTasks(cmd.Context(), s)
			if err != nil {
				return err
			}
			a.renderTasks(cmd.OutOrStdout(), tasks, group)
			return nil
		},
	}
	cmd.Flags().BoolVar(&group, "group", false, "group output by pending/completed")
	return cmd
}

func (a *app) addCmd() *cobra.Command {
	d := model.NewDraft()
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a task, staking value on it",
		Example: `  flashtask add --title "Ship v1" --description "tag and publish" --due 2025-01-31
  flashtask add --title "Run 10k" --description "before summer" --due 2025-06-01 --stake 0.5`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if missing := d.Missing(); len(missing) > 0 {
				return usagef("add: missing %s", strings.Join(missing, ", "))
			}
			if err := a.setup(true); err != nil {
				return err
			}
			_, b, s, err := a.restore(cmd.Context())
			if err != nil {
				return err
			}
			if s == nil {
				return board.ErrNoSession
			}
			if !s.CanSign() {
				return wallet.ErrProviderAbsent
			}
			fmt.Fprintln(cmd.ErrOrStderr(), ui.Dim("Confirm the transaction in your wallet..."))
			if err := b.CreateTask(cmd.Context(), s, &d); err != nil {
				return err
			}
			ui.OK(cmd.OutOrStdout(), "Task added!")
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&d.Title, "title", "", "task title")
	f.StringVar(&d.Description, "description", "", "task description")
	f.StringVar(&d.DueDate, "due", "", "due date (YYYY-MM-DD, UTC)")
	f.StringVar(&d.Stake, "stake", model.DefaultStake, "stake in the network currency")
	return cmd
}

func (a *app) watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print the task list and reprint it on every new task",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.setup(true); err != nil {
				return err
			}
			ctx := cmd.Context()
			_, b, s, err := a.restore(ctx)
			if err != nil {
				return err
			}
			tasks, err := b.LoadTasks(ctx, s)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			var mu sync.Mutex
			a.renderTasks(w, tasks, false)

			if err := b.Subscribe(ctx, s, func(tasks []model.Task) {
				mu.Lock()
				defer mu.Unlock()
				fmt.Fprintln(w)
				a.renderTasks(w, tasks, false)
			}); err != nil {
				return err
			}
			defer b.Unsubscribe()

			fmt.Fprintln(cmd.ErrOrStderr(), ui.Dim("Watching for new tasks, ctrl-c to stop."))
			<-ctx.Done()
			return nil
		},
	}
}

// -------------- rendering helpers --------------

func (a *app) renderTasks(w io.Writer, tasks []model.Task, group bool) {
	t := ui.Current()
	d, p := model.Stats(tasks)
	header := fmt.Sprintf("%s  %s %d  %s %d  %s %d",
		ui.C(t.Title, "Tasks"),
		ui.C(t.Success, t.SymDone), d,
		ui.C(t.Pending, t.SymPending), p,
		ui.C(t.Accent, "Total"), len(tasks),
	)

	var lines []string
	lines = append(lines, header)
	lines = append(lines, ui.C(t.Muted, ui.ProgressBar(d, d+p, 28)))
	lines = append(lines, "")

	symbol := a.cfg.Network.CurrencySymbol
	if group {
		lines = append(lines, groupLines(tasks, symbol)...)
	} else {
		lines = append(lines, flatLines(tasks, symbol)...)
	}
	lines = append(lines, "")
	lines = append(lines, ui.C(t.Muted, "Tip: add with `flashtask add --title ... --description ... --due YYYY-MM-DD`"))
	ui.Panel(w, lines)
}

func flatLines(tasks []model.Task, symbol string) []string {
	t := ui.Current()
	if len(tasks) == 0 {
		return []string{ui.C(t.Muted, "No tasks found.")}
	}
	out := make([]string, 0, len(tasks))
	for _, task := range tasks {
		box, color := t.BoxUnchecked, t.Muted
		if task.IsCompleted {
			box, color = t.BoxChecked, t.Success
		}
		title := task.Title
		if r := []rune(title); len(r) > 60 {
			title = string(r[:57]) + "..."
		}
		out = append(out, fmt.Sprintf("%s %s %s  %s",
			ui.Dim(fmt.Sprintf("%2d.", task.ID)), ui.C(color, box), title,
			ui.C(t.Muted, fmt.Sprintf("due %s · stake %s %s", chain.FormatDate(task.DueDate), task.Stake, symbol))))
	}
	return out
}

func groupLines(tasks []model.Task, symbol string) []string {
	t := ui.Current()
	var pend, done []model.Task
	for _, task := range tasks {
		if task.IsCompleted {
			done = append(done, task)
		} else {
			pend = append(pend, task)
		}
	}
	var lines []string
	lines = append(lines, ui.C(t.Accent, "Pending"))
	if len(pend) == 0 {
		lines = append(lines, ui.C(t.Muted, "(none)"))
	} else {
		lines = append(lines, flatLines(pend, symbol)...)
	}
	lines = append(lines, "")
	lines = append(lines, ui.C(t.Accent, "Completed"))
	if len(done) == 0 {
		lines = append(lines, ui.C(t.Muted, "(none)"))
	} else {
		lines = append(lines, flatLines(done, symbol)...)
	}
	return lines
}
