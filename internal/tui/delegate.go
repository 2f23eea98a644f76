package tui

import (
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/idilsaglam/flashtask/internal/chain"
	"github.com/idilsaglam/flashtask/internal/model"
)

// taskItem adapts model.Task to bubbles/list.Item.
type taskItem struct {
	task   model.Task
	symbol string
}

func (i taskItem) Title() string       { return i.task.Title }
func (i taskItem) Description() string { return i.task.Description }
func (i taskItem) FilterValue() string { return i.task.Title + " " + i.task.Description }

func toItems(tasks []model.Task, symbol string) []list.Item {
	out := make([]list.Item, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, taskItem{task: t, symbol: symbol})
	}
	return out
}

// taskDelegate renders a task on three lines: title, description, facts.
type taskDelegate struct{}

func (d taskDelegate) Height() int                               { return 3 }
func (d taskDelegate) Spacing() int                              { return 1 }
func (d taskDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }
func (d taskDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, ok := item.(taskItem)
	if !ok {
		return
	}
	t := it.task

	box := mutedStyle.Render(boxUnchecked)
	title := titleStyle.Render(t.Title)
	status := pendingStyle.Render("pending")
	if t.IsCompleted {
		box = successStyle.Render(boxChecked)
		title = doneStyle.Render(t.Title)
		status = successStyle.Render("completed")
	}

	prefix := "  "
	if index == m.Index() {
		prefix = selectedStyle.Render("> ")
	}
	facts := fmt.Sprintf("due %s · stake %s %s · %s",
		chain.FormatDate(t.DueDate), t.Stake, it.symbol, status)

	fmt.Fprintf(w, "%s%s %s\n", prefix, box, title)
	fmt.Fprintf(w, "    %s\n", mutedStyle.Render(t.Description))
	fmt.Fprintf(w, "    %s", facts)
}
