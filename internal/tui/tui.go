// Package tui is the interactive terminal front end: an entry view with
// the connect affordance and a board view with the task form and list.
package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/idilsaglam/flashtask/internal/board"
	"github.com/idilsaglam/flashtask/internal/chain"
	"github.com/idilsaglam/flashtask/internal/model"
	"github.com/idilsaglam/flashtask/internal/wallet"
)

// Sessions is what the UI needs from the wallet session manager.
type Sessions interface {
	Connect(ctx context.Context) (*wallet.Session, error)
	Disconnect() error
	Network() chain.Network
}

// Board is what the UI needs from the task board controller.
type Board interface {
	Tasks() []model.Task
	LoadTasks(ctx context.Context, s *wallet.Session) ([]model.Task, error)
	CreateTask(ctx context.Context, s *wallet.Session, d *model.Draft) error
	Subscribe(ctx context.Context, s *wallet.Session, onChange func([]model.Task)) error
	Unsubscribe()
	Subscribed() bool
}

// Deps wires the UI to the rest of the program. Session is the restored
// session, nil when none was persisted.
type Deps struct {
	Ctx      context.Context
	Sessions Sessions
	Board    Board
	Session  *wallet.Session
	Logger   *slog.Logger
	// Copy writes to the system clipboard; defaults to atotto/clipboard.
	Copy func(string) error
}

type screen int

const (
	screenEntry screen = iota
	screenBoard
)

// form field order
const (
	fieldTitle = iota
	fieldDescription
	fieldDueDate
	fieldStake
	fieldCount
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusError
)

type modelTUI struct {
	ctx      context.Context
	sessions Sessions
	board    Board
	log      *slog.Logger
	copy     func(string) error
	network  chain.Network

	screen  screen
	session *wallet.Session
	tasks   []model.Task
	list    list.Model

	// inline task form
	adding  bool
	inputs  []textinput.Model
	focus   int
	formErr string

	showNetwork bool
	status      string
	statusKind  statusKind
	busy        bool
	spinner     spinner.Model

	updates chan []model.Task
	waiting bool

	width, height int
	keys          keyMap
}

// ------- messages -------

type connectedMsg struct{ session *wallet.Session }
type connectFailedMsg struct{ err error }
type disconnectedMsg struct{ err error }
type tasksLoadedMsg struct{ tasks []model.Task }
type tasksFailedMsg struct{ err error }
type taskAddedMsg struct{ tasks []model.Task }
type taskAddFailedMsg struct{ err error }
type boardUpdateMsg struct{ tasks []model.Task }
type subscribeFailedMsg struct{ err error }
type copiedMsg struct{ err error }

type keyMap struct {
	Connect, Help, Quit, Add, Reload, Disconnect, Copy key.Binding
	Next, Prev, Submit, Cancel                         key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Connect:    key.NewBinding(key.WithKeys("c", "enter"), key.WithHelp("c", "connect wallet")),
		Help:       key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "network setup")),
		Quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		Add:        key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "new task")),
		Reload:     key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		Disconnect: key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "disconnect")),
		Copy:       key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy address")),
		Next:       key.NewBinding(key.WithKeys("tab", "down"), key.WithHelp("tab", "next field")),
		Prev:       key.NewBinding(key.WithKeys("shift+tab", "up"), key.WithHelp("shift+tab", "previous field")),
		Submit:     key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "submit")),
		Cancel:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "close form")),
	}
}

// Run starts the program and blocks until the user quits.
func Run(d Deps) error {
	m := newModel(d)
	defer m.board.Unsubscribe()
	_, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(m.ctx)).Run()
	if errors.Is(err, tea.ErrProgramKilled) && m.ctx.Err() != nil {
		return nil
	}
	return err
}

func newModel(d Deps) modelTUI {
	ctx := d.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	log := d.Logger
	if log == nil {
		log = slog.Default()
	}
	cp := d.Copy
	if cp == nil {
		cp = clipboard.WriteAll
	}

	keys := newKeyMap()
	l := list.New(nil, taskDelegate{}, 0, 0)
	l.SetShowTitle(false)
	l.SetShowHelp(false)
	l.SetShowPagination(true)
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.Styles.PaginationStyle = helpStyle
	l.FilterInput.Prompt = "/ "
	l.SetStatusBarItemName("task", "tasks")

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = accentStyle

	m := modelTUI{
		ctx:      ctx,
		sessions: d.Sessions,
		board:    d.Board,
		log:      log.With("component", "tui"),
		copy:     cp,
		network:  d.Sessions.Network(),
		list:     l,
		inputs:   newInputs(),
		spinner:  sp,
		updates:  make(chan []model.Task, 1),
		width:    80,
		height:   24,
		keys:     keys,
	}
	m.setDraft(model.NewDraft())
	m.resize()
	if d.Session != nil {
		m.screen = screenBoard
		m.session = d.Session
		m.waiting = true
	}
	return m
}

func newInputs() []textinput.Model {
	inputs := make([]textinput.Model, fieldCount)
	for i := range inputs {
		ti := textinput.New()
		ti.Prompt = "> "
		ti.CharLimit = 200
		inputs[i] = ti
	}
	inputs[fieldTitle].Placeholder = "Title"
	inputs[fieldDescription].Placeholder = "Description"
	inputs[fieldDueDate].Placeholder = "Due date (YYYY-MM-DD)"
	inputs[fieldDueDate].CharLimit = len(chain.DateLayout)
	inputs[fieldStake].Placeholder = "Stake"
	inputs[fieldStake].CharLimit = 40
	return inputs
}

func (m *modelTUI) draft() model.Draft {
	return model.Draft{
		Title:       m.inputs[fieldTitle].Value(),
		Description: m.inputs[fieldDescription].Value(),
		DueDate:     m.inputs[fieldDueDate].Value(),
		Stake:       m.inputs[fieldStake].Value(),
	}
}

func (m *modelTUI) setDraft(d model.Draft) {
	m.inputs[fieldTitle].SetValue(d.Title)
	m.inputs[fieldDescription].SetValue(d.Description)
	m.inputs[fieldDueDate].SetValue(d.DueDate)
	m.inputs[fieldStake].SetValue(d.Stake)
}

func (m *modelTUI) setStatus(kind statusKind, msg string) {
	m.status, m.statusKind = msg, kind
}

func (m *modelTUI) setTasks(tasks []model.Task) tea.Cmd {
	m.tasks = tasks
	return m.list.SetItems(toItems(tasks, m.network.CurrencySymbol))
}

// ------- commands -------

func (m modelTUI) connectCmd() tea.Cmd {
	sessions, ctx := m.sessions, m.ctx
	return func() tea.Msg {
		s, err := sessions.Connect(ctx)
		if err != nil {
			return connectFailedMsg{err}
		}
		return connectedMsg{s}
	}
}

func (m modelTUI) disconnectCmd() tea.Cmd {
	sessions, b := m.sessions, m.board
	return func() tea.Msg {
		b.Unsubscribe()
		return disconnectedMsg{sessions.Disconnect()}
	}
}

func (m modelTUI) loadCmd() tea.Cmd {
	b, ctx, s := m.board, m.ctx, m.session
	return func() tea.Msg {
		tasks, err := b.LoadTasks(ctx, s)
		if err != nil {
			return tasksFailedMsg{err}
		}
		return tasksLoadedMsg{tasks}
	}
}

func (m modelTUI) createCmd(d model.Draft) tea.Cmd {
	b, ctx, s := m.board, m.ctx, m.session
	return func() tea.Msg {
		if err := b.CreateTask(ctx, s, &d); err != nil {
			return taskAddFailedMsg{err}
		}
		return taskAddedMsg{b.Tasks()}
	}
}

func (m modelTUI) subscribeCmd() tea.Cmd {
	b, ctx, s, ch := m.board, m.ctx, m.session, m.updates
	return func() tea.Msg {
		err := b.Subscribe(ctx, s, func(tasks []model.Task) {
			// keep only the newest list
			for {
				select {
				case ch <- tasks:
					return
				default:
					select {
					case <-ch:
					default:
					}
				}
			}
		})
		if err != nil {
			return subscribeFailedMsg{err}
		}
		return nil
	}
}

func waitForUpdate(ch <-chan []model.Task) tea.Cmd {
	return func() tea.Msg {
		tasks, ok := <-ch
		if !ok {
			return nil
		}
		return boardUpdateMsg{tasks}
	}
}

func (m modelTUI) copyCmd(text string) tea.Cmd {
	cp := m.copy
	return func() tea.Msg { return copiedMsg{cp(text)} }
}

// enterBoard loads the list and starts live updates for the session.
func (m *modelTUI) enterBoard() tea.Cmd {
	m.screen = screenBoard
	cmds := []tea.Cmd{m.loadCmd(), m.subscribeCmd()}
	if !m.waiting {
		m.waiting = true
		cmds = append(cmds, waitForUpdate(m.updates))
	}
	return tea.Batch(cmds...)
}

// ------- Bubble Tea -------

// Init starts the board for a restored session; newModel has already
// switched the screen and armed the update waiter.
func (m modelTUI) Init() tea.Cmd {
	if m.session == nil {
		return nil
	}
	return tea.Batch(m.loadCmd(), m.subscribeCmd(), waitForUpdate(m.updates))
}

func (m modelTUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		return m, nil

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case connectedMsg:
		m.busy = false
		m.session = msg.session
		m.showNetwork = false
		m.setStatus(statusOK, "Connected "+msg.session.Short())
		return m, m.enterBoard()

	case connectFailedMsg:
		m.busy = false
		var switchErr *wallet.NetworkSwitchError
		switch {
		case errors.Is(msg.err, wallet.ErrProviderAbsent):
			m.setStatus(statusError, "No wallet provider found!")
		case errors.As(msg.err, &switchErr):
			m.setStatus(statusError, fmt.Sprintf("Could not switch to the %s network. See the instructions below.", m.network.Name))
			m.showNetwork = true
		case errors.Is(msg.err, wallet.ErrUserRejected):
			m.setStatus(statusInfo, "Connection request rejected in wallet.")
		default:
			m.setStatus(statusError, "Could not connect wallet.")
		}
		return m, nil

	case disconnectedMsg:
		m.screen = screenEntry
		m.session = nil
		m.adding = false
		m.busy = false
		cmd := m.setTasks(nil)
		if msg.err != nil {
			m.setStatus(statusError, "Disconnected, but the session file could not be cleared.")
		} else {
			m.setStatus(statusInfo, "Wallet disconnected.")
		}
		return m, cmd

	case tasksLoadedMsg:
		if m.session == nil {
			return m, nil
		}
		return m, m.setTasks(msg.tasks)

	case tasksFailedMsg:
		// logged by the board; the previous list stays on screen
		return m, nil

	case boardUpdateMsg:
		if m.screen != screenBoard {
			m.waiting = false
			return m, nil
		}
		return m, tea.Batch(m.setTasks(msg.tasks), waitForUpdate(m.updates))

	case subscribeFailedMsg:
		m.log.Warn("live updates unavailable", "err", msg.err)
		return m, nil

	case taskAddedMsg:
		m.busy = false
		m.adding = false
		m.formErr = ""
		m.setDraft(model.NewDraft())
		m.blurInputs()
		m.resize()
		m.setStatus(statusOK, "Task added!")
		if m.session == nil {
			return m, nil
		}
		return m, m.setTasks(msg.tasks)

	case taskAddFailedMsg:
		m.busy = false
		if errors.Is(msg.err, board.ErrInvalidDraft) {
			m.formErr = msg.err.Error()
			return m, nil
		}
		m.setStatus(statusError, "Could not add task.")
		return m, nil

	case copiedMsg:
		if msg.err != nil {
			m.log.Warn("clipboard", "err", msg.err)
			m.setStatus(statusError, "Clipboard unavailable.")
		} else {
			m.setStatus(statusOK, "Address copied.")
		}
		return m, nil

	case tea.KeyMsg:
		if m.screen == screenEntry {
			return m.updateEntry(msg)
		}
		if m.adding {
			return m.updateForm(msg)
		}
		return m.updateBoard(msg)
	}

	if m.screen == screenBoard && !m.adding {
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m modelTUI) updateEntry(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.showNetwork = !m.showNetwork
		return m, nil
	case key.Matches(msg, m.keys.Connect):
		if m.busy {
			return m, nil
		}
		m.busy = true
		m.setStatus(statusInfo, "Waiting for wallet...")
		return m, tea.Batch(m.connectCmd(), m.spinner.Tick)
	}
	return m, nil
}

func (m modelTUI) updateBoard(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// while filtering, keys belong to the filter input
	if m.list.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd
	}
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Add):
		m.adding = true
		m.formErr = ""
		m.focus = fieldTitle
		m.resize()
		return m, m.focusInput()
	case key.Matches(msg, m.keys.Reload):
		// reload also restarts live updates the node has dropped
		if !m.board.Subscribed() {
			return m, tea.Batch(m.loadCmd(), m.subscribeCmd())
		}
		return m, m.loadCmd()
	case key.Matches(msg, m.keys.Disconnect):
		return m, m.disconnectCmd()
	case key.Matches(msg, m.keys.Copy):
		return m, m.copyCmd(m.session.Address().Hex())
	}
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m modelTUI) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.busy {
		return m, nil
	}
	switch {
	case msg.String() == "ctrl+c":
		return m, tea.Quit
	case key.Matches(msg, m.keys.Cancel):
		// the draft stays in the inputs for later
		m.adding = false
		m.blurInputs()
		m.resize()
		return m, nil
	case key.Matches(msg, m.keys.Next):
		m.focus = (m.focus + 1) % fieldCount
		return m, m.focusInput()
	case key.Matches(msg, m.keys.Prev):
		m.focus = (m.focus + fieldCount - 1) % fieldCount
		return m, m.focusInput()
	case key.Matches(msg, m.keys.Submit), msg.String() == "enter" && m.focus == fieldStake:
		return m.submit()
	case msg.String() == "enter":
		m.focus++
		return m, m.focusInput()
	}
	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m modelTUI) submit() (tea.Model, tea.Cmd) {
	d := m.draft()
	if missing := d.Missing(); len(missing) > 0 {
		m.formErr = "Missing " + strings.Join(missing, ", ")
		return m, nil
	}
	m.formErr = ""
	m.busy = true
	m.setStatus(statusInfo, "Confirm the transaction in your wallet...")
	return m, tea.Batch(m.createCmd(d), m.spinner.Tick)
}

func (m *modelTUI) focusInput() tea.Cmd {
	var cmd tea.Cmd
	for i := range m.inputs {
		if i == m.focus {
			cmd = m.inputs[i].Focus()
		} else {
			m.inputs[i].Blur()
		}
	}
	return cmd
}

func (m *modelTUI) blurInputs() {
	for i := range m.inputs {
		m.inputs[i].Blur()
	}
}

// ------- view -------

func (m modelTUI) View() string {
	var content string
	if m.screen == screenEntry {
		content = m.entryView()
	} else {
		content = m.boardView()
	}
	return frameStyle.Render(content)
}

func (m modelTUI) entryView() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("flashtask"))
	b.WriteString("\n\n")
	b.WriteString(fmt.Sprintf("Connect a wallet to manage staked tasks on %s.\n\n", accentStyle.Render(m.network.Name)))
	if m.busy {
		b.WriteString(m.spinner.View() + " ")
	}
	b.WriteString(m.statusLine())
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("c connect wallet · ? add custom network manually · q quit"))
	if m.showNetwork {
		b.WriteString("\n\n")
		b.WriteString(m.networkPanel())
	}
	return b.String()
}

func (m modelTUI) networkPanel() string {
	lines := []string{titleStyle.Render("Add custom network " + m.network.ShortName + " in your wallet")}
	lines = append(lines, m.network.ManualSetup()...)
	return infoStyle.Render(strings.Join(lines, "\n"))
}

func (m modelTUI) boardView() string {
	done, pending := model.Stats(m.tasks)
	header := fmt.Sprintf("%s   %s %d  %s %d  %s %d",
		titleStyle.Render("Tasks"),
		successStyle.Render("✔"), done,
		pendingStyle.Render("•"), pending,
		accentStyle.Render("Total"), len(m.tasks),
	)
	addr := ""
	if m.session != nil {
		addr = mutedStyle.Render(m.session.Address().Hex())
	}
	gap := m.width - 4 - lipgloss.Width(header) - lipgloss.Width(addr)
	if gap < 2 {
		gap = 2
	}
	top := header + strings.Repeat(" ", gap) + addr

	body := m.list.View()
	if len(m.tasks) == 0 {
		body = mutedStyle.Render("No tasks found.")
	}

	parts := []string{top, "", body}
	if m.adding {
		parts = append(parts, m.formView())
	}
	status := m.statusLine()
	if m.busy {
		status = m.spinner.View() + " " + status
	}
	parts = append(parts, status, helpStyle.Render(m.helpLine()))
	return strings.Join(parts, "\n")
}

// formHeight is the rendered height of formView: border, title, inputs.
const formHeight = fieldCount + 3

// resize fits the list between the header and the status lines.
func (m *modelTUI) resize() {
	h := m.height - 8
	if m.adding {
		h -= formHeight
	}
	if h < 3 {
		h = 3
	}
	w := m.width - 4
	if w < 20 {
		w = 20
	}
	m.list.SetSize(w, h)
}

func (m modelTUI) formView() string {
	labels := []string{"Title", "Description", "Due date", "Stake (" + m.network.CurrencySymbol + ")"}
	var lines []string
	title := "New task"
	if m.formErr != "" {
		title += " · " + errorStyle.Render(m.formErr)
	}
	lines = append(lines, title)
	for i, in := range m.inputs {
		lines = append(lines, fmt.Sprintf("%-14s %s", labels[i], in.View()))
	}
	return frameStyle.Render(strings.Join(lines, "\n"))
}

func (m modelTUI) statusLine() string {
	switch m.statusKind {
	case statusOK:
		return successStyle.Render(m.status)
	case statusError:
		return errorStyle.Render(m.status)
	}
	return m.status
}

func (m modelTUI) helpLine() string {
	if m.adding {
		return "tab next · shift+tab previous · enter/ctrl+s submit · esc close"
	}
	return "a new task · r reload · y copy address · / filter · x disconnect · q quit"
}
