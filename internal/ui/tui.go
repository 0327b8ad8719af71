// Package ui provides the interactive terminal interface.
package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nibzard/taskflow/internal/export"
	"github.com/nibzard/taskflow/internal/task"
)

// TUIOption configures the TUI behavior.
type TUIOption func(*tuiConfig)

// tuiConfig holds TUI configuration.
type tuiConfig struct {
	exportDir string
	now       func() time.Time
}

// WithExportDir sets where the x key writes backup bundles.
func WithExportDir(dir string) TUIOption {
	return func(c *tuiConfig) {
		c.exportDir = dir
	}
}

// WithClock sets the clock used for deadlines and export names.
func WithClock(now func() time.Time) TUIOption {
	return func(c *tuiConfig) {
		if now != nil {
			c.now = now
		}
	}
}

// RunTUI starts the TUI over store.
func RunTUI(ctx context.Context, store *task.Store, opts ...TUIOption) error {
	if !IsTTY(os.Stdout) {
		return fmt.Errorf("tui requires a TTY")
	}
	model := newTUIModel(store, opts...)
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	return nil
}

type mode int

const (
	modeList mode = iota
	modeInput
	modeConfirm
)

// inputKind says what the text input is collecting.
type inputKind int

const (
	inputAdd inputKind = iota
	inputTitle
	inputSearch
	inputDeadline
)

type confirmKind int

const (
	confirmDelete confirmKind = iota
	confirmClear
)

var filterKeys = map[string]task.Filter{
	"0": task.FilterAll,
	"1": task.FilterPending,
	"2": task.FilterCompleted,
	"3": task.FilterHighPriority,
}

type tuiModel struct {
	store     *task.Store
	exporter  *export.Exporter
	exportDir string
	now       func() time.Time

	tasks  []task.Task // current view in display order
	cursor int
	filter task.Filter
	search string

	mode      mode
	input     textinput.Model
	inputKind inputKind
	targetID  string // task edited or pending deletion
	confirm   confirmKind
	status    string
	showHelp  bool
}

func newTUIModel(store *task.Store, opts ...TUIOption) *tuiModel {
	c := &tuiConfig{exportDir: ".", now: time.Now}
	for _, opt := range opts {
		opt(c)
	}

	ti := textinput.New()
	ti.CharLimit = 256
	ti.Width = 50

	m := &tuiModel{
		store:     store,
		exporter:  export.NewExporter(store, c.now),
		exportDir: c.exportDir,
		now:       c.now,
		filter:    task.FilterAll,
		input:     ti,
		status:    "Press a to add, space to toggle, d to delete, h for help.",
	}
	if err := store.LoadError(); err != nil {
		m.status = "Could not load saved tasks: " + err.Error()
	}
	m.refresh()
	return m
}

func (m *tuiModel) Init() tea.Cmd {
	return nil
}

func (m *tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch m.mode {
		case modeInput:
			return m.updateInput(msg)
		case modeConfirm:
			return m.updateConfirm(msg.String())
		default:
			return m.updateList(msg.String())
		}
	case tea.WindowSizeMsg:
		if msg.Width > 20 {
			m.input.Width = msg.Width - 20
		}
	}
	return m, nil
}

func (m *tuiModel) updateList(key string) (tea.Model, tea.Cmd) {
	if f, ok := filterKeys[key]; ok {
		m.filter = f
		m.refresh()
		m.status = "Filter: " + string(f)
		return m, nil
	}

	switch key {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "h", "?":
		m.showHelp = !m.showHelp
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		m.cursor = clampCursor(m.cursor+1, len(m.tasks))
	case "r":
		m.refresh()
		m.status = "Refreshed"
	case "/":
		return m.startInput(inputSearch, "", m.search, "Search title or category")
	case "a":
		return m.startInput(inputAdd, "", "", "Task title")
	case "e":
		if t, ok := m.current(); ok {
			return m.startInput(inputTitle, t.ID, t.Title, "Task title")
		}
		m.status = "No task to edit"
	case "t":
		if t, ok := m.current(); ok {
			value := ""
			if t.Deadline != nil {
				value = t.Deadline.String()
			}
			return m.startInput(inputDeadline, t.ID, value, "YYYY-MM-DD, empty clears")
		}
		m.status = "No task to edit"
	case "p":
		if t, ok := m.current(); ok {
			next := t.Priority.Next()
			updated, err := m.store.Update(t.ID, task.Patch{Priority: &next})
			m.afterMutation(updated.ID, err, "Priority: "+string(next))
		}
	case "c":
		if t, ok := m.current(); ok {
			next := m.nextCategory(t.Category)
			updated, err := m.store.Update(t.ID, task.Patch{Category: &next})
			m.afterMutation(updated.ID, err, "Category: "+next.Label())
		}
	case " ", "space", "enter":
		if t, ok := m.current(); ok {
			toggled, err := m.store.Toggle(t.ID)
			msg := "Marked pending"
			if toggled.Completed {
				msg = "Marked completed"
			}
			m.afterMutation(toggled.ID, err, msg)
		}
	case "d":
		if t, ok := m.current(); ok {
			m.mode = modeConfirm
			m.confirm = confirmDelete
			m.targetID = t.ID
			m.status = fmt.Sprintf("Delete %q? y/n", t.Title)
		}
	case "C":
		st := m.store.Stats()
		if st.Completed == 0 {
			m.status = "No completed tasks to clear"
			return m, nil
		}
		m.mode = modeConfirm
		m.confirm = confirmClear
		m.status = fmt.Sprintf("Remove %d completed %s? y/n", st.Completed, plural(st.Completed, "task", "tasks"))
	case "x":
		path, err := m.exporter.WriteFile(m.exportDir, export.FormatJSON)
		if err != nil {
			m.status = "Export failed: " + err.Error()
		} else {
			m.status = "Exported to " + path
		}
	}
	return m, nil
}

func (m *tuiModel) startInput(kind inputKind, id, value, placeholder string) (tea.Model, tea.Cmd) {
	m.mode = modeInput
	m.inputKind = kind
	m.targetID = id
	m.input.Placeholder = placeholder
	m.input.SetValue(value)
	m.input.CursorEnd()
	m.status = inputPrompt(kind) + " (enter to confirm, esc to cancel)"
	return m, m.input.Focus()
}

func (m *tuiModel) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "ctrl+c":
		m.endInput()
		m.status = "Cancelled"
		return m, nil
	case "enter":
		value := m.input.Value()
		kind, id := m.inputKind, m.targetID
		m.endInput()
		m.submitInput(kind, id, value)
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *tuiModel) endInput() {
	m.mode = modeList
	m.input.Blur()
	m.input.SetValue("")
	m.targetID = ""
}

func (m *tuiModel) submitInput(kind inputKind, id, value string) {
	switch kind {
	case inputSearch:
		m.search = strings.TrimSpace(value)
		m.refresh()
		if m.search == "" {
			m.status = "Search cleared"
		} else {
			m.status = fmt.Sprintf("Search: %q (%d found)", m.search, len(m.tasks))
		}
	case inputAdd:
		created, err := m.store.Add(value, "", "", nil)
		m.afterMutation(created.ID, err, "Added task")
	case inputTitle:
		updated, err := m.store.Update(id, task.Patch{Title: &value})
		m.afterMutation(updated.ID, err, "Title updated")
	case inputDeadline:
		var patch task.Patch
		msg := "Deadline cleared"
		if strings.TrimSpace(value) == "" {
			patch.ClearDeadline = true
		} else {
			d, err := task.ParseDate(value)
			if err != nil {
				m.status = err.Error()
				return
			}
			patch.Deadline = &d
			msg = "Deadline: " + d.String()
		}
		updated, err := m.store.Update(id, patch)
		m.afterMutation(updated.ID, err, msg)
	}
}

func (m *tuiModel) updateConfirm(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "y", "Y":
		m.mode = modeList
		switch m.confirm {
		case confirmDelete:
			err := m.store.Remove(m.targetID)
			m.afterMutation("", err, "Deleted task")
		case confirmClear:
			n, err := m.store.RemoveCompleted()
			m.afterMutation("", err, fmt.Sprintf("Removed %d completed %s", n, plural(n, "task", "tasks")))
		}
		m.targetID = ""
	case "n", "N", "esc", "ctrl+c":
		m.mode = modeList
		m.targetID = ""
		m.status = "Cancelled"
	}
	return m, nil
}

// afterMutation refreshes the view, keeps the cursor on id when it is still
// visible and reports the outcome in the status line.
func (m *tuiModel) afterMutation(id string, err error, ok string) {
	if err != nil && !task.IsPersistence(err) {
		m.status = "Error: " + err.Error()
		return
	}
	m.refresh()
	if id != "" {
		if i := slices.IndexFunc(m.tasks, func(t task.Task) bool { return t.ID == id }); i >= 0 {
			m.cursor = i
		}
	}
	if err != nil {
		m.status = ok + " (not saved: " + err.Error() + ")"
		return
	}
	m.status = ok
}

func (m *tuiModel) refresh() {
	m.tasks = m.store.List(m.filter, m.search)
	m.cursor = clampCursor(m.cursor, len(m.tasks))
}

func (m *tuiModel) current() (task.Task, bool) {
	if len(m.tasks) == 0 {
		m.status = "No tasks"
		return task.Task{}, false
	}
	return m.tasks[m.cursor], true
}

func (m *tuiModel) nextCategory(c task.Category) task.Category {
	cats := m.store.Categories()
	i := slices.Index(cats, c)
	return cats[(i+1)%len(cats)]
}

func clampCursor(cursor, n int) int {
	if n == 0 || cursor < 0 {
		return 0
	}
	if cursor >= n {
		return n - 1
	}
	return cursor
}

func inputPrompt(kind inputKind) string {
	switch kind {
	case inputAdd:
		return "New task"
	case inputTitle:
		return "Edit title"
	case inputSearch:
		return "Search"
	default:
		return "Deadline"
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

// IsTTY returns true if w is a terminal.
func IsTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
