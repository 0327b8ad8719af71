package ui

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nibzard/taskflow/internal/storage"
	"github.com/nibzard/taskflow/internal/task"
)

var tuiDay = time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)

func newModel(t *testing.T, titles ...string) (*tuiModel, *storage.Memory) {
	t.Helper()
	backend := storage.NewMemory(nil)
	n := 0
	clock := tuiDay
	store := task.Open(backend,
		task.WithIDGenerator(func() string { n++; return fmt.Sprintf("T%d", n) }),
		task.WithClock(func() time.Time { clock = clock.Add(time.Second); return clock }),
	)
	for _, title := range titles {
		if _, err := store.Add(title, "", "", nil); err != nil {
			t.Fatal(err)
		}
	}
	m := newTUIModel(store, WithExportDir(t.TempDir()), WithClock(func() time.Time { return tuiDay }))
	return m, backend
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(m *tuiModel, msgs ...tea.Msg) {
	for _, msg := range msgs {
		m.Update(msg)
	}
}

var (
	enter = tea.KeyMsg{Type: tea.KeyEnter}
	esc   = tea.KeyMsg{Type: tea.KeyEsc}
	space = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	down  = tea.KeyMsg{Type: tea.KeyDown}
)

func titles(m *tuiModel) []string {
	out := make([]string, len(m.tasks))
	for i, t := range m.tasks {
		out[i] = t.Title
	}
	return out
}

func TestAddTask(t *testing.T) {
	m, backend := newModel(t)

	press(m, runes("a"))
	if m.mode != modeInput || m.inputKind != inputAdd {
		t.Fatalf("a should open the add input, mode=%v", m.mode)
	}
	press(m, runes("Buy milk"), enter)

	if m.mode != modeList {
		t.Errorf("mode = %v, want list", m.mode)
	}
	if got := titles(m); len(got) != 1 || got[0] != "Buy milk" {
		t.Fatalf("tasks = %v", got)
	}
	if m.tasks[0].Priority != task.PriorityMedium || m.tasks[0].Category != task.CategoryPersonal {
		t.Errorf("defaults not applied: %+v", m.tasks[0])
	}
	if backend.Saves() != 1 {
		t.Errorf("saves = %d, want 1", backend.Saves())
	}
}

func TestAddEmptyTitle(t *testing.T) {
	m, _ := newModel(t)
	press(m, runes("a"), enter)
	if len(m.tasks) != 0 {
		t.Errorf("empty title added a task")
	}
	if !strings.Contains(m.status, "title") {
		t.Errorf("status = %q, want a title error", m.status)
	}
}

func TestCancelInput(t *testing.T) {
	m, _ := newModel(t)
	press(m, runes("a"), runes("draft"), esc)
	if m.mode != modeList || len(m.tasks) != 0 || m.input.Value() != "" {
		t.Errorf("esc should discard input: mode=%v tasks=%d value=%q", m.mode, len(m.tasks), m.input.Value())
	}
}

func TestToggleAndOrder(t *testing.T) {
	m, _ := newModel(t, "first", "second")

	press(m, space)
	// Completed tasks sort last; the cursor follows the toggled task.
	if got := titles(m); strings.Join(got, ",") != "second,first" {
		t.Fatalf("order = %v", got)
	}
	if m.cursor != 1 || !m.tasks[1].Completed {
		t.Errorf("cursor = %d, task = %+v", m.cursor, m.tasks[m.cursor])
	}
	if st := m.store.Stats(); st.Completed != 1 {
		t.Errorf("Stats = %+v", st)
	}
}

func TestFilterKeys(t *testing.T) {
	m, _ := newModel(t, "a", "b", "c")
	press(m, space) // complete "a"

	tests := []struct {
		key  string
		f    task.Filter
		want int
	}{
		{"1", task.FilterPending, 2},
		{"2", task.FilterCompleted, 1},
		{"3", task.FilterHighPriority, 0},
		{"0", task.FilterAll, 3},
	}
	for _, tt := range tests {
		press(m, runes(tt.key))
		if m.filter != tt.f || len(m.tasks) != tt.want {
			t.Errorf("key %s: filter=%s tasks=%d, want %s/%d", tt.key, m.filter, len(m.tasks), tt.f, tt.want)
		}
	}
}

func TestSearch(t *testing.T) {
	m, _ := newModel(t, "Pay rent", "Call mom", "Pay taxes")
	press(m, runes("/"), runes("  PAY "), enter)
	if m.search != "PAY" || len(m.tasks) != 2 {
		t.Fatalf("search=%q tasks=%v", m.search, titles(m))
	}
	press(m, runes("/"))
	if m.input.Value() != "PAY" {
		t.Errorf("search input should be prefilled, got %q", m.input.Value())
	}
	press(m, tea.KeyMsg{Type: tea.KeyCtrlU}, enter)
	if m.search != "" || len(m.tasks) != 3 {
		t.Errorf("clearing search: search=%q tasks=%d", m.search, len(m.tasks))
	}
}

func TestEditTitle(t *testing.T) {
	m, _ := newModel(t, "draft")
	press(m, runes("e"))
	if m.input.Value() != "draft" {
		t.Fatalf("edit input = %q, want prefilled title", m.input.Value())
	}
	press(m, runes(" v2"), enter)
	if got := m.tasks[0].Title; got != "draft v2" {
		t.Errorf("title = %q", got)
	}
}

func TestCyclePriorityAndCategory(t *testing.T) {
	m, _ := newModel(t, "x")
	press(m, runes("p"))
	if got := m.tasks[0].Priority; got != task.PriorityLow {
		t.Errorf("after p: %s, want low", got)
	}
	press(m, runes("p"))
	if got := m.tasks[0].Priority; got != task.PriorityHigh {
		t.Errorf("after p p: %s, want high", got)
	}
	press(m, runes("c"))
	if got := m.tasks[0].Category; got != task.CategoryWork {
		t.Errorf("after c: %s, want work", got)
	}
}

func TestDeadline(t *testing.T) {
	m, _ := newModel(t, "x")
	press(m, runes("t"), runes("2026-10-15"), enter)
	if d := m.tasks[0].Deadline; d == nil || d.String() != "2026-10-15" {
		t.Fatalf("deadline = %v", d)
	}
	if view := m.View(); !strings.Contains(view, "(tomorrow)") {
		t.Errorf("view should show deadline info:\n%s", view)
	}

	press(m, runes("t"), runes("soon"))
	press(m, tea.KeyMsg{Type: tea.KeyCtrlU}, runes("soon"), enter)
	if !strings.Contains(m.status, "invalid date") {
		t.Errorf("status = %q", m.status)
	}

	press(m, runes("t"), tea.KeyMsg{Type: tea.KeyCtrlU}, enter)
	if m.tasks[0].Deadline != nil {
		t.Error("empty deadline should clear")
	}
}

func TestDeleteConfirm(t *testing.T) {
	m, _ := newModel(t, "keep", "drop")
	press(m, down, runes("d"))
	if m.mode != modeConfirm || !strings.Contains(m.status, `"drop"`) {
		t.Fatalf("mode=%v status=%q", m.mode, m.status)
	}
	press(m, runes("n"))
	if len(m.tasks) != 2 {
		t.Fatal("n must not delete")
	}

	press(m, runes("d"), runes("y"))
	if got := titles(m); len(got) != 1 || got[0] != "keep" {
		t.Errorf("tasks = %v", got)
	}
	if m.cursor != 0 {
		t.Errorf("cursor = %d, want clamped to 0", m.cursor)
	}
}

func TestClearCompleted(t *testing.T) {
	m, _ := newModel(t, "a", "b")

	press(m, runes("C"))
	if m.mode != modeList || !strings.Contains(m.status, "No completed") {
		t.Fatalf("nothing completed: mode=%v status=%q", m.mode, m.status)
	}

	press(m, space, runes("C"))
	if m.mode != modeConfirm {
		t.Fatal("C should ask for confirmation")
	}
	press(m, runes("y"))
	if len(m.tasks) != 1 || !strings.Contains(m.status, "Removed 1 completed task") {
		t.Errorf("tasks=%v status=%q", titles(m), m.status)
	}
}

func TestExport(t *testing.T) {
	m, _ := newModel(t, "a")
	press(m, runes("x"))
	want := filepath.Join(m.exportDir, "taskflow_backup_2026-10-14.json")
	if _, err := os.Stat(want); err != nil {
		t.Fatalf("export file: %v (status %q)", err, m.status)
	}
	if !strings.Contains(m.status, want) {
		t.Errorf("status = %q", m.status)
	}
}

func TestSaveFailureKeepsChange(t *testing.T) {
	m, backend := newModel(t)
	backend.FailSaves(errors.New("disk full"))
	press(m, runes("a"), runes("offline"), enter)
	if len(m.tasks) != 1 {
		t.Fatal("task should stay in memory")
	}
	if !strings.Contains(m.status, "not saved") {
		t.Errorf("status = %q", m.status)
	}
}

func TestViewAndQuit(t *testing.T) {
	m, _ := newModel(t, "Write report")
	view := m.View()
	for _, want := range []string{"TaskFlow", "Total: 1  Completed: 0  Pending: 1", "> [ ] Write report", "Personal"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}

	press(m, runes("h"))
	if !strings.Contains(m.View(), "Keyboard Shortcuts") {
		t.Error("h should show help")
	}

	_, cmd := m.Update(runes("q"))
	if cmd == nil {
		t.Fatal("q should return a command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should quit")
	}
}

func TestIsTTY(t *testing.T) {
	if IsTTY(&strings.Builder{}) {
		t.Error("a builder is not a TTY")
	}
	f, err := os.CreateTemp(t.TempDir(), "out")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if IsTTY(f) {
		t.Error("a regular file is not a TTY")
	}
}
