package ui

import (
	"fmt"
	"strings"

	"github.com/nibzard/taskflow/internal/task"
	"github.com/nibzard/taskflow/internal/utils"
)

const titleWidth = 48

func (m *tuiModel) View() string {
	var b strings.Builder
	writeTitle(&b)

	if m.showHelp {
		writeHelp(&b)
		writeFooter(&b)
		return b.String()
	}

	writeStats(&b, m.store.Stats())
	writeFilter(&b, m.filter, m.search)
	writeTasks(&b, m.tasks, m.cursor, task.DateOf(m.now()))

	switch m.mode {
	case modeInput:
		b.WriteString(inputPrompt(m.inputKind) + ": " + m.input.View() + "\n\n")
	case modeConfirm:
		b.WriteString("Confirm: y/n\n\n")
	}

	if m.status != "" {
		b.WriteString(m.status + "\n")
	}
	writeFooter(&b)
	return b.String()
}

func writeTitle(b *strings.Builder) {
	title := "TaskFlow"
	b.WriteString(title + "\n")
	b.WriteString(strings.Repeat("=", len(title)) + "\n\n")
}

func writeStats(b *strings.Builder, st task.Stats) {
	fmt.Fprintf(b, "  Total: %d  Completed: %d  Pending: %d\n\n", st.Total, st.Completed, st.Pending())
}

func writeFilter(b *strings.Builder, f task.Filter, search string) {
	if f == task.FilterAll && search == "" {
		return
	}
	line := "Filter: " + string(f)
	if search != "" {
		line += fmt.Sprintf("  Search: %q", search)
	}
	b.WriteString(line + " (0 to show all, / to change search)\n\n")
}

func writeTasks(b *strings.Builder, tasks []task.Task, cursor int, today task.Date) {
	if len(tasks) == 0 {
		b.WriteString("  No tasks here. Press a to add one.\n\n")
		return
	}
	for i, t := range tasks {
		pointer := " "
		if i == cursor {
			pointer = ">"
		}
		b.WriteString(pointer + " " + formatTask(t, today) + "\n")
	}
	b.WriteString("\n")
}

func formatTask(t task.Task, today task.Date) string {
	check := "[ ]"
	if t.Completed {
		check = "[x]"
	}
	line := fmt.Sprintf("%s %-*s %-6s %s", check, titleWidth, utils.Truncate(t.Title, titleWidth), t.Priority, t.Category.Label())
	if t.Deadline != nil {
		line += "  " + t.Deadline.String()
		if !t.Completed {
			if info := t.DeadlineOn(today); info.State != task.DeadlineUpcoming {
				line += " (" + info.String() + ")"
			}
		}
	}
	return line
}

func writeHelp(b *strings.Builder) {
	b.WriteString("Keyboard Shortcuts\n\n")
	b.WriteString("  q, ctrl+c    Quit\n")
	b.WriteString("  up/k down/j  Move\n")
	b.WriteString("  a            Add task\n")
	b.WriteString("  e            Edit title\n")
	b.WriteString("  p            Cycle priority\n")
	b.WriteString("  c            Cycle category\n")
	b.WriteString("  t            Set or clear deadline\n")
	b.WriteString("  space        Toggle completed\n")
	b.WriteString("  d            Delete task\n")
	b.WriteString("  C            Clear completed tasks\n")
	b.WriteString("  /            Search\n")
	b.WriteString("  0-3          Filter: all, pending, completed, high priority\n")
	b.WriteString("  x            Export backup\n")
	b.WriteString("  r            Refresh\n")
	b.WriteString("  h, ?         Toggle this help screen\n\n")
}

func writeFooter(b *strings.Builder) {
	b.WriteString("Press h for help | q to quit\n")
}
