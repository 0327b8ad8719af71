package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/nibzard/taskflow/internal/config"
	"github.com/nibzard/taskflow/internal/export"
	"github.com/nibzard/taskflow/internal/server"
	"github.com/nibzard/taskflow/internal/task"
	"github.com/nibzard/taskflow/internal/ui"
	"github.com/nibzard/taskflow/internal/utils"
)

const shortIDLen = 8

// now is replaced in tests.
var now = time.Now

// addCommand creates a task from the remaining words.
func addCommand(s *task.Store, args []string) error {
	fs := newFlagSet("add")
	priority := fs.String("p", "", "Priority: high, medium or low (default medium)")
	category := fs.String("c", "", "Category (default personal)")
	due := fs.String("due", "", "Deadline (YYYY-MM-DD)")
	words, err := parseArgs(fs, args)
	if err != nil {
		return err
	}

	var p task.Priority
	if *priority != "" {
		if p, err = task.ParsePriority(*priority); err != nil {
			return &task.ValidationError{Field: "priority", Err: err}
		}
	}
	deadline, err := parseDeadline(*due)
	if err != nil {
		return err
	}

	created, err := s.Add(strings.Join(words, " "), p, task.Category(*category), deadline)
	if err != nil && !task.IsPersistence(err) {
		return err
	}
	fmt.Fprintf(stdout, "Added %s: %s\n", utils.ShortID(created.ID, shortIDLen), created.Title)
	return reportSave(err)
}

// lsCommand lists tasks in display order.
func lsCommand(s *task.Store, args []string) error {
	fs := newFlagSet("ls")
	filterName := fs.String("filter", "", "Filter: all, pending, completed, high")
	search := fs.String("q", "", "Only tasks whose title or category contains this text")
	asJSON := fs.Bool("json", false, "Print tasks as JSON")
	verbose := fs.Bool("l", false, "Show full ids and timestamps")
	rest, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	if len(rest) > 1 {
		return fmt.Errorf("unexpected arguments: %v", rest[1:])
	}
	if len(rest) == 1 && *filterName == "" {
		*filterName = rest[0]
	}
	filter, err := task.ParseFilter(*filterName)
	if err != nil {
		return &task.ValidationError{Field: "filter", Err: err}
	}

	tasks := s.List(filter, *search)
	if *asJSON {
		if tasks == nil {
			tasks = []task.Task{}
		}
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(tasks)
	}

	if len(tasks) == 0 {
		fmt.Fprintln(stdout, "No tasks.")
		return nil
	}
	today := task.DateOf(now())
	for _, t := range tasks {
		printTask(t, today, *verbose)
	}
	st := s.Stats()
	fmt.Fprintf(stdout, "\n%d shown, %d total, %d completed, %d pending\n", len(tasks), st.Total, st.Completed, st.Pending())
	return nil
}

func printTask(t task.Task, today task.Date, verbose bool) {
	check := "[ ]"
	if t.Completed {
		check = "[x]"
	}
	id := utils.ShortID(t.ID, shortIDLen)
	if verbose {
		id = t.ID
	}
	line := fmt.Sprintf("%s %-8s %-6s %-9s %s", check, id, t.Priority, t.Category.Label(), t.Title)
	if t.Deadline != nil {
		line += "  due " + t.Deadline.String()
		if info := t.DeadlineOn(today); !t.Completed && info.State != task.DeadlineUpcoming {
			line += " (" + info.String() + ")"
		}
	}
	fmt.Fprintln(stdout, line)
	if verbose {
		fmt.Fprintf(stdout, "      created %s  updated %s\n",
			t.CreatedAt.Format(time.RFC3339), t.UpdatedAt.Format(time.RFC3339))
	}
}

// showCommand prints every field of one task.
func showCommand(s *task.Store, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: taskflow show <id>")
	}
	t, err := resolveID(s, args[0])
	if err != nil {
		return err
	}
	status := "pending"
	if t.Completed {
		status = "completed"
	}
	deadline := "none"
	if t.Deadline != nil {
		deadline = t.Deadline.String()
		if info := t.DeadlineOn(task.DateOf(now())); !t.Completed {
			deadline += " (" + info.String() + ")"
		}
	}
	fmt.Fprintf(stdout, "ID:        %s\n", t.ID)
	fmt.Fprintf(stdout, "Title:     %s\n", t.Title)
	fmt.Fprintf(stdout, "Status:    %s\n", status)
	fmt.Fprintf(stdout, "Priority:  %s\n", t.Priority)
	fmt.Fprintf(stdout, "Category:  %s\n", t.Category.Label())
	fmt.Fprintf(stdout, "Deadline:  %s\n", deadline)
	fmt.Fprintf(stdout, "Created:   %s\n", t.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(stdout, "Updated:   %s\n", t.UpdatedAt.Format(time.RFC3339))
	return nil
}

// editCommand applies the given flags to one task.
func editCommand(s *task.Store, args []string) error {
	fs := newFlagSet("edit")
	var title, priority, category, due optionalString
	fs.Var(&title, "title", "New title")
	fs.Var(&priority, "p", "New priority")
	fs.Var(&category, "c", "New category")
	fs.Var(&due, "due", "New deadline (YYYY-MM-DD)")
	noDue := fs.Bool("no-due", false, "Remove the deadline")
	rest, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	if len(rest) < 1 {
		return errors.New("usage: taskflow edit <id> [-title text] [-p priority] [-c category] [-due date | -no-due]")
	}
	t, err := resolveID(s, rest[0])
	if err != nil {
		return err
	}

	var patch task.Patch
	if len(rest) > 1 && !title.set {
		// Extra words replace the title.
		title.Set(strings.Join(rest[1:], " "))
	}
	if title.set {
		patch.Title = &title.value
	}
	if priority.set {
		p, err := task.ParsePriority(priority.value)
		if err != nil {
			return &task.ValidationError{Field: "priority", Err: err}
		}
		patch.Priority = &p
	}
	if category.set {
		c := task.Category(category.value)
		patch.Category = &c
	}
	if due.set && *noDue {
		return errors.New("-due and -no-due cannot be combined")
	}
	if due.set {
		d, err := parseDeadline(due.value)
		if err != nil {
			return err
		}
		if d == nil {
			patch.ClearDeadline = true
		} else {
			patch.Deadline = d
		}
	}
	patch.ClearDeadline = patch.ClearDeadline || *noDue
	if patch.IsEmpty() {
		return errors.New("nothing to change")
	}

	updated, err := s.Update(t.ID, patch)
	if err != nil && !task.IsPersistence(err) {
		return err
	}
	fmt.Fprintf(stdout, "Updated %s: %s\n", utils.ShortID(updated.ID, shortIDLen), updated.Title)
	return reportSave(err)
}

// toggleCommand flips the completed flag of each given task.
func toggleCommand(s *task.Store, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: taskflow toggle <id>...")
	}
	for _, arg := range args {
		t, err := resolveID(s, arg)
		if err != nil {
			return err
		}
		toggled, err := s.Toggle(t.ID)
		if err != nil && !task.IsPersistence(err) {
			return err
		}
		state := "pending"
		if toggled.Completed {
			state = "completed"
		}
		fmt.Fprintf(stdout, "Marked %s %s: %s\n", utils.ShortID(toggled.ID, shortIDLen), state, toggled.Title)
		if err := reportSave(err); err != nil {
			return err
		}
	}
	return nil
}

// rmCommand deletes one task after confirmation.
func rmCommand(s *task.Store, args []string) error {
	fs := newFlagSet("rm")
	yes := fs.Bool("y", false, "Do not ask for confirmation")
	rest, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	if len(rest) != 1 {
		return errors.New("usage: taskflow rm [-y] <id>")
	}
	t, err := resolveID(s, rest[0])
	if err != nil {
		return err
	}
	if !*yes && !confirm(fmt.Sprintf("Delete %q?", t.Title)) {
		fmt.Fprintln(stdout, "Cancelled.")
		return nil
	}
	err = s.Remove(t.ID)
	if err != nil && !task.IsPersistence(err) {
		return err
	}
	fmt.Fprintf(stdout, "Deleted %s: %s\n", utils.ShortID(t.ID, shortIDLen), t.Title)
	return reportSave(err)
}

// clearCommand deletes every completed task after confirmation.
func clearCommand(s *task.Store, args []string) error {
	fs := newFlagSet("clear")
	yes := fs.Bool("y", false, "Do not ask for confirmation")
	if _, err := parseArgs(fs, args); err != nil {
		return err
	}
	st := s.Stats()
	if st.Completed == 0 {
		fmt.Fprintln(stdout, "No completed tasks to clear.")
		return nil
	}
	if !*yes && !confirm(fmt.Sprintf("Delete %d completed %s?", st.Completed, plural(st.Completed))) {
		fmt.Fprintln(stdout, "Cancelled.")
		return nil
	}
	n, err := s.RemoveCompleted()
	if err != nil && !task.IsPersistence(err) {
		return err
	}
	fmt.Fprintf(stdout, "Removed %d completed %s.\n", n, plural(n))
	return reportSave(err)
}

// statsCommand prints totals.
func statsCommand(s *task.Store, args []string) error {
	fs := newFlagSet("stats")
	asJSON := fs.Bool("json", false, "Print stats as JSON")
	if _, err := parseArgs(fs, args); err != nil {
		return err
	}
	st := s.Stats()
	if *asJSON {
		return json.NewEncoder(stdout).Encode(map[string]int{
			"total":     st.Total,
			"completed": st.Completed,
			"pending":   st.Pending(),
		})
	}
	fmt.Fprintf(stdout, "Total: %d  Completed: %d  Pending: %d\n", st.Total, st.Completed, st.Pending())
	return nil
}

// exportCommand writes a backup bundle, CSV or PDF report.
func exportCommand(cfg *config.Config, s *task.Store, args []string) error {
	fs := newFlagSet("export")
	formatName := fs.String("format", "json", "Format: json, csv or pdf")
	out := fs.String("o", "", "Output file, or - for stdout (default: export_dir/taskflow_backup_<date>.<ext>)")
	if _, err := parseArgs(fs, args); err != nil {
		return err
	}
	format, err := export.ParseFormat(*formatName)
	if err != nil {
		return err
	}
	e := export.NewExporter(s, now)

	switch *out {
	case "-":
		return e.Write(stdout, format)
	case "":
		path, err := e.WriteFile(cfg.ExportDir, format)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Exported %d tasks to %s\n", s.Stats().Total, path)
		return nil
	default:
		data, err := e.Export(format)
		if err != nil {
			return err
		}
		if err := os.WriteFile(*out, data, 0o644); err != nil {
			return fmt.Errorf("write export: %w", err)
		}
		fmt.Fprintf(stdout, "Exported %d tasks to %s\n", s.Stats().Total, *out)
		return nil
	}
}

// importCommand merges tasks from a bundle or bare task array.
func importCommand(s *task.Store, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: taskflow import <file>")
	}
	tasks, err := export.ReadFile(args[0])
	if err != nil {
		return err
	}
	n, err := s.Import(tasks)
	if err != nil && !task.IsPersistence(err) {
		return err
	}
	fmt.Fprintf(stdout, "Imported %d of %d tasks (%d already present).\n", n, len(tasks), len(tasks)-n)
	return reportSave(err)
}

// tuiCommand launches the TUI.
func tuiCommand(ctx context.Context, cfg *config.Config, s *task.Store, args []string) error {
	fs := newFlagSet("tui")
	if _, err := parseArgs(fs, args); err != nil {
		return err
	}
	return ui.RunTUI(ctx, s, ui.WithExportDir(cfg.ExportDir))
}

// serveCommand runs the JSON API until ctx is cancelled.
func serveCommand(ctx context.Context, cfg *config.Config, logger *log.Logger, s *task.Store, args []string) error {
	fs := newFlagSet("serve")
	addr := fs.String("addr", cfg.ListenAddr, "Listen address")
	if _, err := parseArgs(fs, args); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Serving tasks on http://%s (Ctrl+C to stop)\n", *addr)
	return server.New(s, logger).ListenAndServe(ctx, *addr)
}

// configCommand prints the effective configuration and where each value
// came from.
func configCommand(cws *config.ConfigWithSources, args []string) error {
	fs := newFlagSet("config")
	example := fs.Bool("example", false, "Print an example configuration file")
	if _, err := parseArgs(fs, args); err != nil {
		return err
	}
	if *example {
		fmt.Fprint(stdout, config.ExampleConfig())
		return nil
	}
	for _, key := range config.Fields() {
		fmt.Fprintf(stdout, "%-15s = %-40q (%s)\n", key, cws.Config.Value(key), cws.Source(key))
	}
	if len(cws.Config.Files) > 0 {
		fmt.Fprintln(stdout)
		fmt.Fprintln(stdout, "Config files:")
		for _, f := range cws.Config.Files {
			fmt.Fprintf(stdout, "  %s\n", f)
		}
	}
	return nil
}

func parseDeadline(s string) (*task.Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	d, err := task.ParseDate(s)
	if err != nil {
		return nil, &task.ValidationError{Field: "deadline", Err: err}
	}
	return &d, nil
}

func plural(n int) string {
	if n == 1 {
		return "task"
	}
	return "tasks"
}

// optionalString is a flag value that remembers whether it was given.
type optionalString struct {
	value string
	set   bool
}

var _ flag.Value = (*optionalString)(nil)

func (o *optionalString) String() string { return o.value }

func (o *optionalString) Set(v string) error {
	o.value = v
	o.set = true
	return nil
}
