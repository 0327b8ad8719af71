// Package cmd implements the CLI command structure for taskflow.
package cmd

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/nibzard/taskflow/internal/config"
	"github.com/nibzard/taskflow/internal/logging"
	"github.com/nibzard/taskflow/internal/storage"
	"github.com/nibzard/taskflow/internal/task"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Standard streams, replaced in tests.
var (
	stdin  io.Reader = os.Stdin
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

// Run executes the taskflow CLI.
func Run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("taskflow", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		printUsage(fs, stderr)
	}
	help := fs.Bool("help", false, "Show help")
	fs.BoolVar(help, "h", false, "Show help")
	showVersion := fs.Bool("version", false, "Show version")
	fs.BoolVar(showVersion, "v", false, "Show version")

	cws, err := config.LoadWithSources(fs, args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return fmt.Errorf("loading config: %w", err)
	}
	cfg := cws.Config
	if *help {
		printUsage(fs, stdout)
		return nil
	}
	if *showVersion {
		return versionCommand()
	}

	// With no subcommand, list the tasks.
	subcommand := "ls"
	remainingArgs := fs.Args()
	if len(remainingArgs) > 0 {
		subcommand = remainingArgs[0]
		remainingArgs = remainingArgs[1:]
	}

	logger := logging.FromConfig(stderr, cfg)

	switch subcommand {
	case "add":
		return withStore(cfg, logger, true, func(s *task.Store) error { return addCommand(s, remainingArgs) })
	case "ls", "list":
		return withStore(cfg, logger, false, func(s *task.Store) error { return lsCommand(s, remainingArgs) })
	case "show":
		return withStore(cfg, logger, false, func(s *task.Store) error { return showCommand(s, remainingArgs) })
	case "edit":
		return withStore(cfg, logger, true, func(s *task.Store) error { return editCommand(s, remainingArgs) })
	case "toggle", "done":
		return withStore(cfg, logger, true, func(s *task.Store) error { return toggleCommand(s, remainingArgs) })
	case "rm", "remove", "delete":
		return withStore(cfg, logger, true, func(s *task.Store) error { return rmCommand(s, remainingArgs) })
	case "clear":
		return withStore(cfg, logger, true, func(s *task.Store) error { return clearCommand(s, remainingArgs) })
	case "stats":
		return withStore(cfg, logger, false, func(s *task.Store) error { return statsCommand(s, remainingArgs) })
	case "export":
		return withStore(cfg, logger, false, func(s *task.Store) error { return exportCommand(cfg, s, remainingArgs) })
	case "import":
		return withStore(cfg, logger, true, func(s *task.Store) error { return importCommand(s, remainingArgs) })
	case "tui":
		return withStore(cfg, logger, true, func(s *task.Store) error { return tuiCommand(ctx, cfg, s, remainingArgs) })
	case "serve":
		return withStore(cfg, logger, true, func(s *task.Store) error { return serveCommand(ctx, cfg, logger, s, remainingArgs) })
	case "config":
		return configCommand(cws, remainingArgs)
	case "version":
		return versionCommand()
	case "help":
		printUsage(fs, stdout)
		return nil
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", subcommand)
		printUsage(fs, stderr)
		return fmt.Errorf("unknown command: %s", subcommand)
	}
}

// withStore opens the configured backend and store, runs fn and closes the
// backend. Commands that change tasks refuse to run over stored data that
// could not be loaded, so a save never replaces it.
func withStore(cfg *config.Config, logger *log.Logger, mutating bool, fn func(*task.Store) error) error {
	backend, err := storage.Open(storage.Options{
		Backend: cfg.Backend,
		Path:    cfg.DataFile,
		DSN:     cfg.MySQLDSN,
		Key:     cfg.StorageKey,
	})
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer backend.Close()

	extra := make([]task.Category, 0, len(cfg.Categories))
	for _, c := range cfg.Categories {
		extra = append(extra, task.Category(c))
	}
	store := task.Open(backend, task.WithLogger(logger), task.WithCategories(extra...))
	if err := store.LoadError(); err != nil {
		if mutating {
			return fmt.Errorf("%w (move the data file aside or fix it before making changes)", err)
		}
		fmt.Fprintf(stderr, "Warning: %v\n", err)
	}
	return fn(store)
}

func versionCommand() error {
	fmt.Fprintf(stdout, "taskflow version %s\n", Version)
	return nil
}

func printUsage(fs *flag.FlagSet, w io.Writer) {
	fmt.Fprintln(w, "TaskFlow - A small, local to-do list manager")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  taskflow [global options] [command] [options]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  add <title>         Add a task (-p priority, -c category, -due YYYY-MM-DD)")
	filters := make([]string, 0, len(task.Filters()))
	for _, f := range task.Filters() {
		filters = append(filters, string(f))
	}
	fmt.Fprintf(w, "  ls [filter]         List tasks: %s (default command)\n", strings.Join(filters, ", "))
	fmt.Fprintln(w, "  show <id>           Show one task")
	fmt.Fprintln(w, "  edit <id>           Change title, priority, category or deadline")
	fmt.Fprintln(w, "  toggle <id>...      Toggle completed (alias: done)")
	fmt.Fprintln(w, "  rm <id>             Delete a task (asks for confirmation, -y to skip)")
	fmt.Fprintln(w, "  clear               Delete all completed tasks (-y to skip confirmation)")
	fmt.Fprintln(w, "  stats               Show totals")
	fmt.Fprintln(w, "  export              Write a backup (-format json|csv|pdf, -o path or -)")
	fmt.Fprintln(w, "  import <file>       Merge tasks from a backup bundle")
	fmt.Fprintln(w, "  tui                 Launch the terminal UI")
	fmt.Fprintln(w, "  serve               Serve the local JSON API (-addr host:port)")
	fmt.Fprintln(w, "  config              Show the effective configuration (-example for a sample file)")
	fmt.Fprintln(w, "  version             Show version information")
	fmt.Fprintln(w, "  help                Show this help message")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Ids may be shortened to any unique prefix.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Global Options:")
	fs.SetOutput(w)
	fs.PrintDefaults()
	fs.SetOutput(stderr)
}

// parseArgs parses flags that may appear before, between or after
// positional arguments and returns the positional ones.
func parseArgs(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		args = fs.Args()
		if len(args) == 0 {
			return positional, nil
		}
		positional = append(positional, args[0])
		args = args[1:]
	}
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet("taskflow "+name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

// resolveID finds the task whose id equals or uniquely starts with prefix.
func resolveID(s *task.Store, prefix string) (task.Task, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return task.Task{}, &task.ValidationError{Field: "id", Err: errors.New("id must not be empty")}
	}
	if t, err := s.Get(prefix); err == nil {
		return t, nil
	}
	var matches []task.Task
	for _, t := range s.All() {
		if strings.HasPrefix(t.ID, prefix) {
			matches = append(matches, t)
		}
	}
	switch len(matches) {
	case 0:
		return task.Task{}, &task.NotFoundError{ID: prefix}
	case 1:
		return matches[0], nil
	default:
		return task.Task{}, fmt.Errorf("id prefix %q is ambiguous: matches %d tasks", prefix, len(matches))
	}
}

// confirm asks a yes/no question on stdin. Anything but y or yes is no.
func confirm(question string) bool {
	fmt.Fprintf(stdout, "%s [y/N] ", question)
	line, err := bufio.NewReader(stdin).ReadString('\n')
	if err != nil && line == "" {
		fmt.Fprintln(stdout)
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

// reportSave prints a warning for a change that was applied but not saved
// and returns the error so the command exits non-zero.
func reportSave(err error) error {
	if err == nil {
		return nil
	}
	if task.IsPersistence(err) {
		fmt.Fprintf(stderr, "Warning: change applied but not saved: %v\n", err)
	}
	return err
}
