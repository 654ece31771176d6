// Command expensectl records, lists and deletes expenses from a terminal.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"

	"expenses/internal/cli"
	"expenses/internal/config"
	"expenses/internal/core"
	applog "expenses/internal/log"
	"expenses/internal/services"
)

const usage = `usage: expensectl [-db path] <command> [args]

commands:
  add <amount> <category> [note...]   record an expense
  list [all|week|month]               list expenses, newest first
  rm <id>                             delete an expense
`

// exit codes
const (
	exitOK       = 0
	exitFailure  = 1
	exitBadInput = 2
)

func main() {
	cli.LoadEnvFile()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("expensectl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprint(stderr, usage) }
	dbPath := fs.String("db", "", "SQLite database path (overrides SQLITE_DB_PATH)")
	if err := fs.Parse(args); err != nil {
		return exitBadInput
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return exitBadInput
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFailure
	}
	if *dbPath != "" {
		cfg.SQLiteDBPath = *dbPath
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFailure
	}
	// stdout carries command output only.
	cli.SetupLogger(cfg, applog.ComponentCLI, stderr)

	svc, err := cli.OpenService(ctx, cfg)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFailure
	}
	defer svc.Close()

	cmd, rest := fs.Arg(0), fs.Args()[1:]
	switch cmd {
	case "add":
		err = runAdd(ctx, svc, rest)
	case "list", "ls":
		err = runList(ctx, svc, rest, stdout)
	case "rm", "delete":
		err = runRemove(ctx, svc, rest)
	default:
		fmt.Fprintf(stderr, "unknown command %q\n", cmd)
		fs.Usage()
		return exitBadInput
	}

	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		if core.IsValidation(err) || isUsage(err) {
			return exitBadInput
		}
		return exitFailure
	}
	return exitOK
}

type usageError string

func (e usageError) Error() string { return string(e) }

func isUsage(err error) bool {
	_, ok := err.(usageError)
	return ok
}

func runAdd(ctx context.Context, svc *services.ExpenseService, args []string) error {
	if len(args) < 2 {
		return usageError("add needs <amount> <category> [note...]")
	}
	amount, err := core.ParseAmount(args[0])
	if err != nil {
		return err
	}
	var note *string
	if len(args) > 2 {
		n := strings.Join(args[2:], " ")
		note = &n
	}
	return svc.Add(ctx, amount, args[1], note)
}

func runList(ctx context.Context, svc *services.ExpenseService, args []string, stdout io.Writer) error {
	window := core.WindowAll
	if len(args) > 0 {
		w, err := core.ParseWindow(args[0])
		if err != nil {
			return err
		}
		window = w
	}

	rows, err := svc.ListFiltered(ctx, window)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Fprintln(stdout, "No expenses yet.")
		return nil
	}

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tAMOUNT\tCATEGORY\tDATE\tNOTE")
	for _, e := range rows {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", e.ID, e.DisplayAmount(), e.Category, e.LocalDay(svc.Location()), e.NoteText())
	}
	return tw.Flush()
}

func runRemove(ctx context.Context, svc *services.ExpenseService, args []string) error {
	if len(args) != 1 {
		return usageError("rm needs exactly one <id>")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return usageError(fmt.Sprintf("invalid id %q", args[0]))
	}
	return svc.Remove(ctx, id)
}
