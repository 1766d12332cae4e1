// Package cli implements the dossierflow operator commands. Each command
// parses its flags, opens the application, runs one operation and prints
// its result as a table on a terminal or as JSON otherwise.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/ormvat/dossierflow/internal/app"
	"github.com/ormvat/dossierflow/internal/common"
	"github.com/ormvat/dossierflow/internal/config"
)

// Exit codes.
const (
	ExitOK    = 0
	ExitError = 1
	ExitUsage = 2
)

var errUsage = errors.New("usage")

// action runs a parsed command against an open application.
type action func(ctx context.Context, a *app.App, p *printer) error

// A command parses its arguments before the application is opened, so a
// malformed command line never touches the database.
type command struct {
	usage string
	parse func(args []string) (action, error)
}

var commands = map[string]command{
	"migrate":      {usage: "migrate", parse: parseMigrate},
	"init":         {usage: "init -dossier ID -actor USER -role ROLE [-comment TEXT]", parse: parseInitialize},
	"advance":      {usage: "advance -dossier ID -actor USER -role ROLE [-comment TEXT]", parse: parseAdvance},
	"return":       {usage: "return -dossier ID -actor USER -role ROLE [-comment TEXT]", parse: parseReturn},
	"move":         {usage: "move -dossier ID -phase N -actor USER -role ROLE [-comment TEXT]", parse: parseMove},
	"current":      {usage: "current -dossier ID", parse: parseCurrent},
	"history":      {usage: "history -dossier ID", parse: parseHistory},
	"timing":       {usage: "timing -dossier ID", parse: parseTiming},
	"late":         {usage: "late [-all]", parse: parseLate},
	"phases":       {usage: "phases", parse: parsePhases},
	"audit":        {usage: "audit [-entity TYPE] -id ID", parse: parseAudit},
	"audit-verify": {usage: "audit-verify [-entity TYPE] -id ID", parse: parseAuditVerify},
	"audit-export": {usage: "audit-export [-entity TYPE] -id ID", parse: parseAuditExport},
	"holidays":     {usage: "holidays list | add -date YYYY-MM-DD -label TEXT [-recurring] | delete -date YYYY-MM-DD | import -file PATH", parse: parseHolidays},
}

// Run executes the command named by args[0]. args must not contain the
// configuration flags (see flagx.StripArgs).
func Run(ctx context.Context, cfg *config.Config, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		usage(stderr)
		if len(args) == 0 {
			return ExitUsage
		}
		return ExitOK
	}

	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n\n", args[0])
		usage(stderr)
		return ExitUsage
	}

	format, rest, err := outputFormat(args[1:])
	if err != nil {
		fmt.Fprintln(stderr, err)
		return ExitUsage
	}

	run, err := cmd.parse(rest)
	switch {
	case errors.Is(err, flag.ErrHelp):
		fmt.Fprintf(stderr, "usage: dossierflow %s\n", cmd.usage)
		return ExitUsage
	case err != nil:
		fmt.Fprintf(stderr, "%v\nusage: dossierflow %s\n", err, cmd.usage)
		return ExitUsage
	}

	a, err := app.NewApp(ctx, cfg, stderr)
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return ExitError
	}
	defer a.Close(context.Background())

	if err := run(ctx, a, newPrinter(stdout, format)); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitCode(err)
	}
	return ExitOK
}

func exitCode(err error) int {
	if errors.Is(err, common.ErrInvalidInput) {
		return ExitUsage
	}
	return ExitError
}

func usage(w io.Writer) {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(w, "usage: dossierflow [config flags] <command> [-o table|json] [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "commands:")
	for _, name := range names {
		fmt.Fprintf(w, "  %s\n", commands[name].usage)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "config flags:", strings.Join(config.Flags, " "))
}

// newFlagSet returns a flag set that reports errors instead of exiting.
func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func required(fs *flag.FlagSet, names ...string) error {
	for _, name := range names {
		if f := fs.Lookup(name); f == nil || f.Value.String() == "" || f.Value.String() == "0" {
			return fmt.Errorf("%w: -%s is required", errUsage, name)
		}
	}
	return nil
}
