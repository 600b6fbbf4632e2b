// ssfpatch edits SSF1 game saves: it replaces one JSON property inside the
// named SMBH blocks of a save and writes the rebuilt file back, keeping a
// backup of the original.
//
//	ssfpatch patch --preset build-crane rb_map_08_contamination
//	ssfpatch patch --selector request-system --property Foo --value '{"a":1}' SAVE
//	ssfpatch inspect --blocks --report report.json SAVE
//	ssfpatch restore SAVE.bak_20260101_120000.lz4
//
// Close the game before patching; it keeps the save open while running.
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"ssfpatch"
	"ssfpatch/internal/savefile"
)

var version = "dev"

// exit codes
const (
	exitFailure    = 1
	exitUsage      = 2
	exitFormat     = 3
	exitNotApplied = 4
	exitLocked     = 5
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

type command struct {
	name    string
	summary string
	run     func(args []string, stdout io.Writer) error
}

func commands() []command {
	return []command{
		{"patch", "replace a JSON property inside a save", runPatch},
		{"inspect", "decode a save and print a JSON report", runInspect},
		{"blocks", "list the SMBH blocks of a save", runBlocks},
		{"restore", "install a backup over its original save", runRestore},
		{"version", "print the version", func(_ []string, stdout io.Writer) error {
			fmt.Fprintln(stdout, "ssfpatch", version)
			return nil
		}},
	}
}

func run(args []string, stdout io.Writer) error {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		printUsage(os.Stderr)
		return nil
	}
	for _, c := range commands() {
		if c.name == args[0] {
			return c.run(args[1:], stdout)
		}
	}
	printUsage(os.Stderr)
	return usageErrorf("unknown command %q", args[0])
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, "Usage: ssfpatch <command> [flags] SAVE\n\nCommands:\n")
	for _, c := range commands() {
		fmt.Fprintf(w, "  %-8s %s\n", c.name, c.summary)
	}
	fmt.Fprintf(w, "\nRun 'ssfpatch <command> --help' for command flags.\n")
}

// -------------------- errors --------------------

type usageError struct{ err error }

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func usageErrorf(format string, args ...any) error {
	return &usageError{err: fmt.Errorf(format, args...)}
}

func exitCode(err error) int {
	var (
		usage    *usageError
		valid    *ssfpatch.ValidationError
		format   *ssfpatch.FormatError
		notApply *ssfpatch.PatchNotApplicableError
	)
	switch {
	case errors.As(err, &usage), errors.As(err, &valid):
		return exitUsage
	case errors.As(err, &format):
		return exitFormat
	case errors.As(err, &notApply):
		return exitNotApplied
	case errors.Is(err, savefile.ErrLocked):
		return exitLocked
	default:
		return exitFailure
	}
}

// -------------------- shared flag helpers --------------------

// parseFlags parses args; a true result means help was printed and the
// command should return.
func parseFlags(fs *pflag.FlagSet, args []string, usage string) (bool, error) {
	help := fs.BoolP("help", "h", false, "show help")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s\n\nFlags:\n%s", usage, fs.FlagUsages())
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return true, nil
		}
		return false, &usageError{err: err}
	}
	if *help {
		fs.Usage()
		return true, nil
	}
	return false, nil
}

func oneArg(fs *pflag.FlagSet, what string) (string, error) {
	switch fs.NArg() {
	case 1:
		return fs.Arg(0), nil
	case 0:
		return "", usageErrorf("missing %s argument", what)
	default:
		return "", usageErrorf("unexpected argument: %s", fs.Arg(1))
	}
}

// newLogger writes text records to a terminal and JSON records otherwise.
func newLogger(command string, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	options := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if term.IsTerminal(int(os.Stderr.Fd())) {
		handler = slog.NewTextHandler(os.Stderr, options)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, options)
	}
	return slog.New(handler).With("command", command)
}

func logDiagnostics(logger *slog.Logger, dec *ssfpatch.Decoded) {
	for _, d := range dec.Diagnostics {
		logger.Warn("decode notice", "offset", d.Offset, "detail", d.Msg)
	}
}
