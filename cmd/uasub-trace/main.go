// Command uasub-trace views and analyzes publish pipeline trace files.
//
// Trace files are written by log.FileLogger, e.g. by uasub-sim with the
// -trace flag.
//
// Usage:
//
//	uasub-trace <command> [flags] <file.utrace>
//
// Commands:
//
//	view     View trace file in human-readable format
//	export   Export trace file to JSON lines or CSV
//	filter   Filter trace file and write to new file
//	stats    Show publish and notification statistics
//
// Examples:
//
//	# Publish traffic of one subscription
//	uasub-trace view --subscription 3 --service publish run.utrace
//
//	# Everything that went wrong
//	uasub-trace view --category error run.utrace
//
//	# Notifications as CSV
//	uasub-trace export --format csv --category notification -o notes.csv run.utrace
//
//	# Cut a time window into a new file
//	uasub-trace filter --time-start 2026-03-02T09:30:00Z -o window.utrace run.utrace
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/fatih/color"

	"github.com/mash-protocol/uasub-go/cmd/uasub-trace/commands"
)

const usage = `uasub-trace - Subscription Trace Analyzer

Usage:
  uasub-trace <command> [flags] <file.utrace>

Commands:
  view     View trace file in human-readable format
  export   Export trace file to JSON lines or CSV
  filter   Filter trace file and write to new file
  stats    Show publish and notification statistics

Use "uasub-trace <command> -help" for more information about a command.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "view":
		runView(args)
	case "export":
		runExport(args)
	case "filter":
		runFilter(args)
	case "stats":
		runStats(args)
	case "-h", "-help", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
}

// filterFlags registers the filter flags shared by view and filter.
func filterFlags(fs *flag.FlagSet) *commands.FilterOptions {
	opts := &commands.FilterOptions{}
	fs.StringVar(&opts.SessionID, "session", "", "Filter by manager trace id")
	fs.StringVar(&opts.SubscriptionID, "subscription", "", "Filter by subscription id")
	fs.StringVar(&opts.Service, "service", "", "Filter by service (publish, republish, ...)")
	fs.StringVar(&opts.TimeStart, "time-start", "", "Filter by start time (RFC3339)")
	fs.StringVar(&opts.TimeEnd, "time-end", "", "Filter by end time (RFC3339)")
	fs.StringVar(&opts.Direction, "direction", "", "Filter by direction (in, out, local)")
	fs.StringVar(&opts.Category, "category", "", "Filter by category (service, notification, state, error)")
	return opts
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func requirePath(fs *flag.FlagSet) string {
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: trace file path required")
		fs.Usage()
		os.Exit(1)
	}
	return fs.Arg(0)
}

func runView(args []string) {
	fs := flag.NewFlagSet("view", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `uasub-trace view - View trace file in human-readable format

Usage:
  uasub-trace view [flags] <file.utrace>

Flags:
`)
		fs.PrintDefaults()
	}
	opts := filterFlags(fs)
	noColor := fs.Bool("no-color", false, "Disable colored output")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	path := requirePath(fs)
	if *noColor {
		color.NoColor = true
	}

	filter, err := commands.BuildFilter(*opts)
	if err != nil {
		fail(err)
	}
	if err := commands.RunView(path, filter, os.Stdout); err != nil {
		fail(err)
	}
}

func runExport(args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `uasub-trace export - Export trace file to JSON lines or CSV

Usage:
  uasub-trace export [flags] <file.utrace>

Flags:
`)
		fs.PrintDefaults()
	}
	opts := filterFlags(fs)
	format := fs.String("format", "jsonl", "Output format (jsonl, csv)")
	output := fs.String("o", "", "Output file (default: stdout)")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	path := requirePath(fs)

	filter, err := commands.BuildFilter(*opts)
	if err != nil {
		fail(err)
	}
	w := os.Stdout
	if *output != "" {
		f, err := os.Create(*output)
		if err != nil {
			fail(fmt.Errorf("failed to create output file: %w", err))
		}
		defer f.Close()
		w = f
	}
	if err := commands.RunExport(path, filter, *format, w); err != nil {
		fail(err)
	}
}

func runFilter(args []string) {
	fs := flag.NewFlagSet("filter", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `uasub-trace filter - Filter trace file and write to new file

Usage:
  uasub-trace filter [flags] <file.utrace>

Flags:
`)
		fs.PrintDefaults()
	}
	opts := filterFlags(fs)
	fs.StringVar(&opts.Output, "o", "", "Output file (required)")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	path := requirePath(fs)
	if opts.Output == "" {
		fmt.Fprintln(os.Stderr, "Error: output file (-o) required")
		fs.Usage()
		os.Exit(1)
	}

	if err := commands.RunFilter(path, *opts, os.Stdout); err != nil {
		fail(err)
	}
}

func runStats(args []string) {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `uasub-trace stats - Show publish and notification statistics

Usage:
  uasub-trace stats <file.utrace>

`)
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	path := requirePath(fs)

	if err := commands.RunStats(path, os.Stdout); err != nil {
		fail(err)
	}
}
