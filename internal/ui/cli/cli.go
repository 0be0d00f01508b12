package cli

import (
	"flag"
	"fmt"
	"io"
	"strings"
)

const versionString = "1.0.0"
const defaultConfigPath = "./apisurface.toml"

// stringList collects a repeatable flag.
type stringList []string

func (l *stringList) String() string {
	if l == nil {
		return ""
	}
	return strings.Join(*l, ",")
}

func (l *stringList) Set(value string) error {
	*l = append(*l, value)
	return nil
}

type cliOptions struct {
	configPath         string
	configSet          bool
	once               bool
	onceSet            bool
	watch              bool
	format             string
	includes           stringList
	excludes           stringList
	granularity        string
	requireIdentifiers bool
	history            bool
	since              string
	historyTSV         string
	historyJSON        string
	failOnRemoved      bool
	metricsAddr        string
	verbose            bool
	version            bool
	args               []string
}

func parseOptions(args []string, stderr io.Writer) (cliOptions, error) {
	var opts cliOptions
	fs := flag.NewFlagSet("apisurface", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&opts.configPath, "config", defaultConfigPath, "Path to config file")
	fs.BoolVar(&opts.once, "once", true, "Resolve once and exit")
	fs.BoolVar(&opts.watch, "watch", false, "Keep running and re-resolve when sources or config change")
	fs.StringVar(&opts.format, "format", "", "Stdout renderer: text, markdown, tsv, json or none (overrides output.stdout)")
	fs.Var(&opts.includes, "include", "Include pattern, repeatable; appended to api.includes")
	fs.Var(&opts.excludes, "exclude", "Exclude pattern, repeatable; appended to api.excludes")
	fs.StringVar(&opts.granularity, "granularity", "", "Candidate granularity: package, symbol or file")
	fs.BoolVar(&opts.requireIdentifiers, "require-identifiers", false, "Fail when discovery finds no identifiers")
	fs.BoolVar(&opts.history, "history", false, "Record snapshots and report changes against the previous run")
	fs.StringVar(&opts.since, "since", "", "Include historical snapshots at/after this timestamp (RFC3339 or YYYY-MM-DD)")
	fs.StringVar(&opts.historyTSV, "history-tsv", "", "Write snapshot history TSV to this path (requires history)")
	fs.StringVar(&opts.historyJSON, "history-json", "", "Write snapshot history JSON to this path (requires history)")
	fs.BoolVar(&opts.failOnRemoved, "fail-on-removed", false, "Exit 3 when public identifiers were removed since the last snapshot (requires history)")
	fs.StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve /metrics and /health on this address")
	fs.BoolVar(&opts.verbose, "verbose", false, "Enable verbose logging")
	fs.BoolVar(&opts.version, "version", false, "Print version and exit")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, err
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "config":
			opts.configSet = true
		case "once":
			opts.onceSet = true
		}
	})

	opts.args = fs.Args()
	return opts, validateOptions(opts)
}

func validateOptions(opts cliOptions) error {
	if opts.watch && opts.onceSet && opts.once {
		return fmt.Errorf("--once and --watch cannot be combined")
	}
	if len(opts.args) > 1 {
		return fmt.Errorf("at most one positional root argument is accepted, got %d", len(opts.args))
	}
	if _, err := parseSince(opts.since); err != nil {
		return err
	}
	return nil
}
