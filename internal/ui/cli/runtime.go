package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	coreapp "apisurface/internal/core/app"
	"apisurface/internal/core/config"
	"apisurface/internal/shared/observability"
	"apisurface/internal/shared/util"
	"apisurface/internal/ui/report"
)

const (
	exitOK           = 0
	exitError        = 1
	exitUsage        = 2
	exitRemovedAPI   = 3
	formatNone       = "none"
	shutdownDeadline = 5 * time.Second
)

func Run(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return run(ctx, args, os.Stdout, os.Stderr)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, err := parseOptions(args, stderr)
	if err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(stderr, err.Error())
		}
		return exitUsage
	}

	if opts.version {
		fmt.Fprintf(stdout, "apisurface v%s\n", versionString)
		return exitOK
	}

	configureLogging(stderr, opts.verbose)

	cwd, err := os.Getwd()
	if err != nil {
		slog.Error("failed to detect working directory", "error", err)
		return exitError
	}

	cfg, cfgPath, err := loadConfig(opts.configPath, opts.configSet)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return exitError
	}
	base := cwd
	if cfgPath != "" {
		base = filepath.Dir(cfgPath)
	}

	if err := applyOptions(opts, cfg, cwd); err != nil {
		fmt.Fprintln(stderr, err.Error())
		return exitError
	}
	if err := validateModeCompatibility(opts, cfg); err != nil {
		fmt.Fprintln(stderr, err.Error())
		return exitError
	}

	shutdownTracing, err := observability.SetupTracing(ctx, cfg.Observability.OTLPEndpoint, cfg.Observability.OTLPInsecure)
	if err != nil {
		slog.Error("failed to set up tracing", "error", err)
		return exitError
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownDeadline)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			slog.Warn("failed to flush traces", "error", err)
		}
	}()

	app, err := coreapp.New(cfg, base)
	if err != nil {
		slog.Error("failed to initialize app", "error", err)
		return exitError
	}
	defer app.Close()

	if addr := observabilityAddress(opts, cfg); addr != "" {
		server := NewObservabilityServer(addr, coreapp.NewHealthService(app))
		if err := server.Start(ctx); err != nil {
			slog.Error("failed to start observability server", "error", err)
			return exitError
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), shutdownDeadline)
			defer cancel()
			_ = server.Stop(sctx)
		}()
	}

	app.SetUpdateHandler(func(res coreapp.Result) {
		if err := printSurface(stdout, res.Format, res.Surface); err != nil {
			slog.Error("failed to print surface", "error", err)
		}
	})

	res, err := app.Run(ctx)
	if err != nil {
		slog.Error("resolution failed", "error", err)
		return exitError
	}

	if err := writeHistoryReports(opts, app); err != nil {
		slog.Error("history report failed", "error", err)
		return exitError
	}

	if !opts.watch {
		if opts.failOnRemoved && res.RemovedPublic() {
			slog.Warn("public API removed", "identifiers", res.Surface.Diff.Removed)
			return exitRemovedAPI
		}
		return exitOK
	}

	if cfgPath != "" {
		cfgWatcher := config.NewWatcher(cfgPath, func(next *config.Config) {
			if err := applyOptions(opts, next, cwd); err != nil {
				slog.Error("config reload rejected", "error", err)
				return
			}
			if err := app.Reload(next); err == nil {
				app.HandleChanges(ctx, nil, []string{cfgPath})
			}
		})
		if err := cfgWatcher.Start(ctx); err != nil {
			slog.Warn("config hot reload unavailable", "path", cfgPath, "error", err)
		} else {
			defer cfgWatcher.Stop()
		}
	}

	if err := app.Watch(ctx); err != nil {
		slog.Error("watch failed", "error", err)
		return exitError
	}
	return exitOK
}

// loadConfig reads path. A missing file at the default location falls back to
// built-in defaults; an explicit --config must exist.
func loadConfig(path string, explicit bool) (*config.Config, string, error) {
	cfg, err := config.Load(path)
	if err == nil {
		abs, absErr := filepath.Abs(path)
		if absErr != nil {
			return nil, "", absErr
		}
		return cfg, abs, nil
	}
	if !explicit && errors.Is(err, os.ErrNotExist) {
		slog.Debug("no config file found, using defaults", "path", path)
		cfg = config.DefaultConfig()
		config.ApplyEnvOverrides(cfg)
		if err := config.Validate(cfg); err != nil {
			return nil, "", err
		}
		return cfg, "", nil
	}
	return nil, "", err
}

// applyOptions layers command-line flags over cfg and revalidates it.
func applyOptions(opts cliOptions, cfg *config.Config, cwd string) error {
	if len(opts.args) > 0 {
		cfg.Scan.Roots = []string{config.ResolveRelative(cwd, opts.args[0])}
	}
	cfg.API.Includes = append(cfg.API.Includes, opts.includes...)
	cfg.API.Excludes = append(cfg.API.Excludes, opts.excludes...)
	if g := strings.TrimSpace(opts.granularity); g != "" {
		cfg.API.Granularity = strings.ToLower(g)
	}
	if opts.requireIdentifiers {
		cfg.API.RequireIdentifiers = true
	}
	if opts.history {
		cfg.History.Enabled = true
	}
	if f := strings.TrimSpace(opts.format); f != "" {
		cfg.Output.Stdout = strings.ToLower(f)
	}
	return config.Validate(cfg)
}

func validateModeCompatibility(opts cliOptions, cfg *config.Config) error {
	if (opts.historyTSV != "" || opts.historyJSON != "") && !cfg.History.Enabled {
		return fmt.Errorf("--history-tsv/--history-json require --history or history.enabled=true")
	}
	if opts.failOnRemoved && !cfg.History.Enabled {
		return fmt.Errorf("--fail-on-removed requires --history or history.enabled=true")
	}
	if opts.failOnRemoved && opts.watch {
		return fmt.Errorf("--fail-on-removed cannot be combined with --watch")
	}
	return nil
}

func observabilityAddress(opts cliOptions, cfg *config.Config) string {
	if addr := strings.TrimSpace(opts.metricsAddr); addr != "" {
		return addr
	}
	if cfg.Observability.Enabled {
		return cfg.Observability.Address
	}
	return ""
}

func printSurface(w io.Writer, format string, s report.Surface) error {
	if format == formatNone {
		return nil
	}
	out, err := report.Render(format, s)
	if err != nil {
		return err
	}
	_, err = w.Write(out)
	return err
}

func writeHistoryReports(opts cliOptions, app *coreapp.App) error {
	if opts.historyTSV == "" && opts.historyJSON == "" {
		return nil
	}
	store := app.HistoryStore()
	if store == nil {
		return fmt.Errorf("history store unavailable")
	}
	since, err := parseSince(opts.since)
	if err != nil {
		return err
	}
	snapshots, err := store.LoadSnapshots(app.ProjectKey(), since)
	if err != nil {
		return err
	}
	slog.Info("history loaded", "snapshots", len(snapshots))

	if opts.historyTSV != "" {
		if err := writeBytes(opts.historyTSV, report.RenderHistoryTSV(snapshots)); err != nil {
			return fmt.Errorf("write history TSV %q: %w", opts.historyTSV, err)
		}
	}
	if opts.historyJSON != "" {
		raw, err := report.RenderHistoryJSON(snapshots)
		if err != nil {
			return fmt.Errorf("render history JSON: %w", err)
		}
		if err := writeBytes(opts.historyJSON, raw); err != nil {
			return fmt.Errorf("write history JSON %q: %w", opts.historyJSON, err)
		}
	}
	return nil
}

func parseSince(value string) (time.Time, error) {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return time.Time{}, nil
	}

	rfc3339, err := time.Parse(time.RFC3339, raw)
	if err == nil {
		return rfc3339.UTC(), nil
	}

	dateOnly, err := time.Parse("2006-01-02", raw)
	if err == nil {
		return dateOnly.UTC(), nil
	}

	return time.Time{}, fmt.Errorf("--since must be RFC3339 or YYYY-MM-DD, got %q", value)
}

func writeBytes(path string, data []byte) error {
	return util.WriteFileWithDirs(path, data, 0o644)
}

// configureLogging sends logs to w. Stdout is reserved for rendered output.
func configureLogging(w io.Writer, verbose bool) {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)
}
