// Package app wires configuration, discovery, classification, history and
// reporting into resolution passes.
package app

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"apisurface/internal/core/config"
	"apisurface/internal/core/watcher"
	"apisurface/internal/data/history"
	"apisurface/internal/engine/discovery"
	"apisurface/internal/engine/surface"
	"apisurface/internal/shared/observability"
	"apisurface/internal/ui/report"
)

// Result is the outcome of one resolution pass.
type Result struct {
	Surface    report.Surface
	Candidates []discovery.Candidate
	Duration   time.Duration
	// Format is the stdout renderer configured when the pass started.
	Format string
	// Snapshot is the stored run when history is enabled.
	Snapshot *history.Snapshot
}

// RemovedPublic reports whether identifiers left the public surface since the
// previous stored snapshot.
func (r Result) RemovedPublic() bool {
	return r.Surface.Diff != nil && len(r.Surface.Diff.Removed) > 0
}

// rules is the reloadable part of the configuration.
type rules struct {
	resolver *surface.Resolver
	scanner  *discovery.Scanner
	api      config.API
	format   string
	debounce time.Duration
}

// App runs resolution passes. Config is the startup configuration and is never
// mutated; Reload swaps the active rules instead.
type App struct {
	Config *config.Config
	Paths  config.ResolvedPaths

	// runMu serialises resolution passes.
	runMu sync.Mutex

	stateMu sync.RWMutex
	active  rules
	sources *watcher.Watcher

	store *history.Store

	updateMu sync.RWMutex
	onUpdate func(Result)
	last     *Result
}

// New compiles the pattern set, builds the scanner and opens the history store
// when enabled. Relative paths in cfg are anchored at base.
func New(cfg *config.Config, base string) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	paths, err := config.ResolvePaths(cfg, base)
	if err != nil {
		return nil, err
	}

	active, err := buildRules(cfg)
	if err != nil {
		return nil, err
	}

	a := &App{
		Config: cfg,
		Paths:  paths,
		active: active,
	}

	if cfg.History.Enabled {
		store, err := history.Open(paths.DBPath, cfg.History.BusyTimeout)
		if err != nil {
			return nil, fmt.Errorf("open history store: %w", err)
		}
		a.store = store
	}
	return a, nil
}

func buildRules(cfg *config.Config) (rules, error) {
	ps, err := surface.NewPatternSet(cfg.API.Includes, cfg.API.Excludes)
	if err != nil {
		observability.InvalidPatternsTotal.Inc()
		return rules{}, fmt.Errorf("build pattern set: %w", err)
	}
	resolver := surface.NewResolver(ps, surface.WithRequireIdentifiers(cfg.API.RequireIdentifiers))

	scanner, err := discovery.NewScanner(discovery.Options{
		Granularity:  cfg.API.Granularity,
		Languages:    cfg.Scan.Languages,
		IncludeTests: cfg.Scan.IncludeTests,
		ExcludeDirs:  cfg.Exclude.Dirs,
		ExcludeFiles: cfg.Exclude.Files,
	})
	if err != nil {
		return rules{}, fmt.Errorf("build scanner: %w", err)
	}
	return rules{resolver: resolver, scanner: scanner, api: cfg.API, format: cfg.Output.Stdout, debounce: cfg.Watch.Debounce}, nil
}

// Reload swaps in the rules, stdout format and watch debounce of cfg. On error
// the previous rules stay active. Path settings are not reloaded.
func (a *App) Reload(cfg *config.Config) error {
	next, err := buildRules(cfg)
	if err != nil {
		slog.Error("config reload rejected", "error", err)
		return err
	}

	a.stateMu.Lock()
	a.active = next
	w := a.sources
	a.stateMu.Unlock()

	if w != nil {
		w.SetDebounce(next.debounce)
	}

	slog.Info("config reloaded", "includes", len(cfg.API.Includes), "excludes", len(cfg.API.Excludes))
	return nil
}

func (a *App) current() rules {
	a.stateMu.RLock()
	defer a.stateMu.RUnlock()
	return a.active
}

func (a *App) setWatcher(w *watcher.Watcher) {
	a.stateMu.Lock()
	a.sources = w
	a.stateMu.Unlock()
}

// Patterns returns the active pattern set.
func (a *App) Patterns() *surface.PatternSet {
	return a.current().resolver.Patterns()
}

func (a *App) IsRelevantPath(path string) bool {
	return a.current().scanner.IsRelevantPath(path)
}

func (a *App) IsExcludedDir(path string) bool {
	return a.current().scanner.IsExcludedDir(path)
}

func (a *App) HistoryStore() *history.Store {
	return a.store
}

func (a *App) ProjectKey() string {
	key := strings.TrimSpace(a.Config.History.Project)
	if key == "" {
		return "default"
	}
	return key
}

func (a *App) SetUpdateHandler(fn func(Result)) {
	a.updateMu.Lock()
	defer a.updateMu.Unlock()
	a.onUpdate = fn
}

// LastResult returns the most recent successful pass, if any.
func (a *App) LastResult() (Result, bool) {
	a.updateMu.RLock()
	defer a.updateMu.RUnlock()
	if a.last == nil {
		return Result{}, false
	}
	return *a.last, true
}

func (a *App) publish(res Result) {
	a.updateMu.Lock()
	a.last = &res
	fn := a.onUpdate
	a.updateMu.Unlock()
	if fn != nil {
		fn(res)
	}
}

func (a *App) Close() error {
	if a.store == nil {
		return nil
	}
	return a.store.Close()
}
