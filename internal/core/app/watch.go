package app

import (
	"context"
	"errors"
	"log/slog"

	"apisurface/internal/core/watcher"
	"apisurface/internal/shared/observability"
	"apisurface/internal/shared/util"
)

// Watch reruns Run whenever relevant sources change, until ctx is cancelled.
// Passes are rate limited by watch.rescans_per_second and watch.burst.
func (a *App) Watch(ctx context.Context) error {
	limiter := util.NewLimiter(a.Config.Watch.RescansPerSecond, a.Config.Watch.Burst)

	w, err := watcher.NewWatcher(a.current().debounce, a, func(paths []string) {
		a.HandleChanges(ctx, limiter, paths)
	})
	if err != nil {
		return err
	}
	defer w.Close()
	a.setWatcher(w)
	defer a.setWatcher(nil)

	if err := w.Watch(a.Paths.ScanRoots); err != nil {
		return err
	}
	slog.Info("watching for changes", "roots", a.Paths.ScanRoots)

	<-ctx.Done()
	return nil
}

// HandleChanges runs one pass for a debounced batch of changed paths. A nil
// limiter runs immediately.
func (a *App) HandleChanges(ctx context.Context, limiter *util.Limiter, paths []string) {
	if ctx.Err() != nil {
		return
	}
	throttled, err := limiter.Acquire(ctx)
	if throttled {
		observability.RescansThrottledTotal.Inc()
		slog.Debug("rescan throttled", "changed", len(paths))
	}
	if err != nil {
		return
	}

	slog.Debug("sources changed", "paths", paths)
	if _, err := a.Run(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		slog.Error("resolution pass failed", "error", err)
	}
}
