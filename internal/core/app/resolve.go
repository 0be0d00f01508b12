package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	coreerrors "apisurface/internal/core/errors"
	"apisurface/internal/data/history"
	"apisurface/internal/engine/discovery"
	"apisurface/internal/engine/surface"
	"apisurface/internal/shared/observability"
	"apisurface/internal/ui/report"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Resolve discovers candidates under the scan roots and classifies them. It
// neither writes outputs nor touches history.
func (a *App) Resolve(ctx context.Context) (Result, error) {
	active := a.current()
	resolver, scanner, api := active.resolver, active.scanner, active.api

	ctx, span := observability.Tracer.Start(ctx, "app.Resolve", trace.WithAttributes(
		attribute.String("granularity", api.Granularity),
		attribute.Int("roots", len(a.Paths.ScanRoots)),
	))
	defer span.End()

	start := time.Now()
	candidates, err := scanner.Scan(ctx, a.Paths.ScanRoots)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "discovery failed")
		return Result{}, fmt.Errorf("discover identifiers: %w", err)
	}

	classified, err := resolver.Resolve(discovery.Identifiers(candidates))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "classification failed")
		return Result{}, err
	}
	elapsed := time.Since(start)

	s := report.NewSurface(a.ProjectKey(), api.Granularity, resolver.Patterns(), classified)

	observability.ResolveDuration.Observe(elapsed.Seconds())
	observability.ClassifiedTotal.WithLabelValues(string(surface.Public)).Add(float64(s.Public))
	observability.ClassifiedTotal.WithLabelValues(string(surface.Internal)).Add(float64(s.Internal))
	observability.SurfaceSize.WithLabelValues(string(surface.Public)).Set(float64(s.Public))
	observability.SurfaceSize.WithLabelValues(string(surface.Internal)).Set(float64(s.Internal))
	span.SetAttributes(
		attribute.Int("public", s.Public),
		attribute.Int("internal", s.Internal),
	)

	slog.Debug("resolution pass complete",
		"candidates", len(candidates),
		"public", s.Public,
		"internal", s.Internal,
		"duration", elapsed,
	)

	return Result{Surface: s, Candidates: candidates, Duration: elapsed, Format: active.format}, nil
}

// Run is one full pass: Resolve, compare with and record into history, then
// write the configured output files.
func (a *App) Run(ctx context.Context) (Result, error) {
	a.runMu.Lock()
	defer a.runMu.Unlock()

	res, err := a.Resolve(ctx)
	if err != nil {
		return Result{}, err
	}

	if a.store != nil {
		if err := a.recordHistory(&res); err != nil {
			return Result{}, err
		}
	}

	if err := report.WriteAll(res.Surface, a.outputTargets()); err != nil {
		return Result{}, err
	}

	a.publish(res)
	return res, nil
}

func (a *App) recordHistory(res *Result) error {
	project := a.ProjectKey()
	previous, err := a.store.LatestSnapshot(project)
	switch {
	case err == nil:
		diff := history.Diff(previous.Records, res.Surface.Records)
		res.Surface.Diff = &diff
		observability.SurfaceChangesTotal.WithLabelValues("added").Add(float64(len(diff.Added)))
		observability.SurfaceChangesTotal.WithLabelValues("removed").Add(float64(len(diff.Removed)))
		if !diff.Empty() {
			slog.Info("public API changed", "added", len(diff.Added), "removed", len(diff.Removed))
		}
	case coreerrors.IsCode(err, coreerrors.CodeNotFound):
		slog.Debug("no previous snapshot", "project", project)
	default:
		return fmt.Errorf("load previous snapshot: %w", err)
	}

	saved, err := a.store.SaveSnapshot(history.Snapshot{
		ProjectKey:         project,
		Timestamp:          res.Surface.GeneratedAt,
		Granularity:        res.Surface.Granularity,
		PatternFingerprint: res.Surface.Fingerprint,
		Records:            res.Surface.Records,
	})
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	res.Snapshot = &saved

	if keep := a.Config.History.Keep; keep > 0 {
		if removed, err := a.store.Prune(project, keep); err != nil {
			slog.Warn("failed to prune history", "error", err)
		} else if removed > 0 {
			slog.Debug("pruned history", "removed", removed)
		}
	}
	return nil
}

func (a *App) outputTargets() []report.Target {
	return []report.Target{
		{Format: report.FormatMarkdown, Path: a.Paths.MarkdownPath},
		{Format: report.FormatTSV, Path: a.Paths.TSVPath},
		{Format: report.FormatJSON, Path: a.Paths.JSONPath},
	}
}
