// Package report renders a resolved API surface for humans and machines.
package report

import (
	"fmt"
	"strings"
	"time"

	"apisurface/internal/data/history"
	"apisurface/internal/engine/surface"
	"apisurface/internal/shared/util"
)

const (
	FormatText     = "text"
	FormatMarkdown = "markdown"
	FormatTSV      = "tsv"
	FormatJSON     = "json"
)

// Surface is everything a renderer needs about one resolution pass.
type Surface struct {
	Project     string                 `json:"project"`
	Granularity string                 `json:"granularity"`
	GeneratedAt time.Time              `json:"generated_at"`
	Fingerprint string                 `json:"pattern_fingerprint"`
	Includes    []string               `json:"includes"`
	Excludes    []string               `json:"excludes"`
	Records     []surface.ModuleRecord `json:"records"`
	Public      int                    `json:"public_count"`
	Internal    int                    `json:"internal_count"`
	// Diff is nil when no previous snapshot was available.
	Diff *history.SurfaceDiff `json:"diff,omitempty"`
}

// NewSurface sorts records and fills in counts.
func NewSurface(project, granularity string, ps *surface.PatternSet, classified map[string]surface.Classification) Surface {
	records := surface.SortedRecords(classified)
	pub, internal := surface.Count(records)
	return Surface{
		Project:     project,
		Granularity: granularity,
		GeneratedAt: time.Now().UTC(),
		Fingerprint: ps.Fingerprint(),
		Includes:    ps.Includes(),
		Excludes:    ps.Excludes(),
		Records:     records,
		Public:      pub,
		Internal:    internal,
	}
}

// PublicIdentifiers returns the Public identifiers in record order.
func (s Surface) PublicIdentifiers() []string {
	out := make([]string, 0, s.Public)
	for _, r := range s.Records {
		if r.Classification == surface.Public {
			out = append(out, r.Identifier)
		}
	}
	return out
}

func Render(format string, s Surface) ([]byte, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case FormatText:
		return []byte(RenderText(s)), nil
	case FormatMarkdown:
		return []byte(RenderMarkdown(s)), nil
	case FormatTSV:
		return []byte(RenderTSV(s)), nil
	case FormatJSON:
		return RenderJSON(s)
	default:
		return nil, fmt.Errorf("unsupported report format %q", format)
	}
}

// Target is one configured output file.
type Target struct {
	Format string
	Path   string
}

// WriteAll renders s into every target, creating parent directories. Targets
// with an empty path are skipped.
func WriteAll(s Surface, targets []Target) error {
	for _, t := range targets {
		if strings.TrimSpace(t.Path) == "" {
			continue
		}
		data, err := Render(t.Format, s)
		if err != nil {
			return err
		}
		if err := util.WriteFileWithDirs(t.Path, data, 0o644); err != nil {
			return fmt.Errorf("write %s report %q: %w", t.Format, t.Path, err)
		}
	}
	return nil
}
