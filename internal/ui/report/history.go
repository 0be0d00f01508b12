package report

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"apisurface/internal/data/history"
)

// trendPoint is a snapshot header with the public-count change since the
// previous run. The first run has a delta of zero.
type trendPoint struct {
	history.Snapshot
	DeltaPublic int `json:"delta_public"`
}

func trend(snapshots []history.Snapshot) []trendPoint {
	out := make([]trendPoint, 0, len(snapshots))
	for i, snap := range snapshots {
		point := trendPoint{Snapshot: snap}
		if i > 0 {
			point.DeltaPublic = snap.PublicCount - snapshots[i-1].PublicCount
		}
		out = append(out, point)
	}
	return out
}

// RenderHistoryTSV lists snapshot headers with public-count deltas between
// consecutive runs.
func RenderHistoryTSV(snapshots []history.Snapshot) []byte {
	var buf strings.Builder

	buf.WriteString("Timestamp\tRunID\tGranularity\tFingerprint\tPublic\tInternal\tDeltaPublic\n")
	for _, snap := range trend(snapshots) {
		buf.WriteString(fmt.Sprintf("%s\t%s\t%s\t%s\t%d\t%d\t%d\n",
			snap.Timestamp.UTC().Format(time.RFC3339),
			snap.RunID,
			snap.Granularity,
			shortFingerprint(snap.PatternFingerprint),
			snap.PublicCount,
			snap.InternalCount,
			snap.DeltaPublic,
		))
	}
	return []byte(buf.String())
}

// RenderHistoryJSON renders the same trend as RenderHistoryTSV, one object per
// snapshot with a delta_public field.
func RenderHistoryJSON(snapshots []history.Snapshot) ([]byte, error) {
	return json.MarshalIndent(trend(snapshots), "", "  ")
}
