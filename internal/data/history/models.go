package history

import (
	"time"

	"apisurface/internal/engine/surface"
)

// Snapshot is one persisted resolution pass. Records is only populated by
// loaders that say so.
type Snapshot struct {
	RunID              string                 `json:"run_id"`
	ProjectKey         string                 `json:"project_key"`
	SchemaVersion      int                    `json:"schema_version"`
	Timestamp          time.Time              `json:"timestamp"`
	Granularity        string                 `json:"granularity"`
	PatternFingerprint string                 `json:"pattern_fingerprint"`
	PublicCount        int                    `json:"public_count"`
	InternalCount      int                    `json:"internal_count"`
	Records            []surface.ModuleRecord `json:"records,omitempty"`
}

// SurfaceDiff lists identifiers that entered or left the public surface.
type SurfaceDiff struct {
	Added   []string `json:"added"`
	Removed []string `json:"removed"`
}

func (d SurfaceDiff) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0
}
