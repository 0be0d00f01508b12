package history

import (
	"sort"

	"apisurface/internal/engine/surface"
)

// Diff compares the Public identifiers of two record sets. An identifier that
// moves from Public to Internal, or disappears, counts as removed.
func Diff(previous, current []surface.ModuleRecord) SurfaceDiff {
	before := publicSet(previous)
	after := publicSet(current)

	diff := SurfaceDiff{Added: []string{}, Removed: []string{}}
	for id := range after {
		if !before[id] {
			diff.Added = append(diff.Added, id)
		}
	}
	for id := range before {
		if !after[id] {
			diff.Removed = append(diff.Removed, id)
		}
	}
	sort.Strings(diff.Added)
	sort.Strings(diff.Removed)
	return diff
}

func publicSet(records []surface.ModuleRecord) map[string]bool {
	out := make(map[string]bool, len(records))
	for _, r := range records {
		if r.Classification == surface.Public {
			out[r.Identifier] = true
		}
	}
	return out
}
