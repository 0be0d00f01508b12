package history

import (
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	coreerrors "apisurface/internal/core/errors"
	"apisurface/internal/engine/surface"
)

func rec(id string, c surface.Classification) surface.ModuleRecord {
	return surface.ModuleRecord{Identifier: id, Classification: c}
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "history.db"), time.Second)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStore_OpenInitializesSchemaAndSaveLoad(t *testing.T) {
	store := openTestStore(t)

	base := time.Date(2026, 2, 13, 10, 0, 0, 0, time.UTC)
	first := Snapshot{
		Timestamp:          base,
		Granularity:        "symbol",
		PatternFingerprint: "abc",
		Records: []surface.ModuleRecord{
			rec("com.example.Api", surface.Public),
			rec("com.example.internal.Detail", surface.Internal),
		},
	}
	second := Snapshot{
		Timestamp:          base.Add(2 * time.Hour),
		Granularity:        "symbol",
		PatternFingerprint: "abc",
		Records: []surface.ModuleRecord{
			rec("com.example.Api", surface.Public),
			rec("com.example.Builder", surface.Public),
		},
	}

	saved, err := store.SaveSnapshot(first)
	if err != nil {
		t.Fatalf("save first snapshot: %v", err)
	}
	if saved.RunID == "" {
		t.Fatal("expected generated run id")
	}
	if saved.ProjectKey != "default" {
		t.Fatalf("expected default project key, got %q", saved.ProjectKey)
	}
	if saved.PublicCount != 1 || saved.InternalCount != 1 {
		t.Fatalf("expected counts 1/1, got %d/%d", saved.PublicCount, saved.InternalCount)
	}
	if _, err := store.SaveSnapshot(second); err != nil {
		t.Fatalf("save second snapshot: %v", err)
	}

	got, err := store.LoadSnapshots("default", base.Add(time.Hour))
	if err != nil {
		t.Fatalf("load snapshots: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 snapshot after since filter, got %d", len(got))
	}
	if got[0].PublicCount != 2 || !got[0].Timestamp.Equal(second.Timestamp) {
		t.Fatalf("unexpected snapshot header %+v", got[0])
	}
	if got[0].Records != nil {
		t.Fatalf("expected headers without records, got %v", got[0].Records)
	}

	all, err := store.LoadSnapshots("default", time.Time{})
	if err != nil {
		t.Fatalf("load all snapshots: %v", err)
	}
	if len(all) != 2 || all[0].RunID != saved.RunID {
		t.Fatalf("expected oldest-first ordering, got %+v", all)
	}

	records, err := store.LoadRecords(saved.RunID)
	if err != nil {
		t.Fatalf("load records: %v", err)
	}
	if len(records) != 2 || records[0].Identifier != "com.example.Api" || records[1].Classification != surface.Internal {
		t.Fatalf("unexpected records %+v", records)
	}
}

func TestStore_LatestSnapshot(t *testing.T) {
	store := openTestStore(t)

	_, err := store.LatestSnapshot("project-a")
	if !coreerrors.IsCode(err, coreerrors.CodeNotFound) {
		t.Fatalf("expected NOT_FOUND for empty history, got %v", err)
	}

	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	for i, id := range []string{"a.One", "a.Two"} {
		_, err := store.SaveSnapshot(Snapshot{
			ProjectKey: "project-a",
			Timestamp:  base.Add(time.Duration(i) * time.Minute),
			Records:    []surface.ModuleRecord{rec(id, surface.Public)},
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	latest, err := store.LatestSnapshot("project-a")
	if err != nil {
		t.Fatal(err)
	}
	if len(latest.Records) != 1 || latest.Records[0].Identifier != "a.Two" {
		t.Fatalf("expected newest run records, got %+v", latest.Records)
	}
}

func TestStore_SaveLoadSnapshots_ProjectIsolation(t *testing.T) {
	store := openTestStore(t)

	base := time.Date(2026, 2, 13, 10, 0, 0, 0, time.UTC)
	if _, err := store.SaveSnapshot(Snapshot{ProjectKey: "project-a", Timestamp: base, Records: []surface.ModuleRecord{rec("a.X", surface.Public)}}); err != nil {
		t.Fatal(err)
	}
	if _, err := store.SaveSnapshot(Snapshot{ProjectKey: "project-b", Timestamp: base, Records: []surface.ModuleRecord{rec("b.X", surface.Internal)}}); err != nil {
		t.Fatal(err)
	}

	aRows, err := store.LoadSnapshots("project-a", time.Time{})
	if err != nil {
		t.Fatal(err)
	}
	if len(aRows) != 1 || aRows[0].PublicCount != 1 {
		t.Fatalf("unexpected project-a rows: %+v", aRows)
	}

	bLatest, err := store.LatestSnapshot("project-b")
	if err != nil {
		t.Fatal(err)
	}
	if len(bLatest.Records) != 1 || bLatest.Records[0].Identifier != "b.X" {
		t.Fatalf("unexpected project-b records: %+v", bLatest.Records)
	}
}

func TestStore_Prune(t *testing.T) {
	store := openTestStore(t)

	base := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	var oldest string
	for i := 0; i < 4; i++ {
		snap, err := store.SaveSnapshot(Snapshot{
			ProjectKey: "p",
			Timestamp:  base.Add(time.Duration(i) * time.Hour),
			Records:    []surface.ModuleRecord{rec("p.X", surface.Public)},
		})
		if err != nil {
			t.Fatal(err)
		}
		if i == 0 {
			oldest = snap.RunID
		}
	}

	removed, err := store.Prune("p", 2)
	if err != nil {
		t.Fatal(err)
	}
	if removed != 2 {
		t.Fatalf("expected 2 pruned runs, got %d", removed)
	}
	rows, err := store.LoadSnapshots("p", time.Time{})
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 remaining runs, got %d", len(rows))
	}
	records, err := store.LoadRecords(oldest)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 0 {
		t.Fatalf("expected cascade delete of pruned entries, got %+v", records)
	}

	if _, err := store.Prune("p", -1); err == nil {
		t.Fatal("expected error for negative keep")
	}
}

func TestStore_SaveRejectsUnknownSchemaVersion(t *testing.T) {
	store := openTestStore(t)
	_, err := store.SaveSnapshot(Snapshot{SchemaVersion: SchemaVersion + 1})
	if err == nil || !strings.Contains(err.Error(), "unsupported snapshot schema version") {
		t.Fatalf("expected schema version error, got %v", err)
	}
}

func TestStore_OpenRejectsDirectoryPath(t *testing.T) {
	_, err := Open(t.TempDir(), 0)
	if err == nil {
		t.Fatal("expected open error for directory path")
	}
	if !strings.Contains(err.Error(), "is a directory") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestStore_OpenCorruptDBPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	if err := os.WriteFile(path, []byte("this is not sqlite"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Open(path, 0)
	if err == nil {
		t.Fatal("expected sqlite open error")
	}
	lower := strings.ToLower(err.Error())
	if !strings.Contains(lower, "not a database") && !strings.Contains(lower, "schema") {
		t.Fatalf("expected schema/open error, got: %v", err)
	}
}

func TestEnsureSchema_DetectsNewerVersionDrift(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := Open(path, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	if _, err := store.db.Exec(`INSERT OR REPLACE INTO schema_migrations(version) VALUES (?)`, SchemaVersion+1); err != nil {
		t.Fatal(err)
	}

	db, err := sql.Open(driverName, "file:"+path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	err = EnsureSchema(db)
	if err == nil {
		t.Fatal("expected drift error")
	}
	if !strings.Contains(err.Error(), "newer than supported") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDiff(t *testing.T) {
	previous := []surface.ModuleRecord{
		rec("a.Kept", surface.Public),
		rec("a.Demoted", surface.Public),
		rec("a.Gone", surface.Public),
		rec("a.Hidden", surface.Internal),
	}
	current := []surface.ModuleRecord{
		rec("a.Kept", surface.Public),
		rec("a.Demoted", surface.Internal),
		rec("a.Hidden", surface.Public),
		rec("a.New", surface.Public),
	}

	diff := Diff(previous, current)
	if len(diff.Added) != 2 || diff.Added[0] != "a.Hidden" || diff.Added[1] != "a.New" {
		t.Fatalf("unexpected added %v", diff.Added)
	}
	if len(diff.Removed) != 2 || diff.Removed[0] != "a.Demoted" || diff.Removed[1] != "a.Gone" {
		t.Fatalf("unexpected removed %v", diff.Removed)
	}
	if diff.Empty() {
		t.Fatal("expected non-empty diff")
	}
	if !Diff(current, current).Empty() {
		t.Fatal("expected identical sets to produce empty diff")
	}
}
