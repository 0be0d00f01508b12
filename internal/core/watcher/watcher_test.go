package watcher

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"apisurface/internal/core/config"
	"apisurface/internal/engine/discovery"
)

type suffixFilter struct {
	suffixes    []string
	excludedDir string
}

func (f suffixFilter) IsRelevantPath(path string) bool {
	for _, s := range f.suffixes {
		if strings.HasSuffix(path, s) {
			return true
		}
	}
	return false
}

func (f suffixFilter) IsExcludedDir(path string) bool {
	return f.excludedDir != "" && filepath.Base(path) == f.excludedDir
}

func waitForPath(t *testing.T, ch <-chan []string, want string, timeout time.Duration) {
	t.Helper()
	deadline := time.After(timeout)
	for {
		select {
		case paths := <-ch:
			for _, p := range paths {
				if p == want {
					return
				}
			}
		case <-deadline:
			t.Fatalf("timed out waiting for change event on %s", want)
		}
	}
}

func TestNewWatcher_RejectsNilArguments(t *testing.T) {
	w, err := NewWatcher(100*time.Millisecond, suffixFilter{}, nil)
	if !errors.Is(err, os.ErrInvalid) {
		t.Fatalf("expected os.ErrInvalid for nil callback, got %v", err)
	}
	if w != nil {
		t.Fatal("expected nil watcher when callback is invalid")
	}

	_, err = NewWatcher(100*time.Millisecond, nil, func([]string) {})
	if !errors.Is(err, os.ErrInvalid) {
		t.Fatalf("expected os.ErrInvalid for nil filter, got %v", err)
	}
}

func TestWatcher(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(tmpDir, "skipme"), 0o755); err != nil {
		t.Fatal(err)
	}

	changedFiles := make(chan []string, 8)
	w, err := NewWatcher(100*time.Millisecond, suffixFilter{suffixes: []string{".go"}, excludedDir: "skipme"}, func(paths []string) {
		changedFiles <- paths
	})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if err := w.Watch([]string{tmpDir}); err != nil {
		t.Fatal(err)
	}

	testFile := filepath.Join(tmpDir, "api.go")
	if err := os.WriteFile(testFile, []byte("package api"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitForPath(t, changedFiles, testFile, 2*time.Second)

	// Irrelevant files and excluded directories stay quiet.
	if err := os.WriteFile(filepath.Join(tmpDir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(tmpDir, "skipme", "hidden.go"), []byte("package skip"), 0o644); err != nil {
		t.Fatal(err)
	}
	select {
	case paths := <-changedFiles:
		t.Fatalf("unexpected change batch %v", paths)
	case <-time.After(400 * time.Millisecond):
	}

	// New directories are watched recursively after creation.
	subdir := filepath.Join(tmpDir, "newdir")
	if err := os.MkdirAll(subdir, 0o755); err != nil {
		t.Fatal(err)
	}
	subFile := filepath.Join(subdir, "nested.go")
	if err := os.WriteFile(subFile, []byte("package nested"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitForPath(t, changedFiles, subFile, 2*time.Second)
}

func TestWatcher_RenameTriggersChange(t *testing.T) {
	tmpDir := t.TempDir()

	changedFiles := make(chan []string, 8)
	w, err := NewWatcher(100*time.Millisecond, suffixFilter{suffixes: []string{".java"}}, func(paths []string) {
		changedFiles <- paths
	})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if err := w.Watch([]string{tmpDir}); err != nil {
		t.Fatal(err)
	}

	oldPath := filepath.Join(tmpDir, "Old.java")
	newPath := filepath.Join(tmpDir, "New.java")
	if err := os.WriteFile(oldPath, []byte("class Old {}"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Rename(oldPath, newPath); err != nil {
		t.Fatal(err)
	}

	timeout := time.After(2 * time.Second)
	for {
		select {
		case paths := <-changedFiles:
			for _, p := range paths {
				if p == oldPath || p == newPath {
					return
				}
			}
		case <-timeout:
			t.Fatalf("timed out waiting for rename event, old=%s new=%s", oldPath, newPath)
		}
	}
}

func TestWatcher_DebouncesBurstIntoOneBatch(t *testing.T) {
	changed := make(chan []string, 4)
	w, err := NewWatcher(50*time.Millisecond, suffixFilter{suffixes: []string{".go"}}, func(paths []string) {
		changed <- paths
	})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	w.scheduleChange("b.go")
	w.scheduleChange("a.go")
	w.scheduleChange("b.go")

	select {
	case paths := <-changed:
		if len(paths) != 2 || paths[0] != "a.go" || paths[1] != "b.go" {
			t.Fatalf("expected sorted distinct batch, got %v", paths)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for debounced batch")
	}
}

func TestWatcher_ScannerFilter(t *testing.T) {
	scanner, err := discovery.NewScanner(discovery.Options{
		Granularity: config.GranularitySymbol,
		Languages:   []string{config.LanguageGo},
		ExcludeDirs: []string{"vendor"},
	})
	if err != nil {
		t.Fatal(err)
	}

	var filter PathFilter = scanner
	if !filter.IsRelevantPath("/repo/api/api.go") {
		t.Error("expected .go file to be relevant")
	}
	if !filter.IsRelevantPath("/repo/go.mod") {
		t.Error("expected go.mod to be relevant")
	}
	if filter.IsRelevantPath("/repo/api/api_test.go") {
		t.Error("expected test file to be ignored")
	}
	if filter.IsRelevantPath("/repo/src/Api.java") {
		t.Error("expected java to be ignored when only go is enabled")
	}
	if !filter.IsExcludedDir("/repo/vendor") {
		t.Error("expected vendor to be excluded")
	}
}
