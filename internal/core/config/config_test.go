package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	coreerrors "apisurface/internal/core/errors"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "apisurface.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	content := `
[api]
includes = ["org.gradle.**", "org.gradle.api.**"]
excludes = ["**.internal.**"]
require_identifiers = true
granularity = "Package"

[scan]
roots = ["./subprojects"]
languages = ["java"]

[exclude]
dirs = [".git"]
files = ["*Generated.java"]

[output]
stdout = "json"
markdown = "build/api.md"

[history]
enabled = true
project = "gradle"

[watch]
debounce = "1s"
`
	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if len(cfg.API.Includes) != 2 || cfg.API.Includes[1] != "org.gradle.api.**" {
		t.Errorf("unexpected includes %v", cfg.API.Includes)
	}
	if len(cfg.API.Excludes) != 1 || cfg.API.Excludes[0] != "**.internal.**" {
		t.Errorf("unexpected excludes %v", cfg.API.Excludes)
	}
	if !cfg.API.RequireIdentifiers {
		t.Error("expected require_identifiers=true")
	}
	if cfg.API.Granularity != GranularityPackage {
		t.Errorf("expected granularity to be normalized to package, got %q", cfg.API.Granularity)
	}
	if len(cfg.Scan.Languages) != 1 || cfg.Scan.Languages[0] != LanguageJava {
		t.Errorf("unexpected languages %v", cfg.Scan.Languages)
	}
	if cfg.Watch.Debounce != time.Second {
		t.Errorf("expected debounce 1s, got %v", cfg.Watch.Debounce)
	}
	if cfg.Output.Stdout != FormatJSON {
		t.Errorf("expected stdout json, got %q", cfg.Output.Stdout)
	}
	if !cfg.History.Enabled || cfg.History.Project != "gradle" || cfg.History.Path != "apisurface.db" {
		t.Errorf("unexpected history config %+v", cfg.History)
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `version = 1`))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.API.Granularity != GranularitySymbol {
		t.Errorf("expected default granularity symbol, got %q", cfg.API.Granularity)
	}
	if len(cfg.API.Includes) != 0 {
		t.Errorf("expected no default includes, got %v", cfg.API.Includes)
	}
	if cfg.Watch.Debounce != 500*time.Millisecond {
		t.Errorf("expected default debounce 500ms, got %v", cfg.Watch.Debounce)
	}
	if len(cfg.Scan.Roots) != 1 || cfg.Scan.Roots[0] != "." {
		t.Errorf("expected default scan root '.', got %v", cfg.Scan.Roots)
	}
	if len(cfg.Exclude.Dirs) == 0 {
		t.Error("expected default exclude dirs")
	}
}

func TestLoadError(t *testing.T) {
	if _, err := Load("nonexistent.toml"); err == nil {
		t.Error("Expected error for nonexistent file")
	}
	if _, err := Load(writeConfig(t, "bad = toml = format")); err == nil {
		t.Error("Expected error for malformed TOML")
	}
}

func TestLoadValidation(t *testing.T) {
	cases := []struct {
		name    string
		content string
		want    string
	}{
		{"Version", "version = 3", "unsupported config version"},
		{"Granularity", "[api]\ngranularity = \"class\"", "api.granularity"},
		{"BlankInclude", "[api]\nincludes = [\"a.**\", \" \"]", "api.includes[1]"},
		{"BlankExclude", "[api]\nexcludes = [\"\"]", "api.excludes[0]"},
		{"Language", "[scan]\nlanguages = [\"kotlin\"]", "scan.languages"},
		{"DuplicateLanguage", "[scan]\nlanguages = [\"go\", \"Go\"]", "duplicate scan language"},
		{"Stdout", "[output]\nstdout = \"xml\"", "output.stdout"},
		{"SameOutputPath", "[output]\nmarkdown = \"out.txt\"\ntsv = \"out.txt\"", "both write to"},
		{"NegativeDebounce", "[watch]\ndebounce = \"-1s\"", "watch.debounce"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.content))
			if err == nil {
				t.Fatalf("expected validation error containing %q", tc.want)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
			if !coreerrors.IsCode(err, coreerrors.CodeValidationError) {
				t.Fatalf("expected VALIDATION_ERROR, got %v", err)
			}
			if !strings.Contains(err.Error(), "apisurface.toml") {
				t.Fatalf("expected config path in error, got %v", err)
			}
		})
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("APISURFACE_API_INCLUDES", "com.example.**, com.other.*")
	t.Setenv("APISURFACE_API_EXCLUDES", "")
	t.Setenv("APISURFACE_HISTORY_ENABLED", "true")
	t.Setenv("APISURFACE_WATCH_DEBOUNCE", "250ms")

	cfg, err := Load(writeConfig(t, "[api]\nexcludes = [\"x.**\"]"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(cfg.API.Includes) != 2 || cfg.API.Includes[1] != "com.other.*" {
		t.Errorf("unexpected includes %v", cfg.API.Includes)
	}
	if len(cfg.API.Excludes) != 0 {
		t.Errorf("expected env to clear excludes, got %v", cfg.API.Excludes)
	}
	if !cfg.History.Enabled {
		t.Error("expected history enabled via env")
	}
	if cfg.Watch.Debounce != 250*time.Millisecond {
		t.Errorf("expected debounce 250ms, got %v", cfg.Watch.Debounce)
	}
}

func TestResolvePaths(t *testing.T) {
	base := t.TempDir()
	cfg := DefaultConfig()
	cfg.Scan.Roots = []string{"src", filepath.Join(base, "abs")}
	cfg.Output.Root = "out"
	cfg.Output.Markdown = "api.md"

	paths, err := ResolvePaths(cfg, base)
	if err != nil {
		t.Fatal(err)
	}
	if paths.ProjectRoot != base {
		t.Errorf("expected project root %s, got %s", base, paths.ProjectRoot)
	}
	if paths.DBPath != filepath.Join(base, "data", "database", "apisurface.db") {
		t.Errorf("unexpected db path %s", paths.DBPath)
	}
	if paths.ScanRoots[0] != filepath.Join(base, "src") || paths.ScanRoots[1] != filepath.Join(base, "abs") {
		t.Errorf("unexpected scan roots %v", paths.ScanRoots)
	}
	if paths.MarkdownPath != filepath.Join(base, "out", "api.md") {
		t.Errorf("unexpected markdown path %s", paths.MarkdownPath)
	}
	if paths.TSVPath != "" || paths.JSONPath != "" {
		t.Errorf("expected unset outputs to stay empty, got %q %q", paths.TSVPath, paths.JSONPath)
	}

	if _, err := ResolvePaths(cfg, " "); err == nil {
		t.Error("expected error for blank base")
	}
}

func TestLoad_ExampleConfig(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "..", "apisurface.example.toml"))
	if err != nil {
		t.Fatalf("load example config: %v", err)
	}
	if cfg.API.Granularity != GranularitySymbol {
		t.Errorf("expected symbol granularity, got %q", cfg.API.Granularity)
	}
	if len(cfg.API.Includes) != 1 || len(cfg.API.Excludes) != 2 {
		t.Errorf("unexpected rules %+v", cfg.API)
	}
	if cfg.History.Keep != 50 || cfg.History.BusyTimeout != 5*time.Second {
		t.Errorf("unexpected history section %+v", cfg.History)
	}
	if cfg.Watch.Debounce != 500*time.Millisecond {
		t.Errorf("expected 500ms debounce, got %s", cfg.Watch.Debounce)
	}
}
