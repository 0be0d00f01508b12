package config

import (
	"fmt"
	"path/filepath"
	"strings"
)

type ResolvedPaths struct {
	ProjectRoot  string
	DBPath       string
	OutputRoot   string
	ScanRoots    []string
	MarkdownPath string
	TSVPath      string
	JSONPath     string
}

// ResolvePaths anchors every relative path in cfg at the project root. A blank
// project root falls back to base, usually the config file's directory.
func ResolvePaths(cfg *Config, base string) (ResolvedPaths, error) {
	if strings.TrimSpace(base) == "" {
		return ResolvedPaths{}, fmt.Errorf("base directory must not be empty")
	}
	absBase, err := filepath.Abs(base)
	if err != nil {
		return ResolvedPaths{}, fmt.Errorf("resolve base directory %q: %w", base, err)
	}

	projectRoot := absBase
	if strings.TrimSpace(cfg.Paths.ProjectRoot) != "" {
		projectRoot = ResolveRelative(absBase, cfg.Paths.ProjectRoot)
	}

	databaseDir := ResolveRelative(projectRoot, cfg.Paths.DatabaseDir)
	outputRoot := ResolveRelative(projectRoot, cfg.Output.Root)

	roots := make([]string, 0, len(cfg.Scan.Roots))
	for _, root := range cfg.Scan.Roots {
		roots = append(roots, ResolveRelative(projectRoot, root))
	}

	return ResolvedPaths{
		ProjectRoot:  projectRoot,
		DBPath:       ResolveRelative(databaseDir, cfg.History.Path),
		OutputRoot:   outputRoot,
		ScanRoots:    roots,
		MarkdownPath: resolveOptional(outputRoot, cfg.Output.Markdown),
		TSVPath:      resolveOptional(outputRoot, cfg.Output.TSV),
		JSONPath:     resolveOptional(outputRoot, cfg.Output.JSON),
	}, nil
}

func ResolveRelative(base, value string) string {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return filepath.Clean(base)
	}
	if filepath.IsAbs(raw) {
		return filepath.Clean(raw)
	}
	return filepath.Clean(filepath.Join(base, raw))
}

func resolveOptional(base, value string) string {
	if strings.TrimSpace(value) == "" {
		return ""
	}
	return ResolveRelative(base, value)
}
