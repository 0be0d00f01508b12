package config

import (
	"fmt"
	"strings"
)

func validateVersion(cfg *Config) error {
	if cfg.Version < 1 {
		return fmt.Errorf("version must be >= 1, got %d", cfg.Version)
	}
	if cfg.Version > 1 {
		return fmt.Errorf("unsupported config version %d; supported version is 1", cfg.Version)
	}
	return nil
}

// Pattern syntax is checked when the pattern set is built; only blanks are caught here.
func validateAPI(cfg *Config) error {
	switch cfg.API.Granularity {
	case GranularityPackage, GranularitySymbol, GranularityFile:
	default:
		return fmt.Errorf("api.granularity must be one of: package, symbol, file")
	}
	for i, p := range cfg.API.Includes {
		if strings.TrimSpace(p) == "" {
			return fmt.Errorf("api.includes[%d] must not be empty", i)
		}
	}
	for i, p := range cfg.API.Excludes {
		if strings.TrimSpace(p) == "" {
			return fmt.Errorf("api.excludes[%d] must not be empty", i)
		}
	}
	return nil
}

func validateScan(cfg *Config) error {
	for i, root := range cfg.Scan.Roots {
		if strings.TrimSpace(root) == "" {
			return fmt.Errorf("scan.roots[%d] must not be empty", i)
		}
	}
	seen := make(map[string]bool, len(cfg.Scan.Languages))
	for _, lang := range cfg.Scan.Languages {
		if lang != LanguageGo && lang != LanguageJava {
			return fmt.Errorf("scan.languages entries must be one of: go, java; got %q", lang)
		}
		if seen[lang] {
			return fmt.Errorf("duplicate scan language %q", lang)
		}
		seen[lang] = true
	}
	return nil
}

func validateOutput(cfg *Config) error {
	switch cfg.Output.Stdout {
	case FormatText, FormatMarkdown, FormatTSV, FormatJSON, "none":
	default:
		return fmt.Errorf("output.stdout must be one of: text, markdown, tsv, json, none")
	}

	seen := make(map[string]string, 3)
	for name, path := range map[string]string{
		"output.markdown": cfg.Output.Markdown,
		"output.tsv":      cfg.Output.TSV,
		"output.json":     cfg.Output.JSON,
	} {
		path = strings.TrimSpace(path)
		if path == "" {
			continue
		}
		if other, ok := seen[path]; ok {
			return fmt.Errorf("%s and %s both write to %q", other, name, path)
		}
		seen[path] = name
	}
	return nil
}

func validateHistory(cfg *Config) error {
	if cfg.History.Keep < 0 {
		return fmt.Errorf("history.keep must be >= 0")
	}
	if !cfg.History.Enabled {
		return nil
	}
	if strings.TrimSpace(cfg.History.Path) == "" {
		return fmt.Errorf("history.path must not be empty when history.enabled=true")
	}
	if strings.TrimSpace(cfg.History.Project) == "" {
		return fmt.Errorf("history.project must not be empty when history.enabled=true")
	}
	return nil
}

func validateWatch(cfg *Config) error {
	if cfg.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must not be negative")
	}
	if cfg.Watch.RescansPerSecond <= 0 {
		return fmt.Errorf("watch.rescans_per_second must be > 0")
	}
	if cfg.Watch.Burst < 1 {
		return fmt.Errorf("watch.burst must be >= 1")
	}
	return nil
}

func validateObservability(cfg *Config) error {
	if cfg.Observability.Enabled && strings.TrimSpace(cfg.Observability.Address) == "" {
		return fmt.Errorf("observability.address must not be empty when observability.enabled=true")
	}
	return nil
}
