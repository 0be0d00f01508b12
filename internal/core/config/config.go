package config

import (
	"strings"
	"time"
)

const (
	GranularityPackage = "package"
	GranularitySymbol  = "symbol"
	GranularityFile    = "file"

	LanguageGo   = "go"
	LanguageJava = "java"

	FormatText     = "text"
	FormatMarkdown = "markdown"
	FormatTSV      = "tsv"
	FormatJSON     = "json"
)

type Config struct {
	Version       int           `toml:"version"`
	Paths         Paths         `toml:"paths"`
	API           API           `toml:"api"`
	Scan          Scan          `toml:"scan"`
	Exclude       Exclude       `toml:"exclude"`
	Output        Output        `toml:"output"`
	History       History       `toml:"history"`
	Watch         Watch         `toml:"watch"`
	Observability Observability `toml:"observability"`
}

type Paths struct {
	ProjectRoot string `toml:"project_root"`
	DatabaseDir string `toml:"database_dir"`
}

// API is the include/exclude rule set describing the public API surface.
type API struct {
	Includes           []string `toml:"includes"`
	Excludes           []string `toml:"excludes"`
	RequireIdentifiers bool     `toml:"require_identifiers"`
	Granularity        string   `toml:"granularity"`
}

type Scan struct {
	Roots        []string `toml:"roots"`
	Languages    []string `toml:"languages"`
	IncludeTests bool     `toml:"include_tests"`
}

type Exclude struct {
	Dirs  []string `toml:"dirs"`
	Files []string `toml:"files"`
}

type Output struct {
	Stdout   string `toml:"stdout"`
	Markdown string `toml:"markdown"`
	TSV      string `toml:"tsv"`
	JSON     string `toml:"json"`
	Root     string `toml:"root"`
}

type History struct {
	Enabled     bool          `toml:"enabled"`
	Path        string        `toml:"path"`
	Project     string        `toml:"project"`
	BusyTimeout time.Duration `toml:"busy_timeout"`
	// Keep bounds stored runs per project; 0 keeps everything.
	Keep int `toml:"keep"`
}

type Watch struct {
	Debounce         time.Duration `toml:"debounce"`
	RescansPerSecond float64       `toml:"rescans_per_second"`
	Burst            int           `toml:"burst"`
}

type Observability struct {
	Enabled      bool   `toml:"enabled"`
	Address      string `toml:"address"`
	OTLPEndpoint string `toml:"otlp_endpoint"`
	OTLPInsecure bool   `toml:"otlp_insecure"`
}

// DefaultConfig returns a configuration with every default applied and empty rule lists.
func DefaultConfig() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Version == 0 {
		cfg.Version = 1
	}

	if strings.TrimSpace(cfg.Paths.DatabaseDir) == "" {
		cfg.Paths.DatabaseDir = "data/database"
	}

	if strings.TrimSpace(cfg.API.Granularity) == "" {
		cfg.API.Granularity = GranularitySymbol
	}
	cfg.API.Granularity = strings.ToLower(strings.TrimSpace(cfg.API.Granularity))

	if len(cfg.Scan.Roots) == 0 {
		cfg.Scan.Roots = []string{"."}
	}
	if len(cfg.Scan.Languages) == 0 {
		cfg.Scan.Languages = []string{LanguageGo, LanguageJava}
	}
	for i, lang := range cfg.Scan.Languages {
		cfg.Scan.Languages[i] = strings.ToLower(strings.TrimSpace(lang))
	}

	if cfg.Exclude.Dirs == nil {
		cfg.Exclude.Dirs = []string{".git", "vendor", "node_modules", "testdata", "build", ".gradle"}
	}

	if strings.TrimSpace(cfg.Output.Stdout) == "" {
		cfg.Output.Stdout = FormatText
	}
	cfg.Output.Stdout = strings.ToLower(strings.TrimSpace(cfg.Output.Stdout))

	if strings.TrimSpace(cfg.History.Path) == "" {
		cfg.History.Path = "apisurface.db"
	}
	if strings.TrimSpace(cfg.History.Project) == "" {
		cfg.History.Project = "default"
	}
	if cfg.History.BusyTimeout <= 0 {
		cfg.History.BusyTimeout = 2 * time.Second
	}

	// Default debounce if not set.
	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 500 * time.Millisecond
	}
	if cfg.Watch.RescansPerSecond <= 0 {
		cfg.Watch.RescansPerSecond = 1
	}
	if cfg.Watch.Burst <= 0 {
		cfg.Watch.Burst = 1
	}

	if strings.TrimSpace(cfg.Observability.Address) == "" {
		cfg.Observability.Address = "127.0.0.1:9464"
	}
}
