// Package discovery enumerates the candidate identifiers of a source tree: Go
// and Java packages, their exported symbols, or plain file paths.
package discovery

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"apisurface/internal/core/config"
	"apisurface/internal/shared/observability"
	"apisurface/internal/shared/util"

	"github.com/gobwas/glob"
	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"
	tree_sitter_java "github.com/tree-sitter/tree-sitter-java/bindings/go"
)

var languageExtensions = map[string]string{
	".go":   config.LanguageGo,
	".java": config.LanguageJava,
}

type sourceFile struct {
	root     string
	path     string
	rel      string
	language string
}

type Scanner struct {
	opts      Options
	languages map[string]bool
	dirGlobs  []glob.Glob
	fileGlobs []glob.Glob
	pools     map[string]*parserPool
}

func NewScanner(opts Options) (*Scanner, error) {
	switch opts.Granularity {
	case config.GranularityPackage, config.GranularitySymbol, config.GranularityFile:
	default:
		return nil, fmt.Errorf("unsupported granularity %q", opts.Granularity)
	}

	dirGlobs, err := compileGlobs(opts.ExcludeDirs)
	if err != nil {
		return nil, fmt.Errorf("invalid exclude dir pattern: %w", err)
	}
	fileGlobs, err := compileGlobs(opts.ExcludeFiles)
	if err != nil {
		return nil, fmt.Errorf("invalid exclude file pattern: %w", err)
	}

	languages := make(map[string]bool, len(opts.Languages))
	for _, lang := range opts.Languages {
		languages[strings.ToLower(strings.TrimSpace(lang))] = true
	}
	if len(languages) == 0 {
		languages[config.LanguageGo] = true
		languages[config.LanguageJava] = true
	}

	return &Scanner{
		opts:      opts,
		languages: languages,
		dirGlobs:  dirGlobs,
		fileGlobs: fileGlobs,
		pools: map[string]*parserPool{
			config.LanguageGo:   newParserPool(sitter.NewLanguage(tree_sitter_go.Language())),
			config.LanguageJava: newParserPool(sitter.NewLanguage(tree_sitter_java.Language())),
		},
	}, nil
}

func compileGlobs(patterns []string) ([]glob.Glob, error) {
	out := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", p, err)
		}
		out = append(out, g)
	}
	return out, nil
}

// Scan walks roots and returns distinct candidates sorted by identifier.
func (s *Scanner) Scan(ctx context.Context, roots []string) ([]Candidate, error) {
	var files []sourceFile
	for _, root := range roots {
		found, err := s.collect(ctx, root)
		if err != nil {
			return nil, err
		}
		files = append(files, found...)
	}

	var (
		cands []Candidate
		err   error
	)
	switch s.opts.Granularity {
	case config.GranularityFile:
		cands = s.fileCandidates(files)
	default:
		// go.mod lookups are cached for one pass.
		cands, err = s.parseCandidates(ctx, files, newModuleResolver())
	}
	if err != nil {
		return nil, err
	}
	return dedupe(cands), nil
}

// IsRelevantPath reports whether a change at path can alter the scan result.
func (s *Scanner) IsRelevantPath(path string) bool {
	base := filepath.Base(path)
	if base == "go.mod" {
		return s.languages[config.LanguageGo]
	}
	lang, ok := languageExtensions[strings.ToLower(filepath.Ext(base))]
	if !ok || !s.languages[lang] {
		return false
	}
	if !s.opts.IncludeTests && isTestFile(path, lang) {
		return false
	}
	return !matchAnyGlob(s.fileGlobs, base)
}

// IsExcludedDir reports whether a directory base name matches an exclude pattern.
func (s *Scanner) IsExcludedDir(path string) bool {
	return matchAnyGlob(s.dirGlobs, filepath.Base(path))
}

func (s *Scanner) collect(ctx context.Context, root string) ([]sourceFile, error) {
	root = filepath.Clean(root)
	var files []sourceFile
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if d.IsDir() {
			if path != root && s.IsExcludedDir(path) {
				return filepath.SkipDir
			}
			return nil
		}
		if !s.IsRelevantPath(path) || filepath.Base(path) == "go.mod" {
			return nil
		}

		rel, err := util.RelativeIdentifier(root, path)
		if err != nil {
			return err
		}
		if rel == "" {
			rel = filepath.Base(path)
		}
		lang := languageExtensions[strings.ToLower(filepath.Ext(path))]
		files = append(files, sourceFile{root: root, path: path, rel: rel, language: lang})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}
	return files, nil
}

func (s *Scanner) fileCandidates(files []sourceFile) []Candidate {
	out := make([]Candidate, 0, len(files))
	for _, f := range files {
		observability.DiscoveredFilesTotal.WithLabelValues(f.language).Inc()
		out = append(out, Candidate{Identifier: f.rel, Kind: KindFile, Language: f.language, Path: f.rel})
	}
	return out
}

// parseCandidates parses files on a bounded set of workers. Results keep file order.
func (s *Scanner) parseCandidates(ctx context.Context, files []sourceFile, modules *moduleResolver) ([]Candidate, error) {
	workers := s.opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	results := make([][]Candidate, len(files))
	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = s.extract(files[i], modules)
			}
		}()
	}

	var ctxErr error
	for i := range files {
		if ctxErr = ctx.Err(); ctxErr != nil {
			break
		}
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	if ctxErr != nil {
		return nil, ctxErr
	}

	var out []Candidate
	for _, r := range results {
		out = append(out, r...)
	}
	return out, nil
}

func (s *Scanner) extract(f sourceFile, modules *moduleResolver) []Candidate {
	observability.DiscoveredFilesTotal.WithLabelValues(f.language).Inc()

	if f.language == config.LanguageGo && s.opts.Granularity == config.GranularityPackage {
		// Package identity comes from the directory; no parse needed.
		dir := filepath.Dir(f.path)
		return []Candidate{{
			Identifier: modules.importPath(f.root, dir),
			Kind:       KindPackage,
			Language:   f.language,
			Path:       relDir(f.rel),
		}}
	}

	source, err := os.ReadFile(f.path)
	if err != nil {
		observability.ParseFailuresTotal.WithLabelValues(f.language).Inc()
		slog.Warn("failed to read source file", "path", f.path, "error", err)
		return nil
	}

	pool := s.pools[f.language]
	parser := pool.get()
	defer pool.put(parser)

	tree := parser.Parse(source, nil)
	if tree == nil {
		observability.ParseFailuresTotal.WithLabelValues(f.language).Inc()
		slog.Warn("failed to parse source file", "path", f.path)
		return nil
	}
	defer tree.Close()
	root := tree.RootNode()
	if root.HasError() {
		slog.Debug("source file has syntax errors, extracting what parsed", "path", f.path)
	}

	switch f.language {
	case config.LanguageGo:
		pkg := modules.importPath(f.root, filepath.Dir(f.path))
		return symbolCandidates(pkg, goSymbols(root, source), f)
	case config.LanguageJava:
		pkg, types := javaSurface(root, source)
		if s.opts.Granularity == config.GranularityPackage {
			if pkg == "" {
				return nil
			}
			return []Candidate{{Identifier: pkg, Kind: KindPackage, Language: f.language, Path: relDir(f.rel)}}
		}
		return symbolCandidates(pkg, types, f)
	}
	return nil
}

func symbolCandidates(pkg string, names []string, f sourceFile) []Candidate {
	out := make([]Candidate, 0, len(names))
	for _, name := range names {
		id := name
		if pkg != "" {
			id = pkg + "." + name
		}
		out = append(out, Candidate{Identifier: id, Kind: KindSymbol, Language: f.language, Path: f.rel})
	}
	return out
}

func dedupe(cands []Candidate) []Candidate {
	byID := make(map[string]Candidate, len(cands))
	for _, c := range cands {
		existing, ok := byID[c.Identifier]
		if !ok || c.Path < existing.Path {
			byID[c.Identifier] = c
		}
	}
	out := make([]Candidate, 0, len(byID))
	for _, id := range util.SortedStringKeys(byID) {
		out = append(out, byID[id])
	}
	return out
}

func relDir(rel string) string {
	dir := filepath.ToSlash(filepath.Dir(filepath.FromSlash(rel)))
	if dir == "." {
		return ""
	}
	return dir
}

func matchAnyGlob(globs []glob.Glob, value string) bool {
	for _, g := range globs {
		if g.Match(value) {
			return true
		}
	}
	return false
}

func isTestFile(path, lang string) bool {
	base := filepath.Base(path)
	switch lang {
	case config.LanguageGo:
		return strings.HasSuffix(strings.ToLower(base), "_test.go")
	case config.LanguageJava:
		slashed := filepath.ToSlash(path)
		if strings.Contains(slashed, "/src/test/") || strings.HasPrefix(slashed, "src/test/") {
			return true
		}
		return strings.HasSuffix(base, "Test.java") || strings.HasSuffix(base, "Tests.java")
	}
	return false
}
