package discovery

import (
	"os"
	"path/filepath"
	"regexp"
	"sync"
)

var moduleDirective = regexp.MustCompile(`(?m)^\s*module\s+"?([^"\s]+)"?`)

type goModule struct {
	root string
	path string
}

// moduleResolver finds the nearest go.mod above a directory and caches the answer per directory.
type moduleResolver struct {
	mu    sync.Mutex
	byDir map[string]*goModule
}

func newModuleResolver() *moduleResolver {
	return &moduleResolver{byDir: make(map[string]*goModule)}
}

func (r *moduleResolver) find(dir string) *goModule {
	dir = filepath.Clean(dir)

	r.mu.Lock()
	if mod, ok := r.byDir[dir]; ok {
		r.mu.Unlock()
		return mod
	}
	r.mu.Unlock()

	var mod *goModule
	modPath := filepath.Join(dir, "go.mod")
	if data, err := os.ReadFile(modPath); err == nil {
		if m := moduleDirective.FindSubmatch(data); len(m) > 1 {
			mod = &goModule{root: dir, path: string(m[1])}
		}
	}
	if mod == nil {
		if parent := filepath.Dir(dir); parent != dir {
			mod = r.find(parent)
		}
	}

	r.mu.Lock()
	r.byDir[dir] = mod
	r.mu.Unlock()
	return mod
}

// importPath maps a package directory to its import path. Directories outside
// any module fall back to their path relative to the scan root.
func (r *moduleResolver) importPath(scanRoot, dir string) string {
	if mod := r.find(dir); mod != nil {
		rel, err := filepath.Rel(mod.root, dir)
		if err == nil {
			if rel == "." {
				return mod.path
			}
			return mod.path + "/" + filepath.ToSlash(rel)
		}
	}
	rel, err := filepath.Rel(scanRoot, dir)
	if err != nil || rel == "." {
		return filepath.Base(scanRoot)
	}
	return filepath.ToSlash(rel)
}
