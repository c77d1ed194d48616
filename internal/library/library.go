// Package library implements spec.md §4.4's Library: a name -> Package
// resolver layering preloaded packages, a resolution cache, an ordered list
// of local package-directory roots, and — last — a release checkout
// ("warehouse") directory for packages not present locally.
package library

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/pkgforge/bundler/internal/perr"
	"github.com/pkgforge/bundler/internal/pkgmodel"
)

// Library resolves package names to *pkgmodel.Package, in this order:
// preloaded, then the resolution cache, then each local root in turn, then
// the warehouse checkout directory (spec.md §4.4).
type Library struct {
	mu         sync.Mutex
	preloaded  map[string]*pkgmodel.Package
	cache      map[string]*pkgmodel.Package
	localRoots []string
	warehouse  string // empty disables warehouse lookup
	log        *zap.SugaredLogger
}

// New builds a Library over the given local roots, in resolution-priority
// order, and an optional warehouse checkout directory (empty to disable).
func New(localRoots []string, warehouse string, log *zap.SugaredLogger) *Library {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Library{
		preloaded:  map[string]*pkgmodel.Package{},
		cache:      map[string]*pkgmodel.Package{},
		localRoots: localRoots,
		warehouse:  warehouse,
		log:        log,
	}
}

// Preload registers pkg under packageName ahead of any lookup, overriding
// any package of that name on disk; it is never evicted by Flush.
func (l *Library) Preload(packageName string, pkg *pkgmodel.Package) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.preloaded[packageName] = pkg
}

// Flush invalidates every cached resolution, forcing the next Get to
// re-read from disk. Preloaded packages are untouched.
func (l *Library) Flush() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cache = map[string]*pkgmodel.Package{}
}

// List returns every name currently resolvable without touching disk
// (preloaded and cached), sorted for deterministic diagnostics.
func (l *Library) List() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	seen := make(map[string]bool, len(l.preloaded)+len(l.cache))
	for n := range l.preloaded {
		seen[n] = true
	}
	for n := range l.cache {
		seen[n] = true
	}
	out := make([]string, 0, len(seen))
	for n := range seen {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Get resolves name to a Package, reading it from disk and caching the
// result on first use. A name absent from every root is a ResolutionError.
func (l *Library) Get(name string) (*pkgmodel.Package, error) {
	l.mu.Lock()
	if p, ok := l.preloaded[name]; ok {
		l.mu.Unlock()
		return p, nil
	}
	if p, ok := l.cache[name]; ok {
		l.mu.Unlock()
		return p, nil
	}
	l.mu.Unlock()

	for _, root := range l.localRoots {
		dir := filepath.Join(root, name)
		if !hasDeclaration(dir) {
			continue
		}
		pkg, err := pkgmodel.NewFromDirectory(dir)
		if err != nil {
			return nil, err
		}
		l.store(name, pkg)
		l.log.Debugw("resolved package from local root", "name", name, "root", root)
		return pkg, nil
	}

	if l.warehouse != "" {
		dir := filepath.Join(l.warehouse, name)
		if hasDeclaration(dir) {
			pkg, err := pkgmodel.NewFromDirectory(dir)
			if err != nil {
				return nil, err
			}
			pkg.FromWarehouse = true
			l.store(name, pkg)
			l.log.Debugw("resolved package from warehouse", "name", name)
			return pkg, nil
		}
	}

	return nil, &perr.ResolutionError{Msg: fmt.Sprintf("package %q not found in preloaded packages, local roots, or warehouse", name)}
}

func (l *Library) store(name string, pkg *pkgmodel.Package) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cache[name] = pkg
}

func hasDeclaration(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, "package.bundle"))
	return err == nil && !info.IsDir()
}
