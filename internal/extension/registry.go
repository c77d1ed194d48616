// Package extension implements the per-slice handler map described in
// spec.md §4.3: each registered file extension maps to a Handler, composed
// across a package and its direct dependencies, with a fatal conflict when
// two providers register the same extension.
package extension

import (
	"fmt"

	"github.com/pkgforge/bundler/internal/resource"
)

// Sink is passed to a Handler invocation; it is valid only for the
// duration of the call (spec.md §5 "scoped add_resource sink").
type Sink func(resource.Resource)

// Handler compiles one source file into zero or more resources. Arch is the
// target environment the owning slice is being compiled for.
type Handler func(add Sink, absSourcePath, absServePath string, arch resource.Arch) error

// Provider names the package that registered a given extension, for
// conflict-error messages.
type Provider struct {
	PackageName string
	Handler     Handler
}

// Registry is the effective extension->handler map for one slice: the
// union of its own package's extensions and every immediate dependency
// package's extensions.
type Registry struct {
	byExt map[string]Provider
}

// ConflictError is an ExtensionConflict per spec.md §7: two distinct
// handlers registered for the same extension.
type ConflictError struct {
	Extension string
	FirstPkg  string
	SecondPkg string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("extension conflict: %q registered by both %q and %q",
		e.Extension, e.FirstPkg, e.SecondPkg)
}

// New builds an empty registry.
func New() *Registry {
	return &Registry{byExt: make(map[string]Provider)}
}

// Merge folds a package's own extension map into the registry. pkgName
// identifies the registering package for conflict messages. A handler
// already registered by the same package for the same extension (i.e. the
// slice's own package re-merging itself) is not a conflict; two distinct
// packages claiming the same extension is fatal.
func (r *Registry) Merge(pkgName string, exts map[string]Handler) error {
	for ext, h := range exts {
		if existing, ok := r.byExt[ext]; ok {
			if existing.PackageName == pkgName {
				continue
			}
			return &ConflictError{Extension: ext, FirstPkg: existing.PackageName, SecondPkg: pkgName}
		}
		r.byExt[ext] = Provider{PackageName: pkgName, Handler: h}
	}
	return nil
}

// Lookup returns the handler registered for ext (without the leading dot),
// and whether one was found.
func (r *Registry) Lookup(ext string) (Handler, bool) {
	p, ok := r.byExt[ext]
	return p.Handler, ok
}

// Extensions returns every extension this registry recognizes, without
// leading dots, in no particular order — used to derive the watch-glob for
// a slice's dependencyInfo.directories entry.
func (r *Registry) Extensions() []string {
	out := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		out = append(out, ext)
	}
	return out
}
