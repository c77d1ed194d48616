// Package pkgmodel models the two central spec.md §3 data types, Package and
// Slice, together: a Package owns the Slices built from its declaration, and
// a Slice's compile step calls back into its owner and its owner's
// dependencies to build an extension registry and an import map, so the two
// types are tightly coupled in one direction (Slice -> owning Package) and
// are kept in the same package rather than split across an artificial
// interface boundary.
package pkgmodel

import (
	"sync"

	"github.com/google/uuid"

	"github.com/pkgforge/bundler/internal/extension"
	"github.com/pkgforge/bundler/internal/resource"
)

// baseFrameworkPackage is the always-implicitly-used package every "use"
// role slice depends on, unless it is itself being built (spec.md §3
// invariant: "Unless this is the framework-root package, implicitly depend
// on it in role use").
const baseFrameworkPackage = "meteor"

// Metadata is the descriptor map from a package's declaration file —
// spec.md §3 Package.metadata.
type Metadata map[string]string

// Resolver looks up a package by name. library.Library implements this
// structurally; pkgmodel never imports it, which keeps pkgmodel free of a
// dependency on the caching/warehouse-fetch logic that lives in Library.
type Resolver interface {
	Get(name string) (*Package, error)
}

// Package is spec.md §3's Package: identity, metadata, the extension map it
// registers itself, declared third-party dependencies, and the set of
// Slices built for it (keyed by slice name and target arch).
type Package struct {
	ID             string
	Name           string // "" identifies the application pseudo-package
	SourceRoot     string
	ServeRoot      string
	Metadata       Metadata
	Extensions     map[string]extension.Handler
	ThirdPartyDeps map[string]string
	FromWarehouse  bool

	mu            sync.Mutex
	slices        map[sliceKey]*Slice
	DefaultSlices map[resource.Arch][]string
	TestSlices    map[resource.Arch][]string
}

type sliceKey struct {
	Name string
	Arch resource.Arch
}

func newPackage(name, sourceRoot, serveRoot string, fromWarehouse bool) *Package {
	return &Package{
		ID:             uuid.NewString(),
		Name:           name,
		SourceRoot:     sourceRoot,
		ServeRoot:      serveRoot,
		Metadata:       Metadata{},
		Extensions:     map[string]extension.Handler{},
		ThirdPartyDeps: map[string]string{},
		FromWarehouse:  fromWarehouse,
		slices:         map[sliceKey]*Slice{},
		DefaultSlices:  map[resource.Arch][]string{},
		TestSlices:     map[resource.Arch][]string{},
	}
}

// AddSlice registers a built Slice under its (name, arch) key.
func (p *Package) AddSlice(s *Slice) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.slices[sliceKey{Name: s.SliceName, Arch: s.Arch}] = s
}

// Slice looks up a previously built slice by name and arch.
func (p *Package) Slice(name string, arch resource.Arch) (*Slice, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.slices[sliceKey{Name: name, Arch: arch}]
	return s, ok
}

// Slices returns every slice this package built, for callers (Bundle) that
// need to enumerate all of them rather than look one up by name.
func (p *Package) Slices() []*Slice {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*Slice, 0, len(p.slices))
	for _, s := range p.slices {
		out = append(out, s)
	}
	return out
}
