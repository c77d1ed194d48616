package pkgmodel

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/pkgforge/bundler/internal/extension"
	"github.com/pkgforge/bundler/internal/linker"
	"github.com/pkgforge/bundler/internal/perr"
	"github.com/pkgforge/bundler/internal/pkgdecl"
	"github.com/pkgforge/bundler/internal/resource"
	"github.com/pkgforge/bundler/internal/scan"
)

// Role mirrors pkgdecl's on_use/on_test split at the slice level.
type Role string

const (
	RoleUse  Role = "use"
	RoleTest Role = "test"
)

// DirWatch is one directory dependency entry: include/exclude glob-derived
// regexes for a slice's dependencyInfo.directories (spec.md §3). It is an
// alias for resource.DirectoryWatch so bundle's Result can carry these
// without importing pkgmodel types it doesn't otherwise need.
type DirWatch = resource.DirectoryWatch

// Slice is spec.md §3's Slice: one (package, role, arch) compilation unit.
// Its uses list, source list, and force-export list are fixed at
// construction time by the owning Package; compile() latches the derived
// extension registry, export set, boundary, prelink output, and resources
// exactly once.
type Slice struct {
	Owner       *Package
	SliceName   string
	Role        Role
	Arch        resource.Arch
	Uses        []pkgdecl.UsesEntry
	Sources     []string // relative to Owner.SourceRoot
	ForceExport []string

	mu           sync.Mutex
	isCompiled   bool
	exports      []string
	boundary     string
	prelinkFiles []linker.Fragment
	resources    []resource.Resource // non-js resources; js is appended by GetResources
	depFiles     map[string]string
	depDirs      map[string]DirWatch
}

// NewSlice constructs an unbuilt Slice and registers it on owner.
func NewSlice(owner *Package, sliceName string, role Role, arch resource.Arch, uses []pkgdecl.UsesEntry, sources []string, forceExport []string) *Slice {
	s := &Slice{
		Owner:       owner,
		SliceName:   sliceName,
		Role:        role,
		Arch:        arch,
		Uses:        uses,
		Sources:     sources,
		ForceExport: forceExport,
	}
	owner.AddSlice(s)
	return s
}

// IsCompiled reports whether Compile has already run.
func (s *Slice) IsCompiled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isCompiled
}

// Exports returns the symbols this slice's prelink phase discovered. Only
// meaningful after Compile.
func (s *Slice) Exports() []string { return s.exports }

// DependencyFiles returns the sha1 of every source file this slice read,
// keyed by absolute path — spec.md §3 Slice.dependencyInfo.files.
func (s *Slice) DependencyFiles() map[string]string { return s.depFiles }

// DependencyDirectories returns the directories an external file watcher
// should recursively watch on this slice's behalf, keyed by absolute path
// — spec.md §3 Slice.dependencyInfo.directories. Only meaningful after
// Compile.
func (s *Slice) DependencyDirectories() map[string]DirWatch { return s.depDirs }

// Compile runs extension dispatch and the prelink phase over this slice's
// own sources exactly once (spec.md §4.2). Dependency exports are not
// needed here — only GetResources, called once all of a slice's
// dependencies have compiled in load order, needs them, via the link phase.
func (s *Slice) Compile(resolver Resolver) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isCompiled {
		return nil
	}

	registry, err := s.buildRegistry(resolver)
	if err != nil {
		return err
	}

	depFiles, err := s.hashSources()
	if err != nil {
		return err
	}

	var jsFrags []linker.Fragment
	var finalResources []resource.Resource

	for _, relPath := range s.Sources {
		abs := filepath.Join(s.Owner.SourceRoot, relPath)
		data, err := os.ReadFile(abs)
		if err != nil {
			return &perr.IOError{Op: "read source " + abs, Err: err}
		}

		servePath := path.Join(s.Owner.ServeRoot, filepath.ToSlash(relPath))
		ext := strings.TrimPrefix(filepath.Ext(relPath), ".")

		var emitted []resource.Resource
		add := func(r resource.Resource) { emitted = append(emitted, r) }

		if handler, ok := registry.Lookup(ext); ok {
			if err := handler(add, abs, servePath, s.Arch); err != nil {
				return err
			}
		} else {
			emitted = append(emitted, resource.Resource{
				Type:      resource.TypeStatic,
				Data:      data,
				ServePath: servePath,
			})
		}

		for _, r := range emitted {
			switch r.Type {
			case resource.TypeJS:
				jsFrags = append(jsFrags, linker.Fragment{Source: string(r.Data), ServePath: r.ServePath})
			case resource.TypeCSS:
				if s.Arch != resource.ArchClient {
					continue // silent drop on non-client arch — DESIGN.md Open Question 1
				}
				finalResources = append(finalResources, r)
			case resource.TypeHead, resource.TypeBody:
				if s.Arch != resource.ArchClient {
					return &perr.ResourceError{Msg: fmt.Sprintf("%s resource emitted for non-client arch %q", r.Type, s.Arch)}
				}
				finalResources = append(finalResources, r)
			case resource.TypeStatic:
				finalResources = append(finalResources, r)
			default:
				return &perr.ResourceError{Msg: fmt.Sprintf("unknown resource type %q from %s", r.Type, abs)}
			}
		}
	}

	pre, err := linker.Prelink(linker.PrelinkInput{
		Fragments:           jsFrags,
		PackageName:         s.Owner.Name,
		ForceExport:         s.ForceExport,
		UseGlobalNamespace:  s.Owner.Name == "",
		CombinedServePath:   combinedServePath(s.Owner.Name, s.SliceName),
		ImportStubServePath: "/packages/global-imports.js",
	})
	if err != nil {
		return err
	}

	s.prelinkFiles = pre.Files
	s.boundary = pre.Boundary
	s.exports = pre.Exports
	s.resources = finalResources
	s.depFiles = depFiles
	s.depDirs = watchDirsFor(s.Owner.SourceRoot, registry)
	s.isCompiled = true
	return nil
}

// watchDirsFor builds the dependencyInfo.directories entry a file watcher
// would use to notice new or changed sources this slice should recompile
// for: the slice's own source tree, with an include pattern per extension
// the registry recognizes and the scanner's default exclude set.
func watchDirsFor(sourceRoot string, registry *extension.Registry) map[string]DirWatch {
	exts := registry.Extensions()
	include := make([]*regexp.Regexp, 0, len(exts))
	for _, ext := range exts {
		include = append(include, regexp.MustCompile(`\.`+regexp.QuoteMeta(ext)+`$`))
	}
	return map[string]DirWatch{
		sourceRoot: {Include: include, Exclude: scan.DefaultIgnorePatterns()},
	}
}

// hashSources reads and sha1-hashes every source file concurrently — they
// are independent reads, so there is no reason to pay for them serially
// before the (inherently ordered) handler-dispatch pass below.
func (s *Slice) hashSources() (map[string]string, error) {
	depFiles := make(map[string]string, len(s.Sources))
	var mu sync.Mutex

	g, _ := errgroup.WithContext(context.Background())
	for _, relPath := range s.Sources {
		relPath := relPath
		g.Go(func() error {
			abs := filepath.Join(s.Owner.SourceRoot, relPath)
			data, err := os.ReadFile(abs)
			if err != nil {
				return &perr.IOError{Op: "hash source " + abs, Err: err}
			}
			sum := sha1.Sum(data)
			mu.Lock()
			depFiles[abs] = hex.EncodeToString(sum[:])
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return depFiles, nil
}

// buildRegistry composes the effective extension registry for this slice:
// its own package plus every immediately-used package's own extensions
// (spec.md §4.3 — direct deps only, not transitive).
func (s *Slice) buildRegistry(resolver Resolver) (*extension.Registry, error) {
	registry := extension.New()
	if err := registry.Merge(s.Owner.Name, s.Owner.Extensions); err != nil {
		return nil, err
	}

	seen := map[string]bool{s.Owner.Name: true}
	for _, u := range s.Uses {
		pkgName, _ := splitUsesSpec(u.Spec)
		if seen[pkgName] {
			continue
		}
		seen[pkgName] = true

		dep, err := resolver.Get(pkgName)
		if err != nil {
			return nil, &perr.ResolutionError{Msg: fmt.Sprintf("resolving %q for extension registry: %v", pkgName, err)}
		}
		if err := registry.Merge(dep.Name, dep.Extensions); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

// GetResources computes this slice's import map from its ordered uses
// (later entries win on a symbol collision; unordered edges contribute no
// imports), links its prelinked fragments, and returns the full resource
// list: non-js resources first, then the linked js fragments, in link
// order (spec.md §4.1, §4.6). Compiles the slice first if Compile has not
// run yet.
func (s *Slice) GetResources(resolver Resolver) ([]resource.Resource, error) {
	if !s.IsCompiled() {
		if err := s.Compile(resolver); err != nil {
			return nil, err
		}
	}

	imports, err := s.computeImportMap(resolver)
	if err != nil {
		return nil, err
	}

	linked, err := linker.Link(linker.LinkInput{
		Imports:            imports,
		UseGlobalNamespace:  s.Owner.Name == "",
		PrelinkFiles:        s.prelinkFiles,
		Boundary:            s.boundary,
	})
	if err != nil {
		return nil, err
	}

	out := make([]resource.Resource, 0, len(s.resources)+len(linked))
	out = append(out, s.resources...)
	for _, f := range linked {
		out = append(out, resource.Resource{Type: resource.TypeJS, Data: []byte(f.Source), ServePath: f.ServePath})
	}
	return out, nil
}

func (s *Slice) computeImportMap(resolver Resolver) (map[string]string, error) {
	imports := map[string]string{}
	for _, u := range s.Uses {
		if u.Unordered {
			continue
		}
		pkgName, sliceName := splitUsesSpec(u.Spec)
		dep, err := resolver.Get(pkgName)
		if err != nil {
			return nil, &perr.ResolutionError{Msg: fmt.Sprintf("resolving %q: %v", pkgName, err)}
		}
		depSlice, ok := dep.Slice(sliceName, s.Arch)
		if !ok {
			return nil, &perr.ResolutionError{Msg: fmt.Sprintf("package %q has no %q slice for arch %q", pkgName, sliceName, s.Arch)}
		}
		if err := depSlice.Compile(resolver); err != nil {
			return nil, err
		}
		for _, sym := range depSlice.Exports() {
			imports[sym] = pkgName // later uses entries win on collision
		}
	}
	return imports, nil
}

// splitUsesSpec splits a "name" or "name.sliceName" uses spec, defaulting
// the slice name to "main".
func splitUsesSpec(spec string) (pkgName, sliceName string) {
	if idx := strings.Index(spec, "."); idx >= 0 {
		return spec[:idx], spec[idx+1:]
	}
	return spec, "main"
}

// SplitUsesSpec is the exported form of splitUsesSpec, for callers outside
// this package that walk the uses graph themselves (internal/bundle's load
// order computation).
func SplitUsesSpec(spec string) (pkgName, sliceName string) {
	return splitUsesSpec(spec)
}

func combinedServePath(pkgName, sliceName string) string {
	if pkgName == "" {
		return ""
	}
	suffix := ""
	if sliceName != "" && sliceName != "main" {
		suffix = "." + sliceName
	}
	return fmt.Sprintf("/packages/%s%s.js", pkgName, suffix)
}

// WithImplicitBaseDependency returns uses with the framework-root package
// prepended, unless the package already is that package declaring a use-role
// slice (spec.md §4.4, §8 boundary "a package named meteor in role use has no
// implicit meteor dependency prepended"). A test-role slice of any other
// package still gets the implicit edge.
func WithImplicitBaseDependency(pkgName string, role Role, uses []pkgdecl.UsesEntry) []pkgdecl.UsesEntry {
	if pkgName == baseFrameworkPackage && role == RoleUse {
		return uses
	}
	for _, u := range uses {
		if name, _ := splitUsesSpec(u.Spec); name == baseFrameworkPackage {
			return uses
		}
	}
	out := make([]pkgdecl.UsesEntry, 0, len(uses)+1)
	out = append(out, pkgdecl.UsesEntry{Spec: baseFrameworkPackage})
	out = append(out, uses...)
	return out
}
