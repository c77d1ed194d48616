// Package linker implements the two-phase symbol-resolution transform
// described in spec.md §4.1: prelink scopes a package's own top-level
// declarations and discovers its export set; link splices in the resolved
// cross-package import bindings at the boundary prelink left behind.
package linker

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/pkgforge/bundler/internal/jsparse"
)

// Fragment is one unit of source the linker transforms, paired with the
// served path it will live at.
type Fragment struct {
	Source    string
	ServePath string
}

// PrelinkInput are the arguments to Prelink (spec.md §4.1 "Phase 1").
type PrelinkInput struct {
	Fragments           []Fragment
	PackageName         string // empty for an application pseudo-package
	ForceExport         []string
	UseGlobalNamespace  bool
	CombinedServePath   string // only used when UseGlobalNamespace is false
	ImportStubServePath string
}

// PrelinkOutput is the result of Prelink.
type PrelinkOutput struct {
	Files    []Fragment
	Boundary string
	Exports  []string
}

// LinkInput are the arguments to Link (spec.md §4.1 "Phase 2").
type LinkInput struct {
	Imports            map[string]string // symbol -> supplying package name
	UseGlobalNamespace  bool
	PrelinkFiles        []Fragment
	Boundary            string
}

// Error is a LinkerError per spec.md §7 — a missing boundary marker or
// malformed prelink input.
type Error struct {
	Msg string
}

func (e *Error) Error() string { return "linker: " + e.Msg }

// newBoundary generates a boundary token guaranteed not to collide with any
// string appearing in the transformed source: a random UUID wrapped in
// delimiters no legitimate JS identifier or literal would contain, checked
// against every fragment and regenerated on the (astronomically unlikely)
// collision.
func newBoundary(fragments []Fragment) string {
	for {
		token := fmt.Sprintf("\x00__link_boundary_%s__\x00", uuid.NewString())
		collides := false
		for _, f := range fragments {
			if strings.Contains(f.Source, token) {
				collides = true
				break
			}
		}
		if !collides {
			return token
		}
	}
}

// Prelink scopes each fragment's top-level declarations and collects the
// export set, leaving a boundary marker at the splice point for Link.
//
// In application mode (UseGlobalNamespace, no package name) declarations
// stay on the shared global namespace and no exports are collected — an app
// cannot provide exports to other packages. In package mode, declarations
// are wrapped in an IIFE-style private scope; declarations named by a
// per-source "@export" directive or by ForceExport are additionally
// attached to the package's public namespace object.
func Prelink(in PrelinkInput) (PrelinkOutput, error) {
	boundary := newBoundary(in.Fragments)

	forced := make(map[string]bool, len(in.ForceExport))
	for _, s := range in.ForceExport {
		forced[s] = true
	}

	var exportSet []string
	exportSeen := make(map[string]bool)
	addExport := func(name string) {
		if !exportSeen[name] {
			exportSeen[name] = true
			exportSet = append(exportSet, name)
		}
	}

	out := make([]Fragment, 0, len(in.Fragments))

	if in.UseGlobalNamespace {
		for _, f := range in.Fragments {
			out = append(out, Fragment{
				Source:    boundary + "\n" + f.Source,
				ServePath: f.ServePath,
			})
		}
		return PrelinkOutput{Files: out, Boundary: boundary, Exports: nil}, nil
	}

	// A package slice with no js fragments and nothing to force-export has
	// nothing to link, so it contributes no file at all.
	if len(in.Fragments) == 0 && len(in.ForceExport) == 0 {
		return PrelinkOutput{Files: out, Boundary: boundary, Exports: nil}, nil
	}

	namespace := packageNamespaceIdent(in.PackageName)
	var combined strings.Builder
	combined.WriteString(boundary)
	combined.WriteString("\n")
	combined.WriteString(fmt.Sprintf("var %s = %s || {};\n", namespace, namespace))

	for _, f := range in.Fragments {
		names, err := jsparse.TopLevelNames([]byte(f.Source))
		if err != nil {
			return PrelinkOutput{}, &Error{Msg: fmt.Sprintf("scanning %s: %v", f.ServePath, err)}
		}
		directives := jsparse.ExportDirectives([]byte(f.Source))
		directed := make(map[string]bool, len(directives))
		for _, d := range directives {
			directed[d] = true
		}

		combined.WriteString(fmt.Sprintf("(function (%s) {\n", namespace))
		combined.WriteString(f.Source)
		combined.WriteString("\n")
		for _, name := range names {
			if forced[name] || directed[name] {
				combined.WriteString(fmt.Sprintf("%s.%s = %s;\n", namespace, name, name))
				addExport(name)
			}
		}
		combined.WriteString(fmt.Sprintf("})(%s);\n", namespace))
	}
	for name := range forced {
		addExport(name)
	}

	out = append(out, Fragment{Source: combined.String(), ServePath: in.CombinedServePath})

	return PrelinkOutput{Files: out, Boundary: boundary, Exports: exportSet}, nil
}

// Link replaces every occurrence of the boundary marker with a prelude
// binding each imported symbol to "OtherPkg.symbol" in local scope. In
// application mode the same prelude is injected so app code can see package
// exports, but on the shared global namespace.
func Link(in LinkInput) ([]Fragment, error) {
	prelude := buildImportPrelude(in.Imports)

	out := make([]Fragment, 0, len(in.PrelinkFiles))
	for _, f := range in.PrelinkFiles {
		if !strings.Contains(f.Source, in.Boundary) {
			return nil, &Error{Msg: fmt.Sprintf("missing boundary marker in %s", f.ServePath)}
		}
		spliced := strings.ReplaceAll(f.Source, in.Boundary, prelude)
		out = append(out, Fragment{Source: spliced, ServePath: f.ServePath})
	}
	return out, nil
}

// buildImportPrelude generates "var Symbol = Package.Symbol;" bindings in
// deterministic order (sorted by symbol name) for reproducible output.
func buildImportPrelude(imports map[string]string) string {
	if len(imports) == 0 {
		return ""
	}
	symbols := make([]string, 0, len(imports))
	for sym := range imports {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	var b strings.Builder
	for _, sym := range symbols {
		pkg := imports[sym]
		ns := packageNamespaceIdent(pkg)
		b.WriteString(fmt.Sprintf("var %s = %s.%s;\n", sym, ns, sym))
	}
	return b.String()
}

// packageNamespaceIdent produces a stable JS identifier for a package's
// namespace object.
func packageNamespaceIdent(pkgName string) string {
	if pkgName == "" {
		return "Package"
	}
	var b strings.Builder
	b.WriteString("Package")
	for _, r := range pkgName {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
