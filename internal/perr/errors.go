// Package perr holds the categorical pipeline error kinds from spec.md §7
// that don't already have a natural home next to the component that raises
// them (extension.ConflictError, linker.Error, and pkgdecl.ConfigurationError
// live in their own packages). Kept as a small leaf package with no
// dependencies so every layer of the pipeline — pkgmodel, library, bundle —
// can construct and check these without an import cycle.
package perr

import "fmt"

// ResolutionError: a package name couldn't be found by the Library, or a
// slice name/arch isn't present on a resolved package.
type ResolutionError struct {
	Msg string
}

func (e *ResolutionError) Error() string { return "resolution: " + e.Msg }

// DependencyCycleError: an ordered cycle in the slice dependency graph.
type DependencyCycleError struct {
	A, B string
}

func (e *DependencyCycleError) Error() string {
	return fmt.Sprintf("dependency cycle: %s and %s", e.A, e.B)
}

// ResourceError: an unknown resource type, or a head/body resource emitted
// for a non-client arch (fatal; css in the same situation is a documented
// silent-drop, not an error — spec.md §7, §9 Open Question 1).
type ResourceError struct {
	Msg string
}

func (e *ResourceError) Error() string { return "resource: " + e.Msg }

// IOError: a file read/write/rename failure surfaced from the pipeline.
type IOError struct {
	Op  string
	Err error
}

func (e *IOError) Error() string { return fmt.Sprintf("io: %s: %v", e.Op, e.Err) }
func (e *IOError) Unwrap() error { return e.Err }
