// Package bundle is the top-level orchestrator: it determines a valid load
// order across the slice dependency graph, drives compilation and linking
// in that order, and writes the resulting resources to an output directory
// as a manifest-described bundle (spec.md §4, §5, §6).
package bundle

import (
	"fmt"

	"github.com/pkgforge/bundler/internal/perr"
	"github.com/pkgforge/bundler/internal/pkgdecl"
	"github.com/pkgforge/bundler/internal/pkgmodel"
)

// DetermineLoadOrder topologically sorts the transitive closure of roots.
// Ordering constraints come from ordered "uses" edges only — an edge marked
// unordered contributes no load-order constraint and no symbol import
// (spec.md §4.6) — but an unordered edge's target must still be expanded and
// present in the result (spec.md §4.6 "recursively ensure slices exist for
// every uses entry", invariant 5): a slice reachable only through unordered
// edges is not dropped. A true cycle among ordered edges is a
// DependencyCycleError; ties are broken by the order roots and each slice's
// own uses list were given, making the result deterministic for a fixed
// declaration set.
func DetermineLoadOrder(resolver pkgmodel.Resolver, roots []*pkgmodel.Slice) ([]*pkgmodel.Slice, error) {
	const (
		unvisited = iota
		visiting
		done
	)
	status := map[*pkgmodel.Slice]int{}
	var order []*pkgmodel.Slice

	// visitOrdered performs the actual topological sort, following ordered
	// edges only, so cycle detection never sees an unordered edge and can
	// never raise a false DependencyCycleError over one.
	var visitOrdered func(s *pkgmodel.Slice, chain []*pkgmodel.Slice) error
	visitOrdered = func(s *pkgmodel.Slice, chain []*pkgmodel.Slice) error {
		switch status[s] {
		case done:
			return nil
		case visiting:
			from := s
			if len(chain) > 0 {
				from = chain[len(chain)-1]
			}
			return &perr.DependencyCycleError{A: sliceLabel(from), B: sliceLabel(s)}
		}
		status[s] = visiting
		next := append(chain, s)

		for _, u := range s.Uses {
			if u.Unordered {
				continue
			}
			depSlice, err := resolveUse(resolver, s, u)
			if err != nil {
				return err
			}
			if err := visitOrdered(depSlice, next); err != nil {
				return err
			}
		}

		status[s] = done
		order = append(order, s)
		return nil
	}

	// expand walks every edge, ordered or not, purely to discover the full
	// set of slices reachable from roots — existence, not ordering.
	reachable := map[*pkgmodel.Slice]bool{}
	var reachableOrder []*pkgmodel.Slice
	var expand func(s *pkgmodel.Slice) error
	expand = func(s *pkgmodel.Slice) error {
		if reachable[s] {
			return nil
		}
		reachable[s] = true
		reachableOrder = append(reachableOrder, s)
		for _, u := range s.Uses {
			depSlice, err := resolveUse(resolver, s, u)
			if err != nil {
				return err
			}
			if err := expand(depSlice); err != nil {
				return err
			}
		}
		return nil
	}

	for _, r := range roots {
		if err := expand(r); err != nil {
			return nil, err
		}
	}
	for _, r := range roots {
		if err := visitOrdered(r, nil); err != nil {
			return nil, err
		}
	}
	// Anything reached only through an unordered edge was never visited by
	// the ordered pass above (it isn't a root and no ordered edge led to
	// it) — feed it through visitOrdered too, so it (and its own ordered
	// dependencies) still lands in the result.
	for _, s := range reachableOrder {
		if status[s] == done {
			continue
		}
		if err := visitOrdered(s, nil); err != nil {
			return nil, err
		}
	}
	return order, nil
}

func resolveUse(resolver pkgmodel.Resolver, s *pkgmodel.Slice, u pkgdecl.UsesEntry) (*pkgmodel.Slice, error) {
	pkgName, sliceName := pkgmodel.SplitUsesSpec(u.Spec)
	dep, err := resolver.Get(pkgName)
	if err != nil {
		return nil, &perr.ResolutionError{Msg: fmt.Sprintf("resolving %q while ordering %s: %v", pkgName, sliceLabel(s), err)}
	}
	depSlice, ok := dep.Slice(sliceName, s.Arch)
	if !ok {
		return nil, &perr.ResolutionError{Msg: fmt.Sprintf("%s has no %q slice for arch %q, used by %s", pkgName, sliceName, s.Arch, sliceLabel(s))}
	}
	return depSlice, nil
}

func sliceLabel(s *pkgmodel.Slice) string {
	name := s.Owner.Name
	if name == "" {
		name = "<app>"
	}
	return fmt.Sprintf("%s.%s@%s", name, s.SliceName, s.Arch)
}
