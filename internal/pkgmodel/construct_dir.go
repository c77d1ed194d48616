package pkgmodel

import (
	"fmt"
	"path"
	"path/filepath"

	"github.com/pkgforge/bundler/internal/extension"
	"github.com/pkgforge/bundler/internal/pkgdecl"
	"github.com/pkgforge/bundler/internal/resource"
)

// NewFromDirectory builds a Package from a directory carrying a
// package.bundle declaration (spec.md §3/§4.5): one Slice per arch present
// in each role's files or exports map, with the framework-root package
// prepended as its first dependency unless WithImplicitBaseDependency
// exempts it.
func NewFromDirectory(dir string) (*Package, error) {
	declPath := filepath.Join(dir, "package.bundle")
	decl, err := pkgdecl.Parse(declPath)
	if err != nil {
		return nil, err
	}

	name := filepath.Base(dir)
	pkg := newPackage(name, dir, path.Join("/packages", name), false)

	pkg.Metadata["summary"] = decl.Summary
	if decl.Internal {
		pkg.Metadata["internal"] = "true"
	} else {
		pkg.Metadata["internal"] = "false"
	}
	for k, v := range decl.Depends {
		pkg.ThirdPartyDeps[k] = v
	}

	for ext, handlerName := range decl.Extensions {
		handler, ok := extension.ResolveHandler(handlerName, ext)
		if !ok {
			return nil, &pkgdecl.ConfigurationError{Msg: fmt.Sprintf("package %q: unknown extension handler %q for .%s", name, handlerName, ext)}
		}
		pkg.Extensions[ext] = handler
	}

	if decl.Use != nil {
		buildRoleSlices(pkg, RoleUse, "main", decl.Use)
	}
	if decl.Test != nil {
		buildRoleSlices(pkg, RoleTest, "tests", decl.Test)
	}
	return pkg, nil
}

func buildRoleSlices(pkg *Package, role Role, sliceName string, rd *pkgdecl.RoleDecl) {
	uses := WithImplicitBaseDependency(pkg.Name, role, rd.Uses)

	arches := map[resource.Arch]bool{}
	for archStr := range rd.Files {
		arches[resource.Arch(archStr)] = true
	}
	for archStr := range rd.Exports {
		arches[resource.Arch(archStr)] = true
	}

	for arch := range arches {
		sources := rd.Files[string(arch)]
		forceExport := rd.Exports[string(arch)]
		NewSlice(pkg, sliceName, role, arch, uses, sources, forceExport)

		if role == RoleUse {
			pkg.DefaultSlices[arch] = append(pkg.DefaultSlices[arch], sliceName)
		} else {
			pkg.TestSlices[arch] = append(pkg.TestSlices[arch], sliceName)
		}
	}
}
