package pkgmodel

import (
	"path/filepath"
	"strings"

	"github.com/pkgforge/bundler/internal/pkgdecl"
	"github.com/pkgforge/bundler/internal/resource"
	"github.com/pkgforge/bundler/internal/scan"
)

// NewFromAppDirectory builds the application pseudo-package: Name is empty,
// ServeRoot is "/", and its source list comes from scanning the directory
// rather than an explicit declaration, since an application has no
// package.bundle of its own (spec.md §3's "a package with an empty name").
// uses names the packages the app depends on in role use.
func NewFromAppDirectory(appDir string, uses []pkgdecl.UsesEntry) (*Package, error) {
	paths, err := scan.Scan(appDir, scan.Options{})
	if err != nil {
		return nil, err
	}

	pkg := newPackage("", appDir, "/", false)
	appUses := WithImplicitBaseDependency("", RoleUse, uses)

	var clientSources, serverSources []string
	for _, p := range paths {
		client, server := classifyAppFile(p)
		if client {
			clientSources = append(clientSources, p)
		}
		if server {
			serverSources = append(serverSources, p)
		}
	}

	if len(clientSources) > 0 {
		NewSlice(pkg, "app", RoleUse, resource.ArchClient, appUses, clientSources, nil)
		pkg.DefaultSlices[resource.ArchClient] = []string{"app"}
	}
	if len(serverSources) > 0 {
		NewSlice(pkg, "app", RoleUse, resource.ArchServer, appUses, serverSources, nil)
		pkg.DefaultSlices[resource.ArchServer] = []string{"app"}
	}
	return pkg, nil
}

// appPackageListFile names the app-level dependency list — see
// internal/bundle's readAppPackageList — excluded from the app's own
// scanned sources the same way packages/ is.
const appPackageListFile = "packages.list"

// classifyAppFile applies the app's directory-convention arch split,
// matching each special directory name (packages, private, tests, server,
// client) as a path segment at any depth rather than only a top-level
// prefix — e.g. shared/server/foo.js is server-only, not loaded on both
// arches (spec.md §4.4). packages/ and private/ files are never app
// sources at all; neither are tests/ files, which belong to a package's
// own on_test role, not the app's production (role use) slices; server/
// is server-only; client/ is client-only; everything else loads on both.
func classifyAppFile(relPath string) (client, server bool) {
	if relPath == appPackageListFile {
		return false, false
	}
	var inPackages, inPrivate, inTests, inServer, inClient bool
	for _, seg := range strings.Split(filepath.ToSlash(relPath), "/") {
		switch seg {
		case "packages":
			inPackages = true
		case "private":
			inPrivate = true
		case "tests":
			inTests = true
		case "server":
			inServer = true
		case "client":
			inClient = true
		}
	}
	if inPackages || inPrivate || inTests {
		return false, false
	}
	if inServer {
		return false, true
	}
	if inClient {
		return true, false
	}
	return true, true
}
