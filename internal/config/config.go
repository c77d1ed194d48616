// Package config holds the bundler's run options and the environment
// variables it reads, in the teacher's style of a small, explicit options
// struct plus free functions for each source of configuration (env.go's
// LoadEnvFiles/parseEnvFile pattern, generalized from .env variants to a
// single PATH-like list variable).
package config

import (
	"os"
	"path/filepath"
	"strings"
)

// NodeModulesMode controls how the bundled packages' third-party
// dependencies, from slices of either arch, land in the output tree.
type NodeModulesMode string

const (
	NodeModulesSkip    NodeModulesMode = "skip"
	NodeModulesCopy    NodeModulesMode = "copy"
	NodeModulesSymlink NodeModulesMode = "symlink"
)

// Options gathers everything Build needs beyond the app directory itself.
type Options struct {
	AppDir          string
	OutputPath      string
	NodeModulesMode NodeModulesMode
	ReleaseStamp    string
	Minify          bool
	TestPackages    []string
	WarehouseDir    string
	Verbose         bool
}

// PackageDirsEnv is the environment variable naming extra local package
// roots, analogous to the teacher's PLZ_* env-driven configuration.
const PackageDirsEnv = "PACKAGE_DIRS"

// PackageDirs reads PACKAGE_DIRS from the environment: a list of
// directories, separated by the platform's path-list separator, each
// searched (in order) for packages not found under the app's own packages/
// directory.
func PackageDirs() []string {
	raw := os.Getenv(PackageDirsEnv)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, string(os.PathListSeparator))
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// LocalRoots returns the ordered list of local package-directory roots to
// search: the app's own packages/ directory first, then PACKAGE_DIRS.
func LocalRoots(appDir string) []string {
	roots := []string{filepath.Join(appDir, "packages")}
	return append(roots, PackageDirs()...)
}
