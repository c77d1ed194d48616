package bundle

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/pkgforge/bundler/internal/config"
	"github.com/pkgforge/bundler/internal/library"
	"github.com/pkgforge/bundler/internal/perr"
	"github.com/pkgforge/bundler/internal/pkgdecl"
	"github.com/pkgforge/bundler/internal/pkgmodel"
	"github.com/pkgforge/bundler/internal/resource"
)

// appPackageListFile names the app-level dependency list, one package
// name per line, analogous to a package.bundle's on_use uses list but for
// the application pseudo-package itself, which has no declaration file.
// internal/pkgmodel defines the same name to exclude this file from the
// app's scanned sources.
const appPackageListFile = "packages.list"

// Build runs the full pipeline: construct the application pseudo-package,
// resolve its dependency graph and any requested test packages, order
// every slice by its ordered uses edges, compile and link them in that
// order, and write the result to opts.OutputPath. It returns the written
// manifest and the dependencyInfo (file hashes and watch directories) a
// caller would use to decide when to trigger a rebuild — spec.md §6's
// core exit behavior, minus the `errors` field since Go already reports
// failure via the returned error.
func Build(opts config.Options, log *zap.SugaredLogger) ([]resource.ManifestEntry, resource.DependencyInfo, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	lib := library.New(config.LocalRoots(opts.AppDir), opts.WarehouseDir, log)

	appUses, err := readAppPackageList(opts.AppDir)
	if err != nil {
		return nil, resource.DependencyInfo{}, err
	}

	app, err := pkgmodel.NewFromAppDirectory(opts.AppDir, appUses)
	if err != nil {
		return nil, resource.DependencyInfo{}, err
	}

	var roots []*pkgmodel.Slice
	if s, ok := app.Slice("app", resource.ArchClient); ok {
		roots = append(roots, s)
	}
	if s, ok := app.Slice("app", resource.ArchServer); ok {
		roots = append(roots, s)
	}

	for _, testPkgName := range opts.TestPackages {
		pkg, err := lib.Get(testPkgName)
		if err != nil {
			return nil, resource.DependencyInfo{}, err
		}
		for _, arch := range []resource.Arch{resource.ArchClient, resource.ArchServer} {
			if s, ok := pkg.Slice("tests", arch); ok {
				roots = append(roots, s)
			}
		}
	}

	log.Infow("ordering slice graph", "roots", len(roots))
	ordered, err := DetermineLoadOrder(lib, roots)
	if err != nil {
		return nil, resource.DependencyInfo{}, err
	}

	var clientOrder, serverOrder []*pkgmodel.Slice
	for _, s := range ordered {
		if s.Arch == resource.ArchClient {
			clientOrder = append(clientOrder, s)
		} else {
			serverOrder = append(serverOrder, s)
		}
	}

	result, err := EmitResources(lib, clientOrder, serverOrder)
	if err != nil {
		return nil, resource.DependencyInfo{}, err
	}
	depInfo := resource.DependencyInfo{
		Files:       result.DependencyFiles,
		Directories: result.DependencyDirectories,
	}

	thirdParty := map[string]string{}
	for _, s := range ordered {
		for dep, ver := range s.Owner.ThirdPartyDeps {
			thirdParty[dep] = ver
		}
	}

	log.Infow("writing bundle", "output", opts.OutputPath, "clientJSFiles", len(result.ClientJS), "serverJSFiles", len(result.ServerJS))
	manifest, err := WriteToDirectory(opts.OutputPath, result, opts, thirdParty)
	if err != nil {
		return nil, resource.DependencyInfo{}, err
	}
	return manifest, depInfo, nil
}

func readAppPackageList(appDir string) ([]pkgdecl.UsesEntry, error) {
	path := filepath.Join(appDir, appPackageListFile)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, &perr.IOError{Op: "read " + path, Err: err}
	}

	var uses []pkgdecl.UsesEntry
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		uses = append(uses, pkgdecl.UsesEntry{Spec: line})
	}
	return uses, nil
}
