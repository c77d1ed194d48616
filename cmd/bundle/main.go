package main

import (
	"log"
	"os"
	"strings"

	flags "github.com/thought-machine/go-flags"

	"github.com/pkgforge/bundler/internal/bundle"
	"github.com/pkgforge/bundler/internal/config"
	"github.com/pkgforge/bundler/internal/logging"
)

var opts = struct {
	Usage string

	Build struct {
		AppDir          string   `short:"a" long:"app-dir" default:"." description:"Application directory to bundle"`
		Out             string   `short:"o" long:"out" required:"true" description:"Output directory"`
		NodeModules     string   `long:"node-modules" default:"copy" description:"Third-party dependency handling: skip, copy, symlink"`
		Release         string   `long:"release" description:"Release stamp recorded in the manifest"`
		Minify          bool     `long:"minify" description:"Minify and hash the client bundle"`
		TestPackages    []string `long:"test-package" description:"Package name to build in test mode (repeatable)"`
		Warehouse       string   `long:"warehouse" description:"Release checkout directory searched after local package roots"`
		Verbose         bool     `short:"v" long:"verbose" description:"Verbose logging"`
	} `command:"build" alias:"b" description:"Build an application bundle"`
}{
	Usage: `
bundle is a package-oriented build tool: it resolves an application's
package dependency graph, links each package's JavaScript into its own
namespace, and writes a deployable bundle directory.

It provides this main operation:
  - build: produce a bundle directory from an application directory
`,
}

var subCommands = map[string]func() int{
	"build": func() int {
		mode := config.NodeModulesMode(strings.ToLower(opts.Build.NodeModules))
		switch mode {
		case config.NodeModulesSkip, config.NodeModulesCopy, config.NodeModulesSymlink:
		default:
			log.Fatalf("unknown --node-modules mode %q", opts.Build.NodeModules)
		}

		log := logging.New(opts.Build.Verbose)
		manifest, depInfo, err := bundle.Build(config.Options{
			AppDir:          opts.Build.AppDir,
			OutputPath:      opts.Build.Out,
			NodeModulesMode: mode,
			ReleaseStamp:    opts.Build.Release,
			Minify:          opts.Build.Minify,
			TestPackages:    opts.Build.TestPackages,
			WarehouseDir:    opts.Build.Warehouse,
			Verbose:         opts.Build.Verbose,
		}, log)
		if err != nil {
			log.Fatalw("build failed", "error", err)
		}
		log.Infow("build complete", "entries", len(manifest), "watchedFiles", len(depInfo.Files), "out", opts.Build.Out)
		return 0
	},
}

func main() {
	p := flags.NewParser(&opts, flags.Default)
	_, err := p.Parse()
	if err != nil {
		os.Exit(1)
	}
	if p.Active == nil {
		p.WriteHelp(os.Stderr)
		os.Exit(1)
	}
	os.Exit(subCommands[p.Active.Name]())
}
