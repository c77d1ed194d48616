package bundle

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/pkgforge/bundler/internal/config"
	"github.com/pkgforge/bundler/internal/perr"
	"github.com/pkgforge/bundler/internal/resource"
)

const readmeContent = `This directory was generated by the bundler. Its layout:

  main.js               one-line launcher; requires server/runner.js
  server/               runner and server-arch support files
  app/                  ordered server-arch program files (see app.json.load)
  static/                non-cacheable client assets (unadorned URL, ?<sha1> cache-buster)
  static_cacheable/      content-hashed, aggressively-cacheable client assets
  npm/<package>/         third-party dependency placeholders
  app.html               synthesized document shell
  app.json               resource manifest ({load, manifest, release})
`

// runnerContent is server/runner.js: the boot logic main.js delegates to,
// requiring every entry in app.json's load list in order.
const runnerContent = `var fs = require('fs');
var path = require('path');
var root = path.join(__dirname, '..');
var manifest = JSON.parse(fs.readFileSync(path.join(root, 'app.json'), 'utf8'));
manifest.load.forEach(function (relPath) {
  require(path.join(root, relPath));
});
`

// mainJSContent is the whole of main.js — a one-line launcher (spec.md §6).
const mainJSContent = "require('./server/runner.js');\n"

// bundleManifest is app.json's on-disk shape (spec.md §6): the ordered
// server-js load list, the full resource manifest, and an optional release
// stamp.
type bundleManifest struct {
	Load     []string                 `json:"load"`
	Manifest []resource.ManifestEntry `json:"manifest"`
	Release  string                   `json:"release,omitempty"`
}

// WriteToDirectory lays the compiled Result out on disk under outputPath,
// staging into a sibling ".build.<basename>" directory and atomically
// renaming it into place on success (spec.md §6 "atomic directory rename").
func WriteToDirectory(outputPath string, res *Result, opts config.Options, thirdPartyDeps map[string]string) ([]resource.ManifestEntry, error) {
	stagingDir := filepath.Join(filepath.Dir(outputPath), ".build."+filepath.Base(outputPath))
	if err := os.RemoveAll(stagingDir); err != nil {
		return nil, &perr.IOError{Op: "clear staging dir", Err: err}
	}
	if err := os.MkdirAll(stagingDir, 0o755); err != nil {
		return nil, &perr.IOError{Op: "create staging dir", Err: err}
	}

	// Non-cacheable entries are produced first, cacheable ones last, so the
	// manifest preserves the "static assets first, then cacheable
	// minified/hashed outputs" ordering guarantee (spec.md §5) regardless
	// of which arch or type produced them.
	var manifest []resource.ManifestEntry
	var cacheable []resource.ManifestEntry

	clientStaticEntries, err := writeStaticAssets(stagingDir, res.ClientStatic)
	if err != nil {
		return nil, err
	}
	manifest = append(manifest, clientStaticEntries...)

	jsEntries, scriptURLs, jsCacheable, err := writeClientJS(stagingDir, res.ClientJS, opts.Minify)
	if err != nil {
		return nil, err
	}
	if jsCacheable {
		cacheable = append(cacheable, jsEntries...)
	} else {
		manifest = append(manifest, jsEntries...)
	}

	cssEntries, styleURLs, cssCacheable, err := writeClientCSS(stagingDir, res.ClientCSS, opts.Minify)
	if err != nil {
		return nil, err
	}
	if cssCacheable {
		cacheable = append(cacheable, cssEntries...)
	} else {
		manifest = append(manifest, cssEntries...)
	}

	serverEntries, load, err := writeServerJS(stagingDir, res.ServerJS)
	if err != nil {
		return nil, err
	}
	manifest = append(manifest, serverEntries...)

	serverStaticEntries, err := writeServerStatic(stagingDir, res.ServerStatic)
	if err != nil {
		return nil, err
	}
	manifest = append(manifest, serverStaticEntries...)

	manifest = append(manifest, cacheable...)

	if err := writeNPMPlaceholders(stagingDir, thirdPartyDeps, opts.NodeModulesMode); err != nil {
		return nil, err
	}

	if err := writeFileUnder(stagingDir, "main.js", []byte(mainJSContent)); err != nil {
		return nil, err
	}
	if err := writeFileUnder(stagingDir, filepath.Join("server", "runner.js"), []byte(runnerContent)); err != nil {
		return nil, err
	}

	if err := writeAppHTML(stagingDir, res.Head, res.Body, styleURLs, scriptURLs); err != nil {
		return nil, err
	}

	if err := writeManifest(stagingDir, load, manifest, opts.ReleaseStamp); err != nil {
		return nil, err
	}

	if err := os.WriteFile(filepath.Join(stagingDir, "README"), []byte(readmeContent), 0o644); err != nil {
		return nil, &perr.IOError{Op: "write README", Err: err}
	}

	if err := os.RemoveAll(outputPath); err != nil {
		return nil, &perr.IOError{Op: "clear previous output", Err: err}
	}
	if err := os.Rename(stagingDir, outputPath); err != nil {
		return nil, &perr.IOError{Op: "rename staging dir into place", Err: err}
	}

	return manifest, nil
}

// writeClientJS writes client js either as one concatenated, minified,
// content-hashed static_cacheable/<sha1>.js entry (opts.Minify) or as one
// static/<relPath> entry per resource, each with a cache-busting ?<sha1>
// query string on its URL (spec.md §4.6, §6, invariant 4). It returns the
// manifest entries, the ordered <script> URLs for app.html, and whether
// those entries are the cacheable kind.
func writeClientJS(stagingDir string, clientJS []resource.Resource, minify bool) ([]resource.ManifestEntry, []string, bool, error) {
	if minify {
		if len(clientJS) == 0 {
			return nil, nil, true, nil
		}
		hash, data, err := Minify(clientJS)
		if err != nil {
			return nil, nil, true, err
		}
		full := filepath.Join("static_cacheable", hash+".js")
		if err := writeFileUnder(stagingDir, full, data); err != nil {
			return nil, nil, true, err
		}
		url := "/" + hash + ".js"
		entry := resource.ManifestEntry{
			Path: full, Where: resource.WhereClient, Type: resource.TypeJS,
			Cacheable: true, URL: url, Size: len(data), Hash: hash,
		}
		return []resource.ManifestEntry{entry}, []string{url}, true, nil
	}

	entries, urls, err := writeClientAssets(stagingDir, clientJS)
	return entries, urls, false, err
}

// writeClientCSS is writeClientJS's CSS counterpart (spec.md §4.6 "same for
// CSS with an opaque CSS optimizer").
func writeClientCSS(stagingDir string, clientCSS []resource.Resource, minify bool) ([]resource.ManifestEntry, []string, bool, error) {
	if minify {
		if len(clientCSS) == 0 {
			return nil, nil, true, nil
		}
		hash, data, err := MinifyCSS(clientCSS)
		if err != nil {
			return nil, nil, true, err
		}
		full := filepath.Join("static_cacheable", hash+".css")
		if err := writeFileUnder(stagingDir, full, data); err != nil {
			return nil, nil, true, err
		}
		url := "/" + hash + ".css"
		entry := resource.ManifestEntry{
			Path: full, Where: resource.WhereClient, Type: resource.TypeCSS,
			Cacheable: true, URL: url, Size: len(data), Hash: hash,
		}
		return []resource.ManifestEntry{entry}, []string{url}, true, nil
	}

	entries, urls, err := writeClientAssets(stagingDir, clientCSS)
	return entries, urls, false, err
}

// writeStaticAssets writes client resources that are never minified (plain
// static files, e.g. images) under static/<relPath>, cache-busted the same
// way unminified js/css is.
func writeStaticAssets(stagingDir string, resources []resource.Resource) ([]resource.ManifestEntry, error) {
	entries, _, err := writeClientAssets(stagingDir, resources)
	return entries, err
}

// writeClientAssets writes each resource under static/<relPath>, unminified,
// with a cache-busting ?<sha1> suffix on its URL (spec.md §6, invariant 4:
// "either it appears in static/ with an unadorned URL"). It returns the
// manifest entries and their URLs in resource order.
func writeClientAssets(stagingDir string, resources []resource.Resource) ([]resource.ManifestEntry, []string, error) {
	var entries []resource.ManifestEntry
	var urls []string
	for i, r := range resources {
		rel := strings.TrimPrefix(r.ServePath, "/")
		if rel == "" {
			rel = fmt.Sprintf("unnamed_%d", i)
		}
		full := filepath.Join("static", rel)
		if err := writeFileUnder(stagingDir, full, r.Data); err != nil {
			return nil, nil, err
		}
		hash := hashBytes(r.Data)
		url := r.ServePath + "?" + hash
		entries = append(entries, resource.ManifestEntry{
			Path: full, Where: resource.WhereClient, Type: r.Type,
			Cacheable: false, URL: url, Size: len(r.Data), Hash: hash,
		})
		urls = append(urls, url)
	}
	return entries, urls, nil
}

// writeServerJS writes each ordered server resource under app/<relPath>
// (spec.md §6 "app/<relPath> # ordered server code; order in app.json.load")
// and returns both the manifest entries and the load list in the same
// order.
func writeServerJS(stagingDir string, serverJS []resource.Resource) ([]resource.ManifestEntry, []string, error) {
	var entries []resource.ManifestEntry
	var load []string
	for i, r := range serverJS {
		rel := strings.TrimPrefix(r.ServePath, "/")
		if rel == "" {
			rel = fmt.Sprintf("unnamed_%d.js", i)
		}
		full := filepath.Join("app", rel)
		if err := writeFileUnder(stagingDir, full, r.Data); err != nil {
			return nil, nil, err
		}
		entries = append(entries, resource.ManifestEntry{
			Path: full, Where: resource.WhereInternal, Type: resource.TypeJS,
			Cacheable: false, Size: len(r.Data), Hash: hashBytes(r.Data),
		})
		load = append(load, path.Join("app", filepath.ToSlash(rel)))
	}
	return entries, load, nil
}

func writeServerStatic(stagingDir string, resources []resource.Resource) ([]resource.ManifestEntry, error) {
	var entries []resource.ManifestEntry
	for _, r := range resources {
		rel := strings.TrimPrefix(r.ServePath, "/")
		full := filepath.Join("server", "assets", rel)
		if err := writeFileUnder(stagingDir, full, r.Data); err != nil {
			return nil, err
		}
		entries = append(entries, resource.ManifestEntry{
			Path: full, Where: resource.WhereInternal, Type: r.Type,
			Cacheable: false, Size: len(r.Data), Hash: hashBytes(r.Data),
		})
	}
	return entries, nil
}

// writeNPMPlaceholders records each third-party dependency under
// npm/<name>/node_modules/<name> per opts' NodeModulesMode. Skip writes
// nothing; copy and symlink both record a package.json stub here — a real
// install or symlink to the host node_modules tree is the caller's concern
// once this directory exists, since this module has no npm client of its
// own.
func writeNPMPlaceholders(stagingDir string, deps map[string]string, mode config.NodeModulesMode) error {
	if mode == config.NodeModulesSkip || len(deps) == 0 {
		return nil
	}
	for name, version := range deps {
		stub := fmt.Sprintf("{\n  \"name\": %q,\n  \"version\": %q\n}\n", name, version)
		if err := writeFileUnder(stagingDir, filepath.Join("npm", name, "node_modules", name, "package.json"), []byte(stub)); err != nil {
			return err
		}
	}
	return nil
}

func writeAppHTML(stagingDir string, head, body []resource.Resource, styleURLs, scriptURLs []string) error {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html>\n<head>\n")
	for _, r := range head {
		b.Write(r.Data)
		b.WriteString("\n")
	}
	for _, u := range styleURLs {
		fmt.Fprintf(&b, "<link rel=%q href=%q>\n", "stylesheet", u)
	}
	b.WriteString("</head>\n<body>\n")
	for _, r := range body {
		b.Write(r.Data)
		b.WriteString("\n")
	}
	for _, u := range scriptURLs {
		fmt.Fprintf(&b, "<script src=%q></script>\n", u)
	}
	b.WriteString("</body>\n</html>\n")
	return writeFileUnder(stagingDir, "app.html", []byte(b.String()))
}

func writeManifest(stagingDir string, load []string, manifest []resource.ManifestEntry, releaseStamp string) error {
	bm := bundleManifest{Load: load, Manifest: manifest}
	if releaseStamp != "" && releaseStamp != "none" {
		bm.Release = releaseStamp
	}
	data, err := json.MarshalIndent(bm, "", "  ")
	if err != nil {
		return &perr.IOError{Op: "marshal manifest", Err: err}
	}
	return writeFileUnder(stagingDir, "app.json", data)
}

func writeFileUnder(stagingDir, rel string, data []byte) error {
	full := filepath.Join(stagingDir, rel)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return &perr.IOError{Op: "mkdir for " + rel, Err: err}
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return &perr.IOError{Op: "write " + rel, Err: err}
	}
	return nil
}

func hashBytes(data []byte) string {
	sum := sha1.Sum(data)
	return hex.EncodeToString(sum[:])
}
