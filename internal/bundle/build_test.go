package bundle

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkgforge/bundler/internal/config"
	"github.com/pkgforge/bundler/internal/resource"
)

func writeAppFile(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
}

func setupApp(t *testing.T) string {
	appDir := t.TempDir()
	writeAppFile(t, appDir, "packages.list", "templating\n")
	writeAppFile(t, appDir, "packages/meteor/package.bundle", `
describe(summary = "base")
register_extension("js", "js-handler")
on_use(files = {"client": []})
`)
	writeAppFile(t, appDir, "packages/templating/package.bundle", `
describe(summary = "templating")
on_use(
    files = {"client": ["tmpl.js"]},
    exports = {"client": ["Tmpl"]},
)
`)
	writeAppFile(t, appDir, "packages/templating/tmpl.js", "var Tmpl = {};\n")
	writeAppFile(t, appDir, "client/main.js", "console.log(Tmpl);\n")
	return appDir
}

func TestBuild_UnminifiedProducesMainJS(t *testing.T) {
	appDir := setupApp(t)
	outDir := filepath.Join(t.TempDir(), "output")

	manifest, depInfo, err := Build(config.Options{
		AppDir:          appDir,
		OutputPath:      outDir,
		NodeModulesMode: config.NodeModulesSkip,
	}, nil)
	require.NoError(t, err)

	launcher, err := os.ReadFile(filepath.Join(outDir, "main.js"))
	require.NoError(t, err)
	assert.Equal(t, mainJSContent, string(launcher))
	_, err = os.Stat(filepath.Join(outDir, "server", "runner.js"))
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(outDir, "static", "client", "main.js"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "Packagetemplating.Tmpl")
	assert.Contains(t, string(data), "console.log(Tmpl)")

	assert.NotEmpty(t, depInfo.Files)
	appWatch, ok := depInfo.Directories[appDir]
	require.True(t, ok, "app source directory should be among the watched directories")
	assert.NotEmpty(t, appWatch.Include)

	var foundStaticMain bool
	for _, e := range manifest {
		if e.Path == filepath.Join("static", "client", "main.js") {
			foundStaticMain = true
			assert.False(t, e.Cacheable)
			assert.Contains(t, e.URL, "/client/main.js?")
		}
	}
	assert.True(t, foundStaticMain)

	manifestData, err := os.ReadFile(filepath.Join(outDir, "app.json"))
	require.NoError(t, err)
	var bm bundleManifest
	require.NoError(t, json.Unmarshal(manifestData, &bm))
	assert.Empty(t, bm.Release, "no release stamp was configured")

	_, err = os.Stat(filepath.Join(outDir, "app.html"))
	require.NoError(t, err)
}

func TestBuild_MinifyProducesHashedCacheableAsset(t *testing.T) {
	appDir := setupApp(t)
	outDir := filepath.Join(t.TempDir(), "output")

	manifest, _, err := Build(config.Options{
		AppDir:          appDir,
		OutputPath:      outDir,
		NodeModulesMode: config.NodeModulesSkip,
		Minify:          true,
	}, nil)
	require.NoError(t, err)

	var cacheable *string
	for _, e := range manifest {
		if e.Cacheable && e.Where == "client" {
			p := e.Path
			cacheable = &p
		}
	}
	require.NotNil(t, cacheable)
	assert.True(t, filepath.Dir(*cacheable) == "static_cacheable")

	_, err = os.Stat(filepath.Join(outDir, *cacheable))
	require.NoError(t, err)
}

func TestBuild_ServerJSLandsUnderAppWithLoadOrder(t *testing.T) {
	appDir := t.TempDir()
	writeAppFile(t, appDir, "packages/meteor/package.bundle", `
describe(summary = "base")
register_extension("js", "js-handler")
on_use(files = {"client": [], "server": []})
`)
	writeAppFile(t, appDir, "server/b.js", "console.log('hello');\n")
	outDir := filepath.Join(t.TempDir(), "output")

	_, _, err := Build(config.Options{
		AppDir:          appDir,
		OutputPath:      outDir,
		NodeModulesMode: config.NodeModulesSkip,
		ReleaseStamp:    "1.2.3",
	}, nil)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(outDir, "app.json"))
	require.NoError(t, err)
	var bm bundleManifest
	require.NoError(t, json.Unmarshal(data, &bm))
	assert.Equal(t, []string{"app/server/b.js"}, bm.Load)
	assert.Equal(t, "1.2.3", bm.Release)

	_, err = os.Stat(filepath.Join(outDir, "app", "server", "b.js"))
	require.NoError(t, err)
}

func TestBuild_MinifyConcatenatesAndHashesCSS(t *testing.T) {
	appDir := t.TempDir()
	writeAppFile(t, appDir, "packages.list", "styles\n")
	writeAppFile(t, appDir, "packages/meteor/package.bundle", `
describe(summary = "base")
on_use(files = {"client": []})
`)
	writeAppFile(t, appDir, "packages/styles/package.bundle", `
describe(summary = "styles")
register_extension("css", "css-handler")
on_use(files = {"client": []})
`)
	writeAppFile(t, appDir, "client/a.css", "body { color: red; }\n")
	outDir := filepath.Join(t.TempDir(), "output")

	manifest, _, err := Build(config.Options{
		AppDir:          appDir,
		OutputPath:      outDir,
		NodeModulesMode: config.NodeModulesSkip,
		Minify:          true,
	}, nil)
	require.NoError(t, err)

	var cssEntry *resource.ManifestEntry
	for i, e := range manifest {
		if e.Type == resource.TypeCSS {
			cssEntry = &manifest[i]
		}
	}
	require.NotNil(t, cssEntry)
	assert.True(t, cssEntry.Cacheable)
	assert.Equal(t, "static_cacheable", filepath.Dir(cssEntry.Path))
	assert.True(t, strings.HasSuffix(cssEntry.Path, ".css"))

	_, err = os.Stat(filepath.Join(outDir, cssEntry.Path))
	require.NoError(t, err)
}

func TestBuild_UnresolvableAppDependencyIsError(t *testing.T) {
	appDir := t.TempDir()
	writeAppFile(t, appDir, "packages.list", "missing-package\n")
	writeAppFile(t, appDir, "client/main.js", "console.log('hi');\n")

	_, _, err := Build(config.Options{
		AppDir:          appDir,
		OutputPath:      filepath.Join(t.TempDir(), "output"),
		NodeModulesMode: config.NodeModulesSkip,
	}, nil)
	require.Error(t, err)
}
