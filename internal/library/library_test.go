package library

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkgforge/bundler/internal/perr"
	"github.com/pkgforge/bundler/internal/pkgmodel"
)

func writeDecl(t *testing.T, root, name string) {
	t.Helper()
	dir := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "package.bundle"), []byte(`
describe(summary = "`+name+`")
on_use(files = {"client": []})
`), 0o644))
}

func TestLibrary_PreloadShortCircuitsDiskLookup(t *testing.T) {
	lib := New(nil, "", nil)
	fake := &pkgmodel.Package{Name: "preloaded-app"}
	lib.Preload("app", fake)

	got, err := lib.Get("app")
	require.NoError(t, err)
	assert.Same(t, fake, got)
}

func TestLibrary_ResolvesFromLocalRootAndCaches(t *testing.T) {
	root := t.TempDir()
	writeDecl(t, root, "templating")

	lib := New([]string{root}, "", nil)
	got, err := lib.Get("templating")
	require.NoError(t, err)
	assert.Equal(t, "templating", got.Name)

	again, err := lib.Get("templating")
	require.NoError(t, err)
	assert.Same(t, got, again)
}

func TestLibrary_FlushClearsCacheNotPreloads(t *testing.T) {
	root := t.TempDir()
	writeDecl(t, root, "ecmascript")

	lib := New([]string{root}, "", nil)
	fake := &pkgmodel.Package{Name: "app"}
	lib.Preload("app", fake)

	first, err := lib.Get("ecmascript")
	require.NoError(t, err)

	lib.Flush()

	again, err := lib.Get("ecmascript")
	require.NoError(t, err)
	assert.NotSame(t, first, again) // re-read from disk, not the old cached pointer

	stillPreloaded, err := lib.Get("app")
	require.NoError(t, err)
	assert.Same(t, fake, stillPreloaded)
}

func TestLibrary_UnresolvableNameIsResolutionError(t *testing.T) {
	lib := New(nil, "", nil)
	_, err := lib.Get("nowhere")
	require.Error(t, err)
	var rerr *perr.ResolutionError
	require.ErrorAs(t, err, &rerr)
}

func TestLibrary_FallsBackToWarehouse(t *testing.T) {
	warehouse := t.TempDir()
	writeDecl(t, warehouse, "minimongo")

	lib := New(nil, warehouse, nil)
	got, err := lib.Get("minimongo")
	require.NoError(t, err)
	assert.True(t, got.FromWarehouse)
}
