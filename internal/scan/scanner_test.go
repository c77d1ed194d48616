package scan

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel string) {
	t.Helper()
	p := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
}

func TestScan_HTMLFirstOrdering(t *testing.T) {
	root := t.TempDir()
	for _, f := range []string{"z.js", "a.html", "m.js", "b.html"} {
		writeFile(t, root, f)
	}

	got, err := Scan(root, Options{Extensions: map[string]bool{"js": true, "html": true}})
	require.NoError(t, err)
	require.Equal(t, []string{"a.html", "b.html", "m.js", "z.js"}, got)
}

func TestScan_IgnoresNodeModulesAndGit(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "client.js")
	writeFile(t, root, "node_modules/dep/index.js")
	writeFile(t, root, ".git/HEAD")

	got, err := Scan(root, Options{Extensions: map[string]bool{"js": true}})
	require.NoError(t, err)
	require.Equal(t, []string{"client.js"}, got)
}

func TestScan_FiltersUnrecognizedExtensions(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.js")
	writeFile(t, root, "a.exe")

	got, err := Scan(root, Options{Extensions: map[string]bool{"js": true}})
	require.NoError(t, err)
	require.Equal(t, []string{"a.js"}, got)
}
