package pkgmodel

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkgforge/bundler/internal/pkgdecl"
	"github.com/pkgforge/bundler/internal/resource"
)

type testResolver map[string]*Package

func (r testResolver) Get(name string) (*Package, error) {
	p, ok := r[name]
	if !ok {
		return nil, fmt.Errorf("no such package %q", name)
	}
	return p, nil
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
}

func TestWithImplicitBaseDependency(t *testing.T) {
	uses := WithImplicitBaseDependency("templating", RoleUse, []pkgdecl.UsesEntry{{Spec: "ecmascript"}})
	assert.Equal(t, []pkgdecl.UsesEntry{{Spec: "meteor"}, {Spec: "ecmascript"}}, uses)

	assert.Nil(t, WithImplicitBaseDependency("meteor", RoleUse, nil))

	// A test-role slice of an ordinary package is not exempt: only meteor
	// itself, in role use, skips the implicit edge (spec.md §8 boundary).
	assert.Equal(t, []pkgdecl.UsesEntry{{Spec: "meteor"}}, WithImplicitBaseDependency("anything", RoleTest, nil))
	assert.Equal(t, []pkgdecl.UsesEntry{{Spec: "meteor"}}, WithImplicitBaseDependency("meteor", RoleTest, nil))
}

func TestSliceCompileAndGetResources(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "package.bundle", `
describe(summary = "Test package")
depends({})
register_extension("js", "js-handler")
on_use(
    uses = ["templating"],
    files = {"client": ["client.js"]},
    exports = {"client": ["Foo"]},
)
`)
	writeFile(t, dir, "client.js", "function Foo() {\n  return Tmpl;\n}\n")

	pkg, err := NewFromDirectory(dir)
	require.NoError(t, err)

	meteor := newPackage("meteor", t.TempDir(), "/packages/meteor", false)
	NewSlice(meteor, "main", RoleUse, resource.ArchClient, nil, nil, nil)

	templatingDir := t.TempDir()
	writeFile(t, templatingDir, "tmpl.js", "var Tmpl = {};\n")
	templating := newPackage("templating", templatingDir, "/packages/templating", false)
	NewSlice(templating, "main", RoleUse, resource.ArchClient,
		WithImplicitBaseDependency("templating", RoleUse, nil),
		[]string{"tmpl.js"}, []string{"Tmpl"})

	resolver := testResolver{"meteor": meteor, "templating": templating}

	mainSlice, ok := pkg.Slice("main", resource.ArchClient)
	require.True(t, ok)

	require.NoError(t, mainSlice.Compile(resolver))
	assert.Equal(t, []string{"Foo"}, mainSlice.Exports())

	resources, err := mainSlice.GetResources(resolver)
	require.NoError(t, err)
	require.Len(t, resources, 1)
	assert.Equal(t, resource.TypeJS, resources[0].Type)
	js := string(resources[0].Data)
	assert.Contains(t, js, "Packagetemplating.Tmpl")
	assert.NotContains(t, js, "__link_boundary_")

	// compiling twice is a no-op, not a re-derivation
	exportsBefore := mainSlice.Exports()
	require.NoError(t, mainSlice.Compile(resolver))
	assert.Equal(t, exportsBefore, mainSlice.Exports())
}

func TestNewFromAppDirectory_ClassifiesByConvention(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "client/only.js", "1;")
	writeFile(t, dir, "server/only.js", "1;")
	writeFile(t, dir, "shared.js", "1;")
	writeFile(t, dir, "private/secret.json", "{}")

	pkg, err := NewFromAppDirectory(dir, nil)
	require.NoError(t, err)

	clientSlice, ok := pkg.Slice("app", resource.ArchClient)
	require.True(t, ok)
	assert.ElementsMatch(t, []string{"client/only.js", "shared.js"}, clientSlice.Sources)

	serverSlice, ok := pkg.Slice("app", resource.ArchServer)
	require.True(t, ok)
	assert.ElementsMatch(t, []string{"server/only.js", "shared.js"}, serverSlice.Sources)
}

func TestNewFromAppDirectory_ExcludesLocalPackagesAndDependencyList(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "client/main.js", "1;")
	writeFile(t, dir, "packages.list", "templating\n")
	writeFile(t, dir, "packages/templating/package.bundle", `
describe(summary = "templating")
on_use(files = {"client": ["tmpl.js"]})
`)
	writeFile(t, dir, "packages/templating/tmpl.js", "var Tmpl = {};\n")

	pkg, err := NewFromAppDirectory(dir, nil)
	require.NoError(t, err)

	clientSlice, ok := pkg.Slice("app", resource.ArchClient)
	require.True(t, ok)
	assert.Equal(t, []string{"client/main.js"}, clientSlice.Sources)

	_, ok = pkg.Slice("app", resource.ArchServer)
	assert.False(t, ok, "packages/ and packages.list must not produce a server app slice")
}

func TestNewFromAppDirectory_MatchesSpecialDirsAtAnyDepth(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "shared/server/foo.js", "1;")
	writeFile(t, dir, "shared/client/bar.js", "1;")
	writeFile(t, dir, "shared/common.js", "1;")
	writeFile(t, dir, "tests/regression.js", "1;")

	pkg, err := NewFromAppDirectory(dir, nil)
	require.NoError(t, err)

	clientSlice, ok := pkg.Slice("app", resource.ArchClient)
	require.True(t, ok)
	assert.ElementsMatch(t, []string{"shared/client/bar.js", "shared/common.js"}, clientSlice.Sources)

	serverSlice, ok := pkg.Slice("app", resource.ArchServer)
	require.True(t, ok)
	assert.ElementsMatch(t, []string{"shared/server/foo.js", "shared/common.js"}, serverSlice.Sources)
}

func TestClassifyAppFile_BareHTMLAndCSSLoadOnBothArches(t *testing.T) {
	client, server := classifyAppFile("shared.html")
	assert.True(t, client)
	assert.True(t, server)

	client, server = classifyAppFile("styles.css")
	assert.True(t, client)
	assert.True(t, server)
}
