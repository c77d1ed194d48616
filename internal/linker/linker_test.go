package linker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrelink_PackageMode_ForceExport(t *testing.T) {
	out, err := Prelink(PrelinkInput{
		Fragments: []Fragment{
			{Source: "function Foo() { return 1; }", ServePath: "/packages/p.js"},
		},
		PackageName:         "p",
		ForceExport:         []string{"Foo"},
		UseGlobalNamespace:  false,
		CombinedServePath:   "/packages/p.js",
		ImportStubServePath: "/packages/global-imports.js",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Foo"}, out.Exports)
	require.Len(t, out.Files, 1)
	assert.Contains(t, out.Files[0].Source, out.Boundary)
	assert.Contains(t, out.Files[0].Source, "Packagep.Foo = Foo;")
}

func TestPrelink_ApplicationMode_NoExports(t *testing.T) {
	out, err := Prelink(PrelinkInput{
		Fragments: []Fragment{
			{Source: "var x = 1;", ServePath: "/app.js"},
		},
		PackageName:        "",
		UseGlobalNamespace: true,
	})
	require.NoError(t, err)
	assert.Nil(t, out.Exports)
	require.Len(t, out.Files, 1)
	assert.True(t, strings.HasPrefix(out.Files[0].Source, out.Boundary))
}

func TestLink_InjectsImportPrelude(t *testing.T) {
	pre, err := Prelink(PrelinkInput{
		Fragments: []Fragment{
			{Source: "console.log(Foo);", ServePath: "/packages/q.js"},
		},
		PackageName:       "q",
		CombinedServePath: "/packages/q.js",
	})
	require.NoError(t, err)

	linked, err := Link(LinkInput{
		Imports:      map[string]string{"Foo": "p"},
		PrelinkFiles: pre.Files,
		Boundary:     pre.Boundary,
	})
	require.NoError(t, err)
	require.Len(t, linked, 1)
	assert.Contains(t, linked[0].Source, "var Foo = Packagep.Foo;")
	assert.NotContains(t, linked[0].Source, pre.Boundary)
}

func TestLink_MissingBoundaryIsLinkerError(t *testing.T) {
	_, err := Link(LinkInput{
		Imports:      map[string]string{},
		PrelinkFiles: []Fragment{{Source: "no boundary here", ServePath: "/x.js"}},
		Boundary:     "\x00__missing__\x00",
	})
	require.Error(t, err)
	var lerr *Error
	require.ErrorAs(t, err, &lerr)
}

func TestLink_BindsImportToSupplyingPackage(t *testing.T) {
	imports := map[string]string{"Foo": "q"} // collisions are already resolved by the caller
	pre, err := Prelink(PrelinkInput{
		Fragments: []Fragment{{Source: "Foo();", ServePath: "/r.js"}},
		PackageName: "r",
	})
	require.NoError(t, err)
	linked, err := Link(LinkInput{Imports: imports, PrelinkFiles: pre.Files, Boundary: pre.Boundary})
	require.NoError(t, err)
	assert.Contains(t, linked[0].Source, "var Foo = PackageQ.Foo;")
}
