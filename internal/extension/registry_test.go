package extension

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkgforge/bundler/internal/resource"
)

func noopHandler(add Sink, absSourcePath, absServePath string, arch resource.Arch) error {
	return nil
}

func TestRegistry_MergeNoConflict(t *testing.T) {
	r := New()
	require.NoError(t, r.Merge("pkg-a", map[string]Handler{"js": noopHandler}))
	require.NoError(t, r.Merge("pkg-b", map[string]Handler{"css": noopHandler}))

	_, ok := r.Lookup("js")
	assert.True(t, ok)
	_, ok = r.Lookup("css")
	assert.True(t, ok)
	_, ok = r.Lookup("less")
	assert.False(t, ok)
}

func TestRegistry_SamePackageReregistersWithoutConflict(t *testing.T) {
	r := New()
	require.NoError(t, r.Merge("pkg-a", map[string]Handler{"js": noopHandler}))
	require.NoError(t, r.Merge("pkg-a", map[string]Handler{"js": noopHandler}))
}

func TestRegistry_ConflictAcrossPackages(t *testing.T) {
	r := New()
	require.NoError(t, r.Merge("x", map[string]Handler{"less": noopHandler}))
	err := r.Merge("y", map[string]Handler{"less": noopHandler})
	require.Error(t, err)

	var cerr *ConflictError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "less", cerr.Extension)
	assert.Equal(t, "x", cerr.FirstPkg)
	assert.Equal(t, "y", cerr.SecondPkg)
}
