package extension

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveHandler_KnownNames(t *testing.T) {
	for _, name := range []string{"js-handler", "ecmascript-compiler", "css-handler", "html-handler"} {
		_, ok := ResolveHandler(name, "js")
		assert.Truef(t, ok, "expected %q to resolve", name)
	}
}

func TestResolveHandler_CompilerSuffixHeuristic(t *testing.T) {
	for _, name := range []string{"less-compiler", "sass-compiler", "scss-compiler", "stylus-compiler"} {
		_, ok := ResolveHandler(name, "css")
		assert.Truef(t, ok, "expected %q to resolve to a css handler", name)
	}
	for _, name := range []string{"babel-compiler", "typescript-compiler", "coffeescript-compiler"} {
		_, ok := ResolveHandler(name, "js")
		assert.Truef(t, ok, "expected %q to resolve to a js handler", name)
	}
}

func TestResolveHandler_UnknownNameFails(t *testing.T) {
	_, ok := ResolveHandler("some-random-handler", "xyz")
	assert.False(t, ok)

	_, ok = ResolveHandler("xyz-compiler", "xyz")
	assert.False(t, ok, "an unrecognized -compiler prefix should not resolve")
}
