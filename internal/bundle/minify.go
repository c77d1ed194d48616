package bundle

import (
	"fmt"
	"strings"

	"github.com/evanw/esbuild/pkg/api"

	"github.com/pkgforge/bundler/internal/resource"
)

// concatenateClientJS joins ordered client JS fragments with a
// statement-terminating separator so a missing trailing semicolon in one
// fragment can't merge with the next (spec.md §4.6 "\n;\n").
func concatenateClientJS(resources []resource.Resource) string {
	var b strings.Builder
	for i, r := range resources {
		if i > 0 {
			b.WriteString("\n;\n")
		}
		b.Write(r.Data)
	}
	return b.String()
}

// concatenateClientCSS joins ordered client CSS fragments; CSS rules need
// no statement terminator between files, just a separating newline.
func concatenateClientCSS(resources []resource.Resource) string {
	var b strings.Builder
	for i, r := range resources {
		if i > 0 {
			b.WriteString("\n")
		}
		b.Write(r.Data)
	}
	return b.String()
}

// Minify runs esbuild's Transform over the concatenated client JS bundle
// (spec.md §4.6 "opaque minifier") and returns the content hash and
// minified bytes. It is the only minifier; no other can be plugged in.
func Minify(resources []resource.Resource) (hash string, data []byte, err error) {
	combined := concatenateClientJS(resources)
	result := api.Transform(combined, api.TransformOptions{
		MinifyWhitespace:  true,
		MinifyIdentifiers: true,
		MinifySyntax:      true,
		Target:            api.ESNext,
		Loader:            api.LoaderJS,
	})
	if len(result.Errors) > 0 {
		return "", nil, fmt.Errorf("minify: %s", result.Errors[0].Text)
	}
	return hashBytes(result.Code), result.Code, nil
}

// MinifyCSS is Minify's CSS counterpart (spec.md §4.6 "same for CSS with an
// opaque CSS optimizer"): esbuild's CSS loader handles minification
// symmetrically to its JS path.
func MinifyCSS(resources []resource.Resource) (hash string, data []byte, err error) {
	combined := concatenateClientCSS(resources)
	result := api.Transform(combined, api.TransformOptions{
		MinifyWhitespace: true,
		MinifySyntax:     true,
		Loader:           api.LoaderCSS,
	})
	if len(result.Errors) > 0 {
		return "", nil, fmt.Errorf("minify css: %s", result.Errors[0].Text)
	}
	return hashBytes(result.Code), result.Code, nil
}
