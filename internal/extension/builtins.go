package extension

import "strings"

// ResolveHandler maps a package.bundle register_extension() handler name to
// a concrete Handler. Since there is no sandboxed-eval layer to construct
// handlers from arbitrary package-supplied code (spec.md Design Notes §9),
// a declaration can only name one of a fixed set of builtin handler kinds;
// anything else is a configuration error the caller should surface.
//
// "*-compiler" names ending in a style-sheet-sounding prefix (less, sass,
// scss, stylus) are treated as a passthrough CSS handler with no actual
// preprocessing — a deliberate simplification, not a claim of real Less/Sass
// support.
func ResolveHandler(handlerName, ext string) (Handler, bool) {
	switch handlerName {
	case "js-handler", "ecmascript-compiler":
		return JSHandler(ext), true
	case "css-handler":
		return CSSHandler(nil), true
	case "html-handler":
		return HTMLHandler(), true
	}
	if strings.HasSuffix(handlerName, "-compiler") {
		prefix := strings.TrimSuffix(handlerName, "-compiler")
		switch prefix {
		case "less", "sass", "scss", "stylus":
			return CSSHandler(nil), true
		case "babel", "typescript", "coffeescript":
			return JSHandler(ext), true
		}
	}
	return nil, false
}
