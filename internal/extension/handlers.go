package extension

import (
	"fmt"
	"path/filepath"

	"github.com/evanw/esbuild/pkg/api"

	"github.com/pkgforge/bundler/internal/resource"
)

// esbuildLoaders mirrors the teacher's common.Loaders map: file extension
// (no leading dot) to the esbuild loader used when a source needs reduction
// to plain JS before the linker's prelink phase sees it.
var esbuildLoaders = map[string]api.Loader{
	"js":   api.LoaderJS,
	"jsx":  api.LoaderJSX,
	"ts":   api.LoaderTS,
	"tsx":  api.LoaderTSX,
	"mjs":  api.LoaderJS,
	"cjs":  api.LoaderJS,
}

// JSHandler returns a Handler for the given extension ("js", "jsx", "ts",
// "tsx", ...). Plain .js is emitted as-is; TS/JSX variants are reduced to
// JS via esbuild's Transform API first — this is "transpilation an
// extension handler provides", not new capability beyond spec.md's
// non-goals.
func JSHandler(ext string) Handler {
	loader, ok := esbuildLoaders[ext]
	if !ok {
		loader = api.LoaderJS
	}
	plain := loader == api.LoaderJS

	return func(add Sink, absSourcePath, absServePath string, arch resource.Arch) error {
		data, err := readFile(absSourcePath)
		if err != nil {
			return err
		}

		code := data
		if !plain {
			result := api.Transform(string(data), api.TransformOptions{
				Loader:     loader,
				Format:     api.FormatDefault,
				Target:     api.ESNext,
				JSX:        api.JSXAutomatic,
				Sourcefile: filepath.Base(absSourcePath),
			})
			if len(result.Errors) > 0 {
				return fmt.Errorf("%s: %s", absSourcePath, result.Errors[0].Text)
			}
			code = result.Code
		}

		add(resource.Resource{
			Type:      resource.TypeJS,
			Data:      code,
			ServePath: toSlashPath(absServePath),
		})
		return nil
	}
}

// CSSHandler returns a Handler emitting a CSS resource unmodified. A
// non-nil preprocess hook (e.g. a Tailwind-CLI-backed transform, per the
// teacher's TailwindPlugin) may rewrite the bytes first; nil skips that
// step, matching the teacher's "only process files containing @tailwind"
// opt-in behavior by way of the caller choosing not to register one.
type CSSPreprocessor func(absSourcePath string, data []byte) ([]byte, error)

func CSSHandler(preprocess CSSPreprocessor) Handler {
	return func(add Sink, absSourcePath, absServePath string, arch resource.Arch) error {
		data, err := readFile(absSourcePath)
		if err != nil {
			return err
		}
		if preprocess != nil {
			data, err = preprocess(absSourcePath, data)
			if err != nil {
				return err
			}
		}
		add(resource.Resource{
			Type:      resource.TypeCSS,
			Data:      data,
			ServePath: toSlashPath(absServePath),
		})
		return nil
	}
}

// HTMLHandler returns a Handler that treats the entire file's contents as
// a head/body split on a "<!--body-->" marker — html files are reordered
// ahead of everything else by SourceScanner (spec.md §4.7) specifically so
// their head/body registrations land before code that references them.
func HTMLHandler() Handler {
	return func(add Sink, absSourcePath, absServePath string, arch resource.Arch) error {
		data, err := readFile(absSourcePath)
		if err != nil {
			return err
		}
		head, body := splitHeadBody(data)
		if len(head) > 0 {
			add(resource.Resource{Type: resource.TypeHead, Data: head})
		}
		if len(body) > 0 {
			add(resource.Resource{Type: resource.TypeBody, Data: body})
		}
		return nil
	}
}
