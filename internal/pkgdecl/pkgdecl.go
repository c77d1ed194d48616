// Package pkgdecl reads a package's declarative description file — the
// systems-language replacement, per spec.md Design Notes §9, for evaluating
// a package.js file against sandboxed capability objects. Instead of
// executing arbitrary code, a package directory carries a "package.bundle"
// file written in the same Starlark-like BUILD-file syntax the teacher's
// resolve/write.go emits BUILD files in, and this package parses that AST
// rather than running it.
package pkgdecl

import (
	"fmt"
	"sort"

	"github.com/please-build/buildtools/build"
)

// UsesEntry is one usage edge, spec.md §3 Slice.uses: "name" or
// "name.sliceName", with an Unordered flag that excludes the edge from
// load-order constraints and symbol-import precedence (spec.md §4.1/§4.6).
type UsesEntry struct {
	Spec      string
	Unordered bool
}

// RoleDecl is the per-role (use/test) shape: declared usage edges, source
// files per arch, and symbols to force-export per arch.
type RoleDecl struct {
	Uses    []UsesEntry
	Files   map[string][]string
	Exports map[string][]string
}

// Declaration is the fully parsed contents of a package.bundle file.
type Declaration struct {
	Summary    string
	Internal   bool
	Depends    map[string]string // exact versions only
	Extensions map[string]string // extension (no dot) -> handler name
	Use        *RoleDecl
	Test       *RoleDecl
	Requires   []string // require() calls
	RelRequire []string // relative_require() calls
}

// ConfigurationError is spec.md's ConfigurationError kind: a fuzzy
// third-party version specifier, a double depends() call, or similar
// eagerly-validated mistakes in the declaration file.
type ConfigurationError struct {
	Msg string
}

func (e *ConfigurationError) Error() string { return "configuration: " + e.Msg }

// Parse reads and interprets the package.bundle file at path.
func Parse(path string) (*Declaration, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	f, err := build.ParseBuild(path, data)
	if err != nil {
		return nil, fmt.Errorf("pkgdecl: parsing %s: %w", path, err)
	}

	decl := &Declaration{
		Depends:    map[string]string{},
		Extensions: map[string]string{},
	}
	dependsCalled := false

	for _, stmt := range f.Stmt {
		call, ok := stmt.(*build.CallExpr)
		if !ok {
			continue
		}
		name := callName(call)
		switch name {
		case "describe":
			if err := applyDescribe(decl, call); err != nil {
				return nil, err
			}
		case "depends":
			if dependsCalled {
				return nil, &ConfigurationError{Msg: "depends() called more than once"}
			}
			dependsCalled = true
			if err := applyDepends(decl, call); err != nil {
				return nil, err
			}
		case "register_extension":
			if err := applyRegisterExtension(decl, call); err != nil {
				return nil, err
			}
		case "require":
			decl.Requires = append(decl.Requires, stringArgs(call)...)
		case "relative_require":
			decl.RelRequire = append(decl.RelRequire, stringArgs(call)...)
		case "on_use":
			role, err := parseRole(call)
			if err != nil {
				return nil, err
			}
			decl.Use = role
		case "on_test":
			role, err := parseRole(call)
			if err != nil {
				return nil, err
			}
			decl.Test = role
		default:
			return nil, &ConfigurationError{Msg: fmt.Sprintf("unknown declaration %q", name)}
		}
	}
	return decl, nil
}

func callName(call *build.CallExpr) string {
	if id, ok := call.X.(*build.Ident); ok {
		return id.Name
	}
	return ""
}

func applyDescribe(decl *Declaration, call *build.CallExpr) error {
	for _, arg := range call.List {
		assign, ok := arg.(*build.AssignExpr)
		if !ok {
			continue
		}
		key := identName(assign.LHS)
		switch key {
		case "summary":
			decl.Summary = stringValue(assign.RHS)
		case "internal":
			decl.Internal = boolValue(assign.RHS)
		}
	}
	return nil
}

func applyDepends(decl *Declaration, call *build.CallExpr) error {
	if len(call.List) != 1 {
		return &ConfigurationError{Msg: "depends() takes exactly one dict argument"}
	}
	dict, ok := call.List[0].(*build.DictExpr)
	if !ok {
		return &ConfigurationError{Msg: "depends() argument must be a dict literal"}
	}
	for _, kv := range dict.List {
		name := stringValue(kv.Key)
		version := stringValue(kv.Value)
		if !isExactVersion(version) {
			return &ConfigurationError{Msg: fmt.Sprintf("depends(): %q has a non-exact version %q", name, version)}
		}
		decl.Depends[name] = version
	}
	return nil
}

func applyRegisterExtension(decl *Declaration, call *build.CallExpr) error {
	if len(call.List) != 2 {
		return &ConfigurationError{Msg: "register_extension(ext, handler) takes two arguments"}
	}
	ext := stringValue(call.List[0])
	handler := stringValue(call.List[1])
	if _, exists := decl.Extensions[ext]; exists {
		return &ConfigurationError{Msg: fmt.Sprintf("duplicate register_extension for %q", ext)}
	}
	decl.Extensions[ext] = handler
	return nil
}

func parseRole(call *build.CallExpr) (*RoleDecl, error) {
	role := &RoleDecl{
		Files:   map[string][]string{},
		Exports: map[string][]string{},
	}
	for _, arg := range call.List {
		assign, ok := arg.(*build.AssignExpr)
		if !ok {
			continue
		}
		key := identName(assign.LHS)
		switch key {
		case "uses":
			entries, err := parseUsesList(assign.RHS)
			if err != nil {
				return nil, err
			}
			role.Uses = entries
		case "files":
			role.Files = parseArchStringListDict(assign.RHS)
		case "exports":
			role.Exports = parseArchStringListDict(assign.RHS)
		}
	}
	return role, nil
}

func parseUsesList(expr build.Expr) ([]UsesEntry, error) {
	list, ok := expr.(*build.ListExpr)
	if !ok {
		return nil, &ConfigurationError{Msg: "uses must be a list"}
	}
	var entries []UsesEntry
	for _, item := range list.List {
		switch v := item.(type) {
		case *build.StringExpr:
			entries = append(entries, UsesEntry{Spec: v.Value})
		case *build.DictExpr:
			var spec string
			var unordered bool
			for _, kv := range v.List {
				switch stringValue(kv.Key) {
				case "spec":
					spec = stringValue(kv.Value)
				case "unordered":
					unordered = boolValue(kv.Value)
				}
			}
			if spec == "" {
				return nil, &ConfigurationError{Msg: "uses entry dict missing \"spec\""}
			}
			entries = append(entries, UsesEntry{Spec: spec, Unordered: unordered})
		default:
			return nil, &ConfigurationError{Msg: "uses entries must be strings or {spec, unordered} dicts"}
		}
	}
	return entries, nil
}

func parseArchStringListDict(expr build.Expr) map[string][]string {
	dict, ok := expr.(*build.DictExpr)
	if !ok {
		return nil
	}
	out := make(map[string][]string, len(dict.List))
	for _, kv := range dict.List {
		arch := stringValue(kv.Key)
		list, ok := kv.Value.(*build.ListExpr)
		if !ok {
			continue
		}
		var vals []string
		for _, item := range list.List {
			vals = append(vals, stringValue(item))
		}
		out[arch] = vals
	}
	return out
}

func stringArgs(call *build.CallExpr) []string {
	var out []string
	for _, item := range call.List {
		out = append(out, stringValue(item))
	}
	return out
}

func identName(e build.Expr) string {
	if id, ok := e.(*build.Ident); ok {
		return id.Name
	}
	return ""
}

func stringValue(e build.Expr) string {
	if s, ok := e.(*build.StringExpr); ok {
		return s.Value
	}
	return ""
}

func boolValue(e build.Expr) bool {
	if id, ok := e.(*build.Ident); ok {
		return id.Name == "True"
	}
	return false
}

// isExactVersion reports whether v is an exact version, rejecting ranges,
// carets, tildes, and wildcards.
func isExactVersion(v string) bool {
	if v == "" {
		return false
	}
	disallowed := []byte{'^', '~', '*', 'x', 'X', '>', '<', ' ', '|'}
	for i := 0; i < len(v); i++ {
		for _, d := range disallowed {
			if v[i] == d {
				return false
			}
		}
	}
	return true
}

// SortedDependsNames returns dependency names in sorted order, useful for
// deterministic BUILD-like output or diagnostics.
func (d *Declaration) SortedDependsNames() []string {
	names := make([]string, 0, len(d.Depends))
	for n := range d.Depends {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
