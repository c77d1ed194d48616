// Package jsparse scans JavaScript/TypeScript fragments with tree-sitter to
// find the top-level declaration names the linker's prelink phase needs in
// order to scope symbols into a package's private namespace, and to find
// "@export" directive comments that mark a declaration for the package's
// public namespace.
//
// This mirrors the parser-pool and embedded-query pattern used elsewhere in
// the corpus for tree-sitter-backed source analysis.
package jsparse

import (
	"embed"
	"fmt"
	"path"
	"regexp"
	"strings"
	"sync"

	ts "github.com/tree-sitter/go-tree-sitter"
	tsTypescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

//go:embed queries/*/*.scm
var queryFiles embed.FS

var tsLanguage = ts.NewLanguage(tsTypescript.LanguageTypescript())

var tsParserPool = sync.Pool{
	New: func() any {
		parser := ts.NewParser()
		if err := parser.SetLanguage(tsLanguage); err != nil {
			panic("jsparse: failed to set typescript language: " + err.Error())
		}
		return parser
	},
}

func getParser() *ts.Parser {
	return tsParserPool.Get().(*ts.Parser)
}

func putParser(p *ts.Parser) {
	p.Reset()
	tsParserPool.Put(p)
}

var (
	toplevelQuery     *ts.Query
	toplevelQueryOnce sync.Once
	toplevelQueryErr  error
)

func getTopLevelQuery() (*ts.Query, error) {
	toplevelQueryOnce.Do(func() {
		data, err := queryFiles.ReadFile(path.Join("queries", "typescript", "toplevel.scm"))
		if err != nil {
			toplevelQueryErr = err
			return
		}
		toplevelQuery, toplevelQueryErr = ts.NewQuery(tsLanguage, string(data))
	})
	return toplevelQuery, toplevelQueryErr
}

// exportDirective matches a line comment or block comment containing an
// "@export Name1, Name2" directive, the textual convention a handler may
// emit per source to force-export a symbol regardless of what the compiler
// would otherwise infer.
var exportDirective = regexp.MustCompile(`@export\s+([A-Za-z0-9_$,\s]+)`)

// TopLevelNames returns the set of identifiers bound by top-level
// function/class/const/let/var declarations in the given source.
func TopLevelNames(content []byte) ([]string, error) {
	query, err := getTopLevelQuery()
	if err != nil {
		return nil, fmt.Errorf("jsparse: loading top-level query: %w", err)
	}

	parser := getParser()
	defer putParser(parser)

	tree := parser.Parse(content, nil)
	if tree == nil {
		return nil, fmt.Errorf("jsparse: failed to parse source")
	}
	defer tree.Close()

	cursor := ts.NewQueryCursor()
	defer cursor.Close()

	var names []string
	seen := make(map[string]bool)
	matches := cursor.Matches(query, tree.RootNode(), content)
	for {
		match := matches.Next()
		if match == nil {
			break
		}
		for _, capture := range match.Captures {
			name := capture.Node.Utf8Text(content)
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	return names, nil
}

// ExportDirectives scans source text for "@export Name, Name2" comment
// directives and returns the named symbols, in order of first appearance.
func ExportDirectives(content []byte) []string {
	var names []string
	seen := make(map[string]bool)
	for _, m := range exportDirective.FindAllSubmatch(content, -1) {
		for _, raw := range regexpSplitIdents(m[1]) {
			if raw == "" || seen[raw] {
				continue
			}
			seen[raw] = true
			names = append(names, raw)
		}
	}
	return names
}

func regexpSplitIdents(b []byte) []string {
	parts := strings.Split(string(b), ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
