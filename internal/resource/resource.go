// Package resource defines the typed output records that flow out of slice
// compilation and into the bundle's manifest.
package resource

import "regexp"

// Type identifies the kind of resource a slice compilation emits.
type Type string

const (
	TypeJS     Type = "js"
	TypeCSS    Type = "css"
	TypeHead   Type = "head"
	TypeBody   Type = "body"
	TypeStatic Type = "static"
)

// Arch is the target environment a resource or slice is compiled for.
type Arch string

const (
	ArchClient Arch = "client"
	ArchServer Arch = "server"
)

// Where identifies where a manifest entry's bytes live in the output tree.
type Where string

const (
	WhereClient   Where = "client"
	WhereInternal Where = "internal"
)

// Resource is a single tagged output of compiling one slice source file.
// ServePath is ignored for Head/Body resources and required otherwise; it
// uses forward slashes regardless of host OS (spec.md §3 invariant 3).
type Resource struct {
	Type      Type
	Data      []byte
	ServePath string
}

// ManifestEntry is one row of the bundle's app.json manifest.
type ManifestEntry struct {
	Path      string `json:"path"`
	Where     Where  `json:"where"`
	Type      Type   `json:"type"`
	Cacheable bool   `json:"cacheable"`
	URL       string `json:"url,omitempty"`
	Size      int    `json:"size"`
	Hash      string `json:"hash"`
}

// DirectoryWatch is one dependencyInfo.directories entry: the include/exclude
// pattern set an external file watcher should apply when recursively
// watching a slice's source directory for changes (spec.md §3).
type DirectoryWatch struct {
	Include []*regexp.Regexp
	Exclude []*regexp.Regexp
}

// DependencyInfo is the core's exit-behavior companion to the manifest
// (spec.md §6): the file hashes and watch directories a caller needs to
// know when to trigger a rebuild, without this module doing any watching
// itself.
type DependencyInfo struct {
	Files       map[string]string
	Directories map[string]DirectoryWatch
}
