package bundle

import (
	"github.com/pkgforge/bundler/internal/pkgmodel"
	"github.com/pkgforge/bundler/internal/resource"
)

// Result is the full set of resources collected from compiling and linking
// every slice in load order, partitioned the way WriteToDirectory needs
// them (spec.md §5, §6).
type Result struct {
	ClientJS     []resource.Resource
	ServerJS     []resource.Resource
	ClientCSS    []resource.Resource
	ClientStatic []resource.Resource
	ServerStatic []resource.Resource
	Head         []resource.Resource
	Body         []resource.Resource

	// DependencyFiles is the union of every compiled slice's source file
	// hashes, absolute path -> sha1 hex, for watch/rebuild metadata.
	DependencyFiles map[string]string
	// DependencyDirectories is the union of every compiled slice's watch
	// directories, absolute path -> include/exclude pattern set.
	DependencyDirectories map[string]pkgmodel.DirWatch
}

// EmitResources compiles and links every slice in clientOrder and
// serverOrder, in that order, and partitions the resulting resources by
// arch and type.
func EmitResources(resolver pkgmodel.Resolver, clientOrder, serverOrder []*pkgmodel.Slice) (*Result, error) {
	res := &Result{
		DependencyFiles:       map[string]string{},
		DependencyDirectories: map[string]pkgmodel.DirWatch{},
	}

	if err := emitInto(resolver, clientOrder, resource.ArchClient, res); err != nil {
		return nil, err
	}
	if err := emitInto(resolver, serverOrder, resource.ArchServer, res); err != nil {
		return nil, err
	}
	return res, nil
}

func emitInto(resolver pkgmodel.Resolver, slices []*pkgmodel.Slice, arch resource.Arch, res *Result) error {
	for _, s := range slices {
		resources, err := s.GetResources(resolver)
		if err != nil {
			return err
		}
		for path, hash := range s.DependencyFiles() {
			res.DependencyFiles[path] = hash
		}
		for dir, watch := range s.DependencyDirectories() {
			res.DependencyDirectories[dir] = watch
		}
		for _, r := range resources {
			switch r.Type {
			case resource.TypeJS:
				if arch == resource.ArchClient {
					res.ClientJS = append(res.ClientJS, r)
				} else {
					res.ServerJS = append(res.ServerJS, r)
				}
			case resource.TypeCSS:
				res.ClientCSS = append(res.ClientCSS, r)
			case resource.TypeStatic:
				if arch == resource.ArchClient {
					res.ClientStatic = append(res.ClientStatic, r)
				} else {
					res.ServerStatic = append(res.ServerStatic, r)
				}
			case resource.TypeHead:
				res.Head = append(res.Head, r)
			case resource.TypeBody:
				res.Body = append(res.Body, r)
			}
		}
	}
	return nil
}
