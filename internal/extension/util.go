package extension

import (
	"bytes"
	"os"
	"path/filepath"
)

func readFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// toSlashPath normalizes a served path to forward slashes regardless of
// host OS (spec.md §3 invariant 3).
func toSlashPath(p string) string {
	return filepath.ToSlash(p)
}

var bodyMarker = []byte("<!--body-->")

// splitHeadBody splits raw HTML bytes on a "<!--body-->" marker comment
// into a head segment and a body segment. Without the marker, the whole
// file is treated as body content.
func splitHeadBody(data []byte) (head, body []byte) {
	idx := bytes.Index(data, bodyMarker)
	if idx < 0 {
		return nil, data
	}
	return bytes.TrimSpace(data[:idx]), bytes.TrimSpace(data[idx+len(bodyMarker):])
}
