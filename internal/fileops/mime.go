package fileops

import (
	"path/filepath"
	"strings"
)

// mimeByExtension maps file extensions to the MIME type reported to the UI.
var mimeByExtension = map[string]string{
	".md":   "text/markdown",
	".yaml": "text/yaml",
	".yml":  "text/yaml",
	".json": "application/json",
	".ts":   "text/typescript",
	".tsx":  "text/typescript",
	".js":   "text/javascript",
	".vue":  "text/vue",
	".css":  "text/css",
	".html": "text/html",
}

// MimeType infers a MIME type from the path's extension. Unmapped extensions
// default to text/plain.
func MimeType(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if mime, ok := mimeByExtension[ext]; ok {
		return mime
	}
	return "text/plain"
}
