package protocol

import (
	"path/filepath"
	"strings"
)

// GeneratedFile is one output file produced by a generation run. Path is the
// unique key within a session. Type, Icon, and Language are display metadata;
// the service may omit them, in which case they are inferred from the path
// extension.
type GeneratedFile struct {
	Path     string `json:"path"`
	Content  string `json:"content"`
	Size     int    `json:"size"`
	Type     string `json:"type,omitempty"`
	Icon     string `json:"icon,omitempty"`
	Language string `json:"language,omitempty"`
}

var extensionTypes = map[string]string{
	"py":   "python",
	"html": "html",
	"css":  "stylesheet",
	"js":   "javascript",
	"json": "json",
	"md":   "markdown",
	"txt":  "text",
}

var extensionIcons = map[string]string{
	"py":   "🐍",
	"html": "🌐",
	"css":  "🎨",
	"js":   "📜",
	"json": "📋",
	"md":   "📝",
	"txt":  "📄",
}

var extensionLanguages = map[string]string{
	"py":   "python",
	"html": "html",
	"css":  "css",
	"js":   "javascript",
	"json": "json",
	"md":   "markdown",
}

// Normalize fills the fields the service is allowed to omit: a fallback
// path, the size derived from the content, and extension-based metadata.
func (f GeneratedFile) Normalize() GeneratedFile {
	if f.Path == "" {
		f.Path = "untitled"
	}
	if f.Size == 0 {
		f.Size = len(f.Content)
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(f.Path), "."))
	if f.Type == "" {
		f.Type = lookupOr(extensionTypes, ext, "text")
	}
	if f.Icon == "" {
		f.Icon = lookupOr(extensionIcons, ext, "📄")
	}
	if f.Language == "" {
		f.Language = lookupOr(extensionLanguages, ext, "text")
	}
	return f
}

func lookupOr(m map[string]string, key, fallback string) string {
	if v, ok := m[key]; ok {
		return v
	}
	return fallback
}

// NormalizeFiles normalizes every entry and collapses duplicate paths, later
// entries winning, so path remains a unique key.
func NormalizeFiles(files []GeneratedFile) []GeneratedFile {
	out := make([]GeneratedFile, 0, len(files))
	index := make(map[string]int, len(files))
	for _, f := range files {
		n := f.Normalize()
		if i, ok := index[n.Path]; ok {
			out[i] = n
			continue
		}
		index[n.Path] = len(out)
		out = append(out, n)
	}
	return out
}

// TotalSize sums the byte sizes of the given files.
func TotalSize(files []GeneratedFile) int {
	total := 0
	for _, f := range files {
		total += f.Size
	}
	return total
}
