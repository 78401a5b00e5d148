package generator

import (
	"path/filepath"
	"strings"
)

// Mapper translates a relative source path to a relative destination
// path, per spec.md §4.5: "when map_to_html, a markup extension becomes
// .html".
type Mapper struct {
	SrcRoot   string
	DestRoot  string
	MapToHTML bool
}

var markupExts = map[string]bool{".md": true}

// PathMapping applies the map_to_html rule to a source-relative path.
func (m Mapper) PathMapping(rel string) string {
	if !m.MapToHTML {
		return rel
	}
	ext := strings.ToLower(filepath.Ext(rel))
	if !markupExts[ext] {
		return rel
	}
	return strings.TrimSuffix(rel, filepath.Ext(rel)) + ".html"
}

// SrcPath resolves a source-relative path against SrcRoot.
func (m Mapper) SrcPath(rel string) string { return filepath.Join(m.SrcRoot, rel) }

// DestPath resolves a source-relative path to its mapped destination,
// rooted at DestRoot.
func (m Mapper) DestPath(rel string) string {
	return filepath.Join(m.DestRoot, m.PathMapping(rel))
}
