package interp

import (
	"os"
	"path/filepath"
	"strings"

	"allay/internal/page"
	"allay/internal/plugin"
	"allay/internal/value"
)

// Context is the interpreter's global, per-compile-run state: where to
// resolve includes and shortcodes, the site-wide data `site` top-level
// resolves to, and a callback to compile a detached page (used for
// block-shortcode inner capture). Passed explicitly rather than held in
// a global, per spec.md §9's preference for explicit context records
// over singletons.
type Context struct {
	IncludeDir   string
	ShortcodeDir string
	// Extensions are tried in order when resolving an include/shortcode
	// target, e.g. {"md", "html"}.
	Extensions []string
	// Exists reports whether a candidate resolved path exists; overridable
	// in tests. Defaults to a stat-based check via NewContext.
	Exists func(path string) bool
	// Site is the data the `site` top-level resolves to (site config
	// params plus base_url, per original_source's SiteVar).
	Site value.Value
	// CompileChild compiles a page (typically a CloneDetached snapshot)
	// to a string; used only by the block-shortcode "inner" capture.
	CompileChild func(*page.Page) (string, error)
	// Host is the site's plugin host, consulted by the compiler facade's
	// before/after_compile hooks (spec.md §4.7). Nil is a valid value —
	// a site with no plugins configured compiles exactly as if this
	// field didn't exist.
	Host *plugin.Host
}

// NewContext builds a Context with the standard markup-then-html
// extension order and a filesystem-backed Exists check.
func NewContext(includeDir, shortcodeDir string, site value.Value) *Context {
	return &Context{
		IncludeDir:   includeDir,
		ShortcodeDir: shortcodeDir,
		Extensions:   []string{"md", "html"},
		Exists: func(path string) bool {
			_, err := os.Stat(path)
			return err == nil
		},
		Site: site,
	}
}

func withExtension(p, ext string) string {
	e := filepath.Ext(p)
	base := strings.TrimSuffix(p, e)
	return base + "." + ext
}

// resolveFile finds the first of dir/rel.<ext> (extensions tried in
// Context.Extensions order) that exists, per the include/shortcode
// lookup described in spec.md §4.1.
func (c *Context) resolveFile(dir, rel string) (string, error) {
	joined := filepath.Join(dir, rel)
	for _, ext := range c.Extensions {
		candidate := withExtension(joined, ext)
		if c.Exists(candidate) {
			return candidate, nil
		}
	}
	return "", errIncludePathNotFound(rel)
}
