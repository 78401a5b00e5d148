package compiler

import (
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"allay/internal/lang/ast"
	"allay/internal/value"
)

// magicURL is the front-matter key auto-injected with the page's
// site-relative HTML path, per spec.md §6.
const magicURL = "url"

// decodeMeta turns a File's raw front-matter text into a Value object,
// per the format the parser already detected. An empty/None block
// decodes to an empty object so callers never special-case "no meta".
func decodeMeta(raw string, format ast.MetaFormat) (value.Value, error) {
	if format == ast.MetaNone || strings.TrimSpace(raw) == "" {
		return value.Object(nil), nil
	}
	var generic map[string]any
	switch format {
	case ast.MetaYAML:
		if err := yaml.Unmarshal([]byte(raw), &generic); err != nil {
			return value.Value{}, err
		}
	case ast.MetaTOML:
		if _, err := toml.Decode(raw, &generic); err != nil {
			return value.Value{}, err
		}
	}
	return value.FromAny(generic), nil
}

// injectURL adds the "url" magic field to meta (if absent): source's
// path relative to contentDir, with a .html extension and forward
// slashes, matching original_source's meta.rs post_preprocess.
func injectURL(source, contentDir string, meta value.Value) value.Value {
	if !meta.Get(magicURL).IsNull() {
		return meta
	}
	rel, err := filepath.Rel(contentDir, source)
	if err != nil {
		return meta
	}
	rel = strings.TrimSuffix(rel, filepath.Ext(rel)) + ".html"
	rel = filepath.ToSlash(rel)
	return meta.With(magicURL, value.String(rel))
}
