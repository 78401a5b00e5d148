// Package config loads the site configuration contract spec.md §6
// assumes an external collaborator provides: base URL, title,
// description, author and arbitrary theme params. Deliberately thin —
// no flag parsing, no schema validation — per SPEC_FULL §1 Non-goals.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Site is the minimal site-wide configuration SPEC_FULL §1 requires
// to be available to the interpreter's `site` top-level and to the
// generator's wrapper frame.
type Site struct {
	BaseURL     string         `toml:"base_url"`
	Title       string         `toml:"title"`
	Description string         `toml:"description"`
	Author      string         `toml:"author"`
	Params      map[string]any `toml:"params"`

	ContentDir string `toml:"content_dir"`
	StaticDir  string `toml:"static_dir"`
	ThemeDir   string `toml:"theme_dir"`
	Theme      string `toml:"theme"`
	PluginDir  string `toml:"plugin_dir"`
	PublicDir  string `toml:"public_dir"`
}

// defaults mirrors the teacher's directory-layout defaults
// (generator/types.go's BuildContext), adapted to Allay's naming.
func defaults() Site {
	return Site{
		ContentDir: "contents",
		StaticDir:  "static",
		ThemeDir:   "themes",
		Theme:      "default",
		PluginDir:  "plugins",
		PublicDir:  "public",
	}
}

// LoadSiteConfig reads allay.toml from dir if present, layering it
// over directory-layout defaults. A missing file is not an error —
// an empty site with default directories is a valid configuration for
// `allay build` to start from, matching the teacher's
// `config.LoadConfig` treating a missing `.oxen.json` the same way.
func LoadSiteConfig(dir string) (*Site, error) {
	site := defaults()

	path := filepath.Join(dir, "allay.toml")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &site, nil
		}
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	if _, err := toml.Decode(string(data), &site); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return &site, nil
}
