package compiler

import (
	"os"
	"path/filepath"
	"strings"

	"allay/internal/interp"
	"allay/internal/lang"
	"allay/internal/markup"
	"allay/internal/page"
	"allay/internal/plugin"
)

// extOf returns a path's extension without the leading dot, lowercased.
func extOf(path string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
}

var supportedExts = map[string]bool{"md": true, "html": true, "htm": true}

// fileKindFor narrows a page's extension to the two kinds a plugin's
// Compiler hook can be asked to transform, matching original_source's
// TemplateKind as seen from the plugin side (plugin.FileKind).
func fileKindFor(ext string) plugin.FileKind {
	if ext == "md" {
		return plugin.FileMarkdown
	}
	return plugin.FileHTML
}

// compilePage is the three-step compile(p, interpreter) contract from
// spec.md §4.3: parse-and-interpret once (ready), short-circuit on a
// clean cache (!dirty), else flatten. page.Flatten is handed two
// injected callbacks so that this package — the only one allowed to
// know about lang, interp and markup simultaneously — can drive
// compilation of ChildPage tokens and markup post-processing without
// page importing either of those packages.
func compilePage(ctx *interp.Context, p *page.Page) (string, error) {
	if !p.IsReady() {
		if err := readyPage(ctx, p); err != nil {
			return "", err
		}
	}
	if !p.IsDirty() {
		return p.Cache(), nil
	}

	ext := extOf(p.Path())
	conv, hasConv := markup.ForExt(ext)
	kind := fileKindFor(ext)
	var postProcess func(path, body string) (string, error)
	if hasConv || ctx.Host != nil {
		postProcess = func(_, body string) (string, error) {
			out := body
			if hasConv {
				var err error
				out, err = conv.Convert(out)
				if err != nil {
					return "", errCompile("markup conversion", err)
				}
			}
			if ctx.Host != nil {
				out = ctx.Host.AfterCompile(out, kind)
			}
			return out, nil
		}
	}

	out, err := p.Flatten(func(c *page.Page) (string, error) {
		html, err := compilePage(ctx, c)
		if err != nil {
			return "", errInclude(c.Path(), err)
		}
		return html, nil
	}, postProcess)
	if err != nil {
		return "", err
	}
	return out, nil
}

func readyPage(ctx *interp.Context, p *page.Page) error {
	ext := extOf(p.Path())
	if !supportedExts[ext] {
		return errFileTypeNotSupported(ext)
	}

	content, err := os.ReadFile(p.Path())
	if err != nil {
		return errIO("reading "+p.Path(), err)
	}

	raw := string(content)
	if ctx.Host != nil {
		raw = ctx.Host.BeforeCompile(raw, fileKindFor(ext))
	}

	f, err := lang.ParseFile(raw)
	if err != nil {
		return errParse(err)
	}

	if f.HasMeta {
		meta, err := decodeMeta(f.MetaRaw, f.MetaFormat)
		if err != nil {
			return errParse(err)
		}
		obj, err := meta.AsObject()
		if err != nil {
			return errParse(err)
		}
		for k, v := range obj {
			p.Scope().AddKey(k, v)
		}
	}

	if err := interp.Template(ctx, p, f.Template); err != nil {
		return errInterpret(err)
	}
	p.SetReady(true)
	return nil
}

func errCompile(detail string, err error) *CompileError {
	return &CompileError{Kind: ErrCompile, Detail: detail, Err: err}
}
