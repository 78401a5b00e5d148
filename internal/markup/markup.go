// Package markup implements the markup_to_html external collaborator
// named in spec.md §4.1/§4.2: a pluggable converter dispatched by file
// extension. The core only ever depends on the Converter interface;
// spec.md treats the conversion algorithm itself as out of scope, so
// this package's job is picking and wiring a real backend, not
// reinventing Markdown rendering. original_source's own `TemplateKind`
// only ever resolves to Markdown or Html (`allay-base/src/template.rs`)
// — there is no third markup kind to dispatch to, so this registry
// stays single-entry rather than growing speculative backends.
package markup

import (
	"bytes"
	"fmt"

	"github.com/alecthomas/chroma/v2/formatters/html"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	goldmarkhtml "github.com/yuin/goldmark/renderer/html"
)

// Converter turns a page's raw body text into HTML.
type Converter interface {
	Convert(text string) (string, error)
}

// ConverterFunc adapts a plain function to Converter.
type ConverterFunc func(string) (string, error)

func (f ConverterFunc) Convert(text string) (string, error) { return f(text) }

// registry maps the extensions (without the leading dot) the
// interpreter's file finder resolves against to their backend.
var registry = map[string]Converter{
	"md": markdownConverter(),
}

// ForExt returns the converter registered for ext, and whether one
// exists. Non-markup extensions (html, htm) have none — pages with
// those extensions pass through compile() untouched, per spec.md §4.2.
func ForExt(ext string) (Converter, bool) {
	c, ok := registry[ext]
	return c, ok
}

func markdownConverter() Converter {
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			highlighting.NewHighlighting(
				highlighting.WithStyle("monokai"),
				highlighting.WithFormatOptions(html.WithLineNumbers(false)),
			),
		),
		goldmark.WithRendererOptions(
			goldmarkhtml.WithUnsafe(),
		),
	)
	return ConverterFunc(func(text string) (string, error) {
		var buf bytes.Buffer
		if err := md.Convert([]byte(text), &buf); err != nil {
			return "", fmt.Errorf("markup: markdown conversion: %w", err)
		}
		return buf.String(), nil
	})
}
