package generator

import (
	"embed"
	"html/template"
	"regexp"
	"strings"
)

//go:embed templates/*.html
var assets embed.FS

// hotReloadSnippet is injected into every wrapped page only in serve
// mode, per spec.md §4.5.
const hotReloadSnippet = `<script>
(function() {
  var es = new EventSource("/__allay/reload");
  es.onmessage = function() { location.reload(); };
})();
</script>`

// Frame wraps compiled HTML bodies in the fixed <html>...{content}...
// {hot_reload_snippet}...</html> frame spec.md §4.5 describes.
type Frame struct {
	tmpl    *template.Template
	devMode bool
	baseURL string
}

type frameData struct {
	Content   template.HTML
	HotReload template.HTML
}

// NewFrame loads the embedded wrapper skeleton. devMode controls
// whether the hot-reload snippet is injected; baseURL drives the
// leading-slash URL rewrite pass.
func NewFrame(devMode bool, baseURL string) (*Frame, error) {
	tmpl, err := template.ParseFS(assets, "templates/wrapper.html")
	if err != nil {
		return nil, err
	}
	return &Frame{tmpl: tmpl, devMode: devMode, baseURL: strings.TrimSuffix(baseURL, "/")}, nil
}

// Render embeds body into the frame, injecting the hot-reload snippet
// in dev mode and rewriting root-relative asset URLs against baseURL.
func (f *Frame) Render(body string) (string, error) {
	data := frameData{Content: template.HTML(body)}
	if f.devMode {
		data.HotReload = template.HTML(hotReloadSnippet)
	}
	var b strings.Builder
	if err := f.tmpl.Execute(&b, data); err != nil {
		return "", err
	}
	out := b.String()
	if f.baseURL != "" {
		out = rewriteURLs(out, f.baseURL)
	}
	return out, nil
}

var urlAttrRe = regexp.MustCompile(`(?i)\b(href|src)="(/[^"]*)"`)

// rewriteURLs rewrites leading "/"-absolute href/src attributes on the
// tags spec.md §4.5 names (a, link, script, img, source, audio — the
// regex matches the attribute, not the tag name, which is equivalent
// since none of those attributes appear on any other tag in generated
// output) to baseURL + path.
func rewriteURLs(html, baseURL string) string {
	return urlAttrRe.ReplaceAllString(html, `$1="`+baseURL+`$2"`)
}
