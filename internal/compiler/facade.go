// Package compiler implements the compiler facade from spec.md §4.4:
// it maps source paths to cached Pages, creates/clears/refreshes them,
// and republishes outputs when inputs change. It is the one package
// that wires internal/lang, internal/interp, internal/page and
// internal/markup together into the actual compile(p, interpreter)
// contract (see compile.go).
package compiler

import (
	"encoding/json"
	"os"
	"strings"
	"sync"

	"allay/internal/interp"
	"allay/internal/page"
	"allay/internal/plugin"
	"allay/internal/sitemap"
	"allay/internal/value"
)

// ContentKind selects which of the three facade dispatch paths a
// source file goes through, per spec.md §4.4.
type ContentKind int

const (
	KindArticle ContentKind = iota
	KindGeneral
	KindStatic
)

// RefreshResult pairs a republished page's original source path with
// its freshly rendered HTML, per spec.md §4.4 refresh_pages.
type RefreshResult struct {
	Source string
	HTML   string
}

// TemplateResolver returns the template path an article should be
// rendered into. In production this is always the theme's configured
// page template, but the facade keeps it pluggable so tests don't need
// a theme directory on disk.
type TemplateResolver func(articleSource string) string

// Facade is the compiler's top-level cache: source path -> cache key,
// cache key -> Page, and the set of keys currently published to disk.
// All three maps live behind one mutex; Page-level state (output,
// ready, dirty, cache) is protected separately by each Page's own
// mutex, acquired only while that Page is being read or compiled —
// never while holding this mutex — per spec.md §5.
type Facade struct {
	mu sync.Mutex

	pages      map[string]*page.Page
	influenced map[string]map[string]struct{}
	published  map[string]struct{}
	keySource  map[string]string // cache key -> the source path the generator should map to a destination
	articleTpl map[string]string // article source -> the template path its current composite key was built with

	ctx          *interp.Context
	templateFor  TemplateResolver
	contentDir   string

	Sitemap *sitemap.SiteMap

	// Host, if set, supplies the SortPage plugin (if any) consulted by
	// Pages() to produce site.pages' total order (spec.md §4.7).
	Host *plugin.Host

	pagesCache        []value.Value
	pagesCacheVersion uint32
	pagesCacheValid   bool
}

// NewFacade builds an empty facade. ctx is the interpreter context
// shared by every page this facade compiles; templateFor resolves an
// article's template path; contentDir is used to compute the "url"
// magic field (spec.md §6) relative to the site's content root.
func NewFacade(ctx *interp.Context, templateFor TemplateResolver, contentDir string, sm *sitemap.SiteMap) *Facade {
	f := &Facade{
		pages:       make(map[string]*page.Page),
		influenced:  make(map[string]map[string]struct{}),
		published:   make(map[string]struct{}),
		keySource:   make(map[string]string),
		articleTpl:  make(map[string]string),
		ctx:         ctx,
		templateFor: templateFor,
		contentDir:  contentDir,
		Sitemap:     sm,
	}
	ctx.CompileChild = func(p *page.Page) (string, error) { return compilePage(ctx, p) }
	return f
}

func templateArticleKey(template, article string) string {
	return template + "|" + article
}

func (f *Facade) addInfluenceLocked(source, key string) {
	set, ok := f.influenced[source]
	if !ok {
		set = make(map[string]struct{})
		f.influenced[source] = set
	}
	set[key] = struct{}{}
}

// CompileFile is compile_file from spec.md §4.4.
func (f *Facade) CompileFile(source string, kind ContentKind) (string, error) {
	switch kind {
	case KindStatic:
		return "", errFileTypeNotSupported(extOf(source))
	case KindGeneral:
		return f.compileGeneral(source)
	case KindArticle:
		return f.compileArticle(source)
	default:
		return "", errConfiguration("unknown content kind")
	}
}

func (f *Facade) compileGeneral(source string) (string, error) {
	key := source
	f.mu.Lock()
	if p, ok := f.pages[key]; ok {
		f.mu.Unlock()
		return compilePage(f.ctx, p)
	}
	p := page.New(source)
	f.pages[key] = p
	f.published[key] = struct{}{}
	f.keySource[key] = source
	f.addInfluenceLocked(source, key)
	f.mu.Unlock()

	html, err := compilePage(f.ctx, p)
	if err != nil {
		return "", err
	}
	f.registerSitemapEntry(source, p)
	return html, nil
}

func (f *Facade) compileArticle(source string) (string, error) {
	template := f.templateFor(source)
	articleKey := source
	compositeKey := templateArticleKey(template, source)

	f.mu.Lock()
	if p, ok := f.pages[compositeKey]; ok {
		f.mu.Unlock()
		return compilePage(f.ctx, p)
	}

	sub, ok := f.pages[articleKey]
	if !ok {
		sub = page.New(source)
		f.pages[articleKey] = sub
	}
	f.addInfluenceLocked(source, articleKey)

	final := page.New(template)
	final.WithStash(interp.MagicContent, sub)
	f.pages[compositeKey] = final
	f.published[compositeKey] = struct{}{}
	f.keySource[compositeKey] = source
	f.addInfluenceLocked(source, compositeKey)
	f.addInfluenceLocked(template, compositeKey)
	f.articleTpl[articleKey] = template
	f.mu.Unlock()

	html, err := compilePage(f.ctx, final)
	if err != nil {
		return "", err
	}
	f.registerSitemapEntry(source, sub)
	return html, nil
}

// ModifyFile is modify_file from spec.md §4.4.
func (f *Facade) ModifyFile(source string, kind ContentKind) error {
	switch kind {
	case KindStatic:
		return nil
	case KindGeneral:
		f.clearInfluenced(source)
		return nil
	case KindArticle:
		f.reconcileTemplate(source)
		f.clearInfluenced(source)
		f.clearInfluenced(f.templateFor(source))
		return nil
	default:
		return errConfiguration("unknown content kind")
	}
}

// reconcileTemplate resolves Open Question #2 from spec.md §9: if an
// article's resolved template path has changed since its composite key
// was last built (e.g. the theme's page.html was swapped or the
// config's content template setting changed), the stale composite key
// from the old template is evicted so it does not linger as a ghost
// entry in pages/influenced/published.
func (f *Facade) reconcileTemplate(source string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	oldTemplate, had := f.articleTpl[source]
	newTemplate := f.templateFor(source)
	if !had || oldTemplate == newTemplate {
		f.articleTpl[source] = newTemplate
		return
	}

	staleKey := templateArticleKey(oldTemplate, source)
	delete(f.pages, staleKey)
	delete(f.published, staleKey)
	delete(f.keySource, staleKey)
	removeFromSet(f.influenced[source], staleKey)
	removeFromSet(f.influenced[oldTemplate], staleKey)
	f.articleTpl[source] = newTemplate
}

func removeFromSet(set map[string]struct{}, key string) {
	if set == nil {
		return
	}
	delete(set, key)
}

func (f *Facade) clearInfluenced(source string) {
	f.mu.Lock()
	keys := make([]string, 0, len(f.influenced[source]))
	for k := range f.influenced[source] {
		keys = append(keys, k)
	}
	pages := make([]*page.Page, 0, len(keys))
	for _, k := range keys {
		if p, ok := f.pages[k]; ok {
			pages = append(pages, p)
		}
	}
	f.mu.Unlock()

	for _, p := range pages {
		p.Clear()
	}
}

// RemoveFile is remove_file from spec.md §4.4.
func (f *Facade) RemoveFile(source string, kind ContentKind) error {
	switch kind {
	case KindStatic:
		return nil
	case KindGeneral:
		f.removeKeys(source)
		return nil
	case KindArticle:
		f.clearInfluenced(source)
		f.removeKeys(source)
		f.mu.Lock()
		delete(f.articleTpl, source)
		f.mu.Unlock()
		if f.Sitemap != nil {
			f.Sitemap.Remove(source)
		}
		return nil
	default:
		return errConfiguration("unknown content kind")
	}
}

func (f *Facade) removeKeys(source string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for k := range f.influenced[source] {
		delete(f.pages, k)
		delete(f.published, k)
		delete(f.keySource, k)
	}
	delete(f.influenced, source)

	for src, set := range f.influenced {
		for k := range set {
			if strings.HasSuffix(k, "|"+source) {
				delete(set, k)
				delete(f.pages, k)
				delete(f.published, k)
				delete(f.keySource, k)
			}
		}
		if len(set) == 0 {
			delete(f.influenced, src)
		}
	}
}

// RefreshPages is refresh_pages from spec.md §4.4.
func (f *Facade) RefreshPages() ([]RefreshResult, error) {
	f.mu.Lock()
	keys := make([]string, 0, len(f.published))
	for k := range f.published {
		keys = append(keys, k)
	}
	f.mu.Unlock()

	var results []RefreshResult
	for _, key := range keys {
		f.mu.Lock()
		p, ok := f.pages[key]
		source := f.keySource[key]
		f.mu.Unlock()
		if !ok || !p.IsDirty() {
			continue
		}
		html, err := compilePage(f.ctx, p)
		if err != nil {
			return results, err
		}
		results = append(results, RefreshResult{Source: source, HTML: html})
	}
	return results, nil
}

// registerSitemapEntry injects the "url" magic field and records the
// page's merged metadata in the sitemap, skipping pages marked hidden
// (spec.md §6's front-matter `hidden` flag).
func (f *Facade) registerSitemapEntry(source string, p *page.Page) {
	if f.Sitemap == nil {
		return
	}
	meta := injectURL(source, f.contentDir, p.Scope().ThisData())
	if hidden, _ := meta.Get("hidden").AsBool(); hidden {
		return
	}
	url, err := meta.Get(magicURL).AsString()
	if err != nil {
		return
	}
	raw, err := json.Marshal(value.ToAny(meta))
	if err != nil {
		return
	}
	lastmod := int64(0)
	if fi, err := os.Stat(source); err == nil {
		lastmod = fi.ModTime().Unix()
	}
	f.Sitemap.Set(url, sitemap.Entry{LastMod: lastmod, Meta: raw})
}

// Pages returns every non-hidden page's metadata, for the `site.pages`
// top-level data original_source's var.rs calls PagesVar. The result is
// cached until the sitemap's version counter changes, per spec.md §3's
// "readers compare versions to decide whether to recompute derived
// views". If a SortPage plugin is registered on Host, it orders the
// result (spec.md §4.7: "the host wraps it into a total order for
// sorting the global page list").
func (f *Facade) Pages() []value.Value {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.Sitemap == nil {
		return nil
	}
	v := f.Sitemap.Version()
	if f.pagesCacheValid && v == f.pagesCacheVersion {
		return f.pagesCache
	}

	var metaJSON []string
	for _, path := range f.Sitemap.Paths() {
		entry, ok := f.Sitemap.Get(path)
		if !ok || len(entry.Meta) == 0 {
			continue
		}
		var generic map[string]any
		if err := json.Unmarshal(entry.Meta, &generic); err != nil {
			continue
		}
		if hidden, _ := value.FromAny(generic).Get("hidden").AsBool(); hidden {
			continue
		}
		metaJSON = append(metaJSON, string(entry.Meta))
	}

	if f.Host != nil {
		f.Host.SortPages(metaJSON)
	}

	pages := make([]value.Value, 0, len(metaJSON))
	for _, raw := range metaJSON {
		var generic map[string]any
		_ = json.Unmarshal([]byte(raw), &generic)
		pages = append(pages, value.FromAny(generic))
	}

	f.pagesCache = pages
	f.pagesCacheVersion = v
	f.pagesCacheValid = true
	return pages
}
