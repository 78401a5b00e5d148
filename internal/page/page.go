package page

import (
	"strings"
	"sync"
)

// OutputKind tags whether an OutputToken is rendered text or a nested
// child page that must itself be compiled.
type OutputKind int

const (
	OutputText OutputKind = iota
	OutputChildPage
)

type OutputToken struct {
	Kind  OutputKind
	Text  string
	Child *Page
}

// Page is a node in the compilation cache graph: a source path, its
// interpreted scope, the output tokens produced by the last
// interpretation pass, and the ready/dirty bits that drive incremental
// recompilation. The parent link is a plain pointer rather than a weak
// reference — Go's collector handles the parent/child cycle fine.
// Detach severs that link on an existing page; CloneDetached does not
// use it and builds its copy with no parent from the start.
type Page struct {
	mu sync.Mutex

	parent *Page
	path   string
	scope  *Scope
	stash  map[string]*Page
	output []OutputToken

	ready bool
	dirty bool
	cache string
}

// New creates a root-level page: no parent, a fresh scope, dirty so the
// first compile always runs.
func New(path string) *Page {
	return &Page{
		path:  path,
		scope: NewScope(),
		dirty: true,
	}
}

// NewChild creates a subpage rooted at path with the given scope,
// parented to p, and appends a ChildPage token to p's output. Used by
// include and shortcode resolution.
func NewChild(p *Page, path string, scope *Scope) *Page {
	child := &Page{
		parent: p,
		path:   path,
		scope:  scope,
		dirty:  true,
	}
	p.mu.Lock()
	p.output = append(p.output, OutputToken{Kind: OutputChildPage, Child: child})
	p.mu.Unlock()
	return child
}

func (p *Page) Path() string  { return p.path }
func (p *Page) Scope() *Scope { return p.scope }

// WithStash registers a page to be spliced in by a later magic-field
// access (the "content"/"inner" mechanism), under key.
func (p *Page) WithStash(key string, stashed *Page) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stash == nil {
		p.stash = map[string]*Page{}
	}
	p.stash[key] = stashed
}

// AttachStash splices the stashed page registered under key as a child
// of p, if one exists: the stashed page's parent becomes p, a
// ChildPage token is appended to p's output, and the page is returned.
// This is the short-circuit that makes bare `.content`/`.inner` field
// accesses resolve to nested page content instead of a scope lookup.
func (p *Page) AttachStash(key string) (*Page, bool) {
	p.mu.Lock()
	stashed, ok := p.stash[key]
	if ok {
		p.output = append(p.output, OutputToken{Kind: OutputChildPage, Child: stashed})
	}
	p.mu.Unlock()
	if !ok {
		return nil, false
	}
	stashed.mu.Lock()
	stashed.parent = p
	stashed.mu.Unlock()
	return stashed, true
}

// InsertText appends a text token to p's output.
func (p *Page) InsertText(text string) {
	p.mu.Lock()
	p.output = append(p.output, OutputToken{Kind: OutputText, Text: text})
	p.mu.Unlock()
}

// IsReady, SetReady, IsDirty report/set the compile lifecycle bits.
func (p *Page) IsReady() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ready
}

func (p *Page) SetReady(ready bool) {
	p.mu.Lock()
	p.ready = ready
	p.mu.Unlock()
}

func (p *Page) IsDirty() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dirty
}

func (p *Page) Cache() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cache
}

// Clear invalidates a page so the next compile reinterprets it from
// source, and spreads the dirty bit up to every ancestor so their
// cached flattening is also recomputed.
func (p *Page) Clear() {
	p.mu.Lock()
	p.ready = false
	p.mu.Unlock()
	p.spreadDirty()
}

func (p *Page) spreadDirty() {
	p.mu.Lock()
	p.dirty = true
	p.output = nil
	parent := p.parent
	p.mu.Unlock()
	if parent != nil {
		parent.spreadDirty()
	}
}

// Detach severs p's parent link, so further spreadDirty calls starting
// at p's children never reach the former parent.
func (p *Page) Detach() {
	p.mu.Lock()
	p.parent = nil
	p.mu.Unlock()
}

// CloneDetached returns a copy of p — same path and scope, empty
// output — with no parent. Used to compile a block shortcode's inner
// template in isolation: the clone starts with no output so that
// flattening it afterward yields exactly the inner template's own
// rendered content, not anything the live page had already emitted.
func (p *Page) CloneDetached() *Page {
	p.mu.Lock()
	defer p.mu.Unlock()
	return &Page{
		path:  p.path,
		scope: p.scope,
		ready: true,
		dirty: true,
	}
}

// ResetForInterpret clears output in preparation for a fresh
// interpretation pass. The compile path does not call it; Clear
// already empties output through spreadDirty.
func (p *Page) ResetForInterpret() {
	p.mu.Lock()
	p.output = nil
	p.mu.Unlock()
}

// Flatten concatenates p's output tokens with a single-space separator,
// invoking compileChild for nested ChildPage tokens, then runs
// postProcess (markup_to_html for markup-extension pages) over the
// joined text. The result is cached and dirty is cleared.
func (p *Page) Flatten(compileChild func(*Page) (string, error), postProcess func(path, body string) (string, error)) (string, error) {
	p.mu.Lock()
	tokens := make([]OutputToken, len(p.output))
	copy(tokens, p.output)
	path := p.path
	p.mu.Unlock()

	var b strings.Builder
	for _, t := range tokens {
		b.WriteByte(' ')
		switch t.Kind {
		case OutputText:
			b.WriteString(t.Text)
		case OutputChildPage:
			s, err := compileChild(t.Child)
			if err != nil {
				return "", err
			}
			b.WriteString(s)
		}
	}
	result := b.String()

	if postProcess != nil {
		r, err := postProcess(path, result)
		if err != nil {
			return "", err
		}
		result = r
	}

	p.mu.Lock()
	p.dirty = false
	p.cache = result
	p.mu.Unlock()
	return result, nil
}
