// Package plugin implements the plugin host boundary from spec.md
// §4.7: a component-model-style set of hook sets (Compiler, Listen,
// Route, SortPage) a plugin may opt into, plus a typed event bus.
// Grounded on original_source/crates/allay-plugin-host's per-hook-set
// dispatch methods (component/compiler.rs, listen.rs, route.rs,
// sort_page.rs); the wasmtime component-model machinery those are
// built on is explicitly out of scope per spec.md §1 ("only the
// host-side dispatch contract is specified"), so plugins here are
// in-process Go values implementing the hook interfaces directly.
package plugin

// FileKind mirrors original_source's TemplateKind as seen by plugins:
// only the two kinds a Compiler hook can ever be asked to transform.
type FileKind int

const (
	FileMarkdown FileKind = iota
	FileHTML
)

// Compiler is the before/after_compile hook set.
type Compiler interface {
	BeforeCompile(source string, kind FileKind) string
	AfterCompile(html string, kind FileKind) string
}

// Listen is the fire-and-forget file-event hook set.
type Listen interface {
	OnCreate(path string) error
	OnModify(path string) error
	OnRemove(path string) error
}

// Method is the HTTP method a Route hook's RoutePaths advertises.
type Method int

const (
	MethodGet Method = iota
	MethodPost
	MethodPut
	MethodDelete
)

// Request/Response are deliberately opaque per spec.md §4.7: "request/
// response are opaque bytes + method/uri/headers".
type Request struct {
	ID      string
	Method  Method
	URI     string
	Headers map[string][]string
	Body    []byte
}

type Response struct {
	StatusCode int
	Headers    map[string][]string
	Body       []byte
}

// RouteSpec is one (method, path) pair a Route plugin declares.
type RouteSpec struct {
	Method Method
	Path   string
}

// Route is the HTTP-dispatch hook set. Out of spec for the core beyond
// the dispatch abstraction itself (spec.md §4.7).
type Route interface {
	Handle(req Request) (Response, error)
	RoutePaths() []RouteSpec
}

// SortPage is the page-ordering hook set. At most one plugin may have
// Enabled() return true; the host enforces that exclusivity at
// registration time (spec.md §4.7).
type SortPage interface {
	Enabled() bool
	// GetSortOrder returns -1, 0 or 1 comparing two pages' front-matter
	// metadata, each passed as its JSON encoding.
	GetSortOrder(metaJSON1, metaJSON2 string) int
}

// Plugin is the minimal identity every registered plugin instance has,
// regardless of which hook sets (above) it additionally implements.
type Plugin interface {
	Name() string
}
