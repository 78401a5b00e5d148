package plugin

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// Host owns every registered plugin instance and dispatches the four
// hook sets from spec.md §4.7. Registration takes the exclusive side
// of a reader-writer lock; dispatch takes the shared side, matching
// spec.md §5's "registration is exclusive, dispatch is shared".
type Host struct {
	mu      sync.RWMutex
	plugins []Plugin

	compilers []Compiler
	listeners []Listen
	routers   []Route
	sorter    SortPage // at most one; enforced in Register
}

// NewHost builds an empty plugin host.
func NewHost() *Host {
	return &Host{}
}

// Register adds a plugin instance, filing it into whichever hook-set
// slices it implements. A SortPage plugin is kept as the sorter only if
// its Enabled() is true; registering a second enabled one returns an
// error — spec.md §4.7: "at most one plugin may be enabled; startup
// fails otherwise". A disabled SortPage plugin is never the sorter.
func (h *Host) Register(p Plugin) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if sp, ok := p.(SortPage); ok && sp.Enabled() {
		if h.sorter != nil {
			return fmt.Errorf("plugin: a sort-page plugin is already enabled, cannot also enable %q", p.Name())
		}
		h.sorter = sp
	}
	if c, ok := p.(Compiler); ok {
		h.compilers = append(h.compilers, c)
	}
	if l, ok := p.(Listen); ok {
		h.listeners = append(h.listeners, l)
	}
	if r, ok := p.(Route); ok {
		h.routers = append(h.routers, r)
	}
	h.plugins = append(h.plugins, p)
	return nil
}

// BeforeCompile folds every registered Compiler plugin's BeforeCompile
// over source, in registration order. A plugin whose hook panics or
// misbehaves is not caught here (Go has no recoverable "error" return
// in the original's fold signature); callers that need isolation
// should recover around Register-time plugin construction instead.
func (h *Host) BeforeCompile(source string, kind FileKind) string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.compilers {
		source = c.BeforeCompile(source, kind)
	}
	return source
}

// AfterCompile is BeforeCompile's mirror for the post-compile hook.
func (h *Host) AfterCompile(html string, kind FileKind) string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.compilers {
		html = c.AfterCompile(html, kind)
	}
	return html
}

// NotifyCreate/NotifyModify/NotifyRemove fire every Listen plugin's
// corresponding hook fire-and-forget: errors are logged, never
// propagated, per spec.md §4.7.
func (h *Host) NotifyCreate(path string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, l := range h.listeners {
		if err := l.OnCreate(path); err != nil {
			slog.Warn("plugin listen hook failed", "hook", "on_create", "path", path, "error", err)
		}
	}
}

func (h *Host) NotifyModify(path string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, l := range h.listeners {
		if err := l.OnModify(path); err != nil {
			slog.Warn("plugin listen hook failed", "hook", "on_modify", "path", path, "error", err)
		}
	}
}

func (h *Host) NotifyRemove(path string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, l := range h.listeners {
		if err := l.OnRemove(path); err != nil {
			slog.Warn("plugin listen hook failed", "hook", "on_remove", "path", path, "error", err)
		}
	}
}

// RoutePaths aggregates every registered Route plugin's advertised
// (method, path) pairs.
func (h *Host) RoutePaths() []RouteSpec {
	h.mu.RLock()
	defer h.mu.RUnlock()
	var specs []RouteSpec
	for _, r := range h.routers {
		specs = append(specs, r.RoutePaths()...)
	}
	return specs
}

// Dispatch routes req to the first registered Route plugin whose
// RoutePaths includes a matching (method, uri) pair.
func (h *Host) Dispatch(req Request) (Response, bool, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, r := range h.routers {
		for _, spec := range r.RoutePaths() {
			if spec.Method == req.Method && spec.Path == req.URI {
				resp, err := r.Handle(req)
				return resp, true, err
			}
		}
	}
	return Response{}, false, nil
}

// SortEnabled reports whether an enabled SortPage plugin is registered.
func (h *Host) SortEnabled() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.sorter != nil
}

// SortPages sorts metaJSON (one page's front-matter metadata per
// entry, JSON-encoded) using the registered SortPage plugin's total
// order. A no-op if no sorter is registered.
func (h *Host) SortPages(metaJSON []string) {
	h.mu.RLock()
	sorter := h.sorter
	h.mu.RUnlock()
	if sorter == nil {
		return
	}
	sort.SliceStable(metaJSON, func(i, j int) bool {
		return sorter.GetSortOrder(metaJSON[i], metaJSON[j]) < 0
	})
}
