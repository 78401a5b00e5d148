package plugin

import (
	"errors"
	"testing"
)

type fakePlugin struct {
	name     string
	before   func(string, FileKind) string
	after    func(string, FileKind) string
	onCreate func(string) error
	onModify func(string) error
	onRemove func(string) error
	enabled  bool
	order    func(string, string) int
	routes   []RouteSpec
	handle   func(Request) (Response, error)
}

func (f *fakePlugin) Name() string { return f.name }

type compilerPlugin struct{ *fakePlugin }

func (f compilerPlugin) BeforeCompile(s string, k FileKind) string { return f.before(s, k) }
func (f compilerPlugin) AfterCompile(s string, k FileKind) string  { return f.after(s, k) }

type listenPlugin struct{ *fakePlugin }

func (f listenPlugin) OnCreate(p string) error { return f.onCreate(p) }
func (f listenPlugin) OnModify(p string) error { return f.onModify(p) }
func (f listenPlugin) OnRemove(p string) error { return f.onRemove(p) }

type sortPlugin struct{ *fakePlugin }

func (f sortPlugin) Enabled() bool                               { return f.enabled }
func (f sortPlugin) GetSortOrder(a, b string) int                 { return f.order(a, b) }

type routePlugin struct{ *fakePlugin }

func (f routePlugin) RoutePaths() []RouteSpec                { return f.routes }
func (f routePlugin) Handle(r Request) (Response, error)      { return f.handle(r) }

func TestBeforeAfterCompileFoldsInOrder(t *testing.T) {
	h := NewHost()
	var calls []string
	p1 := compilerPlugin{&fakePlugin{name: "p1",
		before: func(s string, k FileKind) string { calls = append(calls, "p1-before"); return s + "1" },
		after:  func(s string, k FileKind) string { calls = append(calls, "p1-after"); return s + "1" },
	}}
	p2 := compilerPlugin{&fakePlugin{name: "p2",
		before: func(s string, k FileKind) string { calls = append(calls, "p2-before"); return s + "2" },
		after:  func(s string, k FileKind) string { calls = append(calls, "p2-after"); return s + "2" },
	}}
	if err := h.Register(p1); err != nil {
		t.Fatalf("register p1: %v", err)
	}
	if err := h.Register(p2); err != nil {
		t.Fatalf("register p2: %v", err)
	}

	got := h.BeforeCompile("x", FileMarkdown)
	if got != "x12" {
		t.Fatalf("expected x12, got %q", got)
	}
	got = h.AfterCompile("y", FileHTML)
	if got != "y12" {
		t.Fatalf("expected y12, got %q", got)
	}
	want := []string{"p1-before", "p2-before", "p1-after", "p2-after"}
	if len(calls) != len(want) {
		t.Fatalf("expected %v, got %v", want, calls)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, calls)
		}
	}
}

func TestListenHooksFireForAllAndErrorsDoNotAbort(t *testing.T) {
	h := NewHost()
	var fired []string
	p1 := listenPlugin{&fakePlugin{name: "p1",
		onCreate: func(p string) error { fired = append(fired, "p1"); return errors.New("boom") },
	}}
	p2 := listenPlugin{&fakePlugin{name: "p2",
		onCreate: func(p string) error { fired = append(fired, "p2"); return nil },
	}}
	_ = h.Register(p1)
	_ = h.Register(p2)

	h.NotifyCreate("a.md")
	if len(fired) != 2 {
		t.Fatalf("expected both listeners to fire, got %v", fired)
	}
}

func TestRegisterSecondEnabledSortPluginFails(t *testing.T) {
	h := NewHost()
	s1 := sortPlugin{&fakePlugin{name: "s1", enabled: true, order: func(a, b string) int { return 0 }}}
	s2 := sortPlugin{&fakePlugin{name: "s2", enabled: true, order: func(a, b string) int { return 0 }}}
	if err := h.Register(s1); err != nil {
		t.Fatalf("register s1: %v", err)
	}
	if err := h.Register(s2); err == nil {
		t.Fatalf("expected an error registering a second enabled sort plugin")
	}
}

func TestDisabledSortPluginDoesNotBlockAnotherEnabledOne(t *testing.T) {
	h := NewHost()
	disabled := sortPlugin{&fakePlugin{name: "disabled", enabled: false, order: func(a, b string) int { return 0 }}}
	enabled := sortPlugin{&fakePlugin{name: "enabled", enabled: true, order: func(a, b string) int { return 0 }}}
	if err := h.Register(disabled); err != nil {
		t.Fatalf("register disabled: %v", err)
	}
	if err := h.Register(enabled); err != nil {
		t.Fatalf("register enabled: %v", err)
	}
	if !h.SortEnabled() {
		t.Fatalf("expected a sort plugin to be enabled")
	}
}

func TestSortPagesUsesRegisteredComparator(t *testing.T) {
	h := NewHost()
	s := sortPlugin{&fakePlugin{name: "s", enabled: true, order: func(a, b string) int {
		if a < b {
			return -1
		}
		if a > b {
			return 1
		}
		return 0
	}}}
	_ = h.Register(s)

	meta := []string{"c", "a", "b"}
	h.SortPages(meta)
	if meta[0] != "a" || meta[1] != "b" || meta[2] != "c" {
		t.Fatalf("expected sorted order, got %v", meta)
	}
}

func TestDispatchRoutesToMatchingPlugin(t *testing.T) {
	h := NewHost()
	r := routePlugin{&fakePlugin{name: "r",
		routes: []RouteSpec{{Method: MethodGet, Path: "/hello"}},
		handle: func(req Request) (Response, error) {
			return Response{StatusCode: 200, Body: []byte("hi " + req.ID)}, nil
		},
	}}
	_ = h.Register(r)

	resp, matched, err := h.Dispatch(Request{ID: "req-1", Method: MethodGet, URI: "/hello"})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if !matched {
		t.Fatalf("expected a route match")
	}
	if resp.StatusCode != 200 || string(resp.Body) != "hi req-1" {
		t.Fatalf("unexpected response: %+v", resp)
	}

	_, matched, _ = h.Dispatch(Request{Method: MethodGet, URI: "/nowhere"})
	if matched {
		t.Fatalf("expected no route match for an unregistered path")
	}
}

func TestRoutePathsAggregatesAcrossPlugins(t *testing.T) {
	h := NewHost()
	r1 := routePlugin{&fakePlugin{name: "r1", routes: []RouteSpec{{Method: MethodGet, Path: "/a"}}}}
	r2 := routePlugin{&fakePlugin{name: "r2", routes: []RouteSpec{{Method: MethodPost, Path: "/b"}}}}
	_ = h.Register(r1)
	_ = h.Register(r2)

	specs := h.RoutePaths()
	if len(specs) != 2 {
		t.Fatalf("expected 2 route specs, got %d", len(specs))
	}
}
