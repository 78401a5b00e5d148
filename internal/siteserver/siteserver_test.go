package siteserver

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"allay/internal/plugin"
)

type fakeRoutePlugin struct {
	name   string
	routes []plugin.RouteSpec
	handle func(plugin.Request) (plugin.Response, error)
}

func (f *fakeRoutePlugin) Name() string                      { return f.name }
func (f *fakeRoutePlugin) RoutePaths() []plugin.RouteSpec     { return f.routes }
func (f *fakeRoutePlugin) Handle(r plugin.Request) (plugin.Response, error) { return f.handle(r) }

func TestStaticMuxServesIndexAtRoot(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>hi</h1>"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	s := New(dir, "127.0.0.1", 0, nil)
	absDir, _ := filepath.Abs(dir)

	mux := http.NewServeMux()
	mux.HandleFunc("/__allay/reload", s.handleSSE)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		reqPath := r.URL.Path
		if reqPath == "/" {
			reqPath = "/index.html"
		}
		http.ServeFile(w, r, filepath.Join(absDir, reqPath))
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestDispatchPluginRoutesBeforeStaticFallback(t *testing.T) {
	host := plugin.NewHost()
	route := &fakeRoutePlugin{
		name:   "greeter",
		routes: []plugin.RouteSpec{{Method: plugin.MethodGet, Path: "/hello"}},
		handle: func(req plugin.Request) (plugin.Response, error) {
			return plugin.Response{StatusCode: http.StatusOK, Body: []byte("hi")}, nil
		},
	}
	if err := host.Register(route); err != nil {
		t.Fatalf("Register: %v", err)
	}

	s := New(t.TempDir(), "127.0.0.1", 0, host)

	req := httptest.NewRequest(http.MethodGet, "/hello", nil)
	resp, matched, err := s.dispatchPlugin(req)
	if err != nil {
		t.Fatalf("dispatchPlugin: %v", err)
	}
	if !matched {
		t.Fatalf("expected the route plugin to match /hello")
	}
	if string(resp.Body) != "hi" {
		t.Fatalf("expected plugin response body, got %q", resp.Body)
	}

	req2 := httptest.NewRequest(http.MethodGet, "/unregistered", nil)
	_, matched, err = s.dispatchPlugin(req2)
	if err != nil {
		t.Fatalf("dispatchPlugin: %v", err)
	}
	if matched {
		t.Fatalf("expected no match for a path no plugin advertises")
	}
}

func TestNotifyReloadDoesNotBlockWithoutListeners(t *testing.T) {
	s := New(t.TempDir(), "127.0.0.1", 0, nil)
	done := make(chan struct{})
	go func() {
		s.NotifyReload()
		s.NotifyReload()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("NotifyReload blocked with no broadcaster running")
	}
}
