// Package siteserver is the dev-server external collaborator spec.md
// §1/§6 leaves out of scope for production use: a static file server
// over the generator's output directory, an SSE endpoint the wrapper
// frame's hot-reload snippet (internal/generator's Frame) connects to,
// and — unlike the teacher's server/server.go, which only ever served
// static files — the site's plugin Route hooks (spec.md §4.7), given
// first chance at every request before the static fallback. Client
// keys (uuid instead of remote address) and the reload path
// (/__allay/reload, matching the Frame's embedded script) are also
// adapted from the teacher.
package siteserver

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"allay/internal/plugin"
)

type sseClient struct {
	writer http.ResponseWriter
	done   chan struct{}
}

// Server serves a built site directory and notifies connected
// browsers to reload when the generator refreshes output.
type Server struct {
	Dir        string
	Port       int
	Address    string
	Host       *plugin.Host
	clients    sync.Map
	reloadChan chan struct{}
	httpServer *http.Server
}

// New builds a Server rooted at dir, listening on address:port. host
// may be nil, in which case every request falls straight through to
// the static file server (no Route plugins registered).
func New(dir, address string, port int, host *plugin.Host) *Server {
	return &Server{
		Dir:        dir,
		Port:       port,
		Address:    address,
		Host:       host,
		reloadChan: make(chan struct{}, 1),
	}
}

// NotifyReload wakes the broadcaster so every connected tab picks up
// the change. cmd/allay wires it to generator.Site.OnChange, which
// Site.Serve calls after each successfully handled watcher event.
func (s *Server) NotifyReload() {
	select {
	case s.reloadChan <- struct{}{}:
	default:
	}
}

func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	id := uuid.NewString()
	slog.Debug("new SSE client connected", "client_id", id, "remote_addr", r.RemoteAddr)
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	client := &sseClient{writer: w, done: make(chan struct{})}
	s.clients.Store(id, client)

	<-client.done
	s.clients.Delete(id)
	slog.Debug("SSE client disconnected", "client_id", id)
}

func (s *Server) startReloadBroadcaster() {
	for range s.reloadChan {
		count := 0
		s.clients.Range(func(_, value any) bool {
			client := value.(*sseClient)
			client.writer.Write([]byte("data: reload\n\n"))
			if f, ok := client.writer.(http.Flusher); ok {
				f.Flush()
			}
			count++
			return true
		})
		slog.Debug("broadcast reload signal", "client_count", count)
	}
}

var httpMethods = map[string]plugin.Method{
	http.MethodGet:    plugin.MethodGet,
	http.MethodPost:   plugin.MethodPost,
	http.MethodPut:    plugin.MethodPut,
	http.MethodDelete: plugin.MethodDelete,
}

// dispatchPlugin converts an inbound HTTP request to a plugin.Request
// and offers it to the site's Route plugins. ok is false when no Host
// is configured, the method isn't one a Route hook can advertise, or no
// registered plugin claims the (method, path) pair — callers fall back
// to static serving in that case.
func (s *Server) dispatchPlugin(r *http.Request) (resp plugin.Response, ok bool, err error) {
	if s.Host == nil {
		return plugin.Response{}, false, nil
	}
	method, known := httpMethods[r.Method]
	if !known {
		return plugin.Response{}, false, nil
	}
	body, _ := io.ReadAll(r.Body)
	req := plugin.Request{
		ID:      plugin.RequestID(),
		Method:  method,
		URI:     r.URL.Path,
		Headers: r.Header,
		Body:    body,
	}
	return s.Host.Dispatch(req)
}

// Run blocks, serving Dir and the /__allay/reload SSE endpoint.
func (s *Server) Run() error {
	absDir, err := filepath.Abs(s.Dir)
	if err != nil {
		return fmt.Errorf("siteserver: resolving %s: %w", s.Dir, err)
	}

	addr := fmt.Sprintf("%s:%d", s.Address, s.Port)
	slog.Info("starting dev server", "address", addr, "dir", absDir)
	go s.startReloadBroadcaster()

	mux := http.NewServeMux()
	mux.HandleFunc("/__allay/reload", s.handleSSE)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		slog.Debug("http request", "method", r.Method, "path", r.URL.Path)

		if resp, matched, err := s.dispatchPlugin(r); matched {
			if err != nil {
				slog.Error("plugin route handler failed", "path", r.URL.Path, "error", err)
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			for k, vs := range resp.Headers {
				for _, v := range vs {
					w.Header().Add(k, v)
				}
			}
			if resp.StatusCode != 0 {
				w.WriteHeader(resp.StatusCode)
			}
			w.Write(resp.Body)
			return
		}

		reqPath := r.URL.Path
		if strings.HasSuffix(reqPath, "/") {
			reqPath += "index.html"
		}

		fullPath := filepath.Join(absDir, reqPath)
		if _, err := os.Stat(fullPath); os.IsNotExist(err) {
			http.NotFound(w, r)
			return
		}
		http.ServeFile(w, r, fullPath)
	})

	s.httpServer = &http.Server{Addr: addr, Handler: mux}
	slog.Info("dev server listening", "url", fmt.Sprintf("http://%s", addr), "dir", absDir)
	return s.httpServer.ListenAndServe()
}

// Shutdown closes the underlying HTTP server, if running.
func (s *Server) Shutdown() error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Close()
}
