// Package watch implements the file watcher adapter from spec.md §4.6:
// it debounces OS notifications, normalises paths to a small event
// vocabulary, and synthesises Create events for a cold-start walk.
// Grounded on original_source/crates/allay-publish/src/generator.rs's
// FileListener trait (cold_start/watch/on_notify_event), translated
// from notify-debouncer-full + walkdir to fsnotify + filepath.WalkDir
// — the only third-party piece is fsnotify itself, since no debouncer
// or directory-walk library appears anywhere in the example pack.
package watch

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// EventKind is the normalised event vocabulary spec.md §4.6 specifies.
type EventKind int

const (
	Create EventKind = iota
	Modify
	Remove
	Rename
)

func (k EventKind) String() string {
	switch k {
	case Create:
		return "create"
	case Modify:
		return "modify"
	case Remove:
		return "remove"
	case Rename:
		return "rename"
	default:
		return "unknown"
	}
}

// Event is a normalised, root-relative file event. OldPath is set only
// for Rename.
type Event struct {
	Kind    EventKind
	Path    string
	OldPath string
	IsDir   bool
}

// Handler receives normalised events. Errors are logged by the watcher
// loop, never propagated back into it — spec.md §4.6: "errors during
// dispatch are logged and never abort the watcher loop".
type Handler func(Event) error

// Watcher debounces and normalises fsnotify events under one root
// directory, handing them to Handler in arrival order.
type Watcher struct {
	Root    string
	Debounce time.Duration
	Handler Handler
}

// NewWatcher builds a Watcher with spec.md §4.6's debounce window
// clamped into [50ms, 1s]: a shorter value (including zero) becomes
// 50ms and a longer one becomes 1s. There is no other default.
func NewWatcher(root string, debounce time.Duration, handler Handler) *Watcher {
	if debounce < 50*time.Millisecond {
		debounce = 50 * time.Millisecond
	}
	if debounce > time.Second {
		debounce = time.Second
	}
	return &Watcher{Root: root, Debounce: debounce, Handler: handler}
}

// ColdStart walks Root recursively and synthesises a Create event for
// every entry below Root: each file, and each directory with IsDir set.
// Per-file errors are logged and do not abort the walk.
func (w *Watcher) ColdStart() {
	err := filepath.WalkDir(w.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			slog.Warn("cold start: error reading entry", "path", path, "error", err)
			return nil
		}
		if path == w.Root {
			return nil
		}
		rel, relErr := filepath.Rel(w.Root, path)
		if relErr != nil {
			return nil
		}
		if derr := w.dispatch(Event{Kind: Create, Path: rel, IsDir: d.IsDir()}); derr != nil {
			slog.Warn("cold start: handler error", "path", rel, "error", derr)
		}
		return nil
	})
	if err != nil {
		slog.Warn("cold start: walk failed", "root", w.Root, "error", err)
	}
}

// Run starts watching Root and blocks, debouncing and dispatching
// events until fsnotify closes its event or error channel, then returns
// nil; it returns an error only if the watcher cannot be set up. Callers
// run this in its own goroutine. The fsnotify watcher is private to Run
// and Watcher has no method that stops it.
func (w *Watcher) Run() error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	if err := addRecursive(fsw, w.Root); err != nil {
		return err
	}

	pending := map[string]fsnotify.Op{}
	var order []string
	timer := time.NewTimer(w.Debounce)
	if !timer.Stop() {
		<-timer.C
	}
	armed := false

	flush := func() {
		for _, path := range order {
			w.handleOp(path, pending[path])
		}
		pending = map[string]fsnotify.Op{}
		order = nil
		armed = false
	}

	for {
		select {
		case ev, ok := <-fsw.Events:
			if !ok {
				flush()
				return nil
			}
			if _, seen := pending[ev.Name]; !seen {
				order = append(order, ev.Name)
			}
			pending[ev.Name] = pending[ev.Name] | ev.Op
			if !armed {
				timer.Reset(w.Debounce)
				armed = true
			}
		case <-timer.C:
			flush()
		case err, ok := <-fsw.Errors:
			if !ok {
				flush()
				return nil
			}
			slog.Warn("watcher error", "error", err)
		}
	}
}

func (w *Watcher) handleOp(path string, op fsnotify.Op) {
	rel, err := filepath.Rel(w.Root, path)
	if err != nil {
		return
	}
	info, statErr := os.Stat(path)
	isDir := statErr == nil && info.IsDir()

	// fsnotify reports a rename as a bare Rename op on the old path (no
	// new path attached); the new path arrives moments later as its own
	// Create event. That pair already satisfies spec.md §4.6's "Rename
	// treated as remove(old) then create(new)" without this adapter
	// needing to correlate the two itself, so Rename collapses to Remove
	// here and EventKind.Rename is reserved for callers layered on top
	// that do their own path correlation.
	var kind EventKind
	switch {
	case op&fsnotify.Create != 0:
		kind = Create
	case op&fsnotify.Remove != 0, op&fsnotify.Rename != 0:
		kind = Remove
	case op&fsnotify.Write != 0, op&fsnotify.Chmod != 0:
		kind = Modify
	default:
		return
	}
	if err := w.dispatch(Event{Kind: kind, Path: rel, IsDir: isDir}); err != nil {
		slog.Warn("handler error", "path", rel, "kind", kind, "error", err)
	}
}

func (w *Watcher) dispatch(e Event) error {
	if w.Handler == nil {
		return nil
	}
	return w.Handler(e)
}

func addRecursive(fsw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if werr := fsw.Add(path); werr != nil {
				slog.Warn("failed to watch directory", "path", path, "error", werr)
			}
		}
		return nil
	})
}
