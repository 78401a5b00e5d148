package generator

import (
	"os"
	"path/filepath"
	"testing"

	"allay/internal/compiler"
	"allay/internal/interp"
	"allay/internal/plugin"
	"allay/internal/sitemap"
	"allay/internal/value"
)

type recordingListener struct {
	created, modified, removed []string
}

func (r *recordingListener) Name() string { return "recorder" }
func (r *recordingListener) OnCreate(path string) error {
	r.created = append(r.created, path)
	return nil
}
func (r *recordingListener) OnModify(path string) error {
	r.modified = append(r.modified, path)
	return nil
}
func (r *recordingListener) OnRemove(path string) error {
	r.removed = append(r.removed, path)
	return nil
}

func newTestGenerator(t *testing.T, kind Kind, contentKind compiler.ContentKind, mapToHTML bool) (*FileGenerator, string, string) {
	t.Helper()
	srcRoot := t.TempDir()
	destRoot := t.TempDir()

	ctx := interp.NewContext(srcRoot, srcRoot, value.Object(nil))
	facade := compiler.NewFacade(ctx, func(string) string { return "" }, srcRoot, sitemap.New(""))
	frame, err := NewFrame(false, "")
	if err != nil {
		t.Fatalf("NewFrame: %v", err)
	}
	g := &FileGenerator{
		Mapper:      Mapper{SrcRoot: srcRoot, DestRoot: destRoot, MapToHTML: mapToHTML},
		Kind:        kind,
		ContentKind: contentKind,
		Facade:      facade,
		Files:       NewFileMap(),
		Frame:       frame,
	}
	return g, srcRoot, destRoot
}

func TestCreateGeneralWritesWrappedHTML(t *testing.T) {
	g, srcRoot, destRoot := newTestGenerator(t, KindGeneral, compiler.KindGeneral, true)
	if err := os.WriteFile(filepath.Join(srcRoot, "about.md"), []byte("Hello"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if err := g.Create("about.md", false); err != nil {
		t.Fatalf("Create: %v", err)
	}

	out, err := os.ReadFile(filepath.Join(destRoot, "about.html"))
	if err != nil {
		t.Fatalf("expected wrapped output to exist: %v", err)
	}
	if len(out) == 0 {
		t.Fatalf("expected non-empty wrapped HTML")
	}
}

func TestCreateNotifiesRegisteredListenPlugin(t *testing.T) {
	g, srcRoot, _ := newTestGenerator(t, KindStatic, compiler.KindStatic, false)
	host := plugin.NewHost()
	listener := &recordingListener{}
	if err := host.Register(listener); err != nil {
		t.Fatalf("Register: %v", err)
	}
	g.Host = host

	src := filepath.Join(srcRoot, "logo.png")
	if err := os.WriteFile(src, []byte("binary"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := g.Create("logo.png", false); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(listener.created) != 1 || listener.created[0] != src {
		t.Fatalf("expected the listen plugin to observe the create, got %v", listener.created)
	}

	if err := g.Modify("logo.png"); err != nil {
		t.Fatalf("Modify: %v", err)
	}
	if len(listener.modified) != 1 || listener.modified[0] != src {
		t.Fatalf("expected the listen plugin to observe the modify, got %v", listener.modified)
	}

	if err := g.Remove("logo.png", false); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if len(listener.removed) != 1 || listener.removed[0] != src {
		t.Fatalf("expected the listen plugin to observe the remove, got %v", listener.removed)
	}
}

func TestCreateStaticCopiesVerbatim(t *testing.T) {
	g, srcRoot, destRoot := newTestGenerator(t, KindStatic, compiler.KindStatic, false)
	if err := os.WriteFile(filepath.Join(srcRoot, "logo.png"), []byte("binary"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if err := g.Create("logo.png", false); err != nil {
		t.Fatalf("Create: %v", err)
	}
	out, err := os.ReadFile(filepath.Join(destRoot, "logo.png"))
	if err != nil {
		t.Fatalf("expected static file to be copied: %v", err)
	}
	if string(out) != "binary" {
		t.Fatalf("got %q, want %q", out, "binary")
	}
}

func TestCreateWrapperIsNoop(t *testing.T) {
	g, srcRoot, destRoot := newTestGenerator(t, KindWrapper, compiler.KindGeneral, true)
	if err := os.WriteFile(filepath.Join(srcRoot, "page.html"), []byte("<div></div>"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if err := g.Create("page.html", false); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := os.Stat(filepath.Join(destRoot, "page.html")); !os.IsNotExist(err) {
		t.Fatalf("expected a wrapper create to write nothing")
	}
}

func TestRemoveDeletesDestination(t *testing.T) {
	g, srcRoot, destRoot := newTestGenerator(t, KindGeneral, compiler.KindGeneral, true)
	if err := os.WriteFile(filepath.Join(srcRoot, "about.md"), []byte("Hello"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := g.Create("about.md", false); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := os.Remove(filepath.Join(srcRoot, "about.md")); err != nil {
		t.Fatalf("Remove source: %v", err)
	}

	if err := g.Remove("about.md", false); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := os.Stat(filepath.Join(destRoot, "about.html")); !os.IsNotExist(err) {
		t.Fatalf("expected destination to be removed")
	}
}

func TestModifySkippedWhenSourceGone(t *testing.T) {
	g, _, _ := newTestGenerator(t, KindGeneral, compiler.KindGeneral, true)
	if err := g.Modify("missing.md"); err != nil {
		t.Fatalf("expected Modify to no-op silently for a missing source, got %v", err)
	}
}

func TestPathMappingConvertsMarkdownExtension(t *testing.T) {
	m := Mapper{SrcRoot: "src", DestRoot: "dest", MapToHTML: true}
	if got := m.PathMapping("posts/hello.md"); got != "posts/hello.html" {
		t.Fatalf("got %q, want %q", got, "posts/hello.html")
	}
	if got := m.PathMapping("static/app.js"); got != "static/app.js" {
		t.Fatalf("expected non-markup paths to pass through unchanged, got %q", got)
	}
}
