package generator

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"allay/internal/compiler"
	"allay/internal/plugin"
)

// FileGenerator drives one {src_root, dest_root, kind, map_to_html}
// rule set, per spec.md §4.5. Static generators never touch the
// compiler; Wrapper generators never write a destination file
// themselves (they exist purely so their templates register as
// influences on the articles/general pages that embed them).
type FileGenerator struct {
	Mapper
	Kind        Kind
	ContentKind compiler.ContentKind
	Facade      *compiler.Facade
	Files       *FileMap
	Frame       *Frame

	// Host, if set, is notified of every file event this generator
	// handles (spec.md §4.7's Listen hook set). Nil is a valid value.
	Host *plugin.Host
}

func (g *FileGenerator) notifyCreate(path string) {
	if g.Host != nil {
		g.Host.NotifyCreate(path)
	}
}

func (g *FileGenerator) notifyModify(path string) {
	if g.Host != nil {
		g.Host.NotifyModify(path)
	}
}

func (g *FileGenerator) notifyRemove(path string) {
	if g.Host != nil {
		g.Host.NotifyRemove(path)
	}
}

func (g *FileGenerator) compile(src string) (string, error) {
	return g.Facade.CompileFile(src, g.ContentKind)
}

func (g *FileGenerator) writeWrapped(dest, html string) error {
	wrapped, err := g.Frame.Render(html)
	if err != nil {
		return err
	}
	return writeFile(dest, wrapped)
}

// Create handles spec.md §4.5's Create event.
func (g *FileGenerator) Create(rel string, isDir bool) error {
	src := g.SrcPath(rel)
	dest := g.DestPath(rel)

	if isDir {
		return os.MkdirAll(dest, 0o755)
	}
	switch g.Kind {
	case KindWrapper:
		return nil
	case KindStatic:
		if err := copyFile(src, dest); err != nil {
			return err
		}
		g.notifyCreate(src)
		return nil
	default:
		g.Files.Set(src, dest)
		html, err := g.compile(src)
		if err != nil {
			slog.Error("failed to compile", "path", src, "error", err)
			return g.refresh()
		}
		if err := g.writeWrapped(dest, html); err != nil {
			slog.Error("failed to write", "path", dest, "error", err)
		}
		g.notifyCreate(src)
		return g.refresh()
	}
}

// Remove handles spec.md §4.5's Remove event.
func (g *FileGenerator) Remove(rel string, wasDir bool) error {
	src := g.SrcPath(rel)
	dest := g.DestPath(rel)

	if wasDir {
		return os.RemoveAll(dest)
	}
	if g.Kind == KindStatic {
		if err := os.Remove(dest); err != nil {
			return err
		}
		g.notifyRemove(src)
		return nil
	}

	if err := g.Facade.RemoveFile(src, g.ContentKind); err != nil {
		slog.Error("failed to remove from compiler", "path", src, "error", err)
	}
	g.notifyRemove(src)
	if g.Kind == KindWrapper {
		return g.refresh()
	}
	g.Files.Delete(src)
	if err := g.refresh(); err != nil {
		return err
	}
	if err := os.Remove(dest); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Modify handles spec.md §4.5's Modify event.
func (g *FileGenerator) Modify(rel string) error {
	src := g.SrcPath(rel)
	if _, err := os.Stat(src); err != nil {
		return nil
	}
	dest := g.DestPath(rel)

	if g.Kind == KindStatic {
		if err := copyFile(src, dest); err != nil {
			return err
		}
		g.notifyModify(src)
		return nil
	}
	if err := g.Facade.ModifyFile(src, g.ContentKind); err != nil {
		slog.Error("failed to mark modified", "path", src, "error", err)
	}
	g.notifyModify(src)
	if g.Kind == KindWrapper {
		return g.refresh()
	}
	html, err := g.compile(src)
	if err != nil {
		slog.Error("failed to recompile", "path", src, "error", err)
		return g.refresh()
	}
	if err := g.writeWrapped(dest, html); err != nil {
		slog.Error("failed to write", "path", dest, "error", err)
	}
	return g.refresh()
}

// Rename is treated as remove(old) then create(new), per spec.md §4.5.
func (g *FileGenerator) Rename(oldRel, newRel string, isDir bool) error {
	if err := g.Remove(oldRel, isDir); err != nil {
		slog.Error("failed to remove old path during rename", "path", oldRel, "error", err)
	}
	return g.Create(newRel, isDir)
}

// refresh reruns the facade's dirty-page recompilation and rewrites
// every affected destination, looked up through the shared FileMap
// regardless of which generator originally created the mapping.
func (g *FileGenerator) refresh() error {
	results, err := g.Facade.RefreshPages()
	if err != nil {
		return err
	}
	for _, r := range results {
		dest, ok := g.Files.Get(r.Source)
		if !ok {
			continue
		}
		if err := g.writeWrapped(dest, r.HTML); err != nil {
			slog.Error("failed to rewrite on refresh", "path", dest, "error", err)
		}
	}
	return nil
}

func copyFile(src, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, in)
	return err
}

func writeFile(dest, content string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	return os.WriteFile(dest, []byte(content), 0o644)
}
