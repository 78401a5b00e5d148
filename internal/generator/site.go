package generator

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"allay/internal/compiler"
	"allay/internal/config"
	"allay/internal/interp"
	"allay/internal/plugin"
	"allay/internal/sitemap"
	"allay/internal/value"
	"allay/internal/watch"
)

// Site wires together one site's full set of FileGenerators per
// spec.md §4.5's directory layout: contents/, static/, and each of a
// theme's templates/static/content subtrees. It is the orchestration
// layer cmd/allay drives for both a one-shot build and a watched dev
// serve loop.
type Site struct {
	Config *config.Site
	Root   string
	Theme  string

	Facade *compiler.Facade
	Files  *FileMap
	Frame  *Frame

	// Host is the site's plugin host (spec.md §4.7), shared by the
	// compiler facade, every FileGenerator, and (via cmd/allay) the dev
	// server's route dispatch. Never nil: a site with no plugins
	// registered on it simply dispatches to an empty hook set.
	Host *plugin.Host

	generators []*FileGenerator

	// OnChange, if set, is called after any generator writes or
	// removes an output file — cmd/allay wires this to the dev
	// server's NotifyReload.
	OnChange func()
}

// NewSite builds a Site rooted at root, in dev or production mode.
// devMode controls whether Frame injects the hot-reload script.
func NewSite(root string, cfg *config.Site, devMode bool) (*Site, error) {
	theme := cfg.Theme
	contentDir := filepath.Join(root, cfg.ContentDir)
	staticDir := filepath.Join(root, cfg.StaticDir)
	publicDir := filepath.Join(root, cfg.PublicDir)
	tdir := filepath.Join(root, cfg.ThemeDir, theme)

	host := plugin.NewHost()

	siteValue := siteConfigValue(cfg)
	ctx := interp.NewContext(filepath.Join(tdir, "templates"), filepath.Join(tdir, "templates"), siteValue)
	ctx.Host = host

	sm := sitemap.New(cfg.BaseURL)
	pageTemplate := filepath.Join(tdir, "templates", "page.html")
	templateFor := func(string) string { return pageTemplate }

	facade := compiler.NewFacade(ctx, templateFor, contentDir, sm)
	facade.Host = host

	frame, err := NewFrame(devMode, cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("site: loading wrapper frame: %w", err)
	}

	files := NewFileMap()

	s := &Site{
		Config: cfg,
		Root:   root,
		Theme:  theme,
		Facade: facade,
		Files:  files,
		Frame:  frame,
		Host:   host,
	}

	s.generators = []*FileGenerator{
		{
			Mapper:      Mapper{SrcRoot: contentDir, DestRoot: publicDir, MapToHTML: true},
			Kind:        KindArticle,
			ContentKind: compiler.KindArticle,
			Facade:      facade,
			Files:       files,
			Frame:       frame,
			Host:        host,
		},
		{
			Mapper: Mapper{SrcRoot: staticDir, DestRoot: publicDir},
			Kind:   KindStatic,
			Files:  files,
			Host:   host,
		},
		{
			Mapper:      Mapper{SrcRoot: filepath.Join(tdir, "templates"), DestRoot: publicDir},
			Kind:        KindWrapper,
			ContentKind: compiler.KindGeneral,
			Facade:      facade,
			Files:       files,
			Frame:       frame,
			Host:        host,
		},
		{
			Mapper: Mapper{SrcRoot: filepath.Join(tdir, "static"), DestRoot: publicDir},
			Kind:   KindStatic,
			Files:  files,
			Host:   host,
		},
		{
			Mapper:      Mapper{SrcRoot: filepath.Join(tdir, "content"), DestRoot: publicDir, MapToHTML: true},
			Kind:        KindGeneral,
			ContentKind: compiler.KindGeneral,
			Facade:      facade,
			Files:       files,
			Frame:       frame,
			Host:        host,
		},
	}
	return s, nil
}

func siteConfigValue(cfg *config.Site) value.Value {
	m := map[string]any{
		"base_url":    cfg.BaseURL,
		"title":       cfg.Title,
		"description": cfg.Description,
		"author":      cfg.Author,
	}
	if cfg.Params != nil {
		m["param"] = cfg.Params
	}
	return value.FromAny(m)
}

// Build performs a one-shot cold-start compile of every generator's
// source tree, returning a tallied BuildReport.
func (s *Site) Build() (BuildReport, error) {
	report := BuildReport{}
	report.SetStartTime(time.Now())

	var mu sync.Mutex
	var firstErr error

	for _, gen := range s.generators {
		gen := gen
		w := watch.NewWatcher(gen.SrcRoot, 50*time.Millisecond, func(e watch.Event) error {
			err := gen.Create(e.Path, e.IsDir)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Errors++
				if firstErr == nil {
					firstErr = err
				}
				return err
			}
			if !e.IsDir {
				tally(&report, gen.Kind)
			}
			return nil
		})
		w.ColdStart()
	}
	return report, firstErr
}

func tally(r *BuildReport, kind Kind) {
	switch kind {
	case KindArticle:
		r.ArticlesCompiled++
	case KindGeneral:
		r.GeneralCompiled++
	case KindStatic:
		r.StaticCopied++
	case KindWrapper:
		r.WrappersSeen++
	}
}

// Serve starts a debounced watcher over every generator's source tree
// and blocks until the first of them returns, then returns that
// result: an error if its watcher could not be set up, or nil if its
// event stream ended. Each successful event notifies s.OnChange.
func (s *Site) Serve() error {
	errCh := make(chan error, len(s.generators))
	for _, gen := range s.generators {
		gen := gen
		w := watch.NewWatcher(gen.SrcRoot, 200*time.Millisecond, func(e watch.Event) error {
			var err error
			switch e.Kind {
			case watch.Create:
				err = gen.Create(e.Path, e.IsDir)
			case watch.Modify:
				err = gen.Modify(e.Path)
			case watch.Remove:
				err = gen.Remove(e.Path, e.IsDir)
			case watch.Rename:
				err = gen.Rename(e.OldPath, e.Path, e.IsDir)
			}
			if err == nil && s.OnChange != nil {
				s.OnChange()
			}
			return err
		})
		go func() {
			w.ColdStart()
			errCh <- w.Run()
		}()
	}
	return <-errCh
}
