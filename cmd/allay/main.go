// Command allay is the contractual CLI surface from spec.md §6:
// init|new, build, serve. Thin by design (SPEC_FULL §1 Non-goals) —
// it only wires internal/config, internal/generator and
// internal/siteserver together; no business logic of its own.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"allay/internal/config"
	"allay/internal/generator"
	"allay/internal/siteserver"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		slog.Error("allay failed", "error", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "allay",
		Short: "Allay static site generator",
	}
	root.AddCommand(newInitCmd(), newBuildCmd(), newServeCmd())
	return root
}

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "init [dir]",
		Aliases: []string{"new"},
		Short:   "Scaffold a new Allay site",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			return scaffoldSite(dir)
		},
	}
}

func newBuildCmd() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Compile the site once into the public directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadSiteConfig(dir)
			if err != nil {
				return fmt.Errorf("allay build: %w", err)
			}
			site, err := generator.NewSite(dir, cfg, false)
			if err != nil {
				return fmt.Errorf("allay build: %w", err)
			}
			report, err := site.Build()
			report.PrintSummary()
			if err != nil {
				return fmt.Errorf("allay build: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", ".", "site root directory")
	return cmd
}

func newServeCmd() *cobra.Command {
	var (
		dir     string
		port    int
		address string
		online  bool
		open    bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Build the site, then serve it with live reload on change",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadSiteConfig(dir)
			if err != nil {
				return fmt.Errorf("allay serve: %w", err)
			}
			site, err := generator.NewSite(dir, cfg, true)
			if err != nil {
				return fmt.Errorf("allay serve: %w", err)
			}
			report, err := site.Build()
			report.PrintSummary()
			if err != nil {
				return fmt.Errorf("allay serve: %w", err)
			}

			listenAddr := address
			if online {
				listenAddr = "0.0.0.0"
			}
			srv := siteserver.New(filepath.Join(dir, cfg.PublicDir), listenAddr, port, site.Host)
			site.OnChange = srv.NotifyReload

			if open {
				slog.Info("open your browser", "url", fmt.Sprintf("http://%s:%d", listenAddr, port))
			}

			errCh := make(chan error, 1)
			go func() { errCh <- site.Serve() }()
			go func() { errCh <- srv.Run() }()
			return <-errCh
		},
	}
	cmd.Flags().StringVar(&dir, "dir", ".", "site root directory")
	cmd.Flags().IntVar(&port, "port", 3000, "port to serve on")
	cmd.Flags().StringVar(&address, "address", "127.0.0.1", "address to bind to")
	cmd.Flags().BoolVar(&online, "online", false, "bind 0.0.0.0 instead of the given address")
	cmd.Flags().BoolVar(&open, "open", false, "print the URL to open in a browser")
	return cmd
}

func scaffoldSite(dir string) error {
	// plugins/ is reserved for the WASM component binaries
	// original_source's allay-plugin-host loads; that wire format is
	// out of scope here (spec.md §1), so nothing reads this directory
	// yet. The host-side dispatch it would feed — internal/plugin.Host
	// and its four hook sets — is fully wired through generator.Site.Host
	// into the compiler, the generators, and the dev server's route
	// table regardless.
	dirs := []string{
		"contents",
		"static",
		filepath.Join("themes", "default", "templates"),
		filepath.Join("themes", "default", "static"),
		filepath.Join("themes", "default", "content"),
		"plugins",
	}
	for _, d := range dirs {
		if err := os.MkdirAll(filepath.Join(dir, d), 0o755); err != nil {
			return fmt.Errorf("allay init: %w", err)
		}
	}

	pageTemplate := filepath.Join(dir, "themes", "default", "templates", "page.html")
	if _, err := os.Stat(pageTemplate); os.IsNotExist(err) {
		if err := os.WriteFile(pageTemplate, []byte("<html>\n<body>\n{: .content :}\n</body>\n</html>\n"), 0o644); err != nil {
			return fmt.Errorf("allay init: %w", err)
		}
	}

	configPath := filepath.Join(dir, "allay.toml")
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		contents := "base_url = \"http://localhost:3000\"\ntitle = \"My Site\"\ndescription = \"\"\nauthor = \"\"\n"
		if err := os.WriteFile(configPath, []byte(contents), 0o644); err != nil {
			return fmt.Errorf("allay init: %w", err)
		}
	}

	slog.Info("scaffolded a new site", "dir", dir)
	return nil
}
