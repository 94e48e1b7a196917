package cli

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/YoshitsuguKoike/inboxzero/internal/app"
	infraConfig "github.com/YoshitsuguKoike/inboxzero/internal/infra/config"
)

// serveCommand creates the 'serve' command
func (b *RootBuilder) serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, approval sockets and scheduled triage",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := b.open()
			if err != nil {
				return b.fail(err)
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			app.GetLogger().Info("serving on %s", b.cfg.HTTPAddr())
			if err := svc.Serve(ctx); err != nil {
				return b.fail(err)
			}
			return nil
		},
	}
}

// mcpCommand creates the 'mcp' command
func (b *RootBuilder) mcpCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Run an MCP server on stdio exposing the triage tools",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := b.open()
			if err != nil {
				return b.fail(err)
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return svc.ServeMCP(ctx)
		},
	}
}

// initCommand creates the 'init' command
func (b *RootBuilder) initCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the data directory with a default inboxzero.yaml",
		RunE: func(cmd *cobra.Command, args []string) error {
			paths := app.ResolvePaths(b.cfg.Home())
			for _, dir := range []string{paths.Home, paths.Mailbox, paths.State} {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return b.fail(fmt.Errorf("failed to create %s: %w", dir, err))
				}
			}

			target := filepath.Join(paths.Home, infraConfig.SettingFiles[0])
			if _, err := os.Stat(target); err == nil && !force {
				return b.fail(fmt.Errorf("%s already exists (use --force to overwrite)", target))
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				return b.fail(err)
			}

			data, err := infraConfig.CreateDefaultSettings()
			if err != nil {
				return b.fail(err)
			}
			if err := os.WriteFile(target, data, 0o644); err != nil {
				return b.fail(fmt.Errorf("failed to write %s: %w", target, err))
			}
			return b.presenter.PresentSuccess("Initialized", map[string]string{
				"home":     paths.Home,
				"settings": target,
				"mailbox":  paths.Mailbox,
			})
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing settings file")
	return cmd
}
