package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/YoshitsuguKoike/inboxzero/internal/adapter/presenter"
	"github.com/YoshitsuguKoike/inboxzero/internal/app"
	"github.com/YoshitsuguKoike/inboxzero/internal/app/config"
	"github.com/YoshitsuguKoike/inboxzero/internal/application/port/input"
	"github.com/YoshitsuguKoike/inboxzero/internal/application/port/output"
	infraConfig "github.com/YoshitsuguKoike/inboxzero/internal/infra/config"
)

// Services is what the commands need from the wired application
type Services interface {
	Triage() input.TriageUseCase
	// Serve runs the HTTP API, approval sockets and scheduler until ctx is done
	Serve(ctx context.Context) error
	// ServeMCP runs the MCP server on stdio until ctx is done
	ServeMCP(ctx context.Context) error
	History(filter app.JournalFilter) ([]output.JournalEntry, int, error)
	Close() error
}

// ServicesFactory wires Services from a loaded configuration
type ServicesFactory func(cfg config.Config) (Services, error)

// RootBuilder builds the root CLI command with all subcommands
type RootBuilder struct {
	factory   ServicesFactory
	version   string
	buildInfo string

	// selectDecision asks the user to pick one of items; replaced in tests
	selectDecision func(label string, items []string) (int, error)

	cfg       config.Config
	presenter output.Presenter
	services  Services
}

// NewRootBuilder creates a new root command builder
func NewRootBuilder(factory ServicesFactory, version, buildInfo string) *RootBuilder {
	return &RootBuilder{
		factory:        factory,
		version:        version,
		buildInfo:      buildInfo,
		selectDecision: promptSelect,
	}
}

// Build creates the root command with all subcommands
func (b *RootBuilder) Build() *cobra.Command {
	var (
		home         string
		configPath   string
		outputFormat string
	)

	rootCmd := &cobra.Command{
		Use:   "inboxzero",
		Short: "InboxZero - human-approved email triage",
		Long: `InboxZero reads unread mail, summarizes and prioritizes it, drafts replies
and posts each draft for approval. A run pauses at every draft and resumes
when a decision arrives from the CLI, the HTTP API, an approval socket or MCP.`,
		Version:       b.version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch outputFormat {
			case "cli":
				b.presenter = presenter.NewCLIPresenter(cmd.OutOrStdout())
			case "json":
				b.presenter = presenter.NewJSONPresenter(cmd.OutOrStdout())
			default:
				return fmt.Errorf("unknown output format %q (use cli or json)", outputFormat)
			}

			// Priority: --config > settings file in home > defaults
			if home != "" {
				if err := os.Setenv("INBOXZERO_HOME", home); err != nil {
					return err
				}
			}
			var (
				cfg *config.AppConfig
				err error
			)
			if configPath != "" {
				cfg, err = infraConfig.LoadSettingsFile(configPath)
			} else {
				cfg, err = infraConfig.LoadSettings(app.ResolvePaths(home).Home)
			}
			if err != nil {
				return err
			}
			b.cfg = cfg
			app.SetLogger(app.NewLogger(app.LogLevelFromString(cfg.LogLevel()), cmd.ErrOrStderr()))
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return b.Close()
		},
		RunE: func(c *cobra.Command, _ []string) error { return c.Help() },
	}

	rootCmd.PersistentFlags().StringVar(&home, "home", "", "Data directory (default $INBOXZERO_HOME or .inboxzero)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Settings file (.yaml or .toml)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "cli", "Output format (cli, json)")

	rootCmd.AddCommand(
		b.initCommand(),
		b.startCommand(),
		b.decideCommand(),
		b.callbackCommand(),
		b.statusCommand(),
		b.resetCommand(),
		b.historyCommand(),
		b.serveCommand(),
		b.mcpCommand(),
		b.versionCommand(),
	)

	return rootCmd
}

// open wires the application on first use
func (b *RootBuilder) open() (Services, error) {
	if b.services != nil {
		return b.services, nil
	}
	s, err := b.factory(b.cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize: %w", err)
	}
	b.services = s
	return s, nil
}

// Close releases the wired application, if any. Safe to call more than once.
func (b *RootBuilder) Close() error {
	if b.services == nil {
		return nil
	}
	err := b.services.Close()
	b.services = nil
	return err
}

// presentedError marks an error the presenter has already shown
type presentedError struct{ err error }

func (e *presentedError) Error() string { return e.err.Error() }
func (e *presentedError) Unwrap() error { return e.err }

// IsPresented reports whether err was already shown to the user
func IsPresented(err error) bool {
	var p *presentedError
	return errors.As(err, &p)
}

// fail shows err through the presenter and returns it for the exit status
func (b *RootBuilder) fail(err error) error {
	_ = b.presenter.PresentError(err)
	return &presentedError{err: err}
}

// versionCommand creates the 'version' command
func (b *RootBuilder) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			versionInfo := map[string]string{
				"version":   b.version,
				"buildInfo": b.buildInfo,
			}
			return b.presenter.PresentSuccess("InboxZero Version", versionInfo)
		},
	}
}

func requireArg(args []string, i int, name string) (string, error) {
	if len(args) <= i || strings.TrimSpace(args[i]) == "" {
		return "", fmt.Errorf("%s is required", name)
	}
	return strings.TrimSpace(args[i]), nil
}
