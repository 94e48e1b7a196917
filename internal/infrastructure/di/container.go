package di

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/afero"

	"github.com/YoshitsuguKoike/inboxzero/internal/adapter/controller/cli"
	"github.com/YoshitsuguKoike/inboxzero/internal/adapter/controller/httpapi"
	mcpserver "github.com/YoshitsuguKoike/inboxzero/internal/adapter/controller/mcp"
	"github.com/YoshitsuguKoike/inboxzero/internal/adapter/controller/scheduler"
	approvalgw "github.com/YoshitsuguKoike/inboxzero/internal/adapter/gateway/approval"
	"github.com/YoshitsuguKoike/inboxzero/internal/adapter/gateway/llm"
	"github.com/YoshitsuguKoike/inboxzero/internal/adapter/gateway/mail"
	"github.com/YoshitsuguKoike/inboxzero/internal/app"
	appconfig "github.com/YoshitsuguKoike/inboxzero/internal/app/config"
	"github.com/YoshitsuguKoike/inboxzero/internal/application/dto"
	"github.com/YoshitsuguKoike/inboxzero/internal/application/port/input"
	"github.com/YoshitsuguKoike/inboxzero/internal/application/port/output"
	"github.com/YoshitsuguKoike/inboxzero/internal/application/service"
	triageuc "github.com/YoshitsuguKoike/inboxzero/internal/application/usecase/triage"
	"github.com/YoshitsuguKoike/inboxzero/internal/application/workflow"
	"github.com/YoshitsuguKoike/inboxzero/internal/buildinfo"
	"github.com/YoshitsuguKoike/inboxzero/internal/domain/repository"
	"github.com/YoshitsuguKoike/inboxzero/internal/infrastructure/persistence/memory"
	"github.com/YoshitsuguKoike/inboxzero/internal/infrastructure/persistence/sqlite"
	"github.com/YoshitsuguKoike/inboxzero/internal/infrastructure/persistence/state"
)

// Container is the DI container that holds all dependencies
// This implements manual dependency injection for Clean Architecture
type Container struct {
	cfg    appconfig.Config
	logger app.Logger
	fs     afero.Fs
	out    io.Writer

	// Infrastructure Layer - Persistence
	blobs     state.BlobStore
	states    repository.StateRepository
	db        *sql.DB
	approvals repository.ApprovalRepository

	// Infrastructure Layer - Gateways
	mailbox   *mail.FileMailbox
	generator output.TextGenerator
	channel   output.ApprovalChannel
	hub       *approvalgw.Hub // nil unless the ws channel is selected
	journal   output.RunJournal

	// Application Layer
	engine *workflow.Engine
	broker *service.ApprovalBroker
	locks  *service.PerUserLockManager
	triage *triageuc.UseCase

	closers []func() error
}

var _ cli.Services = (*Container)(nil)

// Option customizes container construction
type Option func(*Container)

// WithFs replaces the OS filesystem used by the mailbox, file state and journal
func WithFs(fs afero.Fs) Option {
	return func(c *Container) { c.fs = fs }
}

// WithConsoleOutput sets where the console approval channel writes.
// Defaults to stderr so stdout stays free for the MCP transport.
func WithConsoleOutput(w io.Writer) Option {
	return func(c *Container) { c.out = w }
}

// WithGenerator replaces the configured text generator
func WithGenerator(g output.TextGenerator) Option {
	return func(c *Container) { c.generator = g }
}

// NewContainer creates and initializes a new DI container
func NewContainer(cfg appconfig.Config, opts ...Option) (*Container, error) {
	c := &Container{
		cfg:    cfg,
		logger: app.GetLogger(),
		fs:     afero.NewOsFs(),
		out:    os.Stderr,
	}
	for _, opt := range opts {
		opt(c)
	}

	// Initialize in dependency order
	steps := []struct {
		name string
		fn   func() error
	}{
		{"state store", c.initStateStore},
		{"approval store", c.initApprovalStore},
		{"gateways", c.initGateways},
		{"application", c.initApplication},
	}
	for _, step := range steps {
		if err := step.fn(); err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("failed to initialize %s: %w", step.name, err)
		}
	}
	return c, nil
}

// initStateStore picks the blob backend behind the state store
func (c *Container) initStateStore() error {
	switch c.cfg.StateBackend() {
	case "memory":
		c.blobs = state.NewMemoryBlobStore()
	case "file", "":
		c.blobs = state.NewFileBlobStore(c.fs, c.cfg.StateDir())
	case "bbolt":
		bolt, err := state.OpenBoltBlobStore(c.cfg.BoltPath())
		if err != nil {
			return err
		}
		c.closers = append(c.closers, bolt.Close)
		c.blobs = bolt
	case "s3":
		s3, err := state.NewS3BlobStore(context.Background(), state.S3Config{
			Bucket: c.cfg.S3Bucket(),
			Prefix: c.cfg.S3Prefix(),
			Region: c.cfg.S3Region(),
		})
		if err != nil {
			return err
		}
		c.blobs = s3
	default:
		return fmt.Errorf("unknown state backend %q", c.cfg.StateBackend())
	}
	c.states = state.NewStore(c.blobs)
	return nil
}

// initApprovalStore opens the approval request repository
func (c *Container) initApprovalStore() error {
	switch c.cfg.ApprovalStore() {
	case "memory":
		c.approvals = memory.NewApprovalRepository()
	case "sqlite", "":
		db, err := sqlite.Open(c.cfg.ApprovalDB())
		if err != nil {
			return err
		}
		c.db = db
		c.closers = append(c.closers, db.Close)
		c.approvals = sqlite.NewApprovalRepository(db)
	default:
		return fmt.Errorf("unknown approval store %q", c.cfg.ApprovalStore())
	}
	return nil
}

// initGateways creates mailbox, generator, approval channel and journal
func (c *Container) initGateways() error {
	c.mailbox = mail.NewFileMailbox(c.fs, c.cfg.MailboxDir())

	if c.generator == nil {
		g, err := llm.NewGenerator(c.cfg.LLMProvider(), c.cfg.APIKey(), c.cfg.LLMModel(), c.cfg.LLMTimeout())
		if err != nil {
			return err
		}
		c.generator = g
	}

	switch c.cfg.Channel() {
	case "ws":
		c.hub = approvalgw.NewHub(c.logger)
		c.closers = append(c.closers, c.hub.Close)
		c.channel = c.hub
	case "console", "":
		c.channel = approvalgw.NewConsoleChannel(c.out)
	default:
		return fmt.Errorf("unknown approval channel %q", c.cfg.Channel())
	}

	if path := c.cfg.JournalPath(); path != "" {
		c.journal = app.NewJournalWriter(c.fs, path)
	} else {
		c.journal = output.NopJournal{}
	}
	return nil
}

// initApplication wires broker, engine and the triage use case
func (c *Container) initApplication() error {
	c.broker = service.NewApprovalBroker(c.approvals, c.channel, c.mailbox,
		service.WithApprovalTTL(c.cfg.ApprovalTTL()),
		service.WithBrokerLogger(c.logger),
	)

	wcfg := workflow.DefaultConfig()
	wcfg.GateTimeout = c.cfg.GateTimeout()
	wcfg.FetchLimit = c.cfg.FetchLimit()
	wcfg.ThreadDepth = c.cfg.ThreadDepth()
	wcfg.UnreadOnly = c.cfg.UnreadOnly()
	wcfg.PrimaryOnly = c.cfg.PrimaryOnly()

	c.engine = workflow.NewEngine(workflow.Dependencies{
		Mail:      c.mailbox,
		Generator: c.generator,
		Publisher: c.broker,
		States:    c.states,
		Journal:   c.journal,
		Logger:    c.logger,
	}, wcfg)

	c.locks = service.NewPerUserLockManager()
	c.triage = triageuc.NewUseCase(c.states, c.engine, c.broker, c.locks, triageuc.WithLogger(c.logger))

	if c.hub != nil {
		c.hub.SetDecisionHandler(func(ctx context.Context, approvalID, decision, actor string) (interface{}, error) {
			return c.triage.HandleCallback(ctx, dto.CallbackRequest{
				ApprovalID: approvalID,
				Decision:   decision,
				ActorID:    actor,
			})
		})
	}
	return nil
}

// Triage returns the triage use case
func (c *Container) Triage() input.TriageUseCase {
	return c.triage
}

// Engine returns the workflow engine
func (c *Container) Engine() *workflow.Engine {
	return c.engine
}

// Mailbox returns the file mailbox
func (c *Container) Mailbox() *mail.FileMailbox {
	return c.mailbox
}

// Hub returns the websocket approval hub, or nil for the console channel
func (c *Container) Hub() *approvalgw.Hub {
	return c.hub
}

// HTTPServer builds the HTTP API over the wired use case
func (c *Container) HTTPServer() *httpapi.Server {
	opts := httpapi.Options{
		Version: buildinfo.GetVersion(),
		Stats:   func() workflow.StatsSnapshot { return c.engine.Stats().Snapshot() },
		Logger:  c.logger,
	}
	if c.hub != nil {
		opts.Sockets = c.hub
	}
	return httpapi.NewServer(c.triage, opts)
}

// Serve runs the HTTP API, plus scheduled triage when a schedule is configured
func (c *Container) Serve(ctx context.Context) error {
	if spec := c.cfg.Schedule(); spec != "" {
		sched := scheduler.New(c.triage, spec, c.cfg.Users(), 0, c.logger)
		if err := sched.Start(); err != nil {
			return err
		}
		defer sched.Stop()
	}
	return c.HTTPServer().ListenAndServe(ctx, c.cfg.HTTPAddr())
}

// ServeMCP runs the MCP server on stdio
func (c *Container) ServeMCP(ctx context.Context) error {
	return mcpserver.RunServer(ctx, c.triage, buildinfo.GetVersion())
}

// History reads the run journal
func (c *Container) History(filter app.JournalFilter) ([]output.JournalEntry, int, error) {
	path := c.cfg.JournalPath()
	if path == "" {
		return []output.JournalEntry{}, 0, nil
	}
	return app.ReadJournal(c.fs, path, filter)
}

// Close closes all resources in reverse order of acquisition
func (c *Container) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}
