package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/YoshitsuguKoike/inboxzero/internal/app"
	"github.com/YoshitsuguKoike/inboxzero/internal/app/config"
	"github.com/YoshitsuguKoike/inboxzero/internal/application/port/output"
)

// RawSettings represents the structure of inboxzero.yaml / inboxzero.toml.
// Pointer fields distinguish "absent" from a zero value so defaults apply only
// to what the file leaves out.
type RawSettings struct {
	Home     *string  `yaml:"home" toml:"home"`
	Users    []string `yaml:"users" toml:"users"`
	LogLevel *string  `yaml:"log_level" toml:"log_level"`

	Mailbox  MailboxSettings  `yaml:"mailbox" toml:"mailbox"`
	Workflow WorkflowSettings `yaml:"workflow" toml:"workflow"`
	State    StateSettings    `yaml:"state" toml:"state"`
	Approval ApprovalSettings `yaml:"approval" toml:"approval"`
	LLM      LLMSettings      `yaml:"llm" toml:"llm"`
	Server   ServerSettings   `yaml:"server" toml:"server"`
}

// MailboxSettings configures the file mailbox
type MailboxSettings struct {
	Dir *string `yaml:"dir" toml:"dir"`
}

// WorkflowSettings configures the triage engine
type WorkflowSettings struct {
	GateTimeout *string `yaml:"gate_timeout" toml:"gate_timeout"`
	FetchLimit  *int    `yaml:"fetch_limit" toml:"fetch_limit"`
	ThreadDepth *int    `yaml:"thread_depth" toml:"thread_depth"`
	UnreadOnly  *bool   `yaml:"unread_only" toml:"unread_only"`
	PrimaryOnly *bool   `yaml:"primary_only" toml:"primary_only"`
}

// StateSettings selects the workflow state backend
type StateSettings struct {
	Backend  *string `yaml:"backend" toml:"backend"`
	Dir      *string `yaml:"dir" toml:"dir"`
	BoltPath *string `yaml:"bolt_path" toml:"bolt_path"`
	S3Bucket *string `yaml:"s3_bucket" toml:"s3_bucket"`
	S3Prefix *string `yaml:"s3_prefix" toml:"s3_prefix"`
	S3Region *string `yaml:"s3_region" toml:"s3_region"`
}

// ApprovalSettings configures the approval broker and channel
type ApprovalSettings struct {
	Store   *string `yaml:"store" toml:"store"`
	DB      *string `yaml:"db" toml:"db"`
	TTL     *string `yaml:"ttl" toml:"ttl"`
	Channel *string `yaml:"channel" toml:"channel"`
}

// LLMSettings configures the text generator
type LLMSettings struct {
	Provider  *string `yaml:"provider" toml:"provider"`
	Model     *string `yaml:"model" toml:"model"`
	Timeout   *string `yaml:"timeout" toml:"timeout"`
	APIKeyEnv *string `yaml:"api_key_env" toml:"api_key_env"`
}

// ServerSettings configures `inboxzero serve`
type ServerSettings struct {
	HTTPAddr *string `yaml:"http_addr" toml:"http_addr"`
	Schedule *string `yaml:"schedule" toml:"schedule"`
	Journal  *string `yaml:"journal" toml:"journal"`
}

var (
	stateBackends  = []string{"memory", "file", "bbolt", "s3"}
	approvalStores = []string{"memory", "sqlite"}
	channels       = []string{"ws", "console"}
	llmProviders   = []string{"anthropic", "offline"}
)

func str(v string) *string { return &v }
func num(v int) *int       { return &v }
func flag(v bool) *bool    { return &v }

// applyDefaults fills in default values for any nil fields
func applyDefaults(s *RawSettings) {
	if s.Home == nil {
		s.Home = str(app.ResolvePaths("").Home)
	}
	paths := app.ResolvePaths(*s.Home)

	if s.LogLevel == nil {
		s.LogLevel = str("warn")
	}
	if s.Mailbox.Dir == nil {
		s.Mailbox.Dir = str(paths.Mailbox)
	}

	w := &s.Workflow
	if w.GateTimeout == nil {
		w.GateTimeout = str("1h")
	}
	if w.FetchLimit == nil {
		w.FetchLimit = num(output.MaxUnreadResults)
	}
	if w.ThreadDepth == nil {
		w.ThreadDepth = num(4)
	}
	if w.UnreadOnly == nil {
		w.UnreadOnly = flag(true)
	}
	if w.PrimaryOnly == nil {
		w.PrimaryOnly = flag(true)
	}

	st := &s.State
	if st.Backend == nil {
		st.Backend = str("file")
	}
	if st.Dir == nil {
		st.Dir = str(paths.State)
	}
	if st.BoltPath == nil {
		st.BoltPath = str(paths.StateDB)
	}
	if st.S3Bucket == nil {
		st.S3Bucket = str("")
	}
	if st.S3Prefix == nil {
		st.S3Prefix = str("inboxzero")
	}
	if st.S3Region == nil {
		st.S3Region = str("")
	}

	a := &s.Approval
	if a.Store == nil {
		a.Store = str("sqlite")
	}
	if a.DB == nil {
		a.DB = str(paths.ApprovalDB)
	}
	if a.TTL == nil {
		a.TTL = str("24h")
	}
	if a.Channel == nil {
		a.Channel = str("console")
	}

	l := &s.LLM
	if l.Provider == nil {
		l.Provider = str("anthropic")
	}
	if l.Model == nil {
		l.Model = str("")
	}
	if l.Timeout == nil {
		l.Timeout = str("60s")
	}
	if l.APIKeyEnv == nil {
		l.APIKeyEnv = str("ANTHROPIC_API_KEY")
	}

	sv := &s.Server
	if sv.HTTPAddr == nil {
		sv.HTTPAddr = str("127.0.0.1:8080")
	}
	if sv.Schedule == nil {
		sv.Schedule = str("")
	}
	if sv.Journal == nil {
		sv.Journal = str(paths.Journal)
	}
}

// buildAppConfig validates RawSettings and converts them to AppConfig
func buildAppConfig(s *RawSettings, configSource, settingPath string) (*config.AppConfig, error) {
	gate, err := parseDuration("workflow.gate_timeout", *s.Workflow.GateTimeout)
	if err != nil {
		return nil, err
	}
	ttl, err := parseDuration("approval.ttl", *s.Approval.TTL)
	if err != nil {
		return nil, err
	}
	if ttl < gate {
		return nil, fmt.Errorf("approval.ttl (%s) must be at least workflow.gate_timeout (%s)", ttl, gate)
	}
	llmTimeout, err := parseDuration("llm.timeout", *s.LLM.Timeout)
	if err != nil {
		return nil, err
	}

	checks := []struct {
		key, value string
		allowed    []string
	}{
		{"state.backend", *s.State.Backend, stateBackends},
		{"approval.store", *s.Approval.Store, approvalStores},
		{"approval.channel", *s.Approval.Channel, channels},
		{"llm.provider", *s.LLM.Provider, llmProviders},
	}
	for _, c := range checks {
		if !oneOf(c.value, c.allowed) {
			return nil, fmt.Errorf("%s: unknown value %q (supported: %s)", c.key, c.value, strings.Join(c.allowed, ", "))
		}
	}
	if *s.State.Backend == "s3" && *s.State.S3Bucket == "" {
		return nil, fmt.Errorf("state.s3_bucket is required for the s3 backend")
	}

	fetch := *s.Workflow.FetchLimit
	if fetch <= 0 || fetch > output.MaxUnreadResults {
		fetch = output.MaxUnreadResults
	}
	depth := *s.Workflow.ThreadDepth
	if depth < 0 {
		depth = 0
	}

	users := make([]string, 0, len(s.Users))
	for _, u := range s.Users {
		if u = strings.TrimSpace(u); u != "" {
			users = append(users, u)
		}
	}

	return config.NewAppConfig(config.Values{
		Home:     *s.Home,
		Users:    users,
		LogLevel: *s.LogLevel,

		MailboxDir: *s.Mailbox.Dir,

		GateTimeout: gate,
		FetchLimit:  fetch,
		ThreadDepth: depth,
		UnreadOnly:  *s.Workflow.UnreadOnly,
		PrimaryOnly: *s.Workflow.PrimaryOnly,

		StateBackend: *s.State.Backend,
		StateDir:     *s.State.Dir,
		BoltPath:     *s.State.BoltPath,
		S3Bucket:     *s.State.S3Bucket,
		S3Prefix:     *s.State.S3Prefix,
		S3Region:     *s.State.S3Region,

		ApprovalStore: *s.Approval.Store,
		ApprovalDB:    *s.Approval.DB,
		ApprovalTTL:   ttl,
		Channel:       *s.Approval.Channel,

		LLMProvider: *s.LLM.Provider,
		LLMModel:    *s.LLM.Model,
		LLMTimeout:  llmTimeout,
		APIKey:      os.Getenv(*s.LLM.APIKeyEnv),

		HTTPAddr:    *s.Server.HTTPAddr,
		Schedule:    *s.Server.Schedule,
		JournalPath: *s.Server.Journal,
	}, configSource, settingPath), nil
}

func parseDuration(key, v string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", key, v)
	}
	return d, nil
}

func oneOf(v string, allowed []string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}
