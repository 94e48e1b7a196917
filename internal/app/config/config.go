package config

import "time"

// Config provides read-only access to application configuration.
// This interface abstracts the configuration source (YAML, TOML, defaults)
// and ensures the app layer doesn't depend on infrastructure details.
type Config interface {
	// Core settings
	Home() string     // Base directory for local data
	Users() []string  // Users triaged by the scheduler
	LogLevel() string // Minimum log level (debug, info, warn, error)

	// Mailbox
	MailboxDir() string // Root of the file mailbox

	// Workflow engine
	GateTimeout() time.Duration // How long one draft may wait at the publish gate
	FetchLimit() int            // Unread messages per run (max 25)
	ThreadDepth() int           // Recent thread messages fetched per unread message
	UnreadOnly() bool           // Restrict listing to unread messages
	PrimaryOnly() bool          // Restrict listing to the primary category

	// State store
	StateBackend() string // memory, file, bbolt, s3
	StateDir() string     // Directory for the file backend
	BoltPath() string     // Database file for the bbolt backend
	S3Bucket() string     // Bucket for the s3 backend
	S3Prefix() string     // Key prefix for the s3 backend
	S3Region() string     // Region for the s3 backend (empty = SDK default)

	// Approvals
	ApprovalStore() string      // memory, sqlite
	ApprovalDB() string         // SQLite database path
	ApprovalTTL() time.Duration // How long a posted approval accepts a decision
	Channel() string            // ws, console

	// Language model
	LLMProvider() string       // anthropic, offline
	LLMModel() string          // Model name (empty = generator default)
	LLMTimeout() time.Duration // Per request timeout
	APIKey() string            // Resolved from the configured environment variable

	// Server surfaces
	HTTPAddr() string    // Listen address for `serve`
	Schedule() string    // Cron spec that starts a run for every configured user
	JournalPath() string // NDJSON run journal (empty disables it)

	// Metadata
	ConfigSource() string // Source of configuration: "yaml", "toml", or "default"
	SettingPath() string  // Path to the settings file if one was loaded
}

// Values is the flat set of settings an AppConfig is built from
type Values struct {
	Home     string
	Users    []string
	LogLevel string

	MailboxDir string

	GateTimeout time.Duration
	FetchLimit  int
	ThreadDepth int
	UnreadOnly  bool
	PrimaryOnly bool

	StateBackend string
	StateDir     string
	BoltPath     string
	S3Bucket     string
	S3Prefix     string
	S3Region     string

	ApprovalStore string
	ApprovalDB    string
	ApprovalTTL   time.Duration
	Channel       string

	LLMProvider string
	LLMModel    string
	LLMTimeout  time.Duration
	APIKey      string

	HTTPAddr    string
	Schedule    string
	JournalPath string
}

// AppConfig is the concrete implementation of Config interface.
type AppConfig struct {
	v Values

	configSource string
	settingPath  string
}

var _ Config = (*AppConfig)(nil)

// NewAppConfig creates a new AppConfig with the given values.
// This is typically called by the infrastructure layer after loading and merging configurations.
func NewAppConfig(v Values, configSource, settingPath string) *AppConfig {
	v.Users = append([]string(nil), v.Users...)
	return &AppConfig{v: v, configSource: configSource, settingPath: settingPath}
}

// Home returns the base directory for local data
func (c *AppConfig) Home() string { return c.v.Home }

// Users returns the users triaged by the scheduler
func (c *AppConfig) Users() []string { return append([]string(nil), c.v.Users...) }

// LogLevel returns the minimum log level
func (c *AppConfig) LogLevel() string { return c.v.LogLevel }

// MailboxDir returns the file mailbox root
func (c *AppConfig) MailboxDir() string { return c.v.MailboxDir }

// GateTimeout returns the publish gate timeout
func (c *AppConfig) GateTimeout() time.Duration { return c.v.GateTimeout }

// FetchLimit returns the unread listing cap
func (c *AppConfig) FetchLimit() int { return c.v.FetchLimit }

// ThreadDepth returns the number of thread messages fetched per unread message
func (c *AppConfig) ThreadDepth() int { return c.v.ThreadDepth }

// UnreadOnly reports whether only unread messages are listed
func (c *AppConfig) UnreadOnly() bool { return c.v.UnreadOnly }

// PrimaryOnly reports whether only the primary category is listed
func (c *AppConfig) PrimaryOnly() bool { return c.v.PrimaryOnly }

// StateBackend returns the state store backend name
func (c *AppConfig) StateBackend() string { return c.v.StateBackend }

// StateDir returns the file backend directory
func (c *AppConfig) StateDir() string { return c.v.StateDir }

// BoltPath returns the bbolt database file
func (c *AppConfig) BoltPath() string { return c.v.BoltPath }

// S3Bucket returns the S3 bucket name
func (c *AppConfig) S3Bucket() string { return c.v.S3Bucket }

// S3Prefix returns the S3 key prefix
func (c *AppConfig) S3Prefix() string { return c.v.S3Prefix }

// S3Region returns the S3 region
func (c *AppConfig) S3Region() string { return c.v.S3Region }

// ApprovalStore returns the approval repository backend name
func (c *AppConfig) ApprovalStore() string { return c.v.ApprovalStore }

// ApprovalDB returns the SQLite approval database path
func (c *AppConfig) ApprovalDB() string { return c.v.ApprovalDB }

// ApprovalTTL returns how long an approval stays open
func (c *AppConfig) ApprovalTTL() time.Duration { return c.v.ApprovalTTL }

// Channel returns the approval channel name
func (c *AppConfig) Channel() string { return c.v.Channel }

// LLMProvider returns the text generator provider
func (c *AppConfig) LLMProvider() string { return c.v.LLMProvider }

// LLMModel returns the model name
func (c *AppConfig) LLMModel() string { return c.v.LLMModel }

// LLMTimeout returns the per request timeout
func (c *AppConfig) LLMTimeout() time.Duration { return c.v.LLMTimeout }

// APIKey returns the language model API key
func (c *AppConfig) APIKey() string { return c.v.APIKey }

// HTTPAddr returns the HTTP listen address
func (c *AppConfig) HTTPAddr() string { return c.v.HTTPAddr }

// Schedule returns the cron spec for scheduled runs
func (c *AppConfig) Schedule() string { return c.v.Schedule }

// JournalPath returns the run journal path
func (c *AppConfig) JournalPath() string { return c.v.JournalPath }

// ConfigSource returns the source of configuration
func (c *AppConfig) ConfigSource() string { return c.configSource }

// SettingPath returns the settings file path if one was loaded
func (c *AppConfig) SettingPath() string { return c.settingPath }
