package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadSettings_Defaults(t *testing.T) {
	t.Setenv("INBOXZERO_HOME", "")
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")

	cfg, err := LoadSettings(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "default", cfg.ConfigSource())
	assert.Empty(t, cfg.SettingPath())
	assert.Equal(t, ".inboxzero", cfg.Home())
	assert.Equal(t, filepath.Join(".inboxzero", "mailbox"), cfg.MailboxDir())
	assert.Equal(t, time.Hour, cfg.GateTimeout())
	assert.Equal(t, 24*time.Hour, cfg.ApprovalTTL())
	assert.Equal(t, 25, cfg.FetchLimit())
	assert.Equal(t, 4, cfg.ThreadDepth())
	assert.True(t, cfg.UnreadOnly())
	assert.True(t, cfg.PrimaryOnly())
	assert.Equal(t, "file", cfg.StateBackend())
	assert.Equal(t, "sqlite", cfg.ApprovalStore())
	assert.Equal(t, "console", cfg.Channel())
	assert.Equal(t, "anthropic", cfg.LLMProvider())
	assert.Equal(t, "sk-test", cfg.APIKey())
	assert.Equal(t, "warn", cfg.LogLevel())
	assert.Empty(t, cfg.Users())
}

func TestLoadSettings_YAML(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("MY_KEY", "sk-yaml")
	writeFile(t, dir, "inboxzero.yaml", `
home: /srv/inboxzero
users: [alice, " bob ", ""]
log_level: debug
workflow:
  gate_timeout: 30m
  fetch_limit: 100
  primary_only: false
state:
  backend: bbolt
approval:
  ttl: 2h
  channel: ws
llm:
  provider: offline
  api_key_env: MY_KEY
server:
  schedule: "*/15 * * * *"
`)

	cfg, err := LoadSettings(dir)
	require.NoError(t, err)

	assert.Equal(t, "yaml", cfg.ConfigSource())
	assert.Equal(t, filepath.Join(dir, "inboxzero.yaml"), cfg.SettingPath())
	assert.Equal(t, []string{"alice", "bob"}, cfg.Users())
	assert.Equal(t, 30*time.Minute, cfg.GateTimeout())
	assert.Equal(t, 25, cfg.FetchLimit(), "fetch limit is capped")
	assert.False(t, cfg.PrimaryOnly())
	assert.True(t, cfg.UnreadOnly())
	assert.Equal(t, "bbolt", cfg.StateBackend())
	assert.Equal(t, filepath.Join("/srv/inboxzero", "state.db"), cfg.BoltPath())
	assert.Equal(t, filepath.Join("/srv/inboxzero", "approvals.db"), cfg.ApprovalDB())
	assert.Equal(t, 2*time.Hour, cfg.ApprovalTTL())
	assert.Equal(t, "ws", cfg.Channel())
	assert.Equal(t, "offline", cfg.LLMProvider())
	assert.Equal(t, "sk-yaml", cfg.APIKey())
	assert.Equal(t, "*/15 * * * *", cfg.Schedule())
}

func TestLoadSettings_TOML(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "inboxzero.toml", `
home = "/data"
users = ["carol"]

[state]
backend = "s3"
s3_bucket = "triage-state"
s3_region = "eu-west-1"

[approval]
store = "memory"
`)

	cfg, err := LoadSettings(dir)
	require.NoError(t, err)

	assert.Equal(t, "toml", cfg.ConfigSource())
	assert.Equal(t, []string{"carol"}, cfg.Users())
	assert.Equal(t, "s3", cfg.StateBackend())
	assert.Equal(t, "triage-state", cfg.S3Bucket())
	assert.Equal(t, "inboxzero", cfg.S3Prefix())
	assert.Equal(t, "eu-west-1", cfg.S3Region())
	assert.Equal(t, "memory", cfg.ApprovalStore())
	assert.Equal(t, filepath.Join("/data", "mailbox"), cfg.MailboxDir())
}

func TestLoadSettings_YAMLWinsOverTOML(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "inboxzero.yaml", "log_level: info\n")
	writeFile(t, dir, "inboxzero.toml", "log_level = \"error\"\n")

	cfg, err := LoadSettings(dir)
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.LogLevel())
}

func TestLoadSettingsFile_Errors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		file    string
		content string
		wantErr string
	}{
		{"bad yaml", "a.yaml", "workflow: [", "failed to parse"},
		{"bad toml", "b.toml", "home = ", "failed to parse"},
		{"unknown format", "c.json", "{}", "unsupported settings format"},
		{"bad duration", "d.yaml", "workflow:\n  gate_timeout: soon\n", "workflow.gate_timeout"},
		{"negative ttl", "e.yaml", "approval:\n  ttl: -1h\n", "approval.ttl must be positive"},
		{"ttl shorter than gate", "j.yaml", "workflow:\n  gate_timeout: 2h\napproval:\n  ttl: 1h\n", "must be at least workflow.gate_timeout"},
		{"unknown backend", "f.yaml", "state:\n  backend: redis\n", "state.backend"},
		{"unknown channel", "g.yaml", "approval:\n  channel: slack\n", "approval.channel"},
		{"s3 without bucket", "h.yaml", "state:\n  backend: s3\n", "s3_bucket is required"},
		{"unknown provider", "i.yaml", "llm:\n  provider: gpt\n", "llm.provider"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, dir, tt.file, tt.content)
			_, err := LoadSettingsFile(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	_, err := LoadSettingsFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestCreateDefaultSettings(t *testing.T) {
	t.Setenv("INBOXZERO_HOME", "")

	data, err := CreateDefaultSettings()
	require.NoError(t, err)

	var raw RawSettings
	require.NoError(t, yaml.Unmarshal(data, &raw))
	require.NotNil(t, raw.Workflow.GateTimeout)
	assert.Equal(t, "1h", *raw.Workflow.GateTimeout)
	require.NotNil(t, raw.Approval.Channel)
	assert.Equal(t, "console", *raw.Approval.Channel)

	dir := t.TempDir()
	writeFile(t, dir, "inboxzero.yaml", string(data))
	cfg, err := LoadSettings(dir)
	require.NoError(t, err)
	assert.Equal(t, "yaml", cfg.ConfigSource())
	assert.Equal(t, time.Hour, cfg.GateTimeout())
}
