package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/YoshitsuguKoike/inboxzero/internal/app/config"
)

// SettingFiles are looked up in order inside the base directory
var SettingFiles = []string{"inboxzero.yaml", "inboxzero.yml", "inboxzero.toml"}

// LoadSettings loads the first settings file found in baseDir.
// Priority: settings file > defaults. Only the LLM API key comes from the environment.
func LoadSettings(baseDir string) (*config.AppConfig, error) {
	for _, name := range SettingFiles {
		path := filepath.Join(baseDir, name)
		if _, err := os.Stat(path); err == nil {
			return LoadSettingsFile(path)
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to stat %s: %w", path, err)
		}
	}

	settings := &RawSettings{}
	applyDefaults(settings)
	return buildAppConfig(settings, "default", "")
}

// LoadSettingsFile loads one settings file; the format follows its extension
func LoadSettingsFile(path string) (*config.AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	settings := &RawSettings{}
	source, err := decodeSettings(path, data, settings)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	applyDefaults(settings)
	return buildAppConfig(settings, source, path)
}

func decodeSettings(path string, data []byte, settings *RawSettings) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml", yaml.Unmarshal(data, settings)
	case ".toml":
		return "toml", toml.Unmarshal(data, settings)
	default:
		return "", fmt.Errorf("unsupported settings format %q (use .yaml or .toml)", filepath.Ext(path))
	}
}

// CreateDefaultSettings renders a complete inboxzero.yaml with every default filled in
func CreateDefaultSettings() ([]byte, error) {
	settings := &RawSettings{Users: []string{}}
	applyDefaults(settings)
	return yaml.Marshal(settings)
}
