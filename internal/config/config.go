package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
)

// Config is the root configuration for unblinkingbot.
type Config struct {
	// Port is the HTTP listen port for the front end, observer socket
	// and metrics.
	Port int `json:"port" env:"UNBLINKINGBOT_PORT"`

	// DatabasePath is the SQLite file backing the activity store.
	DatabasePath string `json:"databasePath" env:"UNBLINKINGBOT_DB_PATH"`

	// BotName is the name token mention detection looks for in
	// message text, case-insensitively.
	BotName string `json:"botName" env:"UNBLINKINGBOT_NAME"`

	// ActivityPrefix is the key namespace activity records are stored
	// under. Retention trimming runs per prefix.
	ActivityPrefix string `json:"activityPrefix" env:"UNBLINKINGBOT_ACTIVITY_PREFIX"`

	// RetainCount is how many activity records each trim pass keeps.
	RetainCount int `json:"retainCount" env:"UNBLINKINGBOT_RETAIN_COUNT"`

	// SlackDebug enables verbose logging in the Slack client.
	SlackDebug bool `json:"slackDebug" env:"UNBLINKINGBOT_SLACK_DEBUG"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"logLevel" env:"UNBLINKINGBOT_LOG_LEVEL"`
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Port:           1138,
		DatabasePath:   filepath.Join(dataDir(), "unblinkingbot.db"),
		BotName:        "unblinkingbot",
		ActivityPrefix: "slack::activity",
		RetainCount:    5,
		LogLevel:       "info",
	}
}

// ConfigPath returns the default config file path.
func ConfigPath() string {
	return filepath.Join(dataDir(), "config.json")
}

// DataDir returns the unblinkingbot data directory, creating it if
// needed.
func DataDir() string {
	dir := dataDir()
	os.MkdirAll(dir, 0o755)
	return dir
}

// Load reads configuration from the default path, falling back to
// defaults, then applies environment overrides.
func Load() (*Config, error) {
	return LoadFrom(ConfigPath())
}

// LoadFrom reads configuration from a specific path. A missing file is
// not an error; defaults apply. Environment variables override both.
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return cfg, fmt.Errorf("read config: %w", err)
		}
	} else if err := json.Unmarshal(data, cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}

	if err := env.Parse(cfg); err != nil {
		return cfg, fmt.Errorf("apply env config: %w", err)
	}

	// Re-apply defaults for fields zeroed by a sparse config file.
	if cfg.Port == 0 {
		cfg.Port = 1138
	}
	if cfg.DatabasePath == "" {
		cfg.DatabasePath = filepath.Join(dataDir(), "unblinkingbot.db")
	}
	if cfg.BotName == "" {
		cfg.BotName = "unblinkingbot"
	}
	if cfg.ActivityPrefix == "" {
		cfg.ActivityPrefix = "slack::activity"
	}
	if cfg.RetainCount <= 0 {
		cfg.RetainCount = 5
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	return cfg, nil
}

// SaveTo writes configuration to a specific path.
func SaveTo(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func dataDir() string {
	return filepath.Join(homeDir(), ".unblinkingbot")
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "/tmp"
	}
	return home
}
