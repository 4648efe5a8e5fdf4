// Package config loads and saves the mailq configuration file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// ErrUnknownAccount is returned by Account for a name with no entry.
var ErrUnknownAccount = errors.New("unknown account")

// AccountConfig holds the connection settings of one IMAP account. The
// password is kept in the system keyring, never in the file.
type AccountConfig struct {
	Name     string `mapstructure:"name" yaml:"name"`
	Host     string `mapstructure:"host" yaml:"host"`
	Port     string `mapstructure:"port" yaml:"port"`
	Username string `mapstructure:"username" yaml:"username"`

	// TLS selects implicit TLS (usually port 993); otherwise STARTTLS.
	TLS                bool `mapstructure:"tls" yaml:"tls"`
	InsecureSkipVerify bool `mapstructure:"insecure_skip_verify" yaml:"insecure_skip_verify"`
}

// DefaultsConfig holds the values used when a flag is not given.
type DefaultsConfig struct {
	Account  string   `mapstructure:"account" yaml:"account"`
	Folder   string   `mapstructure:"folder" yaml:"folder"`
	Prefetch []string `mapstructure:"prefetch" yaml:"prefetch"`
}

// HistoryConfig controls the run history database.
type HistoryConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path" yaml:"path"`
}

type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Accounts []AccountConfig `mapstructure:"accounts" yaml:"accounts"`
	Defaults DefaultsConfig  `mapstructure:"defaults" yaml:"defaults"`
	History  HistoryConfig   `mapstructure:"history" yaml:"history"`
	Log      LogConfig       `mapstructure:"log" yaml:"log"`
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/mailq/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(configDir(), "config.yaml")
}

// DefaultHistoryPath returns ~/.config/mailq/history.db.
func DefaultHistoryPath() string {
	return filepath.Join(configDir(), "history.db")
}

func configDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "mailq")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	return &AppConfig{
		Accounts: []AccountConfig{},
		Defaults: DefaultsConfig{
			Folder:   "INBOX",
			Prefetch: []string{"uid", "envelope"},
		},
		History: HistoryConfig{
			Enabled: true,
			Path:    DefaultHistoryPath(),
		},
		Log: LogConfig{Level: "info"},
	}
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// If the file does not exist, it returns a default configuration.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetDefault("defaults.folder", "INBOX")
	v.SetDefault("defaults.prefetch", []string{"uid", "envelope"})
	v.SetDefault("history.enabled", true)
	v.SetDefault("history.path", DefaultHistoryPath())
	v.SetDefault("log.level", "info")

	if err := v.ReadInConfig(); err != nil {
		var pathErr *os.PathError
		if errors.As(err, &pathErr) {
			return defaultAppConfig(), nil
		}
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return defaultAppConfig(), nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := defaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	for i := range cfg.Accounts {
		a := &cfg.Accounts[i]
		if a.Name == "" {
			a.Name = a.Username
		}
		if a.Port == "" {
			if a.TLS {
				a.Port = "993"
			} else {
				a.Port = "143"
			}
		}
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("accounts", cfg.Accounts)
	v.Set("defaults", cfg.Defaults)
	v.Set("history", cfg.History)
	v.Set("log", cfg.Log)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}

// Account returns the account called name, or the default account when
// name is empty. With a single configured account and no default, that
// account is used.
func (c *AppConfig) Account(name string) (AccountConfig, error) {
	if name == "" {
		name = c.Defaults.Account
	}
	if name == "" && len(c.Accounts) == 1 {
		return c.Accounts[0], nil
	}
	for _, a := range c.Accounts {
		if a.Name == name {
			return a, nil
		}
	}
	if name == "" {
		return AccountConfig{}, fmt.Errorf("%w: none selected and no default set", ErrUnknownAccount)
	}
	return AccountConfig{}, fmt.Errorf("%w: %q", ErrUnknownAccount, name)
}

// LogLevel maps the configured level name to a slog level. Unknown names
// mean info.
func (c *AppConfig) LogLevel() slog.Level {
	switch strings.ToLower(c.Log.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
