package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "INBOX", cfg.Defaults.Folder)
	assert.Equal(t, []string{"uid", "envelope"}, cfg.Defaults.Prefetch)
	assert.True(t, cfg.History.Enabled)
	assert.Empty(t, cfg.Accounts)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel())
}

func TestLoadConfigFillsAccountDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
accounts:
  - name: work
    host: imap.example.com
    username: ann@example.com
    tls: true
  - host: mail.example.org
    username: ann
defaults:
  account: work
history:
  enabled: false
log:
  level: debug
`), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Len(t, cfg.Accounts, 2)

	assert.Equal(t, "993", cfg.Accounts[0].Port)
	assert.Equal(t, "143", cfg.Accounts[1].Port)
	assert.Equal(t, "ann", cfg.Accounts[1].Name)
	assert.Equal(t, "INBOX", cfg.Defaults.Folder)
	assert.False(t, cfg.History.Enabled)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel())

	acct, err := cfg.Account("")
	require.NoError(t, err)
	assert.Equal(t, "imap.example.com", acct.Host)

	acct, err = cfg.Account("ann")
	require.NoError(t, err)
	assert.Equal(t, "mail.example.org", acct.Host)

	_, err = cfg.Account("home")
	assert.ErrorIs(t, err, ErrUnknownAccount)
}

func TestLoadConfigRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("accounts: [unclosed"), 0o600))
	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestSaveConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := defaultAppConfig()
	cfg.Accounts = []AccountConfig{{Name: "work", Host: "imap.example.com", Port: "993", Username: "ann", TLS: true}}
	cfg.Defaults.Account = "work"

	require.NoError(t, SaveConfig(path, cfg))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Accounts, loaded.Accounts)
	assert.Equal(t, "work", loaded.Defaults.Account)
}

func TestSingleAccountIsImplicitDefault(t *testing.T) {
	cfg := defaultAppConfig()
	cfg.Accounts = []AccountConfig{{Name: "only"}}
	acct, err := cfg.Account("")
	require.NoError(t, err)
	assert.Equal(t, "only", acct.Name)

	cfg.Accounts = nil
	_, err = cfg.Account("")
	assert.ErrorIs(t, err, ErrUnknownAccount)
}
