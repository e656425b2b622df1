package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/custody_bot/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, "ethereum", cfg.Ledger.Chain)
	assert.Equal(t, 30*time.Second, cfg.Ledger.SubmitTimeout)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.True(t, cfg.Watcher.Enabled)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
ledger:
  chain: bitcoin
  bitcoin:
    rpc_host: localhost:8332
    network: regtest
server:
  port: 9090
`), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "bitcoin", cfg.Ledger.Chain)
	assert.Equal(t, "regtest", cfg.Ledger.Bitcoin.Network)
	assert.Equal(t, "localhost:8332", cfg.Ledger.Bitcoin.RPCHost)
	assert.Equal(t, 9090, cfg.Server.Port)
}

func TestLoadEnvOverridesWithoutFile(t *testing.T) {
	t.Setenv("TELEGRAM_TOKEN", "tok-123")
	t.Setenv("DATABASE_DSN", "host=db user=bot")
	t.Setenv("LEDGER_CHAIN", "bitcoin")

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, "tok-123", cfg.Telegram.Token)
	assert.Equal(t, "host=db user=bot", cfg.Database.DSN)
	assert.Equal(t, "bitcoin", cfg.Ledger.Chain)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9090\n"), 0o600))
	t.Setenv("SERVER_PORT", "7070")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
}

func TestLoadRejectsUnknownChain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ledger:\n  chain: dogecoin\n"), 0o600))

	_, err := config.Load(path)
	assert.Error(t, err)
}
