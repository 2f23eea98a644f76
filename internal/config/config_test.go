package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idilsaglam/flashtask/internal/contract"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, uint64(80002), cfg.Network.ChainID)
	assert.Equal(t, contract.DefaultAddress, cfg.Contract.Address)
	assert.Equal(t, "https://rpc-amoy.polygon.technology", cfg.ReadURL())
	assert.True(t, cfg.Session.VerifyOnRestore)
	require.NoError(t, cfg.Validate())
}

func TestLoadWithoutFiles(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Network, cfg.Network)
	assert.Equal(t, 4*time.Second, cfg.Contract.PollInterval)
}

func TestLoadExplicitFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
wallet:
  endpoint: ws://127.0.0.1:8546
contract:
  rpc_url: http://127.0.0.1:8545
  poll_interval: 1s
ui:
  theme: neon
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "ws://127.0.0.1:8546", cfg.Wallet.Endpoint)
	assert.Equal(t, "http://127.0.0.1:8545", cfg.ReadURL())
	assert.Equal(t, time.Second, cfg.Contract.PollInterval)
	assert.Equal(t, "neon", cfg.UI.Theme)
	// untouched keys keep their defaults
	assert.Equal(t, "Polygon Amoy", cfg.Network.Name)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("FLASHTASK_WALLET_ENDPOINT", "")
	t.Setenv("FLASHTASK_CONTRACT_ADDRESS", "0x0000000000000000000000000000000000000001")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Empty(t, cfg.Wallet.Endpoint)
	assert.Equal(t, "0x0000000000000000000000000000000000000001", cfg.Contract.Address)
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Contract.Address = "nope"
	cfg.Network.ChainID = 0
	cfg.Network.RPCURLs = nil

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "contract.address")
	assert.Contains(t, err.Error(), "chain_id")
	assert.Contains(t, err.Error(), "RPC URL")
}

func TestWriteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")
	require.NoError(t, WriteDefault(path, false))
	require.Error(t, WriteDefault(path, false))
	require.NoError(t, WriteDefault(path, true))

	t.Setenv("HOME", t.TempDir())
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Contract, cfg.Contract)
	assert.Equal(t, DefaultConfig().Network, cfg.Network)
}
