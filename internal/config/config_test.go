package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigParsesWallets(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
wallets:
  - alias: alpha
    pubkey: pk1
    color: red
  - alias: beta
    pubkey: pk2
stableMints:
  - mintUSDC
payloadFileDir: data/requests
`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Len(t, cfg.Wallets, 2)
	assert.Equal(t, "alpha", cfg.Wallets[0].Alias)
	assert.Equal(t, []string{"mintUSDC"}, cfg.StableMints)

	specs := cfg.WalletSpecs()
	require.Len(t, specs, 2)
	assert.Equal(t, int64(1), specs[0].WalletID)
	assert.Equal(t, int64(2), specs[1].WalletID)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)
}

func TestLoadRuntimeDefaults(t *testing.T) {
	for _, k := range []string{
		"HUD_SOL_REFRESH_SEC", "HUD_TOKENS_REFRESH_SEC", "WARCHEST_LOG_REFRESH_DEBOUNCE_MS",
		"LOG_LEVEL", "SC_KEYCHAIN_SERVICE", "SC_KEYCHAIN_ACCOUNT",
	} {
		os.Unsetenv(k)
	}
	rt := LoadRuntime()
	assert.Equal(t, 15*time.Second, rt.SolRefreshInterval)
	assert.Equal(t, 30*time.Second, rt.TokensRefreshInterval)
	assert.Equal(t, 5*time.Millisecond, rt.RefreshDebounce)
	assert.Equal(t, "info", rt.LogLevel)
	assert.Equal(t, "scoundrel", rt.KeychainService)
	assert.Equal(t, "wallet-master-key", rt.KeychainAccount)
}

func TestLoadRuntimeOverrides(t *testing.T) {
	t.Setenv("HUD_SOL_REFRESH_SEC", "20")
	t.Setenv("LOG_LEVEL", "debug")
	rt := LoadRuntime()
	assert.Equal(t, 20*time.Second, rt.SolRefreshInterval)
	assert.Equal(t, "debug", rt.LogLevel)
}

func TestLoadDotEnvMissingFileIsNotError(t *testing.T) {
	err := LoadDotEnv(filepath.Join(t.TempDir(), ".env"))
	assert.NoError(t, err)
}
