package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseArgsCollectsWallets(t *testing.T) {
	args, err := parseArgs([]string{"--wallet", "alpha:pk1:red", "--wallet", "beta:pk2", "--hud"})
	require.NoError(t, err)
	require.Len(t, args.wallets, 2)
	assert.Equal(t, "alpha", args.wallets[0].Alias)
	assert.Equal(t, "pk1", args.wallets[0].Pubkey)
	assert.Equal(t, "red", args.wallets[0].Color)
	assert.Equal(t, int64(1), args.wallets[0].WalletID)
	assert.Equal(t, "beta", args.wallets[1].Alias)
	assert.Empty(t, args.wallets[1].Color)
	assert.True(t, args.hudMode)
}

func TestParseArgsRejectsMalformedWalletSpec(t *testing.T) {
	_, err := parseArgs([]string{"--wallet", "alpha"})
	assert.Error(t, err)
}

func TestParseArgsDefaultsConfigPath(t *testing.T) {
	args, err := parseArgs(nil)
	require.NoError(t, err)
	assert.Equal(t, "configs/config.yml", args.configPath)
	assert.False(t, args.hudMode)
}

func TestParseArgsCustomConfigPath(t *testing.T) {
	args, err := parseArgs([]string{"--config", "configs/custom.yml"})
	require.NoError(t, err)
	assert.Equal(t, "configs/custom.yml", args.configPath)
}
