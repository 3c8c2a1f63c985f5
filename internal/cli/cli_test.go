package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCredentialsRoundtrip(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	// No credentials file yet
	assert.Empty(t, getCredential("http://localhost:8080"))

	require.NoError(t, saveCredential("http://localhost:8080", "bd_key_abc123def456"))
	require.NoError(t, saveCredential("https://bounties.example.com", "bd_key_other"))

	assert.Equal(t, "bd_key_abc123def456", getCredential("http://localhost:8080"))
	assert.Equal(t, "bd_key_other", getCredential("https://bounties.example.com"))
	assert.Empty(t, getCredential("https://unknown.example.com"))

	// File permissions must stay owner-only
	info, err := os.Stat(credentialsFilePath())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	// Overwriting a credential replaces it
	require.NoError(t, saveCredential("http://localhost:8080", "bd_key_rotated"))
	assert.Equal(t, "bd_key_rotated", getCredential("http://localhost:8080"))
}

func TestMaskAPIKey(t *testing.T) {
	assert.Equal(t, "****", maskAPIKey(""))
	assert.Equal(t, "****", maskAPIKey("short"))
	assert.Equal(t, "bd_key_a...wxyz", maskAPIKey("bd_key_abcdefghijklmnopqrstuvwxyz"))
}

func TestLoadProjectConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bountyctl.toml")
	content := `
server = "https://bounties.example.com"
wallet = "0x1111111111111111111111111111111111111111"
stake = "20000000000000000"
duration = 2592000
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	config, err := loadProjectConfigFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, "https://bounties.example.com", config.Server)
	assert.Equal(t, "0x1111111111111111111111111111111111111111", config.Wallet)
	assert.Equal(t, "20000000000000000", config.Stake)
	assert.Equal(t, int64(2592000), config.Duration)
}

func TestLoadProjectConfigInvalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bountyctl.toml")
	require.NoError(t, os.WriteFile(path, []byte("server = [not toml"), 0644))

	_, err := loadProjectConfigFromPath(path)
	assert.Error(t, err)
}

func TestGetWalletPrecedence(t *testing.T) {
	t.Setenv("BOUNTYD_WALLET", "0x2222222222222222222222222222222222222222")

	// Flag wins over env
	assert.Equal(t, "0x3333333333333333333333333333333333333333",
		getWallet("0x3333333333333333333333333333333333333333"))

	// Env wins when no flag
	assert.Equal(t, "0x2222222222222222222222222222222222222222", getWallet(""))
}

func TestShortAddr(t *testing.T) {
	assert.Equal(t, "", shortAddr(""))
	assert.Equal(t, "0xabc", shortAddr("0xabc"))
	assert.Equal(t, "0x111111..1111", shortAddr("0x1111111111111111111111111111111111111111"))
}
