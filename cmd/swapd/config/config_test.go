package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Zero(t, cfg.FeeBps)
}

func TestLoadConfigFromFile(t *testing.T) {
	path := writeConfig(t, "listen_addr: \":9090\"\nlog_level: debug\nfee_bps: 25\n")
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.ListenAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.EqualValues(t, 25, cfg.FeeBps)
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "listen_addr: \":9090\"\n")
	t.Setenv("SWAPD_ADDR", ":7070")
	t.Setenv("SWAPD_FEE_BPS", "50")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.ListenAddr)
	assert.EqualValues(t, 50, cfg.FeeBps)
}

func TestLoadConfigValidation(t *testing.T) {
	testCases := []struct {
		name    string
		content string
	}{
		{name: "Bad Log Level", content: "log_level: verbose\n"},
		{name: "Fee Too High", content: "fee_bps: 10000\n"},
		{name: "Bad Router Address", content: "router_address: nope\n"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tc.content))
			require.Error(t, err)
		})
	}
}
