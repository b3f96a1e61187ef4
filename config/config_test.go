package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"nhbbridge/core/types"
)

func TestLoadCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)

	_, err = os.Stat(path)
	require.NoError(t, err, "default config should be persisted")

	reloaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg, reloaded)
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfig(t, `
DataDir = "/var/lib/bridge"
Database = "Memory"
GenesisFile = "genesis.yaml"

[Epoch]
Length = 20

[Bridge]
SeenThreshold = "3/4"
ExpiryEpochs = 5

[Logging]
Env = "staging"
Level = "debug"

[Metrics]
Enabled = false
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, DatabaseMemory, cfg.Database)
	require.Equal(t, uint64(20), cfg.EpochConfig().Length)
	require.Equal(t, uint64(5), cfg.Bridge.ExpiryEpochs)
	require.Equal(t, "nhb-bridge", cfg.Logging.Service)
	require.False(t, cfg.Metrics.Enabled)

	policy, err := cfg.QuorumPolicy()
	require.NoError(t, err)
	threshold, err := types.NewFractionalVotingPower(3, 4)
	require.NoError(t, err)
	require.Equal(t, 0, policy.Threshold().Cmp(threshold))

	opts := cfg.LoggingOptions()
	require.Equal(t, "staging", opts.Env)
	require.Equal(t, "debug", opts.Level)
}

func TestLoadRejectsUnknownField(t *testing.T) {
	path := writeConfig(t, "Bogus = 1\n")
	_, err := Load(path)
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), "Bogus"))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "unknown backend", mutate: func(c *Config) { c.Database = "bolt" }},
		{name: "empty data dir", mutate: func(c *Config) { c.DataDir = " " }},
		{name: "zero epoch length", mutate: func(c *Config) { c.Epoch.Length = 0 }},
		{name: "threshold below safety floor", mutate: func(c *Config) { c.Bridge.SeenThreshold = "1/4" }},
		{name: "unreachable threshold", mutate: func(c *Config) { c.Bridge.SeenThreshold = "1" }},
		{name: "malformed threshold", mutate: func(c *Config) { c.Bridge.SeenThreshold = "two thirds" }},
		{name: "zero expiry", mutate: func(c *Config) { c.Bridge.ExpiryEpochs = 0 }},
	}
	require.NoError(t, Default().Validate())
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			require.Error(t, cfg.Validate())
		})
	}

	memory := Default()
	memory.Database = DatabaseMemory
	memory.DataDir = ""
	require.NoError(t, memory.Validate())
}
