// SPDX-License-Identifier: MIT

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := NewLoader("").Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, time.Second, cfg.PollInterval)
	assert.Equal(t, 3600, cfg.HistorySize)
	assert.Equal(t, uint16(0x62), cfg.SCD4xAddr)
	assert.Equal(t, uint16(0x58), cfg.SGP30Addr)
	assert.True(t, cfg.DisplayEnabled)

	// With no file and no env the loader must hand back the defaults
	// untouched.
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Errorf("loaded config differs from defaults (-want +got):\n%s", diff)
	}
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
listen: ":9999"
pollInterval: 2s
historySize: 100
logLevel: debug
`), 0o600))

	// ENV must beat the file.
	t.Setenv("AQ_POLL_INTERVAL", "5s")

	cfg, err := NewLoader(path).Load()
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.ListenAddr, "file overrides default")
	assert.Equal(t, 5*time.Second, cfg.PollInterval, "env overrides file")
	assert.Equal(t, 100, cfg.HistorySize)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadRejectsUnknownFileKeys(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("nonsense: true\n"), 0o600))

	_, err := NewLoader(path).Load()
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults ok", func(c *Config) {}, false},
		{"poll interval too short", func(c *Config) { c.PollInterval = 10 * time.Millisecond }, true},
		{"zero history", func(c *Config) { c.HistorySize = 0 }, true},
		{"empty listen", func(c *Config) { c.ListenAddr = "" }, true},
		{"no pms port without simulate", func(c *Config) { c.PMSPort = "" }, true},
		{"no pms port with simulate", func(c *Config) { c.PMSPort = ""; c.Simulate = true }, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("AQ_TEST_STR", "abc")
	t.Setenv("AQ_TEST_INT", "42")
	t.Setenv("AQ_TEST_BAD_INT", "nope")
	t.Setenv("AQ_TEST_BOOL", "true")
	t.Setenv("AQ_TEST_DUR", "750ms")

	assert.Equal(t, "abc", ParseString("AQ_TEST_STR", "def"))
	assert.Equal(t, "def", ParseString("AQ_TEST_MISSING", "def"))
	assert.Equal(t, 42, ParseInt("AQ_TEST_INT", 1))
	assert.Equal(t, 1, ParseInt("AQ_TEST_BAD_INT", 1))
	assert.True(t, ParseBool("AQ_TEST_BOOL", false))
	assert.Equal(t, 750*time.Millisecond, ParseDuration("AQ_TEST_DUR", time.Second))
	assert.Equal(t, time.Second, ParseDuration("AQ_TEST_MISSING", time.Second))
}

func TestHolderReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("pollInterval: 1s\n"), 0o600))

	loader := NewLoader(path)
	cfg, err := loader.Load()
	require.NoError(t, err)

	h := NewHolder(cfg, loader, path)

	var notified []time.Duration
	h.Subscribe(func(c Config) { notified = append(notified, c.PollInterval) })

	require.NoError(t, os.WriteFile(path, []byte("pollInterval: 3s\n"), 0o600))
	require.NoError(t, h.Reload(t.Context()))

	assert.Equal(t, 3*time.Second, h.Current().PollInterval)
	require.Len(t, notified, 1)
	assert.Equal(t, 3*time.Second, notified[0])

	// Invalid file keeps the previous config.
	require.NoError(t, os.WriteFile(path, []byte("pollInterval: 1ms\n"), 0o600))
	require.Error(t, h.Reload(t.Context()))
	assert.Equal(t, 3*time.Second, h.Current().PollInterval)
}
