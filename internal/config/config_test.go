package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 5*time.Second, cfg.Wait.Timeout)
	assert.Equal(t, 100*time.Millisecond, cfg.Wait.Interval)
	assert.True(t, cfg.Browser.Headless)
	assert.True(t, cfg.Signup.LastNameRequired)
	assert.Empty(t, cfg.Registry)
}

func TestParse_OverridesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
base_url: https://staging.example.com/id/en/signup-email
registry: testdata/registry/signup.cue
wait:
  timeout: 10s
browser:
  headless: false
signup:
  last_name_required: false
`))
	require.NoError(t, err)

	assert.Equal(t, "https://staging.example.com/id/en/signup-email", cfg.BaseURL)
	assert.Equal(t, "testdata/registry/signup.cue", cfg.Registry)
	assert.Equal(t, 10*time.Second, cfg.Wait.Timeout)
	assert.Equal(t, 100*time.Millisecond, cfg.Wait.Interval, "omitted keys keep their defaults")
	assert.False(t, cfg.Browser.Headless)
	assert.False(t, cfg.Signup.LastNameRequired)
	assert.Equal(t, "scenarios", cfg.Scenarios)
}

func TestParse_Empty(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"unknown key", "base_ulr: https://x\n", "base_ulr"},
		{"bad duration", "wait: {timeout: soon}\n", "failed to parse config YAML"},
		{"zero timeout", "wait: {timeout: 0s}\n", "wait.timeout must be positive"},
		{"interval exceeds timeout", "wait: {timeout: 1s, interval: 2s}\n", "exceeds wait.timeout"},
		{"bad scheme", "base_url: ftp://example.com\n", "scheme must be http or https"},
		{"negative size", "browser: {width: -1}\n", "must not be negative"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_ResolvesPathsAgainstFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultFile)
	require.NoError(t, os.WriteFile(path, []byte("registry: registry/signup.yaml\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "registry", "signup.yaml"), cfg.Path(cfg.Registry))
	assert.Equal(t, filepath.Join(dir, "scenarios"), cfg.Path(cfg.Scenarios))
	assert.Equal(t, "/abs/db", cfg.Path("/abs/db"))
	assert.Empty(t, cfg.Path(""))
}

func TestLoad_ErrorNamesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("nope: 1\n"), 0644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.yaml")
}

func TestLoadOrDefault(t *testing.T) {
	// Equivalent of t.Chdir (Go 1.24+) for older toolchains.
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := LoadOrDefault("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	_, err = LoadOrDefault("missing.yaml")
	require.Error(t, err, "an explicit missing file is an error")
}
