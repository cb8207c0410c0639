// ABOUTME: Tests for configuration loading and logger setup
// ABOUTME: Covers defaults, YAML files, environment overrides and validation
package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Resonate-Protocol/resonate-ao/pkg/audio"
	"github.com/Resonate-Protocol/resonate-ao/pkg/audio/chmap"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "pipewire", cfg.Driver)
	assert.Equal(t, "float", cfg.Format)
	assert.Equal(t, 500*time.Millisecond, cfg.Buffer)
	assert.Equal(t, "Music", cfg.Role)
	assert.Equal(t, "resonate-ao", cfg.ClientName)
	assert.Equal(t, 100, cfg.Volume)
	assert.True(t, cfg.TUI)

	format, err := cfg.SampleFormat()
	require.NoError(t, err)
	assert.Equal(t, audio.FormatFloat, format)

	layout, err := cfg.Layout()
	require.NoError(t, err)
	assert.Nil(t, layout)
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "pipewire", cfg.Driver)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
loglevel: debug
driver: pipewire/null,pipewire/pulse
format: s16
channels: "5.1"
samplerate: 44100
buffer: 250ms
latency: 512/48000
volume: 40
tui: false
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "pipewire/null,pipewire/pulse", cfg.Driver)
	assert.Equal(t, 44100, cfg.SampleRate)
	assert.Equal(t, 250*time.Millisecond, cfg.Buffer)
	assert.Equal(t, 40, cfg.Volume)
	assert.False(t, cfg.TUI)

	layout, err := cfg.Layout()
	require.NoError(t, err)
	want, _ := chmap.Named("5.1")
	assert.True(t, layout.Equal(want))

	assert.Equal(t, "512/48000", cfg.DriverOptions()["latency"])
}

func TestLoadMalformedFile(t *testing.T) {
	path := writeConfig(t, "driver: [unterminated\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadEnvironment(t *testing.T) {
	t.Setenv("RESONATE_AO_DRIVER", "pipewire/null")
	t.Setenv("RESONATE_AO_ENGINE", "miniaudio")
	t.Setenv("RESONATE_AO_VOLUME", "75")

	path := writeConfig(t, "driver: pipewire/pulse\n")
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "pipewire/null", cfg.Driver, "environment wins over the file")
	assert.Equal(t, 75, cfg.Volume)
	assert.Equal(t, "miniaudio", cfg.DriverOptions()["engine"])
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad format", func(c *Config) { c.Format = "s12" }},
		{"bad channels", func(c *Config) { c.Channels = "fl-nope" }},
		{"negative rate", func(c *Config) { c.SampleRate = -1 }},
		{"volume too high", func(c *Config) { c.Volume = 101 }},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }},
		{"empty driver list", func(c *Config) { c.Driver = " " }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load("")
			require.NoError(t, err)
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadLeavesValidationToCaller(t *testing.T) {
	path := writeConfig(t, "volume: 500\nformat: s12\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Error(t, cfg.Validate())

	// overrides from flags fix the file
	cfg.Volume = 80
	cfg.Format = "s16"
	assert.NoError(t, cfg.Validate())
}

func TestDriverOptionsOmitEmpty(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	opts := cfg.DriverOptions()
	assert.NotContains(t, opts, "engine")
	assert.NotContains(t, opts, "latency")
	assert.Equal(t, "Music", opts["role"])
}

func TestConfigureLogger(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })
	ctx := context.Background()

	f, err := ConfigureLogger("none", "")
	require.NoError(t, err)
	assert.Nil(t, f)

	f, err = ConfigureLogger("warn", "")
	require.NoError(t, err)
	assert.Nil(t, f)
	assert.True(t, slog.Default().Enabled(ctx, slog.LevelWarn))
	assert.False(t, slog.Default().Enabled(ctx, slog.LevelInfo))

	path := filepath.Join(t.TempDir(), "ao.log")
	f, err = ConfigureLogger("debug", path)
	require.NoError(t, err)
	require.NotNil(t, f)
	assert.True(t, slog.Default().Enabled(ctx, slog.LevelDebug))

	slog.Info("written to file", "key", "value")
	require.NoError(t, f.Close())
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"written to file"`)

	_, err = ConfigureLogger("loud", "")
	assert.Error(t, err)
}
