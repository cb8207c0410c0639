// ABOUTME: Application configuration loaded through viper
// ABOUTME: Defaults, optional YAML file and RESONATE_AO_* environment overrides
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Resonate-Protocol/resonate-ao/pkg/audio"
	"github.com/Resonate-Protocol/resonate-ao/pkg/audio/chmap"
)

// EnvPrefix prefixes environment overrides, e.g. RESONATE_AO_DRIVER
const EnvPrefix = "RESONATE_AO"

// Config is the player configuration
type Config struct {
	LogLevel string `mapstructure:"loglevel"`
	LogFile  string `mapstructure:"logfile"`

	// Driver is a fallback list such as "pipewire/pulse,pipewire/null"
	Driver string `mapstructure:"driver"`
	// Engine is the default engine for entries without one
	Engine string `mapstructure:"engine"`

	Format     string        `mapstructure:"format"`
	Channels   string        `mapstructure:"channels"`
	SampleRate int           `mapstructure:"samplerate"`
	Buffer     time.Duration `mapstructure:"buffer"`

	Latency    string `mapstructure:"latency"`
	Role       string `mapstructure:"role"`
	ClientName string `mapstructure:"clientname"`

	Volume int  `mapstructure:"volume"`
	Loop   bool `mapstructure:"loop"`
	TUI    bool `mapstructure:"tui"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("loglevel", "info")
	v.SetDefault("logfile", "")
	v.SetDefault("driver", "pipewire")
	v.SetDefault("engine", "")
	v.SetDefault("format", "float")
	v.SetDefault("channels", "")
	v.SetDefault("samplerate", 0)
	v.SetDefault("buffer", 500*time.Millisecond)
	v.SetDefault("latency", "")
	v.SetDefault("role", "Music")
	v.SetDefault("clientname", "resonate-ao")
	v.SetDefault("volume", 100)
	v.SetDefault("loop", false)
	v.SetDefault("tui", true)
}

// Load reads the configuration. An empty path or a missing file leaves the
// defaults; a malformed file is an error. Values are not checked here so
// command line overrides can be applied first; call Validate afterwards.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config %s: %w", path, err)
			}
			slog.Info("no config file found", "configFilePath", path)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Validate checks values the output layer would otherwise reject later
func (c *Config) Validate() error {
	var errs []error

	if _, err := c.SampleFormat(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Layout(); err != nil {
		errs = append(errs, err)
	}
	if c.SampleRate < 0 {
		errs = append(errs, fmt.Errorf("invalid sample rate: %d", c.SampleRate))
	}
	if c.Volume < 0 || c.Volume > 100 {
		errs = append(errs, fmt.Errorf("volume out of range: %d (0-100)", c.Volume))
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if strings.TrimSpace(c.Driver) == "" {
		errs = append(errs, errors.New("driver list is empty"))
	}
	return errors.Join(errs...)
}

// SampleFormat returns the requested output format
func (c *Config) SampleFormat() (audio.SampleFormat, error) {
	return audio.ParseSampleFormat(c.Format)
}

// Layout returns the requested channel layout, or nil to follow the source
func (c *Config) Layout() (chmap.Map, error) {
	if c.Channels == "" {
		return nil, nil
	}
	return chmap.Parse(c.Channels)
}

// DriverOptions are the per-driver options passed to the output layer
func (c *Config) DriverOptions() map[string]string {
	opts := map[string]string{
		"role":       c.Role,
		"clientname": c.ClientName,
	}
	if c.Engine != "" {
		opts["engine"] = c.Engine
	}
	if c.Latency != "" {
		opts["latency"] = c.Latency
	}
	return opts
}
