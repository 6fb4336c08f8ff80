// Package config provides configuration loading from YAML files.
package config

import (
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Player    PlayerConfig    `yaml:"player"`
	Renderer  RendererConfig  `yaml:"renderer"`
	Settings  SettingsConfig  `yaml:"settings"`
	Companion CompanionConfig `yaml:"companion"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig represents the media server connection.
type ServerConfig struct {
	URL                     string   `yaml:"url" validate:"required,url"`
	Token                   string   `yaml:"token"`
	ClientIdentifier        string   `yaml:"client_identifier"`
	TimeoutMs               int      `yaml:"timeout_ms" default:"10000" validate:"gte=100"`
	RetryMax                int      `yaml:"retry_max" default:"3" validate:"gte=0,lte=10"`
	TranscodeOnly           bool     `yaml:"transcode_only"`
	DirectContainers        []string `yaml:"direct_containers"`
	MaxVideoBitrate         int      `yaml:"max_video_bitrate" validate:"gte=0"`
	PlayQueueRefreshDelayMs int      `yaml:"play_queue_refresh_delay_ms" default:"1000" validate:"gte=0"`
}

// PlayerConfig represents the playback controller timings.
type PlayerConfig struct {
	PollIntervalMs  int    `yaml:"poll_interval_ms" default:"100" validate:"gte=10,lte=1000"`
	TickEvery       int    `yaml:"tick_every" default:"10" validate:"gte=1"`
	TokenAttempts   int    `yaml:"token_attempts" default:"10" validate:"gte=1"`
	TokenIntervalMs int    `yaml:"token_interval_ms" default:"100" validate:"gte=0"`
	StopSettleMs    int    `yaml:"stop_settle_ms" default:"200" validate:"gte=0"`
	SubtitleDelayMs int    `yaml:"subtitle_delay_ms" default:"100" validate:"gte=0"`
	Platform        string `yaml:"platform" default:"Chrome"`
	TimelineBuffer  int    `yaml:"timeline_buffer" default:"16" validate:"gte=1"`
}

// RendererConfig holds free-form renderer options, decoded by the renderer.
type RendererConfig struct {
	Options map[string]any `yaml:"options"`
}

// SettingsConfig represents the persisted user settings.
type SettingsConfig struct {
	Path     string         `yaml:"path" default:"settings.yaml"`
	Defaults map[string]any `yaml:"defaults"`
}

// CompanionConfig represents the remote control HTTP API.
type CompanionConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr" default:":32500"`
	Token   string `yaml:"token"` // Required in X-Plex-Token when set
}

// LogConfig represents logging configuration.
type LogConfig struct {
	Output string `yaml:"output" default:"stdout"`
	Level  string `yaml:"level" default:"info" validate:"oneof=trace debug info warn warning error"`
	File   string `yaml:"file"`
}

// Load loads configuration from a YAML file.
// Environment variables take precedence over file values for server credentials.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}
	return Parse(data)
}

// Parse parses configuration from YAML.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	cfg.overrideFromEnv()

	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

func (c *Config) overrideFromEnv() {
	if v := os.Getenv("PLEX_SERVER_URL"); v != "" {
		c.Server.URL = v
	}
	if v := os.Getenv("PLEX_TOKEN"); v != "" {
		c.Server.Token = v
	}
	if v := os.Getenv("PLEX_CLIENT_IDENTIFIER"); v != "" {
		c.Server.ClientIdentifier = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}
	if c.Server.TranscodeOnly && len(c.Server.DirectContainers) > 0 {
		return errors.New("server.direct_containers is set but server.transcode_only disables direct play")
	}
	if c.Companion.Enabled && c.Companion.Addr == "" {
		return errors.New("companion.addr is required when the companion API is enabled")
	}
	return nil
}

// Timeout returns the server request timeout.
func (s ServerConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutMs) * time.Millisecond
}

// PlayQueueRefreshDelay returns the delay of deferred play queue refreshes.
func (s ServerConfig) PlayQueueRefreshDelay() time.Duration {
	return time.Duration(s.PlayQueueRefreshDelayMs) * time.Millisecond
}

func (p PlayerConfig) PollInterval() time.Duration {
	return time.Duration(p.PollIntervalMs) * time.Millisecond
}

func (p PlayerConfig) TokenInterval() time.Duration {
	return time.Duration(p.TokenIntervalMs) * time.Millisecond
}

func (p PlayerConfig) StopSettle() time.Duration {
	return time.Duration(p.StopSettleMs) * time.Millisecond
}

func (p PlayerConfig) SubtitleDelay() time.Duration {
	return time.Duration(p.SubtitleDelayMs) * time.Millisecond
}
