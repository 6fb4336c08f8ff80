package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		Server: ServerConfig{URL: "http://plex:32400", TimeoutMs: 10000},
		Player: PlayerConfig{PollIntervalMs: 100, TickEvery: 10, TokenAttempts: 10, TimelineBuffer: 16},
		Log:    LogConfig{Level: "info"},
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
		errMsg  string
	}{
		{
			name:   "valid config",
			mutate: func(c *Config) {},
		},
		{
			name:    "missing server url",
			mutate:  func(c *Config) { c.Server.URL = "" },
			wantErr: true,
			errMsg:  "URL",
		},
		{
			name:    "malformed server url",
			mutate:  func(c *Config) { c.Server.URL = "plex" },
			wantErr: true,
			errMsg:  "URL",
		},
		{
			name:    "poll interval too short",
			mutate:  func(c *Config) { c.Player.PollIntervalMs = 1 },
			wantErr: true,
			errMsg:  "PollIntervalMs",
		},
		{
			name:    "retry max out of range",
			mutate:  func(c *Config) { c.Server.RetryMax = 50 },
			wantErr: true,
			errMsg:  "RetryMax",
		},
		{
			name:    "unknown log level",
			mutate:  func(c *Config) { c.Log.Level = "loud" },
			wantErr: true,
			errMsg:  "Level",
		},
		{
			name: "direct containers with transcode only",
			mutate: func(c *Config) {
				c.Server.TranscodeOnly = true
				c.Server.DirectContainers = []string{"mkv"}
			},
			wantErr: true,
			errMsg:  "direct_containers",
		},
		{
			name: "companion without address",
			mutate: func(c *Config) {
				c.Companion.Enabled = true
			},
			wantErr: true,
			errMsg:  "companion.addr",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()

			if tt.wantErr {
				require.Error(t, err, "expected validation to fail")
				assert.Contains(t, err.Error(), tt.errMsg,
					"error message should mention the problematic field")
			} else {
				assert.NoError(t, err, "expected validation to pass")
			}
		})
	}
}

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte("server:\n  url: http://plex:32400\n"))
	require.NoError(t, err)

	assert.Equal(t, 10*time.Second, cfg.Server.Timeout())
	assert.Equal(t, 3, cfg.Server.RetryMax)
	assert.Equal(t, time.Second, cfg.Server.PlayQueueRefreshDelay())
	assert.Equal(t, 100*time.Millisecond, cfg.Player.PollInterval())
	assert.Equal(t, 10, cfg.Player.TickEvery)
	assert.Equal(t, 10, cfg.Player.TokenAttempts)
	assert.Equal(t, 100*time.Millisecond, cfg.Player.TokenInterval())
	assert.Equal(t, 200*time.Millisecond, cfg.Player.StopSettle())
	assert.Equal(t, 100*time.Millisecond, cfg.Player.SubtitleDelay())
	assert.Equal(t, "Chrome", cfg.Player.Platform)
	assert.Equal(t, "settings.yaml", cfg.Settings.Path)
	assert.Equal(t, ":32500", cfg.Companion.Addr)
	assert.False(t, cfg.Companion.Enabled)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestParse_RendererOptionsKeptRaw(t *testing.T) {
	cfg, err := Parse([]byte(`
server:
  url: http://plex:32400
renderer:
  options:
    fullscreen: true
    osd_duration_ms: 1500
    mpv:
      vo: gpu-next
`))
	require.NoError(t, err)
	assert.Equal(t, true, cfg.Renderer.Options["fullscreen"])
	assert.Equal(t, 1500, cfg.Renderer.Options["osd_duration_ms"])
	assert.Equal(t, map[string]any{"vo": "gpu-next"}, cfg.Renderer.Options["mpv"])
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse([]byte("server: [\n"))
	assert.Error(t, err)

	_, err = Parse([]byte("server:\n  url: http://plex:32400\nplayer:\n  poll_interval_ms: 5000\n"))
	assert.Error(t, err)
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  url: http://file:32400\n  token: from-file\n"), 0o600))

	t.Setenv("PLEX_SERVER_URL", "http://env:32400")
	t.Setenv("PLEX_TOKEN", "from-env")
	t.Setenv("PLEX_CLIENT_IDENTIFIER", "player-7")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://env:32400", cfg.Server.URL)
	assert.Equal(t, "from-env", cfg.Server.Token)
	assert.Equal(t, "player-7", cfg.Server.ClientIdentifier)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
