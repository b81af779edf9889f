package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 30*time.Second, cfg.Session.NegotiationTimeout)
	assert.Equal(t, 5*time.Second, cfg.Session.DrainTimeout)
	assert.Equal(t, 1200, cfg.Media.MTU)
	assert.Equal(t, uint8(96), cfg.Media.PayloadType)
	assert.Equal(t, []string{"stun:stun.l.google.com:19302"}, cfg.ICE.STUNServers)
	assert.NotEmpty(t, cfg.Media.PlayerCommand)

	require.NoError(t, cfg.Validate())
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Session.NegotiationTimeout, cfg.Session.NegotiationTimeout)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
session:
  negotiation_timeout: 10s
media:
  mtu: 1400
logging:
  level: debug
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, cfg.Session.NegotiationTimeout)
	assert.Equal(t, 1400, cfg.Media.MTU)
	assert.Equal(t, "debug", cfg.Logging.Level)
	// untouched keys keep defaults
	assert.Equal(t, 5*time.Second, cfg.Session.DrainTimeout)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SCREENLINK_LOG_LEVEL", "warn")
	t.Setenv("SCREENLINK_STUN_SERVERS", "stun:a:3478,stun:b:3478")
	t.Setenv("SCREENLINK_NEGOTIATION_TIMEOUT", "12s")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, []string{"stun:a:3478", "stun:b:3478"}, cfg.ICE.STUNServers)
	assert.Equal(t, 12*time.Second, cfg.Session.NegotiationTimeout)
}

func TestValidate_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero negotiation timeout", func(c *Config) { c.Session.NegotiationTimeout = 0 }},
		{"zero drain timeout", func(c *Config) { c.Session.DrainTimeout = 0 }},
		{"tiny mtu", func(c *Config) { c.Media.MTU = 100 }},
		{"static payload type", func(c *Config) { c.Media.PayloadType = 0 }},
		{"empty player command", func(c *Config) { c.Media.PlayerCommand = nil }},
		{"empty log level", func(c *Config) { c.Logging.Level = "" }},
		{"prometheus without port", func(c *Config) {
			c.Monitoring.PrometheusEnabled = true
			c.Monitoring.PrometheusPort = 0
		}},
		{"tracing without url", func(c *Config) {
			c.Tracing.Enabled = true
			c.Tracing.JaegerURL = ""
		}},
		{"bad sample rate", func(c *Config) {
			c.Tracing.Enabled = true
			c.Tracing.SampleRate = 2.0
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
