package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v2"
)

type Config struct {
	Session struct {
		NegotiationTimeout time.Duration `yaml:"negotiation_timeout"`
		DrainTimeout       time.Duration `yaml:"drain_timeout"`
		StatsInterval      time.Duration `yaml:"stats_interval"`
		EventBuffer        int           `yaml:"event_buffer"`
	} `yaml:"session"`

	Signal struct {
		HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
		DialAttempts     int           `yaml:"dial_attempts"`
		DialBackoff      time.Duration `yaml:"dial_backoff"`
		PingInterval     time.Duration `yaml:"ping_interval"`
		WriteTimeout     time.Duration `yaml:"write_timeout"`
	} `yaml:"signal"`

	ICE struct {
		STUNServers       []string      `yaml:"stun_servers"`
		KeepaliveInterval time.Duration `yaml:"keepalive_interval"`
		FailedTimeout     time.Duration `yaml:"failed_timeout"`
	} `yaml:"ice"`

	Media struct {
		MTU              int           `yaml:"mtu"`
		PayloadType      uint8         `yaml:"payload_type"`
		ReceiveLatency   time.Duration `yaml:"receive_latency"`
		ReceiveFPSHint   int           `yaml:"receive_fps_hint"`
		RTCPInterval     time.Duration `yaml:"rtcp_interval"`
		PlayerCommand    []string      `yaml:"player_command"`
	} `yaml:"media"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`

	Monitoring struct {
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`

	Tracing struct {
		Enabled     bool    `yaml:"enabled"`
		JaegerURL   string  `yaml:"jaeger_url"`
		SampleRate  float64 `yaml:"sample_rate"`
		Environment string  `yaml:"environment"`
	} `yaml:"tracing"`
}

// Validate checks that configuration values are within acceptable ranges.
func (c *Config) Validate() error {
	// Session
	if c.Session.NegotiationTimeout <= 0 {
		return fmt.Errorf("session.negotiation_timeout must be > 0")
	}
	if c.Session.DrainTimeout <= 0 {
		return fmt.Errorf("session.drain_timeout must be > 0")
	}
	if c.Session.StatsInterval <= 0 {
		return fmt.Errorf("session.stats_interval must be > 0")
	}
	if c.Session.EventBuffer <= 0 {
		return fmt.Errorf("session.event_buffer must be > 0")
	}

	// Signal
	if c.Signal.HandshakeTimeout <= 0 {
		return fmt.Errorf("signal.handshake_timeout must be > 0")
	}
	if c.Signal.DialAttempts <= 0 {
		return fmt.Errorf("signal.dial_attempts must be > 0")
	}
	if c.Signal.DialBackoff <= 0 {
		return fmt.Errorf("signal.dial_backoff must be > 0")
	}
	if c.Signal.WriteTimeout <= 0 {
		return fmt.Errorf("signal.write_timeout must be > 0")
	}

	// ICE
	if c.ICE.KeepaliveInterval <= 0 {
		return fmt.Errorf("ice.keepalive_interval must be > 0")
	}
	if c.ICE.FailedTimeout <= 0 {
		return fmt.Errorf("ice.failed_timeout must be > 0")
	}

	// Media
	if c.Media.MTU < 576 || c.Media.MTU > 9000 {
		return fmt.Errorf("media.mtu must be between 576 and 9000")
	}
	if c.Media.PayloadType < 96 || c.Media.PayloadType > 127 {
		return fmt.Errorf("media.payload_type must be a dynamic payload type (96-127)")
	}
	if c.Media.ReceiveLatency <= 0 {
		return fmt.Errorf("media.receive_latency must be > 0")
	}
	if c.Media.ReceiveFPSHint <= 0 {
		return fmt.Errorf("media.receive_fps_hint must be > 0")
	}
	if c.Media.RTCPInterval <= 0 {
		return fmt.Errorf("media.rtcp_interval must be > 0")
	}
	if len(c.Media.PlayerCommand) == 0 {
		return fmt.Errorf("media.player_command must not be empty")
	}

	// Logging
	if c.Logging.Level == "" {
		return fmt.Errorf("logging.level must not be empty")
	}

	// Monitoring
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort <= 0 {
		return fmt.Errorf("monitoring.prometheus_port must be > 0 when prometheus_enabled=true")
	}

	// Tracing
	if c.Tracing.Enabled {
		if c.Tracing.JaegerURL == "" {
			return fmt.Errorf("tracing.jaeger_url must not be empty when tracing.enabled=true")
		}
		if c.Tracing.SampleRate <= 0 || c.Tracing.SampleRate > 1 {
			return fmt.Errorf("tracing.sample_rate must be in (0, 1]")
		}
	}

	return nil
}

// Load reads configuration from YAML file, applies defaults and env overrides.
func Load(configPath string) (*Config, error) {
	// If file does not exist, fall back to defaults
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg := DefaultConfig()
		cfg.applyEnvOverrides()
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config yaml: %w", err)
	}

	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// DefaultConfig returns configuration with sane defaults.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Session.NegotiationTimeout = 30 * time.Second
	cfg.Session.DrainTimeout = 5 * time.Second
	cfg.Session.StatsInterval = 2 * time.Second
	cfg.Session.EventBuffer = 64

	cfg.Signal.HandshakeTimeout = 10 * time.Second
	cfg.Signal.DialAttempts = 5
	cfg.Signal.DialBackoff = 500 * time.Millisecond
	cfg.Signal.PingInterval = 10 * time.Second
	cfg.Signal.WriteTimeout = 5 * time.Second

	cfg.ICE.STUNServers = []string{"stun:stun.l.google.com:19302"}
	cfg.ICE.KeepaliveInterval = 2 * time.Second
	cfg.ICE.FailedTimeout = 25 * time.Second

	cfg.Media.MTU = 1200
	cfg.Media.PayloadType = 96
	cfg.Media.ReceiveLatency = 1000 * time.Millisecond
	cfg.Media.ReceiveFPSHint = 30
	cfg.Media.RTCPInterval = 2 * time.Second
	cfg.Media.PlayerCommand = []string{"ffplay", "-loglevel", "warning", "-fflags", "nobuffer", "-f", "h264", "-i", "-"}

	cfg.Logging.Level = "info"
	cfg.Logging.Format = "json"

	cfg.Monitoring.PrometheusEnabled = false
	cfg.Monitoring.PrometheusPort = 9090

	cfg.Tracing.Enabled = false
	cfg.Tracing.JaegerURL = "http://localhost:14268/api/traces"
	cfg.Tracing.SampleRate = 1.0
	cfg.Tracing.Environment = "development"

	return cfg
}

func (c *Config) applyEnvOverrides() {
	// Apply environment variable overrides
	if level := os.Getenv("SCREENLINK_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if format := os.Getenv("SCREENLINK_LOG_FORMAT"); format != "" {
		c.Logging.Format = format
	}
	if servers := os.Getenv("SCREENLINK_STUN_SERVERS"); servers != "" {
		c.ICE.STUNServers = strings.Split(servers, ",")
	}
	if player := os.Getenv("SCREENLINK_PLAYER"); player != "" {
		c.Media.PlayerCommand = strings.Fields(player)
	}
	if timeout := os.Getenv("SCREENLINK_NEGOTIATION_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil {
			c.Session.NegotiationTimeout = d
		}
	}
}
