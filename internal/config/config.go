// ABOUTME: Configuration loading and parsing for pulse-gateway
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete pulse-gateway configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Tailscale TailscaleConfig `yaml:"tailscale"`
	Auth      AuthConfig      `yaml:"auth"`
	Gateway   GatewayConfig   `yaml:"gateway"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig holds server address configuration
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`
}

// TailscaleConfig holds Tailscale tsnet configuration
type TailscaleConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Hostname  string `yaml:"hostname"`
	AuthKey   string `yaml:"auth_key"`
	StateDir  string `yaml:"state_dir"`
	Ephemeral bool   `yaml:"ephemeral"`
	Funnel    bool   `yaml:"funnel"` // Enable public Funnel (implies HTTPS)
}

// AuthConfig holds authentication configuration. With an empty JWTSecret
// every connection is anonymous; with a secret set, AllowAnonymous controls
// whether tokenless connections are still admitted.
type AuthConfig struct {
	JWTSecret      string `yaml:"jwt_secret"`
	AllowAnonymous bool   `yaml:"allow_anonymous"`
}

// GatewayConfig holds the pub/sub gateway's operating parameters. All
// fields are required; there are no hidden defaults.
type GatewayConfig struct {
	EnableDuplex      bool `yaml:"enable_duplex"`
	EnableOneWay      bool `yaml:"enable_oneway"`
	MaxConnections    int  `yaml:"max_connections"`
	OutboundQueueSize int  `yaml:"outbound_queue_size"`

	HeartbeatInterval time.Duration `yaml:"-"`
	ConnectionTimeout time.Duration `yaml:"-"`

	// Raw string values for YAML unmarshaling
	HeartbeatIntervalRaw string `yaml:"heartbeat_interval"`
	ConnectionTimeoutRaw string `yaml:"connection_timeout"`
}

// LoggingConfig holds logging configuration. File enables a rotating JSON
// log file alongside stdout.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw YAML content
	expandedData := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Parse duration fields
	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	// Match ${VAR_NAME} pattern
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		// Extract variable name from ${VAR_NAME}
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	// Server address is required unless Tailscale is enabled
	if !c.Tailscale.Enabled && c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required (or enable tailscale)")
	}

	// Tailscale requires a hostname
	if c.Tailscale.Enabled && c.Tailscale.Hostname == "" {
		return fmt.Errorf("tailscale.hostname is required when tailscale is enabled")
	}

	if !c.Gateway.EnableDuplex && !c.Gateway.EnableOneWay {
		return fmt.Errorf("gateway requires at least one of enable_duplex/enable_oneway")
	}
	if c.Gateway.MaxConnections <= 0 {
		return fmt.Errorf("gateway.max_connections must be positive")
	}
	if c.Gateway.OutboundQueueSize <= 0 {
		return fmt.Errorf("gateway.outbound_queue_size must be positive")
	}
	if c.Gateway.HeartbeatInterval <= 0 {
		return fmt.Errorf("gateway.heartbeat_interval is required")
	}
	if c.Gateway.ConnectionTimeout <= 0 {
		return fmt.Errorf("gateway.connection_timeout is required")
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.Gateway.HeartbeatIntervalRaw != "" {
		cfg.Gateway.HeartbeatInterval, err = time.ParseDuration(cfg.Gateway.HeartbeatIntervalRaw)
		if err != nil {
			return fmt.Errorf("parsing heartbeat_interval %q: %w", cfg.Gateway.HeartbeatIntervalRaw, err)
		}
	}

	if cfg.Gateway.ConnectionTimeoutRaw != "" {
		cfg.Gateway.ConnectionTimeout, err = time.ParseDuration(cfg.Gateway.ConnectionTimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing connection_timeout %q: %w", cfg.Gateway.ConnectionTimeoutRaw, err)
		}
	}

	return nil
}
