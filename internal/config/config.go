// Package config loads server configuration from an optional YAML file,
// environment variable overrides, and finally built-in defaults.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	DatabaseURL              string        `yaml:"database_url"`
	BindAddress              string        `yaml:"bind_address"`
	ServerPassword           string        `yaml:"server_password"`
	AdminToken               string        `yaml:"admin_token"`
	UploadDir                string        `yaml:"upload_dir"`
	CORSAllowOrigins         []string      `yaml:"cors_allow_origins"`
	MaxMessagesPerMinute     int           `yaml:"max_messages_per_minute"`
	MaxAuthAttemptsPerMinute int           `yaml:"max_auth_attempts_per_minute"`
	NonceExpirySeconds       int           `yaml:"nonce_expiry_seconds"`
	TrustedProxyCIDRs        []string      `yaml:"trusted_proxy_cidrs"`
	TURN                     TURNConfig    `yaml:"turn"`
}

type TURNConfig struct {
	Host   string        `yaml:"host"`
	Port   int           `yaml:"port"`
	Secret string        `yaml:"secret"`
	TTL    time.Duration `yaml:"ttl"`
	TLS    bool          `yaml:"tls"`
}

func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	cfg.setDefaults()

	return &cfg, nil
}

func envString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			*dst = i
		}
	}
}

func envDuration(key string, dst *time.Duration) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}

func envBool(key string, dst *bool) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func envStringSlice(key string, dst *[]string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed != "" {
				result = append(result, trimmed)
			}
		}
		*dst = result
	}
}

func (c *Config) applyEnvOverrides() {
	envString("DATABASE_URL", &c.DatabaseURL)
	envString("BIND_ADDRESS", &c.BindAddress)
	envString("SERVER_PASSWORD", &c.ServerPassword)
	envString("ADMIN_TOKEN", &c.AdminToken)
	envString("UPLOAD_DIR", &c.UploadDir)
	envStringSlice("CORS_ALLOW_ORIGINS", &c.CORSAllowOrigins)
	envInt("MAX_MESSAGES_PER_MINUTE", &c.MaxMessagesPerMinute)
	envInt("MAX_AUTH_ATTEMPTS_PER_MINUTE", &c.MaxAuthAttemptsPerMinute)
	envInt("NONCE_EXPIRY_SECONDS", &c.NonceExpirySeconds)
	envStringSlice("TRUSTED_PROXY_CIDRS", &c.TrustedProxyCIDRs)

	envString("TURN_HOST", &c.TURN.Host)
	envInt("TURN_PORT", &c.TURN.Port)
	envString("TURN_SECRET", &c.TURN.Secret)
	envDuration("TURN_TTL", &c.TURN.TTL)
	envBool("TURN_TLS", &c.TURN.TLS)
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.MaxMessagesPerMinute < 0 {
		return fmt.Errorf("max_messages_per_minute must be >= 0")
	}
	if c.MaxAuthAttemptsPerMinute < 0 {
		return fmt.Errorf("max_auth_attempts_per_minute must be >= 0")
	}
	if c.NonceExpirySeconds < 0 {
		return fmt.Errorf("nonce_expiry_seconds must be >= 0")
	}
	for _, cidr := range c.TrustedProxyCIDRs {
		trimmed := strings.TrimSpace(cidr)
		if trimmed == "" {
			continue
		}
		if ip := net.ParseIP(trimmed); ip != nil {
			continue
		}
		if _, _, err := net.ParseCIDR(trimmed); err != nil {
			return fmt.Errorf("trusted_proxy_cidrs contains invalid CIDR or IP %q: %w", trimmed, err)
		}
	}
	return nil
}

func (c *Config) setDefaults() {
	if c.BindAddress == "" {
		c.BindAddress = "0.0.0.0:3001"
	}
	if c.UploadDir == "" {
		c.UploadDir = "uploads"
	}
	if c.MaxMessagesPerMinute == 0 {
		c.MaxMessagesPerMinute = 30
	}
	if c.MaxAuthAttemptsPerMinute == 0 {
		c.MaxAuthAttemptsPerMinute = 5
	}
	if c.NonceExpirySeconds == 0 {
		c.NonceExpirySeconds = 300
	}
	if c.TURN.Port == 0 {
		c.TURN.Port = 3478
	}
	if c.TURN.TTL == 0 {
		c.TURN.TTL = 24 * time.Hour
	}
}

// RequiresPassword reports whether a client must present the configured
// password on its first presence frame.
func (c *Config) RequiresPassword() bool {
	return c.ServerPassword != ""
}

// RequiresAdminToken reports whether channel management is gated by role
// rather than open to any authenticated user.
func (c *Config) RequiresAdminToken() bool {
	return c.AdminToken != ""
}
