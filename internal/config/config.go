// Package config loads broker configuration.
//
// Configuration comes from an optional YAML file plus environment variable
// overrides. Everything is read once at startup; the broker never re-reads
// configuration at runtime.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Defaults for timing constants. Values are milliseconds on the wire and in
// config to match the signaling protocol's epoch-ms timestamps.
const (
	DefaultSessionTimeoutMs    = 5 * 60 * 1000
	DefaultHeartbeatIntervalMs = 30 * 1000
	DefaultHeartbeatTimeoutMs  = 90 * 1000
	DefaultScanIntervalMs      = 30 * 1000
	DefaultRateWindowMs        = 60 * 1000
)

// DefaultRateCeilings are the per-kind event ceilings per rate window.
// Any kind not listed falls back to the "default" entry.
var DefaultRateCeilings = map[string]int{
	"offer":         30,
	"answer":        30,
	"ice-candidate": 60,
	"crew-sign-on":  10,
	"crew-sign-off": 10,
	"default":       60,
}

// ClientCredential is a provisioned signaling client. Secret hashes are
// bcrypt; the login endpoint compares the presented secret against the hash.
type ClientCredential struct {
	ClientID   string `yaml:"clientId"`
	Role       string `yaml:"role"`
	SecretHash string `yaml:"secretHash"`
}

// RedisConfig configures the optional state mirror.
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// NATSConfig configures the optional domain event feed.
type NATSConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
}

// Config holds all broker configuration.
type Config struct {
	Port       string `yaml:"port"`
	CORSOrigin string `yaml:"corsOrigin"`

	LogLevel  string `yaml:"logLevel"`
	LogPretty bool   `yaml:"logPretty"`

	// JWTSecret signs and verifies auth tokens (HMAC-SHA256).
	JWTSecret string `yaml:"jwtSecret"`
	// TokenDurationMinutes is the issued token lifetime.
	TokenDurationMinutes int `yaml:"tokenDurationMinutes"`

	SessionTimeoutMs    int64 `yaml:"sessionTimeoutMs"`
	HeartbeatIntervalMs int64 `yaml:"heartbeatIntervalMs"`
	HeartbeatTimeoutMs  int64 `yaml:"heartbeatTimeoutMs"`
	ScanIntervalMs      int64 `yaml:"scanIntervalMs"`

	RateWindowMs int64          `yaml:"rateWindowMs"`
	RateCeilings map[string]int `yaml:"rateCeilings"`

	Redis RedisConfig `yaml:"redis"`
	NATS  NATSConfig  `yaml:"nats"`

	// Clients are provisioned login credentials. A clientId with no entry here
	// falls back to ProvisionSecret: it may log in by presenting it.
	Clients         []ClientCredential `yaml:"clients"`
	ProvisionSecret string             `yaml:"provisionSecret"`
}

// Load reads configuration from the YAML file at path (if non-empty and the
// file exists) and then applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{
		Port:                 "8080",
		CORSOrigin:           "*",
		LogLevel:             "info",
		TokenDurationMinutes: 24 * 60,
		SessionTimeoutMs:     DefaultSessionTimeoutMs,
		HeartbeatIntervalMs:  DefaultHeartbeatIntervalMs,
		HeartbeatTimeoutMs:   DefaultHeartbeatTimeoutMs,
		ScanIntervalMs:       DefaultScanIntervalMs,
		RateWindowMs:         DefaultRateWindowMs,
		RateCeilings:         map[string]int{},
		Redis:                RedisConfig{Host: "localhost", Port: "6379"},
		NATS:                 NATSConfig{URL: "nats://localhost:4222"},
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config file %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if cfg.RateCeilings == nil {
		cfg.RateCeilings = map[string]int{}
	}
	for kind, ceiling := range DefaultRateCeilings {
		if _, ok := cfg.RateCeilings[kind]; !ok {
			cfg.RateCeilings[kind] = ceiling
		}
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Port = getEnv("PORT", c.Port)
	c.CORSOrigin = getEnv("CORS_ORIGIN", c.CORSOrigin)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogPretty = getEnvBool("LOG_PRETTY", c.LogPretty)
	c.JWTSecret = getEnv("JWT_SECRET", c.JWTSecret)
	c.TokenDurationMinutes = getEnvInt("TOKEN_DURATION_MINUTES", c.TokenDurationMinutes)
	c.SessionTimeoutMs = getEnvInt64("SESSION_TIMEOUT_MS", c.SessionTimeoutMs)
	c.HeartbeatIntervalMs = getEnvInt64("HEARTBEAT_INTERVAL_MS", c.HeartbeatIntervalMs)
	c.HeartbeatTimeoutMs = getEnvInt64("HEARTBEAT_TIMEOUT_MS", c.HeartbeatTimeoutMs)
	c.ScanIntervalMs = getEnvInt64("SCAN_INTERVAL_MS", c.ScanIntervalMs)
	c.RateWindowMs = getEnvInt64("RATE_WINDOW_MS", c.RateWindowMs)
	c.Redis.Enabled = getEnvBool("REDIS_ENABLED", c.Redis.Enabled)
	c.Redis.Host = getEnv("REDIS_HOST", c.Redis.Host)
	c.Redis.Port = getEnv("REDIS_PORT", c.Redis.Port)
	c.Redis.Password = getEnv("REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = getEnvInt("REDIS_DB", c.Redis.DB)
	c.NATS.Enabled = getEnvBool("NATS_ENABLED", c.NATS.Enabled)
	c.NATS.URL = getEnv("NATS_URL", c.NATS.URL)
	c.ProvisionSecret = getEnv("PROVISION_SECRET", c.ProvisionSecret)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true"
	}
	return defaultValue
}
