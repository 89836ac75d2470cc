// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package config provides configuration management for the integration hub.
// It handles loading and parsing YAML configuration files, applies defaults and
// environment overrides, and exposes structured access to server, storage,
// health monitoring and model test settings.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/traylinx/integrationhub/internal/secret"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

// Store backend identifiers accepted by StoreConfig.Type.
const (
	StoreMemory   = "memory"
	StoreFile     = "file"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
	StoreObject   = "object"
)

// Config represents the application's configuration, loaded from a YAML file.
type Config struct {
	// Host is the network interface the management API binds to. Empty binds all interfaces.
	Host string `yaml:"host" json:"-"`
	// Port is the network port the management API listens on.
	Port int `yaml:"port" json:"-"`

	// StateDir is the root of all mutable data. Empty falls back to INTEGRATIONHUB_STATE_DIR.
	StateDir string `yaml:"state-dir" json:"-"`

	// Debug enables debug-level logging and gin debug mode.
	Debug bool `yaml:"debug" json:"debug"`

	// LoggingToFile writes logs to rotating files under the state box instead of stdout.
	LoggingToFile bool `yaml:"logging-to-file" json:"logging-to-file"`

	// LogMaxSizeMB is the size at which the active log file is rotated.
	LogMaxSizeMB int `yaml:"log-max-size-mb" json:"log-max-size-mb"`

	// LogMaxBackups is the number of rotated files kept. Zero keeps all.
	LogMaxBackups int `yaml:"log-max-backups" json:"log-max-backups"`

	// RemoteManagement controls access to the management API.
	RemoteManagement RemoteManagement `yaml:"remote-management" json:"-"`

	// EncryptionKey is a base64 AES key used to seal credentials at rest. Empty stores them as-is.
	EncryptionKey string `yaml:"encryption-key" json:"-"`

	// Store selects and configures the key-value backend.
	Store StoreConfig `yaml:"store" json:"store"`

	// Heartbeat configures background health checks of registry entries.
	Heartbeat HeartbeatConfig `yaml:"heartbeat" json:"heartbeat"`

	// ModelTest configures the model test orchestrator.
	ModelTest ModelTestConfig `yaml:"model-test" json:"model-test"`

	// Providers overrides per-provider endpoints, keyed by provider kind.
	Providers map[string]ProviderConfig `yaml:"providers" json:"providers"`
}

// RemoteManagement holds management API configuration under 'remote-management'.
type RemoteManagement struct {
	// AllowRemote toggles remote (non-localhost) access to the management API.
	AllowRemote bool `yaml:"allow-remote"`
	// SecretKey is the management key (plaintext or bcrypt hashed). Plaintext is hashed on load.
	SecretKey string `yaml:"secret-key"`
}

// StoreConfig selects the key-value backend used by the registry.
type StoreConfig struct {
	// Type is one of memory, file, sqlite, postgres, redis, object.
	Type string `yaml:"type" json:"type"`
	// Path is the SQLite database file, resolved against the state box when relative.
	Path string `yaml:"path" json:"path"`
	// DSN is the Postgres connection string.
	DSN string `yaml:"dsn" json:"-"`
	// Table is the SQL table name.
	Table string `yaml:"table" json:"table"`
	// Redis configures the redis backend.
	Redis RedisConfig `yaml:"redis" json:"redis"`
	// Object configures the S3-compatible backend.
	Object ObjectStoreConfig `yaml:"object" json:"object"`
}

// RedisConfig configures the redis backend.
type RedisConfig struct {
	Addr      string `yaml:"addr" json:"addr"`
	Password  string `yaml:"password" json:"-"`
	DB        int    `yaml:"db" json:"db"`
	Namespace string `yaml:"namespace" json:"namespace"`
}

// ObjectStoreConfig configures an S3-compatible bucket used as the backend.
type ObjectStoreConfig struct {
	Endpoint  string `yaml:"endpoint" json:"endpoint"`
	Bucket    string `yaml:"bucket" json:"bucket"`
	AccessKey string `yaml:"access-key" json:"-"`
	SecretKey string `yaml:"secret-key" json:"-"`
	Region    string `yaml:"region" json:"region"`
	UseSSL    bool   `yaml:"use-ssl" json:"use-ssl"`
	Prefix    string `yaml:"prefix" json:"prefix"`
}

// ProviderConfig overrides the defaults of one provider kind.
type ProviderConfig struct {
	BaseURL string            `yaml:"base-url" json:"base-url"`
	Headers map[string]string `yaml:"headers" json:"headers"`
}

// LoadConfig reads YAML from configFile and applies defaults and env overrides.
func LoadConfig(configFile string) (*Config, error) {
	return LoadConfigOptional(configFile, false)
}

// LoadConfigOptional reads YAML from configFile.
// If optional is true and the file is missing, defaults are returned.
func LoadConfigOptional(configFile string, optional bool) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(configFile)
	if err != nil {
		if !optional || !(os.IsNotExist(err) || errors.Is(err, syscall.EISDIR)) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		data = nil
	}

	if len(data) > 0 {
		if err = yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnv()

	// Hash remote management key if plaintext is detected.
	if cfg.RemoteManagement.SecretKey != "" && !looksLikeBcrypt(cfg.RemoteManagement.SecretKey) {
		hashed, errHash := hashSecret(cfg.RemoteManagement.SecretKey)
		if errHash != nil {
			return nil, fmt.Errorf("failed to hash remote management key: %w", errHash)
		}
		cfg.RemoteManagement.SecretKey = hashed
	}

	cfg.Sanitize()
	return cfg, nil
}

// Default returns a configuration with every default applied.
func Default() *Config {
	return &Config{
		Port:          8417,
		LogMaxSizeMB:  10,
		LogMaxBackups: 5,
		Store: StoreConfig{
			Type:  StoreFile,
			Path:  "registry.db",
			Table: "integration_kv",
			Redis: RedisConfig{Addr: "127.0.0.1:6379", Namespace: "integrationhub:"},
		},
		Heartbeat: HeartbeatConfig{
			Enabled:             false,
			Interval:            5 * time.Minute,
			Timeout:             5 * time.Second,
			MaxConcurrentChecks: 4,
			RecheckOnChange:     true,
			RecoveryBackoff:     30 * time.Second,
			MaxRecoveryAttempts: 3,
		},
		ModelTest: ModelTestConfig{
			Timeout:       60 * time.Second,
			DefaultPrompt: "This is a test. Reply with just 'OK'.",
		},
	}
}

// applyEnv lets environment variables override file values. Secrets are
// expected to arrive this way rather than being committed in YAML.
func (cfg *Config) applyEnv() {
	if v := secret.GetEnv("INTEGRATIONHUB_PORT", ""); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Port = port
		}
	}
	if v := secret.GetEnv("INTEGRATIONHUB_STORE", ""); v != "" {
		cfg.Store.Type = v
	}
	if v := secret.PostgresDSN(); v != "" {
		cfg.Store.DSN = v
	}
	if v := secret.EncryptionKey(); v != "" {
		cfg.EncryptionKey = v
	}
	if v := secret.ManagementKey(); v != "" {
		cfg.RemoteManagement.SecretKey = v
	}
	if v := secret.ObjectStoreAccessKey(); v != "" {
		cfg.Store.Object.AccessKey = v
	}
	if v := secret.ObjectStoreSecretKey(); v != "" {
		cfg.Store.Object.SecretKey = v
	}
	if v := secret.RedisPassword(); v != "" {
		cfg.Store.Redis.Password = v
	}
}

// Sanitize normalizes values after load.
func (cfg *Config) Sanitize() {
	cfg.Host = strings.TrimSpace(cfg.Host)
	cfg.Store.Type = strings.ToLower(strings.TrimSpace(cfg.Store.Type))
	if cfg.Store.Type == "" {
		cfg.Store.Type = StoreFile
	}
	if strings.TrimSpace(cfg.Store.Table) == "" {
		cfg.Store.Table = "integration_kv"
	}
	if cfg.LogMaxSizeMB <= 0 {
		cfg.LogMaxSizeMB = 10
	}
	if cfg.LogMaxBackups < 0 {
		cfg.LogMaxBackups = 0
	}
	cfg.Heartbeat.sanitize()
	cfg.ModelTest.sanitize()
	cfg.Providers = normalizeProviders(cfg.Providers)
}

// Validate reports configuration errors that would prevent startup.
func (cfg *Config) Validate() error {
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return fmt.Errorf("invalid port %d", cfg.Port)
	}
	switch cfg.Store.Type {
	case StoreMemory, StoreFile, StoreSQLite:
	case StorePostgres:
		if cfg.Store.DSN == "" {
			return errors.New("store.dsn is required for the postgres store")
		}
	case StoreRedis:
		if cfg.Store.Redis.Addr == "" {
			return errors.New("store.redis.addr is required for the redis store")
		}
	case StoreObject:
		if cfg.Store.Object.Endpoint == "" || cfg.Store.Object.Bucket == "" {
			return errors.New("store.object.endpoint and store.object.bucket are required for the object store")
		}
	default:
		return fmt.Errorf("unknown store type %q", cfg.Store.Type)
	}
	return nil
}

// VerifyManagementKey reports whether key matches the configured management secret.
// It returns true when no secret is configured.
func (cfg *Config) VerifyManagementKey(key string) bool {
	hash := cfg.RemoteManagement.SecretKey
	if hash == "" {
		return true
	}
	if key == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(key)) == nil
}

// ProviderBaseURL returns the configured base URL override for kind, if any.
func (cfg *Config) ProviderBaseURL(kind string) string {
	if cfg == nil {
		return ""
	}
	return cfg.Providers[strings.ToLower(strings.TrimSpace(kind))].BaseURL
}

func normalizeProviders(entries map[string]ProviderConfig) map[string]ProviderConfig {
	if len(entries) == 0 {
		return nil
	}
	out := make(map[string]ProviderConfig, len(entries))
	for kind, pc := range entries {
		key := strings.ToLower(strings.TrimSpace(kind))
		if key == "" {
			continue
		}
		pc.BaseURL = strings.TrimRight(strings.TrimSpace(pc.BaseURL), "/")
		pc.Headers = NormalizeHeaders(pc.Headers)
		out[key] = pc
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// looksLikeBcrypt returns true if the provided string appears to be a bcrypt hash.
func looksLikeBcrypt(s string) bool {
	return len(s) > 4 && (s[:4] == "$2a$" || s[:4] == "$2b$" || s[:4] == "$2y$")
}

// NormalizeHeaders trims header keys and values and removes empty pairs.
func NormalizeHeaders(headers map[string]string) map[string]string {
	if len(headers) == 0 {
		return nil
	}
	clean := make(map[string]string, len(headers))
	for k, v := range headers {
		key := strings.TrimSpace(k)
		val := strings.TrimSpace(v)
		if key == "" || val == "" {
			continue
		}
		clean[key] = val
	}
	if len(clean) == 0 {
		return nil
	}
	return clean
}

func hashSecret(secret string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashedBytes), nil
}
