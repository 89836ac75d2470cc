// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, ""))
	require.NoError(t, err)

	assert.Equal(t, "", cfg.Host, "Host should be empty by default (bind all)")
	assert.Equal(t, 8417, cfg.Port)
	assert.Equal(t, StoreFile, cfg.Store.Type)
	assert.Equal(t, "integration_kv", cfg.Store.Table)
	assert.False(t, cfg.Heartbeat.Enabled)
	assert.Equal(t, 5*time.Minute, cfg.Heartbeat.Interval)
	assert.Equal(t, 60*time.Second, cfg.ModelTest.Timeout)
	assert.NotEmpty(t, cfg.ModelTest.DefaultPrompt)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_ParsesValues(t *testing.T) {
	path := writeConfig(t, `
host: 127.0.0.1
port: 9000
debug: true
store:
  type: SQLite
  path: data/kv.db
heartbeat:
  enabled: true
  interval: 2m
  timeout: 3s
  max-concurrent-checks: 8
  recheck-on-change: false
  recovery-backoff: 1m
  max-recovery-attempts: 5
model-test:
  timeout: 15s
providers:
  OpenAI:
    base-url: "https://proxy.example.com/v1/"
    headers:
      " X-Team ": " seo "
      "X-Empty": ""
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Host)
	assert.Equal(t, 9000, cfg.Port)
	assert.True(t, cfg.Debug)
	assert.Equal(t, StoreSQLite, cfg.Store.Type)
	assert.Equal(t, "data/kv.db", cfg.Store.Path)
	assert.True(t, cfg.Heartbeat.Enabled)
	assert.Equal(t, 2*time.Minute, cfg.Heartbeat.Interval)
	assert.Equal(t, 3*time.Second, cfg.Heartbeat.Timeout)
	assert.Equal(t, 8, cfg.Heartbeat.MaxConcurrentChecks)
	assert.False(t, cfg.Heartbeat.RecheckOnChange)
	assert.Equal(t, time.Minute, cfg.Heartbeat.RecoveryBackoff)
	assert.Equal(t, 5, cfg.Heartbeat.MaxRecoveryAttempts)
	assert.Equal(t, 15*time.Second, cfg.ModelTest.Timeout)
	assert.Equal(t, "https://proxy.example.com/v1", cfg.ProviderBaseURL("openai"))
	assert.Equal(t, map[string]string{"X-Team": "seo"}, cfg.Providers["openai"].Headers)
}

func TestLoadConfig_HeartbeatMinimums(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, `
heartbeat:
  interval: 1s
  timeout: 10ms
  max-concurrent-checks: 500
  recovery-backoff: 1s
  max-recovery-attempts: -2
`))
	require.NoError(t, err)

	assert.Equal(t, minHeartbeatInterval, cfg.Heartbeat.Interval)
	assert.Equal(t, minHeartbeatTimeout, cfg.Heartbeat.Timeout)
	assert.Equal(t, maxConcurrentChecks, cfg.Heartbeat.MaxConcurrentChecks)
	assert.Equal(t, minRecoveryBackoff, cfg.Heartbeat.RecoveryBackoff)
	assert.Equal(t, 3, cfg.Heartbeat.MaxRecoveryAttempts)
	assert.True(t, cfg.Heartbeat.RecheckOnChange)
}

func TestLoadConfig_HashesManagementKey(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, `
remote-management:
  secret-key: "let-me-in"
`))
	require.NoError(t, err)

	assert.True(t, looksLikeBcrypt(cfg.RemoteManagement.SecretKey))
	assert.True(t, cfg.VerifyManagementKey("let-me-in"))
	assert.False(t, cfg.VerifyManagementKey("wrong"))
	assert.False(t, cfg.VerifyManagementKey(""))
}

func TestVerifyManagementKey_NoSecret(t *testing.T) {
	cfg := Default()
	assert.True(t, cfg.VerifyManagementKey(""))
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("INTEGRATIONHUB_PORT", "7001")
	t.Setenv("INTEGRATIONHUB_STORE", "postgres")
	t.Setenv("PGSTORE_DSN", "postgres://hub@localhost/hub")
	t.Setenv("INTEGRATIONHUB_ENCRYPTION_KEY", "c2VjcmV0LWtleS0xMjM0NQ==")

	cfg, err := LoadConfig(writeConfig(t, "port: 9000\n"))
	require.NoError(t, err)

	assert.Equal(t, 7001, cfg.Port)
	assert.Equal(t, StorePostgres, cfg.Store.Type)
	assert.Equal(t, "postgres://hub@localhost/hub", cfg.Store.DSN)
	assert.Equal(t, "c2VjcmV0LWtleS0xMjM0NQ==", cfg.EncryptionKey)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigOptional_MissingFile(t *testing.T) {
	cfg, err := LoadConfigOptional(filepath.Join(t.TempDir(), "absent.yaml"), true)
	require.NoError(t, err)
	assert.Equal(t, 8417, cfg.Port)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "port: [unterminated"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"default", func(*Config) {}, false},
		{"bad port", func(c *Config) { c.Port = 0 }, true},
		{"unknown store", func(c *Config) { c.Store.Type = "etcd" }, true},
		{"postgres without dsn", func(c *Config) { c.Store.Type = StorePostgres }, true},
		{"redis without addr", func(c *Config) { c.Store.Type = StoreRedis; c.Store.Redis.Addr = "" }, true},
		{"object without bucket", func(c *Config) { c.Store.Type = StoreObject; c.Store.Object.Endpoint = "s3:9000" }, true},
		{"object complete", func(c *Config) {
			c.Store.Type = StoreObject
			c.Store.Object.Endpoint = "s3:9000"
			c.Store.Object.Bucket = "hub"
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
