package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/traylinx/integrationhub/internal/config"
	"github.com/traylinx/integrationhub/internal/logging"
	"github.com/traylinx/integrationhub/internal/registry"
	"github.com/traylinx/integrationhub/internal/util"
)

func TestParseHeartbeatCommand(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    *HeartbeatOptions
		wantErr bool
	}{
		{"missing", nil, nil, true},
		{"status", []string{"status"}, &HeartbeatOptions{Command: HeartbeatStatus, Timeout: 30 * time.Second}, false},
		{"status with timeout", []string{"status", "-timeout", "5s"}, &HeartbeatOptions{Command: HeartbeatStatus, Timeout: 5 * time.Second}, false},
		{"check", []string{"check", "abc"}, &HeartbeatOptions{Command: HeartbeatCheck, APIID: "abc", Timeout: 30 * time.Second}, false},
		{"check without id", []string{"check"}, nil, true},
		{"unknown", []string{"quota"}, nil, true},
		{"bad timeout", []string{"status", "-timeout", "0s"}, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseHeartbeatCommand(tt.args)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func newTestHub(t *testing.T) (*hub, *httptest.Server) {
	t.Helper()
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer sk-good" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	t.Cleanup(upstream.Close)

	cfg := config.Default()
	cfg.Store.Type = config.StoreMemory
	sb, err := util.NewStateBox(t.TempDir())
	require.NoError(t, err)

	h, err := openHub(context.Background(), cfg, sb)
	require.NoError(t, err)
	t.Cleanup(h.Close)
	return h, upstream
}

func TestRunHeartbeat_Status(t *testing.T) {
	h, upstream := newTestHub(t)
	ctx := context.Background()

	var out bytes.Buffer
	code := runHeartbeat(ctx, h.registry, h.monitor, &HeartbeatOptions{Command: HeartbeatStatus, Timeout: time.Second}, &out)
	assert.Equal(t, 0, code)
	assert.Contains(t, out.String(), "No integrations registered")

	_, err := h.registry.Add(ctx, "Good", "sk-good", registry.WithBaseURL(upstream.URL))
	require.NoError(t, err)
	out.Reset()
	code = runHeartbeat(ctx, h.registry, h.monitor, &HeartbeatOptions{Command: HeartbeatStatus, Timeout: time.Second}, &out)
	assert.Equal(t, 0, code)
	assert.Contains(t, out.String(), "Good")
	assert.Contains(t, out.String(), "healthy")

	_, err = h.registry.Add(ctx, "Bad", "sk-bad", registry.WithBaseURL(upstream.URL))
	require.NoError(t, err)
	out.Reset()
	code = runHeartbeat(ctx, h.registry, h.monitor, &HeartbeatOptions{Command: HeartbeatStatus, Timeout: time.Second}, &out)
	assert.Equal(t, 1, code)
	assert.Contains(t, out.String(), "Authentication failed")
}

func TestRunHeartbeat_Check(t *testing.T) {
	h, upstream := newTestHub(t)
	ctx := context.Background()

	entry, err := h.registry.Add(ctx, "Good", "sk-good", registry.WithBaseURL(upstream.URL))
	require.NoError(t, err)

	var out bytes.Buffer
	code := runHeartbeat(ctx, h.registry, h.monitor, &HeartbeatOptions{Command: HeartbeatCheck, APIID: entry.ID}, &out)
	assert.Equal(t, 0, code)

	got, err := h.registry.Get(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, registry.StatusHealthy, got.Status)
	assert.NotNil(t, got.LastCheckedAt)

	out.Reset()
	code = runHeartbeat(ctx, h.registry, h.monitor, &HeartbeatOptions{Command: HeartbeatCheck, APIID: "missing"}, &out)
	assert.Equal(t, 1, code)
	assert.Contains(t, out.String(), "Error:")
}

func TestOpenHub_RejectsBadKey(t *testing.T) {
	cfg := config.Default()
	cfg.Store.Type = config.StoreMemory
	cfg.EncryptionKey = "not-base64!!"
	sb, err := util.NewStateBox(t.TempDir())
	require.NoError(t, err)

	_, err = openHub(context.Background(), cfg, sb)
	assert.Error(t, err)
}

func TestHub_ApplyConfigTogglesMonitor(t *testing.T) {
	h, _ := newTestHub(t)
	ctx := context.Background()

	cfg := config.Default()
	cfg.Heartbeat.Enabled = true
	cfg.Heartbeat.Interval = time.Hour
	h.applyConfig(ctx, cfg)
	assert.True(t, h.monitor.Running())
	assert.True(t, h.changes.Running(), "recheck-on-change is on by default")

	cfg.Heartbeat.RecheckOnChange = false
	h.applyConfig(ctx, cfg)
	assert.True(t, h.monitor.Running())
	assert.False(t, h.changes.Running())

	cfg.Heartbeat.RecheckOnChange = true
	h.applyConfig(ctx, cfg)
	assert.True(t, h.changes.Running())

	cfg.Heartbeat.Enabled = false
	h.applyConfig(ctx, cfg)
	assert.False(t, h.monitor.Running())
	assert.False(t, h.changes.Running())
}

func TestRunHeartbeatCLI_ClosesLogFile(t *testing.T) {
	sb, err := util.NewStateBox(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, logging.ConfigureLogOutput(sb, logging.OutputOptions{ToFile: true}))
	require.NotEmpty(t, logging.LogFilePath())

	var out bytes.Buffer
	code := runHeartbeatCLI(config.Default(), sb, []string{"bogus"}, &out)

	assert.Equal(t, 2, code)
	assert.Contains(t, out.String(), "unknown command")
	assert.Empty(t, logging.LogFilePath())
}
