package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
server:
  listen_addr: ":9000"
  admin_token: "${TEST_ADMIN_TOKEN}"

database:
  path: "${TEST_DATA_DIR}/test.db"

rules:
  path: "rules.yaml"
  reload_interval_seconds: 60

backup:
  enabled: true
  interval_hours: 12
  retention_days: 7

rate_limit:
  max_requests: 10
  window_minutes: 5

smtp:
  enabled: true
  host: "smtp.example.com"
  port: 587
  admin_email: "owner@example.com"

telegram:
  enabled: true
  managers:
    - 42

monitoring:
  health_check_port: 8091
  prometheus_enabled: true
  prometheus_port: 9091

sweep:
  interval_minutes: 5
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	t.Setenv("TEST_ADMIN_TOKEN", "s3cret")
	dataDir := t.TempDir()
	t.Setenv("TEST_DATA_DIR", dataDir)

	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.ListenAddr)
	assert.Equal(t, "s3cret", cfg.Server.AdminToken)
	assert.Equal(t, filepath.Join(dataDir, "test.db"), cfg.Database.Path)
	assert.Equal(t, "rules.yaml", cfg.Rules.Path)
	assert.Equal(t, 60*time.Second, cfg.RulesReloadInterval())
	assert.Equal(t, 12*time.Hour, cfg.BackupInterval())
	assert.Equal(t, 10, cfg.RateLimitMax())
	assert.Equal(t, 5*time.Minute, cfg.RateLimitWindow())
	assert.Equal(t, 5*time.Minute, cfg.SweepInterval())
	assert.True(t, cfg.SMTP.Enabled)
	assert.Equal(t, []int64{42}, cfg.Telegram.Managers)
	assert.Equal(t, 8091, cfg.Monitoring.HealthCheckPort)
}

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir()) // default database path creates its directory

	cfg, err := Load(writeConfig(t, "server: {}\n"))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.ListenAddr)
	assert.Equal(t, "data/antigravity.db", cfg.Database.Path)
	assert.Equal(t, "configs/rules.yaml", cfg.Rules.Path)
	assert.Equal(t, 30*time.Second, cfg.RulesReloadInterval())
	assert.Equal(t, 24*time.Hour, cfg.BackupInterval())
	assert.Equal(t, 30, cfg.RateLimitMax())
	assert.Equal(t, 15*time.Minute, cfg.RateLimitWindow())
	assert.Equal(t, 15*time.Minute, cfg.SweepInterval())
	assert.False(t, cfg.Redis.Enabled)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestLoadInvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "server: [not a map\n"))
	require.Error(t, err)
}
