package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  port: 9090
  mode: debug
  max_upload_bytes: 1048576
database:
  driver: sqlite
  path: /tmp/recon.db
reconcile:
  date_window_days: 3
  auto_schedule: "0 3 * * *"
registry:
  url: http://registry.local/check
  timeout: 2s
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Server.Mode)
	assert.Equal(t, int64(1<<20), cfg.Server.MaxUploadBytes)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "/tmp/recon.db", cfg.Database.Path)
	assert.Equal(t, 3, cfg.Reconcile.DateWindowDays)
	assert.Equal(t, "0 3 * * *", cfg.Reconcile.AutoSchedule)
	assert.Equal(t, 2*time.Second, cfg.Registry.Timeout)
	assert.Equal(t, ":9090", cfg.Addr())
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 5, cfg.Reconcile.DateWindowDays)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, int64(32<<20), cfg.Server.MaxUploadBytes)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("RECON_SERVER_PORT", "7000")
	t.Setenv("RECON_DATABASE_DRIVER", "sqlite")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
}

func TestLoad_RejectsNegativeWindow(t *testing.T) {
	t.Setenv("RECON_RECONCILE_DATE_WINDOW_DAYS", "-1")

	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoad_RejectsZeroUploadLimit(t *testing.T) {
	t.Setenv("RECON_SERVER_MAX_UPLOAD_BYTES", "0")

	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
