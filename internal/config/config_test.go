package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ADMIN_CODE", "s3cret")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "8081", cfg.HTTPPort)
	assert.Equal(t, "sqlite3", cfg.StoreDriver)
	assert.Equal(t, "Asia/Bangkok", cfg.TimeZone)
	assert.Equal(t, 8, cfg.CutoffHour)
	assert.Equal(t, 35, cfg.CutoffMinute)
	assert.Equal(t, 12*time.Hour, cfg.AdminTTL)
	assert.True(t, cfg.WalkUpRequiresAdmin)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.False(t, cfg.Production())

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Bangkok", loc.String())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("ADMIN_CODE", "s3cret")
	t.Setenv("APP_ENV", "production")
	t.Setenv("STORE_DRIVER", "PGX")
	t.Setenv("DATABASE_URL", "postgres://u:p@db/attendance")
	t.Setenv("CUTOFF_HOUR", "9")
	t.Setenv("CUTOFF_MINUTE", "0")
	t.Setenv("ADMIN_TTL", "30m")
	t.Setenv("WALKUP_REQUIRES_ADMIN", "false")
	t.Setenv("ALLOWED_ORIGINS", "https://a.test, https://b.test ,")
	t.Setenv("TIME_ZONE", "UTC")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.True(t, cfg.Production())
	assert.Equal(t, "pgx", cfg.StoreDriver)
	assert.Equal(t, 9, cfg.CutoffHour)
	assert.Equal(t, 0, cfg.CutoffMinute)
	assert.Equal(t, 30*time.Minute, cfg.AdminTTL)
	assert.False(t, cfg.WalkUpRequiresAdmin)
	assert.Equal(t, []string{"https://a.test", "https://b.test"}, cfg.AllowedOrigins)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "attendance.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ADMIN_CODE: from-file\nHTTP_PORT: \"9000\"\nCUTOFF_MINUTE: 45\n"), 0o600))
	t.Setenv("HTTP_PORT", "9100")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.AdminCode)
	assert.Equal(t, "9100", cfg.HTTPPort, "environment wins over the file")
	assert.Equal(t, 45, cfg.CutoffMinute)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := map[string]map[string]string{
		"no admin code":    {},
		"bad cutoff hour":  {"ADMIN_CODE": "x", "CUTOFF_HOUR": "24"},
		"bad minute":       {"ADMIN_CODE": "x", "CUTOFF_MINUTE": "60"},
		"unknown driver":   {"ADMIN_CODE": "x", "STORE_DRIVER": "mysql"},
		"short key":        {"ADMIN_CODE": "x", "TOKEN_SIGNING_KEY": "short"},
		"unknown timezone": {"ADMIN_CODE": "x", "TIME_ZONE": "Mars/Olympus"},
	}
	for name, env := range tests {
		t.Run(name, func(t *testing.T) {
			t.Setenv("ADMIN_CODE", "")
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load("")
			assert.Error(t, err)
		})
	}
}

func TestCutoff(t *testing.T) {
	t.Setenv("ADMIN_CODE", "s3cret")
	t.Setenv("CUTOFF_HOUR", "7")
	t.Setenv("CUTOFF_MINUTE", "5")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "07:05", cfg.Cutoff().String())

	t.Setenv("CUTOFF_HOUR", "-1")
	_, err = Load("")
	assert.ErrorContains(t, err, "cutoff hour -1 out of range")

	t.Setenv("CUTOFF_HOUR", "8")
	t.Setenv("CUTOFF_MINUTE", "60")
	_, err = Load("")
	assert.ErrorContains(t, err, "cutoff minute 60 out of range")
}

func TestAdminCodeHashSatisfiesRequirement(t *testing.T) {
	t.Setenv("ADMIN_CODE", "")
	t.Setenv("ADMIN_CODE_HASH", "$2a$10$abcdefghijklmnopqrstuv")
	_, err := Load("")
	assert.NoError(t, err)
}
