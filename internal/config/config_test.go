package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("should use defaults when file is missing", func(t *testing.T) {
		cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))

		require.NoError(t, err)
		assert.Equal(t, "HS256", cfg.Auth.JwtAlgo)
		assert.Equal(t, 5432, cfg.Database.Port)
		assert.Equal(t, int32(20), cfg.Database.MaxConns)
		assert.Equal(t, 10*time.Second, cfg.Database.ConnectTimeout)
		assert.Equal(t, 0, cfg.Limits.CalendarConnections)
		assert.Equal(t, 5*time.Minute, cfg.Booking.ReservationTTL)
	})

	t.Run("should read yaml file and let env override it", func(t *testing.T) {
		// given
		path := filepath.Join(t.TempDir(), "application.yaml")
		content := "auth:\n  jwtsecret: from-file\n  adminallowlist: \"@example.org, boss@corp.io\"\nlimits:\n  calendarconnections: 3\n"
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
		t.Setenv("BOOKSLOT_LIMITS_CALENDARCONNECTIONS", "7")
		t.Setenv("BOOKSLOT_DB_MAXCONNS", "5")

		// when
		cfg, err := Load(path)

		// then
		require.NoError(t, err)
		assert.Equal(t, "from-file", cfg.Auth.JwtSecret)
		assert.Equal(t, 7, cfg.Limits.CalendarConnections)
		assert.Equal(t, int32(5), cfg.Database.MaxConns)
		assert.Equal(t, []string{"@example.org", "boss@corp.io"}, cfg.Auth.AdminEmails())
	})
}

func TestAdminEmails_Empty(t *testing.T) {
	assert.Empty(t, Auth{}.AdminEmails())
	assert.Empty(t, Auth{AdminAllowList: " , "}.AdminEmails())
}
