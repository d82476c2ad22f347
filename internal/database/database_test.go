package database

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bookslot/bookslot/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectionUrl(t *testing.T) {
	t.Run("should escape credentials and select the schema", func(t *testing.T) {
		cfg := config.Database{Host: "db", Port: 5433, User: "bookslot", Pass: "p@ss'word", Name: "bookslot", Schema: "booking"}

		got := connectionUrl(cfg)

		assert.Equal(t, "postgres://bookslot:p%40ss'word@db:5433/bookslot?search_path=booking&sslmode=disable", got)
	})

	t.Run("should keep a configured ssl mode", func(t *testing.T) {
		got := connectionUrl(config.Database{Host: "db", Port: 5432, Name: "bookslot", SSLMode: "require"})

		assert.Contains(t, got, "sslmode=require")
	})
}

func TestPoolConfig(t *testing.T) {
	t.Run("should apply configured pool limits", func(t *testing.T) {
		// given
		cfg := config.Database{
			Host: "db", Port: 5432, User: "bookslot", Name: "bookslot", Schema: "bookslot",
			MaxConns: 8, MinConns: 2, MaxConnLifetime: 30 * time.Minute, ConnectTimeout: 3 * time.Second,
		}

		// when
		pc, err := poolConfig(cfg)

		// then
		require.NoError(t, err)
		assert.Equal(t, int32(8), pc.MaxConns)
		assert.Equal(t, int32(2), pc.MinConns)
		assert.Equal(t, 30*time.Minute, pc.MaxConnLifetime)
		assert.Equal(t, 3*time.Second, pc.ConnConfig.ConnectTimeout)
		assert.Equal(t, "bookslot", pc.ConnConfig.RuntimeParams["search_path"])
	})

	t.Run("should ignore a minimum above the maximum", func(t *testing.T) {
		pc, err := poolConfig(config.Database{Host: "db", Port: 5432, Name: "bookslot", MaxConns: 4, MinConns: 10})

		require.NoError(t, err)
		assert.Equal(t, int32(4), pc.MaxConns)
		assert.Equal(t, int32(0), pc.MinConns)
		assert.Equal(t, 10*time.Second, pc.ConnConfig.ConnectTimeout)
	})
}

func TestMigrationsDir(t *testing.T) {
	t.Run("should find the repository migrations from a package directory", func(t *testing.T) {
		dir, err := migrationsDir(config.Database{})

		require.NoError(t, err)
		_, err = os.Stat(filepath.Join(dir, "000001_init.up.sql"))
		assert.NoError(t, err)
	})

	t.Run("should prefer the configured directory", func(t *testing.T) {
		configured := t.TempDir()

		dir, err := migrationsDir(config.Database{MigrationsDir: configured})

		require.NoError(t, err)
		assert.Equal(t, configured, dir)
	})
}
