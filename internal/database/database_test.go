package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glefebvre/zapper/internal/config"
	"github.com/glefebvre/zapper/internal/models"
)

func TestOpenSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "zapper.db")

	conn, err := Open(config.DatabaseConfig{Driver: DriverSQLite, Path: path}, "silent")
	require.NoError(t, err)

	assert.True(t, conn.Migrator().HasTable(&models.Setting{}))
	assert.True(t, conn.Migrator().HasTable(&models.LoadRun{}))

	sqlDB, err := conn.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())
}

func TestOpenUnsupportedDriver(t *testing.T) {
	_, err := Open(config.DatabaseConfig{Driver: "mysql"}, "silent")
	assert.Error(t, err)

	_, err = Open(config.DatabaseConfig{Driver: DriverNone}, "silent")
	assert.ErrorIs(t, err, ErrDisabled)
}

func TestInitializeDisabled(t *testing.T) {
	cfg := config.Defaults()
	cfg.Database.Driver = DriverNone
	config.Set(cfg)
	t.Cleanup(func() { config.Set(nil) })

	require.NoError(t, Initialize())
	assert.Nil(t, Get())
	assert.ErrorIs(t, HealthCheck(), ErrDisabled)
	assert.NoError(t, Close())
}

func TestInitializeSQLite(t *testing.T) {
	cfg := config.Defaults()
	cfg.Database.Driver = DriverSQLite
	cfg.Database.Path = filepath.Join(t.TempDir(), "zapper.db")
	config.Set(cfg)
	t.Cleanup(func() {
		config.Set(nil)
		_ = Close()
	})

	require.NoError(t, Initialize())
	require.NotNil(t, Get())
	assert.NoError(t, HealthCheck())
}
