package database

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/glefebvre/zapper/internal/config"
	"github.com/glefebvre/zapper/internal/logger"
	"github.com/glefebvre/zapper/internal/models"
)

// Supported drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverNone     = "none"
)

// ErrDisabled is returned when persistence is turned off.
var ErrDisabled = errors.New("database disabled")

var db *gorm.DB

// Initialize opens the configured database, runs migrations and keeps the
// connection for Get. With driver "none" it does nothing and Get returns nil.
func Initialize() error {
	cfg := config.Get()
	if cfg.Database.Driver == DriverNone {
		logger.AppLogger().Info("database disabled, settings and history will not be persisted")
		return nil
	}

	conn, err := Open(cfg.Database, cfg.GetDatabaseLogLevel())
	if err != nil {
		return err
	}
	db = conn
	return nil
}

// Open connects to the database described by dbCfg and migrates it.
func Open(dbCfg config.DatabaseConfig, logLevel string) (*gorm.DB, error) {
	dialector, err := dialectorFor(dbCfg)
	if err != nil {
		return nil, err
	}

	conn, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.NewGormAdapter(logger.DatabaseLogger(), logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	if dbCfg.Driver == DriverPostgres {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
		sqlDB.SetConnMaxLifetime(time.Hour)
	} else {
		// sqlite serialises writers
		sqlDB.SetMaxOpenConns(1)
	}

	if err := Migrate(conn); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.AppLogger().WithFields(map[string]interface{}{
		"driver": dbCfg.Driver,
	}).Info("database connected")
	return conn, nil
}

func dialectorFor(dbCfg config.DatabaseConfig) (gorm.Dialector, error) {
	switch dbCfg.Driver {
	case DriverSQLite, "":
		path := dbCfg.Path
		if path == "" {
			path = "./data/zapper.db"
		}
		if path != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		return sqlite.Open(path), nil

	case DriverPostgres:
		dsn := fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			dbCfg.Host,
			dbCfg.Port,
			dbCfg.User,
			dbCfg.Password,
			dbCfg.DBName,
			dbCfg.SSLMode,
		)
		return postgres.Open(dsn), nil

	case DriverNone:
		return nil, ErrDisabled

	default:
		return nil, fmt.Errorf("unsupported database driver: %s", dbCfg.Driver)
	}
}

// Migrate creates or updates the schema.
func Migrate(conn *gorm.DB) error {
	return conn.AutoMigrate(
		&models.Setting{},
		&models.LoadRun{},
	)
}

// Get returns the database instance, nil when disabled or not initialized
func Get() *gorm.DB {
	return db
}

// Set replaces the database instance
func Set(conn *gorm.DB) {
	db = conn
}

// HealthCheck verifies database connectivity
func HealthCheck() error {
	if db == nil {
		return ErrDisabled
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	return nil
}

// Close closes the database connection
func Close() error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	db = nil
	return sqlDB.Close()
}
