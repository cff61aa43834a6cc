package persistence

import (
	"fmt"
	"strings"
	"time"

	"github.com/erp/replicator/internal/infrastructure/config"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Database holds the database connection and provides methods for database operations
type Database struct {
	DB *gorm.DB
}

// Dialector picks the gorm driver for a store descriptor:
// sqlite://path, sqlite://:memory:, postgres://... or postgresql://...
func Dialector(descriptor string) (gorm.Dialector, error) {
	switch {
	case strings.HasPrefix(descriptor, "sqlite://"):
		path := strings.TrimPrefix(descriptor, "sqlite://")
		if path == "" {
			return nil, fmt.Errorf("sqlite descriptor has no path")
		}
		return sqlite.Open(path), nil
	case strings.HasPrefix(descriptor, "postgres://"), strings.HasPrefix(descriptor, "postgresql://"):
		return postgres.Open(descriptor), nil
	default:
		return nil, fmt.Errorf("unsupported store descriptor")
	}
}

// IsStoreDescriptor reports whether a descriptor addresses a local document store
func IsStoreDescriptor(descriptor string) bool {
	for _, prefix := range []string{"sqlite://", "postgres://", "postgresql://"} {
		if strings.HasPrefix(descriptor, prefix) {
			return true
		}
	}
	return false
}

// NewDatabase opens a database with the given pool configuration
func NewDatabase(dialector gorm.Dialector, cfg *config.DatabaseConfig, gormLogger gormlogger.Interface) (*Database, error) {
	if gormLogger == nil {
		gormLogger = gormlogger.Default.LogMode(gormlogger.Silent)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 gormLogger,
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	if isMemorySQLite(dialector) {
		// every connection to :memory: is a separate database, so keep exactly one forever
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
	} else {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Minute)
		sqlDB.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTime) * time.Minute)
	}

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Database{DB: db}, nil
}

func isMemorySQLite(d gorm.Dialector) bool {
	s, ok := d.(*sqlite.Dialector)
	return ok && strings.Contains(s.DSN, ":memory:")
}

// Close closes the database connection
func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}

// Ping checks if the database connection is alive
func (d *Database) Ping() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Ping()
}
