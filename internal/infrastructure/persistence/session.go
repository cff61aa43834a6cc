package persistence

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"github.com/erp/replicator/internal/domain/replication"
	"github.com/erp/replicator/internal/infrastructure/config"
	"github.com/erp/replicator/internal/infrastructure/logger"
	"github.com/erp/replicator/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// ConnectorConfig configures how the local store is opened
type ConnectorConfig struct {
	Database config.DatabaseConfig
	Tracing  telemetry.DBTracingConfig
	LogLevel string // gorm log level: silent, error, warn, info
}

// Connector opens a local document store. It implements replication.Connector.
type Connector struct {
	cfg    ConnectorConfig
	logger *zap.Logger
}

var _ replication.Connector = (*Connector)(nil)

// NewConnector creates a new Connector
func NewConnector(cfg ConnectorConfig, logger *zap.Logger) *Connector {
	return &Connector{cfg: cfg, logger: logger}
}

// Connect opens the store addressed by descriptor. Failures are returned as *replication.ConnectError.
func (c *Connector) Connect(ctx context.Context, descriptor string) (replication.Session, error) {
	target := redactStore(descriptor)
	s, err := c.open(ctx, descriptor)
	if err != nil {
		return nil, &replication.ConnectError{Target: target, Err: err}
	}
	c.logger.Info("connected to document store", zap.String("target", target))
	return s, nil
}

func (c *Connector) open(ctx context.Context, descriptor string) (*Session, error) {
	dialector, err := Dialector(descriptor)
	if err != nil {
		return nil, err
	}

	gormLog := logger.NewGormLogger(c.logger, logger.MapGormLogLevel(c.cfg.LogLevel),
		logger.WithSlowThreshold(c.cfg.Tracing.SlowQueryThresh))
	db, err := NewDatabase(dialector, &c.cfg.Database, gormLog)
	if err != nil {
		return nil, err
	}

	if c.cfg.Tracing.Enabled {
		if err := telemetry.NewDBTracingPlugin(c.cfg.Tracing, c.logger).Register(db.DB); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to register database tracing: %w", err)
		}
	}

	store := NewDocumentStore(db.DB, c.logger)
	if c.cfg.Database.AutoMigrate {
		if err := store.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return &Session{db: db, store: store, logger: c.logger}, nil
}

// Session is an open local store
type Session struct {
	db     *Database
	store  *DocumentStore
	logger *zap.Logger

	closeOnce sync.Once
	closeErr  error
}

var _ replication.Session = (*Session)(nil)

// DataAPI returns the store's data API
func (s *Session) DataAPI() replication.DataAPI {
	return s.store
}

// Store returns the underlying document store
func (s *Session) Store() *DocumentStore {
	return s.store
}

// Ping checks the database connection
func (s *Session) Ping(_ context.Context) error {
	return s.db.Ping()
}

// Close closes the database. It is safe to call more than once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.db.Close()
		if s.closeErr == nil {
			s.logger.Info("document store closed")
		}
	})
	return s.closeErr
}

// redactStore strips credentials from postgres descriptors
func redactStore(descriptor string) string {
	u, err := url.Parse(descriptor)
	if err != nil {
		return "<invalid descriptor>"
	}
	return u.Redacted()
}
