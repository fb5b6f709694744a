// Package gormstore provides the identity store's relational persistence on gorm,
// backed by SQLite for single-node deployments and PostgreSQL otherwise.
package gormstore

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/turtacn/perimeter/internal/config"
	"github.com/turtacn/perimeter/internal/domain/models"
	"github.com/turtacn/perimeter/pkg/errors"
	"github.com/turtacn/perimeter/pkg/logger"
)

// DBConnection owns the gorm handle and its connection pool.
type DBConnection struct {
	db     *gorm.DB
	logger logger.Logger
}

// NewDBConnection opens the configured database, applies pool settings and
// verifies connectivity.
func NewDBConnection(ctx context.Context, cfg *config.DatabaseConfig, log logger.Logger) (*DBConnection, error) {
	if cfg == nil {
		return nil, errors.ErrInvalidConfig.WithMessage("database config is required")
	}

	var dialector gorm.Dialector
	switch cfg.Driver {
	case "", "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, errors.ErrInvalidConfig.WithMessage(fmt.Sprintf("unsupported database driver %q", cfg.Driver))
	}

	log.Info(ctx, "Opening identity store database", logger.String("driver", driverName(cfg.Driver)))

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		log.Error(ctx, "Failed to open database", err)
		return nil, errors.ErrServiceUnavailable.WithMessage("failed to open database").WithCause(err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.ErrServiceUnavailable.WithMessage("failed to access connection pool").WithCause(err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.MaxConnLifetime > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.MaxConnLifetime) * time.Minute)
	}

	conn := &DBConnection{db: db, logger: log}
	if err := conn.Ping(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return conn, nil
}

// DB returns the gorm handle for repositories.
func (c *DBConnection) DB() *gorm.DB {
	return c.db
}

// Migrate creates or updates the identity schema.
func (c *DBConnection) Migrate(ctx context.Context) error {
	if err := c.db.WithContext(ctx).AutoMigrate(&models.Role{}, &models.User{}); err != nil {
		c.logger.Error(ctx, "Schema migration failed", err)
		return errors.ErrServiceUnavailable.WithMessage("schema migration failed").WithCause(err)
	}
	c.logger.Info(ctx, "Identity schema migrated")
	return nil
}

// Ping verifies the database answers.
func (c *DBConnection) Ping(ctx context.Context) error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return errors.ErrServiceUnavailable.WithCause(err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		return errors.ErrServiceUnavailable.WithMessage("database ping failed").WithCause(err)
	}
	return nil
}

// Name identifies this dependency in health reports.
func (c *DBConnection) Name() string {
	return "database"
}

// Close releases the pool.
func (c *DBConnection) Close() error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func driverName(driver string) string {
	if driver == "" {
		return "sqlite"
	}
	return driver
}
