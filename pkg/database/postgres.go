package database

import (
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/tair/payment-service/pkg/logger"
)

// Driver names accepted by Config.Driver
const (
	DriverPgx = "pgx"
	DriverPq  = "postgres"
)

// Config holds database configuration
type Config struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	// Driver selects the database/sql driver behind GORM: pgx (default) or postgres (lib/pq)
	Driver string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DSN renders the keyword/value connection string understood by both drivers
func (c Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// NewGormConnection opens a GORM handle on PostgreSQL and verifies it
func NewGormConnection(cfg Config) (*gorm.DB, error) {
	pgCfg := postgres.Config{DSN: cfg.DSN()}
	switch cfg.Driver {
	case "", DriverPgx:
	case DriverPq:
		pgCfg.DriverName = DriverPq
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(postgres.New(pgCfg), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	// Configure connection pool
	sqlDB.SetMaxOpenConns(valueOr(cfg.MaxOpenConns, 25))
	sqlDB.SetMaxIdleConns(valueOr(cfg.MaxIdleConns, 5))
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	} else {
		sqlDB.SetConnMaxLifetime(5 * time.Minute)
	}

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Logger.Info().
		Str("host", cfg.Host).
		Str("database", cfg.DBName).
		Str("driver", valueOrStr(cfg.Driver, DriverPgx)).
		Msg("Connected to PostgreSQL")
	return db, nil
}

func valueOr(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

func valueOrStr(v, def string) string {
	if v != "" {
		return v
	}
	return def
}
