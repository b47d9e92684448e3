package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fintrack/backend/internal/infrastructure/config"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const connectPingTimeout = 5 * time.Second

// Database owns the gorm handle shared by the repositories
type Database struct {
	DB *gorm.DB
}

// NewDatabase opens the PostgreSQL pool described by cfg and verifies it
// answers. A nil gormLog silences gorm.
func NewDatabase(cfg *config.DatabaseConfig, gormLog gormlogger.Interface) (*Database, error) {
	if gormLog == nil {
		gormLog = gormlogger.Default.LogMode(gormlogger.Silent)
	}

	gdb, err := gorm.Open(postgres.Open(cfg.DSN()), newGormConfig(gormLog))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db := &Database{DB: gdb}

	pool, err := db.pool()
	if err != nil {
		return nil, err
	}
	applyPoolSettings(pool, cfg)

	ctx, cancel := context.WithTimeout(context.Background(), connectPingTimeout)
	defer cancel()
	if err := pool.PingContext(ctx); err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("ping database %s:%d: %w", cfg.Host, cfg.Port, err)
	}
	return db, nil
}

// newGormConfig is shared with the sqlite and container-backed tests.
// TranslateError turns unique violations into gorm.ErrDuplicatedKey, which
// the user repository relies on for the external ID constraint.
func newGormConfig(gormLog gormlogger.Interface) *gorm.Config {
	return &gorm.Config{
		Logger:                 gormLog,
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
		TranslateError:         true,
	}
}

func applyPoolSettings(pool *sql.DB, cfg *config.DatabaseConfig) {
	pool.SetMaxOpenConns(cfg.MaxOpenConns)
	pool.SetMaxIdleConns(cfg.MaxIdleConns)
	pool.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Minute)
	pool.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTime) * time.Minute)
}

func (d *Database) pool() (*sql.DB, error) {
	pool, err := d.DB.DB()
	if err != nil {
		return nil, fmt.Errorf("database pool: %w", err)
	}
	return pool, nil
}

// Close releases the pool
func (d *Database) Close() error {
	pool, err := d.pool()
	if err != nil {
		return err
	}
	return pool.Close()
}

// Ping backs the health endpoint
func (d *Database) Ping(ctx context.Context) error {
	pool, err := d.pool()
	if err != nil {
		return err
	}
	return pool.PingContext(ctx)
}
