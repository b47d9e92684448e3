package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBTracingConfig holds configuration for database tracing.
type DBTracingConfig struct {
	Enabled         bool
	LogFullSQL      bool          // Include bound variables in span statements (dev only)
	SlowQueryThresh time.Duration // Default: 200ms
	DBName          string
}

// DBTracingPlugin installs otelgorm and annotates slow queries on the active span.
type DBTracingPlugin struct {
	config DBTracingConfig
	logger *zap.Logger
}

// NewDBTracingPlugin creates a database tracing plugin.
func NewDBTracingPlugin(cfg DBTracingConfig, logger *zap.Logger) *DBTracingPlugin {
	if cfg.SlowQueryThresh <= 0 {
		cfg.SlowQueryThresh = 200 * time.Millisecond
	}
	return &DBTracingPlugin{config: cfg, logger: logger}
}

type queryStartKey struct{}

// Register installs otelgorm plus before/after timing callbacks on db.
func (p *DBTracingPlugin) Register(db *gorm.DB) error {
	if !p.config.Enabled {
		p.logger.Debug("Database tracing disabled")
		return nil
	}

	opts := []otelgorm.Option{}
	if p.config.DBName != "" {
		opts = append(opts, otelgorm.WithDBName(p.config.DBName))
	}
	if !p.config.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}

	cb := db.Callback()
	// after-hooks run before otelgorm ends the span
	hooks := []struct {
		name     string
		fn       func(*gorm.DB)
		register func(string, func(*gorm.DB)) error
	}{
		{"fintrack_timing:before_create", markQueryStart, cb.Create().Before("gorm:create").Register},
		{"fintrack_timing:after_create", p.annotateSpan, cb.Create().After("gorm:create").Before("otel:after:create").Register},
		{"fintrack_timing:before_query", markQueryStart, cb.Query().Before("gorm:query").Register},
		{"fintrack_timing:after_query", p.annotateSpan, cb.Query().After("gorm:query").Before("otel:after:select").Register},
		{"fintrack_timing:before_update", markQueryStart, cb.Update().Before("gorm:update").Register},
		{"fintrack_timing:after_update", p.annotateSpan, cb.Update().After("gorm:update").Before("otel:after:update").Register},
		{"fintrack_timing:before_delete", markQueryStart, cb.Delete().Before("gorm:delete").Register},
		{"fintrack_timing:after_delete", p.annotateSpan, cb.Delete().After("gorm:delete").Before("otel:after:delete").Register},
		{"fintrack_timing:before_row", markQueryStart, cb.Row().Before("gorm:row").Register},
		{"fintrack_timing:after_row", p.annotateSpan, cb.Row().After("gorm:row").Before("otel:after:row").Register},
		{"fintrack_timing:before_raw", markQueryStart, cb.Raw().Before("gorm:raw").Register},
		{"fintrack_timing:after_raw", p.annotateSpan, cb.Raw().After("gorm:raw").Before("otel:after:raw").Register},
	}
	for _, h := range hooks {
		if err := h.register(h.name, h.fn); err != nil {
			return err
		}
	}

	p.logger.Info("Database tracing enabled",
		zap.Bool("log_full_sql", p.config.LogFullSQL),
		zap.Duration("slow_query_threshold", p.config.SlowQueryThresh),
	)
	return nil
}

func markQueryStart(db *gorm.DB) {
	if db.Statement.Context != nil {
		db.Statement.Context = context.WithValue(db.Statement.Context, queryStartKey{}, time.Now())
	}
}

func (p *DBTracingPlugin) annotateSpan(db *gorm.DB) {
	ctx := db.Statement.Context
	if ctx == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))
	if db.Statement.Table != "" {
		span.SetAttributes(attribute.String("db.sql.table", db.Statement.Table))
	}
	if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
		RecordError(span, db.Error)
	}

	start, ok := ctx.Value(queryStartKey{}).(time.Time)
	if !ok {
		return
	}
	if elapsed := time.Since(start); elapsed > p.config.SlowQueryThresh {
		span.SetAttributes(
			attribute.Bool("db.slow_query", true),
			attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
		)
	}
}
