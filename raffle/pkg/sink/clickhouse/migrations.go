package clickhouse

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const migrationsDir = "migrations"

// slogGooseLogger adapts slog.Logger to goose.Logger.
type slogGooseLogger struct {
	log *slog.Logger
}

func (l *slogGooseLogger) Fatalf(format string, v ...any) {
	l.log.Error(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l *slogGooseLogger) Printf(format string, v ...any) {
	l.log.Info(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

// Up applies every pending raffle migration.
func Up(ctx context.Context, log *slog.Logger, cfg ConnConfig) error {
	log.Info("clickhouse: running migrations (up)", "database", cfg.Database)
	return withGoose(log, cfg, func(db *sql.DB) error {
		if err := goose.UpContext(ctx, db, migrationsDir); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		return nil
	})
}

// Down rolls back the most recent migration.
func Down(ctx context.Context, log *slog.Logger, cfg ConnConfig) error {
	log.Info("clickhouse: rolling back migration (down)", "database", cfg.Database)
	return withGoose(log, cfg, func(db *sql.DB) error {
		if err := goose.DownContext(ctx, db, migrationsDir); err != nil {
			return fmt.Errorf("failed to roll back migration: %w", err)
		}
		return nil
	})
}

// Version returns the currently applied migration version.
func Version(ctx context.Context, log *slog.Logger, cfg ConnConfig) (int64, error) {
	var version int64
	err := withGoose(log, cfg, func(db *sql.DB) error {
		v, err := goose.GetDBVersionContext(ctx, db)
		if err != nil {
			return fmt.Errorf("failed to get version: %w", err)
		}
		version = v
		return nil
	})
	return version, err
}

// goose configuration is package global.
var gooseMu sync.Mutex

func withGoose(log *slog.Logger, cfg ConnConfig, fn func(db *sql.DB) error) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	gooseMu.Lock()
	defer gooseMu.Unlock()

	db := clickhouse.OpenDB(cfg.options())
	defer db.Close()

	goose.SetLogger(&slogGooseLogger{log: log})
	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("clickhouse"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	return fn(db)
}
