package clickhousetesting

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	tcch "github.com/testcontainers/testcontainers-go/modules/clickhouse"

	"github.com/malbeclabs/raffle/raffle/pkg/sink/clickhouse"
	"github.com/malbeclabs/raffle/utils/pkg/retry"
)

type DBConfig struct {
	Database       string
	Username       string
	Password       string
	ContainerImage string
}

func (cfg *DBConfig) Validate() error {
	if cfg.Database == "" {
		cfg.Database = "test"
	}
	if cfg.Username == "" {
		cfg.Username = "default"
	}
	if cfg.Password == "" {
		cfg.Password = "password"
	}
	if cfg.ContainerImage == "" {
		cfg.ContainerImage = "clickhouse/clickhouse-server:latest"
	}
	return nil
}

// DB is a ClickHouse container shared by a test binary.
type DB struct {
	log       *slog.Logger
	cfg       *DBConfig
	addr      string
	container *tcch.ClickHouseContainer
}

// Addr returns the native protocol address (host:port).
func (db *DB) Addr() string {
	return db.addr
}

// ConnConfig returns connection settings for the given database.
func (db *DB) ConnConfig(database string) clickhouse.ConnConfig {
	return clickhouse.ConnConfig{
		Addr:     db.addr,
		Database: database,
		Username: db.cfg.Username,
		Password: db.cfg.Password,
	}
}

func (db *DB) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.container.Terminate(ctx); err != nil {
		db.log.Error("failed to terminate ClickHouse container", "error", err)
	}
}

// containerRetry covers the docker hiccups seen when many packages start containers at once.
var containerRetry = retry.Config{
	MaxAttempts: 3,
	BaseBackoff: 750 * time.Millisecond,
	MaxBackoff:  3 * time.Second,
}

func NewDB(ctx context.Context, log *slog.Logger, cfg *DBConfig) (*DB, error) {
	if cfg == nil {
		cfg = &DBConfig{}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("failed to validate DB config: %w", err)
	}

	container, err := retry.Value(ctx, containerRetry, func() (*tcch.ClickHouseContainer, error) {
		return tcch.Run(ctx,
			cfg.ContainerImage,
			tcch.WithDatabase(cfg.Database),
			tcch.WithUsername(cfg.Username),
			tcch.WithPassword(cfg.Password),
		)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start ClickHouse container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get ClickHouse container host: %w", err)
	}
	mappedPort, err := container.MappedPort(ctx, nat.Port("9000/tcp"))
	if err != nil {
		return nil, fmt.Errorf("failed to get ClickHouse container mapped port: %w", err)
	}

	return &DB{
		log:       log,
		cfg:       cfg,
		addr:      fmt.Sprintf("%s:%s", host, mappedPort.Port()),
		container: container,
	}, nil
}

// NewTestDatabase creates a migrated, uniquely named database and a client
// connected to it. Both are dropped when the test ends.
func NewTestDatabase(t *testing.T, db *DB) (clickhouse.Client, clickhouse.ConnConfig) {
	t.Helper()
	ctx := t.Context()

	admin, err := retry.Value(ctx, containerRetry, func() (clickhouse.Client, error) {
		return clickhouse.NewClient(ctx, db.log, db.ConnConfig(db.cfg.Database))
	})
	require.NoError(t, err)

	name := "test_" + strings.ReplaceAll(uuid.New().String(), "-", "")
	adminConn, err := admin.Conn(ctx)
	require.NoError(t, err)
	require.NoError(t, adminConn.Exec(ctx, fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", name)))

	cfg := db.ConnConfig(name)
	require.NoError(t, clickhouse.Up(ctx, db.log, cfg))

	client, err := clickhouse.NewClient(ctx, db.log, cfg)
	require.NoError(t, err)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		client.Close()
		if err := adminConn.Exec(ctx, fmt.Sprintf("DROP DATABASE IF EXISTS %s", name)); err != nil {
			t.Logf("failed to drop %s: %v", name, err)
		}
		admin.Close()
	})
	return client, cfg
}
