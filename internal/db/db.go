// Package db opens the metadata database for the configured driver.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"audioscribe/internal/config"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	sqliteBusyTimeoutMS = 5000
	connMaxLifetime     = 5 * time.Minute
)

// Open opens the database described by cfg and waits until it answers a
// ping, retrying with exponential backoff for at most cfg.ConnectTimeout.
func Open(ctx context.Context, cfg config.DatabaseConfig, log *logrus.Entry) (*sql.DB, error) {
	driver, dsn, err := dataSource(cfg)
	if err != nil {
		return nil, err
	}
	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", cfg.Driver, err)
	}

	if cfg.Driver == DriverSQLite {
		// one writer; WAL lets readers proceed alongside it
		conn.SetMaxOpenConns(1)
		conn.SetMaxIdleConns(1)
	}
	conn.SetConnMaxLifetime(connMaxLifetime)

	if err := pingWithBackoff(ctx, conn, cfg.ConnectTimeout, log); err != nil {
		_ = conn.Close()
		return nil, err
	}
	if cfg.Driver == DriverSQLite {
		if err := configureSQLite(ctx, conn); err != nil {
			_ = conn.Close()
			return nil, err
		}
	}
	return conn, nil
}

func dataSource(cfg config.DatabaseConfig) (driver, dsn string, err error) {
	switch cfg.Driver {
	case DriverSQLite:
		if cfg.Path == "" {
			return "", "", fmt.Errorf("db path is required")
		}
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
			return "", "", fmt.Errorf("create database directory: %w", err)
		}
		u := url.URL{Scheme: "file", Path: cfg.Path}
		return "sqlite", u.String(), nil
	case DriverPostgres:
		u := url.URL{
			Scheme: "postgres",
			Host:   cfg.Host + ":" + strconv.Itoa(cfg.Port),
			Path:   "/" + cfg.Name,
		}
		if cfg.User != "" {
			u.User = url.UserPassword(cfg.User, cfg.Password)
		}
		q := url.Values{}
		if cfg.SSLMode != "" {
			q.Set("sslmode", cfg.SSLMode)
		}
		u.RawQuery = q.Encode()
		return "pgx", u.String(), nil
	default:
		return "", "", fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}
}

func pingWithBackoff(ctx context.Context, conn *sql.DB, budget time.Duration, log *logrus.Entry) error {
	if budget <= 0 {
		budget = 15 * time.Second
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 250 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	b.MaxElapsedTime = budget

	attempt := 0
	op := func() error {
		attempt++
		return conn.PingContext(ctx)
	}
	notify := func(err error, wait time.Duration) {
		log.WithError(err).WithFields(logrus.Fields{
			"attempt":  attempt,
			"retry_in": wait.String(),
		}).Warn("database not reachable yet")
	}
	if err := backoff.RetryNotify(op, backoff.WithContext(b, ctx), notify); err != nil {
		return fmt.Errorf("database unreachable after %d attempts: %w", attempt, err)
	}
	return nil
}

func configureSQLite(ctx context.Context, conn *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA synchronous = NORMAL;",
		fmt.Sprintf("PRAGMA busy_timeout = %d;", sqliteBusyTimeoutMS),
	}
	for _, stmt := range pragmas {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("configure sqlite: %w", err)
		}
	}
	return nil
}
