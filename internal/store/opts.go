// Package store provides persistence backends for LeadPipe.
//
// This file implements shared functional options for store constructors.
package store

import (
	"log/slog"
	"strings"
)

// Opts holds configuration options for store constructors.
type Opts struct {
	DSN string
}

// Option defines a configuration option for stores.
type Option func(*Opts)

// WithDSN sets the database DSN for any backend; the driver is picked by
// DetectDSNType.
func WithDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// WithPostgresDSN sets the PostgreSQL connection string.
func WithPostgresDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// WithSQLitePath sets the SQLite database file path.
func WithSQLitePath(path string) Option {
	return func(o *Opts) { o.DSN = path }
}

// WithRedisAddr sets the Redis connection URL.
func WithRedisAddr(addr string) Option {
	return func(o *Opts) { o.DSN = addr }
}

// DetectDSNType inspects a DSN and reports which driver should handle it:
// "postgres", "redis" or "sqlite3". Anything that is not recognizably a
// network DSN is treated as a SQLite file path.
func DetectDSNType(dsn string) string {
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return "postgres"
	case strings.Contains(dsn, "host=") && strings.Contains(dsn, "dbname="):
		return "postgres"
	case strings.HasPrefix(dsn, "redis://"), strings.HasPrefix(dsn, "rediss://"):
		return "redis"
	default:
		return "sqlite3"
	}
}

// NewStore builds the backend matching the configured DSN: Postgres, Redis
// or SQLite. An empty DSN yields the in-memory store.
func NewStore(opts ...Option) (Store, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.DSN == "" {
		slog.Debug("store.NewStore: no DSN configured, using in-memory store")
		return NewInMemoryStore(), nil
	}

	switch DetectDSNType(cfg.DSN) {
	case "postgres":
		s, err := NewPostgresStore(opts...)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "redis":
		s, err := NewRedisStore(opts...)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		s, err := NewSQLiteStore(opts...)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}
