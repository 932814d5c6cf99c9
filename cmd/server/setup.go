package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/markupload/internal/archive"
	"github.com/JonMunkholm/markupload/internal/config"
	"github.com/JonMunkholm/markupload/internal/core"
	"github.com/JonMunkholm/markupload/internal/database"
	"github.com/JonMunkholm/markupload/internal/notify"
	"github.com/JonMunkholm/markupload/internal/store"
)

// resultStore is a store that /healthz can ping.
type resultStore interface {
	store.Store
	Ping(ctx context.Context) error
}

func openStore(ctx context.Context, cfg config.DatabaseConfig) (resultStore, error) {
	switch strings.ToLower(cfg.Driver) {
	case "sqlite":
		st, err := store.OpenSQLite(cfg.URL)
		if err != nil {
			return nil, err
		}
		slog.Info("using sqlite result store", "dsn", cfg.URL)
		return st, nil

	case "postgres", "":
		pool, err := openPool(ctx, cfg)
		if err != nil {
			return nil, err
		}
		if cfg.Migrate {
			if err := database.Migrate(ctx, pool); err != nil {
				pool.Close()
				return nil, fmt.Errorf("migrate: %w", err)
			}
		}
		return store.NewPostgres(pool), nil
	}
	return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
}

func openPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	if u, err := url.Parse(cfg.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	}
	return pool, nil
}

// newPublisher falls back to logging events when no broker is configured
// or the broker cannot be reached at start-up.
func newPublisher(cfg config.NotifyConfig) (core.Publisher, func()) {
	if cfg.AMQPURL == "" {
		slog.Info("no broker configured, results events will be logged")
		return notify.LogPublisher{Logger: slog.Default()}, func() {}
	}

	p, err := notify.NewAMQPPublisher(cfg.AMQPURL, cfg.Exchange)
	if err != nil {
		slog.Error("broker unavailable, results events will be logged", "error", err)
		return notify.LogPublisher{Logger: slog.Default()}, func() {}
	}
	slog.Info("publishing results events", "exchange", cfg.Exchange)
	return p, func() {
		if err := p.Close(); err != nil {
			slog.Warn("close broker connection", "error", err)
		}
	}
}

func newArchiver(ctx context.Context, cfg config.ArchiveConfig) (*archive.S3Archiver, error) {
	if cfg.Bucket == "" {
		return nil, nil
	}
	a, err := archive.New(ctx, archive.Options{
		Bucket:    cfg.Bucket,
		Region:    cfg.Region,
		Endpoint:  cfg.Endpoint,
		AccessKey: cfg.AccessKey,
		SecretKey: cfg.SecretKey,
	})
	if err != nil {
		return nil, err
	}
	slog.Info("archiving uploads", "bucket", cfg.Bucket, "prefix", cfg.Prefix)
	return a, nil
}
