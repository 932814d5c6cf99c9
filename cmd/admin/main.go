// Command admin creates exams, loads class lists and applies marks files
// from the shell, against the same store the server uses.
package main

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/markupload/internal/auth"
	"github.com/JonMunkholm/markupload/internal/config"
	"github.com/JonMunkholm/markupload/internal/core"
	"github.com/JonMunkholm/markupload/internal/database"
	"github.com/JonMunkholm/markupload/internal/logging"
	"github.com/JonMunkholm/markupload/internal/store"
)

func main() {
	cfg, err := config.LoadFiles(".env")
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	ctx := context.Background()
	st, err := openStore(ctx, cfg.Database)
	if err != nil {
		slog.Error("failed to open result store", "error", err)
		os.Exit(1)
	}

	cli := commandLine{
		store: st,
		service: core.NewService(st, st, core.ServiceOptions{
			LenientMarks: cfg.Upload.LenientMarks,
			Logger:       slog.Default(),
		}),
		verifier: auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.Audience),
		out:      os.Stdout,
	}

	err = cli.run(ctx, os.Args)
	st.Close()
	if err != nil {
		if err != errHelp {
			slog.Error("command failed", "error", err)
		}
		os.Exit(1)
	}
}

func openStore(ctx context.Context, cfg config.DatabaseConfig) (store.Store, error) {
	if strings.EqualFold(cfg.Driver, "sqlite") {
		return store.OpenSQLite(cfg.URL)
	}

	pool, err := pgxpool.New(ctx, cfg.URL)
	if err != nil {
		return nil, err
	}
	if cfg.Migrate {
		if err := database.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
	}
	return store.NewPostgres(pool), nil
}
