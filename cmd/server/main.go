package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/markupload/internal/auth"
	"github.com/JonMunkholm/markupload/internal/config"
	"github.com/JonMunkholm/markupload/internal/core"
	"github.com/JonMunkholm/markupload/internal/logging"
	"github.com/JonMunkholm/markupload/internal/web"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"db_driver", cfg.Database.Driver,
		"upload_max_concurrent", cfg.Upload.MaxConcurrent,
		"lenient_marks", cfg.Upload.LenientMarks,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)
	slog.Debug("effective configuration", "config", cfg.String())

	ctx := context.Background()

	st, err := openStore(ctx, cfg.Database)
	if err != nil {
		slog.Error("failed to open result store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	publisher, closePublisher := newPublisher(cfg.Notify)
	defer closePublisher()

	archiver, err := newArchiver(ctx, cfg.Archive)
	if err != nil {
		slog.Error("failed to configure archive", "error", err)
		os.Exit(1)
	}

	opts := core.ServiceOptions{
		MaxConcurrent:   cfg.Upload.MaxConcurrent,
		MaxWait:         cfg.Upload.MaxWaitTime,
		UploadTimeout:   cfg.Upload.Timeout,
		ResultRetention: cfg.Upload.ResultRetention,
		LenientMarks:    cfg.Upload.LenientMarks,
		Publisher:       publisher,
		ArchivePrefix:   cfg.Archive.Prefix,
		Logger:          slog.Default(),
	}
	// A nil *S3Archiver must not become a non-nil interface.
	if archiver != nil {
		opts.Archiver = archiver
	}
	service := core.NewService(st, st, opts)

	verifier := auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.Audience)
	server := web.NewServer(service, cfg, verifier, st)

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if status := service.Limiter().Status(); status.Active > 0 {
			slog.Info("waiting for uploads to complete", "active", status.Active)
			if err := service.WaitForUploads(shutdownCtx); err != nil {
				slog.Warn("uploads did not complete in time", "error", err)
			} else {
				slog.Info("all uploads completed")
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}
