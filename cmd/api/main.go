package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/campuskit/registry/internal/background"
	"github.com/campuskit/registry/internal/config"
	"github.com/campuskit/registry/internal/database"
	"github.com/campuskit/registry/internal/handlers"
	"github.com/campuskit/registry/internal/repositories"
	"github.com/campuskit/registry/internal/routes"
	"github.com/campuskit/registry/internal/services"
	pkglogger "github.com/campuskit/registry/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := database.Migrate(ctx, cfg.Database.DSN(), logger); err != nil {
		return err
	}

	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	accountRepo := repositories.NewAccountRepository(db)
	codeRepo := repositories.NewVerificationCodeRepository(db)
	tokenRepo := repositories.NewSecretTokenRepository(db)
	pillarRepo := repositories.NewPillarRepository(db)

	notifier, err := newNotifier(cfg, logger)
	if err != nil {
		return err
	}

	audit := pkglogger.NewAuditLogger(logger)
	allocator := services.NewPillarAllocator(db, pillarRepo, logger)
	verificationService := services.NewVerificationService(db, accountRepo, codeRepo, allocator, notifier, logger, audit, cfg.Core.CodeTTL)
	resetService := services.NewResetService(db, accountRepo, tokenRepo, notifier, logger, cfg.Core.ResetTokenTTL)
	authService := services.NewAuthService(db, accountRepo, logger, audit)
	accountService := services.NewAccountService(db, accountRepo, logger)

	cleanup := background.NewCleanupManager(codeRepo, tokenRepo, logger, cfg.Core.CleanupInterval)
	cleanup.Start(ctx)
	defer cleanup.Stop()

	router := routes.NewRouter(cfg, db, routes.Handlers{
		Auth:     handlers.NewAuthHandler(verificationService, authService, logger),
		Reset:    handlers.NewResetHandler(resetService, logger),
		Accounts: handlers.NewAccountHandler(accountService, logger),
	}, logger)

	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			slog.String("port", cfg.Server.Port),
			slog.String("env", cfg.Server.Env))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	return server.Shutdown(shutdownCtx)
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

func newNotifier(cfg *config.Config, logger *slog.Logger) (services.Notifier, error) {
	if !cfg.Email.Enabled {
		logger.Info("email disabled, notifications will be logged only")
		return services.NewLogNotifier(logger), nil
	}

	return services.NewSESNotifier(cfg.Email.AWSRegion, cfg.Email.FromAddress, logger)
}
