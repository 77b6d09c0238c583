package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"expert-crm/internal/config"
	"expert-crm/internal/database"
	"expert-crm/internal/handler"
	"expert-crm/internal/middleware"
	"expert-crm/internal/repository"
	"expert-crm/internal/router"
	"expert-crm/internal/service"
)

type App struct {
	server       *http.Server
	db           *database.DB
	cleanupFuncs []func()
}

func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	slog.Info("connecting to PostgreSQL")
	db, err := database.New(context.Background(), cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.EnsureSchema(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ensure database schema: %w", err)
	}

	pool := db.Pool
	userRepo := repository.NewUserRepository(pool)
	tokenRepo := repository.NewTokenRepository(pool)
	expertRepo := repository.NewExpertRepository(pool)
	contactRepo := repository.NewContactRepository(pool)
	auditRepo := repository.NewAuditRepository(pool)
	notificationRepo := repository.NewNotificationRepository(pool)
	settingsRepo := repository.NewSettingsRepository(pool)
	idempotencyRepo := repository.NewIdempotencyRepository(pool)
	lockRepo := repository.NewLockRepository()
	slog.Info("database ready")

	authService, err := service.NewAuthService(cfg.JWTSecret, cfg.JWTAccessTTL, cfg.JWTRefreshTTL, userRepo, tokenRepo)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize auth service: %w", err)
	}
	if err := authService.EnsureSeedAdmin(context.Background(), "admin", "admin123"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to seed admin user: %w", err)
	}
	authMiddleware := middleware.NewAuthMiddleware(authService)

	janitorCtx, stopJanitor := context.WithCancel(context.Background())
	go authService.StartTokenJanitor(janitorCtx)

	reclaimService := service.NewReclaimService(pool, lockRepo, expertRepo, auditRepo,
		notificationRepo, settingsRepo, userRepo, cfg.BatchLimit)
	expertService := service.NewExpertService(pool, expertRepo, contactRepo, idempotencyRepo)
	decayService := service.NewDecayService(expertRepo, auditRepo, settingsRepo)
	settingsService := service.NewSettingsService(settingsRepo)
	notificationService := service.NewNotificationService(notificationRepo)

	appRouter := router.New(cfg, authMiddleware, router.Handlers{
		Auth:         handler.NewAuthHandler(authService),
		User:         handler.NewUserHandler(authService),
		Expert:       handler.NewExpertHandler(expertService),
		Reclaim:      handler.NewReclaimHandler(reclaimService),
		Cron:         handler.NewCronHandler(reclaimService, cfg.CronSecret, cfg.DryRun),
		Webhook:      handler.NewWebhookHandler(expertService, cfg.WebhookSecret),
		Settings:     handler.NewSettingsHandler(settingsService),
		Decay:        handler.NewDecayHandler(decayService),
		Audit:        handler.NewAuditHandler(auditRepo),
		Notification: handler.NewNotificationHandler(notificationService),
	}, db.Health)

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      appRouter,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  cfg.ServerIdleTimeout,
	}

	return &App{
		server: server,
		db:     db,
		cleanupFuncs: []func(){
			stopJanitor,
			func() {
				db.Close()
			},
		},
	}, nil
}

func (a *App) Run() error {
	go func() {
		slog.Info("server starting", "addr", a.server.Addr)
		if serveErr := a.server.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			slog.Error("server failed", "error", serveErr)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	for _, cleanup := range a.cleanupFuncs {
		cleanup()
	}

	slog.Info("server stopped")
	return nil
}
