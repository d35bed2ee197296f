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

	"voicebot-platform/internal/audit"
	"voicebot-platform/internal/auth"
	"voicebot-platform/internal/bots"
	"voicebot-platform/internal/calls"
	"voicebot-platform/internal/config"
	"voicebot-platform/internal/httpapi"
	"voicebot-platform/internal/reporting"
	"voicebot-platform/internal/telephony"
	"voicebot-platform/internal/users"
	"voicebot-platform/internal/vault"
	"voicebot-platform/migrations"
	"voicebot-platform/pkg/logger"
	"voicebot-platform/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
	pkgerrors "github.com/pkg/errors"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env, cfg.App.LogLevel)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := run(rootCtx, stop, cfg, log); err != nil {
		log.Error("api stopped", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, stop context.CancelFunc, cfg config.Config, log *slog.Logger) error {
	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		return pkgerrors.Wrap(err, "auth init failed")
	}

	key, err := cfg.CredentialsKey()
	if err != nil {
		return err
	}
	sealer, err := vault.NewSealer(key)
	if err != nil {
		return err
	}

	db, err := utils.OpenPostgres(ctx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		return pkgerrors.Wrap(err, "postgres init failed")
	}
	defer db.Close()

	if err := utils.Migrate(ctx, db, migrations.FS); err != nil {
		return pkgerrors.Wrap(err, "migrations failed")
	}

	rdb, err := utils.OpenRedis(ctx, utils.RedisConfig{Addr: cfg.RedisAddr(), Password: cfg.Redis.Password})
	if err != nil {
		return pkgerrors.Wrap(err, "redis init failed")
	}
	defer rdb.Close()

	slots, err := utils.NewCallSlots(rdb, cfg.Redis.CallConcurrency, cfg.Redis.CallSlotTTL)
	if err != nil {
		return err
	}

	engine := telephony.NewHTTPEngine(cfg.CallEngine.URL, cfg.CallEngine.Timeout)
	auditSvc := audit.NewService(audit.NewPostgresRepo(db))

	usersRepo := users.NewPostgresRepo(db, sealer)
	botsRepo := bots.NewPostgresRepo(db)
	callsRepo := calls.NewPostgresRepo(db)

	stats := reporting.NewService(reporting.NewPostgresRepo(db))
	callSvc, err := calls.NewService(calls.Deps{
		Repo:             callsRepo,
		Bots:             botsRepo,
		Users:            usersRepo,
		Engine:           engine,
		Slots:            slots,
		Auditor:          auditSvc,
		MaxPlaceAttempts: cfg.CallEngine.MaxAttempts,
		PlaceTimeout:     cfg.CallEngine.Timeout*time.Duration(cfg.CallEngine.MaxAttempts) + 5*time.Second,
	})
	if err != nil {
		return err
	}

	h := httpapi.Handlers{
		Users:  users.NewService(usersRepo, authManager, auditSvc),
		Bots:   bots.NewService(botsRepo, engine, stats),
		Calls:  callSvc,
		DB:     db,
		Engine: engine,
	}

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))
	r.Use(httpapi.ClientIP())

	registerRoutes(r, h, auth.RequireAccessToken(authManager), auth.RequireWebhookSecret(cfg.Webhook.Secret))

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Trigger can wait on the engine for up to MaxAttempts timeouts.
		WriteTimeout: cfg.CallEngine.Timeout*time.Duration(cfg.CallEngine.MaxAttempts) + 10*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env, "call_engine", engine.Name())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
	return nil
}
