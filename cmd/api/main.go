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

	"wishdrop/internal/auth"
	"wishdrop/internal/claims"
	"wishdrop/internal/config"
	"wishdrop/internal/gateway"
	"wishdrop/internal/httpapi"
	"wishdrop/internal/notify"
	"wishdrop/internal/registry"
	"wishdrop/internal/wallet"
	"wishdrop/pkg/logger"
	"wishdrop/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
)

const expirySweepInterval = time.Minute

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Missing .env is fine; real env vars win either way.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := utils.Migrate(db, cfg.DB.MigrationsPath); err != nil {
		log.Error("migrations failed", "err", err)
		os.Exit(1)
	}

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	paystack, err := gateway.NewClient(cfg.Paystack)
	if err != nil {
		log.Error("paystack init failed", "err", err)
		os.Exit(1)
	}
	verifier, err := gateway.NewVerifier(cfg.Paystack.WebhookSecret)
	if err != nil {
		log.Error("webhook verifier init failed", "err", err)
		os.Exit(1)
	}

	var sink claims.Notifier = notify.Noop{}
	if cfg.Mail.Enabled {
		mailer, err := notify.NewMailer(cfg.Mail)
		if err != nil {
			log.Error("mailer init failed", "err", err)
			os.Exit(1)
		}
		sink = mailer
	}

	registrySvc := registry.NewService(db, cfg.Platform)
	walletSvc := wallet.NewService(db)
	claimsSvc := claims.NewService(
		claims.NewPostgresRepository(db),
		walletSvc,
		claims.NewRedisSlotLocker(rdb),
		sink,
		cfg.Platform,
		log,
	)

	h := httpapi.Handlers{
		Auth:       authManager,
		Registry:   registrySvc,
		Claims:     claimsSvc,
		Wallet:     walletSvc,
		Gateway:    paystack,
		Verifier:   verifier,
		Reconciler: claimsSvc,
		Log:        log,
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerRoutes(r, h, authManager)

	// Pending claims past their deadline lose the slot; the sweep is
	// idempotent so overlap with a webhook race is harmless.
	go runExpirySweep(rootCtx, claimsSvc, log)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
}

func runExpirySweep(ctx context.Context, svc *claims.Service, log *slog.Logger) {
	ticker := time.NewTicker(expirySweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := svc.ExpireStaleClaims(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("expiry sweep failed", "err", err)
			}
		}
	}
}
