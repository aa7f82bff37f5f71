package main

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

	"resource-site-backend/internal/api"
	"resource-site-backend/internal/auth"
	"resource-site-backend/internal/captcha"
	"resource-site-backend/internal/config"
	"resource-site-backend/internal/logger"
	"resource-site-backend/internal/repository"
	"resource-site-backend/internal/service"
	"resource-site-backend/internal/upload"

	"github.com/joho/godotenv"
)

func main() {
	// A missing .env is fine when the environment is set by the container.
	envErr := godotenv.Load()

	var cfg config.Config
	if err := config.Load(&cfg); err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	log := logger.Setup(cfg.LogLevel)
	if envErr != nil {
		log.Debug("no .env file loaded, using the process environment", "error", envErr)
	}

	if err := run(cfg, log); err != nil {
		log.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	initCtx, cancelInit := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelInit()

	store, closeStore, err := openStore(initCtx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	captchaStore, closeCaptcha, err := openCaptchaStore(initCtx, cfg, log)
	if err != nil {
		return err
	}
	defer closeCaptcha()

	tokenService, err := auth.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		return fmt.Errorf("init token service: %w", err)
	}

	ingestor, err := upload.NewIngestor(cfg.DescriptionDir, cfg.AvatarDir, log)
	if err != nil {
		return fmt.Errorf("init upload ingestor: %w", err)
	}

	handler, err := api.NewHandler(tokenService, api.Services{
		Resources: service.NewResourceService(store, log),
		Users:     service.NewUserService(store, tokenService, log),
		Orders:    service.NewOrderService(store, log),
		Website: service.NewWebsiteService(store, service.WebsiteSettings{
			Name:         cfg.SiteName,
			Description:  cfg.SiteDescription,
			LoginBG:      cfg.SiteLoginBG,
			CarouselSize: cfg.CarouselSize,
		}),
		Captcha: service.NewCaptchaService(captchaStore, cfg.CaptchaTTL),
		Uploads: ingestor,
	}, api.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		MaxUploadBytes: cfg.MaxUploadBytes,
		AuthRateLimit:  cfg.AuthRateLimit,
		AuthRateBurst:  cfg.AuthRateBurst,
	}, log)
	if err != nil {
		return fmt.Errorf("init http handler: %w", err)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           handler.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
		ErrorLog:          slog.NewLogLogger(log.Handler(), slog.LevelWarn),
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", srv.Addr, "docs", "/swagger-ui/index.html")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serveErr:
		return fmt.Errorf("listen: %w", err)
	case sig := <-quit:
		log.Info("shutdown signal received", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	log.Info("server stopped")
	return nil
}

// openStore connects to PostgreSQL and migrates it, or falls back to memory
// when no database URL is configured.
func openStore(ctx context.Context, cfg config.Config, log *slog.Logger) (repository.Store, func(), error) {
	if cfg.DatabaseURL == "" {
		log.Warn("DATABASE_URL not set, using the in-memory store")
		return repository.NewInMemoryStore(), func() {}, nil
	}

	store, err := repository.NewPostgresStore(ctx, cfg.DatabaseURL, log)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := store.RunMigrations(ctx); err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("run migrations: %w", err)
	}
	log.Info("connected to PostgreSQL")
	return store, store.Close, nil
}

func openCaptchaStore(ctx context.Context, cfg config.Config, log *slog.Logger) (captcha.Store, func(), error) {
	if cfg.RedisAddr == "" {
		log.Warn("REDIS_ADDR not set, captcha challenges are kept in memory")
		return captcha.NewMemoryStore(), func() {}, nil
	}

	store, err := captcha.NewRedisStore(ctx, captcha.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("connect to redis: %w", err)
	}
	log.Info("connected to Redis", "addr", cfg.RedisAddr)
	return store, func() {
		if err := store.Close(); err != nil {
			log.Warn("failed to close redis client", "error", err)
		}
	}, nil
}
