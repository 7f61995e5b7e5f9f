package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bear-monitor/internal/backend/config"
	backendapi "bear-monitor/internal/backend/httpapi"
	"bear-monitor/internal/backend/mailer"
	"bear-monitor/internal/backend/otp"
	"bear-monitor/internal/backend/repository"
	"bear-monitor/internal/backend/service"
	"bear-monitor/internal/common/database"
	"bear-monitor/internal/common/httpserver"
	"bear-monitor/internal/common/logger"
	"bear-monitor/internal/common/redis"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "bear-relay")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.NewPostgresDB(ctx, &cfg.Database, log)
	if err != nil {
		log.Fatal("Failed to connect database", zap.Error(err))
	}
	defer db.Close()
	if cfg.Migrate {
		if err := repository.Migrate(ctx, db); err != nil {
			log.Fatal("Failed to migrate database", zap.Error(err))
		}
	}

	redisClient, err := redis.Connect(ctx, &cfg.Redis)
	if err != nil {
		log.Fatal("Failed to connect redis", zap.Error(err))
	}
	defer redisClient.Close()

	users := repository.NewPostgresUserRepository(db)
	contacts := repository.NewPostgresContactRepository(db)
	otps := otp.NewStore(redisClient, cfg.OTP.Prefix, cfg.OTP.CodeTTL, cfg.OTP.ResetTokenTTL)
	m := mailer.New(cfg.SMTP, log)
	tokens := service.NewTokenIssuer(cfg.JWT.Secret, cfg.JWT.TTL)

	handler := backendapi.NewHandler(
		service.NewAuthService(users, otps, m, tokens, log),
		service.NewContactService(contacts, log),
		service.NewHealthService(users, contacts, m, log),
		log,
	)
	router := backendapi.NewRouter()
	router.RegisterRoutes(handler)

	srv := httpserver.NewServer(cfg.HTTPAddr, router, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("Received signal, shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			log.Error("HTTP server failed", zap.Error(err))
		}
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		log.Error("Failed to stop HTTP server", zap.Error(err))
	}
	log.Info("bear-relay stopped")
}
