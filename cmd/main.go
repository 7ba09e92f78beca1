package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chatauth/internal/auth"
	"chatauth/internal/config"
	"chatauth/internal/database"
	"chatauth/internal/guard"
	"chatauth/internal/logging"
	"chatauth/internal/mailer"
	"chatauth/internal/otpcode"
	"chatauth/internal/server"
	"chatauth/internal/store"
	"chatauth/internal/token"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	logger, err := logging.New(logging.Config{Level: cfg.LogLevel, Dev: cfg.LogDev})
	if err != nil {
		log.Fatalf("Logger error: %v", err)
	}
	defer logger.Sync()

	// Create a context for initialization.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var users store.Users
	if cfg.InMemory() {
		logger.Warn("using in-memory user store; data is lost on exit")
		users = store.NewMemory()
	} else {
		client, err := database.ConnectMongoDB(ctx, cfg.MongoURI, logger)
		if err != nil {
			logger.Fatal("mongo connect", zap.Error(err))
		}
		defer func() {
			if err := client.Disconnect(context.Background()); err != nil {
				logger.Error("mongo disconnect", zap.Error(err))
			}
		}()

		col := database.GetUserCollection(client, cfg.MongoDB)
		if err := database.EnsureUserIndexes(ctx, col); err != nil {
			logger.Fatal("create indexes", zap.Error(err))
		}
		users = store.NewMongo(col)
	}

	tokens, err := token.NewIssuer([]byte(cfg.JWTSecret))
	if err != nil {
		logger.Fatal("token issuer", zap.Error(err))
	}

	var g guard.Guard = guard.Nop{}
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable, verification guard degraded", zap.Error(err))
		}
		g = guard.NewRedis(rdb, 5*time.Second)
	}

	svc := auth.NewService(auth.Deps{
		Users:  users,
		Codec:  otpcode.Codec{},
		Tokens: tokens,
		Mail: mailer.NewSMTP(mailer.Config{
			Host: cfg.SMTPHost,
			Port: cfg.SMTPPort,
			User: cfg.SMTPUser,
			Pass: cfg.SMTPPass,
			From: cfg.MailFrom,
		}),
		Guard: g,
		Log:   logger,
	})

	router := server.NewHandler(svc, cfg.Production, logger).Router()

	srv := &http.Server{
		Handler:      server.Wrap(router, cfg.AllowedOrigins, os.Stdout),
		Addr:         ":" + cfg.Port,
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server running", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// Wait for interrupt signals for graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}
	logger.Info("server exiting gracefully")
}
