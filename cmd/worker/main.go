// Package main runs the compensation worker (orphaned account and deferred registration deletion).
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/aura-events/registration-service/config"
	"github.com/aura-events/registration-service/internal/clients"
	"github.com/aura-events/registration-service/internal/registrations"
	"github.com/aura-events/registration-service/internal/worker"
	"github.com/aura-events/registration-service/pkg/database"
	"github.com/aura-events/registration-service/pkg/queue"
	"github.com/aura-events/registration-service/pkg/redis"
	"github.com/aura-events/registration-service/pkg/tracing"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}
	if cfg.Database.Driver == config.StoreDriverMemory {
		logger.Fatal("worker needs a shared store; STORE_DRIVER=memory only works with WORKER_IN_PROCESS")
	}

	ctx := context.Background()
	tp, err := tracing.NewProvider(ctx, tracing.Config{
		Exporter:     cfg.Tracing.Exporter,
		OTLPEndpoint: cfg.Tracing.OTLPEndpoint,
		ServiceName:  cfg.Tracing.ServiceName + "-worker",
	})
	if err != nil {
		logger.Fatal("tracing", zap.Error(err))
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	userClient := clients.NewUserClient(cfg.Services.UserServiceURL, &http.Client{Timeout: cfg.Services.GatewayTimeout})
	repo := registrations.NewRepository(pool)
	jobQueue := queue.NewQueue(rdb.Client, logger)
	processor := worker.NewCompensationProcessor(jobQueue, userClient, repo, logger)

	workerCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go processor.Run(workerCtx)
	logger.Info("worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	cancel()
	time.Sleep(2 * time.Second)
	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	if err := tp.Shutdown(shutdownCtx); err != nil {
		logger.Error("tracing shutdown", zap.Error(err))
	}
	logger.Info("worker stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
