// Package main runs the registration service HTTP server with graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/aura-events/registration-service/config"
	"github.com/aura-events/registration-service/internal/auth"
	"github.com/aura-events/registration-service/internal/clients"
	"github.com/aura-events/registration-service/internal/middleware"
	"github.com/aura-events/registration-service/internal/models"
	"github.com/aura-events/registration-service/internal/registrations"
	"github.com/aura-events/registration-service/internal/worker"
	"github.com/aura-events/registration-service/pkg/database"
	"github.com/aura-events/registration-service/pkg/queue"
	"github.com/aura-events/registration-service/pkg/redis"
	"github.com/aura-events/registration-service/pkg/response"
	"github.com/aura-events/registration-service/pkg/tracing"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	tp, err := tracing.NewProvider(ctx, tracing.Config{
		Exporter:     cfg.Tracing.Exporter,
		OTLPEndpoint: cfg.Tracing.OTLPEndpoint,
		ServiceName:  cfg.Tracing.ServiceName,
	})
	if err != nil {
		logger.Fatal("tracing", zap.Error(err))
	}

	var store registrations.Store
	switch cfg.Database.Driver {
	case config.StoreDriverMemory:
		store = registrations.NewMemoryStore()
		logger.Warn("using in-memory registration store; data is lost on restart")
	default:
		pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
		if err != nil {
			logger.Fatal("database", zap.Error(err))
		}
		defer pool.Close()
		if err := database.Migrate(ctx, pool, logger); err != nil {
			logger.Fatal("migrate", zap.Error(err))
		}
		store = registrations.NewRepository(pool)
	}

	// Without Redis the service still runs; failed compensations are only logged.
	var compensations *queue.Queue
	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Warn("redis unavailable, compensation queue disabled", zap.Error(err))
	} else {
		defer rdb.Close()
		compensations = queue.NewQueue(rdb.Client, logger)
	}

	httpClient := &http.Client{Timeout: cfg.Services.GatewayTimeout}
	userClient := clients.NewUserClient(cfg.Services.UserServiceURL, httpClient)
	var eventCatalog registrations.EventCatalogGateway = clients.NewEventClient(cfg.Services.EventServiceURL, httpClient, time.Local)
	if cfg.Services.TeamCacheTTL > 0 {
		eventCatalog = clients.NewCachedEventCatalog(eventCatalog, cfg.Services.TeamCacheTTL)
	}

	seed := cfg.Lifecycle.SecretSeed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	opts := registrations.Options{
		GatewayTimeout: cfg.Services.GatewayTimeout,
		PromotionScope: registrations.PromotionScope(cfg.Lifecycle.PromotionScope),
		Retry: registrations.RetryPolicy{
			MaxAttempts: cfg.Lifecycle.RetryAttempts,
			MinBackoff:  cfg.Lifecycle.RetryMinBackoff,
			MaxBackoff:  cfg.Lifecycle.RetryMaxBackoff,
		},
		Secrets: registrations.NewSeededSecretGenerator(seed),
	}
	if compensations != nil {
		opts.Compensator = compensations
	}
	svc := registrations.NewService(store, userClient, eventCatalog, opts, logger)
	registrationHandler := registrations.NewHandler(svc, logger)

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	router.GET("/health", func(c *gin.Context) {
		if rdb != nil {
			if err := rdb.Healthy(c.Request.Context()); err != nil {
				response.ServiceUnavailable(c, "redis: "+err.Error())
				return
			}
		}
		response.OK(c, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	registrationHandler.Mount(router,
		middleware.JWT(jwtService),
		middleware.RequireRole(models.RoleService, models.RoleAdmin),
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	if cfg.Lifecycle.WorkerInProcess && compensations != nil {
		processor := worker.NewCompensationProcessor(compensations, userClient, store, logger)
		go processor.Run(workerCtx)
		logger.Info("compensation worker started")
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	workerCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	if err := tp.Shutdown(shutdownCtx); err != nil {
		logger.Error("tracing shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
