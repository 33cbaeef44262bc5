package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/civic-connect/civic-api/api/swagger"
	"github.com/civic-connect/civic-api/internal/dto"
	"github.com/civic-connect/civic-api/internal/handler"
	"github.com/civic-connect/civic-api/internal/middleware"
	"github.com/civic-connect/civic-api/internal/repository"
	"github.com/civic-connect/civic-api/internal/service"
	"github.com/civic-connect/civic-api/pkg/cache"
	"github.com/civic-connect/civic-api/pkg/config"
	"github.com/civic-connect/civic-api/pkg/database"
	"github.com/civic-connect/civic-api/pkg/llm"
	"github.com/civic-connect/civic-api/pkg/logger"
	corsmiddleware "github.com/civic-connect/civic-api/pkg/middleware/cors"
	reqidmiddleware "github.com/civic-connect/civic-api/pkg/middleware/requestid"
)

// @title Civic Connect API
// @version 1.0.0
// @description Job board, marketplace and reputation backend for institutions and citizens.
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(db); err != nil {
			logr.Fatal("failed to apply migrations", zap.Error(err))
		}
		logr.Info("migrations applied")
	}

	metrics := service.NewMetricsService()

	var cacheRepo service.CacheRepository
	checks := map[string]handler.Pinger{"postgres": db.PingContext}
	if cfg.Cache.Enabled {
		client, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, caching disabled", zap.Error(err))
		} else {
			defer client.Close()
			cacheRepo = repository.NewCacheRepository(client, "civic")
			checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
		}
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Cache.TTL, logr, cacheRepo != nil)

	validate := dto.NewValidator()
	limits := service.NewListLimits(cfg.Listing)

	userRepo := repository.NewUserRepository(db)
	jobRepo := repository.NewJobRepository(db)
	productRepo := repository.NewProductRepository(db)
	appRepo := repository.NewApplicationRepository(db)
	reviewRepo := repository.NewReviewRepository(db)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		Secret:    cfg.JWT.Secret,
		Expiry:    cfg.JWT.Expiration,
		Issuer:    cfg.JWT.Issuer,
		AdminCode: cfg.Admin.RegistrationCode,
	})
	reviewSvc := service.NewReviewService(reviewRepo, userRepo, cacheSvc, validate, logr, limits).WithEvents(metrics)
	userSvc := service.NewUserService(userRepo, reviewSvc, validate, logr, limits)
	jobSvc := service.NewJobService(jobRepo, appRepo, validate, logr, limits).WithEvents(metrics)
	productSvc := service.NewProductService(productRepo, validate, logr, limits).WithEvents(metrics)
	appSvc := service.NewApplicationService(appRepo, jobRepo, validate, logr, limits).WithEvents(metrics)
	exportSvc := service.NewExportService(appRepo, jobRepo, logr, nil, nil)

	var generator service.TextGenerator
	if cfg.Assistant.Enabled {
		generator = llm.New(cfg.Assistant)
	}
	assistantSvc := service.NewAssistantService(generator, jobRepo, validate, logr)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	var limiter *middleware.RateLimiter
	stopSweeper := make(chan struct{})
	defer close(stopSweeper)
	if cfg.RateLimit.Enabled {
		limiter = middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, logr).WithRecorder(metrics)
		limiter.StartSweeper(time.Minute, stopSweeper)
	}

	handler.RegisterRoutes(r, cfg.APIPrefix, handler.Handlers{
		Auth:         handler.NewAuthHandler(authSvc),
		Users:        handler.NewUserHandler(userSvc),
		Jobs:         handler.NewJobHandler(jobSvc),
		Products:     handler.NewProductHandler(productSvc),
		Applications: handler.NewApplicationHandler(appSvc, exportSvc),
		Reviews:      handler.NewReviewHandler(reviewSvc),
		Meta:         handler.NewMetaHandler(),
		Assistant:    handler.NewAssistantHandler(assistantSvc),
		Metrics:      handler.NewMetricsHandler(metrics, checks),
	}, handler.RouteDeps{
		Auth:        authSvc,
		Audit:       userRepo,
		AuditLogger: logr,
		RateLimiter: limiter,
	})

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
