package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"marketplace-server/config"
	"marketplace-server/database"
	"marketplace-server/jobs"
	"marketplace-server/metrics"
	"marketplace-server/middleware"
	"marketplace-server/repository"
	"marketplace-server/routes"
	"marketplace-server/services"
	"marketplace-server/utils"
	ws "marketplace-server/websocket"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	// Load configuration
	config.Load()
	cfg := config.AppConfig

	utils.InitializeLogger(cfg.IsProduction(), cfg.App.LogLevel)
	logger := utils.GetLogger()
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, snapshots, err := openStore(cfg)
	if err != nil {
		logger.Fatal("Failed to open store", zap.Error(err))
	}
	if snapshots != nil {
		snapshots.Start()
		defer snapshots.Stop()
	}

	tokens := services.NewJWTService(cfg.JWT.Secret, time.Duration(cfg.JWT.ExpiryHours)*time.Hour)

	hub := ws.NewHub()
	go hub.Run(ctx)

	limiter := middleware.NewRateLimiter()
	limiter.StartCleanup(ctx, 10*time.Minute)

	// Set Gin mode
	if cfg.Server.GinMode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Disable automatic redirects for trailing slashes
	router.RedirectTrailingSlash = false
	router.RedirectFixedPath = false

	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	router.Use(metrics.Middleware())
	router.Use(middleware.SecurityHeadersMiddleware())
	router.Use(middleware.CORSMiddleware(cfg.Server.AllowedOrigins))
	router.Use(middleware.RateLimitMiddleware(limiter))
	router.Use(middleware.InputValidationMiddleware())

	router.GET("/metrics", gin.WrapH(metrics.Handler()))
	routes.RegisterRoutes(router, routes.Deps{
		Store:  store,
		Tokens: tokens,
		Hub:    hub,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Server starting",
			zap.String("port", cfg.Server.Port),
			zap.String("store", cfg.Store.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", zap.Error(err))
	}
}

// openStore picks the system of record. The memory driver is restored from
// its snapshot file and gets a job that keeps the file current.
func openStore(cfg *config.Config) (repository.Store, *jobs.SnapshotJob, error) {
	switch cfg.Store.Driver {
	case "memory":
		store := repository.NewMemoryStore()
		if err := store.LoadFile(cfg.Store.SnapshotPath); err != nil {
			return nil, nil, err
		}
		return store, jobs.NewSnapshotJob(store, cfg.Store.SnapshotPath, cfg.Store.SnapshotInterval), nil
	default:
		if err := database.Initialize(cfg.Database.URL, cfg.IsProduction()); err != nil {
			return nil, nil, err
		}
		return repository.NewGormStore(database.GetDB()), nil, nil
	}
}
