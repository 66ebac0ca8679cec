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

	"timalaus_progression/internal/api"
	"timalaus_progression/internal/config"
	"timalaus_progression/internal/leaderboard"
	"timalaus_progression/internal/middleware"
	"timalaus_progression/internal/progression"
	"timalaus_progression/internal/repository"
	"timalaus_progression/internal/service"
	"timalaus_progression/internal/worker"
	"timalaus_progression/pkg/auth"
	"timalaus_progression/pkg/logger"
	"go.uber.org/zap"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

const (
	shutdownTimeout   = 10 * time.Second
	leaderboardWarmup = 1000
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	err = logger.Initialize(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	zapLogger := logger.Logger()

	repo, err := repository.New(cfg.Database)
	if err != nil {
		zapLogger.Fatal("Failed to initialize repository", zap.Error(err))
	}
	defer repo.Close()

	engine, err := progression.NewEngine(cfg.Progression)
	if err != nil {
		zapLogger.Fatal("Failed to build progression engine", zap.Error(err))
	}

	catalog, err := service.NewCatalog(repo, cfg.Catalog.CacheSize, cfg.Catalog.TTL)
	if err != nil {
		zapLogger.Fatal("Failed to build catalog", zap.Error(err))
	}

	hub := api.NewHub()
	defer hub.Close()

	hooks := service.Hooks{Notifier: hub}
	checks := map[string]api.Pinger{"database": repo}
	var (
		board service.LeaderboardStore
		pool  *worker.Pool
	)
	if cfg.Redis.Enabled {
		rb := leaderboard.New(cfg.Redis)
		defer rb.Close()

		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := rb.Ping(pingCtx)
		cancel()
		if err != nil {
			zapLogger.Fatal("Failed to connect to redis", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		}

		pool = worker.NewPool(cfg.Worker, rb)
		pool.Start()

		board = rb
		hooks.Leaderboard = pool
		checks["redis"] = rb
	}

	tracker := service.NewQuestTracker(catalog, repo, repo, engine, hooks)
	achievementService := service.NewAchievementService(catalog, repo, engine, hooks)
	gameService := service.NewGameService(catalog, repo, tracker, achievementService, engine, hooks)
	profileService := service.NewProfileService(repo, board, engine, hooks)

	if board != nil {
		syncCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := profileService.SyncLeaderboard(syncCtx, leaderboardWarmup); err != nil {
			zapLogger.Warn("Failed to warm up leaderboard", zap.Error(err))
		}
		cancel()
	}

	supabaseAuth := auth.NewSupabaseAuth(cfg.Auth)
	authz := middleware.NewAuthorization(profileService)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(logger.Middleware())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowMethods = []string{
		http.MethodHead,
		http.MethodGet,
		http.MethodPost,
		http.MethodPut,
		http.MethodPatch,
		http.MethodDelete,
	}
	corsConfig.AllowHeaders = []string{"*"}
	corsConfig.AllowCredentials = true
	corsConfig.MaxAge = 12 * time.Hour

	router.Use(cors.New(corsConfig))

	a := router.Group("/api/v1")
	api.NewHealthRoutes(a, checks)
	api.NewProfileRoutes(a, profileService, supabaseAuth, authz)
	api.NewQuestRoutes(a, tracker, supabaseAuth)
	api.NewAchievementRoutes(a, achievementService, supabaseAuth)
	api.NewGameRoutes(a, gameService, hub, supabaseAuth)
	api.NewCatalogRoutes(a, catalog, supabaseAuth, authz)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zapLogger.Info("Starting server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zapLogger.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}

	if pool != nil {
		if err := pool.Shutdown(shutdownTimeout); err != nil {
			zapLogger.Warn("Leaderboard workers did not drain", zap.Error(err))
		}
		m := pool.Metrics()
		zapLogger.Info("Leaderboard worker stats",
			zap.Int64("processed", m.Processed),
			zap.Int64("failed", m.Failed),
			zap.Int64("dropped", m.Backpressure),
		)
	}
}
