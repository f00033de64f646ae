package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"filmrate/backend/internal/cache"
	"filmrate/backend/internal/config"
	"filmrate/backend/internal/database"
	"filmrate/backend/internal/handler"
	"filmrate/backend/internal/hub"
	"filmrate/backend/internal/middleware"
	"filmrate/backend/internal/service"
	"filmrate/backend/internal/storage"
	"filmrate/backend/internal/storage/gormstore"
	"filmrate/backend/internal/storage/memory"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	// Swagger imports
	_ "filmrate/backend/docs" // This is important for swag to find the generated docs

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

const envProd = "prod"

// @title           Filmrate API
// @version         1.0
// @description     Users, friendships, films, likes and film rankings.
// @host            localhost:8080
// @BasePath        /api/v1
func main() {
	if err := run(); err != nil {
		slog.Error("server stopped", slog.String("err", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(".")
	if err != nil {
		return err
	}

	log, err := setupLogger(cfg)
	if err != nil {
		return err
	}
	slog.SetDefault(log)
	log.Info("starting filmrate", slog.String("env", cfg.Env), slog.String("backend", cfg.StorageBackend))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStorage(cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			log.Warn("storage close failed", slog.String("err", cerr.Error()))
		}
	}()

	events := hub.New()
	svc := service.New(st, events)

	if cfg.SeedReferenceData {
		if err := svc.SeedCatalog(ctx); err != nil {
			return fmt.Errorf("seed reference data: %w", err)
		}
	}

	if cfg.RedisURL != "" {
		popular, err := cache.NewPopular(ctx, cfg.RedisURL, cfg.PopularCacheTTL)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := popular.Close(); cerr != nil {
				log.Warn("redis close failed", slog.String("err", cerr.Error()))
			}
		}()
		svc.SetPopularCache(popular)
		log.Info("popular films cache enabled", slog.Duration("ttl", cfg.PopularCacheTTL))
	}

	if cfg.Env == envProd {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.Logging(log),
		middleware.NewMetrics(prometheus.DefaultRegisterer).Handler(),
	)

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check endpoint
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	handler.New(svc, events).Register(router.Group("/api/v1"))

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		// Event streams live as long as the request context.
		BaseContext: func(_ net.Listener) context.Context { return ctx },
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("http server listening", slog.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown requested")
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http serve: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown incomplete", slog.String("err", err.Error()))
	} else {
		log.Info("http server stopped")
	}
	return nil
}

func openStorage(cfg *config.Config, log *slog.Logger) (storage.Storage, error) {
	if cfg.StorageBackend == config.BackendMemory {
		return memory.New(), nil
	}

	db, err := database.Connect(cfg.DatabaseURL, log)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		return nil, err
	}
	log.Info("database migrated")
	return gormstore.New(db), nil
}

func setupLogger(cfg *config.Config) (*slog.Logger, error) {
	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts)), nil
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts)), nil
}
