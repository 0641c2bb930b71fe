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

	"github.com/joho/godotenv"

	"github.com/foodscan/foodscan-api/internal/ai"
	"github.com/foodscan/foodscan-api/internal/config"
	"github.com/foodscan/foodscan-api/internal/domain"
	"github.com/foodscan/foodscan-api/internal/logger"
	"github.com/foodscan/foodscan-api/internal/repository"
	"github.com/foodscan/foodscan-api/internal/server"
	"github.com/foodscan/foodscan-api/internal/services"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.InitWithConfig(logger.Config{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	}); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	logger.Info("Starting foodscan API", "env", cfg.Env, "ai_provider", cfg.AIProvider)

	ctx := context.Background()

	store, err := buildStore(cfg)
	if err != nil {
		logger.Fatal("Failed to initialize scan store", "error", err.Error())
	}

	gemini, err := ai.NewGeminiClient(ctx, cfg.GeminiAPIKey)
	if err != nil {
		logger.Fatal("Failed to create Gemini client", "error", err.Error())
	}
	defer gemini.Close()

	var reasoning services.TextGenerator = gemini
	if cfg.AIProvider == config.ProviderOpenAI {
		openaiClient, err := ai.NewOpenAIClient(cfg.OpenAIAPIKey)
		if err != nil {
			logger.Fatal("Failed to create OpenAI client", "error", err.Error())
		}
		reasoning = openaiClient
	}

	scanService := services.NewScanService(
		services.NewVisionService(gemini),
		services.NewAIService(reasoning),
		services.NewCatalogService(cfg.Catalog.BaseURL, cfg.Catalog.Timeout),
		store,
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      server.NewRouter(cfg, scanService),
		ReadTimeout:  cfg.Server.RequestTimeout,
		WriteTimeout: cfg.Server.RequestTimeout,
	}

	go func() {
		logger.Info("HTTP server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", "error", err.Error())
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Forced shutdown", "error", err.Error())
	}
	logger.Info("Server exited")
}

// buildStore wires the Postgres store, optionally fronted by the Redis cache.
func buildStore(cfg *config.Config) (domain.ScanRepository, error) {
	store, err := repository.NewPostgresScanStore(cfg.DB)
	if err != nil {
		return nil, err
	}

	if !cfg.Redis.CacheEnabled() {
		return store, nil
	}

	cached, err := repository.NewCachedScanStore(store, cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.TTL)
	if err != nil {
		return nil, err
	}
	logger.Info("Redis scan cache enabled", "host", cfg.Redis.Host)
	return cached, nil
}
