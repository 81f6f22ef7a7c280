package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/google/generative-ai-go/genai"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"

	"github.com/Snoglet99/JobAgent/cache"
	"github.com/Snoglet99/JobAgent/config"
	"github.com/Snoglet99/JobAgent/handlers"
	"github.com/Snoglet99/JobAgent/repository"
	"github.com/Snoglet99/JobAgent/service"
	"github.com/Snoglet99/JobAgent/storage"
)

func main() {
	// Load .env file from project root (relative to cmd/server/)
	// Try current directory first, then project root
	if err := godotenv.Load(); err != nil {
		if err := godotenv.Load("../../.env"); err != nil {
			log.Info().Msg("No .env file found, using environment variables")
		}
	}

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	setupLogging(cfg.Logging)

	// Repositories: Postgres when a database URL is configured, otherwise
	// one JSON record per user in blob storage.
	var (
		profileRepo repository.ProfileRepository
		historyRepo repository.HistoryRepository
	)
	if cfg.Database.URL != "" {
		db, err := initPostgres(cfg.Database.URL)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize Postgres")
		}
		defer db.Close()
		profileRepo = repository.NewPostgresProfileRepository(db)
		historyRepo = repository.NewPostgresHistoryRepository(db)
		log.Info().Msg("Postgres repositories initialized")
	} else {
		store, err := storage.NewStorage(storage.StorageConfig{
			Type:         storage.StorageType(cfg.Storage.Backend),
			LocalPath:    cfg.Storage.LocalPath,
			S3Bucket:     cfg.Storage.S3Bucket,
			S3Region:     cfg.Storage.S3Region,
			AWSAccessKey: cfg.Storage.AWSAccessKey,
			AWSSecretKey: cfg.Storage.AWSSecretKey,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize storage")
		}
		profileRepo = repository.NewBlobProfileRepository(store)
		historyRepo = repository.NewBlobHistoryRepository(store)
		log.Info().Str("backend", cfg.Storage.Backend).Msg("Blob repositories initialized")
	}

	// Redis is optional. Without it news lookups go straight upstream.
	newsCache, err := cache.NewCache(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Warn().Err(err).Msg("Redis unavailable, news caching disabled")
		newsCache = nil
	} else {
		defer newsCache.Close()
	}

	geminiClient, err := initGemini(cfg.Gemini.APIKey)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize Gemini")
	}

	// Services
	ledgerService := service.NewLedgerService(
		service.LedgerWithProfileRepository(profileRepo),
		service.LedgerWithFreeLimit(cfg.Metering.FreeLimit),
		service.LedgerWithMaxEditRounds(cfg.Metering.MaxEditRounds),
	)

	generationService := service.NewGenerationService(
		service.GenerationWithGeminiClient(geminiClient),
		service.GenerationWithAPIKey(cfg.Gemini.APIKey),
	)

	newsOpts := []service.NewsServiceOption{
		service.NewsWithAPIKey(cfg.News.APIKey),
		service.NewsWithLocale(cfg.News.Language, cfg.News.Country),
		service.NewsWithCacheTTL(cfg.News.CacheTTL),
	}
	if newsCache != nil {
		newsOpts = append(newsOpts, service.NewsWithCache(newsCache))
	}
	newsService := service.NewNewsService(newsOpts...)

	paymentService := service.NewPaymentService(
		service.PaymentWithSecretKey(cfg.Stripe.SecretKey),
		service.PaymentWithWebhookSecret(cfg.Stripe.WebhookSecret),
		service.PaymentWithFrontendURL(cfg.Stripe.FrontendURL),
	)

	// Handlers
	profileHandler := handlers.NewProfileHandler(profileRepo, historyRepo, ledgerService)
	applicationHandler := handlers.NewApplicationHandler(ledgerService, generationService, newsService, profileRepo, historyRepo)
	billingHandler := handlers.NewBillingHandler(paymentService, ledgerService, profileRepo, cfg.Metering.CreditsPerPurchase)

	// Setup Gin router
	r := gin.Default()
	r.Use(handlers.RequestID())

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
		})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API routes
	api := r.Group("/api")
	{
		// Profile endpoints
		api.GET("/profiles/:email", profileHandler.GetProfile)
		api.PUT("/profiles/:email", profileHandler.UpdateProfile)
		api.GET("/profiles/:email/usage", profileHandler.GetUsage)
		api.GET("/profiles/:email/history", profileHandler.GetHistory)

		// Application endpoints
		api.POST("/job-ads/parse", applicationHandler.ParseJobAd)
		api.GET("/news", applicationHandler.GetNews)
		api.POST("/applications/generate", applicationHandler.Generate)
		api.POST("/applications/refine", applicationHandler.Refine)

		// Billing endpoints
		api.POST("/billing/checkout", billingHandler.CreateCheckout)
		api.GET("/billing/confirm", billingHandler.ConfirmRedirect)
		api.POST("/billing/webhook", billingHandler.Webhook)
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}

func setupLogging(cfg config.LoggingConfig) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

func initPostgres(connString string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(context.Background(), connString)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(context.Background()); err != nil {
		return nil, err
	}

	log.Info().Msg("Postgres connection established")
	return pool, nil
}

func initGemini(apiKey string) (*genai.Client, error) {
	if apiKey == "" {
		log.Warn().Msg("Gemini API key not set")
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}

	log.Info().Msg("Gemini client initialized")
	return client, nil
}
