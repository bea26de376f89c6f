package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/varsharma-code/AI-Challenge-Backend/internal/config"
	"github.com/varsharma-code/AI-Challenge-Backend/internal/handler"
	"github.com/varsharma-code/AI-Challenge-Backend/internal/llm"
	"github.com/varsharma-code/AI-Challenge-Backend/internal/queue"
	"github.com/varsharma-code/AI-Challenge-Backend/internal/repository"
	"github.com/varsharma-code/AI-Challenge-Backend/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// legacyGeminiRPM caps the single-provider fallback below the free tier limit
const legacyGeminiRPM = 8

func main() {
	// Load configuration
	cfg, err := config.LoadConfig(config.Path())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := newLogger(cfg)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	logger.Info("Starting Threat Intelligence Service...")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize LLM client (multi-provider with rate limiting)
	llmClient, err := newLLMClient(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize LLM client", zap.Error(err))
	}
	defer llmClient.Close()

	// Initialize repository
	repo, err := repository.New(ctx, repository.Config{
		Type:       cfg.Database.Type,
		URI:        cfg.Database.URI,
		Name:       cfg.Database.Name,
		Collection: cfg.Database.Collection,
		Path:       cfg.Database.Path,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize repository", zap.Error(err))
	}
	defer repo.Close()

	// Initialize queue client
	tokens := queue.NewTokenProvider(
		cfg.Orchestrator.IdentityURL,
		cfg.Orchestrator.ClientID,
		cfg.Orchestrator.ClientSecret,
		cfg.Orchestrator.Scopes,
		logger,
	)
	queueClient, err := queue.NewClient(queue.Config{
		URL:        cfg.Orchestrator.URL,
		QueueID:    cfg.Orchestrator.QueueID,
		FolderID:   cfg.Orchestrator.FolderID,
		ReleaseKey: cfg.Orchestrator.ReleaseKey,
		MaxRetries: cfg.Orchestrator.MaxRetries,
		RetryDelay: cfg.Orchestrator.RetryDelay,
		Timeout:    cfg.Orchestrator.Timeout,
	}, tokens, logger)
	if err != nil {
		logger.Fatal("Failed to initialize orchestrator client", zap.Error(err))
	}

	// Initialize services
	gate := service.NewGate(repo, logger)
	orchestrator := service.NewOrchestrator(service.OrchestratorConfig{
		CallDelay:        cfg.Pipeline.CallDelay,
		MaxArticleTokens: cfg.Pipeline.MaxArticleTokens,
	}, llmClient, queueClient, gate, logger)
	threats := service.NewThreatService(repo, gate, logger)

	if cfg.Scheduler.Interval > 0 {
		scheduler := service.NewScheduler(orchestrator, cfg.Scheduler.Interval, logger)
		go scheduler.Run(ctx)
	}

	// Initialize HTTP handler
	apiHandler := handler.NewHandler(threats, orchestrator, cfg.Auth.JWTSecret, logger)

	// Setup Gin router
	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(
		gin.Recovery(),
		handler.AccessLog(logger),
		handler.CORS(),
		handler.RateLimit(cfg.Server.RateLimit.RequestsPerSecond, cfg.Server.RateLimit.Burst),
	)

	// Register routes
	apiHandler.RegisterRoutes(router)

	// Start server
	serverAddr := fmt.Sprintf(":%s", cfg.Server.Port)
	logger.Info("Server starting", zap.String("address", serverAddr))

	srv := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Get model info for logging
	modelInfo := llmClient.GetModelInfo()
	modelName := "unknown"
	if m, ok := modelInfo["model"].(string); ok {
		modelName = m
	}

	logger.Info("Threat Intelligence Service is running",
		zap.String("port", cfg.Server.Port),
		zap.String("model", modelName),
		zap.Duration("call_delay", cfg.Pipeline.CallDelay),
		zap.Duration("scheduler_interval", cfg.Scheduler.Interval))

	// Wait for interrupt signal
	<-ctx.Done()

	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	zapCfg := zap.NewProductionConfig()
	if cfg.Log.Development {
		zapCfg = zap.NewDevelopmentConfig()
	}

	level, err := zap.ParseAtomicLevel(cfg.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Log.Level, err)
	}
	zapCfg.Level = level

	return zapCfg.Build()
}

// newLLMClient prefers the configured provider list and falls back to the
// legacy single Gemini block
func newLLMClient(cfg *config.Config, logger *zap.Logger) (llm.Provider, error) {
	if len(cfg.Providers) > 0 {
		multiClient, err := llm.NewMultiProviderClient(llm.MultiProviderConfig{
			Providers:   cfg.Providers,
			MaxFailures: cfg.MaxFailuresBeforeSwitch,
		}, logger)
		if err == nil {
			logger.Info("Multi-provider client initialized",
				zap.Int("provider_count", multiClient.ProviderCount()),
				zap.Int("configured_count", len(cfg.Providers)))
			return multiClient, nil
		}
		logger.Warn("Failed to initialize multi-provider client, falling back to single provider",
			zap.Error(err))
	}

	if cfg.Gemini.APIKey == "" || cfg.Gemini.APIKey == "YOUR_API_KEY_HERE" {
		return nil, errors.New("no LLM provider configured: set providers or gemini.api_key")
	}

	geminiClient, err := llm.NewProvider(llm.ProviderConfig{
		Type:       llm.ProviderGemini,
		APIKey:     cfg.Gemini.APIKey,
		ModelName:  cfg.Gemini.ModelName,
		MaxRetries: cfg.Gemini.MaxRetries,
		RetryDelay: 2 * time.Second,
	}, logger)
	if err != nil {
		return nil, err
	}

	logger.Info("Single provider client initialized with rate limiting")
	return llm.NewRateLimitedProvider(geminiClient, legacyGeminiRPM, logger), nil
}
