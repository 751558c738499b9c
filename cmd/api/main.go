package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/oakhart/claude-agent/internal/admin"
	"github.com/oakhart/claude-agent/internal/api/router"
	"github.com/oakhart/claude-agent/internal/chat"
	appconfig "github.com/oakhart/claude-agent/internal/config"
	"github.com/oakhart/claude-agent/internal/errlog"
	"github.com/oakhart/claude-agent/internal/http/handlers"
	"github.com/oakhart/claude-agent/internal/observability/metrics"
	"github.com/oakhart/claude-agent/internal/ratelimit"
	"github.com/oakhart/claude-agent/internal/retention"
	"github.com/oakhart/claude-agent/internal/sysmetrics"
	"github.com/oakhart/claude-agent/pkg/logging"
)

func main() {
	// Load .env if present; real environments set variables directly.
	_ = godotenv.Load()

	cfg := appconfig.Load()

	logger := logging.NewWithFile(cfg.LogLevel, cfg.LogFile)
	logger.Info("starting claude-agent API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"provider", cfg.LLMProvider,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		logger.Error("database unreachable", "error", err)
		os.Exit(1)
	}

	// database/sql handle for the admin stats queries.
	sqlDB, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to open sql database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = sqlDB.Close() }()

	llm, err := buildLLMClient(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to build LLM client", "error", err)
		os.Exit(1)
	}

	conversations := chat.NewConversationStore(pool)
	sessions := chat.NewSessionStore(pool)
	errorLog := errlog.NewStore(pool)

	service := chat.NewService(llm, conversations, sessions, logger,
		chat.WithErrorRecorder(errorLog),
	)

	registry := prometheus.NewRegistry()
	chatMetrics := metrics.NewChatMetrics(registry)

	limiter := ratelimit.New(cfg.RateLimitRequests, cfg.RateLimitWindow)
	defer limiter.Close()

	counter := sysmetrics.NewRequestCounter()
	sampler := sysmetrics.NewSampler(time.Now())

	collector := sysmetrics.NewCollector(sampler, sysmetrics.NewStore(pool), counter, cfg.MetricsInterval, logger)
	go collector.Run(ctx)

	sweeper := retention.NewSweeper(pool, cfg.CleanupInterval, cfg.RetentionWindow, logger)
	go sweeper.Run(ctx)

	chatHandler := chat.NewHandler(service, sessions, cfg.DefaultModel, chatMetrics, logger)
	healthHandler := handlers.NewHealthHandler(pool, sampler, cfg.APIConfigured(), logger)
	statsHandler := admin.NewStatsHandler(admin.NewStatsRepository(sqlDB), logger)

	r := router.New(&router.Config{
		Logger:             logger,
		ChatHandler:        chatHandler,
		ChatMetrics:        chatMetrics,
		HealthHandler:      healthHandler,
		AdminStatsHandler:  statsHandler,
		MetricsHandler:     promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		RateLimiter:        limiter,
		RequestCounter:     counter,
		CORSAllowedOrigins: cfg.AllowedOrigins,
		AllowedHosts:       cfg.AllowedHosts,
	})

	srv := &http.Server{
		Addr:         cfg.Host + ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

// buildLLMClient selects the provider from config and optionally chains a
// fallback behind it.
func buildLLMClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (chat.LLMClient, error) {
	primary, err := newProviderClient(ctx, cfg, cfg.LLMProvider)
	if err != nil {
		return nil, err
	}
	if cfg.FallbackProvider == "" || cfg.FallbackProvider == cfg.LLMProvider {
		return primary, nil
	}
	fallback, err := newProviderClient(ctx, cfg, cfg.FallbackProvider)
	if err != nil {
		logger.Warn("fallback provider unavailable, continuing without it",
			"provider", cfg.FallbackProvider, "error", err)
		return primary, nil
	}
	return chat.NewFallbackLLMClient(primary, fallback, logger), nil
}

func newProviderClient(ctx context.Context, cfg *appconfig.Config, provider string) (chat.LLMClient, error) {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "", "anthropic":
		if !cfg.APIConfigured() {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY is required for the anthropic provider")
		}
		return chat.NewAnthropicClient(chat.AnthropicConfig{
			BaseURL: cfg.AnthropicBaseURL,
			APIKey:  cfg.AnthropicAPIKey,
		})
	case "bedrock":
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		return chat.NewBedrockLLMClient(bedrockruntime.NewFromConfig(awsCfg), cfg.BedrockModelID), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", provider)
	}
}
