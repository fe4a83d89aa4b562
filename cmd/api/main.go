package main

import (
	"context"
	"crypto/tls"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/flowline-ai/flowline/cmd/mainconfig"
	"github.com/flowline-ai/flowline/internal/api/router"
	"github.com/flowline-ai/flowline/internal/archive"
	"github.com/flowline-ai/flowline/internal/assembler"
	"github.com/flowline-ai/flowline/internal/canvas"
	appconfig "github.com/flowline-ai/flowline/internal/config"
	"github.com/flowline-ai/flowline/internal/engine"
	"github.com/flowline-ai/flowline/internal/events"
	"github.com/flowline-ai/flowline/internal/history"
	"github.com/flowline-ai/flowline/internal/http/handlers"
	"github.com/flowline-ai/flowline/internal/notify"
	"github.com/flowline-ai/flowline/internal/observability/metrics"
	"github.com/flowline-ai/flowline/internal/submission"
	"github.com/flowline-ai/flowline/internal/suggest"
	"github.com/flowline-ai/flowline/internal/wizard"
	"github.com/flowline-ai/flowline/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting flowline composer API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}

	// Redis backs wizard sessions and canvas layouts
	redisOpts := &redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}
	if cfg.RedisTLS {
		redisOpts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	redisClient := redis.NewClient(redisOpts)
	sessionStore := wizard.NewStore(redisClient)
	canvasStore := canvas.NewStore(redisClient)

	// Metrics
	registry := prometheus.NewRegistry()
	composerMetrics := metrics.NewComposerMetrics(registry)

	// Engine client
	engineClient, err := engine.New(engine.Config{
		BaseURL: cfg.EngineBaseURL,
		APIKey:  cfg.EngineAPIToken,
		Timeout: cfg.EngineTimeout,
		Logger:  logger.Logger,
	})
	if err != nil {
		logger.Error("failed to create engine client", "error", err)
		os.Exit(1)
	}
	asm := assembler.New(engineClient, logger, composerMetrics)

	var statusCache *engine.StatusCache
	if cfg.SubmissionTable != "" {
		statusCache = engine.NewStatusCache(dynamodb.NewFromConfig(awsCfg), cfg.SubmissionTable, logger)
	}

	// Postgres: submission history and the event outbox
	var historyRepo *history.Repository
	var publisher *events.Publisher
	var deliverer *events.Deliverer
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		historyRepo = history.NewRepository(db)

		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to create pgx pool", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		outbox := events.NewOutboxStore(pool)
		publisher = events.NewPublisher(outbox)
		if cfg.EventQueueURL != "" {
			sqsHandler := events.NewSQSDeliveryHandler(sqs.NewFromConfig(awsCfg), cfg.EventQueueURL)
			deliverer = events.NewDeliverer(outbox, sqsHandler, logger).
				WithBatchSize(int32(cfg.OutboxBatchSize)).
				WithInterval(cfg.OutboxPollInterval)
		}
	}

	// Archival and notifications
	archiveStore := archive.NewStore(s3.NewFromConfig(awsCfg), cfg.ArchiveBucket, logger.Logger)
	var emailSender notify.EmailSender
	if sg := notify.NewSendGridSender(notify.SendGridConfig{
		APIKey:    cfg.SendGridAPIKey,
		FromEmail: cfg.SendGridFromEmail,
		FromName:  cfg.SendGridFromName,
	}, logger); sg != nil {
		emailSender = sg
	} else if cfg.SESFromEmail != "" {
		emailSender = notify.NewSESSender(sesv2.NewFromConfig(awsCfg), notify.SESConfig{
			FromEmail: cfg.SESFromEmail,
			FromName:  cfg.SESFromName,
		}, logger)
	}
	notifySvc := notify.NewService(emailSender, notify.NewWebhookSink(logger), logger)

	recorder := submission.NewRecorder(submission.RecorderConfig{
		History: historyRepo,
		Events:  publisher,
		Archive: archiveStore,
		Notify:  notifySvc,
		Logger:  logger,
	})

	// LLM-backed suggestions
	var llm suggest.LLMClient
	switch cfg.LLMProvider {
	case "gemini":
		if cfg.GeminiAPIKey != "" {
			gemini, err := suggest.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID)
			if err != nil {
				logger.Error("failed to create gemini client", "error", err)
				os.Exit(1)
			}
			defer gemini.Close()
			llm = gemini
		}
	default:
		if client := suggest.NewBedrockClient(bedrockruntime.NewFromConfig(awsCfg), cfg.BedrockModelID); client != nil {
			llm = client
		}
	}
	suggestSvc := suggest.NewService(llm, logger)

	// Canvas live view
	hub := canvas.NewHub(logger)

	// Handlers
	wizardHandler := wizard.NewHandler(sessionStore, asm, logger, composerMetrics).
		WithSink(recorder).
		WithWorkflowLoader(engineClient).
		WithSubmitTimeout(cfg.SubmitTimeout)
	canvasHandler := canvas.NewHandler(canvasStore, hub, logger)
	assistHandler := handlers.NewAssistHandler(sessionStore, suggestSvc, logger)
	providersHandler := handlers.NewProvidersHandler(sessionStore, cfg.PublicBaseURL, logger)
	workflowsHandler := handlers.NewWorkflowsHandler(engineClient, statusCache, logger).WithEvents(publisher)
	monitoringHandler := handlers.NewMonitoringHandler(sessionStore, notifySvc, logger)
	var historyHandler *handlers.HistoryHandler
	if historyRepo != nil {
		historyHandler = handlers.NewHistoryHandler(historyRepo, logger)
	}

	// Setup router
	routerCfg := &router.Config{
		Logger:             logger,
		WizardHandler:      wizardHandler,
		CanvasHandler:      canvasHandler,
		AssistHandler:      assistHandler,
		ProvidersHandler:   providersHandler,
		WorkflowsHandler:   workflowsHandler,
		MonitoringHandler:  monitoringHandler,
		HistoryHandler:     historyHandler,
		MetricsHandler:     promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		AdminAuthSecret:    cfg.AdminJWTSecret,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	}
	r := router.New(routerCfg)

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Outbox deliverer runs until shutdown
	delivererCtx, stopDeliverer := context.WithCancel(ctx)
	defer stopDeliverer()
	if deliverer != nil {
		go deliverer.Start(delivererCtx)
	}

	// Start server in a goroutine
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
	stopDeliverer()

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
