package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aim-injury/aim-intake/cmd/mainconfig"
	"github.com/aim-injury/aim-intake/internal/aimos"
	"github.com/aim-injury/aim-intake/internal/api/router"
	"github.com/aim-injury/aim-intake/internal/app/bootstrap"
	"github.com/aim-injury/aim-intake/internal/booking"
	"github.com/aim-injury/aim-intake/internal/catalog"
	"github.com/aim-injury/aim-intake/internal/compliance"
	appconfig "github.com/aim-injury/aim-intake/internal/config"
	"github.com/aim-injury/aim-intake/internal/conversation"
	"github.com/aim-injury/aim-intake/internal/events"
	"github.com/aim-injury/aim-intake/internal/intake"
	"github.com/aim-injury/aim-intake/internal/notify"
	"github.com/aim-injury/aim-intake/internal/observability/metrics"
	"github.com/aim-injury/aim-intake/internal/persona"
	"github.com/aim-injury/aim-intake/internal/reviews"
	"github.com/aim-injury/aim-intake/pkg/logging"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logging.Default().Warn("failed to read .env", "error", err)
	}

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting aim-intake API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var awsCfg *aws.Config
	if mainconfig.NeedsAWS(cfg) {
		loaded, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			logger.Error("failed to load AWS config", "error", err)
			os.Exit(1)
		}
		awsCfg = &loaded
	}

	a := buildApp(ctx, cfg, awsCfg, logger)
	defer a.Close()

	go a.deliverer.Start(ctx)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      a.handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

// app is the fully wired API.
type app struct {
	handler   http.Handler
	deliverer *events.Deliverer
	stores    bootstrap.Stores
	closers   []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// setupMetrics registers the API collectors on a private registry.
func setupMetrics() (http.Handler, *metrics.Metrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), m
}

// buildApp wires stores, integrations and handlers. Missing infrastructure
// degrades to in-memory stores and stub providers.
func buildApp(ctx context.Context, cfg *appconfig.Config, awsCfg *aws.Config, logger *logging.Logger) *app {
	a := &app{}
	metricsHandler, m := setupMetrics()
	cat := catalog.Default()

	pool := bootstrap.BuildPostgresPool(ctx, cfg.DatabaseURL, logger)
	if pool != nil {
		a.closers = append(a.closers, pool.Close)
	}
	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient != nil {
		a.closers = append(a.closers, func() { _ = redisClient.Close() })
	}
	a.stores = bootstrap.BuildStores(pool, redisClient, cfg.IntakeSessionTTL)
	if !a.stores.Durable {
		logger.Warn("DATABASE_URL not set or unreachable; records are kept in memory")
	}

	aimosClient := aimos.NewClient(aimos.Config{
		BaseURL: cfg.AIMOSBaseURL,
		APIKey:  cfg.AIMOSAPIKey,
		Timeout: cfg.AIMOSTimeout,
	}, logger)
	recorder := events.NewRecorder(a.stores.EventLog, a.stores.Outbox, logger)
	a.deliverer = events.NewDeliverer(a.stores.Outbox, events.NewAIMOSForwarder(aimosClient), logger).
		WithBatchSize(int32(cfg.OutboxBatchSize)).
		WithInterval(cfg.OutboxPollInterval)

	var sesClient *sesv2.Client
	if awsCfg != nil {
		sesClient = sesv2.NewFromConfig(*awsCfg)
	}
	fromEmail := cfg.SendGridFromEmail
	if cfg.EmailProvider == "ses" {
		fromEmail = cfg.SESFromEmail
	}
	sender := notify.NewEmailSender(notify.ProviderConfig{
		Provider:       cfg.EmailProvider,
		SendGridAPIKey: cfg.SendGridAPIKey,
		FromEmail:      fromEmail,
		FromName:       cfg.SendGridFromName,
	}, sesClient, logger)
	notifier := notify.NewService(sender, cfg.EscalationEmail, logger)

	audit := compliance.NewAuditService(a.stores.Audit)
	disclaimer := compliance.NewDisclaimerService(audit, compliance.DefaultDisclaimerConfig())

	personas := persona.NewService(a.stores.Personas, logger)

	bookingSvc := booking.NewService(a.stores.Leads, a.stores.Tokens, recorder, booking.Options{
		TokenTTL: cfg.BookingTokenTTL,
		SelfBook: booking.NewAIMOSAdapter(aimosClient),
		Manual:   booking.NewManualHandoffAdapter(sender, cfg.EscalationEmail, logger),
		Catalog:  cat,
	}, logger)

	machine := intake.NewMachine(a.stores.Submissions, bookingSvc, cat, recorder, m, logger)

	llmClient, closeLLM := bootstrap.BuildLLMClient(ctx, cfg, awsCfg, logger)
	a.closers = append(a.closers, closeLLM)
	orch := conversation.NewOrchestrator(conversation.OrchestratorConfig{
		Responder:    bootstrap.BuildResponder(llmClient, cfg, cat, m, logger),
		Personas:     personas,
		Context:      aimosClient,
		Testimonials: a.stores.Reviews,
		Log:          a.stores.ChatLog,
		Audit:        audit,
		Disclaimer:   disclaimer,
		Notifier:     notifier,
		Events:       recorder,
		Catalog:      cat,
		Metrics:      m,
		Logger:       logger,
	})

	a.handler = router.New(&router.Config{
		Logger:         logger,
		ChatHandler:    conversation.NewHandler(orch, logger),
		PersonaHandler: persona.NewHandler(personas, recorder, cat, logger),
		IntakeHandler: intake.NewHandler(intake.HandlerConfig{
			Machine:     machine,
			Sessions:    a.stores.Sessions,
			Submissions: a.stores.Submissions,
			Initiator:   aimosClient,
			Orgs:        a.stores.Leads,
			Notifier:    notifier,
			Audit:       recorder,
			Catalog:     cat,
			Metrics:     m,
			Logger:      logger,
		}),
		BookingHandler:     booking.NewHandler(bookingSvc, m, logger),
		ReviewsHandler:     reviews.NewHandler(a.stores.Reviews, logger),
		AIMOSWebhook:       aimos.NewWebhookHandler(cfg.AIMOSWebhookSecret, a.stores.Submissions, logger).WithProcessedTracker(a.stores.Processed),
		MetricsHandler:     metricsHandler,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		Limiter:            bootstrap.BuildRateLimiter(cfg, redisClient, logger),
	})
	return a
}
