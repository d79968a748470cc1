// cmd/worker-manager/main.go
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

	"github.com/google/uuid"
	"go.uber.org/zap"

	"portfolio-workers/internal/cache"
	awsclients "portfolio-workers/internal/common/aws"
	"portfolio-workers/internal/common/camunda"
	"portfolio-workers/internal/common/config"
	"portfolio-workers/internal/common/database"
	"portfolio-workers/internal/common/logger"
	"portfolio-workers/internal/common/observability"
	"portfolio-workers/internal/directory"
	"portfolio-workers/internal/notification"
	"portfolio-workers/internal/store/postgres"
	"portfolio-workers/internal/workflow"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog).WithFields(map[string]interface{}{
		"app":         cfg.App.Name,
		"environment": cfg.App.Environment,
	})

	zapLog.Info("Starting worker manager...", zap.String("version", cfg.App.Version))

	obs := observability.New(cfg.App.Name, observability.WithLogger(log))
	ctx := context.Background()

	// --- Init Zeebe Client with retry ---
	var zeebe *camunda.Client
	err = retryWithBackoff(func() error {
		var err error
		zeebe, err = camunda.NewClientWithConfig(&camunda.ClientConfig{
			GatewayAddress:         cfg.Camunda.BrokerAddress,
			UsePlaintextConnection: cfg.Camunda.Plaintext,
			RequestTimeout:         config.GetDuration(cfg.Camunda.RequestTimeout),
		})
		return err
	}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected successfully")

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	evidenceStore := postgres.New(pg.DB)
	if err := evidenceStore.EnsureSchema(ctx); err != nil {
		zapLog.Fatal("schema migration failed", zap.Error(err))
	}

	// --- Init Elasticsearch with retry ---
	var esClient *database.ElasticsearchClient
	err = retryWithBackoff(func() error {
		var err error
		esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return err
		}
		return esClient.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
	if err != nil {
		zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
	}
	zapLog.Info("Elasticsearch connected successfully")

	if ok, err := esClient.IndexExists(ctx, cfg.Workflow.WorkQueue.ILPIndex); err != nil || !ok {
		zapLog.Warn("ILP review index unavailable, work queues will omit ILP items",
			zap.String("index", cfg.Workflow.WorkQueue.ILPIndex), zap.Error(err))
	}

	// --- Init Redis with retry ---
	redis := database.NewRedis(cfg.Database.Redis)
	err = retryWithBackoff(func() error {
		return redis.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redis.Close()
	zapLog.Info("Redis connected successfully")

	// --- Shared workflow dependencies ---
	staff := directory.NewPostgres(pg.DB, redis.Client, config.GetDuration(cfg.Workflow.AssignmentCacheTTL), log)
	views := cache.NewViewCache(redis.Client, log)

	sink, dispatcher, err := newNotifier(ctx, cfg.Notifications, log)
	if err != nil {
		zapLog.Fatal("notification setup failed", zap.Error(err))
	}

	deps := workflow.NewDeps(evidenceStore, staff,
		workflow.WithLogger(log),
		workflow.WithObservability(obs),
		workflow.WithNotifier(sink),
		workflow.WithInvalidation(cache.NewInvalidator(views, staff, log)),
		workflow.WithMaxTxAttempts(cfg.Workflow.MaxTxAttempts),
		workflow.WithIDGenerator(uuid.NewString),
	)

	runner := camunda.NewJobRunner(log, obs)
	handlers := registerHandlers(newServices(cfg, deps, views, pg, esClient, evidenceStore), runner, cfg)

	var workers []*camunda.CamundaWorker
	for _, h := range handlers {
		wcfg := config.GetWorkerConfig(cfg, h.taskType)
		if !wcfg.Enabled {
			zapLog.Info("worker disabled", zap.String("taskType", h.taskType))
			continue
		}
		workers = append(workers, camunda.NewWorker(zeebe.GetClient(), h.taskType, camunda.WorkerOptions{
			MaxJobsActive: wcfg.MaxJobsActive,
			Timeout:       config.GetDuration(wcfg.Timeout),
			Name:          cfg.App.Name,
		}, h.handler, log))
	}
	zapLog.Info("workers registered", zap.Int("started", len(workers)), zap.Int("known", len(handlers)))

	// --- Health & Metrics Server ---
	server := &http.Server{
		Addr: cfg.Server.Address,
		Handler: newHealthMux(map[string]func(context.Context) error{
			"postgres":      pg.Ping,
			"elasticsearch": esClient.Ping,
			"redis":         redis.Ping,
			"zeebe":         zeebe.HealthCheck,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		zapLog.Info("Health/Metrics server listening", zap.String("address", cfg.Server.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, w := range workers {
		w.Stop()
	}
	if dispatcher != nil {
		dispatcher.Wait()
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping health server", zap.Error(err))
	}
	if err := zeebe.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}
	obs.Shutdown(shutdownCtx)

	zapLog.Info("Worker manager stopped")
}

// newNotifier returns the dispatcher separately so shutdown can drain it.
// Both are nil-safe: a disabled config yields notification.Noop.
func newNotifier(ctx context.Context, cfg config.NotificationConfig, log logger.Logger) (notification.Sink, *notification.Dispatcher, error) {
	if !cfg.Enabled {
		log.Info("notifications disabled", nil)
		return notification.Noop{}, nil, nil
	}

	awsCfg, err := awsclients.LoadConfig(ctx, cfg.Region)
	if err != nil {
		return nil, nil, err
	}

	var mailer notification.Mailer
	if cfg.Email.Enabled {
		mailer = awsclients.NewSESClient(awsCfg, cfg.Email.FromEmail)
	}
	dispatcher := notification.NewDispatcher(
		awsclients.NewSNSClient(awsCfg, cfg.SNS.TopicARN),
		mailer,
		notification.DispatcherConfig{
			Timeout:           config.GetDuration(cfg.Timeout),
			GatewayRecipients: cfg.Email.GatewayRecipients,
		},
		log,
	)
	return dispatcher, dispatcher, nil
}
