package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/billminder/billminder/internal/config"
	"github.com/billminder/billminder/internal/database"
	"github.com/billminder/billminder/internal/kv"
	"github.com/billminder/billminder/internal/logger"
	"github.com/billminder/billminder/internal/notify"
	"github.com/billminder/billminder/internal/queue"
	"github.com/billminder/billminder/internal/services/ai"
	"github.com/billminder/billminder/internal/workers"
)

func main() {
	debugFlag := flag.Bool("debug", false, "Enable debug mode for LLM API logging")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	debugMode := cfg.WorkerDebugMode || *debugFlag

	zapLogger, err := logger.NewProductionLogger(debugMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() {
		if syncErr := zapLogger.Sync(); syncErr != nil {
			_ = syncErr
		}
	}()

	zapLogger.Info("starting_worker",
		zap.Bool("debug_mode", debugMode),
		zap.String("push_gateway", cfg.PushGatewayURL),
		zap.String("ai_provider", cfg.AIProvider),
	)

	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			zapLogger.Warn("failed_to_close_database_connection", zap.Error(err))
		}
	}()
	zapLogger.Info("connected_to_database")

	kvClient, err := kv.New(cfg.RedisURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_redis", zap.Error(err))
	}
	defer func() {
		if err := kvClient.Close(); err != nil {
			zapLogger.Warn("failed_to_close_redis_connection", zap.Error(err))
		}
	}()
	zapLogger.Info("connected_to_redis")

	jobQueue, err := queue.NewRabbitMQQueue(cfg.RabbitMQURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_rabbitmq", zap.Error(err))
	}
	defer func() {
		if err := jobQueue.Close(); err != nil {
			zapLogger.Warn("failed_to_close_rabbitmq_connection", zap.Error(err))
		}
	}()
	zapLogger.Info("connected_to_rabbitmq",
		zap.Int("prefetch", cfg.RabbitMQPrefetch),
	)

	taskRepo := database.NewTaskRepository(db)

	// The notifier doubles as the epoch source: reminder jobs enqueued
	// under an older plan epoch are dropped at delivery time.
	epochs := notify.NewQueueNotifier(jobQueue, kvClient, zapLogger)

	if cfg.PushGatewayURL == "" {
		zapLogger.Fatal("push_gateway_url_required")
	}
	pusher := notify.NewGatewayPusher(cfg.PushGatewayURL, cfg.PushGatewayToken)
	dispatcher := workers.NewDispatcher(pusher, epochs, zapLogger)

	// Category suggestions need an AI provider. Without a key the worker
	// still delivers reminders; suggestion jobs are dropped.
	var categorizer *workers.Categorizer
	if cfg.OpenAIKey != "" {
		provider := ai.NewOpenAIProvider(cfg.OpenAIKey, cfg.AIBaseURL, cfg.AIModel, zapLogger, debugMode)
		categorizer = workers.NewCategorizer(provider, taskRepo, zapLogger)
		zapLogger.Info("initialized_ai_provider",
			zap.String("provider", cfg.AIProvider),
			zap.String("model", cfg.AIModel),
		)
	} else {
		zapLogger.Warn("ai_provider_not_configured_category_suggestions_disabled")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	msgChan, errChan, err := jobQueue.Consume(ctx, cfg.RabbitMQPrefetch)
	if err != nil {
		zapLogger.Fatal("failed_to_start_consuming_messages", zap.Error(err))
	}

	zapLogger.Info("worker_started")

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgChan:
				if !ok {
					zapLogger.Info("message_channel_closed")
					return
				}

				job := msg.GetJob()
				var procErr error
				switch job.Type {
				case queue.JobTypeReminderDelivery:
					procErr = dispatcher.ProcessJob(ctx, msg)
				case queue.JobTypeCategorySuggestion:
					if categorizer != nil {
						procErr = categorizer.ProcessJob(ctx, msg)
					} else {
						procErr = msg.Nack(false)
					}
				default:
					zapLogger.Warn("unknown_job_type",
						zap.String("job_type", string(job.Type)),
					)
					procErr = msg.Nack(false)
				}

				if procErr != nil {
					zapLogger.Error("failed_to_process_job",
						zap.Error(procErr),
						zap.String("job_id", job.ID.String()),
						zap.String("job_type", string(job.Type)),
					)
				}
			}
		}
	}()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case err, ok := <-errChan:
				if !ok {
					return
				}
				zapLogger.Error("queue_error", zap.Error(err))
			}
		}
	}()

	<-sigChan
	zapLogger.Info("shutdown_signal_received")

	cancel()

	zapLogger.Info("worker_stopped")
}
