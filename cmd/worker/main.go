package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benvon/chore-tracker/internal/config"
	"github.com/benvon/chore-tracker/internal/database"
	"github.com/benvon/chore-tracker/internal/logger"
	"github.com/benvon/chore-tracker/internal/queue"
	"github.com/benvon/chore-tracker/internal/telemetry"
	"github.com/benvon/chore-tracker/internal/workers"
	"go.uber.org/zap"
)

const serviceName = "chore-worker"

func main() {
	debugFlag := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.RequireQueue(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	debugMode := cfg.WorkerDebugMode || *debugFlag

	zapLogger, err := logger.NewProductionLogger(serviceName, debugMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() {
		_ = logger.Sync(zapLogger)
	}()

	zapLogger.Info("starting_worker",
		zap.Bool("debug_mode", debugMode),
		zap.String("sweep_schedule", cfg.SweepSchedule),
		zap.String("timezone", cfg.Timezone),
		zap.Int("prefetch", cfg.RabbitMQPrefetch),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing := telemetry.Setup(ctx, cfg.OTELEnabled, serviceName, cfg.OTELEndpoint, zapLogger)
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			zapLogger.Error("failed_to_shutdown_otel_tracer", zap.Error(err))
		}
	}()

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

	// RabbitMQ may still be starting when the worker comes up
	jobQueue, err := queue.ConnectWithRetry(ctx, cfg.RabbitMQURL, 10, 2*time.Second, zapLogger)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_rabbitmq_after_retries", zap.Error(err))
	}
	defer func() {
		if err := jobQueue.Close(); err != nil {
			zapLogger.Warn("failed_to_close_rabbitmq_connection", zap.Error(err))
		}
	}()

	advancer := workers.NewAdvancer(database.NewTaskRepository(db), zapLogger)
	worker := workers.NewAutoAdvanceWorker(advancer, jobQueue, cfg.Now, zapLogger)

	scheduler := workers.NewSweepScheduler(jobQueue, cfg.Location, cfg.Now, zapLogger)
	if _, err := scheduler.ScheduleSweep(cfg.SweepSchedule); err != nil {
		zapLogger.Fatal("invalid_sweep_schedule", zap.String("schedule", cfg.SweepSchedule), zap.Error(err))
	}
	if _, err := scheduler.SchedulePurge("@daily", jobQueue); err != nil {
		zapLogger.Fatal("failed_to_schedule_dlq_purge", zap.Error(err))
	}

	msgChan, errChan, err := jobQueue.Consume(ctx, cfg.RabbitMQPrefetch)
	if err != nil {
		zapLogger.Fatal("failed_to_start_consuming", zap.Error(err))
	}

	go func() {
		for err := range errChan {
			zapLogger.Error("consumer_error", zap.Error(err))
		}
	}()

	done := make(chan struct{})
	go func() {
		defer close(done)
		worker.Run(ctx, msgChan)
	}()

	scheduler.Start()
	zapLogger.Info("sweep_scheduler_started")

	// Catch up on anything that went overdue while the worker was down.
	if validFor, err := workers.SweepValidity(cfg.SweepSchedule, cfg.Now()); err == nil {
		scheduler.EnqueueSweep(ctx, validFor)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		zapLogger.Info("worker_shutting_down")
	case <-done:
		zapLogger.Warn("worker_stopped_consuming")
	}

	scheduler.Stop()
	cancel()
	<-done

	zapLogger.Info("worker_exited")
}
