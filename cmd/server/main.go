package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benvon/chore-tracker/internal/config"
	"github.com/benvon/chore-tracker/internal/database"
	"github.com/benvon/chore-tracker/internal/handlers"
	"github.com/benvon/chore-tracker/internal/logger"
	"github.com/benvon/chore-tracker/internal/middleware"
	"github.com/benvon/chore-tracker/internal/queue"
	"github.com/benvon/chore-tracker/internal/services/session"
	"github.com/benvon/chore-tracker/internal/telemetry"
	"github.com/benvon/chore-tracker/internal/workers"
	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.uber.org/zap"
)

const serviceName = "chore-api"

func main() {
	debugFlag := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.RequireSession(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	debugMode := cfg.ServerDebugMode || *debugFlag

	zapLogger, err := logger.NewProductionLogger(serviceName, debugMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() {
		_ = logger.Sync(zapLogger)
	}()

	zapLogger.Info("starting_server",
		zap.Bool("debug_mode", debugMode),
		zap.String("server_port", cfg.ServerPort),
		zap.String("frontend_url", cfg.FrontendURL),
		zap.String("timezone", cfg.Timezone),
		zap.Bool("otel_enabled", cfg.OTELEnabled),
	)

	shutdownTracing := telemetry.Setup(context.Background(), cfg.OTELEnabled, serviceName, cfg.OTELEndpoint, zapLogger)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
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

	startupCtx, startupCancel := context.WithTimeout(context.Background(), time.Minute)
	if err := db.Migrate(startupCtx); err != nil {
		startupCancel()
		zapLogger.Fatal("failed_to_migrate_database", zap.Error(err))
	}

	taskRepo := database.NewTaskRepository(db)
	completionRepo := database.NewCompletionRepository(db)
	memberRepo := database.NewMemberRepository(db)
	noteRepo := database.NewNoteRepository(db)

	admin, err := database.EnsureAdmin(startupCtx, memberRepo, cfg.AdminEmail, cfg.AdminName)
	startupCancel()
	switch {
	case err != nil:
		zapLogger.Error("failed_to_seed_admin", zap.Error(err))
	case admin != nil:
		zapLogger.Info("created_default_admin", zap.String("member_id", admin.ID.String()))
	}

	redisLimiter, err := middleware.NewRedisRateLimiter(cfg.RedisURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_redis", zap.Error(err))
	}
	defer func() {
		if err := redisLimiter.Close(); err != nil {
			zapLogger.Warn("failed_to_close_redis_connection", zap.Error(err))
		}
	}()
	zapLogger.Info("connected_to_redis")

	rateLimitMW, err := redisLimiter.Middleware(cfg.RateLimit)
	if err != nil {
		zapLogger.Fatal("invalid_rate_limit", zap.String("rate", cfg.RateLimit), zap.Error(err))
	}

	// The queue is only needed by the worker; the API reports on it when configured.
	var queueCheck handlers.CheckFunc
	if cfg.RabbitMQURL != "" {
		connectCtx, connectCancel := context.WithTimeout(context.Background(), 2*time.Minute)
		jobQueue, err := queue.ConnectWithRetry(connectCtx, cfg.RabbitMQURL, 5, 2*time.Second, zapLogger)
		connectCancel()
		if err != nil {
			zapLogger.Warn("rabbitmq_unavailable_health_check_disabled", zap.Error(err))
		} else {
			defer func() {
				if err := jobQueue.Close(); err != nil {
					zapLogger.Warn("failed_to_close_rabbitmq_connection", zap.Error(err))
				}
			}()
			queueCheck = jobQueue.HealthCheck
		}
	}

	sessions, err := session.NewManager(cfg.SessionSecret, cfg.SessionTTL)
	if err != nil {
		zapLogger.Fatal("failed_to_create_session_manager", zap.Error(err))
	}

	advancer := workers.NewAdvancer(taskRepo, zapLogger)
	taskHandler := handlers.NewTaskHandler(taskRepo, completionRepo, memberRepo, advancer, cfg.Now, zapLogger)
	memberHandler := handlers.NewMemberHandler(memberRepo, completionRepo, zapLogger)
	historyHandler := handlers.NewHistoryHandler(completionRepo, zapLogger)
	noteHandler := handlers.NewNoteHandler(noteRepo, zapLogger)
	healthChecker := handlers.NewHealthChecker(zapLogger,
		handlers.WithCheck("database", db.HealthCheck),
		handlers.WithCheck("redis", redisLimiter.Ping),
		handlers.WithCheck("queue", queueCheck),
	)

	r := mux.NewRouter()

	// Middleware registered first wraps everything registered after it.
	if cfg.OTELEnabled {
		r.Use(otelmux.Middleware(serviceName))
	}
	r.Use(middleware.SecurityHeaders(cfg.EnableHSTS))
	r.Use(middleware.CORS(cfg.FrontendURL))
	r.Use(middleware.MaxRequestSize(middleware.DefaultMaxRequestSize))
	r.Use(middleware.ContentType)
	r.Use(middleware.Timeout(middleware.DefaultRequestTimeout))
	r.Use(middleware.ErrorHandler(zapLogger))
	r.Use(middleware.Audit(zapLogger))
	r.Use(middleware.Logging(zapLogger))

	// Public routes
	r.HandleFunc("/healthz", healthChecker.HealthCheck).Methods(http.MethodGet)

	// API v1 routes (session required, rate limited per client)
	apiRouter := r.PathPrefix("/api/v1").Subrouter()
	apiRouter.Use(middleware.Auth(sessions, memberRepo, zapLogger))
	apiRouter.Use(rateLimitMW)

	taskHandler.RegisterRoutes(apiRouter.PathPrefix("/tasks").Subrouter())
	memberHandler.RegisterRoutes(apiRouter.PathPrefix("/members").Subrouter())
	apiRouter.HandleFunc("/me", memberHandler.GetMe).Methods(http.MethodGet)
	apiRouter.HandleFunc("/history", historyHandler.ListHistory).Methods(http.MethodGet)
	apiRouter.HandleFunc("/notes", noteHandler.GetNote).Methods(http.MethodGet)
	apiRouter.HandleFunc("/notes", noteHandler.UpdateNote).Methods(http.MethodPut)

	// Preflight requests match no API route; the CORS middleware answers them here.
	r.Methods(http.MethodOptions).HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	srv := &http.Server{
		Addr:           ":" + cfg.ServerPort,
		Handler:        r,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   middleware.DefaultRequestTimeout + 5*time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		zapLogger.Info("server_starting", zap.String("port", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("server_failed_to_start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("server_shutting_down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("server_forced_to_shutdown", zap.Error(err))
	}

	zapLogger.Info("server_exited")
}
