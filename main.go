package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/onurcolak/campaign-dispatcher/environments"
	"github.com/onurcolak/campaign-dispatcher/handlers"
	"github.com/onurcolak/campaign-dispatcher/internal/dispatch"
	"github.com/onurcolak/campaign-dispatcher/internal/middlewares"
	"github.com/onurcolak/campaign-dispatcher/internal/repository"
	"github.com/onurcolak/campaign-dispatcher/internal/scheduler"
	"github.com/onurcolak/campaign-dispatcher/internal/service"
	"github.com/onurcolak/campaign-dispatcher/internal/statemachine"
	"github.com/onurcolak/campaign-dispatcher/pkg/database"
	"github.com/onurcolak/campaign-dispatcher/pkg/events"
	"github.com/onurcolak/campaign-dispatcher/pkg/gateway"
	"github.com/onurcolak/campaign-dispatcher/pkg/logger"
	"github.com/onurcolak/campaign-dispatcher/pkg/redis"
	"github.com/onurcolak/campaign-dispatcher/pkg/validator"
	"github.com/onurcolak/campaign-dispatcher/routes"

	_ "github.com/onurcolak/campaign-dispatcher/docs" // swagger docs
)

// @title Campaign Dispatcher API
// @version 1.0
// @description Time-windowed, quota-bounded dispatch of campaign messages over tenant channels

// @contact.name API Support

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /

// @schemes http https
func main() {
	// Load config
	cfg := environments.Load()

	logger.Init(cfg.Log)

	// Hard-fail if required secrets are missing
	if cfg.Gateway.AuthKey == "" {
		logger.Fatalf("GATEWAY_AUTH_KEY is required but not set")
	}
	if cfg.Auth.MessagesAPIKey == "" {
		logger.Fatalf("MESSAGES_API_KEY is required but not set")
	}
	if cfg.Auth.SchedulerAPIKey == "" {
		logger.Fatalf("SCHEDULER_API_KEY is required but not set")
	}

	loc := cfg.Scheduler.Location()
	if loc.String() != cfg.Scheduler.Timezone {
		logger.Warnf("Unknown SCHEDULER_TIMEZONE %q, using %s", cfg.Scheduler.Timezone, loc)
	}

	logger.Infof("Starting Campaign Dispatcher...")

	// Init DB
	db, err := database.NewMySQLDB(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	// Run migrations
	if err := database.RunMigrations(db); err != nil {
		logger.Fatalf("Failed to run migrations: %v", err)
	}

	// Seed data
	if os.Getenv("SEED_DATA") == "true" {
		if err := database.SeedTestData(db); err != nil {
			logger.Warnf("Failed to seed test data: %v", err)
		}
	}

	// Init redis
	var redisClient *redis.Client
	redisClient, err = redis.NewRedisClient(cfg.Redis)
	if err != nil {
		logger.Warnf("Redis not available, caching and distributed lease disabled: %v", err)
		redisClient = nil
	}

	// Init event publisher (optional)
	var publisher *events.Publisher
	if cfg.Events.AMQPURL != "" {
		publisher, err = events.NewPublisher(cfg.Events)
		if err != nil {
			logger.Warnf("RabbitMQ not available, dispatch events disabled: %v", err)
			publisher = nil
		}
	}

	// Initialize gateway client
	gatewayClient := gateway.NewClient(cfg.Gateway)
	logger.Infof("Channel gateway configured: %s", gatewayClient.GetURL())

	// Initialize repositories and the state machine
	messageRepo := repository.NewMessageRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	quotaRepo := repository.NewQuotaRepository(db)
	machine := statemachine.New(db)

	// Optional collaborators are only handed over when present, so the
	// executor and services see a nil interface rather than a nil pointer.
	executorOpts := []dispatch.Option{dispatch.WithLocation(loc)}
	if redisClient != nil {
		executorOpts = append(executorOpts, dispatch.WithSentCache(redisClient))
	}
	if publisher != nil {
		executorOpts = append(executorOpts, dispatch.WithPublisher(publisher))
	}

	executor := dispatch.NewExecutor(gatewayClient, quotaRepo, messageRepo, machine, cfg.Dispatch, executorOpts...)

	var schedulerOpts []scheduler.Option
	if cfg.Scheduler.DistributedLease {
		if redisClient != nil {
			schedulerOpts = append(schedulerOpts, scheduler.WithLease(redisClient))
			logger.Infof("Distributed tick lease enabled (ttl %v)", cfg.Scheduler.LeaseTTL)
		} else {
			logger.Warnf("SCHEDULER_DISTRIBUTED_LEASE is set but Redis is unavailable; single-flight stays process-local")
		}
	}

	sched := scheduler.NewScheduler(scheduleRepo, executor, cfg.Scheduler, cfg.Alert, schedulerOpts...)

	// Initialize services
	var messageService *service.MessageService
	if redisClient != nil {
		messageService = service.NewMessageService(messageRepo, machine, redisClient)
	} else {
		messageService = service.NewMessageService(messageRepo, machine, nil)
	}
	scheduleService := service.NewScheduleService(scheduleRepo, quotaRepo, cfg.Scheduler)

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(db, redisClient, sched, publisher != nil)
	messageHandler := handlers.NewMessageHandler(messageService)
	schedulerHandler := handlers.NewSchedulerHandler(sched, ctx, cfg)
	scheduleHandler := handlers.NewScheduleHandler(scheduleService)

	// Auto-start scheduler
	if cfg.Scheduler.AutoStart {
		logger.Infof("Auto-starting scheduler...")
		if err := sched.Start(ctx); err != nil {
			logger.Warnf("Failed to auto-start scheduler: %v", err)
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.Validator = validator.New()

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.RequestID())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{
			echo.HeaderOrigin,
			echo.HeaderContentType,
			echo.HeaderAccept,
			middlewares.APIKeyHeader,
			middlewares.ActorIDHeader,
		},
	}))

	// Setup routes
	routes.RegisterRoutes(e, healthHandler, messageHandler, schedulerHandler, scheduleHandler, cfg)

	// Start server in goroutine
	go func() {
		addr := ":" + cfg.Server.Port
		logger.Infof("Server starting on http://localhost%s", addr)
		logger.Infof("Swagger docs available at http://localhost%s/swagger/index.html", addr)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Infof("Shutting down gracefully...")

	// Cancel context to signal all goroutines to stop
	cancel()

	// Stop scheduler first (with timeout). In-flight sends finish and their
	// state and quota writes run on detached contexts.
	logger.Infof("Stopping scheduler...")
	stopCtx, stopCancel := context.WithTimeout(context.Background(), 45*time.Second)
	defer stopCancel()

	done := make(chan error, 1)
	go func() {
		done <- sched.Shutdown()
	}()

	select {
	case err := <-done:
		if err != nil {
			logger.Errorf("Error stopping scheduler: %v", err)
		} else {
			logger.Infof("Scheduler stopped successfully")
		}
	case <-stopCtx.Done():
		logger.Warnf("Scheduler stop timeout, forcing shutdown")
	}

	// Shutdown HTTP server (with timeout)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	logger.Infof("Shutting down HTTP server...")
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	} else {
		logger.Infof("HTTP server stopped successfully")
	}

	if publisher != nil {
		logger.Infof("Closing RabbitMQ connection...")
		if err := publisher.Close(); err != nil {
			logger.Errorf("Error closing RabbitMQ: %v", err)
		}
	}

	// Close database connection
	logger.Infof("Closing database connection...")
	if err := db.Close(); err != nil {
		logger.Errorf("Error closing database: %v", err)
	}

	// Close Redis connection
	if redisClient != nil {
		logger.Infof("Closing Redis connection...")
		if err := redisClient.Close(); err != nil {
			logger.Errorf("Error closing Redis: %v", err)
		}
	}

	logger.Infof("Graceful shutdown completed")
}
