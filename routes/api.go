package routes

import (
	"github.com/labstack/echo/v4"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/onurcolak/campaign-dispatcher/environments"
	"github.com/onurcolak/campaign-dispatcher/handlers"
	"github.com/onurcolak/campaign-dispatcher/internal/middlewares"
)

// RegisterRoutes registers all API routes with middleware
func RegisterRoutes(
	e *echo.Echo,
	healthHandler *handlers.HealthHandler,
	messageHandler *handlers.MessageHandler,
	schedulerHandler *handlers.SchedulerHandler,
	scheduleHandler *handlers.ScheduleHandler,
	cfg *environments.Config,
) {
	e.GET("/health", healthHandler.Health)
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	v1 := e.Group("/api/v1")

	// Message routes with their own API key
	messages := v1.Group("/messages",
		middlewares.APIKeyAuth(cfg.Auth.MessagesAPIKey),
		middlewares.ActorID(),
	)

	messages.GET("", messageHandler.GetAllMessages)
	messages.GET("/stats", messageHandler.GetStats)
	messages.GET("/cached", messageHandler.GetCachedMessages)
	messages.GET("/:id/transitions", messageHandler.GetTransitions)
	messages.POST("/replay", messageHandler.ReplayAllMessages)
	messages.POST("/:id/replay", messageHandler.ReplayMessage)

	// Scheduler and schedule routes share the scheduler API key
	schedulerAuth := middlewares.APIKeyAuth(cfg.Auth.SchedulerAPIKey)

	schedulerGroup := v1.Group("/scheduler", schedulerAuth)

	schedulerGroup.POST("/start", schedulerHandler.StartScheduler)
	schedulerGroup.POST("/stop", schedulerHandler.StopScheduler)
	schedulerGroup.POST("/trigger", schedulerHandler.TriggerTick)
	schedulerGroup.GET("/status", schedulerHandler.GetSchedulerStatus)

	schedules := v1.Group("/schedules", schedulerAuth)

	schedules.GET("/active", scheduleHandler.GetActiveSchedules)
}
