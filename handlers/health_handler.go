package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"

	"github.com/onurcolak/campaign-dispatcher/pkg/redis"
)

type tickLoop interface {
	IsRunning() bool
}

// HealthHandler handles health checks.
type HealthHandler struct {
	db           *sqlx.DB
	redis        *redis.Client
	scheduler    tickLoop
	eventsOn     bool
	checkTimeout time.Duration
}

func NewHealthHandler(db *sqlx.DB, redisClient *redis.Client, scheduler tickLoop, eventsEnabled bool) *HealthHandler {
	return &HealthHandler{
		db:           db,
		redis:        redisClient,
		scheduler:    scheduler,
		eventsOn:     eventsEnabled,
		checkTimeout: 2 * time.Second,
	}
}

// Health returns overall status and component statuses.
// @Summary Health check
// @Description Returns overall status with DB and Valkey connectivity plus scheduler and event publisher state
// @Tags health
// @Accept json
// @Produce json
// @Success 200 {object} map[string]any
// @Router /health [get]
func (h *HealthHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.checkTimeout)
	defer cancel()

	overallStatus := "ok"

	dbStatus := "up"
	if h.db == nil {
		dbStatus = "down"
		overallStatus = "down"
	} else if err := h.db.PingContext(ctx); err != nil {
		dbStatus = "down"
		overallStatus = "down"
	}

	redisStatus := "disabled"
	if h.redis != nil {
		if err := h.redis.Ping(ctx); err != nil {
			redisStatus = "down"
			if overallStatus == "ok" {
				overallStatus = "degraded"
			}
		} else {
			redisStatus = "up"
		}
	}

	schedulerStatus := "stopped"
	if h.scheduler != nil && h.scheduler.IsRunning() {
		schedulerStatus = "running"
	}

	eventsStatus := "disabled"
	if h.eventsOn {
		eventsStatus = "enabled"
	}

	return c.JSON(http.StatusOK, map[string]any{
		"status":    overallStatus,
		"timestamp": time.Now().Format(time.RFC3339),
		"components": map[string]any{
			"database":  map[string]any{"status": dbStatus},
			"redis":     map[string]any{"status": redisStatus},
			"scheduler": map[string]any{"status": schedulerStatus},
			"events":    map[string]any{"status": eventsStatus},
		},
	})
}
