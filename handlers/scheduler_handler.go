package handlers

import (
	"context"
	"errors"

	"github.com/labstack/echo/v4"

	"github.com/onurcolak/campaign-dispatcher/environments"
	"github.com/onurcolak/campaign-dispatcher/internal/scheduler"
	"github.com/onurcolak/campaign-dispatcher/pkg/response"
	"github.com/onurcolak/campaign-dispatcher/pkg/validator"
)

type SchedulerHandler struct {
	scheduler *scheduler.Scheduler
	ctx       context.Context
	config    *environments.Config
}

type StartSchedulerRequest struct {
	// Tick interval in seconds.
	Interval *int `json:"interval,omitempty" validate:"omitempty,min=1,max=86400"`
}

func NewSchedulerHandler(
	sched *scheduler.Scheduler,
	ctx context.Context,
	cfg *environments.Config,
) *SchedulerHandler {
	return &SchedulerHandler{
		scheduler: sched,
		ctx:       ctx,
		config:    cfg,
	}
}

// StartScheduler godoc
// @Summary Start the dispatch scheduler
// @Description Starts the periodic tick loop with an optional interval
// @Tags scheduler
// @Accept json
// @Produce json
// @Param x-admin-auth-key header string true "API key for scheduler"
// @Param request body StartSchedulerRequest false "Scheduler parameters (optional)"
// @Success 200 {object} response.SuccessResponse
// @Failure 422 {object} validator.ValidationErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/scheduler/start [post]
func (h *SchedulerHandler) StartScheduler(c echo.Context) error {
	if h.scheduler.IsRunning() {
		return response.OkWithMessage(c, "Scheduler is already running", h.scheduler.GetStatus())
	}

	var req StartSchedulerRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return validator.HandleValidationError(c, err)
	}

	intervalSeconds := int(h.config.Scheduler.TickInterval.Seconds())
	if req.Interval != nil {
		intervalSeconds = *req.Interval
	}

	if err := h.scheduler.StartWithParams(
		h.ctx,
		intervalSeconds,
		h.config.Alert.WebhookURL,
		h.config.Alert.IterationCount,
	); err != nil {
		return response.InternalServerError(c, err)
	}

	return response.OkWithMessage(c, "Scheduler started successfully", h.scheduler.GetStatus())
}

// StopScheduler godoc
// @Summary Stop the dispatch scheduler
// @Description Stops the tick loop and waits for an in-flight tick to wind down
// @Tags scheduler
// @Accept json
// @Produce json
// @Param x-admin-auth-key header string true "API key for scheduler"
// @Success 200 {object} response.SuccessResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/scheduler/stop [post]
func (h *SchedulerHandler) StopScheduler(c echo.Context) error {
	if !h.scheduler.IsRunning() {
		return response.OkWithMessage(c, "Scheduler is already stopped", h.scheduler.GetStatus())
	}

	if err := h.scheduler.Stop(); err != nil {
		return response.InternalServerError(c, err)
	}

	return response.OkWithMessage(c, "Scheduler stopped successfully", h.scheduler.GetStatus())
}

// TriggerTick godoc
// @Summary Run one tick now
// @Description Starts a tick in the background; rejected while another tick is running
// @Tags scheduler
// @Accept json
// @Produce json
// @Param x-admin-auth-key header string true "API key for scheduler"
// @Success 202 {object} response.SuccessResponse
// @Failure 409 {object} response.ErrorResponse
// @Router /api/v1/scheduler/trigger [post]
func (h *SchedulerHandler) TriggerTick(c echo.Context) error {
	if err := h.scheduler.TryTrigger(); err != nil {
		if errors.Is(err, scheduler.ErrTickInProgress) {
			return response.Conflict(c, err)
		}
		return response.InternalServerError(c, err)
	}

	return response.Accepted(c, "Tick started", h.scheduler.GetStatus())
}

// GetSchedulerStatus godoc
// @Summary Get scheduler status
// @Description Returns tick counters, the last tick summary and the failure alert state
// @Tags scheduler
// @Accept json
// @Produce json
// @Param x-admin-auth-key header string true "API key for scheduler"
// @Success 200 {object} response.SuccessResponse
// @Router /api/v1/scheduler/status [get]
func (h *SchedulerHandler) GetSchedulerStatus(c echo.Context) error {
	return response.Ok(c, h.scheduler.GetStatus())
}
