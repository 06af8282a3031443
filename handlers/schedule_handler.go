package handlers

import (
	"github.com/labstack/echo/v4"

	"github.com/onurcolak/campaign-dispatcher/internal/service"
	"github.com/onurcolak/campaign-dispatcher/pkg/response"
)

type ScheduleHandler struct {
	service *service.ScheduleService
}

func NewScheduleHandler(service *service.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{service: service}
}

// GetActiveSchedules godoc
// @Summary List schedules covering today
// @Description Returns approved schedules in their effective range with current eligibility and quota usage
// @Tags schedules
// @Accept json
// @Produce json
// @Param x-admin-auth-key header string true "API key for scheduler"
// @Success 200 {object} response.SuccessResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/schedules/active [get]
func (h *ScheduleHandler) GetActiveSchedules(c echo.Context) error {
	schedules, err := h.service.ActiveSchedules(c.Request().Context())
	if err != nil {
		return response.InternalServerError(c, err)
	}

	return response.Ok(c, schedules)
}
