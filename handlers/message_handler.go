package handlers

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/onurcolak/campaign-dispatcher/internal/domain"
	"github.com/onurcolak/campaign-dispatcher/internal/middlewares"
	"github.com/onurcolak/campaign-dispatcher/internal/service"
	"github.com/onurcolak/campaign-dispatcher/pkg/response"
	"github.com/onurcolak/campaign-dispatcher/pkg/validator"
)

const (
	defaultPage     = 1
	defaultPageSize = 20
	maxPageSize     = 100
)

type MessageHandler struct {
	service *service.MessageService
}

func NewMessageHandler(service *service.MessageService) *MessageHandler {
	return &MessageHandler{service: service}
}

type ListMessagesQuery struct {
	Page       int    `query:"page" json:"page" validate:"omitempty,min=1"`
	PageSize   int    `query:"pageSize" json:"pageSize" validate:"omitempty,min=1,max=100"`
	Status     string `query:"status" json:"status" validate:"omitempty,message_status"`
	CampaignID int64  `query:"campaignId" json:"campaignId" validate:"omitempty,min=1"`
}

type ReplayMessageRequest struct {
	Detail string `json:"detail" validate:"max=500"`
}

type ReplayAllRequest struct {
	CampaignID int64  `json:"campaignId" validate:"omitempty,min=1"`
	Detail     string `json:"detail" validate:"max=500"`
}

// GetAllMessages godoc
// @Summary Get all messages
// @Description Retrieves a paginated list of messages with optional status and campaign filters
// @Tags messages
// @Accept json
// @Produce json
// @Param x-admin-auth-key header string true "API key for messages"
// @Param page query int false "Page number (default: 1)"
// @Param pageSize query int false "Page size (default: 20, max: 100)"
// @Param status query string false "Filter by status (pending, sent, error)"
// @Param campaignId query int false "Filter by campaign"
// @Success 200 {object} response.PaginatedResponse
// @Failure 400 {object} response.ErrorResponse
// @Failure 422 {object} validator.ValidationErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/messages [get]
func (h *MessageHandler) GetAllMessages(c echo.Context) error {
	var q ListMessagesQuery
	if err := c.Bind(&q); err != nil {
		return response.BadRequest(c, err)
	}

	if err := c.Validate(&q); err != nil {
		return validator.HandleValidationError(c, err)
	}

	page, pageSize := q.Page, q.PageSize
	if page == 0 {
		page = defaultPage
	}
	if pageSize == 0 {
		pageSize = defaultPageSize
	}

	var filter domain.MessageFilter
	if q.Status != "" {
		status := domain.MessageStatus(q.Status)
		filter.Status = &status
	}
	if q.CampaignID != 0 {
		filter.CampaignID = &q.CampaignID
	}

	messages, totalCount, err := h.service.GetAllMessages(c.Request().Context(), filter, page, pageSize)
	if err != nil {
		return response.InternalServerError(c, err)
	}

	return response.Paginated(c, messages, page, pageSize, totalCount)
}

// GetStats godoc
// @Summary Get message statistics
// @Description Returns count of messages by status, optionally for one campaign
// @Tags messages
// @Accept json
// @Produce json
// @Param x-admin-auth-key header string true "API key for messages"
// @Param campaignId query int false "Restrict to one campaign"
// @Success 200 {object} response.SuccessResponse
// @Failure 400 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/messages/stats [get]
func (h *MessageHandler) GetStats(c echo.Context) error {
	campaignID, err := optionalIDParam(c.QueryParam("campaignId"), "campaignId")
	if err != nil {
		return response.BadRequest(c, err)
	}

	stats, err := h.service.GetStats(c.Request().Context(), campaignID)
	if err != nil {
		return response.InternalServerError(c, err)
	}

	return response.Ok(c, map[string]any{
		"pending": stats.Pending,
		"sent":    stats.Sent,
		"error":   stats.Error,
		"total":   stats.Total(),
	})
}

// GetTransitions godoc
// @Summary Get the audit trail of a message
// @Description Returns every state transition of a message, oldest first
// @Tags messages
// @Accept json
// @Produce json
// @Param x-admin-auth-key header string true "API key for messages"
// @Param id path int true "Message ID"
// @Success 200 {object} response.SuccessResponse
// @Failure 400 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/messages/{id}/transitions [get]
func (h *MessageHandler) GetTransitions(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return response.BadRequest(c, fmt.Errorf("invalid message id"))
	}

	transitions, err := h.service.GetTransitions(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrMessageNotFound) {
			return response.NotFound(c, err.Error())
		}
		return response.InternalServerError(c, err)
	}

	return response.Ok(c, transitions)
}

// GetCachedMessages godoc
// @Summary Get cached sends from Valkey
// @Description Returns provider ids and send times cached after confirmed sends
// @Tags messages
// @Accept json
// @Produce json
// @Param x-admin-auth-key header string true "API key for messages"
// @Success 200 {object} response.SuccessResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/messages/cached [get]
func (h *MessageHandler) GetCachedMessages(c echo.Context) error {
	cached, err := h.service.GetCachedMessages(c.Request().Context())
	if err != nil {
		return response.InternalServerError(c, err)
	}

	return response.Ok(c, cached)
}

// ReplayAllMessages godoc
// @Summary Replay all messages in error
// @Description Moves every message in error back to pending, optionally for one campaign
// @Tags messages
// @Accept json
// @Produce json
// @Param x-admin-auth-key header string true "API key for messages"
// @Param x-actor-id header string false "Recorded as the actor of the transitions"
// @Param request body ReplayAllRequest false "Replay options"
// @Success 200 {object} response.SuccessResponse
// @Failure 400 {object} response.ErrorResponse
// @Failure 422 {object} validator.ValidationErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/messages/replay [post]
func (h *MessageHandler) ReplayAllMessages(c echo.Context) error {
	var req ReplayAllRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return validator.HandleValidationError(c, err)
	}

	var campaignID *int64
	if req.CampaignID != 0 {
		campaignID = &req.CampaignID
	}

	summary, err := h.service.ReplayAll(c.Request().Context(), campaignID, service.ReplayOptions{
		ActorID: middlewares.ActorIDFrom(c),
		Detail:  req.Detail,
	})
	if err != nil {
		return response.InternalServerError(c, err)
	}

	return response.Ok(c, summary)
}

// ReplayMessage godoc
// @Summary Replay a single message in error
// @Description Moves one message from error back to pending so the next eligible tick resends it
// @Tags messages
// @Accept json
// @Produce json
// @Param x-admin-auth-key header string true "API key for messages"
// @Param x-actor-id header string false "Recorded as the actor of the transition"
// @Param id path int true "Message ID"
// @Param request body ReplayMessageRequest false "Replay options"
// @Success 200 {object} response.SuccessResponse
// @Failure 400 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Failure 409 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/messages/{id}/replay [post]
func (h *MessageHandler) ReplayMessage(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return response.BadRequest(c, fmt.Errorf("invalid message id"))
	}

	var req ReplayMessageRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return validator.HandleValidationError(c, err)
	}

	record, err := h.service.ReplayMessage(c.Request().Context(), id, service.ReplayOptions{
		ActorID: middlewares.ActorIDFrom(c),
		Detail:  req.Detail,
	})
	if err != nil {
		var illegal *domain.IllegalTransitionError
		switch {
		case errors.Is(err, domain.ErrMessageNotFound):
			return response.NotFound(c, err.Error())
		case errors.As(err, &illegal):
			return response.Conflict(c, err)
		default:
			return response.InternalServerError(c, err)
		}
	}

	return response.OkWithMessage(c, "Message replayed", record)
}

func optionalIDParam(raw, name string) (*int64, error) {
	if raw == "" {
		return nil, nil
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return nil, fmt.Errorf("%s must be a positive integer", name)
	}

	return &id, nil
}
