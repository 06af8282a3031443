package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/onurcolak/campaign-dispatcher/internal/domain"
	"github.com/onurcolak/campaign-dispatcher/pkg/logger"
)

// Small internal interfaces so we can test without touching real DB/Redis.
type messageRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Message, error)
	GetAll(ctx context.Context, filter domain.MessageFilter, page, pageSize int) ([]domain.Message, int64, error)
	GetStats(ctx context.Context, campaignID *int64) (domain.MessageStats, error)
	ListIDsByStatus(ctx context.Context, status domain.MessageStatus, campaignID *int64) ([]int64, error)
	GetTransitions(ctx context.Context, messageID int64) ([]domain.Transition, error)
}

type stateMachine interface {
	Transition(ctx context.Context, req domain.TransitionRequest) (*domain.Transition, error)
}

type redisClient interface {
	GetAllCachedMessages(ctx context.Context) (map[int64]*domain.SentMessageCache, error)
}

// ReplayOptions tags a manual re-admission in the audit trail.
type ReplayOptions struct {
	ActorID *string
	Detail  string
}

type ReplaySummary struct {
	Replayed int     `json:"replayed"`
	Skipped  []int64 `json:"skipped,omitempty"`
}

// MessageService backs the admin message endpoints. It never writes message
// state itself; replays go through the state machine.
type MessageService struct {
	repo        messageRepository
	machine     stateMachine
	redisClient redisClient
}

func NewMessageService(repo messageRepository, machine stateMachine, redisClient redisClient) *MessageService {
	return &MessageService{
		repo:        repo,
		machine:     machine,
		redisClient: redisClient,
	}
}

func (s *MessageService) GetAllMessages(
	ctx context.Context,
	filter domain.MessageFilter,
	page,
	pageSize int,
) ([]domain.Message, int64, error) {
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, 0, fmt.Errorf("unknown message status %q", *filter.Status)
	}
	return s.repo.GetAll(ctx, filter, page, pageSize)
}

func (s *MessageService) GetStats(ctx context.Context, campaignID *int64) (domain.MessageStats, error) {
	return s.repo.GetStats(ctx, campaignID)
}

// GetTransitions returns the audit trail of one message, oldest first.
func (s *MessageService) GetTransitions(ctx context.Context, id int64) ([]domain.Transition, error) {
	msg, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if msg == nil {
		return nil, fmt.Errorf("message %d: %w", id, domain.ErrMessageNotFound)
	}

	return s.repo.GetTransitions(ctx, id)
}

func (s *MessageService) GetCachedMessages(ctx context.Context) (map[int64]*domain.SentMessageCache, error) {
	if s.redisClient == nil {
		return nil, fmt.Errorf("redis client not configured")
	}
	return s.redisClient.GetAllCachedMessages(ctx)
}

// ReplayMessage moves one message from error back to pending so the next
// eligible tick picks it up.
func (s *MessageService) ReplayMessage(ctx context.Context, id int64, opts ReplayOptions) (*domain.Transition, error) {
	record, err := s.machine.Transition(ctx, s.replayRequest(id, opts))
	if err != nil {
		return nil, err
	}

	logger.Infof("Message %d replayed (transition %d)", id, record.ID)
	return record, nil
}

// ReplayAll re-admits every message in error, optionally for one campaign.
// Messages that changed state since they were listed are reported as skipped.
func (s *MessageService) ReplayAll(ctx context.Context, campaignID *int64, opts ReplayOptions) (ReplaySummary, error) {
	ids, err := s.repo.ListIDsByStatus(ctx, domain.StatusError, campaignID)
	if err != nil {
		return ReplaySummary{}, err
	}

	var summary ReplaySummary
	for _, id := range ids {
		_, err := s.machine.Transition(ctx, s.replayRequest(id, opts))

		var illegal *domain.IllegalTransitionError
		switch {
		case err == nil:
			summary.Replayed++
		case errors.As(err, &illegal), errors.Is(err, domain.ErrMessageNotFound):
			summary.Skipped = append(summary.Skipped, id)
		default:
			return summary, fmt.Errorf("replay stopped at message %d: %w", id, err)
		}
	}

	logger.Infof("Replayed %d messages (%d skipped)", summary.Replayed, len(summary.Skipped))
	return summary, nil
}

func (s *MessageService) replayRequest(id int64, opts ReplayOptions) domain.TransitionRequest {
	detail := opts.Detail
	if detail == "" {
		detail = "manual replay at " + time.Now().UTC().Format(time.RFC3339)
	}

	return domain.TransitionRequest{
		MessageID: id,
		To:        domain.StatusPending,
		Origin:    domain.OriginManual,
		Detail:    detail,
		ActorID:   opts.ActorID,
	}
}
