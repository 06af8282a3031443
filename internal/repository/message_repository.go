package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/onurcolak/campaign-dispatcher/internal/domain"
)

const messageColumns = `id, campaign_id, destination, content, status, provider_message_id, sent_at, created_at, updated_at`

// MessageRepository reads message rows. Writes to message state go through
// the state machine.
type MessageRepository struct {
	db *sqlx.DB
}

func NewMessageRepository(db *sqlx.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// GetPendingByCampaign returns up to limit pending messages of a campaign in
// insertion order.
func (r *MessageRepository) GetPendingByCampaign(ctx context.Context, campaignID int64, limit int) ([]domain.Message, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE campaign_id = ? AND status = 'pending'
		ORDER BY id ASC
		LIMIT ?
	`

	var messages []domain.Message
	if err := r.db.SelectContext(ctx, &messages, query, campaignID, limit); err != nil {
		return nil, fmt.Errorf("failed to get pending messages: %w", err)
	}

	return messages, nil
}

func (r *MessageRepository) GetByID(ctx context.Context, id int64) (*domain.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages WHERE id = ?`

	var message domain.Message
	if err := r.db.GetContext(ctx, &message, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get message: %w", err)
	}

	return &message, nil
}

func (r *MessageRepository) GetAll(
	ctx context.Context,
	filter domain.MessageFilter,
	page, pageSize int,
) ([]domain.Message, int64, error) {
	offset := (page - 1) * pageSize
	where, args := filterClause(filter)

	var totalCount int64
	if err := r.db.GetContext(ctx, &totalCount, "SELECT COUNT(*) FROM messages"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count messages: %w", err)
	}

	query := `SELECT ` + messageColumns + ` FROM messages` + where + ` ORDER BY id DESC LIMIT ? OFFSET ?`

	var messages []domain.Message
	if err := r.db.SelectContext(ctx, &messages, query, append(args, pageSize, offset)...); err != nil {
		return nil, 0, fmt.Errorf("failed to get messages: %w", err)
	}

	return messages, totalCount, nil
}

// GetStats returns statistics about messages, optionally for one campaign.
func (r *MessageRepository) GetStats(ctx context.Context, campaignID *int64) (domain.MessageStats, error) {
	where, args := filterClause(domain.MessageFilter{CampaignID: campaignID})
	query := `
		SELECT
			COALESCE(SUM(CASE WHEN status = 'pending' THEN 1 ELSE 0 END), 0) AS pending,
			COALESCE(SUM(CASE WHEN status = 'sent' THEN 1 ELSE 0 END), 0)    AS sent,
			COALESCE(SUM(CASE WHEN status = 'error' THEN 1 ELSE 0 END), 0)   AS error
		FROM messages` + where

	var stats domain.MessageStats
	if err := r.db.GetContext(ctx, &stats, query, args...); err != nil {
		return domain.MessageStats{}, fmt.Errorf("failed to get stats: %w", err)
	}

	return stats, nil
}

// ListIDsByStatus returns ids in the given state, oldest first.
func (r *MessageRepository) ListIDsByStatus(ctx context.Context, status domain.MessageStatus, campaignID *int64) ([]int64, error) {
	where, args := filterClause(domain.MessageFilter{Status: &status, CampaignID: campaignID})

	var ids []int64
	if err := r.db.SelectContext(ctx, &ids, "SELECT id FROM messages"+where+" ORDER BY id ASC", args...); err != nil {
		return nil, fmt.Errorf("failed to list message ids: %w", err)
	}

	return ids, nil
}

func (r *MessageRepository) GetTransitions(ctx context.Context, messageID int64) ([]domain.Transition, error) {
	query := `
		SELECT id, message_id, from_status, to_status, origin, detail, actor_id, created_at
		FROM message_transitions
		WHERE message_id = ?
		ORDER BY id ASC
	`

	var transitions []domain.Transition
	if err := r.db.SelectContext(ctx, &transitions, query, messageID); err != nil {
		return nil, fmt.Errorf("failed to get transitions: %w", err)
	}

	return transitions, nil
}

func filterClause(filter domain.MessageFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if filter.Status != nil {
		conds = append(conds, "status = ?")
		args = append(args, *filter.Status)
	}
	if filter.CampaignID != nil {
		conds = append(conds, "campaign_id = ?")
		args = append(args, *filter.CampaignID)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}
