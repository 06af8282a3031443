// Package statemachine is the only writer of message state. Every change is
// validated against the transition table and committed together with its
// audit row in one transaction.
package statemachine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/onurcolak/campaign-dispatcher/internal/domain"
)

type Machine struct {
	db  *sqlx.DB
	now func() time.Time
}

func New(db *sqlx.DB) *Machine {
	return &Machine{db: db, now: time.Now}
}

// Transition moves one message to req.To. The message row is locked for the
// duration of the transaction; the lock is never held across a gateway call.
func (m *Machine) Transition(ctx context.Context, req domain.TransitionRequest) (*domain.Transition, error) {
	tx, err := m.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transition: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var current string
	err = tx.GetContext(ctx, &current, `SELECT status FROM messages WHERE id = ? FOR UPDATE`, req.MessageID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("message %d: %w", req.MessageID, domain.ErrMessageNotFound)
		}
		return nil, fmt.Errorf("failed to lock message %d: %w", req.MessageID, err)
	}

	from := domain.MessageStatus(current)
	if !domain.CanTransition(from, req.To) {
		return nil, &domain.IllegalTransitionError{MessageID: req.MessageID, From: from, To: req.To}
	}

	now := m.now().UTC()
	record := &domain.Transition{
		MessageID:  req.MessageID,
		FromStatus: from,
		ToStatus:   req.To,
		Origin:     req.Origin,
		Detail:     req.Detail,
		ActorID:    req.ActorID,
		CreatedAt:  now,
	}

	result, err := tx.ExecContext(ctx, `
		INSERT INTO message_transitions (message_id, from_status, to_status, origin, detail, actor_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, record.MessageID, record.FromStatus, record.ToStatus, record.Origin, record.Detail, record.ActorID, record.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to record transition for message %d: %w", req.MessageID, err)
	}
	if id, err := result.LastInsertId(); err == nil {
		record.ID = id
	}

	// sent_at and provider_message_id are only ever set on sent.
	var (
		sentAt     *time.Time
		providerID *string
	)
	if req.To == domain.StatusSent {
		sentAt = &now
		providerID = req.ProviderMessageID
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE messages
		SET status = ?, sent_at = ?, provider_message_id = ?, updated_at = ?
		WHERE id = ?
	`, req.To, sentAt, providerID, now, req.MessageID); err != nil {
		return nil, fmt.Errorf("failed to update message %d: %w", req.MessageID, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transition for message %d: %w", req.MessageID, err)
	}

	return record, nil
}
