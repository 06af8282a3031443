package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/onurcolak/campaign-dispatcher/internal/domain"
)

var messageRowColumns = []string{
	"id", "campaign_id", "destination", "content", "status",
	"provider_message_id", "sent_at", "created_at", "updated_at",
}

func TestMessageRepository_GetPendingByCampaignIsFIFOAndLimited(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewMessageRepository(db)
	created := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`WHERE campaign_id = \? AND status = 'pending'\s+ORDER BY id ASC\s+LIMIT \?`).
		WithArgs(int64(70), 2).
		WillReturnRows(sqlmock.NewRows(messageRowColumns).
			AddRow(3, 70, "+100", "a", "pending", nil, nil, created, created).
			AddRow(8, 70, "+200", "b", "pending", nil, nil, created, created))

	msgs, err := repo.GetPendingByCampaign(context.Background(), 70, 2)
	if err != nil {
		t.Fatalf("GetPendingByCampaign returned error: %v", err)
	}
	if len(msgs) != 2 || msgs[0].ID != 3 || msgs[1].ID != 8 {
		t.Fatalf("unexpected messages %+v", msgs)
	}
	if msgs[0].Status != domain.StatusPending || msgs[0].SentAt != nil {
		t.Fatalf("unexpected mapping %+v", msgs[0])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestMessageRepository_GetByIDMissingReturnsNil(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewMessageRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM messages WHERE id = ?`)).
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows(messageRowColumns))

	msg, err := repo.GetByID(context.Background(), 9)
	if err != nil {
		t.Fatalf("GetByID returned error: %v", err)
	}
	if msg != nil {
		t.Fatalf("expected nil message, got %+v", msg)
	}
}

func TestMessageRepository_GetAllAppliesFilters(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewMessageRepository(db)

	status := domain.StatusError
	campaign := int64(70)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM messages WHERE status = ? AND campaign_id = ?`)).
		WithArgs(status, campaign).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(41))
	mock.ExpectQuery(regexp.QuoteMeta(`WHERE status = ? AND campaign_id = ? ORDER BY id DESC LIMIT ? OFFSET ?`)).
		WithArgs(status, campaign, 20, 40).
		WillReturnRows(sqlmock.NewRows(messageRowColumns))

	_, total, err := repo.GetAll(context.Background(), domain.MessageFilter{Status: &status, CampaignID: &campaign}, 3, 20)
	if err != nil {
		t.Fatalf("GetAll returned error: %v", err)
	}
	if total != 41 {
		t.Fatalf("expected total 41, got %d", total)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestMessageRepository_ListIDsByStatus(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewMessageRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id FROM messages WHERE status = ? ORDER BY id ASC`)).
		WithArgs(domain.StatusError).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(2).AddRow(5))

	ids, err := repo.ListIDsByStatus(context.Background(), domain.StatusError, nil)
	if err != nil {
		t.Fatalf("ListIDsByStatus returned error: %v", err)
	}
	if len(ids) != 2 || ids[0] != 2 || ids[1] != 5 {
		t.Fatalf("unexpected ids %v", ids)
	}
}
