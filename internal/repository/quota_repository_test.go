package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	return sqlx.NewDb(db, "mysql"), mock
}

func TestQuotaRepository_ReadMissingRowIsZero(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewQuotaRepository(db)
	day := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT sent_count FROM schedule_quota_counters`)).
		WithArgs(int64(7), "2024-03-04").
		WillReturnRows(sqlmock.NewRows([]string{"sent_count"}))

	count, err := repo.Read(context.Background(), 7, day)
	if err != nil {
		t.Fatalf("Read returned error: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0, got %d", count)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestQuotaRepository_ReadExistingRow(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewQuotaRepository(db)
	day := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT sent_count FROM schedule_quota_counters`)).
		WithArgs(int64(7), "2024-03-04").
		WillReturnRows(sqlmock.NewRows([]string{"sent_count"}).AddRow(42))

	count, err := repo.Read(context.Background(), 7, day)
	if err != nil {
		t.Fatalf("Read returned error: %v", err)
	}
	if count != 42 {
		t.Fatalf("expected 42, got %d", count)
	}
}

func TestQuotaRepository_IncrementUpserts(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewQuotaRepository(db)
	day := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta(`ON DUPLICATE KEY UPDATE sent_count = sent_count + VALUES(sent_count)`)).
		WithArgs(int64(7), "2024-03-04", 3).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Increment(context.Background(), 7, day, 3); err != nil {
		t.Fatalf("Increment returned error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestQuotaRepository_IncrementRejectsNonPositive(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewQuotaRepository(db)

	if err := repo.Increment(context.Background(), 7, time.Now(), 0); err == nil {
		t.Fatalf("expected error for zero increment")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unexpected statements executed: %v", err)
	}
}
