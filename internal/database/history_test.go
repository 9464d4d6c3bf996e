package database_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/north-cloud/index-lifecycle/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/index-lifecycle/internal/database"
	"github.com/jonesrussell/north-cloud/index-lifecycle/pkg/lifecycle"
)

func newRepo(t *testing.T) (*database.HistoryRepository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	return database.NewHistoryRepository(sqlx.NewDb(db, "postgres"), logger.NewNop()), mock
}

func TestEntryFromEvent(t *testing.T) {
	t.Parallel()

	started := time.Date(2024, 1, 2, 15, 4, 5, 0, time.UTC)
	tests := []struct {
		name       string
		err        error
		wantStatus string
		wantMsg    string
	}{
		{name: "success", wantStatus: "success"},
		{name: "failure", err: errors.New("boom"), wantStatus: "error", wantMsg: "boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			entry := database.EntryFromEvent(lifecycle.Event{
				ID:        uuid.New(),
				Operation: lifecycle.OpCreate,
				Cluster:   "default",
				Index:     "app_events",
				Target:    "app_events_v1",
				Suffix:    "v1",
				Err:       tt.err,
				StartedAt: started,
				Duration:  1500 * time.Millisecond,
			})

			if entry.Status != tt.wantStatus {
				t.Errorf("Status = %q, want %q", entry.Status, tt.wantStatus)
			}
			if entry.ErrorMessage.Valid != (tt.wantMsg != "") || entry.ErrorMessage.String != tt.wantMsg {
				t.Errorf("ErrorMessage = %+v, want %q", entry.ErrorMessage, tt.wantMsg)
			}
			if entry.DurationMS != 1500 {
				t.Errorf("DurationMS = %d, want 1500", entry.DurationMS)
			}
			if entry.Operation != "create" {
				t.Errorf("Operation = %q, want create", entry.Operation)
			}
		})
	}
}

func TestHistoryRepository_Record(t *testing.T) {
	t.Parallel()

	repo, mock := newRepo(t)
	entry := database.EntryFromEvent(lifecycle.Event{
		ID:        uuid.New(),
		Operation: lifecycle.OpUpdateAliases,
		Cluster:   "default",
		Index:     "app_events",
		Target:    "app_events_v2",
		Suffix:    "v2",
		StartedAt: time.Now(),
	})

	mock.ExpectQuery("INSERT INTO lifecycle_history").
		WithArgs(entry.OperationID, "default", "app_events", "app_events_v2", "v2",
			"update_aliases", "success", sqlmock.AnyArg(), int64(0), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))

	if err := repo.Record(context.Background(), entry); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if entry.ID != 7 {
		t.Errorf("ID = %d, want 7", entry.ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestHistoryRepository_ObserveSwallowsErrors(t *testing.T) {
	t.Parallel()

	repo, mock := newRepo(t)
	mock.ExpectQuery("INSERT INTO lifecycle_history").
		WillReturnError(errors.New("connection refused"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// A cancelled caller context still records; the insert error is only logged.
	repo.Observe(ctx, lifecycle.Event{
		ID:        uuid.New(),
		Operation: lifecycle.OpDelete,
		Cluster:   "default",
		Index:     "app_events",
		Target:    "app_events_v1",
		StartedAt: time.Now(),
	})

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestHistoryRepository_List(t *testing.T) {
	t.Parallel()

	repo, mock := newRepo(t)
	opID := uuid.New()
	created := time.Date(2024, 1, 2, 15, 4, 5, 0, time.UTC)

	rows := sqlmock.NewRows([]string{
		"id", "operation_id", "cluster_id", "index_name", "target", "suffix",
		"operation", "status", "error_message", "duration_ms", "created_at",
	}).
		AddRow(2, opID.String(), "default", "app_events", "app_events_v2", "v2", "reset", "error", "timeout", 30, created).
		AddRow(1, opID.String(), "default", "app_events", "app_events_v1", "v1", "create", "success", nil, 12, created)

	mock.ExpectQuery("SELECT (.+) FROM lifecycle_history").
		WithArgs("app_events", 10).
		WillReturnRows(rows)

	entries, err := repo.List(context.Background(), "app_events", 10)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(entries))
	}
	if entries[0].Operation != "reset" || entries[0].ErrorMessage.String != "timeout" {
		t.Errorf("entries[0] = %+v", entries[0])
	}
	if entries[0].Error != "timeout" || entries[0].OperationID != opID {
		t.Errorf("entries[0] = %+v", entries[0])
	}
	if entries[1].ErrorMessage.Valid {
		t.Errorf("entries[1].ErrorMessage should be NULL, got %q", entries[1].ErrorMessage.String)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestHistoryRepository_ListClampsLimit(t *testing.T) {
	t.Parallel()

	repo, mock := newRepo(t)
	mock.ExpectQuery("SELECT (.+) FROM lifecycle_history").
		WithArgs("app_events", database.MaxListLimit).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	entries, err := repo.List(context.Background(), "app_events", 1<<62)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("len(entries) = %d, want 0", len(entries))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestHistoryRepository_ListQueryError(t *testing.T) {
	t.Parallel()

	repo, mock := newRepo(t)
	mock.ExpectQuery("SELECT (.+) FROM lifecycle_history").
		WillReturnError(errors.New("db down"))

	if _, err := repo.List(context.Background(), "app_events", 5); err == nil {
		t.Fatal("List() error = nil, want error")
	}
}
