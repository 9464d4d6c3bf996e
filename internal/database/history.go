package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/north-cloud/index-lifecycle/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/index-lifecycle/pkg/lifecycle"
)

const recordTimeout = 5 * time.Second

// MaxListLimit caps the number of entries List returns.
const MaxListLimit = 1000

// HistoryEntry is one row of lifecycle_history.
type HistoryEntry struct {
	ID           int64          `db:"id"            json:"id"`
	OperationID  uuid.UUID      `db:"operation_id"  json:"operation_id"`
	ClusterID    string         `db:"cluster_id"    json:"cluster_id"`
	IndexName    string         `db:"index_name"    json:"index_name"`
	Target       string         `db:"target"        json:"target"`
	Suffix       string         `db:"suffix"        json:"suffix,omitempty"`
	Operation    string         `db:"operation"     json:"operation"`
	Status       string         `db:"status"        json:"status"`
	ErrorMessage sql.NullString `db:"error_message" json:"-"`
	DurationMS   int64          `db:"duration_ms"   json:"duration_ms"`
	CreatedAt    time.Time      `db:"created_at"    json:"created_at"`

	// Error mirrors ErrorMessage for JSON output.
	Error string `db:"-" json:"error,omitempty"`
}

// HistoryRepository reads and writes lifecycle_history. It observes
// lifecycle backends. The table is created by RunMigrations.
type HistoryRepository struct {
	db  *sqlx.DB
	log logger.Logger
}

// NewHistoryRepository creates a repository over db.
func NewHistoryRepository(db *sqlx.DB, log logger.Logger) *HistoryRepository {
	if log == nil {
		log = logger.NewNop()
	}
	return &HistoryRepository{db: db, log: log}
}

// EntryFromEvent converts a lifecycle event into a row.
func EntryFromEvent(e lifecycle.Event) *HistoryEntry {
	entry := &HistoryEntry{
		OperationID: e.ID,
		ClusterID:   e.Cluster,
		IndexName:   e.Index,
		Target:      e.Target,
		Suffix:      e.Suffix,
		Operation:   string(e.Operation),
		Status:      e.Outcome(),
		DurationMS:  e.Duration.Milliseconds(),
		CreatedAt:   e.StartedAt.UTC(),
	}
	if e.Err != nil {
		entry.ErrorMessage = sql.NullString{String: e.Err.Error(), Valid: true}
		entry.Error = e.Err.Error()
	}
	return entry
}

// Record inserts entry and sets its ID.
func (r *HistoryRepository) Record(ctx context.Context, entry *HistoryEntry) error {
	query := `
		INSERT INTO lifecycle_history
		(operation_id, cluster_id, index_name, target, suffix, operation, status, error_message, duration_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`

	err := r.db.QueryRowContext(ctx, query,
		entry.OperationID,
		entry.ClusterID,
		entry.IndexName,
		entry.Target,
		entry.Suffix,
		entry.Operation,
		entry.Status,
		entry.ErrorMessage,
		entry.DurationMS,
		entry.CreatedAt,
	).Scan(&entry.ID)
	if err != nil {
		return fmt.Errorf("record lifecycle history: %w", err)
	}
	return nil
}

// Observe records e. Failures are logged and never reach the operation.
func (r *HistoryRepository) Observe(ctx context.Context, e lifecycle.Event) {
	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()

	if err := r.Record(recordCtx, EntryFromEvent(e)); err != nil {
		r.log.Error("Failed to record lifecycle history",
			logger.String("operation", string(e.Operation)),
			logger.String("target", e.Target),
			logger.Error(err),
		)
	}
}

// List returns the latest entries for the canonical index name, newest
// first. Limits above MaxListLimit are clamped.
func (r *HistoryRepository) List(ctx context.Context, indexName string, limit int) ([]*HistoryEntry, error) {
	query := `
		SELECT id, operation_id, cluster_id, index_name, target, suffix, operation,
		       status, error_message, duration_ms, created_at
		FROM lifecycle_history
		WHERE index_name = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	entries := []*HistoryEntry{}
	if err := r.db.SelectContext(ctx, &entries, query, indexName, min(limit, MaxListLimit)); err != nil {
		return nil, fmt.Errorf("list lifecycle history: %w", err)
	}
	for _, e := range entries {
		e.Error = e.ErrorMessage.String
	}
	return entries, nil
}

// Ping checks the connection, for health reporting.
func (r *HistoryRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
