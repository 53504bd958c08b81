package offline

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/finn/internal/dbx"
	"github.com/dmitrijs2005/finn/internal/device/models"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Enqueue(ctx context.Context, rec models.TriggerRecord) error {
	created := rec.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO offline_actions (queue_id, action_id, alternative_id, created_at_ms)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(queue_id) DO NOTHING
	`, rec.QueueID, rec.ActionID, rec.AlternativeID, created.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to enqueue %s: %w", rec.QueueID, err)
	}
	return nil
}

func (r *SQLiteRepository) List(ctx context.Context) ([]models.OfflineEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT seq, queue_id, action_id, alternative_id, created_at_ms
		FROM offline_actions ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("failed to list offline actions: %w", err)
	}
	defer rows.Close()

	var result []models.OfflineEntry
	for rows.Next() {
		var e models.OfflineEntry
		var createdMs int64
		if err := rows.Scan(&e.Seq, &e.Record.QueueID, &e.Record.ActionID, &e.Record.AlternativeID, &createdMs); err != nil {
			return nil, fmt.Errorf("failed to scan offline action: %w", err)
		}
		e.Record.CreatedAt = time.UnixMilli(createdMs)
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) DeleteThrough(ctx context.Context, seq int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM offline_actions WHERE seq <= ?`, seq); err != nil {
		return fmt.Errorf("failed to delete offline actions: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM offline_actions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count offline actions: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM offline_actions`); err != nil {
		return fmt.Errorf("failed to clear offline actions: %w", err)
	}
	return nil
}
