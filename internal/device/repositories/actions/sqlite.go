package actions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/finn/internal/dbx"
	"github.com/dmitrijs2005/finn/internal/device/models"
)

// SQLiteRepository implements Repository on the actions table.
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) SetFrequency(ctx context.Context, actionID string, f models.Frequency) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO actions (action_id, frequency) VALUES (?, ?)
		ON CONFLICT(action_id) DO UPDATE SET frequency = excluded.frequency
	`, actionID, string(f))
	if err != nil {
		return fmt.Errorf("failed to store frequency of %s: %w", actionID, err)
	}
	return nil
}

func (r *SQLiteRepository) SetLastExecution(ctx context.Context, actionID string, ms int64) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO actions (action_id, last_execution_ms) VALUES (?, ?)
		ON CONFLICT(action_id) DO UPDATE SET last_execution_ms = excluded.last_execution_ms
	`, actionID, ms)
	if err != nil {
		return fmt.Errorf("failed to store last execution of %s: %w", actionID, err)
	}
	return nil
}

func (r *SQLiteRepository) Get(ctx context.Context, actionID string) (models.ThrottleState, error) {
	state := models.ThrottleState{ActionID: actionID, LastExecutionMs: models.NeverExecuted}

	var freq sql.NullString
	err := r.db.QueryRowContext(ctx,
		`SELECT frequency, last_execution_ms FROM actions WHERE action_id = ?`, actionID,
	).Scan(&freq, &state.LastExecutionMs)
	if errors.Is(err, sql.ErrNoRows) {
		return state, nil
	}
	if err != nil {
		return state, fmt.Errorf("failed to get action %s: %w", actionID, err)
	}
	state.Frequency = models.Frequency(freq.String)
	return state, nil
}

func (r *SQLiteRepository) GetAll(ctx context.Context) ([]models.ThrottleState, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT action_id, frequency, last_execution_ms FROM actions ORDER BY action_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to select actions: %w", err)
	}
	defer rows.Close()

	var result []models.ThrottleState
	for rows.Next() {
		var s models.ThrottleState
		var freq sql.NullString
		if err := rows.Scan(&s.ActionID, &freq, &s.LastExecutionMs); err != nil {
			return nil, err
		}
		s.Frequency = models.Frequency(freq.String)
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM actions`); err != nil {
		return fmt.Errorf("failed to clear actions: %w", err)
	}
	return nil
}
