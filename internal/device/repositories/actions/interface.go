// Package actions persists per-action throttle state: the frequency declared
// by the catalog and the last execution time.
package actions

import (
	"context"

	"github.com/dmitrijs2005/finn/internal/device/models"
)

type Repository interface {
	// SetFrequency upserts the frequency, keeping any recorded execution time.
	SetFrequency(ctx context.Context, actionID string, f models.Frequency) error

	// SetLastExecution records the epoch millis of the latest trigger.
	SetLastExecution(ctx context.Context, actionID string, ms int64) error

	// Get returns the state of actionID. Unknown actions yield an empty
	// frequency and models.NeverExecuted.
	Get(ctx context.Context, actionID string) (models.ThrottleState, error)

	// GetAll lists every known action ordered by id.
	GetAll(ctx context.Context) ([]models.ThrottleState, error)

	Clear(ctx context.Context) error
}
