// Package offline is the durable queue of trigger requests made while no
// network path was available. Entries are ordered by insertion and keyed by
// queue id; enqueuing an existing queue id is a no-op.
package offline

import (
	"context"

	"github.com/dmitrijs2005/finn/internal/device/models"
)

type Repository interface {
	Enqueue(ctx context.Context, rec models.TriggerRecord) error
	// List returns all entries in insertion order.
	List(ctx context.Context) ([]models.OfflineEntry, error)
	// DeleteThrough removes every entry with Seq <= seq.
	DeleteThrough(ctx context.Context, seq int64) error
	Count(ctx context.Context) (int, error)
	Clear(ctx context.Context) error
}
