package services

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/finn/internal/common"
	"github.com/dmitrijs2005/finn/internal/device/metrics"
	"github.com/dmitrijs2005/finn/internal/device/models"
	"github.com/dmitrijs2005/finn/internal/device/storage"
	"github.com/dmitrijs2005/finn/internal/logging"
	"go.uber.org/multierr"
)

// Sender delivers one trigger record to CORE.
type Sender interface {
	TriggerAction(ctx context.Context, rec models.TriggerRecord) error
}

// DrainResult summarizes one pass over the offline queue. Err aggregates the
// individual resubmission failures.
type DrainResult struct {
	Attempted int
	Succeeded int
	Failed    int
	Requeued  int
	Err       error
}

// Queue is the durable offline queue. Enqueue and DrainAll exclude each other.
type Queue struct {
	mu     sync.Mutex
	store  *storage.Store
	sender Sender
	m      *metrics.Metrics
	log    logging.Logger
}

func NewQueue(store *storage.Store, sender Sender, m *metrics.Metrics, log logging.Logger) *Queue {
	return &Queue{store: store, sender: sender, m: m, log: log}
}

func (q *Queue) Enqueue(ctx context.Context, rec models.TriggerRecord) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if err := q.store.Offline.Enqueue(ctx, rec); err != nil {
		return common.E(common.KindFatalStorage, "queue.Enqueue", err)
	}
	q.updateDepth(ctx)
	return nil
}

func (q *Queue) Len(ctx context.Context) (int, error) {
	n, err := q.store.Offline.Count(ctx)
	if err != nil {
		return 0, common.E(common.KindFatalStorage, "queue.Len", err)
	}
	return n, nil
}

// DrainAll resubmits every queued record in insertion order with its
// original queue id. A failed resubmission never stops the pass. Once every
// record has been tried the drained entries are removed, except those that
// failed for lack of network, which go back to the queue.
// The returned error reports storage failures only.
func (q *Queue) DrainAll(ctx context.Context) (DrainResult, error) {
	const op = "queue.DrainAll"

	q.mu.Lock()
	defer q.mu.Unlock()

	entries, err := q.store.Offline.List(ctx)
	if err != nil {
		return DrainResult{}, common.E(common.KindFatalStorage, op, err)
	}
	if len(entries) == 0 {
		return DrainResult{}, nil
	}

	var res DrainResult
	var keep []models.TriggerRecord
	for _, e := range entries {
		res.Attempted++
		if err := q.sender.TriggerAction(ctx, e.Record); err != nil {
			res.Failed++
			res.Err = multierr.Append(res.Err, err)
			q.log.Warn(ctx, "offline resubmission failed",
				"actionID", e.Record.ActionID, "queueID", e.Record.QueueID, "error", err)
			if common.IsTransient(err) || ctx.Err() != nil {
				keep = append(keep, e.Record)
			}
			continue
		}
		res.Succeeded++
	}

	// Bookkeeping must land even when the caller is cancelling.
	ctx = context.WithoutCancel(ctx)
	last := entries[len(entries)-1].Seq
	err = q.store.WithTx(ctx, func(ctx context.Context, r *storage.Repositories) error {
		if err := r.Offline.DeleteThrough(ctx, last); err != nil {
			return err
		}
		for _, rec := range keep {
			if err := r.Offline.Enqueue(ctx, rec); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return res, common.E(common.KindFatalStorage, op, err)
	}
	res.Requeued = len(keep)

	q.m.ObserveResubmits(res.Succeeded, res.Failed)
	q.updateDepth(ctx)
	q.log.Info(ctx, "offline queue drained",
		"attempted", res.Attempted, "succeeded", res.Succeeded, "failed", res.Failed, "requeued", res.Requeued)
	return res, nil
}

func (q *Queue) updateDepth(ctx context.Context) {
	n, err := q.store.Offline.Count(ctx)
	if err != nil {
		q.log.Warn(ctx, "offline queue count failed", "error", err)
		return
	}
	q.m.SetQueueDepth(n)
}
