package services

import (
	"context"

	"github.com/dmitrijs2005/finn/internal/common"
	"github.com/dmitrijs2005/finn/internal/device/metrics"
	"github.com/dmitrijs2005/finn/internal/device/models"
	"github.com/dmitrijs2005/finn/internal/device/netmon"
	"github.com/dmitrijs2005/finn/internal/logging"
)

// TriggerResult describes an accepted trigger.
type TriggerResult struct {
	QueueID string
	// Queued is set when the record went to the offline queue instead of CORE.
	Queued bool
	// Drain is the queue pass that followed an online delivery, if any.
	Drain *DrainResult
}

type TriggerOptions struct {
	MultiPair bool
	// NewID mints queue ids.
	NewID func() string
}

// Trigger runs the action trigger pipeline: throttle, multi-pair check,
// online or offline dispatch, cool-down bookkeeping and queue drain.
type Trigger struct {
	sender   Sender
	throttle *Throttle
	queue    *Queue
	reach    netmon.Reachability
	clock    Clock
	opts     TriggerOptions
	m        *metrics.Metrics
	log      logging.Logger
}

func NewTrigger(sender Sender, throttle *Throttle, queue *Queue, reach netmon.Reachability, clock Clock,
	opts TriggerOptions, m *metrics.Metrics, log logging.Logger) *Trigger {
	return &Trigger{
		sender:   sender,
		throttle: throttle,
		queue:    queue,
		reach:    reach,
		clock:    clock,
		opts:     opts,
		m:        m,
		log:      log,
	}
}

// Trigger requests actionID. alternativeID identifies the app user on
// multi-pair devices and is mandatory there.
//
// Business rule errors come back unchanged for the caller to act on. Lack of
// network never fails a trigger: the record is queued and replayed later.
func (t *Trigger) Trigger(ctx context.Context, actionID, alternativeID string) (TriggerResult, error) {
	const op = "trigger.Trigger"

	if err := t.throttle.Check(ctx, actionID); err != nil {
		t.reject(err)
		return TriggerResult{}, err
	}
	if t.opts.MultiPair && alternativeID == "" {
		err := common.E(common.KindBusinessRule, op, common.ErrAlternativeIdentifierRequired)
		t.reject(err)
		return TriggerResult{}, err
	}

	now := t.clock.Now()
	rec := models.TriggerRecord{
		ActionID:      actionID,
		QueueID:       t.opts.NewID(),
		AlternativeID: alternativeID,
		CreatedAt:     now,
	}
	res := TriggerResult{QueueID: rec.QueueID}

	online := t.reach.Online()
	if online {
		err := t.sender.TriggerAction(ctx, rec)
		switch common.KindOf(err) {
		case common.KindUnknown:
			if err != nil {
				t.reject(err)
				return TriggerResult{}, err
			}
		case common.KindTransientNetwork:
			t.log.Warn(ctx, "trigger delivery failed, queueing", "actionID", actionID, "error", err)
			online = false
		case common.KindConfiguration, common.KindProtocol, common.KindBusinessRule, common.KindFatalStorage:
			t.reject(err)
			return TriggerResult{}, err
		}
	}

	if !online {
		if err := t.queue.Enqueue(ctx, rec); err != nil {
			return TriggerResult{}, err
		}
		res.Queued = true
	}

	if err := t.throttle.Record(ctx, actionID, now); err != nil {
		return TriggerResult{}, err
	}

	if res.Queued {
		t.m.ObserveTrigger(metrics.TriggerQueued)
		t.log.Info(ctx, "action queued", "actionID", actionID, "queueID", rec.QueueID)
		return res, nil
	}

	t.m.ObserveTrigger(metrics.TriggerOnline)
	t.log.Info(ctx, "action triggered", "actionID", actionID, "queueID", rec.QueueID)

	drain, err := t.queue.DrainAll(ctx)
	if err != nil {
		t.log.Error(ctx, "offline queue drain failed", "error", err)
	} else if drain.Attempted > 0 {
		res.Drain = &drain
	}
	return res, nil
}

func (t *Trigger) reject(err error) {
	if common.KindOf(err) == common.KindBusinessRule {
		t.m.ObserveTrigger(metrics.TriggerRejected)
	}
}
