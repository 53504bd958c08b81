package services

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dmitrijs2005/finn/internal/common"
	"github.com/dmitrijs2005/finn/internal/device/core"
	"github.com/dmitrijs2005/finn/internal/device/models"
	"github.com/dmitrijs2005/finn/internal/device/storage"
	"github.com/dmitrijs2005/finn/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type triggerFixture struct {
	store *storage.Store
	core  *fakeCore
	reach *fakeReach
	clock *fakeClock
	trig  *Trigger
}

func newTriggerFixture(t *testing.T, multiPair bool) *triggerFixture {
	t.Helper()
	f := &triggerFixture{
		store: newStore(t),
		core:  &fakeCore{},
		reach: reach(true),
		clock: newFakeClock(),
	}
	q := NewQueue(f.store, f.core, nil, logging.Discard())
	f.trig = NewTrigger(f.core, NewThrottle(f.store.Actions, f.clock), q, f.reach, f.clock,
		TriggerOptions{MultiPair: multiPair, NewID: sequentialIDs()}, nil, logging.Discard())
	return f
}

func (f *triggerFixture) lastExecution(t *testing.T, actionID string) int64 {
	t.Helper()
	s, err := f.store.Actions.Get(context.Background(), actionID)
	require.NoError(t, err)
	return s.LastExecutionMs
}

func TestTrigger_OnlineRecordsCooldown(t *testing.T) {
	ctx := context.Background()
	f := newTriggerFixture(t, false)
	require.NoError(t, f.store.Actions.SetFrequency(ctx, "A1", models.FrequencyDaily))

	res, err := f.trig.Trigger(ctx, "A1", "")
	require.NoError(t, err)
	assert.False(t, res.Queued)
	assert.Equal(t, "q-1", res.QueueID)
	assert.Nil(t, res.Drain)
	assert.Equal(t, f.clock.Now().UnixMilli(), f.lastExecution(t, "A1"))

	_, err = f.trig.Trigger(ctx, "A1", "")
	require.ErrorIs(t, err, common.ErrActionFrequencyTimeNotPassed)
	assert.Len(t, f.core.snapshot().triggered, 1)

	f.clock.Advance(24 * time.Hour)
	_, err = f.trig.Trigger(ctx, "A1", "")
	require.NoError(t, err)
}

func TestTrigger_FirstUseAndAlways(t *testing.T) {
	ctx := context.Background()
	f := newTriggerFixture(t, false)
	require.NoError(t, f.store.Actions.SetFrequency(ctx, "always", models.FrequencyAlways))

	for i := 0; i < 3; i++ {
		_, err := f.trig.Trigger(ctx, "always", "")
		require.NoError(t, err)
	}
	_, err := f.trig.Trigger(ctx, "never-seen", "")
	require.NoError(t, err)
	assert.Len(t, f.core.snapshot().triggered, 4)
}

func TestTrigger_MultiPairRequiresAlternativeID(t *testing.T) {
	ctx := context.Background()
	f := newTriggerFixture(t, true)

	for _, online := range []bool{true, false} {
		f.reach.online.Store(online)
		_, err := f.trig.Trigger(ctx, "A1", "")
		require.ErrorIs(t, err, common.ErrAlternativeIdentifierRequired)
		assert.Equal(t, common.KindBusinessRule, common.KindOf(err))
	}

	assert.Zero(t, f.core.snapshot().calls)
	n, err := f.store.Offline.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, models.NeverExecuted, f.lastExecution(t, "A1"))

	f.reach.online.Store(true)
	_, err = f.trig.Trigger(ctx, "A1", "customer-7")
	require.NoError(t, err)
	sent := f.core.snapshot().triggered
	require.Len(t, sent, 1)
	assert.Equal(t, "customer-7", sent[0].AlternativeID)
}

func TestTrigger_OfflineThenOnlineDrains(t *testing.T) {
	ctx := context.Background()
	f := newTriggerFixture(t, false)
	f.reach.online.Store(false)

	res, err := f.trig.Trigger(ctx, "A1", "")
	require.NoError(t, err)
	assert.True(t, res.Queued)
	queuedID := res.QueueID

	entries, err := f.store.Offline.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, queuedID, entries[0].Record.QueueID)
	assert.Equal(t, f.clock.Now().UnixMilli(), f.lastExecution(t, "A1"))
	assert.Zero(t, f.core.snapshot().calls)

	f.reach.online.Store(true)
	res, err = f.trig.Trigger(ctx, "A2", "")
	require.NoError(t, err)
	assert.False(t, res.Queued)
	require.NotNil(t, res.Drain)
	assert.Equal(t, 1, res.Drain.Attempted)
	assert.Equal(t, 1, res.Drain.Succeeded)

	sent := f.core.snapshot().triggered
	require.Len(t, sent, 2)
	assert.Equal(t, "A2", sent[0].ActionID)
	assert.Equal(t, "A1", sent[1].ActionID)
	assert.Equal(t, queuedID, sent[1].QueueID)
	assert.NotEqual(t, res.QueueID, sent[1].QueueID)

	n, err := f.store.Offline.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestTrigger_TransientFailureQueues(t *testing.T) {
	ctx := context.Background()
	f := newTriggerFixture(t, false)
	f.core.set(func(c *fakeCore) {
		c.triggerErr = func(models.TriggerRecord) error { return errOffline }
	})

	res, err := f.trig.Trigger(ctx, "A1", "")
	require.NoError(t, err)
	assert.True(t, res.Queued)

	entries, err := f.store.Offline.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, res.QueueID, entries[0].Record.QueueID)
	assert.Equal(t, f.clock.Now().UnixMilli(), f.lastExecution(t, "A1"))
}

func TestTrigger_RejectionsSurface(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"not activated", common.E(common.KindBusinessRule, "test", common.ErrActionNotActivated), common.ErrActionNotActivated},
		{"trigger failed", common.E(common.KindBusinessRule, "test", common.ErrActionTriggerFailed), common.ErrActionTriggerFailed},
		{"verification failed", common.E(common.KindProtocol, "test", common.ErrResponseVerificationFailed), common.ErrResponseVerificationFailed},
		{"status error", common.E(common.KindBusinessRule, "test", &core.HTTPStatusError{StatusCode: http.StatusBadRequest}), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			f := newTriggerFixture(t, false)
			f.core.set(func(c *fakeCore) {
				c.triggerErr = func(models.TriggerRecord) error { return tt.err }
			})

			_, err := f.trig.Trigger(ctx, "A1", "")
			require.Error(t, err)
			if tt.want != nil {
				require.ErrorIs(t, err, tt.want)
			}

			assert.Equal(t, models.NeverExecuted, f.lastExecution(t, "A1"))
			n, err := f.store.Offline.Count(ctx)
			require.NoError(t, err)
			assert.Zero(t, n)
		})
	}
}
