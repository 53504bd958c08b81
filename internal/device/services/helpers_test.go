package services

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/finn/internal/common"
	"github.com/dmitrijs2005/finn/internal/device/models"
	"github.com/dmitrijs2005/finn/internal/device/storage"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *storage.Store {
	t.Helper()
	s, err := storage.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeReach struct{ online atomic.Bool }

func (f *fakeReach) Online() bool { return f.online.Load() }

func reach(online bool) *fakeReach {
	r := &fakeReach{}
	r.online.Store(online)
	return r
}

// fakeCore is a scripted core.Client.
type fakeCore struct {
	mu sync.Mutex

	paired      bool
	pairErr     error
	actions     []models.ActionDescriptor
	actionsErr  error
	activateErr error
	triggerErr  func(rec models.TriggerRecord) error

	pairCalls     int
	activateCalls int
	calls         int
	triggered     []models.TriggerRecord
	order         []string
}

func (f *fakeCore) CheckPaired(ctx context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.pairCalls++
	f.order = append(f.order, "pair")
	return f.paired, f.pairErr
}

func (f *fakeCore) GetActions(ctx context.Context) ([]models.ActionDescriptor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.order = append(f.order, "actions")
	return f.actions, f.actionsErr
}

func (f *fakeCore) Activate(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.activateCalls++
	f.order = append(f.order, "activate")
	return f.activateErr
}

func (f *fakeCore) TriggerAction(ctx context.Context, rec models.TriggerRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.triggered = append(f.triggered, rec)
	if f.triggerErr != nil {
		return f.triggerErr(rec)
	}
	return nil
}

func (f *fakeCore) GetMessages(ctx context.Context) ([]models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return nil, nil
}

func (f *fakeCore) set(fn func(f *fakeCore)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

type coreCalls struct {
	pairCalls     int
	activateCalls int
	calls         int
	triggered     []models.TriggerRecord
	order         []string
}

func (f *fakeCore) snapshot() coreCalls {
	f.mu.Lock()
	defer f.mu.Unlock()
	return coreCalls{
		pairCalls:     f.pairCalls,
		activateCalls: f.activateCalls,
		calls:         f.calls,
		triggered:     append([]models.TriggerRecord(nil), f.triggered...),
		order:         append([]string(nil), f.order...),
	}
}

var errOffline = common.E(common.KindTransientNetwork, "test", fmt.Errorf("%w: dial tcp: no route to host", common.ErrUnavailable))

type fakeAdvertiser struct {
	started atomic.Bool
	starts  atomic.Int32
	stops   atomic.Int32
}

func (a *fakeAdvertiser) Start(ctx context.Context) error {
	a.started.Store(true)
	a.starts.Add(1)
	return nil
}

func (a *fakeAdvertiser) Stop(ctx context.Context) error {
	a.started.Store(false)
	a.stops.Add(1)
	return nil
}

func (a *fakeAdvertiser) Started() bool { return a.started.Load() }

func sequentialIDs() func() string {
	var n atomic.Int32
	return func() string { return fmt.Sprintf("q-%d", n.Add(1)) }
}
