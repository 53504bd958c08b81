package services

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/finn/internal/common"
	"github.com/dmitrijs2005/finn/internal/device/models"
	"github.com/dmitrijs2005/finn/internal/device/repositories/actions"
)

// IsEligible reports whether an action in state s may run at now. Actions
// never executed, or with an unknown frequency, are always eligible.
func IsEligible(s models.ThrottleState, now time.Time) bool {
	last, ok := s.LastExecution()
	if !ok {
		return true
	}
	next, ok := s.Frequency.NextAllowed(last)
	if !ok {
		return true
	}
	return !now.Before(next)
}

// Throttle enforces per-action cool-downs from the cached catalog.
type Throttle struct {
	repo  actions.Repository
	clock Clock
}

func NewThrottle(repo actions.Repository, clock Clock) *Throttle {
	return &Throttle{repo: repo, clock: clock}
}

// Check fails with ErrActionFrequencyTimeNotPassed while actionID is cooling
// down.
func (t *Throttle) Check(ctx context.Context, actionID string) error {
	const op = "throttle.Check"

	s, err := t.repo.Get(ctx, actionID)
	if err != nil {
		return common.E(common.KindFatalStorage, op, err)
	}
	if IsEligible(s, t.clock.Now()) {
		return nil
	}

	next, _ := s.Frequency.NextAllowed(time.UnixMilli(s.LastExecutionMs))
	return common.E(common.KindBusinessRule, op,
		fmt.Errorf("%w: %s allowed again at %s", common.ErrActionFrequencyTimeNotPassed, actionID, next.UTC().Format(time.RFC3339)))
}

// Record starts the cool-down of actionID at at.
func (t *Throttle) Record(ctx context.Context, actionID string, at time.Time) error {
	if err := t.repo.SetLastExecution(ctx, actionID, at.UnixMilli()); err != nil {
		return common.E(common.KindFatalStorage, "throttle.Record", err)
	}
	return nil
}
