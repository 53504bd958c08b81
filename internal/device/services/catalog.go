package services

import (
	"context"

	"github.com/dmitrijs2005/finn/internal/common"
	"github.com/dmitrijs2005/finn/internal/device/core"
	"github.com/dmitrijs2005/finn/internal/device/models"
	"github.com/dmitrijs2005/finn/internal/device/repositories/actions"
	"github.com/dmitrijs2005/finn/internal/logging"
)

// Catalog fetches the action list from CORE and caches each action's
// frequency for the throttle.
type Catalog struct {
	core    core.Client
	actions actions.Repository
	log     logging.Logger
}

func NewCatalog(c core.Client, repo actions.Repository, log logging.Logger) *Catalog {
	return &Catalog{core: c, actions: repo, log: log}
}

// Fetch returns the catalog without touching the cache.
func (c *Catalog) Fetch(ctx context.Context) ([]models.ActionDescriptor, error) {
	return c.core.GetActions(ctx)
}

// FetchAndStore fetches the catalog and persists (actionID, frequency) of
// every complete descriptor. Descriptors without an id or frequency are
// logged and skipped; only the complete ones are returned.
func (c *Catalog) FetchAndStore(ctx context.Context) ([]models.ActionDescriptor, error) {
	const op = "catalog.FetchAndStore"

	list, err := c.core.GetActions(ctx)
	if err != nil {
		return nil, err
	}

	stored := make([]models.ActionDescriptor, 0, len(list))
	for _, a := range list {
		if a.ActionID == "" || a.Frequency == "" {
			c.log.Warn(ctx, "skipping corrupt action", "actionID", a.ActionID, "frequency", string(a.Frequency))
			continue
		}
		if !a.Frequency.Valid() {
			c.log.Warn(ctx, "unknown action frequency, action will not be throttled",
				"actionID", a.ActionID, "frequency", string(a.Frequency))
		}
		if err := c.actions.SetFrequency(ctx, a.ActionID, a.Frequency); err != nil {
			return nil, common.E(common.KindFatalStorage, op, err)
		}
		stored = append(stored, a)
	}

	c.log.Info(ctx, "action catalog cached", "received", len(list), "stored", len(stored))
	return stored, nil
}
