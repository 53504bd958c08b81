package ble

import (
	"context"
	"sync/atomic"

	"github.com/dmitrijs2005/finn/internal/logging"
	"github.com/google/uuid"
)

// LogRadio stands in for a BLE stack on hosts without one. It only records
// and logs advertising state.
type LogRadio struct {
	log         logging.Logger
	advertising atomic.Bool
}

func NewLogRadio(log logging.Logger) *LogRadio {
	return &LogRadio{log: log}
}

func (r *LogRadio) Advertise(ctx context.Context, name string, service uuid.UUID) error {
	r.advertising.Store(true)
	r.log.Info(ctx, "advertising", "name", name, "service", service.String())
	return nil
}

func (r *LogRadio) StopAdvertising(ctx context.Context) error {
	r.advertising.Store(false)
	r.log.Info(ctx, "advertising off")
	return nil
}

func (r *LogRadio) Advertising() bool { return r.advertising.Load() }
