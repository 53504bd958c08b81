package services

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/finn/internal/common"
	"github.com/dmitrijs2005/finn/internal/device/ble"
	"github.com/dmitrijs2005/finn/internal/device/core"
	"github.com/dmitrijs2005/finn/internal/device/metrics"
	"github.com/dmitrijs2005/finn/internal/device/models"
	"github.com/dmitrijs2005/finn/internal/logging"
	"github.com/sethvargo/go-retry"
)

const (
	BackoffConstant    = "constant"
	BackoffExponential = "exponential"

	DefaultPollInterval = 10 * time.Second
)

var errNotPaired = errors.New("device not paired yet")

type PairingOptions struct {
	MultiPair bool
	// Interval is the delay between attempts, the initial one for
	// exponential backoff.
	Interval    time.Duration
	MaxInterval time.Duration
	Backoff     string
}

// Pairing drives UNPAIRED -> PAIRED_UNACTIVATED -> ACTIVATED. Until the
// device is activated every failure is logged and retried; only storage and
// configuration errors end the loop.
type Pairing struct {
	core    core.Client
	catalog *Catalog
	adv     ble.Advertiser
	opts    PairingOptions
	m       *metrics.Metrics
	log     logging.Logger

	state atomic.Int32
}

func NewPairing(c core.Client, catalog *Catalog, adv ble.Advertiser, opts PairingOptions, m *metrics.Metrics, log logging.Logger) *Pairing {
	if opts.Interval <= 0 {
		opts.Interval = DefaultPollInterval
	}
	return &Pairing{core: c, catalog: catalog, adv: adv, opts: opts, m: m, log: log}
}

func (p *Pairing) State() models.PairingState {
	return models.PairingState(p.state.Load())
}

func (p *Pairing) setState(ctx context.Context, s models.PairingState) {
	if prev := models.PairingState(p.state.Swap(int32(s))); prev != s {
		p.log.Info(ctx, "pairing state changed", "from", prev.String(), "to", s.String())
	}
}

// Run blocks until the device is activated (nil) or ctx ends (ctx.Err()).
func (p *Pairing) Run(ctx context.Context) error {
	attempt := 0
	return retry.Do(ctx, p.backoff(), func(ctx context.Context) error {
		attempt++
		err := p.attempt(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		switch common.KindOf(err) {
		case common.KindFatalStorage, common.KindConfiguration:
			p.log.Error(ctx, "pairing aborted", "error", err)
			return err
		case common.KindTransientNetwork, common.KindProtocol, common.KindBusinessRule, common.KindUnknown:
			if !errors.Is(err, errNotPaired) {
				p.log.Warn(ctx, "pairing attempt failed", "attempt", attempt, "error", err)
			} else {
				p.log.Debug(ctx, "device not paired yet", "attempt", attempt)
			}
		}
		return retry.RetryableError(err)
	})
}

func (p *Pairing) attempt(ctx context.Context) error {
	p.m.ObservePoll()

	paired, err := p.core.CheckPaired(ctx)
	if err != nil && common.IsTransient(err) {
		// Unreachable CORE reads as not paired.
		paired, err = false, nil
	}
	if err != nil {
		p.ensureAdvertising(ctx)
		return err
	}
	if !paired {
		p.setState(ctx, models.StateUnpaired)
		p.ensureAdvertising(ctx)
		return errNotPaired
	}

	p.setState(ctx, models.StatePairedUnactivated)

	if _, err := p.catalog.FetchAndStore(ctx); err != nil {
		return err
	}
	if err := p.core.Activate(ctx); err != nil {
		return err
	}

	if p.opts.MultiPair {
		p.ensureAdvertising(ctx)
	} else if p.adv.Started() {
		if err := p.adv.Stop(ctx); err != nil {
			p.log.Warn(ctx, "failed to stop advertising", "error", err)
		}
	}

	p.setState(ctx, models.StateActivated)
	return nil
}

func (p *Pairing) ensureAdvertising(ctx context.Context) {
	if p.adv.Started() {
		return
	}
	if err := p.adv.Start(ctx); err != nil {
		p.log.Warn(ctx, "failed to start advertising", "error", err)
	}
}

func (p *Pairing) backoff() retry.Backoff {
	if p.opts.Backoff == BackoffExponential {
		b := retry.NewExponential(p.opts.Interval)
		if p.opts.MaxInterval > 0 {
			b = retry.WithCappedDuration(p.opts.MaxInterval, b)
		}
		return b
	}
	return retry.NewConstant(p.opts.Interval)
}
