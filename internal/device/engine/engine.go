package engine

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/finn/internal/common"
	"github.com/dmitrijs2005/finn/internal/device/ble"
	"github.com/dmitrijs2005/finn/internal/device/config"
	"github.com/dmitrijs2005/finn/internal/device/core"
	"github.com/dmitrijs2005/finn/internal/device/identity"
	"github.com/dmitrijs2005/finn/internal/device/metrics"
	"github.com/dmitrijs2005/finn/internal/device/models"
	"github.com/dmitrijs2005/finn/internal/device/netmon"
	"github.com/dmitrijs2005/finn/internal/device/repositories/metadata"
	"github.com/dmitrijs2005/finn/internal/device/services"
	"github.com/dmitrijs2005/finn/internal/device/storage"
	"github.com/dmitrijs2005/finn/internal/filex"
	"github.com/dmitrijs2005/finn/internal/logging"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

type lifecycle int

const (
	closed lifecycle = iota
	opened
	running
	destroyed
)

// Engine is the device SDK. Use New to construct one.
type Engine struct {
	cfg  config.Config
	opts Options
	log  logging.Logger

	mu    sync.Mutex
	state lifecycle

	store      *storage.Store
	id         *identity.DeviceIdentity
	device     models.DeviceModel
	core       core.Client
	peripheral *ble.Peripheral
	monitor    *netmon.Monitor
	catalog    *services.Catalog
	queue      *services.Queue
	trigger    *services.Trigger
	pairing    *services.Pairing

	cancel context.CancelFunc
	group  *errgroup.Group

	// Callbacks run under the read lock and check stopped, so once Stop has
	// held the write lock none can fire.
	cbMu    sync.RWMutex
	stopped bool
}

// New validates cfg and returns an engine that has not touched storage or
// the network yet.
func New(cfg config.Config, opts Options) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	opts.setDefaults()
	return &Engine{cfg: cfg, opts: opts, log: opts.Logger.With("component", "engine")}, nil
}

// Open prepares storage, identity and services without starting the
// background loops. That is enough for one-shot calls such as TriggerAction
// or Actions. Opening an open engine does nothing.
func (e *Engine) Open(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.openLocked(ctx)
}

func (e *Engine) openLocked(ctx context.Context) error {
	const op = "engine.Open"

	switch e.state {
	case opened, running:
		return nil
	case destroyed:
		return common.E(common.KindConfiguration, op, common.ErrDestroyed)
	case closed:
	}

	serverKey, err := identity.ServerPublicKey(e.cfg.ServerPublicKey)
	if err != nil {
		return common.E(common.KindConfiguration, op, err)
	}

	if err := filex.EnsureParentDir(e.cfg.DatabasePath); err != nil {
		return common.E(common.KindFatalStorage, op, err)
	}
	store, err := storage.Open(ctx, e.cfg.DatabasePath)
	if err != nil {
		return common.E(common.KindFatalStorage, op, err)
	}

	if err := e.build(ctx, store, serverKey); err != nil {
		_ = store.Close()
		return err
	}

	e.store = store
	e.state = opened
	e.cbMu.Lock()
	e.stopped = false
	e.cbMu.Unlock()
	return nil
}

func (e *Engine) build(ctx context.Context, store *storage.Store, serverKey *rsa.PublicKey) error {
	const op = "engine.Open"
	log := e.opts.Logger

	if e.cfg.NewInstall {
		if err := store.Wipe(ctx); err != nil {
			return common.E(common.KindFatalStorage, op, err)
		}
		e.log.Info(ctx, "new install, local data wiped")
	}

	keys := e.opts.KeyStore
	if keys == nil {
		var passphrase []byte
		if e.cfg.KeyPassphrase != "" {
			passphrase = []byte(e.cfg.KeyPassphrase)
		}
		keys = identity.NewSoftwareKeyStore(store.Metadata, passphrase)
	}

	provider := identity.NewProvider(store.Metadata, keys, serverKey, log.With("component", "identity"))
	id, err := provider.EnsureIdentity(ctx, e.cfg.MakerID, e.cfg.NewInstall)
	if err != nil {
		return err
	}

	device, err := e.deviceModel(id)
	if err != nil {
		return common.E(common.KindFatalStorage, op, err)
	}

	network := models.NetworkModel{IP: ble.LocalIP(ctx)}
	bot := ble.CollectBotDeviceModel(ctx, e.cfg.HostName, e.cfg.BuildDate, network, log.With("component", "hostinfo"))
	chars, err := ble.NewCharacteristics(device, bot, network, e.cfg.HasWifi)
	if err != nil {
		return common.E(common.KindConfiguration, op, err)
	}

	var wifi ble.NetworkConfigurator
	if e.cfg.HasWifi {
		wifi = &wifiHandler{next: e.opts.Network, log: log.With("component", "wifi")}
	}

	prober := e.opts.Prober
	if prober == nil {
		prober = netmon.DialProber{Addr: e.cfg.ProbeAddress()}
	}

	client := core.NewHTTPClient(e.cfg.BaseURL, e.cfg.HTTPTimeout, id, log.With("component", "core"))
	monitor := netmon.NewMonitor(prober, e.cfg.OnlineCheckInterval, log.With("component", "netmon"))
	peripheral := ble.NewPeripheral(e.opts.Radio, e.cfg.BluetoothName, chars, wifi, log.With("component", "ble"))
	catalog := services.NewCatalog(client, store.Actions, log.With("component", "catalog"))
	queue := services.NewQueue(store, client, e.opts.Metrics, log.With("component", "queue"))
	throttle := services.NewThrottle(store.Actions, e.opts.Clock)
	trigger := services.NewTrigger(client, throttle, queue, monitor, e.opts.Clock,
		services.TriggerOptions{MultiPair: e.cfg.MultiPair, NewID: e.opts.NewID},
		e.opts.Metrics, log.With("component", "trigger"))
	pairing := services.NewPairing(client, catalog, peripheral, services.PairingOptions{
		MultiPair:   e.cfg.MultiPair,
		Interval:    e.cfg.PollInterval,
		MaxInterval: e.cfg.MaxPollInterval,
		Backoff:     e.cfg.PollBackoff,
	}, e.opts.Metrics, log.With("component", "pairing"))

	e.id = id
	e.device = device
	e.core = client
	e.peripheral = peripheral
	e.monitor = monitor
	e.catalog = catalog
	e.queue = queue
	e.trigger = trigger
	e.pairing = pairing
	return nil
}

func (e *Engine) deviceModel(id *identity.DeviceIdentity) (models.DeviceModel, error) {
	pub, err := id.PublicKeyBase64()
	if err != nil {
		return models.DeviceModel{}, fmt.Errorf("failed to encode public key: %w", err)
	}
	m := models.DeviceModel{
		MakerID:   id.MakerID,
		DeviceID:  id.DeviceID,
		PublicKey: pub,
		Name:      e.cfg.HostName,
		Type:      models.ProductOwned,
	}
	if e.cfg.MultiPair {
		aid := e.cfg.AlternativeIDName
		m.MultiPair = 1
		m.AID = &aid
	}
	return m, nil
}

// Start opens the engine and launches reachability monitoring and the
// pairing loop. The returned channel yields exactly one value: nil once the
// device is activated, or the error that ended the pairing loop (including
// context.Canceled after Stop).
func (e *Engine) Start(ctx context.Context) (<-chan error, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == running {
		return nil, common.E(common.KindConfiguration, "engine.Start", common.ErrAlreadyStarted)
	}
	if err := e.openLocked(ctx); err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	g, gctx := errgroup.WithContext(runCtx)
	ready := make(chan error, 1)

	m := e.opts.Metrics
	queue := e.queue
	monitor := e.monitor
	log := e.log
	monitor.OnChange(func(online bool) {
		m.SetOnline(online)
		if !online {
			return
		}
		res, err := queue.DrainAll(gctx)
		if err != nil {
			log.Error(gctx, "offline queue drain failed", "error", err)
			return
		}
		if res.Attempted > 0 {
			log.Info(gctx, "offline queue drained after reconnect", "succeeded", res.Succeeded, "failed", res.Failed)
		}
	})
	m.SetOnline(monitor.Online())

	g.Go(func() error {
		return monitor.Run(gctx)
	})

	pairing := e.pairing
	g.Go(func() error {
		err := pairing.Run(gctx)
		if err == nil {
			log.Info(gctx, "device activated")
		}
		ready <- err
		close(ready)
		return nil
	})

	e.cancel = cancel
	e.group = g
	e.state = running
	e.log.Info(ctx, "engine started", "deviceID", e.id.DeviceID, "multiPair", e.cfg.MultiPair)
	return ready, nil
}

// StartWithCallback is Start with the activation result delivered to fn.
// fn is not called if the engine is stopped first, and must not call Stop
// itself.
func (e *Engine) StartWithCallback(ctx context.Context, fn func(err error)) error {
	ready, err := e.Start(ctx)
	if err != nil {
		return err
	}
	go func() {
		err := <-ready
		e.callback(func() { fn(err) })
	}()
	return nil
}

// Run starts the engine and blocks until ctx is done, then stops it.
func (e *Engine) Run(ctx context.Context) error {
	ready, err := e.Start(ctx)
	if err != nil {
		return err
	}

	select {
	case err := <-ready:
		if err != nil && ctx.Err() == nil {
			_ = e.Stop(context.WithoutCancel(ctx))
			return err
		}
		<-ctx.Done()
	case <-ctx.Done():
	}
	return e.Stop(context.WithoutCancel(ctx))
}

// Stop cancels the background loops and in-flight requests, stops BLE
// advertising and closes storage. No callback fires after Stop returns.
func (e *Engine) Stop(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stopLocked(ctx)
}

func (e *Engine) stopLocked(ctx context.Context) error {
	switch e.state {
	case closed, destroyed:
		return common.E(common.KindConfiguration, "engine.Stop", common.ErrNotStarted)
	case opened, running:
	}

	e.cbMu.Lock()
	e.stopped = true
	e.cbMu.Unlock()

	if e.cancel != nil {
		e.cancel()
		_ = e.group.Wait()
		e.cancel, e.group = nil, nil
	}

	err := multierr.Combine(e.peripheral.Stop(ctx), e.store.Close())

	e.store = nil
	e.state = closed
	e.log.Info(ctx, "engine stopped")
	if err != nil {
		return fmt.Errorf("failed to stop engine: %w", err)
	}
	return nil
}

// Destroy stops the engine, wipes every persisted value and invalidates the
// identity. The engine cannot be used afterwards.
func (e *Engine) Destroy(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == destroyed {
		return nil
	}
	if e.state == running || e.state == opened {
		if err := e.stopLocked(ctx); err != nil {
			return err
		}
	}

	if err := filex.EnsureParentDir(e.cfg.DatabasePath); err != nil {
		return common.E(common.KindFatalStorage, "engine.Destroy", err)
	}
	store, err := storage.Open(ctx, e.cfg.DatabasePath)
	if err != nil {
		return common.E(common.KindFatalStorage, "engine.Destroy", err)
	}
	defer store.Close()

	if err := store.Wipe(ctx); err != nil {
		return common.E(common.KindFatalStorage, "engine.Destroy", err)
	}

	e.id = nil
	e.state = destroyed
	e.log.Info(ctx, "engine destroyed")
	return nil
}

// TriggerAction runs the trigger pipeline for actionID. alternativeID is
// required on multi-pair devices.
func (e *Engine) TriggerAction(ctx context.Context, actionID, alternativeID string) (services.TriggerResult, error) {
	t, err := e.opened("engine.TriggerAction")
	if err != nil {
		return services.TriggerResult{}, err
	}
	return t.trigger.Trigger(ctx, actionID, alternativeID)
}

// Actions fetches the action catalog from CORE without persisting it.
func (e *Engine) Actions(ctx context.Context) ([]models.ActionDescriptor, error) {
	t, err := e.opened("engine.Actions")
	if err != nil {
		return nil, err
	}
	return t.catalog.Fetch(ctx)
}

// Messages fetches the messages CORE holds for the device.
func (e *Engine) Messages(ctx context.Context) ([]models.Message, error) {
	t, err := e.opened("engine.Messages")
	if err != nil {
		return nil, err
	}
	return t.core.GetMessages(ctx)
}

// DrainQueue resubmits every queued trigger now.
func (e *Engine) DrainQueue(ctx context.Context) (services.DrainResult, error) {
	t, err := e.opened("engine.DrainQueue")
	if err != nil {
		return services.DrainResult{}, err
	}
	return t.queue.DrainAll(ctx)
}

// PendingTriggers reports the offline queue length.
func (e *Engine) PendingTriggers(ctx context.Context) (int, error) {
	t, err := e.opened("engine.PendingTriggers")
	if err != nil {
		return 0, err
	}
	return t.queue.Len(ctx)
}

// PairingPayload returns the JSON the host renders as the pairing QR code
// and marks it as rendered.
func (e *Engine) PairingPayload(ctx context.Context) ([]byte, error) {
	const op = "engine.PairingPayload"

	t, err := e.opened(op)
	if err != nil {
		return nil, err
	}
	b, err := json.Marshal(t.device)
	if err != nil {
		return nil, fmt.Errorf("failed to encode device model: %w", err)
	}
	if err := t.store.Metadata.SetBool(ctx, metadata.KeyHasStoredQRImage, true); err != nil {
		return nil, common.E(common.KindFatalStorage, op, err)
	}
	return b, nil
}

// HasStoredQRImage reports whether PairingPayload was handed out before.
func (e *Engine) HasStoredQRImage(ctx context.Context) (bool, error) {
	const op = "engine.HasStoredQRImage"

	t, err := e.opened(op)
	if err != nil {
		return false, err
	}
	v, err := t.store.Metadata.GetBool(ctx, metadata.KeyHasStoredQRImage)
	if err != nil {
		return false, common.E(common.KindFatalStorage, op, err)
	}
	return v, nil
}

// State is the pairing state, StateUnpaired when the engine is not running.
func (e *Engine) State() models.PairingState {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != running {
		return models.StateUnpaired
	}
	return e.pairing.State()
}

// Identity is the device identity of an open engine, nil otherwise.
func (e *Engine) Identity() *identity.DeviceIdentity {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != opened && e.state != running {
		return nil
	}
	return e.id
}

// Peripheral is the BLE service for the host's GATT glue, nil when the
// engine is not open.
func (e *Engine) Peripheral() *ble.Peripheral {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != opened && e.state != running {
		return nil
	}
	return e.peripheral
}

func (e *Engine) Metrics() *metrics.Metrics {
	return e.opts.Metrics
}

// components is a snapshot of the services of an open engine.
type components struct {
	store   *storage.Store
	device  models.DeviceModel
	core    core.Client
	catalog *services.Catalog
	queue   *services.Queue
	trigger *services.Trigger
}

func (e *Engine) opened(op string) (components, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.state {
	case opened, running:
		return components{
			store:   e.store,
			device:  e.device,
			core:    e.core,
			catalog: e.catalog,
			queue:   e.queue,
			trigger: e.trigger,
		}, nil
	case destroyed:
		return components{}, common.E(common.KindConfiguration, op, common.ErrDestroyed)
	case closed:
	}
	return components{}, common.E(common.KindConfiguration, op, common.ErrNotStarted)
}

func (e *Engine) callback(fn func()) {
	e.cbMu.RLock()
	defer e.cbMu.RUnlock()
	if e.stopped {
		return
	}
	fn()
}
