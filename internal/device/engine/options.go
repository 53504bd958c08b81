package engine

import (
	"github.com/dmitrijs2005/finn/internal/device/ble"
	"github.com/dmitrijs2005/finn/internal/device/identity"
	"github.com/dmitrijs2005/finn/internal/device/metrics"
	"github.com/dmitrijs2005/finn/internal/device/netmon"
	"github.com/dmitrijs2005/finn/internal/device/services"
	"github.com/dmitrijs2005/finn/internal/logging"
)

// Options are the platform collaborators of an Engine. Every field is
// optional.
type Options struct {
	// Radio is the BLE stack. Defaults to a radio that only logs.
	Radio ble.Radio
	// Network applies WiFi credentials written over BLE.
	Network ble.NetworkConfigurator
	// Prober tests reachability of CORE. Defaults to a TCP dial of
	// Config.ProbeAddress().
	Prober netmon.Prober
	// KeyStore holds the device key pair. Defaults to the software store in
	// the local database.
	KeyStore identity.KeyStore
	Clock    services.Clock
	// NewID mints queue ids. Defaults to random UUIDs.
	NewID   func() string
	Metrics *metrics.Metrics
	Logger  logging.Logger
}

func (o *Options) setDefaults() {
	if o.Logger == nil {
		o.Logger = logging.Discard()
	}
	if o.Radio == nil {
		o.Radio = ble.NewLogRadio(o.Logger.With("component", "radio"))
	}
	if o.Clock == nil {
		o.Clock = services.SystemClock{}
	}
	if o.NewID == nil {
		o.NewID = identity.GenerateCorrelationID
	}
	if o.Metrics == nil {
		o.Metrics = metrics.New()
	}
}
