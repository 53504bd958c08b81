package ble

import (
	"context"
	"errors"
	"sync"

	"github.com/dmitrijs2005/finn/internal/device/models"
	"github.com/dmitrijs2005/finn/internal/logging"
	"github.com/google/uuid"
)

// Advertiser is what the pairing state machine drives.
type Advertiser interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Started() bool
}

// Radio is the platform BLE stack.
type Radio interface {
	Advertise(ctx context.Context, name string, service uuid.UUID) error
	StopAdvertising(ctx context.Context) error
}

// NetworkConfigurator applies WiFi credentials received over BLE.
type NetworkConfigurator interface {
	Connect(ctx context.Context, creds models.WifiCredentials) error
}

// Peripheral implements Advertiser on top of a Radio and serves the GATT
// characteristics. Advertising pauses while a central is connected.
type Peripheral struct {
	radio Radio
	name  string
	chars *Characteristics
	net   NetworkConfigurator
	log   logging.Logger

	mu        sync.Mutex
	started   bool
	connected bool
	wifi      WifiAssembler
}

func NewPeripheral(radio Radio, name string, chars *Characteristics, net NetworkConfigurator, log logging.Logger) *Peripheral {
	return &Peripheral{radio: radio, name: name, chars: chars, net: net, log: log}
}

func (p *Peripheral) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return nil
	}
	if err := p.radio.Advertise(ctx, p.name, ServiceUUID); err != nil {
		return err
	}
	p.started = true
	p.log.Info(ctx, "ble advertising started", "name", p.name)
	return nil
}

// Stop stops advertising and drops any partial WiFi write.
func (p *Peripheral) Stop(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return nil
	}
	p.started = false
	p.connected = false
	p.wifi = WifiAssembler{}
	if err := p.radio.StopAdvertising(ctx); err != nil {
		return err
	}
	p.log.Info(ctx, "ble advertising stopped")
	return nil
}

func (p *Peripheral) Started() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.started
}

// OnConnectionStateChange pauses advertising while a central is connected
// and resumes it on disconnect.
func (p *Peripheral) OnConnectionStateChange(ctx context.Context, connected bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started || p.connected == connected {
		return nil
	}
	p.connected = connected
	if connected {
		p.log.Debug(ctx, "central connected, pausing advertising")
		return p.radio.StopAdvertising(ctx)
	}
	p.log.Debug(ctx, "central disconnected, resuming advertising")
	return p.radio.Advertise(ctx, p.name, ServiceUUID)
}

// HandleRead answers a characteristic read request.
func (p *Peripheral) HandleRead(id uuid.UUID, offset int) ([]byte, error) {
	return p.chars.ReadAt(id, offset)
}

// HandleWrite accepts a write to the WiFi characteristic. Once a complete
// credentials object has arrived it is handed to the NetworkConfigurator.
func (p *Peripheral) HandleWrite(ctx context.Context, id uuid.UUID, value []byte) error {
	if id != WifiCharUUID {
		return ErrUnknownCharacteristic
	}
	if p.net == nil {
		return errors.New("device has no wifi configurator")
	}

	p.mu.Lock()
	creds, ok := p.wifi.Write(value)
	p.mu.Unlock()
	if !ok {
		return nil
	}

	p.log.Info(ctx, "wifi credentials received", "ssid", creds.SSID)
	if err := p.net.Connect(ctx, creds); err != nil {
		return err
	}
	return p.chars.SetNetwork(models.NetworkModel{SSID: creds.SSID, IP: LocalIP(ctx)})
}
