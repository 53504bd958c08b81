package ble

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/finn/internal/device/models"
	"github.com/google/uuid"
)

var (
	ErrUnknownCharacteristic = errors.New("unknown characteristic")
	ErrInvalidOffset         = errors.New("invalid read offset")
)

// Characteristic describes one GATT characteristic of the service.
type Characteristic struct {
	UUID     uuid.UUID
	Readable bool
	Writable bool
	Notify   bool
}

// Characteristics holds the JSON served on each readable characteristic.
type Characteristics struct {
	mu      sync.RWMutex
	values  map[uuid.UUID][]byte
	hasWifi bool
}

func NewCharacteristics(dev models.DeviceModel, bot models.BotDeviceModel, network models.NetworkModel, hasWifi bool) (*Characteristics, error) {
	c := &Characteristics{values: map[uuid.UUID][]byte{}, hasWifi: hasWifi}

	for id, v := range map[uuid.UUID]any{
		DeviceCharUUID:  dev,
		InfoCharUUID:    bot,
		NetworkCharUUID: network,
	} {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode characteristic %s: %w", id, err)
		}
		c.values[id] = b
	}
	return c, nil
}

// Service lists the characteristics to register. The WiFi characteristic is
// present only on devices with WiFi.
func (c *Characteristics) Service() []Characteristic {
	out := []Characteristic{
		{UUID: DeviceCharUUID, Readable: true, Notify: true},
		{UUID: InfoCharUUID, Readable: true, Notify: true},
		{UUID: NetworkCharUUID, Readable: true, Notify: true},
	}
	if c.hasWifi {
		out = append(out, Characteristic{UUID: WifiCharUUID, Readable: true, Writable: true, Notify: true})
	}
	return out
}

// ReadAt returns the value of id from offset on. Centrals read long values
// in several requests with increasing offsets. The WiFi characteristic reads
// back the network model.
func (c *Characteristics) ReadAt(id uuid.UUID, offset int) ([]byte, error) {
	if id == WifiCharUUID {
		if !c.hasWifi {
			return nil, ErrUnknownCharacteristic
		}
		id = NetworkCharUUID
	}

	c.mu.RLock()
	v, ok := c.values[id]
	c.mu.RUnlock()
	if !ok {
		return nil, ErrUnknownCharacteristic
	}
	if offset < 0 || offset > len(v) {
		return nil, fmt.Errorf("%w: %d of %d", ErrInvalidOffset, offset, len(v))
	}
	return append([]byte(nil), v[offset:]...), nil
}

// SetNetwork replaces the network model after a WiFi change.
func (c *Characteristics) SetNetwork(n models.NetworkModel) error {
	b, err := json.Marshal(n)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.values[NetworkCharUUID] = b
	c.mu.Unlock()
	return nil
}
