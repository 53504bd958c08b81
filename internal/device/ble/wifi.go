package ble

import (
	"encoding/json"

	"github.com/dmitrijs2005/finn/internal/device/models"
)

const maxWifiPayload = 1024

// WifiAssembler concatenates WiFi characteristic writes until they form a
// complete JSON credentials object.
type WifiAssembler struct {
	buf []byte
}

// Write appends chunk. It returns the credentials and true once the buffer
// parses, and resets for the next exchange.
func (w *WifiAssembler) Write(chunk []byte) (models.WifiCredentials, bool) {
	w.buf = append(w.buf, chunk...)
	if len(w.buf) > maxWifiPayload {
		w.buf = nil
		return models.WifiCredentials{}, false
	}

	if !json.Valid(w.buf) {
		return models.WifiCredentials{}, false
	}

	var creds models.WifiCredentials
	err := json.Unmarshal(w.buf, &creds)
	w.buf = nil
	if err != nil {
		return models.WifiCredentials{}, false
	}
	return creds, true
}

// Pending reports how many bytes are buffered.
func (w *WifiAssembler) Pending() int { return len(w.buf) }
