package engine

import (
	"context"

	"github.com/dmitrijs2005/finn/internal/device/ble"
	"github.com/dmitrijs2005/finn/internal/device/models"
	"github.com/dmitrijs2005/finn/internal/logging"
)

// wifiHandler receives credentials assembled by the BLE peripheral and
// forwards them to the host's configurator, if there is one.
type wifiHandler struct {
	next ble.NetworkConfigurator
	log  logging.Logger
}

func (h *wifiHandler) Connect(ctx context.Context, creds models.WifiCredentials) error {
	if h.next == nil {
		h.log.Warn(ctx, "wifi credentials received but no network configurator is set", "ssid", creds.SSID)
		return nil
	}
	if err := h.next.Connect(ctx, creds); err != nil {
		h.log.Error(ctx, "failed to apply wifi credentials", "ssid", creds.SSID, "error", err)
		return err
	}
	h.log.Info(ctx, "wifi reconfigured", "ssid", creds.SSID)
	return nil
}
