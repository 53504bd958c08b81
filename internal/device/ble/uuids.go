package ble

import "github.com/google/uuid"

var (
	ServiceUUID     = uuid.MustParse("729BE9C4-3C61-4EFB-884F-B310B6FFFFD1")
	DeviceCharUUID  = uuid.MustParse("CAD1B513-2DA4-4609-9908-234C6D1B2A9C")
	InfoCharUUID    = uuid.MustParse("CD1B3A04-FA33-41AA-A25B-8BEB2D3BEF4E")
	NetworkCharUUID = uuid.MustParse("C42639DC-270D-4690-A8B3-6BA661C6C899")
	WifiCharUUID    = uuid.MustParse("32BEAA1B-D20B-47AC-9385-B243B8071DE4")
)
