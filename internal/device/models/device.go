package models

// ProductType tells the companion app how the device is owned.
type ProductType int

const (
	ProductOwned ProductType = iota
	ProductShared
	ProductRental
	ProductPayPerUse
)

// DeviceModel is the business-level description exposed over BLE and encoded
// into the pairing QR code.
type DeviceModel struct {
	MakerID   string      `json:"makerID"`
	DeviceID  string      `json:"deviceID"`
	PublicKey string      `json:"publicKey"`
	Name      string      `json:"name"`
	MultiPair int         `json:"multipair"`
	AID       *string     `json:"aid"`
	Type      ProductType `json:"t"`
}

// BotDeviceModel describes the host hardware.
type BotDeviceModel struct {
	Platform    string `json:"platform"`
	Release     string `json:"release"`
	Type        string `json:"type"`
	Arch        string `json:"arch"`
	CPUs        string `json:"cpus"`
	Hostname    string `json:"hostname"`
	Endianness  string `json:"endianness"`
	TotalMemory string `json:"totalMemory"`
	Network     string `json:"network,omitempty"`
	IP          string `json:"ip,omitempty"`
}

// NetworkModel is the current WiFi association.
type NetworkModel struct {
	SSID string `json:"ssid"`
	IP   string `json:"ip"`
}

// WifiCredentials is written by the companion app to reconfigure WiFi.
type WifiCredentials struct {
	SSID     string `json:"SSID"`
	Password string `json:"PWD"`
}
