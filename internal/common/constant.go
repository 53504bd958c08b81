// Package common contains shared constants, sentinel errors and error kinds
// used across the Finn device components.
package common

// Header names CORE expects on every request.
const (
	MakerIDHeaderName  = "makerID"
	DeviceIDHeaderName = "deviceID"
)

// MakerIDLength is the fixed length of a portal issued maker identifier.
const MakerIDLength = 36

// MaxBluetoothNameLength is the longest advertised name the BLE layer accepts.
const MaxBluetoothNameLength = 8
