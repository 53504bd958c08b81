// Package ble is the boundary to the Bluetooth LE peripheral used for
// out-of-band pairing and WiFi provisioning.
//
// The package does not talk to a radio itself. A Radio implementation does
// the advertising; Peripheral drives it from the pairing state and from GATT
// connection events, serves the read-only characteristics and assembles WiFi
// credential writes.
package ble
