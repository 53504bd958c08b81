// Package models defines the data exchanged between the device engine, CORE
// and the BLE peripheral layer.
package models
