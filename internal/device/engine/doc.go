// Package engine is the composition root of a finn device. An Engine owns
// the local store, the device identity, the CORE client, the BLE peripheral,
// the reachability monitor and the pairing and trigger services, and exposes
// their lifecycle as Start, Stop and Destroy.
//
// Construct one Engine per process and pass it to the code that needs it.
package engine
