package models

// PairingState is held only by a running engine and re-derived from CORE on
// every start.
type PairingState int

const (
	StateUnpaired PairingState = iota
	StatePairedUnactivated
	StateActivated
)

func (s PairingState) String() string {
	switch s {
	case StateUnpaired:
		return "UNPAIRED"
	case StatePairedUnactivated:
		return "PAIRED_UNACTIVATED"
	case StateActivated:
		return "ACTIVATED"
	default:
		return "UNKNOWN"
	}
}
