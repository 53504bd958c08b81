package common

import "errors"

var (
	// Configuration errors, returned from engine construction.
	ErrMakerIDInvalid         = errors.New("maker id must be 36 characters")
	ErrHostNameEmpty          = errors.New("host name is empty")
	ErrBluetoothNameInvalid   = errors.New("bluetooth name must be 1-8 characters")
	ErrAlternativeIDNameEmpty = errors.New("alternative identifier display name is empty")
	ErrInvalidSetting         = errors.New("invalid setting")

	// Transport errors.
	ErrUnavailable = errors.New("core unavailable")

	// Protocol errors.
	ErrResponseVerificationFailed = errors.New("response verification failed")
	ErrMalformedPayload           = errors.New("malformed payload")

	// Business rule errors returned to callers of TriggerAction.
	ErrActionFrequencyTimeNotPassed  = errors.New("action frequency time not passed")
	ErrAlternativeIdentifierRequired = errors.New("alternative identifier required")
	ErrActionNotActivated            = errors.New("action not activated")
	ErrActionTriggerFailed           = errors.New("action trigger failed")

	// Pairing.
	ErrDevicePairingFailed    = errors.New("device not paired")
	ErrDeviceActivationFailed = errors.New("device activation failed")

	// Storage.
	ErrStorageCorrupt = errors.New("storage corrupt")
	ErrNotFound       = errors.New("not found")

	// Engine lifecycle.
	ErrAlreadyStarted = errors.New("engine already started")
	ErrNotStarted     = errors.New("engine not started")
	ErrDestroyed      = errors.New("engine destroyed")
)
