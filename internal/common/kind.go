package common

import (
	"errors"
	"fmt"
)

// Kind classifies an error by how the engine reacts to it.
type Kind int

const (
	KindUnknown Kind = iota
	// KindConfiguration is fatal at construction.
	KindConfiguration
	// KindTransientNetwork is retried or redirected to the offline queue.
	KindTransientNetwork
	// KindProtocol is logged and retried at the next interval.
	KindProtocol
	// KindBusinessRule is returned to the caller of TriggerAction.
	KindBusinessRule
	// KindFatalStorage is surfaced immediately.
	KindFatalStorage
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindTransientNetwork:
		return "transient_network"
	case KindProtocol:
		return "protocol"
	case KindBusinessRule:
		return "business_rule"
	case KindFatalStorage:
		return "fatal_storage"
	default:
		return "unknown"
	}
}

// Error tags an underlying error with a Kind and the operation that failed.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// E wraps err with kind and op. A nil err yields nil.
func E(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf reports the kind of the outermost tagged error in err's chain.
// Untagged sentinels are classified by identity so callers can branch on
// plain errors returned by lower layers as well.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var e *Error
	if errors.As(err, &e) && e.Kind != KindUnknown {
		return e.Kind
	}
	switch {
	case errors.Is(err, ErrMakerIDInvalid),
		errors.Is(err, ErrHostNameEmpty),
		errors.Is(err, ErrBluetoothNameInvalid),
		errors.Is(err, ErrAlternativeIDNameEmpty):
		return KindConfiguration
	case errors.Is(err, ErrUnavailable):
		return KindTransientNetwork
	case errors.Is(err, ErrResponseVerificationFailed),
		errors.Is(err, ErrMalformedPayload),
		errors.Is(err, ErrDevicePairingFailed),
		errors.Is(err, ErrDeviceActivationFailed):
		return KindProtocol
	case errors.Is(err, ErrActionFrequencyTimeNotPassed),
		errors.Is(err, ErrAlternativeIdentifierRequired),
		errors.Is(err, ErrActionNotActivated),
		errors.Is(err, ErrActionTriggerFailed):
		return KindBusinessRule
	case errors.Is(err, ErrStorageCorrupt):
		return KindFatalStorage
	}
	return KindUnknown
}

// IsTransient reports whether err should be retried or queued rather than
// surfaced.
func IsTransient(err error) bool {
	return KindOf(err) == KindTransientNetwork
}
