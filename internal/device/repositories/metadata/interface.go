// Package metadata persists small device-level values (identity, key pair,
// flags) in a key/value table.
package metadata

import (
	"context"
)

// Logical keys of the device identity and flags.
const (
	KeyHasDeviceID      = "has_device_id"
	KeyDeviceID         = "device_id"
	KeyHasKeyPair       = "has_key_pair"
	KeyPublicKey        = "public_key"
	KeyPrivateKey       = "private_key"
	KeyPrivateKeySealed = "private_key_sealed"
	KeyHasStoredQRImage = "has_stored_qr_image"
)

// Repository is a key/value store. Get returns (nil, nil) for a missing key.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) (map[string][]byte, error)
	Clear(ctx context.Context) error
	GetBool(ctx context.Context, key string) (bool, error)
	SetBool(ctx context.Context, key string, v bool) error
}
