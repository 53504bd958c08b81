// Package identity owns the device identity: the device id, the RSA signing
// key pair and the pinned CORE public key.
package identity

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/finn/internal/common"
	"github.com/dmitrijs2005/finn/internal/cryptox"
	"github.com/dmitrijs2005/finn/internal/device/repositories/metadata"
	"github.com/dmitrijs2005/finn/internal/logging"
	"github.com/google/uuid"
)

// DeviceIdentity is everything needed to sign requests as this device and to
// verify CORE's responses.
type DeviceIdentity struct {
	MakerID         string
	DeviceID        string
	PrivateKey      *rsa.PrivateKey
	ServerPublicKey *rsa.PublicKey
}

func (d *DeviceIdentity) PublicKey() *rsa.PublicKey {
	return &d.PrivateKey.PublicKey
}

// PublicKeyBase64 is the form shared with the companion app.
func (d *DeviceIdentity) PublicKeyBase64() (string, error) {
	return cryptox.PublicKeyBase64(d.PublicKey())
}

type Provider struct {
	repo      metadata.Repository
	keys      KeyStore
	serverKey *rsa.PublicKey
	log       logging.Logger
}

func NewProvider(repo metadata.Repository, keys KeyStore, serverKey *rsa.PublicKey, log logging.Logger) *Provider {
	return &Provider{repo: repo, keys: keys, serverKey: serverKey, log: log}
}

// EnsureIdentity loads the persisted identity, creating it on first run or
// when forceNew is set. Any storage failure is fatal.
func (p *Provider) EnsureIdentity(ctx context.Context, makerID string, forceNew bool) (*DeviceIdentity, error) {
	const op = "identity.EnsureIdentity"

	deviceID, err := p.ensureDeviceID(ctx, forceNew)
	if err != nil {
		return nil, p.fatal(op, err)
	}

	priv, err := p.keys.LoadOrGenerate(ctx, forceNew)
	if err != nil {
		return nil, p.fatal(op, err)
	}

	p.log.Debug(ctx, "device identity ready", "deviceID", deviceID, "forceNew", forceNew)

	return &DeviceIdentity{
		MakerID:         makerID,
		DeviceID:        deviceID,
		PrivateKey:      priv,
		ServerPublicKey: p.serverKey,
	}, nil
}

func (p *Provider) ensureDeviceID(ctx context.Context, forceNew bool) (string, error) {
	if !forceNew {
		has, err := p.repo.GetBool(ctx, metadata.KeyHasDeviceID)
		if err != nil {
			return "", fmt.Errorf("failed to read device id flag: %w", err)
		}
		if has {
			v, err := p.repo.Get(ctx, metadata.KeyDeviceID)
			if err != nil {
				return "", fmt.Errorf("failed to read device id: %w", err)
			}
			if _, perr := uuid.ParseBytes(v); perr != nil {
				return "", fmt.Errorf("stored device id %q: %w", v, common.ErrStorageCorrupt)
			}
			return string(v), nil
		}
	}

	id := uuid.NewString()
	if err := p.repo.Set(ctx, metadata.KeyDeviceID, []byte(id)); err != nil {
		return "", fmt.Errorf("failed to save device id: %w", err)
	}
	if err := p.repo.SetBool(ctx, metadata.KeyHasDeviceID, true); err != nil {
		return "", fmt.Errorf("failed to save device id flag: %w", err)
	}
	return id, nil
}

func (p *Provider) fatal(op string, err error) error {
	if errors.Is(err, ErrPassphraseRequired) {
		return common.E(common.KindConfiguration, op, err)
	}
	return common.E(common.KindFatalStorage, op, err)
}

// GenerateCorrelationID returns a fresh random id for a trigger or
// activation request. Safe for concurrent use.
func GenerateCorrelationID() string {
	return uuid.NewString()
}
