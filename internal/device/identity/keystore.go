package identity

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/finn/internal/common"
	"github.com/dmitrijs2005/finn/internal/cryptox"
	"github.com/dmitrijs2005/finn/internal/device/repositories/metadata"
)

// ErrPassphraseRequired is returned when the stored private key is sealed and
// no passphrase was configured.
var ErrPassphraseRequired = errors.New("private key is sealed, passphrase required")

// KeyStore yields the device signing key pair, generating it on first use.
// Hardware-backed implementations can satisfy it as well as the software one
// below.
type KeyStore interface {
	LoadOrGenerate(ctx context.Context, forceNew bool) (*rsa.PrivateKey, error)
}

// SoftwareKeyStore keeps the key pair as base64 DER in the metadata table.
// With a passphrase the private key is sealed with cryptox.Seal.
type SoftwareKeyStore struct {
	repo       metadata.Repository
	passphrase []byte
	bits       int
}

func NewSoftwareKeyStore(repo metadata.Repository, passphrase []byte) *SoftwareKeyStore {
	return &SoftwareKeyStore{repo: repo, passphrase: passphrase, bits: cryptox.DeviceKeyBits}
}

func (s *SoftwareKeyStore) LoadOrGenerate(ctx context.Context, forceNew bool) (*rsa.PrivateKey, error) {
	if !forceNew {
		has, err := s.repo.GetBool(ctx, metadata.KeyHasKeyPair)
		if err != nil {
			return nil, fmt.Errorf("failed to read key pair flag: %w", err)
		}
		if has {
			return s.load(ctx)
		}
	}
	return s.generate(ctx)
}

func (s *SoftwareKeyStore) load(ctx context.Context) (*rsa.PrivateKey, error) {
	rawPriv, err := s.repo.Get(ctx, metadata.KeyPrivateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key: %w", err)
	}
	rawPub, err := s.repo.Get(ctx, metadata.KeyPublicKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read public key: %w", err)
	}
	sealed, err := s.repo.GetBool(ctx, metadata.KeyPrivateKeySealed)
	if err != nil {
		return nil, fmt.Errorf("failed to read sealed flag: %w", err)
	}
	if len(rawPriv) == 0 || len(rawPub) == 0 {
		return nil, fmt.Errorf("key pair flagged but missing: %w", common.ErrStorageCorrupt)
	}

	der, err := base64.StdEncoding.DecodeString(string(rawPriv))
	if err != nil {
		return nil, fmt.Errorf("decode private key: %w", common.ErrStorageCorrupt)
	}
	if sealed {
		if len(s.passphrase) == 0 {
			return nil, ErrPassphraseRequired
		}
		plain, err := cryptox.Open(der, s.passphrase)
		if err != nil {
			return nil, fmt.Errorf("open sealed private key: %w", common.ErrStorageCorrupt)
		}
		der = plain
	}

	priv, err := cryptox.ParsePrivateKey(der)
	common.WipeByteArray(der)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", common.ErrStorageCorrupt)
	}

	pub, err := cryptox.ParsePublicKey(rawPub)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", common.ErrStorageCorrupt)
	}
	if !priv.PublicKey.Equal(pub) {
		return nil, fmt.Errorf("stored public key does not match private key: %w", common.ErrStorageCorrupt)
	}
	return priv, nil
}

func (s *SoftwareKeyStore) generate(ctx context.Context) (*rsa.PrivateKey, error) {
	priv, err := cryptox.GenerateRSAKey(s.bits)
	if err != nil {
		return nil, fmt.Errorf("generate key pair: %w", err)
	}

	der, err := cryptox.MarshalPrivateKey(priv)
	if err != nil {
		return nil, fmt.Errorf("marshal private key: %w", err)
	}
	sealed := len(s.passphrase) > 0
	if sealed {
		out, err := cryptox.Seal(der, s.passphrase)
		common.WipeByteArray(der)
		if err != nil {
			return nil, fmt.Errorf("seal private key: %w", err)
		}
		der = out
	}

	pub, err := cryptox.PublicKeyBase64(&priv.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("marshal public key: %w", err)
	}

	// The flag goes last so an interrupted write regenerates next time.
	if err := s.repo.SetBool(ctx, metadata.KeyHasKeyPair, false); err != nil {
		return nil, fmt.Errorf("failed to reset key pair flag: %w", err)
	}
	if err := s.repo.Set(ctx, metadata.KeyPublicKey, []byte(pub)); err != nil {
		return nil, fmt.Errorf("failed to save public key: %w", err)
	}
	if err := s.repo.Set(ctx, metadata.KeyPrivateKey, []byte(base64.StdEncoding.EncodeToString(der))); err != nil {
		return nil, fmt.Errorf("failed to save private key: %w", err)
	}
	if err := s.repo.SetBool(ctx, metadata.KeyPrivateKeySealed, sealed); err != nil {
		return nil, fmt.Errorf("failed to save sealed flag: %w", err)
	}
	if err := s.repo.SetBool(ctx, metadata.KeyHasKeyPair, true); err != nil {
		return nil, fmt.Errorf("failed to save key pair flag: %w", err)
	}
	return priv, nil
}
