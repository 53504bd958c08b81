// Package cryptox holds the device's key handling primitives: RSA key pair
// generation and encoding, and passphrase based sealing of key material at
// rest (argon2id key derivation + AES-GCM).
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/finn/internal/common"
	"golang.org/x/crypto/argon2"
)

// DeviceKeyBits is the RSA modulus size of the device signing key.
const DeviceKeyBits = 1024

const (
	saltSize  = 16
	nonceSize = 12
)

var ErrSealedDataTooShort = errors.New("sealed data too short")

// GenerateRSAKey creates a new RSA signing key of the given size.
func GenerateRSAKey(bits int) (*rsa.PrivateKey, error) {
	return rsa.GenerateKey(rand.Reader, bits)
}

// MarshalPrivateKey encodes k as PKCS#8 DER.
func MarshalPrivateKey(k *rsa.PrivateKey) ([]byte, error) {
	return x509.MarshalPKCS8PrivateKey(k)
}

// ParsePrivateKey decodes a PKCS#8 (or legacy PKCS#1) DER RSA private key.
func ParsePrivateKey(der []byte) (*rsa.PrivateKey, error) {
	if k, err := x509.ParsePKCS8PrivateKey(der); err == nil {
		rk, ok := k.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("unexpected private key type %T", k)
		}
		return rk, nil
	}
	return x509.ParsePKCS1PrivateKey(der)
}

// MarshalPublicKey encodes k as PKIX (X.509 SubjectPublicKeyInfo) DER.
func MarshalPublicKey(k *rsa.PublicKey) ([]byte, error) {
	return x509.MarshalPKIXPublicKey(k)
}

// PublicKeyBase64 returns the standard base64 of the PKIX encoding, the form
// advertised to the companion app.
func PublicKeyBase64(k *rsa.PublicKey) (string, error) {
	der, err := MarshalPublicKey(k)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(der), nil
}

// ParsePublicKey accepts a PEM block, a bare base64 PKIX body (line breaks
// allowed) or raw DER.
func ParsePublicKey(data []byte) (*rsa.PublicKey, error) {
	der := data
	if block, _ := pem.Decode(data); block != nil {
		der = block.Bytes
	} else if decoded, err := decodeBase64Body(string(data)); err == nil {
		der = decoded
	}

	k, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}
	rk, ok := k.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("unexpected public key type %T", k)
	}
	return rk, nil
}

func decodeBase64Body(s string) ([]byte, error) {
	s = strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\r', ' ', '\t':
			return -1
		}
		return r
	}, s)
	return base64.StdEncoding.DecodeString(s)
}

// DeriveKey stretches a passphrase into a 32-byte AES key with argon2id.
func DeriveKey(passphrase []byte, salt []byte) []byte {
	return argon2.IDKey(passphrase, salt, 1, 64*1024, 4, 32)
}

// Seal encrypts plaintext under a key derived from passphrase. The output
// layout is salt || nonce || ciphertext.
func Seal(plaintext, passphrase []byte) ([]byte, error) {
	salt := common.GenerateRandByteArray(saltSize)
	key := DeriveKey(passphrase, salt)
	defer common.WipeByteArray(key)

	aesgcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce := common.GenerateRandByteArray(nonceSize)

	out := make([]byte, 0, saltSize+nonceSize+len(plaintext)+aesgcm.Overhead())
	out = append(out, salt...)
	out = append(out, nonce...)
	return aesgcm.Seal(out, nonce, plaintext, nil), nil
}

// Open reverses Seal.
func Open(sealed, passphrase []byte) ([]byte, error) {
	if len(sealed) < saltSize+nonceSize {
		return nil, ErrSealedDataTooShort
	}
	salt := sealed[:saltSize]
	nonce := sealed[saltSize : saltSize+nonceSize]

	key := DeriveKey(passphrase, salt)
	defer common.WipeByteArray(key)

	aesgcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	return aesgcm.Open(nil, nonce, sealed[saltSize+nonceSize:], nil)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
