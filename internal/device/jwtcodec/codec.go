// Package jwtcodec builds the compact RS256 tokens the device sends to CORE
// and verifies the tokens CORE answers with.
//
// Device tokens carry the fixed header {"alg":"RS256","type":"JWT"} and the
// JSON of an arbitrary payload as the claims segment.
package jwtcodec

import (
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/finn/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// BotClaim is the claim CORE puts its endpoint specific payload in.
const BotClaim = "bot"

var validMethods = []string{jwt.SigningMethodRS256.Alg()}

// payloadClaims lets any JSON-serializable value act as a claims set. The
// registered-claim getters report nothing, so no time based checks apply.
type payloadClaims struct {
	v any
}

func (c payloadClaims) MarshalJSON() ([]byte, error) { return json.Marshal(c.v) }

func (payloadClaims) GetExpirationTime() (*jwt.NumericDate, error) { return nil, nil }
func (payloadClaims) GetIssuedAt() (*jwt.NumericDate, error)       { return nil, nil }
func (payloadClaims) GetNotBefore() (*jwt.NumericDate, error)      { return nil, nil }
func (payloadClaims) GetIssuer() (string, error)                   { return "", nil }
func (payloadClaims) GetSubject() (string, error)                  { return "", nil }
func (payloadClaims) GetAudience() (jwt.ClaimStrings, error)       { return nil, nil }

// Sign returns header.payload.signature for payload signed with key.
func Sign(payload any, key *rsa.PrivateKey) (string, error) {
	if key == nil {
		return "", errors.New("sign: nil private key")
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, payloadClaims{v: payload})
	tok.Header = map[string]any{"alg": jwt.SigningMethodRS256.Alg(), "type": "JWT"}

	s, err := tok.SignedString(key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return s, nil
}

// VerifyInto checks raw against pub and unmarshals its claims into v.
func VerifyInto(raw []byte, pub *rsa.PublicKey, v any) error {
	claims, err := verify(raw, pub)
	if err != nil {
		return err
	}
	b, err := json.Marshal(claims)
	if err != nil {
		return verificationError(err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return common.E(common.KindProtocol, "jwtcodec.VerifyInto", fmt.Errorf("%w: %w", common.ErrMalformedPayload, err))
	}
	return nil
}

// VerifyAndExtract checks raw against pub and returns the bot claim. A string
// claim is returned as is; any other JSON value is returned re-encoded.
func VerifyAndExtract(raw []byte, pub *rsa.PublicKey) (string, error) {
	claims, err := verify(raw, pub)
	if err != nil {
		return "", err
	}

	bot, ok := claims[BotClaim]
	if !ok || bot == nil {
		return "", common.E(common.KindProtocol, "jwtcodec.VerifyAndExtract",
			fmt.Errorf("%w: no %q claim", common.ErrMalformedPayload, BotClaim))
	}
	if s, ok := bot.(string); ok {
		return s, nil
	}
	b, err := json.Marshal(bot)
	if err != nil {
		return "", common.E(common.KindProtocol, "jwtcodec.VerifyAndExtract", fmt.Errorf("%w: %w", common.ErrMalformedPayload, err))
	}
	return string(b), nil
}

func verify(raw []byte, pub *rsa.PublicKey) (jwt.MapClaims, error) {
	if pub == nil {
		return nil, verificationError(errors.New("nil public key"))
	}

	token := strings.Trim(strings.TrimSpace(string(raw)), `"`)

	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return pub, nil
	}, jwt.WithValidMethods(validMethods))
	if err != nil {
		return nil, verificationError(err)
	}
	return claims, nil
}

func verificationError(err error) error {
	return common.E(common.KindProtocol, "jwtcodec.verify", fmt.Errorf("%w: %w", common.ErrResponseVerificationFailed, err))
}
