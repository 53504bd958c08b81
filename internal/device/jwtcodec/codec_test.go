package jwtcodec

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"

	"github.com/dmitrijs2005/finn/internal/common"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	k, err := rsa.GenerateKey(rand.Reader, 1024)
	require.NoError(t, err)
	return k
}

type triggerBot struct {
	DeviceID      string `json:"deviceID"`
	ActionID      string `json:"actionID"`
	AlternativeID string `json:"alternativeID,omitempty"`
	Value         string `json:"value"`
}

type triggerPayload struct {
	Bot triggerBot `json:"bot"`
}

func TestSign_CompactFormat(t *testing.T) {
	key := newKey(t)

	tok, err := Sign(triggerPayload{Bot: triggerBot{DeviceID: "d", ActionID: "a", Value: "q"}}, key)
	require.NoError(t, err)

	parts := strings.Split(tok, ".")
	require.Len(t, parts, 3)

	header, err := base64.RawURLEncoding.DecodeString(parts[0])
	require.NoError(t, err)
	assert.JSONEq(t, `{"alg":"RS256","type":"JWT"}`, string(header))

	body, err := base64.RawURLEncoding.DecodeString(parts[1])
	require.NoError(t, err)
	assert.JSONEq(t, `{"bot":{"deviceID":"d","actionID":"a","value":"q"}}`, string(body))

	sig, err := base64.RawURLEncoding.DecodeString(parts[2])
	require.NoError(t, err)
	digest := sha256.Sum256([]byte(parts[0] + "." + parts[1]))
	require.NoError(t, rsa.VerifyPKCS1v15(&key.PublicKey, crypto.SHA256, digest[:], sig))
}

func TestSignVerify_RoundTrip(t *testing.T) {
	key := newKey(t)

	type flat struct {
		S string  `json:"s"`
		N float64 `json:"n"`
		B bool    `json:"b"`
		E string  `json:"e"`
	}

	payloads := []any{
		triggerPayload{Bot: triggerBot{DeviceID: "d-1", ActionID: "A1", Value: "q-1"}},
		triggerPayload{Bot: triggerBot{DeviceID: "d-1", ActionID: "A1", AlternativeID: "cust-7", Value: "q-2"}},
		flat{S: "ünïcödé", N: 3.25, B: true},
	}

	for _, p := range payloads {
		tok, err := Sign(p, key)
		require.NoError(t, err)

		got := map[string]any{}
		require.NoError(t, VerifyInto([]byte(tok), &key.PublicKey, &got))

		want := map[string]any{}
		b, err := json.Marshal(p)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(b, &want))

		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("round trip mismatch (-want +got):\n%s", diff)
		}
	}
}

func TestVerifyAndExtract(t *testing.T) {
	key := newKey(t)

	tests := []struct {
		name    string
		payload any
		want    string
	}{
		{"string claim", map[string]any{"bot": `{"status":true}`}, `{"status":true}`},
		{"empty string", map[string]any{"bot": ""}, ""},
		{"object claim", map[string]any{"bot": map[string]any{"status": "OK"}}, `{"status":"OK"}`},
		{"array claim", map[string]any{"bot": []any{}}, `[]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok, err := Sign(tt.payload, key)
			require.NoError(t, err)

			got, err := VerifyAndExtract([]byte(tok+"\n"), &key.PublicKey)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestVerifyAndExtract_MissingClaim(t *testing.T) {
	key := newKey(t)
	tok, err := Sign(map[string]any{"other": 1}, key)
	require.NoError(t, err)

	_, err = VerifyAndExtract([]byte(tok), &key.PublicKey)
	require.ErrorIs(t, err, common.ErrMalformedPayload)
	assert.Equal(t, common.KindProtocol, common.KindOf(err))
}

func TestVerify_Rejects(t *testing.T) {
	key := newKey(t)
	other := newKey(t)

	tok, err := Sign(map[string]any{"bot": "x"}, key)
	require.NoError(t, err)
	parts := strings.Split(tok, ".")

	tampered := parts[0] + "." + base64.RawURLEncoding.EncodeToString([]byte(`{"bot":"y"}`)) + "." + parts[2]
	noneHeader := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"none"}`)) + "." + parts[1] + "."

	tests := []struct {
		name string
		raw  string
		pub  *rsa.PublicKey
	}{
		{"wrong key", tok, &other.PublicKey},
		{"tampered payload", tampered, &key.PublicKey},
		{"alg none", noneHeader, &key.PublicKey},
		{"garbage", "not-a-token", &key.PublicKey},
		{"empty", "", &key.PublicKey},
		{"nil key", tok, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := VerifyAndExtract([]byte(tt.raw), tt.pub)
			require.ErrorIs(t, err, common.ErrResponseVerificationFailed)
			assert.Equal(t, common.KindProtocol, common.KindOf(err))
		})
	}
}

func TestSign_NilKey(t *testing.T) {
	_, err := Sign(map[string]any{}, nil)
	require.Error(t, err)
}
