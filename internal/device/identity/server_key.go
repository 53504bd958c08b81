package identity

import (
	"crypto/rsa"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/finn/internal/cryptox"
)

// PinnedServerPublicKey is the key CORE signs every response with.
const PinnedServerPublicKey = `-----BEGIN PUBLIC KEY-----
MIICIjANBgkqhkiG9w0BAQEFAAOCAg8AMIICCgKCAgEA77WbE+3tVs14y0I+LeEx
NJ2qB0OlKBu33lfFbYMUMPi6T+3/M83A2C/alDDRO2NHPvzK6xGvYa2U/NpdNsyg
gA92BXK64mBhUc9SBbVAhMX5WKOs0daJ7OhBqOrHKHVy4Enhlk1uSL3zONQ0mBlh
ULYA7qZNy82UBa3MDtimg1TwaPVNjPENalUmyX65TpQHzwUhhPBQQ0BecfhaWBuv
7ZSLumd+sFG6DDEtjnpSHLYRYzlLU/iM9EZPXf3I4SpqlRVzzf8pZnowDOjMSSrY
tAaMAFNaKJDvGGqNIG7Fd3c2vPdYZ3NoXwGo1gRv4clbtx/F1xpEeYFE7qamTayd
iwRUgv2lGZxpnWU4WWcqOb+FWlR+6DzJVHsVHmgx//1FOiNssIGzGW/LBdaOycSS
wSM5GETtiZwTOjqqmSxXZtJBvjj4eHrDQ1m9lvSyYWrnVeclD/44AO+G96z7sbp4
c8BHpXCBuDuwK9Kf87SNJF4yLfpi7VxMF/YC+DBqvidLSFOOFjlMpJkF1oKvzGPu
HE/C4k+4yZtml3e7R15JTTgdHuTKDMfk0xxlcPkjt5PPeBiOawDXNWLLk3Kv8Rql
SrhGlSobfvRlu3Z4BvZxgKYg5SSqu3zNImJ6TBG+gOLQ2+vzaOEWCnvfDbSYj8yD
wTU89h00sASDai3lEuuzb10CAwEAAQ==
-----END PUBLIC KEY-----
`

// ServerPublicKey parses override (PEM or base64 PKIX) when set and the
// pinned key otherwise.
func ServerPublicKey(override string) (*rsa.PublicKey, error) {
	src := PinnedServerPublicKey
	if strings.TrimSpace(override) != "" {
		src = override
	}
	k, err := cryptox.ParsePublicKey([]byte(src))
	if err != nil {
		return nil, fmt.Errorf("server public key: %w", err)
	}
	return k, nil
}
