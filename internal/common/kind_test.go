package common

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf_Sentinels(t *testing.T) {
	tests := []struct {
		err  error
		want Kind
	}{
		{nil, KindUnknown},
		{errors.New("boom"), KindUnknown},
		{ErrMakerIDInvalid, KindConfiguration},
		{fmt.Errorf("wrap: %w", ErrUnavailable), KindTransientNetwork},
		{ErrResponseVerificationFailed, KindProtocol},
		{ErrActionFrequencyTimeNotPassed, KindBusinessRule},
		{ErrAlternativeIdentifierRequired, KindBusinessRule},
		{ErrActionNotActivated, KindBusinessRule},
		{ErrActionTriggerFailed, KindBusinessRule},
		{ErrStorageCorrupt, KindFatalStorage},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, KindOf(tt.err), "err=%v", tt.err)
	}
}

func TestKindOf_TaggedWins(t *testing.T) {
	err := E(KindTransientNetwork, "get /pair", errors.New("dial tcp: no such host"))
	assert.Equal(t, KindTransientNetwork, KindOf(err))
	assert.True(t, IsTransient(fmt.Errorf("outer: %w", err)))
	assert.Equal(t, "get /pair: dial tcp: no such host", err.Error())
}

func TestE_NilPassthrough(t *testing.T) {
	require.NoError(t, E(KindProtocol, "op", nil))
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "business_rule", KindBusinessRule.String())
	assert.Equal(t, "unknown", Kind(42).String())
}
