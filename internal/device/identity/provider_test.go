package identity

import (
	"context"
	"sync"
	"testing"

	"github.com/dmitrijs2005/finn/internal/common"
	"github.com/dmitrijs2005/finn/internal/device/repositories/metadata"
	"github.com/dmitrijs2005/finn/internal/device/storage"
	"github.com/dmitrijs2005/finn/internal/logging"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMakerID = "5e1c2a4b-8f3d-4c6e-9a7b-1d2e3f4a5b6c"

func newStore(t *testing.T) *storage.Store {
	t.Helper()
	s, err := storage.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newProvider(t *testing.T, s *storage.Store, passphrase []byte) *Provider {
	t.Helper()
	server, err := ServerPublicKey("")
	require.NoError(t, err)
	return NewProvider(s.Metadata, NewSoftwareKeyStore(s.Metadata, passphrase), server, logging.Discard())
}

func TestEnsureIdentity_FirstRunThenLoad(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	p := newProvider(t, s, nil)

	first, err := p.EnsureIdentity(ctx, testMakerID, false)
	require.NoError(t, err)
	assert.Equal(t, testMakerID, first.MakerID)
	_, err = uuid.Parse(first.DeviceID)
	require.NoError(t, err)
	assert.Equal(t, 1024, first.PrivateKey.N.BitLen())
	assert.NotNil(t, first.ServerPublicKey)

	second, err := p.EnsureIdentity(ctx, testMakerID, false)
	require.NoError(t, err)
	assert.Equal(t, first.DeviceID, second.DeviceID)
	assert.True(t, first.PrivateKey.Equal(second.PrivateKey))

	has, err := s.Metadata.GetBool(ctx, metadata.KeyHasDeviceID)
	require.NoError(t, err)
	assert.True(t, has)
	sealed, err := s.Metadata.GetBool(ctx, metadata.KeyPrivateKeySealed)
	require.NoError(t, err)
	assert.False(t, sealed)
}

func TestEnsureIdentity_ForceNewRegenerates(t *testing.T) {
	ctx := context.Background()
	p := newProvider(t, newStore(t), nil)

	first, err := p.EnsureIdentity(ctx, testMakerID, false)
	require.NoError(t, err)
	renewed, err := p.EnsureIdentity(ctx, testMakerID, true)
	require.NoError(t, err)

	assert.NotEqual(t, first.DeviceID, renewed.DeviceID)
	assert.False(t, first.PrivateKey.Equal(renewed.PrivateKey))
}

func TestEnsureIdentity_SealedKey(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	first, err := newProvider(t, s, []byte("hunter2")).EnsureIdentity(ctx, testMakerID, false)
	require.NoError(t, err)

	sealed, err := s.Metadata.GetBool(ctx, metadata.KeyPrivateKeySealed)
	require.NoError(t, err)
	assert.True(t, sealed)

	again, err := newProvider(t, s, []byte("hunter2")).EnsureIdentity(ctx, testMakerID, false)
	require.NoError(t, err)
	assert.True(t, first.PrivateKey.Equal(again.PrivateKey))

	_, err = newProvider(t, s, nil).EnsureIdentity(ctx, testMakerID, false)
	require.ErrorIs(t, err, ErrPassphraseRequired)
	assert.Equal(t, common.KindConfiguration, common.KindOf(err))

	_, err = newProvider(t, s, []byte("wrong")).EnsureIdentity(ctx, testMakerID, false)
	require.ErrorIs(t, err, common.ErrStorageCorrupt)
	assert.Equal(t, common.KindFatalStorage, common.KindOf(err))
}

func TestEnsureIdentity_CorruptStorageIsFatal(t *testing.T) {
	tests := []struct {
		name    string
		corrupt func(t *testing.T, r metadata.Repository)
	}{
		{
			name: "device id not a uuid",
			corrupt: func(t *testing.T, r metadata.Repository) {
				require.NoError(t, r.Set(context.Background(), metadata.KeyDeviceID, []byte("garbage")))
			},
		},
		{
			name: "private key missing",
			corrupt: func(t *testing.T, r metadata.Repository) {
				require.NoError(t, r.Delete(context.Background(), metadata.KeyPrivateKey))
			},
		},
		{
			name: "private key not base64",
			corrupt: func(t *testing.T, r metadata.Repository) {
				require.NoError(t, r.Set(context.Background(), metadata.KeyPrivateKey, []byte("!!!")))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			s := newStore(t)
			p := newProvider(t, s, nil)

			_, err := p.EnsureIdentity(ctx, testMakerID, false)
			require.NoError(t, err)

			tt.corrupt(t, s.Metadata)

			_, err = p.EnsureIdentity(ctx, testMakerID, false)
			require.ErrorIs(t, err, common.ErrStorageCorrupt)
			assert.Equal(t, common.KindFatalStorage, common.KindOf(err))
		})
	}
}

func TestServerPublicKey(t *testing.T) {
	k, err := ServerPublicKey("")
	require.NoError(t, err)
	assert.Equal(t, 4096, k.N.BitLen())

	id, err := newProvider(t, newStore(t), nil).EnsureIdentity(context.Background(), testMakerID, false)
	require.NoError(t, err)
	b64, err := id.PublicKeyBase64()
	require.NoError(t, err)

	override, err := ServerPublicKey(b64)
	require.NoError(t, err)
	assert.True(t, override.Equal(id.PublicKey()))

	_, err = ServerPublicKey("not a key")
	require.Error(t, err)
}

func TestGenerateCorrelationID_Concurrent(t *testing.T) {
	const n = 64
	ids := make(chan string, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids <- GenerateCorrelationID()
		}()
	}
	wg.Wait()
	close(ids)

	seen := map[string]struct{}{}
	for id := range ids {
		_, err := uuid.Parse(id)
		require.NoError(t, err)
		seen[id] = struct{}{}
	}
	assert.Len(t, seen, n)
}
