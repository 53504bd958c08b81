package core

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"net/http"
	"testing"
	"time"

	"github.com/dmitrijs2005/finn/internal/common"
	"github.com/dmitrijs2005/finn/internal/device/core/coretest"
	"github.com/dmitrijs2005/finn/internal/device/identity"
	"github.com/dmitrijs2005/finn/internal/device/models"
	"github.com/dmitrijs2005/finn/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMakerID = "5e1c2a4b-8f3d-4c6e-9a7b-1d2e3f4a5b6c"

func setup(t *testing.T) (*HTTPClient, *coretest.Server) {
	t.Helper()

	srv := coretest.New(t)

	key, err := rsa.GenerateKey(rand.Reader, 1024)
	require.NoError(t, err)
	srv.VerifyDeviceTokens(&key.PublicKey)

	id := &identity.DeviceIdentity{
		MakerID:         testMakerID,
		DeviceID:        "0b8f7a4e-2c1d-4e5f-9a6b-7c8d9e0f1a2b",
		PrivateKey:      key,
		ServerPublicKey: &srv.Key.PublicKey,
	}
	return NewHTTPClient(srv.URL+"/", 2*time.Second, id, logging.Discard()), srv
}

func TestCheckPaired(t *testing.T) {
	c, srv := setup(t)
	ctx := context.Background()

	paired, err := c.CheckPaired(ctx)
	require.NoError(t, err)
	assert.False(t, paired)

	srv.SetPaired(true)
	paired, err = c.CheckPaired(ctx)
	require.NoError(t, err)
	assert.True(t, paired)
	assert.Equal(t, 2, srv.Calls("GET /pair"))
}

func TestCheckPaired_BadSignature(t *testing.T) {
	c, srv := setup(t)
	srv.SetPaired(true)
	srv.SignWithWrongKey(true)

	paired, err := c.CheckPaired(context.Background())
	require.ErrorIs(t, err, common.ErrResponseVerificationFailed)
	assert.Equal(t, common.KindProtocol, common.KindOf(err))
	assert.False(t, paired)
}

func TestGetActions(t *testing.T) {
	c, srv := setup(t)
	ctx := context.Background()

	acts, err := c.GetActions(ctx)
	require.NoError(t, err)
	assert.Empty(t, acts)

	srv.SetActions(
		map[string]any{"actionID": "A1", "actionName": "Coffee", "frequency": "daily", "price": 1.5},
		map[string]any{"actionID": "A2", "actionName": "No frequency"},
		map[string]any{"actionID": 42},
	)
	acts, err = c.GetActions(ctx)
	require.NoError(t, err)
	require.Len(t, acts, 2)
	assert.Equal(t, "A1", acts[0].ActionID)
	assert.Equal(t, models.FrequencyDaily, acts[0].Frequency)
	require.NotNil(t, acts[0].Price)
	assert.InDelta(t, 1.5, *acts[0].Price, 1e-9)
	assert.Equal(t, models.Frequency(""), acts[1].Frequency)
}

func TestActivate(t *testing.T) {
	c, srv := setup(t)
	ctx := context.Background()

	require.NoError(t, c.Activate(ctx))

	srv.SetActivationError("device already activated")
	err := c.Activate(ctx)
	require.ErrorIs(t, err, common.ErrDeviceActivationFailed)
	assert.Equal(t, common.KindProtocol, common.KindOf(err))
}

func TestTriggerAction(t *testing.T) {
	c, srv := setup(t)
	ctx := context.Background()

	require.NoError(t, c.TriggerAction(ctx, models.TriggerRecord{ActionID: "A1", QueueID: "q-1"}))
	require.NoError(t, c.TriggerAction(ctx, models.TriggerRecord{ActionID: "A1", QueueID: "q-2", AlternativeID: "cust"}))

	got := srv.Triggers()
	require.Len(t, got, 2)
	assert.Equal(t, coretest.Trigger{DeviceID: c.id.DeviceID, ActionID: "A1", QueueID: "q-1"}, got[0])
	assert.Equal(t, "cust", got[1].AlternativeID)
	assert.Equal(t, "q-2", got[1].QueueID)
}

func TestTriggerAction_Errors(t *testing.T) {
	tests := []struct {
		name     string
		arrange  func(s *coretest.Server)
		wantErr  error
		wantKind common.Kind
	}{
		{
			name:     "status not OK",
			arrange:  func(s *coretest.Server) { s.SetTriggerStatus("FAILED") },
			wantErr:  common.ErrActionTriggerFailed,
			wantKind: common.KindBusinessRule,
		},
		{
			name:     "client error",
			arrange:  func(s *coretest.Server) { s.SetTriggerHTTPStatus(http.StatusBadRequest) },
			wantErr:  common.ErrActionNotActivated,
			wantKind: common.KindBusinessRule,
		},
		{
			name:     "server error",
			arrange:  func(s *coretest.Server) { s.FailAll(http.StatusServiceUnavailable) },
			wantErr:  common.ErrUnavailable,
			wantKind: common.KindTransientNetwork,
		},
		{
			name:     "unverifiable answer",
			arrange:  func(s *coretest.Server) { s.SignWithWrongKey(true) },
			wantErr:  common.ErrResponseVerificationFailed,
			wantKind: common.KindProtocol,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, srv := setup(t)
			tt.arrange(srv)

			err := c.TriggerAction(context.Background(), models.TriggerRecord{ActionID: "A1", QueueID: "q"})
			require.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.wantKind, common.KindOf(err))
		})
	}
}

func TestUnreachableIsTransient(t *testing.T) {
	c, srv := setup(t)
	srv.Close()

	_, err := c.CheckPaired(context.Background())
	require.ErrorIs(t, err, common.ErrUnavailable)
	assert.True(t, common.IsTransient(err))
}

func TestGetMessages(t *testing.T) {
	c, srv := setup(t)
	ctx := context.Background()

	msgs, err := c.GetMessages(ctx)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	srv.SetMessages([]map[string]any{{
		"deviceID":  "d",
		"payload":   `{"actionID":"A1","customerID":"C1","deviceID":"d"}`,
		"messageID": "m1",
		"event":     "Action Deactivated",
		"delivered": 0,
	}})
	msgs, err = c.GetMessages(ctx)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "m1", msgs[0].MessageID)
	require.NotNil(t, msgs[0].PayloadModel)
	assert.Equal(t, "C1", msgs[0].PayloadModel.CustomerID)

	srv.SetMessages(map[string]any{"messageID": "m2", "payload": "plain text"})
	msgs, err = c.GetMessages(ctx)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "m2", msgs[0].MessageID)
	assert.Nil(t, msgs[0].PayloadModel)

	srv.SetMessages("definitely not json")
	msgs, err = c.GetMessages(ctx)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}
