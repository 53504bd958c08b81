package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dmitrijs2005/finn/internal/cryptox"
	"github.com/dmitrijs2005/finn/internal/device/core/coretest"
	"github.com/dmitrijs2005/finn/internal/device/engine"
	"github.com/dmitrijs2005/finn/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMakerID = "8cd5e2a0-3b4f-4f0e-9d55-2f7e1c9a0b11"

type harness struct {
	srv  *coretest.Server
	args []string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	srv := coretest.New(t)
	key, err := cryptox.PublicKeyBase64(&srv.Key.PublicKey)
	require.NoError(t, err)

	return &harness{srv: srv, args: []string{
		"--maker-id", testMakerID,
		"--host-name", "Coffee machine",
		"--base-url", srv.URL,
		"--server-public-key", key,
		"--db", filepath.Join(t.TempDir(), "device.db"),
	}}
}

func (h *harness) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	opts := &RootOptions{
		Stdin:         strings.NewReader(stdin),
		EngineOptions: engineOptions(),
	}
	cmd := newRootCommand(opts)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append(append([]string{}, args...), h.args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRootCommand_Commands(t *testing.T) {
	cmd := NewRootCommand()
	assert.Equal(t, "finn", cmd.Use)

	for _, name := range []string{"run", "trigger", "actions", "messages", "identity", "queue", "reset"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, sub.Name())
	}

	for _, name := range []string{"config", "format", "ask-passphrase", "maker-id", "poll-interval", "metrics-addr"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), name)
	}
}

func TestIdentity_StableAcrossInvocations(t *testing.T) {
	h := newHarness(t)

	out, err := h.run(t, "", "identity", "--format", "json")
	require.NoError(t, err)
	var first identityOutput
	require.NoError(t, json.Unmarshal([]byte(out), &first))
	assert.Equal(t, testMakerID, first.MakerID)
	assert.NotEmpty(t, first.DeviceID)

	out, err = h.run(t, "", "identity", "--format", "json")
	require.NoError(t, err)
	var second identityOutput
	require.NoError(t, json.Unmarshal([]byte(out), &second))
	assert.Equal(t, first, second)

	out, err = h.run(t, "", "identity", "--qr")
	require.NoError(t, err)
	assert.Contains(t, out, first.DeviceID)
}

func TestTrigger(t *testing.T) {
	h := newHarness(t)

	out, err := h.run(t, "", "trigger", "A1", "--format", "json")
	require.NoError(t, err)

	var res triggerOutput
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "A1", res.ActionID)
	assert.False(t, res.Queued)
	require.Len(t, h.srv.Triggers(), 1)
	assert.Equal(t, res.QueueID, h.srv.Triggers()[0].QueueID)

	h.srv.SetTriggerStatus("FAILED")
	_, err = h.run(t, "", "trigger", "A2")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestTrigger_QueuedWhenCoreDown(t *testing.T) {
	h := newHarness(t)
	h.srv.FailAll(503)

	out, err := h.run(t, "", "trigger", "A1")
	require.NoError(t, err)
	assert.Contains(t, out, "A1 queued")

	out, err = h.run(t, "", "queue")
	require.NoError(t, err)
	assert.Contains(t, out, "1 pending")

	h.srv.FailAll(0)
	out, err = h.run(t, "", "queue", "--drain", "--format", "json")
	require.NoError(t, err)
	var q queueOutput
	require.NoError(t, json.Unmarshal([]byte(out), &q))
	assert.Equal(t, queueOutput{Pending: 0, Attempted: 1, Succeeded: 1}, q)
}

func TestActionsAndMessages(t *testing.T) {
	h := newHarness(t)
	h.srv.SetActions(map[string]any{"actionID": "A1", "actionName": "Brew", "frequency": "daily"})
	h.srv.SetMessages(map[string]any{"deviceID": "d", "messageID": "m-7", "event": "paid", "payload": "{}"})

	out, err := h.run(t, "", "actions")
	require.NoError(t, err)
	assert.Contains(t, out, "FREQUENCY")
	assert.Contains(t, out, "Brew")

	out, err = h.run(t, "", "messages")
	require.NoError(t, err)
	assert.Contains(t, out, "m-7")
}

func TestReset(t *testing.T) {
	h := newHarness(t)

	_, err := h.run(t, "", "reset")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	out, err := h.run(t, "", "identity", "--format", "json")
	require.NoError(t, err)
	var before identityOutput
	require.NoError(t, json.Unmarshal([]byte(out), &before))

	_, err = h.run(t, "", "reset", "--yes")
	require.NoError(t, err)

	out, err = h.run(t, "", "identity", "--format", "json")
	require.NoError(t, err)
	var after identityOutput
	require.NoError(t, json.Unmarshal([]byte(out), &after))
	assert.NotEqual(t, before.DeviceID, after.DeviceID)
}

func TestConfigErrors(t *testing.T) {
	h := newHarness(t)

	_, err := h.run(t, "", "identity", "--format", "yaml")
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = h.run(t, "", "identity", "--bluetooth-name", "much-too-long")
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = h.run(t, "", "identity", "--config", filepath.Join(t.TempDir(), "missing.json"))
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestAskPassphrase(t *testing.T) {
	h := newHarness(t)

	_, err := h.run(t, "s3cret\n", "identity", "--ask-passphrase")
	require.NoError(t, err)

	_, err = h.run(t, "wrong\n", "identity", "--ask-passphrase")
	require.Error(t, err, "sealed key cannot be opened with another passphrase")

	_, err = h.run(t, "", "identity", "--ask-passphrase")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestReadPassphrase(t *testing.T) {
	got, err := readPassphrase(strings.NewReader("pass word\r\n"), &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, "pass word", got)

	got, err = readPassphrase(strings.NewReader("no-newline"), &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, "no-newline", got)
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitCommandError, GetExitCode(WrapExitError(ExitCommandError, "x", nil)))
	assert.Equal(t, ExitFailure, GetExitCode(assert.AnError))
	assert.Equal(t, "x: "+assert.AnError.Error(), WrapExitError(ExitFailure, "x", assert.AnError).Error())
}

func engineOptions() engine.Options {
	return engine.Options{Logger: logging.Discard()}
}
