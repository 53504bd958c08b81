// Package core is the device side of the CORE REST protocol. Every request
// carries the makerID and deviceID headers; request bodies are signed with
// the device key and every response is verified against the pinned CORE key.
package core

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/finn/internal/common"
	"github.com/dmitrijs2005/finn/internal/device/identity"
	"github.com/dmitrijs2005/finn/internal/device/jwtcodec"
	"github.com/dmitrijs2005/finn/internal/device/models"
	"github.com/dmitrijs2005/finn/internal/logging"
)

const (
	pathPair     = "/pair"
	pathActions  = "/actions"
	pathStatus   = "/status"
	pathMessages = "/messages"

	contentTypeJSON = "application/json; charset=utf-8"
	maxBodySize     = 1 << 20
)

// Client is the set of CORE calls the device engine makes.
type Client interface {
	CheckPaired(ctx context.Context) (bool, error)
	GetActions(ctx context.Context) ([]models.ActionDescriptor, error)
	Activate(ctx context.Context) error
	TriggerAction(ctx context.Context, rec models.TriggerRecord) error
	GetMessages(ctx context.Context) ([]models.Message, error)
}

type HTTPClient struct {
	baseURL string
	http    *http.Client
	id      *identity.DeviceIdentity
	log     logging.Logger
}

// NewHTTPClient returns a client for the CORE instance at baseURL. timeout
// bounds every round trip.
func NewHTTPClient(baseURL string, timeout time.Duration, id *identity.DeviceIdentity, log logging.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		id:      id,
		log:     log,
	}
}

// CheckPaired reports whether a companion app has paired with this device.
// A missing or non-boolean status counts as not paired.
func (c *HTTPClient) CheckPaired(ctx context.Context) (bool, error) {
	const op = "core.CheckPaired"

	bot, err := c.do(ctx, op, http.MethodGet, pathPair, nil)
	if err != nil {
		return false, err
	}

	var st pairStatus
	if err := json.Unmarshal([]byte(bot), &st); err != nil {
		return false, malformed(op, err)
	}
	paired, _ := st.Status.(bool)
	return paired, nil
}

// GetActions returns the catalog CORE declares for this device. An empty
// answer is an empty catalog. Entries that cannot be decoded are skipped.
func (c *HTTPClient) GetActions(ctx context.Context) ([]models.ActionDescriptor, error) {
	const op = "core.GetActions"

	bot, err := c.do(ctx, op, http.MethodGet, pathActions, nil)
	if err != nil {
		return nil, err
	}
	if isEmptyJSON(bot) {
		return []models.ActionDescriptor{}, nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal([]byte(bot), &raw); err != nil {
		return nil, malformed(op, err)
	}

	out := make([]models.ActionDescriptor, 0, len(raw))
	for i, r := range raw {
		var a models.ActionDescriptor
		if err := json.Unmarshal(r, &a); err != nil {
			c.log.Warn(ctx, "skipping undecodable action", "index", i, "error", err)
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

// Activate finalizes pairing. CORE answers with an empty bot claim on success
// and an error description otherwise.
func (c *HTTPClient) Activate(ctx context.Context) error {
	const op = "core.Activate"

	token, err := jwtcodec.Sign(activatePayload{Bot: activateBot{DeviceID: c.id.DeviceID}}, c.id.PrivateKey)
	if err != nil {
		return common.E(common.KindFatalStorage, op, err)
	}

	bot, err := c.do(ctx, op, http.MethodPost, pathStatus, &tokenBody{Bot: token})
	if err != nil {
		return err
	}
	if bot != "" {
		return common.E(common.KindProtocol, op, fmt.Errorf("%w: %s", common.ErrDeviceActivationFailed, bot))
	}
	return nil
}

// TriggerAction posts rec. A 4xx answer means the action is not activated
// for this device; any status other than OK is a rejected trigger.
func (c *HTTPClient) TriggerAction(ctx context.Context, rec models.TriggerRecord) error {
	const op = "core.TriggerAction"

	token, err := jwtcodec.Sign(triggerPayload{Bot: triggerBot{
		DeviceID:      c.id.DeviceID,
		ActionID:      rec.ActionID,
		AlternativeID: rec.AlternativeID,
		Value:         rec.QueueID,
	}}, c.id.PrivateKey)
	if err != nil {
		return common.E(common.KindFatalStorage, op, err)
	}

	bot, err := c.do(ctx, op, http.MethodPost, pathActions, &tokenBody{Bot: token})
	if err != nil {
		var se *HTTPStatusError
		if errors.As(err, &se) && se.ClientError() {
			return common.E(common.KindBusinessRule, op, fmt.Errorf("%w: %w", common.ErrActionNotActivated, se))
		}
		return err
	}

	var st triggerStatus
	if err := json.Unmarshal([]byte(bot), &st); err != nil {
		return malformed(op, err)
	}
	if st.Status != statusOK {
		return common.E(common.KindBusinessRule, op, fmt.Errorf("%w: status %q", common.ErrActionTriggerFailed, st.Status))
	}
	return nil
}

// GetMessages returns the pending message envelopes. CORE sends either an
// array or a single object; anything undecodable yields an empty list.
func (c *HTTPClient) GetMessages(ctx context.Context) ([]models.Message, error) {
	const op = "core.GetMessages"

	bot, err := c.do(ctx, op, http.MethodGet, pathMessages, nil)
	if err != nil {
		return nil, err
	}

	msgs := decodeMessages(bot)
	if msgs == nil {
		c.log.Warn(ctx, "undecodable messages payload", "size", len(bot))
		return []models.Message{}, nil
	}
	return msgs, nil
}

func decodeMessages(bot string) []models.Message {
	trimmed := strings.TrimSpace(bot)
	if isEmptyJSON(trimmed) {
		return []models.Message{}
	}

	var list []models.Message
	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal([]byte(trimmed), &list); err != nil {
			return nil
		}
	case '{':
		var m models.Message
		if err := json.Unmarshal([]byte(trimmed), &m); err != nil {
			return nil
		}
		list = []models.Message{m}
	default:
		return nil
	}

	for i := range list {
		var p models.MessagePayload
		if err := json.Unmarshal([]byte(list[i].Payload), &p); err == nil {
			list[i].PayloadModel = &p
		}
	}
	return list
}

// do performs one round trip and returns the verified bot claim.
func (c *HTTPClient) do(ctx context.Context, op, method, path string, body any) (string, error) {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return "", common.E(common.KindUnknown, op, err)
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return "", common.E(common.KindConfiguration, op, err)
	}
	req.Header.Set(common.MakerIDHeaderName, c.id.MakerID)
	req.Header.Set(common.DeviceIDHeaderName, c.id.DeviceID)
	req.Header.Set("Accept", contentTypeJSON)
	req.Header.Set("Cache-Control", "no-cache")
	if body != nil {
		req.Header.Set("Content-Type", contentTypeJSON)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", common.E(common.KindTransientNetwork, op, fmt.Errorf("%w: %w", common.ErrUnavailable, err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return "", common.E(common.KindTransientNetwork, op, fmt.Errorf("%w: read body: %w", common.ErrUnavailable, err))
	}

	switch {
	case resp.StatusCode >= 500:
		return "", common.E(common.KindTransientNetwork, op,
			fmt.Errorf("%w: %w", common.ErrUnavailable, &HTTPStatusError{StatusCode: resp.StatusCode}))
	case resp.StatusCode >= 300:
		return "", common.E(common.KindProtocol, op,
			&HTTPStatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))})
	}

	bot, err := jwtcodec.VerifyAndExtract(raw, c.id.ServerPublicKey)
	if err != nil {
		return "", err
	}
	return bot, nil
}

func malformed(op string, err error) error {
	return common.E(common.KindProtocol, op, fmt.Errorf("%w: %w", common.ErrMalformedPayload, err))
}

func isEmptyJSON(s string) bool {
	s = strings.TrimSpace(s)
	return s == "" || s == "null"
}
