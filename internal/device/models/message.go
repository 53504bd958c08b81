package models

// Message is an envelope returned by CORE's messages endpoint.
type Message struct {
	DeviceID  string `json:"deviceID"`
	Payload   string `json:"payload"`
	MessageID string `json:"messageID"`
	Event     string `json:"event,omitempty"`
	Delivered int    `json:"delivered"`

	// PayloadModel is Payload decoded, nil when Payload is not JSON.
	PayloadModel *MessagePayload `json:"-"`
}

type MessagePayload struct {
	ActionID   string `json:"actionID,omitempty"`
	CustomerID string `json:"customerID,omitempty"`
	DeviceID   string `json:"deviceID,omitempty"`
}
