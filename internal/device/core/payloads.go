package core

type tokenBody struct {
	Bot string `json:"bot"`
}

type activateBot struct {
	DeviceID string `json:"deviceID"`
}

type activatePayload struct {
	Bot activateBot `json:"bot"`
}

// triggerBot is the trigger token payload. Value carries the queue id.
type triggerBot struct {
	DeviceID      string `json:"deviceID"`
	ActionID      string `json:"actionID"`
	AlternativeID string `json:"alternativeID,omitempty"`
	Value         string `json:"value"`
}

type triggerPayload struct {
	Bot triggerBot `json:"bot"`
}

type pairStatus struct {
	Status any `json:"status"`
}

type triggerStatus struct {
	Status string `json:"status"`
}

const statusOK = "OK"
