package models

import "time"

// TriggerRecord is one trigger attempt. QueueID is minted once per attempt
// and reused verbatim when an offline record is replayed so CORE can
// deduplicate.
type TriggerRecord struct {
	ActionID      string    `json:"actionID"`
	QueueID       string    `json:"queueID"`
	AlternativeID string    `json:"alternativeID,omitempty"`
	CreatedAt     time.Time `json:"-"`
}

// OfflineEntry is a stored TriggerRecord with its insertion sequence.
type OfflineEntry struct {
	Seq    int64
	Record TriggerRecord
}
