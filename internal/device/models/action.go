package models

import (
	"fmt"
	"time"
)

// Frequency is the minimum interval between two triggers of one action.
type Frequency string

const (
	FrequencyAlways     Frequency = "always"
	FrequencyMinutely   Frequency = "minutely"
	FrequencyHourly     Frequency = "hourly"
	FrequencyDaily      Frequency = "daily"
	FrequencyWeekly     Frequency = "weekly"
	FrequencyMonthly    Frequency = "monthly"
	FrequencyHalfYearly Frequency = "half_yearly"
	FrequencyYearly     Frequency = "yearly"
)

// Valid reports whether f is one of the known frequencies.
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyAlways, FrequencyMinutely, FrequencyHourly, FrequencyDaily,
		FrequencyWeekly, FrequencyMonthly, FrequencyHalfYearly, FrequencyYearly:
		return true
	}
	return false
}

// NextAllowed returns the earliest instant an action last executed at last
// may run again. Months and years use calendar arithmetic. An unknown
// frequency reports ok=false.
func (f Frequency) NextAllowed(last time.Time) (next time.Time, ok bool) {
	switch f {
	case FrequencyAlways:
		return last, true
	case FrequencyMinutely:
		return last.Add(time.Minute), true
	case FrequencyHourly:
		return last.Add(time.Hour), true
	case FrequencyDaily:
		return last.AddDate(0, 0, 1), true
	case FrequencyWeekly:
		return last.AddDate(0, 0, 7), true
	case FrequencyMonthly:
		return last.AddDate(0, 1, 0), true
	case FrequencyHalfYearly:
		return last.AddDate(0, 6, 0), true
	case FrequencyYearly:
		return last.AddDate(1, 0, 0), true
	}
	return time.Time{}, false
}

// ActionDescriptor is one entry of the catalog CORE declares for a device.
// Only ActionID and Frequency are persisted; the rest is display data.
type ActionDescriptor struct {
	ActionID     string    `json:"actionID,omitempty"`
	ActionName   string    `json:"actionName,omitempty"`
	Frequency    Frequency `json:"frequency,omitempty"`
	Price        *float64  `json:"price,omitempty"`
	Prerequisite string    `json:"prerequisite,omitempty"`
	Metadata     string    `json:"metadata,omitempty"`
	MakerID      string    `json:"makerID,omitempty"`
	Type         string    `json:"type,omitempty"`
	Info         string    `json:"info,omitempty"`
	DateCreated  string    `json:"date_created,omitempty"`
}

func (a ActionDescriptor) String() string {
	return fmt.Sprintf("%s %s (%s)", a.ActionID, a.ActionName, a.Frequency)
}

// NeverExecuted is the last-execution sentinel for an action that has not
// been triggered on this device.
const NeverExecuted int64 = -1

// ThrottleState is the persisted cool-down bookkeeping of one action.
type ThrottleState struct {
	ActionID string
	// Frequency is empty when the catalog has not declared the action.
	Frequency Frequency
	// LastExecutionMs is epoch millis, NeverExecuted when unset.
	LastExecutionMs int64
}

// LastExecution returns the last execution time, ok=false for NeverExecuted.
func (s ThrottleState) LastExecution() (time.Time, bool) {
	if s.LastExecutionMs == NeverExecuted {
		return time.Time{}, false
	}
	return time.UnixMilli(s.LastExecutionMs), true
}
