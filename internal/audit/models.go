package audit

import "time"

// Action names an auditable visitor operation.
type Action string

const (
	ActionRegistered            Action = "visitor_registered"
	ActionAutomatedVerification Action = "automated_verification"
	ActionManualVerification    Action = "manual_verification"
)

// Event is emitted from the orchestrator after a visitor operation. Keep it
// transport-agnostic so sinks can fan out.
type Event struct {
	Timestamp  time.Time `json:"timestamp"`
	Action     Action    `json:"action"`
	VisitorID  string    `json:"visitorId"`
	RequestID  string    `json:"requestId,omitempty"`
	Match      *bool     `json:"match,omitempty"`
	Confidence *float64  `json:"confidence,omitempty"`
	Remarks    string    `json:"remarks,omitempty"`
	// Committed is false when a verification attempt left the record untouched.
	Committed bool `json:"committed"`
}
