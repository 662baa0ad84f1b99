package models

import "time"

// Event types recorded by the controller.
const (
	EventDose        = "DOSE"
	EventSuppress    = "SUPPRESS"
	EventFeedStart   = "FEED_START"
	EventFeedStop    = "FEED_STOP"
	EventFeedTimeout = "FEED_TIMEOUT"
	EventValve       = "VALVE"
	EventCalibration = "CALIBRATION"
	EventFlowReset   = "FLOW_RESET"
	EventSample      = "SAMPLE"
	EventError       = "ERROR"
)

// ControllerEvent is a single append-only log entry.
type ControllerEvent struct {
	EventID     string    `json:"event_id"`
	OccurredAt  time.Time `json:"occurred_at"`
	ReservoirID string    `json:"reservoir_id,omitempty"`
	Type        string    `json:"type"`
	Description string    `json:"description"`
	Metadata    any       `json:"metadata,omitempty"`
}
