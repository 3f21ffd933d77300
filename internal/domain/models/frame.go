package models

import "time"

// Frame types pushed to dashboard clients.
const (
	FrameSnapshot   = "snapshot"
	FrameSelection  = "selection"
	FramePrediction = "prediction"
	FrameTracking   = "tracking"
	FrameChart      = "chart"
)

// Frame is one message on a session's client stream.
type Frame struct {
	Type      string      `json:"type"`
	SessionID string      `json:"session_id"`
	Payload   interface{} `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}
