package ws

import (
	"encoding/json"
	"time"
)

// Message is the WebSocket message shape pushed to dashboard clients.
type Message struct {
	Type      string                 `json:"type"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Timestamp time.Time              `json:"timestamp,omitempty"`
}

// Marshal marshals the message to JSON bytes, stamping the timestamp if the
// caller left it zero.
func (m *Message) Marshal() ([]byte, error) {
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now()
	}
	return json.Marshal(m)
}

// Message type constants used by the server and dashboard.
const (
	MessageTypeHeartbeat    = "heartbeat"
	MessageTypePong         = "pong"
	MessageTypeError        = "error"
	MessageTypeSyncStarted  = "sync_started"
	MessageTypeSyncProgress = "sync_progress" // per-device lookup/write-back progress
	MessageTypeSyncFinished = "sync_finished"
)
