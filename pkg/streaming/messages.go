// Package streaming defines the display events pushed to browsers over the
// websocket.
package streaming

import (
	"encoding/json"
	"fmt"
)

// Message type constants matching the streaming protocol.
const (
	TypeLoaded      = "loaded"
	TypeDrawMarker  = "draw_marker"
	TypeClearMarker = "clear_marker"
	TypeCenter      = "center"
	TypeLabel       = "label"
	TypeValidation  = "validation"
	TypeProgress    = "progress"
)

// Envelope wraps all messages sent over the WebSocket.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// LoadedPayload announces a new sample file.
type LoadedPayload struct {
	FileName string `json:"fileName"`
	Total    int    `json:"total"`
}

// MarkerPayload carries a marker handle and its position.
type MarkerPayload struct {
	ID  uint64  `json:"id"`
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// CenterPayload moves the map view.
type CenterPayload struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// FieldPayload carries the value of a text field.
type FieldPayload struct {
	Value string `json:"value"`
}

// ProgressPayload carries the 1-based position and the sample count.
type ProgressPayload struct {
	Current int `json:"current"`
	Total   int `json:"total"`
}

// Marshal builds a JSON-encoded Envelope from a message type and payload.
func Marshal(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	data, err := json.Marshal(Envelope{Type: msgType, Payload: raw})
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	return data, nil
}
