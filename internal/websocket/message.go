package websocket

import (
	"encoding/json"
	"time"
)

// Message defines the structure for websocket messages.
type Message struct {
	Action  string      `json:"action"`
	Payload interface{} `json:"payload"`
	SentAt  time.Time   `json:"sentAt"`
}

// NewMessage encodes a message ready to be written to a client.
func NewMessage(action string, payload interface{}) []byte {
	b, err := json.Marshal(Message{Action: action, Payload: payload, SentAt: time.Now().UTC()})
	if err != nil {
		return NewErrorMessage("failed to encode message")
	}
	return b
}

// NewErrorMessage encodes an error notification for a single client.
func NewErrorMessage(text string) []byte {
	b, _ := json.Marshal(Message{Action: "error", Payload: map[string]string{"error": text}, SentAt: time.Now().UTC()})
	return b
}
