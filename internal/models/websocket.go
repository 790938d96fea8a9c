package models

import (
	"time"

	"github.com/gofiber/contrib/websocket"
)

// ClientMessage represents a message from a WebSocket client.
// A bare {"type":"ping"} is a heartbeat; anything else is a user
// message carrying text and the sender's user ID.
type ClientMessage struct {
	Type   string `json:"type,omitempty"`
	Text   string `json:"text,omitempty"`
	UserID string `json:"userId,omitempty"`
}

// ServerMessage represents a message sent to a WebSocket client
type ServerMessage struct {
	Type       string          `json:"type"`
	Text       string          `json:"text,omitempty"`
	WatsonData *EngineResponse `json:"watsonData,omitempty"`
}

// UserConnection represents an active WebSocket connection
type UserConnection struct {
	ConnID    string
	UserID    string
	Conn      *websocket.Conn
	CreatedAt time.Time

	// WriteChan serializes all writes to the connection
	WriteChan chan ServerMessage
}

// SafeSend sends a message without panicking if the write channel was
// closed by the connection manager during disconnect.
func (uc *UserConnection) SafeSend(msg ServerMessage) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
		}
	}()
	uc.WriteChan <- msg
	return true
}
