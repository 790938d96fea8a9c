package handlers

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"healthbot/internal/models"
	"healthbot/internal/services"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"
)

const wsReadDeadline = 120 * time.Second

// WebSocketHandler handles WebSocket connections. Each inbound user
// message is processed on its own goroutine; the reply envelope goes
// back as {type:"msg", text, watsonData}.
type WebSocketHandler struct {
	connManager *services.ConnectionManager
	bot         *services.BotService
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(connManager *services.ConnectionManager, bot *services.BotService) *WebSocketHandler {
	return &WebSocketHandler{
		connManager: connManager,
		bot:         bot,
	}
}

// Handle handles a new WebSocket connection
func (h *WebSocketHandler) Handle(c *websocket.Conn) {
	connID := uuid.New().String()

	userConn := &models.UserConnection{
		ConnID: connID,
		// Fallback sender ID for clients that never supply one.
		UserID:    connID,
		Conn:      c,
		CreatedAt: time.Now(),
		WriteChan: make(chan models.ServerMessage, 100),
	}

	h.connManager.Add(userConn)
	defer h.connManager.Remove(connID)

	c.SetReadDeadline(time.Now().Add(wsReadDeadline))
	c.SetPongHandler(func(string) error {
		c.SetReadDeadline(time.Now().Add(wsReadDeadline))
		return nil
	})

	go h.writeLoop(userConn)

	h.readLoop(userConn)
}

// readLoop handles incoming messages from the client
func (h *WebSocketHandler) readLoop(userConn *models.UserConnection) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("❌ Panic in readLoop: %v", r)
		}
	}()

	for {
		_, msg, err := userConn.Conn.ReadMessage()
		if err != nil {
			log.Printf("❌ WebSocket read error for %s: %v", userConn.ConnID, err)
			break
		}
		userConn.Conn.SetReadDeadline(time.Now().Add(wsReadDeadline))

		var clientMsg models.ClientMessage
		if err := json.Unmarshal(msg, &clientMsg); err != nil {
			log.Printf("⚠️  Invalid message format from %s: %v", userConn.ConnID, err)
			continue
		}

		if m := services.GetMetrics(); m != nil {
			m.WebSocketMessages.WithLabelValues(clientMsg.Type, "inbound").Inc()
		}

		if clientMsg.Type == "ping" {
			// Client heartbeat, echo it back immediately.
			userConn.SafeSend(models.ServerMessage{Type: "ping"})
			continue
		}

		// Process each message on its own goroutine so a slow turn
		// from one sender never blocks the read loop.
		go h.handleUserMessage(userConn, clientMsg)
	}
}

// handleUserMessage runs one dialog turn and sends the reply envelope
func (h *WebSocketHandler) handleUserMessage(userConn *models.UserConnection, clientMsg models.ClientMessage) {
	senderID := clientMsg.UserID
	if senderID == "" {
		senderID = userConn.UserID
	}

	envelope := h.bot.ProcessMessage(context.Background(), senderID, clientMsg.Text)

	sent := userConn.SafeSend(models.ServerMessage{
		Type:       "msg",
		Text:       envelope.Text,
		WatsonData: envelope.WatsonData,
	})
	if sent {
		if m := services.GetMetrics(); m != nil {
			m.WebSocketMessages.WithLabelValues("msg", "outbound").Inc()
		}
	}
}

// writeLoop handles outgoing messages to the client
func (h *WebSocketHandler) writeLoop(userConn *models.UserConnection) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("❌ Panic in writeLoop: %v", r)
		}
	}()

	for msg := range userConn.WriteChan {
		if err := userConn.Conn.WriteJSON(msg); err != nil {
			log.Printf("❌ WebSocket write error for %s: %v", userConn.ConnID, err)
			return
		}
	}
}
