package handlers

import (
	"context"
	"time"

	"healthbot/internal/database"
	"healthbot/internal/services"

	"github.com/gofiber/fiber/v2"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	db          *database.MongoDB
	connManager *services.ConnectionManager
	queue       *services.DialogWriteQueue
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(db *database.MongoDB, connManager *services.ConnectionManager, queue *services.DialogWriteQueue) *HealthHandler {
	return &HealthHandler{db: db, connManager: connManager, queue: queue}
}

// Handle responds with server health status
func (h *HealthHandler) Handle(c *fiber.Ctx) error {
	status := "healthy"

	ctx, cancel := context.WithTimeout(c.Context(), 2*time.Second)
	defer cancel()
	if err := h.db.Ping(ctx); err != nil {
		status = "degraded"
	}

	return c.JSON(fiber.Map{
		"status":      status,
		"connections": h.connManager.Count(),
		"queue_depth": h.queue.Depth(),
		"timestamp":   time.Now().Format(time.RFC3339),
	})
}
