package handlers

import (
	"context"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"medpipe_backend/models"
	"medpipe_backend/pkg/logging"
)

type EventSubscriber interface {
	Subscribe(ctx context.Context, userID string) (<-chan *models.ProgressEvent, error)
}

type WSHandler struct {
	subscriber EventSubscriber
}

func NewWSHandler(subscriber EventSubscriber) *WSHandler {
	return &WSHandler{subscriber: subscriber}
}

func (h *WSHandler) WebSocketUpgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return c.Status(400).JSON(fiber.Map{"error": "Not a websocket request"})
}

// HandleUserEvents forwards every progress event of the user until the
// client goes away.
func (h *WSHandler) HandleUserEvents(c *websocket.Conn) {
	userID := c.Params("user_id")
	logging.Logger.Info("WebSocket connected", "userID", userID)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// the read loop notices the client closing
	go func() {
		defer cancel()
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}()

	eventChan, err := h.subscriber.Subscribe(ctx, userID)
	if err != nil {
		logging.Logger.Error("Failed to subscribe to events", "error", err, "userID", userID)
		_ = c.WriteMessage(websocket.TextMessage, []byte(`{"error":"Failed to subscribe"}`))
		return
	}
	err = c.WriteJSON(fiber.Map{
		"type":    "connected",
		"message": "WebSocket connected successfully",
		"user_id": userID,
	})
	if err != nil {
		return
	}

	for {
		select {
		case event, ok := <-eventChan:
			if !ok {
				return
			}
			if err := c.WriteJSON(event); err != nil {
				logging.Logger.Error("Failed to send WebSocket message", "error", err)
				return
			}
			logging.Logger.Debug("Event sent to client", "step", event.Step, "docID", event.DocID)
		case <-ctx.Done():
			return
		}
	}
}
