package routes

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"medpipe_backend/handlers"
)

func SetupWebSocketRoutes(app *fiber.App, wsHandler *handlers.WSHandler) {
	ws := app.Group("/ws")

	ws.Use("/users/:user_id", wsHandler.WebSocketUpgrade)
	ws.Get("/users/:user_id", websocket.New(wsHandler.HandleUserEvents))
}
