package routes

import (
	"github.com/gofiber/fiber/v2"

	"medpipe_backend/handlers"
)

func RegisterDocumentRoutes(app *fiber.App, handler *handlers.DocHandler) {
	document := app.Group("api/documents")
	document.Post("/:doc_id/analyze", handler.Analyze)
	document.Post("/:doc_id/anonymize", handler.Anonymize)
	document.Post("/:doc_id/timeline", handler.Timeline)
	document.Post("/:doc_id/symptoms", handler.Symptoms)
	document.Get("/:doc_id/state", handler.State)
	document.Put("/:doc_id/state", handler.SetState)
	document.Delete("/:doc_id", handler.Delete)
}
