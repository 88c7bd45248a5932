package routes

import (
	"github.com/gofiber/fiber/v2"

	"medpipe_backend/handlers"
)

func RegisterPatientRoutes(app *fiber.App, handler *handlers.PatientHandler) {
	patients := app.Group("api/patients")
	patients.Get("/:patient_id/summary", handler.Summary)
	patients.Put("/:patient_id/summary", handler.SetSummaryState)
	patients.Put("/:patient_id/donation", handler.Donation)
}

func RegisterTranslationRoutes(app *fiber.App, handler *handlers.TranslationHandler) {
	translation := app.Group("api/translation")
	translation.Post("/", handler.Translate)
	translation.Post("/detect", handler.Detect)
}
