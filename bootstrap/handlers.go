package bootstrap

import "medpipe_backend/handlers"

type Handlers struct {
	DocHandler         *handlers.DocHandler
	PatientHandler     *handlers.PatientHandler
	TranslationHandler *handlers.TranslationHandler
	WSHandler          *handlers.WSHandler
}

func NewHandlers(services *Services, infra *Infrastructure) *Handlers {
	return &Handlers{
		DocHandler:         handlers.NewDocHandler(services.DocService, services.Index, services.State),
		PatientHandler:     handlers.NewPatientHandler(services.PatientSummary, services.State, services.DocService),
		TranslationHandler: handlers.NewTranslationHandler(services.Translation),
		WSHandler:          handlers.NewWSHandler(infra.EventPublisher),
	}
}
