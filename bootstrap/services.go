package bootstrap

import (
	"medpipe_backend/config"
	"medpipe_backend/services"
)

type Services struct {
	State          *services.StateTracker
	Gateway        *services.Gateway
	Translation    *services.TranslationBridge
	Summarizer     *services.SummarizationService
	Anonymizer     *services.AnonymizationService
	PatientSummary *services.PatientSummaryService
	Index          *services.IndexLifecycleService
	DocService     *services.DocumentService
	Runner         *services.TaskRunner
	Worker         *services.TaskWorker
	Inline         *services.InlineDispatcher
}

func NewServices(cfg *config.Config, repos *Repositories, infra *Infrastructure) *Services {
	res := &Services{}
	pipeline := cfg.Pipeline

	res.State = services.NewStateTracker(repos.PatientRepository, repos.DocumentRepository)
	res.Gateway = services.NewGateway(infra.LLM, cfg.RateLimitBackoff, cfg.LLMCallTimeout)
	res.Translation = services.NewTranslationBridge(infra.DeepL, infra.Inverse, infra.Detector, infra.Cache, cfg.TranslationTTL)

	// engines
	res.Summarizer = services.NewSummarizationService(infra.Storage, res.Gateway, res.Translation, infra.EventPublisher, repos.DocumentRepository, pipeline)
	res.Anonymizer = services.NewAnonymizationService(infra.Storage, res.Gateway, res.Translation, infra.EventPublisher, repos.DocumentRepository, res.State, pipeline)
	res.PatientSummary = services.NewPatientSummaryService(
		repos.PatientRepository,
		repos.DocumentRepository,
		repos.EventRepository,
		infra.Storage,
		res.Gateway,
		res.Translation,
		infra.EventPublisher,
		res.State,
	)
	res.Index = services.NewIndexLifecycleService(infra.SearchIndex, repos.DocumentRepository, infra.Storage, infra.LLM, infra.EventPublisher, pipeline)

	// background tasks
	res.Runner = services.NewTaskRunner(repos.DocumentRepository, res.Summarizer, res.Anonymizer, res.PatientSummary, res.Index)
	var dispatcher services.Dispatcher
	if cfg.TaskMode == "inline" {
		res.Inline = services.NewInlineDispatcher(res.Runner)
		dispatcher = res.Inline
	} else {
		res.Worker = services.NewTaskWorker(infra.Queue, res.Runner, pipeline.WorkerConcurrency)
		dispatcher = services.NewQueueDispatcher(infra.Queue)
	}
	res.PatientSummary.SetDispatcher(dispatcher)

	res.DocService = services.NewDocumentService(
		repos.DocumentRepository,
		repos.PatientRepository,
		infra.Storage,
		infra.Cache,
		res.Translation,
		res.State,
		res.Summarizer,
		dispatcher,
	)
	return res
}
