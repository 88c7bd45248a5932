package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"medpipe_backend/models"
	"medpipe_backend/pkg/logging"
	"medpipe_backend/platform/cache"
	"medpipe_backend/platform/storage"
	"medpipe_backend/repository"
	"medpipe_backend/utils"
)

const detectSampleSize = 2000

type DocumentService struct {
	docRepo     repository.DocumentRepository
	patientRepo repository.PatientRepository
	store       storage.BlobStore
	langCache   *cache.TypedCache[string]
	bridge      *TranslationBridge
	state       *StateTracker
	summarizer  *SummarizationService
	dispatcher  Dispatcher
}

func NewDocumentService(
	docRepo repository.DocumentRepository,
	patientRepo repository.PatientRepository,
	store storage.BlobStore,
	cacheService cache.CacheService,
	bridge *TranslationBridge,
	state *StateTracker,
	summarizer *SummarizationService,
	dispatcher Dispatcher) *DocumentService {
	s := &DocumentService{
		docRepo:     docRepo,
		patientRepo: patientRepo,
		store:       store,
		bridge:      bridge,
		state:       state,
		summarizer:  summarizer,
		dispatcher:  dispatcher,
	}
	if cacheService != nil {
		s.langCache = cache.NewTypedCache[string](cacheService)
	}
	return s
}

// AnalyzeDocument queues the summary and index runs of an extracted document,
// plus anonymization when the patient donates their data.
func (s *DocumentService) AnalyzeDocument(ctx context.Context, req models.AnalyzeReq) (*models.AnalyzeResp, error) {
	task, ok := ParseSummarizationTask(req.Audience)
	if !ok || (task != TaskPhysician && task != TaskAdult && task != TaskYoung) {
		return nil, fmt.Errorf("audience %q: %w", req.Audience, models.ErrInvalidInput)
	}
	doc, err := s.docRepo.GetByID(ctx, req.DocID)
	if err != nil {
		logging.Logger.Error("fail GetByID", "error", err, "docID", req.DocID)
		return nil, err
	}
	patient, err := s.patientRepo.GetByID(ctx, doc.PatientID)
	if err != nil {
		logging.Logger.Error("fail GetByID", "error", err, "patientID", doc.PatientID)
		return nil, err
	}

	if doc.Language == "" {
		doc.Language = s.detectDocumentLanguage(ctx, doc)
		if doc.Language != "" {
			if err := s.docRepo.SetLanguage(ctx, doc.ID, doc.Language); err != nil {
				return nil, err
			}
			s.refreshPatientLanguage(ctx, patient)
		}
	}

	tasks := []*models.Task{
		{
			Kind:       models.TaskSummarizeDocument,
			EntityType: models.EntityDocument,
			EntityID:   doc.ID,
			Payload:    map[string]string{"task": string(task)},
		},
		{
			Kind:       models.TaskIndexDocument,
			EntityType: models.EntityDocument,
			EntityID:   doc.ID,
		},
	}
	for _, t := range tasks {
		if err := s.dispatcher.Dispatch(ctx, t); err != nil {
			return nil, err
		}
	}

	anonymized := doc.Anonymized
	if patient.Donation && doc.Anonymized == models.StateFalse {
		anonymized, err = s.RequestAnonymization(ctx, doc.ID)
		if err != nil {
			return nil, err
		}
	}

	return &models.AnalyzeResp{
		Message:    "Document analysis queued",
		DocID:      doc.ID,
		Status:     "queued",
		Anonymized: anonymized,
	}, nil
}

// RequestSymptoms queues the symptom-only extraction of a document.
func (s *DocumentService) RequestSymptoms(ctx context.Context, docID string) (*models.AnalyzeResp, error) {
	doc, err := s.docRepo.GetByID(ctx, docID)
	if err != nil {
		logging.Logger.Error("fail GetByID", "error", err, "docID", docID)
		return nil, err
	}
	task := &models.Task{
		Kind:       models.TaskSummarizeDocument,
		EntityType: models.EntityDocument,
		EntityID:   doc.ID,
		Payload:    map[string]string{"task": string(TaskSymptoms)},
	}
	if err := s.dispatcher.Dispatch(ctx, task); err != nil {
		return nil, err
	}
	return &models.AnalyzeResp{
		Message:    "Symptom extraction queued",
		DocID:      doc.ID,
		Status:     "queued",
		Anonymized: doc.Anonymized,
	}, nil
}

// RequestAnonymization claims the document and queues the engine. When the
// claim fails the current state is returned and nothing is queued.
func (s *DocumentService) RequestAnonymization(ctx context.Context, docID string) (string, error) {
	claimed, err := s.state.ClaimDocumentAnonymization(ctx, docID)
	if err != nil {
		return "", err
	}
	if !claimed {
		return s.state.GetDocumentState(ctx, docID)
	}
	task := &models.Task{
		Kind:       models.TaskAnonymizeDocument,
		EntityType: models.EntityDocument,
		EntityID:   docID,
	}
	if err := s.dispatcher.Dispatch(ctx, task); err != nil {
		if cerr := s.state.CompleteDocumentAnonymization(ctx, docID, false); cerr != nil {
			logging.Logger.Error("fail reset anonymization state", "error", cerr, "docID", docID)
		}
		return "", err
	}
	return models.StateInProcess, nil
}

// SetDonation stores the consent flag. Switching it on queues anonymization
// of every document not anonymized yet; the count of those is returned.
func (s *DocumentService) SetDonation(ctx context.Context, patientID string, donation bool) (*models.DonationResp, error) {
	if err := s.patientRepo.SetDonation(ctx, patientID, donation); err != nil {
		logging.Logger.Error("fail SetDonation", "error", err, "patientID", patientID)
		return nil, err
	}
	if !donation {
		return &models.DonationResp{Message: "Donation disabled"}, nil
	}
	pending, err := s.docRepo.ListPendingAnonymization(ctx, patientID)
	if err != nil {
		return nil, err
	}
	if len(pending) > 0 {
		task := &models.Task{
			Kind:       models.TaskAnonymizePatient,
			EntityType: models.EntityPatient,
			EntityID:   patientID,
		}
		if err := s.dispatcher.Dispatch(ctx, task); err != nil {
			return nil, err
		}
	}
	return &models.DonationResp{Message: "Donation enabled", Documents: len(pending)}, nil
}

func (s *DocumentService) TimelineAndTranscript(ctx context.Context, docID string) (*models.TimelineResp, error) {
	doc, err := s.docRepo.GetByID(ctx, docID)
	if err != nil {
		return nil, err
	}
	return s.summarizer.TimelineAndTranscript(ctx, summaryRequestFor(doc, TaskTimeline)), nil
}

func (s *DocumentService) GetDocumentState(ctx context.Context, docID string) (*models.StateResp, error) {
	state, err := s.state.GetDocumentState(ctx, docID)
	if err != nil {
		return nil, err
	}
	return &models.StateResp{DocID: docID, Anonymized: state}, nil
}

func (s *DocumentService) detectDocumentLanguage(ctx context.Context, doc *models.Document) string {
	cacheKey := "lang:" + doc.ID
	if s.langCache != nil {
		if lang, ok, err := s.langCache.Get(cacheKey); err == nil && ok && lang != "" {
			return lang
		}
	}

	key := utils.DocumentArtifactKey(doc.URL, utils.ArtifactExtracted, false)
	text, err := s.store.Download(ctx, doc.PatientID, key)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			logging.Logger.Error("fail Download", "error", err, "key", key)
		}
		return ""
	}
	sample, ok := utils.NewChunkIterator(text, detectSampleSize).Next()
	if !ok {
		return ""
	}
	lang, err := s.bridge.DetectLanguage(ctx, sample)
	if err != nil {
		return ""
	}
	if s.langCache != nil {
		if err := s.langCache.Set(cacheKey, lang, 24*time.Hour); err != nil {
			logging.Logger.Warn("fail to set language cache", "error", err)
		}
	}
	return lang
}

func (s *DocumentService) refreshPatientLanguage(ctx context.Context, patient *models.Patient) {
	docs, err := s.docRepo.ListByPatient(ctx, patient.ID)
	if err != nil {
		logging.Logger.Error("fail ListByPatient", "error", err, "patientID", patient.ID)
		return
	}
	lang := MostCommonLanguage(docs)
	if lang == "" || lang == patient.Language {
		return
	}
	if err := s.patientRepo.SetLanguage(ctx, patient.ID, lang); err != nil {
		logging.Logger.Error("fail SetLanguage", "error", err, "patientID", patient.ID)
		return
	}
	patient.Language = lang
}
