package services

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"medpipe_backend/config"
	"medpipe_backend/models"
	"medpipe_backend/pkg/logging"
	"medpipe_backend/platform/events"
	"medpipe_backend/platform/storage"
	"medpipe_backend/repository"
	"medpipe_backend/utils"
)

type AnonymizeRequest struct {
	PatientID string
	DocID     string
	DocURL    string
	UserID    string
	Filename  string
	Lang      string
}

func anonymizeRequestFor(doc *models.Document) AnonymizeRequest {
	return AnonymizeRequest{
		PatientID: doc.PatientID,
		DocID:     doc.ID,
		DocURL:    doc.URL,
		UserID:    doc.UserID,
		Filename:  doc.Filename,
		Lang:      doc.Language,
	}
}

type AnonymizationService struct {
	store       storage.BlobStore
	gateway     *Gateway
	translator  FieldTranslator
	notifier    events.Notifier
	docRepo     repository.DocumentRepository
	state       *StateTracker
	chunkSize   int
	concurrency int
}

func NewAnonymizationService(
	store storage.BlobStore,
	gateway *Gateway,
	translator FieldTranslator,
	notifier events.Notifier,
	docRepo repository.DocumentRepository,
	state *StateTracker,
	pipeline config.PipelineConfig) *AnonymizationService {
	return &AnonymizationService{
		store:       store,
		gateway:     gateway,
		translator:  translator,
		notifier:    notifier,
		docRepo:     docRepo,
		state:       state,
		chunkSize:   pipeline.AnonymizeChunkSize,
		concurrency: pipeline.DonationConcurrency,
	}
}

// Anonymize reports true on success. Errors are logged and published as an
// error progress event.
func (s *AnonymizationService) Anonymize(ctx context.Context, req AnonymizeRequest) bool {
	progress := models.ProgressEvent{
		DocID:     req.DocID,
		UserID:    req.UserID,
		PatientID: req.PatientID,
		Filename:  req.Filename,
		Step:      models.StepAnonymize,
		Status:    models.StatusProcessing,
	}
	emit(ctx, s.notifier, progress)

	if err := s.anonymize(ctx, req); err != nil {
		logging.Logger.Error("fail Anonymize", "error", err, "docID", req.DocID)
		progress.Step = models.StepAnonymizeError
		progress.Status = models.StatusFailed
		progress.Error = err.Error()
		emit(ctx, s.notifier, progress)
		return false
	}
	progress.Step = models.StepAnonymizeReady
	progress.Status = models.StatusCompleted
	emit(ctx, s.notifier, progress)
	return true
}

func (s *AnonymizationService) anonymize(ctx context.Context, req AnonymizeRequest) error {
	text, translated, err := fetchPreferTranslated(ctx, s.store, req.PatientID, req.DocURL, utils.ArtifactFastExtracted)
	if err != nil {
		return err
	}
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("document %s has no extracted text: %w", req.DocID, models.ErrInvalidInput)
	}

	it := utils.NewChunkIterator(text, s.chunkSize)
	profile := SelectProfile(GatewayAnonymize, 0, 0)
	var b strings.Builder
	for i := 1; ; i++ {
		chunk, ok := it.Next()
		if !ok {
			break
		}
		out, err := s.gateway.Invoke(ctx, profile, anonymizePrompt, map[string]string{"text": chunk})
		if err != nil {
			return fmt.Errorf("anonymize chunk %d: %w", i, err)
		}
		b.WriteString(out)
	}
	anonymized := b.String()

	orig := utf8.RuneCountInString(text)
	reduction := float64(orig-utf8.RuneCountInString(anonymized)) / float64(orig)
	logging.Logger.Info("document anonymized", "docID", req.DocID, "reduction", fmt.Sprintf("%.4f", reduction))

	if !translated {
		return s.persist(ctx, req, false, anonymized)
	}
	if err := s.persist(ctx, req, true, anonymized); err != nil {
		return err
	}
	back, err := s.translator.TranslateText(ctx, anonymized, req.Lang)
	if err != nil {
		return fmt.Errorf("translate to %s: %w", req.Lang, err)
	}
	return s.persist(ctx, req, false, back)
}

func (s *AnonymizationService) persist(ctx context.Context, req AnonymizeRequest, translated bool, content string) error {
	key := utils.DocumentArtifactKey(req.DocURL, utils.ArtifactAnonymized, translated)
	if err := s.store.Upload(ctx, req.PatientID, key, content); err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}
	recordArtifact(ctx, s.docRepo, req.DocID, key)
	return nil
}

// AnonymizeDocument claims the document and runs the engine. A document that
// is already in process or anonymized is left alone and false is returned.
func (s *AnonymizationService) AnonymizeDocument(ctx context.Context, docID string) (bool, error) {
	claimed, err := s.state.ClaimDocumentAnonymization(ctx, docID)
	if err != nil {
		return false, err
	}
	if !claimed {
		return false, nil
	}
	return s.RunClaimed(ctx, docID)
}

// RunClaimed anonymizes a document whose state is already inProcess and
// writes the terminal state.
func (s *AnonymizationService) RunClaimed(ctx context.Context, docID string) (bool, error) {
	doc, err := s.docRepo.GetByID(ctx, docID)
	if err != nil {
		if cerr := s.state.CompleteDocumentAnonymization(ctx, docID, false); cerr != nil {
			logging.Logger.Error("fail reset anonymization state", "error", cerr, "docID", docID)
		}
		return false, err
	}
	ok := s.Anonymize(ctx, anonymizeRequestFor(doc))
	if err := s.state.CompleteDocumentAnonymization(ctx, docID, ok); err != nil {
		return ok, err
	}
	return ok, nil
}

// AnonymizePending anonymizes every document of the patient still in the
// false state and returns how many succeeded.
func (s *AnonymizationService) AnonymizePending(ctx context.Context, patientID string) (int, error) {
	docs, err := s.docRepo.ListPendingAnonymization(ctx, patientID)
	if err != nil {
		return 0, err
	}
	limit := s.concurrency
	if limit <= 0 {
		limit = 1
	}
	results := make([]bool, len(docs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, doc := range docs {
		g.Go(func() error {
			ok, err := s.AnonymizeDocument(gctx, doc.ID)
			if err != nil {
				logging.Logger.Error("fail AnonymizePending", "error", err, "docID", doc.ID)
				return nil
			}
			results[i] = ok
			return nil
		})
	}
	_ = g.Wait()
	n := 0
	for _, ok := range results {
		if ok {
			n++
		}
	}
	return n, nil
}
