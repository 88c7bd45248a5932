package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"

	"medpipe_backend/config"
	"medpipe_backend/models"
	"medpipe_backend/pkg/logging"
	"medpipe_backend/platform/events"
	"medpipe_backend/platform/llm"
	"medpipe_backend/platform/search"
	"medpipe_backend/platform/storage"
	"medpipe_backend/repository"
	"medpipe_backend/utils"
)

type IndexLifecycleService struct {
	index       search.SearchIndex
	docRepo     repository.DocumentRepository
	store       storage.BlobStore
	embedder    llm.Embedder
	notifier    events.Notifier
	teardownMax int
	convPrefix  string
	chunkSize   int
}

func NewIndexLifecycleService(
	index search.SearchIndex,
	docRepo repository.DocumentRepository,
	store storage.BlobStore,
	embedder llm.Embedder,
	notifier events.Notifier,
	pipeline config.PipelineConfig) *IndexLifecycleService {
	return &IndexLifecycleService{
		index:       index,
		docRepo:     docRepo,
		store:       store,
		embedder:    embedder,
		notifier:    notifier,
		teardownMax: pipeline.IndexTeardownMaxDocs,
		convPrefix:  pipeline.ConversationIndexName,
		chunkSize:   pipeline.IndexChunkSize,
	}
}

// ConversationIndex is the conversation memory index paired with a patient index.
func (s *IndexLifecycleService) ConversationIndex(patientID string) string {
	return s.convPrefix + patientID
}

// OnDocumentDeleted runs after the document row is gone. With few documents
// left the patient index and its conversation memory are dropped entirely,
// otherwise only the entries of the deleted document are removed.
// It reports whether a full teardown happened.
func (s *IndexLifecycleService) OnDocumentDeleted(ctx context.Context, patientID, docID string) (bool, error) {
	remaining, err := s.docRepo.CountByPatient(ctx, patientID)
	if err != nil {
		return false, fmt.Errorf("count documents of %s: %w", patientID, err)
	}

	if remaining <= int64(s.teardownMax) {
		for _, name := range []string{patientID, s.ConversationIndex(patientID)} {
			existed, err := s.index.DeleteIndex(ctx, name)
			if err != nil {
				return false, fmt.Errorf("delete index %s: %w", name, err)
			}
			logging.Logger.Info("index teardown", "index", name, "existed", existed, "remaining", remaining)
		}
		return true, nil
	}

	ids, err := s.index.FindDocumentEntryIDs(ctx, patientID, docID)
	if err != nil {
		return false, fmt.Errorf("find entries of %s: %w", docID, err)
	}
	if len(ids) == 0 {
		return false, nil
	}
	if err := s.index.DeleteDocuments(ctx, patientID, ids); err != nil {
		return false, fmt.Errorf("delete entries of %s: %w", docID, err)
	}
	logging.Logger.Info("index entries removed", "index", patientID, "docID", docID, "entries", len(ids))
	return false, nil
}

// IndexDocument embeds the cleaned text of a document into the patient index.
func (s *IndexLifecycleService) IndexDocument(ctx context.Context, docID string) error {
	doc, err := s.docRepo.GetByID(ctx, docID)
	if err != nil {
		return err
	}
	progress := models.ProgressEvent{
		DocID:     doc.ID,
		UserID:    doc.UserID,
		PatientID: doc.PatientID,
		Filename:  doc.Filename,
		Step:      models.StepIndex,
		Status:    models.StatusProcessing,
	}
	emit(ctx, s.notifier, progress)

	if err := s.indexDocument(ctx, doc); err != nil {
		progress.Step = models.StepIndexError
		progress.Status = models.StatusFailed
		progress.Error = err.Error()
		emit(ctx, s.notifier, progress)
		return err
	}
	progress.Step = models.StepIndexReady
	progress.Status = models.StatusCompleted
	emit(ctx, s.notifier, progress)
	return nil
}

func (s *IndexLifecycleService) indexDocument(ctx context.Context, doc *models.Document) error {
	text, _, err := fetchPreferTranslated(ctx, s.store, doc.PatientID, doc.URL, utils.ArtifactClean)
	if err != nil {
		return err
	}
	chunks := utils.SplitText(text, s.chunkSize)
	if len(chunks) == 0 {
		return fmt.Errorf("document %s has no clean text: %w", doc.ID, models.ErrInvalidInput)
	}
	vectors, err := s.embedder.Embed(ctx, chunks)
	if err != nil {
		return fmt.Errorf("embed: %w", err)
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("embed: got %d vectors for %d chunks", len(vectors), len(chunks))
	}

	// re-indexing replaces the previous entries of the document
	old, err := s.index.FindDocumentEntryIDs(ctx, doc.PatientID, doc.ID)
	if err != nil {
		return err
	}
	if len(old) > 0 {
		if err := s.index.DeleteDocuments(ctx, doc.PatientID, old); err != nil {
			return err
		}
	}

	entries := make([]*models.IndexEntry, len(chunks))
	for i, chunk := range chunks {
		entries[i] = &models.IndexEntry{
			ID:        uuid.NewString(),
			DocID:     doc.ID,
			Position:  int32(i),
			Content:   chunk,
			Embedding: pgvector.NewVector(vectors[i]),
			Tags:      []string{doc.ID, doc.Filename},
		}
	}
	return s.index.UpsertEntries(ctx, doc.PatientID, entries)
}

// DeleteDocument removes the document row, its artifacts and the patient card
// built from it, then updates the search index.
func (s *IndexLifecycleService) DeleteDocument(ctx context.Context, docID string) (*models.DeleteDocumentResp, error) {
	doc, err := s.docRepo.GetByID(ctx, docID)
	if err != nil {
		return nil, err
	}
	if err := s.docRepo.Delete(ctx, docID); err != nil {
		return nil, err
	}
	if folder := utils.DocumentFolder(doc.URL); folder != "" {
		if err := s.store.DeleteFolder(ctx, doc.PatientID, strings.TrimSuffix(folder, "/")+"/"); err != nil {
			return nil, fmt.Errorf("delete folder %s: %w", folder, err)
		}
	}
	if err := s.store.DeleteFolder(ctx, doc.PatientID, utils.PatientSummaryFolder+"/"); err != nil {
		return nil, fmt.Errorf("delete patient summary: %w", err)
	}
	teardown, err := s.OnDocumentDeleted(ctx, doc.PatientID, doc.ID)
	if err != nil {
		return nil, err
	}
	return &models.DeleteDocumentResp{
		Message:  "Document deleted",
		DocID:    doc.ID,
		Teardown: teardown,
	}, nil
}
