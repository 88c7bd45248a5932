package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"medpipe_backend/config"
	"medpipe_backend/models"
	"medpipe_backend/pkg/logging"
	"medpipe_backend/platform/events"
	"medpipe_backend/platform/storage"
	"medpipe_backend/repository"
	"medpipe_backend/utils"
)

// SummaryRequest points a summarization run at one document.
type SummaryRequest struct {
	PatientID string
	DocID     string
	DocURL    string
	UserID    string
	Filename  string
	Lang      string
	Task      SummarizationTask
}

func summaryRequestFor(doc *models.Document, task SummarizationTask) SummaryRequest {
	return SummaryRequest{
		PatientID: doc.PatientID,
		DocID:     doc.ID,
		DocURL:    doc.URL,
		UserID:    doc.UserID,
		Filename:  doc.Filename,
		Lang:      doc.Language,
		Task:      task,
	}
}

type SummaryResult struct {
	Task   SummarizationTask
	Result map[string]any
	// Raw is set when the model answer could not be parsed.
	Raw string
}

type SummarizationService struct {
	store           storage.BlobStore
	gateway         *Gateway
	translator      FieldTranslator
	notifier        events.Notifier
	docRepo         repository.DocumentRepository
	chunkSize       int
	categorizeLimit int
}

func NewSummarizationService(
	store storage.BlobStore,
	gateway *Gateway,
	translator FieldTranslator,
	notifier events.Notifier,
	docRepo repository.DocumentRepository,
	pipeline config.PipelineConfig) *SummarizationService {
	return &SummarizationService{
		store:           store,
		gateway:         gateway,
		translator:      translator,
		notifier:        notifier,
		docRepo:         docRepo,
		chunkSize:       pipeline.SummaryChunkSize,
		categorizeLimit: pipeline.CategorizeTokenLimit,
	}
}

// Summarize runs one summarization task in the background style: failures
// end up in the log and in an error progress event, never in the caller.
func (s *SummarizationService) Summarize(ctx context.Context, req SummaryRequest) {
	if _, err := s.run(ctx, req); err != nil {
		logging.Logger.Error("fail Summarize", "error", err, "docID", req.DocID, "task", req.Task)
	}
}

// TimelineAndTranscript runs both extractions in parallel and waits for both.
// A failing branch does not cancel the other one.
func (s *SummarizationService) TimelineAndTranscript(ctx context.Context, req SummaryRequest) *models.TimelineResp {
	resp := &models.TimelineResp{DocID: req.DocID}
	var g errgroup.Group
	branch := func(task SummarizationTask, out *models.BranchResult) {
		g.Go(func() error {
			r := req
			r.Task = task
			out.Task = string(task)
			res, err := s.run(ctx, r)
			if err != nil {
				logging.Logger.Error("fail TimelineAndTranscript", "error", err, "docID", req.DocID, "task", task)
				out.Error = err.Error()
				return nil
			}
			out.Result = res.Result
			out.Raw = res.Raw
			return nil
		})
	}
	branch(TaskTimeline, &resp.Timeline)
	branch(TaskTranscript, &resp.Transcript)
	_ = g.Wait()
	resp.FinishedAt = time.Now()
	return resp
}

func (s *SummarizationService) run(ctx context.Context, req SummaryRequest) (*SummaryResult, error) {
	spec, ok := taskSpecs[req.Task]
	if !ok {
		return nil, fmt.Errorf("summarization task %q: %w", req.Task, models.ErrInvalidInput)
	}
	progress := models.ProgressEvent{
		DocID:     req.DocID,
		UserID:    req.UserID,
		PatientID: req.PatientID,
		Filename:  req.Filename,
		Step:      spec.Step,
		Status:    models.StatusProcessing,
	}
	emit(ctx, s.notifier, progress)

	res, err := s.summarize(ctx, req, spec)
	if err != nil {
		progress.Step = spec.ErrorStep
		progress.Status = models.StatusFailed
		progress.Error = err.Error()
		emit(ctx, s.notifier, progress)
		return nil, err
	}
	progress.Step = spec.ReadyStep
	progress.Status = models.StatusCompleted
	emit(ctx, s.notifier, progress)
	return res, nil
}

func (s *SummarizationService) summarize(ctx context.Context, req SummaryRequest, spec taskSpec) (*SummaryResult, error) {
	text, _, err := fetchPreferTranslated(ctx, s.store, req.PatientID, req.DocURL, utils.ArtifactExtracted)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("document %s has no extracted text: %w", req.DocID, models.ErrInvalidInput)
	}

	input := text
	profile := SelectProfile(GatewayExtract, 0, s.categorizeLimit)
	if spec.Chunked {
		input, err = s.mapChunks(ctx, text, spec)
		if err != nil {
			return nil, err
		}
		profile = SelectProfile(GatewayCombine, 0, s.categorizeLimit)
	}

	raw, err := s.gateway.Invoke(ctx, profile, spec.Reduce, map[string]string{
		"text":     input,
		"audience": spec.Audience,
	})
	if err != nil {
		return nil, fmt.Errorf("reduce: %w", err)
	}

	result := &SummaryResult{Task: req.Task}
	parsed, perr := utils.ParseStructuredOutput(raw, spec.Keys)
	if perr != nil {
		// keep what the model said, untranslated
		logging.Logger.Warn("unparseable model answer, storing raw output", "error", perr, "docID", req.DocID, "task", req.Task)
		result.Raw = raw
		if err := s.persist(ctx, req, spec.Artifact, true, raw); err != nil {
			return nil, err
		}
		if err := s.persist(ctx, req, spec.Artifact, false, raw); err != nil {
			return nil, err
		}
		return result, nil
	}
	result.Result = parsed

	working, err := json.Marshal(parsed)
	if err != nil {
		return nil, err
	}
	if err := s.persist(ctx, req, spec.Artifact, true, string(working)); err != nil {
		return nil, err
	}

	translated, err := s.translator.TranslateFields(ctx, parsed, req.Lang)
	if err != nil {
		return nil, fmt.Errorf("translate to %s: %w", req.Lang, err)
	}
	local, err := json.Marshal(translated)
	if err != nil {
		return nil, err
	}
	if err := s.persist(ctx, req, spec.Artifact, false, string(local)); err != nil {
		return nil, err
	}
	return result, nil
}

// mapChunks summarizes chunk by chunk, in order, and wraps every answer so the
// reduce prompt can tell the parts apart.
func (s *SummarizationService) mapChunks(ctx context.Context, text string, spec taskSpec) (string, error) {
	it := utils.NewChunkIterator(text, s.chunkSize)
	var b strings.Builder
	for i := 1; ; i++ {
		chunk, ok := it.Next()
		if !ok {
			break
		}
		profile := SelectProfile(GatewayCategorize, utils.EstimateTokens(chunk), s.categorizeLimit)
		out, err := s.gateway.Invoke(ctx, profile, spec.Map, map[string]string{"text": chunk})
		if err != nil {
			return "", fmt.Errorf("map chunk %d: %w", i, err)
		}
		n := strconv.Itoa(i)
		b.WriteString("<Complete Document " + n + ">\n")
		b.WriteString(out)
		b.WriteString("\n</Complete Document " + n + ">\n")
	}
	return b.String(), nil
}

func (s *SummarizationService) persist(ctx context.Context, req SummaryRequest, kind utils.ArtifactKind, translated bool, content string) error {
	key := utils.DocumentArtifactKey(req.DocURL, kind, translated)
	if err := s.store.Upload(ctx, req.PatientID, key, content); err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}
	recordArtifact(ctx, s.docRepo, req.DocID, key)
	return nil
}

// fetchPreferTranslated downloads the working-language artifact when it
// exists and the original one otherwise. The bool reports which one was used.
func fetchPreferTranslated(ctx context.Context, store storage.BlobStore, container, docURL string, kind utils.ArtifactKind) (string, bool, error) {
	key := utils.DocumentArtifactKey(docURL, kind, true)
	translated, err := store.Exists(ctx, container, key)
	if err != nil {
		return "", false, fmt.Errorf("stat %s: %w", key, err)
	}
	if !translated {
		key = utils.DocumentArtifactKey(docURL, kind, false)
	}
	text, err := store.Download(ctx, container, key)
	if err != nil {
		return "", false, fmt.Errorf("download %s: %w", key, err)
	}
	return text, translated, nil
}

func recordArtifact(ctx context.Context, docRepo repository.DocumentRepository, docID, key string) {
	if docRepo == nil || docID == "" {
		return
	}
	if err := docRepo.AddArtifact(ctx, docID, key); err != nil {
		logging.Logger.Warn("fail record artifact", "error", err, "docID", docID, "key", key)
	}
}
