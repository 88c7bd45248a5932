package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"medpipe_backend/models"
	"medpipe_backend/pkg/logging"
	"medpipe_backend/platform/events"
	"medpipe_backend/platform/storage"
	"medpipe_backend/repository"
	"medpipe_backend/utils"
)

type PatientSummaryService struct {
	patientRepo repository.PatientRepository
	docRepo     repository.DocumentRepository
	eventRepo   repository.EventRepository
	store       storage.BlobStore
	gateway     *Gateway
	translator  FieldTranslator
	notifier    events.Notifier
	state       *StateTracker
	dispatcher  Dispatcher
}

func NewPatientSummaryService(
	patientRepo repository.PatientRepository,
	docRepo repository.DocumentRepository,
	eventRepo repository.EventRepository,
	store storage.BlobStore,
	gateway *Gateway,
	translator FieldTranslator,
	notifier events.Notifier,
	state *StateTracker) *PatientSummaryService {
	return &PatientSummaryService{
		patientRepo: patientRepo,
		docRepo:     docRepo,
		eventRepo:   eventRepo,
		store:       store,
		gateway:     gateway,
		translator:  translator,
		notifier:    notifier,
		state:       state,
	}
}

// SetDispatcher is called once during bootstrap; the worker needs this
// service, so it cannot be a constructor argument.
func (s *PatientSummaryService) SetDispatcher(d Dispatcher) {
	s.dispatcher = d
}

// RequestPatientSummary starts a card composition unless one is running or a
// finished card exists and regenerate is false.
func (s *PatientSummaryService) RequestPatientSummary(ctx context.Context, patientID string, regenerate bool) (*models.SummaryStatus, error) {
	p, err := s.patientRepo.GetByID(ctx, patientID)
	if err != nil {
		return nil, err
	}
	current := &models.SummaryStatus{Summary: p.Summary, SummaryDate: p.SummaryDate}
	if p.Summary == models.StateInProcess || (p.Summary == models.StateTrue && !regenerate) {
		return current, nil
	}

	docs, err := s.docRepo.CountByPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	evs, err := s.eventRepo.CountByPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	if docs == 0 && evs == 0 {
		return nil, models.ErrNoPatientData
	}

	claimed, at, err := s.state.ClaimPatientSummary(ctx, patientID, regenerate)
	if err != nil {
		return nil, err
	}
	if !claimed {
		// somebody else won the claim
		return s.state.GetPatientState(ctx, patientID)
	}

	task := &models.Task{
		Kind:       models.TaskPatientSummary,
		EntityType: models.EntityPatient,
		EntityID:   patientID,
	}
	if err := s.dispatcher.Dispatch(ctx, task); err != nil {
		if cerr := s.state.CompletePatientSummary(ctx, patientID, false); cerr != nil {
			logging.Logger.Error("fail reset summary state", "error", cerr, "patientID", patientID)
		}
		return nil, err
	}
	return &models.SummaryStatus{Summary: models.StateInProcess, SummaryDate: &at}, nil
}

// RunSummary composes the card of a claimed patient and writes the terminal state.
func (s *PatientSummaryService) RunSummary(ctx context.Context, patientID string) error {
	p, err := s.patientRepo.GetByID(ctx, patientID)
	if err != nil {
		if cerr := s.state.CompletePatientSummary(ctx, patientID, false); cerr != nil {
			logging.Logger.Error("fail reset summary state", "error", cerr, "patientID", patientID)
		}
		return err
	}
	progress := models.ProgressEvent{
		DocID:     models.PatientSummaryDocumentID,
		UserID:    p.UserID,
		PatientID: patientID,
		Step:      models.StepPatientSummary,
		Status:    models.StatusProcessing,
	}
	emit(ctx, s.notifier, progress)

	_, err = s.ComposeCard(ctx, patientID)
	if cerr := s.state.CompletePatientSummary(ctx, patientID, err == nil); cerr != nil {
		logging.Logger.Error("fail complete summary state", "error", cerr, "patientID", patientID)
	}
	if err != nil {
		progress.Step = models.StepPatientSummaryError
		progress.Status = models.StatusFailed
		progress.Error = err.Error()
		emit(ctx, s.notifier, progress)
		return err
	}
	progress.Step = models.StepPatientSummaryReady
	progress.Status = models.StatusCompleted
	emit(ctx, s.notifier, progress)
	return nil
}

// ComposeCard builds the patient card from document summaries and confirmed
// events. Any failure is returned to the caller.
func (s *PatientSummaryService) ComposeCard(ctx context.Context, patientID string) (map[string]any, error) {
	p, err := s.patientRepo.GetByID(ctx, patientID)
	if err != nil {
		return nil, err
	}
	docs, err := s.docRepo.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}

	summaries, err := s.collectSummaries(ctx, patientID)
	if err != nil {
		return nil, err
	}
	docsDigest := utils.NotProvided
	if summaries != "" {
		docsDigest, err = s.gateway.Invoke(ctx, SelectProfile(GatewayCombine, 0, 0), documentsDigestPrompt, map[string]string{"text": summaries})
		if err != nil {
			return nil, fmt.Errorf("documents digest: %w", err)
		}
	}

	evs, err := s.eventRepo.Find(ctx, patientID, models.EventFilter{Types: models.CardEventTypes, CheckedOnly: true})
	if err != nil {
		return nil, err
	}
	eventsDigest := utils.NotProvided
	if listing := RenderEventListing(evs); listing != "" {
		eventsDigest, err = s.gateway.Invoke(ctx, SelectProfile(GatewayCombine, 0, 0), eventsDigestPrompt, map[string]string{"text": listing})
		if err != nil {
			return nil, fmt.Errorf("events digest: %w", err)
		}
	}

	raw, err := s.gateway.Invoke(ctx, SelectProfile(GatewayPatientCard, 0, 0), patientCardPrompt, map[string]string{
		"documents": docsDigest,
		"events":    eventsDigest,
	})
	if err != nil {
		return nil, fmt.Errorf("patient card: %w", err)
	}
	card, err := utils.ParseStructuredOutput(raw, cardKeys)
	if err != nil {
		return nil, err
	}

	working, err := json.Marshal(card)
	if err != nil {
		return nil, err
	}
	if err := s.store.Upload(ctx, patientID, utils.PatientCardKey(true), string(working)); err != nil {
		return nil, fmt.Errorf("upload card: %w", err)
	}

	lang := MostCommonLanguage(docs)
	if lang == "" {
		lang = p.Language
	} else if lang != p.Language {
		if err := s.patientRepo.SetLanguage(ctx, patientID, lang); err != nil {
			logging.Logger.Warn("fail update patient language", "error", err, "patientID", patientID)
		}
	}
	translated, err := s.translator.TranslateFields(ctx, card, lang)
	if err != nil {
		return nil, fmt.Errorf("translate card to %s: %w", lang, err)
	}
	local, err := json.Marshal(translated)
	if err != nil {
		return nil, err
	}
	if err := s.store.Upload(ctx, patientID, utils.PatientCardKey(false), string(local)); err != nil {
		return nil, fmt.Errorf("upload card: %w", err)
	}
	return card, nil
}

func (s *PatientSummaryService) collectSummaries(ctx context.Context, patientID string) (string, error) {
	keys, err := s.store.List(ctx, patientID, "")
	if err != nil {
		return "", fmt.Errorf("list artifacts: %w", err)
	}
	var found []string
	for _, k := range keys {
		if utils.IsDocumentSummaryKey(k) {
			found = append(found, k)
		}
	}
	sort.Strings(found)

	var b strings.Builder
	for i, k := range found {
		text, err := s.store.Download(ctx, patientID, k)
		if err != nil {
			return "", fmt.Errorf("download %s: %w", k, err)
		}
		n := strconv.Itoa(i + 1)
		b.WriteString("<Document " + n + ">\n")
		b.WriteString(text)
		b.WriteString("\n</Document " + n + ">\n")
	}
	return b.String(), nil
}

// RenderEventListing groups events by type and writes one line per event:
//
//	Drug (2):
//	- ibuprofen (2024-03-01)
func RenderEventListing(evs []*models.ClinicalEvent) string {
	byType := make(map[string][]*models.ClinicalEvent)
	for _, ev := range evs {
		byType[ev.Type] = append(byType[ev.Type], ev)
	}
	var b strings.Builder
	for _, t := range models.CardEventTypes {
		group := byType[t]
		if len(group) == 0 {
			continue
		}
		fmt.Fprintf(&b, "%s (%d):\n", strings.ToUpper(t[:1])+t[1:], len(group))
		for _, ev := range group {
			date := "no date"
			if ev.Date != nil {
				date = ev.Date.Format("2006-01-02")
			}
			fmt.Fprintf(&b, "- %s (%s)\n", ev.Name, date)
		}
	}
	return b.String()
}

// MostCommonLanguage returns the language shared by most documents. Ties go
// to the language seen first.
func MostCommonLanguage(docs []*models.Document) string {
	counts := make(map[string]int)
	var order []string
	for _, d := range docs {
		if d.Language == "" {
			continue
		}
		if counts[d.Language] == 0 {
			order = append(order, d.Language)
		}
		counts[d.Language]++
	}
	best, bestN := "", 0
	for _, lang := range order {
		if counts[lang] > bestN {
			best, bestN = lang, counts[lang]
		}
	}
	return best
}
