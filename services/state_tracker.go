package services

import (
	"context"
	"fmt"
	"time"

	"medpipe_backend/models"
	"medpipe_backend/repository"
)

// StateTracker owns the processing state fields of patients and documents.
// Claims are conditional updates, completions overwrite.
type StateTracker struct {
	patientRepo repository.PatientRepository
	docRepo     repository.DocumentRepository
	now         func() time.Time
}

func NewStateTracker(patientRepo repository.PatientRepository, docRepo repository.DocumentRepository) *StateTracker {
	return &StateTracker{
		patientRepo: patientRepo,
		docRepo:     docRepo,
		now:         time.Now,
	}
}

func (t *StateTracker) GetPatientState(ctx context.Context, patientID string) (*models.SummaryStatus, error) {
	p, err := t.patientRepo.GetByID(ctx, patientID)
	if err != nil {
		return nil, err
	}
	return &models.SummaryStatus{Summary: p.Summary, SummaryDate: p.SummaryDate}, nil
}

func (t *StateTracker) GetDocumentState(ctx context.Context, docID string) (string, error) {
	doc, err := t.docRepo.GetByID(ctx, docID)
	if err != nil {
		return "", err
	}
	return doc.Anonymized, nil
}

// ClaimPatientSummary moves summary to inProcess when it is false, or true as
// well on regenerate. The returned time is the new summaryDate.
func (t *StateTracker) ClaimPatientSummary(ctx context.Context, patientID string, regenerate bool) (bool, time.Time, error) {
	from := []string{models.StateFalse}
	if regenerate {
		from = append(from, models.StateTrue)
	}
	at := t.now()
	ok, err := t.patientRepo.ClaimSummary(ctx, patientID, from, at)
	if err != nil {
		return false, time.Time{}, fmt.Errorf("claim summary of %s: %w", patientID, err)
	}
	return ok, at, nil
}

func (t *StateTracker) ClaimDocumentAnonymization(ctx context.Context, docID string) (bool, error) {
	ok, err := t.docRepo.ClaimAnonymization(ctx, docID)
	if err != nil {
		return false, fmt.Errorf("claim anonymization of %s: %w", docID, err)
	}
	return ok, nil
}

func (t *StateTracker) CompletePatientSummary(ctx context.Context, patientID string, ok bool) error {
	at := t.now()
	return t.patientRepo.SetSummaryState(ctx, patientID, models.StateFromResult(ok), &at)
}

func (t *StateTracker) CompleteDocumentAnonymization(ctx context.Context, docID string, ok bool) error {
	return t.docRepo.SetAnonymizedState(ctx, docID, models.StateFromResult(ok))
}

func (t *StateTracker) SetPatientState(ctx context.Context, patientID, state string) error {
	if !models.ValidState(state) {
		return fmt.Errorf("state %q: %w", state, models.ErrInvalidInput)
	}
	var at *time.Time
	if state != models.StateFalse {
		now := t.now()
		at = &now
	}
	return t.patientRepo.SetSummaryState(ctx, patientID, state, at)
}

func (t *StateTracker) SetDocumentState(ctx context.Context, docID, state string) error {
	if !models.ValidState(state) {
		return fmt.Errorf("state %q: %w", state, models.ErrInvalidInput)
	}
	return t.docRepo.SetAnonymizedState(ctx, docID, state)
}
