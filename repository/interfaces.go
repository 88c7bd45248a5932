package repository

import (
	"context"
	"time"

	"medpipe_backend/models"
)

type PatientRepository interface {
	GetByID(ctx context.Context, id string) (*models.Patient, error)
	// ClaimSummary moves summary to inProcess only when its current value is in from.
	ClaimSummary(ctx context.Context, id string, from []string, at time.Time) (bool, error)
	SetSummaryState(ctx context.Context, id string, state string, at *time.Time) error
	SetDonation(ctx context.Context, id string, donation bool) error
	SetLanguage(ctx context.Context, id string, lang string) error
}

type DocumentRepository interface {
	GetByID(ctx context.Context, id string) (*models.Document, error)
	ListByPatient(ctx context.Context, patientID string) ([]*models.Document, error)
	CountByPatient(ctx context.Context, patientID string) (int64, error)
	ListPendingAnonymization(ctx context.Context, patientID string) ([]*models.Document, error)

	ClaimAnonymization(ctx context.Context, id string) (bool, error)
	SetAnonymizedState(ctx context.Context, id string, state string) error
	SetLanguage(ctx context.Context, id string, lang string) error
	AddArtifact(ctx context.Context, id string, key string) error

	Delete(ctx context.Context, id string) error
}

type EventRepository interface {
	Find(ctx context.Context, patientID string, filter models.EventFilter) ([]*models.ClinicalEvent, error)
	CountByPatient(ctx context.Context, patientID string) (int64, error)
}
