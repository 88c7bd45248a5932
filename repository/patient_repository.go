package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"medpipe_backend/models"
)

type patientRepository struct {
	DB *gorm.DB
}

func NewPatientRepository(db *gorm.DB) PatientRepository {
	return &patientRepository{DB: db}
}

func notFound(err error, what, id string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s %s: %w", what, id, models.ErrNotFound)
	}
	return err
}

func (r *patientRepository) GetByID(ctx context.Context, id string) (*models.Patient, error) {
	var p models.Patient
	err := r.DB.WithContext(ctx).Where("id = ?", id).First(&p).Error
	if err != nil {
		return nil, notFound(err, "patient", id)
	}
	return &p, nil
}

func (r *patientRepository) ClaimSummary(ctx context.Context, id string, from []string, at time.Time) (bool, error) {
	res := r.DB.WithContext(ctx).
		Model(&models.Patient{}).
		Where("id = ? AND summary IN ?", id, from).
		Updates(map[string]interface{}{
			"summary":      models.StateInProcess,
			"summary_date": at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *patientRepository) SetSummaryState(ctx context.Context, id string, state string, at *time.Time) error {
	updates := map[string]interface{}{"summary": state}
	if at != nil {
		updates["summary_date"] = *at
	}
	res := r.DB.WithContext(ctx).Model(&models.Patient{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("patient %s: %w", id, models.ErrNotFound)
	}
	return nil
}

func (r *patientRepository) SetDonation(ctx context.Context, id string, donation bool) error {
	res := r.DB.WithContext(ctx).Model(&models.Patient{}).Where("id = ?", id).Update("donation", donation)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("patient %s: %w", id, models.ErrNotFound)
	}
	return nil
}

func (r *patientRepository) SetLanguage(ctx context.Context, id string, lang string) error {
	return r.DB.WithContext(ctx).Model(&models.Patient{}).Where("id = ?", id).Update("language", lang).Error
}
