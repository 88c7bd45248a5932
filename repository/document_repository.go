package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"medpipe_backend/models"
)

type documentRepository struct {
	DB *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) DocumentRepository {
	return &documentRepository{DB: db}
}

func (r *documentRepository) GetByID(ctx context.Context, id string) (*models.Document, error) {
	var doc models.Document
	err := r.DB.WithContext(ctx).Where("id = ?", id).First(&doc).Error
	if err != nil {
		return nil, notFound(err, "document", id)
	}
	return &doc, nil
}

func (r *documentRepository) ListByPatient(ctx context.Context, patientID string) ([]*models.Document, error) {
	var docs []*models.Document
	err := r.DB.WithContext(ctx).Where("patient_id = ?", patientID).Order("created_at").Find(&docs).Error
	return docs, err
}

func (r *documentRepository) CountByPatient(ctx context.Context, patientID string) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&models.Document{}).Where("patient_id = ?", patientID).Count(&n).Error
	return n, err
}

func (r *documentRepository) ListPendingAnonymization(ctx context.Context, patientID string) ([]*models.Document, error) {
	var docs []*models.Document
	err := r.DB.WithContext(ctx).
		Where("patient_id = ? AND anonymized = ?", patientID, models.StateFalse).
		Order("created_at").
		Find(&docs).Error
	return docs, err
}

// ClaimAnonymization is the false -> inProcess compare-and-set.
func (r *documentRepository) ClaimAnonymization(ctx context.Context, id string) (bool, error) {
	res := r.DB.WithContext(ctx).
		Model(&models.Document{}).
		Where("id = ? AND anonymized = ?", id, models.StateFalse).
		Update("anonymized", models.StateInProcess)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *documentRepository) SetAnonymizedState(ctx context.Context, id string, state string) error {
	res := r.DB.WithContext(ctx).Model(&models.Document{}).Where("id = ?", id).Update("anonymized", state)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("document %s: %w", id, models.ErrNotFound)
	}
	return nil
}

func (r *documentRepository) SetLanguage(ctx context.Context, id string, lang string) error {
	return r.DB.WithContext(ctx).Model(&models.Document{}).Where("id = ?", id).Update("language", lang).Error
}

func (r *documentRepository) AddArtifact(ctx context.Context, id string, key string) error {
	return r.DB.WithContext(ctx).
		Model(&models.Document{}).
		Where("id = ? AND NOT (? = ANY(COALESCE(artifacts, '{}')))", id, key).
		Update("artifacts", gorm.Expr("array_append(COALESCE(artifacts, '{}'), ?)", key)).Error
}

func (r *documentRepository) Delete(ctx context.Context, id string) error {
	res := r.DB.WithContext(ctx).Where("id = ?", id).Delete(&models.Document{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("document %s: %w", id, models.ErrNotFound)
	}
	return nil
}
