package repository

import (
	"context"

	"gorm.io/gorm"

	"medpipe_backend/models"
)

type eventRepository struct {
	DB *gorm.DB
}

func NewEventRepository(db *gorm.DB) EventRepository {
	return &eventRepository{DB: db}
}

func (r *eventRepository) Find(ctx context.Context, patientID string, filter models.EventFilter) ([]*models.ClinicalEvent, error) {
	q := r.DB.WithContext(ctx).Where("patient_id = ?", patientID)
	if filter.CheckedOnly {
		q = q.Where("checked = ?", true)
	}
	if len(filter.Types) > 0 {
		q = q.Where("type IN ?", filter.Types)
	}
	var events []*models.ClinicalEvent
	err := q.Order("date").Find(&events).Error
	return events, err
}

func (r *eventRepository) CountByPatient(ctx context.Context, patientID string) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&models.ClinicalEvent{}).Where("patient_id = ?", patientID).Count(&n).Error
	return n, err
}
