package models

import (
	"path"
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

type Document struct {
	ID        string `gorm:"column:id;type:varchar(255);primaryKey" json:"id"`
	PatientID string `gorm:"column:patient_id;type:varchar(255);not null;index:idx_document_patient" json:"patient_id"`
	UserID    string `gorm:"column:user_id;type:varchar(255);not null" json:"user_id"`
	// URL is the path of the uploaded original inside the patient container, e.g. "<doc>/report.pdf".
	URL        string         `gorm:"column:url;type:text;not null" json:"url"`
	Filename   string         `gorm:"column:filename;type:varchar(512)" json:"filename"`
	Anonymized string         `gorm:"column:anonymized;type:varchar(20);default:'false';index:idx_document_anonymized" json:"anonymized"`
	Language   string         `gorm:"column:language;type:varchar(16)" json:"language"`
	Artifacts  pq.StringArray `gorm:"column:artifacts;type:text[]" json:"artifacts"`
	CreatedAt  time.Time      `gorm:"column:created_at;type:timestamp" json:"created_at"`
}

func (Document) TableName() string {
	return "documents"
}

func (d *Document) BeforeCreate(tx *gorm.DB) error {
	if d.Anonymized == "" {
		d.Anonymized = StateFalse
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now()
	}
	if d.Filename == "" {
		d.Filename = path.Base(d.URL)
	}
	return nil
}
