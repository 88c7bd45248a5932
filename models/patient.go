package models

import (
	"time"

	"gorm.io/gorm"
)

type Patient struct {
	ID          string     `gorm:"column:id;type:varchar(255);primaryKey" json:"id"`
	UserID      string     `gorm:"column:user_id;type:varchar(255);not null;index:idx_patient_user" json:"user_id"`
	Summary     string     `gorm:"column:summary;type:varchar(20);default:'false';index:idx_patient_summary" json:"summary"`
	SummaryDate *time.Time `gorm:"column:summary_date;type:timestamp" json:"summary_date,omitempty"`
	Donation    bool       `gorm:"column:donation;default:false" json:"donation"`
	Language    string     `gorm:"column:language;type:varchar(16)" json:"language"`
	CreatedAt   time.Time  `gorm:"column:created_at;type:timestamp" json:"created_at"`
}

func (Patient) TableName() string {
	return "patients"
}

func (p *Patient) BeforeCreate(tx *gorm.DB) error {
	if p.Summary == "" {
		p.Summary = StateFalse
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	return nil
}

// SummaryStatus is what GET /patients/:id/summary answers with.
type SummaryStatus struct {
	Summary     string     `json:"summary"`
	SummaryDate *time.Time `json:"summaryDate"`
}
