package models

import "time"

type ClinicalEvent struct {
	ID         string     `gorm:"column:id;type:varchar(255);primaryKey" json:"id"`
	PatientID  string     `gorm:"column:patient_id;type:varchar(255);not null;index:idx_event_patient" json:"patient_id"`
	Type       string     `gorm:"column:type;type:varchar(50);index:idx_event_type" json:"type"`
	Name       string     `gorm:"column:name;type:text" json:"name"`
	Date       *time.Time `gorm:"column:date;type:timestamp" json:"date,omitempty"`
	Checked    *bool      `gorm:"column:checked" json:"checked,omitempty"`
	DocumentID string     `gorm:"column:document_id;type:varchar(255)" json:"document_id"`
	Notes      string     `gorm:"column:notes;type:text" json:"notes"`
	CreatedAt  time.Time  `gorm:"column:created_at;type:timestamp;default:now()" json:"created_at"`
}

func (ClinicalEvent) TableName() string {
	return "clinical_events"
}

// CardEventTypes are the event types that feed the patient card, in render order.
var CardEventTypes = []string{
	"symptom",
	"drug",
	"allergy",
	"disease",
	"treatment",
	"gene",
	"other",
	"anomalies",
}

type EventFilter struct {
	Types       []string
	CheckedOnly bool
}
