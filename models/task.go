package models

import (
	"fmt"
	"time"
)

type TaskKind string

const (
	TaskSummarizeDocument  TaskKind = "summarize_document"
	TaskAnonymizeDocument  TaskKind = "anonymize_document"
	TaskAnonymizePatient   TaskKind = "anonymize_patient"
	TaskPatientSummary     TaskKind = "patient_summary"
	TaskIndexDocument      TaskKind = "index_document"
	TaskTimelineTranscript TaskKind = "timeline_transcript"
)

const (
	EntityDocument = "document"
	EntityPatient  = "patient"
)

// Task is one unit of background work, keyed by the entity it mutates.
type Task struct {
	ID         string            `json:"id"`
	Kind       TaskKind          `json:"kind"`
	EntityType string            `json:"entity_type"`
	EntityID   string            `json:"entity_id"`
	Payload    map[string]string `json:"payload,omitempty"`
	EnqueuedAt time.Time         `json:"enqueued_at"`
}

// Key identifies the (entity, kind) pair used for de-duplication locks.
func (t *Task) Key() string {
	return fmt.Sprintf("%s:%s:%s", t.EntityType, t.EntityID, t.Kind)
}
