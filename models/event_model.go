package models

import "time"

// Progress steps published while a pipeline runs.
const (
	StepSummary              = "summary"
	StepSummaryReady         = "summary ready"
	StepSummaryError         = "error summary"
	StepAnonymize            = "anonymize"
	StepAnonymizeReady       = "anonymize ready"
	StepAnonymizeError       = "error anonymize"
	StepTimeline             = "timeline"
	StepTimelineReady        = "timeline ready"
	StepTimelineError        = "error timeline"
	StepTranscript           = "transcript"
	StepTranscriptReady      = "transcript ready"
	StepTranscriptError      = "error transcript"
	StepSymptoms             = "symptoms"
	StepSymptomsReady        = "symptoms ready"
	StepSymptomsError        = "error symptoms"
	StepPatientSummary       = "patient summary"
	StepPatientSummaryReady  = "patient summary ready"
	StepPatientSummaryError  = "error patient summary"
	StepIndex                = "index"
	StepIndexReady           = "index ready"
	StepIndexError           = "error index"
	StatusProcessing         = "processing"
	StatusCompleted          = "completed"
	StatusFailed             = "failed"
	PatientSummaryDocumentID = "patient-summary"
)

type ProgressEvent struct {
	DocID     string    `json:"docId"`
	UserID    string    `json:"userId"`
	PatientID string    `json:"patientId,omitempty"`
	Status    string    `json:"status"`
	Filename  string    `json:"filename"`
	Step      string    `json:"step"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
