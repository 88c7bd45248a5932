package models

import "time"

type AnalyzeReq struct {
	DocID string `json:"doc_id"`
	// Audience is physician, adult or young; empty means physician.
	Audience string `json:"audience"`
}

type AnalyzeResp struct {
	Message    string `json:"message"`
	DocID      string `json:"doc_id"`
	Status     string `json:"status"`
	Anonymized string `json:"anonymized"`
}

type DonationReq struct {
	Donation bool `json:"donation"`
}

type DonationResp struct {
	Message   string `json:"message"`
	Documents int    `json:"documents,omitempty"`
}

type StateResp struct {
	DocID      string `json:"doc_id"`
	Anonymized string `json:"anonymized"`
}

type SetStateReq struct {
	State string `json:"state"`
}

type TranslationReq struct {
	Lang   string         `json:"lang"`
	Fields map[string]any `json:"fields"`
}

type DetectReq struct {
	Text string `json:"text"`
}

type DeleteDocumentResp struct {
	Message  string `json:"message"`
	DocID    string `json:"doc_id"`
	Teardown bool   `json:"teardown"`
}

// BranchResult reports one branch of a fan-out call.
type BranchResult struct {
	Task   string         `json:"task"`
	Result map[string]any `json:"result,omitempty"`
	Raw    string         `json:"raw,omitempty"`
	Error  string         `json:"error,omitempty"`
}

type TimelineResp struct {
	DocID      string       `json:"doc_id"`
	Timeline   BranchResult `json:"timeline"`
	Transcript BranchResult `json:"transcript"`
	FinishedAt time.Time    `json:"finished_at"`
}
