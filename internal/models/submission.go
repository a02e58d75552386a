package models

import "time"

// SubmissionType distinguishes the two deliverables a group uploads.
type SubmissionType string

const (
	SubmissionProposalDraft SubmissionType = "proposal_draft"
	SubmissionFinalReport   SubmissionType = "final_report"
)

// Valid reports whether the value is one of the known submission types.
func (t SubmissionType) Valid() bool {
	return t == SubmissionProposalDraft || t == SubmissionFinalReport
}

// Submission is one uploaded file version for a group. Versions are retained,
// never overwritten.
type Submission struct {
	ID               string         `db:"id" json:"id"`
	GroupID          string         `db:"group_id" json:"group_id"`
	Type             SubmissionType `db:"type" json:"type"`
	FilePath         string         `db:"file_path" json:"file_path"`
	OriginalFilename string         `db:"original_filename" json:"original_filename"`
	Version          int            `db:"version" json:"version"`
	UploadedAt       time.Time      `db:"uploaded_at" json:"uploaded_at"`
}
