package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/weichenlin/grouplab-api/internal/models"
)

// SubmissionRepository stores uploaded deliverables per group.
type SubmissionRepository struct {
	db *sqlx.DB
}

// NewSubmissionRepository constructs the repository.
func NewSubmissionRepository(db *sqlx.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

// Create inserts a new submission, assigning the next version for the
// (group, type) pair. Earlier versions are retained.
func (r *SubmissionRepository) Create(ctx context.Context, submission *models.Submission) error {
	if submission.ID == "" {
		submission.ID = uuid.NewString()
	}
	if submission.UploadedAt.IsZero() {
		submission.UploadedAt = time.Now().UTC()
	}
	const query = `INSERT INTO submissions (id, group_id, type, file_path, original_filename, version, uploaded_at)
        VALUES ($1, $2, $3, $4, $5,
            (SELECT COALESCE(MAX(version), 0) + 1 FROM submissions WHERE group_id = $2 AND type = $3),
            $6)
        RETURNING version`
	if err := r.db.GetContext(ctx, &submission.Version, query,
		submission.ID, submission.GroupID, submission.Type,
		submission.FilePath, submission.OriginalFilename, submission.UploadedAt); err != nil {
		return fmt.Errorf("create submission: %w", err)
	}
	return nil
}

// ListByGroup returns a group's submissions, newest first.
func (r *SubmissionRepository) ListByGroup(ctx context.Context, groupID string) ([]models.Submission, error) {
	const query = `SELECT id, group_id, type, file_path, original_filename, version, uploaded_at
        FROM submissions WHERE group_id = $1 ORDER BY uploaded_at DESC`
	var submissions []models.Submission
	if err := r.db.SelectContext(ctx, &submissions, query, groupID); err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	return submissions, nil
}

// FindByID returns a single submission.
func (r *SubmissionRepository) FindByID(ctx context.Context, id string) (*models.Submission, error) {
	const query = `SELECT id, group_id, type, file_path, original_filename, version, uploaded_at
        FROM submissions WHERE id = $1`
	var submission models.Submission
	if err := r.db.GetContext(ctx, &submission, query, id); err != nil {
		return nil, err
	}
	return &submission, nil
}
