package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/weichenlin/grouplab-api/internal/models"
)

// ContributionRepository stores per-student contribution declarations.
type ContributionRepository struct {
	db *sqlx.DB
}

// NewContributionRepository constructs the repository.
func NewContributionRepository(db *sqlx.DB) *ContributionRepository {
	return &ContributionRepository{db: db}
}

// Upsert writes the contribution for a (group, student) pair, replacing any
// earlier declaration.
func (r *ContributionRepository) Upsert(ctx context.Context, contribution *models.Contribution) error {
	if contribution.ID == "" {
		contribution.ID = uuid.NewString()
	}
	const query = `INSERT INTO contributions (id, group_id, student_id, description, percentage)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (group_id, student_id)
        DO UPDATE SET description = EXCLUDED.description, percentage = EXCLUDED.percentage`
	if _, err := r.db.ExecContext(ctx, query, contribution.ID, contribution.GroupID,
		contribution.StudentID, contribution.Description, contribution.Percentage); err != nil {
		return fmt.Errorf("upsert contribution: %w", err)
	}
	return nil
}

// ListByGroup returns all contribution declarations for a group.
func (r *ContributionRepository) ListByGroup(ctx context.Context, groupID string) ([]models.Contribution, error) {
	const query = `SELECT id, group_id, student_id, description, percentage
        FROM contributions WHERE group_id = $1`
	var contributions []models.Contribution
	if err := r.db.SelectContext(ctx, &contributions, query, groupID); err != nil {
		return nil, fmt.Errorf("list contributions: %w", err)
	}
	return contributions, nil
}
