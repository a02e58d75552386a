package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/weichenlin/grouplab-api/internal/models"
)

// ScoreRepository stores the one-to-one grade record per group.
type ScoreRepository struct {
	db *sqlx.DB
}

// NewScoreRepository constructs the repository.
func NewScoreRepository(db *sqlx.DB) *ScoreRepository {
	return &ScoreRepository{db: db}
}

const scoreColumns = `id, group_id, team_base_score, individual_adjustments, professor_notes`

// GetOrCreate returns the score row for a group, lazily inserting a default
// row on the first grading view. Concurrent first views race on the insert;
// the conflict clause lets the loser fall through to the winner's row. Rows
// are never deleted afterwards.
func (r *ScoreRepository) GetOrCreate(ctx context.Context, groupID string) (*models.Score, error) {
	const insertQuery = `INSERT INTO scores (id, group_id, team_base_score, individual_adjustments, professor_notes)
        VALUES ($1, $2, 0, '{}', '')
        ON CONFLICT (group_id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, insertQuery, uuid.NewString(), groupID); err != nil {
		return nil, fmt.Errorf("insert score: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM scores WHERE group_id = $1`, scoreColumns)
	var score models.Score
	if err := r.db.GetContext(ctx, &score, query, groupID); err != nil {
		return nil, fmt.Errorf("load score: %w", err)
	}
	return &score, nil
}

// Update rewrites the gradeable fields.
func (r *ScoreRepository) Update(ctx context.Context, groupID string, teamBaseScore float64, professorNotes string) error {
	const query = `UPDATE scores SET team_base_score = $2, professor_notes = $3 WHERE group_id = $1`
	if _, err := r.db.ExecContext(ctx, query, groupID, teamBaseScore, professorNotes); err != nil {
		return fmt.Errorf("update score: %w", err)
	}
	return nil
}
