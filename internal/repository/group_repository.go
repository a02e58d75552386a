package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/weichenlin/grouplab-api/internal/models"
)

// GroupRepository handles persistence of groups and memberships.
type GroupRepository struct {
	db *sqlx.DB
}

// NewGroupRepository constructs the repository.
func NewGroupRepository(db *sqlx.DB) *GroupRepository {
	return &GroupRepository{db: db}
}

// FindByID returns a group by its ID.
func (r *GroupRepository) FindByID(ctx context.Context, id string) (*models.Group, error) {
	const query = `SELECT id, course_id, leader_id, name, project_name, project_description, created_at
        FROM groups WHERE id = $1`
	var group models.Group
	if err := r.db.GetContext(ctx, &group, query, id); err != nil {
		return nil, err
	}
	return &group, nil
}

// FindDetailByID returns a group with leader name and member list.
func (r *GroupRepository) FindDetailByID(ctx context.Context, id string) (*models.GroupDetail, error) {
	const query = `SELECT g.id, g.course_id, g.leader_id, g.name, g.project_name, g.project_description, g.created_at,
        u.full_name AS leader_name
        FROM groups g
        JOIN users u ON u.id = g.leader_id
        WHERE g.id = $1`
	var detail models.GroupDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	members, err := r.ListMemberships(ctx, id)
	if err != nil {
		return nil, err
	}
	detail.Members = members
	return &detail, nil
}

// ListByCourse returns every group of a course with members attached.
func (r *GroupRepository) ListByCourse(ctx context.Context, courseID string) ([]models.GroupDetail, error) {
	const query = `SELECT g.id, g.course_id, g.leader_id, g.name, g.project_name, g.project_description, g.created_at,
        u.full_name AS leader_name
        FROM groups g
        JOIN users u ON u.id = g.leader_id
        WHERE g.course_id = $1
        ORDER BY g.created_at`
	var groups []models.GroupDetail
	if err := r.db.SelectContext(ctx, &groups, query, courseID); err != nil {
		return nil, fmt.Errorf("list course groups: %w", err)
	}

	const memberQuery = `SELECT m.id, m.user_id, m.group_id, m.is_confirmed, m.created_at,
        u.full_name AS user_name, u.student_id,
        g.name AS group_name, g.project_name, g.course_id, c.name AS course_name
        FROM memberships m
        JOIN users u ON u.id = m.user_id
        JOIN groups g ON g.id = m.group_id
        JOIN courses c ON c.id = g.course_id
        WHERE g.course_id = $1
        ORDER BY m.created_at`
	var members []models.MembershipDetail
	if err := r.db.SelectContext(ctx, &members, memberQuery, courseID); err != nil {
		return nil, fmt.Errorf("list course memberships: %w", err)
	}

	byGroup := make(map[string][]models.MembershipDetail, len(groups))
	for _, m := range members {
		byGroup[m.GroupID] = append(byGroup[m.GroupID], m)
	}
	for i := range groups {
		groups[i].Members = byGroup[groups[i].ID]
	}
	return groups, nil
}

// ListMemberships returns the memberships of one group with user context.
func (r *GroupRepository) ListMemberships(ctx context.Context, groupID string) ([]models.MembershipDetail, error) {
	const query = `SELECT m.id, m.user_id, m.group_id, m.is_confirmed, m.created_at,
        u.full_name AS user_name, u.student_id,
        g.name AS group_name, g.project_name, g.course_id, c.name AS course_name
        FROM memberships m
        JOIN users u ON u.id = m.user_id
        JOIN groups g ON g.id = m.group_id
        JOIN courses c ON c.id = g.course_id
        WHERE m.group_id = $1
        ORDER BY m.created_at`
	var members []models.MembershipDetail
	if err := r.db.SelectContext(ctx, &members, query, groupID); err != nil {
		return nil, fmt.Errorf("list memberships: %w", err)
	}
	return members, nil
}

// ListMembershipsByUser returns a user's memberships across courses, for the
// dashboard view.
func (r *GroupRepository) ListMembershipsByUser(ctx context.Context, userID string) ([]models.MembershipDetail, error) {
	const query = `SELECT m.id, m.user_id, m.group_id, m.is_confirmed, m.created_at,
        u.full_name AS user_name, u.student_id,
        g.name AS group_name, g.project_name, g.course_id, c.name AS course_name
        FROM memberships m
        JOIN users u ON u.id = m.user_id
        JOIN groups g ON g.id = m.group_id
        JOIN courses c ON c.id = g.course_id
        WHERE m.user_id = $1
        ORDER BY m.created_at DESC`
	var members []models.MembershipDetail
	if err := r.db.SelectContext(ctx, &members, query, userID); err != nil {
		return nil, fmt.Errorf("list user memberships: %w", err)
	}
	return members, nil
}

// FindMembershipByID returns a membership row.
func (r *GroupRepository) FindMembershipByID(ctx context.Context, id string) (*models.Membership, error) {
	const query = `SELECT id, user_id, group_id, is_confirmed, created_at FROM memberships WHERE id = $1`
	var membership models.Membership
	if err := r.db.GetContext(ctx, &membership, query, id); err != nil {
		return nil, err
	}
	return &membership, nil
}

// HasMembershipInCourse checks whether a user holds any membership, confirmed
// or not, in any group of the course.
func (r *GroupRepository) HasMembershipInCourse(ctx context.Context, userID, courseID string) (bool, error) {
	const query = `SELECT 1 FROM memberships m
        JOIN groups g ON g.id = m.group_id
        WHERE m.user_id = $1 AND g.course_id = $2
        LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, userID, courseID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check course membership: %w", err)
	}
	return true, nil
}

// IsMember checks whether a user belongs to the group.
func (r *GroupRepository) IsMember(ctx context.Context, groupID, userID string) (bool, error) {
	const query = `SELECT 1 FROM memberships WHERE group_id = $1 AND user_id = $2 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, groupID, userID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check group membership: %w", err)
	}
	return true, nil
}

// ConfirmMembership flips an unconfirmed membership to confirmed. The
// transition is one-way.
func (r *GroupRepository) ConfirmMembership(ctx context.Context, id string) error {
	const query = `UPDATE memberships SET is_confirmed = TRUE WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("confirm membership: %w", err)
	}
	return nil
}

// CreateWithMembers inserts the group, a confirmed membership for the leader
// and unconfirmed memberships for the selected members in one transaction.
func (r *GroupRepository) CreateWithMembers(ctx context.Context, group *models.Group, memberIDs []string) (err error) {
	if group.ID == "" {
		group.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	group.CreatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin group transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const insertGroup = `INSERT INTO groups (id, course_id, leader_id, name, project_name, project_description, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err = tx.ExecContext(ctx, insertGroup, group.ID, group.CourseID, group.LeaderID,
		group.Name, group.ProjectName, group.ProjectDescription, now); err != nil {
		return fmt.Errorf("insert group: %w", err)
	}

	if err = insertMembership(ctx, tx, group.LeaderID, group.ID, true, now); err != nil {
		return err
	}
	for _, memberID := range memberIDs {
		if err = insertMembership(ctx, tx, memberID, group.ID, false, now); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit group transaction: %w", err)
	}
	return nil
}

// UpdateWithMembers rewrites the group fields and replaces the non-leader
// membership set wholesale: every membership except the leader's is deleted,
// the new selection is inserted unconfirmed, and the leader's membership is
// upserted confirmed. The leader upsert runs unconditionally; "the leader has
// a confirmed membership" is a standing invariant re-asserted on every
// mutating path rather than assumed from prior state.
func (r *GroupRepository) UpdateWithMembers(ctx context.Context, group *models.Group, memberIDs []string) (err error) {
	now := time.Now().UTC()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin group transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const updateGroup = `UPDATE groups SET name = $2, project_name = $3, project_description = $4 WHERE id = $1`
	if _, err = tx.ExecContext(ctx, updateGroup, group.ID, group.Name, group.ProjectName, group.ProjectDescription); err != nil {
		return fmt.Errorf("update group: %w", err)
	}

	const deleteMembers = `DELETE FROM memberships WHERE group_id = $1 AND user_id <> $2`
	if _, err = tx.ExecContext(ctx, deleteMembers, group.ID, group.LeaderID); err != nil {
		return fmt.Errorf("delete memberships: %w", err)
	}

	for _, memberID := range memberIDs {
		if memberID == group.LeaderID {
			continue
		}
		if err = insertMembership(ctx, tx, memberID, group.ID, false, now); err != nil {
			return err
		}
	}

	const upsertLeader = `INSERT INTO memberships (id, user_id, group_id, is_confirmed, created_at)
        VALUES ($1, $2, $3, TRUE, $4)
        ON CONFLICT (user_id, group_id) DO UPDATE SET is_confirmed = TRUE`
	if _, err = tx.ExecContext(ctx, upsertLeader, uuid.NewString(), group.LeaderID, group.ID, now); err != nil {
		return fmt.Errorf("upsert leader membership: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit group transaction: %w", err)
	}
	return nil
}

// ListGradeRows flattens memberships with score and contribution context for
// the grades report, optionally filtered to one course.
func (r *GroupRepository) ListGradeRows(ctx context.Context, courseID string) ([]models.GradeExportRow, error) {
	query := `SELECT u.student_id, u.full_name, g.name AS group_name, g.project_name,
        s.team_base_score AS team_score, c.percentage, c.description
        FROM memberships m
        JOIN users u ON u.id = m.user_id
        JOIN groups g ON g.id = m.group_id
        LEFT JOIN scores s ON s.group_id = g.id
        LEFT JOIN contributions c ON c.group_id = g.id AND c.student_id = m.user_id`
	var args []interface{}
	if courseID != "" {
		query += ` WHERE g.course_id = $1`
		args = append(args, courseID)
	}
	query += ` ORDER BY g.name, u.student_id NULLS LAST`

	var rows []models.GradeExportRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list grade rows: %w", err)
	}
	return rows, nil
}

func insertMembership(ctx context.Context, tx *sqlx.Tx, userID, groupID string, confirmed bool, now time.Time) error {
	const query = `INSERT INTO memberships (id, user_id, group_id, is_confirmed, created_at)
        VALUES ($1, $2, $3, $4, $5)`
	if _, err := tx.ExecContext(ctx, query, uuid.NewString(), userID, groupID, confirmed, now); err != nil {
		return fmt.Errorf("insert membership: %w", err)
	}
	return nil
}
