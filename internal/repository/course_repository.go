package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/weichenlin/grouplab-api/internal/models"
)

// CourseRepository handles persistence of courses and their rosters.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs the repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

const courseColumns = `id, name, year, semester, group_deadline, proposal_deadline, final_deadline, created_at, updated_at`

// FindByID returns a course by its ID.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	query := fmt.Sprintf(`SELECT %s FROM courses WHERE id = $1`, courseColumns)
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		return nil, err
	}
	return &course, nil
}

// List returns courses newest offering first.
func (r *CourseRepository) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error) {
	base := `FROM courses`
	var conditions []string
	var args []interface{}

	if filter.Year > 0 {
		conditions = append(conditions, fmt.Sprintf("year = $%d", len(args)+1))
		args = append(args, filter.Year)
	}
	if filter.Semester != "" {
		conditions = append(conditions, fmt.Sprintf("semester = $%d", len(args)+1))
		args = append(args, filter.Semester)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s %s ORDER BY year DESC, semester DESC LIMIT %d OFFSET %d`,
		courseColumns, base+clause, size, offset)
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list courses: %w", err)
	}

	countQuery := "SELECT COUNT(*) " + base + clause
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count courses: %w", err)
	}
	return courses, total, nil
}

// Create persists a new course.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	course.CreatedAt = now
	course.UpdatedAt = now
	const query = `INSERT INTO courses (id, name, year, semester, group_deadline, proposal_deadline, final_deadline, created_at, updated_at)
        VALUES (:id, :name, :year, :semester, :group_deadline, :proposal_deadline, :final_deadline, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return fmt.Errorf("create course: %w", err)
	}
	return nil
}

// Update rewrites the mutable course fields.
func (r *CourseRepository) Update(ctx context.Context, course *models.Course) error {
	course.UpdatedAt = time.Now().UTC()
	const query = `UPDATE courses SET name = :name, year = :year, semester = :semester,
        group_deadline = :group_deadline, proposal_deadline = :proposal_deadline,
        final_deadline = :final_deadline, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return fmt.Errorf("update course: %w", err)
	}
	return nil
}

// AddStudent enrolls a user on the course roster. Adding an already-enrolled
// user is a no-op.
func (r *CourseRepository) AddStudent(ctx context.Context, courseID, userID string) error {
	const query = `INSERT INTO course_students (course_id, user_id, created_at)
        VALUES ($1, $2, $3) ON CONFLICT (course_id, user_id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, courseID, userID, time.Now().UTC()); err != nil {
		return fmt.Errorf("enroll student: %w", err)
	}
	return nil
}

// IsEnrolled checks roster membership for a user.
func (r *CourseRepository) IsEnrolled(ctx context.Context, courseID, userID string) (bool, error) {
	const query = `SELECT 1 FROM course_students WHERE course_id = $1 AND user_id = $2 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, courseID, userID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check enrollment: %w", err)
	}
	return true, nil
}

// ListRoster returns the students enrolled on a course.
func (r *CourseRepository) ListRoster(ctx context.Context, courseID string) ([]models.RosterStudent, error) {
	const query = `SELECT u.id AS user_id, u.username, u.full_name, u.student_id
        FROM course_students cs
        JOIN users u ON u.id = cs.user_id
        WHERE cs.course_id = $1
        ORDER BY u.student_id NULLS LAST, u.username`
	var roster []models.RosterStudent
	if err := r.db.SelectContext(ctx, &roster, query, courseID); err != nil {
		return nil, fmt.Errorf("list roster: %w", err)
	}
	return roster, nil
}

// ListUnassignedStudents returns enrolled students without any membership in a
// group of the course.
func (r *CourseRepository) ListUnassignedStudents(ctx context.Context, courseID string) ([]models.RosterStudent, error) {
	const query = `SELECT u.id AS user_id, u.username, u.full_name, u.student_id
        FROM course_students cs
        JOIN users u ON u.id = cs.user_id
        WHERE cs.course_id = $1
          AND NOT EXISTS (
            SELECT 1 FROM memberships m
            JOIN groups g ON g.id = m.group_id
            WHERE g.course_id = cs.course_id AND m.user_id = cs.user_id
          )
        ORDER BY u.student_id NULLS LAST, u.username`
	var roster []models.RosterStudent
	if err := r.db.SelectContext(ctx, &roster, query, courseID); err != nil {
		return nil, fmt.Errorf("list unassigned students: %w", err)
	}
	return roster, nil
}

// ListEnrolledByUser returns the courses a student is enrolled in, newest
// offering first.
func (r *CourseRepository) ListEnrolledByUser(ctx context.Context, userID string) ([]models.Course, error) {
	query := fmt.Sprintf(`SELECT %s FROM courses c
        WHERE EXISTS (SELECT 1 FROM course_students cs WHERE cs.course_id = c.id AND cs.user_id = $1)
        ORDER BY year DESC, semester DESC`, prefixColumns("c", courseColumns))
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, userID); err != nil {
		return nil, fmt.Errorf("list enrolled courses: %w", err)
	}
	return courses, nil
}

func prefixColumns(alias, columns string) string {
	parts := strings.Split(columns, ", ")
	for i, p := range parts {
		parts[i] = alias + "." + p
	}
	return strings.Join(parts, ", ")
}
