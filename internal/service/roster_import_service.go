package service

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/weichenlin/grouplab-api/internal/models"
	"github.com/weichenlin/grouplab-api/internal/roster"
	appErrors "github.com/weichenlin/grouplab-api/pkg/errors"
)

type rosterUserRepository interface {
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	UpdateProfile(ctx context.Context, id, fullName string, role models.UserRole, studentID *string) error
	UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error
}

type rosterCourseRepository interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
	AddStudent(ctx context.Context, courseID, userID string) error
}

// ImportResult summarises a roster import. Skipped rows are aggregate-only:
// they are neither counted nor individually reported.
type ImportResult struct {
	Imported int    `json:"imported"`
	Warning  string `json:"warning,omitempty"`
}

// RosterImportService turns uploaded roster files into user upserts and
// course enrollments.
type RosterImportService struct {
	users   rosterUserRepository
	courses rosterCourseRepository
	logger  *zap.Logger
}

// NewRosterImportService constructs RosterImportService.
func NewRosterImportService(users rosterUserRepository, courses rosterCourseRepository, logger *zap.Logger) *RosterImportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RosterImportService{users: users, courses: courses, logger: logger}
}

// Import parses the uploaded UTF-8 delimited file and upserts one student per
// usable row. courseID may be empty for a global import; when set, each
// imported student is also added to the course roster. Rows commit one by one;
// there is no cross-row transaction.
func (s *RosterImportService) Import(ctx context.Context, courseID string, file io.Reader) (*ImportResult, error) {
	if courseID != "" {
		if _, err := s.courses.FindByID(ctx, courseID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
		}
	}

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "file must be UTF-8 delimited text")
	}
	if len(rows) == 0 {
		return &ImportResult{Imported: 0, Warning: "the uploaded file is empty"}, nil
	}

	layout := roster.DetectLayout(rows)

	count := 0
	for _, row := range rows[layout.DataStart:] {
		record, ok := roster.Extract(row, layout)
		if !ok {
			continue
		}
		userID, err := s.upsertStudent(ctx, record)
		if err != nil {
			return nil, err
		}
		if courseID != "" {
			if err := s.courses.AddStudent(ctx, courseID, userID); err != nil {
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enroll imported student")
			}
		}
		count++
	}

	s.logger.Info("roster imported",
		zap.String("course_id", courseID),
		zap.Bool("has_header", layout.HasHeader),
		zap.Int("imported", count))

	return &ImportResult{Imported: count}, nil
}

// upsertStudent creates or updates the user keyed by username = student id.
// New users and users who never changed the initial password get the last four
// characters of the student id as password; users who already changed theirs
// keep it. has_changed_password is never reset on re-import.
func (s *RosterImportService) upsertStudent(ctx context.Context, record roster.Record) (string, error) {
	studentID := record.StudentID
	existing, err := s.users.FindByUsername(ctx, studentID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up student")
	}

	if existing == nil {
		hash, err := hashPassword(roster.InitialPassword(studentID))
		if err != nil {
			return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash initial password")
		}
		user := &models.User{
			Username:     studentID,
			PasswordHash: hash,
			FullName:     record.Name,
			Role:         models.RoleStudent,
			StudentID:    &studentID,
		}
		if err := s.users.Create(ctx, user); err != nil {
			return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
		}
		return user.ID, nil
	}

	if err := s.users.UpdateProfile(ctx, existing.ID, record.Name, models.RoleStudent, &studentID); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}
	if !existing.HasChangedPassword {
		hash, err := hashPassword(roster.InitialPassword(studentID))
		if err != nil {
			return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash initial password")
		}
		if err := s.users.UpdatePassword(ctx, existing.ID, hash, time.Now().UTC()); err != nil {
			return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reset initial password")
		}
	}
	return existing.ID, nil
}
