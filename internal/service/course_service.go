package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/weichenlin/grouplab-api/internal/models"
	appErrors "github.com/weichenlin/grouplab-api/pkg/errors"
)

type courseRepository interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
	List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error)
	Create(ctx context.Context, course *models.Course) error
	Update(ctx context.Context, course *models.Course) error
	AddStudent(ctx context.Context, courseID, userID string) error
	ListRoster(ctx context.Context, courseID string) ([]models.RosterStudent, error)
	ListUnassignedStudents(ctx context.Context, courseID string) ([]models.RosterStudent, error)
	ListEnrolledByUser(ctx context.Context, userID string) ([]models.Course, error)
}

type courseGroupLister interface {
	ListByCourse(ctx context.Context, courseID string) ([]models.GroupDetail, error)
}

type courseUserReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// CourseRequest carries the editable course fields.
type CourseRequest struct {
	Name             string    `json:"name" validate:"required"`
	Year             int       `json:"year" validate:"required,gte=2000"`
	Semester         string    `json:"semester" validate:"required,oneof=1 2"`
	GroupDeadline    time.Time `json:"group_deadline" validate:"required"`
	ProposalDeadline time.Time `json:"proposal_deadline" validate:"required"`
	FinalDeadline    time.Time `json:"final_deadline" validate:"required"`
}

// CourseService manages course offerings and their rosters.
type CourseService struct {
	courses  courseRepository
	groups   courseGroupLister
	users    courseUserReader
	validate *validator.Validate
	logger   *zap.Logger
}

// NewCourseService constructs CourseService.
func NewCourseService(courses courseRepository, groups courseGroupLister, users courseUserReader, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{courses: courses, groups: groups, users: users, validate: validate, logger: logger}
}

// Create registers a new course offering.
func (s *CourseService) Create(ctx context.Context, req CourseRequest) (*models.Course, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	course := &models.Course{
		Name:             req.Name,
		Year:             req.Year,
		Semester:         req.Semester,
		GroupDeadline:    req.GroupDeadline,
		ProposalDeadline: req.ProposalDeadline,
		FinalDeadline:    req.FinalDeadline,
	}
	if err := s.courses.Create(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course")
	}
	s.logger.Info("course created",
		zap.String("course_id", course.ID),
		zap.String("name", course.Name),
		zap.Int("year", course.Year))
	return course, nil
}

// Update rewrites the editable fields of an existing course.
func (s *CourseService) Update(ctx context.Context, courseID string, req CourseRequest) (*models.Course, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	course, err := s.findCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	course.Name = req.Name
	course.Year = req.Year
	course.Semester = req.Semester
	course.GroupDeadline = req.GroupDeadline
	course.ProposalDeadline = req.ProposalDeadline
	course.FinalDeadline = req.FinalDeadline
	if err := s.courses.Update(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update course")
	}
	s.logger.Info("course updated", zap.String("course_id", course.ID))
	return course, nil
}

// List returns courses matching the filter, newest offering first.
func (s *CourseService) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error) {
	courses, total, err := s.courses.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	return courses, total, nil
}

// Detail returns a course with its groups and the enrolled students not yet in
// any group of the course.
func (s *CourseService) Detail(ctx context.Context, courseID string) (*models.CourseDetail, error) {
	course, err := s.findCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	groups, err := s.groups.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list groups")
	}
	unassigned, err := s.courses.ListUnassignedStudents(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list unassigned students")
	}
	return &models.CourseDetail{Course: *course, Groups: groups, UnassignedStudents: unassigned}, nil
}

// Roster returns the students enrolled on a course.
func (s *CourseService) Roster(ctx context.Context, courseID string) ([]models.RosterStudent, error) {
	if _, err := s.findCourse(ctx, courseID); err != nil {
		return nil, err
	}
	roster, err := s.courses.ListRoster(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list roster")
	}
	return roster, nil
}

// EnrollStudent adds one student to a course roster. Enrolling someone already
// on the roster is a no-op.
func (s *CourseService) EnrollStudent(ctx context.Context, courseID, userID string) error {
	if _, err := s.findCourse(ctx, courseID); err != nil {
		return err
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	if user.Role != models.RoleStudent {
		return appErrors.Clone(appErrors.ErrValidation, "only students can be enrolled")
	}
	if err := s.courses.AddStudent(ctx, courseID, userID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enroll student")
	}
	s.logger.Info("student enrolled", zap.String("course_id", courseID), zap.String("user_id", userID))
	return nil
}

// CoursesForUser returns the courses a student is enrolled in.
func (s *CourseService) CoursesForUser(ctx context.Context, userID string) ([]models.Course, error) {
	courses, err := s.courses.ListEnrolledByUser(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrolled courses")
	}
	return courses, nil
}

func (s *CourseService) findCourse(ctx context.Context, courseID string) (*models.Course, error) {
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	return course, nil
}
