package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weichenlin/grouplab-api/internal/models"
	appErrors "github.com/weichenlin/grouplab-api/pkg/errors"
)

type courseRepoStub struct {
	courses  map[string]*models.Course
	enrolled []string
	updated  *models.Course
}

func newCourseRepoStub(courses ...*models.Course) *courseRepoStub {
	stub := &courseRepoStub{courses: make(map[string]*models.Course)}
	for _, c := range courses {
		stub.courses[c.ID] = c
	}
	return stub
}

func (s *courseRepoStub) FindByID(_ context.Context, id string) (*models.Course, error) {
	course, ok := s.courses[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *course
	return &copied, nil
}

func (s *courseRepoStub) List(_ context.Context, _ models.CourseFilter) ([]models.Course, int, error) {
	out := make([]models.Course, 0, len(s.courses))
	for _, c := range s.courses {
		out = append(out, *c)
	}
	return out, len(out), nil
}

func (s *courseRepoStub) Create(_ context.Context, course *models.Course) error {
	course.ID = "course-new"
	s.courses[course.ID] = course
	return nil
}

func (s *courseRepoStub) Update(_ context.Context, course *models.Course) error {
	s.updated = course
	s.courses[course.ID] = course
	return nil
}

func (s *courseRepoStub) AddStudent(_ context.Context, courseID, userID string) error {
	s.enrolled = append(s.enrolled, courseID+"/"+userID)
	return nil
}

func (s *courseRepoStub) ListRoster(_ context.Context, _ string) ([]models.RosterStudent, error) {
	return []models.RosterStudent{{UserID: "u1", Username: "s1001", FullName: "王小明"}}, nil
}

func (s *courseRepoStub) ListUnassignedStudents(_ context.Context, _ string) ([]models.RosterStudent, error) {
	return []models.RosterStudent{{UserID: "u2", Username: "s1002"}}, nil
}

func (s *courseRepoStub) ListEnrolledByUser(_ context.Context, _ string) ([]models.Course, error) {
	out := make([]models.Course, 0, len(s.courses))
	for _, c := range s.courses {
		out = append(out, *c)
	}
	return out, nil
}

type courseGroupListerStub struct {
	groups []models.GroupDetail
}

func (s *courseGroupListerStub) ListByCourse(_ context.Context, _ string) ([]models.GroupDetail, error) {
	return s.groups, nil
}

type courseUserReaderStub struct {
	users map[string]*models.User
}

func (s *courseUserReaderStub) FindByID(_ context.Context, id string) (*models.User, error) {
	user, ok := s.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return user, nil
}

func validCourseRequest() CourseRequest {
	base := time.Date(2026, 3, 1, 23, 59, 0, 0, time.UTC)
	return CourseRequest{
		Name:             "Capstone Project",
		Year:             2026,
		Semester:         "2",
		GroupDeadline:    base,
		ProposalDeadline: base.AddDate(0, 1, 0),
		FinalDeadline:    base.AddDate(0, 3, 0),
	}
}

func TestCourseServiceCreate(t *testing.T) {
	repo := newCourseRepoStub()
	svc := NewCourseService(repo, &courseGroupListerStub{}, &courseUserReaderStub{}, nil, nil)

	course, err := svc.Create(context.Background(), validCourseRequest())
	require.NoError(t, err)
	assert.Equal(t, "course-new", course.ID)
	assert.Equal(t, "Capstone Project", course.Name)
}

func TestCourseServiceCreateRejectsBadSemester(t *testing.T) {
	repo := newCourseRepoStub()
	svc := NewCourseService(repo, &courseGroupListerStub{}, &courseUserReaderStub{}, nil, nil)

	// Semesters are "1" or "2"; anything else must be rejected before the
	// repository sees it.
	for _, semester := range []string{"3", "summer", "fall"} {
		req := validCourseRequest()
		req.Semester = semester
		_, err := svc.Create(context.Background(), req)
		require.Error(t, err, "semester %q", semester)
		assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	}
	assert.Empty(t, repo.courses)
}

func TestCourseServiceUpdateUnknownCourse(t *testing.T) {
	svc := NewCourseService(newCourseRepoStub(), &courseGroupListerStub{}, &courseUserReaderStub{}, nil, nil)

	_, err := svc.Update(context.Background(), "missing", validCourseRequest())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestCourseServiceDetail(t *testing.T) {
	repo := newCourseRepoStub(&models.Course{ID: "c1", Name: "Capstone"})
	groups := &courseGroupListerStub{groups: []models.GroupDetail{{Group: models.Group{ID: "g1", Name: "Team A"}}}}
	svc := NewCourseService(repo, groups, &courseUserReaderStub{}, nil, nil)

	detail, err := svc.Detail(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, "Capstone", detail.Course.Name)
	require.Len(t, detail.Groups, 1)
	assert.Equal(t, "g1", detail.Groups[0].ID)
	require.Len(t, detail.UnassignedStudents, 1)
	assert.Equal(t, "u2", detail.UnassignedStudents[0].UserID)
}

func TestCourseServiceEnrollStudent(t *testing.T) {
	repo := newCourseRepoStub(&models.Course{ID: "c1"})
	users := &courseUserReaderStub{users: map[string]*models.User{
		"u1": {ID: "u1", Role: models.RoleStudent},
		"p1": {ID: "p1", Role: models.RoleProfessor},
	}}
	svc := NewCourseService(repo, &courseGroupListerStub{}, users, nil, nil)

	require.NoError(t, svc.EnrollStudent(context.Background(), "c1", "u1"))
	assert.Equal(t, []string{"c1/u1"}, repo.enrolled)

	err := svc.EnrollStudent(context.Background(), "c1", "p1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	err = svc.EnrollStudent(context.Background(), "c1", "ghost")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
