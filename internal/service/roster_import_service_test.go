package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/weichenlin/grouplab-api/internal/models"
	appErrors "github.com/weichenlin/grouplab-api/pkg/errors"
)

type rosterUserRepoStub struct {
	byUsername      map[string]*models.User
	created         []*models.User
	profileUpdates  []string
	passwordUpdates map[string]string
}

func newRosterUserRepoStub() *rosterUserRepoStub {
	return &rosterUserRepoStub{
		byUsername:      map[string]*models.User{},
		passwordUpdates: map[string]string{},
	}
}

func (s *rosterUserRepoStub) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	user, ok := s.byUsername[username]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return user, nil
}

func (s *rosterUserRepoStub) Create(ctx context.Context, user *models.User) error {
	user.ID = "user-" + user.Username
	s.byUsername[user.Username] = user
	s.created = append(s.created, user)
	return nil
}

func (s *rosterUserRepoStub) UpdateProfile(ctx context.Context, id, fullName string, role models.UserRole, studentID *string) error {
	s.profileUpdates = append(s.profileUpdates, id)
	return nil
}

func (s *rosterUserRepoStub) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	s.passwordUpdates[id] = passwordHash
	return nil
}

type rosterCourseRepoStub struct {
	courseID string
	enrolled []string
}

func (s *rosterCourseRepoStub) FindByID(ctx context.Context, id string) (*models.Course, error) {
	if id != s.courseID {
		return nil, sql.ErrNoRows
	}
	return &models.Course{ID: id}, nil
}

func (s *rosterCourseRepoStub) AddStudent(ctx context.Context, courseID, userID string) error {
	s.enrolled = append(s.enrolled, userID)
	return nil
}

func TestRosterImportHeaderless(t *testing.T) {
	users := newRosterUserRepoStub()
	courses := &rosterCourseRepoStub{courseID: "course-1"}
	svc := NewRosterImportService(users, courses, nil)

	csv := "B10901001,王小明\nB10901002,李小華\n"
	result, err := svc.Import(context.Background(), "course-1", strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, 2, result.Imported)
	assert.Empty(t, result.Warning)

	require.Len(t, users.created, 2)
	first := users.created[0]
	assert.Equal(t, "B10901001", first.Username)
	assert.Equal(t, "王小明", first.FullName)
	assert.Equal(t, models.RoleStudent, first.Role)
	require.NotNil(t, first.StudentID)
	assert.Equal(t, "B10901001", *first.StudentID)

	// Initial password is the last four characters of the student id.
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(first.PasswordHash), []byte("1001")))

	assert.Equal(t, []string{"user-B10901001", "user-B10901002"}, courses.enrolled)
}

func TestRosterImportChineseHeader(t *testing.T) {
	users := newRosterUserRepoStub()
	courses := &rosterCourseRepoStub{courseID: "course-1"}
	svc := NewRosterImportService(users, courses, nil)

	csv := "姓名,學號\n王小明,B10901001\n"
	result, err := svc.Import(context.Background(), "course-1", strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Imported)

	require.Len(t, users.created, 1)
	assert.Equal(t, "B10901001", users.created[0].Username)
	assert.Equal(t, "王小明", users.created[0].FullName)
}

func TestRosterImportReimportKeepsChangedPassword(t *testing.T) {
	users := newRosterUserRepoStub()
	users.byUsername["B10901001"] = &models.User{ID: "u1", Username: "B10901001", HasChangedPassword: true}
	users.byUsername["B10901002"] = &models.User{ID: "u2", Username: "B10901002", HasChangedPassword: false}
	courses := &rosterCourseRepoStub{courseID: "course-1"}
	svc := NewRosterImportService(users, courses, nil)

	csv := "student_id,name\nB10901001,王小明\nB10901002,李小華\n"
	result, err := svc.Import(context.Background(), "course-1", strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, 2, result.Imported)

	// Both profiles refresh, but only the user still on the initial password
	// gets it reset.
	assert.ElementsMatch(t, []string{"u1", "u2"}, users.profileUpdates)
	assert.NotContains(t, users.passwordUpdates, "u1")
	assert.Contains(t, users.passwordUpdates, "u2")
	assert.Empty(t, users.created)
}

func TestRosterImportEmptyFile(t *testing.T) {
	svc := NewRosterImportService(newRosterUserRepoStub(), &rosterCourseRepoStub{courseID: "course-1"}, nil)

	result, err := svc.Import(context.Background(), "course-1", strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, 0, result.Imported)
	assert.NotEmpty(t, result.Warning)
}

func TestRosterImportSkipsShortRows(t *testing.T) {
	users := newRosterUserRepoStub()
	svc := NewRosterImportService(users, &rosterCourseRepoStub{courseID: "course-1"}, nil)

	csv := "B10901001,王小明\nB10901003\n,\nB10901002,李小華\n"
	result, err := svc.Import(context.Background(), "course-1", strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, 2, result.Imported)
	assert.Len(t, users.created, 2)
}

func TestRosterImportUnknownCourse(t *testing.T) {
	svc := NewRosterImportService(newRosterUserRepoStub(), &rosterCourseRepoStub{courseID: "course-1"}, nil)

	_, err := svc.Import(context.Background(), "missing", strings.NewReader("B10901001,王小明\n"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestRosterImportGlobalSkipsEnrollment(t *testing.T) {
	users := newRosterUserRepoStub()
	courses := &rosterCourseRepoStub{courseID: "course-1"}
	svc := NewRosterImportService(users, courses, nil)

	result, err := svc.Import(context.Background(), "", strings.NewReader("B10901001,王小明\n"))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Imported)
	assert.Empty(t, courses.enrolled)
}
