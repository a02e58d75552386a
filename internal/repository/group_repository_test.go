package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/weichenlin/grouplab-api/internal/models"
)

func newGroupRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestGroupRepositoryCreateWithMembers(t *testing.T) {
	db, mock, cleanup := newGroupRepoMock(t)
	defer cleanup()

	repo := NewGroupRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO groups")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	// Leader first, confirmed.
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO memberships")).
		WithArgs(sqlmock.AnyArg(), "leader", sqlmock.AnyArg(), true, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO memberships")).
		WithArgs(sqlmock.AnyArg(), "alice", sqlmock.AnyArg(), false, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO memberships")).
		WithArgs(sqlmock.AnyArg(), "bob", sqlmock.AnyArg(), false, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	group := &models.Group{CourseID: "course-1", LeaderID: "leader", Name: "Team", ProjectName: "Project"}
	require.NoError(t, repo.CreateWithMembers(context.Background(), group, []string{"alice", "bob"}))
	require.NotEmpty(t, group.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGroupRepositoryCreateWithMembersRollsBack(t *testing.T) {
	db, mock, cleanup := newGroupRepoMock(t)
	defer cleanup()

	repo := NewGroupRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO groups")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO memberships")).
		WillReturnError(context.DeadlineExceeded)
	mock.ExpectRollback()

	group := &models.Group{CourseID: "course-1", LeaderID: "leader", Name: "Team", ProjectName: "Project"}
	require.Error(t, repo.CreateWithMembers(context.Background(), group, nil))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGroupRepositoryUpdateWithMembersReassertsLeader(t *testing.T) {
	db, mock, cleanup := newGroupRepoMock(t)
	defer cleanup()

	repo := NewGroupRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE groups SET")).
		WithArgs("g1", "New name", "New project", "").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM memberships WHERE group_id = $1 AND user_id <> $2")).
		WithArgs("g1", "leader").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO memberships")).
		WithArgs(sqlmock.AnyArg(), "carol", "g1", false, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	// The leader membership is upserted confirmed on every edit.
	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (user_id, group_id) DO UPDATE SET is_confirmed = TRUE")).
		WithArgs(sqlmock.AnyArg(), "leader", "g1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	group := &models.Group{ID: "g1", CourseID: "course-1", LeaderID: "leader", Name: "New name", ProjectName: "New project"}
	require.NoError(t, repo.UpdateWithMembers(context.Background(), group, []string{"carol", "leader"}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGroupRepositoryConfirmMembership(t *testing.T) {
	db, mock, cleanup := newGroupRepoMock(t)
	defer cleanup()

	repo := NewGroupRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE memberships SET is_confirmed = TRUE WHERE id = $1")).
		WithArgs("m1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.ConfirmMembership(context.Background(), "m1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGroupRepositoryListGradeRows(t *testing.T) {
	db, mock, cleanup := newGroupRepoMock(t)
	defer cleanup()

	repo := NewGroupRepository(db)

	rows := sqlmock.NewRows([]string{"student_id", "full_name", "group_name", "project_name", "team_score", "percentage", "description"}).
		AddRow("B10901001", "王小明", "第一組", "智慧農場", 88.0, 30.0, "後端開發").
		AddRow("B10901002", "李小華", "第一組", "智慧農場", nil, nil, nil)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT u.student_id, u.full_name, g.name AS group_name")).
		WithArgs("course-1").
		WillReturnRows(rows)

	list, err := repo.ListGradeRows(context.Background(), "course-1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.NotNil(t, list[0].TeamScore)
	require.Nil(t, list[1].TeamScore)
	require.Nil(t, list[1].Percentage)
	require.NoError(t, mock.ExpectationsWereMet())
}
