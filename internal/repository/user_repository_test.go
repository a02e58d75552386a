package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/weichenlin/grouplab-api/internal/models"
)

func newUserRepoMock(t *testing.T) (*UserRepository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return NewUserRepository(sqlx.NewDb(db, "sqlmock")), mock, func() { db.Close() }
}

func TestUserRepositoryFindByUsername(t *testing.T) {
	repo, mock, cleanup := newUserRepoMock(t)
	defer cleanup()

	rows := sqlmock.NewRows([]string{"id", "username", "password_hash", "full_name", "role", "student_id", "has_changed_password"}).
		AddRow("u1", "s1001", "hash", "王小明", "student", "1101001", false)
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE username = $1")).
		WithArgs("s1001").
		WillReturnRows(rows)

	user, err := repo.FindByUsername(context.Background(), "s1001")
	require.NoError(t, err)
	require.Equal(t, "u1", user.ID)
	require.Equal(t, models.RoleStudent, user.Role)
	require.False(t, user.HasChangedPassword)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryFindByUsernameMissing(t *testing.T) {
	repo, mock, cleanup := newUserRepoMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE username = $1")).
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByUsername(context.Background(), "ghost")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryMarkPasswordChanged(t *testing.T) {
	repo, mock, cleanup := newUserRepoMock(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET has_changed_password = TRUE")).
		WithArgs("u1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.MarkPasswordChanged(context.Background(), "u1", time.Now().UTC()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryUpdateProfileKeepsPassword(t *testing.T) {
	repo, mock, cleanup := newUserRepoMock(t)
	defer cleanup()

	studentID := "1101001"
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET full_name = $2, role = $3, student_id = $4")).
		WithArgs("u1", "王小明", models.RoleStudent, studentID, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateProfile(context.Background(), "u1", "王小明", models.RoleStudent, &studentID))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryListFiltersAndCounts(t *testing.T) {
	repo, mock, cleanup := newUserRepoMock(t)
	defer cleanup()

	role := models.RoleStudent
	rows := sqlmock.NewRows([]string{"id", "username", "full_name", "role"}).
		AddRow("u1", "s1001", "王小明", "student").
		AddRow("u2", "s1002", "李小華", "student")
	mock.ExpectQuery(`SELECT .* FROM users WHERE 1=1 AND role = \$1 AND \(LOWER\(username\) LIKE \$2`).
		WithArgs(role, "%小%").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM users WHERE 1=1")).
		WithArgs(role, "%小%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	users, total, err := repo.List(context.Background(), models.UserFilter{Role: &role, Search: "小"})
	require.NoError(t, err)
	require.Len(t, users, 2)
	require.Equal(t, 2, total)
	require.NoError(t, mock.ExpectationsWereMet())
}
