package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

func newScoreRepoMock(t *testing.T) (*ScoreRepository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return NewScoreRepository(sqlx.NewDb(db, "sqlmock")), mock, func() { db.Close() }
}

func scoreRow(id, groupID string, base float64, notes string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "group_id", "team_base_score", "individual_adjustments", "professor_notes"}).
		AddRow(id, groupID, base, []byte(`{}`), notes)
}

func TestScoreRepositoryGetOrCreateFresh(t *testing.T) {
	repo, mock, cleanup := newScoreRepoMock(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (group_id) DO NOTHING")).
		WithArgs(sqlmock.AnyArg(), "g1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("FROM scores WHERE group_id = $1")).
		WithArgs("g1").
		WillReturnRows(scoreRow("score-1", "g1", 0, ""))

	score, err := repo.GetOrCreate(context.Background(), "g1")
	require.NoError(t, err)
	require.Equal(t, "g1", score.GroupID)
	require.Equal(t, 0.0, score.TeamBaseScore)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScoreRepositoryGetOrCreateConcurrentInsert(t *testing.T) {
	repo, mock, cleanup := newScoreRepoMock(t)
	defer cleanup()

	// A concurrent first view already inserted the row, so the insert
	// affects nothing and the select returns the existing record.
	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (group_id) DO NOTHING")).
		WithArgs(sqlmock.AnyArg(), "g1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("FROM scores WHERE group_id = $1")).
		WithArgs("g1").
		WillReturnRows(scoreRow("score-existing", "g1", 85, "graded already"))

	score, err := repo.GetOrCreate(context.Background(), "g1")
	require.NoError(t, err)
	require.Equal(t, "score-existing", score.ID)
	require.Equal(t, 85.0, score.TeamBaseScore)
	require.Equal(t, "graded already", score.ProfessorNotes)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScoreRepositoryUpdate(t *testing.T) {
	repo, mock, cleanup := newScoreRepoMock(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE scores SET team_base_score = $2, professor_notes = $3")).
		WithArgs("g1", 90.0, "great final demo").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Update(context.Background(), "g1", 90, "great final demo"))
	require.NoError(t, mock.ExpectationsWereMet())
}
