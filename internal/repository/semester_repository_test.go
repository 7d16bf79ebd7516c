package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/college-erp-api/internal/models"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

func TestSemesterRepositoryCreate(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSemesterRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO semesters`)).
		WithArgs(sqlmock.AnyArg(), 1, pq.StringArray{"A", "B"}, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	semester := &models.Semester{Number: 1, Divisions: pq.StringArray{"A", "B"}}
	err := repo.Create(context.Background(), semester)
	require.NoError(t, err)

	assert.NotEmpty(t, semester.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSemesterRepositoryCreateDuplicate(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSemesterRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO semesters`)).
		WillReturnError(&pq.Error{Code: "23505"})

	err := repo.Create(context.Background(), &models.Semester{Number: 1})
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))
}

func TestSemesterRepositoryFindByID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSemesterRepository(db)

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "number", "divisions", "created_at", "updated_at"}).
		AddRow("sem-1", 3, pq.StringArray{"A"}, now, now)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, number, divisions, created_at, updated_at FROM semesters WHERE id = $1 LIMIT 1`)).
		WithArgs("sem-1").
		WillReturnRows(rows)

	semester, err := repo.FindByID(context.Background(), "sem-1")
	require.NoError(t, err)

	assert.Equal(t, 3, semester.Number)
	assert.Equal(t, pq.StringArray{"A"}, semester.Divisions)
}

func TestSemesterRepositoryFindByIDNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSemesterRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, number, divisions, created_at, updated_at FROM semesters WHERE id = $1 LIMIT 1`)).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestSemesterRepositoryUpdateDivisionsMissingRow(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSemesterRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE semesters SET divisions = $2, updated_at = $3 WHERE id = $1`)).
		WithArgs("missing", pq.StringArray{"A"}, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateDivisions(context.Background(), "missing", pq.StringArray{"A"})
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestSemesterRepositoryDelete(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSemesterRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM semesters WHERE id = $1`)).
		WithArgs("sem-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), "sem-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
