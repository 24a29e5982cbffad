package postgres_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"school-resources-backend/internal/domain"
	"school-resources-backend/internal/repository"
	"school-resources-backend/internal/repository/postgres"
)

var loanColumns = []string{"id", "teacher_id", "area_id", "grade_id", "section_id", "status", "is_authorized",
	"loan_date", "return_date", "notes", "rejection_reason", "created_on", "updated_on", "resource_ids"}

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func TestLoanRepository_Create(t *testing.T) {
	db, mock := newMock(t)
	repo := postgres.NewLoanRepository(db)
	ctx := context.Background()
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	t.Run("Success", func(t *testing.T) {
		l := &domain.Loan{TeacherID: "t1", AreaID: "a", GradeID: "g", SectionID: "s",
			Status: domain.LoanStatusActive, LoanDate: day, ReturnDate: day.AddDate(0, 0, 2), ResourceIDs: []string{"r1", "r2"}}

		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO loans").
			WithArgs(sqlmock.AnyArg(), "t1", "a", "g", "s", domain.LoanStatusActive, false,
				day, day.AddDate(0, 0, 2), "", sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO loan_resources").WithArgs(sqlmock.AnyArg(), "r1").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO loan_resources").WithArgs(sqlmock.AnyArg(), "r2").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := repo.Create(ctx, l)
		require.NoError(t, err)
		assert.NotEmpty(t, l.ID)
		assert.False(t, l.CreatedOn.IsZero())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Join row failure rolls back", func(t *testing.T) {
		l := &domain.Loan{ID: "loan-2", TeacherID: "t1", AreaID: "a", GradeID: "g", SectionID: "s",
			Status: domain.LoanStatusActive, LoanDate: day, ResourceIDs: []string{"r1"}}

		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO loans").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO loan_resources").WithArgs("loan-2", "r1").WillReturnError(assert.AnError)
		mock.ExpectRollback()

		err := repo.Create(ctx, l)
		assert.ErrorIs(t, err, assert.AnError)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLoanRepository_GetByID(t *testing.T) {
	db, mock := newMock(t)
	repo := postgres.NewLoanRepository(db)
	ctx := context.Background()
	now := time.Now()

	t.Run("Success", func(t *testing.T) {
		rows := sqlmock.NewRows(loanColumns).
			AddRow("loan-1", "t1", "a", "g", "s", "Activo", true, now, now.AddDate(0, 0, 3), "", "", now, now, "{r1,r2}")
		mock.ExpectQuery(`SELECT (.+) FROM loans l LEFT JOIN loan_resources lr (.+) WHERE l.id = \$1 GROUP BY l.id`).
			WithArgs("loan-1").
			WillReturnRows(rows)

		l, err := repo.GetByID(ctx, "loan-1")
		require.NoError(t, err)
		assert.Equal(t, domain.LoanStatusActive, l.Status)
		assert.True(t, l.IsAuthorized)
		assert.Equal(t, []string{"r1", "r2"}, l.ResourceIDs)
	})

	t.Run("Null return date", func(t *testing.T) {
		rows := sqlmock.NewRows(loanColumns).
			AddRow("loan-3", "t1", "a", "g", "s", "Activo", false, now, nil, "", "", now, now, "{}")
		mock.ExpectQuery("SELECT (.+) FROM loans l").WithArgs("loan-3").WillReturnRows(rows)

		l, err := repo.GetByID(ctx, "loan-3")
		require.NoError(t, err)
		assert.True(t, l.ReturnDate.IsZero())
		assert.Empty(t, l.ResourceIDs)
	})

	t.Run("NotFound", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM loans l").WithArgs("missing").WillReturnError(sql.ErrNoRows)

		l, err := repo.GetByID(ctx, "missing")
		assert.ErrorIs(t, err, domain.ErrNotFound)
		assert.Nil(t, l)
	})
}

func TestLoanRepository_List(t *testing.T) {
	db, mock := newMock(t)
	repo := postgres.NewLoanRepository(db)
	now := time.Now()

	mock.ExpectQuery(`SELECT count\(\*\) FROM loans l WHERE 1=1 AND l.teacher_id = \$1 AND l.status = \$2`).
		WithArgs("t1", domain.LoanStatusOverdue).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery(`GROUP BY l.id ORDER BY l.created_on DESC LIMIT \$3 OFFSET \$4`).
		WithArgs("t1", domain.LoanStatusOverdue, int32(2), int32(2)).
		WillReturnRows(sqlmock.NewRows(loanColumns).
			AddRow("loan-9", "t1", "a", "g", "s", "Atrasado", true, now, now, "", "", now, now, "{r4}"))

	loans, total, err := repo.List(context.Background(), repository.LoanFilter{TeacherID: "t1", Status: domain.LoanStatusOverdue}, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, int32(3), total)
	require.Len(t, loans, 1)
	assert.Equal(t, []string{"r4"}, loans[0].ResourceIDs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoanRepository_ConditionalUpdates(t *testing.T) {
	db, mock := newMock(t)
	repo := postgres.NewLoanRepository(db)
	ctx := context.Background()

	t.Run("Authorize matched", func(t *testing.T) {
		mock.ExpectExec(`UPDATE loans SET is_authorized = TRUE`).
			WithArgs(sqlmock.AnyArg(), "loan-1", domain.LoanStatusRejected).
			WillReturnResult(sqlmock.NewResult(0, 1))
		ok, err := repo.Authorize(ctx, "loan-1")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("Authorize lost race", func(t *testing.T) {
		mock.ExpectExec(`UPDATE loans SET is_authorized = TRUE`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		ok, err := repo.Authorize(ctx, "loan-1")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("Reject", func(t *testing.T) {
		mock.ExpectExec(`UPDATE loans SET status = \$1, rejection_reason = \$2`).
			WithArgs(domain.LoanStatusRejected, "sin stock", sqlmock.AnyArg(), "loan-2").
			WillReturnResult(sqlmock.NewResult(0, 1))
		ok, err := repo.Reject(ctx, "loan-2", "sin stock")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("MarkReturned", func(t *testing.T) {
		day := time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC)
		mock.ExpectExec(`UPDATE loans SET status = \$1, return_date = \$2, notes = \$3`).
			WithArgs(domain.LoanStatusReturned, day, "[12/03/2026, 10:00:00]", sqlmock.AnyArg(), "loan-3",
				domain.LoanStatusActive, domain.LoanStatusOverdue).
			WillReturnResult(sqlmock.NewResult(0, 1))
		ok, err := repo.MarkReturned(ctx, "loan-3", day, "[12/03/2026, 10:00:00]")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("Database error", func(t *testing.T) {
		mock.ExpectExec(`UPDATE loans`).WillReturnError(errors.New("connection reset"))
		ok, err := repo.Authorize(ctx, "loan-4")
		assert.Error(t, err)
		assert.False(t, ok)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoanRepository_MarkOverdue(t *testing.T) {
	db, mock := newMock(t)
	repo := postgres.NewLoanRepository(db)
	today := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	due := today.AddDate(0, 0, -2)

	mock.ExpectQuery(`UPDATE loans SET status = \$1(.+)RETURNING id, teacher_id, return_date`).
		WithArgs(domain.LoanStatusOverdue, domain.LoanStatusActive, "2026-03-10").
		WillReturnRows(sqlmock.NewRows([]string{"id", "teacher_id", "return_date"}).
			AddRow("loan-1", "t1", due).
			AddRow("loan-2", "t2", due))

	loans, err := repo.MarkOverdue(context.Background(), today)
	require.NoError(t, err)
	require.Len(t, loans, 2)
	assert.Equal(t, domain.LoanStatusOverdue, loans[0].Status)
	assert.Equal(t, "t2", loans[1].TeacherID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoanRepository_ResourcesHeldElsewhere(t *testing.T) {
	db, mock := newMock(t)
	repo := postgres.NewLoanRepository(db)

	mock.ExpectQuery(`SELECT DISTINCT x.resource_id FROM loan_resources x`).
		WithArgs("loan-1", domain.LoanStatusActive, domain.LoanStatusOverdue).
		WillReturnRows(sqlmock.NewRows([]string{"resource_id"}).AddRow("r2"))

	ids, err := repo.ResourcesHeldElsewhere(context.Background(), "loan-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"r2"}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoanRepository_Delete(t *testing.T) {
	db, mock := newMock(t)
	repo := postgres.NewLoanRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM loan_resources WHERE loan_id = \$1`).WithArgs("loan-1").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`DELETE FROM loans WHERE id = \$1`).WithArgs("loan-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Delete(context.Background(), "loan-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
