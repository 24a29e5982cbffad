package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"school-resources-backend/internal/domain"
	"school-resources-backend/internal/logger"
	"school-resources-backend/internal/repository"
)

type loanRepository struct {
	db *sql.DB
}

func NewLoanRepository(db *sql.DB) repository.LoanRepository {
	return &loanRepository{db: db}
}

const loanSelect = `SELECT l.id, l.teacher_id, l.area_id, l.grade_id, l.section_id, l.status, l.is_authorized,
	       l.loan_date, l.return_date, COALESCE(l.notes, ''), COALESCE(l.rejection_reason, ''),
	       l.created_on, l.updated_on,
	       COALESCE(array_agg(lr.resource_id ORDER BY lr.resource_id) FILTER (WHERE lr.resource_id IS NOT NULL), '{}')
	FROM loans l
	LEFT JOIN loan_resources lr ON lr.loan_id = l.id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLoan(s rowScanner) (*domain.Loan, error) {
	var (
		l          domain.Loan
		returnDate sql.NullTime
		resources  pq.StringArray
	)
	err := s.Scan(&l.ID, &l.TeacherID, &l.AreaID, &l.GradeID, &l.SectionID, &l.Status, &l.IsAuthorized,
		&l.LoanDate, &returnDate, &l.Notes, &l.RejectionReason, &l.CreatedOn, &l.UpdatedOn, &resources)
	if err != nil {
		return nil, err
	}
	if returnDate.Valid {
		l.ReturnDate = returnDate.Time
	}
	l.ResourceIDs = []string(resources)
	return &l, nil
}

func (r *loanRepository) Create(ctx context.Context, l *domain.Loan) error {
	logger.EnterMethod("loanRepository.Create", "teacherID", l.TeacherID, "resources", len(l.ResourceIDs))
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	now := time.Now()
	l.CreatedOn = now
	l.UpdatedOn = now

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		logger.ExitMethodWithError("loanRepository.Create", err)
		return err
	}

	var returnDate any
	if !l.ReturnDate.IsZero() {
		returnDate = l.ReturnDate
	}
	query := `INSERT INTO loans (id, teacher_id, area_id, grade_id, section_id, status, is_authorized, loan_date, return_date, notes, created_on, updated_on)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	if _, err = tx.ExecContext(ctx, query, l.ID, l.TeacherID, l.AreaID, l.GradeID, l.SectionID, l.Status, l.IsAuthorized,
		l.LoanDate, returnDate, l.Notes, l.CreatedOn, l.UpdatedOn); err != nil {
		_ = tx.Rollback()
		logger.ExitMethodWithError("loanRepository.Create", err, "loanID", l.ID)
		return fmt.Errorf("insert loan: %w", err)
	}

	for _, resourceID := range l.ResourceIDs {
		if _, err = tx.ExecContext(ctx, `INSERT INTO loan_resources (loan_id, resource_id) VALUES ($1, $2)`, l.ID, resourceID); err != nil {
			_ = tx.Rollback()
			logger.ExitMethodWithError("loanRepository.Create", err, "loanID", l.ID, "resourceID", resourceID)
			return fmt.Errorf("insert loan resource %s: %w", resourceID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		logger.ExitMethodWithError("loanRepository.Create", err, "loanID", l.ID)
		return err
	}
	logger.ExitMethod("loanRepository.Create", "loanID", l.ID)
	return nil
}

func (r *loanRepository) GetByID(ctx context.Context, id string) (*domain.Loan, error) {
	query := loanSelect + ` WHERE l.id = $1 GROUP BY l.id`
	l, err := scanLoan(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("loan %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return l, nil
}

func (r *loanRepository) List(ctx context.Context, filter repository.LoanFilter, page, pageSize int32) ([]domain.Loan, int32, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	where := ` WHERE 1=1`
	args := []any{}
	if filter.TeacherID != "" {
		args = append(args, filter.TeacherID)
		where += fmt.Sprintf(" AND l.teacher_id = $%d", len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where += fmt.Sprintf(" AND l.status = $%d", len(args))
	}

	var count int32
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM loans l`+where, args...).Scan(&count); err != nil {
		return nil, 0, err
	}

	query := loanSelect + where + fmt.Sprintf(" GROUP BY l.id ORDER BY l.created_on DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, pageSize, offset)

	loans, err := r.queryLoans(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return loans, count, nil
}

func (r *loanRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM loan_resources WHERE loan_id = $1`, id); err != nil {
		_ = tx.Rollback()
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM loans WHERE id = $1`, id); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (r *loanRepository) Authorize(ctx context.Context, id string) (bool, error) {
	query := `UPDATE loans SET is_authorized = TRUE, updated_on = $1
	          WHERE id = $2 AND is_authorized = FALSE AND status <> $3`
	return r.execMatched(ctx, query, time.Now(), id, domain.LoanStatusRejected)
}

func (r *loanRepository) Reject(ctx context.Context, id, reason string) (bool, error) {
	query := `UPDATE loans SET status = $1, rejection_reason = $2, updated_on = $3
	          WHERE id = $4 AND is_authorized = FALSE AND status <> $1`
	return r.execMatched(ctx, query, domain.LoanStatusRejected, reason, time.Now(), id)
}

func (r *loanRepository) MarkReturned(ctx context.Context, id string, returnDate time.Time, notes string) (bool, error) {
	query := `UPDATE loans SET status = $1, return_date = $2, notes = $3, updated_on = $4
	          WHERE id = $5 AND is_authorized = TRUE AND status IN ($6, $7)`
	return r.execMatched(ctx, query, domain.LoanStatusReturned, returnDate, notes, time.Now(), id,
		domain.LoanStatusActive, domain.LoanStatusOverdue)
}

func (r *loanRepository) MarkOverdue(ctx context.Context, today time.Time) ([]domain.Loan, error) {
	query := `UPDATE loans SET status = $1, updated_on = NOW()
	          WHERE status = $2 AND is_authorized = TRUE AND return_date < $3
	          RETURNING id, teacher_id, return_date`
	rows, err := r.db.QueryContext(ctx, query, domain.LoanStatusOverdue, domain.LoanStatusActive, today.Format("2006-01-02"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var loans []domain.Loan
	for rows.Next() {
		l := domain.Loan{Status: domain.LoanStatusOverdue, IsAuthorized: true}
		if err := rows.Scan(&l.ID, &l.TeacherID, &l.ReturnDate); err != nil {
			return nil, err
		}
		loans = append(loans, l)
	}
	return loans, rows.Err()
}

func (r *loanRepository) ListByStatus(ctx context.Context, status domain.LoanStatus) ([]domain.Loan, error) {
	query := loanSelect + ` WHERE l.status = $1 GROUP BY l.id ORDER BY l.return_date`
	return r.queryLoans(ctx, query, status)
}

func (r *loanRepository) ListReturnedWithLentResources(ctx context.Context) ([]domain.Loan, error) {
	query := loanSelect + `
	WHERE l.status = $1 AND EXISTS (
		SELECT 1 FROM loan_resources x
		JOIN resources res ON res.id = x.resource_id
		WHERE x.loan_id = l.id AND res.status = $2
		  AND NOT EXISTS (
			SELECT 1 FROM loan_resources y
			JOIN loans o ON o.id = y.loan_id
			WHERE y.resource_id = res.id AND o.status IN ($3, $4)))
	GROUP BY l.id`
	return r.queryLoans(ctx, query, domain.LoanStatusReturned, domain.ResourceStatusOnLoan,
		domain.LoanStatusActive, domain.LoanStatusOverdue)
}

func (r *loanRepository) ResourcesHeldElsewhere(ctx context.Context, loanID string) ([]string, error) {
	query := `SELECT DISTINCT x.resource_id FROM loan_resources x
	          JOIN loan_resources y ON y.resource_id = x.resource_id AND y.loan_id <> x.loan_id
	          JOIN loans o ON o.id = y.loan_id
	          WHERE x.loan_id = $1 AND o.status IN ($2, $3)`
	rows, err := r.db.QueryContext(ctx, query, loanID, domain.LoanStatusActive, domain.LoanStatusOverdue)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *loanRepository) queryLoans(ctx context.Context, query string, args ...any) ([]domain.Loan, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var loans []domain.Loan
	for rows.Next() {
		l, err := scanLoan(rows)
		if err != nil {
			return nil, err
		}
		loans = append(loans, *l)
	}
	return loans, rows.Err()
}

func (r *loanRepository) execMatched(ctx context.Context, query string, args ...any) (bool, error) {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
