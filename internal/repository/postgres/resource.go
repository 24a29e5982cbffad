package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"school-resources-backend/internal/domain"
	"school-resources-backend/internal/logger"
	"school-resources-backend/internal/repository"
)

type resourceRepository struct {
	db *sql.DB
}

func NewResourceRepository(db *sql.DB) repository.ResourceRepository {
	return &resourceRepository{db: db}
}

const resourceColumns = `id, number, COALESCE(brand, ''), COALESCE(model, ''), COALESCE(category_id, ''), status`

func (r *resourceRepository) GetByID(ctx context.Context, id string) (*domain.Resource, error) {
	res := &domain.Resource{}
	query := `SELECT ` + resourceColumns + ` FROM resources WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).Scan(&res.ID, &res.Number, &res.Brand, &res.Model, &res.CategoryID, &res.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("resource %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

// GetByIDs returns the resources that exist among ids. Missing ids are
// simply absent from the result.
func (r *resourceRepository) GetByIDs(ctx context.Context, ids []string) ([]domain.Resource, error) {
	if len(ids) == 0 {
		return []domain.Resource{}, nil
	}
	query := `SELECT ` + resourceColumns + ` FROM resources WHERE id = ANY($1)`
	return r.query(ctx, query, pq.Array(ids))
}

func (r *resourceRepository) List(ctx context.Context, status domain.ResourceStatus) ([]domain.Resource, error) {
	if status == "" {
		return r.query(ctx, `SELECT `+resourceColumns+` FROM resources ORDER BY number`)
	}
	return r.query(ctx, `SELECT `+resourceColumns+` FROM resources WHERE status = $1 ORDER BY number`, status)
}

func (r *resourceRepository) UpdateStatusFrom(ctx context.Context, id string, next domain.ResourceStatus, from ...domain.ResourceStatus) (bool, error) {
	logger.EnterMethod("resourceRepository.UpdateStatusFrom", "resourceID", id, "next", next, "from", from)
	allowed := make([]string, len(from))
	for i, s := range from {
		allowed[i] = string(s)
	}
	query := `UPDATE resources SET status = $1 WHERE id = $2 AND status = ANY($3)`
	res, err := r.db.ExecContext(ctx, query, next, id, pq.Array(allowed))
	if err != nil {
		logger.ExitMethodWithError("resourceRepository.UpdateStatusFrom", err, "resourceID", id)
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	logger.ExitMethod("resourceRepository.UpdateStatusFrom", "resourceID", id, "matched", n > 0)
	return n > 0, nil
}

func (r *resourceRepository) query(ctx context.Context, query string, args ...any) ([]domain.Resource, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	resources := []domain.Resource{}
	for rows.Next() {
		var res domain.Resource
		if err := rows.Scan(&res.ID, &res.Number, &res.Brand, &res.Model, &res.CategoryID, &res.Status); err != nil {
			return nil, err
		}
		resources = append(resources, res)
	}
	return resources, rows.Err()
}
