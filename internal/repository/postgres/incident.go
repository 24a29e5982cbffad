package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"school-resources-backend/internal/domain"
	"school-resources-backend/internal/logger"
	"school-resources-backend/internal/repository"
)

type incidentRepository struct {
	db *sql.DB
}

func NewIncidentRepository(db *sql.DB) repository.IncidentRepository {
	return &incidentRepository{db: db}
}

func (r *incidentRepository) MaxIncidentNumber(ctx context.Context, resourceID string) (int, error) {
	var n int
	query := `SELECT COALESCE(MAX(incident_number), 0) FROM maintenance_incidents WHERE resource_id = $1`
	err := r.db.QueryRowContext(ctx, query, resourceID).Scan(&n)
	return n, err
}

func (r *incidentRepository) Create(ctx context.Context, i *domain.MaintenanceIncident) error {
	query := `INSERT INTO maintenance_incidents (id, resource_id, incident_number, damage_type, damage_description,
	          incident_context, priority, reported_by, reporter_name, current_status, created_on)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	if i.CreatedOn.IsZero() {
		i.CreatedOn = time.Now()
	}
	logger.DatabaseCall("INSERT", "maintenance_incidents", "resourceID", i.ResourceID, "incidentNumber", i.IncidentNumber)
	_, err := r.db.ExecContext(ctx, query, i.ID, i.ResourceID, i.IncidentNumber, i.DamageType, i.DamageDescription,
		i.IncidentContext, i.Priority, i.ReportedBy, i.ReporterName, i.CurrentStatus, i.CreatedOn)
	if err != nil {
		logger.DatabaseResult("INSERT", 0, err, "resourceID", i.ResourceID)
		return err
	}
	logger.DatabaseResult("INSERT", 1, nil, "incidentID", i.ID)
	return nil
}

func (r *incidentRepository) ListByResource(ctx context.Context, resourceID string) ([]domain.MaintenanceIncident, error) {
	query := `SELECT id, resource_id, incident_number, damage_type, COALESCE(damage_description, ''),
	          COALESCE(incident_context, ''), priority, reported_by, COALESCE(reporter_name, ''), current_status, created_on
	          FROM maintenance_incidents WHERE resource_id = $1 ORDER BY incident_number`
	rows, err := r.db.QueryContext(ctx, query, resourceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	incidents := []domain.MaintenanceIncident{}
	for rows.Next() {
		var i domain.MaintenanceIncident
		if err := rows.Scan(&i.ID, &i.ResourceID, &i.IncidentNumber, &i.DamageType, &i.DamageDescription,
			&i.IncidentContext, &i.Priority, &i.ReportedBy, &i.ReporterName, &i.CurrentStatus, &i.CreatedOn); err != nil {
			return nil, err
		}
		incidents = append(incidents, i)
	}
	return incidents, rows.Err()
}
