package service

import (
	"context"
	"fmt"

	"school-resources-backend/internal/domain"
	"school-resources-backend/internal/logger"
	"school-resources-backend/internal/repository"
)

// IncidentRecorder turns damage reported at return time into maintenance
// incidents, one per (resource, damage type).
type IncidentRecorder struct {
	incidentRepo repository.IncidentRepository
	clock        Clock
}

func NewIncidentRecorder(incidentRepo repository.IncidentRepository, clock Clock) *IncidentRecorder {
	return &IncidentRecorder{incidentRepo: incidentRepo, clock: clock}
}

// Record creates incidents in declaration order. A failed pair is logged and
// skipped; the returned *PartialFailureError names it as "<resource>/<damage>".
func (r *IncidentRecorder) Record(ctx context.Context, loanID string, reporter *domain.User, reports []domain.ResourceReport) ([]domain.MaintenanceIncident, error) {
	created := []domain.MaintenanceIncident{}
	pf := &domain.PartialFailureError{Operation: "record incidents"}

	for _, report := range reports {
		for _, damage := range report.Damages {
			key := report.ResourceID + "/" + damage
			incident, err := r.recordOne(ctx, loanID, reporter, report, damage)
			if err != nil {
				logger.Error("Failed to record incident", "loanID", loanID, "resourceID", report.ResourceID, "damage", damage, "error", err)
				pf.Add(key, err)
				continue
			}
			pf.Add(key, nil)
			created = append(created, *incident)
		}
	}
	return created, pf.OrNil()
}

func (r *IncidentRecorder) recordOne(ctx context.Context, loanID string, reporter *domain.User, report domain.ResourceReport, damage string) (*domain.MaintenanceIncident, error) {
	last, err := r.incidentRepo.MaxIncidentNumber(ctx, report.ResourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to read incident numbers: %w", err)
	}

	incident := &domain.MaintenanceIncident{
		ResourceID:        report.ResourceID,
		IncidentNumber:    last + 1,
		DamageType:        damage,
		DamageDescription: report.DamageNotes,
		IncidentContext:   fmt.Sprintf("Devolución del préstamo %s", loanID),
		Priority:          domain.IncidentPriorityDefault,
		ReportedBy:        reporter.ID,
		ReporterName:      reporter.Name,
		CurrentStatus:     domain.IncidentStatusPending,
		CreatedOn:         r.clock(),
	}
	if err := r.incidentRepo.Create(ctx, incident); err != nil {
		return nil, fmt.Errorf("failed to create incident: %w", err)
	}
	return incident, nil
}
