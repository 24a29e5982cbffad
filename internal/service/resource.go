package service

import (
	"context"
	"fmt"

	"school-resources-backend/internal/domain"
	"school-resources-backend/internal/repository"
)

type resourceService struct {
	resourceRepo repository.ResourceRepository
	incidentRepo repository.IncidentRepository
}

func NewResourceService(resourceRepo repository.ResourceRepository, incidentRepo repository.IncidentRepository) ResourceService {
	return &resourceService{resourceRepo: resourceRepo, incidentRepo: incidentRepo}
}

func (s *resourceService) ListResources(ctx context.Context, status domain.ResourceStatus) ([]domain.Resource, error) {
	if status != "" && !status.Valid() {
		return nil, domain.NewValidationError("status", fmt.Sprintf("unknown resource status %q", status))
	}
	return s.resourceRepo.List(ctx, status)
}

func (s *resourceService) ListIncidents(ctx context.Context, resourceID string) ([]domain.MaintenanceIncident, error) {
	if _, err := s.resourceRepo.GetByID(ctx, resourceID); err != nil {
		return nil, err
	}
	return s.incidentRepo.ListByResource(ctx, resourceID)
}
