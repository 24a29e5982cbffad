package service

import (
	"context"
	"fmt"
	"strings"

	"school-resources-backend/internal/domain"
	"school-resources-backend/internal/logger"
	"school-resources-backend/internal/repository"
)

// ReturnOutcome is what the synchronizer needs to settle one returned resource.
type ReturnOutcome struct {
	ResourceID string
	HadDamage  bool
}

// ResourceStatusSynchronizer performs every resource status write made by
// the loan workflow. Each write is conditional on the current status, so a
// resource held by an open incident is never moved back to Disponible.
type ResourceStatusSynchronizer struct {
	resourceRepo repository.ResourceRepository
}

func NewResourceStatusSynchronizer(resourceRepo repository.ResourceRepository) *ResourceStatusSynchronizer {
	return &ResourceStatusSynchronizer{resourceRepo: resourceRepo}
}

// OnLoanResourcesAttached moves each resource from Disponible to En Préstamo.
// If none could be moved it returns a *ConflictError; a mixed outcome is a
// *PartialFailureError whose Succeeded ids the caller must release.
func (s *ResourceStatusSynchronizer) OnLoanResourcesAttached(ctx context.Context, resourceIDs []string) error {
	pf := &domain.PartialFailureError{Operation: "attach resources"}
	conflicts := []string{}
	for _, id := range resourceIDs {
		ok, err := s.resourceRepo.UpdateStatusFrom(ctx, id, domain.ResourceStatusOnLoan, domain.ResourceStatusAvailable)
		switch {
		case err != nil:
			pf.Add(id, err)
		case !ok:
			conflicts = append(conflicts, id)
			pf.Add(id, domain.NewConflictError(fmt.Sprintf("resource %s is no longer available", id)))
		default:
			pf.Add(id, nil)
		}
	}

	if len(pf.Failed) == 0 {
		return nil
	}
	if len(pf.Succeeded) == 0 && len(conflicts) == len(pf.Failed) {
		return domain.NewConflictError(fmt.Sprintf("resources no longer available: %s", strings.Join(conflicts, ", ")))
	}
	return pf
}

// OnLoanReturned settles one resource after a return: En Mantenimiento when
// damage was reported, Disponible otherwise. Only a resource still En
// Préstamo is written; one already in its target state, or held by
// maintenance, is left as is.
func (s *ResourceStatusSynchronizer) OnLoanReturned(ctx context.Context, resourceID string, hadDamage bool) error {
	next := domain.ResourceStatusAvailable
	if hadDamage {
		next = domain.ResourceStatusMaintenance
	}

	ok, err := s.resourceRepo.UpdateStatusFrom(ctx, resourceID, next, domain.ResourceStatusOnLoan)
	if err != nil {
		return fmt.Errorf("failed to update resource %s: %w", resourceID, err)
	}
	if ok {
		return nil
	}

	current, err := s.resourceRepo.GetByID(ctx, resourceID)
	if err != nil {
		return err
	}
	if current.Status == next || current.Status.UnderMaintenance() {
		logger.Debug("Resource already settled", "resourceID", resourceID, "status", current.Status)
		return nil
	}
	return domain.NewConflictError(fmt.Sprintf("resource %s is %s", resourceID, current.Status))
}

// OnLoanReturnedBatch settles every outcome and reports failures together.
func (s *ResourceStatusSynchronizer) OnLoanReturnedBatch(ctx context.Context, outcomes []ReturnOutcome) error {
	pf := &domain.PartialFailureError{Operation: "settle returned resources"}
	for _, o := range outcomes {
		err := s.OnLoanReturned(ctx, o.ResourceID, o.HadDamage)
		if err != nil {
			logger.Warn("Failed to settle returned resource", "resourceID", o.ResourceID, "error", err)
		}
		pf.Add(o.ResourceID, err)
	}
	return pf.OrNil()
}

// stillOnLoan returns the subset of resourceIDs whose status is En Préstamo,
// in the given order.
func (s *ResourceStatusSynchronizer) stillOnLoan(ctx context.Context, resourceIDs []string) ([]string, error) {
	if len(resourceIDs) == 0 {
		return nil, nil
	}
	resources, err := s.resourceRepo.GetByIDs(ctx, resourceIDs)
	if err != nil {
		return nil, err
	}
	lent := make(map[string]bool, len(resources))
	for _, r := range resources {
		if r.Status == domain.ResourceStatusOnLoan {
			lent[r.ID] = true
		}
	}
	out := make([]string, 0, len(lent))
	for _, id := range resourceIDs {
		if lent[id] {
			out = append(out, id)
		}
	}
	return out, nil
}

// ReleaseResources moves resources still En Préstamo back to Disponible.
// Resources in any other state are skipped.
func (s *ResourceStatusSynchronizer) ReleaseResources(ctx context.Context, resourceIDs []string) error {
	pf := &domain.PartialFailureError{Operation: "release resources"}
	for _, id := range resourceIDs {
		ok, err := s.resourceRepo.UpdateStatusFrom(ctx, id, domain.ResourceStatusAvailable, domain.ResourceStatusOnLoan)
		if err == nil && !ok {
			logger.Debug("Resource not on loan, release skipped", "resourceID", id)
		}
		pf.Add(id, err)
	}
	return pf.OrNil()
}
