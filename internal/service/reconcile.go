package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"school-resources-backend/internal/domain"
	"school-resources-backend/internal/logger"
	"school-resources-backend/internal/repository"
	"school-resources-backend/internal/utils"
)

// Reconciler re-applies the resource status writes of a return that only
// partially succeeded. The outcome per resource is recovered from the report
// stored in the loan notes.
type Reconciler struct {
	loanRepo repository.LoanRepository
	sync     *ResourceStatusSynchronizer
	loc      *time.Location
}

func NewReconciler(loanRepo repository.LoanRepository, sync *ResourceStatusSynchronizer, loc *time.Location) *Reconciler {
	if loc == nil {
		loc = time.UTC
	}
	return &Reconciler{loanRepo: loanRepo, sync: sync, loc: loc}
}

// Reconcile settles the resources of a Devuelto loan that are still En
// Préstamo. Resources already settled (and possibly repaired since) and
// resources that another outstanding loan has since taken are left alone.
func (r *Reconciler) Reconcile(ctx context.Context, loan *domain.Loan) error {
	if loan.Status != domain.LoanStatusReturned {
		return domain.NewValidationError("status", "only returned loans can be reconciled")
	}

	pending, err := r.sync.stillOnLoan(ctx, loan.ResourceIDs)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		return nil
	}
	held, err := r.loanRepo.ResourcesHeldElsewhere(ctx, loan.ID)
	if err != nil {
		return err
	}
	skip := make(map[string]bool, len(held))
	for _, id := range held {
		skip[id] = true
	}

	report := utils.ParseReturnReport(loan.Notes, r.loc)
	outcomes := make([]ReturnOutcome, 0, len(pending))
	for _, id := range pending {
		if skip[id] {
			continue
		}
		outcomes = append(outcomes, ReturnOutcome{ResourceID: id, HadDamage: report.ForResource(id).HasDamage()})
	}
	return r.sync.OnLoanReturnedBatch(ctx, outcomes)
}

// ReconcileAll reconciles every returned loan that still has a resource En
// Préstamo and returns how many were fully settled. A failing loan does not
// stop the others; the failures are joined into the returned error.
func (r *Reconciler) ReconcileAll(ctx context.Context) (int, error) {
	loans, err := r.loanRepo.ListReturnedWithLentResources(ctx)
	if err != nil {
		return 0, err
	}

	settled := 0
	var errs []error
	for i := range loans {
		if err := r.Reconcile(ctx, &loans[i]); err != nil {
			logger.Warn("Failed to reconcile returned loan", "loanID", loans[i].ID, "error", err)
			errs = append(errs, fmt.Errorf("loan %s: %w", loans[i].ID, err))
			continue
		}
		settled++
	}
	return settled, errors.Join(errs...)
}
