package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"school-resources-backend/internal/domain"
	"school-resources-backend/internal/logger"
	"school-resources-backend/internal/repository"
	"school-resources-backend/internal/utils"
)

// LoanOptions are the configurable parts of the loan workflow.
type LoanOptions struct {
	Location            *time.Location
	AllowBorrowerReturn bool
	DefaultPageSize     int32
}

type loanService struct {
	loanRepo     repository.LoanRepository
	userRepo     repository.UserRepository
	resourceRepo repository.ResourceRepository
	sync         *ResourceStatusSynchronizer
	recorder     *IncidentRecorder
	reconciler   *Reconciler
	emailSvc     EmailService
	clock        Clock
	opts         LoanOptions
}

func NewLoanService(
	loanRepo repository.LoanRepository,
	userRepo repository.UserRepository,
	resourceRepo repository.ResourceRepository,
	sync *ResourceStatusSynchronizer,
	recorder *IncidentRecorder,
	reconciler *Reconciler,
	emailSvc EmailService,
	clock Clock,
	opts LoanOptions,
) LoanService {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.DefaultPageSize <= 0 {
		opts.DefaultPageSize = 20
	}
	if clock == nil {
		clock = time.Now
	}
	return &loanService{
		loanRepo:     loanRepo,
		userRepo:     userRepo,
		resourceRepo: resourceRepo,
		sync:         sync,
		recorder:     recorder,
		reconciler:   reconciler,
		emailSvc:     emailSvc,
		clock:        clock,
		opts:         opts,
	}
}

func (s *loanService) today() time.Time {
	y, m, d := s.clock().In(s.opts.Location).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, s.opts.Location)
}

func (s *loanService) CreateLoan(ctx context.Context, actorID string, input CreateLoanInput) (*domain.Loan, error) {
	logger.EnterMethod("loanService.CreateLoan", "actorID", actorID, "resources", len(input.ResourceIDs))

	actor, err := s.userRepo.GetByID(ctx, actorID)
	if err != nil {
		logger.ExitMethodWithError("loanService.CreateLoan", err, "reason", "actor lookup")
		return nil, err
	}
	if strings.TrimSpace(input.TeacherID) == "" {
		input.TeacherID = actor.ID
	}
	if input.TeacherID != actor.ID && !actor.IsAdmin() {
		return nil, domain.NewValidationError("teacher_id", "only an administrator can open a loan for another teacher")
	}
	if input.LoanDate.IsZero() {
		input.LoanDate = s.today()
	}

	resources, err := s.resourceRepo.GetByIDs(ctx, input.ResourceIDs)
	if err != nil {
		logger.ExitMethodWithError("loanService.CreateLoan", err, "reason", "resource lookup")
		return nil, err
	}

	guard := domain.CanCreate(domain.CreateContext{
		TeacherID:    input.TeacherID,
		AreaID:       input.AreaID,
		GradeID:      input.GradeID,
		SectionID:    input.SectionID,
		LoanDate:     input.LoanDate,
		ReturnDate:   input.ReturnDate,
		Resources:    resources,
		RequestedIDs: input.ResourceIDs,
	})
	if err := guard.Err(); err != nil {
		logger.ExitMethodWithError("loanService.CreateLoan", err)
		return nil, err
	}

	loan := &domain.Loan{
		TeacherID:   input.TeacherID,
		AreaID:      input.AreaID,
		GradeID:     input.GradeID,
		SectionID:   input.SectionID,
		Status:      domain.LoanStatusActive,
		LoanDate:    input.LoanDate,
		ReturnDate:  input.ReturnDate,
		Notes:       strings.TrimSpace(input.Notes),
		ResourceIDs: append([]string{}, input.ResourceIDs...),
	}
	if err := s.loanRepo.Create(ctx, loan); err != nil {
		logger.ExitMethodWithError("loanService.CreateLoan", err, "reason", "insert")
		return nil, err
	}

	if err := s.sync.OnLoanResourcesAttached(ctx, loan.ResourceIDs); err != nil {
		s.undoCreate(ctx, loan, err)
		logger.ExitMethodWithError("loanService.CreateLoan", err, "loanID", loan.ID)
		if domain.IsConflict(err) {
			return nil, err
		}
		var pf *domain.PartialFailureError
		if errors.As(err, &pf) {
			return nil, domain.NewConflictError(fmt.Sprintf("resources no longer available: %s", strings.Join(pf.Failed, ", ")))
		}
		return nil, err
	}

	logger.ExitMethod("loanService.CreateLoan", "loanID", loan.ID)
	return loan, nil
}

// undoCreate releases whatever was attached and removes the loan row, so a
// checkout that lost a race leaves nothing behind.
func (s *loanService) undoCreate(ctx context.Context, loan *domain.Loan, cause error) {
	var pf *domain.PartialFailureError
	if errors.As(cause, &pf) && len(pf.Succeeded) > 0 {
		if err := s.sync.ReleaseResources(ctx, pf.Succeeded); err != nil {
			logger.Error("Failed to release resources after aborted checkout", "loanID", loan.ID, "error", err)
		}
	}
	if err := s.loanRepo.Delete(ctx, loan.ID); err != nil {
		logger.Error("Failed to delete aborted loan", "loanID", loan.ID, "error", err)
	}
}

func (s *loanService) AuthorizeLoan(ctx context.Context, actorID, loanID string) (*domain.Loan, error) {
	loan, actor, err := s.loadForDecision(ctx, actorID, loanID)
	if err != nil {
		return nil, err
	}
	if err := domain.CanAuthorize(loan, actor).Err(); err != nil {
		return nil, err
	}

	ok, err := s.loanRepo.Authorize(ctx, loan.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.NewConflictError("loan was decided by someone else")
	}
	loan.IsAuthorized = true
	logger.Info("Loan authorized", "loanID", loan.ID, "adminID", actor.ID)

	// Notify borrower
	if borrower, _ := s.userRepo.GetByID(ctx, loan.TeacherID); borrower != nil {
		if err := s.emailSvc.SendLoanAuthorizedNotification(ctx, borrower.Email, borrower.Name, loan.ID, loan.ReturnDate); err != nil {
			logger.Warn("Failed to send authorization email", "loanID", loan.ID, "error", err)
		}
	}
	return loan, nil
}

func (s *loanService) RejectLoan(ctx context.Context, actorID, loanID, reason string) (*domain.Loan, error) {
	loan, actor, err := s.loadForDecision(ctx, actorID, loanID)
	if err != nil {
		return nil, err
	}
	if err := domain.CanReject(loan, actor, reason).Err(); err != nil {
		return nil, err
	}
	reason = strings.TrimSpace(reason)

	ok, err := s.loanRepo.Reject(ctx, loan.ID, reason)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.NewConflictError("loan was decided by someone else")
	}
	loan.Status = domain.LoanStatusRejected
	loan.RejectionReason = reason
	logger.Info("Loan rejected", "loanID", loan.ID, "adminID", actor.ID)

	if err := s.sync.ReleaseResources(ctx, loan.ResourceIDs); err != nil {
		logger.Error("Failed to release resources of rejected loan", "loanID", loan.ID, "error", err)
		return loan, err
	}

	if borrower, _ := s.userRepo.GetByID(ctx, loan.TeacherID); borrower != nil {
		if err := s.emailSvc.SendLoanRejectedNotification(ctx, borrower.Email, borrower.Name, loan.ID, reason); err != nil {
			logger.Warn("Failed to send rejection email", "loanID", loan.ID, "error", err)
		}
	}
	return loan, nil
}

func (s *loanService) loadForDecision(ctx context.Context, actorID, loanID string) (*domain.Loan, *domain.User, error) {
	loan, err := s.loanRepo.GetByID(ctx, loanID)
	if err != nil {
		return nil, nil, err
	}
	actor, err := s.userRepo.GetByID(ctx, actorID)
	if err != nil {
		return nil, nil, err
	}
	return loan, actor, nil
}

// ReturnLoan closes an outstanding loan. Writes happen in order: loan row,
// resource statuses, incidents. A resource status failure is returned as a
// *PartialFailureError together with the result; incident failures only
// become warnings.
func (s *loanService) ReturnLoan(ctx context.Context, actorID, loanID, dni string, reports []domain.ResourceReport) (*ReturnResult, error) {
	logger.EnterMethod("loanService.ReturnLoan", "actorID", actorID, "loanID", loanID)

	loan, err := s.loanRepo.GetByID(ctx, loanID)
	if err != nil {
		logger.ExitMethodWithError("loanService.ReturnLoan", err)
		return nil, err
	}
	actor, err := s.userRepo.GetByID(ctx, actorID)
	if err != nil {
		logger.ExitMethodWithError("loanService.ReturnLoan", err)
		return nil, err
	}
	borrower, err := s.userRepo.GetByID(ctx, loan.TeacherID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		logger.ExitMethodWithError("loanService.ReturnLoan", err)
		return nil, err
	}

	guard := domain.CanReturn(domain.ReturnContext{
		Loan:                loan,
		Actor:               actor,
		Borrower:            borrower,
		SubmittedDNI:        dni,
		AllowBorrowerReturn: s.opts.AllowBorrowerReturn,
	})
	if err := guard.Err(); err != nil {
		logger.ExitMethodWithError("loanService.ReturnLoan", err)
		return nil, err
	}

	form, err := buildReturnForm(loan, dni, reports)
	if err != nil {
		logger.ExitMethodWithError("loanService.ReturnLoan", err)
		return nil, err
	}
	entries := form.Reports()

	now := s.clock()
	returnDate := s.today()
	notes := utils.BuildReturnReport(now, s.opts.Location, entries)

	ok, err := s.loanRepo.MarkReturned(ctx, loan.ID, returnDate, notes)
	if err != nil {
		logger.ExitMethodWithError("loanService.ReturnLoan", err)
		return nil, err
	}
	if !ok {
		err := domain.NewConflictError("loan is no longer outstanding")
		logger.ExitMethodWithError("loanService.ReturnLoan", err)
		return nil, err
	}
	loan.Status = domain.LoanStatusReturned
	loan.ReturnDate = returnDate
	loan.Notes = notes

	outcomes := make([]ReturnOutcome, 0, len(entries))
	for _, e := range entries {
		outcomes = append(outcomes, ReturnOutcome{ResourceID: e.ResourceID, HadDamage: e.HasDamage()})
	}
	syncErr := s.sync.OnLoanReturnedBatch(ctx, outcomes)

	result := &ReturnResult{Loan: loan}
	incidents, err := s.recorder.Record(ctx, loan.ID, actor, entries)
	result.Incidents = incidents
	var pf *domain.PartialFailureError
	if errors.As(err, &pf) {
		for _, key := range pf.Failed {
			result.Warnings = append(result.Warnings, fmt.Sprintf("incident %s was not recorded: %v", key, pf.Causes[key]))
		}
	}

	if syncErr != nil {
		logger.ExitMethodWithError("loanService.ReturnLoan", syncErr, "loanID", loan.ID)
		return result, syncErr
	}
	logger.ExitMethod("loanService.ReturnLoan", "loanID", loan.ID, "incidents", len(incidents), "warnings", len(result.Warnings))
	return result, nil
}

// buildReturnForm runs the submitted reports through ReturnForm so labels
// are cleaned and reports for foreign resources are refused. The finished
// form is validated as a whole before it is used.
func buildReturnForm(loan *domain.Loan, dni string, reports []domain.ResourceReport) (domain.ReturnForm, error) {
	form := domain.NewReturnForm(loan.ResourceIDs)
	var errs []domain.FieldError
	collect := func(next domain.ReturnForm, fieldErrs []domain.FieldError) {
		form = next
		errs = append(errs, fieldErrs...)
	}

	collect(form.WithDNI(dni))
	for _, r := range reports {
		collect(form.WithDamages(r.ResourceID, r.Damages))
		collect(form.WithDamageNotes(r.ResourceID, r.DamageNotes))
		collect(form.WithSuggestions(r.ResourceID, r.Suggestions))
		collect(form.WithSuggestionNotes(r.ResourceID, r.SuggestionNotes))
	}
	if len(errs) == 0 {
		errs = form.Validate()
	}
	if len(errs) > 0 {
		return form, domain.NewValidationError(errs[0].Field, errs[0].Message)
	}
	return form, nil
}

func (s *loanService) GetLoan(ctx context.Context, actorID, loanID string) (*domain.Loan, error) {
	loan, err := s.loanRepo.GetByID(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if err := s.checkCanView(ctx, actorID, loan); err != nil {
		return nil, err
	}
	return loan, nil
}

// ListLoans returns every loan to an administrator and only their own loans
// to a teacher.
func (s *loanService) ListLoans(ctx context.Context, actorID string, filter repository.LoanFilter, page, pageSize int32) ([]domain.Loan, int32, error) {
	actor, err := s.userRepo.GetByID(ctx, actorID)
	if err != nil {
		return nil, 0, err
	}
	if !actor.IsAdmin() {
		filter.TeacherID = actor.ID
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, 0, domain.NewValidationError("status", fmt.Sprintf("unknown loan status %q", filter.Status))
	}
	if pageSize <= 0 {
		pageSize = s.opts.DefaultPageSize
	}
	return s.loanRepo.List(ctx, filter, page, pageSize)
}

func (s *loanService) GetResourceReport(ctx context.Context, actorID, loanID, resourceID string) (*domain.ResourceReport, error) {
	loan, err := s.GetLoan(ctx, actorID, loanID)
	if err != nil {
		return nil, err
	}
	if !loan.HasResource(resourceID) {
		return nil, fmt.Errorf("resource %s in loan %s: %w", resourceID, loanID, domain.ErrNotFound)
	}
	entry := utils.ParseReturnReport(loan.Notes, s.opts.Location).ForResource(resourceID)
	return &entry, nil
}

func (s *loanService) ReconcileReturnedLoan(ctx context.Context, actorID, loanID string) (*domain.Loan, error) {
	loan, actor, err := s.loadForDecision(ctx, actorID, loanID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() {
		return nil, domain.NewValidationError("role", "only an administrator can reconcile a loan")
	}
	if err := s.reconciler.Reconcile(ctx, loan); err != nil {
		return loan, err
	}
	logger.Info("Loan reconciled", "loanID", loan.ID, "adminID", actor.ID)
	return loan, nil
}

func (s *loanService) checkCanView(ctx context.Context, actorID string, loan *domain.Loan) error {
	if actorID == loan.TeacherID {
		return nil
	}
	actor, err := s.userRepo.GetByID(ctx, actorID)
	if err != nil {
		return err
	}
	if !actor.IsAdmin() {
		return domain.NewValidationError("role", "not allowed to view this loan")
	}
	return nil
}
