package repository

import (
	"context"
	"time"

	"school-resources-backend/internal/domain"
)

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

// LoanFilter narrows ListLoans. Zero values mean "any".
type LoanFilter struct {
	TeacherID string
	Status    domain.LoanStatus
}

type LoanRepository interface {
	// Create inserts the loan row and its loan_resources rows together.
	Create(ctx context.Context, loan *domain.Loan) error
	GetByID(ctx context.Context, id string) (*domain.Loan, error)
	List(ctx context.Context, filter LoanFilter, page, pageSize int32) ([]domain.Loan, int32, error)
	Delete(ctx context.Context, id string) error

	// Authorize sets is_authorized only while the loan is still pending.
	// It returns false when the row no longer matches.
	Authorize(ctx context.Context, id string) (bool, error)
	// Reject sets status Rechazado only while the loan is still pending.
	Reject(ctx context.Context, id, reason string) (bool, error)
	// MarkReturned sets status Devuelto only while the loan is authorized
	// and outstanding.
	MarkReturned(ctx context.Context, id string, returnDate time.Time, notes string) (bool, error)

	// MarkOverdue moves authorized Activo loans whose return date is before
	// today to Atrasado and returns them.
	MarkOverdue(ctx context.Context, today time.Time) ([]domain.Loan, error)
	ListByStatus(ctx context.Context, status domain.LoanStatus) ([]domain.Loan, error)
	// ListReturnedWithLentResources finds Devuelto loans that still have a
	// resource in En Préstamo not attached to any outstanding loan.
	ListReturnedWithLentResources(ctx context.Context) ([]domain.Loan, error)
	// ResourcesHeldElsewhere returns the resources of loanID that are
	// attached to another Activo or Atrasado loan.
	ResourcesHeldElsewhere(ctx context.Context, loanID string) ([]string, error)
}

type ResourceRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Resource, error)
	GetByIDs(ctx context.Context, ids []string) ([]domain.Resource, error)
	List(ctx context.Context, status domain.ResourceStatus) ([]domain.Resource, error)
	// UpdateStatusFrom sets status to next only when the current status is
	// one of from. It returns false when no row matched.
	UpdateStatusFrom(ctx context.Context, id string, next domain.ResourceStatus, from ...domain.ResourceStatus) (bool, error)
}

type IncidentRepository interface {
	// MaxIncidentNumber returns 0 when the resource has no incidents.
	MaxIncidentNumber(ctx context.Context, resourceID string) (int, error)
	Create(ctx context.Context, incident *domain.MaintenanceIncident) error
	ListByResource(ctx context.Context, resourceID string) ([]domain.MaintenanceIncident, error)
}
