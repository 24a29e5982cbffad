package service

import (
	"context"
	"time"

	"school-resources-backend/internal/domain"
	"school-resources-backend/internal/repository"
)

// Clock returns the current time. Services take one so tests can pin "today".
type Clock func() time.Time

type AuthService interface {
	// Login returns an access token and the authenticated user.
	Login(ctx context.Context, email, password string) (string, *domain.User, error)
}

type UserService interface {
	CreateUser(ctx context.Context, actorID string, input CreateUserInput) (*domain.User, error)
	GetUser(ctx context.Context, actorID, userID string) (*domain.User, error)
}

type ResourceService interface {
	ListResources(ctx context.Context, status domain.ResourceStatus) ([]domain.Resource, error)
	ListIncidents(ctx context.Context, resourceID string) ([]domain.MaintenanceIncident, error)
}

type LoanService interface {
	CreateLoan(ctx context.Context, actorID string, input CreateLoanInput) (*domain.Loan, error)
	AuthorizeLoan(ctx context.Context, actorID, loanID string) (*domain.Loan, error)
	RejectLoan(ctx context.Context, actorID, loanID, reason string) (*domain.Loan, error)
	ReturnLoan(ctx context.Context, actorID, loanID, dni string, reports []domain.ResourceReport) (*ReturnResult, error)
	GetLoan(ctx context.Context, actorID, loanID string) (*domain.Loan, error)
	ListLoans(ctx context.Context, actorID string, filter repository.LoanFilter, page, pageSize int32) ([]domain.Loan, int32, error)
	GetResourceReport(ctx context.Context, actorID, loanID, resourceID string) (*domain.ResourceReport, error)
	ReconcileReturnedLoan(ctx context.Context, actorID, loanID string) (*domain.Loan, error)
}

type EmailService interface {
	SendLoanAuthorizedNotification(ctx context.Context, email, name, loanID string, returnDate time.Time) error
	SendLoanRejectedNotification(ctx context.Context, email, name, loanID, reason string) error
	SendOverdueReminder(ctx context.Context, email, name, loanID string, daysOverdue int) error
}

type CreateUserInput struct {
	Name     string          `json:"name"`
	Email    string          `json:"email"`
	DNI      string          `json:"dni"`
	Role     domain.UserRole `json:"role"`
	Password string          `json:"password"`
}

type CreateLoanInput struct {
	TeacherID   string    `json:"teacher_id"`
	AreaID      string    `json:"area_id"`
	GradeID     string    `json:"grade_id"`
	SectionID   string    `json:"section_id"`
	ResourceIDs []string  `json:"resource_ids"`
	LoanDate    time.Time `json:"loan_date"`
	ReturnDate  time.Time `json:"return_date"`
	Notes       string    `json:"notes"`
}

// ReturnResult is a completed return. Warnings name incidents that could not
// be recorded; the return itself stands.
type ReturnResult struct {
	Loan      *domain.Loan                 `json:"loan"`
	Incidents []domain.MaintenanceIncident `json:"incidents"`
	Warnings  []string                     `json:"warnings,omitempty"`
}
