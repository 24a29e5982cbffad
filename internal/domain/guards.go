package domain

import (
	"fmt"
	"strings"
	"time"
)

// GuardResult is the outcome of evaluating a transition precondition.
// Guards are pure; they never touch storage.
type GuardResult struct {
	Allowed bool
	Field   string
	Reason  string
}

// Err converts a denied result to a *ValidationError.
func (r GuardResult) Err() error {
	if r.Allowed {
		return nil
	}
	return NewValidationError(r.Field, r.Reason)
}

func allow() GuardResult { return GuardResult{Allowed: true} }

func deny(field, format string, args ...any) GuardResult {
	return GuardResult{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// CreateContext carries what CanCreate needs to decide on a checkout.
type CreateContext struct {
	TeacherID  string
	AreaID     string
	GradeID    string
	SectionID  string
	LoanDate   time.Time
	ReturnDate time.Time
	// Resources as currently stored, in request order.
	Resources []Resource
	// Requested ids, used to detect unknown and duplicate ids.
	RequestedIDs []string
}

// CanCreate evaluates whether a loan may be opened.
// Rules:
// - borrower and classification references are present
// - at least one resource, no duplicates, all known
// - target return date not before the loan date
// - every resource is Disponible
func CanCreate(c CreateContext) GuardResult {
	if strings.TrimSpace(c.TeacherID) == "" {
		return deny("teacher_id", "teacher is required")
	}
	if strings.TrimSpace(c.AreaID) == "" {
		return deny("area_id", "area is required")
	}
	if strings.TrimSpace(c.GradeID) == "" {
		return deny("grade_id", "grade is required")
	}
	if strings.TrimSpace(c.SectionID) == "" {
		return deny("section_id", "section is required")
	}
	if len(c.RequestedIDs) == 0 {
		return deny("resource_ids", "at least one resource is required")
	}
	if !c.ReturnDate.IsZero() && truncateDay(c.ReturnDate).Before(truncateDay(c.LoanDate)) {
		return deny("return_date", "return date must not be before the loan date")
	}

	seen := make(map[string]bool, len(c.RequestedIDs))
	for _, id := range c.RequestedIDs {
		if seen[id] {
			return deny("resource_ids", "resource %s requested more than once", id)
		}
		seen[id] = true
	}

	known := make(map[string]Resource, len(c.Resources))
	for _, r := range c.Resources {
		known[r.ID] = r
	}
	for _, id := range c.RequestedIDs {
		r, ok := known[id]
		if !ok {
			return deny("resource_ids", "resource %s not found", id)
		}
		if r.Status != ResourceStatusAvailable {
			return deny("resource_ids", "resource %s is not available (%s)", r.Number, r.Status)
		}
	}
	return allow()
}

// CanAuthorize evaluates whether actor may authorize the loan.
// Rules:
// - actor is an Administrador
// - loan is not yet authorized
// - loan has not been rejected
func CanAuthorize(loan *Loan, actor *User) GuardResult {
	if g := pendingDecision(loan, actor); !g.Allowed {
		return g
	}
	return allow()
}

// CanReject evaluates whether actor may reject the loan with reason.
// Rules: same as CanAuthorize, plus a non-empty reason.
func CanReject(loan *Loan, actor *User, reason string) GuardResult {
	if g := pendingDecision(loan, actor); !g.Allowed {
		return g
	}
	if strings.TrimSpace(reason) == "" {
		return deny("reason", "a rejection reason is required")
	}
	return allow()
}

func pendingDecision(loan *Loan, actor *User) GuardResult {
	if !actor.IsAdmin() {
		return deny("role", "only an administrator can decide on a loan")
	}
	if loan.Status == LoanStatusRejected {
		return deny("status", "loan was already rejected")
	}
	if loan.IsAuthorized {
		return deny("status", "loan is already authorized")
	}
	return allow()
}

// ReturnContext carries what CanReturn needs to decide on a return.
type ReturnContext struct {
	Loan         *Loan
	Actor        *User
	Borrower     *User
	SubmittedDNI string
	// AllowBorrowerReturn lets the borrower of record register the return.
	AllowBorrowerReturn bool
}

// CanReturn evaluates whether the loan may be marked Devuelto.
// Rules:
// - actor is an Administrador, or the borrower when configured
// - loan is authorized and Activo or Atrasado
// - submitted DNI is DNILength characters and equals the borrower's DNI
func CanReturn(c ReturnContext) GuardResult {
	loan := c.Loan
	isBorrower := c.Actor != nil && c.Actor.ID == loan.TeacherID
	if !c.Actor.IsAdmin() && !(c.AllowBorrowerReturn && isBorrower) {
		return deny("role", "not allowed to register the return of this loan")
	}
	if !loan.IsAuthorized {
		return deny("status", "loan has not been authorized")
	}
	if !loan.Status.Outstanding() {
		return deny("status", "loan is %s and cannot be returned", loan.Status)
	}
	if len(c.SubmittedDNI) != DNILength {
		return deny("dni", "DNI must be %d characters", DNILength)
	}
	if c.Borrower == nil || c.SubmittedDNI != c.Borrower.DNI {
		return deny("dni", "incorrect DNI")
	}
	return allow()
}
