package domain

import "time"

type LoanStatus string

const (
	LoanStatusActive   LoanStatus = "Activo"
	LoanStatusOverdue  LoanStatus = "Atrasado"
	LoanStatusReturned LoanStatus = "Devuelto"
	LoanStatusRejected LoanStatus = "Rechazado"
)

// Valid reports whether s is one of the persisted loan statuses.
func (s LoanStatus) Valid() bool {
	switch s {
	case LoanStatusActive, LoanStatusOverdue, LoanStatusReturned, LoanStatusRejected:
		return true
	}
	return false
}

// Terminal reports whether no further transition is possible from s.
func (s LoanStatus) Terminal() bool {
	switch s {
	case LoanStatusReturned, LoanStatusRejected:
		return true
	case LoanStatusActive, LoanStatusOverdue:
		return false
	}
	return false
}

// Outstanding reports whether the loan still holds its resources.
func (s LoanStatus) Outstanding() bool {
	switch s {
	case LoanStatusActive, LoanStatusOverdue:
		return true
	case LoanStatusReturned, LoanStatusRejected:
		return false
	}
	return false
}

// EffectiveStatus is the UI-facing state of a loan.
type EffectiveStatus string

const (
	EffectivePending  EffectiveStatus = "Pendiente"
	EffectiveActive   EffectiveStatus = "Activo"
	EffectiveOverdue  EffectiveStatus = "Atrasado"
	EffectiveReturned EffectiveStatus = "Devuelto"
	EffectiveRejected EffectiveStatus = "Rechazado"
)

type Loan struct {
	ID              string     `json:"id"`
	TeacherID       string     `json:"teacher_id"`
	AreaID          string     `json:"area_id"`
	GradeID         string     `json:"grade_id"`
	SectionID       string     `json:"section_id"`
	Status          LoanStatus `json:"status"`
	IsAuthorized    bool       `json:"is_authorized"`
	LoanDate        time.Time  `json:"loan_date"`
	ReturnDate      time.Time  `json:"return_date"`
	Notes           string     `json:"notes"`
	RejectionReason string     `json:"rejection_reason,omitempty"`
	ResourceIDs     []string   `json:"resource_ids"`
	CreatedOn       time.Time  `json:"created_on"`
	UpdatedOn       time.Time  `json:"updated_on"`
}

// DaysOverdue is max(0, today - ReturnDate) in whole days while the loan is
// Activo. Dates are compared as calendar days in now's location.
func (l *Loan) DaysOverdue(now time.Time) int {
	if l.Status != LoanStatusActive || l.ReturnDate.IsZero() {
		return 0
	}
	days := int(truncateDay(now).Sub(truncateDay(l.ReturnDate.In(now.Location()))).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

// EffectiveStatus folds the authorization flag and the overdue computation
// into the persisted status. Both the date comparison and DaysOverdue are
// evaluated; either one marks an Activo loan as Atrasado.
func (l *Loan) EffectiveStatus(now time.Time) EffectiveStatus {
	if !l.IsAuthorized && l.Status != LoanStatusRejected {
		return EffectivePending
	}
	switch l.Status {
	case LoanStatusActive:
		pastDue := !l.ReturnDate.IsZero() && truncateDay(l.ReturnDate.In(now.Location())).Before(truncateDay(now))
		if pastDue || l.DaysOverdue(now) > 0 {
			return EffectiveOverdue
		}
		return EffectiveActive
	case LoanStatusOverdue:
		return EffectiveOverdue
	case LoanStatusReturned:
		return EffectiveReturned
	case LoanStatusRejected:
		return EffectiveRejected
	}
	return EffectiveStatus(l.Status)
}

// HasResource reports whether resourceID is attached to the loan.
func (l *Loan) HasResource(resourceID string) bool {
	for _, id := range l.ResourceIDs {
		if id == resourceID {
			return true
		}
	}
	return false
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
