package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"school-resources-backend/internal/domain"
	"school-resources-backend/internal/repository"
	"school-resources-backend/internal/service"
)

const dateLayout = "2006-01-02"

type LoanHandler struct {
	loanSvc service.LoanService
	clock   service.Clock
	loc     *time.Location
}

func NewLoanHandler(loanSvc service.LoanService, clock service.Clock, loc *time.Location) *LoanHandler {
	if clock == nil {
		clock = time.Now
	}
	if loc == nil {
		loc = time.UTC
	}
	return &LoanHandler{loanSvc: loanSvc, clock: clock, loc: loc}
}

// loanResponse adds the UI-facing status to the stored loan.
type loanResponse struct {
	domain.Loan
	EffectiveStatus domain.EffectiveStatus `json:"effective_status"`
	DaysOverdue     int                    `json:"days_overdue"`
}

func (h *LoanHandler) toResponse(l *domain.Loan) *loanResponse {
	if l == nil {
		return nil
	}
	now := h.clock().In(h.loc)
	return &loanResponse{Loan: *l, EffectiveStatus: l.EffectiveStatus(now), DaysOverdue: l.DaysOverdue(now)}
}

type createLoanRequest struct {
	TeacherID   string   `json:"teacher_id"`
	AreaID      string   `json:"area_id"`
	GradeID     string   `json:"grade_id"`
	SectionID   string   `json:"section_id"`
	ResourceIDs []string `json:"resource_ids"`
	LoanDate    string   `json:"loan_date"`
	ReturnDate  string   `json:"return_date"`
	Notes       string   `json:"notes"`
}

func (h *LoanHandler) parseDate(field, value string) (time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation(dateLayout, strings.TrimSpace(value), h.loc)
	if err != nil {
		return time.Time{}, domain.NewValidationError(field, "date must be YYYY-MM-DD")
	}
	return t, nil
}

func (h *LoanHandler) CreateLoan(w http.ResponseWriter, r *http.Request) {
	var req createLoanRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err, nil)
		return
	}
	loanDate, err := h.parseDate("loan_date", req.LoanDate)
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	returnDate, err := h.parseDate("return_date", req.ReturnDate)
	if err != nil {
		writeError(w, r, err, nil)
		return
	}

	loan, err := h.loanSvc.CreateLoan(r.Context(), GetUserIDFromContext(r.Context()), service.CreateLoanInput{
		TeacherID:   req.TeacherID,
		AreaID:      req.AreaID,
		GradeID:     req.GradeID,
		SectionID:   req.SectionID,
		ResourceIDs: req.ResourceIDs,
		LoanDate:    loanDate,
		ReturnDate:  returnDate,
		Notes:       req.Notes,
	})
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusCreated, h.toResponse(loan))
}

func (h *LoanHandler) ListLoans(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := parseInt32(q.Get("page"), "page")
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	pageSize, err := parseInt32(q.Get("page_size"), "page_size")
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	filter := repository.LoanFilter{TeacherID: q.Get("teacher_id"), Status: domain.LoanStatus(q.Get("status"))}

	loans, total, err := h.loanSvc.ListLoans(r.Context(), GetUserIDFromContext(r.Context()), filter, page, pageSize)
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	out := make([]*loanResponse, 0, len(loans))
	for i := range loans {
		out = append(out, h.toResponse(&loans[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{"loans": out, "total": total})
}

func (h *LoanHandler) GetLoan(w http.ResponseWriter, r *http.Request) {
	loan, err := h.loanSvc.GetLoan(r.Context(), GetUserIDFromContext(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, h.toResponse(loan))
}

func (h *LoanHandler) AuthorizeLoan(w http.ResponseWriter, r *http.Request) {
	loan, err := h.loanSvc.AuthorizeLoan(r.Context(), GetUserIDFromContext(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, h.toResponse(loan))
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

func (h *LoanHandler) RejectLoan(w http.ResponseWriter, r *http.Request) {
	var req rejectRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err, nil)
		return
	}
	loan, err := h.loanSvc.RejectLoan(r.Context(), GetUserIDFromContext(r.Context()), mux.Vars(r)["id"], req.Reason)
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, h.toResponse(loan))
}

type returnRequest struct {
	DNI       string                  `json:"dni"`
	Resources []domain.ResourceReport `json:"resources"`
}

type returnResponse struct {
	Loan      *loanResponse                `json:"loan"`
	Incidents []domain.MaintenanceIncident `json:"incidents"`
	Warnings  []string                     `json:"warnings,omitempty"`
}

func (h *LoanHandler) ReturnLoan(w http.ResponseWriter, r *http.Request) {
	var req returnRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err, nil)
		return
	}
	result, err := h.loanSvc.ReturnLoan(r.Context(), GetUserIDFromContext(r.Context()), mux.Vars(r)["id"], req.DNI, req.Resources)

	var body *returnResponse
	if result != nil {
		body = &returnResponse{Loan: h.toResponse(result.Loan), Incidents: result.Incidents, Warnings: result.Warnings}
		if body.Incidents == nil {
			body.Incidents = []domain.MaintenanceIncident{}
		}
	}
	if err != nil {
		if body != nil {
			writeError(w, r, err, body)
		} else {
			writeError(w, r, err, nil)
		}
		return
	}
	writeJSON(w, http.StatusOK, body)
}

func (h *LoanHandler) ReconcileLoan(w http.ResponseWriter, r *http.Request) {
	loan, err := h.loanSvc.ReconcileReturnedLoan(r.Context(), GetUserIDFromContext(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		if loan != nil {
			writeError(w, r, err, h.toResponse(loan))
		} else {
			writeError(w, r, err, nil)
		}
		return
	}
	writeJSON(w, http.StatusOK, h.toResponse(loan))
}

func (h *LoanHandler) GetResourceReport(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	report, err := h.loanSvc.GetResourceReport(r.Context(), GetUserIDFromContext(r.Context()), vars["id"], vars["resourceId"])
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func parseInt32(value, field string) (int32, error) {
	if value == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(value, 10, 32)
	if err != nil || n < 0 {
		return 0, domain.NewValidationError(field, "must be a non-negative integer")
	}
	return int32(n), nil
}
