package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"school-resources-backend/internal/domain"
	"school-resources-backend/internal/logger"
	"school-resources-backend/internal/security"
	"school-resources-backend/internal/service"
)

type errorResponse struct {
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

type partialFailureResponse struct {
	Code      string   `json:"code"`
	Message   string   `json:"message"`
	Succeeded []string `json:"succeeded"`
	Failed    []string `json:"failed"`
	Result    any      `json:"result,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}

func writeErrorBody(w http.ResponseWriter, status int, code, field, message string) {
	writeJSON(w, status, errorResponse{Code: code, Field: field, Message: message})
}

// writeError maps service errors to HTTP responses. result is attached to
// partial failures, which still carry a completed operation.
func writeError(w http.ResponseWriter, r *http.Request, err error, result any) {
	var (
		verr *domain.ValidationError
		cerr *domain.ConflictError
		pf   *domain.PartialFailureError
	)
	switch {
	case errors.As(err, &pf):
		writeJSON(w, http.StatusMultiStatus, partialFailureResponse{
			Code:      "partial_failure",
			Message:   pf.Error(),
			Succeeded: nonNil(pf.Succeeded),
			Failed:    nonNil(pf.Failed),
			Result:    result,
		})
	case errors.As(err, &verr):
		status, code := http.StatusUnprocessableEntity, "validation_failed"
		if verr.Field == "role" {
			status, code = http.StatusForbidden, "forbidden"
		}
		writeErrorBody(w, status, code, verr.Field, verr.Reason)
	case errors.As(err, &cerr):
		writeErrorBody(w, http.StatusConflict, "conflict", "", cerr.Reason)
	case errors.Is(err, domain.ErrNotFound):
		writeErrorBody(w, http.StatusNotFound, "not_found", "", err.Error())
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, security.ErrInvalidToken),
		errors.Is(err, security.ErrExpiredToken):
		writeErrorBody(w, http.StatusUnauthorized, "unauthenticated", "", err.Error())
	default:
		logger.ErrorContext(r.Context(), "Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeErrorBody(w, http.StatusInternalServerError, "internal", "", "internal server error")
	}
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return domain.NewValidationError("body", "malformed JSON: "+err.Error())
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
