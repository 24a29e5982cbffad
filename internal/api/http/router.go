package http

import (
	"net/http"

	"github.com/gorilla/mux"
)

type Handlers struct {
	Auth     *AuthHandler
	User     *UserHandler
	Resource *ResourceHandler
	Loan     *LoanHandler
}

// NewRouter registers every route. Route templates must match the keys in
// config.EndpointSecurityConfig; unknown templates require an administrator.
func NewRouter(h Handlers, auth *AuthMiddleware) *mux.Router {
	r := mux.NewRouter()
	r.Use(LoggingMiddleware, auth.Handler)

	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/auth/login", h.Auth.Login).Methods(http.MethodPost)

	api.HandleFunc("/users", h.User.CreateUser).Methods(http.MethodPost)
	api.HandleFunc("/users/{id}", h.User.GetUser).Methods(http.MethodGet)

	api.HandleFunc("/resources", h.Resource.ListResources).Methods(http.MethodGet)
	api.HandleFunc("/resources/{id}/incidents", h.Resource.ListIncidents).Methods(http.MethodGet)

	api.HandleFunc("/loans", h.Loan.CreateLoan).Methods(http.MethodPost)
	api.HandleFunc("/loans", h.Loan.ListLoans).Methods(http.MethodGet)
	api.HandleFunc("/loans/{id}", h.Loan.GetLoan).Methods(http.MethodGet)
	api.HandleFunc("/loans/{id}/authorize", h.Loan.AuthorizeLoan).Methods(http.MethodPost)
	api.HandleFunc("/loans/{id}/reject", h.Loan.RejectLoan).Methods(http.MethodPost)
	api.HandleFunc("/loans/{id}/return", h.Loan.ReturnLoan).Methods(http.MethodPost)
	api.HandleFunc("/loans/{id}/reconcile", h.Loan.ReconcileLoan).Methods(http.MethodPost)
	api.HandleFunc("/loans/{id}/resources/{resourceId}/report", h.Loan.GetResourceReport).Methods(http.MethodGet)

	return r
}
