package domain

import "time"

const (
	IncidentStatusPending   = "Pendiente"
	IncidentPriorityDefault = "Media"
)

// MaintenanceIncident is created as a side effect of a damaged return.
// ReporterName is a copy taken at creation time, not a live reference.
type MaintenanceIncident struct {
	ID                string    `json:"id"`
	ResourceID        string    `json:"resource_id"`
	IncidentNumber    int       `json:"incident_number"`
	DamageType        string    `json:"damage_type"`
	DamageDescription string    `json:"damage_description"`
	IncidentContext   string    `json:"incident_context"`
	Priority          string    `json:"priority"`
	ReportedBy        string    `json:"reported_by"`
	ReporterName      string    `json:"reporter_name"`
	CurrentStatus     string    `json:"current_status"`
	CreatedOn         time.Time `json:"created_on"`
}
