package domain

type ResourceStatus string

const (
	ResourceStatusAvailable   ResourceStatus = "Disponible"
	ResourceStatusOnLoan      ResourceStatus = "En Préstamo"
	ResourceStatusMaintenance ResourceStatus = "En Mantenimiento"
	ResourceStatusDamaged     ResourceStatus = "Dañado"
)

func (s ResourceStatus) Valid() bool {
	switch s {
	case ResourceStatusAvailable, ResourceStatusOnLoan, ResourceStatusMaintenance, ResourceStatusDamaged:
		return true
	}
	return false
}

// UnderMaintenance reports whether an open incident holds the resource.
// Loan workflows never move a resource out of these states.
func (s ResourceStatus) UnderMaintenance() bool {
	switch s {
	case ResourceStatusMaintenance, ResourceStatusDamaged:
		return true
	case ResourceStatusAvailable, ResourceStatusOnLoan:
		return false
	}
	return false
}

type Resource struct {
	ID         string         `json:"id"`
	Number     string         `json:"number"`
	Brand      string         `json:"brand"`
	Model      string         `json:"model"`
	CategoryID string         `json:"category_id"`
	Status     ResourceStatus `json:"status"`
}
