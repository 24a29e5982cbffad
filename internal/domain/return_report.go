package domain

import "time"

// ResourceReport is what was observed for one resource at return time.
type ResourceReport struct {
	ResourceID      string   `json:"resource_id"`
	Damages         []string `json:"damages"`
	DamageNotes     string   `json:"damage_notes,omitempty"`
	Suggestions     []string `json:"suggestions"`
	SuggestionNotes string   `json:"suggestion_notes,omitempty"`
}

// HasDamage reports whether at least one damage was selected.
func (r ResourceReport) HasDamage() bool {
	return len(r.Damages) > 0
}

// Empty reports whether nothing at all was reported for the resource.
func (r ResourceReport) Empty() bool {
	return len(r.Damages) == 0 && len(r.Suggestions) == 0 &&
		r.DamageNotes == "" && r.SuggestionNotes == ""
}

// ReturnReport is the parsed form of the text stored in Loan.Notes after a
// return.
type ReturnReport struct {
	Timestamp *time.Time       `json:"timestamp"`
	Entries   []ResourceReport `json:"entries"`
}

// ForResource returns the entry for resourceID. A resource without a block
// is reported as having no incidents.
func (r *ReturnReport) ForResource(resourceID string) ResourceReport {
	if r != nil {
		for _, e := range r.Entries {
			if e.ResourceID == resourceID {
				return e
			}
		}
	}
	return ResourceReport{ResourceID: resourceID, Damages: []string{}, Suggestions: []string{}}
}
