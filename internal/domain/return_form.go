package domain

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

type FieldErrorKind string

const (
	FieldRequired FieldErrorKind = "required"
	FieldFormat   FieldErrorKind = "format"
	FieldUnknown  FieldErrorKind = "unknown"
)

// FieldError is a per-field validation message for the return form.
type FieldError struct {
	Field   string         `json:"field"`
	Kind    FieldErrorKind `json:"kind"`
	Message string         `json:"message"`
}

// ReturnForm is the state of a return submission. Values are immutable:
// every With* method returns a new form together with the errors of the
// field it changed. Labels and notes are stored NFC-normalized. The DNI is
// kept exactly as submitted.
type ReturnForm struct {
	dni     string
	reports []ResourceReport
}

// NewReturnForm starts an empty form with one entry per loan resource.
func NewReturnForm(resourceIDs []string) ReturnForm {
	reports := make([]ResourceReport, 0, len(resourceIDs))
	for _, id := range resourceIDs {
		reports = append(reports, ResourceReport{ResourceID: id, Damages: []string{}, Suggestions: []string{}})
	}
	return ReturnForm{reports: reports}
}

// Reports returns a deep copy of the per-resource entries.
func (f ReturnForm) Reports() []ResourceReport {
	out := make([]ResourceReport, len(f.reports))
	for i, r := range f.reports {
		out[i] = r
		out[i].Damages = append([]string{}, r.Damages...)
		out[i].Suggestions = append([]string{}, r.Suggestions...)
	}
	return out
}

func (f ReturnForm) WithDNI(dni string) (ReturnForm, []FieldError) {
	next := f.clone()
	next.dni = dni
	return next, validateDNI(next.dni)
}

func (f ReturnForm) WithDamages(resourceID string, labels []string) (ReturnForm, []FieldError) {
	return f.update(resourceID, "damages", func(r *ResourceReport, errs *[]FieldError, field string) {
		r.Damages = cleanLabels(labels, field, errs)
	})
}

func (f ReturnForm) WithDamageNotes(resourceID, notes string) (ReturnForm, []FieldError) {
	return f.update(resourceID, "damage_notes", func(r *ResourceReport, _ *[]FieldError, _ string) {
		r.DamageNotes = cleanNotes(notes)
	})
}

func (f ReturnForm) WithSuggestions(resourceID string, labels []string) (ReturnForm, []FieldError) {
	return f.update(resourceID, "suggestions", func(r *ResourceReport, errs *[]FieldError, field string) {
		r.Suggestions = cleanLabels(labels, field, errs)
	})
}

func (f ReturnForm) WithSuggestionNotes(resourceID, notes string) (ReturnForm, []FieldError) {
	return f.update(resourceID, "suggestion_notes", func(r *ResourceReport, _ *[]FieldError, _ string) {
		r.SuggestionNotes = cleanNotes(notes)
	})
}

// Validate checks the whole form.
func (f ReturnForm) Validate() []FieldError {
	errs := validateDNI(f.dni)
	for _, r := range f.reports {
		for _, group := range []struct {
			name   string
			labels []string
		}{{"damages", r.Damages}, {"suggestions", r.Suggestions}} {
			field := resourceField(r.ResourceID, group.name)
			for _, l := range group.labels {
				if msg := labelProblem(l); msg != "" {
					errs = append(errs, FieldError{Field: field, Kind: FieldFormat, Message: msg})
				}
			}
		}
	}
	return errs
}

func (f ReturnForm) clone() ReturnForm {
	return ReturnForm{dni: f.dni, reports: f.Reports()}
}

func (f ReturnForm) update(resourceID, name string, apply func(*ResourceReport, *[]FieldError, string)) (ReturnForm, []FieldError) {
	field := resourceField(resourceID, name)
	next := f.clone()
	for i := range next.reports {
		if next.reports[i].ResourceID == resourceID {
			var errs []FieldError
			apply(&next.reports[i], &errs, field)
			return next, errs
		}
	}
	return f, []FieldError{{Field: field, Kind: FieldUnknown, Message: "resource is not part of this loan"}}
}

func validateDNI(dni string) []FieldError {
	switch {
	case dni == "":
		return []FieldError{{Field: "dni", Kind: FieldRequired, Message: "DNI is required"}}
	case !ValidDNI(dni):
		return []FieldError{{Field: "dni", Kind: FieldFormat, Message: fmt.Sprintf("DNI must be %d digits", DNILength)}}
	}
	return nil
}

// cleanLabels trims and NFC-normalizes, then drops blanks and duplicates,
// keeping first-seen order.
func cleanLabels(labels []string, field string, errs *[]FieldError) []string {
	out := make([]string, 0, len(labels))
	seen := make(map[string]bool, len(labels))
	for _, l := range labels {
		l = norm.NFC.String(strings.TrimSpace(l))
		if l == "" || seen[l] {
			continue
		}
		if msg := labelProblem(l); msg != "" {
			*errs = append(*errs, FieldError{Field: field, Kind: FieldFormat, Message: msg})
			continue
		}
		seen[l] = true
		out = append(out, l)
	}
	return out
}

func cleanNotes(notes string) string {
	return norm.NFC.String(strings.TrimSpace(notes))
}

// labelProblem rejects characters that delimit labels in the stored report.
func labelProblem(label string) string {
	if strings.ContainsAny(label, ",[]\r\n") {
		return fmt.Sprintf("label %q must not contain commas, brackets or line breaks", label)
	}
	return ""
}

func resourceField(resourceID, name string) string {
	return fmt.Sprintf("resources[%s].%s", resourceID, name)
}
