package utils

import (
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"school-resources-backend/internal/domain"
)

// ReportTimestampLayout is the es-PE style date used in the report header.
const ReportTimestampLayout = "02/01/2006, 15:04:05"

const (
	resourceHeaderPrefix = "[Recurso ID "
	damagesPrefix        = "Daños:"
	suggestionsPrefix    = "Sugerencias:"
	notesPrefix          = "Notas:"
)

// BuildReturnReport serializes per-resource return observations into the
// text stored in Loan.Notes. Entries with nothing reported are omitted.
//
//	[18/10/2026, 14:05:03]
//	[Recurso ID r1]
//	Daños: [Pantalla Rayada]
//	Notas: golpe en la esquina
//	Sugerencias: []
//	Notas:
func BuildReturnReport(ts time.Time, loc *time.Location, entries []domain.ResourceReport) string {
	if loc == nil {
		loc = time.UTC
	}
	var b strings.Builder
	b.WriteString("[")
	b.WriteString(ts.In(loc).Format(ReportTimestampLayout))
	b.WriteString("]\n")

	for _, e := range entries {
		e = normalizeEntry(e)
		if e.Empty() {
			continue
		}
		b.WriteString("\n")
		b.WriteString(resourceHeaderPrefix + e.ResourceID + "]\n")
		b.WriteString(damagesPrefix + " [" + strings.Join(e.Damages, ", ") + "]\n")
		b.WriteString(notesLine(e.DamageNotes))
		b.WriteString(suggestionsPrefix + " [" + strings.Join(e.Suggestions, ", ") + "]\n")
		b.WriteString(notesLine(e.SuggestionNotes))
	}
	return b.String()
}

// ParseReturnReport recovers the report stored by BuildReturnReport. It
// returns nil for blank notes and leaves Timestamp nil when the header is
// missing or unreadable. Free text without resource blocks yields a report
// with no entries.
func ParseReturnReport(notes string, loc *time.Location) *domain.ReturnReport {
	if strings.TrimSpace(notes) == "" {
		return nil
	}
	if loc == nil {
		loc = time.UTC
	}

	report := &domain.ReturnReport{Entries: []domain.ResourceReport{}}
	var current *domain.ResourceReport
	section := ""

	flush := func() {
		if current != nil {
			report.Entries = append(report.Entries, *current)
			current = nil
		}
	}

	for _, raw := range strings.Split(notes, "\n") {
		line := strings.TrimSpace(raw)
		switch {
		case line == "":
			continue
		case strings.HasPrefix(line, resourceHeaderPrefix) && strings.HasSuffix(line, "]"):
			flush()
			id := strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(line, resourceHeaderPrefix), "]"))
			current = &domain.ResourceReport{ResourceID: id, Damages: []string{}, Suggestions: []string{}}
			section = ""
		case current == nil:
			if report.Timestamp == nil && strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
				inner := strings.TrimSuffix(strings.TrimPrefix(line, "["), "]")
				if ts, err := time.ParseInLocation(ReportTimestampLayout, inner, loc); err == nil {
					report.Timestamp = &ts
				}
			}
		case strings.HasPrefix(line, damagesPrefix):
			current.Damages = parseLabelList(strings.TrimPrefix(line, damagesPrefix))
			section = damagesPrefix
		case strings.HasPrefix(line, suggestionsPrefix):
			current.Suggestions = parseLabelList(strings.TrimPrefix(line, suggestionsPrefix))
			section = suggestionsPrefix
		case strings.HasPrefix(line, notesPrefix):
			text := norm.NFC.String(strings.TrimSpace(strings.TrimPrefix(line, notesPrefix)))
			switch section {
			case damagesPrefix:
				current.DamageNotes = text
			case suggestionsPrefix:
				current.SuggestionNotes = text
			}
		}
	}
	flush()
	return report
}

func notesLine(notes string) string {
	if notes == "" {
		return notesPrefix + "\n"
	}
	return notesPrefix + " " + notes + "\n"
}

func parseLabelList(s string) []string {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(strings.TrimPrefix(s, "["), "]")
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if l := norm.NFC.String(strings.TrimSpace(part)); l != "" {
			out = append(out, l)
		}
	}
	return out
}

func normalizeEntry(e domain.ResourceReport) domain.ResourceReport {
	return domain.ResourceReport{
		ResourceID:      strings.TrimSpace(e.ResourceID),
		Damages:         normalizeLabels(e.Damages),
		DamageNotes:     flatten(e.DamageNotes),
		Suggestions:     normalizeLabels(e.Suggestions),
		SuggestionNotes: flatten(e.SuggestionNotes),
	}
}

func normalizeLabels(labels []string) []string {
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		if l = norm.NFC.String(strings.TrimSpace(l)); l != "" {
			out = append(out, l)
		}
	}
	return out
}

// flatten keeps notes on a single line so they cannot be mistaken for a
// section header when parsed back.
func flatten(s string) string {
	return norm.NFC.String(strings.Join(strings.Fields(s), " "))
}
