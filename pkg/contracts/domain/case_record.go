package domain

import (
	"strings"
	"time"
)

// Literals fixed by the upstream export contract.
const (
	// RoleRespondent marks the participant the case was brought against.
	// Only respondent records participate in recidivism computation.
	RoleRespondent = "Respondent"

	// FindingResponsible is the finding text that counts as a responsible
	// outcome. Matching is trim + case-fold.
	FindingResponsible = "responsible"

	// NotReported is the normalized value for missing grouping attributes.
	NotReported = "Not Reported"
)

// ChargeFinding is one charge slot paired with its finding outcome. The export
// carries a fixed, institution-configured number of these per case row.
type ChargeFinding struct {
	Charge  string `json:"charge"`
	Finding string `json:"finding"`
}

// IsResponsible reports whether this slot's finding is a responsible outcome.
func (cf ChargeFinding) IsResponsible() bool {
	return strings.EqualFold(strings.TrimSpace(cf.Finding), FindingResponsible)
}

// CaseRecord is one case-student pairing from the disciplinary export.
// A pairing is uniquely identified by (FileID, SID). IncidentDate uses the
// zero time for unknown dates; such records are excluded from temporal
// bucketing and cohort ordering.
type CaseRecord struct {
	FileID       string            `json:"file_id"`
	SID          string            `json:"sid"`
	Role         string            `json:"role"`
	IncidentDate time.Time         `json:"incident_date"`
	AcademicYear string            `json:"academic_year,omitempty"`
	Slots        []ChargeFinding   `json:"slots"`
	Attributes   map[string]string `json:"attributes,omitempty"`
}

// IsRespondent reports whether the record's participant role is Respondent.
func (r CaseRecord) IsRespondent() bool {
	return strings.TrimSpace(r.Role) == RoleRespondent
}

// HasResponsibleFinding reports whether any finding slot carries a responsible
// outcome (any-match semantics across all slots).
func (r CaseRecord) HasResponsibleFinding() bool {
	for _, slot := range r.Slots {
		if slot.IsResponsible() {
			return true
		}
	}
	return false
}

// Charges returns the non-empty charge labels in slot order.
func (r CaseRecord) Charges() []string {
	var charges []string
	for _, slot := range r.Slots {
		if c := strings.TrimSpace(slot.Charge); c != "" {
			charges = append(charges, c)
		}
	}
	return charges
}

// Attribute returns the named grouping attribute, normalized to NotReported
// when the column is absent or blank.
func (r CaseRecord) Attribute(name string) string {
	if v := strings.TrimSpace(r.Attributes[name]); v != "" {
		return v
	}
	return NotReported
}

// PauseRange is an inclusive calendar range (holiday, break) excluded from
// elapsed-time metrics. Ranges are an unordered set; summation over them must
// not depend on order.
type PauseRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// IsValid checks that both ends are set and the range is not inverted.
func (p PauseRange) IsValid() bool {
	return !p.Start.IsZero() && !p.End.IsZero() && !p.End.Before(p.Start)
}

// Days returns the inclusive length of the range in days.
func (p PauseRange) Days() int {
	if !p.IsValid() {
		return 0
	}
	return int(p.End.Sub(p.Start).Hours()/24) + 1
}

// CohortAssignment fixes a student's cohort: the academic year, date, and case
// of their first-ever responsible finding, computed over the student's entire
// history independent of any analysis window.
type CohortAssignment struct {
	SID               string    `json:"sid"`
	CohortYear        string    `json:"cohort_year"`
	FirstIncidentDate time.Time `json:"first_incident_date"`
	FirstFileID       string    `json:"first_file_id"`
}
