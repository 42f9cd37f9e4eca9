package analytics

import (
	"fmt"
	"strconv"
	"time"

	pipeerrors "conductcli/internal/errors"
	"conductcli/pkg/contracts/domain"
)

// academicYearStartMonth is the month the institutional calendar rolls over.
// Dates in August or later belong to the academic year starting that calendar
// year; earlier dates belong to the year starting the previous calendar year.
const academicYearStartMonth = time.August

// AcademicYear maps a calendar date to its academic-year label, e.g.
// 2023-07-31 -> "AY2223" and 2023-08-01 -> "AY2324". The zero time is
// rejected; callers coerce unparseable raw text to zero before resolving.
func AcademicYear(t time.Time) (string, error) {
	if t.IsZero() {
		return "", pipeerrors.New(pipeerrors.CodeInvalidDate, "cannot resolve academic year of a missing date")
	}
	start := t.Year()
	if t.Month() < academicYearStartMonth {
		start--
	}
	return fmt.Sprintf("AY%02d%02d", start%100, (start+1)%100), nil
}

// yearStart extracts the two-digit start year from a label like "AY2324".
func yearStart(label string) (int, error) {
	if len(label) != 6 || label[:2] != "AY" {
		return 0, pipeerrors.NewWithDetails(pipeerrors.CodeInvalidDate,
			"malformed academic-year label", label)
	}
	start, err := strconv.Atoi(label[2:4])
	if err != nil {
		return 0, pipeerrors.NewWithDetails(pipeerrors.CodeInvalidDate,
			"malformed academic-year label", label)
	}
	return start, nil
}

// YearSortKey derives a numeric sort key from an academic-year label: the
// four-digit calendar year the academic year starts in. Labels are assumed to
// fall in the 2000s, matching the export's horizon.
func YearSortKey(label string) (int, error) {
	start, err := yearStart(label)
	if err != nil {
		return 0, err
	}
	return 2000 + start, nil
}

// FollowupCutoff returns the last calendar day of the academic year named by
// label: July 31 of the ending year. Used to bound long-horizon follow-up.
func FollowupCutoff(label string) (time.Time, error) {
	start, err := yearStart(label)
	if err != nil {
		return time.Time{}, err
	}
	endYear := 2000 + start + 1
	return time.Date(endYear, time.July, 31, 0, 0, 0, 0, time.UTC), nil
}

// recordYear buckets a record by its labeled academic year, deriving the
// label from the incident date when the export omits it. Records with neither
// a label nor a usable date return "" and are excluded from temporal
// bucketing.
func recordYear(r domain.CaseRecord) string {
	if r.AcademicYear != "" {
		return r.AcademicYear
	}
	if r.IncidentDate.IsZero() {
		return ""
	}
	label, err := AcademicYear(r.IncidentDate)
	if err != nil {
		return ""
	}
	return label
}
