package analytics

import (
	pipeerrors "conductcli/internal/errors"
)

// Format selects between the two output modes: human-readable percentage
// strings for dashboards, or numeric rates with sort keys and a complete
// year-by-group cross product for machine consumers. The choice is resolved
// once at the call boundary.
type Format int

const (
	// FormatDisplay renders rates as percentage strings.
	FormatDisplay Format = iota
	// FormatRaw keeps numeric rates and emits the full cross product.
	FormatRaw
)

// String returns the string representation of the format
func (f Format) String() string {
	switch f {
	case FormatDisplay:
		return "display"
	case FormatRaw:
		return "raw"
	default:
		return "unknown"
	}
}

// valid reports whether the format is one of the two closed variants.
func (f Format) valid() bool {
	return f == FormatDisplay || f == FormatRaw
}

// ParseFormat converts a format mode string into its closed variant.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "display":
		return FormatDisplay, nil
	case "raw":
		return FormatRaw, nil
	default:
		return 0, pipeerrors.NewWithDetails(pipeerrors.CodeUnknownFormat,
			"unknown output format", s)
	}
}

// OverallGroup is the synthetic rollup group appended per year when grouping
// is requested. It aggregates across all groups, computed independently from
// the un-grouped case counts.
const OverallGroup = "Overall"

// RecidivismRow is one aggregated row of the within-window recidivism report,
// keyed by (academic year, optional group). Counts and rate are nil for
// combinations the raw cross product left-joins in without observations.
type RecidivismRow struct {
	AcademicYear   string   `json:"academic_year"`
	Group          string   `json:"group,omitempty"`
	FoundResp      *int     `json:"found_resp"`
	FoundRespAgain *int     `json:"found_resp_again"`
	Rate           *float64 `json:"rate"`
	RateDisplay    string   `json:"rate_display,omitempty"`
	SortKey        int      `json:"sort_key,omitempty"`
}

// CohortRow is one aggregated row of the long-horizon cohort recidivism
// report, keyed by (cohort year, optional group).
type CohortRow struct {
	CohortYear  string   `json:"cohort_year"`
	Group       string   `json:"group,omitempty"`
	CohortN     *int     `json:"cohort_n"`
	Recidivists *int     `json:"recidivists"`
	Rate        *float64 `json:"rate"`
	RateDisplay string   `json:"rate_display,omitempty"`
	SortKey     int      `json:"sort_key,omitempty"`
}

// ViolationTrend is one row of the year-over-year comparison: a violation
// label with its per-year frequencies and the percent change between each
// consecutive pair of requested years. A nil change is undefined (0 -> 0);
// +Inf marks growth from a zero base and must never be coerced to a finite
// number.
type ViolationTrend struct {
	Violation string     `json:"violation"`
	Counts    []int      `json:"counts"`
	Changes   []*float64 `json:"changes"`
}

// YearOverYearTable is the complete year-over-year comparison: rows sorted by
// violation label, columns parallel to Years.
type YearOverYearTable struct {
	Years []string         `json:"years"`
	Rows  []ViolationTrend `json:"rows"`
}

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }

// rateOf computes again/found, or nil when the denominator is zero. Division
// by zero always yields an explicit nil rate, never a runtime error and never
// silently zero.
func rateOf(found, again int) *float64 {
	if found == 0 {
		return nil
	}
	return floatPtr(float64(again) / float64(found))
}
