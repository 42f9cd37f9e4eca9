package exporter

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"conductcli/internal/analytics"
	"conductcli/pkg/contracts/domain"
)

// infChangeMarker is the distinct rendering of a percent change from a zero
// base. It is deliberately not a number so downstream consumers cannot
// confuse it with a finite percentage.
const infChangeMarker = "+Inf"

// dateLayout is the date format used in exported tables.
const dateLayout = "2006-01-02"

// RecidivismTable flattens recidivism rows into a header and string records.
// The group column is labeled by the grouping attribute that produced it.
func RecidivismTable(rows []analytics.RecidivismRow, groupBy string, format analytics.Format) ([]string, [][]string) {
	headers := []string{"Academic_Year"}
	if groupBy != "" {
		headers = append(headers, groupBy)
	}
	headers = append(headers, "Found_Resp", "Found_Resp_Again", "Recidivism_Rate")
	if format == analytics.FormatRaw {
		headers = append(headers, "Sort_Key")
	}

	records := make([][]string, 0, len(rows))
	for _, row := range rows {
		record := []string{row.AcademicYear}
		if groupBy != "" {
			record = append(record, row.Group)
		}
		record = append(record, formatCount(row.FoundResp), formatCount(row.FoundRespAgain))
		if format == analytics.FormatDisplay {
			record = append(record, row.RateDisplay)
		} else {
			record = append(record, formatRate(row.Rate), strconv.Itoa(row.SortKey))
		}
		records = append(records, record)
	}
	return headers, records
}

// CohortTable flattens cohort recidivism rows into a header and string records.
func CohortTable(rows []analytics.CohortRow, groupBy string, format analytics.Format) ([]string, [][]string) {
	headers := []string{"Cohort_Year"}
	if groupBy != "" {
		headers = append(headers, groupBy)
	}
	headers = append(headers, "Cohort_N", "Recidivists", "Cohort_Recidivism_Rate")
	if format == analytics.FormatRaw {
		headers = append(headers, "Sort_Key")
	}

	records := make([][]string, 0, len(rows))
	for _, row := range rows {
		record := []string{row.CohortYear}
		if groupBy != "" {
			record = append(record, row.Group)
		}
		record = append(record, formatCount(row.CohortN), formatCount(row.Recidivists))
		if format == analytics.FormatDisplay {
			record = append(record, row.RateDisplay)
		} else {
			record = append(record, formatRate(row.Rate), strconv.Itoa(row.SortKey))
		}
		records = append(records, record)
	}
	return headers, records
}

// YearOverYearTable flattens the year-over-year comparison. Count columns are
// labeled by year; change columns by the pair of years they compare.
func YearOverYearTable(table *analytics.YearOverYearTable) ([]string, [][]string) {
	headers := []string{"Violation"}
	headers = append(headers, table.Years...)
	for i := 1; i < len(table.Years); i++ {
		headers = append(headers, fmt.Sprintf("%s_to_%s_Pct_Change", table.Years[i-1], table.Years[i]))
	}

	records := make([][]string, 0, len(table.Rows))
	for _, row := range table.Rows {
		record := []string{row.Violation}
		for _, count := range row.Counts {
			record = append(record, strconv.Itoa(count))
		}
		for _, change := range row.Changes {
			record = append(record, formatChange(change))
		}
		records = append(records, record)
	}
	return headers, records
}

// AssignmentsTable flattens cohort assignments for persistence.
func AssignmentsTable(assignments []domain.CohortAssignment) ([]string, [][]string) {
	headers := []string{"SID", "Cohort_Year", "First_Incident_Date", "First_FileID"}
	records := make([][]string, 0, len(assignments))
	for _, a := range assignments {
		records = append(records, []string{
			a.SID,
			a.CohortYear,
			formatDate(a.FirstIncidentDate),
			a.FirstFileID,
		})
	}
	return headers, records
}

// TimelineRow is one case-resolution timeline with its pause-adjusted
// elapsed days.
type TimelineRow struct {
	FileID          string
	SID             string
	ResolutionType  string
	IncidentDate    time.Time
	ResolutionDate  time.Time
	ElapsedDays     int
	PauseAdjustment int
}

// TimelineTable flattens case-resolution timelines.
func TimelineTable(rows []TimelineRow) ([]string, [][]string) {
	headers := []string{
		"FileID", "SID", "Resolution_Type", "Incident_Date", "Resolution_Date",
		"Elapsed_Days", "Pause_Adjustment", "Adjusted_Days",
	}
	records := make([][]string, 0, len(rows))
	for _, row := range rows {
		records = append(records, []string{
			row.FileID,
			row.SID,
			row.ResolutionType,
			formatDate(row.IncidentDate),
			formatDate(row.ResolutionDate),
			strconv.Itoa(row.ElapsedDays),
			strconv.Itoa(row.PauseAdjustment),
			strconv.Itoa(row.ElapsedDays - row.PauseAdjustment),
		})
	}
	return headers, records
}

func formatCount(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func formatRate(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', 4, 64)
}

func formatChange(v *float64) string {
	if v == nil {
		return ""
	}
	if math.IsInf(*v, 1) {
		return infChangeMarker
	}
	return strconv.FormatFloat(*v, 'f', 4, 64)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}
