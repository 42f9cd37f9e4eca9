package exporter

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conductcli/internal/analytics"
	"conductcli/pkg/contracts/domain"
)

func intp(v int) *int { return &v }

func floatp(v float64) *float64 { return &v }

func TestRecidivismTable_Display(t *testing.T) {
	rows := []analytics.RecidivismRow{
		{AcademicYear: "AY2223", Group: "Engineering", FoundResp: intp(10), FoundRespAgain: intp(2), RateDisplay: "20.00%"},
		{AcademicYear: "AY2223", Group: "Overall", FoundResp: intp(25), FoundRespAgain: intp(5), RateDisplay: "20.00%"},
	}

	headers, records := RecidivismTable(rows, "College", analytics.FormatDisplay)
	assert.Equal(t, []string{"Academic_Year", "College", "Found_Resp", "Found_Resp_Again", "Recidivism_Rate"}, headers)
	require.Len(t, records, 2)
	assert.Equal(t, []string{"AY2223", "Engineering", "10", "2", "20.00%"}, records[0])
}

func TestRecidivismTable_RawKeepsNilsEmpty(t *testing.T) {
	rows := []analytics.RecidivismRow{
		{AcademicYear: "AY2223", Group: "Arts", SortKey: 2022},
		{AcademicYear: "AY2223", Group: "Overall", FoundResp: intp(4), FoundRespAgain: intp(1), Rate: floatp(0.25), SortKey: 2022},
	}

	headers, records := RecidivismTable(rows, "College", analytics.FormatRaw)
	assert.Equal(t, []string{"Academic_Year", "College", "Found_Resp", "Found_Resp_Again", "Recidivism_Rate", "Sort_Key"}, headers)
	assert.Equal(t, []string{"AY2223", "Arts", "", "", "", "2022"}, records[0])
	assert.Equal(t, []string{"AY2223", "Overall", "4", "1", "0.2500", "2022"}, records[1])
}

func TestRecidivismTable_UngroupedOmitsGroupColumn(t *testing.T) {
	rows := []analytics.RecidivismRow{
		{AcademicYear: "AY2223", FoundResp: intp(4), FoundRespAgain: intp(1), RateDisplay: "25.00%"},
	}

	headers, records := RecidivismTable(rows, "", analytics.FormatDisplay)
	assert.Equal(t, []string{"Academic_Year", "Found_Resp", "Found_Resp_Again", "Recidivism_Rate"}, headers)
	assert.Equal(t, []string{"AY2223", "4", "1", "25.00%"}, records[0])
}

func TestCohortTable(t *testing.T) {
	rows := []analytics.CohortRow{
		{CohortYear: "AY2122", CohortN: intp(8), Recidivists: intp(2), Rate: floatp(0.25), SortKey: 2021},
	}

	headers, records := CohortTable(rows, "", analytics.FormatRaw)
	assert.Equal(t, []string{"Cohort_Year", "Cohort_N", "Recidivists", "Cohort_Recidivism_Rate", "Sort_Key"}, headers)
	assert.Equal(t, []string{"AY2122", "8", "2", "0.2500", "2021"}, records[0])
}

func TestYearOverYearTable(t *testing.T) {
	table := &analytics.YearOverYearTable{
		Years: []string{"AY2223", "AY2324"},
		Rows: []analytics.ViolationTrend{
			{Violation: "Alcohol", Counts: []int{2, 1}, Changes: []*float64{floatp(-0.5)}},
			{Violation: "Theft", Counts: []int{0, 3}, Changes: []*float64{floatp(math.Inf(1))}},
			{Violation: "Vandalism", Counts: []int{0, 0}, Changes: []*float64{nil}},
		},
	}

	headers, records := YearOverYearTable(table)
	assert.Equal(t, []string{"Violation", "AY2223", "AY2324", "AY2223_to_AY2324_Pct_Change"}, headers)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"Alcohol", "2", "1", "-0.5000"}, records[0])

	// A zero-base change renders as the distinct marker, never a number.
	assert.Equal(t, []string{"Theft", "0", "3", "+Inf"}, records[1])
	// An undefined change renders empty.
	assert.Equal(t, []string{"Vandalism", "0", "0", ""}, records[2])
}

func TestAssignmentsTable(t *testing.T) {
	headers, records := AssignmentsTable([]domain.CohortAssignment{
		{
			SID:               "token-a",
			CohortYear:        "AY2122",
			FirstIncidentDate: time.Date(2021, 9, 10, 0, 0, 0, 0, time.UTC),
			FirstFileID:       "token-f",
		},
	})

	assert.Equal(t, []string{"SID", "Cohort_Year", "First_Incident_Date", "First_FileID"}, headers)
	assert.Equal(t, []string{"token-a", "AY2122", "2021-09-10", "token-f"}, records[0])
}

func TestTimelineTable(t *testing.T) {
	headers, records := TimelineTable([]TimelineRow{
		{
			FileID:          "F1",
			SID:             "S1",
			ResolutionType:  "Hearing",
			IncidentDate:    time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC),
			ResolutionDate:  time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
			ElapsedDays:     45,
			PauseAdjustment: 16,
		},
	})

	assert.Equal(t, []string{
		"FileID", "SID", "Resolution_Type", "Incident_Date", "Resolution_Date",
		"Elapsed_Days", "Pause_Adjustment", "Adjusted_Days",
	}, headers)
	assert.Equal(t, []string{"F1", "S1", "Hearing", "2023-12-01", "2024-01-15", "45", "16", "29"}, records[0])
}
