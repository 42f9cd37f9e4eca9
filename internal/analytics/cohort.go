package analytics

import (
	"context"
	"log/slog"
	"sort"
	"time"

	pipeerrors "conductcli/internal/errors"
	"conductcli/pkg/contracts/domain"
)

// cohortRateDecimals is the display precision for long-horizon cohort rates.
const cohortRateDecimals = 1

// CohortEngine computes long-horizon, cohort-defined repeat-involvement
// rates. A student's cohort is fixed by their first-ever responsible case
// across the entire record history, independent of any requested analysis
// window.
type CohortEngine struct {
	logger *slog.Logger
}

// NewCohortEngine creates a new cohort recidivism engine.
func NewCohortEngine(logger *slog.Logger) *CohortEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &CohortEngine{logger: logger}
}

// cohortCase is one collapsed responsible case in a student's history.
type cohortCase struct {
	file string
	year string
	date time.Time
}

// studentHistory is a student's full responsible-case history in record
// encounter order, with the index of their globally-first case.
type studentHistory struct {
	cases []cohortCase
	first int
	group string
}

// Compute aggregates cohort recidivism per cohort year, optionally split by a
// grouping attribute, with the same Overall rollup and display/raw formatting
// rules as the within-window engine. A student is a recidivist when any other
// responsible case falls strictly after their first; when followupThrough is
// set, only later cases on or before July 31 of that academic year's ending
// calendar year count.
func (e *CohortEngine) Compute(ctx context.Context, records []domain.CaseRecord, cohortYears []string, followupThrough, groupBy string, format Format) ([]CohortRow, error) {
	if !format.valid() {
		return nil, pipeerrors.NewWithDetails(pipeerrors.CodeUnknownFormat,
			"unknown output format", int(format))
	}
	orderedYears, sortKeys, err := orderYears(cohortYears)
	if err != nil {
		return nil, err
	}
	yearSet := make(map[string]bool, len(orderedYears))
	for _, y := range orderedYears {
		yearSet[y] = true
	}

	var cutoff time.Time
	if followupThrough != "" {
		cutoff, err = FollowupCutoff(followupThrough)
		if err != nil {
			return nil, err
		}
	}

	histories := e.histories(records, groupBy)

	// Tally per cohort year and per (cohort year, group). Year-level tallies
	// double as the Overall rollup.
	byYear := make(map[string]*tally)
	byYearGroup := make(map[yearGroup]*tally)
	groupsSeen := make(map[string]bool)
	groupsByYear := make(map[string]map[string]bool)

	for _, h := range histories {
		first := h.cases[h.first]
		if !yearSet[first.year] {
			continue
		}

		recidivist := false
		for i, c := range h.cases {
			if i == h.first || !c.date.After(first.date) {
				continue
			}
			if !cutoff.IsZero() && c.date.After(cutoff) {
				continue
			}
			recidivist = true
			break
		}

		t := byYear[first.year]
		if t == nil {
			t = &tally{}
			byYear[first.year] = t
		}
		t.found++
		if recidivist {
			t.again++
		}

		if groupBy != "" {
			g := h.group
			if g == "" {
				g = domain.NotReported
			}
			groupsSeen[g] = true
			if groupsByYear[first.year] == nil {
				groupsByYear[first.year] = make(map[string]bool)
			}
			groupsByYear[first.year][g] = true

			gk := yearGroup{year: first.year, group: g}
			gt := byYearGroup[gk]
			if gt == nil {
				gt = &tally{}
				byYearGroup[gk] = gt
			}
			gt.found++
			if recidivist {
				gt.again++
			}
		}
	}

	rows := assembleCohortRows(orderedYears, sortKeys, groupBy, format, byYear, byYearGroup, groupsSeen, groupsByYear)

	e.logger.InfoContext(ctx, "computed cohort recidivism report",
		"cohort_years", len(orderedYears),
		"followup_through", followupThrough,
		"grouped", groupBy != "",
		"format", format.String(),
		"rows", len(rows),
	)
	return rows, nil
}

// Assignments returns every student's cohort assignment, sorted by SID. The
// assignment is a function of the student's global record history, not of any
// analysis window.
func (e *CohortEngine) Assignments(records []domain.CaseRecord) []domain.CohortAssignment {
	histories := e.histories(records, "")

	sids := make([]string, 0, len(histories))
	for sid := range histories {
		sids = append(sids, sid)
	}
	sort.Strings(sids)

	assignments := make([]domain.CohortAssignment, 0, len(sids))
	for _, sid := range sids {
		first := histories[sid].cases[histories[sid].first]
		assignments = append(assignments, domain.CohortAssignment{
			SID:               sid,
			CohortYear:        first.year,
			FirstIncidentDate: first.date,
			FirstFileID:       first.file,
		})
	}
	return assignments
}

// histories collapses the entire record set into per-student responsible-case
// histories. Respondent records with at least one responsible finding and a
// known incident date participate; duplicates per (SID, FILE_ID, year)
// collapse to the minimum incident date. The first case is the earliest by
// incident date, ties resolved to the first encountered.
func (e *CohortEngine) histories(records []domain.CaseRecord, groupBy string) map[string]*studentHistory {
	histories := make(map[string]*studentHistory)
	position := make(map[caseKey]int)
	latest := make(map[string]time.Time)

	for _, r := range records {
		if !r.IsRespondent() || !r.HasResponsibleFinding() {
			continue
		}
		// A null incident date excludes the case from cohort ordering.
		if r.IncidentDate.IsZero() {
			continue
		}
		year := recordYear(r)
		if year == "" {
			continue
		}

		h := histories[r.SID]
		if h == nil {
			h = &studentHistory{}
			histories[r.SID] = h
		}

		k := caseKey{year: year, sid: r.SID, file: r.FileID}
		if idx, ok := position[k]; ok {
			if r.IncidentDate.Before(h.cases[idx].date) {
				h.cases[idx].date = r.IncidentDate
			}
		} else {
			position[k] = len(h.cases)
			h.cases = append(h.cases, cohortCase{file: r.FileID, year: year, date: r.IncidentDate})
		}

		if groupBy != "" {
			if _, ok := latest[r.SID]; !ok || r.IncidentDate.After(latest[r.SID]) {
				latest[r.SID] = r.IncidentDate
				h.group = r.Attribute(groupBy)
			}
		}
	}

	for _, h := range histories {
		h.first = 0
		for i := 1; i < len(h.cases); i++ {
			if h.cases[i].date.Before(h.cases[h.first].date) {
				h.first = i
			}
		}
	}
	return histories
}

func assembleCohortRows(
	orderedYears []string,
	sortKeys map[string]int,
	groupBy string,
	format Format,
	byYear map[string]*tally,
	byYearGroup map[yearGroup]*tally,
	groupsSeen map[string]bool,
	groupsByYear map[string]map[string]bool,
) []CohortRow {
	var rows []CohortRow

	appendRow := func(year, group string, t *tally, observed bool) {
		row := CohortRow{CohortYear: year, Group: group}
		switch {
		case t != nil:
			row.CohortN = intPtr(t.found)
			row.Recidivists = intPtr(t.again)
			row.Rate = rateOf(t.found, t.again)
		case format == FormatRaw && !observed:
			// Left-joined cross-product combination: nil counts, nil rate.
		default:
			row.CohortN = intPtr(0)
			row.Recidivists = intPtr(0)
		}
		if format == FormatDisplay {
			row.RateDisplay = displayRate(row.Rate, cohortRateDecimals)
		} else {
			row.SortKey = sortKeys[year]
		}
		rows = append(rows, row)
	}

	if groupBy == "" {
		for _, year := range orderedYears {
			appendRow(year, "", byYear[year], byYear[year] != nil)
		}
		return rows
	}

	for _, year := range orderedYears {
		var groups []string
		if format == FormatRaw {
			groups = sortedKeys(groupsSeen)
		} else {
			groups = sortedKeys(groupsByYear[year])
		}
		for _, g := range groups {
			t := byYearGroup[yearGroup{year: year, group: g}]
			appendRow(year, g, t, t != nil)
		}
		appendRow(year, OverallGroup, byYear[year], byYear[year] != nil)
	}
	return rows
}
