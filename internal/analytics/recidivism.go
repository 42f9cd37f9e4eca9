package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	pipeerrors "conductcli/internal/errors"
	"conductcli/pkg/contracts/domain"
)

// recidivismRateDecimals is the display precision for within-window rates.
const recidivismRateDecimals = 2

// RecidivismEngine computes within-window repeat-involvement rates: of the
// students found responsible in an academic year, how many were found
// responsible more than once that same year.
type RecidivismEngine struct {
	logger *slog.Logger
}

// NewRecidivismEngine creates a new recidivism engine.
func NewRecidivismEngine(logger *slog.Logger) *RecidivismEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &RecidivismEngine{logger: logger}
}

// caseKey identifies one case-student pairing within an academic year. The
// export may repeat a pairing across rows (one per populated charge slot), so
// aggregation always collapses on this key first.
type caseKey struct {
	year string
	sid  string
	file string
}

type yearStudent struct {
	year string
	sid  string
}

type yearGroup struct {
	year  string
	group string
}

type tally struct {
	found int
	again int
}

// Compute aggregates repeat-involvement rates per academic year, optionally
// split by a grouping attribute. Only respondent records within the requested
// years that carry at least one responsible finding participate. When groupBy
// is set, each student's group is their most recent respondent record in the
// window, missing values normalize to Not Reported, and a synthetic Overall
// rollup is appended per year. FormatRaw additionally left-joins the complete
// years-by-groups cross product so unobserved combinations appear with nil
// counts instead of being silently absent.
func (e *RecidivismEngine) Compute(ctx context.Context, records []domain.CaseRecord, years []string, groupBy string, format Format) ([]RecidivismRow, error) {
	if !format.valid() {
		return nil, pipeerrors.NewWithDetails(pipeerrors.CodeUnknownFormat,
			"unknown output format", int(format))
	}
	orderedYears, sortKeys, err := orderYears(years)
	if err != nil {
		return nil, err
	}
	yearSet := make(map[string]bool, len(orderedYears))
	for _, y := range orderedYears {
		yearSet[y] = true
	}

	// Phase 1: collapse to one case per (year, SID, FILE_ID) at the minimum
	// incident date, resolving each student's grouping attribute from their
	// most recent record in the window along the way.
	cases := make(map[caseKey]time.Time)
	groupOf := make(map[string]string)
	latest := make(map[string]time.Time)

	for _, r := range records {
		if !r.IsRespondent() || !r.HasResponsibleFinding() {
			continue
		}
		year := recordYear(r)
		if year == "" || !yearSet[year] {
			continue
		}

		k := caseKey{year: year, sid: r.SID, file: r.FileID}
		if cur, ok := cases[k]; !ok || earlierIncident(r.IncidentDate, cur) {
			cases[k] = r.IncidentDate
		}

		if groupBy != "" {
			if _, ok := latest[r.SID]; !ok || r.IncidentDate.After(latest[r.SID]) {
				latest[r.SID] = r.IncidentDate
				groupOf[r.SID] = r.Attribute(groupBy)
			}
		}
	}

	// Phase 2: distinct case counts per (year, student).
	counts := make(map[yearStudent]int)
	for k := range cases {
		counts[yearStudent{year: k.year, sid: k.sid}]++
	}

	// Phase 3: aggregate per year and per (year, group). The year-level
	// tallies double as the Overall rollup, computed independently from the
	// un-grouped counts so students are never double counted across groups.
	byYear := make(map[string]*tally)
	byYearGroup := make(map[yearGroup]*tally)
	groupsSeen := make(map[string]bool)
	groupsByYear := make(map[string]map[string]bool)

	for ys, n := range counts {
		t := byYear[ys.year]
		if t == nil {
			t = &tally{}
			byYear[ys.year] = t
		}
		t.found++
		if n > 1 {
			t.again++
		}

		if groupBy != "" {
			g := groupOf[ys.sid]
			if g == "" {
				g = domain.NotReported
			}
			groupsSeen[g] = true
			if groupsByYear[ys.year] == nil {
				groupsByYear[ys.year] = make(map[string]bool)
			}
			groupsByYear[ys.year][g] = true

			gk := yearGroup{year: ys.year, group: g}
			gt := byYearGroup[gk]
			if gt == nil {
				gt = &tally{}
				byYearGroup[gk] = gt
			}
			gt.found++
			if n > 1 {
				gt.again++
			}
		}
	}

	rows := e.assembleRows(orderedYears, sortKeys, groupBy, format, byYear, byYearGroup, groupsSeen, groupsByYear)

	e.logger.InfoContext(ctx, "computed recidivism report",
		"years", len(orderedYears),
		"grouped", groupBy != "",
		"format", format.String(),
		"rows", len(rows),
	)
	return rows, nil
}

func (e *RecidivismEngine) assembleRows(
	orderedYears []string,
	sortKeys map[string]int,
	groupBy string,
	format Format,
	byYear map[string]*tally,
	byYearGroup map[yearGroup]*tally,
	groupsSeen map[string]bool,
	groupsByYear map[string]map[string]bool,
) []RecidivismRow {
	var rows []RecidivismRow

	appendRow := func(year, group string, t *tally, observed bool) {
		row := RecidivismRow{AcademicYear: year, Group: group}
		switch {
		case t != nil:
			row.FoundResp = intPtr(t.found)
			row.FoundRespAgain = intPtr(t.again)
			row.Rate = rateOf(t.found, t.again)
		case format == FormatRaw && !observed:
			// Left-joined cross-product combination: nil counts, nil rate.
		default:
			row.FoundResp = intPtr(0)
			row.FoundRespAgain = intPtr(0)
		}
		if format == FormatDisplay {
			row.RateDisplay = displayRate(row.Rate, recidivismRateDecimals)
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
			// Complete cross product over every group observed in any year.
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

// orderYears deduplicates and sorts requested year labels by their calendar
// sort key so output ordering is deterministic regardless of input order.
func orderYears(years []string) ([]string, map[string]int, error) {
	sortKeys := make(map[string]int, len(years))
	var ordered []string
	for _, y := range years {
		if _, ok := sortKeys[y]; ok {
			continue
		}
		key, err := YearSortKey(y)
		if err != nil {
			return nil, nil, err
		}
		sortKeys[y] = key
		ordered = append(ordered, y)
	}
	sort.Slice(ordered, func(i, j int) bool {
		return sortKeys[ordered[i]] < sortKeys[ordered[j]]
	})
	return ordered, sortKeys, nil
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// earlierIncident reports whether candidate should replace current as the
// collapsed incident date: a set date beats the zero date, and an earlier set
// date beats a later one.
func earlierIncident(candidate, current time.Time) bool {
	if candidate.IsZero() {
		return false
	}
	return current.IsZero() || candidate.Before(current)
}

// displayRate renders a rate as a percentage string, or "" for a nil rate.
func displayRate(rate *float64, decimals int) string {
	if rate == nil {
		return ""
	}
	return fmt.Sprintf("%.*f%%", decimals, *rate*100)
}
