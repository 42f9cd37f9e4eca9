package analytics

import (
	"context"
	"log/slog"
	"math"
	"sort"

	"conductcli/pkg/contracts/domain"
)

// Comparator compares violation-charge frequencies across a sequence of
// academic years. It consumes the raw charge columns directly: every
// populated charge slot counts, regardless of role or finding outcome.
type Comparator struct {
	logger *slog.Logger
}

// NewComparator creates a new year-over-year comparator.
func NewComparator(logger *slog.Logger) *Comparator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Comparator{logger: logger}
}

// Compare unpivots the charge slots into per-year violation frequencies,
// outer-joins them on violation label with zero fill, and computes the
// percent change between each consecutive pair of requested years in input
// order. A change from a zero base is +Inf, and 0 -> 0 is nil (undefined);
// neither is ever coerced to a finite number. Rows with a blank violation
// label are dropped, and the result is sorted by violation label ascending.
func (c *Comparator) Compare(ctx context.Context, records []domain.CaseRecord, years []string) (*YearOverYearTable, error) {
	// Years keep their input order; the label of each change column is
	// derived from the pair it compares.
	yearIndex := make(map[string]int, len(years))
	for i, y := range years {
		if _, ok := yearIndex[y]; !ok {
			yearIndex[y] = i
		}
	}

	counts := make([]map[string]int, len(years))
	for i := range counts {
		counts[i] = make(map[string]int)
	}

	for _, r := range records {
		idx, ok := yearIndex[recordYear(r)]
		if !ok {
			continue
		}
		// Charges() already drops blank slots, which is what drops rows
		// with a null violation label from the joined table.
		for _, charge := range r.Charges() {
			counts[idx][charge]++
		}
	}

	labelSet := make(map[string]bool)
	for _, yearCounts := range counts {
		for label := range yearCounts {
			labelSet[label] = true
		}
	}
	labels := sortedKeys(labelSet)

	table := &YearOverYearTable{Years: append([]string(nil), years...)}
	for _, label := range labels {
		row := ViolationTrend{
			Violation: label,
			Counts:    make([]int, len(years)),
		}
		for i := range years {
			row.Counts[i] = counts[i][label]
		}
		if len(years) > 1 {
			row.Changes = make([]*float64, len(years)-1)
			for i := 1; i < len(years); i++ {
				row.Changes[i-1] = percentChange(row.Counts[i-1], row.Counts[i])
			}
		}
		table.Rows = append(table.Rows, row)
	}

	sort.Slice(table.Rows, func(i, j int) bool {
		return table.Rows[i].Violation < table.Rows[j].Violation
	})

	c.logger.InfoContext(ctx, "computed year-over-year comparison",
		"years", len(years),
		"violations", len(table.Rows),
	)
	return table, nil
}

// percentChange computes (cur - prev) / prev. Growth from a zero base is
// +Inf; the 0 -> 0 case has no defined change and returns nil.
func percentChange(prev, cur int) *float64 {
	if prev == 0 {
		if cur == 0 {
			return nil
		}
		return floatPtr(math.Inf(1))
	}
	return floatPtr(float64(cur-prev) / float64(prev))
}
