package analytics

import (
	"log/slog"
	"strings"
	"time"

	pipeerrors "conductcli/internal/errors"
	"conductcli/pkg/contracts/domain"
)

// ResolutionWarningLetter is the resolution type exempt from elapsed-day
// adjustment: warning-letter cases receive adjustment 0 unconditionally.
const ResolutionWarningLetter = "Warning Letter"

// DateRange bounds one elapsed-time measurement, inclusive on both ends.
// A zero Start or End marks the bound as unknown.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Adjuster computes elapsed-day corrections against an institutional calendar
// of excluded pause periods. The calendar is supplied once as an immutable
// argument so the adjuster is independently testable with synthetic calendars.
type Adjuster struct {
	pauses []domain.PauseRange
	logger *slog.Logger
}

// NewAdjuster creates an adjuster over the given pause-period calendar.
func NewAdjuster(pauses []domain.PauseRange, logger *slog.Logger) *Adjuster {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adjuster{pauses: pauses, logger: logger}
}

// OverlapAdjustments returns, per input range, the number of pause days to
// subtract from its elapsed-day count: the sum over all pause periods of the
// inclusive day-overlap with the range. Pure addition over the calendar keeps
// the result invariant under pause-period reordering, and non-overlapping
// periods contribute zero, so nothing is ever double-subtracted. Ranges whose
// resolution type is Warning Letter get adjustment 0 regardless of overlap;
// ranges with an unknown bound contribute 0 per pause period rather than
// failing.
func (a *Adjuster) OverlapAdjustments(ranges []DateRange, resolutionTypes []string) ([]int, error) {
	if len(ranges) != len(resolutionTypes) {
		return nil, pipeerrors.NewWithDetails(pipeerrors.CodeInputLengthMismatch,
			"ranges and resolution types differ in length",
			map[string]int{"ranges": len(ranges), "resolution_types": len(resolutionTypes)})
	}

	adjustments := make([]int, len(ranges))
	for i, r := range ranges {
		if strings.TrimSpace(resolutionTypes[i]) == ResolutionWarningLetter {
			continue
		}
		adjustments[i] = a.pauseDays(r)
	}
	return adjustments, nil
}

// PauseDays returns the total pause-day overlap for a single range.
func (a *Adjuster) PauseDays(r DateRange) int {
	return a.pauseDays(r)
}

func (a *Adjuster) pauseDays(r DateRange) int {
	if r.Start.IsZero() || r.End.IsZero() {
		return 0
	}
	total := 0
	for _, p := range a.pauses {
		if !p.IsValid() {
			continue
		}
		total += inclusiveOverlapDays(r, p)
	}
	return total
}

// inclusiveOverlapDays computes max(0, min(end, pause.end) - max(start,
// pause.start) + 1) on calendar days.
func inclusiveOverlapDays(r DateRange, p domain.PauseRange) int {
	start := laterDay(r.Start, p.Start)
	end := earlierDay(r.End, p.End)
	if end.Before(start) {
		return 0
	}
	return int(end.Sub(start).Hours()/24) + 1
}

// midnight truncates a timestamp to its calendar day in UTC so day arithmetic
// is exact regardless of the time-of-day carried by the export.
func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func laterDay(a, b time.Time) time.Time {
	a, b = midnight(a), midnight(b)
	if a.After(b) {
		return a
	}
	return b
}

func earlierDay(a, b time.Time) time.Time {
	a, b = midnight(a), midnight(b)
	if a.Before(b) {
		return a
	}
	return b
}
