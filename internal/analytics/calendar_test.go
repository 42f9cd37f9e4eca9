package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pipeerrors "conductcli/internal/errors"
	"conductcli/pkg/contracts/domain"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestOverlapAdjustments(t *testing.T) {
	pauses := []domain.PauseRange{
		{Start: day(2023, 12, 18), End: day(2024, 1, 2)},  // winter break, 16 days
		{Start: day(2024, 3, 11), End: day(2024, 3, 15)},  // spring break, 5 days
	}
	adjuster := NewAdjuster(pauses, nil)

	tests := []struct {
		name           string
		r              DateRange
		resolutionType string
		want           int
	}{
		{
			name: "range containing one full pause",
			r:    DateRange{Start: day(2023, 12, 1), End: day(2024, 1, 15)},
			want: 16,
		},
		{
			name: "range spanning both pauses",
			r:    DateRange{Start: day(2023, 12, 1), End: day(2024, 4, 1)},
			want: 21,
		},
		{
			name: "partial overlap clips at the range end",
			r:    DateRange{Start: day(2023, 12, 1), End: day(2023, 12, 20)},
			want: 3,
		},
		{
			name: "no overlap contributes zero",
			r:    DateRange{Start: day(2024, 2, 1), End: day(2024, 2, 28)},
			want: 0,
		},
		{
			name: "single day range inside a pause",
			r:    DateRange{Start: day(2023, 12, 25), End: day(2023, 12, 25)},
			want: 1,
		},
		{
			name:           "warning letter is exempt regardless of overlap",
			r:              DateRange{Start: day(2023, 12, 1), End: day(2024, 1, 15)},
			resolutionType: ResolutionWarningLetter,
			want:           0,
		},
		{
			name: "unknown bound contributes zero instead of failing",
			r:    DateRange{End: day(2024, 1, 15)},
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := adjuster.OverlapAdjustments([]DateRange{tt.r}, []string{tt.resolutionType})
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.Equal(t, tt.want, got[0])
		})
	}
}

func TestOverlapAdjustments_LengthMismatch(t *testing.T) {
	adjuster := NewAdjuster(nil, nil)

	_, err := adjuster.OverlapAdjustments(
		[]DateRange{{Start: day(2024, 1, 1), End: day(2024, 2, 1)}},
		[]string{"Hearing", "Hearing"},
	)
	require.Error(t, err)
	assert.ErrorIs(t, err, pipeerrors.ErrInputLengthMismatch)
}

func TestOverlapAdjustments_OrderInvariant(t *testing.T) {
	forward := []domain.PauseRange{
		{Start: day(2023, 12, 18), End: day(2024, 1, 2)},
		{Start: day(2024, 3, 11), End: day(2024, 3, 15)},
		{Start: day(2023, 11, 22), End: day(2023, 11, 24)},
	}
	reversed := []domain.PauseRange{forward[2], forward[1], forward[0]}

	r := DateRange{Start: day(2023, 11, 1), End: day(2024, 4, 1)}
	a := NewAdjuster(forward, nil).PauseDays(r)
	b := NewAdjuster(reversed, nil).PauseDays(r)

	assert.Equal(t, a, b)
	assert.Equal(t, 24, a)
}

func TestPauseDays_IgnoresInvalidRanges(t *testing.T) {
	pauses := []domain.PauseRange{
		{Start: day(2024, 1, 10), End: day(2024, 1, 5)}, // inverted
		{Start: day(2024, 1, 1)},                        // open ended
	}
	adjuster := NewAdjuster(pauses, nil)

	got := adjuster.PauseDays(DateRange{Start: day(2024, 1, 1), End: day(2024, 1, 31)})
	assert.Equal(t, 0, got)
}

func TestPauseDays_IgnoresTimeOfDay(t *testing.T) {
	pauses := []domain.PauseRange{{Start: day(2024, 1, 1), End: day(2024, 1, 3)}}
	adjuster := NewAdjuster(pauses, nil)

	r := DateRange{
		Start: time.Date(2024, 1, 1, 23, 59, 0, 0, time.UTC),
		End:   time.Date(2024, 1, 3, 0, 1, 0, 0, time.UTC),
	}
	assert.Equal(t, 3, adjuster.PauseDays(r))
}
