package config

import (
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v2"

	pipeerrors "conductcli/internal/errors"
	"conductcli/pkg/contracts/domain"
)

// calendarDateLayout is the date format used in the calendar YAML file.
const calendarDateLayout = "2006-01-02"

// calendarFile is the on-disk shape of the pause-period calendar. Ranges are
// grouped per academic year for maintainability but consumed as one flat,
// unordered list.
type calendarFile struct {
	PausePeriods map[string][]calendarRange `yaml:"pause_periods"`
}

type calendarRange struct {
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

// LoadCalendar reads the institutional pause-period calendar and flattens it
// into a single list of inclusive date ranges. The returned order is
// deterministic (by year label, then start date) but callers must not depend
// on it.
func LoadCalendar(path string) ([]domain.PauseRange, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, pipeerrors.Wrap(pipeerrors.CodeConfigInvalid, "reading pause-period calendar", err)
	}

	var file calendarFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, pipeerrors.Wrap(pipeerrors.CodeConfigInvalid, "parsing pause-period calendar", err)
	}

	years := make([]string, 0, len(file.PausePeriods))
	for year := range file.PausePeriods {
		years = append(years, year)
	}
	sort.Strings(years)

	var pauses []domain.PauseRange
	for _, year := range years {
		for _, cr := range file.PausePeriods[year] {
			start, err := time.Parse(calendarDateLayout, cr.Start)
			if err != nil {
				return nil, pipeerrors.Wrap(pipeerrors.CodeConfigInvalid, "parsing pause-period start date", err)
			}
			end, err := time.Parse(calendarDateLayout, cr.End)
			if err != nil {
				return nil, pipeerrors.Wrap(pipeerrors.CodeConfigInvalid, "parsing pause-period end date", err)
			}
			pr := domain.PauseRange{Start: start, End: end}
			if !pr.IsValid() {
				return nil, pipeerrors.NewWithDetails(pipeerrors.CodeConfigInvalid,
					"inverted pause-period range", map[string]string{"year": year, "start": cr.Start, "end": cr.End})
			}
			pauses = append(pauses, pr)
		}
	}

	sort.Slice(pauses, func(i, j int) bool {
		return pauses[i].Start.Before(pauses[j].Start)
	})

	return pauses, nil
}
