package dataprocessing

import (
	"context"
	"log/slog"
	"strings"

	"conductcli/internal/analytics"
	"conductcli/internal/config"
	"conductcli/pkg/contracts/domain"
)

// Normalizer applies the enrichment pass to parsed case records:
// canonicalizes names through the configured lookup tables, derives missing
// academic-year labels from incident dates, and anonymizes identifiers before
// anything is persisted downstream.
type Normalizer struct {
	lookups    *config.LookupTables
	anonymizer *analytics.Anonymizer
	logger     *slog.Logger
}

// NewNormalizer creates a normalizer. A nil anonymizer leaves identifiers
// untouched, which is only appropriate in tests.
func NewNormalizer(lookups *config.LookupTables, anonymizer *analytics.Anonymizer, logger *slog.Logger) *Normalizer {
	if lookups == nil {
		lookups = config.EmptyLookups()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{lookups: lookups, anonymizer: anonymizer, logger: logger}
}

// Normalize returns an enriched copy of the records. The input is never
// mutated; every aggregation downstream consumes the returned slice.
func (n *Normalizer) Normalize(ctx context.Context, records []domain.CaseRecord) []domain.CaseRecord {
	out := make([]domain.CaseRecord, len(records))
	derivedYears := 0

	for i, r := range records {
		record := r

		record.Slots = make([]domain.ChargeFinding, len(r.Slots))
		for j, slot := range r.Slots {
			record.Slots[j] = domain.ChargeFinding{
				Charge:  n.lookups.CanonicalViolation(slot.Charge),
				Finding: strings.TrimSpace(slot.Finding),
			}
		}

		if record.AcademicYear == "" && !record.IncidentDate.IsZero() {
			if label, err := analytics.AcademicYear(record.IncidentDate); err == nil {
				record.AcademicYear = label
				derivedYears++
			}
		}

		if len(r.Attributes) > 0 {
			record.Attributes = make(map[string]string, len(r.Attributes))
			for name, value := range r.Attributes {
				switch name {
				case config.ColumnLocation:
					record.Attributes[name] = n.lookups.CanonicalLocation(value)
				case config.ColumnSanction:
					record.Attributes[name] = n.lookups.CanonicalSanction(value)
				default:
					record.Attributes[name] = strings.TrimSpace(value)
				}
			}
		}

		if n.anonymizer != nil {
			record.SID = n.anonymizer.Token(record.SID)
			record.FileID = n.anonymizer.Token(record.FileID)
		}

		out[i] = record
	}

	n.logger.InfoContext(ctx, "normalized case records",
		slog.Int("records", len(out)),
		slog.Int("derived_academic_years", derivedYears),
		slog.Bool("anonymized", n.anonymizer != nil))

	return out
}
