package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"conductcli/internal/analytics"
	"conductcli/internal/config"
	"conductcli/internal/dataprocessing"
	"conductcli/internal/exporter"
	"conductcli/internal/infrastructure"
	"conductcli/pkg/contracts/domain"
)

// Output file names within the export directory.
const (
	RecidivismCSV  = "recidivism.csv"
	CohortCSV      = "cohort_recidivism.csv"
	TrendsCSV      = "violations_yoy.csv"
	AssignmentsCSV = "cohort_assignments.csv"
	TimelinesCSV   = "case_timelines.csv"
	CasesCSV       = "cases_normalized.csv"
	WorkbookFile   = "conduct_analytics.xlsx"
)

// ReportService runs the full analytics pipeline: parse the raw export,
// normalize and anonymize it, compute the report families concurrently, and
// write every output. Nothing is written until all computation has succeeded,
// so a failed run commits no partial output.
type ReportService struct {
	cfg    *config.Config
	logger *slog.Logger
}

// NewReportService creates a report service for one configuration.
func NewReportService(cfg *config.Config, logger *slog.Logger) *ReportService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReportService{cfg: cfg, logger: logger}
}

// reportSet holds everything one run computes before any output is written.
type reportSet struct {
	recidivism        []analytics.RecidivismRow
	recidivismDisplay []analytics.RecidivismRow
	cohort            []analytics.CohortRow
	cohortDisplay     []analytics.CohortRow
	trends            *analytics.YearOverYearTable
	assignments       []domain.CohortAssignment
	timelines         []exporter.TimelineRow
}

// Run executes one pipeline run end to end.
func (s *ReportService) Run(ctx context.Context) error {
	runID := uuid.New().String()
	ctx = infrastructure.WithRunID(ctx, runID)
	started := time.Now()

	s.logger.InfoContext(ctx, "starting pipeline run",
		slog.String("input", s.cfg.Paths.InputFile),
		slog.String("export_dir", s.cfg.Paths.ExportDir))

	format, err := analytics.ParseFormat(s.cfg.Reports.Format)
	if err != nil {
		return err
	}

	pauses, err := s.loadCalendar(ctx)
	if err != nil {
		return err
	}
	lookups, err := s.loadLookups(ctx)
	if err != nil {
		return err
	}

	// The anonymization secret stays inside the anonymizer. It is never
	// logged and never reaches the exporters.
	key, err := s.cfg.Anonymization.Key()
	if err != nil {
		return err
	}
	anonymizer, err := analytics.NewAnonymizer(key, s.cfg.Anonymization.TokenLength)
	if err != nil {
		return err
	}

	records, err := dataprocessing.ParseFile(s.cfg.Paths.InputFile, dataprocessing.Options{
		SlotCount:       s.cfg.Schema.SlotCount,
		GroupingColumns: s.cfg.Schema.GroupingColumns,
		Logger:          s.logger,
	})
	if err != nil {
		return fmt.Errorf("parsing case export: %w", err)
	}

	normalizer := dataprocessing.NewNormalizer(lookups, anonymizer, s.logger)
	normalized := normalizer.Normalize(ctx, records)

	years := s.cfg.Reports.Years
	if len(years) == 0 {
		years = observedYears(normalized)
	}
	cohortYears := s.cfg.Reports.CohortYears
	if len(cohortYears) == 0 {
		cohortYears = years
	}
	groupBy := s.cfg.Reports.GroupBy

	results, err := s.compute(ctx, normalized, years, cohortYears, groupBy, format, pauses)
	if err != nil {
		return err
	}

	if err := s.export(ctx, normalized, results, groupBy, format); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "pipeline run complete",
		slog.Int("records", len(normalized)),
		slog.Int("years", len(years)),
		slog.Duration("elapsed", time.Since(started)))
	return nil
}

// compute runs the report engines concurrently. The display rendering is
// always produced for the workbook; the configured format drives the CSVs.
func (s *ReportService) compute(ctx context.Context, records []domain.CaseRecord,
	years, cohortYears []string, groupBy string, format analytics.Format,
	pauses []domain.PauseRange) (*reportSet, error) {

	results := &reportSet{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		engine := analytics.NewRecidivismEngine(s.logger)
		rows, err := engine.Compute(gctx, records, years, groupBy, format)
		if err != nil {
			return fmt.Errorf("computing recidivism: %w", err)
		}
		results.recidivism = rows
		if format == analytics.FormatDisplay {
			results.recidivismDisplay = rows
			return nil
		}
		display, err := engine.Compute(gctx, records, years, groupBy, analytics.FormatDisplay)
		if err != nil {
			return fmt.Errorf("computing recidivism: %w", err)
		}
		results.recidivismDisplay = display
		return nil
	})

	g.Go(func() error {
		engine := analytics.NewCohortEngine(s.logger)
		rows, err := engine.Compute(gctx, records, cohortYears, s.cfg.Reports.FollowupThrough, groupBy, format)
		if err != nil {
			return fmt.Errorf("computing cohort recidivism: %w", err)
		}
		results.cohort = rows
		results.assignments = engine.Assignments(records)
		if format == analytics.FormatDisplay {
			results.cohortDisplay = rows
			return nil
		}
		display, err := engine.Compute(gctx, records, cohortYears, s.cfg.Reports.FollowupThrough, groupBy, analytics.FormatDisplay)
		if err != nil {
			return fmt.Errorf("computing cohort recidivism: %w", err)
		}
		results.cohortDisplay = display
		return nil
	})

	g.Go(func() error {
		table, err := analytics.NewComparator(s.logger).Compare(gctx, records, years)
		if err != nil {
			return fmt.Errorf("comparing violation trends: %w", err)
		}
		results.trends = table
		return nil
	})

	g.Go(func() error {
		rows, err := s.buildTimelines(gctx, records, pauses)
		if err != nil {
			return fmt.Errorf("building case timelines: %w", err)
		}
		results.timelines = rows
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// buildTimelines derives incident-to-resolution timelines for the cases that
// carry a resolution date, with the pause-calendar adjustment applied to each.
func (s *ReportService) buildTimelines(ctx context.Context, records []domain.CaseRecord,
	pauses []domain.PauseRange) ([]exporter.TimelineRow, error) {

	type caseKey struct {
		fileID string
		sid    string
	}
	seen := make(map[caseKey]bool)

	var rows []exporter.TimelineRow
	var ranges []analytics.DateRange
	var resolutionTypes []string

	for _, r := range records {
		raw := r.Attributes[config.ColumnResolutionDate]
		if raw == "" || r.IncidentDate.IsZero() {
			continue
		}
		resolved, ok := dataprocessing.ParseDate(raw)
		if !ok {
			s.logger.WarnContext(ctx, "skipping timeline with unparseable resolution date",
				slog.String("file_id", r.FileID),
				slog.String("raw", raw))
			continue
		}
		k := caseKey{fileID: r.FileID, sid: r.SID}
		if seen[k] {
			continue
		}
		seen[k] = true

		resolutionType := r.Attributes[config.ColumnResolutionType]
		rows = append(rows, exporter.TimelineRow{
			FileID:         r.FileID,
			SID:            r.SID,
			ResolutionType: resolutionType,
			IncidentDate:   r.IncidentDate,
			ResolutionDate: resolved,
			ElapsedDays:    elapsedDays(r.IncidentDate, resolved),
		})
		ranges = append(ranges, analytics.DateRange{Start: r.IncidentDate, End: resolved})
		resolutionTypes = append(resolutionTypes, resolutionType)
	}

	adjuster := analytics.NewAdjuster(pauses, s.logger)
	adjustments, err := adjuster.OverlapAdjustments(ranges, resolutionTypes)
	if err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].PauseAdjustment = adjustments[i]
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].FileID != rows[j].FileID {
			return rows[i].FileID < rows[j].FileID
		}
		return rows[i].SID < rows[j].SID
	})
	return rows, nil
}

// export writes every output of the run: the CSV reports in the configured
// format, the normalized case dump, and the display-format workbook.
func (s *ReportService) export(ctx context.Context, records []domain.CaseRecord,
	results *reportSet, groupBy string, format analytics.Format) error {

	writer := exporter.NewCSVWriter(s.cfg.Paths.ExportDir)

	headers, rows := exporter.RecidivismTable(results.recidivism, groupBy, format)
	if err := writer.WriteSimpleCSV(RecidivismCSV, headers, rows); err != nil {
		return fmt.Errorf("writing %s: %w", RecidivismCSV, err)
	}
	headers, rows = exporter.CohortTable(results.cohort, groupBy, format)
	if err := writer.WriteSimpleCSV(CohortCSV, headers, rows); err != nil {
		return fmt.Errorf("writing %s: %w", CohortCSV, err)
	}
	headers, rows = exporter.YearOverYearTable(results.trends)
	if err := writer.WriteSimpleCSV(TrendsCSV, headers, rows); err != nil {
		return fmt.Errorf("writing %s: %w", TrendsCSV, err)
	}
	headers, rows = exporter.AssignmentsTable(results.assignments)
	if err := writer.WriteSimpleCSV(AssignmentsCSV, headers, rows); err != nil {
		return fmt.Errorf("writing %s: %w", AssignmentsCSV, err)
	}
	headers, rows = exporter.TimelineTable(results.timelines)
	if err := writer.WriteSimpleCSV(TimelinesCSV, headers, rows); err != nil {
		return fmt.Errorf("writing %s: %w", TimelinesCSV, err)
	}

	if err := s.exportCases(writer, records); err != nil {
		return fmt.Errorf("writing %s: %w", CasesCSV, err)
	}

	var sheets []exporter.Sheet
	headers, rows = exporter.RecidivismTable(results.recidivismDisplay, groupBy, analytics.FormatDisplay)
	sheets = append(sheets, exporter.Sheet{Name: "Recidivism", Headers: headers, Records: rows})
	headers, rows = exporter.CohortTable(results.cohortDisplay, groupBy, analytics.FormatDisplay)
	sheets = append(sheets, exporter.Sheet{Name: "Cohort Recidivism", Headers: headers, Records: rows})
	headers, rows = exporter.YearOverYearTable(results.trends)
	sheets = append(sheets, exporter.Sheet{Name: "Violation Trends", Headers: headers, Records: rows})

	workbookPath := writer.ResolvePath(WorkbookFile)
	if err := exporter.WriteWorkbook(workbookPath, sheets); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "wrote pipeline outputs",
		slog.String("export_dir", s.cfg.Paths.ExportDir),
		slog.Int("recidivism_rows", len(results.recidivism)),
		slog.Int("cohort_rows", len(results.cohort)),
		slog.Int("trend_rows", len(results.trends.Rows)),
		slog.Int("timelines", len(results.timelines)))
	return nil
}

// exportCases streams the normalized, anonymized case records. Large exports
// go through the stream writer so the whole dump is never held as strings.
func (s *ReportService) exportCases(writer *exporter.CSVWriter, records []domain.CaseRecord) error {
	headers := []string{
		config.ColumnFileID, config.ColumnSID, config.ColumnRole,
		config.ColumnIncidentDate, "AcademicYear",
	}
	for i := 1; i <= s.cfg.Schema.SlotCount; i++ {
		headers = append(headers,
			fmt.Sprintf("%s %d", config.ChargeColumnPrefix, i),
			fmt.Sprintf("%s %d", config.FindingColumnPrefix, i))
	}
	headers = append(headers, s.cfg.Schema.GroupingColumns...)

	stream, err := writer.CreateStreamWriter(CasesCSV, headers)
	if err != nil {
		return err
	}

	for _, r := range records {
		row := []string{r.FileID, r.SID, r.Role, formatDate(r.IncidentDate), r.AcademicYear}
		for i := 0; i < s.cfg.Schema.SlotCount; i++ {
			if i < len(r.Slots) {
				row = append(row, r.Slots[i].Charge, r.Slots[i].Finding)
			} else {
				row = append(row, "", "")
			}
		}
		for _, col := range s.cfg.Schema.GroupingColumns {
			row = append(row, r.Attributes[col])
		}
		if err := stream.WriteRecord(row); err != nil {
			stream.Close()
			return err
		}
	}
	return stream.Close()
}

// loadCalendar loads the pause calendar when one is configured and present.
// A pipeline without a calendar simply applies no pause adjustments.
func (s *ReportService) loadCalendar(ctx context.Context) ([]domain.PauseRange, error) {
	path := s.cfg.Paths.CalendarFile
	if path == "" {
		return nil, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		s.logger.WarnContext(ctx, "pause calendar not found, applying no adjustments",
			slog.String("path", path))
		return nil, nil
	}
	return config.LoadCalendar(path)
}

// loadLookups loads the canonicalization tables when configured and present.
func (s *ReportService) loadLookups(ctx context.Context) (*config.LookupTables, error) {
	path := s.cfg.Paths.LookupsFile
	if path == "" {
		return config.EmptyLookups(), nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		s.logger.WarnContext(ctx, "lookup tables not found, canonicalizing nothing",
			slog.String("path", path))
		return config.EmptyLookups(), nil
	}
	return config.LoadLookups(path)
}

// observedYears collects the distinct academic-year labels present in the
// records, sorted chronologically. Used when no report years are configured.
func observedYears(records []domain.CaseRecord) []string {
	seen := make(map[string]bool)
	var years []string
	for _, r := range records {
		label := r.AcademicYear
		if label == "" || seen[label] {
			continue
		}
		if _, err := analytics.YearSortKey(label); err != nil {
			continue
		}
		seen[label] = true
		years = append(years, label)
	}
	sort.Slice(years, func(i, j int) bool {
		a, _ := analytics.YearSortKey(years[i])
		b, _ := analytics.YearSortKey(years[j])
		return a < b
	})
	return years
}

// elapsedDays counts whole days between two dates, ignoring time of day.
func elapsedDays(from, to time.Time) int {
	f := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	t := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(t.Sub(f) / (24 * time.Hour))
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}
