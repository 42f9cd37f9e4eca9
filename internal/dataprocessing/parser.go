package dataprocessing

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"conductcli/internal/config"
	pipeerrors "conductcli/internal/errors"
	"conductcli/pkg/contracts/domain"
)

// dateLayouts are tried in order when coercing incident dates. Values that
// match none of them are coerced to the zero time, not rejected.
var dateLayouts = []string{
	"2006-01-02",
	"1/2/2006",
	"01/02/2006",
	"2006-01-02 15:04:05",
	"2006/01/02",
	"Jan 2, 2006",
}

// Options configures export parsing.
type Options struct {
	// SlotCount is the institution-configured number of charge/finding
	// slot pairs in the export.
	SlotCount int
	// GroupingColumns are optional attribute columns to carry through,
	// e.g. College.
	GroupingColumns []string
	Logger          *slog.Logger
}

func (o Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}

// slotColumns holds the resolved indices of one charge/finding pair.
type slotColumns struct {
	charge  int
	finding int
}

// schema fixes the export's column layout. It is resolved once per file from
// the header row and validated eagerly, never re-derived inside aggregation
// calls.
type schema struct {
	fileID       int
	sid          int
	role         int
	incidentDate int
	academicYear int // -1 when the export omits the column
	slots        []slotColumns
	attributes   map[string]int
}

// ParseFile reads a raw case export, dispatching on the file extension:
// .xlsx/.xlsm workbooks via excelize, anything else as CSV.
func ParseFile(path string, opts Options) ([]domain.CaseRecord, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return ParseWorkbook(path, opts)
	default:
		return ParseCSV(path, opts)
	}
}

// ParseWorkbook reads the case export from an Excel workbook. The data sheet
// is located by scanning for a header row that carries the required columns.
func ParseWorkbook(path string, opts Options) ([]domain.CaseRecord, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	logger := opts.logger()

	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil || len(rows) == 0 {
			continue
		}
		headerRow := findHeaderRow(rows)
		if headerRow == -1 {
			continue
		}
		logger.Info("found case data sheet",
			slog.String("sheet", sheet),
			slog.Int("header_row", headerRow),
			slog.Int("total_rows", len(rows)))
		return buildRecords(rows[headerRow:], opts)
	}

	return nil, pipeerrors.NewWithDetails(pipeerrors.CodeMissingColumn,
		"no sheet with the case export header found", path)
}

// ParseCSV reads the case export from a CSV file, tolerating a UTF-8 BOM.
func ParseCSV(path string, opts Options) ([]domain.CaseRecord, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if len(content) >= 3 && content[0] == 0xEF && content[1] == 0xBB && content[2] == 0xBF {
		content = content[3:]
	}

	reader := csv.NewReader(strings.NewReader(string(content)))
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	if len(rows) == 0 {
		return nil, pipeerrors.NewWithDetails(pipeerrors.CodeMissingColumn,
			"case export has no header row", path)
	}

	return buildRecords(rows, opts)
}

// findHeaderRow scans the first rows of a sheet for the export header.
func findHeaderRow(rows [][]string) int {
	limit := len(rows)
	if limit > 10 {
		limit = 10
	}
	for i := 0; i < limit; i++ {
		text := strings.ToLower(strings.Join(rows[i], " "))
		if strings.Contains(text, strings.ToLower(config.ColumnFileID)) &&
			strings.Contains(text, strings.ToLower(config.ColumnSID)) &&
			strings.Contains(text, strings.ToLower(config.ColumnRole)) {
			return i
		}
	}
	return -1
}

// buildRecords resolves the schema from the header row and converts the data
// rows into case records. Unparseable dates are coerced to the zero time with
// a warning; schema problems fail the whole parse.
func buildRecords(rows [][]string, opts Options) ([]domain.CaseRecord, error) {
	logger := opts.logger()

	sch, err := resolveSchema(rows[0], opts)
	if err != nil {
		return nil, err
	}

	var records []domain.CaseRecord
	badDates := 0

	for _, row := range rows[1:] {
		fileID := cell(row, sch.fileID)
		sid := cell(row, sch.sid)
		if fileID == "" && sid == "" {
			continue
		}

		record := domain.CaseRecord{
			FileID: fileID,
			SID:    sid,
			Role:   cell(row, sch.role),
		}

		if raw := cell(row, sch.incidentDate); raw != "" {
			date, ok := ParseDate(raw)
			if !ok {
				badDates++
				logger.Warn("coercing unparseable incident date to null",
					slog.String("file_id", fileID),
					slog.String("raw", raw))
			}
			record.IncidentDate = date
		}

		if sch.academicYear != -1 {
			record.AcademicYear = cell(row, sch.academicYear)
		}

		for _, slot := range sch.slots {
			record.Slots = append(record.Slots, domain.ChargeFinding{
				Charge:  cell(row, slot.charge),
				Finding: cell(row, slot.finding),
			})
		}

		if len(sch.attributes) > 0 {
			record.Attributes = make(map[string]string, len(sch.attributes))
			for name, idx := range sch.attributes {
				record.Attributes[name] = cell(row, idx)
			}
		}

		records = append(records, record)
	}

	logger.Info("parsed case export",
		slog.Int("records", len(records)),
		slog.Int("slot_pairs", len(sch.slots)),
		slog.Int("coerced_dates", badDates))

	return records, nil
}

// resolveSchema maps the header row to column indices and validates the
// required columns and slot pairs eagerly.
func resolveSchema(header []string, opts Options) (*schema, error) {
	index := make(map[string]int, len(header))
	for i, col := range header {
		name := cleanHeader(col)
		if name == "" {
			continue
		}
		if _, exists := index[strings.ToLower(name)]; !exists {
			index[strings.ToLower(name)] = i
		}
	}

	lookup := func(name string) int {
		if i, ok := index[strings.ToLower(name)]; ok {
			return i
		}
		return -1
	}

	sch := &schema{
		fileID:       lookup(config.ColumnFileID),
		sid:          lookup(config.ColumnSID),
		role:         lookup(config.ColumnRole),
		incidentDate: lookup(config.ColumnIncidentDate),
		academicYear: lookup("AcademicYear"),
		attributes:   make(map[string]int),
	}

	var missing []string
	if sch.fileID == -1 {
		missing = append(missing, config.ColumnFileID)
	}
	if sch.sid == -1 {
		missing = append(missing, config.ColumnSID)
	}
	if sch.role == -1 {
		missing = append(missing, config.ColumnRole)
	}
	if sch.incidentDate == -1 {
		missing = append(missing, config.ColumnIncidentDate)
	}
	if len(missing) > 0 {
		return nil, pipeerrors.NewWithDetails(pipeerrors.CodeMissingColumn,
			"required columns not found", missing)
	}

	slotCount := opts.SlotCount
	if slotCount <= 0 {
		slotCount = 1
	}
	var missingSlots []string
	for i := 1; i <= slotCount; i++ {
		charge := lookupNumbered(lookup, config.ChargeColumnPrefix, i)
		finding := lookupNumbered(lookup, config.FindingColumnPrefix, i)
		if charge == -1 || finding == -1 {
			missingSlots = append(missingSlots,
				fmt.Sprintf("%s %d/%s %d", config.ChargeColumnPrefix, i, config.FindingColumnPrefix, i))
			continue
		}
		sch.slots = append(sch.slots, slotColumns{charge: charge, finding: finding})
	}
	if len(sch.slots) == 0 {
		return nil, pipeerrors.New(pipeerrors.CodeNoFindingColumns,
			"no charge/finding slot columns discoverable in schema")
	}
	if len(missingSlots) > 0 {
		return nil, pipeerrors.NewWithDetails(pipeerrors.CodeMissingColumn,
			"incomplete charge/finding slot pairs", missingSlots)
	}

	// Optional attribute columns: configured grouping columns plus the
	// canonicalized and timeline columns when the export carries them.
	optional := append([]string{}, opts.GroupingColumns...)
	optional = append(optional,
		config.ColumnLocation,
		config.ColumnSanction,
		config.ColumnResolutionDate,
		config.ColumnResolutionType,
	)
	for _, name := range optional {
		if idx := lookup(name); idx != -1 {
			sch.attributes[name] = idx
		}
	}

	return sch, nil
}

// lookupNumbered resolves a slot column accepting both "Charge 1" and
// "Charge1" spellings.
func lookupNumbered(lookup func(string) int, prefix string, n int) int {
	if idx := lookup(fmt.Sprintf("%s %d", prefix, n)); idx != -1 {
		return idx
	}
	return lookup(fmt.Sprintf("%s%d", prefix, n))
}

// cleanHeader strips the UTF-8 BOM and zero-width characters from a header
// cell.
func cleanHeader(col string) string {
	clean := strings.TrimSpace(col)
	clean = strings.TrimPrefix(clean, "\ufeff")
	clean = strings.TrimLeft(clean, "\u200B\u200C\u200D\u2060\uFEFF")
	return strings.TrimSpace(clean)
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// ParseDate coerces a raw date string, reporting whether any layout matched.
// Callers treat a non-match as a null date, not an error.
func ParseDate(raw string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
