package exporter

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	pipeerrors "conductcli/internal/errors"
)

// Sheet is one tab of the analytics workbook.
type Sheet struct {
	Name    string
	Headers []string
	Records [][]string
}

// WriteWorkbook writes the analytics workbook, one sheet per report family.
// Row order is whatever the engines produced; the exporter never re-sorts.
func WriteWorkbook(path string, sheets []Sheet) error {
	if len(sheets) == 0 {
		return pipeerrors.New(pipeerrors.CodeExportFailed, "no sheets to write")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return pipeerrors.Wrap(pipeerrors.CodeExportFailed, "creating workbook directory", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	for i, sheet := range sheets {
		if i == 0 {
			// Reuse the default sheet for the first report.
			if err := f.SetSheetName(f.GetSheetName(0), sheet.Name); err != nil {
				return pipeerrors.Wrap(pipeerrors.CodeExportFailed, "renaming sheet", err)
			}
		} else {
			if _, err := f.NewSheet(sheet.Name); err != nil {
				return pipeerrors.Wrap(pipeerrors.CodeExportFailed, "adding sheet", err)
			}
		}
		if err := writeSheet(f, sheet); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return pipeerrors.Wrap(pipeerrors.CodeExportFailed, "saving workbook", err)
	}

	slog.Info("Wrote analytics workbook",
		slog.String("path", path),
		slog.Int("sheets", len(sheets)))
	return nil
}

func writeSheet(f *excelize.File, sheet Sheet) error {
	if err := setRow(f, sheet.Name, 1, sheet.Headers); err != nil {
		return err
	}
	for i, record := range sheet.Records {
		if err := setRow(f, sheet.Name, i+2, record); err != nil {
			return err
		}
	}
	return nil
}

func setRow(f *excelize.File, sheetName string, rowNumber int, values []string) error {
	cellName, err := excelize.CoordinatesToCellName(1, rowNumber)
	if err != nil {
		return pipeerrors.Wrap(pipeerrors.CodeExportFailed, "computing cell name", err)
	}
	row := make([]interface{}, len(values))
	for i, v := range values {
		row[i] = v
	}
	if err := f.SetSheetRow(sheetName, cellName, &row); err != nil {
		return pipeerrors.Wrap(pipeerrors.CodeExportFailed,
			fmt.Sprintf("writing row %d of sheet %s", rowNumber, sheetName), err)
	}
	return nil
}
