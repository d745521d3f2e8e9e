package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"attendance-tracker-go/models"
	"github.com/xuri/excelize/v2"
)

const (
	classesSheet = "Classes"
	summarySheet = "Summary"
)

// ImportClassesFromExcel reads the first sheet of a workbook and adds one class per
// row. Row 1 is a header; column A is the name, column B the time. Rows with a
// blank cell are skipped. The count of added classes is returned with any
// persistence failures joined into the error.
func (s *Store) ImportClassesFromExcel(ctx context.Context, file io.Reader) (int, error) {
	f, err := excelize.OpenReader(file)
	if err != nil {
		log.Printf("Error opening Excel reader: %v", err)
		return 0, fmt.Errorf("%w: failed to open excel file: %v", models.ErrValidation, err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			log.Printf("Error closing excel file: %v", err)
		}
	}()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return 0, fmt.Errorf("%w: excel file does not contain any sheets", models.ErrValidation)
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		log.Printf("Error getting rows from sheet '%s': %v", sheetName, err)
		return 0, fmt.Errorf("failed to get rows from sheet %s: %w", sheetName, err)
	}

	imported := 0
	var persistErrs []error
	for i, row := range rows {
		if i == 0 {
			continue
		}

		var name, classTime string
		if len(row) > 0 {
			name = row[0]
		}
		if len(row) > 1 {
			classTime = row[1]
		}

		_, err := s.AddClass(ctx, name, classTime)
		switch {
		case err == nil:
			imported++
		case errors.Is(err, models.ErrPersistenceFailure):
			imported++
			persistErrs = append(persistErrs, err)
		default:
			log.Printf("Skipping row %d (name: '%s', time: '%s'): %v", i+1, name, classTime, err)
		}
	}

	log.Printf("Imported %d classes from sheet %s", imported, sheetName)
	return imported, errors.Join(persistErrs...)
}

// ExportReport writes an xlsx workbook with every class and its status plus the
// derived summary.
func (s *Store) ExportReport(w io.Writer) error {
	state := s.Snapshot()
	summary := state.Summary()

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			log.Printf("Error closing excel file: %v", err)
		}
	}()

	if err := f.SetSheetName("Sheet1", classesSheet); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}
	if err := f.SetSheetRow(classesSheet, "A1", &[]any{"Name", "Time", "Status"}); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for i, c := range state.Classes {
		status := string(state.Attendance[c.ID])
		if status == "" {
			status = "unmarked"
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(classesSheet, cell, &[]any{c.Name, c.Time, status}); err != nil {
			return fmt.Errorf("failed to write class %s: %w", c.ID, err)
		}
	}

	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("failed to add summary sheet: %w", err)
	}
	summaryRows := [][]any{
		{"Attendance rate", summary.RateText()},
		{"Goal", fmt.Sprintf("%d%%", state.Goal)},
		{"Classes needed", summary.ClassesNeeded},
		{"Classes missed", summary.ClassesMissed},
	}
	for i, row := range summaryRows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write summary: %w", err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
