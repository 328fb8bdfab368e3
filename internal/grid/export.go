package grid

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/rpattn/gridsync/internal/domain"

	"github.com/xuri/excelize/v2"
)

// ExportCSV serializes the current projection — post filter and sort — to
// CSV, column-for-column in canonical field order with no value
// transformation beyond string formatting.
func (s *Session) ExportCSV(w io.Writer) error {
	fields := domain.ProductFields()
	records := s.Projection()

	csvWriter := csv.NewWriter(w)
	headers := make([]string, len(fields))
	for i, field := range fields {
		headers[i] = field.Name
	}
	if err := csvWriter.Write(headers); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	row := make([]string, len(fields))
	for _, record := range records {
		for i, field := range fields {
			row[i] = record.FormatField(field.Name)
		}
		if err := csvWriter.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	csvWriter.Flush()
	if err := csvWriter.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// ExportXLSX serializes the current projection to a single-sheet workbook
// with the same columns as the CSV export.
func (s *Session) ExportXLSX(w io.Writer) error {
	fields := domain.ProductFields()
	records := s.Projection()

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	sheet := f.GetSheetName(0)

	header := make([]any, len(fields))
	for i, field := range fields {
		header[i] = field.Name
	}
	cell, err := excelize.CoordinatesToCellName(1, 1)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for rowIdx, record := range records {
		row := make([]any, len(fields))
		for i, field := range fields {
			row[i] = record.FormatField(field.Name)
		}
		cell, err := excelize.CoordinatesToCellName(1, rowIdx+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", rowIdx+1, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
