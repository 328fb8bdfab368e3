package grid

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/rpattn/gridsync/internal/domain"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
)

// ErrUnsupportedFormat is returned when an uploaded file is not CSV or XLSX.
var ErrUnsupportedFormat = errors.New("unsupported file format")

var byteOrderMark = []byte{0xEF, 0xBB, 0xBF}

// ImportFile parses a delimited tabular upload into rows and appends them to
// the store with provisional identifiers. The header row maps columns to
// field names; unknown columns are skipped. Missing or malformed cells take
// lenient defaults (numeric 0, boolean false, empty text) — a deliberate
// leniency, not silent data loss, and callers should tell the user so.
// Imported rows are NOT persisted remotely here; SaveImported (or the next
// per-record flush) makes them durable.
func (s *Session) ImportFile(fileName string, data io.Reader) (int, error) {
	payload, err := io.ReadAll(data)
	if err != nil {
		return 0, fmt.Errorf("read upload: %w", err)
	}
	if len(payload) == 0 {
		return 0, errors.New("file is empty")
	}

	rows, err := parseGridFile(fileName, payload)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, errors.New("no rows found in file")
	}

	headers := make([]string, len(rows[0]))
	for i, cell := range rows[0] {
		headers[i] = strings.TrimSpace(cell)
	}

	var records []domain.Product
	for _, row := range rows[1:] {
		if rowIsEmpty(row) {
			continue
		}
		records = append(records, s.rowToProduct(headers, row))
	}
	if len(records) == 0 {
		return 0, errors.New("no data rows found in file")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	inserted := 0
	for _, record := range records {
		if err := s.store.Insert(record); err != nil {
			continue
		}
		s.provisional[record.ID] = struct{}{}
		inserted++
	}
	return inserted, nil
}

// rowToProduct builds a product from one data row. Fields without a matching
// column keep their zero value (numeric 0, boolean false, empty text).
func (s *Session) rowToProduct(headers []string, row []string) domain.Product {
	now := time.Now()
	record := domain.Product{
		ID:        uuid.New(),
		CreatedAt: now,
		UpdatedAt: now,
		UpdatedBy: s.cfg.Actor,
	}
	for idx, header := range headers {
		if idx >= len(row) {
			continue
		}
		def, ok := domain.FieldByName(header)
		if !ok || !def.Editable {
			continue
		}
		value := domain.ParseFieldValue(header, row[idx])
		if updated, err := record.WithField(header, value, s.cfg.Actor); err == nil {
			record = updated
		}
	}
	record.CreatedAt = now
	record.UpdatedAt = now
	return record
}

func parseGridFile(fileName string, payload []byte) ([][]string, error) {
	ext := strings.ToLower(filepath.Ext(fileName))
	switch ext {
	case ".csv":
		return parseCSV(payload)
	case ".xlsx":
		return parseExcel(payload)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
}

func parseCSV(payload []byte) ([][]string, error) {
	reader := bufio.NewReader(bytes.NewReader(payload))
	if prefix, err := reader.Peek(len(byteOrderMark)); err == nil && bytes.Equal(prefix, byteOrderMark) {
		_, _ = reader.Discard(len(byteOrderMark))
	}

	csvReader := csv.NewReader(reader)
	csvReader.TrimLeadingSpace = true
	csvReader.FieldsPerRecord = -1

	rows, err := csvReader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return rows, nil
}

func parseExcel(payload []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("excel file has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read rows from xlsx: %w", err)
	}
	return rows, nil
}

func rowIsEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
