package reports

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

var ErrEmptyFile = errors.New("file has no data rows")

// FormatFromFilename picks the reader from the file extension.
func FormatFromFilename(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("invalid file type %q: only .csv and .xlsx files are allowed", filepath.Ext(name))
}

// ReadTable reads the first sheet (or the csv body). The first row is the
// header; header names are lowercased and trimmed.
func ReadTable(r io.Reader, format Format) (*Table, error) {
	var rows [][]string
	switch format {
	case FormatCSV:
		cr := csv.NewReader(r)
		cr.FieldsPerRecord = -1
		cr.TrimLeadingSpace = true
		all, err := cr.ReadAll()
		if err != nil {
			return nil, fmt.Errorf("unable to read csv: %w", err)
		}
		rows = all
	case FormatXLSX:
		f, err := excelize.OpenReader(r)
		if err != nil {
			return nil, fmt.Errorf("failed to open Excel file: %w", err)
		}
		defer f.Close()
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, ErrEmptyFile
		}
		all, err := f.GetRows(sheets[0])
		if err != nil {
			return nil, fmt.Errorf("unable to read sheet: %w", err)
		}
		rows = all
	default:
		return nil, ErrUnsupportedFormat
	}
	if len(rows) < 2 {
		return nil, ErrEmptyFile
	}
	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
	}
	return &Table{Columns: header, Rows: rows[1:]}, nil
}

// Column returns the index of the first matching header name, or -1.
func (t *Table) Column(names ...string) int {
	for _, n := range names {
		for i, c := range t.Columns {
			if c == n {
				return i
			}
		}
	}
	return -1
}

// Cell returns the trimmed value at (row, col), "" when out of range.
func Cell(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[col])
}
