package reports

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

var ErrUnsupportedFormat = errors.New("unsupported format, use csv or xlsx")

func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	}
	return "", ErrUnsupportedFormat
}

func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

func (f Format) Extension() string {
	return string(f)
}

// Table is a header plus string rows, the shape every export uses.
type Table struct {
	Sheet   string
	Columns []string
	Rows    [][]string
}

func (t Table) sheetName() string {
	if t.Sheet == "" {
		return "Sheet1"
	}
	// excelize rejects sheet names longer than 31 characters
	if len(t.Sheet) > 31 {
		return t.Sheet[:31]
	}
	return t.Sheet
}

// Write renders the table in the given format.
func (t Table) Write(w io.Writer, format Format) error {
	switch format {
	case FormatCSV:
		return t.writeCSV(w)
	case FormatXLSX:
		return t.writeXLSX(w)
	}
	return ErrUnsupportedFormat
}

func (t Table) Render(format Format) ([]byte, error) {
	var buf bytes.Buffer
	if err := t.Write(&buf, format); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (t Table) writeCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return err
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return err
	}
	return cw.Error()
}

func (t Table) writeXLSX(w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := t.sheetName()
	if sheetName != "Sheet1" {
		if err := f.SetSheetName("Sheet1", sheetName); err != nil {
			return err
		}
	}

	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		return err
	}
	if err := sw.SetRow("A1", toCells(t.Columns)); err != nil {
		return err
	}
	for i, row := range t.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		// codes like "07" must stay text
		if err := sw.SetRow(cell, toCells(row)); err != nil {
			return fmt.Errorf("row %d: %w", i+2, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return err
	}
	return f.Write(w)
}

func toCells(values []string) []interface{} {
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return cells
}

// Filename builds "<name>.<ext>" for Content-Disposition headers.
func Filename(name string, format Format) string {
	return name + "." + format.Extension()
}
