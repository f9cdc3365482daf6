package reports

import (
	"bytes"
	"strings"
	"testing"

	"github.com/mmdatafocus/maestro_backend/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatCSV, false},
		{"CSV", FormatCSV, false},
		{" xlsx ", FormatXLSX, false},
		{"pdf", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrUnsupportedFormat, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestTableCSVKeepsCodesAsText(t *testing.T) {
	table := Table{
		Columns: []string{"sku", "category"},
		Rows:    [][]string{{"ABC1", "07"}, {"ABC2", ""}},
	}
	out, err := table.Render(FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "sku,category\nABC1,07\nABC2,\n", string(out))
}

func TestTableXLSXReadBack(t *testing.T) {
	table := Table{
		Sheet:   "discrepancies",
		Columns: []string{"SKU", "Category"},
		Rows:    [][]string{{"ABC1", "07"}, {"ABC2", "05"}},
	}
	out, err := table.Render(FormatXLSX)
	require.NoError(t, err)

	read, err := ReadTable(bytes.NewReader(out), FormatXLSX)
	require.NoError(t, err)
	assert.Equal(t, []string{"sku", "category"}, read.Columns)
	assert.Equal(t, [][]string{{"ABC1", "07"}, {"ABC2", "05"}}, read.Rows)
}

func TestReadTableRejectsHeaderOnly(t *testing.T) {
	_, err := ReadTable(strings.NewReader("sku,category\n"), FormatCSV)
	assert.ErrorIs(t, err, ErrEmptyFile)
}

func TestFormatFromFilename(t *testing.T) {
	f, err := FormatFromFilename("Maestro.XLSX")
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, f)

	_, err = FormatFromFilename("maestro.xls")
	assert.Error(t, err)
}

func TestParseMasterRecordsSpanishHeaders(t *testing.T) {
	body := "\ufeffCodigo,Categoria,Tipo,Clasificacion,Descripcion\nabc-1, 7,2,1,Shampoo\nXYZ9,,,,\n"
	table, err := ReadTable(strings.NewReader(body), FormatCSV)
	require.NoError(t, err)

	rows, err := ParseMasterRecords(table)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, models.MasterRecord{Sku: "abc-1", Category: "7", Type: "2", Classification: "1", Description: "Shampoo"}, rows[0])
	assert.Equal(t, "XYZ9", rows[1].Sku)
	assert.Empty(t, rows[1].Category)
}

func TestParseMasterRecordsNeedsSku(t *testing.T) {
	table := &Table{Columns: []string{"category"}, Rows: [][]string{{"07"}}}
	_, err := ParseMasterRecords(table)
	assert.Error(t, err)
}

func TestParseDictionary(t *testing.T) {
	table := &Table{
		Columns: []string{"kind", "code", "label"},
		Rows: [][]string{
			{"categoria", "7", "Cuidado personal"},
			{"bogus", "1", "Ignored"},
		},
	}
	entries, err := ParseDictionary(table, "")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, models.DictionaryKindCategory, entries[0].Kind)
	assert.Equal(t, models.DictionaryKind(""), entries[1].Kind)

	noKind := &Table{Columns: []string{"code", "label"}, Rows: [][]string{{"01", "Liquid"}}}
	entries, err = ParseDictionary(noKind, models.DictionaryKindType)
	require.NoError(t, err)
	assert.Equal(t, models.DictionaryKindType, entries[0].Kind)

	_, err = ParseDictionary(noKind, "")
	assert.Error(t, err)
}

func TestMaestroTable(t *testing.T) {
	table := MaestroTable([]*models.MasterRecord{{Sku: "A1", Category: "07", Type: "02", Classification: "01", Description: "x"}})
	assert.Equal(t, MaestroColumns, table.Columns)
	assert.Equal(t, [][]string{{"A1", "07", "02", "01", "x"}}, table.Rows)
}
