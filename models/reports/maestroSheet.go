package reports

import (
	"errors"

	"github.com/mmdatafocus/maestro_backend/models"
)

var MaestroColumns = []string{"sku", "category", "type", "classification", "description"}

// ParseMasterRecords maps an imported table to master records. Spanish
// headers are accepted too. Normalization happens in the import itself.
func ParseMasterRecords(t *Table) ([]models.MasterRecord, error) {
	skuCol := t.Column("sku", "codigo", "código")
	if skuCol < 0 {
		return nil, errors.New("missing sku column")
	}
	catCol := t.Column("category", "categoria", "categoría")
	typeCol := t.Column("type", "tipo")
	classCol := t.Column("classification", "clasificacion", "clasificación")
	descCol := t.Column("description", "descripcion", "descripción")

	rows := make([]models.MasterRecord, 0, len(t.Rows))
	for _, r := range t.Rows {
		rows = append(rows, models.MasterRecord{
			Sku:            Cell(r, skuCol),
			Category:       Cell(r, catCol),
			Type:           Cell(r, typeCol),
			Classification: Cell(r, classCol),
			Description:    Cell(r, descCol),
		})
	}
	return rows, nil
}

func MaestroTable(records []*models.MasterRecord) Table {
	rows := make([][]string, 0, len(records))
	for _, m := range records {
		rows = append(rows, []string{m.Sku, m.Category, m.Type, m.Classification, m.Description})
	}
	return Table{Sheet: "maestro", Columns: MaestroColumns, Rows: rows}
}

// ParseDictionary reads (kind, code, label) rows. When the file has no kind
// column every row gets defaultKind.
func ParseDictionary(t *Table, defaultKind models.DictionaryKind) ([]models.CodeDictionary, error) {
	codeCol := t.Column("code", "codigo", "código")
	labelCol := t.Column("label", "name", "nombre", "descripcion", "descripción")
	if codeCol < 0 || labelCol < 0 {
		return nil, errors.New("missing code or label column")
	}
	kindCol := t.Column("kind", "tipo_codigo")
	if kindCol < 0 && defaultKind == "" {
		return nil, errors.New("missing kind column")
	}

	entries := make([]models.CodeDictionary, 0, len(t.Rows))
	for _, r := range t.Rows {
		kind := defaultKind
		if kindCol >= 0 {
			// an unknown kind is left empty and reported by the import
			kind, _ = models.ParseDictionaryKind(Cell(r, kindCol))
		}
		entries = append(entries, models.CodeDictionary{
			Kind:  kind,
			Code:  Cell(r, codeCol),
			Label: Cell(r, labelCol),
		})
	}
	return entries, nil
}
