package models

import (
	"context"
	"errors"
	"time"

	"github.com/mmdatafocus/maestro_backend/config"
	"github.com/mmdatafocus/maestro_backend/consensus"
	"github.com/mmdatafocus/maestro_backend/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MasterRecord is one row of the maestro catalog.
type MasterRecord struct {
	ID             int       `gorm:"primary_key" json:"id"`
	Sku            string    `gorm:"size:64;not null;uniqueIndex" json:"sku"`
	Category       string    `gorm:"size:8" json:"category"`
	Type           string    `gorm:"size:8" json:"type"`
	Classification string    `gorm:"size:8" json:"classification"`
	Description    string    `gorm:"size:255" json:"description"`
	UpdatedBy      string    `gorm:"size:100" json:"updated_by"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (m MasterRecord) ToCore() *consensus.MasterRecord {
	return &consensus.MasterRecord{
		SKU:            m.Sku,
		Category:       m.Category,
		Type:           m.Type,
		Classification: m.Classification,
		Description:    m.Description,
	}
}

// Normalize cleans the sku and pads the codes in place.
func (m *MasterRecord) Normalize() {
	m.Sku = consensus.NormalizeSKU(m.Sku)
	t := consensus.NewTriple(m.Category, m.Type, m.Classification)
	m.Category, m.Type, m.Classification = t.Category, t.Type, t.Classification
}

/*
caches:
	MasterRecord:$sku
*/

// GetMasterRecord returns the maestro snapshot of a SKU, or nil when the SKU
// is not in the catalog. The catalog is shared by all campaigns.
func (s *Store) GetMasterRecord(ctx context.Context, campaignId int, sku string) (*consensus.MasterRecord, error) {
	sku = consensus.NormalizeSKU(sku)
	if sku == "" {
		return nil, consensus.NewValidationError("", "sku is required")
	}
	logger := config.GetLogger()
	cached, err := utils.RetrieveRedis[MasterRecord](sku)
	if err != nil {
		config.LogError(logger, "MasterRecord", "GetMasterRecord", "retrieve cache", sku, err)
	}
	if cached != nil {
		return cached.ToCore(), nil
	}

	var rec MasterRecord
	err = s.db.WithContext(ctx).Where("sku = ?", sku).Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := utils.StoreRedis(&rec, sku); err != nil {
		config.LogError(logger, "MasterRecord", "GetMasterRecord", "store cache", sku, err)
	}
	return rec.ToCore(), nil
}

// GetMasterRecords fetches many SKUs at once. Missing SKUs are absent from
// the map.
func (s *Store) GetMasterRecords(ctx context.Context, campaignId int, skus []string) (map[string]*consensus.MasterRecord, error) {
	normalized := make([]string, 0, len(skus))
	for _, sku := range skus {
		if sku = consensus.NormalizeSKU(sku); sku != "" {
			normalized = append(normalized, sku)
		}
	}
	normalized = utils.UniqueSlice(normalized)

	out := make(map[string]*consensus.MasterRecord, len(normalized))
	for _, part := range chunk(normalized, inChunkSize) {
		var rows []MasterRecord
		if err := s.db.WithContext(ctx).Where("sku IN ?", part).Find(&rows).Error; err != nil {
			return nil, err
		}
		for _, r := range rows {
			out[r.Sku] = r.ToCore()
		}
	}
	return out, nil
}

func (s *Store) ListMasterRecords(ctx context.Context) ([]*MasterRecord, error) {
	return utils.FetchAllModels[MasterRecord](ctx, s.db, "sku ASC")
}

type ImportError struct {
	Row   int    `json:"row"`
	Sku   string `json:"sku"`
	Error string `json:"error"`
}

type ImportResult struct {
	Created int           `json:"created"`
	Updated int           `json:"updated"`
	Skipped int           `json:"skipped"`
	Errors  []ImportError `json:"errors"`
}

// ImportMasterRecords upserts rows by SKU. Rows without a usable SKU are
// skipped and reported; the last row wins when a SKU repeats.
func (s *Store) ImportMasterRecords(ctx context.Context, rows []MasterRecord, importedBy string) (*ImportResult, error) {
	result := &ImportResult{Errors: []ImportError{}}
	bySku := make(map[string]MasterRecord, len(rows))
	order := make([]string, 0, len(rows))
	for i, r := range rows {
		raw := r.Sku
		r.Normalize()
		if r.Sku == "" {
			result.Skipped++
			result.Errors = append(result.Errors, ImportError{Row: i + 2, Sku: raw, Error: "invalid sku"})
			continue
		}
		r.UpdatedBy = importedBy
		if _, seen := bySku[r.Sku]; !seen {
			order = append(order, r.Sku)
		} else {
			result.Skipped++
		}
		bySku[r.Sku] = r
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, part := range chunk(order, inChunkSize) {
			var existing []string
			if err := tx.Model(&MasterRecord{}).Where("sku IN ?", part).Pluck("sku", &existing).Error; err != nil {
				return err
			}
			known := make(map[string]bool, len(existing))
			for _, sku := range existing {
				known[sku] = true
			}
			batch := make([]MasterRecord, 0, len(part))
			for _, sku := range part {
				batch = append(batch, bySku[sku])
				if known[sku] {
					result.Updated++
				} else {
					result.Created++
				}
			}
			if err := upsertMasterRecords(tx, batch); err != nil {
				return err
			}
		}
		return createHistory(tx, HistoryActionImport, 0, "", "master_record", nil, result, "maestro import")
	})
	if err != nil {
		return nil, err
	}
	if err := utils.RemoveRedisItems[MasterRecord](order...); err != nil {
		config.LogError(config.GetLogger(), "MasterRecord", "ImportMasterRecords", "invalidate cache", len(order), err)
	}
	return result, nil
}

func upsertMasterRecords(tx *gorm.DB, rows []MasterRecord) error {
	if len(rows) == 0 {
		return nil
	}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "sku"}},
		DoUpdates: clause.AssignmentColumns([]string{"category", "type", "classification", "description", "updated_by", "updated_at"}),
	}).Create(&rows).Error
}

// applyToMaster writes an applied triple, keeping the description. Unknown
// SKUs are created.
func applyToMaster(tx *gorm.DB, sku string, t consensus.Triple, decidedBy string) error {
	var rec MasterRecord
	err := tx.Where("sku = ?", sku).Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		rec = MasterRecord{Sku: sku}
	} else if err != nil {
		return err
	}
	rec.Category, rec.Type, rec.Classification = t.Category, t.Type, t.Classification
	rec.UpdatedBy = decidedBy
	return upsertMasterRecords(tx, []MasterRecord{rec})
}
