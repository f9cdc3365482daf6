package models

import (
	"context"
	"time"

	"github.com/mmdatafocus/maestro_backend/config"
	"github.com/mmdatafocus/maestro_backend/consensus"
	"github.com/mmdatafocus/maestro_backend/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CodeDictionary labels a two-digit code of one kind.
type CodeDictionary struct {
	ID        int            `gorm:"primary_key" json:"id"`
	Kind      DictionaryKind `gorm:"size:20;not null;index:uniq_dictionary_code,unique,priority:1" json:"kind"`
	Code      string         `gorm:"size:8;not null;index:uniq_dictionary_code,unique,priority:2" json:"code"`
	Label     string         `gorm:"size:150;not null" json:"label"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

/*
caches:
	CodeDictionaryList:$kind
*/

func (s *Store) ListDictionary(ctx context.Context, kind DictionaryKind) ([]*CodeDictionary, error) {
	cached, err := utils.RetrieveRedisList[CodeDictionary](string(kind))
	if err != nil {
		config.LogError(config.GetLogger(), "CodeDictionary", "ListDictionary", "retrieve cache", kind, err)
	}
	if cached != nil {
		return cached, nil
	}
	var rows []*CodeDictionary
	if err := s.db.WithContext(ctx).Where("kind = ?", kind).Order("code ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	if err := utils.StoreRedisList(rows, string(kind)); err != nil {
		config.LogError(config.GetLogger(), "CodeDictionary", "ListDictionary", "store cache", kind, err)
	}
	return rows, nil
}

// ImportDictionary upserts entries by (kind, code).
func (s *Store) ImportDictionary(ctx context.Context, entries []CodeDictionary) (*ImportResult, error) {
	result := &ImportResult{Errors: []ImportError{}}
	valid := make([]CodeDictionary, 0, len(entries))
	for i, e := range entries {
		e.Code = consensus.PadCode(e.Code)
		if e.Code == "" || e.Label == "" || e.Kind == "" {
			result.Skipped++
			result.Errors = append(result.Errors, ImportError{Row: i + 2, Error: "kind, code and label are required"})
			continue
		}
		valid = append(valid, e)
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, part := range chunk(valid, inChunkSize) {
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "kind"}, {Name: "code"}},
				DoUpdates: clause.AssignmentColumns([]string{"label", "updated_at"}),
			}).Create(&part).Error; err != nil {
				return err
			}
		}
		return createHistory(tx, HistoryActionImport, 0, "", "code_dictionary", nil, len(valid), "dictionary import")
	})
	if err != nil {
		return nil, err
	}
	result.Updated = len(valid)
	kinds := make([]string, 0, len(DictionaryKinds))
	for _, k := range DictionaryKinds {
		kinds = append(kinds, string(k))
	}
	if err := utils.RemoveRedisList[CodeDictionary](kinds...); err != nil {
		config.LogError(config.GetLogger(), "CodeDictionary", "ImportDictionary", "invalidate cache", nil, err)
	}
	return result, nil
}

// validateCodes checks each code against its dictionary when that dictionary
// has entries. Empty codes are not checked.
func (s *Store) validateCodes(ctx context.Context, t consensus.Triple) error {
	checks := []struct {
		kind DictionaryKind
		code string
	}{
		{DictionaryKindCategory, t.Category},
		{DictionaryKindType, t.Type},
		{DictionaryKindClassification, t.Classification},
	}
	for _, c := range checks {
		if c.code == "" {
			continue
		}
		entries, err := s.ListDictionary(ctx, c.kind)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			continue
		}
		found := false
		for _, e := range entries {
			if e.Code == c.code {
				found = true
				break
			}
		}
		if !found {
			return consensus.NewValidationError(c.code, "unknown "+string(c.kind)+" code")
		}
	}
	return nil
}
