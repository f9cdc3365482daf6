package utils

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// fetch model from db
// (may return RecordNotFound)
func FetchSingleModel[T any](ctx context.Context, db *gorm.DB, id int, associations ...string) (*T, error) {
	dbCtx := db.WithContext(ctx)
	for _, field := range associations {
		dbCtx = dbCtx.Preload(field)
	}
	var result T
	err := dbCtx.First(&result, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrorRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// fetch all rows ordered by the given clause
func FetchAllModels[T any](ctx context.Context, db *gorm.DB, order string) ([]*T, error) {
	var results []*T
	dbCtx := db.WithContext(ctx)
	if order != "" {
		dbCtx = dbCtx.Order(order)
	}
	if err := dbCtx.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
