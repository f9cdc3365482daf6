package models

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mmdatafocus/maestro_backend/utils"
	"gorm.io/gorm"
)

type History struct {
	ID            int           `gorm:"primary_key" json:"id"`
	ActionType    HistoryAction `gorm:"size:10;not null" json:"action_type"`
	Before        string        `gorm:"type:text" json:"before"`
	After         string        `gorm:"type:text" json:"after"`
	Description   string        `gorm:"type:text;not null" json:"description"`
	ReferenceID   string        `gorm:"size:64;index" json:"reference_id"`
	ReferenceType string        `gorm:"size:50;index" json:"reference_type"`
	CampaignId    int           `gorm:"index" json:"campaign_id"`
	UserName      string        `gorm:"size:100" json:"user_name"`
	CreatedAt     time.Time     `gorm:"autoCreateTime" json:"created_at"`
}

// createHistory writes an audit row in the caller's transaction. The acting
// user comes from the statement context and falls back to "system".
func createHistory(tx *gorm.DB,
	actionType HistoryAction,
	campaignId int,
	referenceId string,
	referenceType string,
	before interface{},
	after interface{},
	description string) error {

	var history History

	if before != nil {
		b, _ := json.Marshal(before)
		history.Before = string(b)
	}
	if after != nil {
		a, _ := json.Marshal(after)
		history.After = string(a)
	}

	userName := "system"
	if ctx := tx.Statement.Context; ctx != nil {
		if v, ok := utils.GetUsernameFromContext(ctx); ok && v != "" {
			userName = v
		}
	}

	history.ActionType = actionType
	history.CampaignId = campaignId
	history.ReferenceID = referenceId
	history.ReferenceType = referenceType
	history.Description = description
	history.UserName = userName

	return tx.Create(&history).Error
}

// ListHistory returns the newest audit rows of a campaign first.
func (s *Store) ListHistory(ctx context.Context, campaignId int, limit int) ([]*History, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var rows []*History
	err := s.db.WithContext(ctx).
		Where("campaign_id = ?", campaignId).
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
