package models

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/mmdatafocus/maestro_backend/consensus"
	"github.com/mmdatafocus/maestro_backend/utils"
	"gorm.io/gorm"
)

type Campaign struct {
	ID          int       `gorm:"primary_key" json:"id"`
	Name        string    `gorm:"size:150;not null;uniqueIndex" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	StartsAt    time.Time `gorm:"not null" json:"starts_at"`
	EndsAt      time.Time `gorm:"not null" json:"ends_at"`
	IsActive    *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedBy   string    `gorm:"size:100" json:"created_by"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewCampaign struct {
	Name        string    `json:"name" binding:"required,max=150"`
	Description string    `json:"description"`
	StartsAt    time.Time `json:"starts_at" binding:"required"`
	EndsAt      time.Time `json:"ends_at" binding:"required,gtefield=StartsAt"`
	IsActive    *bool     `json:"is_active"`
}

// AcceptsScansAt reports whether scanners may submit at t.
func (c Campaign) AcceptsScansAt(t time.Time) bool {
	if !utils.DereferencePtr(c.IsActive) {
		return false
	}
	return !t.Before(c.StartsAt) && !t.After(c.EndsAt)
}

func campaignRef(id int) string {
	return strconv.Itoa(id)
}

func (input *NewCampaign) validate() error {
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return consensus.NewValidationError("name", "campaign name is required")
	}
	if input.EndsAt.Before(input.StartsAt) {
		return consensus.NewValidationError("ends_at", "ends_at must not be before starts_at")
	}
	return nil
}

func (s *Store) CreateCampaign(ctx context.Context, input *NewCampaign, createdBy string) (*Campaign, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	if err := utils.ValidateUnique[Campaign](ctx, s.db, "name", input.Name, nil); err != nil {
		if errors.Is(err, utils.ErrorDuplicate) {
			return nil, consensus.NewInvalidStateError(input.Name, "campaign name already exists")
		}
		return nil, err
	}
	isActive := true
	if input.IsActive != nil {
		isActive = *input.IsActive
	}
	campaign := Campaign{
		Name:        input.Name,
		Description: input.Description,
		StartsAt:    input.StartsAt.UTC(),
		EndsAt:      input.EndsAt.UTC(),
		IsActive:    &isActive,
		CreatedBy:   createdBy,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&campaign).Error; err != nil {
			if isDuplicateKeyErr(err) {
				return consensus.NewInvalidStateError(input.Name, "campaign name already exists")
			}
			return err
		}
		return createHistory(tx, HistoryActionCreate, campaign.ID, campaignRef(campaign.ID), "campaign", nil, campaign, "campaign "+campaign.Name+" created")
	})
	if err != nil {
		return nil, err
	}
	return &campaign, nil
}

func (s *Store) UpdateCampaign(ctx context.Context, id int, input *NewCampaign) (*Campaign, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	old, err := s.GetCampaign(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := utils.ValidateUnique[Campaign](ctx, s.db, "name", input.Name, id); err != nil {
		if errors.Is(err, utils.ErrorDuplicate) {
			return nil, consensus.NewInvalidStateError(input.Name, "campaign name already exists")
		}
		return nil, err
	}
	updated := *old
	updated.Name = input.Name
	updated.Description = input.Description
	updated.StartsAt = input.StartsAt.UTC()
	updated.EndsAt = input.EndsAt.UTC()
	if input.IsActive != nil {
		updated.IsActive = input.IsActive
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&Campaign{}).Where("id = ?", id).Updates(map[string]interface{}{
			"name":        updated.Name,
			"description": updated.Description,
			"starts_at":   updated.StartsAt,
			"ends_at":     updated.EndsAt,
			"is_active":   utils.DereferencePtr(updated.IsActive),
		}).Error; err != nil {
			return err
		}
		return createHistory(tx, HistoryActionUpdate, id, campaignRef(id), "campaign", old, updated, "campaign "+updated.Name+" updated")
	})
	if err != nil {
		return nil, err
	}
	return s.GetCampaign(ctx, id)
}

// ToggleCampaign flips is_active.
func (s *Store) ToggleCampaign(ctx context.Context, id int) (*Campaign, error) {
	campaign, err := s.GetCampaign(ctx, id)
	if err != nil {
		return nil, err
	}
	next := !utils.DereferencePtr(campaign.IsActive)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&Campaign{}).Where("id = ?", id).Update("is_active", next).Error; err != nil {
			return err
		}
		desc := "campaign " + campaign.Name + " deactivated"
		if next {
			desc = "campaign " + campaign.Name + " activated"
		}
		return createHistory(tx, HistoryActionUpdate, id, campaignRef(id), "campaign", campaign.IsActive, next, desc)
	})
	if err != nil {
		return nil, err
	}
	campaign.IsActive = &next
	return campaign, nil
}

// GetCampaign returns a NotFound core error for unknown ids.
func (s *Store) GetCampaign(ctx context.Context, id int) (*Campaign, error) {
	campaign, err := utils.FetchSingleModel[Campaign](ctx, s.db, id)
	if errors.Is(err, utils.ErrorRecordNotFound) {
		return nil, consensus.NewNotFoundError(campaignRef(id), "campaign not found")
	}
	return campaign, err
}

func (s *Store) ListCampaigns(ctx context.Context) ([]*Campaign, error) {
	return utils.FetchAllModels[Campaign](ctx, s.db, "starts_at DESC, id DESC")
}

// ActiveCampaigns lists campaigns accepting scans at now.
func (s *Store) ActiveCampaigns(ctx context.Context) ([]*Campaign, error) {
	now := s.now()
	var rows []*Campaign
	err := s.db.WithContext(ctx).
		Where("is_active = ? AND starts_at <= ? AND ends_at >= ?", true, now, now).
		Order("starts_at DESC, id DESC").
		Find(&rows).Error
	return rows, err
}
