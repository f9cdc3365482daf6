package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/mmdatafocus/maestro_backend/consensus"
	"github.com/mmdatafocus/maestro_backend/utils"
)

// ScanSubmission rows are append-only.
type ScanSubmission struct {
	ID                     int       `gorm:"primary_key" json:"id"`
	CampaignId             int       `gorm:"not null;index:idx_scan_campaign_sku,priority:1" json:"campaign_id"`
	Sku                    string    `gorm:"size:64;not null;index:idx_scan_campaign_sku,priority:2" json:"sku"`
	UserEmail              string    `gorm:"size:100;not null;index" json:"user_email"`
	Branch                 string    `gorm:"size:100;index" json:"branch"`
	ProposedCategory       string    `gorm:"size:8" json:"proposed_category"`
	ProposedType           string    `gorm:"size:8" json:"proposed_type"`
	ProposedClassification string    `gorm:"size:8" json:"proposed_classification"`
	SubmittedAt            time.Time `gorm:"not null;index" json:"submitted_at"`
	CreatedAt              time.Time `gorm:"autoCreateTime" json:"created_at"`
}

type NewScanSubmission struct {
	Sku            string `json:"sku" binding:"required"`
	Category       string `json:"category"`
	Type           string `json:"type"`
	Classification string `json:"classification"`
}

func (s ScanSubmission) ToCore() consensus.ScanSubmission {
	return consensus.ScanSubmission{
		SKU:                    s.Sku,
		CampaignID:             s.CampaignId,
		UserEmail:              s.UserEmail,
		Branch:                 s.Branch,
		ProposedCategory:       s.ProposedCategory,
		ProposedType:           s.ProposedType,
		ProposedClassification: s.ProposedClassification,
		SubmittedAt:            s.SubmittedAt,
	}
}

// SubmissionQuery narrows ListSubmissions. Zero values do not filter.
type SubmissionQuery struct {
	Skus      []string
	Branch    string
	UserEmail string
	From      time.Time
	To        time.Time
}

// CreateScanSubmission records one scan from the calling user. The SKU is
// normalized and the codes padded before anything is stored.
func (s *Store) CreateScanSubmission(ctx context.Context, campaignId int, input *NewScanSubmission, userEmail, branch string) (*ScanSubmission, error) {
	sku := consensus.NormalizeSKU(input.Sku)
	if sku == "" {
		return nil, consensus.NewValidationError(input.Sku, "sku is empty after normalization")
	}
	userEmail = strings.ToLower(strings.TrimSpace(userEmail))
	if userEmail == "" {
		return nil, consensus.NewValidationError("", "user email is required")
	}
	triple := consensus.NewTriple(input.Category, input.Type, input.Classification)
	if triple.IsEmpty() {
		return nil, consensus.NewValidationError(sku, "at least one code is required")
	}

	campaign, err := s.GetCampaign(ctx, campaignId)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if !campaign.AcceptsScansAt(now) {
		return nil, consensus.NewInvalidStateError(campaignRef(campaignId), "campaign is not accepting scans")
	}
	if err := s.validateCodes(ctx, triple); err != nil {
		return nil, err
	}

	sub := ScanSubmission{
		CampaignId:             campaignId,
		Sku:                    sku,
		UserEmail:              userEmail,
		Branch:                 strings.TrimSpace(branch),
		ProposedCategory:       triple.Category,
		ProposedType:           triple.Type,
		ProposedClassification: triple.Classification,
		SubmittedAt:            now,
	}
	if err := s.db.WithContext(ctx).Create(&sub).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

// ListSubmissions returns a campaign's submissions in submission order.
func (s *Store) ListSubmissions(ctx context.Context, campaignId int, q SubmissionQuery) ([]consensus.ScanSubmission, error) {
	dbCtx := s.db.WithContext(ctx).Model(&ScanSubmission{}).Where("campaign_id = ?", campaignId)
	if len(q.Skus) > 0 {
		skus := make([]string, 0, len(q.Skus))
		for _, sku := range q.Skus {
			if sku = consensus.NormalizeSKU(sku); sku != "" {
				skus = append(skus, sku)
			}
		}
		dbCtx = dbCtx.Where("sku IN ?", skus)
	}
	if q.Branch != "" {
		dbCtx = dbCtx.Where("branch = ?", q.Branch)
	}
	if q.UserEmail != "" {
		dbCtx = dbCtx.Where("user_email = ?", strings.ToLower(q.UserEmail))
	}
	if !q.From.IsZero() {
		dbCtx = dbCtx.Where("submitted_at >= ?", q.From)
	}
	if !q.To.IsZero() {
		dbCtx = dbCtx.Where("submitted_at <= ?", q.To)
	}
	var rows []ScanSubmission
	if err := dbCtx.Order("submitted_at ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]consensus.ScanSubmission, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.ToCore())
	}
	return out, nil
}

// ListUserSubmissions lists the caller's own scans, newest first.
func (s *Store) ListUserSubmissions(ctx context.Context, campaignId int, userEmail string) ([]*ScanSubmission, error) {
	if err := utils.ValidateResourceId[Campaign](ctx, s.db, campaignId); err != nil {
		if errors.Is(err, utils.ErrorRecordNotFound) {
			return nil, consensus.NewNotFoundError(campaignRef(campaignId), "campaign not found")
		}
		return nil, err
	}
	var rows []*ScanSubmission
	err := s.db.WithContext(ctx).
		Where("campaign_id = ? AND user_email = ?", campaignId, strings.ToLower(strings.TrimSpace(userEmail))).
		Order("submitted_at DESC, id DESC").
		Find(&rows).Error
	return rows, err
}
