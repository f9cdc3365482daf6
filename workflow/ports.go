package workflow

import (
	"context"

	"github.com/mmdatafocus/maestro_backend/consensus"
	"github.com/mmdatafocus/maestro_backend/models"
)

type CampaignSource interface {
	GetCampaign(ctx context.Context, id int) (*models.Campaign, error)
}

type SubmissionSource interface {
	ListSubmissions(ctx context.Context, campaignId int, q models.SubmissionQuery) ([]consensus.ScanSubmission, error)
}

// MasterSource returns nil (and no error) for SKUs missing from the maestro.
type MasterSource interface {
	GetMasterRecord(ctx context.Context, campaignId int, sku string) (*consensus.MasterRecord, error)
	GetMasterRecords(ctx context.Context, campaignId int, skus []string) (map[string]*consensus.MasterRecord, error)
}

type RevisionStore interface {
	LoadRevisionState(ctx context.Context, campaignId int) ([]consensus.Decision, []consensus.UpdateQueueEntry, error)
	PersistDecision(ctx context.Context, campaignId int, d consensus.Decision, entry *consensus.UpdateQueueEntry) error
	PersistQueueChanges(ctx context.Context, campaignId int, change models.QueueChange) error
}

// LockFunc serializes writers of one campaign. The returned func releases
// the lock.
type LockFunc func(ctx context.Context, campaignId int, funcName string) (func(), error)

var (
	_ CampaignSource   = (*models.Store)(nil)
	_ SubmissionSource = (*models.Store)(nil)
	_ MasterSource     = (*models.Store)(nil)
	_ RevisionStore    = (*models.Store)(nil)
)
