package models

import (
	"context"
	"time"

	"github.com/mmdatafocus/maestro_backend/config"
	"github.com/mmdatafocus/maestro_backend/consensus"
	"github.com/mmdatafocus/maestro_backend/utils"
	"gorm.io/gorm"
)

// RevisionDecision is one decision per (campaign, sku, triple).
type RevisionDecision struct {
	ID             int                     `gorm:"primary_key" json:"id"`
	CampaignId     int                     `gorm:"not null;index:uniq_decision,unique,priority:1" json:"campaign_id"`
	Sku            string                  `gorm:"size:64;not null;index:uniq_decision,unique,priority:2" json:"sku"`
	TripleKey      string                  `gorm:"size:32;not null;index:uniq_decision,unique,priority:3" json:"triple_key"`
	Category       string                  `gorm:"size:8" json:"category"`
	Type           string                  `gorm:"size:8" json:"type"`
	Classification string                  `gorm:"size:8" json:"classification"`
	State          consensus.DecisionState `gorm:"size:20;not null;index" json:"state"`
	DecidedBy      string                  `gorm:"size:100;not null" json:"decided_by"`
	DecidedAt      time.Time               `gorm:"not null" json:"decided_at"`
	QueueEntryId   *string                 `gorm:"size:36;index" json:"queue_entry_id"`
	CreatedAt      time.Time               `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time               `gorm:"autoUpdateTime" json:"updated_at"`
}

// UpdateQueueEntry is a requested change of a maestro record.
type UpdateQueueEntry struct {
	ID                string               `gorm:"primaryKey;size:36" json:"id"`
	CampaignId        int                  `gorm:"not null;index" json:"campaign_id"`
	Sku               string               `gorm:"size:64;not null;index" json:"sku"`
	OldCategory       string               `gorm:"size:8" json:"old_category"`
	OldType           string               `gorm:"size:8" json:"old_type"`
	OldClassification string               `gorm:"size:8" json:"old_classification"`
	NewCategory       string               `gorm:"size:8" json:"new_category"`
	NewType           string               `gorm:"size:8" json:"new_type"`
	NewClassification string               `gorm:"size:8" json:"new_classification"`
	State             consensus.QueueState `gorm:"size:20;not null;index" json:"state"`
	DecidedBy         string               `gorm:"size:100" json:"decided_by"`
	DecidedAt         *time.Time           `json:"decided_at"`
	Archived          bool                 `gorm:"not null;default:false;index" json:"archived"`
	CreatedAt         time.Time            `json:"created_at"`
	UpdatedAt         time.Time            `gorm:"autoUpdateTime" json:"updated_at"`
}

func decisionFromCore(campaignId int, d consensus.Decision) RevisionDecision {
	row := RevisionDecision{
		CampaignId:     campaignId,
		Sku:            d.SKU,
		TripleKey:      d.Triple.Key(),
		Category:       d.Triple.Category,
		Type:           d.Triple.Type,
		Classification: d.Triple.Classification,
		State:          d.State,
		DecidedBy:      d.DecidedBy,
		DecidedAt:      d.DecidedAt,
	}
	if d.QueueEntryID != "" {
		id := d.QueueEntryID
		row.QueueEntryId = &id
	}
	return row
}

func (r RevisionDecision) ToCore() consensus.Decision {
	return consensus.Decision{
		SKU:          r.Sku,
		Triple:       consensus.NewTriple(r.Category, r.Type, r.Classification),
		State:        r.State,
		DecidedBy:    r.DecidedBy,
		DecidedAt:    r.DecidedAt,
		QueueEntryID: utils.DereferencePtr(r.QueueEntryId),
	}
}

func queueEntryFromCore(e consensus.UpdateQueueEntry) UpdateQueueEntry {
	return UpdateQueueEntry{
		ID:                e.ID,
		CampaignId:        e.CampaignID,
		Sku:               e.SKU,
		OldCategory:       e.OldTriple.Category,
		OldType:           e.OldTriple.Type,
		OldClassification: e.OldTriple.Classification,
		NewCategory:       e.NewTriple.Category,
		NewType:           e.NewTriple.Type,
		NewClassification: e.NewTriple.Classification,
		State:             e.State,
		DecidedBy:         e.DecidedBy,
		DecidedAt:         nullableTime(e.DecidedAt),
		Archived:          e.Archived,
		CreatedAt:         e.CreatedAt,
	}
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func (e UpdateQueueEntry) ToCore() consensus.UpdateQueueEntry {
	return consensus.UpdateQueueEntry{
		ID:         e.ID,
		CampaignID: e.CampaignId,
		SKU:        e.Sku,
		OldTriple:  consensus.NewTriple(e.OldCategory, e.OldType, e.OldClassification),
		NewTriple:  consensus.NewTriple(e.NewCategory, e.NewType, e.NewClassification),
		State:      e.State,
		DecidedBy:  e.DecidedBy,
		DecidedAt:  utils.DereferencePtr(e.DecidedAt),
		Archived:   e.Archived,
		CreatedAt:  e.CreatedAt,
	}
}

// LoadRevisionState returns every decision and queue entry of a campaign,
// queue entries in creation order.
func (s *Store) LoadRevisionState(ctx context.Context, campaignId int) ([]consensus.Decision, []consensus.UpdateQueueEntry, error) {
	var decisions []RevisionDecision
	if err := s.db.WithContext(ctx).Where("campaign_id = ?", campaignId).Order("id ASC").Find(&decisions).Error; err != nil {
		return nil, nil, err
	}
	var entries []UpdateQueueEntry
	if err := s.db.WithContext(ctx).Where("campaign_id = ?", campaignId).Order("created_at ASC, id ASC").Find(&entries).Error; err != nil {
		return nil, nil, err
	}
	outDecisions := make([]consensus.Decision, 0, len(decisions))
	for _, d := range decisions {
		outDecisions = append(outDecisions, d.ToCore())
	}
	outEntries := make([]consensus.UpdateQueueEntry, 0, len(entries))
	for _, e := range entries {
		outEntries = append(outEntries, e.ToCore())
	}
	return outDecisions, outEntries, nil
}

// PersistDecision stores a new decision and, for accepts, its queue entry in
// one transaction. A decision that already exists maps to InvalidState.
func (s *Store) PersistDecision(ctx context.Context, campaignId int, d consensus.Decision, entry *consensus.UpdateQueueEntry) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if entry != nil {
			row := queueEntryFromCore(*entry)
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		row := decisionFromCore(campaignId, d)
		if err := tx.Create(&row).Error; err != nil {
			if isDuplicateKeyErr(err) {
				return consensus.NewInvalidStateError(d.SKU+"/"+d.Triple.Key(), "proposal already decided")
			}
			return err
		}
		return createHistory(tx, HistoryActionDecide, campaignId, d.SKU, "revision_decision", nil, d,
			d.SKU+" "+d.Triple.Key()+" "+string(d.State))
	})
}

type QueueOp string

const (
	QueueOpApply     QueueOp = "apply"
	QueueOpReject    QueueOp = "reject"
	QueueOpArchive   QueueOp = "archive"
	QueueOpUnarchive QueueOp = "unarchive"
)

// QueueChange carries the entries and decisions a batch operation touched,
// already in their new state.
type QueueChange struct {
	Op        QueueOp
	Entries   []consensus.UpdateQueueEntry
	Decisions []consensus.Decision
}

// PersistQueueChanges writes a batch result. State transitions are guarded
// on the stored state being pending, so a concurrent writer makes the whole
// batch fail with InvalidState instead of double-applying. Applying also
// updates the maestro, writes history and, when enabled, outbox events.
func (s *Store) PersistQueueChanges(ctx context.Context, campaignId int, change QueueChange) error {
	if len(change.Entries) == 0 {
		return nil
	}
	publish := change.Op == QueueOpApply && config.PublishMaestroUpdates()
	var appliedSkus []string

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, e := range change.Entries {
			q := tx.Model(&UpdateQueueEntry{}).Where("id = ? AND campaign_id = ?", e.ID, campaignId)
			updates := map[string]interface{}{}
			switch change.Op {
			case QueueOpApply, QueueOpReject:
				q = q.Where("state = ?", consensus.QueueStatePending)
				updates["state"] = e.State
				updates["decided_by"] = e.DecidedBy
				updates["decided_at"] = e.DecidedAt
			case QueueOpArchive, QueueOpUnarchive:
				updates["archived"] = e.Archived
			}
			res := q.Updates(updates)
			if res.Error != nil {
				return res.Error
			}
			guarded := change.Op == QueueOpApply || change.Op == QueueOpReject
			if guarded && res.RowsAffected == 0 {
				return consensus.NewInvalidStateError(e.ID, "queue entry changed concurrently")
			}

			switch change.Op {
			case QueueOpApply:
				if err := applyToMaster(tx, e.SKU, e.NewTriple, e.DecidedBy); err != nil {
					return err
				}
				appliedSkus = append(appliedSkus, e.SKU)
				if err := createHistory(tx, HistoryActionApply, campaignId, e.ID, "update_queue_entry", e.OldTriple, e.NewTriple, e.SKU+" updated to "+e.NewTriple.Key()); err != nil {
					return err
				}
				if publish {
					if err := enqueueMaestroUpdate(tx, e); err != nil {
						return err
					}
				}
			case QueueOpReject:
				if err := createHistory(tx, HistoryActionReject, campaignId, e.ID, "update_queue_entry", nil, e, e.SKU+" update rejected"); err != nil {
					return err
				}
			case QueueOpArchive, QueueOpUnarchive:
				if err := createHistory(tx, HistoryActionArchive, campaignId, e.ID, "update_queue_entry", nil, map[string]bool{"archived": e.Archived}, e.SKU+" "+string(change.Op)); err != nil {
					return err
				}
			}
		}
		for _, d := range change.Decisions {
			if err := tx.Model(&RevisionDecision{}).
				Where("campaign_id = ? AND sku = ? AND triple_key = ?", campaignId, d.SKU, d.Triple.Key()).
				Update("state", d.State).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	if len(appliedSkus) > 0 {
		if err := utils.RemoveRedisItems[MasterRecord](appliedSkus...); err != nil {
			config.LogError(config.GetLogger(), "Revision", "PersistQueueChanges", "invalidate cache", appliedSkus, err)
		}
	}
	return nil
}
