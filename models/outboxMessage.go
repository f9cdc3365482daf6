package models

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mmdatafocus/maestro_backend/config"
	"github.com/mmdatafocus/maestro_backend/consensus"
	"github.com/mmdatafocus/maestro_backend/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OutboxMessage is written in the same transaction as the change it reports
// and published after commit by the dispatcher.
type OutboxMessage struct {
	ID               int        `gorm:"primary_key;index:idx_outbox_dispatch,priority:3" json:"id"`
	Topic            string     `gorm:"size:255;not null" json:"topic"`
	EventType        string     `gorm:"size:100;not null;index" json:"event_type"`
	AggregateKey     string     `gorm:"size:64;index" json:"aggregate_key"`
	Payload          []byte     `gorm:"type:blob" json:"payload"`
	PublishStatus    string     `gorm:"size:20;index;not null;default:'PENDING';index:idx_outbox_dispatch,priority:1" json:"publish_status"` // PENDING|PROCESSING|SENT|FAILED|DEAD
	PublishedAt      *time.Time `gorm:"index" json:"published_at"`
	PubSubMessageId  *string    `gorm:"size:255" json:"pubsub_message_id"`
	PublishAttempts  int        `gorm:"not null;default:0" json:"publish_attempts"`
	NextAttemptAt    *time.Time `gorm:"index;index:idx_outbox_dispatch,priority:2" json:"next_attempt_at"`
	LockedAt         *time.Time `gorm:"index" json:"locked_at"`
	LockedBy         *string    `gorm:"size:100" json:"locked_by"`
	LastPublishError *string    `gorm:"type:text" json:"last_publish_error"`
	CorrelationId    string     `gorm:"size:64;index" json:"correlation_id"`
	CreatedAt        time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// MaestroUpdatedEvent is the payload of maestro.record.updated.
type MaestroUpdatedEvent struct {
	EventType    string           `json:"event_type"`
	CampaignId   int              `json:"campaign_id"`
	Sku          string           `json:"sku"`
	Old          consensus.Triple `json:"old"`
	New          consensus.Triple `json:"new"`
	DecidedBy    string           `json:"decided_by"`
	DecidedAt    time.Time        `json:"decided_at"`
	QueueEntryId string           `json:"queue_entry_id"`
}

func correlationIdFromContextOrNew(ctx context.Context) string {
	if ctx != nil {
		if v, ok := utils.GetCorrelationIdFromContext(ctx); ok && v != "" {
			return v
		}
	}
	return uuid.NewString()
}

// enqueueMaestroUpdate writes the event inside tx. Publishing happens after
// commit.
func enqueueMaestroUpdate(tx *gorm.DB, e consensus.UpdateQueueEntry) error {
	payload, err := json.Marshal(MaestroUpdatedEvent{
		EventType:    EventMaestroRecordUpdated,
		CampaignId:   e.CampaignID,
		Sku:          e.SKU,
		Old:          e.OldTriple,
		New:          e.NewTriple,
		DecidedBy:    e.DecidedBy,
		DecidedAt:    e.DecidedAt,
		QueueEntryId: e.ID,
	})
	if err != nil {
		return err
	}
	msg := OutboxMessage{
		Topic:         config.MaestroUpdatesTopic(),
		EventType:     EventMaestroRecordUpdated,
		AggregateKey:  e.SKU,
		Payload:       payload,
		PublishStatus: OutboxPublishStatusPending,
		CorrelationId: correlationIdFromContextOrNew(tx.Statement.Context),
	}
	return tx.Create(&msg).Error
}

type OutboxStatusCount struct {
	PublishStatus string `json:"publish_status"`
	Count         int64  `json:"count"`
}

// OutboxStats counts outbox rows per publish status.
func (s *Store) OutboxStats(ctx context.Context) ([]OutboxStatusCount, error) {
	var rows []OutboxStatusCount
	err := s.db.WithContext(ctx).Model(&OutboxMessage{}).
		Select("publish_status, count(*) as count").
		Group("publish_status").
		Order("publish_status").
		Scan(&rows).Error
	return rows, err
}

// RequeueDeadOutbox moves DEAD rows back to PENDING so the dispatcher retries them.
func (s *Store) RequeueDeadOutbox(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).Model(&OutboxMessage{}).
		Where("publish_status = ?", OutboxPublishStatusDead).
		Updates(map[string]interface{}{
			"publish_status":     OutboxPublishStatusPending,
			"publish_attempts":   0,
			"next_attempt_at":    nil,
			"last_publish_error": nil,
		})
	return res.RowsAffected, res.Error
}
