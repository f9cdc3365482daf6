package models

import (
	"gorm.io/gorm"
)

func MigrateTable(db *gorm.DB) error {
	return db.AutoMigrate(
		&Campaign{},
		&CodeDictionary{},
		&History{},
		&MasterRecord{},
		&OutboxMessage{},
		&RevisionDecision{},
		&ScanSubmission{},
		&UpdateQueueEntry{},
		&User{},
	)
}
