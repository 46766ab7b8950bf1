package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

func addNotificationLogsApplicationIndex() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000004_add_notification_logs_application_index",
		Migrate: func(tx *gorm.DB) error {
			return tx.Exec(`CREATE INDEX IF NOT EXISTS idx_notification_logs_application ON notification_logs (application_type, application_id) WHERE application_id IS NOT NULL`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Exec(`DROP INDEX IF EXISTS idx_notification_logs_application`).Error
		},
	}
}
