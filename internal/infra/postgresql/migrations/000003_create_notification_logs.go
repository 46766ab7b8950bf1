package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/kursadbilgin/application-notifier/internal/repository"
	"gorm.io/gorm"
)

func createNotificationLogsTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000003_create_notification_logs",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.NotificationLogModel{}); err != nil {
				return err
			}
			return tx.Exec(`CREATE INDEX IF NOT EXISTS idx_notification_logs_type_sent ON notification_logs (notification_type, sent_at)`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.NotificationLogModel{})
		},
	}
}
