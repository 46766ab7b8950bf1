package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/kursadbilgin/application-notifier/internal/repository"
	"gorm.io/gorm"
)

func createEmailBrandingTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000002_create_email_branding",
		Migrate: func(tx *gorm.DB) error {
			return tx.AutoMigrate(&repository.EmailBrandingModel{})
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.EmailBrandingModel{})
		},
	}
}
