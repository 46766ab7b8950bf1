package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// Migrate applies the tables this service owns. Portal tables (jobs, tenders,
// applications, profiles) are managed by the portal and never touched here.
func Migrate(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		createNotificationPreferencesTable(),
		createEmailBrandingTable(),
		createNotificationLogsTable(),
		addNotificationLogsApplicationIndex(),
	})

	return m.Migrate()
}
