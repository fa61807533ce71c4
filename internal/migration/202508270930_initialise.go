package migration

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/lavivara/go-loyalty/models"
	"gorm.io/gorm"
)

var Initialise = &gormigrate.Migration{
	ID: "202508270930-ll-118264",
	Migrate: func(db *gorm.DB) error {
		return db.AutoMigrate(
			&models.Member{},
			&models.LedgerEntry{},
			&models.Reward{},
			&models.Redemption{},
			&models.Subscription{},
			&models.ReferralEvent{},
			&models.BirthdayClaim{},
			&models.ShopSettings{},
			&models.ProcessedEvent{},
		)
	},
	Rollback: func(db *gorm.DB) error {
		return db.Migrator().DropTable(
			&models.Member{},
			&models.LedgerEntry{},
			&models.Reward{},
			&models.Redemption{},
			&models.Subscription{},
			&models.ReferralEvent{},
			&models.BirthdayClaim{},
			&models.ShopSettings{},
			&models.ProcessedEvent{},
		)
	},
}
