package go_loyalty

import (
	db2 "github.com/lavivara/go-loyalty/internal/db"
	"github.com/lavivara/go-loyalty/internal/serviceimpl"
	"github.com/lavivara/go-loyalty/service"
	"gorm.io/gorm"
)

type LoyaltyService struct {
	Settings      service.SettingsService
	Members       service.MemberService
	Ledger        service.LedgerService
	Tiers         service.TierService
	Birthdays     service.BirthdayService
	Referrals     service.ReferralService
	Rewards       service.RewardService
	Redemptions   service.RedemptionService
	Subscriptions service.SubscriptionService
	Events        service.EventHandler
	Worker        service.Worker
}

func NewLoyaltyService(db *gorm.DB) *LoyaltyService {
	return NewLoyaltyServiceWithIssuer(db, nil)
}

// NewLoyaltyServiceWithIssuer wires an external discount issuer into the
// redemption flow. A nil issuer skips platform discount creation, which
// is what tests and local setups want.
func NewLoyaltyServiceWithIssuer(db *gorm.DB, issuer service.DiscountIssuer) *LoyaltyService {
	db2.Migrate(db)

	settings := serviceimpl.NewSettingsService(db)
	members := serviceimpl.NewMemberService(db)
	tiers := serviceimpl.NewTierService(db)
	birthdays := serviceimpl.NewBirthdayService(db)
	referrals := serviceimpl.NewReferralService(db)

	return &LoyaltyService{
		Settings:      settings,
		Members:       members,
		Ledger:        serviceimpl.NewLedgerService(db),
		Tiers:         tiers,
		Birthdays:     birthdays,
		Referrals:     referrals,
		Rewards:       serviceimpl.NewRewardService(db),
		Redemptions:   serviceimpl.NewRedemptionService(db, issuer),
		Subscriptions: serviceimpl.NewSubscriptionService(db),
		Events:        serviceimpl.NewEventHandler(db, settings, members, tiers, referrals, birthdays),
		Worker:        serviceimpl.NewWorker(db, settings),
	}
}
