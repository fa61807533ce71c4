package serviceimpl_test

import (
	"testing"

	"github.com/lavivara/go-loyalty/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestDetermineTierBoundaries(t *testing.T) {
	shop := "tier-boundaries.myshopify.com"
	settings, err := loyaltyService.Settings.GetSettings(shop)
	assert.NoError(t, err)

	assert.Equal(t, models.TierLite, loyaltyService.Tiers.DetermineTier(0, settings))
	assert.Equal(t, models.TierLite, loyaltyService.Tiers.DetermineTier(999, settings))
	assert.Equal(t, models.TierClub, loyaltyService.Tiers.DetermineTier(1000, settings))
	assert.Equal(t, models.TierClub, loyaltyService.Tiers.DetermineTier(4999, settings))
	assert.Equal(t, models.TierClubPlus, loyaltyService.Tiers.DetermineTier(5000, settings))
}

func TestCheckAndUpgradeCrossesThreshold(t *testing.T) {
	shop := "tier-upgrade.myshopify.com"
	settings, err := loyaltyService.Settings.GetSettings(shop)
	assert.NoError(t, err)

	member := createMember(t, shop, "climber@example.com")
	seedPoints(t, member, 1010)

	result, err := loyaltyService.Tiers.CheckAndUpgrade(shop, member.ID, settings)
	assert.NoError(t, err)
	assert.True(t, result.Upgraded)
	assert.Equal(t, models.TierLite, result.PreviousTier)
	assert.Equal(t, models.TierClub, result.NewTier)
	assert.Equal(t, int64(500), result.MilestonePointsAwarded, "every threshold upgrade pays the milestone bonus")

	updated := getMember(t, member.ID)
	assert.Equal(t, models.TierClub, updated.Tier)
	assert.Equal(t, int64(1510), updated.PointsBalance)
	assert.True(t, decimal.NewFromFloat(2.0).Equal(updated.PointsMultiplier))
	assert.Equal(t, "full", updated.AcademyAccess)

	var entry models.LedgerEntry
	err = db.Where("member_id = ? AND action = ?", member.ID, models.ActionEarnMilestone).First(&entry).Error
	assert.NoError(t, err)
	assert.Equal(t, models.RefTierUpgrade, entry.ReferenceKind)
}

func TestCheckAndUpgradeToClubPlusPaysMilestone(t *testing.T) {
	shop := "tier-clubplus.myshopify.com"
	settings, err := loyaltyService.Settings.GetSettings(shop)
	assert.NoError(t, err)

	member := createMember(t, shop, "whale@example.com")
	seedPoints(t, member, 6000)

	result, err := loyaltyService.Tiers.CheckAndUpgrade(shop, member.ID, settings)
	assert.NoError(t, err)
	assert.True(t, result.Upgraded)
	assert.Equal(t, models.TierClubPlus, result.NewTier)
	assert.Equal(t, int64(500), result.MilestonePointsAwarded)

	updated := getMember(t, member.ID)
	assert.Equal(t, models.TierClubPlus, updated.Tier)
	assert.Equal(t, int64(6500), updated.PointsBalance)
	assert.Equal(t, int64(6500), updated.LifetimePoints)

	var entry models.LedgerEntry
	err = db.Where("member_id = ? AND action = ?", member.ID, models.ActionEarnMilestone).First(&entry).Error
	assert.NoError(t, err)
	assert.Equal(t, models.RefTierUpgrade, entry.ReferenceKind)
}

func TestCheckAndUpgradeNeverDowngrades(t *testing.T) {
	shop := "tier-no-downgrade.myshopify.com"
	settings, err := loyaltyService.Settings.GetSettings(shop)
	assert.NoError(t, err)

	member := createMember(t, shop, "steady@example.com")
	assert.NoError(t, loyaltyService.Tiers.UpgradeOnSubscription(shop, member.ID, settings))

	// Lifetime points are still below the CLUB threshold, but the tier holds.
	result, err := loyaltyService.Tiers.CheckAndUpgrade(shop, member.ID, settings)
	assert.NoError(t, err)
	assert.False(t, result.Upgraded)
	assert.Equal(t, models.TierClub, result.NewTier)
}

func TestUpgradeOnSubscription(t *testing.T) {
	shop := "tier-sub-upgrade.myshopify.com"
	settings, err := loyaltyService.Settings.GetSettings(shop)
	assert.NoError(t, err)

	member := createMember(t, shop, "subscriber@example.com")
	assert.NoError(t, loyaltyService.Tiers.UpgradeOnSubscription(shop, member.ID, settings))
	assert.Equal(t, models.TierClub, getMember(t, member.ID).Tier)

	// A second subscription doesn't change anything.
	assert.NoError(t, loyaltyService.Tiers.UpgradeOnSubscription(shop, member.ID, settings))
	assert.Equal(t, models.TierClub, getMember(t, member.ID).Tier)

	// CLUB_PLUS members stay where they are.
	plus := createMember(t, shop, "plus@example.com")
	seedPoints(t, plus, 6000)
	_, err = loyaltyService.Tiers.CheckAndUpgrade(shop, plus.ID, settings)
	assert.NoError(t, err)
	assert.NoError(t, loyaltyService.Tiers.UpgradeOnSubscription(shop, plus.ID, settings))
	assert.Equal(t, models.TierClubPlus, getMember(t, plus.ID).Tier)
}

func TestDowngradeOnCancellation(t *testing.T) {
	shop := "tier-downgrade.myshopify.com"
	settings, err := loyaltyService.Settings.GetSettings(shop)
	assert.NoError(t, err)

	member := createMember(t, shop, "churner@example.com")
	assert.NoError(t, loyaltyService.Tiers.UpgradeOnSubscription(shop, member.ID, settings))

	// With an active subscription still on file, no downgrade.
	sub := models.Subscription{
		Shop:                  shop,
		MemberID:              member.ID,
		ShopifySubscriptionID: "gid://shopify/SubscriptionContract/churner-1",
		Status:                models.SubscriptionActive,
	}
	assert.NoError(t, db.Create(&sub).Error)

	downgraded, err := loyaltyService.Tiers.DowngradeOnCancellation(shop, member.ID, settings)
	assert.NoError(t, err)
	assert.False(t, downgraded)

	// Cancel it; lifetime points are below CLUB, so the member drops to LITE.
	assert.NoError(t, db.Model(&sub).Update("status", models.SubscriptionCancelled).Error)

	downgraded, err = loyaltyService.Tiers.DowngradeOnCancellation(shop, member.ID, settings)
	assert.NoError(t, err)
	assert.True(t, downgraded)
	assert.Equal(t, models.TierLite, getMember(t, member.ID).Tier)
}

func TestDowngradeKeepsEarnedTier(t *testing.T) {
	shop := "tier-earned.myshopify.com"
	settings, err := loyaltyService.Settings.GetSettings(shop)
	assert.NoError(t, err)

	member := createMember(t, shop, "earned@example.com")
	seedPoints(t, member, 1500)
	_, err = loyaltyService.Tiers.CheckAndUpgrade(shop, member.ID, settings)
	assert.NoError(t, err)

	// No subscription at all; the earned CLUB tier holds on cancellation.
	downgraded, err := loyaltyService.Tiers.DowngradeOnCancellation(shop, member.ID, settings)
	assert.NoError(t, err)
	assert.False(t, downgraded)
	assert.Equal(t, models.TierClub, getMember(t, member.ID).Tier)
}
