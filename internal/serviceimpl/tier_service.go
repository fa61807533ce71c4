package serviceimpl

import (
	"fmt"
	"time"

	"github.com/lavivara/go-loyalty/models"
	"github.com/lavivara/go-loyalty/response"
	"gorm.io/gorm"
)

type tierService struct {
	DB *gorm.DB
}

func NewTierService(db *gorm.DB) *tierService {
	return &tierService{DB: db}
}

// DetermineTier maps lifetime points to the tier whose threshold they
// meet. Thresholds are inclusive.
func (s *tierService) DetermineTier(lifetimePoints int64, settings models.ShopSettings) string {
	if lifetimePoints >= settings.TierThreshold(models.TierClubPlus) {
		return models.TierClubPlus
	}
	if lifetimePoints >= settings.TierThreshold(models.TierClub) {
		return models.TierClub
	}
	return models.TierLite
}

// CheckAndUpgrade moves the member up if their lifetime points now meet a
// higher threshold. Tiers never move down here; downgrades only happen
// through DowngradeOnCancellation. Every threshold upgrade pays the
// milestone bonus once, in the same transaction as the tier change.
func (s *tierService) CheckAndUpgrade(shop string, memberID uint, settings models.ShopSettings) (*response.TierUpgradeResult, error) {
	result := &response.TierUpgradeResult{}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		member, err := lockMember(tx, shop, memberID)
		if err != nil {
			return err
		}

		target := s.DetermineTier(member.LifetimePoints, settings)
		result.PreviousTier = member.Tier
		result.NewTier = member.Tier

		if models.TierRank(target) <= models.TierRank(member.Tier) {
			return nil
		}

		if err := applyTier(tx, member.ID, target, settings); err != nil {
			return err
		}

		result.Upgraded = true
		result.NewTier = target

		if settings.SubscriptionMilestoneBonus > 0 {
			desc := fmt.Sprintf("Tier upgrade bonus: %s", models.TierLabel(target))
			refID := fmt.Sprintf("%d:%s", member.ID, target)
			if err := creditPoints(tx, shop, member.ID, settings.SubscriptionMilestoneBonus,
				models.ActionEarnMilestone, desc, models.RefTierUpgrade, refID); err != nil {
				return err
			}
			result.MilestonePointsAwarded = settings.SubscriptionMilestoneBonus
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// UpgradeOnSubscription promotes LITE members to CLUB when they start a
// subscription. Members already at CLUB or above keep their tier.
func (s *tierService) UpgradeOnSubscription(shop string, memberID uint, settings models.ShopSettings) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		member, err := lockMember(tx, shop, memberID)
		if err != nil {
			return err
		}
		if models.TierRank(member.Tier) >= models.TierRank(models.TierClub) {
			return nil
		}
		return applyTier(tx, member.ID, models.TierClub, settings)
	})
}

// DowngradeOnCancellation drops a member back to the tier their lifetime
// points support, but only when no active subscription remains. Returns
// whether a downgrade happened.
func (s *tierService) DowngradeOnCancellation(shop string, memberID uint, settings models.ShopSettings) (bool, error) {
	downgraded := false

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		member, err := lockMember(tx, shop, memberID)
		if err != nil {
			return err
		}

		var activeSubs int64
		if err := tx.Model(&models.Subscription{}).
			Where("member_id = ? AND status = ?", member.ID, models.SubscriptionActive).
			Count(&activeSubs).Error; err != nil {
			return fmt.Errorf("failed to count active subscriptions: %w", err)
		}
		if activeSubs > 0 {
			return nil
		}

		target := s.DetermineTier(member.LifetimePoints, settings)
		if models.TierRank(target) >= models.TierRank(member.Tier) {
			return nil
		}

		if err := applyTier(tx, member.ID, target, settings); err != nil {
			return err
		}

		downgraded = true
		return nil
	})
	if err != nil {
		return false, err
	}

	return downgraded, nil
}

func applyTier(tx *gorm.DB, memberID uint, tier string, settings models.ShopSettings) error {
	now := time.Now()
	err := tx.Model(&models.Member{}).Where("id = ?", memberID).
		Updates(map[string]interface{}{
			"tier":              tier,
			"points_multiplier": settings.TierMultiplier(tier),
			"academy_access":    settings.AcademyAccess(tier),
			"tier_started_at":   &now,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to update member tier: %w", err)
	}
	return nil
}
