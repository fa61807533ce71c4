package serviceimpl

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lavivara/go-loyalty/models"
	"github.com/lavivara/go-loyalty/request"
	"github.com/lavivara/go-loyalty/response"
	"github.com/lavivara/go-loyalty/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const referralCodePrefix = "REF-LV"

type referralService struct {
	DB *gorm.DB
}

func NewReferralService(db *gorm.DB) *referralService {
	return &referralService{DB: db}
}

// GetOrCreateCode lazily assigns a referral code to the member. Codes
// are unique across shops; collisions retry with a fresh code.
func (s *referralService) GetOrCreateCode(shop string, memberID uint) (string, error) {
	var member models.Member
	if err := s.DB.Where("shop = ? AND id = ?", shop, memberID).First(&member).Error; err != nil {
		return "", fmt.Errorf("failed to fetch member: %w", err)
	}
	if member.ReferralCode != nil && *member.ReferralCode != "" {
		return *member.ReferralCode, nil
	}

	for attempt := 0; attempt < 5; attempt++ {
		code, err := utils.CreateCode(referralCodePrefix+"-", 6)
		if err != nil {
			return "", err
		}
		result := s.DB.Model(&models.Member{}).
			Where("id = ? AND (referral_code IS NULL OR referral_code = '')", member.ID).
			Update("referral_code", code)
		if result.Error != nil {
			if isUniqueConstraintError(result.Error) {
				continue
			}
			return "", fmt.Errorf("failed to assign referral code: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			// A concurrent caller assigned the code first.
			if err := s.DB.First(&member, member.ID).Error; err != nil {
				return "", fmt.Errorf("failed to re-fetch member: %w", err)
			}
			if member.ReferralCode != nil && *member.ReferralCode != "" {
				return *member.ReferralCode, nil
			}
			continue
		}
		return code, nil
	}
	return "", fmt.Errorf("failed to generate a unique referral code")
}

// ExtractReferralCode picks the first referral-format code out of an
// order's discount codes, nil when none match.
func (s *referralService) ExtractReferralCode(codes []request.DiscountCode) *string {
	for _, c := range codes {
		code := strings.ToUpper(strings.TrimSpace(c.Code))
		if strings.HasPrefix(code, referralCodePrefix+"-") {
			return &code
		}
	}
	return nil
}

// Attribute records a pending referral linking the referee to the owner
// of the code. Self-referrals, repeat pairs, unknown codes, and referees
// already referred by someone else are all rejected quietly; the return
// says whether an attribution was recorded. Nothing is recorded while
// the referral program is switched off.
func (s *referralService) Attribute(shop string, refereeID uint, code string, settings models.ShopSettings) (bool, error) {
	if code == "" {
		return false, nil
	}
	if !settings.LoyaltyEnabled || !settings.ReferralEnabled {
		return false, nil
	}

	var referrer models.Member
	err := s.DB.Where("shop = ? AND referral_code = ?", shop, code).First(&referrer).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to look up referral code: %w", err)
	}

	if referrer.ID == refereeID {
		return false, nil
	}

	var referee models.Member
	if err := s.DB.Where("shop = ? AND id = ?", shop, refereeID).First(&referee).Error; err != nil {
		return false, fmt.Errorf("failed to fetch referee: %w", err)
	}
	if referee.ReferredByMemberID != nil {
		return false, nil
	}

	attributed := false
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		event := models.ReferralEvent{
			Shop:       shop,
			ReferrerID: referrer.ID,
			RefereeID:  referee.ID,
			Status:     models.ReferralPending,
		}
		if err := tx.Create(&event).Error; err != nil {
			if isUniqueConstraintError(err) {
				return nil
			}
			return fmt.Errorf("failed to create referral event: %w", err)
		}
		result := tx.Model(&models.Member{}).
			Where("id = ? AND referred_by_member_id IS NULL", referee.ID).
			Update("referred_by_member_id", referrer.ID)
		if result.Error != nil {
			return fmt.Errorf("failed to set referrer on member: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("referee %d already has a referrer", referee.ID)
		}
		attributed = true
		return nil
	})
	if err != nil {
		return false, err
	}

	return attributed, nil
}

// Complete settles a pending referral after the referee's qualifying
// order: both sides get their bonus and the referrer's count goes up.
// The guarded status flip makes this run at most once per pair.
func (s *referralService) Complete(shop string, refereeID uint, orderID string, orderTotal decimal.Decimal, settings models.ShopSettings) (*response.ReferralRewardResult, error) {
	result := &response.ReferralRewardResult{}

	if !settings.LoyaltyEnabled || !settings.ReferralEnabled {
		return result, nil
	}
	if orderTotal.LessThan(settings.ReferralMinPurchase) {
		return result, nil
	}

	var event models.ReferralEvent
	err := s.DB.Where("shop = ? AND referee_id = ? AND status = ?", shop, refereeID, models.ReferralPending).
		First(&event).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return result, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch referral event: %w", err)
	}

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		res := tx.Model(&models.ReferralEvent{}).
			Where("id = ? AND status = ?", event.ID, models.ReferralPending).
			Updates(map[string]interface{}{
				"status":                  models.ReferralCompleted,
				"qualifying_order_id":     orderID,
				"referrer_points_awarded": settings.ReferrerRewardPoints,
				"referee_points_awarded":  settings.RefereeRewardPoints,
				"completed_at":            &now,
			})
		if res.Error != nil {
			return fmt.Errorf("failed to complete referral: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return nil
		}

		refID := fmt.Sprintf("%d", event.ID)

		if _, err := lockMember(tx, shop, event.ReferrerID); err != nil {
			return err
		}
		if err := creditPoints(tx, shop, event.ReferrerID, settings.ReferrerRewardPoints,
			models.ActionEarnReferral, "Referral bonus: friend's first order", models.RefReferral, refID); err != nil {
			return err
		}
		if err := tx.Model(&models.Member{}).Where("id = ?", event.ReferrerID).
			Update("referral_count", gorm.Expr("referral_count + 1")).Error; err != nil {
			return fmt.Errorf("failed to increment referral count: %w", err)
		}

		if _, err := lockMember(tx, shop, event.RefereeID); err != nil {
			return err
		}
		if err := creditPoints(tx, shop, event.RefereeID, settings.RefereeRewardPoints,
			models.ActionEarnReferral, "Welcome referral bonus", models.RefReferral, refID); err != nil {
			return err
		}

		result.Processed = true
		result.ReferralEventID = event.ID
		result.ReferrerPointsAwarded = settings.ReferrerRewardPoints
		result.RefereePointsAwarded = settings.RefereeRewardPoints
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}
