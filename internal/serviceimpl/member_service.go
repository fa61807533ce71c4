package serviceimpl

import (
	"errors"
	"fmt"
	"net/mail"
	"time"

	"github.com/lavivara/go-loyalty/models"
	"github.com/lavivara/go-loyalty/request"
	"github.com/lavivara/go-loyalty/response"
	"gorm.io/gorm"
)

type memberService struct {
	DB *gorm.DB
}

func NewMemberService(db *gorm.DB) *memberService {
	return &memberService{DB: db}
}

func (s *memberService) CreateMember(shop string, req request.CreateMemberRequest, settings models.ShopSettings) (*models.Member, error) {
	if req.Email == "" {
		return nil, fmt.Errorf("email cannot be empty")
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return nil, fmt.Errorf("invalid email format: %w", err)
	}

	tier := models.TierLite
	if req.Tier != nil {
		if models.TierRank(*req.Tier) < 0 {
			return nil, fmt.Errorf("invalid tier: %s", *req.Tier)
		}
		tier = *req.Tier
	}

	now := time.Now()
	member := &models.Member{
		Shop:              shop,
		Email:             req.Email,
		FirstName:         req.FirstName,
		LastName:          req.LastName,
		ShopifyCustomerID: req.ShopifyCustomerID,
		Tier:              tier,
		PointsMultiplier:  settings.TierMultiplier(tier),
		AcademyAccess:     settings.AcademyAccess(tier),
		TierStartedAt:     &now,
	}

	if err := s.DB.Create(member).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, fmt.Errorf("member already exists for email %s", req.Email)
		}
		return nil, fmt.Errorf("failed to create member: %w", err)
	}

	return member, nil
}

func (s *memberService) GetMembers(req request.GetMemberRequest) ([]models.Member, int64, error) {
	var members []models.Member
	var count int64

	query := s.DB.Model(&models.Member{})
	query = request.ApplyGetMemberRequest(req, query)

	if err := query.Count(&count).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count members: %w", err)
	}

	query = request.ApplyPaginationConditions(query, req.PaginationConditions)

	if err := query.Preload("ReferredByMember").Find(&members).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch members: %w", err)
	}

	return members, count, nil
}

func (s *memberService) GetTotalMembers(req request.GetMemberRequest) (int64, error) {
	var count int64

	query := s.DB.Model(&models.Member{})
	query = request.ApplyGetMemberRequest(req, query)

	if err := query.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count members: %w", err)
	}

	return count, nil
}

// GetMemberByEmail returns (nil, nil) when no member exists; a missing
// member is an expected state for webhook handlers, not an error.
func (s *memberService) GetMemberByEmail(shop, email string) (*models.Member, error) {
	var member models.Member
	err := s.DB.Where("shop = ? AND email = ?", shop, email).First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch member: %w", err)
	}
	return &member, nil
}

func (s *memberService) GetProfile(shop string, memberID uint) (*response.MemberProfile, error) {
	var member models.Member
	err := s.DB.Where("shop = ? AND id = ?", shop, memberID).First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("member %d not found", memberID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch member: %w", err)
	}

	var entries []models.LedgerEntry
	if err := s.DB.Where("member_id = ?", member.ID).
		Order("created_at DESC").Limit(20).Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch ledger history: %w", err)
	}

	var redemptions []models.Redemption
	if err := s.DB.Preload("Reward").
		Where("member_id = ? AND status IN (?)", member.ID, []string{models.RedemptionPending, models.RedemptionApplied}).
		Order("created_at DESC").Limit(10).Find(&redemptions).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch redemptions: %w", err)
	}

	var subscription models.Subscription
	var subLine *response.SubscriptionLine
	err = s.DB.Where("member_id = ? AND status = ?", member.ID, models.SubscriptionActive).
		First(&subscription).Error
	if err == nil {
		subLine = &response.SubscriptionLine{
			Status:          subscription.Status,
			Cadence:         subscription.Cadence,
			NextBillingDate: subscription.NextBillingDate,
		}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to fetch subscription: %w", err)
	}

	profile := &response.MemberProfile{
		ID:             member.ID,
		Email:          member.Email,
		FirstName:      member.FirstName,
		LastName:       member.LastName,
		Tier:           member.Tier,
		TierLabel:      models.TierLabel(member.Tier),
		PointsBalance:  member.PointsBalance,
		LifetimePoints: member.LifetimePoints,
		ReferralCode:   member.ReferralCode,
		BirthdayMonth:  member.BirthdayMonth,
		BirthdayDay:    member.BirthdayDay,
		MemberSince:    member.CreatedAt,
		Subscription:   subLine,
	}

	for _, e := range entries {
		profile.History = append(profile.History, response.LedgerLine{
			ID:          e.ID,
			Points:      e.Points,
			Action:      e.Action,
			Description: e.Description,
			CreatedAt:   e.CreatedAt,
		})
	}

	for _, r := range redemptions {
		line := response.RedemptionLine{
			ID:           r.ID,
			PointsSpent:  r.PointsSpent,
			Status:       r.Status,
			DiscountCode: r.DiscountCode,
			ExpiresAt:    r.ExpiresAt,
		}
		if r.Reward != nil {
			line.RewardName = r.Reward.Name
			if r.Reward.NameFR != nil {
				line.RewardName = *r.Reward.NameFR
			}
			line.RewardType = r.Reward.Type
		}
		profile.Redemptions = append(profile.Redemptions, line)
	}

	return profile, nil
}

func (s *memberService) UpdateBirthday(shop string, memberID uint, req request.UpdateBirthdayRequest) error {
	if req.Month < 1 || req.Month > 12 {
		return fmt.Errorf("invalid month: %d", req.Month)
	}
	if req.Day < 1 || req.Day > 31 {
		return fmt.Errorf("invalid day: %d", req.Day)
	}
	// Leap-year February so Feb 29 birthdays are accepted.
	daysInMonth := time.Date(2024, time.Month(req.Month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if req.Day > daysInMonth {
		return fmt.Errorf("invalid day %d for month %d", req.Day, req.Month)
	}

	result := s.DB.Model(&models.Member{}).
		Where("shop = ? AND id = ?", shop, memberID).
		Updates(map[string]interface{}{
			"birthday_month": req.Month,
			"birthday_day":   req.Day,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update birthday: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("member %d not found", memberID)
	}
	return nil
}

// EraseMember removes a member and every dependent row. This is the
// compliance erasure path; deletes are unscoped on purpose.
func (s *memberService) EraseMember(shop, email string) error {
	member, err := s.GetMemberByEmail(shop, email)
	if err != nil {
		return err
	}
	if member == nil {
		return nil
	}

	return s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Where("member_id = ?", member.ID).Delete(&models.LedgerEntry{}).Error; err != nil {
			return fmt.Errorf("failed to delete ledger entries: %w", err)
		}
		if err := tx.Unscoped().Where("member_id = ?", member.ID).Delete(&models.Redemption{}).Error; err != nil {
			return fmt.Errorf("failed to delete redemptions: %w", err)
		}
		if err := tx.Unscoped().Where("member_id = ?", member.ID).Delete(&models.BirthdayClaim{}).Error; err != nil {
			return fmt.Errorf("failed to delete birthday claims: %w", err)
		}
		if err := tx.Unscoped().Where("member_id = ?", member.ID).Delete(&models.Subscription{}).Error; err != nil {
			return fmt.Errorf("failed to delete subscriptions: %w", err)
		}
		if err := tx.Unscoped().Where("referrer_id = ? OR referee_id = ?", member.ID, member.ID).Delete(&models.ReferralEvent{}).Error; err != nil {
			return fmt.Errorf("failed to delete referral events: %w", err)
		}
		if err := tx.Unscoped().Delete(&models.Member{}, member.ID).Error; err != nil {
			return fmt.Errorf("failed to delete member: %w", err)
		}
		return nil
	})
}
