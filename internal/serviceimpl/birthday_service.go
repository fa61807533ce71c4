package serviceimpl

import (
	"fmt"
	"time"

	"github.com/lavivara/go-loyalty/models"
	"github.com/lavivara/go-loyalty/response"
	"gorm.io/gorm"
)

type birthdayService struct {
	DB *gorm.DB
	// Now is swappable for tests.
	Now func() time.Time
}

func NewBirthdayService(db *gorm.DB) *birthdayService {
	return &birthdayService{DB: db, Now: time.Now}
}

// CheckAndAward grants the yearly birthday bonus if now falls inside the
// configured window around the member's birthday. At most one claim per
// birthday occurrence; the unique index on (member, year) enforces that
// even under concurrent webhook deliveries.
func (s *birthdayService) CheckAndAward(shop string, memberID uint, settings models.ShopSettings) (*response.BirthdayRewardResult, error) {
	result := &response.BirthdayRewardResult{}

	if !settings.LoyaltyEnabled || !settings.BirthdayEnabled || settings.BirthdayPoints <= 0 {
		result.Reason = "Birthday rewards are disabled"
		return result, nil
	}

	var member models.Member
	if err := s.DB.Where("shop = ? AND id = ?", shop, memberID).First(&member).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch member: %w", err)
	}

	if member.BirthdayMonth == nil || member.BirthdayDay == nil {
		result.Reason = "Member has no birthday set"
		return result, nil
	}

	now := s.Now()
	occurrenceYear, inWindow := birthdayOccurrenceYear(now, *member.BirthdayMonth, *member.BirthdayDay, settings.BirthdayWindowDays)
	if !inWindow {
		result.Reason = "Not within birthday window"
		return result, nil
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		claim := models.BirthdayClaim{
			MemberID: member.ID,
			Year:     occurrenceYear,
			Points:   settings.BirthdayPoints,
		}
		if err := tx.Create(&claim).Error; err != nil {
			if isUniqueConstraintError(err) {
				result.Reason = "Already claimed birthday reward this year"
				return nil
			}
			return fmt.Errorf("failed to record birthday claim: %w", err)
		}

		if _, err := lockMember(tx, shop, member.ID); err != nil {
			return err
		}

		refID := fmt.Sprintf("%d:%d", member.ID, occurrenceYear)
		desc := fmt.Sprintf("Birthday bonus %d", occurrenceYear)
		if err := creditPoints(tx, shop, member.ID, settings.BirthdayPoints,
			models.ActionEarnBirthday, desc, models.RefBirthday, refID); err != nil {
			return err
		}

		result.Awarded = true
		result.Points = settings.BirthdayPoints
		result.ClaimID = claim.ID
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// birthdayOccurrenceYear finds which yearly occurrence of the birthday
// (if any) now falls within windowDays of. Occurrences in the previous
// and next calendar year are checked too so windows spanning New Year
// behave: a Jan 2 birthday with a 7-day window is claimable from Dec 30,
// and the claim counts against the January occurrence's year.
func birthdayOccurrenceYear(now time.Time, month, day, windowDays int) (int, bool) {
	if windowDays < 1 {
		windowDays = 1
	}
	// [birthday − floor(w/2), birthday + ceil(w/2)], inclusive both ends.
	before := windowDays / 2
	after := windowDays - before

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	for _, year := range []int{now.Year() - 1, now.Year(), now.Year() + 1} {
		occ := birthdayInYear(year, month, day, now.Location())
		start := occ.AddDate(0, 0, -before)
		end := occ.AddDate(0, 0, after)
		if !today.Before(start) && !today.After(end) {
			return year, true
		}
	}
	return 0, false
}

// birthdayInYear resolves Feb 29 to Feb 28 in non-leap years.
func birthdayInYear(year, month, day int, loc *time.Location) time.Time {
	occ := time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)
	if int(occ.Month()) != month {
		occ = time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, loc)
	}
	return occ
}
