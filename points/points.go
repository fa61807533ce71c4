// Package points holds the pure point-calculation rules. Nothing here
// touches storage; every function takes a settings snapshot and returns a
// point amount, and every function returns 0 when the loyalty program is
// disabled for the shop.
package points

import (
	"time"

	"github.com/lavivara/go-loyalty/models"
	"github.com/shopspring/decimal"
)

// Purchase computes points earned from an order:
// floor(total × points_per_dollar(kind) × tier_multiplier). Subscription-billed
// orders use the subscription rate, everything else the regular rate.
func Purchase(total decimal.Decimal, tier string, isSubscriptionOrder bool, s models.ShopSettings) int64 {
	if !s.LoyaltyEnabled {
		return 0
	}

	rate := s.RegularPointsPerDollar
	if isSubscriptionOrder {
		rate = s.SubscriptionPointsPerDollar
	}

	return total.Mul(rate).Mul(s.TierMultiplier(tier)).Floor().IntPart()
}

// NewMemberPurchase computes the purchase part of a first order. The member
// record does not exist yet when the order event fires, so the LITE
// multiplier applies. The welcome bonus is awarded separately.
func NewMemberPurchase(total decimal.Decimal, s models.ShopSettings) int64 {
	return Purchase(total, models.TierLite, false, s)
}

func WelcomeBonus(s models.ShopSettings) int64 {
	if !s.LoyaltyEnabled {
		return 0
	}
	return s.WelcomeBonus
}

// TierMilestoneBonus is the one-time bonus awarded on a tier upgrade.
func TierMilestoneBonus(s models.ShopSettings) int64 {
	if !s.LoyaltyEnabled {
		return 0
	}
	return s.SubscriptionMilestoneBonus
}

func SubscriptionBonus(s models.ShopSettings) int64 {
	if !s.LoyaltyEnabled {
		return 0
	}
	return s.SubscriptionBonus
}

func RenewalBonus(s models.ShopSettings) int64 {
	if !s.LoyaltyEnabled {
		return 0
	}
	return s.RenewalBonus
}

func ReactivationBonus(s models.ShopSettings) int64 {
	if !s.LoyaltyEnabled {
		return 0
	}
	return s.ReactivationBonus
}

// MonthsBetween returns the calendar-month difference between start and now,
// ignoring the day of month. A subscription created Jan 31 is one month
// active on any day in February.
func MonthsBetween(start, now time.Time) int {
	return (now.Year()-start.Year())*12 + int(now.Month()) - int(start.Month())
}

// MilestoneResult reports subscription-anniversary eligibility.
type MilestoneResult struct {
	Eligible     bool
	MonthsActive int
	BonusPoints  int64
}

// SubscriptionMilestone checks whether a subscription has hit an anniversary
// milestone: every N months of continuous subscription, once per milestone.
// Idempotency across re-checks is the caller's job.
func SubscriptionMilestone(subscriptionStart, now time.Time, s models.ShopSettings) MilestoneResult {
	if !s.LoyaltyEnabled {
		return MilestoneResult{}
	}

	months := MonthsBetween(subscriptionStart, now)
	n := s.SubscriptionMilestoneMonths
	if n <= 0 || months <= 0 || months%n != 0 {
		return MilestoneResult{MonthsActive: months}
	}

	return MilestoneResult{
		Eligible:     true,
		MonthsActive: months,
		BonusPoints:  s.SubscriptionMilestoneBonus,
	}
}
