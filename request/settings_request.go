package request

import (
	"github.com/lavivara/go-loyalty/models"
	"github.com/shopspring/decimal"
)

// UpdateSettingsRequest is a partial update; nil fields keep their current
// value.
type UpdateSettingsRequest struct {
	LoyaltyEnabled *bool `json:"loyaltyEnabled"`

	RegularPointsPerDollar      *decimal.Decimal `json:"regularPointsPerDollar"`
	SubscriptionPointsPerDollar *decimal.Decimal `json:"subscriptionPointsPerDollar"`

	WelcomeBonus                *int64 `json:"welcomeBonus"`
	SubscriptionBonus           *int64 `json:"subscriptionBonus"`
	RenewalBonus                *int64 `json:"renewalBonus"`
	ReactivationBonus           *int64 `json:"reactivationBonus"`
	SubscriptionMilestoneMonths *int   `json:"subscriptionMilestoneMonths"`
	SubscriptionMilestoneBonus  *int64 `json:"subscriptionMilestoneBonus"`

	BirthdayEnabled    *bool  `json:"birthdayEnabled"`
	BirthdayPoints     *int64 `json:"birthdayPoints"`
	BirthdayWindowDays *int   `json:"birthdayWindowDays"`

	ReferralEnabled      *bool            `json:"referralEnabled"`
	ReferrerRewardPoints *int64           `json:"referrerRewardPoints"`
	RefereeRewardPoints  *int64           `json:"refereeRewardPoints"`
	ReferralMinPurchase  *decimal.Decimal `json:"referralMinPurchase"`

	TierThresholds *models.TierThresholds `json:"tierThresholds"`
	TierConfig     *models.TierConfig     `json:"tierConfig"`
}
