package response

import (
	"time"
)

// RedemptionResult is returned by RedemptionService.Redeem. Business
// rejections (insufficient points, out of stock, ...) come back as
// Success=false with a customer-facing Error; they are not Go errors.
type RedemptionResult struct {
	Success      bool   `json:"success"`
	Error        string `json:"error,omitempty"`
	RedemptionID uint   `json:"redemptionId,omitempty"`
	DiscountCode string `json:"discountCode,omitempty"`
	PointsSpent  int64  `json:"pointsSpent,omitempty"`
}

type TierUpgradeResult struct {
	Upgraded               bool   `json:"upgraded"`
	PreviousTier           string `json:"previousTier"`
	NewTier                string `json:"newTier"`
	MilestonePointsAwarded int64  `json:"milestonePointsAwarded"`
}

type BirthdayRewardResult struct {
	Awarded bool   `json:"awarded"`
	Points  int64  `json:"points"`
	ClaimID uint   `json:"claimId,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

type ReferralRewardResult struct {
	Processed              bool  `json:"processed"`
	ReferralEventID        uint  `json:"referralEventId,omitempty"`
	ReferrerPointsAwarded  int64 `json:"referrerPointsAwarded"`
	RefereePointsAwarded   int64 `json:"refereePointsAwarded"`
}

// OrderProcessed summarises everything an order-created event did.
type OrderProcessed struct {
	Skipped          bool                  `json:"skipped"`
	SkipReason       string                `json:"skipReason,omitempty"`
	MemberID         uint                  `json:"memberId"`
	NewMember        bool                  `json:"newMember"`
	PointsAwarded    int64                 `json:"pointsAwarded"`
	TierUpgrade      *TierUpgradeResult    `json:"tierUpgrade,omitempty"`
	Referral         *ReferralRewardResult `json:"referral,omitempty"`
	Birthday         *BirthdayRewardResult `json:"birthday,omitempty"`
}

// SubscriptionProcessed summarises a subscription webhook.
type SubscriptionProcessed struct {
	Skipped       bool   `json:"skipped"`
	SkipReason    string `json:"skipReason,omitempty"`
	MemberID      uint   `json:"memberId"`
	NewMember     bool   `json:"newMember"`
	PointsAwarded int64  `json:"pointsAwarded"`
	Downgraded    bool   `json:"downgraded"`
}

type LedgerLine struct {
	ID          uint      `json:"id"`
	Points      int64     `json:"points"`
	Action      string    `json:"action"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
}

type RedemptionLine struct {
	ID           uint      `json:"id"`
	RewardName   string    `json:"rewardName"`
	RewardType   string    `json:"rewardType"`
	PointsSpent  int64     `json:"pointsSpent"`
	Status       string    `json:"status"`
	DiscountCode string    `json:"discountCode"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

type SubscriptionLine struct {
	Status          string     `json:"status"`
	Cadence         string     `json:"cadence"`
	NextBillingDate *time.Time `json:"nextBillingDate"`
}

// MemberProfile is the storefront-facing read model: balance, tier, referral
// code, recent history, active redemptions and subscription.
type MemberProfile struct {
	ID             uint              `json:"id"`
	Email          string            `json:"email"`
	FirstName      *string           `json:"firstName"`
	LastName       *string           `json:"lastName"`
	Tier           string            `json:"tier"`
	TierLabel      string            `json:"tierLabel"`
	PointsBalance  int64             `json:"pointsBalance"`
	LifetimePoints int64             `json:"lifetimePoints"`
	ReferralCode   *string           `json:"referralCode"`
	BirthdayMonth  *int              `json:"birthdayMonth"`
	BirthdayDay    *int              `json:"birthdayDay"`
	MemberSince    time.Time         `json:"memberSince"`
	History        []LedgerLine      `json:"history"`
	Redemptions    []RedemptionLine  `json:"redemptions"`
	Subscription   *SubscriptionLine `json:"subscription,omitempty"`
}
