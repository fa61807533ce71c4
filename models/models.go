package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type BaseModel struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `gorm:"index" json:"createdAt"`
	UpdatedAt time.Time      `gorm:"index" json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// VIP tiers, strictly ordered.
const (
	TierLite     = "LITE"
	TierClub     = "CLUB"
	TierClubPlus = "CLUB_PLUS"
)

// TierRank returns the position of a tier in the LITE < CLUB < CLUB_PLUS
// order, -1 for unknown tiers.
func TierRank(tier string) int {
	switch tier {
	case TierLite:
		return 0
	case TierClub:
		return 1
	case TierClubPlus:
		return 2
	}
	return -1
}

// TierLabel returns the customer-facing name of a tier.
func TierLabel(tier string) string {
	switch tier {
	case TierLite:
		return "VIP Lite"
	case TierClub:
		return "VIP Club"
	case TierClubPlus:
		return "VIP Club+"
	}
	return tier
}

// Ledger action tags.
const (
	ActionEarnPurchase            = "earn_purchase"
	ActionEarnSubscription        = "earn_subscription"
	ActionEarnSubscriptionRenewal = "earn_subscription_renewal"
	ActionEarnMilestone           = "earn_milestone"
	ActionEarnReferral            = "earn_referral"
	ActionEarnBirthday            = "earn_birthday"
	ActionEarnWelcome             = "earn_welcome"
	ActionEarnReactivation        = "earn_reactivation"
	ActionRedeem                  = "redeem"
	ActionExpire                  = "expire"
)

// Ledger reference kinds. A kind plus id points at the record that caused a
// balance change.
const (
	RefOrder                 = "order"
	RefSubscription          = "subscription"
	RefSubscriptionMilestone = "subscription_milestone"
	RefTierUpgrade           = "tier_upgrade"
	RefReferral              = "referral"
	RefBirthday              = "birthday"
	RefRedemption            = "redemption"
)

type Member struct {
	BaseModel
	Shop              string          `gorm:"size:100;not null;uniqueIndex:idx_loyalty_member_shop_email" json:"shop"`
	Email             string          `gorm:"size:100;not null;uniqueIndex:idx_loyalty_member_shop_email" json:"email"`
	FirstName         *string         `gorm:"size:100" json:"firstName"`
	LastName          *string         `gorm:"size:100" json:"lastName"`
	ShopifyCustomerID *string         `gorm:"size:100;index" json:"shopifyCustomerID"`
	Tier              string          `gorm:"size:20;not null;default:'LITE';index" json:"tier"`
	PointsBalance     int64           `gorm:"not null;default:0" json:"pointsBalance"`
	LifetimePoints    int64           `gorm:"not null;default:0" json:"lifetimePoints"`
	PointsMultiplier  decimal.Decimal `gorm:"type:decimal(10,2)" json:"pointsMultiplier"`
	AcademyAccess     string          `gorm:"size:20;not null;default:'basic'" json:"academyAccess"`
	TierStartedAt     *time.Time      `json:"tierStartedAt"`
	ReferralCode      *string         `gorm:"size:50;uniqueIndex" json:"referralCode"`
	ReferralCount     int64           `gorm:"not null;default:0" json:"referralCount"`
	BirthdayMonth     *int            `json:"birthdayMonth"`
	BirthdayDay       *int            `json:"birthdayDay"`

	ReferredByMemberID *uint   `gorm:"index" json:"referredByMemberID"`
	ReferredByMember   *Member `gorm:"foreignKey:ReferredByMemberID" json:"referredByMember,omitempty"`
}

func (Member) TableName() string {
	return "loyalty_members"
}

// LedgerEntry is an append-only record of a single balance change. Earn
// entries carry a positive Points delta and increment both balance and
// lifetime points; redeem entries carry a negative delta and touch the
// balance only.
type LedgerEntry struct {
	BaseModel
	Shop          string `gorm:"size:100;not null;index" json:"shop"`
	MemberID      uint   `gorm:"not null;index" json:"memberID"`
	Points        int64  `gorm:"not null" json:"points"`
	Action        string `gorm:"size:50;not null;index" json:"action"`
	Description   string `gorm:"size:255" json:"description"`
	ReferenceKind string `gorm:"size:50;not null;index:idx_loyalty_ledger_reference" json:"referenceKind"`
	ReferenceID   string `gorm:"size:100;not null;index:idx_loyalty_ledger_reference" json:"referenceID"`

	Member *Member `gorm:"foreignKey:MemberID;references:ID" json:"member,omitempty"`
}

func (LedgerEntry) TableName() string {
	return "loyalty_points_ledger"
}

// Reward types.
const (
	RewardTypeDiscount   = "discount"
	RewardTypeShipping   = "shipping"
	RewardTypeProduct    = "product"
	RewardTypeAddOn      = "add_on"
	RewardTypeExperience = "experience"
	RewardTypeExclusive  = "exclusive"
)

// Discount types.
const (
	DiscountFixedAmount = "fixed_amount"
	DiscountPercentage  = "percentage"
)

type Reward struct {
	BaseModel
	Shop          string           `gorm:"size:100;not null;index" json:"shop"`
	Name          string           `gorm:"size:255;not null" json:"name"`
	NameFR        *string          `gorm:"size:255" json:"nameFR"`
	Description   *string          `gorm:"type:text" json:"description"`
	DescriptionFR *string          `gorm:"type:text" json:"descriptionFR"`
	Type          string           `gorm:"size:50;not null;index" json:"type"`
	PointsCost    int64            `gorm:"not null" json:"pointsCost"`
	DiscountValue *decimal.Decimal `gorm:"type:decimal(38,18)" json:"discountValue"`
	DiscountType  *string          `gorm:"size:50" json:"discountType"`
	TierRequired  *string          `gorm:"size:20" json:"tierRequired"`
	Brand         *string          `gorm:"size:100" json:"brand"`
	IsActive      bool             `gorm:"default:true;index" json:"isActive"`
	StockLimited  bool             `gorm:"default:false" json:"stockLimited"`
	StockCount    *int64           `json:"stockCount"`
	SortOrder     int              `gorm:"default:0;index" json:"sortOrder"`
}

func (Reward) TableName() string {
	return "loyalty_rewards"
}

// Redemption statuses.
const (
	RedemptionPending  = "pending"
	RedemptionApplied  = "applied"
	RedemptionExpired  = "expired"
	RedemptionRefunded = "refunded"
)

// Redemption freezes PointsSpent at redemption time; later reward price
// changes never touch it.
type Redemption struct {
	BaseModel
	Shop         string    `gorm:"size:100;not null;index" json:"shop"`
	MemberID     uint      `gorm:"not null;index" json:"memberID"`
	RewardID     uint      `gorm:"not null;index" json:"rewardID"`
	PointsSpent  int64     `gorm:"not null" json:"pointsSpent"`
	Status       string    `gorm:"size:50;default:'pending';not null;index" json:"status"`
	DiscountCode string    `gorm:"size:50;uniqueIndex;not null" json:"discountCode"`
	ExpiresAt    time.Time `gorm:"not null;index" json:"expiresAt"`

	Member *Member `gorm:"foreignKey:MemberID;references:ID" json:"member,omitempty"`
	Reward *Reward `gorm:"foreignKey:RewardID;references:ID" json:"reward,omitempty"`
}

func (Redemption) TableName() string {
	return "loyalty_redemptions"
}

// Subscription statuses.
const (
	SubscriptionActive    = "active"
	SubscriptionPaused    = "paused"
	SubscriptionCancelled = "cancelled"
)

// Subscription mirrors a Shopify subscription contract. Rows are never
// deleted; cancelled contracts keep their history.
type Subscription struct {
	BaseModel
	Shop                  string     `gorm:"size:100;not null;index" json:"shop"`
	MemberID              uint       `gorm:"not null;index" json:"memberID"`
	ShopifySubscriptionID string     `gorm:"size:100;uniqueIndex;not null" json:"shopifySubscriptionID"`
	Brand                 *string    `gorm:"size:100" json:"brand"`
	Status                string     `gorm:"size:50;default:'active';not null;index" json:"status"`
	Cadence               string     `gorm:"size:50" json:"cadence"`
	NextBillingDate       *time.Time `json:"nextBillingDate"`
	LastBillingDate       *time.Time `json:"lastBillingDate"`
	PauseStartedAt        *time.Time `json:"pauseStartedAt"`
	CancelledAt           *time.Time `json:"cancelledAt"`
	TotalOrders           int64      `gorm:"not null;default:0" json:"totalOrders"`

	Member *Member `gorm:"foreignKey:MemberID;references:ID" json:"member,omitempty"`
}

func (Subscription) TableName() string {
	return "loyalty_subscriptions"
}

// Referral event statuses.
const (
	ReferralPending   = "pending"
	ReferralCompleted = "completed"
)

type ReferralEvent struct {
	BaseModel
	Shop                  string     `gorm:"size:100;not null;index" json:"shop"`
	ReferrerID            uint       `gorm:"not null;uniqueIndex:idx_loyalty_referral_pair" json:"referrerID"`
	RefereeID             uint       `gorm:"not null;uniqueIndex:idx_loyalty_referral_pair" json:"refereeID"`
	Status                string     `gorm:"size:50;default:'pending';not null;index" json:"status"`
	QualifyingOrderID     *string    `gorm:"size:100" json:"qualifyingOrderID"`
	ReferrerPointsAwarded int64      `gorm:"not null;default:0" json:"referrerPointsAwarded"`
	RefereePointsAwarded  int64      `gorm:"not null;default:0" json:"refereePointsAwarded"`
	CompletedAt           *time.Time `json:"completedAt"`

	Referrer *Member `gorm:"foreignKey:ReferrerID;references:ID" json:"referrer,omitempty"`
	Referee  *Member `gorm:"foreignKey:RefereeID;references:ID" json:"referee,omitempty"`
}

func (ReferralEvent) TableName() string {
	return "loyalty_referral_events"
}

// BirthdayClaim records a granted birthday bonus. The unique index on
// (member, year) enforces once-per-year claims; Year is the year of the
// birthday occurrence, not necessarily the year the claim was made.
type BirthdayClaim struct {
	BaseModel
	MemberID uint  `gorm:"not null;uniqueIndex:idx_loyalty_birthday_claim" json:"memberID"`
	Year     int   `gorm:"not null;uniqueIndex:idx_loyalty_birthday_claim" json:"year"`
	Points   int64 `gorm:"not null" json:"points"`

	Member *Member `gorm:"foreignKey:MemberID;references:ID" json:"member,omitempty"`
}

func (BirthdayClaim) TableName() string {
	return "loyalty_birthday_claims"
}

// ProcessedEvent is the webhook idempotency record. Inserting a duplicate
// (shop, event id) violates the unique index, which is how redelivered
// webhooks are caught before any points are awarded.
type ProcessedEvent struct {
	BaseModel
	Shop    string `gorm:"size:100;not null;uniqueIndex:idx_loyalty_processed_event" json:"shop"`
	EventID string `gorm:"size:100;not null;uniqueIndex:idx_loyalty_processed_event" json:"eventID"`
	Topic   string `gorm:"size:100;not null;index" json:"topic"`
}

func (ProcessedEvent) TableName() string {
	return "loyalty_processed_events"
}

type TierThresholds struct {
	Club     int64 `json:"CLUB"`
	ClubPlus int64 `json:"CLUB_PLUS"`
}

type TierBenefits struct {
	Multiplier float64 `json:"multiplier"`
	Academy    string  `json:"academy"`
}

type TierConfig struct {
	Lite     TierBenefits `json:"LITE"`
	Club     TierBenefits `json:"CLUB"`
	ClubPlus TierBenefits `json:"CLUB_PLUS"`
}

// ShopSettings is the per-shop configuration row. Services receive it by
// value and must treat the copy as the immutable snapshot for one event.
type ShopSettings struct {
	BaseModel
	Shop string `gorm:"size:100;uniqueIndex;not null" json:"shop"`

	LoyaltyEnabled bool `gorm:"default:true" json:"loyaltyEnabled"`

	RegularPointsPerDollar      decimal.Decimal `gorm:"type:decimal(10,4)" json:"regularPointsPerDollar"`
	SubscriptionPointsPerDollar decimal.Decimal `gorm:"type:decimal(10,4)" json:"subscriptionPointsPerDollar"`

	WelcomeBonus                int64 `gorm:"not null;default:100" json:"welcomeBonus"`
	SubscriptionBonus           int64 `gorm:"not null;default:50" json:"subscriptionBonus"`
	RenewalBonus                int64 `gorm:"not null;default:50" json:"renewalBonus"`
	ReactivationBonus           int64 `gorm:"not null;default:100" json:"reactivationBonus"`
	SubscriptionMilestoneMonths int   `gorm:"not null;default:3" json:"subscriptionMilestoneMonths"`
	SubscriptionMilestoneBonus  int64 `gorm:"not null;default:500" json:"subscriptionMilestoneBonus"`

	BirthdayEnabled    bool  `gorm:"default:true" json:"birthdayEnabled"`
	BirthdayPoints     int64 `gorm:"not null;default:250" json:"birthdayPoints"`
	BirthdayWindowDays int   `gorm:"not null;default:7" json:"birthdayWindowDays"`

	ReferralEnabled      bool            `gorm:"default:true" json:"referralEnabled"`
	ReferrerRewardPoints int64           `gorm:"not null;default:500" json:"referrerRewardPoints"`
	RefereeRewardPoints  int64           `gorm:"not null;default:250" json:"refereeRewardPoints"`
	ReferralMinPurchase  decimal.Decimal `gorm:"type:decimal(38,18)" json:"referralMinPurchase"`

	TierThresholds TierThresholds `gorm:"serializer:json" json:"tierThresholds"`
	TierConfig     TierConfig     `gorm:"serializer:json" json:"tierConfig"`
}

func (ShopSettings) TableName() string {
	return "loyalty_shop_settings"
}

// TierMultiplier returns the configured points multiplier for a tier,
// falling back to 1.0 for unknown tiers.
func (s ShopSettings) TierMultiplier(tier string) decimal.Decimal {
	switch tier {
	case TierLite:
		return decimal.NewFromFloat(s.TierConfig.Lite.Multiplier)
	case TierClub:
		return decimal.NewFromFloat(s.TierConfig.Club.Multiplier)
	case TierClubPlus:
		return decimal.NewFromFloat(s.TierConfig.ClubPlus.Multiplier)
	}
	return decimal.NewFromInt(1)
}

// AcademyAccess returns the configured academy access level for a tier.
func (s ShopSettings) AcademyAccess(tier string) string {
	switch tier {
	case TierLite:
		return s.TierConfig.Lite.Academy
	case TierClub:
		return s.TierConfig.Club.Academy
	case TierClubPlus:
		return s.TierConfig.ClubPlus.Academy
	}
	return "basic"
}

// TierThreshold returns the lifetime-points cutoff for a tier. LITE has no
// threshold.
func (s ShopSettings) TierThreshold(tier string) int64 {
	switch tier {
	case TierClub:
		return s.TierThresholds.Club
	case TierClubPlus:
		return s.TierThresholds.ClubPlus
	}
	return 0
}
