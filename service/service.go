package service

import (
	"context"

	"github.com/lavivara/go-loyalty/models"
	"github.com/lavivara/go-loyalty/request"
	"github.com/lavivara/go-loyalty/response"
	"github.com/shopspring/decimal"
)

// SettingsService loads and caches per-shop configuration. Returned
// snapshots are values; callers keep one snapshot for the whole event they
// are processing.
type SettingsService interface {
	GetSettings(shop string) (models.ShopSettings, error)
	UpdateSettings(shop string, req request.UpdateSettingsRequest) (models.ShopSettings, error)
	Invalidate(shop string)
}

type MemberService interface {
	// CreateMember seeds the cached multiplier and academy access from the
	// shop's settings snapshot.
	CreateMember(shop string, req request.CreateMemberRequest, settings models.ShopSettings) (*models.Member, error)
	GetMembers(req request.GetMemberRequest) ([]models.Member, int64, error)
	GetTotalMembers(req request.GetMemberRequest) (int64, error)
	GetMemberByEmail(shop, email string) (*models.Member, error)
	GetProfile(shop string, memberID uint) (*response.MemberProfile, error)
	UpdateBirthday(shop string, memberID uint, req request.UpdateBirthdayRequest) error
	// EraseMember hard-deletes a member and every dependent row. Compliance
	// path only.
	EraseMember(shop, email string) error
}

type LedgerService interface {
	GetEntries(req request.GetLedgerRequest) ([]models.LedgerEntry, int64, error)
	// Replay recomputes (balance, lifetime) from the ledger alone.
	Replay(memberID uint) (int64, int64, error)
}

type TierService interface {
	DetermineTier(lifetimePoints int64, settings models.ShopSettings) string
	CheckAndUpgrade(shop string, memberID uint, settings models.ShopSettings) (*response.TierUpgradeResult, error)
	UpgradeOnSubscription(shop string, memberID uint, settings models.ShopSettings) error
	DowngradeOnCancellation(shop string, memberID uint, settings models.ShopSettings) (bool, error)
}

type BirthdayService interface {
	CheckAndAward(shop string, memberID uint, settings models.ShopSettings) (*response.BirthdayRewardResult, error)
}

type ReferralService interface {
	// GetOrCreateCode generates the member's referral code lazily.
	GetOrCreateCode(shop string, memberID uint) (string, error)
	// ExtractReferralCode picks the first referral-format code out of an
	// order's discount codes.
	ExtractReferralCode(codes []request.DiscountCode) *string
	// Attribute records a pending referrer→referee pair from a code.
	// No-op when the referral program is disabled.
	Attribute(shop string, refereeID uint, code string, settings models.ShopSettings) (bool, error)
	// Complete settles the pending pair on a qualifying order. At most once
	// per pair.
	Complete(shop string, refereeID uint, orderID string, orderTotal decimal.Decimal, settings models.ShopSettings) (*response.ReferralRewardResult, error)
}

type RewardService interface {
	CreateReward(shop string, req request.CreateRewardRequest) (*models.Reward, error)
	GetRewards(req request.GetRewardRequest) ([]models.Reward, int64, error)
	UpdateReward(shop string, rewardID uint, req request.UpdateRewardRequest) (*models.Reward, error)
	// DeleteReward hard-deletes an unredeemed reward, soft-deletes
	// (is_active=false) one that redemptions reference.
	DeleteReward(shop string, rewardID uint) error
}

type RedemptionService interface {
	Redeem(shop string, memberID, rewardID uint) (*response.RedemptionResult, error)
	GetRedemptions(req request.GetRedemptionRequest) ([]models.Redemption, int64, error)
}

type SubscriptionService interface {
	GetByShopifyID(shopifySubscriptionID string) (*models.Subscription, error)
	CountActiveForMember(memberID uint, excludeID *uint) (int64, error)
}

// EventHandler orchestrates inbound Shopify webhooks against the rule
// services. Handlers are idempotent by external event id.
type EventHandler interface {
	HandleOrderCreated(shop string, evt request.OrderCreatedEvent) (*response.OrderProcessed, error)
	HandleSubscriptionCreated(shop string, evt request.SubscriptionEvent) (*response.SubscriptionProcessed, error)
	HandleSubscriptionUpdated(shop string, evt request.SubscriptionEvent) (*response.SubscriptionProcessed, error)
}

type Worker interface {
	// ExpireRedemptions moves pending redemptions past their expiry to
	// expired. Returns the number of rows touched.
	ExpireRedemptions() (int64, error)
	// ProcessSubscriptionMilestones awards anniversary bonuses to active
	// subscriptions, once per milestone month count.
	ProcessSubscriptionMilestones() error
	// StartScheduler runs both sweeps on a schedule until ctx is done.
	StartScheduler(ctx context.Context) error
}

// DiscountIssuer materializes a discount code against the external commerce
// platform. Implementations must be timeout-bounded; a failure aborts the
// redemption before any points move.
type DiscountIssuer interface {
	CreateDiscountCode(ctx context.Context, reward models.Reward, code string) error
}
