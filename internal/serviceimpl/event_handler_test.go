package serviceimpl_test

import (
	"testing"
	"time"

	"github.com/lavivara/go-loyalty/models"
	"github.com/lavivara/go-loyalty/request"
	"github.com/lavivara/go-loyalty/utils"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestOrderCreatedNewMember(t *testing.T) {
	shop := "order-new.myshopify.com"

	result, err := loyaltyService.Events.HandleOrderCreated(shop, request.OrderCreatedEvent{
		EventID:       "gid://shopify/Order/order-new-1",
		OrderNumber:   "#1001",
		CustomerEmail: "newbie@example.com",
		TotalPrice:    decimal.NewFromInt(50),
	})
	assert.NoError(t, err)
	assert.False(t, result.Skipped)
	assert.True(t, result.NewMember)
	// floor(50 × 1 × 1.5) purchase points plus the 100-point welcome bonus.
	assert.Equal(t, int64(175), result.PointsAwarded)

	member := getMember(t, result.MemberID)
	assert.Equal(t, "newbie@example.com", member.Email)
	assert.Equal(t, models.TierLite, member.Tier)
	assert.Equal(t, int64(175), member.PointsBalance)

	var entries []models.LedgerEntry
	assert.NoError(t, db.Where("member_id = ?", member.ID).Order("id").Find(&entries).Error)
	assert.Len(t, entries, 2)
	assert.Equal(t, models.ActionEarnPurchase, entries[0].Action)
	assert.Equal(t, int64(75), entries[0].Points)
	assert.Equal(t, models.ActionEarnWelcome, entries[1].Action)
	assert.Equal(t, int64(100), entries[1].Points)
}

func TestOrderCreatedRedeliveryIsIdempotent(t *testing.T) {
	shop := "order-redelivery.myshopify.com"
	evt := request.OrderCreatedEvent{
		EventID:       "gid://shopify/Order/redelivered-1",
		OrderNumber:   "#2001",
		CustomerEmail: "steady@example.com",
		TotalPrice:    decimal.NewFromInt(40),
	}

	first, err := loyaltyService.Events.HandleOrderCreated(shop, evt)
	assert.NoError(t, err)
	assert.False(t, first.Skipped)

	second, err := loyaltyService.Events.HandleOrderCreated(shop, evt)
	assert.NoError(t, err)
	assert.True(t, second.Skipped)
	assert.Equal(t, "event already processed", second.SkipReason)

	member := getMember(t, first.MemberID)
	assert.Equal(t, int64(160), member.PointsBalance, "redelivery must not double-award")
}

func TestOrderCreatedExistingClubMember(t *testing.T) {
	shop := "order-club.myshopify.com"
	settings, err := loyaltyService.Settings.GetSettings(shop)
	assert.NoError(t, err)

	member := createMember(t, shop, "club@example.com")
	seedPoints(t, member, 1010)
	_, err = loyaltyService.Tiers.CheckAndUpgrade(shop, member.ID, settings)
	assert.NoError(t, err)

	result, err := loyaltyService.Events.HandleOrderCreated(shop, request.OrderCreatedEvent{
		EventID:       "gid://shopify/Order/club-1",
		OrderNumber:   "#3001",
		CustomerEmail: member.Email,
		TotalPrice:    decimal.NewFromInt(30),
	})
	assert.NoError(t, err)
	assert.False(t, result.NewMember)
	// floor(30 × 1 × 2.0) at the CLUB multiplier.
	assert.Equal(t, int64(60), result.PointsAwarded)

	// Subscription-billed orders earn at the subscription rate.
	result, err = loyaltyService.Events.HandleOrderCreated(shop, request.OrderCreatedEvent{
		EventID:             "gid://shopify/Order/club-2",
		OrderNumber:         "#3002",
		CustomerEmail:       member.Email,
		TotalPrice:          decimal.NewFromInt(30),
		IsSubscriptionOrder: true,
	})
	assert.NoError(t, err)
	// floor(30 × 2 × 2.0)
	assert.Equal(t, int64(120), result.PointsAwarded)
}

func TestOrderCreatedTriggersTierUpgrade(t *testing.T) {
	shop := "order-upgrade.myshopify.com"

	member := createMember(t, shop, "almost@example.com")
	seedPoints(t, member, 980)

	result, err := loyaltyService.Events.HandleOrderCreated(shop, request.OrderCreatedEvent{
		EventID:       "gid://shopify/Order/upgrade-1",
		OrderNumber:   "#4001",
		CustomerEmail: member.Email,
		TotalPrice:    decimal.NewFromInt(20),
	})
	assert.NoError(t, err)
	// floor(20 × 1 × 1.5) = 30 pushes lifetime to 1010, over the CLUB line.
	assert.Equal(t, int64(30), result.PointsAwarded)
	assert.NotNil(t, result.TierUpgrade)
	assert.True(t, result.TierUpgrade.Upgraded)
	assert.Equal(t, models.TierClub, result.TierUpgrade.NewTier)
	assert.Equal(t, int64(500), result.TierUpgrade.MilestonePointsAwarded)

	updated := getMember(t, member.ID)
	assert.Equal(t, models.TierClub, updated.Tier)
	assert.Equal(t, int64(1510), updated.PointsBalance)
}

func TestOrderCreatedReferralFlow(t *testing.T) {
	shop := "order-referral.myshopify.com"

	referrer := createMember(t, shop, "advocate@example.com")
	code, err := loyaltyService.Referrals.GetOrCreateCode(shop, referrer.ID)
	assert.NoError(t, err)

	// A brand-new customer checks out with the referral code.
	result, err := loyaltyService.Events.HandleOrderCreated(shop, request.OrderCreatedEvent{
		EventID:       "gid://shopify/Order/referral-1",
		OrderNumber:   "#5001",
		CustomerEmail: "invited@example.com",
		TotalPrice:    decimal.NewFromInt(50),
		DiscountCodes: []request.DiscountCode{{Code: code}},
	})
	assert.NoError(t, err)
	assert.True(t, result.NewMember)
	assert.NotNil(t, result.Referral)
	assert.True(t, result.Referral.Processed)

	// Referrer gets 500, referee 175 from the order plus the 250 bonus.
	assert.Equal(t, int64(500), getMember(t, referrer.ID).PointsBalance)
	assert.Equal(t, int64(425), getMember(t, result.MemberID).PointsBalance)
}

func TestOrderCreatedAwardsBirthdayBonus(t *testing.T) {
	shop := "order-birthday.myshopify.com"

	member := createMember(t, shop, "cake@example.com")
	now := time.Now()
	setBirthday(t, shop, member.ID, int(now.Month()), now.Day())

	result, err := loyaltyService.Events.HandleOrderCreated(shop, request.OrderCreatedEvent{
		EventID:       "gid://shopify/Order/birthday-1",
		OrderNumber:   "#6001",
		CustomerEmail: member.Email,
		TotalPrice:    decimal.NewFromInt(10),
	})
	assert.NoError(t, err)
	assert.NotNil(t, result.Birthday)
	assert.True(t, result.Birthday.Awarded)
	// floor(10 × 1 × 1.5) + 250 birthday points.
	assert.Equal(t, int64(265), getMember(t, member.ID).PointsBalance)
}

func TestOrderCreatedMissingFields(t *testing.T) {
	shop := "order-invalid.myshopify.com"

	result, err := loyaltyService.Events.HandleOrderCreated(shop, request.OrderCreatedEvent{
		EventID:    "gid://shopify/Order/no-email",
		TotalPrice: decimal.NewFromInt(10),
	})
	assert.NoError(t, err)
	assert.True(t, result.Skipped)
}

func TestSubscriptionCreatedNewMember(t *testing.T) {
	shop := "sub-new.myshopify.com"

	result, err := loyaltyService.Events.HandleSubscriptionCreated(shop, request.SubscriptionEvent{
		EventID:        "sub-create-1",
		SubscriptionID: "gid://shopify/SubscriptionContract/100",
		CustomerEmail:  "subsignup@example.com",
		Status:         models.SubscriptionActive,
		Cadence:        "monthly",
	})
	assert.NoError(t, err)
	assert.True(t, result.NewMember)
	// Welcome bonus plus subscription signup bonus.
	assert.Equal(t, int64(150), result.PointsAwarded)

	member := getMember(t, result.MemberID)
	assert.Equal(t, models.TierClub, member.Tier, "subscribers start at CLUB")

	var sub models.Subscription
	assert.NoError(t, db.Where("shopify_subscription_id = ?", "gid://shopify/SubscriptionContract/100").First(&sub).Error)
	assert.Equal(t, models.SubscriptionActive, sub.Status)
	assert.Equal(t, member.ID, sub.MemberID)
}

func TestSubscriptionCreatedExistingLiteMember(t *testing.T) {
	shop := "sub-existing.myshopify.com"
	member := createMember(t, shop, "upgrader@example.com")

	result, err := loyaltyService.Events.HandleSubscriptionCreated(shop, request.SubscriptionEvent{
		EventID:        "sub-create-2",
		SubscriptionID: "gid://shopify/SubscriptionContract/200",
		CustomerEmail:  member.Email,
		Status:         models.SubscriptionActive,
	})
	assert.NoError(t, err)
	assert.False(t, result.NewMember)
	assert.Equal(t, int64(50), result.PointsAwarded)
	assert.Equal(t, models.TierClub, getMember(t, member.ID).Tier)
}

func TestSubscriptionRenewal(t *testing.T) {
	shop := "sub-renewal.myshopify.com"
	member := createMember(t, shop, "renewer@example.com")

	_, err := loyaltyService.Events.HandleSubscriptionCreated(shop, request.SubscriptionEvent{
		EventID:        "sub-renew-create",
		SubscriptionID: "gid://shopify/SubscriptionContract/300",
		CustomerEmail:  member.Email,
		Status:         models.SubscriptionActive,
	})
	assert.NoError(t, err)

	total := decimal.NewFromInt(35)
	result, err := loyaltyService.Events.HandleSubscriptionUpdated(shop, request.SubscriptionEvent{
		EventID:           "sub-renew-billing-1",
		SubscriptionID:    "gid://shopify/SubscriptionContract/300",
		Status:            models.SubscriptionActive,
		LastPaymentStatus: utils.StringPtr("paid"),
		OrderTotal:        &total,
	})
	assert.NoError(t, err)
	assert.Equal(t, int64(50), result.PointsAwarded)

	var sub models.Subscription
	assert.NoError(t, db.Where("shopify_subscription_id = ?", "gid://shopify/SubscriptionContract/300").First(&sub).Error)
	assert.Equal(t, int64(1), sub.TotalOrders)
	assert.NotNil(t, sub.LastBillingDate)
}

func TestSubscriptionFailedPaymentStaysActive(t *testing.T) {
	shop := "sub-failed.myshopify.com"
	member := createMember(t, shop, "failer@example.com")

	_, err := loyaltyService.Events.HandleSubscriptionCreated(shop, request.SubscriptionEvent{
		EventID:        "sub-failed-create",
		SubscriptionID: "gid://shopify/SubscriptionContract/400",
		CustomerEmail:  member.Email,
		Status:         models.SubscriptionActive,
	})
	assert.NoError(t, err)

	result, err := loyaltyService.Events.HandleSubscriptionUpdated(shop, request.SubscriptionEvent{
		EventID:        "sub-failed-update",
		SubscriptionID: "gid://shopify/SubscriptionContract/400",
		Status:         "failed",
	})
	assert.NoError(t, err)
	assert.Equal(t, int64(0), result.PointsAwarded)

	var sub models.Subscription
	assert.NoError(t, db.Where("shopify_subscription_id = ?", "gid://shopify/SubscriptionContract/400").First(&sub).Error)
	assert.Equal(t, models.SubscriptionActive, sub.Status)
}

func TestSubscriptionCancellationDowngrades(t *testing.T) {
	shop := "sub-cancel.myshopify.com"
	member := createMember(t, shop, "canceler@example.com")

	_, err := loyaltyService.Events.HandleSubscriptionCreated(shop, request.SubscriptionEvent{
		EventID:        "sub-cancel-create",
		SubscriptionID: "gid://shopify/SubscriptionContract/500",
		CustomerEmail:  member.Email,
		Status:         models.SubscriptionActive,
	})
	assert.NoError(t, err)
	assert.Equal(t, models.TierClub, getMember(t, member.ID).Tier)

	result, err := loyaltyService.Events.HandleSubscriptionUpdated(shop, request.SubscriptionEvent{
		EventID:        "sub-cancel-update",
		SubscriptionID: "gid://shopify/SubscriptionContract/500",
		Status:         models.SubscriptionCancelled,
	})
	assert.NoError(t, err)
	assert.True(t, result.Downgraded)
	assert.Equal(t, models.TierLite, getMember(t, member.ID).Tier)

	var sub models.Subscription
	assert.NoError(t, db.Where("shopify_subscription_id = ?", "gid://shopify/SubscriptionContract/500").First(&sub).Error)
	assert.Equal(t, models.SubscriptionCancelled, sub.Status)
	assert.NotNil(t, sub.CancelledAt)
}

func TestSubscriptionReactivation(t *testing.T) {
	shop := "sub-reactivate.myshopify.com"
	member := createMember(t, shop, "returner@example.com")

	_, err := loyaltyService.Events.HandleSubscriptionCreated(shop, request.SubscriptionEvent{
		EventID:        "sub-react-create",
		SubscriptionID: "gid://shopify/SubscriptionContract/600",
		CustomerEmail:  member.Email,
		Status:         models.SubscriptionActive,
	})
	assert.NoError(t, err)

	_, err = loyaltyService.Events.HandleSubscriptionUpdated(shop, request.SubscriptionEvent{
		EventID:        "sub-react-pause",
		SubscriptionID: "gid://shopify/SubscriptionContract/600",
		Status:         models.SubscriptionPaused,
	})
	assert.NoError(t, err)

	result, err := loyaltyService.Events.HandleSubscriptionUpdated(shop, request.SubscriptionEvent{
		EventID:        "sub-react-resume",
		SubscriptionID: "gid://shopify/SubscriptionContract/600",
		Status:         models.SubscriptionActive,
	})
	assert.NoError(t, err)
	assert.Equal(t, int64(100), result.PointsAwarded, "reactivation bonus")

	var sub models.Subscription
	assert.NoError(t, db.Where("shopify_subscription_id = ?", "gid://shopify/SubscriptionContract/600").First(&sub).Error)
	assert.Equal(t, models.SubscriptionActive, sub.Status)
	assert.Nil(t, sub.PauseStartedAt)
}

func TestSubscriptionUpdateUnknownContract(t *testing.T) {
	shop := "sub-unknown.myshopify.com"

	result, err := loyaltyService.Events.HandleSubscriptionUpdated(shop, request.SubscriptionEvent{
		EventID:        "sub-unknown-update",
		SubscriptionID: "gid://shopify/SubscriptionContract/999999",
		Status:         models.SubscriptionActive,
	})
	assert.NoError(t, err)
	assert.True(t, result.Skipped)
	assert.Equal(t, "unknown subscription", result.SkipReason)
}

func TestLedgerReplayMatchesStoredBalances(t *testing.T) {
	shop := "ledger-replay.myshopify.com"

	// Earn through a few orders, then spend.
	result, err := loyaltyService.Events.HandleOrderCreated(shop, request.OrderCreatedEvent{
		EventID:       "gid://shopify/Order/replay-1",
		OrderNumber:   "#7001",
		CustomerEmail: "auditable@example.com",
		TotalPrice:    decimal.NewFromInt(100),
	})
	assert.NoError(t, err)
	memberID := result.MemberID

	_, err = loyaltyService.Events.HandleOrderCreated(shop, request.OrderCreatedEvent{
		EventID:       "gid://shopify/Order/replay-2",
		OrderNumber:   "#7002",
		CustomerEmail: "auditable@example.com",
		TotalPrice:    decimal.NewFromInt(60),
	})
	assert.NoError(t, err)

	reward := createReward(t, shop, discountReward("replay perk", 120))
	redemption, err := loyaltyService.Redemptions.Redeem(shop, memberID, reward.ID)
	assert.NoError(t, err)
	assert.True(t, redemption.Success)

	balance, lifetime, err := loyaltyService.Ledger.Replay(memberID)
	assert.NoError(t, err)

	member := getMember(t, memberID)
	assert.Equal(t, member.PointsBalance, balance, "replayed balance must equal stored balance")
	assert.Equal(t, member.LifetimePoints, lifetime, "replayed lifetime must equal stored lifetime")
	assert.Equal(t, lifetime-120, balance)
}
