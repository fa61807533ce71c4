package serviceimpl

import (
	"fmt"
	"time"

	"github.com/lavivara/go-loyalty/models"
	"github.com/lavivara/go-loyalty/points"
	"github.com/lavivara/go-loyalty/request"
	"github.com/lavivara/go-loyalty/response"
	"github.com/lavivara/go-loyalty/service"
	"gorm.io/gorm"
)

// Webhook topics recorded on processed events.
const (
	topicOrderCreated        = "orders/create"
	topicSubscriptionCreated = "subscriptions/create"
	topicSubscriptionUpdated = "subscriptions/update"
)

type eventHandler struct {
	DB              *gorm.DB
	SettingsService service.SettingsService
	MemberService   service.MemberService
	TierService     service.TierService
	ReferralService service.ReferralService
	BirthdayService service.BirthdayService
}

func NewEventHandler(
	db *gorm.DB,
	settings service.SettingsService,
	members service.MemberService,
	tiers service.TierService,
	referrals service.ReferralService,
	birthdays service.BirthdayService,
) *eventHandler {
	return &eventHandler{
		DB:              db,
		SettingsService: settings,
		MemberService:   members,
		TierService:     tiers,
		ReferralService: referrals,
		BirthdayService: birthdays,
	}
}

// markProcessed records the external event id. A duplicate insert means
// the webhook was redelivered and the whole handler must no-op.
func (h *eventHandler) markProcessed(shop, eventID, topic string) (alreadyProcessed bool, err error) {
	record := models.ProcessedEvent{Shop: shop, EventID: eventID, Topic: topic}
	if err := h.DB.Create(&record).Error; err != nil {
		if isUniqueConstraintError(err) {
			return true, nil
		}
		return false, fmt.Errorf("failed to record processed event: %w", err)
	}
	return false, nil
}

// HandleOrderCreated awards purchase points and runs the follow-on
// checks: tier upgrade, referral completion, birthday bonus. Unknown
// customers become members on their first order.
func (h *eventHandler) HandleOrderCreated(shop string, evt request.OrderCreatedEvent) (*response.OrderProcessed, error) {
	result := &response.OrderProcessed{}

	if evt.EventID == "" || evt.CustomerEmail == "" {
		result.Skipped = true
		result.SkipReason = "missing event id or customer email"
		return result, nil
	}

	already, err := h.markProcessed(shop, evt.EventID, topicOrderCreated)
	if err != nil {
		return nil, err
	}
	if already {
		result.Skipped = true
		result.SkipReason = "event already processed"
		return result, nil
	}

	settings, err := h.SettingsService.GetSettings(shop)
	if err != nil {
		return nil, err
	}
	if !settings.LoyaltyEnabled {
		result.Skipped = true
		result.SkipReason = "loyalty program disabled"
		return result, nil
	}

	member, err := h.MemberService.GetMemberByEmail(shop, evt.CustomerEmail)
	if err != nil {
		return nil, err
	}

	if member == nil {
		member, err = h.MemberService.CreateMember(shop, request.CreateMemberRequest{
			Email:     evt.CustomerEmail,
			FirstName: evt.CustomerFirstName,
			LastName:  evt.CustomerLastName,
		}, settings)
		if err != nil {
			return nil, err
		}
		result.NewMember = true

		pts := points.NewMemberPurchase(evt.TotalPrice, settings)
		err = h.DB.Transaction(func(tx *gorm.DB) error {
			if _, err := lockMember(tx, shop, member.ID); err != nil {
				return err
			}
			desc := fmt.Sprintf("Purchase: order %s", evt.OrderNumber)
			if err := creditPoints(tx, shop, member.ID, pts, models.ActionEarnPurchase, desc, models.RefOrder, evt.EventID); err != nil {
				return err
			}
			welcome := points.WelcomeBonus(settings)
			return creditPoints(tx, shop, member.ID, welcome, models.ActionEarnWelcome, "Welcome bonus", models.RefOrder, evt.EventID)
		})
		if err != nil {
			return nil, err
		}
		result.PointsAwarded = pts + points.WelcomeBonus(settings)

		if code := h.ReferralService.ExtractReferralCode(evt.DiscountCodes); code != nil {
			if _, err := h.ReferralService.Attribute(shop, member.ID, *code, settings); err != nil {
				return nil, err
			}
		}
	} else {
		pts := points.Purchase(evt.TotalPrice, member.Tier, evt.IsSubscriptionOrder, settings)
		err = h.DB.Transaction(func(tx *gorm.DB) error {
			if _, err := lockMember(tx, shop, member.ID); err != nil {
				return err
			}
			desc := fmt.Sprintf("Purchase: order %s", evt.OrderNumber)
			return creditPoints(tx, shop, member.ID, pts, models.ActionEarnPurchase, desc, models.RefOrder, evt.EventID)
		})
		if err != nil {
			return nil, err
		}
		result.PointsAwarded = pts
	}

	result.MemberID = member.ID

	upgrade, err := h.TierService.CheckAndUpgrade(shop, member.ID, settings)
	if err != nil {
		return nil, err
	}
	result.TierUpgrade = upgrade

	referral, err := h.ReferralService.Complete(shop, member.ID, evt.EventID, evt.TotalPrice, settings)
	if err != nil {
		return nil, err
	}
	result.Referral = referral

	birthday, err := h.BirthdayService.CheckAndAward(shop, member.ID, settings)
	if err != nil {
		return nil, err
	}
	result.Birthday = birthday

	return result, nil
}

// HandleSubscriptionCreated mirrors the new contract locally, moves the
// member to CLUB and awards the signup bonus.
func (h *eventHandler) HandleSubscriptionCreated(shop string, evt request.SubscriptionEvent) (*response.SubscriptionProcessed, error) {
	result := &response.SubscriptionProcessed{}

	if evt.SubscriptionID == "" || evt.CustomerEmail == "" {
		result.Skipped = true
		result.SkipReason = "missing subscription id or customer email"
		return result, nil
	}

	eventID := evt.EventID
	if eventID == "" {
		eventID = evt.SubscriptionID
	}
	already, err := h.markProcessed(shop, eventID, topicSubscriptionCreated)
	if err != nil {
		return nil, err
	}
	if already {
		result.Skipped = true
		result.SkipReason = "event already processed"
		return result, nil
	}

	settings, err := h.SettingsService.GetSettings(shop)
	if err != nil {
		return nil, err
	}
	if !settings.LoyaltyEnabled {
		result.Skipped = true
		result.SkipReason = "loyalty program disabled"
		return result, nil
	}

	member, err := h.MemberService.GetMemberByEmail(shop, evt.CustomerEmail)
	if err != nil {
		return nil, err
	}

	if member == nil {
		tier := models.TierClub
		member, err = h.MemberService.CreateMember(shop, request.CreateMemberRequest{
			Email:             evt.CustomerEmail,
			FirstName:         evt.CustomerFirstName,
			LastName:          evt.CustomerLastName,
			ShopifyCustomerID: evt.CustomerID,
			Tier:              &tier,
		}, settings)
		if err != nil {
			return nil, err
		}
		result.NewMember = true

		welcome := points.WelcomeBonus(settings)
		err = h.DB.Transaction(func(tx *gorm.DB) error {
			if _, err := lockMember(tx, shop, member.ID); err != nil {
				return err
			}
			return creditPoints(tx, shop, member.ID, welcome, models.ActionEarnWelcome, "Welcome bonus", models.RefSubscription, evt.SubscriptionID)
		})
		if err != nil {
			return nil, err
		}
		result.PointsAwarded += welcome
	} else {
		if err := h.TierService.UpgradeOnSubscription(shop, member.ID, settings); err != nil {
			return nil, err
		}
	}

	result.MemberID = member.ID

	now := time.Now()
	subscription := models.Subscription{
		Shop:                  shop,
		MemberID:              member.ID,
		ShopifySubscriptionID: evt.SubscriptionID,
		Brand:                 evt.Brand,
		Status:                models.SubscriptionActive,
		Cadence:               evt.Cadence,
		NextBillingDate:       evt.NextBillingDate,
		LastBillingDate:       &now,
	}
	err = h.DB.Where("shopify_subscription_id = ?", evt.SubscriptionID).
		FirstOrCreate(&subscription).Error
	if err != nil {
		return nil, fmt.Errorf("failed to create subscription: %w", err)
	}

	bonus := points.SubscriptionBonus(settings)
	err = h.DB.Transaction(func(tx *gorm.DB) error {
		if _, err := lockMember(tx, shop, member.ID); err != nil {
			return err
		}
		return creditPoints(tx, shop, member.ID, bonus, models.ActionEarnSubscription, "Subscription signup bonus", models.RefSubscription, evt.SubscriptionID)
	})
	if err != nil {
		return nil, err
	}
	result.PointsAwarded += bonus

	return result, nil
}

// External subscription statuses that don't map one-to-one onto ours:
// a failed payment keeps the contract active, an expired contract is
// treated as cancelled.
func mapSubscriptionStatus(status string) string {
	switch status {
	case "failed":
		return models.SubscriptionActive
	case "expired":
		return models.SubscriptionCancelled
	case models.SubscriptionActive, models.SubscriptionPaused, models.SubscriptionCancelled:
		return status
	}
	return models.SubscriptionActive
}

// HandleSubscriptionUpdated applies status transitions: renewals pay the
// renewal bonus, pauses and cancellations are timestamped, resuming from
// a non-active status pays the reactivation bonus, and a cancellation
// may downgrade the member's tier.
func (h *eventHandler) HandleSubscriptionUpdated(shop string, evt request.SubscriptionEvent) (*response.SubscriptionProcessed, error) {
	result := &response.SubscriptionProcessed{}

	if evt.SubscriptionID == "" {
		result.Skipped = true
		result.SkipReason = "missing subscription id"
		return result, nil
	}

	eventID := evt.EventID
	if eventID == "" {
		eventID = fmt.Sprintf("%s:%s", evt.SubscriptionID, evt.Status)
	}
	already, err := h.markProcessed(shop, eventID, topicSubscriptionUpdated)
	if err != nil {
		return nil, err
	}
	if already {
		result.Skipped = true
		result.SkipReason = "event already processed"
		return result, nil
	}

	settings, err := h.SettingsService.GetSettings(shop)
	if err != nil {
		return nil, err
	}

	var subscription models.Subscription
	err = h.DB.Where("shopify_subscription_id = ?", evt.SubscriptionID).First(&subscription).Error
	if err != nil {
		result.Skipped = true
		result.SkipReason = "unknown subscription"
		return result, nil
	}

	result.MemberID = subscription.MemberID

	previousStatus := subscription.Status
	newStatus := mapSubscriptionStatus(evt.Status)

	renewal := evt.LastPaymentStatus != nil && *evt.LastPaymentStatus == "paid" && evt.OrderTotal != nil
	now := time.Now()

	updates := map[string]interface{}{
		"status":  newStatus,
		"cadence": subscription.Cadence,
	}
	if evt.Cadence != "" {
		updates["cadence"] = evt.Cadence
	}
	if evt.NextBillingDate != nil {
		updates["next_billing_date"] = evt.NextBillingDate
	}
	switch {
	case newStatus == models.SubscriptionCancelled && previousStatus != models.SubscriptionCancelled:
		updates["cancelled_at"] = &now
	case newStatus == models.SubscriptionPaused && previousStatus != models.SubscriptionPaused:
		updates["pause_started_at"] = &now
	case newStatus == models.SubscriptionActive:
		updates["pause_started_at"] = nil
		updates["cancelled_at"] = nil
	}
	if renewal {
		updates["total_orders"] = gorm.Expr("total_orders + 1")
		updates["last_billing_date"] = &now
	}

	if err := h.DB.Model(&models.Subscription{}).
		Where("id = ?", subscription.ID).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update subscription: %w", err)
	}

	if settings.LoyaltyEnabled && renewal {
		bonus := points.RenewalBonus(settings)
		err = h.DB.Transaction(func(tx *gorm.DB) error {
			if _, err := lockMember(tx, shop, subscription.MemberID); err != nil {
				return err
			}
			return creditPoints(tx, shop, subscription.MemberID, bonus, models.ActionEarnSubscriptionRenewal,
				"Subscription renewal bonus", models.RefSubscription, eventID)
		})
		if err != nil {
			return nil, err
		}
		result.PointsAwarded += bonus
	}

	if settings.LoyaltyEnabled && previousStatus != models.SubscriptionActive && newStatus == models.SubscriptionActive {
		bonus := points.ReactivationBonus(settings)
		err = h.DB.Transaction(func(tx *gorm.DB) error {
			if _, err := lockMember(tx, shop, subscription.MemberID); err != nil {
				return err
			}
			return creditPoints(tx, shop, subscription.MemberID, bonus, models.ActionEarnReactivation,
				"Subscription reactivation bonus", models.RefSubscription, eventID)
		})
		if err != nil {
			return nil, err
		}
		result.PointsAwarded += bonus
	}

	if newStatus == models.SubscriptionCancelled && previousStatus != models.SubscriptionCancelled {
		downgraded, err := h.TierService.DowngradeOnCancellation(shop, subscription.MemberID, settings)
		if err != nil {
			return nil, err
		}
		result.Downgraded = downgraded
	}

	return result, nil
}
