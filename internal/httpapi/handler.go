// Package httpapi exposes the loyalty engine over HTTP: webhook intake,
// the storefront proxy endpoints, and the merchant admin API.
package httpapi

import (
	"log"

	"github.com/gofiber/fiber/v2"
	go_loyalty "github.com/lavivara/go-loyalty"
	"github.com/lavivara/go-loyalty/request"
	"github.com/lavivara/go-loyalty/utils"
)

type Handler struct {
	Loyalty *go_loyalty.LoyaltyService
}

func NewHandler(loyalty *go_loyalty.LoyaltyService) *Handler {
	return &Handler{Loyalty: loyalty}
}

// shopFrom reads the shop domain Shopify sends on every webhook and
// proxy request.
func shopFrom(c *fiber.Ctx) string {
	return c.Get("X-Shopify-Shop-Domain")
}

// --- Webhooks ---

func (h *Handler) OrderCreated(c *fiber.Ctx) error {
	shop := shopFrom(c)
	if shop == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing shop domain"})
	}

	var evt request.OrderCreatedEvent
	if err := c.BodyParser(&evt); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	result, err := h.Loyalty.Events.HandleOrderCreated(shop, evt)
	if err != nil {
		log.Printf("order webhook failed for %s: %v", shop, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process order"})
	}

	return c.JSON(result)
}

func (h *Handler) SubscriptionCreated(c *fiber.Ctx) error {
	shop := shopFrom(c)
	if shop == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing shop domain"})
	}

	var evt request.SubscriptionEvent
	if err := c.BodyParser(&evt); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	result, err := h.Loyalty.Events.HandleSubscriptionCreated(shop, evt)
	if err != nil {
		log.Printf("subscription create webhook failed for %s: %v", shop, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process subscription"})
	}

	return c.JSON(result)
}

func (h *Handler) SubscriptionUpdated(c *fiber.Ctx) error {
	shop := shopFrom(c)
	if shop == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing shop domain"})
	}

	var evt request.SubscriptionEvent
	if err := c.BodyParser(&evt); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	result, err := h.Loyalty.Events.HandleSubscriptionUpdated(shop, evt)
	if err != nil {
		log.Printf("subscription update webhook failed for %s: %v", shop, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process subscription"})
	}

	return c.JSON(result)
}

// CustomerRedact handles the GDPR customer data erasure webhook.
func (h *Handler) CustomerRedact(c *fiber.Ctx) error {
	shop := shopFrom(c)
	if shop == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing shop domain"})
	}

	var payload struct {
		Customer struct {
			Email string `json:"email"`
		} `json:"customer"`
	}
	if err := c.BodyParser(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if err := h.Loyalty.Members.EraseMember(shop, payload.Customer.Email); err != nil {
		log.Printf("customer redact failed for %s: %v", shop, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to erase member"})
	}

	return c.SendStatus(fiber.StatusOK)
}

// --- Storefront proxy ---

func (h *Handler) GetMember(c *fiber.Ctx) error {
	shop := shopFrom(c)
	email := c.Query("email")
	if shop == "" || email == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing shop or email"})
	}

	member, err := h.Loyalty.Members.GetMemberByEmail(shop, email)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch member"})
	}
	if member == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Member not found"})
	}

	profile, err := h.Loyalty.Members.GetProfile(shop, member.ID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch profile"})
	}

	// The referral code is created lazily on first profile view.
	if profile.ReferralCode == nil {
		code, err := h.Loyalty.Referrals.GetOrCreateCode(shop, member.ID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create referral code"})
		}
		profile.ReferralCode = &code
	}

	return c.JSON(profile)
}

func (h *Handler) GetRewards(c *fiber.Ctx) error {
	shop := shopFrom(c)
	if shop == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing shop domain"})
	}

	req := request.GetRewardRequest{
		Shops:    []string{shop},
		IsActive: utils.BoolPtr(true),
	}
	if tier := c.Query("tier"); tier != "" {
		req.TierAvailable = &tier
	}

	rewards, count, err := h.Loyalty.Rewards.GetRewards(req)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch rewards"})
	}

	return c.JSON(fiber.Map{"rewards": rewards, "count": count})
}

func (h *Handler) UpdateBirthday(c *fiber.Ctx) error {
	shop := shopFrom(c)
	if shop == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing shop domain"})
	}

	memberID, err := c.ParamsInt("id")
	if err != nil || memberID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid member ID"})
	}

	var req request.UpdateBirthdayRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if err := h.Loyalty.Members.UpdateBirthday(shop, uint(memberID), req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	return c.SendStatus(fiber.StatusOK)
}

func (h *Handler) Redeem(c *fiber.Ctx) error {
	shop := shopFrom(c)
	if shop == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing shop domain"})
	}

	var req request.RedeemRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	result, err := h.Loyalty.Redemptions.Redeem(shop, req.MemberID, req.RewardID)
	if err != nil {
		log.Printf("redemption failed for %s: %v", shop, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to redeem"})
	}
	if !result.Success {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(result)
	}

	return c.JSON(result)
}

// --- Merchant admin ---

func (h *Handler) GetSettings(c *fiber.Ctx) error {
	shop := shopFrom(c)
	if shop == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing shop domain"})
	}

	settings, err := h.Loyalty.Settings.GetSettings(shop)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch settings"})
	}

	return c.JSON(settings)
}

func (h *Handler) UpdateSettings(c *fiber.Ctx) error {
	shop := shopFrom(c)
	if shop == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing shop domain"})
	}

	var req request.UpdateSettingsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	settings, err := h.Loyalty.Settings.UpdateSettings(shop, req)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update settings"})
	}

	return c.JSON(settings)
}

func (h *Handler) CreateReward(c *fiber.Ctx) error {
	shop := shopFrom(c)
	if shop == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing shop domain"})
	}

	var req request.CreateRewardRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	reward, err := h.Loyalty.Rewards.CreateReward(shop, req)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	return c.Status(fiber.StatusCreated).JSON(reward)
}

func (h *Handler) UpdateReward(c *fiber.Ctx) error {
	shop := shopFrom(c)
	if shop == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing shop domain"})
	}

	rewardID, err := c.ParamsInt("id")
	if err != nil || rewardID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid reward ID"})
	}

	var req request.UpdateRewardRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	reward, err := h.Loyalty.Rewards.UpdateReward(shop, uint(rewardID), req)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(reward)
}

func (h *Handler) DeleteReward(c *fiber.Ctx) error {
	shop := shopFrom(c)
	if shop == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing shop domain"})
	}

	rewardID, err := c.ParamsInt("id")
	if err != nil || rewardID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid reward ID"})
	}

	if err := h.Loyalty.Rewards.DeleteReward(shop, uint(rewardID)); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) GetMembers(c *fiber.Ctx) error {
	shop := shopFrom(c)
	if shop == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing shop domain"})
	}

	req := request.GetMemberRequest{Shops: []string{shop}}
	if tier := c.Query("tier"); tier != "" {
		req.Tier = &tier
	}
	if limit := c.QueryInt("limit"); limit > 0 {
		req.PaginationConditions.Limit = utils.IntPtr(limit)
	}
	if offset := c.QueryInt("offset"); offset > 0 {
		req.PaginationConditions.Offset = utils.IntPtr(offset)
	}

	members, count, err := h.Loyalty.Members.GetMembers(req)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch members"})
	}

	return c.JSON(fiber.Map{"members": members, "count": count})
}

func (h *Handler) GetLedger(c *fiber.Ctx) error {
	shop := shopFrom(c)
	if shop == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing shop domain"})
	}

	req := request.GetLedgerRequest{Shops: []string{shop}}
	if memberID := c.QueryInt("memberId"); memberID > 0 {
		id := uint(memberID)
		req.MemberID = &id
	}
	if limit := c.QueryInt("limit"); limit > 0 {
		req.PaginationConditions.Limit = utils.IntPtr(limit)
	}

	entries, count, err := h.Loyalty.Ledger.GetEntries(req)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch ledger"})
	}

	return c.JSON(fiber.Map{"entries": entries, "count": count})
}

// SetupRoutes registers every endpoint on the app.
func SetupRoutes(app *fiber.App, h *Handler) {
	webhooks := app.Group("/webhooks")
	webhooks.Post("/orders/create", h.OrderCreated)
	webhooks.Post("/subscriptions/create", h.SubscriptionCreated)
	webhooks.Post("/subscriptions/update", h.SubscriptionUpdated)
	webhooks.Post("/customers/redact", h.CustomerRedact)

	proxy := app.Group("/proxy/vip")
	proxy.Get("/member", h.GetMember)
	proxy.Get("/rewards", h.GetRewards)
	proxy.Put("/member/:id/birthday", h.UpdateBirthday)
	proxy.Post("/redeem", h.Redeem)

	admin := app.Group("/api/admin")
	admin.Get("/settings", h.GetSettings)
	admin.Put("/settings", h.UpdateSettings)
	admin.Post("/rewards", h.CreateReward)
	admin.Put("/rewards/:id", h.UpdateReward)
	admin.Delete("/rewards/:id", h.DeleteReward)
	admin.Get("/members", h.GetMembers)
	admin.Get("/ledger", h.GetLedger)
}
