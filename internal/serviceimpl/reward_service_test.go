package serviceimpl_test

import (
	"testing"

	"github.com/lavivara/go-loyalty/models"
	"github.com/lavivara/go-loyalty/request"
	"github.com/lavivara/go-loyalty/utils"
	"github.com/stretchr/testify/assert"
)

func TestCreateRewardValidation(t *testing.T) {
	shop := "reward-validation.myshopify.com"

	_, err := loyaltyService.Rewards.CreateReward(shop, request.CreateRewardRequest{
		Name: "", Type: models.RewardTypeProduct, PointsCost: 100,
	})
	assert.Error(t, err)

	_, err = loyaltyService.Rewards.CreateReward(shop, request.CreateRewardRequest{
		Name: "free", Type: models.RewardTypeProduct, PointsCost: 0,
	})
	assert.Error(t, err)

	// Discount rewards need discount semantics.
	_, err = loyaltyService.Rewards.CreateReward(shop, request.CreateRewardRequest{
		Name: "bare discount", Type: models.RewardTypeDiscount, PointsCost: 100,
	})
	assert.Error(t, err)

	_, err = loyaltyService.Rewards.CreateReward(shop, request.CreateRewardRequest{
		Name: "ghost stock", Type: models.RewardTypeProduct, PointsCost: 100, StockLimited: true,
	})
	assert.Error(t, err)

	_, err = loyaltyService.Rewards.CreateReward(shop, request.CreateRewardRequest{
		Name: "bad tier", Type: models.RewardTypeProduct, PointsCost: 100,
		TierRequired: utils.StringPtr("GOLD"),
	})
	assert.Error(t, err)
}

func TestGetRewardsTierFilter(t *testing.T) {
	shop := "reward-tiers.myshopify.com"

	createReward(t, shop, discountReward("open to all", 100))

	clubOnly := discountReward("club perk", 200)
	clubOnly.TierRequired = utils.StringPtr(models.TierClub)
	createReward(t, shop, clubOnly)

	plusOnly := discountReward("plus perk", 300)
	plusOnly.TierRequired = utils.StringPtr(models.TierClubPlus)
	createReward(t, shop, plusOnly)

	lite := models.TierLite
	rewards, count, err := loyaltyService.Rewards.GetRewards(request.GetRewardRequest{
		Shops:         []string{shop},
		TierAvailable: &lite,
	})
	assert.NoError(t, err)
	assert.Equal(t, int64(1), count)
	assert.Len(t, rewards, 1)
	assert.Equal(t, "open to all", rewards[0].Name)

	club := models.TierClub
	rewards, count, err = loyaltyService.Rewards.GetRewards(request.GetRewardRequest{
		Shops:         []string{shop},
		TierAvailable: &club,
	})
	assert.NoError(t, err)
	assert.Equal(t, int64(2), count)
	assert.Len(t, rewards, 2)
}

func TestUpdateReward(t *testing.T) {
	shop := "reward-update.myshopify.com"
	reward := createReward(t, shop, discountReward("mutable", 100))

	updated, err := loyaltyService.Rewards.UpdateReward(shop, reward.ID, request.UpdateRewardRequest{
		Name:       utils.StringPtr("renamed"),
		PointsCost: utils.Int64Ptr(150),
		NameFR:     utils.StringPtr("renommée"),
	})
	assert.NoError(t, err)
	assert.Equal(t, "renamed", updated.Name)
	assert.Equal(t, int64(150), updated.PointsCost)
	assert.Equal(t, "renommée", *updated.NameFR)

	_, err = loyaltyService.Rewards.UpdateReward(shop, reward.ID, request.UpdateRewardRequest{
		PointsCost: utils.Int64Ptr(0),
	})
	assert.Error(t, err)

	_, err = loyaltyService.Rewards.UpdateReward(shop, 999999, request.UpdateRewardRequest{})
	assert.Error(t, err)
}

func TestDeleteRewardHardVsSoft(t *testing.T) {
	shop := "reward-delete.myshopify.com"

	// Never redeemed: hard delete.
	unused := createReward(t, shop, discountReward("unused", 100))
	assert.NoError(t, loyaltyService.Rewards.DeleteReward(shop, unused.ID))

	var count int64
	assert.NoError(t, db.Unscoped().Model(&models.Reward{}).Where("id = ?", unused.ID).Count(&count).Error)
	assert.Equal(t, int64(0), count)

	// Redeemed once: deactivated, row kept.
	used := createReward(t, shop, discountReward("used", 100))
	member := createMember(t, shop, "keeper@example.com")
	seedPoints(t, member, 200)
	result, err := loyaltyService.Redemptions.Redeem(shop, member.ID, used.ID)
	assert.NoError(t, err)
	assert.True(t, result.Success)

	assert.NoError(t, loyaltyService.Rewards.DeleteReward(shop, used.ID))

	var kept models.Reward
	assert.NoError(t, db.First(&kept, used.ID).Error)
	assert.False(t, kept.IsActive)
}
