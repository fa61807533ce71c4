package serviceimpl

import (
	"errors"
	"fmt"

	"github.com/lavivara/go-loyalty/models"
	"github.com/lavivara/go-loyalty/request"
	"gorm.io/gorm"
)

type rewardService struct {
	DB *gorm.DB
}

func NewRewardService(db *gorm.DB) *rewardService {
	return &rewardService{DB: db}
}

func (s *rewardService) CreateReward(shop string, req request.CreateRewardRequest) (*models.Reward, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("reward name cannot be empty")
	}
	if req.PointsCost <= 0 {
		return nil, fmt.Errorf("points cost must be positive")
	}
	if req.TierRequired != nil && models.TierRank(*req.TierRequired) < 0 {
		return nil, fmt.Errorf("invalid tier: %s", *req.TierRequired)
	}
	if req.Type == models.RewardTypeDiscount {
		if req.DiscountValue == nil || req.DiscountType == nil {
			return nil, fmt.Errorf("discount rewards require a discount value and type")
		}
	}
	if req.StockLimited && req.StockCount == nil {
		return nil, fmt.Errorf("stock-limited rewards require a stock count")
	}

	reward := &models.Reward{
		Shop:          shop,
		Name:          req.Name,
		NameFR:        req.NameFR,
		Description:   req.Description,
		DescriptionFR: req.DescriptionFR,
		Type:          req.Type,
		PointsCost:    req.PointsCost,
		DiscountValue: req.DiscountValue,
		DiscountType:  req.DiscountType,
		TierRequired:  req.TierRequired,
		Brand:         req.Brand,
		IsActive:      true,
		StockLimited:  req.StockLimited,
		StockCount:    req.StockCount,
		SortOrder:     req.SortOrder,
	}

	if err := s.DB.Create(reward).Error; err != nil {
		return nil, fmt.Errorf("failed to create reward: %w", err)
	}

	return reward, nil
}

func (s *rewardService) GetRewards(req request.GetRewardRequest) ([]models.Reward, int64, error) {
	var rewards []models.Reward
	var count int64

	query := s.DB.Model(&models.Reward{})
	query = request.ApplyGetRewardRequest(req, query)

	if err := query.Count(&count).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count rewards: %w", err)
	}

	if req.PaginationConditions.SortBy == nil {
		sortBy, order := "sort_order", "ASC"
		req.PaginationConditions.SortBy = &sortBy
		req.PaginationConditions.Order = &order
	}
	query = request.ApplyPaginationConditions(query, req.PaginationConditions)

	if err := query.Find(&rewards).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch rewards: %w", err)
	}

	// Tier gating compares ranks, which SQL can't do against the string
	// column, so filter here.
	if req.TierAvailable != nil {
		rank := models.TierRank(*req.TierAvailable)
		filtered := rewards[:0]
		for _, r := range rewards {
			if r.TierRequired != nil && models.TierRank(*r.TierRequired) > rank {
				count--
				continue
			}
			filtered = append(filtered, r)
		}
		rewards = filtered
	}

	return rewards, count, nil
}

func (s *rewardService) UpdateReward(shop string, rewardID uint, req request.UpdateRewardRequest) (*models.Reward, error) {
	var reward models.Reward
	err := s.DB.Where("shop = ? AND id = ?", shop, rewardID).First(&reward).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("reward %d not found", rewardID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch reward: %w", err)
	}

	if req.Name != nil {
		reward.Name = *req.Name
	}
	if req.NameFR != nil {
		reward.NameFR = req.NameFR
	}
	if req.Description != nil {
		reward.Description = req.Description
	}
	if req.DescriptionFR != nil {
		reward.DescriptionFR = req.DescriptionFR
	}
	if req.PointsCost != nil {
		if *req.PointsCost <= 0 {
			return nil, fmt.Errorf("points cost must be positive")
		}
		reward.PointsCost = *req.PointsCost
	}
	if req.DiscountValue != nil {
		reward.DiscountValue = req.DiscountValue
	}
	if req.DiscountType != nil {
		reward.DiscountType = req.DiscountType
	}
	if req.TierRequired != nil {
		if models.TierRank(*req.TierRequired) < 0 {
			return nil, fmt.Errorf("invalid tier: %s", *req.TierRequired)
		}
		reward.TierRequired = req.TierRequired
	}
	if req.IsActive != nil {
		reward.IsActive = *req.IsActive
	}
	if req.StockLimited != nil {
		reward.StockLimited = *req.StockLimited
	}
	if req.StockCount != nil {
		reward.StockCount = req.StockCount
	}
	if req.SortOrder != nil {
		reward.SortOrder = *req.SortOrder
	}

	if err := s.DB.Save(&reward).Error; err != nil {
		return nil, fmt.Errorf("failed to update reward: %w", err)
	}

	return &reward, nil
}

// DeleteReward hard-deletes a reward nothing references. Rewards with
// redemption history are deactivated instead so the history keeps its
// join target.
func (s *rewardService) DeleteReward(shop string, rewardID uint) error {
	var reward models.Reward
	err := s.DB.Where("shop = ? AND id = ?", shop, rewardID).First(&reward).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("reward %d not found", rewardID)
	}
	if err != nil {
		return fmt.Errorf("failed to fetch reward: %w", err)
	}

	var redemptionCount int64
	if err := s.DB.Model(&models.Redemption{}).
		Where("reward_id = ?", reward.ID).Count(&redemptionCount).Error; err != nil {
		return fmt.Errorf("failed to count redemptions: %w", err)
	}

	if redemptionCount > 0 {
		if err := s.DB.Model(&reward).Update("is_active", false).Error; err != nil {
			return fmt.Errorf("failed to deactivate reward: %w", err)
		}
		return nil
	}

	if err := s.DB.Unscoped().Delete(&reward).Error; err != nil {
		return fmt.Errorf("failed to delete reward: %w", err)
	}
	return nil
}
