package serviceimpl

import (
	"errors"
	"fmt"

	"github.com/lavivara/go-loyalty/models"
	"gorm.io/gorm"
)

type subscriptionService struct {
	DB *gorm.DB
}

func NewSubscriptionService(db *gorm.DB) *subscriptionService {
	return &subscriptionService{DB: db}
}

func (s *subscriptionService) GetByShopifyID(shopifySubscriptionID string) (*models.Subscription, error) {
	var subscription models.Subscription
	err := s.DB.Where("shopify_subscription_id = ?", shopifySubscriptionID).First(&subscription).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch subscription: %w", err)
	}
	return &subscription, nil
}

func (s *subscriptionService) CountActiveForMember(memberID uint, excludeID *uint) (int64, error) {
	query := s.DB.Model(&models.Subscription{}).
		Where("member_id = ? AND status = ?", memberID, models.SubscriptionActive)
	if excludeID != nil {
		query = query.Where("id <> ?", *excludeID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count subscriptions: %w", err)
	}
	return count, nil
}
