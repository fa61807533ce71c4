package serviceimpl

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/lavivara/go-loyalty/models"
	"github.com/lavivara/go-loyalty/request"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const settingsCacheTTL = 60 * time.Second

var defaultTierThresholds = models.TierThresholds{
	Club:     1000,
	ClubPlus: 5000,
}

var defaultTierConfig = models.TierConfig{
	Lite:     models.TierBenefits{Multiplier: 1.5, Academy: "basic"},
	Club:     models.TierBenefits{Multiplier: 2.0, Academy: "full"},
	ClubPlus: models.TierBenefits{Multiplier: 3.5, Academy: "premium"},
}

type cachedSettings struct {
	settings  models.ShopSettings
	fetchedAt time.Time
}

// settingsService owns the process-wide settings cache. One instance is
// constructed per process and injected into everything that reads settings.
type settingsService struct {
	DB  *gorm.DB
	TTL time.Duration

	mu    sync.Mutex
	cache map[string]cachedSettings
}

func NewSettingsService(db *gorm.DB) *settingsService {
	return NewSettingsServiceWithTTL(db, settingsCacheTTL)
}

func NewSettingsServiceWithTTL(db *gorm.DB, ttl time.Duration) *settingsService {
	return &settingsService{
		DB:    db,
		TTL:   ttl,
		cache: make(map[string]cachedSettings),
	}
}

// GetSettings returns the cached snapshot when fresh, otherwise fetches from
// storage, creating shop defaults on first access. The returned value is a
// copy; callers hold it for the duration of one event.
func (s *settingsService) GetSettings(shop string) (models.ShopSettings, error) {
	s.mu.Lock()
	if cached, ok := s.cache[shop]; ok && time.Since(cached.fetchedAt) < s.TTL {
		s.mu.Unlock()
		return cached.settings, nil
	}
	s.mu.Unlock()

	var settings models.ShopSettings
	err := s.DB.Where("shop = ?", shop).First(&settings).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		settings = defaultSettings(shop)
		if err := s.DB.Create(&settings).Error; err != nil {
			// Lost a create race with another worker; re-fetch.
			if !isUniqueConstraintError(err) {
				return models.ShopSettings{}, fmt.Errorf("failed to create default settings for %s: %w", shop, err)
			}
			if err := s.DB.Where("shop = ?", shop).First(&settings).Error; err != nil {
				return models.ShopSettings{}, fmt.Errorf("failed to fetch settings for %s: %w", shop, err)
			}
		}
	} else if err != nil {
		return models.ShopSettings{}, fmt.Errorf("failed to fetch settings for %s: %w", shop, err)
	}

	s.mu.Lock()
	s.cache[shop] = cachedSettings{settings: settings, fetchedAt: time.Now()}
	s.mu.Unlock()

	return settings, nil
}

// UpdateSettings merges the partial update into the stored row and
// invalidates the cache so the next read re-fetches.
func (s *settingsService) UpdateSettings(shop string, req request.UpdateSettingsRequest) (models.ShopSettings, error) {
	// Ensure the row exists before merging.
	if _, err := s.GetSettings(shop); err != nil {
		return models.ShopSettings{}, err
	}

	var settings models.ShopSettings
	if err := s.DB.Where("shop = ?", shop).First(&settings).Error; err != nil {
		return models.ShopSettings{}, fmt.Errorf("failed to fetch settings for %s: %w", shop, err)
	}

	applySettingsUpdate(&settings, req)

	if err := s.DB.Save(&settings).Error; err != nil {
		return models.ShopSettings{}, fmt.Errorf("failed to save settings for %s: %w", shop, err)
	}

	s.Invalidate(shop)
	return s.GetSettings(shop)
}

func (s *settingsService) Invalidate(shop string) {
	s.mu.Lock()
	delete(s.cache, shop)
	s.mu.Unlock()
}

func defaultSettings(shop string) models.ShopSettings {
	return models.ShopSettings{
		Shop:                        shop,
		LoyaltyEnabled:              true,
		RegularPointsPerDollar:      decimal.NewFromInt(1),
		SubscriptionPointsPerDollar: decimal.NewFromInt(2),
		WelcomeBonus:                100,
		SubscriptionBonus:           50,
		RenewalBonus:                50,
		ReactivationBonus:           100,
		SubscriptionMilestoneMonths: 3,
		SubscriptionMilestoneBonus:  500,
		BirthdayEnabled:             true,
		BirthdayPoints:              250,
		BirthdayWindowDays:          7,
		ReferralEnabled:             true,
		ReferrerRewardPoints:        500,
		RefereeRewardPoints:         250,
		ReferralMinPurchase:         decimal.Zero,
		TierThresholds:              defaultTierThresholds,
		TierConfig:                  defaultTierConfig,
	}
}

func applySettingsUpdate(settings *models.ShopSettings, req request.UpdateSettingsRequest) {
	if req.LoyaltyEnabled != nil {
		settings.LoyaltyEnabled = *req.LoyaltyEnabled
	}
	if req.RegularPointsPerDollar != nil {
		settings.RegularPointsPerDollar = *req.RegularPointsPerDollar
	}
	if req.SubscriptionPointsPerDollar != nil {
		settings.SubscriptionPointsPerDollar = *req.SubscriptionPointsPerDollar
	}
	if req.WelcomeBonus != nil {
		settings.WelcomeBonus = *req.WelcomeBonus
	}
	if req.SubscriptionBonus != nil {
		settings.SubscriptionBonus = *req.SubscriptionBonus
	}
	if req.RenewalBonus != nil {
		settings.RenewalBonus = *req.RenewalBonus
	}
	if req.ReactivationBonus != nil {
		settings.ReactivationBonus = *req.ReactivationBonus
	}
	if req.SubscriptionMilestoneMonths != nil {
		settings.SubscriptionMilestoneMonths = *req.SubscriptionMilestoneMonths
	}
	if req.SubscriptionMilestoneBonus != nil {
		settings.SubscriptionMilestoneBonus = *req.SubscriptionMilestoneBonus
	}
	if req.BirthdayEnabled != nil {
		settings.BirthdayEnabled = *req.BirthdayEnabled
	}
	if req.BirthdayPoints != nil {
		settings.BirthdayPoints = *req.BirthdayPoints
	}
	if req.BirthdayWindowDays != nil {
		settings.BirthdayWindowDays = *req.BirthdayWindowDays
	}
	if req.ReferralEnabled != nil {
		settings.ReferralEnabled = *req.ReferralEnabled
	}
	if req.ReferrerRewardPoints != nil {
		settings.ReferrerRewardPoints = *req.ReferrerRewardPoints
	}
	if req.RefereeRewardPoints != nil {
		settings.RefereeRewardPoints = *req.RefereeRewardPoints
	}
	if req.ReferralMinPurchase != nil {
		settings.ReferralMinPurchase = *req.ReferralMinPurchase
	}
	if req.TierThresholds != nil {
		settings.TierThresholds = *req.TierThresholds
	}
	if req.TierConfig != nil {
		settings.TierConfig = *req.TierConfig
	}
}
