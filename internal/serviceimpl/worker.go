package serviceimpl

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/lavivara/go-loyalty/models"
	"github.com/lavivara/go-loyalty/points"
	"github.com/lavivara/go-loyalty/service"
	"gorm.io/gorm"
)

type worker struct {
	DB              *gorm.DB
	SettingsService service.SettingsService
	Now             func() time.Time
}

func NewWorker(db *gorm.DB, settings service.SettingsService) *worker {
	return &worker{DB: db, SettingsService: settings, Now: time.Now}
}

// ExpireRedemptions flips pending redemptions past their expiry to
// expired. Points are not refunded; they were spent at redemption time.
func (w *worker) ExpireRedemptions() (int64, error) {
	result := w.DB.Model(&models.Redemption{}).
		Where("status = ? AND expires_at < ?", models.RedemptionPending, w.Now()).
		Update("status", models.RedemptionExpired)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to expire redemptions: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// ProcessSubscriptionMilestones awards the anniversary bonus to every
// active subscription that has hit a milestone month count. The ledger
// reference id encodes the subscription and the month count, so a sweep
// that runs twice in the same milestone month awards nothing the second
// time.
func (w *worker) ProcessSubscriptionMilestones() error {
	var subscriptions []models.Subscription
	if err := w.DB.Where("status = ?", models.SubscriptionActive).
		Find(&subscriptions).Error; err != nil {
		return fmt.Errorf("failed to fetch active subscriptions: %w", err)
	}

	now := w.Now()
	var errs []error

	for _, sub := range subscriptions {
		settings, err := w.SettingsService.GetSettings(sub.Shop)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		milestone := points.SubscriptionMilestone(sub.CreatedAt, now, settings)
		if !milestone.Eligible {
			continue
		}

		refID := fmt.Sprintf("%s:%d", sub.ShopifySubscriptionID, milestone.MonthsActive)

		// The duplicate check runs after lockMember so concurrent sweeps
		// serialize on the member row; the loser re-reads and sees the
		// winner's committed entry.
		err = w.DB.Transaction(func(tx *gorm.DB) error {
			if _, err := lockMember(tx, sub.Shop, sub.MemberID); err != nil {
				return err
			}
			var existing int64
			if err := tx.Model(&models.LedgerEntry{}).
				Where("reference_kind = ? AND reference_id = ?", models.RefSubscriptionMilestone, refID).
				Count(&existing).Error; err != nil {
				return fmt.Errorf("failed to check milestone ledger: %w", err)
			}
			if existing > 0 {
				return nil
			}
			desc := fmt.Sprintf("Subscription milestone: %d months", milestone.MonthsActive)
			return creditPoints(tx, sub.Shop, sub.MemberID, milestone.BonusPoints,
				models.ActionEarnMilestone, desc, models.RefSubscriptionMilestone, refID)
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to award milestone for subscription %d: %w", sub.ID, err))
		}
	}

	return errors.Join(errs...)
}

// StartScheduler runs the expiry sweep hourly and the milestone sweep
// daily until ctx is cancelled. Blocks.
func (w *worker) StartScheduler(ctx context.Context) error {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(time.Hour),
		gocron.NewTask(func() {
			if _, err := w.ExpireRedemptions(); err != nil {
				log.Printf("redemption expiry sweep failed: %v", err)
			}
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule expiry sweep: %w", err)
	}

	_, err = scheduler.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(3, 0, 0))),
		gocron.NewTask(func() {
			if err := w.ProcessSubscriptionMilestones(); err != nil {
				log.Printf("subscription milestone sweep failed: %v", err)
			}
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule milestone sweep: %w", err)
	}

	scheduler.Start()
	<-ctx.Done()
	return scheduler.Shutdown()
}
