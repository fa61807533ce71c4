package serviceimpl_test

import (
	"sync"
	"testing"
	"time"

	"github.com/lavivara/go-loyalty/internal/serviceimpl"
	"github.com/lavivara/go-loyalty/models"
	"github.com/lavivara/go-loyalty/service"
	"github.com/stretchr/testify/assert"
)

func workerAt(now time.Time) service.Worker {
	w := serviceimpl.NewWorker(db, loyaltyService.Settings)
	w.Now = func() time.Time { return now }
	return w
}

func TestExpireRedemptions(t *testing.T) {
	shop := "worker-expiry.myshopify.com"
	member := createMember(t, shop, "expirer@example.com")
	seedPoints(t, member, 1000)
	reward := createReward(t, shop, discountReward("fleeting", 200))

	overdue, err := loyaltyService.Redemptions.Redeem(shop, member.ID, reward.ID)
	assert.NoError(t, err)
	assert.True(t, overdue.Success)
	current, err := loyaltyService.Redemptions.Redeem(shop, member.ID, reward.ID)
	assert.NoError(t, err)
	assert.True(t, current.Success)

	// Backdate the first redemption past its validity.
	err = db.Model(&models.Redemption{}).Where("id = ?", overdue.RedemptionID).
		Update("expires_at", time.Now().Add(-time.Hour)).Error
	assert.NoError(t, err)

	count, err := loyaltyService.Worker.ExpireRedemptions()
	assert.NoError(t, err)
	assert.GreaterOrEqual(t, count, int64(1))

	var first, second models.Redemption
	assert.NoError(t, db.First(&first, overdue.RedemptionID).Error)
	assert.NoError(t, db.First(&second, current.RedemptionID).Error)
	assert.Equal(t, models.RedemptionExpired, first.Status)
	assert.Equal(t, models.RedemptionPending, second.Status)

	// Expiry never refunds; the points stay spent.
	assert.Equal(t, int64(600), getMember(t, member.ID).PointsBalance)
}

func TestProcessSubscriptionMilestones(t *testing.T) {
	shop := "worker-milestone.myshopify.com"
	member := createMember(t, shop, "loyal@example.com")

	sub := models.Subscription{
		Shop:                  shop,
		MemberID:              member.ID,
		ShopifySubscriptionID: "gid://shopify/SubscriptionContract/milestone-1",
		Status:                models.SubscriptionActive,
	}
	assert.NoError(t, db.Create(&sub).Error)

	// Three calendar months after the subscription started.
	w := workerAt(sub.CreatedAt.AddDate(0, 3, 0))
	assert.NoError(t, w.ProcessSubscriptionMilestones())

	updated := getMember(t, member.ID)
	assert.Equal(t, int64(500), updated.PointsBalance)

	var entry models.LedgerEntry
	err := db.Where("member_id = ? AND reference_kind = ?", member.ID, models.RefSubscriptionMilestone).
		First(&entry).Error
	assert.NoError(t, err)
	assert.Equal(t, "gid://shopify/SubscriptionContract/milestone-1:3", entry.ReferenceID)

	// Re-running the sweep in the same milestone month awards nothing.
	assert.NoError(t, w.ProcessSubscriptionMilestones())
	assert.Equal(t, int64(500), getMember(t, member.ID).PointsBalance)

	// The next milestone, three months later, pays again.
	w = workerAt(sub.CreatedAt.AddDate(0, 6, 0))
	assert.NoError(t, w.ProcessSubscriptionMilestones())
	assert.Equal(t, int64(1000), getMember(t, member.ID).PointsBalance)
}

func TestMilestoneConcurrentSweeps(t *testing.T) {
	shop := "worker-race.myshopify.com"
	member := createMember(t, shop, "swept@example.com")

	sub := models.Subscription{
		Shop:                  shop,
		MemberID:              member.ID,
		ShopifySubscriptionID: "gid://shopify/SubscriptionContract/race-1",
		Status:                models.SubscriptionActive,
	}
	assert.NoError(t, db.Create(&sub).Error)

	// Two sweeps over the same milestone month, as two replicas would run.
	w := workerAt(sub.CreatedAt.AddDate(0, 3, 0))
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = w.ProcessSubscriptionMilestones()
		}(i)
	}
	wg.Wait()
	assert.NoError(t, errs[0])
	assert.NoError(t, errs[1])

	assert.Equal(t, int64(500), getMember(t, member.ID).PointsBalance, "the bonus is paid exactly once")

	var count int64
	err := db.Model(&models.LedgerEntry{}).
		Where("member_id = ? AND reference_kind = ?", member.ID, models.RefSubscriptionMilestone).
		Count(&count).Error
	assert.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestMilestoneSkipsOffMonths(t *testing.T) {
	shop := "worker-offmonth.myshopify.com"
	member := createMember(t, shop, "early@example.com")

	sub := models.Subscription{
		Shop:                  shop,
		MemberID:              member.ID,
		ShopifySubscriptionID: "gid://shopify/SubscriptionContract/offmonth-1",
		Status:                models.SubscriptionActive,
	}
	assert.NoError(t, db.Create(&sub).Error)

	w := workerAt(sub.CreatedAt.AddDate(0, 2, 0))
	assert.NoError(t, w.ProcessSubscriptionMilestones())
	assert.Equal(t, int64(0), getMember(t, member.ID).PointsBalance)

	// Cancelled subscriptions never hit milestones.
	assert.NoError(t, db.Model(&sub).Update("status", models.SubscriptionCancelled).Error)
	w = workerAt(sub.CreatedAt.AddDate(0, 3, 0))
	assert.NoError(t, w.ProcessSubscriptionMilestones())
	assert.Equal(t, int64(0), getMember(t, member.ID).PointsBalance)
}
