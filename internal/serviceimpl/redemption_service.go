package serviceimpl

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lavivara/go-loyalty/models"
	"github.com/lavivara/go-loyalty/request"
	"github.com/lavivara/go-loyalty/response"
	"github.com/lavivara/go-loyalty/service"
	"github.com/lavivara/go-loyalty/utils"
	"gorm.io/gorm"
)

const (
	discountCodePrefix    = "LVVIP-"
	redemptionValidityDur = 30 * 24 * time.Hour
	issuerTimeout         = 10 * time.Second
)

// Customer-facing rejection messages. The storefront renders these
// verbatim, in French.
const (
	msgRewardUnavailable  = "Cette récompense n'est plus disponible."
	msgInsufficientPoints = "Points insuffisants. Vous avez %d pts, il en faut %d."
	msgTierRequired       = "Niveau %s requis pour cette récompense."
	msgOutOfStock         = "Cette récompense est en rupture de stock."
	msgMemberNotFound     = "Membre introuvable."
	msgRewardNotFound     = "Récompense introuvable."
)

type redemptionService struct {
	DB     *gorm.DB
	Issuer service.DiscountIssuer
}

func NewRedemptionService(db *gorm.DB, issuer service.DiscountIssuer) *redemptionService {
	return &redemptionService{DB: db, Issuer: issuer}
}

// Redeem exchanges points for a reward. Checks run in order: reward
// active, balance, tier, stock. The external discount code is created
// before any points move, so an issuer failure leaves the balance
// untouched; the debit itself is guarded so a concurrent redemption can
// never push the balance negative.
func (s *redemptionService) Redeem(shop string, memberID, rewardID uint) (*response.RedemptionResult, error) {
	var member models.Member
	err := s.DB.Where("shop = ? AND id = ?", shop, memberID).First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &response.RedemptionResult{Error: msgMemberNotFound}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch member: %w", err)
	}

	var reward models.Reward
	err = s.DB.Where("shop = ? AND id = ?", shop, rewardID).First(&reward).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &response.RedemptionResult{Error: msgRewardNotFound}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch reward: %w", err)
	}

	if !reward.IsActive {
		return &response.RedemptionResult{Error: msgRewardUnavailable}, nil
	}
	if member.PointsBalance < reward.PointsCost {
		return &response.RedemptionResult{
			Error: fmt.Sprintf(msgInsufficientPoints, member.PointsBalance, reward.PointsCost),
		}, nil
	}
	if reward.TierRequired != nil && models.TierRank(member.Tier) < models.TierRank(*reward.TierRequired) {
		return &response.RedemptionResult{
			Error: fmt.Sprintf(msgTierRequired, models.TierLabel(*reward.TierRequired)),
		}, nil
	}
	if reward.StockLimited && (reward.StockCount == nil || *reward.StockCount <= 0) {
		return &response.RedemptionResult{Error: msgOutOfStock}, nil
	}

	code, err := utils.CreateCode(discountCodePrefix, 8)
	if err != nil {
		return nil, err
	}

	if s.Issuer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), issuerTimeout)
		defer cancel()
		if err := s.Issuer.CreateDiscountCode(ctx, reward, code); err != nil {
			return nil, fmt.Errorf("failed to create discount code: %w", err)
		}
	}

	result := &response.RedemptionResult{}

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		if _, err := lockMember(tx, shop, member.ID); err != nil {
			return err
		}

		debit := tx.Model(&models.Member{}).
			Where("id = ? AND points_balance >= ?", member.ID, reward.PointsCost).
			Update("points_balance", gorm.Expr("points_balance - ?", reward.PointsCost))
		if debit.Error != nil {
			return fmt.Errorf("failed to debit points: %w", debit.Error)
		}
		if debit.RowsAffected == 0 {
			result.Error = fmt.Sprintf(msgInsufficientPoints, member.PointsBalance, reward.PointsCost)
			return nil
		}

		if reward.StockLimited {
			stock := tx.Model(&models.Reward{}).
				Where("id = ? AND stock_count > 0", reward.ID).
				Update("stock_count", gorm.Expr("stock_count - 1"))
			if stock.Error != nil {
				return fmt.Errorf("failed to decrement stock: %w", stock.Error)
			}
			if stock.RowsAffected == 0 {
				result.Error = msgOutOfStock
				return errRollback
			}
		}

		name := reward.Name
		if reward.NameFR != nil {
			name = *reward.NameFR
		}
		entry := models.LedgerEntry{
			Shop:          shop,
			MemberID:      member.ID,
			Points:        -reward.PointsCost,
			Action:        models.ActionRedeem,
			Description:   fmt.Sprintf("Redeemed: %s", name),
			ReferenceKind: models.RefRedemption,
			ReferenceID:   code,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return fmt.Errorf("failed to create ledger entry: %w", err)
		}

		redemption := models.Redemption{
			Shop:         shop,
			MemberID:     member.ID,
			RewardID:     reward.ID,
			PointsSpent:  reward.PointsCost,
			Status:       models.RedemptionPending,
			DiscountCode: code,
			ExpiresAt:    time.Now().Add(redemptionValidityDur),
		}
		if err := tx.Create(&redemption).Error; err != nil {
			return fmt.Errorf("failed to create redemption: %w", err)
		}

		result.Success = true
		result.RedemptionID = redemption.ID
		result.DiscountCode = code
		result.PointsSpent = reward.PointsCost
		return nil
	})
	if errors.Is(err, errRollback) {
		return result, nil
	}
	if err != nil {
		return nil, err
	}

	return result, nil
}

// errRollback aborts a transaction whose outcome is a business rejection
// rather than a failure.
var errRollback = errors.New("rollback")

func (s *redemptionService) GetRedemptions(req request.GetRedemptionRequest) ([]models.Redemption, int64, error) {
	var redemptions []models.Redemption
	var count int64

	query := s.DB.Model(&models.Redemption{})
	query = request.ApplyGetRedemptionRequest(req, query)

	if err := query.Count(&count).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count redemptions: %w", err)
	}

	query = request.ApplyPaginationConditions(query, req.PaginationConditions)

	if err := query.Preload("Reward").Find(&redemptions).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch redemptions: %w", err)
	}

	return redemptions, count, nil
}
