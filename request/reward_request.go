package request

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CreateRewardRequest struct {
	Name          string           `json:"name" binding:"required"`
	NameFR        *string          `json:"nameFR"`
	Description   *string          `json:"description"`
	DescriptionFR *string          `json:"descriptionFR"`
	Type          string           `json:"type" binding:"required"`
	PointsCost    int64            `json:"pointsCost" binding:"required"`
	DiscountValue *decimal.Decimal `json:"discountValue"`
	DiscountType  *string          `json:"discountType"`
	TierRequired  *string          `json:"tierRequired"`
	Brand         *string          `json:"brand"`
	StockLimited  bool             `json:"stockLimited"`
	StockCount    *int64           `json:"stockCount"`
	SortOrder     int              `json:"sortOrder"`
}

type UpdateRewardRequest struct {
	Name          *string          `json:"name"`
	NameFR        *string          `json:"nameFR"`
	Description   *string          `json:"description"`
	DescriptionFR *string          `json:"descriptionFR"`
	PointsCost    *int64           `json:"pointsCost"`
	DiscountValue *decimal.Decimal `json:"discountValue"`
	DiscountType  *string          `json:"discountType"`
	TierRequired  *string          `json:"tierRequired"`
	IsActive      *bool            `json:"isActive"`
	StockLimited  *bool            `json:"stockLimited"`
	StockCount    *int64           `json:"stockCount"`
	SortOrder     *int             `json:"sortOrder"`
}

type GetRewardRequest struct {
	Shops                []string             `form:"shops"`
	ID                   *uint                `form:"id"`
	Type                 *string              `form:"type"`
	IsActive             *bool                `form:"isActive"`
	TierAvailable        *string              `form:"tierAvailable"` // rewards redeemable at this tier
	MaxPointsCost        *int64               `form:"maxPointsCost"`
	PaginationConditions PaginationConditions `form:"paginationConditions"`
}

func ApplyGetRewardRequest(req GetRewardRequest, query *gorm.DB) *gorm.DB {
	if len(req.Shops) > 0 {
		query = query.Where("shop IN (?)", req.Shops)
	}
	if req.ID != nil {
		query = query.Where("id = ?", *req.ID)
	}
	if req.Type != nil {
		query = query.Where("type = ?", *req.Type)
	}
	if req.IsActive != nil {
		query = query.Where("is_active = ?", *req.IsActive)
	}
	if req.MaxPointsCost != nil {
		query = query.Where("points_cost <= ?", *req.MaxPointsCost)
	}
	return query
}
