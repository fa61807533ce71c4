package request

import "gorm.io/gorm"

type RedeemRequest struct {
	MemberID uint `json:"memberId" binding:"required"`
	RewardID uint `json:"rewardId" binding:"required"`
}

type GetRedemptionRequest struct {
	Shops                []string             `form:"shops"`
	MemberID             *uint                `form:"memberID"`
	RewardID             *uint                `form:"rewardID"`
	Statuses             []string             `form:"statuses"`
	DiscountCode         *string              `form:"discountCode"`
	PaginationConditions PaginationConditions `form:"paginationConditions"`
}

func ApplyGetRedemptionRequest(req GetRedemptionRequest, query *gorm.DB) *gorm.DB {
	if len(req.Shops) > 0 {
		query = query.Where("shop IN (?)", req.Shops)
	}
	if req.MemberID != nil {
		query = query.Where("member_id = ?", *req.MemberID)
	}
	if req.RewardID != nil {
		query = query.Where("reward_id = ?", *req.RewardID)
	}
	if len(req.Statuses) > 0 {
		query = query.Where("status IN (?)", req.Statuses)
	}
	if req.DiscountCode != nil {
		query = query.Where("discount_code = ?", *req.DiscountCode)
	}
	return query
}
