package request

import "gorm.io/gorm"

type CreateMemberRequest struct {
	Email             string  `json:"email" binding:"required"`
	FirstName         *string `json:"firstName"`
	LastName          *string `json:"lastName"`
	ShopifyCustomerID *string `json:"shopifyCustomerID"`
	Tier              *string `json:"tier"` // defaults to LITE
}

type UpdateBirthdayRequest struct {
	Month int `json:"month" binding:"required"`
	Day   int `json:"day" binding:"required"`
}

type GetMemberRequest struct {
	Shops                []string             `form:"shops"`
	ID                   *uint                `form:"id"`
	Email                *string              `form:"email"`
	ShopifyCustomerID    *string              `form:"shopifyCustomerID"`
	Tier                 *string              `form:"tier"`
	ReferralCode         *string              `form:"referralCode"`
	ReferredByMemberID   *uint                `form:"referredByMemberID"`
	IsReferred           *bool                `form:"isReferred"`
	MinLifetimePoints    *int64               `form:"minLifetimePoints"`
	PaginationConditions PaginationConditions `form:"paginationConditions"`
}

func ApplyGetMemberRequest(req GetMemberRequest, query *gorm.DB) *gorm.DB {
	if len(req.Shops) > 0 {
		query = query.Where("loyalty_members.shop IN (?)", req.Shops)
	}
	if req.ID != nil {
		query = query.Where("loyalty_members.id = ?", *req.ID)
	}
	if req.Email != nil {
		query = query.Where("loyalty_members.email = ?", *req.Email)
	}
	if req.ShopifyCustomerID != nil {
		query = query.Where("loyalty_members.shopify_customer_id = ?", *req.ShopifyCustomerID)
	}
	if req.Tier != nil {
		query = query.Where("loyalty_members.tier = ?", *req.Tier)
	}
	if req.ReferralCode != nil {
		query = query.Where("loyalty_members.referral_code = ?", *req.ReferralCode)
	}
	if req.ReferredByMemberID != nil {
		query = query.Where("loyalty_members.referred_by_member_id = ?", *req.ReferredByMemberID)
	}
	if req.IsReferred != nil {
		if *req.IsReferred {
			query = query.Where("loyalty_members.referred_by_member_id IS NOT NULL")
		} else {
			query = query.Where("loyalty_members.referred_by_member_id IS NULL")
		}
	}
	if req.MinLifetimePoints != nil {
		query = query.Where("loyalty_members.lifetime_points >= ?", *req.MinLifetimePoints)
	}
	return query
}
