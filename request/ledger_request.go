package request

import "gorm.io/gorm"

type GetLedgerRequest struct {
	Shops                []string             `form:"shops"`
	MemberID             *uint                `form:"memberID"`
	Actions              []string             `form:"actions"`
	ReferenceKind        *string              `form:"referenceKind"`
	ReferenceID          *string              `form:"referenceID"`
	PaginationConditions PaginationConditions `form:"paginationConditions"`
}

func ApplyGetLedgerRequest(req GetLedgerRequest, query *gorm.DB) *gorm.DB {
	if len(req.Shops) > 0 {
		query = query.Where("shop IN (?)", req.Shops)
	}
	if req.MemberID != nil {
		query = query.Where("member_id = ?", *req.MemberID)
	}
	if len(req.Actions) > 0 {
		query = query.Where("action IN (?)", req.Actions)
	}
	if req.ReferenceKind != nil {
		query = query.Where("reference_kind = ?", *req.ReferenceKind)
	}
	if req.ReferenceID != nil {
		query = query.Where("reference_id = ?", *req.ReferenceID)
	}
	return query
}
