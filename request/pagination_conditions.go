package request

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

type PaginationConditions struct {
	Limit         *int       `form:"limit"`
	Offset        *int       `form:"offset"`
	SortBy        *string    `form:"sortBy"`
	Order         *string    `form:"order"` // ASC or DESC
	GreaterThanID *uint      `form:"greaterThanID"`
	LessThanID    *uint      `form:"lessThanID"`
	CreatedAfter  *time.Time `form:"createdAfter"`
	CreatedBefore *time.Time `form:"createdBefore"`
}

func ApplyPaginationConditions(query *gorm.DB, conditions PaginationConditions) *gorm.DB {
	if conditions.Offset != nil && *conditions.Offset > 0 {
		query = query.Offset(*conditions.Offset)
	}

	if conditions.GreaterThanID != nil {
		query = query.Where("id > ?", *conditions.GreaterThanID)
	}
	if conditions.LessThanID != nil {
		query = query.Where("id < ?", *conditions.LessThanID)
	}

	if conditions.CreatedAfter != nil {
		query = query.Where("created_at > ?", *conditions.CreatedAfter)
	}
	if conditions.CreatedBefore != nil {
		query = query.Where("created_at < ?", *conditions.CreatedBefore)
	}

	if conditions.SortBy != nil {
		order := "ASC"
		if conditions.Order != nil {
			order = *conditions.Order
		}
		query = query.Order(fmt.Sprintf("%s %s", *conditions.SortBy, order))
	}

	if conditions.Limit != nil && *conditions.Limit > 0 {
		query = query.Limit(*conditions.Limit)
	}

	return query
}
