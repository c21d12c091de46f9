package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type ListFilter struct {
	Status  *TemplateStatus
	Title   string
	SortBy  string
	OrderBy string
}

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, template *CouponTemplate) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*CouponTemplate, error)
	ListByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) ([]CouponTemplate, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]CouponTemplate, error)
	Update(ctx context.Context, db *gorm.DB, template *CouponTemplate) error
}
