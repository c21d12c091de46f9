package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/tably/tably/internal/coupontemplate/domain"
	"github.com/tably/tably/pkg/db/option"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, template *domain.CouponTemplate) error {
	return db.WithContext(ctx).Create(template).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.CouponTemplate, error) {
	var t domain.CouponTemplate
	err := db.WithContext(ctx).First(&t, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

func (r *repo) ListByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) ([]domain.CouponTemplate, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var items []domain.CouponTemplate
	err := db.WithContext(ctx).Where("id IN ?", ids).Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]domain.CouponTemplate, error) {
	var items []domain.CouponTemplate
	stmt := db.WithContext(ctx).Model(&domain.CouponTemplate{})

	if filter.Status != nil {
		stmt = stmt.Where("status = ?", *filter.Status)
	}
	if filter.Title != "" {
		stmt = stmt.Where("title = ?", filter.Title)
	}

	stmt = option.WithSortBy(option.WithQuerySortBy(filter.SortBy, filter.OrderBy, map[string]bool{
		"created_at": true,
		"updated_at": true,
		"title":      true,
	})).Apply(stmt)

	if err := stmt.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, template *domain.CouponTemplate) error {
	if template == nil {
		return gorm.ErrInvalidData
	}
	return db.WithContext(ctx).Exec(
		`UPDATE coupon_templates
		 SET title = ?, status = ?, valid_from = ?, valid_to = ?, use_rule = ?, issue_policy = ?, updated_at = ?
		 WHERE id = ?`,
		template.Title,
		template.Status,
		template.ValidFrom,
		template.ValidTo,
		template.UseRule,
		template.IssuePolicy,
		template.UpdatedAt,
		template.ID,
	).Error
}
