package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/tably/tably/internal/couponprogram/domain"
	"github.com/tably/tably/pkg/db/option"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, program *domain.CouponProgram) error {
	return db.WithContext(ctx).Create(program).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.CouponProgram, error) {
	var p domain.CouponProgram
	err := db.WithContext(ctx).First(&p, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]domain.CouponProgram, error) {
	var items []domain.CouponProgram
	stmt := db.WithContext(ctx).Model(&domain.CouponProgram{})

	if filter.Status != nil {
		stmt = stmt.Where("status = ?", *filter.Status)
	}
	if filter.Mode != nil {
		stmt = stmt.Where("distribution_mode = ?", *filter.Mode)
	}
	if filter.Name != "" {
		stmt = stmt.Where("name = ?", filter.Name)
	}

	stmt = option.WithSortBy(option.WithQuerySortBy(filter.SortBy, filter.OrderBy, map[string]bool{
		"created_at": true,
		"updated_at": true,
		"name":       true,
	})).Apply(stmt)

	if err := stmt.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// Update replaces the operator-editable columns. issued_count is
// deliberately absent: only IncrementIssued moves it.
func (r *repo) Update(ctx context.Context, db *gorm.DB, program *domain.CouponProgram) error {
	if program == nil {
		return gorm.ErrInvalidData
	}
	return db.WithContext(ctx).Exec(
		`UPDATE coupon_programs
		 SET name = ?, status = ?, distribution_mode = ?, trigger_type = ?, promo_code = ?,
		     total_limit = ?, per_user_limit = ?, eligibility = ?, line_items = ?,
		     valid_from = ?, valid_to = ?, updated_at = ?
		 WHERE id = ?`,
		program.Name,
		program.Status,
		program.Mode,
		program.TriggerType,
		program.PromoCode,
		program.TotalLimit,
		program.PerUserLimit,
		program.Eligibility,
		program.LineItems,
		program.ValidFrom,
		program.ValidTo,
		program.UpdatedAt,
		program.ID,
	).Error
}

func (r *repo) IncrementIssued(ctx context.Context, db *gorm.DB, id snowflake.ID, n int, totalLimit *int) (bool, error) {
	now := time.Now().UTC()

	var result *gorm.DB
	if totalLimit != nil {
		result = db.WithContext(ctx).Exec(
			`UPDATE coupon_programs
			 SET issued_count = issued_count + ?, updated_at = ?
			 WHERE id = ? AND issued_count + ? <= ?`,
			n, now, id, n, *totalLimit,
		)
	} else {
		result = db.WithContext(ctx).Exec(
			`UPDATE coupon_programs
			 SET issued_count = issued_count + ?, updated_at = ?
			 WHERE id = ?`,
			n, now, id,
		)
	}
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
