package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/tably/tably/internal/coupon/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) CreateBatch(ctx context.Context, db *gorm.DB, coupons []domain.Coupon, wallets []domain.UserCoupon) error {
	if len(coupons) > 0 {
		if err := db.WithContext(ctx).Create(&coupons).Error; err != nil {
			return err
		}
	}
	if len(wallets) > 0 {
		if err := db.WithContext(ctx).Create(&wallets).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r *repo) ListWallet(ctx context.Context, db *gorm.DB, filter domain.WalletFilter) ([]domain.WalletEntry, error) {
	var wallets []domain.UserCoupon
	stmt := db.WithContext(ctx).
		Where("user_id = ?", filter.UserID).
		Order("created_at DESC")
	if filter.Status != nil {
		stmt = stmt.Where("status = ?", *filter.Status)
	}
	if filter.CreatedBefore != nil {
		stmt = stmt.Where("created_at < ?", *filter.CreatedBefore)
	}
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit)
	}
	if err := stmt.Find(&wallets).Error; err != nil {
		return nil, err
	}
	if len(wallets) == 0 {
		return nil, nil
	}

	couponIDs := make([]snowflake.ID, 0, len(wallets))
	for _, w := range wallets {
		couponIDs = append(couponIDs, w.CouponID)
	}

	var coupons []domain.Coupon
	if err := db.WithContext(ctx).Where("id IN ?", couponIDs).Find(&coupons).Error; err != nil {
		return nil, err
	}
	byID := make(map[snowflake.ID]domain.Coupon, len(coupons))
	for _, c := range coupons {
		byID[c.ID] = c
	}

	entries := make([]domain.WalletEntry, 0, len(wallets))
	for _, w := range wallets {
		c, ok := byID[w.CouponID]
		if !ok {
			continue
		}
		entries = append(entries, domain.WalletEntry{Wallet: w, Coupon: c})
	}
	return entries, nil
}

func (r *repo) CountByProgramAndUser(ctx context.Context, db *gorm.DB, programID, userID snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.Coupon{}).
		Where("program_id = ? AND user_id = ?", programID, userID).
		Count(&count).Error
	return count, err
}

func (r *repo) MarkExpired(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE user_coupons
		 SET status = 'expired', updated_at = ?
		 WHERE status = 'available'
		   AND coupon_id IN (SELECT id FROM coupons WHERE valid_to IS NOT NULL AND valid_to < ?)`,
		now, now,
	)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
