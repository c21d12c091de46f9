package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// WalletEntry is the wallet row joined with its coupon for read paths.
type WalletEntry struct {
	Wallet UserCoupon
	Coupon Coupon
}

type WalletFilter struct {
	UserID snowflake.ID
	Status *WalletStatus

	// CreatedBefore is the cursor bound for keyset pagination over the
	// created_at DESC ordering.
	CreatedBefore *time.Time
	Limit         int
}

type Repository interface {
	// CreateBatch inserts coupons and their wallet rows together. Callers
	// run it inside the issuance transaction.
	CreateBatch(ctx context.Context, db *gorm.DB, coupons []Coupon, wallets []UserCoupon) error

	ListWallet(ctx context.Context, db *gorm.DB, filter WalletFilter) ([]WalletEntry, error)

	// CountByProgramAndUser counts how many coupons a program has already
	// issued to one user, for per-user limit checks.
	CountByProgramAndUser(ctx context.Context, db *gorm.DB, programID, userID snowflake.ID) (int64, error)

	// MarkExpired flips available wallet rows whose coupon window has
	// closed to expired. Returns the number of rows moved.
	MarkExpired(ctx context.Context, db *gorm.DB, now time.Time) (int64, error)
}
