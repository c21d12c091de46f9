package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Coupon is a concrete discount instance stamped out of a template at
// issuance time. The discount terms are copied in so later template edits
// never change coupons already in wallets.
type Coupon struct {
	ID   snowflake.ID `gorm:"primaryKey" json:"id"`
	Code string       `gorm:"type:text;not null;uniqueIndex" json:"code"`

	UserID     snowflake.ID `gorm:"index;not null" json:"user_id"`
	TemplateID snowflake.ID `gorm:"index;not null" json:"template_id"`
	ProgramID  snowflake.ID `gorm:"index;not null" json:"program_id"`

	AmountCents   int64          `gorm:"not null" json:"amount_cents"`
	MinSpendCents int64          `gorm:"not null;default:0" json:"min_spend_cents"`
	ItemIDs       datatypes.JSON `gorm:"column:item_ids" json:"item_ids,omitempty"`

	ValidFrom *time.Time `gorm:"column:valid_from" json:"valid_from,omitempty"`
	ValidTo   *time.Time `gorm:"column:valid_to" json:"valid_to,omitempty"`

	// Stacking is fixed at exclusive: one coupon per order.
	Stacking string `gorm:"type:text;not null;default:'exclusive'" json:"stacking"`
	Active   bool   `gorm:"not null;default:true" json:"active"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Coupon) TableName() string { return "coupons" }

type WalletStatus string

const (
	WalletStatusAvailable WalletStatus = "available"
	WalletStatusUsed      WalletStatus = "used"
	WalletStatusExpired   WalletStatus = "expired"
)

// UserCoupon is the wallet entry binding a coupon to its holder.
type UserCoupon struct {
	ID       snowflake.ID `gorm:"primaryKey" json:"id"`
	UserID   snowflake.ID `gorm:"index;not null" json:"user_id"`
	CouponID snowflake.ID `gorm:"uniqueIndex;not null" json:"coupon_id"`

	Status WalletStatus `gorm:"type:text;not null;default:'available'" json:"status"`
	UsedAt *time.Time   `gorm:"column:used_at" json:"used_at,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (UserCoupon) TableName() string { return "user_coupons" }
