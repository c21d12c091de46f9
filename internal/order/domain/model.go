package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Order carries the lifecycle state plus the priced totals frozen at
// checkout. Items are stored as a JSON document; the engine treats them
// as opaque once the order exists.
type Order struct {
	ID     snowflake.ID `gorm:"primaryKey" json:"id"`
	UserID snowflake.ID `gorm:"index;not null" json:"user_id"`
	Status OrderStatus  `gorm:"type:text;not null;default:'pending'" json:"status"`

	SubtotalCents int64 `gorm:"not null" json:"subtotal_cents"`
	DiscountCents int64 `gorm:"not null;default:0" json:"discount_cents"`
	TotalCents    int64 `gorm:"not null" json:"total_cents"`

	CouponID *snowflake.ID  `gorm:"column:coupon_id" json:"coupon_id,omitempty"`
	Items    datatypes.JSON `gorm:"column:items" json:"items,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Order) TableName() string { return "orders" }

type AmendmentType string

const (
	AmendmentRefund    AmendmentType = "refund"
	AmendmentSurcharge AmendmentType = "surcharge"
)

// OrderAmendment is a post-payment money adjustment. Amendments never
// rewrite the order's stored totals; they are an append-only ledger on
// top of them.
type OrderAmendment struct {
	ID      snowflake.ID  `gorm:"primaryKey" json:"id"`
	OrderID snowflake.ID  `gorm:"index;not null" json:"order_id"`
	Type    AmendmentType `gorm:"type:text;not null" json:"type"`

	AmountCents int64  `gorm:"not null" json:"amount_cents"`
	Reason      string `gorm:"type:text" json:"reason,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (OrderAmendment) TableName() string { return "order_amendments" }

func ValidAmendmentType(t AmendmentType) bool {
	return t == AmendmentRefund || t == AmendmentSurcharge
}
