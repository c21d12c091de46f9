package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// IssuanceReceipt records one completed issuance commit. The unique
// idempotency key makes retried requests collide with the original
// commit instead of issuing twice.
type IssuanceReceipt struct {
	ID             snowflake.ID `gorm:"primaryKey" json:"id"`
	ProgramID      snowflake.ID `gorm:"index;not null" json:"program_id"`
	UserID         snowflake.ID `gorm:"index;not null" json:"user_id"`
	IdempotencyKey string       `gorm:"type:text;not null;uniqueIndex" json:"idempotency_key"`
	IssuedCount    int          `gorm:"not null" json:"issued_count"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (IssuanceReceipt) TableName() string { return "issuance_receipts" }
