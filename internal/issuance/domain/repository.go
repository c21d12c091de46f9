package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	FindReceiptByKey(ctx context.Context, db *gorm.DB, key string) (*IssuanceReceipt, error)
	CreateReceipt(ctx context.Context, db *gorm.DB, receipt *IssuanceReceipt) error
}
