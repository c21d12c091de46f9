package repository

import (
	"context"
	"errors"

	"github.com/tably/tably/internal/issuance/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindReceiptByKey(ctx context.Context, db *gorm.DB, key string) (*domain.IssuanceReceipt, error) {
	var receipt domain.IssuanceReceipt
	err := db.WithContext(ctx).First(&receipt, "idempotency_key = ?", key).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &receipt, nil
}

func (r *repo) CreateReceipt(ctx context.Context, db *gorm.DB, receipt *domain.IssuanceReceipt) error {
	return db.WithContext(ctx).Create(receipt).Error
}
