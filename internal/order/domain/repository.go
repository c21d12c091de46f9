package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, order *Order) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Order, error)
	ListByUser(ctx context.Context, db *gorm.DB, userID snowflake.ID, limit int) ([]Order, error)

	// UpdateStatusCAS moves status from one exact value to another. A
	// false return means the row was not in the expected from state.
	UpdateStatusCAS(ctx context.Context, db *gorm.DB, id snowflake.ID, from, to OrderStatus) (bool, error)

	CreateAmendment(ctx context.Context, db *gorm.DB, amendment *OrderAmendment) error
	ListAmendments(ctx context.Context, db *gorm.DB, orderID snowflake.ID) ([]OrderAmendment, error)
}
