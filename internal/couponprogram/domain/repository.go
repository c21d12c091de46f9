package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type ListFilter struct {
	Status  *ProgramStatus
	Mode    *DistributionMode
	Name    string
	SortBy  string
	OrderBy string
}

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, program *CouponProgram) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*CouponProgram, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]CouponProgram, error)
	Update(ctx context.Context, db *gorm.DB, program *CouponProgram) error

	// IncrementIssued bumps issued_count by n. When the program has a
	// total limit the increment is guarded so the counter can never pass
	// it; a false return means the guard rejected the increment.
	IncrementIssued(ctx context.Context, db *gorm.DB, id snowflake.ID, n int, totalLimit *int) (bool, error)
}
