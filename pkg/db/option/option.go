package option

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// QueryOption mutates a GORM statement before execution.
type QueryOption interface {
	Apply(stmt *gorm.DB) *gorm.DB
}

type sortOption struct {
	clause string
}

func (o sortOption) Apply(stmt *gorm.DB) *gorm.DB {
	if o.clause == "" {
		return stmt
	}
	return stmt.Order(o.clause)
}

// WithSortBy wraps a prebuilt ORDER BY clause.
func WithSortBy(clause string) QueryOption {
	return sortOption{clause: clause}
}

// WithQuerySortBy builds an ORDER BY clause from user-supplied sort
// parameters, restricted to the allowed column set. Unknown columns and
// directions fall back to created_at DESC.
func WithQuerySortBy(sortBy, orderBy string, allowed map[string]bool) string {
	column := strings.TrimSpace(strings.ToLower(sortBy))
	if column == "" || !allowed[column] {
		column = "created_at"
	}

	direction := strings.TrimSpace(strings.ToUpper(orderBy))
	if direction != "ASC" && direction != "DESC" {
		direction = "DESC"
	}

	return fmt.Sprintf("%s %s", column, direction)
}

type limitOption struct {
	limit int
}

func (o limitOption) Apply(stmt *gorm.DB) *gorm.DB {
	if o.limit <= 0 {
		return stmt
	}
	return stmt.Limit(o.limit)
}

// WithLimit caps the result set size.
func WithLimit(limit int) QueryOption {
	return limitOption{limit: limit}
}
