package domain

import (
	"context"
	"errors"
	"time"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	Get(ctx context.Context, id string) (*Response, error)
	List(ctx context.Context, req ListRequest) ([]Response, error)
	Update(ctx context.Context, req UpdateRequest) (*Response, error)
}

type CreateRequest struct {
	Name         string         `json:"name"`
	Status       string         `json:"status"`
	Mode         string         `json:"distribution_mode"`
	TriggerType  string         `json:"trigger_type"`
	PromoCode    string         `json:"promo_code"`
	TotalLimit   *int           `json:"total_limit"`
	PerUserLimit *int           `json:"per_user_limit"`
	Eligibility  map[string]any `json:"eligibility"`
	LineItems    []LineItem     `json:"line_items"`
	ValidFrom    string         `json:"valid_from"`
	ValidTo      string         `json:"valid_to"`
}

// UpdateRequest is a full replacement, like template updates. The
// issued_count is never writable through this path.
type UpdateRequest struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Status       string         `json:"status"`
	Mode         string         `json:"distribution_mode"`
	TriggerType  string         `json:"trigger_type"`
	PromoCode    string         `json:"promo_code"`
	TotalLimit   *int           `json:"total_limit"`
	PerUserLimit *int           `json:"per_user_limit"`
	Eligibility  map[string]any `json:"eligibility"`
	LineItems    []LineItem     `json:"line_items"`
	ValidFrom    string         `json:"valid_from"`
	ValidTo      string         `json:"valid_to"`
}

type ListRequest struct {
	Status  string
	Mode    string
	Name    string
	SortBy  string
	OrderBy string
}

type Response struct {
	ID           string           `json:"id"`
	Name         string           `json:"name"`
	Status       ProgramStatus    `json:"status"`
	Mode         DistributionMode `json:"distribution_mode"`
	TriggerType  *string          `json:"trigger_type,omitempty"`
	PromoCode    *string          `json:"promo_code,omitempty"`
	TotalLimit   *int             `json:"total_limit,omitempty"`
	PerUserLimit *int             `json:"per_user_limit,omitempty"`
	IssuedCount  int64            `json:"issued_count"`
	Eligibility  map[string]any   `json:"eligibility,omitempty"`
	LineItems    []LineItem       `json:"line_items"`
	ValidFrom    *time.Time       `json:"valid_from,omitempty"`
	ValidTo      *time.Time       `json:"valid_to,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

var (
	ErrNotFound  = errors.New("not_found")
	ErrInvalidID = errors.New("invalid_id")
)
