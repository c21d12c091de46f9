package domain

import (
	"context"
	"errors"
	"time"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	Get(ctx context.Context, id string) (*Response, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]Response, error)

	// SetStatus applies an explicit transition. The move must be legal
	// from the order's current status and is applied compare-and-swap;
	// losing the swap surfaces as ErrStatusConflict.
	SetStatus(ctx context.Context, req SetStatusRequest) (*Response, error)

	// Advance moves the order one step along the happy path. Advancing
	// a terminal order is a no-op, not an error.
	Advance(ctx context.Context, id string) (*Response, error)

	CreateAmendment(ctx context.Context, req AmendmentRequest) (*AmendmentResponse, error)
	ListAmendments(ctx context.Context, orderID string) ([]AmendmentResponse, error)
}

type CreateRequest struct {
	UserID        string         `json:"user_id"`
	SubtotalCents int64          `json:"subtotal_cents"`
	DiscountCents int64          `json:"discount_cents"`
	CouponID      string         `json:"coupon_id"`
	Items         map[string]any `json:"items"`
}

type SetStatusRequest struct {
	ID     string `json:"-"`
	Status string `json:"status"`

	// ExpectedStatus optionally pins the from state. When empty the
	// current stored status is used as the swap base.
	ExpectedStatus string `json:"expected_status"`
}

type AmendmentRequest struct {
	OrderID     string `json:"-"`
	Type        string `json:"type"`
	AmountCents int64  `json:"amount_cents"`
	Reason      string `json:"reason"`
}

type Response struct {
	ID            string      `json:"id"`
	UserID        string      `json:"user_id"`
	Status        OrderStatus `json:"status"`
	SubtotalCents int64       `json:"subtotal_cents"`
	DiscountCents int64       `json:"discount_cents"`
	TotalCents    int64       `json:"total_cents"`
	CouponID      *string     `json:"coupon_id,omitempty"`

	// AlreadyTerminal marks an Advance that found the order in a
	// terminal state and changed nothing.
	AlreadyTerminal bool `json:"already_terminal,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type AmendmentResponse struct {
	ID          string        `json:"id"`
	OrderID     string        `json:"order_id"`
	Type        AmendmentType `json:"type"`
	AmountCents int64         `json:"amount_cents"`
	Reason      string        `json:"reason,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
}

var (
	ErrNotFound          = errors.New("not_found")
	ErrInvalidID         = errors.New("invalid_id")
	ErrInvalidTransition = errors.New("invalid_transition")
	ErrStatusConflict    = errors.New("status_conflict")
	ErrOrderNotAmendable = errors.New("order_not_amendable")
)
