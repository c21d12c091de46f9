package domain

import (
	"context"
	"errors"
	"time"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Response, error)

	// Resolve finds a user by id or by phone. Exactly one of the two
	// reference fields must be set.
	Resolve(ctx context.Context, ref UserRef) (*User, error)
}

type CreateRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type UserRef struct {
	UserID string
	Phone  string
}

type Response struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
}

var (
	ErrNotFound       = errors.New("not_found")
	ErrInvalidID      = errors.New("invalid_id")
	ErrAmbiguousRef   = errors.New("ambiguous_user_ref")
	ErrMissingRef     = errors.New("missing_user_ref")
	ErrDuplicatePhone = errors.New("duplicate_phone")
)
