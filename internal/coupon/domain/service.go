package domain

import (
	"context"
	"errors"
	"time"

	"github.com/tably/tably/pkg/db/pagination"
)

type Service interface {
	Wallet(ctx context.Context, req WalletRequest) (*WalletPage, error)
	ExpireStale(ctx context.Context) (int64, error)
}

type WalletRequest struct {
	UserID    string
	Status    string
	Limit     int
	PageToken string
}

type WalletPage struct {
	Items    []WalletItem        `json:"data"`
	PageInfo pagination.PageInfo `json:"page_info"`
}

type WalletItem struct {
	CouponID      string       `json:"coupon_id"`
	Code          string       `json:"code"`
	TemplateID    string       `json:"template_id"`
	ProgramID     string       `json:"program_id"`
	Status        WalletStatus `json:"status"`
	AmountCents   int64        `json:"amount_cents"`
	MinSpendCents int64        `json:"min_spend_cents"`
	ValidFrom     *time.Time   `json:"valid_from,omitempty"`
	ValidTo       *time.Time   `json:"valid_to,omitempty"`
	UsedAt        *time.Time   `json:"used_at,omitempty"`
	IssuedAt      time.Time    `json:"issued_at"`
}

var (
	ErrInvalidUserID = errors.New("invalid_user_id")
)
