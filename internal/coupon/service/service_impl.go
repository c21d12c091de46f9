package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/tably/tably/internal/clock"
	"github.com/tably/tably/internal/coupon/domain"
	templatedomain "github.com/tably/tably/internal/coupontemplate/domain"
	"github.com/tably/tably/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	clock clock.Clock
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("coupon.service"),
		clock: p.Clock,
		repo:  p.Repo,
	}
}

const (
	defaultWalletPageSize = 50
	maxWalletPageSize     = 250
)

func (s *Service) Wallet(ctx context.Context, req domain.WalletRequest) (*domain.WalletPage, error) {
	userID, err := snowflake.ParseString(strings.TrimSpace(req.UserID))
	if err != nil || userID == 0 {
		return nil, domain.ErrInvalidUserID
	}

	limit := req.Limit
	if limit <= 0 {
		limit = defaultWalletPageSize
	}
	if limit > maxWalletPageSize {
		limit = maxWalletPageSize
	}

	// One extra row tells us whether another page exists.
	filter := domain.WalletFilter{UserID: userID, Limit: limit + 1}
	if raw := strings.TrimSpace(req.Status); raw != "" {
		status := domain.WalletStatus(strings.ToLower(raw))
		switch status {
		case domain.WalletStatusAvailable, domain.WalletStatusUsed, domain.WalletStatusExpired:
			filter.Status = &status
		default:
			return nil, templatedomain.NewFieldError("status", "unknown_status", "status must be available, used or expired")
		}
	}
	if token := strings.TrimSpace(req.PageToken); token != "" {
		cursor, err := pagination.DecodeCursor(token)
		if err != nil {
			return nil, templatedomain.NewFieldError("page_token", "invalid_token", "page_token is not a valid cursor")
		}
		before, err := time.Parse(time.RFC3339Nano, cursor.CreatedAt)
		if err != nil {
			return nil, templatedomain.NewFieldError("page_token", "invalid_token", "page_token is not a valid cursor")
		}
		filter.CreatedBefore = &before
	}

	entries, err := s.repo.ListWallet(ctx, s.db, filter)
	if err != nil {
		return nil, err
	}

	items := make([]domain.WalletItem, 0, len(entries))
	for _, e := range entries {
		items = append(items, domain.WalletItem{
			CouponID:      e.Coupon.ID.String(),
			Code:          e.Coupon.Code,
			TemplateID:    e.Coupon.TemplateID.String(),
			ProgramID:     e.Coupon.ProgramID.String(),
			Status:        e.Wallet.Status,
			AmountCents:   e.Coupon.AmountCents,
			MinSpendCents: e.Coupon.MinSpendCents,
			ValidFrom:     e.Coupon.ValidFrom,
			ValidTo:       e.Coupon.ValidTo,
			UsedAt:        e.Wallet.UsedAt,
			IssuedAt:      e.Wallet.CreatedAt,
		})
	}

	pageInfo, items := pagination.BuildCursorPageInfo(items, limit, func(item domain.WalletItem) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        item.CouponID,
			CreatedAt: item.IssuedAt.UTC().Format(time.RFC3339Nano),
		})
		if err != nil {
			return ""
		}
		return token
	})

	return &domain.WalletPage{Items: items, PageInfo: *pageInfo}, nil
}

// ExpireStale sweeps wallets whose coupon window has closed. Intended to
// run on an interval from the server lifecycle.
func (s *Service) ExpireStale(ctx context.Context) (int64, error) {
	moved, err := s.repo.MarkExpired(ctx, s.db, s.clock.Now())
	if err != nil {
		return 0, err
	}
	if moved > 0 {
		s.log.Info("expired stale wallet coupons", zap.Int64("count", moved))
	}
	return moved, nil
}
