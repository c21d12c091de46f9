package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	templatedomain "github.com/tably/tably/internal/coupontemplate/domain"
	"github.com/tably/tably/internal/observability/metrics"
	"github.com/tably/tably/internal/order/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Metrics *metrics.Metrics `optional:"true"`
	Repo    domain.Repository
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	metrics *metrics.Metrics
	repo    domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("order.service"),
		genID:   p.GenID,
		metrics: p.Metrics,
		repo:    p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Response, error) {
	userID, err := snowflake.ParseString(strings.TrimSpace(req.UserID))
	if err != nil || userID == 0 {
		return nil, templatedomain.NewFieldError("user_id", "invalid_id", "user_id is invalid")
	}
	if req.SubtotalCents < 0 {
		return nil, templatedomain.NewFieldError("subtotal_cents", "non_negative_integer_required", "subtotal_cents must be non-negative")
	}
	if req.DiscountCents < 0 || req.DiscountCents > req.SubtotalCents {
		return nil, templatedomain.NewFieldError("discount_cents", "out_of_range", "discount_cents must be between zero and the subtotal")
	}

	now := time.Now().UTC()
	order := &domain.Order{
		ID:            s.genID.Generate(),
		UserID:        userID,
		Status:        domain.StatusPending,
		SubtotalCents: req.SubtotalCents,
		DiscountCents: req.DiscountCents,
		TotalCents:    req.SubtotalCents - req.DiscountCents,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if raw := strings.TrimSpace(req.CouponID); raw != "" {
		couponID, err := snowflake.ParseString(raw)
		if err != nil || couponID == 0 {
			return nil, templatedomain.NewFieldError("coupon_id", "invalid_id", "coupon_id is invalid")
		}
		order.CouponID = &couponID
	}
	if req.Items != nil {
		encoded, err := json.Marshal(req.Items)
		if err != nil {
			return nil, err
		}
		order.Items = datatypes.JSON(encoded)
	}

	if err := s.repo.Create(ctx, s.db, order); err != nil {
		return nil, err
	}
	return toResponse(order), nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Response, error) {
	order, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	return toResponse(order), nil
}

func (s *Service) ListByUser(ctx context.Context, userID string, limit int) ([]domain.Response, error) {
	parsed, err := snowflake.ParseString(strings.TrimSpace(userID))
	if err != nil || parsed == 0 {
		return nil, domain.ErrInvalidID
	}
	orders, err := s.repo.ListByUser(ctx, s.db, parsed, limit)
	if err != nil {
		return nil, err
	}
	resp := make([]domain.Response, 0, len(orders))
	for i := range orders {
		resp = append(resp, *toResponse(&orders[i]))
	}
	return resp, nil
}

func (s *Service) SetStatus(ctx context.Context, req domain.SetStatusRequest) (*domain.Response, error) {
	target := domain.OrderStatus(strings.ToLower(strings.TrimSpace(req.Status)))
	if !domain.ValidOrderStatus(target) {
		return nil, templatedomain.NewFieldError("status", "unknown_status", "unknown order status")
	}

	order, err := s.find(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	from := order.Status
	if raw := strings.TrimSpace(req.ExpectedStatus); raw != "" {
		expected := domain.OrderStatus(strings.ToLower(raw))
		if !domain.ValidOrderStatus(expected) {
			return nil, templatedomain.NewFieldError("expected_status", "unknown_status", "unknown order status")
		}
		from = expected
	}

	if !domain.CanTransition(from, target) {
		return nil, domain.ErrInvalidTransition
	}

	ok, err := s.repo.UpdateStatusCAS(ctx, s.db, order.ID, from, target)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrStatusConflict
	}

	s.metrics.RecordOrderTransition(ctx, string(from), string(target))
	s.log.Info("order status changed",
		zap.String("order_id", order.ID.String()),
		zap.String("from", string(from)),
		zap.String("to", string(target)),
	)

	order.Status = target
	order.UpdatedAt = time.Now().UTC()
	return toResponse(order), nil
}

// Advance retries the swap a few times so two clerks advancing the same
// order both land on a consistent path instead of one getting a spurious
// conflict.
func (s *Service) Advance(ctx context.Context, id string) (*domain.Response, error) {
	const attempts = 3

	for i := 0; i < attempts; i++ {
		order, err := s.find(ctx, id)
		if err != nil {
			return nil, err
		}
		if domain.IsTerminal(order.Status) {
			resp := toResponse(order)
			resp.AlreadyTerminal = true
			return resp, nil
		}

		next := domain.Next(order.Status)
		ok, err := s.repo.UpdateStatusCAS(ctx, s.db, order.ID, order.Status, next)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}

		s.metrics.RecordOrderTransition(ctx, string(order.Status), string(next))
		order.Status = next
		order.UpdatedAt = time.Now().UTC()
		return toResponse(order), nil
	}

	return nil, domain.ErrStatusConflict
}

func (s *Service) CreateAmendment(ctx context.Context, req domain.AmendmentRequest) (*domain.AmendmentResponse, error) {
	orderID, err := parseID(req.OrderID)
	if err != nil {
		return nil, err
	}

	amendmentType := domain.AmendmentType(strings.ToLower(strings.TrimSpace(req.Type)))
	if !domain.ValidAmendmentType(amendmentType) {
		return nil, templatedomain.NewFieldError("type", "unknown_type", "amendment type must be refund or surcharge")
	}
	if req.AmountCents <= 0 {
		return nil, templatedomain.NewFieldError("amount_cents", "positive_integer_required", "amount_cents must be a positive integer")
	}

	amendment := &domain.OrderAmendment{
		ID:          s.genID.Generate(),
		OrderID:     orderID,
		Type:        amendmentType,
		AmountCents: req.AmountCents,
		Reason:      strings.TrimSpace(req.Reason),
		CreatedAt:   time.Now().UTC(),
	}

	// The gating read runs in the same transaction as the insert so a
	// concurrent refund cannot slip between check and write.
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := s.repo.FindByID(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return domain.ErrNotFound
		}
		if !domain.CanAmend(order.Status) {
			return domain.ErrOrderNotAmendable
		}
		return s.repo.CreateAmendment(ctx, tx, amendment)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordAmendment(ctx, string(amendmentType))
	s.log.Info("order amendment created",
		zap.String("order_id", orderID.String()),
		zap.String("type", string(amendmentType)),
		zap.Int64("amount_cents", amendment.AmountCents),
	)

	return toAmendmentResponse(amendment), nil
}

func (s *Service) ListAmendments(ctx context.Context, orderID string) ([]domain.AmendmentResponse, error) {
	parsed, err := parseID(orderID)
	if err != nil {
		return nil, err
	}

	order, err := s.repo.FindByID(ctx, s.db, parsed)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, domain.ErrNotFound
	}

	amendments, err := s.repo.ListAmendments(ctx, s.db, parsed)
	if err != nil {
		return nil, err
	}
	resp := make([]domain.AmendmentResponse, 0, len(amendments))
	for i := range amendments {
		resp = append(resp, *toAmendmentResponse(&amendments[i]))
	}
	return resp, nil
}

func (s *Service) find(ctx context.Context, id string) (*domain.Order, error) {
	parsed, err := parseID(id)
	if err != nil {
		return nil, err
	}
	order, err := s.repo.FindByID(ctx, s.db, parsed)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, domain.ErrNotFound
	}
	return order, nil
}

func toResponse(o *domain.Order) *domain.Response {
	resp := &domain.Response{
		ID:            o.ID.String(),
		UserID:        o.UserID.String(),
		Status:        o.Status,
		SubtotalCents: o.SubtotalCents,
		DiscountCents: o.DiscountCents,
		TotalCents:    o.TotalCents,
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
	if o.CouponID != nil {
		couponID := o.CouponID.String()
		resp.CouponID = &couponID
	}
	return resp
}

func toAmendmentResponse(a *domain.OrderAmendment) *domain.AmendmentResponse {
	return &domain.AmendmentResponse{
		ID:          a.ID.String(),
		OrderID:     a.OrderID.String(),
		Type:        a.Type,
		AmountCents: a.AmountCents,
		Reason:      a.Reason,
		CreatedAt:   a.CreatedAt,
	}
}

func parseID(value string) (snowflake.ID, error) {
	parsed, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || parsed == 0 {
		return 0, domain.ErrInvalidID
	}
	return parsed, nil
}
