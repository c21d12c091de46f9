package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/tably/tably/internal/coupontemplate/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("coupontemplate.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Response, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, domain.NewFieldError("title", "required", "title is required")
	}

	status, err := normalizeStatus(req.Status, domain.TemplateStatusDraft)
	if err != nil {
		return nil, err
	}

	validFrom, validTo, err := domain.ParseWindow(req.ValidFrom, req.ValidTo)
	if err != nil {
		return nil, err
	}

	// Both documents are validated before anything is persisted.
	if _, err := domain.ParseUseRule(req.UseRule); err != nil {
		return nil, err
	}
	if _, err := domain.ParseIssuePolicy(req.IssuePolicy); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	record := &domain.CouponTemplate{
		ID:          s.genID.Generate(),
		Title:       title,
		Status:      status,
		ValidFrom:   validFrom,
		ValidTo:     validTo,
		UseRule:     datatypes.JSONMap(req.UseRule),
		IssuePolicy: policyDocument(req.IssuePolicy),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Create(ctx, s.db, record); err != nil {
		return nil, err
	}

	s.log.Info("coupon template created",
		zap.String("template_id", record.ID.String()),
		zap.String("status", string(record.Status)),
	)

	resp := toResponse(record)
	return &resp, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Response, error) {
	templateID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	item, err := s.repo.FindByID(ctx, s.db, templateID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}

	resp := toResponse(item)
	return &resp, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) ([]domain.Response, error) {
	filter := domain.ListFilter{
		Title:   strings.TrimSpace(req.Title),
		SortBy:  strings.TrimSpace(req.SortBy),
		OrderBy: strings.TrimSpace(req.OrderBy),
	}

	if raw := strings.TrimSpace(req.Status); raw != "" {
		status, err := normalizeStatus(raw, "")
		if err != nil {
			return nil, err
		}
		filter.Status = &status
	}

	items, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return nil, err
	}

	resp := make([]domain.Response, 0, len(items))
	for i := range items {
		resp = append(resp, toResponse(&items[i]))
	}
	return resp, nil
}

// Update is a full-document replacement: every field of the template,
// including both documents, comes from the request.
func (s *Service) Update(ctx context.Context, req domain.UpdateRequest) (*domain.Response, error) {
	templateID, err := parseID(req.ID)
	if err != nil {
		return nil, err
	}

	item, err := s.repo.FindByID(ctx, s.db, templateID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, domain.NewFieldError("title", "required", "title is required")
	}

	status, err := normalizeStatus(req.Status, item.Status)
	if err != nil {
		return nil, err
	}

	validFrom, validTo, err := domain.ParseWindow(req.ValidFrom, req.ValidTo)
	if err != nil {
		return nil, err
	}

	if _, err := domain.ParseUseRule(req.UseRule); err != nil {
		return nil, err
	}
	if _, err := domain.ParseIssuePolicy(req.IssuePolicy); err != nil {
		return nil, err
	}

	item.Title = title
	item.Status = status
	item.ValidFrom = validFrom
	item.ValidTo = validTo
	item.UseRule = datatypes.JSONMap(req.UseRule)
	item.IssuePolicy = policyDocument(req.IssuePolicy)
	item.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, s.db, item); err != nil {
		return nil, err
	}

	resp := toResponse(item)
	return &resp, nil
}

func toResponse(t *domain.CouponTemplate) domain.Response {
	resp := domain.Response{
		ID:        t.ID.String(),
		Title:     t.Title,
		Status:    t.Status,
		ValidFrom: t.ValidFrom,
		ValidTo:   t.ValidTo,
		UseRule:   map[string]any(t.UseRule),
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
	if len(t.IssuePolicy) > 0 {
		resp.IssuePolicy = map[string]any(t.IssuePolicy)
	}
	return resp
}

func normalizeStatus(raw string, fallback domain.TemplateStatus) (domain.TemplateStatus, error) {
	value := domain.TemplateStatus(strings.ToLower(strings.TrimSpace(raw)))
	if value == "" {
		if fallback == "" {
			return "", domain.NewFieldError("status", "required", "status is required")
		}
		return fallback, nil
	}
	if !domain.ValidTemplateStatus(value) {
		return "", domain.NewFieldError("status", "unknown_status", "status must be draft, active, paused or ended")
	}
	return value, nil
}

func policyDocument(doc map[string]any) datatypes.JSONMap {
	if doc == nil {
		return datatypes.JSONMap{}
	}
	return datatypes.JSONMap(doc)
}

func parseID(value string) (snowflake.ID, error) {
	parsed, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || parsed == 0 {
		return 0, domain.ErrInvalidID
	}
	return parsed, nil
}
