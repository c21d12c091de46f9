package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	templatedomain "github.com/tably/tably/internal/coupontemplate/domain"
	"github.com/tably/tably/internal/couponprogram/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Repo      domain.Repository
	Templates templatedomain.Repository
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	repo      domain.Repository
	templates templatedomain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("couponprogram.service"),
		genID:     p.GenID,
		repo:      p.Repo,
		templates: p.Templates,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Response, error) {
	normalized, err := s.normalize(ctx, programInput{
		Name:         req.Name,
		Status:       req.Status,
		Mode:         req.Mode,
		TriggerType:  req.TriggerType,
		PromoCode:    req.PromoCode,
		TotalLimit:   req.TotalLimit,
		PerUserLimit: req.PerUserLimit,
		LineItems:    req.LineItems,
		ValidFrom:    req.ValidFrom,
		ValidTo:      req.ValidTo,
	}, domain.ProgramStatusDraft)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	record := &domain.CouponProgram{
		ID:           s.genID.Generate(),
		Name:         normalized.Name,
		Status:       normalized.Status,
		Mode:         normalized.Mode,
		TriggerType:  normalized.TriggerType,
		PromoCode:    normalized.PromoCode,
		TotalLimit:   normalized.TotalLimit,
		PerUserLimit: normalized.PerUserLimit,
		LineItems:    normalized.LineItems,
		ValidFrom:    normalized.ValidFrom,
		ValidTo:      normalized.ValidTo,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if req.Eligibility != nil {
		record.Eligibility = datatypes.JSONMap(req.Eligibility)
	} else {
		record.Eligibility = datatypes.JSONMap{}
	}

	if err := s.repo.Create(ctx, s.db, record); err != nil {
		return nil, err
	}

	s.log.Info("coupon program created",
		zap.String("program_id", record.ID.String()),
		zap.String("mode", string(record.Mode)),
	)

	return s.toResponse(record)
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Response, error) {
	programID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	item, err := s.repo.FindByID(ctx, s.db, programID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}

	return s.toResponse(item)
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) ([]domain.Response, error) {
	filter := domain.ListFilter{
		Name:    strings.TrimSpace(req.Name),
		SortBy:  strings.TrimSpace(req.SortBy),
		OrderBy: strings.TrimSpace(req.OrderBy),
	}

	if raw := strings.TrimSpace(req.Status); raw != "" {
		status := domain.ProgramStatus(strings.ToLower(raw))
		if !domain.ValidProgramStatus(status) {
			return nil, templatedomain.NewFieldError("status", "unknown_status", "status must be draft, active, paused or ended")
		}
		filter.Status = &status
	}
	if raw := strings.TrimSpace(req.Mode); raw != "" {
		mode := domain.DistributionMode(strings.ToLower(raw))
		if !domain.ValidDistributionMode(mode) {
			return nil, templatedomain.NewFieldError("distribution_mode", "unknown_mode", "unknown distribution mode")
		}
		filter.Mode = &mode
	}

	items, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return nil, err
	}

	resp := make([]domain.Response, 0, len(items))
	for i := range items {
		r, err := s.toResponse(&items[i])
		if err != nil {
			return nil, err
		}
		resp = append(resp, *r)
	}
	return resp, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateRequest) (*domain.Response, error) {
	programID, err := parseID(req.ID)
	if err != nil {
		return nil, err
	}

	item, err := s.repo.FindByID(ctx, s.db, programID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}

	normalized, err := s.normalize(ctx, programInput{
		Name:         req.Name,
		Status:       req.Status,
		Mode:         req.Mode,
		TriggerType:  req.TriggerType,
		PromoCode:    req.PromoCode,
		TotalLimit:   req.TotalLimit,
		PerUserLimit: req.PerUserLimit,
		LineItems:    req.LineItems,
		ValidFrom:    req.ValidFrom,
		ValidTo:      req.ValidTo,
	}, item.Status)
	if err != nil {
		return nil, err
	}

	item.Name = normalized.Name
	item.Status = normalized.Status
	item.Mode = normalized.Mode
	item.TriggerType = normalized.TriggerType
	item.PromoCode = normalized.PromoCode
	item.TotalLimit = normalized.TotalLimit
	item.PerUserLimit = normalized.PerUserLimit
	item.LineItems = normalized.LineItems
	item.ValidFrom = normalized.ValidFrom
	item.ValidTo = normalized.ValidTo
	if req.Eligibility != nil {
		item.Eligibility = datatypes.JSONMap(req.Eligibility)
	}
	item.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, s.db, item); err != nil {
		return nil, err
	}

	return s.toResponse(item)
}

type programInput struct {
	Name         string
	Status       string
	Mode         string
	TriggerType  string
	PromoCode    string
	TotalLimit   *int
	PerUserLimit *int
	LineItems    []domain.LineItem
	ValidFrom    string
	ValidTo      string
}

type programNormalized struct {
	Name         string
	Status       domain.ProgramStatus
	Mode         domain.DistributionMode
	TriggerType  *string
	PromoCode    *string
	TotalLimit   *int
	PerUserLimit *int
	LineItems    datatypes.JSON
	ValidFrom    *time.Time
	ValidTo      *time.Time
}

func (s *Service) normalize(ctx context.Context, in programInput, statusFallback domain.ProgramStatus) (*programNormalized, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, templatedomain.NewFieldError("name", "required", "name is required")
	}

	status := domain.ProgramStatus(strings.ToLower(strings.TrimSpace(in.Status)))
	if status == "" {
		status = statusFallback
	}
	if !domain.ValidProgramStatus(status) {
		return nil, templatedomain.NewFieldError("status", "unknown_status", "status must be draft, active, paused or ended")
	}

	mode := domain.DistributionMode(strings.ToLower(strings.TrimSpace(in.Mode)))
	if !domain.ValidDistributionMode(mode) {
		return nil, templatedomain.NewFieldError("distribution_mode", "unknown_mode", "unknown distribution mode")
	}

	trigger, err := s.normalizeModeTrigger(mode, in.TriggerType)
	if err != nil {
		return nil, err
	}

	promo := normalizePromoCode(in.PromoCode)

	if in.TotalLimit != nil && *in.TotalLimit < 1 {
		return nil, templatedomain.NewFieldError("total_limit", "positive_integer_required", "total_limit must be a positive integer")
	}
	if in.PerUserLimit != nil && *in.PerUserLimit < 1 {
		return nil, templatedomain.NewFieldError("per_user_limit", "positive_integer_required", "per_user_limit must be a positive integer")
	}

	validFrom, validTo, err := templatedomain.ParseWindow(in.ValidFrom, in.ValidTo)
	if err != nil {
		return nil, err
	}

	lineItems, err := s.normalizeLineItems(ctx, in.LineItems)
	if err != nil {
		return nil, err
	}

	return &programNormalized{
		Name:         name,
		Status:       status,
		Mode:         mode,
		TriggerType:  trigger,
		PromoCode:    promo,
		TotalLimit:   in.TotalLimit,
		PerUserLimit: in.PerUserLimit,
		LineItems:    lineItems,
		ValidFrom:    validFrom,
		ValidTo:      validTo,
	}, nil
}

// normalizeModeTrigger couples the distribution mode with its trigger.
// automatic_trigger requires one; every other mode actively clears a
// supplied trigger instead of rejecting it. The clearing is logged so
// contradictory admin input stays visible.
func (s *Service) normalizeModeTrigger(mode domain.DistributionMode, rawTrigger string) (*string, error) {
	trigger := strings.TrimSpace(rawTrigger)

	if mode == domain.ModeAutomaticTrigger {
		if trigger == "" {
			return nil, templatedomain.NewFieldError("trigger_type", "required_for_automatic_trigger", "automatic_trigger programs need a trigger type")
		}
		return &trigger, nil
	}

	if trigger != "" {
		s.log.Warn("clearing trigger type for non-trigger distribution mode",
			zap.String("mode", string(mode)),
			zap.String("trigger_type", trigger),
		)
	}
	return nil, nil
}

// normalizeLineItems validates quantities and checks every referenced
// template exists. Existence is re-checked at issuance time as well since
// templates can change after the program is saved.
func (s *Service) normalizeLineItems(ctx context.Context, items []domain.LineItem) (datatypes.JSON, error) {
	if len(items) == 0 {
		return nil, templatedomain.NewFieldError("line_items", "required", "a program needs at least one line item")
	}

	ids := make([]snowflake.ID, 0, len(items))
	clean := make([]domain.LineItem, 0, len(items))
	for _, item := range items {
		templateID, err := snowflake.ParseString(strings.TrimSpace(item.TemplateID))
		if err != nil || templateID == 0 {
			return nil, templatedomain.NewFieldError("line_items.template_id", "invalid_id", "line item template id is invalid")
		}
		if item.Quantity < 1 {
			return nil, templatedomain.NewFieldError("line_items.quantity", "positive_integer_required", "line item quantity must be a positive integer")
		}
		ids = append(ids, templateID)
		clean = append(clean, domain.LineItem{TemplateID: templateID.String(), Quantity: item.Quantity})
	}

	found, err := s.templates.ListByIDs(ctx, s.db, ids)
	if err != nil {
		return nil, err
	}
	known := make(map[snowflake.ID]bool, len(found))
	for _, t := range found {
		known[t.ID] = true
	}
	for _, id := range ids {
		if !known[id] {
			return nil, templatedomain.NewFieldError("line_items.template_id", "unknown_template", "line item references a template that does not exist")
		}
	}

	encoded, err := json.Marshal(clean)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(encoded), nil
}

// normalizePromoCode uppercases and trims; an empty code means "no code".
func normalizePromoCode(raw string) *string {
	code := strings.ToUpper(strings.TrimSpace(raw))
	if code == "" {
		return nil
	}
	return &code
}

func (s *Service) toResponse(p *domain.CouponProgram) (*domain.Response, error) {
	items, err := p.Items()
	if err != nil {
		return nil, err
	}

	resp := &domain.Response{
		ID:           p.ID.String(),
		Name:         p.Name,
		Status:       p.Status,
		Mode:         p.Mode,
		TriggerType:  p.TriggerType,
		PromoCode:    p.PromoCode,
		TotalLimit:   p.TotalLimit,
		PerUserLimit: p.PerUserLimit,
		IssuedCount:  p.IssuedCount,
		LineItems:    items,
		ValidFrom:    p.ValidFrom,
		ValidTo:      p.ValidTo,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
	if len(p.Eligibility) > 0 {
		resp.Eligibility = map[string]any(p.Eligibility)
	}
	return resp, nil
}

func parseID(value string) (snowflake.ID, error) {
	parsed, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || parsed == 0 {
		return 0, domain.ErrInvalidID
	}
	return parsed, nil
}
