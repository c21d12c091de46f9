package service

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/tably/tably/internal/clock"
	coupondomain "github.com/tably/tably/internal/coupon/domain"
	programdomain "github.com/tably/tably/internal/couponprogram/domain"
	templatedomain "github.com/tably/tably/internal/coupontemplate/domain"
	"github.com/tably/tably/internal/issuance/domain"
	"github.com/tably/tably/internal/observability/metrics"
	userdomain "github.com/tably/tably/internal/userdirectory/domain"
	"github.com/tably/tably/pkg/db"
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
	Clock     clock.Clock
	Metrics   *metrics.Metrics `optional:"true"`
	Receipts  domain.Repository
	Programs  programdomain.Repository
	Templates templatedomain.Repository
	Coupons   coupondomain.Repository
	Users     userdomain.Service
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	metrics   *metrics.Metrics
	receipts  domain.Repository
	programs  programdomain.Repository
	templates templatedomain.Repository
	coupons   coupondomain.Repository
	users     userdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("issuance.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		metrics:   p.Metrics,
		receipts:  p.Receipts,
		programs:  p.Programs,
		templates: p.Templates,
		coupons:   p.Coupons,
		users:     p.Users,
	}
}

// grant is one line item resolved into concrete coupon terms, ready to
// be stamped out quantity times.
type grant struct {
	templateID    snowflake.ID
	quantity      int
	amountCents   int64
	minSpendCents int64
	itemIDs       datatypes.JSON
	validFrom     *time.Time
	validTo       *time.Time
}

func (s *Service) Issue(ctx context.Context, req domain.IssueRequest) (*domain.IssueResponse, error) {
	resp, err := s.issue(ctx, req)
	if err != nil {
		s.recordRejection(ctx, err)
		return nil, err
	}
	if !resp.Replayed {
		s.metrics.RecordCouponsIssued(ctx, resp.ProgramID, int64(resp.IssuedCount))
	}
	return resp, nil
}

func (s *Service) issue(ctx context.Context, req domain.IssueRequest) (*domain.IssueResponse, error) {
	programID, err := snowflake.ParseString(strings.TrimSpace(req.ProgramID))
	if err != nil || programID == 0 {
		return nil, domain.ErrProgramNotFound
	}

	// Program resolution comes first: a request against a dead program
	// reports the program, whatever else is wrong with it.
	program, err := s.programs.FindByID(ctx, s.db, programID)
	if err != nil {
		return nil, err
	}
	if program == nil {
		return nil, domain.ErrProgramNotFound
	}
	if program.Mode != programdomain.ModeAdminPush {
		return nil, domain.ErrNotPushProgram
	}

	now := s.clock.Now()
	if err := checkProgramActive(program, now); err != nil {
		return nil, err
	}

	user, err := s.users.Resolve(ctx, userdomain.UserRef{UserID: req.UserID, Phone: req.Phone})
	if err != nil {
		return nil, err
	}

	grants, total, err := s.resolveGrants(ctx, program, now)
	if err != nil {
		return nil, err
	}
	if total == 0 {
		return nil, domain.ErrNothingToIssue
	}

	key := strings.TrimSpace(req.IdempotencyKey)
	if key == "" {
		key = uuid.NewString()
	}

	return s.commit(ctx, program, user, grants, total, key, now)
}

// errReceiptRace marks a lost race on the idempotency key: another
// request with the same key committed first.
var errReceiptRace = errors.New("receipt_race")

// commit is the single write transaction. Receipt insert, guarded
// counter increment, per-user limit check and the coupon batch either
// all land or all roll back.
func (s *Service) commit(ctx context.Context, program *programdomain.CouponProgram, user *userdomain.User, grants []grant, total int, key string, now time.Time) (*domain.IssueResponse, error) {
	resp := &domain.IssueResponse{
		ProgramID: program.ID.String(),
		UserID:    user.ID.String(),
	}

	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		prior, err := s.receipts.FindReceiptByKey(ctx, tx, key)
		if err != nil {
			return err
		}
		if prior != nil {
			resp.IssuedCount = prior.IssuedCount
			resp.Replayed = true
			return nil
		}

		if program.PerUserLimit != nil {
			already, err := s.coupons.CountByProgramAndUser(ctx, tx, program.ID, user.ID)
			if err != nil {
				return err
			}
			if already+int64(total) > int64(*program.PerUserLimit) {
				return domain.ErrPerUserLimitReached
			}
		}

		ok, err := s.programs.IncrementIssued(ctx, tx, program.ID, total, program.TotalLimit)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrProgramLimitReached
		}

		coupons, wallets := s.stamp(program, user, grants, now)
		if err := s.coupons.CreateBatch(ctx, tx, coupons, wallets); err != nil {
			return err
		}

		receipt := &domain.IssuanceReceipt{
			ID:             s.genID.Generate(),
			ProgramID:      program.ID,
			UserID:         user.ID,
			IdempotencyKey: key,
			IssuedCount:    total,
			CreatedAt:      now,
		}
		if err := s.receipts.CreateReceipt(ctx, tx, receipt); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return errReceiptRace
			}
			return err
		}

		resp.IssuedCount = total
		return nil
	})

	if errors.Is(txErr, errReceiptRace) {
		prior, err := s.receipts.FindReceiptByKey(ctx, s.db, key)
		if err != nil {
			return nil, err
		}
		if prior == nil {
			return nil, txErr
		}
		resp.IssuedCount = prior.IssuedCount
		resp.Replayed = true
		return resp, nil
	}
	if txErr != nil {
		return nil, txErr
	}

	if !resp.Replayed {
		s.log.Info("coupons issued",
			zap.String("program_id", resp.ProgramID),
			zap.String("user_id", resp.UserID),
			zap.Int("issued_count", resp.IssuedCount),
		)
	}
	return resp, nil
}

// resolveGrants loads every referenced template, validates it is
// issuable and folds its rule and policy into concrete coupon terms.
// All validation happens before any write.
func (s *Service) resolveGrants(ctx context.Context, program *programdomain.CouponProgram, now time.Time) ([]grant, int, error) {
	items, err := program.Items()
	if err != nil {
		return nil, 0, err
	}
	if len(items) == 0 {
		return nil, 0, domain.ErrNothingToIssue
	}

	ids := make([]snowflake.ID, 0, len(items))
	for _, item := range items {
		id, err := snowflake.ParseString(item.TemplateID)
		if err != nil || id == 0 {
			return nil, 0, &domain.MissingTemplatesError{IDs: []string{item.TemplateID}}
		}
		ids = append(ids, id)
	}

	found, err := s.templates.ListByIDs(ctx, s.db, ids)
	if err != nil {
		return nil, 0, err
	}
	byID := make(map[snowflake.ID]*templatedomain.CouponTemplate, len(found))
	for i := range found {
		byID[found[i].ID] = &found[i]
	}

	var missing []string
	for _, id := range ids {
		if byID[id] == nil {
			missing = append(missing, id.String())
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, 0, &domain.MissingTemplatesError{IDs: missing}
	}

	grants := make([]grant, 0, len(items))
	total := 0
	for i, item := range items {
		template := byID[ids[i]]
		if template.Status != templatedomain.TemplateStatusActive {
			return nil, 0, templatedomain.NewFieldError("line_items.template_id", "template_not_active", "line item references a template that is not active")
		}

		rule, err := templatedomain.ParseUseRule(map[string]any(template.UseRule))
		if err != nil {
			return nil, 0, err
		}
		fixed, ok := rule.(templatedomain.FixedAmountRule)
		if !ok {
			return nil, 0, domain.ErrPercentRuleNotIssuable
		}

		policy, err := templatedomain.ParseIssuePolicy(map[string]any(template.IssuePolicy))
		if err != nil {
			return nil, 0, err
		}

		// Without a per-template expiry the coupon tracks the campaign's
		// own lifetime, not the template's.
		g := grant{
			templateID:    template.ID,
			quantity:      item.Quantity,
			amountCents:   fixed.AmountCents,
			minSpendCents: fixed.MinSubtotalCents,
			validFrom:     program.ValidFrom,
			validTo:       program.ValidTo,
		}
		if policy.ExpiresInDays > 0 {
			from := now
			to := now.AddDate(0, 0, policy.ExpiresInDays)
			g.validFrom = &from
			g.validTo = &to
		}
		if len(fixed.ItemIDs) > 0 {
			encoded, err := json.Marshal(fixed.ItemIDs)
			if err != nil {
				return nil, 0, err
			}
			g.itemIDs = datatypes.JSON(encoded)
		}

		grants = append(grants, g)
		total += item.Quantity
	}

	return grants, total, nil
}

// stamp materializes the grants into coupon and wallet rows.
func (s *Service) stamp(program *programdomain.CouponProgram, user *userdomain.User, grants []grant, now time.Time) ([]coupondomain.Coupon, []coupondomain.UserCoupon) {
	coupons := make([]coupondomain.Coupon, 0)
	wallets := make([]coupondomain.UserCoupon, 0)

	for _, g := range grants {
		for i := 0; i < g.quantity; i++ {
			couponID := s.genID.Generate()
			coupons = append(coupons, coupondomain.Coupon{
				ID:            couponID,
				Code:          ulid.Make().String(),
				UserID:        user.ID,
				TemplateID:    g.templateID,
				ProgramID:     program.ID,
				AmountCents:   g.amountCents,
				MinSpendCents: g.minSpendCents,
				ItemIDs:       g.itemIDs,
				ValidFrom:     g.validFrom,
				ValidTo:       g.validTo,
				Stacking:      "exclusive",
				Active:        true,
				CreatedAt:     now,
				UpdatedAt:     now,
			})
			wallets = append(wallets, coupondomain.UserCoupon{
				ID:        s.genID.Generate(),
				UserID:    user.ID,
				CouponID:  couponID,
				Status:    coupondomain.WalletStatusAvailable,
				CreatedAt: now,
				UpdatedAt: now,
			})
		}
	}
	return coupons, wallets
}

func checkProgramActive(program *programdomain.CouponProgram, now time.Time) error {
	if program.Status != programdomain.ProgramStatusActive {
		return domain.ErrProgramNotActive
	}
	if program.ValidFrom != nil && now.Before(*program.ValidFrom) {
		return domain.ErrProgramNotActive
	}
	if program.ValidTo != nil && now.After(*program.ValidTo) {
		return domain.ErrProgramNotActive
	}
	return nil
}

func (s *Service) recordRejection(ctx context.Context, err error) {
	var missing *domain.MissingTemplatesError
	switch {
	case errors.Is(err, domain.ErrProgramNotFound):
		s.metrics.RecordIssuanceRejected(ctx, "program_not_found")
	case errors.Is(err, domain.ErrProgramNotActive):
		s.metrics.RecordIssuanceRejected(ctx, "program_not_active")
	case errors.Is(err, domain.ErrNotPushProgram):
		s.metrics.RecordIssuanceRejected(ctx, "not_push_program")
	case errors.Is(err, domain.ErrNothingToIssue):
		s.metrics.RecordIssuanceRejected(ctx, "nothing_to_issue")
	case errors.Is(err, domain.ErrPercentRuleNotIssuable):
		s.metrics.RecordIssuanceRejected(ctx, "percent_rule_not_issuable")
	case errors.Is(err, domain.ErrProgramLimitReached):
		s.metrics.RecordIssuanceRejected(ctx, "program_limit_reached")
	case errors.Is(err, domain.ErrPerUserLimitReached):
		s.metrics.RecordIssuanceRejected(ctx, "per_user_limit_reached")
	case errors.As(err, &missing):
		s.metrics.RecordIssuanceRejected(ctx, "missing_templates")
	}
}
