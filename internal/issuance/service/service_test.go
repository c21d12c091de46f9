package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tably/tably/internal/clock"
	coupondomain "github.com/tably/tably/internal/coupon/domain"
	couponrepo "github.com/tably/tably/internal/coupon/repository"
	programdomain "github.com/tably/tably/internal/couponprogram/domain"
	programrepo "github.com/tably/tably/internal/couponprogram/repository"
	templatedomain "github.com/tably/tably/internal/coupontemplate/domain"
	templaterepo "github.com/tably/tably/internal/coupontemplate/repository"
	"github.com/tably/tably/internal/issuance/domain"
	issuancerepo "github.com/tably/tably/internal/issuance/repository"
	userdomain "github.com/tably/tably/internal/userdirectory/domain"
	userrepo "github.com/tably/tably/internal/userdirectory/repository"
	userservice "github.com/tably/tably/internal/userdirectory/service"
	"github.com/tably/tably/pkg/db"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type fixture struct {
	svc   domain.Service
	conn  *gorm.DB
	node  *snowflake.Node
	clock *clock.FakeClock
	user  *userdomain.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(
		&userdomain.User{},
		&templatedomain.CouponTemplate{},
		&programdomain.CouponProgram{},
		&coupondomain.Coupon{},
		&coupondomain.UserCoupon{},
		&domain.IssuanceReceipt{},
	))

	node, err := snowflake.NewNode(3)
	require.NoError(t, err)
	fake := clock.NewFakeClock(time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC))

	users := userservice.New(userservice.Params{
		DB:    conn,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  userrepo.Provide(),
	})

	f := &fixture{conn: conn, node: node, clock: fake}
	f.svc = New(Params{
		DB:        conn,
		Log:       zap.NewNop(),
		GenID:     node,
		Clock:     fake,
		Receipts:  issuancerepo.Provide(),
		Programs:  programrepo.Provide(),
		Templates: templaterepo.Provide(),
		Coupons:   couponrepo.Provide(),
		Users:     users,
	})

	f.user = &userdomain.User{
		ID:    node.Generate(),
		Name:  "Diner",
		Phone: "+15550100",
	}
	require.NoError(t, conn.Create(f.user).Error)
	return f
}

func (f *fixture) seedTemplate(t *testing.T, rule, policy datatypes.JSONMap) snowflake.ID {
	t.Helper()
	template := &templatedomain.CouponTemplate{
		ID:          f.node.Generate(),
		Title:       "tpl",
		Status:      templatedomain.TemplateStatusActive,
		UseRule:     rule,
		IssuePolicy: policy,
	}
	require.NoError(t, f.conn.Create(template).Error)
	return template.ID
}

func fixedRule(amount int64) datatypes.JSONMap {
	return datatypes.JSONMap{
		"type": "fixed_amount", "scope": "order", "amount_cents": float64(amount),
	}
}

type lineSpec struct {
	templateID snowflake.ID
	quantity   int
}

func (f *fixture) seedProgram(t *testing.T, lines []lineSpec, mutate func(*programdomain.CouponProgram)) *programdomain.CouponProgram {
	t.Helper()

	items := "["
	for i, line := range lines {
		if i > 0 {
			items += ","
		}
		items += fmt.Sprintf(`{"template_id":%q,"quantity":%d}`, line.templateID.String(), line.quantity)
	}
	items += "]"

	program := &programdomain.CouponProgram{
		ID:          f.node.Generate(),
		Name:        "push",
		Status:      programdomain.ProgramStatusActive,
		Mode:        programdomain.ModeAdminPush,
		Eligibility: datatypes.JSONMap{},
		LineItems:   datatypes.JSON([]byte(items)),
	}
	if mutate != nil {
		mutate(program)
	}
	require.NoError(t, f.conn.Create(program).Error)
	return program
}

func (f *fixture) issue(program *programdomain.CouponProgram, key string) (*domain.IssueResponse, error) {
	return f.svc.Issue(context.Background(), domain.IssueRequest{
		ProgramID:      program.ID.String(),
		UserID:         f.user.ID.String(),
		IdempotencyKey: key,
	})
}

func (f *fixture) counts(t *testing.T, programID snowflake.ID) (coupons, wallets, issued int64) {
	t.Helper()
	require.NoError(t, f.conn.Model(&coupondomain.Coupon{}).Where("program_id = ?", programID).Count(&coupons).Error)
	require.NoError(t, f.conn.Model(&coupondomain.UserCoupon{}).Count(&wallets).Error)

	var program programdomain.CouponProgram
	require.NoError(t, f.conn.First(&program, "id = ?", programID).Error)
	return coupons, wallets, program.IssuedCount
}

func TestIssue_MultiLineBatch(t *testing.T) {
	f := newFixture(t)
	t1 := f.seedTemplate(t, fixedRule(500), datatypes.JSONMap{"expires_in_days": float64(14)})
	t2 := f.seedTemplate(t, fixedRule(300), datatypes.JSONMap{})
	program := f.seedProgram(t, []lineSpec{{t1, 2}, {t2, 1}}, nil)

	resp, err := f.issue(program, "batch-1")
	require.NoError(t, err)
	assert.Equal(t, 3, resp.IssuedCount)
	assert.False(t, resp.Replayed)

	coupons, wallets, issued := f.counts(t, program.ID)
	assert.Equal(t, int64(3), coupons)
	assert.Equal(t, int64(3), wallets)
	assert.Equal(t, int64(3), issued)

	// The expiring template's coupons got a policy-derived window.
	var expiring []coupondomain.Coupon
	require.NoError(t, f.conn.Where("template_id = ?", t1).Find(&expiring).Error)
	require.Len(t, expiring, 2)
	for _, c := range expiring {
		require.NotNil(t, c.ValidTo)
		assert.Equal(t, f.clock.Now().AddDate(0, 0, 14), c.ValidTo.UTC())
	}
}

func TestIssue_MissingTemplateIssuesNothing(t *testing.T) {
	f := newFixture(t)
	t1 := f.seedTemplate(t, fixedRule(500), datatypes.JSONMap{})
	ghost := f.node.Generate()
	program := f.seedProgram(t, []lineSpec{{t1, 1}, {ghost, 1}}, nil)

	_, err := f.issue(program, "missing-1")
	var missing *domain.MissingTemplatesError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, []string{ghost.String()}, missing.IDs)

	coupons, wallets, issued := f.counts(t, program.ID)
	assert.Zero(t, coupons)
	assert.Zero(t, wallets)
	assert.Zero(t, issued)
}

func TestIssue_PercentRuleUnsupported(t *testing.T) {
	f := newFixture(t)
	percent := f.seedTemplate(t, datatypes.JSONMap{
		"type": "percent_off", "scope": "order", "percent_off": float64(10),
	}, datatypes.JSONMap{})
	program := f.seedProgram(t, []lineSpec{{percent, 1}}, nil)

	_, err := f.issue(program, "pct-1")
	assert.ErrorIs(t, err, domain.ErrPercentRuleNotIssuable)

	coupons, _, issued := f.counts(t, program.ID)
	assert.Zero(t, coupons)
	assert.Zero(t, issued)
}

func TestIssue_EmptyLineItems(t *testing.T) {
	f := newFixture(t)
	program := f.seedProgram(t, nil, nil)

	_, err := f.issue(program, "empty-1")
	assert.ErrorIs(t, err, domain.ErrNothingToIssue)
}

func TestIssue_TotalLimitAtomic(t *testing.T) {
	f := newFixture(t)
	t1 := f.seedTemplate(t, fixedRule(500), datatypes.JSONMap{})
	two := 2
	program := f.seedProgram(t, []lineSpec{{t1, 3}}, func(p *programdomain.CouponProgram) {
		p.TotalLimit = &two
	})

	// The batch of 3 does not fit in the remaining 2: all or nothing.
	_, err := f.issue(program, "limit-1")
	assert.ErrorIs(t, err, domain.ErrProgramLimitReached)

	coupons, wallets, issued := f.counts(t, program.ID)
	assert.Zero(t, coupons)
	assert.Zero(t, wallets)
	assert.Zero(t, issued)
}

func TestIssue_PerUserLimit(t *testing.T) {
	f := newFixture(t)
	t1 := f.seedTemplate(t, fixedRule(500), datatypes.JSONMap{})
	two := 2
	program := f.seedProgram(t, []lineSpec{{t1, 2}}, func(p *programdomain.CouponProgram) {
		p.PerUserLimit = &two
	})

	_, err := f.issue(program, "peruser-1")
	require.NoError(t, err)

	_, err = f.issue(program, "peruser-2")
	assert.ErrorIs(t, err, domain.ErrPerUserLimitReached)

	coupons, _, issued := f.counts(t, program.ID)
	assert.Equal(t, int64(2), coupons)
	assert.Equal(t, int64(2), issued)
}

func TestIssue_IdempotentReplay(t *testing.T) {
	f := newFixture(t)
	t1 := f.seedTemplate(t, fixedRule(500), datatypes.JSONMap{})
	program := f.seedProgram(t, []lineSpec{{t1, 3}}, nil)

	first, err := f.issue(program, "replay-key")
	require.NoError(t, err)
	assert.Equal(t, 3, first.IssuedCount)
	assert.False(t, first.Replayed)

	second, err := f.issue(program, "replay-key")
	require.NoError(t, err)
	assert.Equal(t, 3, second.IssuedCount)
	assert.True(t, second.Replayed)

	coupons, wallets, issued := f.counts(t, program.ID)
	assert.Equal(t, int64(3), coupons)
	assert.Equal(t, int64(3), wallets)
	assert.Equal(t, int64(3), issued)
}

func TestIssue_CouponWindowTracksProgram(t *testing.T) {
	f := newFixture(t)

	// Template carries its own long window but no expiry policy; the
	// minted coupons must get the campaign's window, not the template's.
	templateFrom := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	templateTo := time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC)
	t1 := f.seedTemplate(t, fixedRule(500), datatypes.JSONMap{})
	require.NoError(t, f.conn.Model(&templatedomain.CouponTemplate{}).
		Where("id = ?", t1).
		Updates(map[string]any{"valid_from": templateFrom, "valid_to": templateTo}).Error)

	programFrom := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	programTo := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	program := f.seedProgram(t, []lineSpec{{t1, 1}}, func(p *programdomain.CouponProgram) {
		p.ValidFrom = &programFrom
		p.ValidTo = &programTo
	})

	_, err := f.issue(program, "window-1")
	require.NoError(t, err)

	var coupon coupondomain.Coupon
	require.NoError(t, f.conn.First(&coupon, "program_id = ?", program.ID).Error)
	require.NotNil(t, coupon.ValidFrom)
	require.NotNil(t, coupon.ValidTo)
	assert.Equal(t, programFrom, coupon.ValidFrom.UTC())
	assert.Equal(t, programTo, coupon.ValidTo.UTC())
}

func TestIssue_ProgramResolvedBeforeUser(t *testing.T) {
	f := newFixture(t)

	// Both the program and the user ref are bad; the program wins.
	_, err := f.svc.Issue(context.Background(), domain.IssueRequest{
		ProgramID: f.node.Generate().String(),
		UserID:    "garbage",
	})
	assert.ErrorIs(t, err, domain.ErrProgramNotFound)
}

func TestIssue_RejectsNonPushProgram(t *testing.T) {
	f := newFixture(t)
	t1 := f.seedTemplate(t, fixedRule(500), datatypes.JSONMap{})
	program := f.seedProgram(t, []lineSpec{{t1, 1}}, func(p *programdomain.CouponProgram) {
		p.Mode = programdomain.ModeManualClaim
	})

	_, err := f.issue(program, "mode-1")
	assert.ErrorIs(t, err, domain.ErrNotPushProgram)
}

func TestIssue_RejectsInactiveProgram(t *testing.T) {
	f := newFixture(t)
	t1 := f.seedTemplate(t, fixedRule(500), datatypes.JSONMap{})

	paused := f.seedProgram(t, []lineSpec{{t1, 1}}, func(p *programdomain.CouponProgram) {
		p.Status = programdomain.ProgramStatusPaused
	})
	_, err := f.issue(paused, "inactive-1")
	assert.ErrorIs(t, err, domain.ErrProgramNotActive)

	past := f.clock.Now().Add(-time.Hour)
	expired := f.seedProgram(t, []lineSpec{{t1, 1}}, func(p *programdomain.CouponProgram) {
		p.ValidTo = &past
	})
	_, err = f.issue(expired, "inactive-2")
	assert.ErrorIs(t, err, domain.ErrProgramNotActive)
}

func TestIssue_ResolvesUserByPhone(t *testing.T) {
	f := newFixture(t)
	t1 := f.seedTemplate(t, fixedRule(500), datatypes.JSONMap{})
	program := f.seedProgram(t, []lineSpec{{t1, 1}}, nil)

	resp, err := f.svc.Issue(context.Background(), domain.IssueRequest{
		ProgramID:      program.ID.String(),
		Phone:          "+1 (555) 0100",
		IdempotencyKey: "phone-1",
	})
	require.NoError(t, err)
	assert.Equal(t, f.user.ID.String(), resp.UserID)
	assert.Equal(t, 1, resp.IssuedCount)
}

func TestIssue_UnknownUser(t *testing.T) {
	f := newFixture(t)
	t1 := f.seedTemplate(t, fixedRule(500), datatypes.JSONMap{})
	program := f.seedProgram(t, []lineSpec{{t1, 1}}, nil)

	_, err := f.svc.Issue(context.Background(), domain.IssueRequest{
		ProgramID: program.ID.String(),
		Phone:     "+19990000",
	})
	assert.ErrorIs(t, err, userdomain.ErrNotFound)
}

func TestIssue_ConcurrentBatchesKeepCounterExact(t *testing.T) {
	f := newFixture(t)
	t1 := f.seedTemplate(t, fixedRule(500), datatypes.JSONMap{})
	program := f.seedProgram(t, []lineSpec{{t1, 2}}, nil)

	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.issue(program, fmt.Sprintf("conc-%d", i))
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "worker %d", i)
	}

	coupons, wallets, issued := f.counts(t, program.ID)
	assert.Equal(t, int64(workers*2), coupons)
	assert.Equal(t, int64(workers*2), wallets)
	assert.Equal(t, int64(workers*2), issued)
}
