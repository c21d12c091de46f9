package service

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tably/tably/internal/coupontemplate/domain"
	"github.com/tably/tably/internal/coupontemplate/repository"
	"github.com/tably/tably/pkg/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (domain.Service, *gorm.DB) {
	t.Helper()

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&domain.CouponTemplate{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := New(Params{
		DB:    conn,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  repository.Provide(),
	})
	return svc, conn
}

func validCreateRequest() domain.CreateRequest {
	return domain.CreateRequest{
		Title:  "Five off lunch",
		Status: "active",
		UseRule: map[string]any{
			"type":         "fixed_amount",
			"scope":        "order",
			"amount_cents": float64(500),
		},
		IssuePolicy: map[string]any{
			"mode":            "manual",
			"expires_in_days": float64(30),
			"preset":          "lunch-pack",
		},
	}
}

func TestCreate_RoundTrip(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, validCreateRequest())
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Five off lunch", got.Title)
	assert.Equal(t, domain.TemplateStatusActive, got.Status)
	assert.Equal(t, "fixed_amount", got.UseRule["type"])
	// Operator metadata in the policy document survives storage untouched.
	assert.Equal(t, "lunch-pack", got.IssuePolicy["preset"])
}

func TestCreate_RejectsReversedWindow(t *testing.T) {
	svc, conn := newTestService(t)

	req := validCreateRequest()
	req.ValidFrom = "2026-06-01"
	req.ValidTo = "2026-05-01"

	_, err := svc.Create(context.Background(), req)
	var fieldErr *domain.FieldError
	require.ErrorAs(t, err, &fieldErr)
	assert.Equal(t, "reversed_window", fieldErr.Code)

	// Nothing was persisted.
	var count int64
	require.NoError(t, conn.Model(&domain.CouponTemplate{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCreate_RejectsInvalidRuleBeforePersist(t *testing.T) {
	svc, conn := newTestService(t)

	req := validCreateRequest()
	req.UseRule = map[string]any{
		"type":  "percent_off",
		"scope": "order",
		// missing percent_off
	}

	_, err := svc.Create(context.Background(), req)
	var fieldErr *domain.FieldError
	require.ErrorAs(t, err, &fieldErr)

	var count int64
	require.NoError(t, conn.Model(&domain.CouponTemplate{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestUpdate_FullReplacement(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, validCreateRequest())
	require.NoError(t, err)

	updated, err := svc.Update(ctx, domain.UpdateRequest{
		ID:     created.ID,
		Title:  "Ten off dinner",
		Status: "paused",
		UseRule: map[string]any{
			"type":         "fixed_amount",
			"scope":        "order",
			"amount_cents": float64(1000),
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Ten off dinner", updated.Title)
	assert.Equal(t, domain.TemplateStatusPaused, updated.Status)

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, float64(1000), got.UseRule["amount_cents"])
	// Replacement semantics: the old policy document is gone.
	assert.Empty(t, got.IssuePolicy)
}

func TestGet_UnknownID(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Get(context.Background(), "123456789")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.Get(context.Background(), "not-a-snowflake")
	assert.ErrorIs(t, err, domain.ErrInvalidID)
}
