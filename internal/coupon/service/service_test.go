package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tably/tably/internal/clock"
	"github.com/tably/tably/internal/coupon/domain"
	"github.com/tably/tably/internal/coupon/repository"
	"github.com/tably/tably/pkg/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	svc   domain.Service
	conn  *gorm.DB
	node  *snowflake.Node
	clock *clock.FakeClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&domain.Coupon{}, &domain.UserCoupon{}))

	node, err := snowflake.NewNode(6)
	require.NoError(t, err)
	fake := clock.NewFakeClock(time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC))

	svc := New(Params{
		DB:    conn,
		Log:   zap.NewNop(),
		Clock: fake,
		Repo:  repository.Provide(),
	})
	return &fixture{svc: svc, conn: conn, node: node, clock: fake}
}

func (f *fixture) seedCoupon(t *testing.T, userID snowflake.ID, status domain.WalletStatus, validTo *time.Time) {
	t.Helper()
	coupon := &domain.Coupon{
		ID:          f.node.Generate(),
		Code:        f.node.Generate().String(),
		UserID:      userID,
		TemplateID:  f.node.Generate(),
		ProgramID:   f.node.Generate(),
		AmountCents: 500,
		Stacking:    "exclusive",
		Active:      true,
		ValidTo:     validTo,
	}
	require.NoError(t, f.conn.Create(coupon).Error)
	require.NoError(t, f.conn.Create(&domain.UserCoupon{
		ID:       f.node.Generate(),
		UserID:   userID,
		CouponID: coupon.ID,
		Status:   status,
	}).Error)
}

func TestWallet_FiltersByStatus(t *testing.T) {
	f := newFixture(t)
	userID := f.node.Generate()
	f.seedCoupon(t, userID, domain.WalletStatusAvailable, nil)
	f.seedCoupon(t, userID, domain.WalletStatusUsed, nil)
	f.seedCoupon(t, f.node.Generate(), domain.WalletStatusAvailable, nil)

	all, err := f.svc.Wallet(context.Background(), domain.WalletRequest{UserID: userID.String()})
	require.NoError(t, err)
	assert.Len(t, all.Items, 2)
	assert.False(t, all.PageInfo.HasMore)

	available, err := f.svc.Wallet(context.Background(), domain.WalletRequest{
		UserID: userID.String(),
		Status: "available",
	})
	require.NoError(t, err)
	require.Len(t, available.Items, 1)
	assert.Equal(t, domain.WalletStatusAvailable, available.Items[0].Status)
	assert.Equal(t, int64(500), available.Items[0].AmountCents)
}

func TestWallet_RejectsBadInput(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Wallet(context.Background(), domain.WalletRequest{UserID: "nope"})
	assert.ErrorIs(t, err, domain.ErrInvalidUserID)

	_, err = f.svc.Wallet(context.Background(), domain.WalletRequest{
		UserID: f.node.Generate().String(),
		Status: "revoked",
	})
	assert.Error(t, err)
}

func TestExpireStale_MovesOnlyClosedWindows(t *testing.T) {
	f := newFixture(t)
	userID := f.node.Generate()

	past := f.clock.Now().Add(-time.Hour)
	future := f.clock.Now().Add(time.Hour)
	f.seedCoupon(t, userID, domain.WalletStatusAvailable, &past)
	f.seedCoupon(t, userID, domain.WalletStatusAvailable, &future)
	f.seedCoupon(t, userID, domain.WalletStatusUsed, &past)

	moved, err := f.svc.ExpireStale(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), moved)

	expired, err := f.svc.Wallet(context.Background(), domain.WalletRequest{
		UserID: userID.String(),
		Status: "expired",
	})
	require.NoError(t, err)
	assert.Len(t, expired.Items, 1)
}

func TestWallet_CursorPagination(t *testing.T) {
	f := newFixture(t)
	userID := f.node.Generate()

	// Distinct created_at values so the keyset cursor has something to
	// bite on.
	base := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		coupon := &domain.Coupon{
			ID:          f.node.Generate(),
			Code:        f.node.Generate().String(),
			UserID:      userID,
			TemplateID:  f.node.Generate(),
			ProgramID:   f.node.Generate(),
			AmountCents: 100,
			Stacking:    "exclusive",
			Active:      true,
		}
		require.NoError(t, f.conn.Create(coupon).Error)
		require.NoError(t, f.conn.Create(&domain.UserCoupon{
			ID:        f.node.Generate(),
			UserID:    userID,
			CouponID:  coupon.ID,
			Status:    domain.WalletStatusAvailable,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
			UpdatedAt: base.Add(time.Duration(i) * time.Minute),
		}).Error)
	}

	first, err := f.svc.Wallet(context.Background(), domain.WalletRequest{
		UserID: userID.String(),
		Limit:  2,
	})
	require.NoError(t, err)
	require.Len(t, first.Items, 2)
	assert.True(t, first.PageInfo.HasMore)
	require.NotEmpty(t, first.PageInfo.NextPageToken)

	second, err := f.svc.Wallet(context.Background(), domain.WalletRequest{
		UserID:    userID.String(),
		Limit:     2,
		PageToken: first.PageInfo.NextPageToken,
	})
	require.NoError(t, err)
	require.Len(t, second.Items, 2)
	assert.True(t, second.PageInfo.HasMore)

	// No overlap between pages.
	seen := map[string]bool{}
	for _, item := range append(first.Items, second.Items...) {
		assert.False(t, seen[item.CouponID])
		seen[item.CouponID] = true
	}

	third, err := f.svc.Wallet(context.Background(), domain.WalletRequest{
		UserID:    userID.String(),
		Limit:     2,
		PageToken: second.PageInfo.NextPageToken,
	})
	require.NoError(t, err)
	assert.Len(t, third.Items, 1)
	assert.False(t, third.PageInfo.HasMore)
}
