package service

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	templatedomain "github.com/tably/tably/internal/coupontemplate/domain"
	"github.com/tably/tably/internal/order/domain"
	"github.com/tably/tably/internal/order/repository"
	"github.com/tably/tably/pkg/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	svc  domain.Service
	conn *gorm.DB
	node *snowflake.Node
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&domain.Order{}, &domain.OrderAmendment{}))

	node, err := snowflake.NewNode(4)
	require.NoError(t, err)

	svc := New(Params{
		DB:    conn,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  repository.Provide(),
	})
	return &fixture{svc: svc, conn: conn, node: node}
}

func (f *fixture) createOrder(t *testing.T) *domain.Response {
	t.Helper()
	resp, err := f.svc.Create(context.Background(), domain.CreateRequest{
		UserID:        f.node.Generate().String(),
		SubtotalCents: 2500,
		DiscountCents: 500,
	})
	require.NoError(t, err)
	return resp
}

func (f *fixture) setStatus(t *testing.T, id string, status domain.OrderStatus) {
	t.Helper()
	require.NoError(t, f.conn.Exec(`UPDATE orders SET status = ? WHERE id = ?`, status, id).Error)
}

func TestCreate_ComputesTotal(t *testing.T) {
	f := newFixture(t)
	order := f.createOrder(t)

	assert.Equal(t, domain.StatusPending, order.Status)
	assert.Equal(t, int64(2000), order.TotalCents)
}

func TestSetStatus_LegalAndIllegalMoves(t *testing.T) {
	f := newFixture(t)
	order := f.createOrder(t)
	ctx := context.Background()

	moved, err := f.svc.SetStatus(ctx, domain.SetStatusRequest{ID: order.ID, Status: "paid"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaid, moved.Status)

	// Skipping straight to ready is not a legal move from paid.
	_, err = f.svc.SetStatus(ctx, domain.SetStatusRequest{ID: order.ID, Status: "ready"})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	// Refund branches off the making path.
	_, err = f.svc.SetStatus(ctx, domain.SetStatusRequest{ID: order.ID, Status: "making"})
	require.NoError(t, err)
	refunded, err := f.svc.SetStatus(ctx, domain.SetStatusRequest{ID: order.ID, Status: "refunded"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRefunded, refunded.Status)

	// Terminal states accept nothing further.
	_, err = f.svc.SetStatus(ctx, domain.SetStatusRequest{ID: order.ID, Status: "paid"})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestSetStatus_CASConflict(t *testing.T) {
	f := newFixture(t)
	order := f.createOrder(t)

	// The caller believes the order is still pending, but a concurrent
	// clerk already moved it.
	f.setStatus(t, order.ID, domain.StatusPaid)

	_, err := f.svc.SetStatus(context.Background(), domain.SetStatusRequest{
		ID:             order.ID,
		Status:         "paid",
		ExpectedStatus: "pending",
	})
	assert.ErrorIs(t, err, domain.ErrStatusConflict)
}

func TestAdvance_WalksHappyPath(t *testing.T) {
	f := newFixture(t)
	order := f.createOrder(t)
	ctx := context.Background()

	want := []domain.OrderStatus{
		domain.StatusPaid, domain.StatusMaking, domain.StatusReady, domain.StatusCompleted,
	}
	for _, expected := range want {
		resp, err := f.svc.Advance(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, expected, resp.Status)
		assert.False(t, resp.AlreadyTerminal)
	}
}

func TestAdvance_TerminalIsNoop(t *testing.T) {
	f := newFixture(t)
	order := f.createOrder(t)
	f.setStatus(t, order.ID, domain.StatusRefunded)

	resp, err := f.svc.Advance(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRefunded, resp.Status)
	assert.True(t, resp.AlreadyTerminal)
}

func TestCreateAmendment_Gating(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	amend := func(id string) error {
		_, err := f.svc.CreateAmendment(ctx, domain.AmendmentRequest{
			OrderID:     id,
			Type:        "refund",
			AmountCents: 300,
			Reason:      "cold soup",
		})
		return err
	}

	pending := f.createOrder(t)
	assert.ErrorIs(t, amend(pending.ID), domain.ErrOrderNotAmendable)

	paid := f.createOrder(t)
	f.setStatus(t, paid.ID, domain.StatusPaid)
	require.NoError(t, amend(paid.ID))

	completed := f.createOrder(t)
	f.setStatus(t, completed.ID, domain.StatusCompleted)
	require.NoError(t, amend(completed.ID))

	refunded := f.createOrder(t)
	f.setStatus(t, refunded.ID, domain.StatusRefunded)
	assert.ErrorIs(t, amend(refunded.ID), domain.ErrOrderNotAmendable)
}

func TestCreateAmendment_Validation(t *testing.T) {
	f := newFixture(t)
	order := f.createOrder(t)
	f.setStatus(t, order.ID, domain.StatusPaid)
	ctx := context.Background()

	_, err := f.svc.CreateAmendment(ctx, domain.AmendmentRequest{
		OrderID: order.ID, Type: "discount", AmountCents: 100,
	})
	var fieldErr *templatedomain.FieldError
	require.ErrorAs(t, err, &fieldErr)
	assert.Equal(t, "type", fieldErr.Field)

	_, err = f.svc.CreateAmendment(ctx, domain.AmendmentRequest{
		OrderID: order.ID, Type: "surcharge", AmountCents: 0,
	})
	require.ErrorAs(t, err, &fieldErr)
	assert.Equal(t, "amount_cents", fieldErr.Field)
}

func TestListAmendments_OrderedLedger(t *testing.T) {
	f := newFixture(t)
	order := f.createOrder(t)
	f.setStatus(t, order.ID, domain.StatusPaid)
	ctx := context.Background()

	_, err := f.svc.CreateAmendment(ctx, domain.AmendmentRequest{
		OrderID: order.ID, Type: "refund", AmountCents: 200,
	})
	require.NoError(t, err)
	_, err = f.svc.CreateAmendment(ctx, domain.AmendmentRequest{
		OrderID: order.ID, Type: "surcharge", AmountCents: 150,
	})
	require.NoError(t, err)

	ledger, err := f.svc.ListAmendments(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, ledger, 2)
	assert.Equal(t, domain.AmendmentRefund, ledger[0].Type)
	assert.Equal(t, domain.AmendmentSurcharge, ledger[1].Type)
}
