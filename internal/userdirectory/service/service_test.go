package service

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tably/tably/internal/userdirectory/domain"
	"github.com/tably/tably/internal/userdirectory/repository"
	"github.com/tably/tably/pkg/db"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) domain.Service {
	t.Helper()

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&domain.User{}))

	node, err := snowflake.NewNode(5)
	require.NoError(t, err)

	return New(Params{
		DB:    conn,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  repository.Provide(),
	})
}

func TestCreate_NormalizesPhoneAndRejectsDuplicates(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, domain.CreateRequest{
		Name:  "Diner",
		Phone: "+1 (555) 010-0000",
	})
	require.NoError(t, err)
	assert.Equal(t, "+15550100000", created.Phone)

	// A differently formatted rendering of the same number collides.
	_, err = svc.Create(ctx, domain.CreateRequest{
		Name:  "Other",
		Phone: "+1 555 010 0000",
	})
	assert.ErrorIs(t, err, domain.ErrDuplicatePhone)
}

func TestResolve_ByIDAndPhone(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, domain.CreateRequest{Name: "Diner", Phone: "+15550100"})
	require.NoError(t, err)

	byID, err := svc.Resolve(ctx, domain.UserRef{UserID: created.ID})
	require.NoError(t, err)
	assert.Equal(t, created.ID, byID.ID.String())

	// Garbled input that normalizes differently must not match.
	_, err = svc.Resolve(ctx, domain.UserRef{Phone: "555-0100-1"})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	match, err := svc.Resolve(ctx, domain.UserRef{Phone: "+1 555 0100"})
	require.NoError(t, err)
	assert.Equal(t, created.ID, match.ID.String())
}

func TestResolve_RefValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Resolve(ctx, domain.UserRef{})
	assert.ErrorIs(t, err, domain.ErrMissingRef)

	_, err = svc.Resolve(ctx, domain.UserRef{UserID: "123", Phone: "+15550100"})
	assert.ErrorIs(t, err, domain.ErrAmbiguousRef)

	_, err = svc.Resolve(ctx, domain.UserRef{UserID: "garbage"})
	assert.ErrorIs(t, err, domain.ErrInvalidID)
}
