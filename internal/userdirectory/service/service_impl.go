package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	templatedomain "github.com/tably/tably/internal/coupontemplate/domain"
	"github.com/tably/tably/internal/userdirectory/domain"
	"github.com/tably/tably/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
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
		log:   p.Log.Named("userdirectory.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Response, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, templatedomain.NewFieldError("name", "required", "name is required")
	}
	phone := domain.NormalizePhone(req.Phone)
	if phone == "" {
		return nil, templatedomain.NewFieldError("phone", "required", "a phone number is required")
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:        s.genID.Generate(),
		Name:      name,
		Phone:     phone,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, s.db, user); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrDuplicatePhone
		}
		return nil, err
	}

	return &domain.Response{
		ID:        user.ID.String(),
		Name:      user.Name,
		Phone:     user.Phone,
		CreatedAt: user.CreatedAt,
	}, nil
}

func (s *Service) Resolve(ctx context.Context, ref domain.UserRef) (*domain.User, error) {
	id := strings.TrimSpace(ref.UserID)
	phone := domain.NormalizePhone(ref.Phone)

	switch {
	case id != "" && phone != "":
		return nil, domain.ErrAmbiguousRef
	case id == "" && phone == "":
		return nil, domain.ErrMissingRef
	}

	if id != "" {
		userID, err := snowflake.ParseString(id)
		if err != nil || userID == 0 {
			return nil, domain.ErrInvalidID
		}
		user, err := s.repo.FindByID(ctx, s.db, userID)
		if err != nil {
			return nil, err
		}
		if user == nil {
			return nil, domain.ErrNotFound
		}
		return user, nil
	}

	user, err := s.repo.FindByPhone(ctx, s.db, phone)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrNotFound
	}
	return user, nil
}
