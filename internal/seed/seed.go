package seed

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/tably/tably/internal/config"
	programdomain "github.com/tably/tably/internal/couponprogram/domain"
	templatedomain "github.com/tably/tably/internal/coupontemplate/domain"
	userdomain "github.com/tably/tably/internal/userdirectory/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var Module = fx.Module("seed",
	fx.Invoke(Run),
)

// Run plants a demo user, template and push program so a fresh dev
// environment has something to issue against. Skipped outside dev and
// when the tables already hold data.
func Run(cfg config.Config, db *gorm.DB, genID *snowflake.Node, log *zap.Logger) error {
	if !cfg.SeedDemoData {
		return nil
	}
	log = log.Named("seed")

	ctx := context.Background()
	var users int64
	if err := db.WithContext(ctx).Model(&userdomain.User{}).Count(&users).Error; err != nil {
		return err
	}
	if users > 0 {
		return nil
	}

	now := time.Now().UTC()
	user := &userdomain.User{
		ID:        genID.Generate(),
		Name:      "Demo Diner",
		Phone:     "+15550100",
		CreatedAt: now,
		UpdatedAt: now,
	}

	template := &templatedomain.CouponTemplate{
		ID:     genID.Generate(),
		Title:  "Five dollars off",
		Status: templatedomain.TemplateStatusActive,
		UseRule: datatypes.JSONMap{
			"type":         "fixed_amount",
			"scope":        "order",
			"amount_cents": float64(500),
		},
		IssuePolicy: datatypes.JSONMap{
			"mode":            "manual",
			"expires_in_days": float64(30),
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	lineItems := datatypes.JSON([]byte(`[{"template_id":"` + template.ID.String() + `","quantity":1}]`))
	program := &programdomain.CouponProgram{
		ID:          genID.Generate(),
		Name:        "Welcome push",
		Status:      programdomain.ProgramStatusActive,
		Mode:        programdomain.ModeAdminPush,
		Eligibility: datatypes.JSONMap{},
		LineItems:   lineItems,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		if err := tx.Create(template).Error; err != nil {
			return err
		}
		if err := tx.Create(program).Error; err != nil {
			return err
		}
		log.Info("demo data seeded",
			zap.String("user_id", user.ID.String()),
			zap.String("program_id", program.ID.String()),
		)
		return nil
	})
}
