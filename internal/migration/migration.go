package migration

import (
	"embed"
	"errors"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/tably/tably/internal/config"
	coupondomain "github.com/tably/tably/internal/coupon/domain"
	programdomain "github.com/tably/tably/internal/couponprogram/domain"
	templatedomain "github.com/tably/tably/internal/coupontemplate/domain"
	issuancedomain "github.com/tably/tably/internal/issuance/domain"
	orderdomain "github.com/tably/tably/internal/order/domain"
	userdomain "github.com/tably/tably/internal/userdirectory/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

var Module = fx.Module("migration",
	fx.Invoke(Run),
)

// Run brings the schema up to date. Postgres uses the embedded
// versioned migrations; sqlite and mysql fall back to AutoMigrate, which
// keeps local development and tests schema-free.
func Run(cfg config.Config, db *gorm.DB, log *zap.Logger) error {
	log = log.Named("migration")

	if cfg.DBType == "postgres" {
		return runVersioned(db, log)
	}
	return runAuto(db, log)
}

func runVersioned(db *gorm.DB, log *zap.Logger) error {
	source, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	driver, err := postgres.WithInstance(sqlDB, &postgres.Config{})
	if err != nil {
		return err
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			log.Info("schema already up to date")
			return nil
		}
		return err
	}

	version, dirty, err := m.Version()
	if err != nil {
		return err
	}
	log.Info("schema migrated", zap.Uint("version", version), zap.Bool("dirty", dirty))
	return nil
}

func runAuto(db *gorm.DB, log *zap.Logger) error {
	err := db.AutoMigrate(
		&userdomain.User{},
		&templatedomain.CouponTemplate{},
		&programdomain.CouponProgram{},
		&coupondomain.Coupon{},
		&coupondomain.UserCoupon{},
		&issuancedomain.IssuanceReceipt{},
		&orderdomain.Order{},
		&orderdomain.OrderAmendment{},
	)
	if err != nil {
		return err
	}
	log.Info("schema auto-migrated")
	return nil
}
