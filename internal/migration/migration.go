package migration

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	bookingdomain "github.com/smallbiznis/printflow/internal/booking/domain"
	catalogdomain "github.com/smallbiznis/printflow/internal/catalog/domain"
	eventdomain "github.com/smallbiznis/printflow/internal/events/domain"
	inventorydomain "github.com/smallbiznis/printflow/internal/inventory/domain"
	invoicedomain "github.com/smallbiznis/printflow/internal/invoice/domain"
	orderdomain "github.com/smallbiznis/printflow/internal/order/domain"
	paymentdomain "github.com/smallbiznis/printflow/internal/payment/domain"
	proofdomain "github.com/smallbiznis/printflow/internal/proofing/domain"
	quotedomain "github.com/smallbiznis/printflow/internal/quote/domain"
	sladomain "github.com/smallbiznis/printflow/internal/sla/domain"
	pkgdb "github.com/smallbiznis/printflow/pkg/db"
	"gorm.io/gorm"
)

const migrationsDir = "migrations"

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// Models lists every table the lifecycle owns, in dependency order.
func Models() []any {
	return []any{
		&catalogdomain.PrintService{},
		&catalogdomain.ServiceOption{},
		&catalogdomain.Tier{},
		&catalogdomain.TierDeliverable{},
		&quotedomain.Quote{},
		&quotedomain.QuoteAnswer{},
		&orderdomain.Order{},
		&orderdomain.OrderStatusHistory{},
		&proofdomain.ProofVersion{},
		&bookingdomain.Booking{},
		&bookingdomain.CapacitySetting{},
		&bookingdomain.CapacityOverride{},
		&bookingdomain.BlackoutDate{},
		&bookingdomain.BookingDay{},
		&paymentdomain.Payment{},
		&paymentdomain.PaymentRefund{},
		&invoicedomain.Invoice{},
		&inventorydomain.InventoryItem{},
		&inventorydomain.MaterialConsumptionRule{},
		&inventorydomain.InventoryTransaction{},
		&sladomain.SlaTimer{},
		&sladomain.SlaBreach{},
		&eventdomain.LifecycleEvent{},
	}
}

// Migrate brings the schema up to date. PostgreSQL runs the versioned SQL
// files; other dialects fall back to AutoMigrate when autoMigrate is set.
func Migrate(conn *gorm.DB, autoMigrate bool) error {
	if pkgdb.IsPostgres(conn) {
		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		return RunMigrations(sqlDB)
	}
	if !autoMigrate {
		return nil
	}
	if err := conn.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

func RunMigrations(db *sql.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}

	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	// Closing the migrator would close the shared *sql.DB.

	return nil
}
