package config

import (
	"fmt"
	"time"

	"github.com/bjscha03/Final-Banner-Site-sub004/models"
	"github.com/bjscha03/Final-Banner-Site-sub004/utils"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Indexes AutoMigrate cannot express. The two partial unique indexes are the
// conflict targets of the snapshot upsert.
var indexStatements = []string{
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_abandoned_carts_active_user
		ON abandoned_carts (user_id) WHERE recovery_status = 'active'`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_abandoned_carts_active_session
		ON abandoned_carts (session_id) WHERE recovery_status = 'active'`,
	`CREATE INDEX IF NOT EXISTS idx_abandoned_carts_status_activity
		ON abandoned_carts (recovery_status, last_activity_at)`,
	`CREATE INDEX IF NOT EXISTS idx_abandoned_carts_status_abandoned
		ON abandoned_carts (recovery_status, abandoned_at)`,
	`CREATE INDEX IF NOT EXISTS idx_cart_recovery_logs_cart_event
		ON cart_recovery_logs (abandoned_cart_id, event_type)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_paid_email
		ON orders (lower(email)) WHERE status = 'paid'`,
}

// InitDB opens the database connection and migrates the schema
func InitDB(cfg *Config) (*gorm.DB, error) {
	if cfg.DatabaseURL == "" {
		return nil, ErrMissingDatabaseURL
	}

	gormConfig := &gorm.Config{
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	}
	if cfg.IsProduction() {
		gormConfig.Logger = logger.Default.LogMode(logger.Silent)
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	if err := Migrate(db); err != nil {
		return nil, err
	}

	DB = db
	utils.LogInfo("Database connected and migrated")
	return db, nil
}

// Migrate creates or updates every table the service owns
func Migrate(db *gorm.DB) error {
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS pgcrypto`).Error; err != nil {
		return fmt.Errorf("failed to enable pgcrypto: %v", err)
	}

	err := db.AutoMigrate(
		&models.AbandonedCart{},
		&models.CartRecoveryLog{},
		&models.DiscountCode{},
		&models.Order{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate database: %v", err)
	}

	for _, stmt := range indexStatements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to create index: %v", err)
		}
	}

	return ensureIdentityConstraint(db)
}

// ensureIdentityConstraint requires every snapshot to carry exactly one of
// user id and session id. The constraint is dropped and re-added so older
// databases pick up the current rule.
func ensureIdentityConstraint(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(`ALTER TABLE abandoned_carts DROP CONSTRAINT IF EXISTS chk_abandoned_carts_identity`).Error; err != nil {
			return fmt.Errorf("failed to drop identity constraint: %v", err)
		}
		err := tx.Exec(`
			ALTER TABLE abandoned_carts
			ADD CONSTRAINT chk_abandoned_carts_identity
			CHECK ((user_id IS NULL) <> (session_id IS NULL))
		`).Error
		if err != nil {
			return fmt.Errorf("failed to add identity constraint: %v", err)
		}
		return nil
	})
}
