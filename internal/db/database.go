package db

import (
	"fmt"
	"os"

	"commhub/pkg/models"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase creates a new database connection
func NewDatabase() (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
		os.Getenv("DB_HOST"),
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_NAME"),
		os.Getenv("DB_PORT"),
		os.Getenv("DB_SSLMODE"),
		os.Getenv("DB_TIMEZONE"),
	)

	config := &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Error),
		DisableForeignKeyConstraintWhenMigrating: false,
	}

	db, err := gorm.Open(postgres.Open(dsn), config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return db, nil
}

// orgScopedTables are the tables carrying organization_id that get a row
// level security policy on top of the application-side scoping.
var orgScopedTables = []string{
	"contacts",
	"conversations",
	"messages",
	"campaigns",
	"templates",
	"appointments",
}

// AutoMigrate runs database migrations using GORM
func AutoMigrate(db *gorm.DB) error {
	log.Info().Msg("running GORM AutoMigrate")

	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`).Error; err != nil {
		log.Warn().Err(err).Msg("could not create uuid-ossp extension")
	}

	if err := db.AutoMigrate(models.GetAllModels()...); err != nil {
		return fmt.Errorf("failed to run GORM AutoMigrate: %w", err)
	}

	if err := createCustomIndexes(db); err != nil {
		log.Warn().Err(err).Msg("failed to create some custom indexes")
	}

	if err := enableRowLevelSecurity(db); err != nil {
		return fmt.Errorf("failed to apply row level security: %w", err)
	}

	log.Info().Msg("GORM AutoMigrate completed")
	return nil
}

// createCustomIndexes creates any custom indexes that GORM might not handle
func createCustomIndexes(db *gorm.DB) error {
	indexes := []string{
		// One thread per contact and channel inside an organization
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_conversations_org_contact_channel ON conversations(organization_id, contact_id, channel) WHERE deleted_at IS NULL`,

		// One template name per organization
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_templates_org_name ON templates(organization_id, name) WHERE deleted_at IS NULL`,

		// Inbox ordering
		`CREATE INDEX IF NOT EXISTS idx_conversations_org_last_message ON conversations(organization_id, last_message_at DESC NULLS LAST)`,

		// Thread pagination
		`CREATE INDEX IF NOT EXISTS idx_messages_conversation_created ON messages(conversation_id, created_at)`,

		// Campaign history ordering
		`CREATE INDEX IF NOT EXISTS idx_campaigns_org_sent ON campaigns(organization_id, sent_at DESC NULLS FIRST)`,

		// Tag containment lookups for campaign audiences
		`CREATE INDEX IF NOT EXISTS idx_contacts_tags ON contacts USING gin(tags)`,
	}

	for _, idx := range indexes {
		if err := db.Exec(idx).Error; err != nil {
			log.Warn().Err(err).Str("index", idx).Msg("failed to create index")
		}
	}

	return nil
}

// enableRowLevelSecurity turns on Postgres RLS for every org-scoped table.
// The API role owns the tables and is not FORCEd through the policies;
// request-path scoping is the repositories' organization_id filtering. The
// policies key on app.org_id and guard non-owner roles (reporting and
// ad-hoc SQL sessions), which must SET LOCAL app.org_id in a transaction
// or see no rows at all.
func enableRowLevelSecurity(db *gorm.DB) error {
	for _, table := range orgScopedTables {
		stmts := []string{
			fmt.Sprintf(`ALTER TABLE %s ENABLE ROW LEVEL SECURITY`, table),
			fmt.Sprintf(`DROP POLICY IF EXISTS org_isolation ON %s`, table),
			fmt.Sprintf(`CREATE POLICY org_isolation ON %s
				USING (organization_id = NULLIF(current_setting('app.org_id', true), '')::uuid)
				WITH CHECK (organization_id = NULLIF(current_setting('app.org_id', true), '')::uuid)`, table),
		}
		for _, stmt := range stmts {
			if err := db.Exec(stmt).Error; err != nil {
				return fmt.Errorf("table %s: %w", table, err)
			}
		}
	}
	return nil
}

// SeedInitialData creates the platform operator account and the onboarding
// organization on first boot
func SeedInitialData(db *gorm.DB) error {
	log.Info().Msg("seeding initial data")

	var orgCount int64
	if err := db.Model(&models.Organization{}).Where("name = ?", "Onboarding").Count(&orgCount).Error; err != nil {
		return fmt.Errorf("failed to check onboarding organization: %w", err)
	}
	if orgCount == 0 {
		org := models.Organization{
			Name:   "Onboarding",
			Plan:   models.PlanFree,
			Status: models.OrgStatusActive,
		}
		if err := db.Create(&org).Error; err != nil {
			return fmt.Errorf("failed to create onboarding organization: %w", err)
		}
	}

	var userCount int64
	if err := db.Model(&models.User{}).Where("role = ?", models.RoleSuperAdmin).Count(&userCount).Error; err != nil {
		return fmt.Errorf("failed to check existing users: %w", err)
	}

	if userCount == 0 {
		email := os.Getenv("SUPER_ADMIN_EMAIL")
		hash := os.Getenv("SUPER_ADMIN_PASSWORD_HASH")
		if email == "" || hash == "" {
			log.Warn().Msg("SUPER_ADMIN_EMAIL/SUPER_ADMIN_PASSWORD_HASH not set, skipping operator seed")
			return nil
		}

		adminUser := models.User{
			Email:       email,
			Password:    hash,
			Name:        "Platform Operator",
			Role:        models.RoleSuperAdmin,
			Avatar:      models.AvatarURL(email),
			Status:      models.PresenceOffline,
			Performance: models.DefaultPerformance(),
			IsActive:    true,
		}

		if err := db.Create(&adminUser).Error; err != nil {
			return fmt.Errorf("failed to create operator user: %w", err)
		}

		log.Info().Str("email", email).Msg("platform operator created")
	}

	return nil
}

// RunMigrations is the main migration function called from main.go
func RunMigrations(db *gorm.DB) error {
	log.Info().Msg("starting database migrations")

	if err := AutoMigrate(db); err != nil {
		return fmt.Errorf("AutoMigrate failed: %w", err)
	}

	if err := SeedInitialData(db); err != nil {
		return fmt.Errorf("initial data seeding failed: %w", err)
	}

	log.Info().Msg("all migrations completed")
	return nil
}
