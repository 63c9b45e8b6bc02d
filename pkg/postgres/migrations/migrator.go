package migrations

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/Layr-Labs/delegate-tracker/internal/config"
	_202601150900_delegationEvents "github.com/Layr-Labs/delegate-tracker/pkg/postgres/migrations/202601150900_delegationEvents"
	_202601150905_trackerVersions "github.com/Layr-Labs/delegate-tracker/pkg/postgres/migrations/202601150905_trackerVersions"
	_202601150910_contractSyncs "github.com/Layr-Labs/delegate-tracker/pkg/postgres/migrations/202601150910_contractSyncs"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Migration interface {
	Up(db *sql.DB, grm *gorm.DB, cfg *config.Config) error
	GetName() string
}

type Migrator struct {
	Db           *sql.DB
	GDb          *gorm.DB
	Logger       *zap.Logger
	globalConfig *config.Config
}

// MigrationHistory records every migration that has been applied.
type MigrationHistory struct {
	Name      string `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (MigrationHistory) TableName() string {
	return "migrations"
}

func NewMigrator(db *sql.DB, gDb *gorm.DB, l *zap.Logger, cfg *config.Config) *Migrator {
	return &Migrator{
		Db:           db,
		GDb:          gDb,
		Logger:       l,
		globalConfig: cfg,
	}
}

// GetMigrations returns every migration in the order it must be applied.
func GetMigrations() []Migration {
	return []Migration{
		&_202601150900_delegationEvents.Migration{},
		&_202601150905_trackerVersions.Migration{},
		&_202601150910_contractSyncs.Migration{},
	}
}

func (m *Migrator) MigrateAll() error {
	if err := m.createMigrationsTable(); err != nil {
		return err
	}

	for _, migration := range GetMigrations() {
		if err := m.Migrate(migration); err != nil {
			return err
		}
	}
	return nil
}

func (m *Migrator) createMigrationsTable() error {
	query := `
		create table if not exists migrations (
			name text primary key,
			created_at timestamp with time zone default current_timestamp,
			updated_at timestamp with time zone default null
		)
	`
	res := m.GDb.Exec(query)
	if res.Error != nil {
		return fmt.Errorf("failed to create migrations table: %w", res.Error)
	}
	return nil
}

// Migrate runs a single migration unless it has already been applied.
func (m *Migrator) Migrate(migration Migration) error {
	name := migration.GetName()

	var count int64
	res := m.GDb.Model(&MigrationHistory{}).Where("name = ?", name).Count(&count)
	if res.Error != nil {
		return fmt.Errorf("failed to check migration '%s': %w", name, res.Error)
	}
	if count > 0 {
		m.Logger.Sugar().Debugw("Migration already run", zap.String("name", name))
		return nil
	}

	m.Logger.Sugar().Infow("Running migration", zap.String("name", name))
	if err := migration.Up(m.Db, m.GDb, m.globalConfig); err != nil {
		m.Logger.Sugar().Errorw("Failed to run migration", zap.String("name", name), zap.Error(err))
		return fmt.Errorf("failed to run migration '%s': %w", name, err)
	}

	res = m.GDb.Model(&MigrationHistory{}).Create(&MigrationHistory{
		Name:      name,
		CreatedAt: time.Now(),
	})
	if res.Error != nil {
		return fmt.Errorf("failed to record migration '%s': %w", name, res.Error)
	}
	return nil
}
