// Package postgres opens the event store database and manages throw-away
// databases for tests.
package postgres

import (
	"database/sql"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/Layr-Labs/delegate-tracker/internal/config"
	"github.com/Layr-Labs/delegate-tracker/internal/tests"
	"github.com/Layr-Labs/delegate-tracker/pkg/postgres/migrations"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const defaultSSLMode = "disable"

var validSSLModes = []string{
	"disable",
	"require",
	"verify-ca",
	"verify-full",
}

var duplicateKeyRegex = regexp.MustCompile(`duplicate key value violates unique constraint`)

type PostgresConfig struct {
	Host                string
	Port                int
	Username            string
	Password            string
	DbName              string
	CreateDbIfNotExists bool
	// SchemaName sets the search_path; empty uses "public"
	SchemaName  string
	SSLMode     string
	SSLCert     string
	SSLKey      string
	SSLRootCert string
}

type Postgres struct {
	Db *sql.DB
}

func PostgresConfigFromDbConfig(dbCfg *config.DatabaseConfig) *PostgresConfig {
	return &PostgresConfig{
		Host:        dbCfg.Host,
		Port:        dbCfg.Port,
		Username:    dbCfg.User,
		Password:    dbCfg.Password,
		DbName:      dbCfg.DbName,
		SchemaName:  dbCfg.SchemaName,
		SSLMode:     dbCfg.SSLMode,
		SSLCert:     dbCfg.SSLCert,
		SSLKey:      dbCfg.SSLKey,
		SSLRootCert: dbCfg.SSLRootCert,
	}
}

// getPostgresConnectionString builds a libpq keyword/value connection string.
func getPostgresConnectionString(cfg *PostgresConfig) (string, error) {
	sslMode := defaultSSLMode
	if cfg.SSLMode != "" {
		if !slices.Contains(validSSLModes, cfg.SSLMode) {
			return "", fmt.Errorf("invalid ssl mode: %s. Must be one of: %s", cfg.SSLMode, strings.Join(validSSLModes, ", "))
		}
		sslMode = cfg.SSLMode
	}

	parts := []string{fmt.Sprintf("host=%s", cfg.Host)}
	if cfg.Username != "" {
		parts = append(parts, fmt.Sprintf("user=%s", cfg.Username))
	}
	if cfg.Password != "" {
		parts = append(parts, fmt.Sprintf("password=%s", cfg.Password))
	}
	parts = append(parts,
		fmt.Sprintf("dbname=%s", cfg.DbName),
		fmt.Sprintf("port=%d", cfg.Port),
		fmt.Sprintf("sslmode=%s", sslMode),
		"TimeZone=UTC",
	)
	if cfg.SchemaName != "" {
		parts = append(parts, fmt.Sprintf("search_path=%s", cfg.SchemaName))
	}
	if sslMode != defaultSSLMode {
		if cfg.SSLCert != "" {
			parts = append(parts, fmt.Sprintf("sslcert=%s", cfg.SSLCert))
		}
		if cfg.SSLKey != "" {
			parts = append(parts, fmt.Sprintf("sslkey=%s", cfg.SSLKey))
		}
		if cfg.SSLRootCert != "" {
			parts = append(parts, fmt.Sprintf("sslrootcert=%s", cfg.SSLRootCert))
		}
	}
	return strings.Join(parts, " "), nil
}

// getPostgresRootConnection connects to the server's "postgres" database for
// creating and dropping databases.
func getPostgresRootConnection(cfg *PostgresConfig) (*sql.DB, error) {
	rootCfg := *cfg
	rootCfg.DbName = "postgres"
	rootCfg.SchemaName = ""

	connStr, err := getPostgresConnectionString(&rootCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres connection string: %w", err)
	}
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("error connecting to postgres database: %w", err)
	}
	return db, nil
}

func CreateDatabaseIfNotExists(cfg *PostgresConfig) error {
	rootDb, err := getPostgresRootConnection(cfg)
	if err != nil {
		return err
	}
	defer rootDb.Close()

	var exists bool
	err = rootDb.QueryRow(`SELECT EXISTS(SELECT datname FROM pg_catalog.pg_database WHERE datname = $1)`, cfg.DbName).Scan(&exists)
	if err != nil {
		return fmt.Errorf("error checking if database exists: %w", err)
	}
	if exists {
		return nil
	}
	if _, err = rootDb.Exec(fmt.Sprintf("CREATE DATABASE %s", cfg.DbName)); err != nil {
		return fmt.Errorf("error creating database: %w", err)
	}
	return nil
}

func DeleteTestDatabase(cfg *PostgresConfig, dbName string) error {
	rootDb, err := getPostgresRootConnection(cfg)
	if err != nil {
		return err
	}
	defer rootDb.Close()

	if _, err = rootDb.Exec(fmt.Sprintf("DROP DATABASE %s", dbName)); err != nil {
		return fmt.Errorf("error dropping database: %w", err)
	}
	return nil
}

func NewPostgres(cfg *PostgresConfig) (*Postgres, error) {
	if cfg.CreateDbIfNotExists {
		if err := CreateDatabaseIfNotExists(cfg); err != nil {
			return nil, fmt.Errorf("failed to create database if not exists: %w", err)
		}
	}
	connectString, err := getPostgresConnectionString(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres connection string: %w", err)
	}

	db, err := sql.Open("postgres", connectString)
	if err != nil {
		return nil, fmt.Errorf("failed to setup database: %w", err)
	}
	return &Postgres{Db: db}, nil
}

func NewGormFromPostgresConnection(pgDb *sql.DB) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.New(postgres.Config{
		Conn: pgDb,
	}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to setup database: %w", err)
	}
	return db, nil
}

// ConnectAndMigrate opens the configured database, creating it if needed, and
// applies every pending migration.
func ConnectAndMigrate(cfg *config.Config, l *zap.Logger) (*sql.DB, *gorm.DB, error) {
	pgConfig := PostgresConfigFromDbConfig(&cfg.DatabaseConfig)
	pgConfig.CreateDbIfNotExists = true

	pg, err := NewPostgres(pgConfig)
	if err != nil {
		return nil, nil, err
	}
	grm, err := NewGormFromPostgresConnection(pg.Db)
	if err != nil {
		return nil, nil, err
	}

	migrator := migrations.NewMigrator(pg.Db, grm, l, cfg)
	if err := migrator.MigrateAll(); err != nil {
		return nil, nil, err
	}
	return pg.Db, grm, nil
}

// GetTestPostgresDatabase creates a uniquely named database with every
// migration applied. Callers drop it with TeardownTestDatabase.
func GetTestPostgresDatabase(cfg config.DatabaseConfig, gCfg *config.Config, l *zap.Logger) (
	string,
	*sql.DB,
	*gorm.DB,
	error,
) {
	testDbName, err := tests.GenerateTestDbName()
	if err != nil {
		return testDbName, nil, nil, err
	}
	cfg.DbName = testDbName

	pgConfig := PostgresConfigFromDbConfig(&cfg)
	pgConfig.CreateDbIfNotExists = true

	pg, err := NewPostgres(pgConfig)
	if err != nil {
		return testDbName, nil, nil, err
	}

	grm, err := NewGormFromPostgresConnection(pg.Db)
	if err != nil {
		return testDbName, nil, nil, err
	}

	migrator := migrations.NewMigrator(pg.Db, grm, l, gCfg)
	if err = migrator.MigrateAll(); err != nil {
		return testDbName, nil, nil, err
	}

	return testDbName, pg.Db, grm, nil
}

func TeardownTestDatabase(dbname string, cfg *config.Config, db *gorm.DB, l *zap.Logger) {
	rawDb, _ := db.DB()
	_ = rawDb.Close()

	pgConfig := PostgresConfigFromDbConfig(&cfg.DatabaseConfig)

	if err := DeleteTestDatabase(pgConfig, dbname); err != nil {
		l.Sugar().Errorw("Failed to delete test database", "error", err)
	}
}

func IsDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	return duplicateKeyRegex.MatchString(err.Error())
}
