package helpers

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/Layr-Labs/delegate-tracker/internal/config"
	"github.com/Layr-Labs/delegate-tracker/internal/tests"
	"github.com/Layr-Labs/delegate-tracker/pkg/logger"
	"github.com/Layr-Labs/delegate-tracker/pkg/postgres"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type txProbe struct {
	Id    uint64 `gorm:"primaryKey"`
	Value string
}

func setup(t *testing.T) (string, *gorm.DB, *config.Config, *zap.Logger) {
	cfg := config.NewConfig()
	cfg.DatabaseConfig = *tests.GetDbConfigFromEnv()

	l, err := logger.NewLogger(&logger.LoggerConfig{Debug: false})
	assert.Nil(t, err)

	dbname, _, grm, err := postgres.GetTestPostgresDatabase(cfg.DatabaseConfig, cfg, l)
	assert.Nil(t, err)
	assert.Nil(t, grm.AutoMigrate(&txProbe{}))
	return dbname, grm, cfg, l
}

func Test_WrapTxAndCommit(t *testing.T) {
	if !tests.DatabaseTestsEnabled() {
		t.Skip("Skipping database tests")
	}
	dbname, grm, cfg, l := setup(t)
	defer postgres.TeardownTestDatabase(dbname, cfg, grm, l)

	ctx := context.Background()

	t.Run("Should commit when the function succeeds", func(t *testing.T) {
		res, err := WrapTxAndCommit(ctx, func(tx *gorm.DB) (int64, error) {
			r := tx.Create(&txProbe{Id: 1, Value: "committed"})
			return r.RowsAffected, r.Error
		}, grm, nil)
		assert.Nil(t, err)
		assert.Equal(t, int64(1), res)

		var count int64
		grm.Model(&txProbe{}).Where("id = ?", 1).Count(&count)
		assert.Equal(t, int64(1), count)
	})
	t.Run("Should roll back when the function fails", func(t *testing.T) {
		_, err := WrapTxAndCommit(ctx, func(tx *gorm.DB) (int64, error) {
			if r := tx.Create(&txProbe{Id: 2, Value: "rolled back"}); r.Error != nil {
				return 0, r.Error
			}
			return 0, fmt.Errorf("boom")
		}, grm, nil)
		assert.EqualError(t, err, "boom")

		var count int64
		grm.Model(&txProbe{}).Where("id = ?", 2).Count(&count)
		assert.Equal(t, int64(0), count)
	})
	t.Run("Should leave an existing transaction open", func(t *testing.T) {
		outer := grm.Begin()
		_, err := WrapTxAndCommit(ctx, func(tx *gorm.DB) (int64, error) {
			r := tx.Create(&txProbe{Id: 3, Value: "outer"})
			return r.RowsAffected, r.Error
		}, grm, outer)
		assert.Nil(t, err)
		assert.Nil(t, outer.Rollback().Error)

		var count int64
		grm.Model(&txProbe{}).Where("id = ?", 3).Count(&count)
		assert.Equal(t, int64(0), count)
	})
	t.Run("Should return the error of the function unchanged", func(t *testing.T) {
		sentinel := errors.New("sentinel")
		_, err := WrapTxAndCommit(ctx, func(tx *gorm.DB) (string, error) {
			return "", sentinel
		}, grm, nil)
		assert.True(t, errors.Is(err, sentinel))
	})
}
