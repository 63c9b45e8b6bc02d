package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/Layr-Labs/delegate-tracker/internal/config"
	"github.com/Layr-Labs/delegate-tracker/pkg/parser"
	"github.com/Layr-Labs/delegate-tracker/pkg/postgres/helpers"
	"github.com/Layr-Labs/delegate-tracker/pkg/storage"
	"github.com/Layr-Labs/delegate-tracker/pkg/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const insertBatchSize = 500

type PostgresEventStore struct {
	Db           *gorm.DB
	Logger       *zap.Logger
	GlobalConfig *config.Config
}

func NewPostgresEventStore(db *gorm.DB, l *zap.Logger, cfg *config.Config) *PostgresEventStore {
	return &PostgresEventStore{
		Db:           db,
		Logger:       l,
		GlobalConfig: cfg,
	}
}

func normalizeAddresses(addresses []string) []string {
	return utils.Map(addresses, func(a string, i uint64) string {
		return utils.NormalizeAddress(a)
	})
}

func (s *PostgresEventStore) SaveContractEvents(
	ctx context.Context,
	contractAddress string,
	events []*parser.DelegationEvent,
	fromBlock uint64,
	toBlock string,
) (int64, error) {
	contractAddress = utils.NormalizeAddress(contractAddress)

	rows := utils.Map(events, func(e *parser.DelegationEvent, i uint64) *storage.DelegationEvent {
		return storage.NewDelegationEventFromParsed(e)
	})

	return helpers.WrapTxAndCommit(ctx, func(tx *gorm.DB) (int64, error) {
		var inserted int64
		if len(rows) > 0 {
			res := tx.Model(&storage.DelegationEvent{}).
				Clauses(clause.OnConflict{
					Columns: []clause.Column{
						{Name: "transaction_hash"},
						{Name: "log_index"},
					},
					DoNothing: true,
				}).
				CreateInBatches(rows, insertBatchSize)
			if res.Error != nil {
				return 0, fmt.Errorf("failed to insert delegation events for '%s': %w", contractAddress, res.Error)
			}
			inserted = res.RowsAffected
		}

		sync := &storage.ContractSync{
			ContractAddress: contractAddress,
			FromBlock:       fromBlock,
			ToBlock:         toBlock,
			EventCount:      uint64(len(rows)),
			SyncedAt:        time.Now().UTC(),
		}
		res := tx.Model(&storage.ContractSync{}).
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "contract_address"}},
				UpdateAll: true,
			}).
			Create(sync)
		if res.Error != nil {
			return 0, fmt.Errorf("failed to record sync for '%s': %w", contractAddress, res.Error)
		}

		s.Logger.Sugar().Debugw("Saved contract events",
			zap.String("contractAddress", contractAddress),
			zap.Int("events", len(rows)),
			zap.Int64("inserted", inserted),
		)
		return inserted, nil
	}, s.Db, nil)
}

// ListDelegationEvents returns the stored events of the given contracts, or of
// every contract when none are given, in chain order.
func (s *PostgresEventStore) ListDelegationEvents(ctx context.Context, contractAddresses []string) ([]*parser.DelegationEvent, error) {
	rows := make([]*storage.DelegationEvent, 0)

	query := s.Db.WithContext(ctx).Model(&storage.DelegationEvent{})
	if len(contractAddresses) > 0 {
		query = query.Where("contract_address in ?", normalizeAddresses(contractAddresses))
	}
	res := query.Order("block_number asc, log_index asc").Find(&rows)
	if res.Error != nil {
		return nil, fmt.Errorf("failed to list delegation events: %w", res.Error)
	}

	return utils.Map(rows, func(r *storage.DelegationEvent, i uint64) *parser.DelegationEvent {
		return r.ToParsed()
	}), nil
}

func (s *PostgresEventStore) ListContractSyncs(ctx context.Context, contractAddresses []string) ([]*storage.ContractSync, error) {
	syncs := make([]*storage.ContractSync, 0)

	query := s.Db.WithContext(ctx).Model(&storage.ContractSync{})
	if len(contractAddresses) > 0 {
		query = query.Where("contract_address in ?", normalizeAddresses(contractAddresses))
	}
	res := query.Order("contract_address asc").Find(&syncs)
	if res.Error != nil {
		return nil, fmt.Errorf("failed to list contract syncs: %w", res.Error)
	}
	return syncs, nil
}

func (s *PostgresEventStore) CountDelegationEvents(ctx context.Context) (uint64, error) {
	var count int64
	res := s.Db.WithContext(ctx).Model(&storage.DelegationEvent{}).Count(&count)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to count delegation events: %w", res.Error)
	}
	return uint64(count), nil
}
