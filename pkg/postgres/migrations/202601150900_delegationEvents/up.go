package _202601150900_delegationEvents

import (
	"database/sql"

	"github.com/Layr-Labs/delegate-tracker/internal/config"
	"gorm.io/gorm"
)

type Migration struct {
}

func (m *Migration) Up(db *sql.DB, grm *gorm.DB, cfg *config.Config) error {
	queries := []string{
		`create table if not exists delegation_events (
			id serial primary key,
			contract_address varchar not null,
			delegate_address varchar not null,
			event_type varchar not null,
			event_date date not null,
			amount numeric not null,
			block_number bigint not null,
			transaction_hash varchar not null,
			log_index bigint not null,
			created_at timestamp with time zone default current_timestamp,
			unique(transaction_hash, log_index)
		)`,
		`create index if not exists idx_delegation_events_contract_date on delegation_events (contract_address, event_date)`,
	}
	for _, query := range queries {
		res := grm.Exec(query)
		if res.Error != nil {
			return res.Error
		}
	}
	return nil
}

func (m *Migration) GetName() string {
	return "202601150900_delegationEvents"
}
