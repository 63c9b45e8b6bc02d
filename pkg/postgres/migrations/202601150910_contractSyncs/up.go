package _202601150910_contractSyncs

import (
	"database/sql"

	"github.com/Layr-Labs/delegate-tracker/internal/config"
	"gorm.io/gorm"
)

type Migration struct {
}

func (m *Migration) Up(db *sql.DB, grm *gorm.DB, cfg *config.Config) error {
	query := `
	create table if not exists contract_syncs (
		contract_address varchar primary key,
		from_block bigint not null,
		to_block varchar not null,
		event_count bigint not null,
		synced_at timestamp with time zone default current_timestamp
	)`

	res := grm.Exec(query)
	if res.Error != nil {
		return res.Error
	}
	return nil
}

func (m *Migration) GetName() string {
	return "202601150910_contractSyncs"
}
