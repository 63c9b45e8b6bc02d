package _202601150905_trackerVersions

import (
	"database/sql"

	"github.com/Layr-Labs/delegate-tracker/internal/config"
	"gorm.io/gorm"
)

type Migration struct {
}

func (m *Migration) Up(db *sql.DB, grm *gorm.DB, cfg *config.Config) error {

	query := `
		create table if not exists tracker_versions (
			id serial primary key,
			version text not null,
			events_at_launch bigint not null,
			created_at timestamp with time zone default current_timestamp
		)
	`
	res := grm.Exec(query)
	return res.Error
}

func (m *Migration) GetName() string {
	return "202601150905_trackerVersions"
}
