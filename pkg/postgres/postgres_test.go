package postgres

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_getPostgresConnectionString(t *testing.T) {
	t.Run("Should build a connection string with defaults", func(t *testing.T) {
		connStr, err := getPostgresConnectionString(&PostgresConfig{
			Host:     "localhost",
			Port:     5432,
			Username: "tracker",
			DbName:   "delegates",
		})
		assert.Nil(t, err)
		assert.Equal(t, "host=localhost user=tracker dbname=delegates port=5432 sslmode=disable TimeZone=UTC", connStr)
	})
	t.Run("Should include the schema and certificates", func(t *testing.T) {
		connStr, err := getPostgresConnectionString(&PostgresConfig{
			Host:        "db",
			Port:        6543,
			Password:    "secret",
			DbName:      "delegates",
			SchemaName:  "tracker",
			SSLMode:     "verify-full",
			SSLRootCert: "/certs/root.pem",
		})
		assert.Nil(t, err)
		assert.Equal(t, "host=db password=secret dbname=delegates port=6543 sslmode=verify-full TimeZone=UTC search_path=tracker sslrootcert=/certs/root.pem", connStr)
	})
	t.Run("Should ignore certificates when ssl is disabled", func(t *testing.T) {
		connStr, err := getPostgresConnectionString(&PostgresConfig{Host: "db", Port: 1, DbName: "d", SSLCert: "/c.pem"})
		assert.Nil(t, err)
		assert.NotContains(t, connStr, "sslcert")
	})
	t.Run("Should reject an unknown ssl mode", func(t *testing.T) {
		_, err := getPostgresConnectionString(&PostgresConfig{Host: "db", SSLMode: "prefer"})
		assert.NotNil(t, err)
	})
}

func Test_IsDuplicateKeyError(t *testing.T) {
	assert.True(t, IsDuplicateKeyError(errors.New(`pq: duplicate key value violates unique constraint "delegation_events_transaction_hash_log_index_key"`)))
	assert.False(t, IsDuplicateKeyError(errors.New("connection refused")))
	assert.False(t, IsDuplicateKeyError(nil))
}
