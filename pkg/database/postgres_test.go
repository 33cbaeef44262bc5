package database

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/civic-connect/civic-api/pkg/config"
)

func TestDSN(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{Host: "db", Port: 5432, User: "civic", Password: "pw", Name: "civic", SSLMode: "disable"})
	assert.Equal(t, "host=db port=5432 user=civic password=pw dbname=civic sslmode=disable", dsn)
}

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := migrationFiles.ReadDir("migrations")
	assert.NoError(t, err)
	assert.Len(t, entries, 2)
}
