package database

import (
	"io/fs"
	"testing"

	"github.com/koustreak/realms/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationURL(t *testing.T) {
	pg := &Config{Driver: DriverPostgres, DSN: "postgres://u:p@db:5432/realms"}
	assert.Equal(t, "postgres://u:p@db:5432/realms", MigrationURL(pg))

	my := &Config{Driver: DriverMySQL, DSN: "u:p@tcp(db:3306)/realms?parseTime=true"}
	assert.Equal(t, "mysql://u:p@tcp(db:3306)/realms?parseTime=true", MigrationURL(my))

	already := &Config{Driver: DriverMySQL, DSN: "mysql://u:p@tcp(db:3306)/realms"}
	assert.Equal(t, already.DSN, MigrationURL(already))
}

func TestMigrationsEmbedded(t *testing.T) {
	for _, driver := range []Driver{DriverPostgres, DriverMySQL} {
		t.Run(string(driver), func(t *testing.T) {
			entries, err := fs.ReadDir(migrationsFS, "migrations/"+string(driver))
			require.NoError(t, err)

			var names []string
			for _, e := range entries {
				names = append(names, e.Name())
			}
			assert.Contains(t, names, "000001_create_files.up.sql")
			assert.Contains(t, names, "000001_create_files.down.sql")
		})
	}
}

func TestMigrate_RejectsUnknownDriver(t *testing.T) {
	err := Migrate(&Config{Driver: "sqlite", DSN: "file::memory:"})
	assert.True(t, errs.IsInvalidInput(err))
}

func TestConfigEnabled(t *testing.T) {
	var nilCfg *Config
	assert.False(t, nilCfg.Enabled())
	assert.False(t, (&Config{}).Enabled())
	assert.True(t, DefaultConfig("postgres://x").Enabled())
}
