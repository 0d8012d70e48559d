package database

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hockshop/hockshop-server/internal/models"
)

func TestOpenSQLiteInMemoryAndMigrate(t *testing.T) {
	db, err := Open(Config{Driver: "sqlite", Path: ":memory:"})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	require.NoError(t, Migrate(db))

	for _, model := range []any{
		&models.User{},
		&models.EmailVerification{},
		&models.PasswordResetToken{},
		&models.Listing{},
	} {
		require.True(t, db.Migrator().HasTable(model))
	}
}

func TestOpenDefaultsToSQLite(t *testing.T) {
	db, err := Open(Config{Path: ":memory:"})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(Config{Driver: "oracle"})
	require.Error(t, err)
}

func TestMigrateRequiresHandle(t *testing.T) {
	require.Error(t, Migrate(nil))
}
