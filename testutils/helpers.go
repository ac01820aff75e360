package testutils

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SetupTestDB opens an in-memory sqlite database and migrates the
// given models. The connection pool is clamped to one connection
// because every sqlite :memory: connection is its own database.
func SetupTestDB(t *testing.T, models ...any) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	if len(models) > 0 {
		require.NoError(t, db.AutoMigrate(models...))
	}

	return db
}

// CleanupTestDB closes the underlying connection, which drops an
// in-memory database entirely.
func CleanupTestDB(t *testing.T, db *gorm.DB) {
	t.Helper()

	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())
}

// AssertErrorType checks that actual matches the expected sentinel,
// unwrapping as needed.
func AssertErrorType(t *testing.T, expected error, actual error) {
	t.Helper()

	require.Error(t, actual)
	require.ErrorIs(t, actual, expected)
}
