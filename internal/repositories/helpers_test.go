package repositories

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDb(t *testing.T) *gorm.DB {
	t.Helper()

	dbContext, err := NewDbContext(DriverSqlite, ":memory:")
	require.NoError(t, err)

	sqlDB, err := dbContext.DB.DB()
	require.NoError(t, err)
	// every new connection would open a separate in-memory database
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, dbContext.Migrate())
	t.Cleanup(func() { _ = dbContext.Close() })
	return dbContext.DB
}
