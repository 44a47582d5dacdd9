// Package dbtest opens throwaway sqlite databases with the full schema for tests.
package dbtest

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/JKeiyuru/cornells-sub002/internal/models"
	pkgdb "github.com/JKeiyuru/cornells-sub002/pkg/db"
)

func Open(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), pkgdb.GormConfig())
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// one connection keeps a single in-memory database alive for the whole test
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(models.All()...))

	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}
