package store

import (
	"fmt"
	"strings"
	"testing"

	"github.com/fiffu/arrwatch/lib/models"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()

	// A named in-memory database per test keeps connections in one pool on
	// the same store without leaking state across tests.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.ServiceConnection{},
		&models.PollCursor{},
		&models.Subscription{},
		&models.Preference{},
		&models.DeliveryAttempt{},
	))
	return db
}

func testLogger() *zap.Logger {
	return zap.NewNop()
}
