package repository

import (
	"os"
	"testing"
	"time"

	"github.com/fdk/resource-service/pkg/database"
	"github.com/fdk/resource-service/pkg/logger"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func TestMain(m *testing.M) {
	_, _ = logger.Init("info", "json")
	os.Exit(m.Run())
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.OpenSQLite(":memory:", gormlogger.Silent)
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// fakeClock hands out a fixed time that tests move forward explicitly.
type fakeClock struct{ t time.Time }

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func TestMigrateIndexes(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.Exec(`CREATE INDEX idx_resources_json_gin ON resources(resource_json)`).Error)
	require.NoError(t, Migrate(db), "migrations are repeatable")

	var names []string
	require.NoError(t, db.Raw(`SELECT name FROM sqlite_master WHERE type = 'index' AND name LIKE 'idx_%' ORDER BY name`).Scan(&names).Error)
	require.Subset(t, names, []string{
		"idx_resources_type_id_active",
		"idx_resources_uri_active",
		"idx_union_graphs_config_status",
		"idx_union_graphs_pending",
		"idx_union_graphs_processing_locked",
	})
	require.NotContains(t, names, "idx_resources_json_gin")
}
